package etariff

import (
	"context"
	"fmt"
	"net/http/cookiejar"
	"strconv"
	"time"

	"etariff-downloader/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	DefaultBaseUrl = "https://etariff.ferc.gov"
	// server-rendered tariff grid
	TariffListPath = "/TariffList.aspx"
	// export form, parameterized by tariff id
	exportPath = "/TariffExport.aspx"
)

// WebForms postback plumbing governed by the export overlay.
const (
	fieldEventTarget   = "__EVENTTARGET"
	fieldEventArgument = "__EVENTARGUMENT"

	exportAction    = "ctl00$MainContent$btnExport"
	formatField     = "ctl00$MainContent$rdoXmlFormat"
	formatPlainText = "PlainText"
)

// the seven filing statuses an export must always include
var statusFields = []string{
	"ctl00$MainContent$chkEffective",
	"ctl00$MainContent$chkAccepted",
	"ctl00$MainContent$chkSuspended",
	"ctl00$MainContent$chkPending",
	"ctl00$MainContent$chkConditionallyAccepted",
	"ctl00$MainContent$chkConditionallyEffective",
	"ctl00$MainContent$chkTolled",
}

type Client struct {
	http *resty.Client
}

type ClientOptions struct {
	// defaults to DefaultBaseUrl
	BaseUrl string
	// per-request timeout, defaults to a minute
	Timeout time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = DefaultBaseUrl
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Minute
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(opts.Timeout)

	telemetry.InstrumentResty(client, "scrapers/etariff/http")

	return &Client{http: client}, nil
}

// OverlayExportFields applies the export selections on top of a scraped
// field map: all seven status categories on, the plain text format
// (never the binary one), the export action as the postback target with
// an empty argument. Every other field passes through untouched since
// the server may depend on unlisted anti-forgery or tracking state.
func OverlayExportFields(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields)+len(statusFields)+3)
	for k, v := range fields {
		out[k] = v
	}
	for _, name := range statusFields {
		out[name] = "on"
	}
	out[formatField] = formatPlainText
	out[fieldEventTarget] = exportAction
	out[fieldEventArgument] = ""
	return out
}

// FetchExport loads the export form for a tariff id, replays it with
// the export overlay and returns the response body verbatim. This is a
// single best-effort attempt, retry is the caller's concern.
func (c *Client) FetchExport(ctx context.Context, id int) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "client:FetchExport")
	defer span.End()
	span.SetAttributes(attribute.Int("tariff_id", id))

	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("tid", strconv.Itoa(id)).
		Get(exportPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to load export form")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("export form returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to load export form")
		return nil, err
	}

	fields, err := FormFields(string(res.Body()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse export form")
		return nil, err
	}

	res, err = c.http.R().
		SetContext(ctx).
		SetQueryParam("tid", strconv.Itoa(id)).
		SetFormData(OverlayExportFields(fields)).
		Post(exportPath)
	if err != nil {
		span.SetStatus(codes.Error, "failed to submit export form")
		return nil, err
	}
	if res.IsError() {
		err := fmt.Errorf("export submission returned status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit export form")
		return nil, err
	}

	return res.Body(), nil
}
