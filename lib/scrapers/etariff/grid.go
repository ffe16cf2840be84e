package etariff

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"etariff-downloader/lib/browser"

	"go.opentelemetry.io/otel/codes"
)

// authoritative selectors for the tariff grid controls
const (
	showAllSelector     = "input[id$='btnShowAllTariffs']"
	busySelector        = "div[id$='UpdateProgress']"
	gridSelector        = "table[id$='grdTariffs']"
	exportLinkSelector  = "a[href*='tid=']"
	pageSummarySelector = "span[id$='lblPageSummary']"
	pagerLabelSelector  = "tr.pager a"
)

// the "next" control has shown up in a few spots across markup
// revisions, tried in order
var nextControlSelectors = []string{
	"a[id$='lnkNext']",
	"input[id$='btnNext']",
	"a[title='Next']",
}

// conservative guess used when the pager labels can't be read,
// the list has historically sat above 300 pages
const fallbackTotalPages = 300

var tidPattern = regexp.MustCompile(`[?&]tid=(\d+)`)

// no further pages exist, normal completion of pagination
var ErrNoMorePages = errors.New("pager has no further pages")

// ParseIdentifier extracts the tariff identifier from an export link
// target, reporting false when the target carries none.
func ParseIdentifier(href string) (int, bool) {
	m := tidPattern.FindStringSubmatch(href)
	if m == nil {
		return 0, false
	}
	id, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return id, true
}

type NavigatorOptions struct {
	// Loading -> Ready wait, defaults to 30s
	ReadyTimeout time.Duration
	// page-summary mutation wait after clicking next, defaults to 15s
	AdvanceTimeout time.Duration
	// pause before retrying a read that hit a stale element, defaults to 500ms
	StalePause time.Duration
}

// GridNavigator drives a rendering session over the tariff grid. The
// grid replaces its content in place without a URL change, so page
// transitions are only observable through the page-summary text.
type GridNavigator struct {
	session browser.Session
	opts    NavigatorOptions
}

func NewGridNavigator(session browser.Session, opts NavigatorOptions) *GridNavigator {
	if opts.ReadyTimeout == 0 {
		opts.ReadyTimeout = time.Second * 30
	}
	if opts.AdvanceTimeout == 0 {
		opts.AdvanceTimeout = time.Second * 15
	}
	if opts.StalePause == 0 {
		opts.StalePause = time.Millisecond * 500
	}
	return &GridNavigator{session: session, opts: opts}
}

// Activate clicks the show-all-tariffs control. Failure here means
// enumeration cannot even begin and is fatal to the run.
func (g *GridNavigator) Activate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "navigator:Activate")
	defer span.End()

	els, err := g.session.Find(ctx, showAllSelector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up show-all control")
		return err
	}
	if len(els) == 0 {
		err := fmt.Errorf("show-all control not found: %s", showAllSelector)
		span.RecordError(err)
		span.SetStatus(codes.Error, "show-all control missing")
		return err
	}
	return g.session.Click(ctx, els[0])
}

// WaitReady blocks until the busy indicator is gone and the grid has
// rendered. A grid with zero export links is still Ready, an empty
// result set is not an error.
func (g *GridNavigator) WaitReady(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "navigator:WaitReady")
	defer span.End()

	err := g.session.WaitUntil(ctx, g.opts.ReadyTimeout, func(ctx context.Context) (bool, error) {
		busy, err := g.session.Find(ctx, busySelector)
		if err != nil {
			return false, err
		}
		if len(busy) > 0 {
			return false, nil
		}
		grid, err := g.session.Find(ctx, gridSelector)
		if err != nil {
			return false, err
		}
		return len(grid) > 0, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "grid did not become ready")
		return fmt.Errorf("grid ready: %w", err)
	}
	return nil
}

// ExtractIdentifiers scans the visible export links and returns the set
// of tariff ids found on the current page. A stale element read is
// retried once after a brief pause before propagating.
func (g *GridNavigator) ExtractIdentifiers(ctx context.Context) (map[int]struct{}, error) {
	ctx, span := tracer.Start(ctx, "navigator:ExtractIdentifiers")
	defer span.End()

	ids, err := retryStale(g.opts.StalePause, func() (map[int]struct{}, error) {
		return g.extractOnce(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to extract identifiers")
		return nil, err
	}
	return ids, nil
}

func (g *GridNavigator) extractOnce(ctx context.Context) (map[int]struct{}, error) {
	links, err := g.session.Find(ctx, exportLinkSelector)
	if err != nil {
		return nil, err
	}

	ids := map[int]struct{}{}
	for _, link := range links {
		href, err := link.Attribute(ctx, "href")
		if err != nil {
			return nil, err
		}
		if id, ok := ParseIdentifier(href); ok {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// EstimateTotalPages reads the numeric pager labels and returns the
// largest one. Informational only, it feeds the runaway guard and is
// never trusted as ground truth.
func (g *GridNavigator) EstimateTotalPages(ctx context.Context) int {
	ctx, span := tracer.Start(ctx, "navigator:EstimateTotalPages")
	defer span.End()

	els, err := g.session.Find(ctx, pagerLabelSelector)
	if err != nil || len(els) == 0 {
		return fallbackTotalPages
	}

	max := 0
	for _, el := range els {
		text, err := el.Text(ctx)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(text))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	if max == 0 {
		return fallbackTotalPages
	}
	return max
}

// Advance clicks the pager's next control and waits for the
// page-summary text to change, the only reliable transition signal.
// Returns ErrNoMorePages when the control is absent or disabled. A
// timeout surfaces as a transient failure wrapping
// browser.ErrWaitTimeout, retryable by the caller.
func (g *GridNavigator) Advance(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "navigator:Advance")
	defer span.End()

	next, err := retryStale(g.opts.StalePause, func() (browser.Element, error) {
		return g.findNext(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to look up next control")
		return err
	}
	if next == nil {
		span.SetStatus(codes.Ok, ErrNoMorePages.Error())
		return ErrNoMorePages
	}

	before, err := retryStale(g.opts.StalePause, func() (string, error) {
		return g.summaryText(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot page summary")
		return err
	}

	if err := g.session.Click(ctx, next); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to click next control")
		return err
	}

	err = g.session.WaitUntil(ctx, g.opts.AdvanceTimeout, func(ctx context.Context) (bool, error) {
		now, err := g.summaryText(ctx)
		if err != nil {
			return false, err
		}
		return now != before, nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "page summary did not change")
		return fmt.Errorf("advance to next page: %w", err)
	}
	return nil
}

// the next control is treated as exhausted when no candidate matches or
// the match is disabled
func (g *GridNavigator) findNext(ctx context.Context) (browser.Element, error) {
	for _, sel := range nextControlSelectors {
		els, err := g.session.Find(ctx, sel)
		if err != nil {
			return nil, err
		}
		if len(els) == 0 {
			continue
		}
		el := els[0]

		disabled, err := el.Attribute(ctx, "disabled")
		if err != nil {
			return nil, err
		}
		if disabled != "" {
			return nil, nil
		}
		class, err := el.Attribute(ctx, "class")
		if err != nil {
			return nil, err
		}
		// WebForms renders disabled postback links with this class
		if strings.Contains(class, "aspNetDisabled") {
			return nil, nil
		}
		return el, nil
	}
	return nil, nil
}

func (g *GridNavigator) summaryText(ctx context.Context) (string, error) {
	els, err := g.session.Find(ctx, pageSummarySelector)
	if err != nil {
		return "", err
	}
	if len(els) == 0 {
		return "", nil
	}
	return els[0].Text(ctx)
}

func retryStale[T any](pause time.Duration, fn func() (T, error)) (T, error) {
	v, err := fn()
	if errors.Is(err, browser.ErrStale) {
		time.Sleep(pause)
		v, err = fn()
	}
	return v, err
}
