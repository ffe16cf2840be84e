package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightOptions struct {
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
}

// NewPlaywrightSession launches a chromium instance and returns a
// Session backed by a single page, plus a close function that must be
// called once the session is no longer needed.
func NewPlaywrightSession(opts PlaywrightOptions) (Session, func() error, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("start playwright: %w", err)
	}

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		pw.Stop()
		return nil, nil, fmt.Errorf("launch chromium: %w", err)
	}

	pageOpts := playwright.BrowserNewPageOptions{}
	if opts.WindowWidth > 0 && opts.WindowHeight > 0 {
		pageOpts.Viewport = &playwright.Size{
			Width:  opts.WindowWidth,
			Height: opts.WindowHeight,
		}
	}
	page, err := b.NewPage(pageOpts)
	if err != nil {
		b.Close()
		pw.Stop()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	s := &playwrightSession{pw: pw, browser: b, page: page}
	shutdown := func() error {
		errlist := []error{}
		if err := s.browser.Close(); err != nil {
			errlist = append(errlist, err)
		}
		if err := s.pw.Stop(); err != nil {
			errlist = append(errlist, err)
		}
		return errors.Join(errlist...)
	}
	return s, shutdown, nil
}

func (s *playwrightSession) Navigate(ctx context.Context, url string) error {
	_, err := s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	})
	return err
}

func (s *playwrightSession) Find(ctx context.Context, selector string) ([]Element, error) {
	handles, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, mapStale(err)
	}
	els := make([]Element, len(handles))
	for i, h := range handles {
		els[i] = playwrightElement{handle: h}
	}
	return els, nil
}

func (s *playwrightSession) Click(ctx context.Context, el Element) error {
	pe, ok := el.(playwrightElement)
	if !ok {
		return fmt.Errorf("element does not belong to this session")
	}
	_, err := pe.handle.Evaluate("el => el.click()")
	return mapStale(err)
}

func (s *playwrightSession) Execute(ctx context.Context, script string) error {
	_, err := s.page.Evaluate(script)
	return err
}

func (s *playwrightSession) WaitUntil(ctx context.Context, timeout time.Duration, pred func(ctx context.Context) (bool, error)) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := pred(ctx)
		if err != nil && !errors.Is(err, ErrStale) {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return ErrWaitTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond * 100):
		}
	}
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e playwrightElement) Text(ctx context.Context) (string, error) {
	text, err := e.handle.TextContent()
	if err != nil {
		return "", mapStale(err)
	}
	return text, nil
}

func (e playwrightElement) Attribute(ctx context.Context, name string) (string, error) {
	val, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", mapStale(err)
	}
	return val, nil
}

func mapStale(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "not attached") {
		return fmt.Errorf("%w: %s", ErrStale, err.Error())
	}
	return err
}
