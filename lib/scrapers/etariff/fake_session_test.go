package etariff

import (
	"context"
	"errors"
	"time"

	"etariff-downloader/lib/browser"
)

// fakePage is one rendered state of the simulated tariff grid.
type fakePage struct {
	summary string
	hrefs   []string
	// render the next control disabled
	last bool
}

type fakeSession struct {
	pages       []fakePage
	pagerLabels []string
	idx         int

	activated bool
	noShowAll bool
	// the pager loops back to the first page forever
	loop bool

	// Find(busy) reports a busy indicator this many times before clearing
	busyPolls int
	// Attribute reads that return ErrStale before succeeding
	staleAttrReads int

	extractQueries int
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error { return nil }

func (s *fakeSession) Find(ctx context.Context, selector string) ([]browser.Element, error) {
	switch selector {
	case showAllSelector:
		if s.noShowAll {
			return nil, nil
		}
		return []browser.Element{&fakeElement{session: s, role: "showall"}}, nil
	case busySelector:
		if s.busyPolls > 0 {
			s.busyPolls--
			return []browser.Element{&fakeElement{session: s}}, nil
		}
		return nil, nil
	case gridSelector:
		return []browser.Element{&fakeElement{session: s}}, nil
	case exportLinkSelector:
		s.extractQueries++
		page := s.pages[s.idx]
		els := make([]browser.Element, len(page.hrefs))
		for i, href := range page.hrefs {
			els[i] = &fakeElement{session: s, attrs: map[string]string{"href": href}}
		}
		return els, nil
	case pageSummarySelector:
		return []browser.Element{&fakeElement{session: s, text: s.pages[s.idx].summary}}, nil
	case pagerLabelSelector:
		els := make([]browser.Element, len(s.pagerLabels))
		for i, label := range s.pagerLabels {
			els[i] = &fakeElement{session: s, text: label}
		}
		return els, nil
	case nextControlSelectors[0]:
		attrs := map[string]string{}
		if s.pages[s.idx].last {
			attrs["class"] = "aspNetDisabled"
		}
		return []browser.Element{&fakeElement{session: s, role: "next", attrs: attrs}}, nil
	}
	return nil, nil
}

func (s *fakeSession) Click(ctx context.Context, el browser.Element) error {
	fe := el.(*fakeElement)
	switch fe.role {
	case "showall":
		s.activated = true
	case "next":
		if s.idx < len(s.pages)-1 {
			s.idx++
		} else if s.loop {
			s.idx = 0
		}
	}
	return nil
}

func (s *fakeSession) Execute(ctx context.Context, script string) error { return nil }

func (s *fakeSession) WaitUntil(ctx context.Context, timeout time.Duration, pred func(ctx context.Context) (bool, error)) error {
	// bounded polling without real sleeps
	for i := 0; i < 50; i++ {
		ok, err := pred(ctx)
		if err != nil && !errors.Is(err, browser.ErrStale) {
			return err
		}
		if ok {
			return nil
		}
	}
	return browser.ErrWaitTimeout
}

type fakeElement struct {
	session *fakeSession
	role    string
	text    string
	attrs   map[string]string
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, nil
}

func (e *fakeElement) Attribute(ctx context.Context, name string) (string, error) {
	if e.session != nil && e.session.staleAttrReads > 0 {
		e.session.staleAttrReads--
		return "", browser.ErrStale
	}
	return e.attrs[name], nil
}
