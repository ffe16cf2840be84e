// Package browser defines the capability interface the grid scraper
// needs from an interactive rendering session. Any implementation that
// can navigate, query the DOM, click through script and poll a
// predicate is substitutable.
package browser

import (
	"context"
	"errors"
	"time"
)

var (
	// the underlying DOM node was replaced while it was being read
	ErrStale = errors.New("element reference is stale")
	// a WaitUntil predicate never became true before its timeout
	ErrWaitTimeout = errors.New("wait condition timed out")
)

type Element interface {
	Text(ctx context.Context) (string, error)
	Attribute(ctx context.Context, name string) (string, error)
}

type Session interface {
	Navigate(ctx context.Context, url string) error
	// returns zero or more matches, a missing element is not an error
	Find(ctx context.Context, selector string) ([]Element, error)
	// clicks through script execution so overlays never intercept the event
	Click(ctx context.Context, el Element) error
	Execute(ctx context.Context, script string) error
	// polls pred until it reports true, ErrWaitTimeout once timeout elapses.
	// a pred error of ErrStale counts as "not yet", anything else aborts.
	WaitUntil(ctx context.Context, timeout time.Duration, pred func(ctx context.Context) (bool, error)) error
}
