package etariff

import (
	"context"
	"testing"
	"time"

	"etariff-downloader/lib/browser"
	"etariff-downloader/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func testNavigator(s *fakeSession) *GridNavigator {
	return NewGridNavigator(s, NavigatorOptions{
		ReadyTimeout:   time.Second,
		AdvanceTimeout: time.Second,
		StalePause:     time.Millisecond,
	})
}

func TestParseIdentifier(t *testing.T) {
	testCases := []struct {
		href string
		id   int
		ok   bool
	}{
		{href: "TariffExport.aspx?tid=100", id: 100, ok: true},
		{href: "/TariffBrowser.aspx?sec=1&tid=2043", id: 2043, ok: true},
		{href: "TariffList.aspx?page=3", ok: false},
		{href: "TariffExport.aspx?btid=55", ok: false},
		{href: "", ok: false},
	}

	for _, test := range testCases {
		id, ok := ParseIdentifier(test.href)
		require.Equal(t, test.ok, ok, test.href)
		require.Equal(t, test.id, id, test.href)
	}
}

func TestExtractIdentifiers(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{{
			summary: "1 - 10 of 23",
			hrefs: []string{
				"TariffExport.aspx?tid=100",
				"TariffExport.aspx?tid=101",
				// duplicates collapse, unrelated links are ignored
				"TariffExport.aspx?tid=100",
				"Help.aspx",
			},
		}},
	}
	nav := testNavigator(session)

	ids, err := nav.ExtractIdentifiers(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{100: {}, 101: {}}, ids)
}

func TestExtractIdentifiersStaleRetry(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{{
			summary: "1 - 1 of 1",
			hrefs:   []string{"TariffExport.aspx?tid=7"},
		}},
		staleAttrReads: 1,
	}
	nav := testNavigator(session)

	ids, err := nav.ExtractIdentifiers(context.Background())
	require.NoError(t, err)
	require.Equal(t, map[int]struct{}{7: {}}, ids)
}

func TestExtractIdentifiersRepeatedStaleness(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{{
			summary: "1 - 1 of 1",
			hrefs:   []string{"TariffExport.aspx?tid=7"},
		}},
		staleAttrReads: 10,
	}
	nav := testNavigator(session)

	_, err := nav.ExtractIdentifiers(context.Background())
	require.ErrorIs(t, err, browser.ErrStale)
}

func TestWaitReadyBusyClears(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages:     []fakePage{{summary: "1 - 10 of 23"}},
		busyPolls: 3,
	}
	nav := testNavigator(session)

	require.NoError(t, nav.WaitReady(context.Background()))
	require.Zero(t, session.busyPolls)
}

func TestAdvance(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{
			{summary: "1 - 10 of 23"},
			{summary: "11 - 20 of 23"},
		},
	}
	nav := testNavigator(session)

	require.NoError(t, nav.Advance(context.Background()))
	require.Equal(t, 1, session.idx)
}

func TestAdvanceDisabledPager(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{{summary: "21 - 23 of 23", last: true}},
	}
	nav := testNavigator(session)

	err := nav.Advance(context.Background())
	require.ErrorIs(t, err, ErrNoMorePages)
	require.Zero(t, session.idx)
}

func TestAdvanceTimeout(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	// a genuinely new page rendering an identical summary is
	// indistinguishable from a stuck transition, the advance degrades
	// to a transient failure
	session := &fakeSession{
		pages: []fakePage{
			{summary: "1 - 10 of 23"},
			{summary: "1 - 10 of 23"},
		},
	}
	nav := testNavigator(session)

	err := nav.Advance(context.Background())
	require.ErrorIs(t, err, browser.ErrWaitTimeout)
}

func TestEstimateTotalPages(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages:       []fakePage{{summary: "1 - 10 of 163"}},
		pagerLabels: []string{"1", "2", "3", "...", "17"},
	}
	nav := testNavigator(session)
	require.Equal(t, 17, nav.EstimateTotalPages(context.Background()))

	session = &fakeSession{pages: []fakePage{{summary: ""}}}
	nav = testNavigator(session)
	require.Equal(t, fallbackTotalPages, nav.EstimateTotalPages(context.Background()))
}

func TestActivateMissingControl(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages:     []fakePage{{summary: "1 - 10 of 23"}},
		noShowAll: true,
	}
	nav := testNavigator(session)

	err := nav.Activate(context.Background())
	require.Error(t, err)
	require.False(t, session.activated)
}
