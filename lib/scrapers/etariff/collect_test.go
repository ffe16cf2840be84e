package etariff

import (
	"context"
	"testing"

	"etariff-downloader/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func TestCollectIDsTwoPages(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{
			{
				summary: "1 - 2 of 3",
				hrefs: []string{
					"TariffExport.aspx?tid=100",
					"TariffExport.aspx?tid=101",
				},
			},
			{
				summary: "3 - 3 of 3",
				hrefs:   []string{"TariffExport.aspx?tid=102"},
				last:    true,
			},
		},
		pagerLabels: []string{"1", "2"},
	}
	nav := testNavigator(session)

	ids, err := CollectIDs(context.Background(), nav, CollectOptions{})
	require.NoError(t, err)
	require.Equal(t, []int{100, 101, 102}, ids)
	require.True(t, session.activated)
	// a disabled pager after two pages means exactly two extractions
	require.Equal(t, 2, session.extractQueries)
}

func TestCollectIDsPageCap(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages: []fakePage{
			{summary: "page 1", hrefs: []string{"TariffExport.aspx?tid=1"}},
			{summary: "page 2", hrefs: []string{"TariffExport.aspx?tid=2"}},
			{summary: "page 3", hrefs: []string{"TariffExport.aspx?tid=3"}},
		},
		pagerLabels: []string{"1", "2", "3"},
	}
	nav := testNavigator(session)

	ids, err := CollectIDs(context.Background(), nav, CollectOptions{PageCap: 2})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, ids)
	require.Equal(t, 2, session.extractQueries)
}

func TestCollectIDsRunawayGuard(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	// a pager that never disables and cycles back to page one
	session := &fakeSession{
		pages: []fakePage{
			{summary: "page 1", hrefs: []string{"TariffExport.aspx?tid=1"}},
			{summary: "page 2", hrefs: []string{"TariffExport.aspx?tid=2"}},
		},
		pagerLabels: []string{"1", "2"},
		loop:        true,
	}
	nav := testNavigator(session)

	ids, err := CollectIDs(context.Background(), nav, CollectOptions{})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, ids)
	// estimated 2 pages, guard trips at twice that
	require.Equal(t, 4, session.extractQueries)
}

func TestCollectIDsZeroRecords(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages:       []fakePage{{summary: "0 of 0", last: true}},
		pagerLabels: []string{"1"},
	}
	nav := testNavigator(session)

	ids, err := CollectIDs(context.Background(), nav, CollectOptions{})
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestCollectIDsActivationFailureIsFatal(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	session := &fakeSession{
		pages:     []fakePage{{summary: "1 - 10 of 23"}},
		noShowAll: true,
	}
	nav := testNavigator(session)

	_, err := CollectIDs(context.Background(), nav, CollectOptions{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "activate tariff grid")
}

func TestCollectIDsRetriedPageYieldsNoNewIDs(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:scrapers/etariff")
	defer cleanup()

	// the second page re-surfaces an id already counted, collection
	// logs a diagnostic and keeps going
	session := &fakeSession{
		pages: []fakePage{
			{summary: "page 1", hrefs: []string{"TariffExport.aspx?tid=9"}},
			{summary: "page 2", hrefs: []string{"TariffExport.aspx?tid=9"}},
			{summary: "page 3", hrefs: []string{"TariffExport.aspx?tid=10"}, last: true},
		},
		pagerLabels: []string{"1", "2", "3"},
	}
	nav := testNavigator(session)

	ids, err := CollectIDs(context.Background(), nav, CollectOptions{})
	require.NoError(t, err)
	require.Equal(t, []int{9, 10}, ids)
}
