package storage

import (
	"context"
	"testing"
	"time"

	"github.com/radiusdt/contact-ledger/internal/models"
	"github.com/radiusdt/contact-ledger/internal/timebucket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func int64Ptr(v int64) *int64 { return &v }

func addEntry(t *testing.T, s *InMemoryLedgerStore, contactID int64, campaignID *int64, at time.Time, cost, revenue *decimal.Decimal) {
	t.Helper()
	require.NoError(t, s.AddEntry(context.Background(), &models.LedgerEntry{
		ContactID:  contactID,
		CampaignID: campaignID,
		DateAdded:  at,
		Activity:   models.ActivityReceived,
		Cost:       cost,
		Revenue:    revenue,
	}))
}

func TestCampaignRevenueSeriesSingleBucket(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := time.Date(2018, time.March, 10, 9, 0, 0, 0, time.UTC)

	addEntry(t, s, 1, int64Ptr(5), day, decPtr("10"), decPtr("25"))
	addEntry(t, s, 2, int64Ptr(5), day.Add(2*time.Hour), decPtr("5"), decPtr("0"))

	rows, err := s.CampaignRevenueSeries(context.Background(), CampaignRevenueQuery{
		CampaignID: 5,
		DateFrom:   day,
		DateTo:     day.AddDate(0, 0, 10),
		Unit:       timebucket.Day,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "2018-03-10", rows[0].Label)
	assert.Equal(t, 15.0, rows[0].Cost)
	assert.Equal(t, 25.0, rows[0].Revenue)
	assert.Equal(t, 10.0, rows[0].Profit)
}

func TestCampaignRevenueSeriesProfitInvariant(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := time.Date(2018, time.March, 10, 0, 0, 0, 0, time.UTC)

	// Nulls treated as zero; negative values allowed (refunds).
	addEntry(t, s, 1, int64Ptr(5), day, nil, decPtr("7.50"))
	addEntry(t, s, 2, int64Ptr(5), day.AddDate(0, 0, 1), decPtr("-2"), nil)
	addEntry(t, s, 3, int64Ptr(5), day.AddDate(0, 0, 2), decPtr("3"), decPtr("4"))

	rows, err := s.CampaignRevenueSeries(context.Background(), CampaignRevenueQuery{
		CampaignID: 5,
		DateFrom:   day,
		DateTo:     day.AddDate(0, 0, 10),
		Unit:       timebucket.Day,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	for _, row := range rows {
		assert.InDelta(t, row.Revenue-row.Cost, row.Profit, 1e-9, "label %s", row.Label)
	}
}

func TestCampaignRevenueSeriesRangeBoundaries(t *testing.T) {
	s := NewInMemoryLedgerStore()
	from := time.Date(2018, time.March, 10, 0, 0, 0, 0, time.UTC)
	to := time.Date(2018, time.March, 12, 0, 0, 0, 0, time.UTC)

	addEntry(t, s, 1, int64Ptr(5), from.Add(-time.Second), decPtr("1"), nil)          // before range
	addEntry(t, s, 2, int64Ptr(5), from, decPtr("2"), nil)                            // first instant
	addEntry(t, s, 3, int64Ptr(5), to.AddDate(0, 0, 1).Add(-time.Second), decPtr("4"), nil) // last instant
	addEntry(t, s, 4, int64Ptr(5), to.AddDate(0, 0, 1), decPtr("8"), nil)             // midnight after toDate, excluded

	rows, err := s.CampaignRevenueSeries(context.Background(), CampaignRevenueQuery{
		CampaignID: 5,
		DateFrom:   from,
		DateTo:     to,
		Unit:       timebucket.Day,
	})
	require.NoError(t, err)

	var total float64
	for _, row := range rows {
		total += row.Cost
	}
	assert.Equal(t, 6.0, total)
}

func TestCampaignRevenueSeriesIgnoresOtherCampaigns(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := time.Date(2018, time.March, 10, 0, 0, 0, 0, time.UTC)

	addEntry(t, s, 1, int64Ptr(5), day, decPtr("1"), nil)
	addEntry(t, s, 2, int64Ptr(6), day, decPtr("100"), nil)
	addEntry(t, s, 3, nil, day, decPtr("100"), nil) // off-campaign cost

	rows, err := s.CampaignRevenueSeries(context.Background(), CampaignRevenueQuery{
		CampaignID: 5,
		DateFrom:   day,
		DateTo:     day,
		Unit:       timebucket.Day,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 1.0, rows[0].Cost)
}

func TestCampaignRevenueSeriesViewerOffsetShiftsSubDayBuckets(t *testing.T) {
	s := NewInMemoryLedgerStore()
	at := time.Date(2018, time.March, 10, 3, 30, 0, 0, time.UTC)

	addEntry(t, s, 1, int64Ptr(5), at, decPtr("1"), nil)

	// UTC-7 viewer: 03:30 UTC is 20:30 the previous evening.
	rows, err := s.CampaignRevenueSeries(context.Background(), CampaignRevenueQuery{
		CampaignID:     5,
		DateFrom:       at.AddDate(0, 0, -1),
		DateTo:         at,
		Unit:           timebucket.Hour,
		UTCOffsetHours: -7,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2018-03-09 20:00", rows[0].Label)
}

func TestCampaignRevenueSeriesOrderedByLabel(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := time.Date(2018, time.March, 10, 0, 0, 0, 0, time.UTC)

	addEntry(t, s, 1, int64Ptr(5), day.AddDate(0, 0, 5), decPtr("1"), nil)
	addEntry(t, s, 2, int64Ptr(5), day, decPtr("1"), nil)
	addEntry(t, s, 3, int64Ptr(5), day.AddDate(0, 0, 2), decPtr("1"), nil)

	rows, err := s.CampaignRevenueSeries(context.Background(), CampaignRevenueQuery{
		CampaignID: 5,
		DateFrom:   day,
		DateTo:     day.AddDate(0, 0, 10),
		Unit:       timebucket.Day,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "2018-03-10", rows[0].Label)
	assert.Equal(t, "2018-03-12", rows[1].Label)
	assert.Equal(t, "2018-03-15", rows[2].Label)
}

func seedDashboard(t *testing.T, s *InMemoryLedgerStore) time.Time {
	t.Helper()
	ctx := context.Background()
	day := time.Date(2018, time.March, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertCampaign(ctx, &models.Campaign{ID: 1, Name: "Spring Leads", IsPublished: true}))
	require.NoError(t, s.UpsertCampaign(ctx, &models.Campaign{ID: 2, Name: "Winter Leads", IsPublished: false}))
	require.NoError(t, s.UpsertContactSource(ctx, &models.ContactSource{ID: 10, Name: "Affiliate A"}))
	require.NoError(t, s.UpsertContactSource(ctx, &models.ContactSource{ID: 11, Name: "Affiliate B"}))

	stats := []*models.AttributionStat{
		{CampaignID: 1, ContactSourceID: 10, ContactID: 100, Type: models.StatTypeAccepted},
		{CampaignID: 1, ContactSourceID: 10, ContactID: 101, Type: models.StatTypeScrubbed},
		{CampaignID: 1, ContactSourceID: 11, ContactID: 102, Type: models.StatTypeRejected},
		{CampaignID: 2, ContactSourceID: 10, ContactID: 103, Type: models.StatTypeAccepted},
	}
	for _, st := range stats {
		st.DateAdded = day
		require.NoError(t, s.AddAttributionStat(ctx, st))
	}

	addEntry(t, s, 100, int64Ptr(1), day, decPtr("10"), decPtr("30"))
	addEntry(t, s, 102, int64Ptr(1), day, decPtr("5"), nil)
	addEntry(t, s, 103, int64Ptr(2), day, decPtr("2"), decPtr("2"))

	return day
}

func TestDashboardRevenueByCampaign(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := seedDashboard(t, s)

	rows, err := s.DashboardRevenue(context.Background(), DashboardQuery{
		DateFrom: day.AddDate(0, 0, -1),
		DateTo:   day.AddDate(0, 0, 1),
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Least active campaign first.
	assert.Equal(t, int64(2), rows[0].CampaignID)
	assert.Equal(t, int64(1), rows[0].Received)
	assert.Equal(t, int64(1), rows[0].Converted)

	spring := rows[1]
	assert.Equal(t, int64(1), spring.CampaignID)
	assert.Equal(t, "Spring Leads", spring.CampaignName)
	assert.True(t, spring.IsPublished)
	assert.Equal(t, int64(3), spring.Received)
	assert.Equal(t, int64(1), spring.Converted)
	assert.Equal(t, int64(1), spring.Scrubbed)
	assert.Equal(t, int64(1), spring.Rejected)
	assert.Equal(t, 15.0, spring.Cost)
	assert.Equal(t, 30.0, spring.Revenue)
}

func TestDashboardRevenueBySource(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := seedDashboard(t, s)

	rows, err := s.DashboardRevenue(context.Background(), DashboardQuery{
		DateFrom: day.AddDate(0, 0, -1),
		DateTo:   day.AddDate(0, 0, 1),
		BySource: true,
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)

	byKey := make(map[[2]int64]DashboardRow)
	for _, row := range rows {
		require.NotNil(t, row.ContactSourceID)
		require.NotNil(t, row.SourceName)
		byKey[[2]int64{row.CampaignID, *row.ContactSourceID}] = row
	}

	springA := byKey[[2]int64{1, 10}]
	assert.Equal(t, "Affiliate A", *springA.SourceName)
	assert.Equal(t, int64(2), springA.Received)
	assert.Equal(t, int64(1), springA.Converted)
	assert.Equal(t, 10.0, springA.Cost)
	assert.Equal(t, 30.0, springA.Revenue)

	springB := byKey[[2]int64{1, 11}]
	assert.Equal(t, int64(1), springB.Rejected)
	assert.Equal(t, 5.0, springB.Cost)
	assert.Equal(t, 0.0, springB.Revenue)
}

func TestDashboardRevenueLimit(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := seedDashboard(t, s)

	rows, err := s.DashboardRevenue(context.Background(), DashboardQuery{
		DateFrom: day.AddDate(0, 0, -1),
		DateTo:   day.AddDate(0, 0, 1),
		Limit:    1,
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(2), rows[0].CampaignID)
}

func TestDashboardRevenueEmptyRange(t *testing.T) {
	s := NewInMemoryLedgerStore()
	day := seedDashboard(t, s)

	rows, err := s.DashboardRevenue(context.Background(), DashboardQuery{
		DateFrom: day.AddDate(0, 0, 10),
		DateTo:   day.AddDate(0, 0, 20),
	})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
