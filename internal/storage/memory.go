package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/radiusdt/contact-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// InMemoryLedgerStore implements LedgerStore in process memory with the same
// aggregation semantics as the Postgres store. Used in tests and when the
// service runs without a database.
type InMemoryLedgerStore struct {
	mu      sync.RWMutex
	nextID  int64
	entries []*models.LedgerEntry
	stats   []*models.AttributionStat

	campaigns map[int64]*models.Campaign
	sources   map[int64]*models.ContactSource
}

// NewInMemoryLedgerStore creates an empty in-memory ledger store.
func NewInMemoryLedgerStore() *InMemoryLedgerStore {
	return &InMemoryLedgerStore{
		nextID:    1,
		campaigns: make(map[int64]*models.Campaign),
		sources:   make(map[int64]*models.ContactSource),
	}
}

func (s *InMemoryLedgerStore) AddEntry(_ context.Context, entry *models.LedgerEntry) error {
	if entry == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.ID = s.nextID
	s.nextID++
	s.entries = append(s.entries, &cp)
	entry.ID = cp.ID
	return nil
}

func (s *InMemoryLedgerStore) AddAttributionStat(_ context.Context, stat *models.AttributionStat) error {
	if stat == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *stat
	cp.ID = s.nextID
	s.nextID++
	s.stats = append(s.stats, &cp)
	stat.ID = cp.ID
	return nil
}

func (s *InMemoryLedgerStore) UpsertCampaign(_ context.Context, campaign *models.Campaign) error {
	if campaign == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *campaign
	s.campaigns[campaign.ID] = &cp
	return nil
}

func (s *InMemoryLedgerStore) UpsertContactSource(_ context.Context, source *models.ContactSource) error {
	if source == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *source
	s.sources[source.ID] = &cp
	return nil
}

// CampaignRevenueSeries aggregates entries into time buckets, matching the
// SQL implementation: midnight-bounded half-open range, nulls as zero,
// sub-day buckets shifted by the viewer offset, rows ordered by label.
func (s *InMemoryLedgerStore) CampaignRevenueSeries(_ context.Context, q CampaignRevenueQuery) ([]RevenueRow, error) {
	from := midnightUTC(q.DateFrom)
	to := midnightUTC(q.DateTo).AddDate(0, 0, 1)
	shift := time.Duration(0)
	if q.Unit.SubDay() {
		shift = time.Duration(q.UTCOffsetHours) * time.Hour
	}

	type bucket struct {
		cost    decimal.Decimal
		revenue decimal.Decimal
	}
	buckets := make(map[string]*bucket)

	s.mu.RLock()
	for _, e := range s.entries {
		if e.CampaignID == nil || *e.CampaignID != q.CampaignID {
			continue
		}
		if e.DateAdded.Before(from) || !e.DateAdded.Before(to) {
			continue
		}
		label := q.Unit.FormatLabel(e.DateAdded.Add(shift))
		b, ok := buckets[label]
		if !ok {
			b = &bucket{}
			buckets[label] = b
		}
		b.cost = b.cost.Add(e.CostOrZero())
		b.revenue = b.revenue.Add(e.RevenueOrZero())
	}
	s.mu.RUnlock()

	rows := make([]RevenueRow, 0, len(buckets))
	for label, b := range buckets {
		rows = append(rows, RevenueRow{
			Label:   label,
			Cost:    b.cost.InexactFloat64(),
			Revenue: b.revenue.InexactFloat64(),
			Profit:  b.revenue.Sub(b.cost).InexactFloat64(),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows, nil
}

type dashboardKey struct {
	campaignID int64
	sourceID   int64
}

// DashboardRevenue aggregates attribution counts per campaign (per campaign
// × source when BySource) with ledger cost/revenue joined in, ordered
// ascending by attribution row count like the SQL implementation.
func (s *InMemoryLedgerStore) DashboardRevenue(_ context.Context, q DashboardQuery) ([]DashboardRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type group struct {
		received  int64
		rejected  int64
		converted int64
		scrubbed  int64
	}
	groups := make(map[dashboardKey]*group)

	for _, st := range s.stats {
		if st.DateAdded.Before(q.DateFrom) || st.DateAdded.After(q.DateTo) {
			continue
		}
		if _, ok := s.campaigns[st.CampaignID]; !ok {
			continue
		}
		key := dashboardKey{campaignID: st.CampaignID}
		if q.BySource {
			if _, ok := s.sources[st.ContactSourceID]; !ok {
				continue
			}
			key.sourceID = st.ContactSourceID
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		g.received++
		switch st.Type {
		case models.StatTypeAccepted:
			g.converted++
		case models.StatTypeScrubbed:
			g.scrubbed++
		default:
			g.rejected++
		}
	}

	costs, revenues := s.ledgerTotals(q.BySource)

	rows := make([]DashboardRow, 0, len(groups))
	for key, g := range groups {
		campaign := s.campaigns[key.campaignID]
		row := DashboardRow{
			CampaignID:   key.campaignID,
			IsPublished:  campaign.IsPublished,
			CampaignName: campaign.Name,
			Received:     g.received,
			Rejected:     g.rejected,
			Converted:    g.converted,
			Scrubbed:     g.scrubbed,
			Cost:         costs[key].InexactFloat64(),
			Revenue:      revenues[key].InexactFloat64(),
		}
		if q.BySource {
			sourceID := key.sourceID
			sourceName := s.sources[sourceID].Name
			row.ContactSourceID = &sourceID
			row.SourceName = &sourceName
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Received != rows[j].Received {
			return rows[i].Received < rows[j].Received
		}
		if rows[i].CampaignID != rows[j].CampaignID {
			return rows[i].CampaignID < rows[j].CampaignID
		}
		return derefInt64(rows[i].ContactSourceID) < derefInt64(rows[j].ContactSourceID)
	})

	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

// ledgerTotals sums cost and revenue over the full entry history, per
// campaign or per campaign × source. The per-source attribution replays the
// SQL inner join: an entry contributes once per matching attribution row.
func (s *InMemoryLedgerStore) ledgerTotals(bySource bool) (map[dashboardKey]decimal.Decimal, map[dashboardKey]decimal.Decimal) {
	costs := make(map[dashboardKey]decimal.Decimal)
	revenues := make(map[dashboardKey]decimal.Decimal)

	for _, e := range s.entries {
		if e.CampaignID == nil {
			continue
		}
		if !bySource {
			key := dashboardKey{campaignID: *e.CampaignID}
			costs[key] = costs[key].Add(e.CostOrZero())
			revenues[key] = revenues[key].Add(e.RevenueOrZero())
			continue
		}
		for _, st := range s.stats {
			if st.CampaignID != *e.CampaignID || st.ContactID != e.ContactID {
				continue
			}
			key := dashboardKey{campaignID: *e.CampaignID, sourceID: st.ContactSourceID}
			costs[key] = costs[key].Add(e.CostOrZero())
			revenues[key] = revenues[key].Add(e.RevenueOrZero())
		}
	}
	return costs, revenues
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// Len reports entry and stat counts, for health output.
func (s *InMemoryLedgerStore) Len() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), len(s.stats)
}

var _ LedgerStore = (*InMemoryLedgerStore)(nil)
var _ LedgerStore = (*PostgresLedgerStore)(nil)

// String identifies the store in logs.
func (s *InMemoryLedgerStore) String() string {
	entries, stats := s.Len()
	return fmt.Sprintf("in-memory ledger store (%d entries, %d stats)", entries, stats)
}
