// Package storage owns the ledger store and the aggregation query layer. The
// Postgres implementation is authoritative; the in-memory implementation
// mirrors its semantics for tests and for running without a database, the
// same pairing the rest of the service uses for its repositories.
package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/radiusdt/contact-ledger/internal/cache"
	"github.com/radiusdt/contact-ledger/internal/models"
	"github.com/radiusdt/contact-ledger/internal/timebucket"
	"go.uber.org/zap"
)

// CampaignRevenueQuery parameterizes the campaign time-series aggregation.
// The range covers midnight of DateFrom (inclusive) through midnight after
// DateTo (exclusive). UTCOffsetHours shifts sub-day buckets to the viewer's
// wall clock.
type CampaignRevenueQuery struct {
	CampaignID     int64
	DateFrom       time.Time
	DateTo         time.Time
	Unit           timebucket.Unit
	UTCOffsetHours int
}

// DashboardQuery parameterizes the dashboard summary aggregations.
type DashboardQuery struct {
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	BySource bool
}

// RevenueRow is one time bucket of the campaign revenue series. Profit is
// computed in the aggregation, never stored.
type RevenueRow struct {
	Label   string  `json:"label"`
	Cost    float64 `json:"cost"`
	Revenue float64 `json:"revenue"`
	Profit  float64 `json:"profit"`
}

// DashboardRow is one campaign (or campaign × source) line of the dashboard
// revenue summary.
type DashboardRow struct {
	CampaignID      int64   `json:"campaign_id"`
	IsPublished     bool    `json:"is_published"`
	CampaignName    string  `json:"name"`
	ContactSourceID *int64  `json:"contactsource_id,omitempty"`
	SourceName      *string `json:"source,omitempty"`
	Received        int64   `json:"received"`
	Rejected        int64   `json:"rejected"`
	Converted       int64   `json:"converted"`
	Scrubbed        int64   `json:"scrubbed"`
	Cost            float64 `json:"cost"`
	Revenue         float64 `json:"revenue"`
}

// LedgerStore is the persistence boundary of the ledger core: an append
// primitive for entries and attribution stats, upserts for the host entities
// the dashboard joins against, and the three read aggregations.
type LedgerStore interface {
	AddEntry(ctx context.Context, entry *models.LedgerEntry) error
	AddAttributionStat(ctx context.Context, stat *models.AttributionStat) error
	UpsertCampaign(ctx context.Context, campaign *models.Campaign) error
	UpsertContactSource(ctx context.Context, source *models.ContactSource) error

	CampaignRevenueSeries(ctx context.Context, q CampaignRevenueQuery) ([]RevenueRow, error)
	DashboardRevenue(ctx context.Context, q DashboardQuery) ([]DashboardRow, error)
}

// CacheStats receives cache hit/miss observations from cached queries.
type CacheStats interface {
	RecordCacheHit(namespace string)
	RecordCacheMiss(namespace string)
}

// cachedRows wraps a row-set fetch with the query result cache. The key is
// derived from the SQL text and its bound parameters. Any cache failure
// degrades to a direct fetch; the cache never fails a request.
func cachedRows[T any](
	ctx context.Context,
	qc cache.QueryCache,
	ttl time.Duration,
	stats CacheStats,
	logger *zap.Logger,
	namespace, sql string,
	params []any,
	fetch func(context.Context) ([]T, error),
) ([]T, error) {
	if qc == nil {
		return fetch(ctx)
	}

	key := cache.Key(namespace, sql, params...)

	if data, ok, err := qc.Get(ctx, key); err != nil {
		logger.Warn("query cache get failed, querying directly",
			zap.String("namespace", namespace),
			zap.Error(err),
		)
	} else if ok {
		var rows []T
		if err := json.Unmarshal(data, &rows); err != nil {
			logger.Warn("query cache entry undecodable, querying directly",
				zap.String("namespace", namespace),
				zap.Error(err),
			)
		} else {
			if stats != nil {
				stats.RecordCacheHit(namespace)
			}
			return rows, nil
		}
	}

	if stats != nil {
		stats.RecordCacheMiss(namespace)
	}

	rows, err := fetch(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(rows); err == nil {
		if err := qc.Set(ctx, key, data, ttl); err != nil {
			logger.Warn("query cache set failed",
				zap.String("namespace", namespace),
				zap.Error(err),
			)
		}
	}

	return rows, nil
}

// midnightUTC truncates t to the start of its calendar day in UTC.
func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
