package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/radiusdt/contact-ledger/internal/cache"
	"github.com/radiusdt/contact-ledger/internal/models"
	"go.uber.org/zap"
)

// PostgresLedgerStore implements LedgerStore using PostgreSQL. Read
// aggregations go through the query result cache when one is configured.
type PostgresLedgerStore struct {
	pool   *pgxpool.Pool
	cache  cache.QueryCache
	ttl    time.Duration
	stats  CacheStats
	logger *zap.Logger
}

// NewPostgresLedgerStore creates a PostgreSQL-backed ledger store. Cache may
// be nil to disable result caching.
func NewPostgresLedgerStore(pool *pgxpool.Pool, qc cache.QueryCache, ttl time.Duration, stats CacheStats, logger *zap.Logger) *PostgresLedgerStore {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &PostgresLedgerStore{
		pool:   pool,
		cache:  qc,
		ttl:    ttl,
		stats:  stats,
		logger: logger,
	}
}

// AddEntry appends one ledger entry. The database assigns the id.
func (s *PostgresLedgerStore) AddEntry(ctx context.Context, entry *models.LedgerEntry) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contact_ledger
			(contact_id, campaign_id, date_added, bundle_name, class_name, object_id, activity, cost, revenue, memo)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, entry.ContactID, entry.CampaignID, entry.DateAdded, entry.BundleName, entry.ClassName,
		entry.ObjectID, entry.Activity, entry.Cost, entry.Revenue, entry.Memo,
	).Scan(&entry.ID)

	if err != nil {
		return fmt.Errorf("failed to add ledger entry: %w", err)
	}
	return nil
}

// AddAttributionStat appends one attribution row.
func (s *PostgresLedgerStore) AddAttributionStat(ctx context.Context, stat *models.AttributionStat) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO contact_source_stats (campaign_id, contactsource_id, contact_id, type, date_added)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, stat.CampaignID, stat.ContactSourceID, stat.ContactID, stat.Type, stat.DateAdded,
	).Scan(&stat.ID)

	if err != nil {
		return fmt.Errorf("failed to add attribution stat: %w", err)
	}
	return nil
}

// UpsertCampaign mirrors a host campaign for the dashboard joins.
func (s *PostgresLedgerStore) UpsertCampaign(ctx context.Context, campaign *models.Campaign) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO campaigns (id, name, is_published)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, is_published = EXCLUDED.is_published
	`, campaign.ID, campaign.Name, campaign.IsPublished)

	if err != nil {
		return fmt.Errorf("failed to upsert campaign: %w", err)
	}
	return nil
}

// UpsertContactSource mirrors a host contact source for the dashboard joins.
func (s *PostgresLedgerStore) UpsertContactSource(ctx context.Context, source *models.ContactSource) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO contact_sources (id, name)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, source.ID, source.Name)

	if err != nil {
		return fmt.Errorf("failed to upsert contact source: %w", err)
	}
	return nil
}

// CampaignRevenueSeries sums cost, revenue and profit per time bucket for one
// campaign. Nulls are coalesced to zero inside SQL so aggregates stay
// correct. The bucket pattern comes from the closed timebucket enum; only
// values are bound as parameters.
func (s *PostgresLedgerStore) CampaignRevenueSeries(ctx context.Context, q CampaignRevenueQuery) ([]RevenueRow, error) {
	sqlFrom := midnightUTC(q.DateFrom)
	sqlTo := midnightUTC(q.DateTo).AddDate(0, 0, 1)

	labelExpr := fmt.Sprintf("to_char(date_added, '%s')", q.Unit.SQLFormat())
	params := []any{q.CampaignID, sqlFrom, sqlTo}
	if q.Unit.SubDay() {
		// Shift sub-day buckets to the viewer's wall clock before formatting.
		labelExpr = fmt.Sprintf("to_char(date_added + make_interval(hours => $4::int), '%s')", q.Unit.SQLFormat())
		params = append(params, q.UTCOffsetHours)
	}

	query := fmt.Sprintf(`
		SELECT %s AS label,
		       COALESCE(SUM(COALESCE(cost, 0)), 0)::float8 AS cost,
		       COALESCE(SUM(COALESCE(revenue, 0)), 0)::float8 AS revenue,
		       (COALESCE(SUM(COALESCE(revenue, 0)), 0) - COALESCE(SUM(COALESCE(cost, 0)), 0))::float8 AS profit
		FROM contact_ledger
		WHERE campaign_id = $1
		  AND date_added >= $2
		  AND date_added < $3
		GROUP BY 1
		ORDER BY 1 ASC
	`, labelExpr)

	return cachedRows(ctx, s.cache, s.ttl, s.stats, s.logger, cache.NamespaceCampaignRevenue, query, params,
		func(ctx context.Context) ([]RevenueRow, error) {
			rows, err := s.pool.Query(ctx, query, params...)
			if err != nil {
				return nil, fmt.Errorf("failed to query campaign revenue: %w", err)
			}
			defer rows.Close()

			result := []RevenueRow{}
			for rows.Next() {
				var row RevenueRow
				if err := rows.Scan(&row.Label, &row.Cost, &row.Revenue, &row.Profit); err != nil {
					return nil, fmt.Errorf("failed to scan revenue row: %w", err)
				}
				result = append(result, row)
			}
			return result, rows.Err()
		})
}

// DashboardRevenue summarizes attribution counts and ledger financials per
// campaign, optionally broken out by contact source. Ordered ascending by
// attribution row count so the least active campaigns surface first
// (observed behavior of the dashboard, kept deliberately).
func (s *PostgresLedgerStore) DashboardRevenue(ctx context.Context, q DashboardQuery) ([]DashboardRow, error) {
	query := buildDashboardSQL(q)
	params := []any{q.DateFrom, q.DateTo}
	if q.Limit > 0 {
		params = append(params, q.Limit)
	}

	return cachedRows(ctx, s.cache, s.ttl, s.stats, s.logger, cache.NamespaceDashboardRevenue, query, params,
		func(ctx context.Context) ([]DashboardRow, error) {
			rows, err := s.pool.Query(ctx, query, params...)
			if err != nil {
				return nil, fmt.Errorf("failed to query dashboard revenue: %w", err)
			}
			defer rows.Close()

			result := []DashboardRow{}
			for rows.Next() {
				var row DashboardRow
				var dest []any
				if q.BySource {
					dest = []any{
						&row.CampaignID, &row.IsPublished, &row.CampaignName,
						&row.ContactSourceID, &row.SourceName,
						&row.Received, &row.Rejected, &row.Converted, &row.Scrubbed,
						&row.Cost, &row.Revenue,
					}
				} else {
					dest = []any{
						&row.CampaignID, &row.IsPublished, &row.CampaignName,
						&row.Received, &row.Rejected, &row.Converted, &row.Scrubbed,
						&row.Cost, &row.Revenue,
					}
				}
				if err := rows.Scan(dest...); err != nil {
					return nil, fmt.Errorf("failed to scan dashboard row: %w", err)
				}
				result = append(result, row)
			}
			return result, rows.Err()
		})
}

// buildDashboardSQL assembles the dashboard aggregation from static
// fragments. Cost and revenue come from per-campaign (per campaign × source
// when bySource) ledger subqueries left-joined against the attribution rows.
func buildDashboardSQL(q DashboardQuery) string {
	sel := `
		SELECT ss.campaign_id,
		       c.is_published,
		       c.name,`
	costJoin := "clc.campaign_id = ss.campaign_id"
	revJoin := "clr.campaign_id = ss.campaign_id"
	costSub := `
			SELECT lc.campaign_id, SUM(COALESCE(lc.cost, 0)) AS cost
			FROM contact_ledger lc
			GROUP BY lc.campaign_id`
	revSub := `
			SELECT lr.campaign_id, SUM(COALESCE(lr.revenue, 0)) AS revenue
			FROM contact_ledger lr
			GROUP BY lr.campaign_id`
	groupBy := "ss.campaign_id, c.is_published, c.name, clc.cost, clr.revenue"
	sourceJoin := ""

	if q.BySource {
		sel += `
		       ss.contactsource_id,
		       cs.name AS source,`
		sourceJoin = `
		JOIN contact_sources cs ON cs.id = ss.contactsource_id`
		costSub = `
			SELECT lc.campaign_id, sc.contactsource_id, SUM(COALESCE(lc.cost, 0)) AS cost
			FROM contact_ledger lc
			JOIN contact_source_stats sc
			  ON lc.campaign_id = sc.campaign_id AND lc.contact_id = sc.contact_id
			GROUP BY lc.campaign_id, sc.contactsource_id`
		revSub = `
			SELECT lr.campaign_id, sr.contactsource_id, SUM(COALESCE(lr.revenue, 0)) AS revenue
			FROM contact_ledger lr
			JOIN contact_source_stats sr
			  ON lr.campaign_id = sr.campaign_id AND lr.contact_id = sr.contact_id
			GROUP BY lr.campaign_id, sr.contactsource_id`
		costJoin += " AND clc.contactsource_id = ss.contactsource_id"
		revJoin += " AND clr.contactsource_id = ss.contactsource_id"
		groupBy = "ss.campaign_id, c.is_published, c.name, ss.contactsource_id, cs.name, clc.cost, clr.revenue"
	}

	query := sel + `
		       COUNT(ss.id) AS received,
		       SUM(CASE WHEN ss.type IN ('accepted', 'scrubbed') THEN 0 ELSE 1 END) AS rejected,
		       SUM(CASE WHEN ss.type = 'accepted' THEN 1 ELSE 0 END) AS converted,
		       SUM(CASE WHEN ss.type = 'scrubbed' THEN 1 ELSE 0 END) AS scrubbed,
		       COALESCE(clc.cost, 0)::float8 AS cost,
		       COALESCE(clr.revenue, 0)::float8 AS revenue
		FROM contact_source_stats ss
		JOIN campaigns c ON c.id = ss.campaign_id` + sourceJoin + `
		LEFT JOIN (` + costSub + `
		) clc ON ` + costJoin + `
		LEFT JOIN (` + revSub + `
		) clr ON ` + revJoin + `
		WHERE ss.date_added BETWEEN $1 AND $2
		GROUP BY ` + groupBy + `
		ORDER BY COUNT(ss.campaign_id) ASC`

	if q.Limit > 0 {
		query += "\n\t\tLIMIT $3"
	}
	return query
}
