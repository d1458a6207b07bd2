// Package reporting shapes ledger aggregates for the chart and table
// consumers: adaptive bucket selection, single-bucket padding, currency
// formatting and the fixed dashboard column order.
package reporting

import (
	"context"
	"time"

	"github.com/radiusdt/contact-ledger/internal/storage"
	"github.com/radiusdt/contact-ledger/internal/timebucket"
	"go.uber.org/zap"
)

// ReportStats receives report request observations.
type ReportStats interface {
	RecordReportRequest(report string)
}

// ReportingService assembles campaign and dashboard revenue reports.
type ReportingService struct {
	store  storage.LedgerStore
	logger *zap.Logger
	stats  ReportStats
}

// NewReportingService creates a reporting service. Stats may be nil.
func NewReportingService(store storage.LedgerStore, logger *zap.Logger, stats ReportStats) *ReportingService {
	return &ReportingService{
		store:  store,
		logger: logger,
		stats:  stats,
	}
}

// ChartDataset is one line of the revenue chart.
type ChartDataset struct {
	Label                     string   `json:"label"`
	Data                      []string `json:"data"`
	BackgroundColor           string   `json:"backgroundColor"`
	BorderColor               string   `json:"borderColor"`
	PointHoverBackgroundColor string   `json:"pointHoverBackgroundColor"`
	PointHoverBorderColor     string   `json:"pointHoverBorderColor"`
}

// ChartData is the line-chart payload: bucket labels plus cost, revenue and
// profit series.
type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// TableRow is one row of the campaign revenue datatable.
type TableRow struct {
	Label   string `json:"label"`
	Cost    string `json:"cost"`
	Revenue string `json:"revenue"`
	Profit  string `json:"profit"`
}

// WidgetParams parameterizes the dashboard revenue widget.
type WidgetParams struct {
	DateFrom time.Time
	DateTo   time.Time
	Limit    int
	BySource bool
}

// WidgetData carries positionally-ordered dashboard rows for direct table
// consumption.
type WidgetData struct {
	Rows [][]any `json:"rows"`
}

// CampaignRevenueChart returns the campaign revenue series shaped for the
// line chart. Cost is negated so it plots below the axis. A single-bucket
// result is padded to three points so the chart can render an axis.
func (s *ReportingService) CampaignRevenueChart(ctx context.Context, campaignID int64, dateFrom, dateTo time.Time, utcOffsetHours int) (ChartData, error) {
	if s.stats != nil {
		s.stats.RecordReportRequest("campaign_revenue_chart")
	}

	unit := timebucket.SelectUnit(dateFrom, dateTo)
	rows, err := s.store.CampaignRevenueSeries(ctx, storage.CampaignRevenueQuery{
		CampaignID:     campaignID,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		Unit:           unit,
		UTCOffsetHours: utcOffsetHours,
	})
	if err != nil {
		return ChartData{}, err
	}

	rows = s.padSingleBucket(rows, unit)

	chart := ChartData{
		Labels: make([]string, 0, len(rows)),
	}
	if len(rows) == 0 {
		chart.Datasets = []ChartDataset{}
		return chart, nil
	}

	costs := make([]string, 0, len(rows))
	revenues := make([]string, 0, len(rows))
	profits := make([]string, 0, len(rows))
	for _, row := range rows {
		chart.Labels = append(chart.Labels, row.Label)
		costs = append(costs, FormatChartDollar(-row.Cost))
		revenues = append(revenues, FormatChartDollar(row.Revenue))
		profits = append(profits, FormatChartDollar(row.Profit))
	}

	chart.Datasets = []ChartDataset{
		{
			Label:                     "Cost",
			Data:                      costs,
			BackgroundColor:           "rgba(204,51,51,0.1)",
			BorderColor:               "rgba(204,51,51,0.8)",
			PointHoverBackgroundColor: "rgba(204,51,51,0.75)",
			PointHoverBorderColor:     "rgba(204,51,51,1)",
		},
		{
			Label:                     "Revenue",
			Data:                      revenues,
			BackgroundColor:           "rgba(51,51,51,0.1)",
			BorderColor:               "rgba(51,51,51,0.8)",
			PointHoverBackgroundColor: "rgba(51,51,51,0.75)",
			PointHoverBorderColor:     "rgba(51,51,51,1)",
		},
		{
			Label:                     "Profit",
			Data:                      profits,
			BackgroundColor:           "rgba(51,204,51,0.1)",
			BorderColor:               "rgba(51,204,51,0.8)",
			PointHoverBackgroundColor: "rgba(51,204,51,0.75)",
			PointHoverBorderColor:     "rgba(51,204,51,1)",
		},
	}

	return chart, nil
}

// CampaignRevenueTable returns the campaign revenue series as
// table-formatted rows. No padding: the datatable shows exactly what was
// aggregated.
func (s *ReportingService) CampaignRevenueTable(ctx context.Context, campaignID int64, dateFrom, dateTo time.Time, utcOffsetHours int) ([]TableRow, error) {
	if s.stats != nil {
		s.stats.RecordReportRequest("campaign_revenue_table")
	}

	unit := timebucket.SelectUnit(dateFrom, dateTo)
	rows, err := s.store.CampaignRevenueSeries(ctx, storage.CampaignRevenueQuery{
		CampaignID:     campaignID,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		Unit:           unit,
		UTCOffsetHours: utcOffsetHours,
	})
	if err != nil {
		return nil, err
	}

	result := make([]TableRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, TableRow{
			Label:   row.Label,
			Cost:    FormatTableDollar(row.Cost),
			Revenue: FormatTableDollar(row.Revenue),
			Profit:  FormatTableDollar(row.Profit),
		})
	}
	return result, nil
}

// DashboardRevenueWidget returns dashboard rows in the fixed positional
// order the widget renders: is_published, campaign_id, name, [source_id,
// source,] received, scrubbed, rejected, converted, revenue, cost,
// gross_income, gross_margin, ecpm.
func (s *ReportingService) DashboardRevenueWidget(ctx context.Context, params WidgetParams) (WidgetData, error) {
	if s.stats != nil {
		s.stats.RecordReportRequest("dashboard_revenue")
	}

	rows, err := s.store.DashboardRevenue(ctx, storage.DashboardQuery{
		DateFrom: params.DateFrom,
		DateTo:   params.DateTo,
		Limit:    params.Limit,
		BySource: params.BySource,
	})
	if err != nil {
		return WidgetData{}, err
	}

	data := WidgetData{Rows: make([][]any, 0, len(rows))}
	for _, row := range rows {
		ratios := DeriveRatios(row.Revenue, row.Cost)

		out := []any{
			row.IsPublished,
			row.CampaignID,
			row.CampaignName,
		}
		if params.BySource {
			out = append(out, derefInt64(row.ContactSourceID), derefString(row.SourceName))
		}
		out = append(out,
			row.Received,
			row.Scrubbed,
			row.Rejected,
			row.Converted,
			FormatTableDollar(row.Revenue),
			FormatTableDollar(row.Cost),
			ratios.GrossIncome,
			ratios.GrossMargin,
			ratios.ECPM,
		)
		data.Rows = append(data.Rows, out)
	}
	return data, nil
}

// padSingleBucket synthesizes zero-valued neighbor buckets around a lone
// result so the chart always has at least three points. Zero and multi-row
// results pass through untouched.
func (s *ReportingService) padSingleBucket(rows []storage.RevenueRow, unit timebucket.Unit) []storage.RevenueRow {
	if len(rows) != 1 {
		return rows
	}

	at, err := unit.ParseLabel(rows[0].Label)
	if err != nil {
		s.logger.Warn("cannot parse bucket label for padding",
			zap.String("label", rows[0].Label),
			zap.String("unit", unit.String()),
			zap.Error(err),
		)
		return rows
	}

	return []storage.RevenueRow{
		{Label: unit.FormatLabel(unit.Shift(at, -1))},
		rows[0],
		{Label: unit.FormatLabel(unit.Shift(at, 1))},
	}
}

func derefInt64(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
