package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Canonical activity labels. The column is a free string, these are the
// values the host platform is known to send.
const (
	ActivityReceived  = "received"
	ActivityConverted = "converted"
	ActivityAccepted  = "accepted"
	ActivityRejected  = "rejected"
	ActivityScrubbed  = "scrubbed"
	ActivityEnhanced  = "enhanced"
)

// LedgerEntry is one recorded financial event tied to a contact. Entries are
// append-only: written once, never updated or deleted.
type LedgerEntry struct {
	ID         int64            `json:"id"`
	ContactID  int64            `json:"contact_id"`
	CampaignID *int64           `json:"campaign_id,omitempty"`
	DateAdded  time.Time        `json:"date_added"`
	BundleName *string          `json:"bundle_name,omitempty"`
	ClassName  *string          `json:"class_name,omitempty"`
	ObjectID   *int64           `json:"object_id,omitempty"`
	Activity   string           `json:"activity,omitempty"`
	Cost       *decimal.Decimal `json:"cost,omitempty"`
	Revenue    *decimal.Decimal `json:"revenue,omitempty"`
	Memo       string           `json:"memo,omitempty"`
}

// CostOrZero returns the cost, treating null as zero.
func (e *LedgerEntry) CostOrZero() decimal.Decimal {
	if e.Cost == nil {
		return decimal.Zero
	}
	return *e.Cost
}

// RevenueOrZero returns the revenue, treating null as zero.
func (e *LedgerEntry) RevenueOrZero() decimal.Decimal {
	if e.Revenue == nil {
		return decimal.Zero
	}
	return *e.Revenue
}

// Profit is always derived, never stored.
func (e *LedgerEntry) Profit() decimal.Decimal {
	return e.RevenueOrZero().Sub(e.CostOrZero())
}
