package models

import "time"

// Attribution stat types that the dashboard counts distinguish. Any row at
// all counts as "received"; anything outside accepted/scrubbed counts as
// rejected.
const (
	StatTypeAccepted = "accepted"
	StatTypeScrubbed = "scrubbed"
	StatTypeRejected = "rejected"
)

// AttributionStat links a contact to the campaign and contact source that
// produced it. Received/converted counts per campaign and per source are
// computed from these rows, never duplicated into the ledger.
type AttributionStat struct {
	ID              int64     `json:"id"`
	CampaignID      int64     `json:"campaign_id"`
	ContactSourceID int64     `json:"contactsource_id"`
	ContactID       int64     `json:"contact_id"`
	Type            string    `json:"type"`
	DateAdded       time.Time `json:"date_added"`
}
