package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/radiusdt/contact-ledger/internal/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ErrMissingContact is returned when an entry has no contact to belong to.
var ErrMissingContact = errors.New("ledger entry requires a contact")

// EntryStore is the append primitive the writer needs from the persistence
// layer. The store assigns the surrogate id.
type EntryStore interface {
	AddEntry(ctx context.Context, entry *models.LedgerEntry) error
}

// EntryWriter validates and persists ledger entries for inbound financial
// events.
type EntryWriter struct {
	store    EntryStore
	registry *TypeRegistry
	logger   *zap.Logger
}

// NewEntryWriter creates an entry writer. The registry may be nil, in which
// case bundle inference for two-element actors is skipped and the bundle
// stays null.
func NewEntryWriter(store EntryStore, registry *TypeRegistry, logger *zap.Logger) *EntryWriter {
	return &EntryWriter{
		store:    store,
		registry: registry,
		logger:   logger,
	}
}

// AddEntry constructs and persists one ledger entry dated now. Cost, revenue,
// campaign and actor are all optional; store failures propagate unmodified.
func (w *EntryWriter) AddEntry(
	ctx context.Context,
	contactID int64,
	campaignID *int64,
	actor Actor,
	activity string,
	cost, revenue *decimal.Decimal,
	memo string,
) (*models.LedgerEntry, error) {
	if contactID == 0 {
		return nil, ErrMissingContact
	}

	var resolved ResolvedActor
	if actor != nil {
		resolved = actor.Resolve(w.registry)
	}

	entry := &models.LedgerEntry{
		ContactID:  contactID,
		CampaignID: campaignID,
		DateAdded:  time.Now().UTC(),
		BundleName: resolved.BundleName,
		ClassName:  resolved.ClassName,
		ObjectID:   resolved.ObjectID,
		Activity:   activity,
		Cost:       cost,
		Revenue:    revenue,
		Memo:       memo,
	}

	if err := w.store.AddEntry(ctx, entry); err != nil {
		return nil, err
	}

	w.logger.Debug("ledger entry written",
		zap.Int64("contact_id", contactID),
		zap.String("activity", activity),
	)

	return entry, nil
}
