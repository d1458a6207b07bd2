package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/radiusdt/contact-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeEntryStore struct {
	entries []*models.LedgerEntry
	err     error
}

func (s *fakeEntryStore) AddEntry(_ context.Context, entry *models.LedgerEntry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, entry)
	return nil
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestAddEntryPersistsAllFields(t *testing.T) {
	store := &fakeEntryStore{}
	writer := NewEntryWriter(store, nil, zap.NewNop())

	campaignID := int64(3)
	entry, err := writer.AddEntry(
		context.Background(),
		11,
		&campaignID,
		ExplicitActor{Bundle: "SourceBundle", Class: "ContactSource", ObjectID: 4},
		models.ActivityAccepted,
		decPtr("1.25"),
		decPtr("4.00"),
		"accepted from source 4",
	)
	require.NoError(t, err)
	require.Len(t, store.entries, 1)

	assert.Equal(t, int64(11), entry.ContactID)
	assert.Equal(t, int64(3), *entry.CampaignID)
	assert.Equal(t, "SourceBundle", *entry.BundleName)
	assert.Equal(t, "ContactSource", *entry.ClassName)
	assert.Equal(t, int64(4), *entry.ObjectID)
	assert.Equal(t, models.ActivityAccepted, entry.Activity)
	assert.True(t, entry.Cost.Equal(decimal.RequireFromString("1.25")))
	assert.True(t, entry.Revenue.Equal(decimal.RequireFromString("4.00")))
	assert.Equal(t, "accepted from source 4", entry.Memo)
	assert.WithinDuration(t, time.Now().UTC(), entry.DateAdded, 5*time.Second)
}

func TestAddEntryOptionalFieldsStayNull(t *testing.T) {
	store := &fakeEntryStore{}
	writer := NewEntryWriter(store, nil, zap.NewNop())

	entry, err := writer.AddEntry(context.Background(), 11, nil, nil, "", nil, nil, "")
	require.NoError(t, err)

	assert.Nil(t, entry.CampaignID)
	assert.Nil(t, entry.BundleName)
	assert.Nil(t, entry.ClassName)
	assert.Nil(t, entry.ObjectID)
	assert.Nil(t, entry.Cost)
	assert.Nil(t, entry.Revenue)
}

func TestAddEntryRequiresContact(t *testing.T) {
	writer := NewEntryWriter(&fakeEntryStore{}, nil, zap.NewNop())

	_, err := writer.AddEntry(context.Background(), 0, nil, nil, "", nil, nil, "")
	assert.ErrorIs(t, err, ErrMissingContact)
}

func TestAddEntryPropagatesStoreError(t *testing.T) {
	storeErr := errors.New("connection refused")
	writer := NewEntryWriter(&fakeEntryStore{err: storeErr}, nil, zap.NewNop())

	_, err := writer.AddEntry(context.Background(), 11, nil, nil, "", nil, nil, "")
	assert.ErrorIs(t, err, storeErr)
}

func TestAddEntryUsesRegistryForInference(t *testing.T) {
	store := &fakeEntryStore{}
	reg := NewTypeRegistry(`Host\EnhancerBundle\Entity\Enhancer`)
	writer := NewEntryWriter(store, reg, zap.NewNop())

	entry, err := writer.AddEntry(
		context.Background(),
		11,
		nil,
		InferredActor{Class: "Enhancer", ObjectID: 2},
		models.ActivityEnhanced,
		decPtr("0.02"),
		nil,
		"",
	)
	require.NoError(t, err)
	require.NotNil(t, entry.BundleName)
	assert.Equal(t, "EnhancerBundle", *entry.BundleName)
}

func TestEntryProfitDerivation(t *testing.T) {
	entry := &models.LedgerEntry{Cost: decPtr("10"), Revenue: decPtr("25")}
	assert.True(t, entry.Profit().Equal(decimal.RequireFromString("15")))

	nullEntry := &models.LedgerEntry{}
	assert.True(t, nullEntry.Profit().IsZero())

	refund := &models.LedgerEntry{Revenue: decPtr("-5")}
	assert.True(t, refund.Profit().Equal(decimal.RequireFromString("-5")))
}
