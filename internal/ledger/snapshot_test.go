package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Website Design", 2500)
	quoteID := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID, Quantity: 2}).Status)
	require.Equal(t, Applied, l.Apply(RecordPayment{
		QuoteID: quoteID, Amount: 1200, PaymentMethod: "card",
		CollectedAt: time.Date(2025, 3, 18, 15, 45, 0, 0, time.UTC),
	}).Status)

	data, err := l.Snapshot()
	require.NoError(t, err)

	restored := New(WithClock(func() time.Time {
		return time.Date(2025, 3, 19, 8, 0, 0, 0, time.UTC)
	}))
	require.NoError(t, restored.Restore(data))

	// Entities and derived values survive.
	original, ok := l.QuoteByID(quoteID)
	require.True(t, ok)
	loaded, ok := restored.QuoteByID(quoteID)
	require.True(t, ok)
	assert.Equal(t, original.QuoteNumber, loaded.QuoteNumber)
	assert.Equal(t, original.Subtotal, loaded.Subtotal)
	assert.Equal(t, original.TotalPaid, loaded.TotalPaid)
	assert.Equal(t, original.Items, loaded.Items)

	// Timestamps hydrate as time values, not strings.
	assert.True(t, loaded.CreatedAt.Equal(original.CreatedAt))
	collects := restored.CollectsForQuote(quoteID)
	require.Len(t, collects, 1)
	assert.True(t, collects[0].CollectedAt.Equal(time.Date(2025, 3, 18, 15, 45, 0, 0, time.UTC)))

	// The quote sequence counter persists so numbering cannot collide.
	next := restored.Apply(CreateQuote{OwnerID: "user-1"})
	require.Equal(t, Applied, next.Status)
	q, _ := restored.QuoteByID(next.ID)
	assert.Equal(t, "Q-2025-002", q.QuoteNumber)

	// Full document equality after a second round trip.
	again, err := restored.Snapshot()
	require.NoError(t, err)
	reloaded := New()
	require.NoError(t, reloaded.Restore(again))
	final, err := reloaded.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(again), string(final))
}

func TestImport_DoesNotAliasCallerMemory(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Website Design", 2500)
	quoteID := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID}).Status)

	exp := l.Export()

	restored := New(WithClock(func() time.Time {
		return time.Date(2025, 3, 19, 8, 0, 0, 0, time.UTC)
	}))
	restored.Import(exp)

	// Mutating the export after Import must not reach through to the
	// ledger's state.
	exp.Quotes[0].Items[0].TotalPrice = -999
	exp.QuoteSeq["user-1"] = 42

	q, ok := restored.QuoteByID(quoteID)
	require.True(t, ok)
	assert.Equal(t, 2500.0, q.Items[0].TotalPrice)

	next := restored.Apply(CreateQuote{OwnerID: "user-1"})
	require.Equal(t, Applied, next.Status)
	nq, _ := restored.QuoteByID(next.ID)
	assert.Equal(t, "Q-2025-002", nq.QuoteNumber, "sequence counter is a private copy")
}

func TestRestore_RejectsUnknownVersion(t *testing.T) {
	l := New()
	err := l.Restore([]byte(`{"version":99,"state":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported snapshot version")
}

func TestRestore_RejectsMalformedDocument(t *testing.T) {
	l := New()
	require.Error(t, l.Restore([]byte("not-json")))
}
