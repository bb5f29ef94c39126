package quotes

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/platform/httpx"
	"github.com/quoteforge/quoteforge/internal/render"
)

type stubNotifier struct {
	calls int
}

func (s *stubNotifier) StateChanged(ctx context.Context) { s.calls++ }

type fixture struct {
	svc       *Service
	ledger    *ledger.Ledger
	notifier  *stubNotifier
	productID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	var n int
	l := ledger.New(
		ledger.WithClock(func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }),
		ledger.WithIDGenerator(func() string { n++; return fmt.Sprintf("id-%03d", n) }),
	)
	l.SeedUsers([]ledger.User{
		{ID: "user-1", Name: "Alice", Email: "alice@example.com", Role: ledger.RoleUser, IsActive: true},
		{ID: "user-2", Name: "Bob", Email: "bob@example.com", Role: ledger.RoleUser, IsActive: true},
	})
	outcome := l.Apply(ledger.AddProduct{OwnerID: "user-1", Name: "Consulting", Description: "Hourly rate", BasePrice: 250})
	require.Equal(t, ledger.Applied, outcome.Status)

	notifier := &stubNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(l, render.New(), notifier, nil, logger)
	return &fixture{svc: svc, ledger: l, notifier: notifier, productID: outcome.ID}
}

func strPtr(s string) *string { return &s }

func TestServiceCreateAssignsSequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "Q-2025-001", first.QuoteNumber)
	assert.Equal(t, "Q-2025-002", second.QuoteNumber)
	assert.Equal(t, ledger.StatusDraft, first.Status)
}

func TestServiceUpdateDenormalizesCustomerName(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome := f.ledger.Apply(ledger.AddCustomer{OwnerID: "user-1", Name: "Acme Corp"})
	require.Equal(t, ledger.Applied, outcome.Status)

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, "user-1", quote.ID, updateRequest{CustomerID: &outcome.ID})
	require.NoError(t, err)
	require.NotNil(t, updated.CustomerName)
	assert.Equal(t, "Acme Corp", *updated.CustomerName)
}

func TestServiceUpdateRejectsForeignCustomer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome := f.ledger.Apply(ledger.AddCustomer{OwnerID: "user-2", Name: "Not Yours"})
	require.Equal(t, ledger.Applied, outcome.Status)

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, "user-1", quote.ID, updateRequest{CustomerID: &outcome.ID})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceAddItemSnapshotsProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	quote, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: f.productID, Quantity: 10})
	require.NoError(t, err)
	require.Len(t, quote.Items, 1)
	assert.Equal(t, "Consulting", quote.Items[0].ProductName)
	assert.Equal(t, 2500.0, quote.Items[0].TotalPrice)
	assert.Equal(t, 2500.0, quote.Total)
}

func TestServiceAddItemCustomPriceOverridesBase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	price := 200.0
	quote, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: f.productID, Quantity: 2, CustomPrice: &price})
	require.NoError(t, err)
	assert.Equal(t, 200.0, quote.Items[0].UnitPrice)
	assert.Equal(t, 400.0, quote.Total)
}

func TestServiceAddItemForeignProductIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outcome := f.ledger.Apply(ledger.AddProduct{OwnerID: "user-2", Name: "Other", BasePrice: 5})
	require.Equal(t, ledger.Applied, outcome.Status)

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: outcome.ID, Quantity: 1})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceUpdateItemRecomputesTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)
	quote, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: f.productID, Quantity: 2})
	require.NoError(t, err)
	itemID := quote.Items[0].ID

	qty := 3
	quote, err = f.svc.UpdateItem(ctx, "user-1", quote.ID, itemID, ledger.ItemPatch{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 750.0, quote.Items[0].TotalPrice)
	assert.Equal(t, 750.0, quote.Total)
}

func TestServiceRecordPaymentEnforcesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)
	quote, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: f.productID, Quantity: 10})
	require.NoError(t, err)

	collect, err := f.svc.RecordPayment(ctx, "user-1", quote.ID, paymentRequest{Amount: 1000, PaymentMethod: "bank_transfer"})
	require.NoError(t, err)
	assert.Equal(t, 1000.0, collect.Amount)

	_, err = f.svc.RecordPayment(ctx, "user-1", quote.ID, paymentRequest{Amount: 1600, PaymentMethod: "cash"})
	require.ErrorIs(t, err, httpx.ErrValidation)
	assert.Contains(t, err.Error(), "exceeds remaining balance")

	refreshed, err := f.svc.Get("user-1", quote.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, refreshed.TotalPaid)
}

func TestServiceHistorySurvivesQuoteDeletion(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: f.productID, Quantity: 10})
	require.NoError(t, err)
	_, err = f.svc.RecordPayment(ctx, "user-1", quote.ID, paymentRequest{Amount: 500, PaymentMethod: "cash"})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, "user-1", quote.ID))

	history := f.svc.History("user-1")
	require.Len(t, history, 1)
	assert.Equal(t, quote.ID, history[0].QuoteID)
}

func TestServicePaymentsRequireOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)

	_, err = f.svc.Payments("user-2", quote.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
	_, err = f.svc.RecordPayment(ctx, "user-2", quote.ID, paymentRequest{Amount: 1, PaymentMethod: "cash"})
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceRenderPDF(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	quote, err := f.svc.Create(ctx, "user-1")
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "user-1", quote.ID, addItemRequest{ProductID: f.productID, Quantity: 10})
	require.NoError(t, err)
	_, err = f.svc.Update(ctx, "user-1", quote.ID, updateRequest{Notes: strPtr("Net 30")})
	require.NoError(t, err)

	data, filename, err := f.svc.RenderPDF("user-1", quote.ID)
	require.NoError(t, err)
	assert.Equal(t, "quote-Q-2025-001.pdf", filename)
	assert.True(t, len(data) > 0)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestServiceRenderPDFCrossUserIsNotFound(t *testing.T) {
	f := newFixture(t)

	quote, err := f.svc.Create(context.Background(), "user-1")
	require.NoError(t, err)

	_, _, err = f.svc.RenderPDF("user-2", quote.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}
