package ledger

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	var seq int
	l := New(
		WithClock(func() time.Time {
			return time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)
		}),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%03d", seq)
		}),
	)
	l.SeedUsers([]User{
		{ID: "user-1", Name: "John Smith", Email: "john@example.com", Role: RoleUser, IsActive: true},
		{ID: "user-2", Name: "Sarah Johnson", Email: "sarah@example.com", Role: RoleUser, IsActive: true},
		{ID: "admin-1", Name: "Admin", Email: "admin@example.com", Role: RoleSuperadmin, IsActive: true},
	})
	return l
}

func addProduct(t *testing.T, l *Ledger, name string, price float64) string {
	t.Helper()
	out := l.Apply(AddProduct{OwnerID: "user-1", Name: name, Description: name + " description", BasePrice: price})
	require.Equal(t, Applied, out.Status)
	return out.ID
}

func createQuote(t *testing.T, l *Ledger) string {
	t.Helper()
	out := l.Apply(CreateQuote{OwnerID: "user-1"})
	require.Equal(t, Applied, out.Status)
	return out.ID
}

// ============================================================================
// USER COMMANDS
// ============================================================================

func TestSwitchUser(t *testing.T) {
	l := newTestLedger(t)

	out := l.Apply(SwitchUser{UserID: "user-2"})
	require.Equal(t, Applied, out.Status)

	active, ok := l.ActiveUser()
	require.True(t, ok)
	assert.Equal(t, "user-2", active.ID)
}

func TestSwitchUser_UnknownID(t *testing.T) {
	l := newTestLedger(t)

	out := l.Apply(SwitchUser{UserID: "nobody"})
	assert.Equal(t, NotFound, out.Status)

	active, ok := l.ActiveUser()
	require.True(t, ok)
	assert.Equal(t, "user-1", active.ID, "active identity unchanged")
}

func TestToggleUserAccess(t *testing.T) {
	l := newTestLedger(t)

	require.Equal(t, Applied, l.Apply(ToggleUserAccess{UserID: "user-2"}).Status)
	u, ok := l.UserByID("user-2")
	require.True(t, ok)
	assert.False(t, u.IsActive)

	require.Equal(t, Applied, l.Apply(ToggleUserAccess{UserID: "user-2"}).Status)
	u, _ = l.UserByID("user-2")
	assert.True(t, u.IsActive)
}

func TestRemoveUser(t *testing.T) {
	l := newTestLedger(t)

	out := l.Apply(RemoveUser{UserID: "user-2"})
	require.Equal(t, Applied, out.Status)

	_, ok := l.UserByID("user-2")
	assert.False(t, ok)
	assert.Equal(t, NotFound, l.Apply(RemoveUser{UserID: "user-2"}).Status)
}

func TestRemoveUser_ActiveIdentityFallsBack(t *testing.T) {
	l := newTestLedger(t)

	require.Equal(t, Applied, l.Apply(RemoveUser{UserID: "user-1"}).Status)

	active, ok := l.ActiveUser()
	require.True(t, ok)
	assert.Equal(t, "user-2", active.ID, "active identity falls back to the first remaining user")
}

// ============================================================================
// PRODUCT COMMANDS
// ============================================================================

func TestAddProduct_Validation(t *testing.T) {
	l := newTestLedger(t)

	out := l.Apply(AddProduct{OwnerID: "user-1", Name: "", BasePrice: 100})
	assert.Equal(t, Rejected, out.Status)

	out = l.Apply(AddProduct{OwnerID: "user-1", Name: "Thing", BasePrice: -1})
	assert.Equal(t, Rejected, out.Status)

	out = l.Apply(AddProduct{OwnerID: "user-1", Name: "Thing", BasePrice: 0})
	assert.Equal(t, Applied, out.Status, "zero price is allowed")
}

func TestUpdateProduct_MergesAndBumpsTimestamp(t *testing.T) {
	var tick int
	l := New(
		WithClock(func() time.Time {
			tick++
			return time.Date(2025, 3, 14, 9, 0, tick, 0, time.UTC)
		}),
	)
	l.SeedUsers([]User{{ID: "user-1", IsActive: true}})

	out := l.Apply(AddProduct{OwnerID: "user-1", Name: "Website Design", BasePrice: 2500})
	require.Equal(t, Applied, out.Status)
	before, _ := l.ProductByID(out.ID)

	newPrice := 2800.0
	res := l.Apply(UpdateProduct{ID: out.ID, Patch: ProductPatch{BasePrice: &newPrice}})
	require.Equal(t, Applied, res.Status)

	after, ok := l.ProductByID(out.ID)
	require.True(t, ok)
	assert.Equal(t, 2800.0, after.BasePrice)
	assert.Equal(t, "Website Design", after.Name, "untouched fields survive")
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestUpdateProduct_UnknownID_LeavesStateUnchanged(t *testing.T) {
	l := newTestLedger(t)
	addProduct(t, l, "Website Design", 2500)

	before, err := l.Snapshot()
	require.NoError(t, err)

	name := "Renamed"
	out := l.Apply(UpdateProduct{ID: "missing", Patch: ProductPatch{Name: &name}})
	assert.Equal(t, NotFound, out.Status)

	after, err := l.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestUpdateProduct_RejectedPatchLeavesStateUnchanged(t *testing.T) {
	l := newTestLedger(t)
	id := addProduct(t, l, "Website Design", 2500)

	before, err := l.Snapshot()
	require.NoError(t, err)

	// A valid rename paired with an invalid price must not half-apply.
	name := "Renamed"
	badPrice := -5.0
	out := l.Apply(UpdateProduct{ID: id, Patch: ProductPatch{Name: &name, BasePrice: &badPrice}})
	assert.Equal(t, Rejected, out.Status)

	p, ok := l.ProductByID(id)
	require.True(t, ok)
	assert.Equal(t, "Website Design", p.Name)
	assert.Equal(t, 2500.0, p.BasePrice)

	after, err := l.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

// ============================================================================
// QUOTE LIFECYCLE
// ============================================================================

func TestCreateQuote_Numbering(t *testing.T) {
	l := newTestLedger(t)

	seen := make(map[string]bool)
	for i := 1; i <= 5; i++ {
		id := createQuote(t, l)
		q, ok := l.QuoteByID(id)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("Q-2025-%03d", i), q.QuoteNumber)
		assert.False(t, seen[q.QuoteNumber], "quote numbers must be unique")
		seen[q.QuoteNumber] = true
		assert.Equal(t, StatusDraft, q.Status)
		assert.Zero(t, q.Subtotal)
		assert.Zero(t, q.Total)
		assert.Zero(t, q.TotalPaid)
	}
}

func TestCreateQuote_SequenceSurvivesDeletion(t *testing.T) {
	l := newTestLedger(t)

	first := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(DeleteQuote{ID: first}).Status)

	second := createQuote(t, l)
	q, _ := l.QuoteByID(second)
	assert.Equal(t, "Q-2025-002", q.QuoteNumber, "counter is persistent, not a live count")
}

func TestUpdateQuote_FreeStatusTransitions(t *testing.T) {
	l := newTestLedger(t)
	id := createQuote(t, l)

	for _, status := range []QuoteStatus{StatusCompleted, StatusDraft, StatusInProgress, StatusPending} {
		s := status
		out := l.Apply(UpdateQuote{ID: id, Patch: QuotePatch{Status: &s}})
		require.Equal(t, Applied, out.Status)
		q, _ := l.QuoteByID(id)
		assert.Equal(t, status, q.Status)
	}
}

// ============================================================================
// QUOTE ITEMS AND DERIVED TOTALS
// ============================================================================

func TestAddQuoteItem_SnapshotsProduct(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Website Design", 2500)
	quoteID := createQuote(t, l)

	out := l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID})
	require.Equal(t, Applied, out.Status)

	q, _ := l.QuoteByID(quoteID)
	require.Len(t, q.Items, 1)
	item := q.Items[0]
	assert.Equal(t, "Website Design", item.ProductName)
	assert.Equal(t, 1, item.Quantity, "quantity defaults to 1")
	assert.Equal(t, 2500.0, item.UnitPrice)
	assert.Equal(t, 2500.0, item.TotalPrice)
	assert.Equal(t, 2500.0, q.Subtotal)
	assert.Equal(t, 2500.0, q.Total)
}

func TestAddQuoteItem_CustomPrice(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "SEO Optimization", 800)
	quoteID := createQuote(t, l)

	custom := 650.0
	out := l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID, Quantity: 2, CustomPrice: &custom})
	require.Equal(t, Applied, out.Status)

	q, _ := l.QuoteByID(quoteID)
	assert.Equal(t, 650.0, q.Items[0].UnitPrice)
	assert.Equal(t, 1300.0, q.Items[0].TotalPrice)
}

func TestAddQuoteItem_UnknownProduct_LeavesStateUnchanged(t *testing.T) {
	l := newTestLedger(t)
	quoteID := createQuote(t, l)

	before, err := l.Snapshot()
	require.NoError(t, err)

	out := l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: "missing"})
	assert.Equal(t, NotFound, out.Status)

	after, err := l.Snapshot()
	require.NoError(t, err)
	assert.JSONEq(t, string(before), string(after))
}

func TestUpdateQuoteItem_RecomputesFromEffectiveValues(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Consulting", 100)
	quoteID := createQuote(t, l)

	out := l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID, Quantity: 2})
	require.Equal(t, Applied, out.Status)
	itemID := out.ID

	q, _ := l.QuoteByID(quoteID)
	require.Equal(t, 200.0, q.Items[0].TotalPrice)

	// Only quantity changes; the stored unit price participates.
	qty := 3
	res := l.Apply(UpdateQuoteItem{QuoteID: quoteID, ItemID: itemID, Patch: ItemPatch{Quantity: &qty}})
	require.Equal(t, Applied, res.Status)

	q, _ = l.QuoteByID(quoteID)
	assert.Equal(t, 300.0, q.Items[0].TotalPrice)
	assert.Equal(t, 300.0, q.Subtotal)
	assert.Equal(t, 300.0, q.Total)

	// Only unit price changes; the stored quantity participates.
	price := 90.0
	res = l.Apply(UpdateQuoteItem{QuoteID: quoteID, ItemID: itemID, Patch: ItemPatch{UnitPrice: &price}})
	require.Equal(t, Applied, res.Status)

	q, _ = l.QuoteByID(quoteID)
	assert.Equal(t, 270.0, q.Items[0].TotalPrice)
	assert.Equal(t, 270.0, q.Subtotal)
}

func TestRemoveQuoteItem_RecomputesTotals(t *testing.T) {
	l := newTestLedger(t)
	a := addProduct(t, l, "Design", 2500)
	b := addProduct(t, l, "SEO", 800)
	quoteID := createQuote(t, l)

	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: a}).Status)
	out := l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: b})
	require.Equal(t, Applied, out.Status)

	q, _ := l.QuoteByID(quoteID)
	require.Equal(t, 3300.0, q.Total)

	require.Equal(t, Applied, l.Apply(RemoveQuoteItem{QuoteID: quoteID, ItemID: out.ID}).Status)
	q, _ = l.QuoteByID(quoteID)
	assert.Len(t, q.Items, 1)
	assert.Equal(t, 2500.0, q.Subtotal)
	assert.Equal(t, 2500.0, q.Total)
}

func TestItemTotalInvariantHolds(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Widget", 19.99)
	quoteID := createQuote(t, l)

	out := l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID, Quantity: 4})
	require.Equal(t, Applied, out.Status)

	checkInvariants := func() {
		q, ok := l.QuoteByID(quoteID)
		require.True(t, ok)
		var subtotal float64
		for _, item := range q.Items {
			assert.Equal(t, float64(item.Quantity)*item.UnitPrice, item.TotalPrice)
			subtotal += item.TotalPrice
		}
		assert.Equal(t, subtotal, q.Subtotal)
		assert.Equal(t, q.Subtotal, q.Total)
	}
	checkInvariants()

	qty := 7
	require.Equal(t, Applied, l.Apply(UpdateQuoteItem{QuoteID: quoteID, ItemID: out.ID, Patch: ItemPatch{Quantity: &qty}}).Status)
	checkInvariants()

	price := 25.0
	require.Equal(t, Applied, l.Apply(UpdateQuoteItem{QuoteID: quoteID, ItemID: out.ID, Patch: ItemPatch{UnitPrice: &price}}).Status)
	checkInvariants()
}

// ============================================================================
// DELETION AND DENORMALIZED SNAPSHOTS
// ============================================================================

func TestDeleteProduct_DoesNotTouchQuoteItems(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Website Design", 2500)
	quoteID := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID}).Status)

	require.Equal(t, Applied, l.Apply(DeleteProduct{ID: productID}).Status)
	_, ok := l.ProductByID(productID)
	assert.False(t, ok)

	q, ok := l.QuoteByID(quoteID)
	require.True(t, ok)
	require.Len(t, q.Items, 1)
	assert.Equal(t, "Website Design", q.Items[0].ProductName)
	assert.Equal(t, 2500.0, q.Items[0].UnitPrice)
	assert.Equal(t, 2500.0, q.Total, "quote remains fully computable")
}

func TestDeleteCustomer_QuoteKeepsDenormalizedName(t *testing.T) {
	l := newTestLedger(t)
	out := l.Apply(AddCustomer{OwnerID: "user-1", Name: "Tech Startup Inc"})
	require.Equal(t, Applied, out.Status)
	customerID := out.ID

	quoteID := createQuote(t, l)
	name := "Tech Startup Inc"
	require.Equal(t, Applied, l.Apply(UpdateQuote{
		ID:    quoteID,
		Patch: QuotePatch{CustomerID: &customerID, CustomerName: &name},
	}).Status)

	require.Equal(t, Applied, l.Apply(DeleteCustomer{ID: customerID}).Status)

	q, _ := l.QuoteByID(quoteID)
	require.NotNil(t, q.CustomerName)
	assert.Equal(t, "Tech Startup Inc", *q.CustomerName)
}

func TestDeleteQuote_OrphansCollects(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Design", 1000)
	quoteID := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID}).Status)
	require.Equal(t, Applied, l.Apply(RecordPayment{
		QuoteID: quoteID, Amount: 400, PaymentMethod: "cash",
		CollectedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}).Status)

	require.Equal(t, Applied, l.Apply(DeleteQuote{ID: quoteID}).Status)

	collects := l.CollectsForQuote(quoteID)
	assert.Len(t, collects, 1, "collects are not cascade-deleted")
}

// ============================================================================
// PAYMENTS
// ============================================================================

func TestRecordPayment_Bounds(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Website Design", 2500)
	quoteID := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID}).Status)

	collected := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		cmd    RecordPayment
		status Status
	}{
		{"zero amount", RecordPayment{QuoteID: quoteID, Amount: 0, PaymentMethod: "cash", CollectedAt: collected}, Rejected},
		{"negative amount", RecordPayment{QuoteID: quoteID, Amount: -50, PaymentMethod: "cash", CollectedAt: collected}, Rejected},
		{"missing method", RecordPayment{QuoteID: quoteID, Amount: 100, CollectedAt: collected}, Rejected},
		{"exceeds total", RecordPayment{QuoteID: quoteID, Amount: 2600, PaymentMethod: "cash", CollectedAt: collected}, Rejected},
		{"unknown quote", RecordPayment{QuoteID: "missing", Amount: 100, PaymentMethod: "cash", CollectedAt: collected}, NotFound},
		{"valid", RecordPayment{QuoteID: quoteID, Amount: 2500, PaymentMethod: "cash", CollectedAt: collected}, Applied},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := l.Apply(tc.cmd)
			assert.Equal(t, tc.status, out.Status)
		})
	}

	q, _ := l.QuoteByID(quoteID)
	assert.Equal(t, 2500.0, q.TotalPaid)
	assert.GreaterOrEqual(t, q.TotalPaid, 0.0)
	assert.LessOrEqual(t, q.TotalPaid, q.Total)
}

func TestScenario_BuildAndPayQuote(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Website Design", 2500)
	quoteID := createQuote(t, l)

	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID, Quantity: 1}).Status)

	q, _ := l.QuoteByID(quoteID)
	require.Equal(t, 2500.0, q.Subtotal)
	require.Equal(t, 2500.0, q.Total)

	collected := time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC)
	out := l.Apply(RecordPayment{QuoteID: quoteID, Amount: 1000, PaymentMethod: "transfer", CollectedAt: collected})
	require.Equal(t, Applied, out.Status)

	q, _ = l.QuoteByID(quoteID)
	assert.Equal(t, 1000.0, q.TotalPaid)
	assert.Equal(t, 1500.0, q.Total-q.TotalPaid)

	out = l.Apply(RecordPayment{QuoteID: quoteID, Amount: 1600, PaymentMethod: "transfer", CollectedAt: collected})
	assert.Equal(t, Rejected, out.Status)
	assert.Equal(t, "payment exceeds remaining balance", out.Reason)

	q, _ = l.QuoteByID(quoteID)
	assert.Equal(t, 1000.0, q.TotalPaid, "rejected payment leaves totalPaid unchanged")
}

// ============================================================================
// USAGE AGGREGATES
// ============================================================================

func TestUsageByUser(t *testing.T) {
	l := newTestLedger(t)
	productID := addProduct(t, l, "Design", 500)
	require.Equal(t, Applied, l.Apply(AddCustomer{OwnerID: "user-1", Name: "Acme"}).Status)
	quoteID := createQuote(t, l)
	require.Equal(t, Applied, l.Apply(AddQuoteItem{QuoteID: quoteID, ProductID: productID}).Status)
	require.Equal(t, Applied, l.Apply(RecordPayment{
		QuoteID: quoteID, Amount: 200, PaymentMethod: "cash",
		CollectedAt: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
	}).Status)

	usage := l.UsageByUser()
	u := usage["user-1"]
	assert.Equal(t, 1, u.Quotes)
	assert.Equal(t, 1, u.Products)
	assert.Equal(t, 1, u.Customers)
	assert.Equal(t, 200.0, u.Collected)
}
