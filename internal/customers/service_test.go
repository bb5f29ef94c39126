package customers

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
)

type stubNotifier struct {
	calls int
}

func (s *stubNotifier) StateChanged(ctx context.Context) { s.calls++ }

func newTestService(t *testing.T) (*Service, *stubNotifier) {
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
	notifier := &stubNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(l, notifier, nil, logger), notifier
}

func strPtr(s string) *string { return &s }

func TestServiceCreateCustomer(t *testing.T) {
	svc, notifier := newTestService(t)

	customer, err := svc.Create(context.Background(), "user-1", createRequest{
		Name:    "Acme Corp",
		Email:   strPtr("billing@acme.test"),
		Company: strPtr("Acme"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", customer.Name)
	require.NotNil(t, customer.Email)
	assert.Equal(t, "billing@acme.test", *customer.Email)
	assert.Nil(t, customer.Phone)
	assert.Equal(t, 1, notifier.calls)
}

func TestServiceCreateRequiresName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), "user-1", createRequest{})
	require.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceUpdateMergesOptionalFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.Create(ctx, "user-1", createRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "user-1", customer.ID, ledger.CustomerPatch{
		Phone: strPtr("555-0100"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", updated.Name)
	require.NotNil(t, updated.Phone)
	assert.Equal(t, "555-0100", *updated.Phone)
}

func TestServiceCrossUserAccessIsNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.Create(ctx, "user-1", createRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, "user-2", customer.ID, ledger.CustomerPatch{Name: strPtr("Hijack")})
	require.ErrorIs(t, err, httpx.ErrNotFound)

	err = svc.Delete(ctx, "user-2", customer.ID)
	require.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceDelete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	customer, err := svc.Create(ctx, "user-1", createRequest{Name: "Acme Corp"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, "user-1", customer.ID))
	items, _ := svc.List("user-1", 1, 20)
	assert.Empty(t, items)
}
