package snapshot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/quoteforge/quoteforge/internal/ledger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "quoteforge:state")
}

func TestStoreLoadMissingKey(t *testing.T) {
	store := newTestStore(t)

	data, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestStoreSaveThenLoad(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte(`{"version":1}`)))

	data, err := store.Load(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"version":1}`, string(data))
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, []byte(`{"n":1}`)))
	require.NoError(t, store.Save(ctx, []byte(`{"n":2}`)))

	data, err := store.Load(ctx)
	require.NoError(t, err)
	require.JSONEq(t, `{"n":2}`, string(data))
}

type recordingEnqueuer struct {
	calls int
}

func (r *recordingEnqueuer) EnqueueStateSync(ctx context.Context) error {
	r.calls++
	return nil
}

func TestPublisherPersistsAndEnqueues(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	clock := func() time.Time { return time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC) }
	l := ledger.New(ledger.WithClock(clock))
	outcome := l.Apply(ledger.RegisterUser{Name: "Dana", Email: "dana@example.com"})
	require.Equal(t, ledger.Applied, outcome.Status)

	enq := &recordingEnqueuer{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := NewPublisher(l, store, enq, logger)

	pub.StateChanged(ctx)
	require.Equal(t, 1, enq.calls)

	data, err := store.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, data)

	restored := ledger.New()
	require.NoError(t, restored.Restore(data))
	user, ok := restored.UserByEmail("dana@example.com")
	require.True(t, ok)
	require.Equal(t, "Dana", user.Name)
	require.True(t, user.CreatedAt.Equal(clock()))
}

func TestPublisherWithoutEnqueuer(t *testing.T) {
	store := newTestStore(t)

	l := ledger.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	pub := NewPublisher(l, store, nil, logger)

	pub.StateChanged(context.Background())

	data, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, data)
}
