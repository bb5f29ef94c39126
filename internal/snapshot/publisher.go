package snapshot

import (
	"context"
	"log/slog"

	"github.com/quoteforge/quoteforge/internal/ledger"
)

// Enqueuer schedules asynchronous remote persistence.
type Enqueuer interface {
	EnqueueStateSync(ctx context.Context) error
}

// Publisher reacts to applied ledger mutations: it writes the local snapshot
// synchronously and hands remote persistence to the job queue. The ledger
// never waits on the remote store.
type Publisher struct {
	ledger   *ledger.Ledger
	store    *Store
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewPublisher constructs a Publisher. enqueuer may be nil when no worker is
// deployed.
func NewPublisher(l *ledger.Ledger, store *Store, enqueuer Enqueuer, logger *slog.Logger) *Publisher {
	return &Publisher{ledger: l, store: store, enqueuer: enqueuer, logger: logger}
}

// StateChanged persists the current snapshot and schedules the remote sync.
// Persistence failures are logged, not surfaced: the in-memory ledger remains
// the source of truth.
func (p *Publisher) StateChanged(ctx context.Context) {
	data, err := p.ledger.Snapshot()
	if err != nil {
		p.logger.Error("encode snapshot", slog.Any("error", err))
		return
	}
	if err := p.store.Save(ctx, data); err != nil {
		p.logger.Error("save snapshot", slog.Any("error", err))
	}
	if p.enqueuer != nil {
		if err := p.enqueuer.EnqueueStateSync(ctx); err != nil {
			p.logger.Warn("enqueue state sync", slog.Any("error", err))
		}
	}
}
