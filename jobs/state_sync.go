package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/snapshot"
	"github.com/quoteforge/quoteforge/internal/store"
)

// SyncDeps carries what the state sync handler needs: the local snapshot
// store to read from and the remote store to write to.
type SyncDeps struct {
	Snapshots *snapshot.Store
	Store     *store.Store
	Logger    *slog.Logger
}

// HandleStateSync mirrors the latest local snapshot to postgres. A missing
// snapshot is not an error; there is simply nothing to sync yet.
func (d SyncDeps) HandleStateSync(ctx context.Context, t *asynq.Task) error {
	data, err := d.Snapshots.Load(ctx)
	if err != nil {
		d.Logger.Error("load snapshot for sync", slog.Any("error", err))
		return err
	}
	if data == nil {
		return nil
	}

	l := ledger.New()
	if err := l.Restore(data); err != nil {
		d.Logger.Error("decode snapshot for sync", slog.Any("error", err))
		return asynq.SkipRetry
	}

	if err := d.Store.SaveState(ctx, l.Export()); err != nil {
		d.Logger.Error("mirror state", slog.Any("error", err))
		return err
	}
	d.Logger.Info("state mirrored", slog.String("job", TaskStateSync))
	return nil
}
