package jobs

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PurgeDeps carries what the session purge handler needs.
type PurgeDeps struct {
	Pool   *pgxpool.Pool
	Logger *slog.Logger
}

// HandleSessionsPurge removes session audit rows past their expiry. Runs on
// the cron schedule registered in cmd/worker.
func (d PurgeDeps) HandleSessionsPurge(ctx context.Context, t *asynq.Task) error {
	if d.Pool == nil {
		return nil
	}
	tag, err := d.Pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at < NOW()`)
	if err != nil {
		d.Logger.Error("purge sessions", slog.Any("error", err))
		return err
	}
	if tag.RowsAffected() > 0 {
		d.Logger.Info("purged sessions", slog.Int64("rows", tag.RowsAffected()))
	}
	return nil
}
