// Package admin exposes the SUPERADMIN surface: aggregate usage per user and
// the access toggle.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/observability"
	"github.com/quoteforge/quoteforge/internal/platform/httpx"
)

// Notifier is told after every applied mutation so state can be persisted.
type Notifier interface {
	StateChanged(ctx context.Context)
}

// AggregateSource answers remote-store usage queries. The ledger remains the
// live source of truth; the remote numbers exist to audit sync drift.
type AggregateSource interface {
	UsageAggregates(ctx context.Context) (map[string]ledger.Usage, error)
}

// Service wraps the admin rules around the ledger.
type Service struct {
	ledger     *ledger.Ledger
	aggregates AggregateSource
	notifier   Notifier
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewService constructs a Service. aggregates, notifier and metrics may be
// nil.
func NewService(l *ledger.Ledger, aggregates AggregateSource, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{ledger: l, aggregates: aggregates, notifier: notifier, metrics: metrics, logger: logger}
}

// UsageRow joins a roster user with their activity counters.
type UsageRow struct {
	User  ledger.User  `json:"user"`
	Usage ledger.Usage `json:"usage"`
}

// Usage reports per-user activity from the live ledger, ordered by user name
// for stable output.
func (s *Service) Usage() []UsageRow {
	users := s.ledger.Users()
	usage := s.ledger.UsageByUser()

	rows := make([]UsageRow, 0, len(users))
	for _, u := range users {
		row := UsageRow{User: u, Usage: usage[u.ID]}
		row.Usage.UserID = u.ID
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].User.Name < rows[j].User.Name })
	return rows
}

// RemoteUsage reports per-user activity as recorded by the remote store.
func (s *Service) RemoteUsage(ctx context.Context) (map[string]ledger.Usage, error) {
	if s.aggregates == nil {
		return nil, fmt.Errorf("%w: remote aggregates not configured", httpx.ErrNotFound)
	}
	usage, err := s.aggregates.UsageAggregates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch usage aggregates: %w", err)
	}
	return usage, nil
}

// ToggleAccess flips the IsActive flag on a user and returns the new value.
func (s *Service) ToggleAccess(ctx context.Context, userID string) (ledger.User, error) {
	outcome := s.ledger.Apply(ledger.ToggleUserAccess{UserID: userID})
	s.metrics.ObserveCommand("toggle_user_access", outcome.Status.String())
	if outcome.Status != ledger.Applied {
		return ledger.User{}, httpx.ErrNotFound
	}
	if s.notifier != nil {
		s.notifier.StateChanged(ctx)
	}
	user, _ := s.ledger.UserByID(userID)
	s.logger.Info("user access toggled",
		slog.String("user_id", userID),
		slog.Bool("is_active", user.IsActive))
	return user, nil
}
