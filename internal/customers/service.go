// Package customers exposes the per-user customer book over HTTP.
package customers

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/observability"
	"github.com/quoteforge/quoteforge/internal/platform/httpx"
	"github.com/quoteforge/quoteforge/internal/shared"
)

// Notifier is told after every applied mutation so state can be persisted.
type Notifier interface {
	StateChanged(ctx context.Context)
}

// Service wraps customer book rules around the ledger.
type Service struct {
	ledger   *ledger.Ledger
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService constructs a Service. notifier and metrics may be nil.
func NewService(l *ledger.Ledger, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{ledger: l, notifier: notifier, metrics: metrics, logger: logger}
}

// List returns one page of the user's customers.
func (s *Service) List(userID string, page, perPage int) ([]ledger.Customer, shared.Pagination) {
	all := s.ledger.CustomersFor(userID)
	pagination := shared.NewPagination(page, perPage, len(all))
	start, end := pagination.Slice(len(all))
	return all[start:end], pagination
}

// Create adds a customer to the user's book.
func (s *Service) Create(ctx context.Context, ownerID string, req createRequest) (ledger.Customer, error) {
	outcome := s.dispatch(ctx, "add_customer", ledger.AddCustomer{
		OwnerID: ownerID,
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Company: req.Company,
		Address: req.Address,
	})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Customer{}, err
	}
	customer, _ := s.ledger.CustomerByID(outcome.ID)
	return customer, nil
}

// Update merges a patch into one of the user's customers.
func (s *Service) Update(ctx context.Context, userID, id string, patch ledger.CustomerPatch) (ledger.Customer, error) {
	if _, err := s.owned(userID, id); err != nil {
		return ledger.Customer{}, err
	}
	outcome := s.dispatch(ctx, "update_customer", ledger.UpdateCustomer{ID: id, Patch: patch})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Customer{}, err
	}
	customer, _ := s.ledger.CustomerByID(id)
	return customer, nil
}

// Delete removes one of the user's customers. Quotes keep rendering from
// their denormalized customer name.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	outcome := s.dispatch(ctx, "delete_customer", ledger.DeleteCustomer{ID: id})
	return outcomeErr(outcome)
}

func (s *Service) owned(userID, id string) (ledger.Customer, error) {
	customer, ok := s.ledger.CustomerByID(id)
	if !ok || customer.UserID != userID {
		return ledger.Customer{}, httpx.ErrNotFound
	}
	return customer, nil
}

func (s *Service) dispatch(ctx context.Context, name string, cmd ledger.Command) ledger.Outcome {
	outcome := s.ledger.Apply(cmd)
	s.metrics.ObserveCommand(name, outcome.Status.String())
	if outcome.Status == ledger.Applied && s.notifier != nil {
		s.notifier.StateChanged(ctx)
	}
	return outcome
}

func outcomeErr(outcome ledger.Outcome) error {
	switch outcome.Status {
	case ledger.Applied:
		return nil
	case ledger.NotFound:
		return httpx.ErrNotFound
	default:
		return fmt.Errorf("%w: %s", httpx.ErrValidation, outcome.Reason)
	}
}
