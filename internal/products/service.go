// Package products exposes the product catalog over HTTP. Products are
// strictly per-user; cross-user lookups resolve as not found.
package products

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

// Service wraps catalog rules around the ledger.
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

// List returns one page of the user's products.
func (s *Service) List(userID string, page, perPage int) ([]ledger.Product, shared.Pagination) {
	all := s.ledger.ProductsFor(userID)
	pagination := shared.NewPagination(page, perPage, len(all))
	start, end := pagination.Slice(len(all))
	return all[start:end], pagination
}

// Create adds a product to the user's catalog.
func (s *Service) Create(ctx context.Context, ownerID, name, description string, basePrice float64) (ledger.Product, error) {
	outcome := s.dispatch(ctx, "add_product", ledger.AddProduct{
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		BasePrice:   basePrice,
	})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Product{}, err
	}
	product, _ := s.ledger.ProductByID(outcome.ID)
	return product, nil
}

// Update merges a patch into one of the user's products.
func (s *Service) Update(ctx context.Context, userID, id string, patch ledger.ProductPatch) (ledger.Product, error) {
	if _, err := s.owned(userID, id); err != nil {
		return ledger.Product{}, err
	}
	outcome := s.dispatch(ctx, "update_product", ledger.UpdateProduct{ID: id, Patch: patch})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Product{}, err
	}
	product, _ := s.ledger.ProductByID(id)
	return product, nil
}

// Delete removes one of the user's products. Existing quote items keep their
// denormalized snapshot.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	outcome := s.dispatch(ctx, "delete_product", ledger.DeleteProduct{ID: id})
	return outcomeErr(outcome)
}

func (s *Service) owned(userID, id string) (ledger.Product, error) {
	product, ok := s.ledger.ProductByID(id)
	if !ok || product.UserID != userID {
		return ledger.Product{}, httpx.ErrNotFound
	}
	return product, nil
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

