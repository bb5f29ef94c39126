// Package quotes exposes quote documents, their line items, payment records
// and PDF export over HTTP.
package quotes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/observability"
	"github.com/quoteforge/quoteforge/internal/platform/httpx"
	"github.com/quoteforge/quoteforge/internal/render"
	"github.com/quoteforge/quoteforge/internal/shared"
)

// Notifier is told after every applied mutation so state can be persisted.
type Notifier interface {
	StateChanged(ctx context.Context)
}

// Service wraps quote lifecycle rules around the ledger.
type Service struct {
	ledger   *ledger.Ledger
	renderer *render.Renderer
	notifier Notifier
	metrics  *observability.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. notifier and metrics may be nil.
func NewService(l *ledger.Ledger, renderer *render.Renderer, notifier Notifier, metrics *observability.Metrics, logger *slog.Logger) *Service {
	return &Service{
		ledger:   l,
		renderer: renderer,
		notifier: notifier,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// List returns one page of the user's quotes.
func (s *Service) List(userID string, page, perPage int) ([]ledger.Quote, shared.Pagination) {
	all := s.ledger.QuotesFor(userID)
	pagination := shared.NewPagination(page, perPage, len(all))
	start, end := pagination.Slice(len(all))
	return all[start:end], pagination
}

// Create opens an empty draft quote with the next number in the user's
// sequence.
func (s *Service) Create(ctx context.Context, ownerID string) (ledger.Quote, error) {
	outcome := s.dispatch(ctx, "create_quote", ledger.CreateQuote{OwnerID: ownerID})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Quote{}, err
	}
	quote, _ := s.ledger.QuoteByID(outcome.ID)
	return quote, nil
}

// Get returns one of the user's quotes with its items.
func (s *Service) Get(userID, id string) (ledger.Quote, error) {
	return s.owned(userID, id)
}

// Update merges header fields. When a customer id is supplied the customer
// name is denormalized onto the quote so it keeps rendering after the
// customer record is deleted.
func (s *Service) Update(ctx context.Context, userID, id string, req updateRequest) (ledger.Quote, error) {
	if _, err := s.owned(userID, id); err != nil {
		return ledger.Quote{}, err
	}

	patch := ledger.QuotePatch{
		CustomerID:   req.CustomerID,
		CustomerName: req.CustomerName,
		Notes:        req.Notes,
	}
	if req.Status != nil {
		status := ledger.QuoteStatus(*req.Status)
		patch.Status = &status
	}
	if req.CustomerID != nil && req.CustomerName == nil {
		customer, ok := s.ledger.CustomerByID(*req.CustomerID)
		if !ok || customer.UserID != userID {
			return ledger.Quote{}, httpx.ErrNotFound
		}
		patch.CustomerName = &customer.Name
	}

	outcome := s.dispatch(ctx, "update_quote", ledger.UpdateQuote{ID: id, Patch: patch})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Quote{}, err
	}
	quote, _ := s.ledger.QuoteByID(id)
	return quote, nil
}

// Delete removes a quote. Payment records stay in the user's history.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.owned(userID, id); err != nil {
		return err
	}
	outcome := s.dispatch(ctx, "delete_quote", ledger.DeleteQuote{ID: id})
	return outcomeErr(outcome)
}

// AddItem appends a line snapshotting one of the user's products.
func (s *Service) AddItem(ctx context.Context, userID, quoteID string, req addItemRequest) (ledger.Quote, error) {
	if _, err := s.owned(userID, quoteID); err != nil {
		return ledger.Quote{}, err
	}
	if product, ok := s.ledger.ProductByID(req.ProductID); !ok || product.UserID != userID {
		return ledger.Quote{}, httpx.ErrNotFound
	}

	outcome := s.dispatch(ctx, "add_quote_item", ledger.AddQuoteItem{
		QuoteID:     quoteID,
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		CustomPrice: req.CustomPrice,
	})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Quote{}, err
	}
	quote, _ := s.ledger.QuoteByID(quoteID)
	return quote, nil
}

// UpdateItem merges a patch into a line; the item total is recomputed from
// the effective values.
func (s *Service) UpdateItem(ctx context.Context, userID, quoteID, itemID string, patch ledger.ItemPatch) (ledger.Quote, error) {
	if _, err := s.owned(userID, quoteID); err != nil {
		return ledger.Quote{}, err
	}
	outcome := s.dispatch(ctx, "update_quote_item", ledger.UpdateQuoteItem{QuoteID: quoteID, ItemID: itemID, Patch: patch})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Quote{}, err
	}
	quote, _ := s.ledger.QuoteByID(quoteID)
	return quote, nil
}

// RemoveItem drops a line and recomputes the totals.
func (s *Service) RemoveItem(ctx context.Context, userID, quoteID, itemID string) (ledger.Quote, error) {
	if _, err := s.owned(userID, quoteID); err != nil {
		return ledger.Quote{}, err
	}
	outcome := s.dispatch(ctx, "remove_quote_item", ledger.RemoveQuoteItem{QuoteID: quoteID, ItemID: itemID})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Quote{}, err
	}
	quote, _ := s.ledger.QuoteByID(quoteID)
	return quote, nil
}

// RecordPayment registers a collect against the quote balance.
func (s *Service) RecordPayment(ctx context.Context, userID, quoteID string, req paymentRequest) (ledger.Collect, error) {
	if _, err := s.owned(userID, quoteID); err != nil {
		return ledger.Collect{}, err
	}

	collectedAt := s.now()
	if req.CollectedAt != nil {
		collectedAt = *req.CollectedAt
	}
	outcome := s.dispatch(ctx, "record_payment", ledger.RecordPayment{
		QuoteID:       quoteID,
		Amount:        req.Amount,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		CollectedAt:   collectedAt,
	})
	if err := outcomeErr(outcome); err != nil {
		return ledger.Collect{}, err
	}
	for _, c := range s.ledger.CollectsForQuote(quoteID) {
		if c.ID == outcome.ID {
			return c, nil
		}
	}
	return ledger.Collect{}, httpx.ErrNotFound
}

// Payments lists the collects recorded against one of the user's quotes,
// newest first.
func (s *Service) Payments(userID, quoteID string) ([]ledger.Collect, error) {
	if _, err := s.owned(userID, quoteID); err != nil {
		return nil, err
	}
	return s.ledger.CollectsForQuote(quoteID), nil
}

// History lists every collect the user has recorded, newest first. Collects
// whose quote was deleted still appear.
func (s *Service) History(userID string) []ledger.Collect {
	return s.ledger.CollectsForUser(userID)
}

// RenderPDF produces the quote document and its artifact filename.
func (s *Service) RenderPDF(userID, quoteID string) ([]byte, string, error) {
	quote, err := s.owned(userID, quoteID)
	if err != nil {
		return nil, "", err
	}
	var customer *ledger.Customer
	if quote.CustomerID != nil {
		if c, ok := s.ledger.CustomerByID(*quote.CustomerID); ok {
			customer = &c
		}
	}
	data, err := s.renderer.QuotePDF(quote, customer)
	if err != nil {
		return nil, "", fmt.Errorf("render quote %s: %w", quoteID, err)
	}
	s.metrics.ObserveRender()
	return data, render.Filename(quote), nil
}

func (s *Service) owned(userID, id string) (ledger.Quote, error) {
	quote, ok := s.ledger.QuoteByID(id)
	if !ok || quote.UserID != userID {
		return ledger.Quote{}, httpx.ErrNotFound
	}
	return quote, nil
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
