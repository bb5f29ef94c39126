// Package store is the remote persistence adapter. It mirrors the ledger
// onto postgres rows so state survives a full redeploy of both the server
// and its redis snapshot. The ledger never reads through this adapter at
// request time; it hydrates once at startup and syncs in the background.
package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/platform/db"
)

// Store persists ledger exports to postgres.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New constructs a Store.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// SaveState replaces the mirrored rows with the given export in one
// transaction. Fire-once: callers do not retry, the next applied mutation
// enqueues a fresh sync anyway.
func (s *Store) SaveState(ctx context.Context, exp ledger.Export) error {
	err := db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if err := replaceProfiles(ctx, tx, exp.Users, exp.CurrentUserID); err != nil {
			return err
		}
		if err := replaceProducts(ctx, tx, exp.Products); err != nil {
			return err
		}
		if err := replaceCustomers(ctx, tx, exp.Customers); err != nil {
			return err
		}
		if err := replaceQuotes(ctx, tx, exp.Quotes); err != nil {
			return err
		}
		if err := replaceCollects(ctx, tx, exp.Collects); err != nil {
			return err
		}
		return replaceQuoteSeq(ctx, tx, exp.QuoteSeq)
	})
	if err != nil {
		return fmt.Errorf("store: save state: %w", err)
	}
	return nil
}

func replaceProfiles(ctx context.Context, tx pgx.Tx, users []ledger.User, currentUserID string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM profiles`); err != nil {
		return fmt.Errorf("clear profiles: %w", err)
	}
	batch := &pgx.Batch{}
	for _, u := range users {
		batch.Queue(`
			INSERT INTO profiles (id, name, email, role, is_active, is_current, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			u.ID, u.Name, u.Email, string(u.Role), u.IsActive, u.ID == currentUserID, u.CreatedAt.UTC())
	}
	return flushBatch(ctx, tx, batch, "insert profiles")
}

func replaceProducts(ctx context.Context, tx pgx.Tx, products []ledger.Product) error {
	if _, err := tx.Exec(ctx, `DELETE FROM products`); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (id, user_id, name, description, base_price, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			p.ID, p.UserID, p.Name, p.Description, p.BasePrice, p.CreatedAt.UTC(), p.UpdatedAt.UTC())
	}
	return flushBatch(ctx, tx, batch, "insert products")
}

func replaceCustomers(ctx context.Context, tx pgx.Tx, customers []ledger.Customer) error {
	if _, err := tx.Exec(ctx, `DELETE FROM customers`); err != nil {
		return fmt.Errorf("clear customers: %w", err)
	}
	batch := &pgx.Batch{}
	for _, c := range customers {
		batch.Queue(`
			INSERT INTO customers (id, user_id, name, email, phone, company, address, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, c.UserID, c.Name, textOrNull(c.Email), textOrNull(c.Phone),
			textOrNull(c.Company), textOrNull(c.Address), c.CreatedAt.UTC())
	}
	return flushBatch(ctx, tx, batch, "insert customers")
}

func replaceQuotes(ctx context.Context, tx pgx.Tx, quotes []ledger.Quote) error {
	if _, err := tx.Exec(ctx, `DELETE FROM quote_items`); err != nil {
		return fmt.Errorf("clear quote items: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM quotes`); err != nil {
		return fmt.Errorf("clear quotes: %w", err)
	}
	batch := &pgx.Batch{}
	for _, q := range quotes {
		batch.Queue(`
			INSERT INTO quotes (id, user_id, quote_number, status, customer_id, customer_name,
				subtotal, total, total_paid, notes, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
			q.ID, q.UserID, q.QuoteNumber, string(q.Status), textOrNull(q.CustomerID),
			textOrNull(q.CustomerName), q.Subtotal, q.Total, q.TotalPaid, textOrNull(q.Notes),
			q.CreatedAt.UTC(), q.UpdatedAt.UTC())
		for pos, it := range q.Items {
			batch.Queue(`
				INSERT INTO quote_items (id, quote_id, product_id, product_name, description,
					quantity, unit_price, total_price, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
				it.ID, q.ID, it.ProductID, it.ProductName, it.Description,
				it.Quantity, it.UnitPrice, it.TotalPrice, pos)
		}
	}
	return flushBatch(ctx, tx, batch, "insert quotes")
}

func replaceCollects(ctx context.Context, tx pgx.Tx, collects []ledger.Collect) error {
	if _, err := tx.Exec(ctx, `DELETE FROM collects`); err != nil {
		return fmt.Errorf("clear collects: %w", err)
	}
	batch := &pgx.Batch{}
	for _, c := range collects {
		batch.Queue(`
			INSERT INTO collects (id, quote_id, user_id, amount, payment_method, notes,
				collected_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.QuoteID, c.UserID, c.Amount, c.PaymentMethod, textOrNull(c.Notes),
			c.CollectedAt.UTC(), c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	}
	return flushBatch(ctx, tx, batch, "insert collects")
}

func replaceQuoteSeq(ctx context.Context, tx pgx.Tx, seq map[string]int) error {
	if _, err := tx.Exec(ctx, `DELETE FROM quote_sequences`); err != nil {
		return fmt.Errorf("clear quote sequences: %w", err)
	}
	batch := &pgx.Batch{}
	for userID, n := range seq {
		batch.Queue(`INSERT INTO quote_sequences (user_id, seq) VALUES ($1, $2)`, userID, n)
	}
	return flushBatch(ctx, tx, batch, "insert quote sequences")
}

func flushBatch(ctx context.Context, tx pgx.Tx, batch *pgx.Batch, label string) error {
	if batch.Len() == 0 {
		return nil
	}
	results := tx.SendBatch(ctx, batch)
	defer func() { _ = results.Close() }()
	for i := 0; i < batch.Len(); i++ {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
	}
	return nil
}

func textOrNull(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}
