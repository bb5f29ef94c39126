package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/quoteforge/quoteforge/internal/ledger"
)

// LoadState hydrates a full ledger export from the mirrored rows. The second
// return is false when no profiles exist, meaning the mirror was never
// written and the caller should start fresh.
func (s *Store) LoadState(ctx context.Context) (ledger.Export, bool, error) {
	var exp ledger.Export

	users, currentUserID, err := s.loadProfiles(ctx)
	if err != nil {
		return exp, false, fmt.Errorf("store: load state: %w", err)
	}
	if len(users) == 0 {
		return exp, false, nil
	}
	exp.Users = users
	exp.CurrentUserID = currentUserID

	if exp.Products, err = s.loadProducts(ctx); err != nil {
		return exp, false, fmt.Errorf("store: load state: %w", err)
	}
	if exp.Customers, err = s.loadCustomers(ctx); err != nil {
		return exp, false, fmt.Errorf("store: load state: %w", err)
	}
	if exp.Quotes, err = s.loadQuotes(ctx); err != nil {
		return exp, false, fmt.Errorf("store: load state: %w", err)
	}
	if exp.Collects, err = s.loadCollects(ctx); err != nil {
		return exp, false, fmt.Errorf("store: load state: %w", err)
	}
	if exp.QuoteSeq, err = s.loadQuoteSeq(ctx); err != nil {
		return exp, false, fmt.Errorf("store: load state: %w", err)
	}
	return exp, true, nil
}

func (s *Store) loadProfiles(ctx context.Context) ([]ledger.User, string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, email, role, is_active, is_current, created_at
		FROM profiles
		ORDER BY created_at`)
	if err != nil {
		return nil, "", fmt.Errorf("fetch profiles: %w", err)
	}
	defer rows.Close()

	var users []ledger.User
	var currentUserID string
	for rows.Next() {
		var u ledger.User
		var role string
		var isCurrent bool
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &role, &u.IsActive, &isCurrent, &u.CreatedAt); err != nil {
			return nil, "", fmt.Errorf("scan profile: %w", err)
		}
		u.Role = ledger.Role(role)
		if isCurrent {
			currentUserID = u.ID
		}
		users = append(users, u)
	}
	return users, currentUserID, rows.Err()
}

func (s *Store) loadProducts(ctx context.Context) ([]ledger.Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, description, base_price, created_at, updated_at
		FROM products
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		var p ledger.Product
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &p.BasePrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) loadCustomers(ctx context.Context) ([]ledger.Customer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, name, email, phone, company, address, created_at
		FROM customers
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("fetch customers: %w", err)
	}
	defer rows.Close()

	var customers []ledger.Customer
	for rows.Next() {
		var c ledger.Customer
		var email, phone, company, address pgtype.Text
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &email, &phone, &company, &address, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.Email = textPtr(email)
		c.Phone = textPtr(phone)
		c.Company = textPtr(company)
		c.Address = textPtr(address)
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

func (s *Store) loadQuotes(ctx context.Context) ([]ledger.Quote, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, quote_number, status, customer_id, customer_name,
			subtotal, total, total_paid, notes, created_at, updated_at
		FROM quotes
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("fetch quotes: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*ledger.Quote)
	var order []string
	for rows.Next() {
		var q ledger.Quote
		var status string
		var customerID, customerName, notes pgtype.Text
		if err := rows.Scan(&q.ID, &q.UserID, &q.QuoteNumber, &status, &customerID, &customerName,
			&q.Subtotal, &q.Total, &q.TotalPaid, &notes, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		q.Status = ledger.QuoteStatus(status)
		q.CustomerID = textPtr(customerID)
		q.CustomerName = textPtr(customerName)
		q.Notes = textPtr(notes)
		q.Items = []ledger.QuoteItem{}
		byID[q.ID] = &q
		order = append(order, q.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.loadQuoteItems(ctx, byID); err != nil {
		return nil, err
	}

	quotes := make([]ledger.Quote, 0, len(order))
	for _, id := range order {
		quotes = append(quotes, *byID[id])
	}
	return quotes, nil
}

func (s *Store) loadQuoteItems(ctx context.Context, quotes map[string]*ledger.Quote) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quote_id, product_id, product_name, description,
			quantity, unit_price, total_price, position
		FROM quote_items
		ORDER BY quote_id, position`)
	if err != nil {
		return fmt.Errorf("fetch quote items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var it ledger.QuoteItem
		var quoteID string
		var position int
		if err := rows.Scan(&it.ID, &quoteID, &it.ProductID, &it.ProductName, &it.Description,
			&it.Quantity, &it.UnitPrice, &it.TotalPrice, &position); err != nil {
			return fmt.Errorf("scan quote item: %w", err)
		}
		if q, ok := quotes[quoteID]; ok {
			q.Items = append(q.Items, it)
		}
	}
	return rows.Err()
}

func (s *Store) loadCollects(ctx context.Context) ([]ledger.Collect, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, quote_id, user_id, amount, payment_method, notes,
			collected_at, created_at, updated_at
		FROM collects
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("fetch collects: %w", err)
	}
	defer rows.Close()

	var collects []ledger.Collect
	for rows.Next() {
		var c ledger.Collect
		var notes pgtype.Text
		if err := rows.Scan(&c.ID, &c.QuoteID, &c.UserID, &c.Amount, &c.PaymentMethod, &notes,
			&c.CollectedAt, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan collect: %w", err)
		}
		c.Notes = textPtr(notes)
		collects = append(collects, c)
	}
	return collects, rows.Err()
}

func (s *Store) loadQuoteSeq(ctx context.Context) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT user_id, seq FROM quote_sequences`)
	if err != nil {
		return nil, fmt.Errorf("fetch quote sequences: %w", err)
	}
	defer rows.Close()

	seq := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, fmt.Errorf("scan quote sequence: %w", err)
		}
		seq[userID] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Guard against a mirror written before sequences were tracked: never
	// hand back a counter lower than the surviving quote count.
	if len(seq) == 0 {
		counts := make(map[string]int)
		rows, err := s.pool.Query(ctx, `SELECT user_id, COUNT(*) FROM quotes GROUP BY user_id`)
		if err != nil {
			return nil, fmt.Errorf("fetch quote counts: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var userID string
			var n int
			if err := rows.Scan(&userID, &n); err != nil {
				return nil, fmt.Errorf("scan quote count: %w", err)
			}
			counts[userID] = n
		}
		if err := rows.Err(); err != nil {
			return nil, err
		}
		for k, v := range counts {
			seq[k] = v
		}
	}
	return seq, nil
}
