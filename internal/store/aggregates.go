package store

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/quoteforge/quoteforge/internal/ledger"
)

// UsageAggregates computes per-user activity from the mirrored rows. The
// four counting queries are independent, so they fan out concurrently.
func (s *Store) UsageAggregates(ctx context.Context) (map[string]ledger.Usage, error) {
	var mu sync.Mutex
	usage := make(map[string]ledger.Usage)

	merge := func(userID string, fn func(*ledger.Usage)) {
		mu.Lock()
		defer mu.Unlock()
		u := usage[userID]
		u.UserID = userID
		fn(&u)
		usage[userID] = u
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		counts, err := s.countByUser(ctx, `SELECT user_id, COUNT(*) FROM quotes GROUP BY user_id`)
		if err != nil {
			return fmt.Errorf("fetch quote counts: %w", err)
		}
		for userID, n := range counts {
			merge(userID, func(u *ledger.Usage) { u.Quotes = n })
		}
		return nil
	})

	g.Go(func() error {
		counts, err := s.countByUser(ctx, `SELECT user_id, COUNT(*) FROM products GROUP BY user_id`)
		if err != nil {
			return fmt.Errorf("fetch product counts: %w", err)
		}
		for userID, n := range counts {
			merge(userID, func(u *ledger.Usage) { u.Products = n })
		}
		return nil
	})

	g.Go(func() error {
		counts, err := s.countByUser(ctx, `SELECT user_id, COUNT(*) FROM customers GROUP BY user_id`)
		if err != nil {
			return fmt.Errorf("fetch customer counts: %w", err)
		}
		for userID, n := range counts {
			merge(userID, func(u *ledger.Usage) { u.Customers = n })
		}
		return nil
	})

	g.Go(func() error {
		rows, err := s.pool.Query(ctx, `SELECT user_id, COALESCE(SUM(amount), 0) FROM collects GROUP BY user_id`)
		if err != nil {
			return fmt.Errorf("fetch collected totals: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var userID string
			var total float64
			if err := rows.Scan(&userID, &total); err != nil {
				return fmt.Errorf("scan collected total: %w", err)
			}
			merge(userID, func(u *ledger.Usage) { u.Collected = total })
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("store: usage aggregates: %w", err)
	}
	return usage, nil
}

func (s *Store) countByUser(ctx context.Context, query string) (map[string]int, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var userID string
		var n int
		if err := rows.Scan(&userID, &n); err != nil {
			return nil, err
		}
		counts[userID] = n
	}
	return counts, rows.Err()
}
