package ledger

import (
	"encoding/json"
	"fmt"
)

// snapshotVersion guards against decoding documents written by a different
// layout of the state struct.
const snapshotVersion = 1

type snapshotDoc struct {
	Version int   `json:"version"`
	State   state `json:"state"`
}

// Snapshot serializes the full state to a versioned JSON document.
// Timestamps are written as RFC3339 and hydrate back into time values on
// Restore, so round-tripped states compare equal as times, not strings.
func (l *Ledger) Snapshot() ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc := snapshotDoc{Version: snapshotVersion, State: l.state}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ledger: encode snapshot: %w", err)
	}
	return data, nil
}

// Export is a deep copy of the full state, handed to persistence adapters
// that map entities onto rows instead of storing the JSON document.
type Export struct {
	CurrentUserID string
	Users         []User
	Products      []Product
	Customers     []Customer
	Quotes        []Quote
	Collects      []Collect
	QuoteSeq      map[string]int
}

// Export returns a copy of the current state.
func (l *Ledger) Export() Export {
	l.mu.Lock()
	defer l.mu.Unlock()
	quotes := make([]Quote, 0, len(l.state.Quotes))
	for _, q := range l.state.Quotes {
		quotes = append(quotes, copyQuote(q))
	}
	seq := make(map[string]int, len(l.state.QuoteSeq))
	for k, v := range l.state.QuoteSeq {
		seq[k] = v
	}
	return Export{
		CurrentUserID: l.state.CurrentUserID,
		Users:         append([]User(nil), l.state.Users...),
		Products:      append([]Product(nil), l.state.Products...),
		Customers:     append([]Customer(nil), l.state.Customers...),
		Quotes:        quotes,
		Collects:      append([]Collect(nil), l.state.Collects...),
		QuoteSeq:      seq,
	}
}

// Import replaces the full state from an export. Used to hydrate a fresh
// ledger from the remote store at startup.
func (l *Ledger) Import(exp Export) {
	l.mu.Lock()
	defer l.mu.Unlock()
	seq := make(map[string]int, len(exp.QuoteSeq))
	for k, v := range exp.QuoteSeq {
		seq[k] = v
	}
	// Quotes need copyQuote so the caller's Items slices do not alias
	// ledger-owned memory.
	quotes := make([]Quote, 0, len(exp.Quotes))
	for _, q := range exp.Quotes {
		quotes = append(quotes, copyQuote(q))
	}
	l.state = state{
		CurrentUserID: exp.CurrentUserID,
		Users:         append([]User(nil), exp.Users...),
		Products:      append([]Product(nil), exp.Products...),
		Customers:     append([]Customer(nil), exp.Customers...),
		Quotes:        quotes,
		Collects:      append([]Collect(nil), exp.Collects...),
		QuoteSeq:      seq,
	}
}

// Restore replaces the full state from a snapshot document.
func (l *Ledger) Restore(data []byte) error {
	var doc snapshotDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("ledger: decode snapshot: %w", err)
	}
	if doc.Version != snapshotVersion {
		return fmt.Errorf("ledger: unsupported snapshot version %d", doc.Version)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if doc.State.QuoteSeq == nil {
		doc.State.QuoteSeq = make(map[string]int)
	}
	l.state = doc.State
	return nil
}
