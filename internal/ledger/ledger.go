// Package ledger owns the canonical in-memory state for users, products,
// customers, quotes and payment records. All mutations go through Apply,
// which serializes transitions so no operation is ever observed mid-mutation
// and the derived-total invariants hold whenever Apply returns.
package ledger

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Ledger is an explicit, constructor-injected state container. Independent
// instances never share state.
type Ledger struct {
	mu    sync.Mutex
	now   func() time.Time
	newID func() string
	state state
}

// state is the full serializable document; see snapshot.go for the codec.
type state struct {
	CurrentUserID string            `json:"current_user_id"`
	Users         []User            `json:"users"`
	Products      []Product         `json:"products"`
	Customers     []Customer        `json:"customers"`
	Quotes        []Quote           `json:"quotes"`
	Collects      []Collect         `json:"collects"`
	QuoteSeq      map[string]int    `json:"quote_seq"`
}

// Option customizes a Ledger at construction time.
type Option func(*Ledger)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerator overrides the identifier source. Used by tests.
func WithIDGenerator(gen func() string) Option {
	return func(l *Ledger) { l.newID = gen }
}

// New constructs an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		now:   time.Now,
		newID: uuid.NewString,
		state: state{QuoteSeq: make(map[string]int)},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SeedUsers installs the user roster loaded from the identity provider.
func (l *Ledger) SeedUsers(users []User) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state.Users = append([]User(nil), users...)
	if l.state.CurrentUserID == "" && len(users) > 0 {
		l.state.CurrentUserID = users[0].ID
	}
}

// Apply runs one command as an atomic transition and reports the outcome.
// Every case either fully applies or leaves the state untouched.
func (l *Ledger) Apply(cmd Command) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch c := cmd.(type) {
	case RegisterUser:
		return l.applyRegisterUser(c)
	case RemoveUser:
		return l.applyRemoveUser(c)
	case SwitchUser:
		return l.applySwitchUser(c)
	case ToggleUserAccess:
		return l.applyToggleUserAccess(c)
	case AddProduct:
		return l.applyAddProduct(c)
	case UpdateProduct:
		return l.applyUpdateProduct(c)
	case DeleteProduct:
		return l.applyDeleteProduct(c)
	case AddCustomer:
		return l.applyAddCustomer(c)
	case UpdateCustomer:
		return l.applyUpdateCustomer(c)
	case DeleteCustomer:
		return l.applyDeleteCustomer(c)
	case CreateQuote:
		return l.applyCreateQuote(c)
	case UpdateQuote:
		return l.applyUpdateQuote(c)
	case AddQuoteItem:
		return l.applyAddQuoteItem(c)
	case UpdateQuoteItem:
		return l.applyUpdateQuoteItem(c)
	case RemoveQuoteItem:
		return l.applyRemoveQuoteItem(c)
	case DeleteQuote:
		return l.applyDeleteQuote(c)
	case RecordPayment:
		return l.applyRecordPayment(c)
	default:
		return rejected(fmt.Sprintf("unsupported command %T", cmd))
	}
}

func (l *Ledger) applyRegisterUser(c RegisterUser) Outcome {
	if c.Name == "" {
		return rejected("user name is required")
	}
	if c.Email == "" {
		return rejected("email is required")
	}
	for _, u := range l.state.Users {
		if u.Email == c.Email {
			return rejected("email already registered")
		}
	}
	role := c.Role
	if role == "" {
		role = RoleUser
	}
	u := User{
		ID:        l.newID(),
		Name:      c.Name,
		Email:     c.Email,
		Role:      role,
		IsActive:  true,
		CreatedAt: l.now(),
	}
	l.state.Users = append(l.state.Users, u)
	if l.state.CurrentUserID == "" {
		l.state.CurrentUserID = u.ID
	}
	return applied(u.ID)
}

func (l *Ledger) applyRemoveUser(c RemoveUser) Outcome {
	for i := range l.state.Users {
		if l.state.Users[i].ID != c.UserID {
			continue
		}
		l.state.Users = append(l.state.Users[:i], l.state.Users[i+1:]...)
		if l.state.CurrentUserID == c.UserID {
			l.state.CurrentUserID = ""
			if len(l.state.Users) > 0 {
				l.state.CurrentUserID = l.state.Users[0].ID
			}
		}
		return applied(c.UserID)
	}
	return notFound()
}

func (l *Ledger) applySwitchUser(c SwitchUser) Outcome {
	for _, u := range l.state.Users {
		if u.ID == c.UserID {
			l.state.CurrentUserID = u.ID
			return applied(u.ID)
		}
	}
	return notFound()
}

func (l *Ledger) applyToggleUserAccess(c ToggleUserAccess) Outcome {
	for i := range l.state.Users {
		if l.state.Users[i].ID == c.UserID {
			l.state.Users[i].IsActive = !l.state.Users[i].IsActive
			return applied(c.UserID)
		}
	}
	return notFound()
}

func (l *Ledger) applyAddProduct(c AddProduct) Outcome {
	if c.OwnerID == "" {
		return rejected("owner is required")
	}
	if c.Name == "" {
		return rejected("product name is required")
	}
	if c.BasePrice < 0 {
		return rejected("base price must not be negative")
	}
	now := l.now()
	p := Product{
		ID:          l.newID(),
		UserID:      c.OwnerID,
		Name:        c.Name,
		Description: c.Description,
		BasePrice:   c.BasePrice,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.state.Products = append(l.state.Products, p)
	return applied(p.ID)
}

func (l *Ledger) applyUpdateProduct(c UpdateProduct) Outcome {
	for i := range l.state.Products {
		if l.state.Products[i].ID != c.ID {
			continue
		}
		// Validate the whole patch before touching the product so a
		// rejection leaves no field half-applied.
		if c.Patch.Name != nil && *c.Patch.Name == "" {
			return rejected("product name is required")
		}
		if c.Patch.BasePrice != nil && *c.Patch.BasePrice < 0 {
			return rejected("base price must not be negative")
		}
		p := &l.state.Products[i]
		if c.Patch.Name != nil {
			p.Name = *c.Patch.Name
		}
		if c.Patch.Description != nil {
			p.Description = *c.Patch.Description
		}
		if c.Patch.BasePrice != nil {
			p.BasePrice = *c.Patch.BasePrice
		}
		p.UpdatedAt = l.now()
		return applied(c.ID)
	}
	return notFound()
}

func (l *Ledger) applyDeleteProduct(c DeleteProduct) Outcome {
	for i := range l.state.Products {
		if l.state.Products[i].ID == c.ID {
			l.state.Products = append(l.state.Products[:i], l.state.Products[i+1:]...)
			return applied(c.ID)
		}
	}
	return notFound()
}

func (l *Ledger) applyAddCustomer(c AddCustomer) Outcome {
	if c.OwnerID == "" {
		return rejected("owner is required")
	}
	if c.Name == "" {
		return rejected("customer name is required")
	}
	cust := Customer{
		ID:        l.newID(),
		UserID:    c.OwnerID,
		Name:      c.Name,
		Email:     c.Email,
		Phone:     c.Phone,
		Company:   c.Company,
		Address:   c.Address,
		CreatedAt: l.now(),
	}
	l.state.Customers = append(l.state.Customers, cust)
	return applied(cust.ID)
}

func (l *Ledger) applyUpdateCustomer(c UpdateCustomer) Outcome {
	for i := range l.state.Customers {
		if l.state.Customers[i].ID != c.ID {
			continue
		}
		cust := &l.state.Customers[i]
		if c.Patch.Name != nil {
			if *c.Patch.Name == "" {
				return rejected("customer name is required")
			}
			cust.Name = *c.Patch.Name
		}
		if c.Patch.Email != nil {
			cust.Email = c.Patch.Email
		}
		if c.Patch.Phone != nil {
			cust.Phone = c.Patch.Phone
		}
		if c.Patch.Company != nil {
			cust.Company = c.Patch.Company
		}
		if c.Patch.Address != nil {
			cust.Address = c.Patch.Address
		}
		return applied(c.ID)
	}
	return notFound()
}

func (l *Ledger) applyDeleteCustomer(c DeleteCustomer) Outcome {
	for i := range l.state.Customers {
		if l.state.Customers[i].ID == c.ID {
			l.state.Customers = append(l.state.Customers[:i], l.state.Customers[i+1:]...)
			return applied(c.ID)
		}
	}
	return notFound()
}

func (l *Ledger) applyCreateQuote(c CreateQuote) Outcome {
	if c.OwnerID == "" {
		return rejected("owner is required")
	}
	// The sequence is a persistent per-owner counter, not a live count, so
	// numbers stay unique after quotes are deleted and recreated.
	l.state.QuoteSeq[c.OwnerID]++
	seq := l.state.QuoteSeq[c.OwnerID]
	now := l.now()
	q := Quote{
		ID:          l.newID(),
		UserID:      c.OwnerID,
		QuoteNumber: fmt.Sprintf("Q-%d-%03d", now.Year(), seq),
		Status:      StatusDraft,
		Items:       []QuoteItem{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	l.state.Quotes = append(l.state.Quotes, q)
	return applied(q.ID)
}

func (l *Ledger) applyUpdateQuote(c UpdateQuote) Outcome {
	q := l.findQuote(c.ID)
	if q == nil {
		return notFound()
	}
	if c.Patch.Status != nil {
		q.Status = *c.Patch.Status
	}
	if c.Patch.CustomerID != nil {
		q.CustomerID = c.Patch.CustomerID
	}
	if c.Patch.CustomerName != nil {
		q.CustomerName = c.Patch.CustomerName
	}
	if c.Patch.Notes != nil {
		q.Notes = c.Patch.Notes
	}
	if c.Patch.TotalPaid != nil {
		q.TotalPaid = *c.Patch.TotalPaid
	}
	q.UpdatedAt = l.now()
	return applied(c.ID)
}

func (l *Ledger) applyAddQuoteItem(c AddQuoteItem) Outcome {
	q := l.findQuote(c.QuoteID)
	if q == nil {
		return notFound()
	}
	var product *Product
	for i := range l.state.Products {
		if l.state.Products[i].ID == c.ProductID {
			product = &l.state.Products[i]
			break
		}
	}
	if product == nil {
		return notFound()
	}
	qty := c.Quantity
	if qty == 0 {
		qty = 1
	}
	if qty < 1 {
		return rejected("quantity must be at least 1")
	}
	unitPrice := product.BasePrice
	if c.CustomPrice != nil {
		unitPrice = *c.CustomPrice
	}
	if unitPrice < 0 {
		return rejected("unit price must not be negative")
	}
	item := QuoteItem{
		ID:          l.newID(),
		ProductID:   product.ID,
		ProductName: product.Name,
		Description: product.Description,
		Quantity:    qty,
		UnitPrice:   unitPrice,
		TotalPrice:  float64(qty) * unitPrice,
	}
	q.Items = append(q.Items, item)
	l.recomputeTotals(q)
	q.UpdatedAt = l.now()
	return applied(item.ID)
}

func (l *Ledger) applyUpdateQuoteItem(c UpdateQuoteItem) Outcome {
	q := l.findQuote(c.QuoteID)
	if q == nil {
		return notFound()
	}
	for i := range q.Items {
		if q.Items[i].ID != c.ItemID {
			continue
		}
		item := &q.Items[i]
		qty := item.Quantity
		unitPrice := item.UnitPrice
		if c.Patch.Quantity != nil {
			qty = *c.Patch.Quantity
		}
		if c.Patch.UnitPrice != nil {
			unitPrice = *c.Patch.UnitPrice
		}
		if qty < 1 {
			return rejected("quantity must be at least 1")
		}
		if unitPrice < 0 {
			return rejected("unit price must not be negative")
		}
		if c.Patch.ProductName != nil {
			item.ProductName = *c.Patch.ProductName
		}
		if c.Patch.Description != nil {
			item.Description = *c.Patch.Description
		}
		item.Quantity = qty
		item.UnitPrice = unitPrice
		item.TotalPrice = float64(qty) * unitPrice
		l.recomputeTotals(q)
		q.UpdatedAt = l.now()
		return applied(c.ItemID)
	}
	return notFound()
}

func (l *Ledger) applyRemoveQuoteItem(c RemoveQuoteItem) Outcome {
	q := l.findQuote(c.QuoteID)
	if q == nil {
		return notFound()
	}
	for i := range q.Items {
		if q.Items[i].ID == c.ItemID {
			q.Items = append(q.Items[:i], q.Items[i+1:]...)
			l.recomputeTotals(q)
			q.UpdatedAt = l.now()
			return applied(c.ItemID)
		}
	}
	return notFound()
}

func (l *Ledger) applyDeleteQuote(c DeleteQuote) Outcome {
	for i := range l.state.Quotes {
		if l.state.Quotes[i].ID == c.ID {
			l.state.Quotes = append(l.state.Quotes[:i], l.state.Quotes[i+1:]...)
			// Collects referencing the quote stay in place.
			return applied(c.ID)
		}
	}
	return notFound()
}

func (l *Ledger) applyRecordPayment(c RecordPayment) Outcome {
	q := l.findQuote(c.QuoteID)
	if q == nil {
		return notFound()
	}
	if c.Amount <= 0 {
		return rejected("payment amount must be positive")
	}
	if c.PaymentMethod == "" {
		return rejected("payment method is required")
	}
	remaining := q.Total - q.TotalPaid
	if c.Amount > remaining {
		return rejected("payment exceeds remaining balance")
	}
	now := l.now()
	collect := Collect{
		ID:            l.newID(),
		QuoteID:       q.ID,
		UserID:        q.UserID,
		Amount:        c.Amount,
		PaymentMethod: c.PaymentMethod,
		Notes:         c.Notes,
		CollectedAt:   c.CollectedAt,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	l.state.Collects = append(l.state.Collects, collect)
	q.TotalPaid += c.Amount
	q.UpdatedAt = now
	return applied(collect.ID)
}

// recomputeTotals applies the derived-total rule: subtotal is the sum of
// item totals; total currently equals subtotal (tax/discount extension point).
func (l *Ledger) recomputeTotals(q *Quote) {
	var subtotal float64
	for _, item := range q.Items {
		subtotal += item.TotalPrice
	}
	q.Subtotal = subtotal
	q.Total = subtotal
}

func (l *Ledger) findQuote(id string) *Quote {
	for i := range l.state.Quotes {
		if l.state.Quotes[i].ID == id {
			return &l.state.Quotes[i]
		}
	}
	return nil
}

// Read accessors. All of them return copies so callers cannot reach into
// ledger-owned memory.

// ActiveUser returns the current identity, if any.
func (l *Ledger) ActiveUser() (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.state.Users {
		if u.ID == l.state.CurrentUserID {
			return u, true
		}
	}
	return User{}, false
}

// Users returns the full roster.
func (l *Ledger) Users() []User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]User(nil), l.state.Users...)
}

// UserByID looks up one user.
func (l *Ledger) UserByID(id string) (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.state.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// UserByEmail looks up one user by email.
func (l *Ledger) UserByEmail(email string) (User, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, u := range l.state.Users {
		if u.Email == email {
			return u, true
		}
	}
	return User{}, false
}

// ProductsFor lists the products owned by a user.
func (l *Ledger) ProductsFor(userID string) []Product {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Product
	for _, p := range l.state.Products {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out
}

// ProductByID looks up one product.
func (l *Ledger) ProductByID(id string) (Product, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.state.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// CustomersFor lists the customers owned by a user.
func (l *Ledger) CustomersFor(userID string) []Customer {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Customer
	for _, c := range l.state.Customers {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

// CustomerByID looks up one customer.
func (l *Ledger) CustomerByID(id string) (Customer, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, c := range l.state.Customers {
		if c.ID == id {
			return c, true
		}
	}
	return Customer{}, false
}

// QuotesFor lists the quotes owned by a user.
func (l *Ledger) QuotesFor(userID string) []Quote {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Quote
	for _, q := range l.state.Quotes {
		if q.UserID == userID {
			out = append(out, copyQuote(q))
		}
	}
	return out
}

// QuoteByID looks up one quote with its items.
func (l *Ledger) QuoteByID(id string) (Quote, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, q := range l.state.Quotes {
		if q.ID == id {
			return copyQuote(q), true
		}
	}
	return Quote{}, false
}

// CollectsForQuote lists payments recorded against a quote, newest first.
func (l *Ledger) CollectsForQuote(quoteID string) []Collect {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Collect
	for _, c := range l.state.Collects {
		if c.QuoteID == quoteID {
			out = append(out, c)
		}
	}
	sortCollects(out)
	return out
}

// CollectsForUser lists payments recorded by a user, newest first.
func (l *Ledger) CollectsForUser(userID string) []Collect {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Collect
	for _, c := range l.state.Collects {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sortCollects(out)
	return out
}

// Usage aggregates per-user activity for the admin dashboard.
type Usage struct {
	UserID    string  `json:"user_id"`
	Quotes    int     `json:"quotes"`
	Products  int     `json:"products"`
	Customers int     `json:"customers"`
	Collected float64 `json:"collected"`
}

// UsageByUser computes aggregate usage across all users.
func (l *Ledger) UsageByUser() map[string]Usage {
	l.mu.Lock()
	defer l.mu.Unlock()
	usage := make(map[string]Usage, len(l.state.Users))
	bump := func(userID string, fn func(*Usage)) {
		u := usage[userID]
		u.UserID = userID
		fn(&u)
		usage[userID] = u
	}
	for _, q := range l.state.Quotes {
		bump(q.UserID, func(u *Usage) { u.Quotes++ })
	}
	for _, p := range l.state.Products {
		bump(p.UserID, func(u *Usage) { u.Products++ })
	}
	for _, c := range l.state.Customers {
		bump(c.UserID, func(u *Usage) { u.Customers++ })
	}
	for _, c := range l.state.Collects {
		bump(c.UserID, func(u *Usage) { u.Collected += c.Amount })
	}
	return usage
}

func copyQuote(q Quote) Quote {
	q.Items = append([]QuoteItem(nil), q.Items...)
	return q
}

// sortCollects orders newest collection events first, matching the remote
// store ordering.
func sortCollects(collects []Collect) {
	sort.SliceStable(collects, func(i, j int) bool {
		return collects[i].CollectedAt.After(collects[j].CollectedAt)
	})
}
