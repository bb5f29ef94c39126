package ledger

import "time"

// Command is the closed set of state transitions the ledger accepts. The
// unexported marker keeps the set sealed so dispatch stays exhaustive.
type Command interface {
	isCommand()
}

// RegisterUser adds a new account to the roster. Emails are unique across
// the roster; the first registered user becomes the active identity.
type RegisterUser struct {
	Name  string
	Email string
	Role  Role
}

// RemoveUser deletes a roster entry. The identity boundary uses it to back
// out a registration whose credential could not be stored, so the email
// stays available for a retry.
type RemoveUser struct {
	UserID string
}

// SwitchUser points the active identity at an existing user.
type SwitchUser struct {
	UserID string
}

// ToggleUserAccess flips the IsActive flag on a user.
type ToggleUserAccess struct {
	UserID string
}

// AddProduct creates a product owned by OwnerID.
type AddProduct struct {
	OwnerID     string
	Name        string
	Description string
	BasePrice   float64
}

// UpdateProduct merges a patch into an existing product.
type UpdateProduct struct {
	ID    string
	Patch ProductPatch
}

// DeleteProduct removes a product. Quote items referencing it keep their
// denormalized snapshot.
type DeleteProduct struct {
	ID string
}

// AddCustomer creates a customer owned by OwnerID.
type AddCustomer struct {
	OwnerID string
	Name    string
	Email   *string
	Phone   *string
	Company *string
	Address *string
}

// UpdateCustomer merges a patch into an existing customer.
type UpdateCustomer struct {
	ID    string
	Patch CustomerPatch
}

// DeleteCustomer removes a customer. Quotes keep rendering from their
// denormalized customer name.
type DeleteCustomer struct {
	ID string
}

// CreateQuote opens an empty DRAFT quote for OwnerID and assigns the next
// quote number from the owner's persistent sequence.
type CreateQuote struct {
	OwnerID string
}

// UpdateQuote merges header fields. This is the sole path for status
// transitions; no transition table is enforced.
type UpdateQuote struct {
	ID    string
	Patch QuotePatch
}

// AddQuoteItem appends a line snapshotting the product. Quantity defaults
// to 1 when zero; CustomPrice overrides the product's base price when set.
type AddQuoteItem struct {
	QuoteID     string
	ProductID   string
	Quantity    int
	CustomPrice *float64
}

// UpdateQuoteItem merges a patch into a line and recomputes its total.
type UpdateQuoteItem struct {
	QuoteID string
	ItemID  string
	Patch   ItemPatch
}

// RemoveQuoteItem drops a line and recomputes the quote totals.
type RemoveQuoteItem struct {
	QuoteID string
	ItemID  string
}

// DeleteQuote removes a quote entirely. Associated collects are left in
// place; see DESIGN.md for the orphaning decision.
type DeleteQuote struct {
	ID string
}

// RecordPayment creates a collect and bumps the quote's TotalPaid as one
// atomic transition. This is the only command that enforces a business rule
// loudly: the amount must be positive and must not exceed the remaining
// balance, and the payment method must be non-empty.
type RecordPayment struct {
	QuoteID       string
	Amount        float64
	PaymentMethod string
	Notes         *string
	CollectedAt   time.Time
}

func (RegisterUser) isCommand()     {}
func (RemoveUser) isCommand()       {}
func (SwitchUser) isCommand()       {}
func (ToggleUserAccess) isCommand() {}
func (AddProduct) isCommand()       {}
func (UpdateProduct) isCommand()    {}
func (DeleteProduct) isCommand()    {}
func (AddCustomer) isCommand()      {}
func (UpdateCustomer) isCommand()   {}
func (DeleteCustomer) isCommand()   {}
func (CreateQuote) isCommand()      {}
func (UpdateQuote) isCommand()      {}
func (AddQuoteItem) isCommand()     {}
func (UpdateQuoteItem) isCommand()  {}
func (RemoveQuoteItem) isCommand()  {}
func (DeleteQuote) isCommand()      {}
func (RecordPayment) isCommand()    {}

// Status classifies the result of applying a command.
type Status int

const (
	// Applied means the transition took effect.
	Applied Status = iota
	// NotFound means the referenced entity does not exist; state unchanged.
	NotFound
	// Rejected means a validation rule refused the transition; state unchanged.
	Rejected
)

// String implements fmt.Stringer for log output.
func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case NotFound:
		return "not_found"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Outcome reports the result of a command so callers assert on it directly
// instead of inferring from unchanged state.
type Outcome struct {
	Status Status
	// Reason explains a rejection in user-facing terms.
	Reason string
	// ID carries the identifier of a newly created entity.
	ID string
}

func applied(id string) Outcome     { return Outcome{Status: Applied, ID: id} }
func notFound() Outcome             { return Outcome{Status: NotFound} }
func rejected(reason string) Outcome { return Outcome{Status: Rejected, Reason: reason} }
