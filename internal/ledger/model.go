package ledger

import "time"

// Role identifies the access level of an account.
type Role string

const (
	RoleUser       Role = "USER"
	RoleAdmin      Role = "ADMIN"
	RoleSuperadmin Role = "SUPERADMIN"
)

// QuoteStatus is a free-form workflow label. Any status may follow any other;
// there is deliberately no enforced transition graph.
type QuoteStatus string

const (
	StatusDraft      QuoteStatus = "DRAFT"
	StatusPending    QuoteStatus = "PENDING"
	StatusInProgress QuoteStatus = "IN_PROGRESS"
	StatusCompleted  QuoteStatus = "COMPLETED"
)

// User is an account created through the identity provider. Only the
// IsActive flag mutates in-session.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Product belongs to exactly one user and is never visible cross-user.
type Product struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	BasePrice   float64   `json:"base_price"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Customer belongs to exactly one user.
type Customer struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Email     *string   `json:"email,omitempty"`
	Phone     *string   `json:"phone,omitempty"`
	Company   *string   `json:"company,omitempty"`
	Address   *string   `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// QuoteItem is one priced line within a quote. ProductName, Description and
// UnitPrice are snapshots taken at add-time; the item stays valid after the
// source product is edited or deleted.
type QuoteItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

// Quote is a proposal document composed of line items. Subtotal, Total and
// TotalPaid are derived fields, recomputed by the ledger on every mutation.
type Quote struct {
	ID           string      `json:"id"`
	UserID       string      `json:"user_id"`
	QuoteNumber  string      `json:"quote_number"`
	Status       QuoteStatus `json:"status"`
	CustomerID   *string     `json:"customer_id,omitempty"`
	CustomerName *string     `json:"customer_name,omitempty"`
	Items        []QuoteItem `json:"items"`
	Subtotal     float64     `json:"subtotal"`
	Total        float64     `json:"total"`
	TotalPaid    float64     `json:"total_paid"`
	Notes        *string     `json:"notes,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Collect records a partial or full payment against a quote's balance.
// It never mutates quote fields itself; TotalPaid is bumped as a paired
// step of the same transition.
type Collect struct {
	ID            string    `json:"id"`
	QuoteID       string    `json:"quote_id"`
	UserID        string    `json:"user_id"`
	Amount        float64   `json:"amount"`
	PaymentMethod string    `json:"payment_method"`
	Notes         *string   `json:"notes,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProductPatch carries partial product updates; nil fields are untouched.
type ProductPatch struct {
	Name        *string
	Description *string
	BasePrice   *float64
}

// CustomerPatch carries partial customer updates.
type CustomerPatch struct {
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Address *string
}

// QuotePatch carries partial quote header updates. Derived totals are not
// patchable; TotalPaid is exposed for remote-state reconciliation only.
type QuotePatch struct {
	Status       *QuoteStatus
	CustomerID   *string
	CustomerName *string
	Notes        *string
	TotalPaid    *float64
}

// ItemPatch carries partial quote item updates. When quantity or unit price
// changes, the item total is recomputed from the effective merged values.
type ItemPatch struct {
	ProductName *string
	Description *string
	Quantity    *int
	UnitPrice   *float64
}

// IsElevated reports whether the role grants admin capabilities.
func (r Role) IsElevated() bool {
	return r == RoleAdmin || r == RoleSuperadmin
}
