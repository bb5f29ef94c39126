package quotes

import (
	"time"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/money"
	"github.com/quoteforge/quoteforge/internal/shared"
)

type updateRequest struct {
	Status       *string `json:"status,omitempty" validate:"omitempty,oneof=DRAFT PENDING IN_PROGRESS COMPLETED"`
	CustomerID   *string `json:"customer_id,omitempty"`
	CustomerName *string `json:"customer_name,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

type addItemRequest struct {
	ProductID   string   `json:"product_id" validate:"required"`
	Quantity    int      `json:"quantity" validate:"gte=0"`
	CustomPrice *float64 `json:"custom_price,omitempty" validate:"omitempty,gte=0"`
}

type updateItemRequest struct {
	ProductName *string  `json:"product_name,omitempty" validate:"omitempty,min=1"`
	Description *string  `json:"description,omitempty"`
	Quantity    *int     `json:"quantity,omitempty" validate:"omitempty,gte=1"`
	UnitPrice   *float64 `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
}

type paymentRequest struct {
	Amount        float64    `json:"amount" validate:"required,gt=0"`
	PaymentMethod string     `json:"payment_method" validate:"required"`
	Notes         *string    `json:"notes,omitempty"`
	CollectedAt   *time.Time `json:"collected_at,omitempty"`
}

type itemResponse struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
}

type quoteResponse struct {
	ID            string         `json:"id"`
	QuoteNumber   string         `json:"quote_number"`
	Status        string         `json:"status"`
	CustomerID    *string        `json:"customer_id,omitempty"`
	CustomerName  *string        `json:"customer_name,omitempty"`
	Items         []itemResponse `json:"items"`
	Subtotal      float64        `json:"subtotal"`
	Total         float64        `json:"total"`
	TotalPaid     float64        `json:"total_paid"`
	Balance       float64        `json:"balance"`
	DisplayTotal  string         `json:"display_total"`
	Notes         *string        `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type listResponse struct {
	Quotes     []quoteResponse   `json:"quotes"`
	Pagination shared.Pagination `json:"pagination"`
}

type collectResponse struct {
	ID            string    `json:"id"`
	QuoteID       string    `json:"quote_id"`
	Amount        float64   `json:"amount"`
	DisplayAmount string    `json:"display_amount"`
	PaymentMethod string    `json:"payment_method"`
	Notes         *string   `json:"notes,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
	CreatedAt     time.Time `json:"created_at"`
}

func toQuoteResponse(q ledger.Quote) quoteResponse {
	items := make([]itemResponse, 0, len(q.Items))
	for _, it := range q.Items {
		items = append(items, itemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Description: it.Description,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return quoteResponse{
		ID:           q.ID,
		QuoteNumber:  q.QuoteNumber,
		Status:       string(q.Status),
		CustomerID:   q.CustomerID,
		CustomerName: q.CustomerName,
		Items:        items,
		Subtotal:     q.Subtotal,
		Total:        q.Total,
		TotalPaid:    q.TotalPaid,
		Balance:      q.Total - q.TotalPaid,
		DisplayTotal: money.Format(q.Total),
		Notes:        q.Notes,
		CreatedAt:    q.CreatedAt,
		UpdatedAt:    q.UpdatedAt,
	}
}

func toCollectResponse(c ledger.Collect) collectResponse {
	return collectResponse{
		ID:            c.ID,
		QuoteID:       c.QuoteID,
		Amount:        c.Amount,
		DisplayAmount: money.Format(c.Amount),
		PaymentMethod: c.PaymentMethod,
		Notes:         c.Notes,
		CollectedAt:   c.CollectedAt,
		CreatedAt:     c.CreatedAt,
	}
}
