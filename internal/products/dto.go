package products

import (
	"time"

	"github.com/quoteforge/quoteforge/internal/ledger"
	"github.com/quoteforge/quoteforge/internal/money"
	"github.com/quoteforge/quoteforge/internal/shared"
)

type createRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price" validate:"gte=0"`
}

type updateRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1"`
	Description *string  `json:"description,omitempty"`
	BasePrice   *float64 `json:"base_price,omitempty" validate:"omitempty,gte=0"`
}

type productResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	BasePrice    float64   `json:"base_price"`
	DisplayPrice string    `json:"display_price"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type listResponse struct {
	Products   []productResponse `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

func toProductResponse(p ledger.Product) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		BasePrice:    p.BasePrice,
		DisplayPrice: money.Format(p.BasePrice),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
