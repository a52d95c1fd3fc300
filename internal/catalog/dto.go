package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

// ProductFilters narrow product listings.
type ProductFilters struct {
	SupplierID   *uuid.UUID
	LowStockOnly bool
	Query        string
}

// ListProductsInput carries filters plus cursor pagination.
type ListProductsInput struct {
	Filters    ProductFilters
	Pagination pagination.Params
}

// CreateSupplierInput is the payload for registering a supplier.
type CreateSupplierInput struct {
	Name           string             `json:"name" validate:"required,max=200"`
	Type           enums.SupplierType `json:"type" validate:"required"`
	CommissionRate *decimal.Decimal   `json:"commission_rate,omitempty"`
	Email          *string            `json:"email,omitempty" validate:"omitempty,email"`
}

// CreateProductInput registers a catalog product. OpeningStock, when positive, is
// booked through the ledger as a purchase movement.
type CreateProductInput struct {
	SKU             string           `json:"sku" validate:"required,max=64"`
	Title           string           `json:"title" validate:"required,max=300"`
	Artist          *string          `json:"artist,omitempty"`
	Format          *string          `json:"format,omitempty"`
	StockThreshold  int              `json:"stock_threshold" validate:"gte=0"`
	CostPrice       decimal.Decimal  `json:"cost_price"`
	SupplierID      *uuid.UUID       `json:"supplier_id,omitempty"`
	ConsignmentRate *decimal.Decimal `json:"consignment_rate,omitempty"`
	OpeningStock    int              `json:"opening_stock" validate:"gte=0"`
}

// UpdateProductInput edits catalog fields. Stock is not editable here.
type UpdateProductInput struct {
	Title           *string          `json:"title,omitempty" validate:"omitempty,max=300"`
	Artist          *string          `json:"artist,omitempty"`
	Format          *string          `json:"format,omitempty"`
	StockThreshold  *int             `json:"stock_threshold,omitempty" validate:"omitempty,gte=0"`
	CostPrice       *decimal.Decimal `json:"cost_price,omitempty"`
	ConsignmentRate *decimal.Decimal `json:"consignment_rate,omitempty"`
}

type SupplierDTO struct {
	ID             uuid.UUID          `json:"id"`
	Name           string             `json:"name"`
	Type           enums.SupplierType `json:"type"`
	CommissionRate *decimal.Decimal   `json:"commission_rate,omitempty"`
	Email          *string            `json:"email,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

func NewSupplierDTO(s *models.Supplier) *SupplierDTO {
	dto := &SupplierDTO{
		ID:        s.ID,
		Name:      s.Name,
		Type:      s.Type,
		Email:     s.Email,
		CreatedAt: s.CreatedAt,
	}
	if s.CommissionRate.Valid {
		rate := s.CommissionRate.Decimal
		dto.CommissionRate = &rate
	}
	return dto
}

type ProductDTO struct {
	ID              uuid.UUID           `json:"id"`
	SKU             string              `json:"sku"`
	Title           string              `json:"title"`
	Artist          *string             `json:"artist,omitempty"`
	Format          *string             `json:"format,omitempty"`
	Stock           int                 `json:"stock"`
	StockThreshold  int                 `json:"stock_threshold"`
	LowStock        bool                `json:"low_stock"`
	CostPrice       decimal.Decimal     `json:"cost_price"`
	SupplierID      *uuid.UUID          `json:"supplier_id,omitempty"`
	SupplierType    *enums.SupplierType `json:"supplier_type,omitempty"`
	ConsignmentRate *decimal.Decimal    `json:"consignment_rate,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func NewProductDTO(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:             p.ID,
		SKU:            p.SKU,
		Title:          p.Title,
		Artist:         p.Artist,
		Format:         p.Format,
		Stock:          p.Stock,
		StockThreshold: p.StockThreshold,
		LowStock:       p.IsLowStock(),
		CostPrice:      p.CostPrice,
		SupplierID:     p.SupplierID,
		SupplierType:   p.SupplierType,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.ConsignmentRate.Valid {
		rate := p.ConsignmentRate.Decimal
		dto.ConsignmentRate = &rate
	}
	return dto
}
