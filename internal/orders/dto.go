package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
)

// OrderFilters describe the inputs supported by the order list.
type OrderFilters struct {
	Status          *enums.OrderStatus
	PaymentStatus   *enums.PaymentStatus
	RefundRequested *bool
	CreatedFrom     *time.Time
	CreatedTo       *time.Time
}

// PlaceOrderItemInput is one requested line.
type PlaceOrderItemInput struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// PlaceOrderInput carries a new order and its lines.
type PlaceOrderInput struct {
	OrderNumber    string                `json:"order_number" validate:"omitempty,max=64"`
	CustomerEmail  *string               `json:"customer_email" validate:"omitempty,email"`
	Currency       string                `json:"currency" validate:"omitempty,len=3"`
	DiscountAmount decimal.Decimal       `json:"discount_amount"`
	ShippingAmount decimal.Decimal       `json:"shipping_amount"`
	TaxAmount      decimal.Decimal       `json:"tax_amount"`
	Notes          *string               `json:"notes"`
	Items          []PlaceOrderItemInput `json:"items" validate:"required,min=1,dive"`
}

// ShipOrderInput carries the optional tracking details.
type ShipOrderInput struct {
	TrackingNumber *string `json:"tracking_number"`
	TrackingURL    *string `json:"tracking_url" validate:"omitempty,url"`
}

// ListOrdersInput bundles pagination and filters for the order list.
type ListOrdersInput struct {
	Limit   int
	Cursor  string
	Filters OrderFilters
}

// OrderItemDTO is the API shape of a line item.
type OrderItemDTO struct {
	ID                      uuid.UUID             `json:"id"`
	OrderID                 uuid.UUID             `json:"order_id"`
	ProductID               uuid.UUID             `json:"product_id"`
	Quantity                int                   `json:"quantity"`
	UnitPrice               decimal.Decimal       `json:"unit_price"`
	TotalPrice              decimal.Decimal       `json:"total_price"`
	Status                  enums.OrderItemStatus `json:"status"`
	StockMovementID         *uuid.UUID            `json:"stock_movement_id,omitempty"`
	ReversedStockMovementID *uuid.UUID            `json:"reversed_stock_movement_id,omitempty"`
	CancelledAt             *time.Time            `json:"cancelled_at,omitempty"`
	ReturnedAt              *time.Time            `json:"returned_at,omitempty"`
	ReturnReason            *string               `json:"return_reason,omitempty"`
	SupplierID              *uuid.UUID            `json:"supplier_id,omitempty"`
	SupplierType            *enums.SupplierType   `json:"supplier_type,omitempty"`
	ConsignmentRate         *decimal.Decimal      `json:"consignment_rate,omitempty"`
	CreatedAt               time.Time             `json:"created_at"`
}

// NewOrderItemDTO maps a persisted item.
func NewOrderItemDTO(item models.OrderItem) OrderItemDTO {
	dto := OrderItemDTO{
		ID:                      item.ID,
		OrderID:                 item.OrderID,
		ProductID:               item.ProductID,
		Quantity:                item.Quantity,
		UnitPrice:               item.UnitPrice,
		TotalPrice:              item.TotalPrice,
		Status:                  item.Status,
		StockMovementID:         item.StockMovementID,
		ReversedStockMovementID: item.ReversedStockMovementID,
		CancelledAt:             item.CancelledAt,
		ReturnedAt:              item.ReturnedAt,
		ReturnReason:            item.ReturnReason,
		SupplierID:              item.SupplierID,
		SupplierType:            item.SupplierType,
		CreatedAt:               item.CreatedAt,
	}
	if item.ConsignmentRate.Valid {
		rate := item.ConsignmentRate.Decimal
		dto.ConsignmentRate = &rate
	}
	return dto
}

// OrderDTO is the API shape of an order header and, on detail reads, its items.
type OrderDTO struct {
	ID                 uuid.UUID           `json:"id"`
	OrderNumber        string              `json:"order_number"`
	CustomerEmail      *string             `json:"customer_email,omitempty"`
	Status             enums.OrderStatus   `json:"status"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	Currency           string              `json:"currency"`
	Subtotal           decimal.Decimal     `json:"subtotal"`
	DiscountAmount     decimal.Decimal     `json:"discount_amount"`
	ShippingAmount     decimal.Decimal     `json:"shipping_amount"`
	TaxAmount          decimal.Decimal     `json:"tax_amount"`
	Total              decimal.Decimal     `json:"total"`
	TrackingNumber     *string             `json:"tracking_number,omitempty"`
	TrackingURL        *string             `json:"tracking_url,omitempty"`
	RefundRequested    bool                `json:"refund_requested"`
	RefundReason       *string             `json:"refund_reason,omitempty"`
	CancellationReason *string             `json:"cancellation_reason,omitempty"`
	Notes              *string             `json:"notes,omitempty"`
	ConfirmedAt        *time.Time          `json:"confirmed_at,omitempty"`
	ProcessingAt       *time.Time          `json:"processing_at,omitempty"`
	ShippedAt          *time.Time          `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time          `json:"delivered_at,omitempty"`
	CancelledAt        *time.Time          `json:"cancelled_at,omitempty"`
	RefundedAt         *time.Time          `json:"refunded_at,omitempty"`
	PaidAt             *time.Time          `json:"paid_at,omitempty"`
	Items              []OrderItemDTO      `json:"items,omitempty"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// NewOrderDTO maps a persisted order, including any preloaded items.
func NewOrderDTO(order models.Order) OrderDTO {
	dto := OrderDTO{
		ID:                 order.ID,
		OrderNumber:        order.OrderNumber,
		CustomerEmail:      order.CustomerEmail,
		Status:             order.Status,
		PaymentStatus:      order.PaymentStatus,
		Currency:           order.Currency,
		Subtotal:           order.Subtotal,
		DiscountAmount:     order.DiscountAmount,
		ShippingAmount:     order.ShippingAmount,
		TaxAmount:          order.TaxAmount,
		Total:              order.Total,
		TrackingNumber:     order.TrackingNumber,
		TrackingURL:        order.TrackingURL,
		RefundRequested:    order.RefundRequested,
		RefundReason:       order.RefundReason,
		CancellationReason: order.CancellationReason,
		Notes:              order.Notes,
		ConfirmedAt:        order.ConfirmedAt,
		ProcessingAt:       order.ProcessingAt,
		ShippedAt:          order.ShippedAt,
		DeliveredAt:        order.DeliveredAt,
		CancelledAt:        order.CancelledAt,
		RefundedAt:         order.RefundedAt,
		PaidAt:             order.PaidAt,
		CreatedAt:          order.CreatedAt,
		UpdatedAt:          order.UpdatedAt,
	}
	if len(order.Items) > 0 {
		dto.Items = make([]OrderItemDTO, 0, len(order.Items))
		for _, item := range order.Items {
			dto.Items = append(dto.Items, NewOrderItemDTO(item))
		}
	}
	return dto
}
