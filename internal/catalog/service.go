package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/outre-records/inventory-core/internal/inventory"
	"github.com/outre-records/inventory-core/pkg/db"
	"github.com/outre-records/inventory-core/pkg/db/models"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// stockRecorder books opening stock through the ledger.
type stockRecorder interface {
	ApplyMovementTx(ctx context.Context, tx *gorm.DB, input inventory.ApplyMovementInput) (*models.StockMovement, error)
}

// Service manages the product and supplier records the core reads from.
type Service interface {
	CreateSupplier(ctx context.Context, input CreateSupplierInput) (*SupplierDTO, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*SupplierDTO, error)
	ListSuppliers(ctx context.Context) ([]SupplierDTO, error)
	CreateProduct(ctx context.Context, actor string, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error)
}

type service struct {
	repo   Repository
	tx     txRunner
	ledger stockRecorder
}

// NewService wires the catalog service.
func NewService(repo Repository, tx txRunner, ledger stockRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	return &service{repo: repo, tx: tx, ledger: ledger}, nil
}

func (s *service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (*SupplierDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid supplier type %q", input.Type)
	}
	if err := validateRate("commission_rate", input.CommissionRate); err != nil {
		return nil, err
	}

	supplier := &models.Supplier{
		Name:  name,
		Type:  input.Type,
		Email: input.Email,
	}
	if input.CommissionRate != nil {
		supplier.CommissionRate = decimal.NewNullDecimal(*input.CommissionRate)
	}
	created, err := s.repo.CreateSupplier(ctx, supplier)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert supplier")
	}
	return NewSupplierDTO(created), nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*SupplierDTO, error) {
	supplier, err := s.repo.FindSupplier(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "supplier")
	}
	return NewSupplierDTO(supplier), nil
}

func (s *service) ListSuppliers(ctx context.Context) ([]SupplierDTO, error) {
	rows, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	out := make([]SupplierDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewSupplierDTO(&rows[i]))
	}
	return out, nil
}

// CreateProduct inserts the product with zero stock and, in the same transaction,
// books any opening stock as a purchase movement.
func (s *service) CreateProduct(ctx context.Context, actor string, input CreateProductInput) (*ProductDTO, error) {
	if strings.TrimSpace(input.SKU) == "" || strings.TrimSpace(input.Title) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and title are required")
	}
	if input.OpeningStock < 0 || input.StockThreshold < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening_stock and stock_threshold must be >= 0")
	}
	if input.CostPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_price must be >= 0")
	}
	if err := validateRate("consignment_rate", input.ConsignmentRate); err != nil {
		return nil, err
	}

	var productID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product := &models.Product{
			SKU:            strings.TrimSpace(input.SKU),
			Title:          strings.TrimSpace(input.Title),
			Artist:         input.Artist,
			Format:         input.Format,
			StockThreshold: input.StockThreshold,
			CostPrice:      input.CostPrice.Round(2),
		}
		if input.ConsignmentRate != nil {
			product.ConsignmentRate = decimal.NewNullDecimal(*input.ConsignmentRate)
		}
		if input.SupplierID != nil {
			supplier, err := repo.FindSupplier(ctx, *input.SupplierID)
			if err != nil {
				return notFoundOr(err, "supplier")
			}
			product.SupplierID = &supplier.ID
			typ := supplier.Type
			product.SupplierType = &typ
		}

		created, err := repo.CreateProduct(ctx, product)
		if err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Newf(pkgerrors.CodeConflict, "sku %q already exists", product.SKU)
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		productID = created.ID

		if input.OpeningStock > 0 {
			reason := "opening stock"
			in := inventory.ApplyMovementInput{
				ProductID:  created.ID,
				Type:       enums.MovementPurchase,
				Quantity:   input.OpeningStock,
				SupplierID: created.SupplierID,
				UnitCost:   decimal.NewNullDecimal(created.CostPrice),
				Reason:     &reason,
			}
			if actor != "" {
				in.CreatedBy = &actor
			}
			if _, err := s.ledger.ApplyMovementTx(ctx, tx, in); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, productID)
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	updates := map[string]any{}
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "title cannot be blank")
		}
		updates["title"] = title
	}
	if input.Artist != nil {
		updates["artist"] = *input.Artist
	}
	if input.Format != nil {
		updates["format"] = *input.Format
	}
	if input.StockThreshold != nil {
		if *input.StockThreshold < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "stock_threshold must be >= 0")
		}
		updates["stock_threshold"] = *input.StockThreshold
	}
	if input.CostPrice != nil {
		if input.CostPrice.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_price must be >= 0")
		}
		updates["cost_price"] = input.CostPrice.Round(2)
	}
	if input.ConsignmentRate != nil {
		if err := validateRate("consignment_rate", input.ConsignmentRate); err != nil {
			return nil, err
		}
		updates["consignment_rate"] = decimal.NewNullDecimal(*input.ConsignmentRate)
	}

	if err := s.repo.UpdateProductDetails(ctx, id, updates); err != nil {
		return nil, notFoundOr(err, "product")
	}
	return s.GetProduct(ctx, id)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindProduct(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "product")
	}
	return NewProductDTO(product), nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*pagination.Page[ProductDTO], error) {
	if _, err := pagination.ParseCursor(input.Pagination.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListProducts(ctx, input.Pagination, input.Filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	dtos := make([]ProductDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *NewProductDTO(&rows[i]))
	}
	page := pagination.BuildPage(dtos, input.Pagination.Limit, func(p ProductDTO) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	return &page, nil
}

func validateRate(field string, rate *decimal.Decimal) error {
	if rate == nil {
		return nil
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must be between 0 and 1", field)
	}
	return nil
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "%s not found", entity)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+entity)
}
