package catalog

import (
	"net/http"
	"strings"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/api/validators"
	internalcatalog "github.com/outre-records/inventory-core/internal/catalog"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/outbox"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

const maxSearchLength = 100

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
}

func CreateSupplier(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		var payload internalcatalog.CreateSupplierInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.CreateSupplier(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, supplier)
	}
}

func ListSuppliers(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		suppliers, err := svc.ListSuppliers(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suppliers)
	}
}

func GetSupplier(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		supplierID, err := validators.ParseURLUUID(r, "supplierId", "supplier id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.GetSupplier(r.Context(), supplierID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, supplier)
	}
}

// CreateProduct registers a product. Any opening stock is booked as a purchase
// movement attributed to the calling actor.
func CreateProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		var payload internalcatalog.CreateProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.CreateProduct(r.Context(), outbox.ActorID(r.Context()), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

func UpdateProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload internalcatalog.UpdateProductInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.UpdateProduct(r.Context(), productID, payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func GetProduct(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		productID, err := validators.ParseURLUUID(r, "productId", "product id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListProducts supports supplier_id, low_stock and q filters plus cursor paging.
func ListProducts(svc internalcatalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lowStock, err := validators.ParseQueryBool(r, "low_stock")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalcatalog.ListProductsInput{
			Filters: internalcatalog.ProductFilters{
				SupplierID: supplierID,
				Query:      validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLength),
			},
			Pagination: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
		}
		if lowStock != nil {
			input.Filters.LowStockOnly = *lowStock
		}

		page, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}
