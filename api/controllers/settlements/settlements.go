package settlements

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/outre-records/inventory-core/api/responses"
	"github.com/outre-records/inventory-core/api/validators"
	internalsettlements "github.com/outre-records/inventory-core/internal/settlements"
	"github.com/outre-records/inventory-core/pkg/enums"
	pkgerrors "github.com/outre-records/inventory-core/pkg/errors"
	"github.com/outre-records/inventory-core/pkg/logger"
	"github.com/outre-records/inventory-core/pkg/pagination"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type markPaidRequest struct {
	PaymentReference *string `json:"payment_reference"`
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlements service unavailable"))
}

func period(r *http.Request) (time.Time, time.Time, error) {
	query := r.URL.Query()
	return internalsettlements.ParsePeriod(query.Get("period_start"), query.Get("period_end"))
}

// SupplierSettlement computes what one supplier earned over the requested period.
func SupplierSettlement(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
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
		start, end, err := period(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		settlement, err := svc.ComputeForSupplier(r.Context(), supplierID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, settlement)
	}
}

// AllSettlements computes every supplier's settlement for the period.
func AllSettlements(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		start, end, err := period(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, err := svc.ComputeAll(r.Context(), start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// Report renders the period's settlements as a spreadsheet download. The
// workbook is buffered so a failure still produces a JSON error.
func Report(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		start, end, err := period(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var buf bytes.Buffer
		if err := svc.WriteReport(r.Context(), &buf, start, end); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filename := fmt.Sprintf("settlements_%s_%s.xlsx", start.Format("2006-01-02"), end.Format("2006-01-02"))
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		w.WriteHeader(http.StatusOK)
		if _, err := buf.WriteTo(w); err != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "settlement report write failed")
		}
	}
}

// CreatePayout records a pending payout with the caller's amounts.
func CreatePayout(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		var payload internalsettlements.CreatePayoutInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.CreatePayout(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

func ListPayouts(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
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
		filters, err := payoutFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListPayouts(r.Context(), internalsettlements.ListPayoutsInput{
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
			Filters: filters,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func payoutFilters(r *http.Request) (internalsettlements.PayoutFilters, error) {
	var filters internalsettlements.PayoutFilters
	supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
	if err != nil {
		return filters, err
	}
	filters.SupplierID = supplierID
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePayoutStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		filters.Status = &status
	}
	return filters, nil
}

func payoutCommand(logg *logger.Logger, svc internalsettlements.Service, fn func(ctx context.Context, w http.ResponseWriter, r *http.Request, payoutID uuid.UUID)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg)
			return
		}
		payoutID, err := validators.ParseURLUUID(r, "payoutId", "payout id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		fn(r.Context(), w, r, payoutID)
	}
}

func GetPayout(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, payoutID uuid.UUID) {
		payout, err := svc.GetPayout(ctx, payoutID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	})
}

// MarkPaid settles a pending payout. A payout that is already paid is rejected.
func MarkPaid(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, payoutID uuid.UUID) {
		var payload markPaidRequest
		if err := validators.DecodeOptionalJSONBody(r, &payload); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		payout, err := svc.MarkPaid(ctx, payoutID, payload.PaymentReference)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	})
}

func DeletePayout(svc internalsettlements.Service, logg *logger.Logger) http.HandlerFunc {
	return payoutCommand(logg, svc, func(ctx context.Context, w http.ResponseWriter, r *http.Request, payoutID uuid.UUID) {
		if err := svc.DeletePayout(ctx, payoutID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	})
}
