package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/crosscartapp/crosscart-backend/api/responses"
	"github.com/crosscartapp/crosscart-backend/api/validators"
	"github.com/crosscartapp/crosscart-backend/internal/remediation"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/pagination"
)

// ManualOrderList returns the remediation queue, oldest first.
func ManualOrderList(svc remediation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remediation service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.PendingOrders(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := manualOrderListResponse{
			Orders:     make([]orderResponse, 0, len(list.Orders)),
			NextCursor: list.NextCursor,
		}
		for i := range list.Orders {
			out.Orders = append(out.Orders, newOrderResponse(&list.Orders[i]))
		}
		responses.WriteSuccess(w, out)
	}
}

func ManualOrderFetch(svc remediation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remediation service unavailable"))
			return
		}

		order, err := svc.Order(r.Context(), chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ManualOrderInstructions renders the operator checklist for one queued order.
func ManualOrderInstructions(svc remediation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remediation service unavailable"))
			return
		}

		checklist, err := svc.Instructions(r.Context(), chi.URLParam(r, "orderNumber"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, checklist)
	}
}

// ManualOrderPlace records a placement the operator completed at the retailer.
func ManualOrderPlace(svc remediation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remediation service unavailable"))
			return
		}

		var payload manualPlaceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if payload.Notes != nil {
			notes := validators.SanitizeString(*payload.Notes, 2000)
			payload.Notes = &notes
		}

		order, err := svc.MarkPlaced(r.Context(), chi.URLParam(r, "orderNumber"), remediation.MarkPlacedInput{
			RetailerOrderNumber: payload.RetailerOrderNumber,
			TrackingNumber:      payload.TrackingNumber,
			Carrier:             payload.Carrier,
			EstimatedDelivery:   payload.EstimatedDelivery,
			Notes:               payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// ManualOrderFail closes a queued order the operator could not place.
func ManualOrderFail(svc remediation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remediation service unavailable"))
			return
		}

		var payload manualFailRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.MarkFailed(r.Context(), chi.URLParam(r, "orderNumber"), validators.SanitizeString(payload.Reason, 500))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

func ManualOrderStats(svc remediation.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "remediation service unavailable"))
			return
		}

		stats, err := svc.Statistics(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

type manualOrderListResponse struct {
	Orders     []orderResponse `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type manualPlaceRequest struct {
	RetailerOrderNumber string     `json:"retailer_order_number" validate:"required"`
	TrackingNumber      *string    `json:"tracking_number,omitempty"`
	Carrier             *string    `json:"carrier,omitempty"`
	EstimatedDelivery   *time.Time `json:"estimated_delivery,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
}

type manualFailRequest struct {
	Reason string `json:"reason" validate:"required"`
}
