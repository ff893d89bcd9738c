package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/crosscartapp/crosscart-backend/api/middleware"
	"github.com/crosscartapp/crosscart-backend/api/responses"
	"github.com/crosscartapp/crosscart-backend/api/validators"
	checkoutsvc "github.com/crosscartapp/crosscart-backend/internal/checkout"
	"github.com/crosscartapp/crosscart-backend/internal/orders"
	"github.com/crosscartapp/crosscart-backend/pkg/db/models"
	pkgerrors "github.com/crosscartapp/crosscart-backend/pkg/errors"
	"github.com/crosscartapp/crosscart-backend/pkg/logger"
	"github.com/crosscartapp/crosscart-backend/pkg/types"
)

// CheckoutSessionCreate freezes the shopper's active cart into a new session.
func CheckoutSessionCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initiateSessionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.Initiate(r.Context(), userID, checkoutsvc.InitiateInput{
			ShippingAddress:  payload.ShippingAddress,
			PaymentMethodRef: payload.PaymentMethodRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newSessionResponse(session))
	}
}

func CheckoutSessionFetch(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.GetSession(r.Context(), userID, chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutSessionShipping amends the destination on a pending session.
func CheckoutSessionShipping(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateShippingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.UpdateShipping(r.Context(), userID, chi.URLParam(r, "token"), payload.ShippingAddress)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutSessionPayment swaps the payment method on a pending session.
func CheckoutSessionPayment(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		session, err := svc.UpdatePayment(r.Context(), userID, chi.URLParam(r, "token"), payload.PaymentMethodRef)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSessionResponse(session))
	}
}

// CheckoutSessionPlace settles the session: payment capture, order fan-out,
// and the per-retailer outcome summary.
func CheckoutSessionPlace(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Place(r.Context(), userID, chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPlaceResponse(result))
	}
}

// CheckoutSessionOrders lists the retailer orders materialized from a session.
func CheckoutSessionOrders(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.SessionOrders(r.Context(), userID, chi.URLParam(r, "token"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out := make([]orderResponse, 0, len(rows))
		for i := range rows {
			out = append(out, newOrderResponse(&rows[i]))
		}
		responses.WriteSuccess(w, map[string]any{"orders": out})
	}
}

func userIDFromContext(r *http.Request) (uuid.UUID, error) {
	userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return userID, nil
}

type initiateSessionRequest struct {
	ShippingAddress  *types.ShippingAddress `json:"shipping_address"`
	PaymentMethodRef string                 `json:"payment_method_ref"`
}

type updateShippingRequest struct {
	ShippingAddress types.ShippingAddress `json:"shipping_address" validate:"required"`
}

type updatePaymentRequest struct {
	PaymentMethodRef string `json:"payment_method_ref" validate:"required"`
}

type sessionResponse struct {
	Token           string                 `json:"token"`
	Status          string                 `json:"status"`
	SubtotalCents   int                    `json:"subtotal_cents"`
	ShippingCents   int                    `json:"shipping_cents"`
	TaxCents        int                    `json:"tax_cents"`
	TotalCents      int                    `json:"total_cents"`
	Currency        string                 `json:"currency"`
	Plan            []planEntryResponse    `json:"plan"`
	ShippingAddress *types.ShippingAddress `json:"shipping_address,omitempty"`
	ErrorMessage    string                 `json:"error_message,omitempty"`
	ExpiresAt       time.Time              `json:"expires_at"`
	CompletedAt     *time.Time             `json:"completed_at,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

type planEntryResponse struct {
	RetailerID      string `json:"retailer_id"`
	ItemCount       int    `json:"item_count"`
	SubtotalCents   int    `json:"subtotal_cents"`
	Status          string `json:"status"`
	PlacementMethod string `json:"placement_method"`
}

type orderResponse struct {
	OrderNumber         string              `json:"order_number"`
	RetailerID          string              `json:"retailer_id"`
	Status              string              `json:"status"`
	PlacementMethod     string              `json:"placement_method"`
	SubtotalCents       int                 `json:"subtotal_cents"`
	ShippingCents       int                 `json:"shipping_cents"`
	TaxCents            int                 `json:"tax_cents"`
	TotalCents          int                 `json:"total_cents"`
	Currency            string              `json:"currency"`
	RetailerOrderNumber *string             `json:"retailer_order_number,omitempty"`
	TrackingNumber      *string             `json:"tracking_number,omitempty"`
	Carrier             *string             `json:"carrier,omitempty"`
	LastPlacementError  *string             `json:"last_placement_error,omitempty"`
	PlacedAt            *time.Time          `json:"placed_at,omitempty"`
	Items               []orderItemResponse `json:"items"`
	CreatedAt           time.Time           `json:"created_at"`
}

type orderItemResponse struct {
	ProductName    string `json:"product_name"`
	SKU            string `json:"sku"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
	TotalCents     int    `json:"total_cents"`
}

type placementReportResponse struct {
	OrderID        uuid.UUID `json:"order_id"`
	RetailerID     string    `json:"retailer_id"`
	Placed         bool      `json:"placed"`
	RequiresManual bool      `json:"requires_manual"`
	Method         string    `json:"method"`
	Reason         string    `json:"reason,omitempty"`
}

type placeSessionResponse struct {
	Session sessionResponse           `json:"session"`
	Orders  []orderResponse           `json:"orders"`
	Reports []placementReportResponse `json:"reports"`
}

func newSessionResponse(session *models.CheckoutSession) sessionResponse {
	out := sessionResponse{
		Token:           session.Token,
		Status:          session.Status.String(),
		SubtotalCents:   session.SubtotalCents,
		ShippingCents:   session.ShippingCents,
		TaxCents:        session.TaxCents,
		TotalCents:      session.TotalCents,
		Currency:        string(session.Currency),
		ShippingAddress: session.ShippingAddress,
		ExpiresAt:       session.ExpiresAt,
		CompletedAt:     session.CompletedAt,
		CreatedAt:       session.CreatedAt,
	}
	if session.ErrorMessage != nil {
		out.ErrorMessage = *session.ErrorMessage
	}
	out.Plan = make([]planEntryResponse, 0, len(session.Plan))
	for _, entry := range session.Plan {
		out.Plan = append(out.Plan, planEntryResponse{
			RetailerID:      entry.RetailerID,
			ItemCount:       entry.ItemCount,
			SubtotalCents:   entry.SubtotalCents,
			Status:          entry.Status.String(),
			PlacementMethod: entry.PlacementMethod.String(),
		})
	}
	return out
}

func newOrderResponse(order *models.RetailerOrder) orderResponse {
	out := orderResponse{
		OrderNumber:         order.OrderNumber,
		RetailerID:          order.RetailerID,
		Status:              order.Status.String(),
		PlacementMethod:     order.PlacementMethod.String(),
		SubtotalCents:       order.SubtotalCents,
		ShippingCents:       order.ShippingCents,
		TaxCents:            order.TaxCents,
		TotalCents:          order.TotalCents,
		Currency:            string(order.Currency),
		RetailerOrderNumber: order.RetailerOrderNumber,
		TrackingNumber:      order.TrackingNumber,
		Carrier:             order.Carrier,
		LastPlacementError:  order.LastPlacementError,
		PlacedAt:            order.PlacedAt,
		CreatedAt:           order.CreatedAt,
	}
	out.Items = make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		line := orderItemResponse{
			ProductName:    item.ProductName,
			SKU:            item.SKU,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
			TotalCents:     item.TotalCents,
		}
		if item.Size != nil {
			line.Size = *item.Size
		}
		if item.Color != nil {
			line.Color = *item.Color
		}
		out.Items = append(out.Items, line)
	}
	return out
}

func newPlaceResponse(result *checkoutsvc.PlaceResult) placeSessionResponse {
	out := placeSessionResponse{
		Session: newSessionResponse(result.Session),
		Orders:  make([]orderResponse, 0, len(result.Orders)),
		Reports: make([]placementReportResponse, 0, len(result.Reports)),
	}
	for i := range result.Orders {
		out.Orders = append(out.Orders, newOrderResponse(&result.Orders[i]))
	}
	for _, report := range result.Reports {
		out.Reports = append(out.Reports, newPlacementReportResponse(report))
	}
	return out
}

func newPlacementReportResponse(report orders.PlacementReport) placementReportResponse {
	return placementReportResponse{
		OrderID:        report.OrderID,
		RetailerID:     report.RetailerID,
		Placed:         report.Placed,
		RequiresManual: report.RequiresManual,
		Method:         report.Method.String(),
		Reason:         report.Reason,
	}
}
