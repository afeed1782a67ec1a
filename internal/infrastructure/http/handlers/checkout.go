package handlers

import (
	"net/http"
	"time"

	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/application/use_cases"
	"github.com/resexchange/marketplace/internal/infrastructure/http/response"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type CheckoutHandler struct {
	checkout   *use_cases.CheckoutUseCase
	cache      ports.Cache
	log        *logger.Logger
	sessionTTL time.Duration
}

func NewCheckoutHandler(checkout *use_cases.CheckoutUseCase, cache ports.Cache, log *logger.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkout:   checkout,
		cache:      cache,
		log:        log,
		sessionTTL: 24 * time.Hour,
	}
}

// HandleBegin starts a checkout for the session's cart, or for a single
// listing when listing_id is given. The response carries the provider's
// approval URL the buyer must visit.
func (h *CheckoutHandler) HandleBegin(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	userID := r.Header.Get("X-User-ID")
	if userID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"X-User-ID": "user header is required"})
		return
	}

	monitoring.RecordCheckoutBegin()

	result, err := h.checkout.BeginCheckout(r.Context(), use_cases.BeginCheckoutInput{
		SessionID: session,
		BuyerID:   userID,
		ListingID: r.URL.Query().Get("listing_id"),
		Currency:  r.URL.Query().Get("currency"),
	})
	if err != nil {
		h.log.Warn("Checkout begin failed", "error", err, "session_id", session)
		response.WriteDomainError(w, err)
		return
	}

	response.WriteSuccess(w, result)
}

// HandleSuccess is the provider's return URL after the buyer approved the
// payment. The provider appends paymentId and PayerID query parameters.
func (h *CheckoutHandler) HandleSuccess(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	intentID := params.Get("paymentId")
	payerID := params.Get("PayerID")

	errs := make(map[string]string)
	if intentID == "" {
		errs["paymentId"] = "paymentId is required"
	}
	if payerID == "" {
		errs["PayerID"] = "PayerID is required"
	}
	if len(errs) > 0 {
		response.WriteValidationError(w, "Validation failed", errs)
		return
	}

	outcome, err := h.checkout.ConfirmCheckout(r.Context(), intentID, payerID, r.Header.Get("X-User-ID"))
	if err != nil {
		monitoring.RecordCheckoutConfirm("failure")
		h.log.Warn("Checkout confirmation failed", "error", err, "intent_id", intentID)
		response.WriteDomainError(w, err)
		return
	}

	if outcome.Partial {
		monitoring.RecordCheckoutPartial()
	}
	monitoring.RecordCheckoutConfirm("success")

	response.WriteSuccess(w, outcome)
}

// HandleCancel is the provider's cancel URL; the attempt id was embedded
// when the intent was created because the provider sends no payment id on
// cancellation.
func (h *CheckoutHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	attemptID := r.URL.Query().Get("attempt_id")
	if attemptID == "" {
		response.WriteValidationError(w, "Validation failed", map[string]string{"attempt_id": "attempt_id is required"})
		return
	}

	if err := h.checkout.CancelCheckout(r.Context(), attemptID); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	monitoring.RecordCheckoutConfirm("cancelled")
	response.WriteSuccess(w, map[string]string{"status": "cancelled"})
}

// HandleCurrency pins the session's display and checkout currency.
func (h *CheckoutHandler) HandleCurrency(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionID(w, r)
	if !ok {
		return
	}

	currency := r.URL.Query().Get("currency")
	if len(currency) != 3 {
		response.WriteValidationError(w, "Validation failed", map[string]string{"currency": "currency must be a 3-letter code"})
		return
	}

	if err := h.cache.SetSessionCurrency(r.Context(), session, currency, h.sessionTTL); err != nil {
		response.WriteDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
