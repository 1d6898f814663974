package handlers

import (
	"encoding/json"
	"net/http"

	"tablemate-dining-services/internal/pricing"
	"tablemate-dining-services/internal/session"
	"tablemate-dining-services/pkg/response"
)

type paymentQuoteRequest struct {
	Subtotal float64           `json:"subtotal"`
	Tip      pricing.TipConfig `json:"tip"`
}

// PaymentSessionRead consumes the hand-off written by the bill-split
// finalize step. The payload is returned exactly once; a missing payload is
// the navigation-guard failure that sends the client back to the selection
// stage.
func (h *Handler) PaymentSessionRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}

	payload, err := h.Sessions.ReadAndClear(ctx, code)
	if err == session.ErrNoActiveSession {
		response.Error(w, http.StatusNotFound, "NO_ACTIVE_SESSION", "No payment session is active. Return to the selection stage.")
		return
	}
	if err != nil {
		h.Logger.Error("payment session read failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to read the payment session")
		return
	}

	response.Success(w, map[string]any{
		"sessionCode":   code,
		"selectedUnits": payload.SelectedUnits,
		"subtotal":      pricing.Round2(payload.Subtotal),
	})
}

// PaymentQuote computes tax, tip and the final payable total for a subtotal
// and tip configuration. Pure computation; nothing is persisted.
func (h *Handler) PaymentQuote(w http.ResponseWriter, r *http.Request) {
	var body paymentQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if body.Subtotal < 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Subtotal must not be negative")
		return
	}

	tip := pricing.ComputeTip(body.Subtotal, body.Tip)
	tax := body.Subtotal * h.Config.TaxRate

	response.Success(w, map[string]any{
		"subtotal": pricing.Round2(body.Subtotal),
		"taxRate":  h.Config.TaxRate,
		"tax":      pricing.Round2(tax),
		"tip":      pricing.Round2(tip),
		"total":    pricing.Round2(pricing.Total(body.Subtotal, h.Config.TaxRate, tip)),
	})
}
