package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"tablemate-dining-services/internal/billsplit"
	"tablemate-dining-services/internal/grouporder"
	"tablemate-dining-services/internal/pricing"
	"tablemate-dining-services/internal/session"
	"tablemate-dining-services/pkg/response"
)

const splitSelectionKeyPrefix = "bill-split:"

type splitToggleRequest struct {
	UnitID string `json:"unitId"`
}

type splitToggleGroupRequest struct {
	ItemID string `json:"itemId"`
	Notes  string `json:"notes"`
}

// loadAllocator rebuilds the allocator for a session: decompose the
// submitted orders, then apply the persisted selection when one exists. On
// the first visit the selection stays at its owner-hint default.
// Deterministic unit ids keep the persisted selection valid across
// recomputation of an unchanged order set.
func (h *Handler) loadAllocator(ctx context.Context, code string) (*billsplit.Allocator, bool, error) {
	submitted, err := h.Orders.SubmittedOrders(ctx, code)
	if err != nil {
		return nil, false, err
	}
	if len(submitted) == 0 {
		return nil, false, nil
	}

	isGroupOrder := false
	var ownItems []grouporder.OrderItem
	if coordinator, found, err := h.loadGroupOrder(ctx, code); err == nil && found {
		isGroupOrder = coordinator.IsGroupOrder()
		if current := coordinator.Registry().CurrentUser(); current != nil {
			ownItems = current.OrderItems
		}
	}

	allocator := billsplit.NewAllocator(billsplit.Decompose(submitted, ownItems, isGroupOrder))

	raw, exists, err := h.KV.Get(ctx, splitSelectionKeyPrefix+code)
	if err != nil {
		return nil, false, err
	}
	if exists {
		var ids []string
		if err := json.Unmarshal([]byte(raw), &ids); err == nil {
			allocator.RestoreSelection(ids)
		}
	}
	return allocator, true, nil
}

func (h *Handler) saveSelection(ctx context.Context, code string, allocator *billsplit.Allocator) error {
	encoded, err := json.Marshal(allocator.SelectedIDs())
	if err != nil {
		return err
	}
	return h.KV.Set(ctx, splitSelectionKeyPrefix+code, string(encoded))
}

func billSplitPayload(code string, allocator *billsplit.Allocator) map[string]any {
	return map[string]any{
		"sessionCode": code,
		"groups":      allocator.Groups(),
		"selectedIds": allocator.SelectedIDs(),
		"subtotal":    pricing.Round2(allocator.Subtotal()),
	}
}

func (h *Handler) BillSplitView(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}

	allocator, found, err := h.loadAllocator(ctx, code)
	if err != nil {
		h.Logger.Error("bill split load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load the bill split")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "NO_SUBMITTED_ORDERS", "No submitted orders found for this session")
		return
	}

	response.Success(w, billSplitPayload(code, allocator))
}

func (h *Handler) BillSplitToggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	var body splitToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if code == "" || strings.TrimSpace(body.UnitID) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code and unit id are required")
		return
	}

	allocator, found, err := h.loadAllocator(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load the bill split")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "NO_SUBMITTED_ORDERS", "No submitted orders found for this session")
		return
	}

	allocator.Toggle(strings.TrimSpace(body.UnitID))
	if err := h.saveSelection(ctx, code, allocator); err != nil {
		h.Logger.Error("bill split selection save failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save the selection")
		return
	}

	response.Success(w, billSplitPayload(code, allocator))
}

func (h *Handler) BillSplitToggleGroup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	var body splitToggleGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if code == "" || strings.TrimSpace(body.ItemID) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code and item id are required")
		return
	}

	allocator, found, err := h.loadAllocator(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load the bill split")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "NO_SUBMITTED_ORDERS", "No submitted orders found for this session")
		return
	}

	allocator.ToggleGroup(strings.TrimSpace(body.ItemID), body.Notes)
	if err := h.saveSelection(ctx, code, allocator); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to save the selection")
		return
	}

	response.Success(w, billSplitPayload(code, allocator))
}

func (h *Handler) BillSplitFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}

	allocator, found, err := h.loadAllocator(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load the bill split")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "NO_SUBMITTED_ORDERS", "No submitted orders found for this session")
		return
	}

	selected, subtotal, err := allocator.Finalize()
	if err == billsplit.ErrEmptySelection {
		response.Error(w, http.StatusBadRequest, "EMPTY_SELECTION", "Select at least one item to pay for")
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to finalize the bill split")
		return
	}

	// The hand-off write completes before the response allows navigation
	// to the summary stage.
	if err := h.Sessions.Write(ctx, code, session.Payload{SelectedUnits: selected, Subtotal: subtotal}); err != nil {
		h.Logger.Error("payment session write failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to prepare the payment session")
		return
	}

	h.publishEvent(ctx, "bill-split.finalized", map[string]any{
		"sessionCode": code,
		"unitCount":   len(selected),
		"subtotal":    pricing.Round2(subtotal),
	})

	response.Success(w, map[string]any{
		"sessionCode": code,
		"unitCount":   len(selected),
		"subtotal":    pricing.Round2(subtotal),
	})
}
