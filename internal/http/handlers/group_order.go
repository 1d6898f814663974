package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"tablemate-dining-services/internal/grouporder"
	"tablemate-dining-services/internal/middleware"
	"tablemate-dining-services/internal/pricing"
	"tablemate-dining-services/internal/storage"
	"tablemate-dining-services/pkg/response"

	"github.com/google/uuid"
)

const groupOrderKeyPrefix = "group-order:"

type groupOrderCreateRequest struct {
	IsGroupOrder bool `json:"isGroupOrder"`
}

type participantAddRequest struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone"`
	Avatar     *string `json:"avatar"`
	IsFavorite bool    `json:"isFavorite"`
}

type participantItemsRequest struct {
	Items []grouporder.OrderItem `json:"items"`
}

type participantInstructionsRequest struct {
	Instructions string `json:"instructions"`
}

type participantReadyRequest struct {
	Ready bool `json:"ready"`
}

func (h *Handler) loadGroupOrder(ctx context.Context, code string) (*grouporder.Coordinator, bool, error) {
	raw, exists, err := h.KV.Get(ctx, groupOrderKeyPrefix+code)
	if err != nil || !exists {
		return nil, false, err
	}
	var state grouporder.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, false, err
	}
	return grouporder.Restore(state), true, nil
}

func (h *Handler) saveGroupOrder(ctx context.Context, code string, coordinator *grouporder.Coordinator) error {
	encoded, err := json.Marshal(coordinator.Snapshot())
	if err != nil {
		return err
	}
	return h.KV.Set(ctx, groupOrderKeyPrefix+code, string(encoded))
}

// notifyGroupOrderUpdate wakes the websocket broadcaster for this session.
func (h *Handler) notifyGroupOrderUpdate(ctx context.Context, code string) {
	if h.DB == nil {
		return
	}
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return
	}
	_, _ = h.DB.Exec(ctx, `select pg_notify('group_order_updates', $1)`, strings.ToUpper(trimmed))
}

func (h *Handler) GroupOrderCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body groupOrderCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	identity := middleware.IdentityFrom(ctx)
	if identity == nil {
		response.Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "A valid identity token is required")
		return
	}

	code := ""
	for attempts := 0; attempts < 10; attempts++ {
		candidate := generateSessionCode()
		if _, exists, err := h.KV.Get(ctx, groupOrderKeyPrefix+candidate); err == nil && !exists {
			code = candidate
			break
		}
	}
	if code == "" {
		response.Error(w, http.StatusInternalServerError, "CODE_GENERATION_FAILED", "Unable to generate unique session code. Please try again.")
		return
	}

	coordinator := grouporder.NewCoordinator(body.IsGroupOrder)
	registry := coordinator.Registry()
	if _, err := registry.Add(grouporder.Seed{
		ID:    grouporder.LocalParticipantID,
		Name:  identity.Name,
		Email: identity.Email,
	}); err != nil {
		h.Logger.Error("group order host seed failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create group order session")
		return
	}
	_ = registry.SetCurrentUser(grouporder.LocalParticipantID)

	if err := h.saveGroupOrder(ctx, code, coordinator); err != nil {
		h.Logger.Error("group order session create failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create group order session")
		return
	}

	h.notifyGroupOrderUpdate(ctx, code)
	response.Created(w, buildGroupOrderSnapshot(code, coordinator), "Group order session created successfully")
}

func (h *Handler) GroupOrderSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}

	coordinator, found, err := h.loadGroupOrder(ctx, code)
	if err != nil {
		h.Logger.Error("group order session load failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load group order session")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Invalid code or session has ended. Please check the code and try again.")
		return
	}

	response.Success(w, buildGroupOrderSnapshot(code, coordinator))
}

func (h *Handler) GroupOrderParticipantAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}
	var body participantAddRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Participant name is required")
		return
	}

	coordinator, found, err := h.loadGroupOrder(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load group order session")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already ended")
		return
	}
	if coordinator.IsConfirmed() {
		response.Error(w, http.StatusConflict, "ALREADY_CONFIRMED", "The group order has already been confirmed")
		return
	}

	id := strings.TrimSpace(body.ID)
	if id == "" {
		id = uuid.NewString()
	}
	participant, err := coordinator.Registry().Add(grouporder.Seed{
		ID:         id,
		Name:       strings.TrimSpace(body.Name),
		Email:      strings.TrimSpace(body.Email),
		Phone:      body.Phone,
		Avatar:     body.Avatar,
		IsFavorite: body.IsFavorite,
	})
	if err == grouporder.ErrDuplicateID {
		response.Error(w, http.StatusConflict, "DUPLICATE_PARTICIPANT", "A participant with this id already exists")
		return
	}
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add participant")
		return
	}

	if err := h.saveGroupOrder(ctx, code, coordinator); err != nil {
		h.Logger.Error("group order participant add failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to add participant")
		return
	}

	h.notifyGroupOrderUpdate(ctx, code)
	response.Created(w, map[string]any{
		"participant": participantPayload(participant),
		"session":     buildGroupOrderSnapshot(code, coordinator),
	}, "Participant added to the group order")
}

func (h *Handler) GroupOrderParticipantRemove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	participantID := readPathString(r, "id")
	if code == "" || participantID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code and participant id are required")
		return
	}

	coordinator, found, err := h.loadGroupOrder(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load group order session")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already ended")
		return
	}
	if _, exists := coordinator.Registry().Get(participantID); !exists {
		response.Error(w, http.StatusNotFound, "PARTICIPANT_NOT_FOUND", "Participant is not part of this session")
		return
	}

	coordinator.Registry().Remove(participantID)
	if err := h.saveGroupOrder(ctx, code, coordinator); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to remove participant")
		return
	}

	h.notifyGroupOrderUpdate(ctx, code)
	response.Success(w, buildGroupOrderSnapshot(code, coordinator))
}

// mutateParticipant runs one registry mutation under the read-compute-write
// discipline and replies with the refreshed snapshot.
func (h *Handler) mutateParticipant(w http.ResponseWriter, r *http.Request, mutate func(registry *grouporder.Registry, id string) error) {
	ctx := r.Context()
	code := readSessionCode(r)
	participantID := readPathString(r, "id")
	if code == "" || participantID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code and participant id are required")
		return
	}

	coordinator, found, err := h.loadGroupOrder(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load group order session")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already ended")
		return
	}
	if coordinator.IsConfirmed() {
		response.Error(w, http.StatusConflict, "ALREADY_CONFIRMED", "The group order has already been confirmed")
		return
	}

	if err := mutate(coordinator.Registry(), participantID); err != nil {
		if err == grouporder.ErrUnknownParticipant {
			response.Error(w, http.StatusNotFound, "PARTICIPANT_NOT_FOUND", "Participant is not part of this session")
			return
		}
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if err := h.saveGroupOrder(ctx, code, coordinator); err != nil {
		h.Logger.Error("group order update failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to update group order session")
		return
	}

	h.notifyGroupOrderUpdate(ctx, code)
	response.Success(w, buildGroupOrderSnapshot(code, coordinator))
}

func (h *Handler) GroupOrderParticipantItems(w http.ResponseWriter, r *http.Request) {
	var body participantItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	for _, item := range body.Items {
		if item.Quantity <= 0 || item.UnitPrice < 0 {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Items require a positive quantity and a non-negative price")
			return
		}
	}
	h.mutateParticipant(w, r, func(registry *grouporder.Registry, id string) error {
		if err := registry.UpdateItems(id, body.Items); err != nil {
			return err
		}
		return registry.SetStatus(id, grouporder.StatusJoined)
	})
}

func (h *Handler) GroupOrderParticipantInstructions(w http.ResponseWriter, r *http.Request) {
	var body participantInstructionsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.mutateParticipant(w, r, func(registry *grouporder.Registry, id string) error {
		return registry.UpdateInstructions(id, body.Instructions)
	})
}

func (h *Handler) GroupOrderParticipantReady(w http.ResponseWriter, r *http.Request) {
	var body participantReadyRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	h.mutateParticipant(w, r, func(registry *grouporder.Registry, id string) error {
		if err := registry.SetReady(id, body.Ready); err != nil {
			return err
		}
		return registry.SetStatus(id, grouporder.StatusJoined)
	})
}

func (h *Handler) GroupOrderConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}

	coordinator, found, err := h.loadGroupOrder(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load group order session")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already ended")
		return
	}

	if !coordinator.Confirm() {
		notReady := coordinator.NotReadyCount()
		message := "The group order cannot be confirmed yet"
		if notReady > 0 {
			message = "Waiting on participants who are not ready or have an empty cart"
		}
		response.JSON(w, http.StatusConflict, map[string]any{
			"success":       false,
			"error":         "CONFIRM_BLOCKED",
			"message":       message,
			"notReadyCount": notReady,
		})
		return
	}

	if err := h.saveGroupOrder(ctx, code, coordinator); err != nil {
		h.Logger.Error("group order confirm failed", zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to confirm group order")
		return
	}

	snapshot := buildGroupOrderSnapshot(code, coordinator)
	h.publishEvent(ctx, "group-order.confirmed", map[string]any{
		"sessionCode":      code,
		"participantCount": coordinator.Registry().Len(),
		"groupTotal":       snapshot["groupTotal"],
	})
	h.notifyGroupOrderUpdate(ctx, code)
	response.Success(w, snapshot)
}

func (h *Handler) GroupOrderClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	code := readSessionCode(r)
	if code == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Session code is required")
		return
	}

	coordinator, found, err := h.loadGroupOrder(ctx, code)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load group order session")
		return
	}
	if !found {
		response.Error(w, http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found or already ended")
		return
	}

	coordinator.Clear()
	if err := h.KV.Delete(ctx, groupOrderKeyPrefix+code); err != nil {
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to clear group order session")
		return
	}
	_ = h.KV.Delete(ctx, splitSelectionKeyPrefix+code)

	h.notifyGroupOrderUpdate(ctx, code)
	response.Success(w, map[string]any{"sessionCleared": true})
}

func participantPayload(p *grouporder.Participant) map[string]any {
	items := p.OrderItems
	if items == nil {
		items = []grouporder.OrderItem{}
	}
	payload := map[string]any{
		"id":                  p.ID,
		"name":                p.Name,
		"email":               p.Email,
		"isFavorite":          p.IsFavorite,
		"orderItems":          items,
		"specialInstructions": p.SpecialInstructions,
		"status":              p.Status,
		"isReady":             p.IsReady,
		"total":               pricing.Round2(pricing.ParticipantTotal(p.OrderItems)),
	}
	if p.Phone != nil {
		payload["phone"] = *p.Phone
	}
	if p.Avatar != nil {
		payload["avatar"] = *p.Avatar
	}
	return payload
}

func buildGroupOrderSnapshot(code string, coordinator *grouporder.Coordinator) map[string]any {
	participants := coordinator.Registry().Participants()
	payloads := make([]map[string]any, 0, len(participants))
	for _, p := range participants {
		payloads = append(payloads, participantPayload(p))
	}

	var currentUserID any
	if current := coordinator.Registry().CurrentUser(); current != nil {
		currentUserID = current.ID
	}

	return map[string]any{
		"sessionCode":   code,
		"isGroupOrder":  coordinator.IsGroupOrder(),
		"isConfirmed":   coordinator.IsConfirmed(),
		"canConfirm":    coordinator.CanConfirm(),
		"notReadyCount": coordinator.NotReadyCount(),
		"currentUserId": currentUserID,
		"participants":  payloads,
		"groupTotal":    pricing.Round2(pricing.GroupTotal(participants)),
	}
}

// FetchGroupOrderSnapshot loads the session snapshot for the websocket
// broadcaster; same shape as the HTTP API.
func FetchGroupOrderSnapshot(ctx context.Context, kv storage.KV, code string) (map[string]any, bool, error) {
	sessionCode := strings.ToUpper(strings.TrimSpace(code))
	if sessionCode == "" {
		return nil, false, nil
	}
	raw, exists, err := kv.Get(ctx, groupOrderKeyPrefix+sessionCode)
	if err != nil || !exists {
		return nil, false, err
	}
	var state grouporder.State
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, false, err
	}
	return buildGroupOrderSnapshot(sessionCode, grouporder.Restore(state)), true, nil
}
