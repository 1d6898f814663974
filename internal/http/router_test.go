package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tablemate-dining-services/internal/auth"
	"tablemate-dining-services/internal/config"
	"tablemate-dining-services/internal/orders"
	"tablemate-dining-services/internal/storage"

	"go.uber.org/zap"
)

const testSecret = "test-secret"

type envelope struct {
	Success       bool            `json:"success"`
	Data          json.RawMessage `json:"data"`
	Error         string          `json:"error"`
	Message       string          `json:"message"`
	NotReadyCount *int            `json:"notReadyCount"`
}

type harness struct {
	t      *testing.T
	router http.Handler
	orders *orders.Memory
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	orderStore := orders.NewMemory()
	cfg := config.Config{
		Env:       "test",
		JWTSecret: testSecret,
		TaxRate:   0.16,
	}
	router := NewRouter(Deps{
		KV:     storage.NewMemory(),
		Orders: orderStore,
		Logger: zap.NewNop(),
		Config: cfg,
	})

	token, err := auth.SignDinerToken(auth.Identity{UserID: "u-77", Name: "Me", Email: "me@example.com"}, testSecret, time.Hour)
	if err != nil {
		t.Fatalf("token sign failed: %v", err)
	}

	return &harness{t: t, router: router, orders: orderStore, token: token}
}

func (h *harness) do(method, path string, body any) (int, envelope) {
	h.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			h.t.Fatalf("marshal request failed: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader([]byte("{}"))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+h.token)
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		h.t.Fatalf("decode response failed (%s %s, status %d): %v", method, path, rec.Code, err)
	}
	return rec.Code, env
}

func (h *harness) decodeData(env envelope, out any) {
	h.t.Helper()
	if err := json.Unmarshal(env.Data, out); err != nil {
		h.t.Fatalf("decode data failed: %v", err)
	}
}

func (h *harness) createGroupSession() string {
	h.t.Helper()
	status, env := h.do(http.MethodPost, "/api/dining/group-orders", map[string]any{"isGroupOrder": true})
	if status != http.StatusCreated {
		h.t.Fatalf("create session status = %d (%s)", status, env.Message)
	}
	var data struct {
		SessionCode string `json:"sessionCode"`
	}
	h.decodeData(env, &data)
	if data.SessionCode == "" {
		h.t.Fatal("missing session code")
	}
	return data.SessionCode
}

func TestAuthRequired(t *testing.T) {
	h := newHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/dining/group-orders", bytes.NewReader([]byte("{}")))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGroupOrderLifecycle(t *testing.T) {
	h := newHarness(t)
	code := h.createGroupSession()

	// The creator is seeded as the current-user participant.
	status, env := h.do(http.MethodGet, "/api/dining/group-orders/"+code, nil)
	if status != http.StatusOK {
		t.Fatalf("get session status = %d", status)
	}
	var session struct {
		IsGroupOrder  bool   `json:"isGroupOrder"`
		CanConfirm    bool   `json:"canConfirm"`
		NotReadyCount int    `json:"notReadyCount"`
		CurrentUserID string `json:"currentUserId"`
		Participants  []struct {
			ID     string  `json:"id"`
			Name   string  `json:"name"`
			Status string  `json:"status"`
			Total  float64 `json:"total"`
		} `json:"participants"`
		GroupTotal float64 `json:"groupTotal"`
	}
	h.decodeData(env, &session)
	if !session.IsGroupOrder || len(session.Participants) != 1 {
		t.Fatalf("session = %+v", session)
	}
	if session.CurrentUserID != "current-user" {
		t.Fatalf("currentUserId = %s", session.CurrentUserID)
	}
	if session.CanConfirm {
		t.Fatal("empty group session must not be confirmable")
	}

	// Add a friend.
	status, env = h.do(http.MethodPost, "/api/dining/group-orders/"+code+"/participants", map[string]any{
		"id": "friend", "name": "Friend", "email": "friend@example.com",
	})
	if status != http.StatusCreated {
		t.Fatalf("add participant status = %d (%s)", status, env.Message)
	}

	// Duplicate ids are rejected, not merged.
	status, env = h.do(http.MethodPost, "/api/dining/group-orders/"+code+"/participants", map[string]any{
		"id": "friend", "name": "Copycat",
	})
	if status != http.StatusConflict || env.Error != "DUPLICATE_PARTICIPANT" {
		t.Fatalf("duplicate add status = %d error = %s", status, env.Error)
	}

	// Current user: 2 items totaling $20, ready. Friend: still empty.
	_, _ = h.do(http.MethodPut, "/api/dining/group-orders/"+code+"/participants/current-user/items", map[string]any{
		"items": []map[string]any{
			{"itemId": "m1", "name": "Burger", "unitPrice": 12.0, "quantity": 1},
			{"itemId": "m2", "name": "Fries", "unitPrice": 8.0, "quantity": 1},
		},
	})
	_, _ = h.do(http.MethodPut, "/api/dining/group-orders/"+code+"/participants/current-user/ready", map[string]any{"ready": true})

	status, env = h.do(http.MethodPost, "/api/dining/group-orders/"+code+"/confirm", nil)
	if status != http.StatusConflict || env.Error != "CONFIRM_BLOCKED" {
		t.Fatalf("confirm status = %d error = %s, want blocked", status, env.Error)
	}
	if env.NotReadyCount == nil || *env.NotReadyCount != 1 {
		t.Fatalf("notReadyCount = %v, want 1", env.NotReadyCount)
	}

	// Friend adds one item and flags ready; the gate opens.
	_, _ = h.do(http.MethodPut, "/api/dining/group-orders/"+code+"/participants/friend/items", map[string]any{
		"items": []map[string]any{{"itemId": "m3", "name": "Soda", "unitPrice": 3.0, "quantity": 1}},
	})
	_, _ = h.do(http.MethodPut, "/api/dining/group-orders/"+code+"/participants/friend/ready", map[string]any{"ready": true})

	status, env = h.do(http.MethodPost, "/api/dining/group-orders/"+code+"/confirm", nil)
	if status != http.StatusOK {
		t.Fatalf("confirm status = %d (%s)", status, env.Message)
	}
	h.decodeData(env, &session)
	for _, p := range session.Participants {
		if p.Status != "ordered" {
			t.Fatalf("participant %s status = %s, want ordered", p.ID, p.Status)
		}
	}
	if session.GroupTotal != 23.0 {
		t.Fatalf("groupTotal = %v, want 23.0", session.GroupTotal)
	}

	// The confirmation is one-shot.
	status, _ = h.do(http.MethodPost, "/api/dining/group-orders/"+code+"/confirm", nil)
	if status != http.StatusConflict {
		t.Fatalf("repeat confirm status = %d, want 409", status)
	}

	// Clearing ends the session.
	status, _ = h.do(http.MethodDelete, "/api/dining/group-orders/"+code, nil)
	if status != http.StatusOK {
		t.Fatalf("clear status = %d", status)
	}
	status, _ = h.do(http.MethodGet, "/api/dining/group-orders/"+code, nil)
	if status != http.StatusNotFound {
		t.Fatalf("get cleared session status = %d, want 404", status)
	}
}

func TestParticipantValidation(t *testing.T) {
	h := newHarness(t)
	code := h.createGroupSession()

	status, env := h.do(http.MethodPost, "/api/dining/group-orders/"+code+"/participants", map[string]any{"name": "  "})
	if status != http.StatusBadRequest || env.Error != "VALIDATION_ERROR" {
		t.Fatalf("blank name status = %d error = %s", status, env.Error)
	}

	status, env = h.do(http.MethodPut, "/api/dining/group-orders/"+code+"/participants/ghost/ready", map[string]any{"ready": true})
	if status != http.StatusNotFound || env.Error != "PARTICIPANT_NOT_FOUND" {
		t.Fatalf("unknown participant status = %d error = %s", status, env.Error)
	}

	status, env = h.do(http.MethodPut, "/api/dining/group-orders/"+code+"/participants/current-user/items", map[string]any{
		"items": []map[string]any{{"itemId": "m1", "name": "Burger", "unitPrice": 12.0, "quantity": 0}},
	})
	if status != http.StatusBadRequest {
		t.Fatalf("zero quantity status = %d, want 400", status)
	}
}
