// Package session carries the chosen bill-split selection from the selection
// stage to the payment-summary stage. The store is a single-slot mailbox per
// dining session, not a queue: a second write silently discards the first
// payload, and reading an empty slot is a hard navigation-guard failure.
package session

import (
	"context"
	"encoding/json"
	"errors"

	"tablemate-dining-services/internal/billsplit"
	"tablemate-dining-services/internal/storage"
)

// ErrNoActiveSession signals a read from an empty slot. The only recovery is
// redirecting back to the selection stage, never fabricating a selection.
var ErrNoActiveSession = errors.New("no active payment session")

// Payload is the serialized hand-off between the two stages.
type Payload struct {
	SelectedUnits []billsplit.Unit `json:"selectedUnits"`
	Subtotal      float64          `json:"subtotal"`
}

// Slot states. The stored envelope makes the two-state machine explicit
// rather than leaving it implicit in key presence.
const (
	stateEmpty   = "empty"
	stateHolding = "holding"
)

type envelope struct {
	State   string  `json:"state"`
	Payload Payload `json:"payload"`
}

type Store struct {
	kv storage.KV
}

func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

func slotKey(sessionCode string) string {
	return "payment-session:" + sessionCode
}

// Write moves the slot to holding, overwriting whatever was there.
func (s *Store) Write(ctx context.Context, sessionCode string, payload Payload) error {
	encoded, err := json.Marshal(envelope{State: stateHolding, Payload: payload})
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, slotKey(sessionCode), string(encoded))
}

// ReadAndClear returns the held payload exactly once and moves the slot back
// to empty.
func (s *Store) ReadAndClear(ctx context.Context, sessionCode string) (Payload, error) {
	raw, exists, err := s.kv.Get(ctx, slotKey(sessionCode))
	if err != nil {
		return Payload{}, err
	}
	if !exists {
		return Payload{}, ErrNoActiveSession
	}
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Payload{}, err
	}
	if env.State != stateHolding {
		return Payload{}, ErrNoActiveSession
	}
	if err := s.kv.Delete(ctx, slotKey(sessionCode)); err != nil {
		return Payload{}, err
	}
	return env.Payload, nil
}
