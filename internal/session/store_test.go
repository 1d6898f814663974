package session

import (
	"context"
	"testing"

	"tablemate-dining-services/internal/billsplit"
	"tablemate-dining-services/internal/storage"
)

func testPayload(subtotal float64, ids ...string) Payload {
	units := make([]billsplit.Unit, 0, len(ids))
	for _, id := range ids {
		units = append(units, billsplit.Unit{ID: id, OrderID: "ORD-1", ItemID: "coffee", Name: "Coffee", UnitPrice: 3.00})
	}
	return Payload{SelectedUnits: units, Subtotal: subtotal}
}

func TestReadEmptySlot(t *testing.T) {
	s := NewStore(storage.NewMemory())
	if _, err := s.ReadAndClear(context.Background(), "AB12"); err != ErrNoActiveSession {
		t.Fatalf("expected ErrNoActiveSession, got %v", err)
	}
}

func TestWriteThenReadAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())

	if err := s.Write(ctx, "AB12", testPayload(6.00, "u1", "u2")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	payload, err := s.ReadAndClear(ctx, "AB12")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if len(payload.SelectedUnits) != 2 || payload.Subtotal != 6.00 {
		t.Fatalf("payload = %+v", payload)
	}

	// The slot is read exactly once.
	if _, err := s.ReadAndClear(ctx, "AB12"); err != ErrNoActiveSession {
		t.Fatalf("expected ErrNoActiveSession on second read, got %v", err)
	}
}

func TestSecondWriteDiscardsFirst(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())

	if err := s.Write(ctx, "AB12", testPayload(3.00, "u1")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if err := s.Write(ctx, "AB12", testPayload(9.00, "u1", "u2", "u3")); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	payload, err := s.ReadAndClear(ctx, "AB12")
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if payload.Subtotal != 9.00 || len(payload.SelectedUnits) != 3 {
		t.Fatalf("second write did not replace the first: %+v", payload)
	}
}

func TestSlotsAreIndependentPerSession(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemory())

	if err := s.Write(ctx, "AB12", testPayload(3.00, "u1")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if _, err := s.ReadAndClear(ctx, "ZZ99"); err != ErrNoActiveSession {
		t.Fatalf("expected ErrNoActiveSession for other session, got %v", err)
	}
	if _, err := s.ReadAndClear(ctx, "AB12"); err != nil {
		t.Fatalf("own slot must still hold the payload: %v", err)
	}
}
