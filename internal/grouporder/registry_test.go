package grouporder

import "testing"

func TestRegistryAdd(t *testing.T) {
	r := NewRegistry()

	p, err := r.Add(Seed{ID: "p1", Name: "Alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != StatusPending {
		t.Fatalf("expected pending status, got %s", p.Status)
	}
	if p.IsReady {
		t.Fatalf("expected new participant not ready")
	}
	if len(p.OrderItems) != 0 {
		t.Fatalf("expected empty item list")
	}
	if p.SpecialInstructions != "" {
		t.Fatalf("expected empty instructions")
	}

	if _, err := r.Add(Seed{ID: "p1", Name: "Impostor"}); err != ErrDuplicateID {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("duplicate add must not grow the registry")
	}
	if got, _ := r.Get("p1"); got.Name != "Alice" {
		t.Fatalf("duplicate add must not overwrite, got name %s", got.Name)
	}
}

func TestRegistryCurrentUserIsDerived(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Add(Seed{ID: LocalParticipantID, Name: "Me"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.SetCurrentUser(LocalParticipantID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A mutation through the registry must be visible through the
	// current-user view: both are the same participant.
	items := []OrderItem{{ItemID: "m1", Name: "Pad Thai", UnitPrice: 12.5, Quantity: 2}}
	if err := r.UpdateItems(LocalParticipantID, items); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	current := r.CurrentUser()
	if current == nil {
		t.Fatal("expected a current user")
	}
	if len(current.OrderItems) != 1 || current.OrderItems[0].Name != "Pad Thai" {
		t.Fatalf("current-user view diverged from the collection: %+v", current.OrderItems)
	}

	if err := r.SetReady(LocalParticipantID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !r.CurrentUser().IsReady {
		t.Fatal("readiness not visible through the current-user view")
	}
}

func TestRegistryRemoveClearsCurrentUser(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add(Seed{ID: "me", Name: "Me"})
	_, _ = r.Add(Seed{ID: "friend", Name: "Friend"})
	_ = r.SetCurrentUser("me")

	r.Remove("friend")
	if r.CurrentUser() == nil {
		t.Fatal("removing another participant must not clear the current user")
	}

	r.Remove("me")
	if r.CurrentUser() != nil {
		t.Fatal("removing the current user must clear the pointer")
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistryStatusIsMonotonic(t *testing.T) {
	r := NewRegistry()
	_, _ = r.Add(Seed{ID: "p1", Name: "Alice"})

	_ = r.SetStatus("p1", StatusOrdered)
	_ = r.SetStatus("p1", StatusJoined)

	p, _ := r.Get("p1")
	if p.Status != StatusOrdered {
		t.Fatalf("status regressed to %s", p.Status)
	}
}

func TestRegistryUnknownParticipant(t *testing.T) {
	r := NewRegistry()

	if err := r.UpdateItems("ghost", nil); err != ErrUnknownParticipant {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
	if err := r.SetReady("ghost", true); err != ErrUnknownParticipant {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
	if err := r.SetCurrentUser("ghost"); err != ErrUnknownParticipant {
		t.Fatalf("expected ErrUnknownParticipant, got %v", err)
	}
}

func TestRegistryJoinOrder(t *testing.T) {
	r := NewRegistry()
	for _, id := range []string{"c", "a", "b"} {
		if _, err := r.Add(Seed{ID: id, Name: id}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	participants := r.Participants()
	if len(participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(participants))
	}
	for i, want := range []string{"c", "a", "b"} {
		if participants[i].ID != want {
			t.Fatalf("expected %s at position %d, got %s", want, i, participants[i].ID)
		}
	}
}
