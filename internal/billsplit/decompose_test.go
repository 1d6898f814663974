package billsplit

import (
	"testing"

	"tablemate-dining-services/internal/grouporder"
	"tablemate-dining-services/internal/orders"
)

func TestDecomposeQuantityPreserving(t *testing.T) {
	cases := []struct {
		name      string
		submitted []orders.Order
		wantUnits int
	}{
		{
			name: "single line quantity 3",
			submitted: []orders.Order{
				{OrderID: "ORD-1", Items: []orders.Line{{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 3}}},
			},
			wantUnits: 3,
		},
		{
			name: "multiple orders and lines",
			submitted: []orders.Order{
				{OrderID: "ORD-1", Items: []orders.Line{
					{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 2},
					{ID: "cake", Name: "Cake", Price: 5.50, Quantity: 1},
				}},
				{OrderID: "ORD-2", Items: []orders.Line{
					{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 4},
				}},
			},
			wantUnits: 7,
		},
		{
			name: "zero quantity line contributes nothing",
			submitted: []orders.Order{
				{OrderID: "ORD-1", Items: []orders.Line{{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 0}}},
			},
			wantUnits: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			units := Decompose(tc.submitted, nil, false)
			if len(units) != tc.wantUnits {
				t.Fatalf("got %d units, want %d", len(units), tc.wantUnits)
			}
			for _, u := range units {
				if u.UnitPrice <= 0 && tc.wantUnits > 0 {
					t.Fatalf("unit %s carries price %v", u.ID, u.UnitPrice)
				}
			}
		})
	}
}

func TestDecomposeUnitPricePerUnit(t *testing.T) {
	submitted := []orders.Order{
		{OrderID: "ORD-1", Items: []orders.Line{{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 3}}},
	}

	units := Decompose(submitted, nil, false)
	if len(units) != 3 {
		t.Fatalf("got %d units, want 3", len(units))
	}
	for _, u := range units {
		// Each unit carries the per-unit price, never the line total.
		if u.UnitPrice != 3.00 {
			t.Fatalf("unit price = %v, want 3.00", u.UnitPrice)
		}
	}
}

func TestDecomposeDeterministicIDs(t *testing.T) {
	submitted := []orders.Order{
		{OrderID: "ORD-1", Items: []orders.Line{
			{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 2},
			{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 1, Notes: "oat milk"},
		}},
	}

	first := Decompose(submitted, nil, true)
	second := Decompose(submitted, nil, true)
	if len(first) != len(second) {
		t.Fatalf("unit counts differ: %d vs %d", len(first), len(second))
	}

	seen := make(map[string]bool, len(first))
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Fatalf("id at %d differs across runs: %s vs %s", i, first[i].ID, second[i].ID)
		}
		if seen[first[i].ID] {
			t.Fatalf("id collision: %s", first[i].ID)
		}
		seen[first[i].ID] = true
	}
}

func TestDecomposeOwnerHint(t *testing.T) {
	submitted := []orders.Order{
		{OrderID: "ORD-1", Items: []orders.Line{
			{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 1},
			{ID: "coffee", Name: "Coffee", Price: 3.00, Quantity: 1, Notes: "oat milk"},
			{ID: "cake", Name: "Cake", Price: 5.50, Quantity: 1},
		}},
	}
	own := []grouporder.OrderItem{
		{ItemID: "coffee", Name: "Coffee", Notes: "oat milk", UnitPrice: 3.00, Quantity: 1},
	}

	units := Decompose(submitted, own, true)
	hints := make(map[string]bool)
	for _, u := range units {
		hints[u.ItemID+"|"+u.Notes] = u.OwnerHint
	}

	if hints["coffee|"] {
		t.Fatal("plain coffee is not the local diner's line")
	}
	if !hints["coffee|oat milk"] {
		t.Fatal("oat milk coffee matches the local diner's item and notes")
	}
	if hints["cake|"] {
		t.Fatal("cake is not the local diner's line")
	}

	// A solo diner pays for everything by default.
	for _, u := range Decompose(submitted, nil, false) {
		if !u.OwnerHint {
			t.Fatalf("solo decomposition left unit %s unhinted", u.ID)
		}
	}
}
