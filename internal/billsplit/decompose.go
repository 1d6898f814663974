// Package billsplit decomposes submitted orders into atomic billable units
// so any diner can pay for any fraction of a shared order, and manages the
// selectable subset the current payer has claimed.
package billsplit

import (
	"fmt"

	"tablemate-dining-services/internal/grouporder"
	"tablemate-dining-services/internal/orders"
)

// Unit is the smallest payable slice of an order line: one unit of quantity
// at the line's per-unit price.
type Unit struct {
	ID        string  `json:"id"`
	OrderID   string  `json:"orderId"`
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unitPrice"`
	Notes     string  `json:"notes"`
	OwnerHint bool    `json:"ownerHint"`
}

// UnitID derives the deterministic unit id. The inputs are stable for the
// life of the session, so re-running decomposition on an unchanged order set
// reproduces identical ids and selection state keyed by id survives
// recomputation.
func UnitID(orderID, itemID string, lineIndex, occurrence int) string {
	return fmt.Sprintf("%s:%s:%d:%d", orderID, itemID, lineIndex, occurrence)
}

// Decompose materializes one Unit per integer quantity of every order line.
// A line with quantity 3 yields 3 units priced at the line's per-unit price;
// the line total is never carried as a single unit.
//
// A unit's owner hint is true when its line matches the local diner's own
// items by item id and notes. Outside a group order every unit is hinted:
// a solo diner pays for everything by default.
func Decompose(submitted []orders.Order, ownItems []grouporder.OrderItem, isGroupOrder bool) []Unit {
	own := make(map[ownKey]bool, len(ownItems))
	for _, item := range ownItems {
		own[ownKey{itemID: item.ItemID, notes: item.Notes}] = true
	}

	units := make([]Unit, 0)
	for _, order := range submitted {
		for lineIndex, line := range order.Items {
			if line.Quantity <= 0 {
				continue
			}
			hint := !isGroupOrder || own[ownKey{itemID: line.ID, notes: line.Notes}]
			for occurrence := 0; occurrence < int(line.Quantity); occurrence++ {
				units = append(units, Unit{
					ID:        UnitID(order.OrderID, line.ID, lineIndex, occurrence),
					OrderID:   order.OrderID,
					ItemID:    line.ID,
					Name:      line.Name,
					UnitPrice: line.Price,
					Notes:     line.Notes,
					OwnerHint: hint,
				})
			}
		}
	}
	return units
}

type ownKey struct {
	itemID string
	notes  string
}
