package billsplit

import "errors"

// ErrEmptySelection rejects finalizing a bill split with nothing selected.
var ErrEmptySelection = errors.New("no bill units selected")

type GroupState string

const (
	GroupNone    GroupState = "none"
	GroupPartial GroupState = "partial"
	GroupFull    GroupState = "full"
)

// Group is the display view of all units sharing an (itemId, notes) identity.
type Group struct {
	ItemID        string     `json:"itemId"`
	Name          string     `json:"name"`
	Notes         string     `json:"notes"`
	UnitPrice     float64    `json:"unitPrice"`
	Count         int        `json:"count"`
	SelectedCount int        `json:"selectedCount"`
	State         GroupState `json:"state"`
	UnitIDs       []string   `json:"unitIds"`
}

// Allocator holds the decomposed units and the set of unit ids the current
// payer has claimed. The owner hint only seeds the default selection; no
// unit is ever off-limits to any payer.
type Allocator struct {
	units    []Unit
	selected map[string]bool
}

// NewAllocator seeds the selection with every owner-hinted unit.
func NewAllocator(units []Unit) *Allocator {
	a := &Allocator{units: units, selected: make(map[string]bool)}
	for _, u := range units {
		if u.OwnerHint {
			a.selected[u.ID] = true
		}
	}
	return a
}

// RestoreSelection replaces the selection with the ids that still resolve to
// a known unit. Stale ids from an older order set are dropped.
func (a *Allocator) RestoreSelection(ids []string) {
	known := make(map[string]bool, len(a.units))
	for _, u := range a.units {
		known[u.ID] = true
	}
	a.selected = make(map[string]bool)
	for _, id := range ids {
		if known[id] {
			a.selected[id] = true
		}
	}
}

// Toggle flips one unit's membership in the selection and reports whether it
// is selected afterward. Toggling twice restores the prior selection exactly.
func (a *Allocator) Toggle(unitID string) bool {
	if a.selected[unitID] {
		delete(a.selected, unitID)
		return false
	}
	for _, u := range a.units {
		if u.ID == unitID {
			a.selected[unitID] = true
			return true
		}
	}
	return false
}

// ToggleGroup applies the all-or-nothing group policy: a fully selected
// group empties, any other state fills. Partial never shrinks to none.
func (a *Allocator) ToggleGroup(itemID, notes string) {
	ids := make([]string, 0)
	selectedCount := 0
	for _, u := range a.units {
		if u.ItemID == itemID && u.Notes == notes {
			ids = append(ids, u.ID)
			if a.selected[u.ID] {
				selectedCount++
			}
		}
	}
	if len(ids) == 0 {
		return
	}
	if selectedCount == len(ids) {
		for _, id := range ids {
			delete(a.selected, id)
		}
		return
	}
	for _, id := range ids {
		a.selected[id] = true
	}
}

// Groups returns the units grouped by (itemId, notes) in first-seen order.
func (a *Allocator) Groups() []Group {
	index := make(map[ownKey]int)
	groups := make([]Group, 0)
	for _, u := range a.units {
		key := ownKey{itemID: u.ItemID, notes: u.Notes}
		i, exists := index[key]
		if !exists {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{
				ItemID:    u.ItemID,
				Name:      u.Name,
				Notes:     u.Notes,
				UnitPrice: u.UnitPrice,
			})
		}
		groups[i].Count++
		groups[i].UnitIDs = append(groups[i].UnitIDs, u.ID)
		if a.selected[u.ID] {
			groups[i].SelectedCount++
		}
	}
	for i := range groups {
		switch {
		case groups[i].SelectedCount == 0:
			groups[i].State = GroupNone
		case groups[i].SelectedCount == groups[i].Count:
			groups[i].State = GroupFull
		default:
			groups[i].State = GroupPartial
		}
	}
	return groups
}

func (a *Allocator) Units() []Unit {
	out := make([]Unit, len(a.units))
	copy(out, a.units)
	return out
}

// Selected returns the selected units in decomposition order.
func (a *Allocator) Selected() []Unit {
	out := make([]Unit, 0, len(a.selected))
	for _, u := range a.units {
		if a.selected[u.ID] {
			out = append(out, u)
		}
	}
	return out
}

// SelectedIDs returns the selected unit ids in decomposition order.
func (a *Allocator) SelectedIDs() []string {
	out := make([]string, 0, len(a.selected))
	for _, u := range a.units {
		if a.selected[u.ID] {
			out = append(out, u.ID)
		}
	}
	return out
}

// Subtotal sums the unit prices of the selection. Rounding happens at
// display time only.
func (a *Allocator) Subtotal() float64 {
	var sum float64
	for _, u := range a.units {
		if a.selected[u.ID] {
			sum += u.UnitPrice
		}
	}
	return sum
}

// Finalize validates the selection and returns the units and subtotal that
// move on to the payment stage.
func (a *Allocator) Finalize() ([]Unit, float64, error) {
	selected := a.Selected()
	if len(selected) == 0 {
		return nil, 0, ErrEmptySelection
	}
	return selected, a.Subtotal(), nil
}
