package grouporder

import "encoding/json"

// Coordinator layers the readiness gate and one-shot confirmation state
// machine over a participant registry. All operations are total: an invalid
// call is a no-op, and callers are expected to consult CanConfirm before
// offering a confirm action.
type Coordinator struct {
	registry     *Registry
	isGroupOrder bool
	isConfirmed  bool
}

func NewCoordinator(isGroupOrder bool) *Coordinator {
	return &Coordinator{registry: NewRegistry(), isGroupOrder: isGroupOrder}
}

func (c *Coordinator) Registry() *Registry { return c.registry }
func (c *Coordinator) IsGroupOrder() bool  { return c.isGroupOrder }
func (c *Coordinator) IsConfirmed() bool   { return c.isConfirmed }

// CanConfirm reports whether the shared order may be submitted. A solo order
// is always confirmable. A group order is confirmable exactly once, and only
// when every participant is ready with at least one item in their cart.
func (c *Coordinator) CanConfirm() bool {
	if !c.isGroupOrder {
		return true
	}
	if c.isConfirmed {
		return false
	}
	participants := c.registry.Participants()
	if len(participants) == 0 {
		return false
	}
	for _, p := range participants {
		if !p.IsReady || len(p.OrderItems) == 0 {
			return false
		}
	}
	return true
}

// NotReadyCount counts the participants currently blocking the gate, for
// surfacing "waiting on N diners" in the interface.
func (c *Coordinator) NotReadyCount() int {
	if !c.isGroupOrder {
		return 0
	}
	count := 0
	for _, p := range c.registry.Participants() {
		if !p.IsReady || len(p.OrderItems) == 0 {
			count++
		}
	}
	return count
}

// Confirm marks the group order submitted and moves every participant to
// ordered. The transition is terminal; calling Confirm again after success
// changes nothing.
func (c *Coordinator) Confirm() bool {
	if !c.CanConfirm() {
		return false
	}
	c.isConfirmed = true
	for _, p := range c.registry.Participants() {
		_ = c.registry.SetStatus(p.ID, StatusOrdered)
	}
	return true
}

// Clear resets the coordinator when a dining session ends.
func (c *Coordinator) Clear() {
	c.isGroupOrder = false
	c.isConfirmed = false
	c.registry.clear()
}

// State is the wholesale persisted form of a coordinator. The host reads the
// full state, applies one mutation and writes the full state back.
type State struct {
	IsGroupOrder  bool          `json:"isGroupOrder"`
	IsConfirmed   bool          `json:"isConfirmed"`
	CurrentUserID string        `json:"currentUserId,omitempty"`
	Participants  []Participant `json:"participants"`
}

func (c *Coordinator) Snapshot() State {
	participants := c.registry.Participants()
	out := make([]Participant, 0, len(participants))
	for _, p := range participants {
		out = append(out, *p)
	}
	return State{
		IsGroupOrder:  c.isGroupOrder,
		IsConfirmed:   c.isConfirmed,
		CurrentUserID: c.registry.currentUserID,
		Participants:  out,
	}
}

func Restore(state State) *Coordinator {
	c := NewCoordinator(state.IsGroupOrder)
	c.isConfirmed = state.IsConfirmed
	for i := range state.Participants {
		p := state.Participants[i]
		if p.OrderItems == nil {
			p.OrderItems = []OrderItem{}
		}
		c.registry.byID[p.ID] = &p
		c.registry.joinOrder = append(c.registry.joinOrder, p.ID)
	}
	if _, exists := c.registry.byID[state.CurrentUserID]; exists {
		c.registry.currentUserID = state.CurrentUserID
	}
	return c
}

func (c *Coordinator) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

func (c *Coordinator) UnmarshalJSON(data []byte) error {
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	*c = *Restore(state)
	return nil
}
