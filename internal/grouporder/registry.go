package grouporder

import "errors"

var (
	ErrDuplicateID        = errors.New("participant id already registered")
	ErrUnknownParticipant = errors.New("participant not found")
)

// Registry owns the participants of one table order. Participants live in an
// id-indexed map; the "current user" is just an id into that map, so the
// current-user view can never diverge from the collection.
type Registry struct {
	byID          map[string]*Participant
	joinOrder     []string
	currentUserID string
}

func NewRegistry() *Registry {
	return &Registry{byID: make(map[string]*Participant)}
}

// Add creates a participant from the seed with empty items, no instructions,
// pending status and not ready. A duplicate id is rejected outright rather
// than silently overwritten.
func (r *Registry) Add(seed Seed) (*Participant, error) {
	if seed.ID == "" {
		return nil, ErrUnknownParticipant
	}
	if _, exists := r.byID[seed.ID]; exists {
		return nil, ErrDuplicateID
	}
	p := &Participant{
		ID:         seed.ID,
		Name:       seed.Name,
		Email:      seed.Email,
		Phone:      seed.Phone,
		Avatar:     seed.Avatar,
		IsFavorite: seed.IsFavorite,
		OrderItems: []OrderItem{},
		Status:     StatusPending,
	}
	r.byID[seed.ID] = p
	r.joinOrder = append(r.joinOrder, seed.ID)
	return p, nil
}

// Remove deletes the participant. Removing the current user also clears the
// current-user pointer.
func (r *Registry) Remove(id string) {
	if _, exists := r.byID[id]; !exists {
		return
	}
	delete(r.byID, id)
	for i, joined := range r.joinOrder {
		if joined == id {
			r.joinOrder = append(r.joinOrder[:i], r.joinOrder[i+1:]...)
			break
		}
	}
	if r.currentUserID == id {
		r.currentUserID = ""
	}
}

func (r *Registry) UpdateItems(id string, items []OrderItem) error {
	p, exists := r.byID[id]
	if !exists {
		return ErrUnknownParticipant
	}
	if items == nil {
		items = []OrderItem{}
	}
	p.OrderItems = items
	return nil
}

func (r *Registry) UpdateInstructions(id string, text string) error {
	p, exists := r.byID[id]
	if !exists {
		return ErrUnknownParticipant
	}
	p.SpecialInstructions = text
	return nil
}

// SetStatus advances the participant's lifecycle. Backward transitions are
// ignored; removal is the only way out of a later status.
func (r *Registry) SetStatus(id string, status Status) error {
	p, exists := r.byID[id]
	if !exists {
		return ErrUnknownParticipant
	}
	if statusRank(status) > statusRank(p.Status) {
		p.Status = status
	}
	return nil
}

func (r *Registry) SetReady(id string, ready bool) error {
	p, exists := r.byID[id]
	if !exists {
		return ErrUnknownParticipant
	}
	p.IsReady = ready
	return nil
}

// SetCurrentUser marks an already-registered participant as the local diner.
func (r *Registry) SetCurrentUser(id string) error {
	if _, exists := r.byID[id]; !exists {
		return ErrUnknownParticipant
	}
	r.currentUserID = id
	return nil
}

// CurrentUser returns the local diner's participant, or nil when none is set.
func (r *Registry) CurrentUser() *Participant {
	if r.currentUserID == "" {
		return nil
	}
	return r.byID[r.currentUserID]
}

func (r *Registry) Get(id string) (*Participant, bool) {
	p, exists := r.byID[id]
	return p, exists
}

// Participants returns all participants in join order.
func (r *Registry) Participants() []*Participant {
	out := make([]*Participant, 0, len(r.joinOrder))
	for _, id := range r.joinOrder {
		out = append(out, r.byID[id])
	}
	return out
}

func (r *Registry) Len() int {
	return len(r.byID)
}

func (r *Registry) clear() {
	r.byID = make(map[string]*Participant)
	r.joinOrder = nil
	r.currentUserID = ""
}
