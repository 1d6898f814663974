// Package grouporder tracks the diners sharing one table order and gates
// when the shared order may be submitted.
package grouporder

// LocalParticipantID is the reserved id for the diner driving this session.
// Every other participant carries a caller-supplied or generated id.
const LocalParticipantID = "current-user"

type Status string

const (
	StatusPending Status = "pending"
	StatusJoined  Status = "joined"
	StatusOrdered Status = "ordered"
)

// statusRank orders the lifecycle. Status moves forward only; a regressive
// SetStatus call is ignored.
func statusRank(s Status) int {
	switch s {
	case StatusPending:
		return 0
	case StatusJoined:
		return 1
	case StatusOrdered:
		return 2
	}
	return -1
}

type OrderItem struct {
	ItemID    string  `json:"itemId"`
	Name      string  `json:"name"`
	Notes     string  `json:"notes"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int32   `json:"quantity"`
}

type Participant struct {
	ID                  string      `json:"id"`
	Name                string      `json:"name"`
	Email               string      `json:"email"`
	Phone               *string     `json:"phone,omitempty"`
	Avatar              *string     `json:"avatar,omitempty"`
	IsFavorite          bool        `json:"isFavorite"`
	OrderItems          []OrderItem `json:"orderItems"`
	SpecialInstructions string      `json:"specialInstructions"`
	Status              Status      `json:"status"`
	IsReady             bool        `json:"isReady"`
}

// Seed carries the caller-provided fields for a new participant. Lifecycle
// fields (items, instructions, status, readiness) always start at their
// zero values.
type Seed struct {
	ID         string
	Name       string
	Email      string
	Phone      *string
	Avatar     *string
	IsFavorite bool
}
