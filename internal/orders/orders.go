// Package orders exposes the already-submitted orders of a dining session.
// The bill-split engine treats this as read-only, point-in-time input; the
// rows are written by the order submission system, not by this service.
package orders

import "context"

type Line struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int32   `json:"quantity"`
	Notes    string  `json:"notes"`
}

type Order struct {
	OrderID string `json:"orderId"`
	Items   []Line `json:"items"`
}

type Store interface {
	// SubmittedOrders returns every submitted order for the session, in
	// submission order with lines in their original order.
	SubmittedOrders(ctx context.Context, sessionCode string) ([]Order, error)
}
