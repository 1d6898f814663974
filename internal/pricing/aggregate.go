// Package pricing holds the pure money computations: per-participant and
// group totals, tip calculation and the final payable total. Nothing here
// rounds mid-calculation; Round2 is applied only to amounts leaving for
// display or persistence.
package pricing

import (
	"math"

	"tablemate-dining-services/internal/grouporder"
)

// ParticipantTotal sums unitPrice × quantity across the item list.
func ParticipantTotal(items []grouporder.OrderItem) float64 {
	var sum float64
	for _, item := range items {
		sum += item.UnitPrice * float64(item.Quantity)
	}
	return sum
}

// GroupTotal sums every participant's total.
func GroupTotal(participants []*grouporder.Participant) float64 {
	var sum float64
	for _, p := range participants {
		sum += ParticipantTotal(p.OrderItems)
	}
	return sum
}

// Total composes the final payable amount from an already-computed tip.
func Total(subtotal, taxRate, tip float64) float64 {
	return subtotal + subtotal*taxRate + tip
}

func Round2(value float64) float64 {
	return math.Round(value*100) / 100
}
