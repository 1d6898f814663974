package orders

import (
	"context"
	"strings"
	"sync"
)

var _ Store = (*Memory)(nil)

// Memory is an in-process order store for tests and local development.
type Memory struct {
	mu     sync.RWMutex
	byCode map[string][]Order
}

func NewMemory() *Memory {
	return &Memory{byCode: make(map[string][]Order)}
}

// Submit appends an order under the session code.
func (m *Memory) Submit(sessionCode string, order Order) {
	key := strings.ToUpper(strings.TrimSpace(sessionCode))
	m.mu.Lock()
	m.byCode[key] = append(m.byCode[key], order)
	m.mu.Unlock()
}

func (m *Memory) SubmittedOrders(_ context.Context, sessionCode string) ([]Order, error) {
	key := strings.ToUpper(strings.TrimSpace(sessionCode))
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored := m.byCode[key]
	out := make([]Order, len(stored))
	copy(out, stored)
	return out, nil
}
