package handlers

import (
	"context"

	"tablemate-dining-services/internal/config"
	"tablemate-dining-services/internal/orders"
	"tablemate-dining-services/internal/queue"
	"tablemate-dining-services/internal/session"
	"tablemate-dining-services/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *pgxpool.Pool
	KV       storage.KV
	Orders   orders.Store
	Sessions *session.Store
	Logger   *zap.Logger
	Config   config.Config
	Queue    *queue.Client
}

// publishEvent emits a domain event to the broker. Events are best-effort;
// a failed publish never fails the request that triggered it.
func (h *Handler) publishEvent(ctx context.Context, routingKey string, payload any) {
	if h.Queue == nil {
		return
	}
	if err := h.Queue.PublishJSON(ctx, queue.EventsExchange, routingKey, payload); err != nil {
		h.Logger.Warn("event publish failed", zap.String("routingKey", routingKey), zap.Error(err))
	}
}
