// Package ws pushes group-order session snapshots to connected diners.
// Mutations fire pg_notify('group_order_updates', code); the LISTEN loop
// rebuilds the snapshot and broadcasts it to every subscriber of that code.
package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"tablemate-dining-services/internal/config"
	"tablemate-dining-services/internal/http/handlers"
	"tablemate-dining-services/internal/storage"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Server struct {
	DB     *pgxpool.Pool
	KV     storage.KV
	Logger *zap.Logger
	Config config.Config

	realtime *groupOrderRealtime
}

func New(db *pgxpool.Pool, kv storage.KV, logger *zap.Logger, cfg config.Config) *Server {
	return &Server{
		DB:       db,
		KV:       kv,
		Logger:   logger,
		Config:   cfg,
		realtime: newGroupOrderRealtime(db, kv, logger),
	}
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(value)
}

type groupOrderRealtime struct {
	db     *pgxpool.Pool
	kv     storage.KV
	logger *zap.Logger

	started sync.Once
	mu      sync.RWMutex
	subs    map[string]map[*client]struct{}
}

func newGroupOrderRealtime(db *pgxpool.Pool, kv storage.KV, logger *zap.Logger) *groupOrderRealtime {
	return &groupOrderRealtime{
		db:     db,
		kv:     kv,
		logger: logger,
		subs:   make(map[string]map[*client]struct{}),
	}
}

func (gr *groupOrderRealtime) ensureStarted() {
	gr.started.Do(func() {
		go gr.listenLoop(context.Background())
	})
}

func (gr *groupOrderRealtime) subscribe(code string, c *client) (unsubscribe func()) {
	sessionCode := strings.ToUpper(strings.TrimSpace(code))
	if sessionCode == "" {
		return func() {}
	}

	gr.mu.Lock()
	if gr.subs[sessionCode] == nil {
		gr.subs[sessionCode] = make(map[*client]struct{})
	}
	gr.subs[sessionCode][c] = struct{}{}
	gr.mu.Unlock()

	return func() {
		gr.mu.Lock()
		clients := gr.subs[sessionCode]
		delete(clients, c)
		if len(clients) == 0 {
			delete(gr.subs, sessionCode)
		}
		gr.mu.Unlock()
	}
}

func (gr *groupOrderRealtime) broadcast(code string, message any) {
	sessionCode := strings.ToUpper(strings.TrimSpace(code))
	if sessionCode == "" {
		return
	}

	gr.mu.RLock()
	clientsMap := gr.subs[sessionCode]
	clients := make([]*client, 0, len(clientsMap))
	for c := range clientsMap {
		clients = append(clients, c)
	}
	gr.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			gr.mu.Lock()
			if current := gr.subs[sessionCode]; current != nil {
				delete(current, c)
				if len(current) == 0 {
					delete(gr.subs, sessionCode)
				}
			}
			gr.mu.Unlock()
		}
	}
}

func (gr *groupOrderRealtime) listenLoop(ctx context.Context) {
	backoff := time.Second
	for {
		conn, err := gr.db.Acquire(ctx)
		if err != nil {
			if gr.logger != nil {
				gr.logger.Warn("group-order LISTEN acquire failed", zap.Error(err))
			}
			time.Sleep(backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		_, err = conn.Exec(ctx, `listen group_order_updates`)
		if err != nil {
			conn.Release()
			if gr.logger != nil {
				gr.logger.Warn("group-order LISTEN failed", zap.Error(err))
			}
			time.Sleep(backoff)
			backoff = minDuration(backoff*2, 30*time.Second)
			continue
		}

		backoff = time.Second
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				break
			}
			code := strings.TrimSpace(n.Payload)
			if code == "" {
				continue
			}

			snapshot, found, fetchErr := handlers.FetchGroupOrderSnapshot(ctx, gr.kv, code)
			if fetchErr != nil {
				gr.broadcast(code, map[string]any{"type": "error", "message": "failed to load session"})
				continue
			}
			if !found {
				gr.broadcast(code, map[string]any{"type": "group-order.closed"})
				continue
			}

			gr.broadcast(code, map[string]any{"type": "group-order.session", "data": snapshot})
		}

		conn.Release()
		time.Sleep(backoff)
		backoff = minDuration(backoff*2, 30*time.Second)
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func (s *Server) GroupOrderWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	code := r.URL.Query().Get("code")
	if code == "" {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "invalid request"})
		return
	}

	s.realtime.ensureStarted()
	ctx := r.Context()
	c := &client{conn: conn}
	unsubscribe := s.realtime.subscribe(code, c)
	defer unsubscribe()

	// Send the full session snapshot immediately.
	snapshot, found, fetchErr := handlers.FetchGroupOrderSnapshot(ctx, s.KV, code)
	if fetchErr != nil {
		_ = c.writeJSON(map[string]any{"type": "error", "message": "failed to load session"})
		return
	}
	if !found {
		_ = c.writeJSON(map[string]any{"type": "group-order.closed"})
		return
	}
	_ = c.writeJSON(map[string]any{"type": "group-order.session", "data": snapshot})

	heartbeat := time.NewTicker(s.Config.WSGroupOrderPollInterval)
	defer heartbeat.Stop()

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-clientClosed:
			return
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if err := c.writeJSON(map[string]any{"type": "ping", "at": time.Now().UnixMilli()}); err != nil {
				return
			}
		}
	}
}
