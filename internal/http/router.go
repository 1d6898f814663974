package httpapi

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"

	"tablemate-dining-services/internal/config"
	"tablemate-dining-services/internal/http/handlers"
	"tablemate-dining-services/internal/middleware"
	"tablemate-dining-services/internal/orders"
	"tablemate-dining-services/internal/queue"
	"tablemate-dining-services/internal/session"
	"tablemate-dining-services/internal/storage"
	"tablemate-dining-services/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

type Deps struct {
	DB       *pgxpool.Pool
	KV       storage.KV
	Orders   orders.Store
	Logger   *zap.Logger
	Config   config.Config
	Queue    *queue.Client
	WSServer *ws.Server
}

func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.RequestID())

	cfg := deps.Config
	if cfg.Env == "development" || len(cfg.CorsAllowedOrigins) > 0 {
		options := cors.Options{
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{
				"Accept",
				"Authorization",
				"Content-Type",
				"X-Requested-With",
				"Cache-Control",
			},
			AllowCredentials: true,
			MaxAge:           300,
		}

		if cfg.Env == "development" {
			options.AllowOriginFunc = func(_ *http.Request, origin string) bool {
				return true
			}
		} else {
			options.AllowedOrigins = cfg.CorsAllowedOrigins
		}

		r.Use(cors.Handler(options))
	}

	h := &handlers.Handler{
		DB:       deps.DB,
		KV:       deps.KV,
		Orders:   deps.Orders,
		Sessions: session.NewStore(deps.KV),
		Logger:   deps.Logger,
		Config:   cfg,
		Queue:    deps.Queue,
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/dining", func(r chi.Router) {
		r.Use(middleware.DinerAuth(cfg.JWTSecret))

		r.Post("/group-orders", h.GroupOrderCreate)
		r.Get("/group-orders/{code}", h.GroupOrderSession)
		r.Delete("/group-orders/{code}", h.GroupOrderClear)
		r.Post("/group-orders/{code}/participants", h.GroupOrderParticipantAdd)
		r.Delete("/group-orders/{code}/participants/{id}", h.GroupOrderParticipantRemove)
		r.Put("/group-orders/{code}/participants/{id}/items", h.GroupOrderParticipantItems)
		r.Put("/group-orders/{code}/participants/{id}/instructions", h.GroupOrderParticipantInstructions)
		r.Put("/group-orders/{code}/participants/{id}/ready", h.GroupOrderParticipantReady)
		r.Post("/group-orders/{code}/confirm", h.GroupOrderConfirm)

		r.Get("/bill-split/{code}", h.BillSplitView)
		r.Post("/bill-split/{code}/toggle", h.BillSplitToggle)
		r.Post("/bill-split/{code}/toggle-group", h.BillSplitToggleGroup)
		r.Post("/bill-split/{code}/finalize", h.BillSplitFinalize)

		r.Get("/payment-session/{code}", h.PaymentSessionRead)
		r.Post("/payment-session/{code}/quote", h.PaymentQuote)
	})

	if deps.WSServer != nil {
		r.Get("/ws/group-order", deps.WSServer.GroupOrderWS)
	}

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

// Hijack keeps the websocket upgrade working behind the request logger.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hj.Hijack()
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
