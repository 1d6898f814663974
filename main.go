package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablemate-dining-services/internal/config"
	"tablemate-dining-services/internal/db"
	httpapi "tablemate-dining-services/internal/http"
	"tablemate-dining-services/internal/logger"
	"tablemate-dining-services/internal/orders"
	"tablemate-dining-services/internal/queue"
	"tablemate-dining-services/internal/storage"
	"tablemate-dining-services/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	kv := storage.NewPostgres(pool)
	if err := kv.EnsureSchema(ctx); err != nil {
		log.Fatal("kv schema setup failed", zap.Error(err))
	}
	orderStore := orders.NewPostgres(pool)

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without events", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			if err := qc.EnsureExchange(queue.EventsExchange); err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq exchange failed", zap.Error(err))
				}
				log.Warn("rabbitmq exchange failed; continuing without events", zap.Error(err))
				_ = qc.Close()
				qc = nil
			}
		}
		queueClient = qc
		if qc != nil {
			defer qc.Close()
			log.Info("rabbitmq events enabled", zap.String("exchange", queue.EventsExchange))
		}
	} else {
		log.Info("event publishing disabled (RABBITMQ_URL is empty)")
	}

	wsServer := ws.New(pool, kv, log, cfg)
	apiServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.NewRouter(httpapi.Deps{
			DB:       pool,
			KV:       kv,
			Orders:   orderStore,
			Logger:   log,
			Config:   cfg,
			Queue:    queueClient,
			WSServer: wsServer,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("dining api ready", zap.String("base", "/api/dining"))
		log.Info("dining ws ready", zap.String("base", "/ws"))
		log.Info("dining service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
