package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"frt-gateway/broker"
	"frt-gateway/config"
	"frt-gateway/handlers"
	"frt-gateway/middleware"
	"frt-gateway/relay"
	"frt-gateway/services"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer cache.Close()
	}

	store := services.NewStore(cfg.DatabaseURL, cfg.ServiceAPIKey)
	users := services.NewUsers(store, cache, logger)
	messenger := services.NewMessenger(cfg.MessengerURL, cfg.ServiceAPIKey)

	hub := relay.NewHub(logger)
	go hub.Run()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bridge := broker.NewBridge(cfg.KafkaBrokers, cfg.KafkaGroupID, hub, logger)
	bridge.Run(ctx)
	defer bridge.Close()

	router := relay.NewRouter(bridge, messenger, logger)

	r := mux.NewRouter()
	r.HandleFunc("/ws", func(w http.ResponseWriter, req *http.Request) {
		relay.ServeWS(hub, router, w, req)
	})
	r.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	handlers.NewChatHandler(messenger, logger).Register(r)

	// User routes sit behind bearer auth when a secret is configured.
	userRoutes := r.NewRoute().Subrouter()
	if cfg.JWTSecret != "" {
		userRoutes.Use(middleware.Auth(cfg.JWTSecret, logger))
	}
	handlers.NewUserHandler(users, logger).Register(userRoutes)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("gateway listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
