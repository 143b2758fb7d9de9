package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"interview/internal/api"
	"interview/internal/auth"
	"interview/internal/config"
	"interview/internal/events"
	"interview/internal/lifecycle"
	"interview/internal/models"
	"interview/internal/routers"
	sig "interview/internal/signal"
	"interview/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setLogLevel(cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var st store.Store
	if cfg.DatabaseURL != "" {
		pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
		db, err := store.Connect(pingCtx, cfg.DatabaseURL)
		pingCancel()
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()
		st = store.NewPostgres(db)
		log.Info().Msg("database connected")
	} else {
		st = store.NewMemory()
		log.Warn().Msg("DATABASE_URL not set: using in-memory record store")
	}

	registry := sig.NewRegistry()

	var pub events.Publisher = events.NopPublisher{}
	if cfg.RedisAddr != "" {
		bus := events.NewBus(cfg.RedisAddr)
		defer bus.Close()
		pub = bus

		// Bridge lifecycle transitions into connected rooms as informational
		// status frames. The relay itself still never gates on status.
		go bus.Subscribe(ctx, func(ev events.Event) {
			if ev.RoomID == "" {
				return
			}
			registry.Broadcast(ev.RoomID, models.WSFrame{Type: "status", Data: ev})
		})
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis event feed enabled")
	} else {
		log.Warn().Msg("REDIS_ADDR not set: lifecycle event feed disabled")
	}

	tokens := auth.NewTokens(cfg.JWTSecret, cfg.RoomTokenTTL())
	lc := lifecycle.New(st, pub)
	handlers := api.NewHandlers(lc, registry, tokens)

	r := chi.NewRouter()
	r.Use(
		chimiddleware.RequestID,
		chimiddleware.RealIP,
		chimiddleware.Recoverer,
	)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	r.Mount("/", routers.New(handlers, tokens))

	server := &http.Server{Addr: cfg.Addr(), Handler: r}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("interview-svc listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func setLogLevel(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
