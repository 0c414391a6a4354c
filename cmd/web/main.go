package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quarkfin/qwallet-web/internal/api"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
	"github.com/quarkfin/qwallet-web/internal/core/service"
	"github.com/quarkfin/qwallet-web/internal/infrastructure/db/memory"
	mongodb "github.com/quarkfin/qwallet-web/internal/infrastructure/db/mongo"
	redisdb "github.com/quarkfin/qwallet-web/internal/infrastructure/db/redis"
	"github.com/quarkfin/qwallet-web/internal/infrastructure/identity"
	"github.com/quarkfin/qwallet-web/internal/pkg/config"
	"github.com/quarkfin/qwallet-web/pkg/logger"
)

// operationRetention is how long a settled operation status stays readable.
const operationRetention = 30 * time.Minute

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "qwallet-web",
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openSessionStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Session.Backend).Msg("session store unavailable")
	}
	defer closeStore()

	tracker := service.NewTracker()
	tracker.StartPruning(ctx, time.Minute, operationRetention, logger.Component("tracker"))

	accounts := service.NewAccountService(
		identity.New(cfg.IdentityAPIURL, logger.Get()),
		store,
		tracker,
		logger.Get(),
	)

	e, err := api.NewRouter(api.Dependencies{
		Accounts:     accounts,
		Store:        store,
		Backend:      cfg.Session.Backend,
		CookieSecure: cfg.Session.CookieSecure,
		SessionTTL:   cfg.Session.TTL,
		Log:          logger.Component("http"),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("router setup failed")
	}

	go func() {
		addr := ":" + cfg.Port
		log.Info().
			Str("addr", addr).
			Str("identity_api", cfg.IdentityAPIURL).
			Str("session_backend", cfg.Session.Backend).
			Msg("server started")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server crashed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown error")
	}
}

// openSessionStore connects the configured session backend and returns it
// with its close function.
func openSessionStore(ctx context.Context, cfg *config.Config) (ports.SessionStore, func(), error) {
	switch cfg.Session.Backend {
	case config.BackendRedis:
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		return redisdb.NewSessionStore(client, cfg.Session.TTL), func() { _ = client.Close() }, nil

	case config.BackendMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, nil, err
		}
		store := mongodb.NewSessionStore(db, cfg.Session.TTL)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendMemory:
		store := memory.NewSessionStore(cfg.Session.TTL)
		store.StartSweeping(ctx, time.Minute, logger.Component("session"))
		return store, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
}
