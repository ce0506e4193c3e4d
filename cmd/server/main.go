// @title                       Identity Service API
// @version                     1.0
// @description                 Registration, login, session tokens and role-gated access.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @securityDefinitions.apikey  CookieAuth
// @in                          cookie
// @name                        token
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

	"github.com/common-nighthawk/go-figure"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/identity-service/internal/api"
	"github.com/99minutos/identity-service/internal/api/handler"
	"github.com/99minutos/identity-service/internal/api/metrics"
	"github.com/99minutos/identity-service/internal/api/session"
	"github.com/99minutos/identity-service/internal/core/ports"
	"github.com/99minutos/identity-service/internal/core/service"
	"github.com/99minutos/identity-service/internal/infrastructure/cache"
	"github.com/99minutos/identity-service/internal/infrastructure/db/memory"
	mongodb "github.com/99minutos/identity-service/internal/infrastructure/db/mongo"
	redisdb "github.com/99minutos/identity-service/internal/infrastructure/db/redis"
	"github.com/99minutos/identity-service/internal/infrastructure/queue"
	"github.com/99minutos/identity-service/internal/infrastructure/security"
	"github.com/99minutos/identity-service/internal/pkg/config"
	"github.com/99minutos/identity-service/pkg/logger"
)

const (
	appName         = "identity-service"
	shutdownTimeout = 10 * time.Second
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: appName,
	})

	displayAppname(appName)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := make(map[string]handler.Check)

	// --- Identity directory ---
	var repo ports.IdentityRepository
	switch cfg.DirectoryBackend {
	case config.BackendMemory:
		log.Warn().Msg("using in-memory identity directory; data is lost on restart")
		repo = memory.NewIdentityRepository()
	default:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		identities := mongodb.NewIdentityRepository(db)
		if err := identities.EnsureIndexes(ctx); err != nil {
			return fmt.Errorf("ensure indexes: %w", err)
		}
		repo = identities
		checks["mongodb"] = mongodb.Pinger(client)
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	}

	// --- Optional revocation store ---
	var authOpts []service.AuthOption
	if cfg.Redis.Addr != "" {
		rdb, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		checks["redis"] = redisdb.Pinger(rdb)

		if cfg.Auth.RevokeOnLogout {
			authOpts = append(authOpts, service.WithRevocationStore(redisdb.NewRevocationStore(rdb)))
			log.Info().Msg("logout revocation enabled (redis)")
		}
	} else if cfg.Auth.RevokeOnLogout {
		authOpts = append(authOpts, service.WithRevocationStore(cache.NewRevocationStore()))
		log.Warn().Msg("logout revocation enabled (in-process); not shared between replicas")
	}

	// --- Credentials and tokens ---
	pool, stopPool := startHashPool(cfg.Auth.HashWorkers, log)
	defer stopPool()
	metrics.RegisterHashPool(pool.Depth)

	hasher := security.NewBcryptHasher(cfg.Auth.BcryptCost,
		security.WithPool(pool),
		security.WithObserver(metrics.ObserveHash),
	)
	tokens := security.NewJWTTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL,
		security.WithIssuer(cfg.Auth.TokenIssuer),
	)

	e := api.NewRouter(api.Deps{
		Log:        log,
		Auth:       service.NewAuthService(repo, hasher, tokens, log, authOpts...),
		Identities: service.NewIdentityService(repo, hasher, log),
		Transport: session.NewTransport(session.Options{
			Name:       cfg.Cookie.Name,
			Domain:     cfg.Cookie.Domain,
			Production: cfg.IsProduction(),
		}),
		ClientURL: cfg.ClientURL,
		Checks:    checks,
	})

	log.Info().
		Str("port", cfg.Port).
		Str("env", cfg.Env).
		Str("directory", cfg.DirectoryBackend).
		Int("bcrypt_cost", hasher.Cost()).
		Int("hash_workers", pool.Workers()).
		Dur("token_ttl", tokens.TTL()).
		Msg("starting server")

	return serve(ctx, e, ":"+cfg.Port, log)
}

func serve(ctx context.Context, e *echo.Echo, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server start: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// startHashPool runs the hash workers outside the signal context. The returned
// stop func must run after the server has drained its in-flight requests.
func startHashPool(workers int, log zerolog.Logger) (*queue.Pool, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := queue.NewPool(workers, log)
	pool.Start(ctx)
	return pool, cancel
}

func displayAppname(name string) {
	figure.NewFigure(name, "cybermedium", true).Print()
	fmt.Println()
}
