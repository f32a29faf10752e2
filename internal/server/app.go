// Package server initializes and runs the NexaKey application: it opens the
// database, applies migrations, wires the services and serves the REST API
// until a shutdown signal arrives.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/nexakey/internal/logging"
	"github.com/dmitrijs2005/nexakey/internal/server/auth"
	"github.com/dmitrijs2005/nexakey/internal/server/config"
	"github.com/dmitrijs2005/nexakey/internal/server/ratelimit"
	"github.com/dmitrijs2005/nexakey/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/nexakey/internal/server/rest"
	"github.com/dmitrijs2005/nexakey/internal/server/services"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "nexakey:auth"

var (
	openDB = func(dsn string) (*sql.DB, error) {
		return sql.Open("pgx", dsn)
	}
	newRepositoryManager = repomanager.NewPostgresRepositoryManager
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	redis   *redis.Client
	limiter ratelimit.Limiter
	server  *rest.Server
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, slog.LevelInfo)

	db, err := openDB(c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm, err := newRepositoryManager(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}

	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migration error: %w", err)
	}

	app := &App{config: c, logger: logger, db: db}
	app.initLimiter()

	tokens := auth.NewTokenService(c.SecretKey, c.AccessTokenValidityDuration)
	us := services.NewUserService(db, rm, tokens)
	vs := services.NewVaultService(db, rm, services.FreemiumPolicy{FreeItemLimit: c.FreeItemLimit})
	bs := services.NewBackupService(db, rm, c)

	if !c.BackupsEnabled() {
		logger.Info(ctx, "Vault export disabled: no S3 bucket configured")
	}

	app.server = rest.NewServer(c.EndpointAddrHTTP, logger, rest.Services{
		Users:   us,
		Vault:   vs,
		Backups: bs,
		Health:  db,
	}, app.limiter, c.AuthRateLimit)

	return app, nil
}

// initLimiter picks the shared Redis limiter when configured, falling back to
// process memory whenever Redis is unreachable.
func (app *App) initLimiter() {
	memory := ratelimit.NewMemoryLimiter()
	if app.config.RedisAddr == "" {
		app.limiter = memory
		return
	}
	app.redis = redis.NewClient(&redis.Options{Addr: app.config.RedisAddr})
	app.limiter = ratelimit.NewFallback(
		ratelimit.NewRedisLimiter(app.redis, redisKeyPrefix),
		memory,
		app.logger.With("module", "ratelimit"),
	)
}

// initSignalHandler cancels the app context on SIGINT, SIGTERM or SIGQUIT.
// The returned channel is closed once the handler has stopped listening,
// which happens on the first signal or when ctx is done.
func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) <-chan struct{} {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer signal.Stop(sigs)
		select {
		case <-sigs:
			cancelFunc()
		case <-ctx.Done():
		}
	}()
	return done
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) close(ctx context.Context) {
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.logger.Warn(ctx, "redis close error", "error", err)
		}
	}
	if err := app.db.Close(); err != nil {
		app.logger.Warn(ctx, "db close error", "error", err)
	}
}

// Run blocks until ctx is cancelled or a termination signal is received.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	sigDone := app.initSignalHandler(ctx, cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()
	cancelFunc()
	<-sigDone

	app.close(context.Background())
	app.logger.Info(context.Background(), "App stopped")
}
