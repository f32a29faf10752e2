// Package rest exposes the NexaKey JSON API over HTTP using gin.
package rest

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/logging"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/dmitrijs2005/nexakey/internal/server/ratelimit"
	"github.com/dmitrijs2005/nexakey/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 10 * time.Second

type UserService interface {
	Register(ctx context.Context, email, credentialHash string, biometricEnabled bool) (*services.AuthResult, error)
	Login(ctx context.Context, email, credentialHash string) (*services.AuthResult, error)
	RecoverWithBiometric(ctx context.Context, email, newCredentialHash string) error
	UpgradePremium(ctx context.Context, userID string) error
	Authenticate(ctx context.Context, token string) (*models.User, error)
	Profile(ctx context.Context, user *models.User) (*services.Profile, error)
}

type VaultService interface {
	List(ctx context.Context, ownerID string) ([]*models.VaultItem, error)
	Create(ctx context.Context, ownerID, itemType, encryptedPayload string) (*models.VaultItem, error)
	Update(ctx context.Context, ownerID, itemID, encryptedPayload string) (*models.VaultItem, error)
	Delete(ctx context.Context, ownerID, itemID string) error
}

type BackupService interface {
	Export(ctx context.Context, ownerID string) (*services.BackupResult, error)
}

// Pinger reports database reachability; *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Services bundles what the handlers call into. Health may be nil.
type Services struct {
	Users   UserService
	Vault   VaultService
	Backups BackupService
	Health  Pinger
}

type Server struct {
	address       string
	users         UserService
	vault         VaultService
	backups       BackupService
	health        Pinger
	limiter       ratelimit.Limiter
	authRateLimit int
	logger        logging.Logger
	now           func() time.Time
}

// NewServer wires the handlers. A nil limiter or a non-positive
// authRateLimit disables rate limiting on the auth routes.
func NewServer(address string, l logging.Logger, svc Services, limiter ratelimit.Limiter, authRateLimit int) *Server {
	return &Server{
		address:       address,
		logger:        l.With("module", "rest_server"),
		users:         svc.Users,
		vault:         svc.Vault,
		backups:       svc.Backups,
		health:        svc.Health,
		limiter:       limiter,
		authRateLimit: authRateLimit,
		now:           time.Now,
	}
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	_ = r.SetTrustedProxies(nil)
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")
	api.GET("/health", s.Health)

	authGroup := api.Group("/auth")
	authGroup.Use(s.authRateLimiter())
	authGroup.POST("/register", s.Register)
	authGroup.POST("/login", s.Login)
	authGroup.POST("/biometric-recovery", s.BiometricRecovery)

	authed := api.Group("")
	authed.Use(s.requireUser())

	authed.GET("/vault/items", s.ListItems)
	authed.POST("/vault/items", s.CreateItem)
	authed.PUT("/vault/items/:id", s.UpdateItem)
	authed.DELETE("/vault/items/:id", s.DeleteItem)
	authed.POST("/vault/export", s.ExportVault)

	authed.GET("/user/profile", s.Profile)
	authed.POST("/user/upgrade-premium", s.UpgradePremium)

	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(context.Background(), "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "HTTP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}
