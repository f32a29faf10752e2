package rest

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/gin-gonic/gin"
)

const serviceName = "NexaKey API"

// fail maps a service error onto a status code and a client-safe detail.
// Unexpected errors are logged and reported as 500.
func (s *Server) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, errorResponse{Detail: "Invalid email or password"})
	case errors.Is(err, common.ErrUnauthenticated):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, errorResponse{Detail: "Could not validate credentials"})
	case errors.Is(err, common.ErrorNotFound):
		c.JSON(http.StatusNotFound, errorResponse{Detail: "Not found"})
	case errors.Is(err, common.ErrLimitReached):
		c.JSON(http.StatusForbidden, errorResponse{Detail: "Free plan limit reached. Upgrade to premium for unlimited items."})
	case errors.Is(err, common.ErrBiometricNotEnabled):
		c.JSON(http.StatusBadRequest, errorResponse{Detail: "Biometric recovery is not enabled for this account"})
	case errors.Is(err, common.ErrBackupsDisabled):
		c.JSON(http.StatusServiceUnavailable, errorResponse{Detail: "Vault export is not available"})
	default:
		s.logger.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Detail: "Internal server error"})
	}
}

func (s *Server) badRequest(c *gin.Context, err error) {
	s.logger.Debug(c.Request.Context(), "invalid request body", "error", err)
	c.JSON(http.StatusBadRequest, errorResponse{Detail: "Invalid request body"})
}

func (s *Server) Health(c *gin.Context) {
	if s.health != nil {
		if err := s.health.PingContext(c.Request.Context()); err != nil {
			s.logger.Warn(c.Request.Context(), "database ping failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, healthResponse{Status: "unhealthy", Service: serviceName})
			return
		}
	}
	c.JSON(http.StatusOK, healthResponse{Status: "healthy", Service: serviceName})
}

func (s *Server) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.users.Register(c.Request.Context(), req.Email, req.MasterPasswordHash, req.BiometricEnabled)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Registered", "user_id", result.User.ID)
	c.JSON(http.StatusOK, toAuthResponse(result))
}

func (s *Server) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	result, err := s.users.Login(c.Request.Context(), req.Email, req.MasterPasswordHash)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toAuthResponse(result))
}

func (s *Server) BiometricRecovery(c *gin.Context) {
	var req biometricRecoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	err := s.users.RecoverWithBiometric(c.Request.Context(), req.Email, req.NewMasterPasswordHash)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Detail: "User not found"})
			return
		}
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Master password reset"})
}

func (s *Server) ListItems(c *gin.Context) {
	user := currentUser(c)

	items, err := s.vault.List(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, toItemResponse(it))
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) CreateItem(c *gin.Context) {
	var req createItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	user := currentUser(c)

	item, err := s.vault.Create(c.Request.Context(), user.ID, req.ItemType, req.EncryptedData)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toItemResponse(item))
}

func (s *Server) UpdateItem(c *gin.Context) {
	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	user := currentUser(c)

	item, err := s.vault.Update(c.Request.Context(), user.ID, c.Param("id"), req.EncryptedData)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Detail: "Vault item not found"})
			return
		}
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, toItemResponse(item))
}

func (s *Server) DeleteItem(c *gin.Context) {
	user := currentUser(c)

	if err := s.vault.Delete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			c.JSON(http.StatusNotFound, errorResponse{Detail: "Vault item not found"})
			return
		}
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, messageResponse{Message: "Vault item deleted"})
}

func (s *Server) ExportVault(c *gin.Context) {
	if s.backups == nil {
		s.fail(c, common.ErrBackupsDisabled)
		return
	}
	user := currentUser(c)

	res, err := s.backups.Export(c.Request.Context(), user.ID)
	if err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Vault exported", "user_id", user.ID, "items", res.Items)
	c.JSON(http.StatusOK, exportResponse{Key: res.Key, URL: res.URL, Items: res.Items, ExpiresAt: res.ExpiresAt})
}

func (s *Server) Profile(c *gin.Context) {
	p, err := s.users.Profile(c.Request.Context(), currentUser(c))
	if err != nil {
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, profileResponse{
		ID:               p.User.ID,
		Email:            p.User.Email,
		IsPremium:        p.User.IsPremium,
		BiometricEnabled: p.User.BiometricEnabled,
		VaultItemsCount:  p.VaultItemsCount,
		CreatedAt:        p.User.CreatedAt,
	})
}

func (s *Server) UpgradePremium(c *gin.Context) {
	user := currentUser(c)

	if err := s.users.UpgradePremium(c.Request.Context(), user.ID); err != nil {
		s.fail(c, err)
		return
	}

	s.logger.Info(c.Request.Context(), "Upgraded to premium", "user_id", user.ID)
	c.JSON(http.StatusOK, messageResponse{Message: "Successfully upgraded to premium"})
}
