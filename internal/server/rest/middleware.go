package rest

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/nexakey/internal/common"
	"github.com/dmitrijs2005/nexakey/internal/server/models"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "currentUser"

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info(c.Request.Context(), "request served",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		)
	}
}

// authRateLimiter enforces a per-client-IP budget. Limiter errors let the
// request through.
func (s *Server) authRateLimiter() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil || s.authRateLimit <= 0 {
			c.Next()
			return
		}

		res, err := s.limiter.Allow(c.Request.Context(), c.ClientIP(), s.authRateLimit, s.now())
		if err != nil {
			s.logger.Warn(c.Request.Context(), "rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(s.authRateLimit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			retry := int(res.Reset.Sub(s.now()).Seconds() + 0.999)
			if retry < 1 {
				retry = 1
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Detail: "Too many requests"})
			return
		}
		c.Next()
	}
}

// requireUser resolves the bearer token to a user and stores it on the context.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := strings.TrimSpace(c.GetHeader(common.AuthorizationHeaderName))
		if authHeader == "" {
			s.unauthorized(c, "Not authenticated")
			return
		}
		if len(authHeader) < len(common.BearerPrefix) || !strings.EqualFold(authHeader[:len(common.BearerPrefix)], common.BearerPrefix) {
			s.unauthorized(c, "Not authenticated")
			return
		}
		token := strings.TrimSpace(authHeader[len(common.BearerPrefix):])
		if token == "" {
			s.unauthorized(c, "Not authenticated")
			return
		}

		user, err := s.users.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, common.ErrUnauthenticated) {
				s.unauthorized(c, "Could not validate credentials")
				return
			}
			s.fail(c, err)
			c.Abort()
			return
		}

		c.Set(currentUserKey, user)
		c.Next()
	}
}

func (s *Server) unauthorized(c *gin.Context, detail string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Detail: detail})
}

// currentUser returns the user stored by requireUser.
func currentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
