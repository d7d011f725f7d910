package v1

import (
	"crypto/md5"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/JetsonAtWork/incident-triage/internal/config"
)

// hashPassword derives the stored form of the staff password. This gate is a
// deterrent for casual visitors of a trusted dashboard, not access control.
func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// StaffAuthMiddleware guards the staff-only operations: resolving, deleting
// and editing incidents. The bearer token is the configured password hash,
// handed out by the login endpoint.
func StaffAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminPasswordHash == "" {
			log.Warn("Staff operation attempted but no staff password is configured")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "staff access not configured"})
			return
		}

		token := c.GetHeader("X-Staff-Token")
		if token == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if token == "" {
			log.Warn("Staff token missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "staff token required"})
			return
		}

		if token != cfg.AdminPasswordHash {
			log.Warn("Invalid staff token provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid staff token"})
			return
		}

		c.Next()
	}
}

// @Summary Staff login
// @Description Exchange the staff password for a bearer token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param credentials body LoginRequest true "Staff password"
// @Success 200 {object} LoginResponse
// @Failure 400 {object} map[string]string "Invalid request body"
// @Failure 401 {object} map[string]string "Wrong password"
// @Router /auth/login [post]
func (h *Handler) login(c *gin.Context) {
	var input LoginRequest
	log := h.logger.WithField("method", "login")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.cfg.AdminPasswordHash == "" {
		log.Warn("Login attempted but no staff password is configured")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "staff access not configured"})
		return
	}

	if hashPassword(input.Password) != h.cfg.AdminPasswordHash {
		log.Warn("Wrong staff password")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{Token: h.cfg.AdminPasswordHash})
}
