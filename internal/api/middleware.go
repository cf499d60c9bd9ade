package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/KejDhruv-Pharbit/Pharbit/internal/models"
	"github.com/KejDhruv-Pharbit/Pharbit/internal/repository"
)

// OrganizationContextKey is the gin context key holding the authenticated
// organization
const OrganizationContextKey = "organization"

// APIKeyAuth resolves the caller's organization from the X-API-Key header.
// Every route behind it can trust the organization in the context; handlers
// never re-check identity themselves.
func APIKeyAuth(orgRepo repository.OrganizationRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "API key required",
				"code":    "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		org, err := orgRepo.GetByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			log.Warn().Err(err).Msg("Invalid API key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid API key",
				"code":    "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		c.Set(OrganizationContextKey, org)
		c.Next()
	}
}

// GetOrganizationFromContext retrieves the authenticated organization
func GetOrganizationFromContext(c *gin.Context) (*models.Organization, error) {
	orgVal, exists := c.Get(OrganizationContextKey)
	if !exists {
		return nil, errors.New("organization not found in context")
	}

	org, ok := orgVal.(*models.Organization)
	if !ok {
		return nil, errors.New("organization in context has incorrect type")
	}

	return org, nil
}

// RequestLogger logs each request with method, path, status and latency
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		event := log.Info()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		} else if status >= http.StatusBadRequest {
			event = log.Warn()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", latency).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}
