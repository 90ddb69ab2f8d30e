package main

import (
	"database/sql"
	"net/http"
	"time"

	"pii-vault/internal/httpapi"
	"pii-vault/internal/rbac"
	"pii-vault/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW gin.HandlerFunc, db *sql.DB) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		if db != nil {
			if err := utils.HealthCheck(c.Request.Context(), db, 2*time.Second); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/v1")

	// Token issuance.
	// NOTE: local-development only; production must sit behind a real IdP.
	v1.POST("/auth/login", h.Login)

	// Everything else requires an access token.
	protected := v1.Group("")
	protected.Use(authMW)
	{
		images := protected.Group("/images")
		{
			// Ingestion runs the full protection pipeline.
			images.POST("", rbac.Require(rbac.Role.CanIngest), h.IngestImage)

			// Reads: any authenticated role. Both are VIEW-audited.
			images.GET("/:image_id/manifest", rbac.Require(rbac.Role.CanView), h.GetManifest)
			images.GET("/:image_id/redacted", rbac.Require(rbac.Role.CanView), h.GetRedacted)

			// Disclosure: the reviewer gate. The service enforces the same
			// check; the middleware keeps unauthorized calls off the service
			// entirely.
			images.POST("/:image_id/decrypt", rbac.RequireReviewer(), h.DecryptRegions)

			// Cascade delete: image row, region rows, every blob.
			images.DELETE("/:image_id", rbac.RequireAdmin(), h.DeleteImage)
		}
	}
}
