package httpapi

import (
	"errors"
	"net/http"

	"pii-vault/internal/crypto"
	"pii-vault/internal/disclosure"
	"pii-vault/internal/ingest"
	"pii-vault/internal/patch"
	"pii-vault/internal/region"
	"pii-vault/internal/store"
	"pii-vault/pkg/logger"

	"github.com/gin-gonic/gin"
)

// abortWithKind maps internal error kinds to HTTP responses. Callers only
// ever see the kind and a safe message; driver errors, file paths, and stack
// detail stay in the server log.
func abortWithKind(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ingest.ErrUnsupportedFormat):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unsupported image format"})
	case errors.Is(err, region.ErrInvalid):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid region"})
	case errors.Is(err, patch.ErrCodec):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "image codec failure"})
	case errors.Is(err, disclosure.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, disclosure.ErrNotFound), errors.Is(err, store.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, disclosure.ErrIntegrityViolation):
		logger.From(c.Request.Context()).Error("integrity violation", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "integrity violation"})
	case errors.Is(err, store.ErrInconsistency):
		logger.From(c.Request.Context()).Error("storage inconsistency", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage inconsistency"})
	case errors.Is(err, crypto.ErrKeyLength):
		logger.From(c.Request.Context()).Error("encryption misconfigured", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "encryption misconfigured"})
	default:
		logger.From(c.Request.Context()).Error("request failed", "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
