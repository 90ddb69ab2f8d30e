package httpapi

import (
	"encoding/base64"
	"io"
	"net/http"
	"time"

	"pii-vault/internal/auth"
	"pii-vault/internal/disclosure"
	"pii-vault/internal/ingest"
	"pii-vault/internal/rbac"
	"pii-vault/internal/region"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth       *auth.Manager
	Ingest     *ingest.Service
	Disclosure *disclosure.Service

	// MaxUploadBytes caps ingest payloads; zero means the default.
	MaxUploadBytes int64
}

const defaultMaxUploadBytes = 32 << 20 // 32 MiB

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a local-development endpoint. Real deployments must validate
// credentials against an identity provider before issuing tokens.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Ingest ---

type regionSummary struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Polygon    region.Polygon `json:"polygon"`
	Confidence float64        `json:"confidence"`
}

// IngestImage accepts a multipart upload under the "file" field, runs the
// protection pipeline, and returns the region summaries.
func (h Handlers) IngestImage(c *gin.Context) {
	if h.Ingest == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "ingest not configured"})
		return
	}
	actor, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "file field required"})
		return
	}
	maxBytes := h.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	if fh.Size > maxBytes {
		c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxBytes))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	res, err := h.Ingest.Ingest(c.Request.Context(), actor, data)
	if err != nil {
		abortWithKind(c, err)
		return
	}

	summaries := make([]regionSummary, len(res.Regions))
	for i, r := range res.Regions {
		summaries[i] = regionSummary{ID: r.ID, Type: r.Type, Polygon: r.Polygon, Confidence: r.Confidence}
	}
	c.JSON(http.StatusOK, gin.H{
		"image_id":     res.ImageID,
		"status":       "processed",
		"regions":      summaries,
		"redacted_url": "/v1/images/" + res.ImageID + "/redacted",
	})
}

// --- Reads ---

func (h Handlers) GetManifest(c *gin.Context) {
	if h.Disclosure == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "disclosure not configured"})
		return
	}
	actor, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}

	m, err := h.Disclosure.Manifest(c.Request.Context(), actor, c.Param("image_id"))
	if err != nil {
		abortWithKind(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h Handlers) GetRedacted(c *gin.Context) {
	if h.Disclosure == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "disclosure not configured"})
		return
	}
	actor, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}

	data, err := h.Disclosure.RedactedPNG(c.Request.Context(), actor, c.Param("image_id"))
	if err != nil {
		abortWithKind(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", data)
}

// --- Disclosure ---

type decryptRequest struct {
	RegionIDs []string `json:"region_ids"`
	Purpose   string   `json:"purpose"`
}

type decryptedRegion struct {
	Type        string `json:"type"`
	ImageBase64 string `json:"image_base64"`
}

// DecryptRegions discloses region plaintext to a reviewer. The route is
// additionally gated by rbac.RequireReviewer; the service re-checks the role
// so the gate holds even if a route is miswired.
func (h Handlers) DecryptRegions(c *gin.Context) {
	if h.Disclosure == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "disclosure not configured"})
		return
	}
	actor, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	roleStr, _ := auth.Role(c.Request.Context())

	var req decryptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if len(req.RegionIDs) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "region_ids required"})
		return
	}

	res, err := h.Disclosure.Decrypt(c.Request.Context(), disclosure.DecryptRequest{
		ImageID:   c.Param("image_id"),
		RegionIDs: req.RegionIDs,
		Actor:     actor,
		Role:      rbac.Parse(roleStr),
		Purpose:   req.Purpose,
	})
	if err != nil {
		abortWithKind(c, err)
		return
	}

	out := make(map[string]decryptedRegion, len(res.Patches))
	for _, p := range res.Patches {
		out[p.RegionID] = decryptedRegion{
			Type:        p.Type,
			ImageBase64: "data:image/png;base64," + base64.StdEncoding.EncodeToString(p.Plaintext),
		}
	}
	c.JSON(http.StatusOK, gin.H{"regions": out, "missing": res.Missing})
}

// --- Delete ---

func (h Handlers) DeleteImage(c *gin.Context) {
	if h.Disclosure == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "disclosure not configured"})
		return
	}
	actor, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return
	}
	roleStr, _ := auth.Role(c.Request.Context())

	if err := h.Disclosure.Delete(c.Request.Context(), actor, rbac.Parse(roleStr), c.Param("image_id")); err != nil {
		abortWithKind(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
