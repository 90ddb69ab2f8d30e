// Package ingest drives the protection pipeline for one uploaded image:
// detect, redact, encrypt each region, persist, audit. A run either commits
// everything or leaves nothing behind.
package ingest

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"time"

	// Decoders for the upload formats we accept.
	_ "image/jpeg"
	_ "image/png"

	"pii-vault/internal/audit"
	"pii-vault/internal/crypto"
	"pii-vault/internal/detect"
	"pii-vault/internal/patch"
	"pii-vault/internal/redact"
	"pii-vault/internal/region"
	"pii-vault/internal/store"
	"pii-vault/pkg/logger"

	"github.com/google/uuid"
)

// ErrUnsupportedFormat is returned when the upload does not decode as an
// image.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Guard serializes ingestion per image id. Image ids are freshly generated
// per run, so contention indicates a duplicate submission; the guard is a
// defensive backstop, not a scheduling mechanism.
type Guard interface {
	Acquire(ctx context.Context, imageID string) (bool, error)
	Release(ctx context.Context, imageID string)
}

// Service is the ingestion orchestrator.
//
// Pipeline invariants:
// - Candidates failing validation are dropped with a warning; the redaction
//   boxes and the persisted region set are always the same validated set.
// - Ciphertext blobs are written before the relational rows; the row commit
//   is the externally visible commit point.
// - Any failure rolls back every blob written so far; no orphans.
type Service struct {
	detector detect.Detector
	images   store.Images
	blobs    store.Blobs
	auditor  *audit.Service
	guard    Guard

	masterKey []byte
	keyRef    string
	version   string

	clock func() time.Time
}

func NewService(
	detector detect.Detector,
	images store.Images,
	blobs store.Blobs,
	auditor *audit.Service,
	guard Guard,
	masterKey []byte,
	keyRef string,
	pipelineVersion string,
) *Service {
	return &Service{
		detector:  detector,
		images:    images,
		blobs:     blobs,
		auditor:   auditor,
		guard:     guard,
		masterKey: masterKey,
		keyRef:    keyRef,
		version:   pipelineVersion,
		clock:     time.Now,
	}
}

// Result summarizes a completed ingestion for the caller. Region entries
// carry metadata only, never plaintext or ciphertext.
type Result struct {
	ImageID     string          `json:"image_id"`
	RedactedKey string          `json:"redacted_key"`
	Regions     []region.Region `json:"regions"`
}

// Ingest runs the full pipeline on raw upload bytes.
func (s *Service) Ingest(ctx context.Context, actor string, imageBytes []byte) (Result, error) {
	log := logger.From(ctx)

	// RECEIVED: the upload must decode before anything else happens.
	img, format, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	imageID := uuid.NewString()

	if s.guard != nil {
		ok, err := s.guard.Acquire(ctx, imageID)
		if err != nil {
			return Result{}, fmt.Errorf("ingest guard: %w", err)
		}
		if !ok {
			return Result{}, fmt.Errorf("ingest guard: image %s already being ingested", imageID)
		}
		defer s.guard.Release(ctx, imageID)
	}

	// DETECTED: collect candidates, drop the invalid ones. The accepted set
	// drives both redaction and persistence.
	candidates, err := s.detector.Detect(ctx, img)
	if err != nil {
		return Result{}, fmt.Errorf("detect: %w", err)
	}
	accepted := candidates[:0:0]
	for _, c := range candidates {
		if err := c.Validate(); err != nil {
			log.Warn("dropping invalid detector candidate",
				"image_id", imageID, "type", c.Type, "err", err)
			continue
		}
		accepted = append(accepted, c)
	}

	// REDACTED: opaque fill over every accepted bounding box.
	boxes := make([]image.Rectangle, len(accepted))
	for i, c := range accepted {
		boxes[i] = c.Polygon.Bounds()
	}
	redacted := redact.Boxes(img, boxes)

	// Track every blob written so a failure can undo them all.
	var written []string
	rollback := func() {
		for _, key := range written {
			if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
				log.Error("rollback: blob delete failed", "key", key, "err", err)
			}
		}
	}

	put := func(key string, data []byte) error {
		if err := s.blobs.Put(ctx, key, data); err != nil {
			return err
		}
		written = append(written, key)
		return nil
	}

	originalPNG, err := patch.Encode(img)
	if err != nil {
		return Result{}, err
	}
	redactedPNG, err := patch.Encode(redacted)
	if err != nil {
		return Result{}, err
	}

	imgRow := region.Image{
		ID:              imageID,
		OriginalKey:     store.OriginalImageKey(imageID),
		RedactedKey:     store.RedactedImageKey(imageID),
		CreatedAt:       s.clock().UTC(),
		PipelineVersion: s.version,
		CreatedBy:       actor,
	}
	if err := put(imgRow.OriginalKey, originalPNG); err != nil {
		rollback()
		return Result{}, fmt.Errorf("store original: %w", err)
	}
	if err := put(imgRow.RedactedKey, redactedPNG); err != nil {
		rollback()
		return Result{}, fmt.Errorf("store redacted: %w", err)
	}

	// ENCRYPTED: per region in detection order. Blob keys derive from the
	// region's freshly assigned id, never its position in the list.
	regions := make([]region.Region, 0, len(accepted))
	for _, c := range accepted {
		regionID := uuid.NewString()

		plaintext, err := patch.Extract(img, c.Polygon)
		if err != nil {
			rollback()
			return Result{}, fmt.Errorf("region %s: %w", regionID, err)
		}

		digest := crypto.DigestHex(plaintext)
		ciphertext, nonce, err := crypto.Encrypt(plaintext, s.masterKey)
		if err != nil {
			rollback()
			return Result{}, fmt.Errorf("region %s: encrypt: %w", regionID, err)
		}

		if err := put(store.RegionBlobKey(imageID, regionID), ciphertext); err != nil {
			rollback()
			return Result{}, fmt.Errorf("region %s: store ciphertext: %w", regionID, err)
		}

		regions = append(regions, region.Region{
			ID:         regionID,
			ImageID:    imageID,
			Type:       c.Type,
			Polygon:    c.Polygon,
			Confidence: c.Confidence,
			SHA256:     digest,
			EncAlgo:    region.AlgoAESGCM,
			NonceHex:   hex.EncodeToString(nonce),
			KeyRef:     s.keyRef,
		})
	}

	// PERSISTED: one transaction for the image row and all region rows. This
	// is the commit point; before it, no query path can observe the image.
	if err := s.images.InsertImage(ctx, imgRow, regions); err != nil {
		rollback()
		return Result{}, fmt.Errorf("persist image: %w", err)
	}

	// AUDITED: the trail records the ingestion. A failed append undoes the
	// whole run; an unaudited protected image must not exist.
	if err := s.auditor.LogIngest(ctx, actor, imageID); err != nil {
		if _, derr := s.images.DeleteImage(ctx, imageID); derr != nil {
			log.Error("rollback: image delete failed", "image_id", imageID, "err", derr)
		}
		rollback()
		return Result{}, fmt.Errorf("audit ingest: %w", err)
	}

	log.Info("image ingested",
		"image_id", imageID, "format", format,
		"candidates", len(candidates), "regions", len(regions))

	return Result{
		ImageID:     imageID,
		RedactedKey: imgRow.RedactedKey,
		Regions:     regions,
	}, nil
}
