// Package store persists Image and Region records and their ciphertext
// blobs. Relational rows and blobs are written by different backends; the
// ingest orchestrator owns the ordering that keeps them consistent.
package store

import (
	"context"
	"errors"
	"fmt"

	"pii-vault/internal/region"
)

var (
	ErrNotFound = errors.New("not found")

	// ErrInconsistency is a blob/row mismatch detected on read: a Region row
	// whose ciphertext blob is gone, or image bytes missing for an Image row.
	// It signals a storage fault, not a caller mistake.
	ErrInconsistency = errors.New("storage inconsistency")
)

// Images is the relational contract for Image/Region rows.
//
// InsertImage must be atomic: the Image row and all Region rows commit
// together or not at all. DeleteImage cascades to Region rows and reports the
// deleted region ids so the caller can remove the matching blobs.
type Images interface {
	InsertImage(ctx context.Context, img region.Image, regions []region.Region) error
	GetImage(ctx context.Context, imageID string) (region.Image, error)
	ListRegions(ctx context.Context, imageID string) ([]region.Region, error)
	// GetRegions returns the subset of ids that belong to imageID, in stable
	// (id) order. Missing ids are not an error; callers decide the policy.
	GetRegions(ctx context.Context, imageID string, regionIDs []string) ([]region.Region, error)
	DeleteImage(ctx context.Context, imageID string) (regionIDs []string, err error)
}

// Blobs stores opaque byte payloads under caller-chosen keys.
type Blobs interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// Blob keys are derived from stable identifiers only. A loop index is not an
// identifier: the read path looks blobs up by region id, so the write path
// must key them the same way.

func RegionBlobKey(imageID, regionID string) string {
	return fmt.Sprintf("regions/%s/%s", imageID, regionID)
}

func OriginalImageKey(imageID string) string {
	return fmt.Sprintf("images/%s/original.png", imageID)
}

func RedactedImageKey(imageID string) string {
	return fmt.Sprintf("images/%s/redacted.png", imageID)
}
