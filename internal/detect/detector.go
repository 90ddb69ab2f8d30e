// Package detect defines the detector contract consumed by ingestion. The
// detection algorithm itself lives outside this service; anything that emits
// labelled polygons with confidences satisfies the contract.
package detect

import (
	"context"
	"image"

	"pii-vault/internal/region"
)

// Detector produces candidate regions for an image. An empty result is
// valid. Candidates are unvalidated; the orchestrator filters them through
// region.Candidate.Validate.
type Detector interface {
	Detect(ctx context.Context, img image.Image) ([]region.Candidate, error)
}

// Static returns a fixed candidate set regardless of input. Used in tests and
// local development where no detector sidecar is running.
type Static struct {
	Candidates []region.Candidate
}

func (s Static) Detect(ctx context.Context, img image.Image) ([]region.Candidate, error) {
	return append([]region.Candidate(nil), s.Candidates...), nil
}
