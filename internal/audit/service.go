package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for audit records.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, r Record) error
}

// Service writes the audit trail.
//
// Unlike ordinary operational logging, audit writes here are NOT best-effort:
// the disclosure controller refuses to release plaintext when a DECRYPT
// record cannot be appended.

type Service struct {
	repo  Repository
	clock func() time.Time

	// pipelineVersion is stamped on every record.
	pipelineVersion string
}

func NewService(repo Repository, pipelineVersion string) *Service {
	return &Service{repo: repo, clock: time.Now, pipelineVersion: pipelineVersion}
}

var ErrInvalidRecord = errors.New("audit: invalid record")

func (s *Service) Append(ctx context.Context, r Record) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if r.Actor == "" {
		return ErrInvalidRecord
	}
	if r.ImageID == "" {
		return ErrInvalidRecord
	}
	switch r.Action {
	case ActionIngest, ActionView, ActionDecrypt:
	default:
		return ErrInvalidRecord
	}

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = s.clock().UTC()
	}
	if r.PipelineVersion == "" {
		r.PipelineVersion = s.pipelineVersion
	}
	return s.repo.Append(ctx, r)
}

// LogIngest records that an image was ingested and protected.
func (s *Service) LogIngest(ctx context.Context, actor, imageID string) error {
	return s.Append(ctx, Record{
		Actor:   actor,
		Action:  ActionIngest,
		ImageID: imageID,
	})
}

// LogView records a read of a manifest or redacted image.
func (s *Service) LogView(ctx context.Context, actor, imageID string) error {
	return s.Append(ctx, Record{
		Actor:   actor,
		Action:  ActionView,
		ImageID: imageID,
	})
}

// LogDecrypt records the disclosure of one region's plaintext.
func (s *Service) LogDecrypt(ctx context.Context, actor, imageID, regionID, purpose string) error {
	return s.Append(ctx, Record{
		Actor:    actor,
		Action:   ActionDecrypt,
		ImageID:  imageID,
		RegionID: regionID,
		Purpose:  purpose,
	})
}
