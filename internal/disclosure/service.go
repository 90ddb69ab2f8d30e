// Package disclosure gates every read of protected content: manifests,
// redacted bytes, and above all decryption. Plaintext never leaves this
// package without its audit trail written first.
package disclosure

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"

	"pii-vault/internal/audit"
	"pii-vault/internal/crypto"
	"pii-vault/internal/manifest"
	"pii-vault/internal/rbac"
	"pii-vault/internal/store"
	"pii-vault/pkg/logger"
)

var (
	// ErrForbidden is an authorization failure; it is raised before any
	// storage access.
	ErrForbidden = errors.New("reviewer role required")

	// ErrNotFound covers a missing image, or a decrypt request where none of
	// the named regions belong to the image.
	ErrNotFound = errors.New("not found")

	// ErrIntegrityViolation aborts a decrypt call when any requested region
	// fails tag verification or digest recheck. A tampered region throws the
	// whole blob store under suspicion, so no plaintext is released at all.
	ErrIntegrityViolation = errors.New("region integrity violation")
)

// Service is the disclosure controller.
type Service struct {
	images  store.Images
	blobs   store.Blobs
	auditor *audit.Service

	masterKey []byte
}

func NewService(images store.Images, blobs store.Blobs, auditor *audit.Service, masterKey []byte) *Service {
	return &Service{images: images, blobs: blobs, auditor: auditor, masterKey: masterKey}
}

// DecryptRequest names the regions a reviewer wants disclosed and why.
type DecryptRequest struct {
	ImageID   string
	RegionIDs []string
	Actor     string
	Role      rbac.Role
	Purpose   string
}

// Patch is one disclosed region: the decrypted, renderable patch payload.
type Patch struct {
	RegionID  string
	Type      string
	Plaintext []byte
}

// DecryptResult carries the disclosed patches plus any requested region ids
// that do not belong to the image.
//
// Partial-match policy: the found subset is returned and the missing ids are
// reported explicitly. The call fails with ErrNotFound only when the image is
// absent or no requested region matches.
type DecryptResult struct {
	Patches []Patch
	Missing []string
}

// Decrypt validates the request, decrypts every matched region, writes one
// DECRYPT audit record per region, and only then returns plaintext.
//
// All regions are decrypted into memory before the first audit write: a
// failure anywhere yields zero plaintext and zero audit records. Plaintext is
// transient; nothing here caches or persists it.
func (s *Service) Decrypt(ctx context.Context, req DecryptRequest) (DecryptResult, error) {
	if !req.Role.CanDisclose() {
		return DecryptResult{}, ErrForbidden
	}
	if req.Actor == "" {
		return DecryptResult{}, ErrForbidden
	}
	if len(req.RegionIDs) == 0 {
		return DecryptResult{}, fmt.Errorf("%w: no regions requested", ErrNotFound)
	}

	if _, err := s.images.GetImage(ctx, req.ImageID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return DecryptResult{}, fmt.Errorf("%w: image %s", ErrNotFound, req.ImageID)
		}
		return DecryptResult{}, err
	}

	regions, err := s.images.GetRegions(ctx, req.ImageID, req.RegionIDs)
	if err != nil {
		return DecryptResult{}, err
	}
	if len(regions) == 0 {
		return DecryptResult{}, fmt.Errorf("%w: no matching regions", ErrNotFound)
	}

	found := make(map[string]struct{}, len(regions))
	patches := make([]Patch, 0, len(regions))
	for _, r := range regions {
		found[r.ID] = struct{}{}

		// Ciphertext lives under the region's own stable id.
		ciphertext, err := s.blobs.Get(ctx, store.RegionBlobKey(req.ImageID, r.ID))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Row without blob: a consistency fault, not a caller error.
				return DecryptResult{}, fmt.Errorf("%w: region %s ciphertext missing", store.ErrInconsistency, r.ID)
			}
			return DecryptResult{}, err
		}

		nonce, err := hex.DecodeString(r.NonceHex)
		if err != nil {
			return DecryptResult{}, fmt.Errorf("%w: region %s nonce corrupt", store.ErrInconsistency, r.ID)
		}

		plaintext, err := crypto.Decrypt(ciphertext, s.masterKey, nonce)
		if err != nil {
			if errors.Is(err, crypto.ErrAuthentication) {
				logger.From(ctx).Error("ciphertext failed authentication",
					"image_id", req.ImageID, "region_id", r.ID)
				return DecryptResult{}, fmt.Errorf("%w: region %s", ErrIntegrityViolation, r.ID)
			}
			return DecryptResult{}, err
		}

		// Re-derive the plaintext digest against the stored one. The GCM tag
		// already authenticates the bytes; this catches a row pointing at the
		// wrong (but validly encrypted) blob.
		if crypto.DigestHex(plaintext) != r.SHA256 {
			return DecryptResult{}, fmt.Errorf("%w: region %s digest mismatch", ErrIntegrityViolation, r.ID)
		}

		patches = append(patches, Patch{RegionID: r.ID, Type: r.Type, Plaintext: plaintext})
	}

	var missing []string
	for _, id := range req.RegionIDs {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}

	// Every decrypt gets its audit record before any plaintext is returned.
	for _, p := range patches {
		if err := s.auditor.LogDecrypt(ctx, req.Actor, req.ImageID, p.RegionID, req.Purpose); err != nil {
			return DecryptResult{}, fmt.Errorf("audit decrypt: %w", err)
		}
	}

	return DecryptResult{Patches: patches, Missing: missing}, nil
}

// Manifest returns the non-secret protection record for an image and logs a
// VIEW action.
func (s *Service) Manifest(ctx context.Context, actor, imageID string) (manifest.Manifest, error) {
	img, err := s.images.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return manifest.Manifest{}, fmt.Errorf("%w: image %s", ErrNotFound, imageID)
		}
		return manifest.Manifest{}, err
	}
	regions, err := s.images.ListRegions(ctx, imageID)
	if err != nil {
		return manifest.Manifest{}, err
	}

	if err := s.auditor.LogView(ctx, actor, imageID); err != nil {
		return manifest.Manifest{}, fmt.Errorf("audit view: %w", err)
	}
	return manifest.Build(img, regions), nil
}

// RedactedPNG returns the safe-to-share image bytes and logs a VIEW action.
func (s *Service) RedactedPNG(ctx context.Context, actor, imageID string) ([]byte, error) {
	img, err := s.images.GetImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: image %s", ErrNotFound, imageID)
		}
		return nil, err
	}

	data, err := s.blobs.Get(ctx, img.RedactedKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: redacted bytes missing for image %s", store.ErrInconsistency, imageID)
		}
		return nil, err
	}

	if err := s.auditor.LogView(ctx, actor, imageID); err != nil {
		return nil, fmt.Errorf("audit view: %w", err)
	}
	return data, nil
}

// Delete removes an image, its region rows, and every associated blob.
// Blob deletion failures after the row delete are logged, not returned; the
// rows are the source of truth and are already gone.
func (s *Service) Delete(ctx context.Context, actor string, role rbac.Role, imageID string) error {
	if !role.CanDelete() {
		return ErrForbidden
	}

	regionIDs, err := s.images.DeleteImage(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: image %s", ErrNotFound, imageID)
		}
		return err
	}

	log := logger.From(ctx)
	keys := make([]string, 0, len(regionIDs)+2)
	for _, rid := range regionIDs {
		keys = append(keys, store.RegionBlobKey(imageID, rid))
	}
	keys = append(keys, store.OriginalImageKey(imageID), store.RedactedImageKey(imageID))
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, store.ErrNotFound) {
			log.Error("blob delete failed", "key", key, "err", err)
		}
	}
	return nil
}
