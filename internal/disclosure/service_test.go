package disclosure

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"pii-vault/internal/audit"
	"pii-vault/internal/crypto"
	"pii-vault/internal/detect"
	"pii-vault/internal/ingest"
	"pii-vault/internal/patch"
	"pii-vault/internal/rbac"
	"pii-vault/internal/region"
	"pii-vault/internal/store"
)

var testKey = bytes.Repeat([]byte{0x22}, 32)

type fixture struct {
	svc       *Service
	images    *store.MemoryImages
	blobs     *store.MemoryBlobs
	auditRepo *audit.MemoryRepo
	imageID   string
	regionIDs []string
}

// newFixture ingests a 100x100 test image with two valid regions and returns
// a disclosure service over the resulting state.
func newFixture(t *testing.T) fixture {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 9, A: 255})
		}
	}
	png, err := patch.Encode(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	images := store.NewMemoryImages()
	blobs := store.NewMemoryBlobs()
	auditRepo := audit.NewMemoryRepo()
	auditor := audit.NewService(auditRepo, "v")

	detector := detect.Static{Candidates: []region.Candidate{
		{Type: "FACE", Polygon: region.Polygon{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 50}, {X: 10, Y: 50}}, Confidence: 0.9},
		{Type: "TEXT", Polygon: region.Polygon{{X: 60, Y: 60}, {X: 90, Y: 60}, {X: 90, Y: 80}, {X: 60, Y: 80}}, Confidence: 0.7},
	}}

	ing := ingest.NewService(detector, images, blobs, auditor, nil, testKey, "local", "v")
	res, err := ing.Ingest(context.Background(), "system", png)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	ids := make([]string, len(res.Regions))
	for i, r := range res.Regions {
		ids[i] = r.ID
	}

	return fixture{
		svc:       NewService(images, blobs, auditor, testKey),
		images:    images,
		blobs:     blobs,
		auditRepo: auditRepo,
		imageID:   res.ImageID,
		regionIDs: ids,
	}
}

func (f fixture) decryptAudits() []audit.Record {
	return f.auditRepo.ByAction(audit.ActionDecrypt)
}

func TestDecryptForbiddenWithoutReviewerRole(t *testing.T) {
	f := newFixture(t)
	for _, role := range []rbac.Role{rbac.RoleViewer, rbac.RoleAdmin, rbac.RoleUnknown} {
		_, err := f.svc.Decrypt(context.Background(), DecryptRequest{
			ImageID: f.imageID, RegionIDs: f.regionIDs, Actor: "u", Role: role, Purpose: "p",
		})
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("role %v: expected ErrForbidden, got %v", role, err)
		}
	}
	if len(f.decryptAudits()) != 0 {
		t.Fatalf("forbidden calls must write zero audit records")
	}
}

func TestDecryptReturnsPatchesAndAudits(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Decrypt(context.Background(), DecryptRequest{
		ImageID:   f.imageID,
		RegionIDs: f.regionIDs,
		Actor:     "reviewer-7",
		Role:      rbac.RoleReviewer,
		Purpose:   "insurance claim 1234",
	})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(res.Patches) != 2 || len(res.Missing) != 0 {
		t.Fatalf("unexpected result: %d patches, %d missing", len(res.Patches), len(res.Missing))
	}

	// Each patch decodes as an image whose digest matches the region row.
	regs, _ := f.images.ListRegions(context.Background(), f.imageID)
	byID := map[string]region.Region{}
	for _, r := range regs {
		byID[r.ID] = r
	}
	for _, p := range res.Patches {
		if crypto.DigestHex(p.Plaintext) != byID[p.RegionID].SHA256 {
			t.Fatalf("patch %s digest mismatch", p.RegionID)
		}
		if _, err := patch.Decode(p.Plaintext); err != nil {
			t.Fatalf("patch %s not renderable: %v", p.RegionID, err)
		}
	}

	recs := f.decryptAudits()
	if len(recs) != 2 {
		t.Fatalf("expected one DECRYPT audit per region, got %d", len(recs))
	}
	for _, r := range recs {
		if r.Actor != "reviewer-7" || r.Timestamp.IsZero() {
			t.Fatalf("audit record missing actor or timestamp: %+v", r)
		}
		if r.Purpose != "insurance claim 1234" {
			t.Fatalf("audit record missing purpose: %+v", r)
		}
		if r.RegionID == "" || r.ImageID != f.imageID {
			t.Fatalf("audit record missing target: %+v", r)
		}
	}
}

func TestDecryptPartialMatchReturnsFoundSubset(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Decrypt(context.Background(), DecryptRequest{
		ImageID:   f.imageID,
		RegionIDs: []string{f.regionIDs[0], "no-such-region"},
		Actor:     "reviewer-1",
		Role:      rbac.RoleReviewer,
		Purpose:   "p",
	})
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if len(res.Patches) != 1 || res.Patches[0].RegionID != f.regionIDs[0] {
		t.Fatalf("expected the found subset, got %+v", res.Patches)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "no-such-region" {
		t.Fatalf("expected missing id reported, got %v", res.Missing)
	}
	if len(f.decryptAudits()) != 1 {
		t.Fatalf("expected 1 DECRYPT audit for the found region")
	}
}

func TestDecryptNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Decrypt(ctx, DecryptRequest{
		ImageID: "ghost", RegionIDs: f.regionIDs, Actor: "u", Role: rbac.RoleReviewer,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing image: expected ErrNotFound, got %v", err)
	}

	_, err = f.svc.Decrypt(ctx, DecryptRequest{
		ImageID: f.imageID, RegionIDs: []string{"a", "b"}, Actor: "u", Role: rbac.RoleReviewer,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("no matching regions: expected ErrNotFound, got %v", err)
	}

	if len(f.decryptAudits()) != 0 {
		t.Fatalf("failed calls must not audit")
	}
}

func TestDecryptTamperedBlobAbortsWholeCall(t *testing.T) {
	f := newFixture(t)
	if !f.blobs.Corrupt(store.RegionBlobKey(f.imageID, f.regionIDs[1])) {
		t.Fatalf("corrupt helper failed")
	}

	res, err := f.svc.Decrypt(context.Background(), DecryptRequest{
		ImageID:   f.imageID,
		RegionIDs: f.regionIDs,
		Actor:     "reviewer-1",
		Role:      rbac.RoleReviewer,
		Purpose:   "p",
	})
	if !errors.Is(err, ErrIntegrityViolation) {
		t.Fatalf("expected ErrIntegrityViolation, got %v", err)
	}
	if len(res.Patches) != 0 {
		t.Fatalf("no plaintext may be returned on integrity violation")
	}
	if len(f.decryptAudits()) != 0 {
		t.Fatalf("integrity violation must yield zero DECRYPT audits, got %d", len(f.decryptAudits()))
	}
}

func TestDecryptMissingBlobIsInconsistency(t *testing.T) {
	f := newFixture(t)
	if err := f.blobs.Delete(context.Background(), store.RegionBlobKey(f.imageID, f.regionIDs[0])); err != nil {
		t.Fatalf("delete: %v", err)
	}

	_, err := f.svc.Decrypt(context.Background(), DecryptRequest{
		ImageID: f.imageID, RegionIDs: f.regionIDs[:1], Actor: "u", Role: rbac.RoleReviewer,
	})
	if !errors.Is(err, store.ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency, got %v", err)
	}
}

func TestManifestViewIsAudited(t *testing.T) {
	f := newFixture(t)

	m, err := f.svc.Manifest(context.Background(), "viewer-1", f.imageID)
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if len(m.Regions) != 2 {
		t.Fatalf("expected 2 manifest entries")
	}
	// Entries are ordered by region id.
	if m.Regions[0].ID > m.Regions[1].ID {
		t.Fatalf("manifest not ordered by region id")
	}

	views := f.auditRepo.ByAction(audit.ActionView)
	if len(views) != 1 || views[0].Actor != "viewer-1" {
		t.Fatalf("expected 1 VIEW audit, got %+v", views)
	}

	if _, err := f.svc.Manifest(context.Background(), "viewer-1", "ghost"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing image, got %v", err)
	}
}

func TestRedactedPNG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	data, err := f.svc.RedactedPNG(ctx, "viewer-1", f.imageID)
	if err != nil {
		t.Fatalf("redacted: %v", err)
	}
	if _, err := patch.Decode(data); err != nil {
		t.Fatalf("redacted bytes not a valid image: %v", err)
	}
	if len(f.auditRepo.ByAction(audit.ActionView)) != 1 {
		t.Fatalf("expected VIEW audit")
	}

	// Row exists but blob is gone: inconsistency, not NotFound.
	if err := f.blobs.Delete(ctx, store.RedactedImageKey(f.imageID)); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.svc.RedactedPNG(ctx, "viewer-1", f.imageID); !errors.Is(err, store.ErrInconsistency) {
		t.Fatalf("expected ErrInconsistency, got %v", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.Delete(ctx, "admin-1", rbac.RoleReviewer, f.imageID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-admin delete: expected ErrForbidden, got %v", err)
	}

	if err := f.svc.Delete(ctx, "admin-1", rbac.RoleAdmin, f.imageID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := f.images.GetImage(ctx, f.imageID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("image row survived delete")
	}
	if regs, _ := f.images.ListRegions(ctx, f.imageID); len(regs) != 0 {
		t.Fatalf("region rows survived delete")
	}
	if keys := f.blobs.Keys(); len(keys) != 0 {
		t.Fatalf("orphaned blobs after delete: %v", keys)
	}

	if err := f.svc.Delete(ctx, "admin-1", rbac.RoleAdmin, f.imageID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}
