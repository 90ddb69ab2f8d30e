package manifest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"pii-vault/internal/region"
)

func TestBuildOrdersByRegionID(t *testing.T) {
	img := region.Image{ID: "img-1", PipelineVersion: "pii-vault-0.1.0", CreatedAt: time.Unix(1700000000, 0).UTC()}
	regions := []region.Region{
		{ID: "c", ImageID: "img-1", Type: "TEXT"},
		{ID: "a", ImageID: "img-1", Type: "FACE"},
		{ID: "b", ImageID: "img-1", Type: "FACE"},
	}

	m := Build(img, regions)
	if len(m.Regions) != 3 {
		t.Fatalf("expected 3 entries")
	}
	for i, want := range []string{"a", "b", "c"} {
		if m.Regions[i].ID != want {
			t.Fatalf("entry %d: expected id %s, got %s", i, want, m.Regions[i].ID)
		}
	}
	if m.ImageID != "img-1" || m.Version != "pii-vault-0.1.0" {
		t.Fatalf("unexpected manifest header: %+v", m)
	}
}

func TestBuildExcludesKeyMaterial(t *testing.T) {
	img := region.Image{ID: "img-1", OriginalKey: "images/img-1/original.png"}
	regions := []region.Region{{
		ID:       "r1",
		ImageID:  "img-1",
		Type:     "FACE",
		Polygon:  region.Polygon{{X: 10, Y: 10}, {X: 50, Y: 10}, {X: 50, Y: 50}, {X: 10, Y: 50}},
		SHA256:   strings.Repeat("ab", 32),
		EncAlgo:  region.AlgoAESGCM,
		NonceHex: strings.Repeat("cd", 12),
		KeyRef:   "kms-key-secret-ref",
	}}

	data, err := json.Marshal(Build(img, regions))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(data)
	if strings.Contains(s, "kms-key-secret-ref") {
		t.Fatalf("manifest leaks key reference: %s", s)
	}
	if strings.Contains(s, "original.png") {
		t.Fatalf("manifest leaks original storage key: %s", s)
	}
	for _, want := range []string{`"sha256"`, `"iv"`, `"enc_algo"`, `"polygon"`, `"confidence"`} {
		if !strings.Contains(s, want) {
			t.Fatalf("manifest missing %s: %s", want, s)
		}
	}
}

func TestBuildEmptyRegions(t *testing.T) {
	m := Build(region.Image{ID: "img-1"}, nil)
	if m.Regions == nil || len(m.Regions) != 0 {
		t.Fatalf("expected empty non-nil region list")
	}
}
