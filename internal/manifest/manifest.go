// Package manifest projects an Image and its Regions into the read view
// handed to untrusted callers: what was protected and how, with no key
// material and no ciphertext.
package manifest

import (
	"sort"
	"time"

	"pii-vault/internal/region"
)

// Entry is one region as exposed to viewers. The key reference and the
// ciphertext bytes deliberately have no field here.
type Entry struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Polygon    region.Polygon `json:"polygon"`
	Confidence float64        `json:"confidence"`
	SHA256     string         `json:"sha256"`
	Nonce      string         `json:"iv"`
	EncAlgo    string         `json:"enc_algo"`
}

type Manifest struct {
	ImageID   string    `json:"image_id"`
	Version   string    `json:"version"`
	Regions   []Entry   `json:"regions"`
	CreatedAt time.Time `json:"created_at"`
}

// Build is a pure projection: regions are ordered by their id (stable
// regardless of detection or storage order) and stripped down to non-secret
// metadata.
func Build(img region.Image, regions []region.Region) Manifest {
	entries := make([]Entry, 0, len(regions))
	for _, r := range regions {
		entries = append(entries, Entry{
			ID:         r.ID,
			Type:       r.Type,
			Polygon:    r.Polygon,
			Confidence: r.Confidence,
			SHA256:     r.SHA256,
			Nonce:      r.NonceHex,
			EncAlgo:    r.EncAlgo,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })

	return Manifest{
		ImageID:   img.ID,
		Version:   img.PipelineVersion,
		Regions:   entries,
		CreatedAt: img.CreatedAt,
	}
}
