package region

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"
)

// AlgoAESGCM is the only encryption algorithm id this service writes.
// Stored on every Region row so a future algorithm migration can tell
// generations apart.
const AlgoAESGCM = "AES-GCM"

// ErrInvalid marks a detector candidate that fails region validation.
// During ingestion these are dropped with a warning, never fatal.
var ErrInvalid = errors.New("invalid region")

// Point is one polygon vertex in pixel coordinates.
type Point struct {
	X int
	Y int
}

// Polygon is an ordered sequence of vertices. It is interpreted through its
// axis-aligned bounding box for both redaction and patch cropping.
//
// The wire and persisted form is a JSON array of [x,y] integer pairs.
type Polygon []Point

func (p Polygon) MarshalJSON() ([]byte, error) {
	pairs := make([][2]int, len(p))
	for i, pt := range p {
		pairs[i] = [2]int{pt.X, pt.Y}
	}
	return json.Marshal(pairs)
}

func (p *Polygon) UnmarshalJSON(data []byte) error {
	var pairs [][2]int
	if err := json.Unmarshal(data, &pairs); err != nil {
		return err
	}
	out := make(Polygon, len(pairs))
	for i, pr := range pairs {
		out[i] = Point{X: pr[0], Y: pr[1]}
	}
	*p = out
	return nil
}

// Bounds returns the axis-aligned bounding box of the polygon.
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	minX, minY := p[0].X, p[0].Y
	maxX, maxY := p[0].X, p[0].Y
	for _, pt := range p[1:] {
		if pt.X < minX {
			minX = pt.X
		}
		if pt.Y < minY {
			minY = pt.Y
		}
		if pt.X > maxX {
			maxX = pt.X
		}
		if pt.Y > maxY {
			maxY = pt.Y
		}
	}
	return image.Rect(minX, minY, maxX, maxY)
}

// Candidate is a detector's raw output before validation: a labelled polygon
// with a confidence score. Candidates carry no identity; a Region id is
// assigned only once the candidate is accepted for encryption.
type Candidate struct {
	Type       string  `json:"type"`
	Polygon    Polygon `json:"polygon"`
	Confidence float64 `json:"confidence"`
}

// Validate enforces the region constraints: a non-empty type label, at least
// three vertices, a non-degenerate bounding box, and a confidence in [0,1].
// All violations wrap ErrInvalid.
func (c Candidate) Validate() error {
	if c.Type == "" {
		return fmt.Errorf("%w: empty type label", ErrInvalid)
	}
	if len(c.Polygon) < 3 {
		return fmt.Errorf("%w: polygon needs at least 3 points, got %d", ErrInvalid, len(c.Polygon))
	}
	b := c.Polygon.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: degenerate bounding box %dx%d", ErrInvalid, b.Dx(), b.Dy())
	}
	if c.Confidence < 0 || c.Confidence > 1 {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrInvalid, c.Confidence)
	}
	return nil
}

// Region is the persisted record of one protected sub-area: the detector
// output plus the encryption metadata needed to later locate, verify, and
// decrypt its ciphertext blob.
//
// Invariants:
// - SHA256 is the hex digest of the plaintext patch bytes, computed before
//   encryption.
// - NonceHex is unique per encryption operation under the master key.
// - KeyRef identifies the key, never contains key material.
// - A Region never exists without its owning Image (cascade delete).
type Region struct {
	ID      string `json:"id" db:"id"`
	ImageID string `json:"image_id" db:"image_id"`

	Type       string  `json:"type" db:"type"`
	Polygon    Polygon `json:"polygon" db:"polygon_json"`
	Confidence float64 `json:"confidence" db:"confidence"`

	SHA256   string `json:"sha256" db:"sha256"`
	EncAlgo  string `json:"enc_algo" db:"enc_algo"`
	NonceHex string `json:"nonce" db:"nonce_hex"`
	KeyRef   string `json:"-" db:"key_ref"`
}

// Image is the owning record for a set of Regions: where the original and
// redacted pixel bytes live, who ingested it, and under which pipeline
// generation.
type Image struct {
	ID          string    `json:"id" db:"id"`
	OriginalKey string    `json:"-" db:"original_key"`
	RedactedKey string    `json:"-" db:"redacted_key"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`

	PipelineVersion string `json:"pipeline_version" db:"pipeline_version"`
	CreatedBy       string `json:"created_by" db:"created_by"`
}
