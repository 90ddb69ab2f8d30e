package detect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"

	"pii-vault/internal/region"
)

// Remote calls a detector sidecar over HTTP: POST the PNG bytes, receive a
// JSON array of candidates. The sidecar runs the actual face/text models.
type Remote struct {
	URL    string
	Client *http.Client
}

func NewRemote(url string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{URL: url, Client: client}
}

func (r *Remote) Detect(ctx context.Context, img image.Image) ([]region.Candidate, error) {
	var body bytes.Buffer
	if err := png.Encode(&body, img); err != nil {
		return nil, fmt.Errorf("detector: encode image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("detector: unexpected status %d", resp.StatusCode)
	}

	var out []region.Candidate
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("detector: decode response: %w", err)
	}
	return out, nil
}
