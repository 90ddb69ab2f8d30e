package store

import (
	"context"
	"sort"
	"sync"

	"pii-vault/internal/region"
)

// MemoryImages is an in-memory Images implementation for tests.
type MemoryImages struct {
	mu      sync.Mutex
	images  map[string]region.Image
	regions map[string][]region.Region // by image id
}

func NewMemoryImages() *MemoryImages {
	return &MemoryImages{
		images:  make(map[string]region.Image),
		regions: make(map[string][]region.Region),
	}
}

func (s *MemoryImages) InsertImage(ctx context.Context, img region.Image, regions []region.Region) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.images[img.ID] = img
	s.regions[img.ID] = append([]region.Region(nil), regions...)
	return nil
}

func (s *MemoryImages) GetImage(ctx context.Context, imageID string) (region.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	img, ok := s.images[imageID]
	if !ok {
		return region.Image{}, ErrNotFound
	}
	return img, nil
}

func (s *MemoryImages) ListRegions(ctx context.Context, imageID string) ([]region.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]region.Region(nil), s.regions[imageID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryImages) GetRegions(ctx context.Context, imageID string, regionIDs []string) ([]region.Region, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := make(map[string]struct{}, len(regionIDs))
	for _, id := range regionIDs {
		want[id] = struct{}{}
	}
	var out []region.Region
	for _, r := range s.regions[imageID] {
		if _, ok := want[r.ID]; ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryImages) DeleteImage(ctx context.Context, imageID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.images[imageID]; !ok {
		return nil, ErrNotFound
	}
	var ids []string
	for _, r := range s.regions[imageID] {
		ids = append(ids, r.ID)
	}
	delete(s.images, imageID)
	delete(s.regions, imageID)
	return ids, nil
}
