package recommend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"krishighor/internal/domain"
)

const artifactFormat = "krishighor.crop-index"

var (
	ErrEmptyCatalog  = errors.New("catalog is empty")
	ErrNoArtifact    = errors.New("no persisted index")
	ErrIncompatible  = errors.New("persisted index is incompatible")
	ErrMalformedItem = errors.New("malformed cart item")
)

// Index is a brute-force nearest-neighbour index over a catalog snapshot.
// It is immutable once built and safe for concurrent readers.
type Index struct {
	Format    string        `json:"format"`
	Schema    int           `json:"schema"`
	Dims      int           `json:"dims"`
	Version   int64         `json:"version"`
	TrainedAt time.Time     `json:"trained_at"`
	Neighbors int           `json:"neighbors"`
	Crops     []domain.Crop `json:"crops"`
	Vectors   []Vector      `json:"vectors"`
}

// Build fits an index over catalog. neighbors is the default k for queries.
func Build(catalog []domain.Crop, neighbors int, now time.Time) (*Index, error) {
	if len(catalog) == 0 {
		return nil, ErrEmptyCatalog
	}
	idx := &Index{
		Format:    artifactFormat,
		Schema:    FeatureSchema,
		Dims:      Dims,
		Version:   now.UnixNano(),
		TrainedAt: now.UTC(),
		Neighbors: neighbors,
		Crops:     slices.Clone(catalog),
		Vectors:   make([]Vector, len(catalog)),
	}
	for i, c := range catalog {
		idx.Vectors[i] = CropVector(c)
	}
	return idx, nil
}

// compatible reports whether a decoded index can be queried by this build.
func (idx *Index) compatible() error {
	switch {
	case idx.Format != artifactFormat:
		return fmt.Errorf("%w: format %q", ErrIncompatible, idx.Format)
	case idx.Schema != FeatureSchema || idx.Dims != Dims:
		return fmt.Errorf("%w: schema %d/%d dims, want %d/%d", ErrIncompatible, idx.Schema, idx.Dims, FeatureSchema, Dims)
	case len(idx.Crops) == 0 || len(idx.Crops) != len(idx.Vectors):
		return fmt.Errorf("%w: %d crops for %d vectors", ErrIncompatible, len(idx.Crops), len(idx.Vectors))
	}
	for _, v := range idx.Vectors {
		if len(v) != Dims {
			return fmt.Errorf("%w: vector of length %d", ErrIncompatible, len(v))
		}
	}
	return nil
}

type neighbor struct {
	pos      int
	distance float64
}

// nearest returns the k closest catalog positions to v, closest first. k is
// clamped to the catalog size.
func (idx *Index) nearest(v Vector, k int) []neighbor {
	k = min(k, len(idx.Vectors))
	if k <= 0 {
		return nil
	}
	all := make([]neighbor, len(idx.Vectors))
	for i, cv := range idx.Vectors {
		all[i] = neighbor{pos: i, distance: cosineDistance(v, cv)}
	}
	slices.SortStableFunc(all, func(a, b neighbor) int { return cmp.Compare(a.distance, b.distance) })
	return all[:k]
}

// Recommend aggregates the neighbours of every cart item, drops each item's
// own crop, keeps the best score per crop and returns the top limit.
func (idx *Index) Recommend(cart []domain.CartItem, k, limit int) ([]domain.Recommendation, error) {
	if k <= 0 {
		k = idx.Neighbors
	}
	best := map[int64]domain.Recommendation{}
	for i, it := range cart {
		if err := checkItem(it); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		for _, n := range idx.nearest(CartVector(it), k) {
			crop := idx.Crops[n.pos]
			if it.ID != nil && crop.ID == *it.ID {
				continue
			}
			score := min(1, max(0, 1-n.distance))
			if prev, ok := best[crop.ID]; !ok || score > prev.SimilarityScore {
				best[crop.ID] = domain.Recommendation{Crop: crop, SimilarityScore: score}
			}
		}
	}

	out := make([]domain.Recommendation, 0, len(best))
	for _, r := range best {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Recommendation) int {
		if c := cmp.Compare(b.SimilarityScore, a.SimilarityScore); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func checkItem(it domain.CartItem) error {
	switch {
	case strings.TrimSpace(it.Name) == "":
		return fmt.Errorf("%w: missing name", ErrMalformedItem)
	case it.Price.IsNegative():
		return fmt.Errorf("%w: negative price", ErrMalformedItem)
	case it.Quantity != nil && *it.Quantity < 0:
		return fmt.Errorf("%w: negative quantity", ErrMalformedItem)
	}
	return nil
}
