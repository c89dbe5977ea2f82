package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"krishighor/internal/domain"
	applog "krishighor/internal/log"
)

// CatalogSource supplies the full catalog for training.
type CatalogSource interface {
	All(ctx context.Context) ([]domain.Crop, error)
}

type Options struct {
	Neighbors int           // k per cart item, at least 5
	Limit     int           // results returned, default 5
	MaxAge    time.Duration // persisted or cached indexes older than this are retrained; 0 disables
}

// Engine owns the process-wide index. The first caller after a cache miss
// loads or trains it; callers arriving meanwhile wait for that same build.
type Engine struct {
	catalog CatalogSource
	store   ArtifactStore
	opts    Options
	now     func() time.Time

	mu    sync.RWMutex
	index *Index

	group  singleflight.Group
	saveMu sync.Mutex
	builds atomic.Int64
}

func NewEngine(catalog CatalogSource, store ArtifactStore, opts Options) *Engine {
	if opts.Neighbors < 5 {
		opts.Neighbors = 5
	}
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	return &Engine{catalog: catalog, store: store, opts: opts, now: time.Now}
}

// Builds reports how many times the engine trained from the catalog.
func (e *Engine) Builds() int64 { return e.builds.Load() }

func (e *Engine) fresh(idx *Index) bool {
	return idx != nil && (e.opts.MaxAge <= 0 || e.now().Sub(idx.TrainedAt) <= e.opts.MaxAge)
}

func (e *Engine) cached() *Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.fresh(e.index) {
		return e.index
	}
	return nil
}

func (e *Engine) set(idx *Index) {
	e.mu.Lock()
	e.index = idx
	e.mu.Unlock()
}

// Invalidate drops the cached index; the next query reloads or retrains.
func (e *Engine) Invalidate() { e.set(nil) }

// GetOrBuild returns the cached index, else a compatible persisted one, else
// a freshly trained one.
func (e *Engine) GetOrBuild(ctx context.Context) (*Index, error) {
	if idx := e.cached(); idx != nil {
		return idx, nil
	}
	v, err, _ := e.group.Do("index", func() (any, error) {
		if idx := e.cached(); idx != nil {
			return idx, nil
		}
		bctx := context.WithoutCancel(ctx)
		if idx := e.load(bctx); idx != nil {
			e.set(idx)
			return idx, nil
		}
		return e.train(bctx)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return v.(*Index), nil
}

// Retrain trains from the current catalog and persists the result,
// regardless of what is cached.
func (e *Engine) Retrain(ctx context.Context) (*Index, error) {
	v, err, _ := e.group.Do("retrain", func() (any, error) {
		return e.train(context.WithoutCancel(ctx))
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrModelUnavailable, err)
	}
	return v.(*Index), nil
}

func (e *Engine) load(ctx context.Context) *Index {
	if e.store == nil {
		return nil
	}
	idx, err := e.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNoArtifact):
		return nil
	case err != nil:
		applog.Warn(nil, "recommend.index.load", map[string]any{"err": err.Error()})
		return nil
	case !e.fresh(idx):
		applog.Info(nil, "recommend.index.stale", map[string]any{"version": idx.Version})
		return nil
	}
	applog.Info(nil, "recommend.index.loaded", map[string]any{"version": idx.Version, "crops": len(idx.Crops)})
	return idx
}

func (e *Engine) train(ctx context.Context) (*Index, error) {
	crops, err := e.catalog.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	idx, err := Build(crops, e.opts.Neighbors, e.now())
	if err != nil {
		return nil, err
	}
	e.builds.Add(1)

	if e.store != nil {
		e.saveMu.Lock()
		err := e.store.Save(ctx, idx)
		e.saveMu.Unlock()
		if err != nil {
			// The index is still usable from memory.
			applog.Error(nil, "recommend.index.save", err, map[string]any{"version": idx.Version})
		}
	}
	e.set(idx)
	applog.Info(nil, "recommend.index.trained", map[string]any{"version": idx.Version, "crops": len(crops)})
	return idx, nil
}

// Recommend never fails: any error is logged and yields an empty list.
func (e *Engine) Recommend(ctx context.Context, cart []domain.CartItem) []domain.Recommendation {
	empty := []domain.Recommendation{}
	if len(cart) == 0 {
		return empty
	}
	idx, err := e.GetOrBuild(ctx)
	if err != nil {
		applog.Error(nil, "recommend.unavailable", err, map[string]any{"cart": len(cart)})
		return empty
	}
	recs, err := idx.Recommend(cart, e.opts.Neighbors, e.opts.Limit)
	if err != nil {
		applog.Warn(nil, "recommend.cart.reject", map[string]any{"err": err.Error(), "cart": len(cart)})
		return empty
	}
	return recs
}
