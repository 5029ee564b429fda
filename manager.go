package tessera

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrDisposed is returned by every manager operation after Dispose.
var ErrDisposed = errors.New("tessera: transformation manager disposed")

// ManagerConfig controls a TransformationManager.
type ManagerConfig struct {
	// Cache configures the underlying transformation cache.
	Cache CacheConfig
	// VersionedKeys embeds the coordinate system's config version into
	// every cache key. Entries cached under an older geometry can then
	// never hit, removing the need to Reset after UpdateConfig (at the
	// cost of leaving stale entries to age out via LRU/TTL).
	VersionedKeys bool
}

// TransformResult carries the outcome of a single cached transform.
type TransformResult[T any] struct {
	// Value is the transform output; meaningful only when OK.
	Value T
	// OK is false when the transform produced no result (for example a
	// point outside the grid). A no-result is cached like any other value.
	OK bool
	// FromCache is true when the value was served from the cache,
	// including when a concurrent caller's in-flight computation was
	// shared.
	FromCache bool
	// Duration is the wall time of this call.
	Duration time.Duration
}

// BatchItem is one entry of a BatchResult, in input order.
type BatchItem[T any] struct {
	Value     T
	OK        bool
	FromCache bool
	// Err is set when the transformer failed for this point. Other points
	// are unaffected.
	Err error
}

// BatchResult aggregates a batch transform. Items match the input order 1:1.
type BatchResult[T any] struct {
	Items        []BatchItem[T]
	CacheHits    int
	CacheMisses  int
	CacheHitRate float64
	Duration     time.Duration
}

// TransformFunc computes a transform for one input point. Returning ok=false
// is the no-result outcome and is cached; returning a non-nil error
// propagates to the caller and caches nothing.
type TransformFunc[F CacheKeyer, T any] func(F) (T, bool, error)

// cachedValue wraps a transform output so a cached no-result is distinct
// from cache absence.
type cachedValue[T any] struct {
	value T
	ok    bool
}

// TransformationManager layers caching, batching, interpolation, and
// diagnostics over a CoordinateSystem. Each manager owns its cache and
// recorder outright; independent workspaces never share state.
type TransformationManager struct {
	cs    *CoordinateSystem
	cache *TransformationCache
	group singleflight.Group

	recorder *recorder
	batches  *batchTracker

	versionedKeys bool

	// streamCtx parents every interpolation stream; Dispose cancels it.
	streamCtx    context.Context
	streamCancel context.CancelFunc

	disposed atomic.Bool
}

// NewTransformationManager creates a manager over the given coordinate
// system.
func NewTransformationManager(cs *CoordinateSystem, cfg ManagerConfig) *TransformationManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &TransformationManager{
		cs:            cs,
		cache:         NewTransformationCache(cfg.Cache),
		recorder:      newRecorder(),
		batches:       newBatchTracker(),
		versionedKeys: cfg.VersionedKeys,
		streamCtx:     ctx,
		streamCancel:  cancel,
	}
}

// CoordinateSystem returns the wrapped coordinate system.
func (m *TransformationManager) CoordinateSystem() *CoordinateSystem {
	return m.cs
}

// cacheKey builds the cache key for a transform call.
func (m *TransformationManager) cacheKey(transformType, pointKey string) string {
	if m.versionedKeys {
		return "v" + strconv.FormatUint(m.cs.Version(), 10) + "|" + transformType + "|" + pointKey
	}
	return transformType + "|" + pointKey
}

// Transform runs fn(from) through the manager's cache. The cache key is
// (transformType, from); on a hit the cached value is returned without
// invoking fn. Concurrent callers missing on the same key coalesce into a
// single computation. A transformer error propagates and caches nothing.
//
// Transform is a package-level function because Go methods cannot introduce
// type parameters.
func Transform[F CacheKeyer, T any](m *TransformationManager, from F, transformType string, fn TransformFunc[F, T]) (TransformResult[T], error) {
	if m.disposed.Load() {
		return TransformResult[T]{}, ErrDisposed
	}
	start := time.Now()
	key := m.cacheKey(transformType, from.CacheKey())

	if v, found := m.cache.Get(key); found {
		cv := v.(cachedValue[T])
		res := TransformResult[T]{Value: cv.value, OK: cv.ok, FromCache: true, Duration: time.Since(start)}
		m.recorder.record(transformType, from.CacheKey(), cv.value, cv.ok, res.Duration, true)
		return res, nil
	}

	v, err, shared := m.group.Do(key, func() (any, error) {
		value, ok, err := fn(from)
		if err != nil {
			return nil, err
		}
		cv := cachedValue[T]{value: value, ok: ok}
		m.cache.Put(key, cv)
		return cv, nil
	})
	if err != nil {
		return TransformResult[T]{}, err
	}

	cv := v.(cachedValue[T])
	res := TransformResult[T]{Value: cv.value, OK: cv.ok, FromCache: shared, Duration: time.Since(start)}
	m.recorder.record(transformType, from.CacheKey(), cv.value, cv.ok, res.Duration, shared)
	return res, nil
}

// BatchTransform applies the same cache-or-compute logic to every point,
// reusing cache entries for repeated points. Results preserve input order; a
// transformer failure on one point is recorded in that point's item and does
// not abort the batch.
func BatchTransform[F CacheKeyer, T any](m *TransformationManager, points []F, transformType string, fn TransformFunc[F, T]) BatchResult[T] {
	res := BatchResult[T]{Items: make([]BatchItem[T], len(points))}
	if m.disposed.Load() {
		for i := range res.Items {
			res.Items[i].Err = ErrDisposed
		}
		return res
	}
	start := time.Now()

	for i, from := range points {
		pointKey := from.CacheKey()
		key := m.cacheKey(transformType, pointKey)

		if v, found := m.cache.Get(key); found {
			cv := v.(cachedValue[T])
			res.Items[i] = BatchItem[T]{Value: cv.value, OK: cv.ok, FromCache: true}
			res.CacheHits++
			m.recorder.record(transformType, pointKey, cv.value, cv.ok, 0, true)
			continue
		}
		res.CacheMisses++

		value, ok, err := fn(from)
		if err != nil {
			res.Items[i] = BatchItem[T]{Err: fmt.Errorf("point %d (%s): %w", i, pointKey, err)}
			continue
		}
		m.cache.Put(key, cachedValue[T]{value: value, ok: ok})
		res.Items[i] = BatchItem[T]{Value: value, OK: ok}
		m.recorder.record(transformType, pointKey, value, ok, 0, false)
	}

	res.Duration = time.Since(start)
	if total := res.CacheHits + res.CacheMisses; total > 0 {
		res.CacheHitRate = float64(res.CacheHits) / float64(total)
	}
	m.batches.observe(len(points), res.Duration)
	return res
}

// --- Cached convenience wrappers for the hot gesture paths ---

// ScreenToGridCached converts a screen point to a grid cell through the cache.
func (m *TransformationManager) ScreenToGridCached(p ScreenPoint) (TransformResult[GridPoint], error) {
	return Transform(m, p, "screenToGrid", func(p ScreenPoint) (GridPoint, bool, error) {
		g, ok := m.cs.ScreenToGrid(p)
		return g, ok, nil
	})
}

// GridToCanvasCached converts a grid cell to its canvas center through the cache.
func (m *TransformationManager) GridToCanvasCached(p GridPoint) (TransformResult[CanvasPoint], error) {
	return Transform(m, p, "gridToCanvas", func(p GridPoint) (CanvasPoint, bool, error) {
		return m.cs.GridToCanvas(p), true, nil
	})
}

// CanvasToWorkspaceCached converts a canvas point to workspace space through
// the cache.
func (m *TransformationManager) CanvasToWorkspaceCached(p CanvasPoint) (TransformResult[WorkspacePoint], error) {
	return Transform(m, p, "canvasToWorkspace", func(p CanvasPoint) (WorkspacePoint, bool, error) {
		return m.cs.CanvasToWorkspace(p), true, nil
	})
}

// --- Recording ---

// StartRecording begins capturing every Transform/BatchTransform call.
func (m *TransformationManager) StartRecording() { m.recorder.start() }

// StopRecording stops capture. Already-captured records remain exportable.
func (m *TransformationManager) StopRecording() { m.recorder.stop() }

// ExportRecords returns a copy of the captured records in call order.
func (m *TransformationManager) ExportRecords() []PerformanceRecord {
	return m.recorder.export()
}

// RecordCount returns the number of captured records.
func (m *TransformationManager) RecordCount() int { return m.recorder.count() }

// --- Lifecycle ---

// CreateInterpolation returns an Interpolator whose streams are parented to
// this manager and stop on Dispose.
func (m *TransformationManager) CreateInterpolation(duration time.Duration, mode InterpolationMode, fps int) *Interpolator {
	return newInterpolator(m.streamCtx, duration, mode, fps)
}

// Metrics returns cache metrics, per-transform-type summaries over the
// recorded calls, and batch throughput statistics.
func (m *TransformationManager) Metrics() ManagerMetrics {
	return ManagerMetrics{
		Cache:  m.cache.Metrics(),
		ByType: m.recorder.summarize(),
		Batch:  m.batches.stats(),
	}
}

// Reset clears cache contents, the recorder log, and batch statistics. This
// is the invalidation mechanism to call after a geometry-changing
// CoordinateSystem.UpdateConfig.
func (m *TransformationManager) Reset() {
	m.cache.Clear()
	m.recorder.reset()
	m.batches.reset()
}

// Dispose releases cache storage and the recorder log and cancels any
// running interpolation streams. The manager is unusable afterwards;
// Transform and BatchTransform return ErrDisposed.
func (m *TransformationManager) Dispose() {
	if !m.disposed.CompareAndSwap(false, true) {
		return
	}
	m.streamCancel()
	m.Reset()
}
