package tessera

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/stat"
)

// PerformanceRecord is one captured transform call, created only while
// recording is active. The exported log doubles as a golden-trace source for
// regression testing.
type PerformanceRecord struct {
	Timestamp     time.Time
	TransformType string
	// From and To are the serialized input and output values. To is empty
	// for a no-result.
	From      string
	To        string
	OK        bool
	Duration  time.Duration
	FromCache bool
}

// TypeMetrics summarizes recorded calls for one transform type.
type TypeMetrics struct {
	Count     int
	CacheHits int
	// Timing summary over the recorded calls, in microseconds. Batch
	// entries carry no per-point timing and are excluded.
	MeanMicros float64
	P95Micros  float64
}

// BatchStats summarizes batch throughput since the last Reset.
type BatchStats struct {
	Batches      int
	LargestBatch int
	// LargestBatchPointsPerSec is the throughput of the largest batch
	// observed, the figure regression harnesses assert against.
	LargestBatchPointsPerSec float64
	MeanPointsPerSec         float64
}

// ManagerMetrics is the structured summary returned by
// TransformationManager.Metrics.
type ManagerMetrics struct {
	Cache  CacheMetrics
	ByType map[string]TypeMetrics
	Batch  BatchStats
}

// recorder captures transform calls into an append-only log while active.
type recorder struct {
	active atomic.Bool

	mu      sync.Mutex
	records []PerformanceRecord
}

func newRecorder() *recorder {
	return &recorder{}
}

func (r *recorder) start() { r.active.Store(true) }
func (r *recorder) stop()  { r.active.Store(false) }

// record appends one entry if recording is active. The value is serialized
// here, so the fmt cost is only paid while recording.
func (r *recorder) record(transformType, fromKey string, value any, ok bool, d time.Duration, fromCache bool) {
	if !r.active.Load() {
		return
	}
	rec := PerformanceRecord{
		Timestamp:     time.Now(),
		TransformType: transformType,
		From:          fromKey,
		OK:            ok,
		Duration:      d,
		FromCache:     fromCache,
	}
	if ok {
		rec.To = fmt.Sprintf("%v", value)
	}
	r.mu.Lock()
	r.records = append(r.records, rec)
	r.mu.Unlock()
}

func (r *recorder) export() []PerformanceRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.records)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = nil
}

// summarize groups the recorded calls by transform type.
func (r *recorder) summarize() map[string]TypeMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	micros := make(map[string][]float64)
	out := make(map[string]TypeMetrics)
	for _, rec := range r.records {
		tm := out[rec.TransformType]
		tm.Count++
		if rec.FromCache {
			tm.CacheHits++
		}
		out[rec.TransformType] = tm
		if rec.Duration > 0 {
			micros[rec.TransformType] = append(micros[rec.TransformType], float64(rec.Duration)/float64(time.Microsecond))
		}
	}
	for t, samples := range micros {
		slices.Sort(samples)
		tm := out[t]
		tm.MeanMicros = stat.Mean(samples, nil)
		tm.P95Micros = stat.Quantile(0.95, stat.Empirical, samples, nil)
		out[t] = tm
	}
	return out
}

// maxBatchSamples bounds the throughput sample window.
const maxBatchSamples = 64

// batchTracker keeps a rolling window of batch throughput samples.
type batchTracker struct {
	mu          sync.Mutex
	batches     int
	largest     int
	largestRate float64
	rates       []float64
}

func newBatchTracker() *batchTracker {
	return &batchTracker{}
}

func (b *batchTracker) observe(points int, d time.Duration) {
	if points == 0 {
		return
	}
	if d <= 0 {
		// Sub-resolution timing; treat the batch as one nanosecond.
		d = time.Nanosecond
	}
	rate := float64(points) / d.Seconds()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches++
	if points >= b.largest {
		b.largest = points
		b.largestRate = rate
	}
	b.rates = append(b.rates, rate)
	if len(b.rates) > maxBatchSamples {
		b.rates = b.rates[1:]
	}
}

func (b *batchTracker) stats() BatchStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := BatchStats{
		Batches:                  b.batches,
		LargestBatch:             b.largest,
		LargestBatchPointsPerSec: b.largestRate,
	}
	if len(b.rates) > 0 {
		s.MeanPointsPerSec = stat.Mean(b.rates, nil)
	}
	return s
}

func (b *batchTracker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.batches, b.largest, b.largestRate = 0, 0, 0
	b.rates = nil
}
