package tessera

import (
	"context"
	"math"
	"time"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// InterpolationMode selects the easing curve applied to the elapsed-time
// fraction. Every mode is monotonic with f(0)=0 and f(1)=1.
type InterpolationMode uint8

const (
	ModeLinear InterpolationMode = iota
	ModeEaseIn
	ModeEaseOut
	ModeEaseInOut
	ModeCubic
)

// String returns the mode name for diagnostics.
func (m InterpolationMode) String() string {
	switch m {
	case ModeLinear:
		return "linear"
	case ModeEaseIn:
		return "easeIn"
	case ModeEaseOut:
		return "easeOut"
	case ModeEaseInOut:
		return "easeInOut"
	case ModeCubic:
		return "cubic"
	default:
		return "unknown"
	}
}

// easeFunc maps the mode onto its gween easing function.
func (m InterpolationMode) easeFunc() ease.TweenFunc {
	switch m {
	case ModeEaseIn:
		return ease.InQuad
	case ModeEaseOut:
		return ease.OutQuad
	case ModeEaseInOut:
		return ease.InOutQuad
	case ModeCubic:
		return ease.InOutCubic
	default:
		return ease.Linear
	}
}

// DefaultFPS paces interpolation sequences when no rate is given.
const DefaultFPS = 60

// Interpolator produces finite, time-paced value sequences between two
// endpoints. Obtain one from TransformationManager.CreateInterpolation (its
// streams then stop on manager Dispose) or standalone via NewInterpolation.
type Interpolator struct {
	parent   context.Context
	duration time.Duration
	mode     InterpolationMode
	fps      int
}

// NewInterpolation creates a standalone Interpolator.
func NewInterpolation(duration time.Duration, mode InterpolationMode, fps int) *Interpolator {
	return newInterpolator(context.Background(), duration, mode, fps)
}

func newInterpolator(parent context.Context, duration time.Duration, mode InterpolationMode, fps int) *Interpolator {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if duration <= 0 {
		duration = time.Second
	}
	return &Interpolator{parent: parent, duration: duration, mode: mode, fps: fps}
}

// Frames returns the number of frame steps in a full sequence. A sequence
// emits Frames()+1 values including both endpoints.
func (ip *Interpolator) Frames() int {
	n := int(math.Round(ip.duration.Seconds() * float64(ip.fps)))
	return max(n, 1)
}

// frameInterval is the wall-clock spacing between emitted values.
func (ip *Interpolator) frameInterval() time.Duration {
	return time.Second / time.Duration(ip.fps)
}

// Canvas returns a tween over canvas points.
func (ip *Interpolator) Canvas(from, to CanvasPoint) *CanvasTween {
	fn := ip.mode.easeFunc()
	d := float32(ip.duration.Seconds())
	return &CanvasTween{
		ip:   ip,
		from: from,
		to:   to,
		x:    gween.New(float32(from.X), float32(to.X), d, fn),
		y:    gween.New(float32(from.Y), float32(to.Y), d, fn),
	}
}

// Scalar returns a tween over a single float64 value, such as a zoom level.
func (ip *Interpolator) Scalar(from, to float64) *ScalarTween {
	return &ScalarTween{
		ip:   ip,
		from: from,
		to:   to,
		t:    gween.New(float32(from), float32(to), float32(ip.duration.Seconds()), ip.mode.easeFunc()),
	}
}

// CanvasTween interpolates between two canvas points. Drive it either by
// pulling Update(dt) once per frame, or by consuming Stream. Abandoning a
// tween mid-sequence requires no teardown: stop calling Update, or stop
// receiving (the stream goroutine exits on context cancellation).
type CanvasTween struct {
	ip       *Interpolator
	from, to CanvasPoint
	x, y     *gween.Tween
	done     bool
}

// Update advances the tween by dt seconds and returns the current value.
// The final value is exactly the target endpoint.
func (t *CanvasTween) Update(dt float32) (CanvasPoint, bool) {
	if t.done {
		return t.to, true
	}
	vx, doneX := t.x.Update(dt)
	vy, doneY := t.y.Update(dt)
	if doneX && doneY {
		t.done = true
		return t.to, true
	}
	return CanvasPoint{X: float64(vx), Y: float64(vy)}, false
}

// Values runs the whole sequence at the interpolator's frame rate and
// returns every value, first == from and last == to.
func (t *CanvasTween) Values() []CanvasPoint {
	frames := t.ip.Frames()
	dt := float32(1.0 / float64(t.ip.fps))
	out := make([]CanvasPoint, 0, frames+1)
	out = append(out, t.from)
	for i := 0; i < frames; i++ {
		v, done := t.Update(dt)
		out = append(out, v)
		if done {
			break
		}
	}
	// Guard against float32 accumulation leaving the tween unfinished.
	if !t.done {
		out = append(out, t.to)
		t.done = true
	}
	return out
}

// Stream emits the sequence on a channel paced by a real frame ticker. The
// first value is sent immediately; the channel is closed after the final
// value. Cancelling ctx (or disposing the owning manager) stops the stream.
func (t *CanvasTween) Stream(ctx context.Context) <-chan CanvasPoint {
	ch := make(chan CanvasPoint, 1)
	go func() {
		defer close(ch)
		interval := t.ip.frameInterval()
		dt := float32(interval.Seconds())
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		if !sendCanvas(ctx, t.ip.parent, ch, t.from) {
			return
		}
		for {
			select {
			case <-ticker.C:
				v, done := t.Update(dt)
				if !sendCanvas(ctx, t.ip.parent, ch, v) {
					return
				}
				if done {
					return
				}
			case <-ctx.Done():
				return
			case <-t.ip.parent.Done():
				return
			}
		}
	}()
	return ch
}

func sendCanvas(ctx, parent context.Context, ch chan<- CanvasPoint, v CanvasPoint) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	case <-parent.Done():
		return false
	}
}

// ScalarTween interpolates a single float64 value, such as a zoom level.
type ScalarTween struct {
	ip       *Interpolator
	from, to float64
	t        *gween.Tween
	done     bool
}

// Update advances the tween by dt seconds and returns the current value.
// The final value is exactly the target endpoint.
func (s *ScalarTween) Update(dt float32) (float64, bool) {
	if s.done {
		return s.to, true
	}
	v, done := s.t.Update(dt)
	if done {
		s.done = true
		return s.to, true
	}
	return float64(v), false
}

// Values runs the whole sequence at the interpolator's frame rate and
// returns every value, first == from and last == to.
func (s *ScalarTween) Values() []float64 {
	frames := s.ip.Frames()
	dt := float32(1.0 / float64(s.ip.fps))
	out := make([]float64, 0, frames+1)
	out = append(out, s.from)
	for i := 0; i < frames; i++ {
		v, done := s.Update(dt)
		out = append(out, v)
		if done {
			break
		}
	}
	if !s.done {
		out = append(out, s.to)
		s.done = true
	}
	return out
}
