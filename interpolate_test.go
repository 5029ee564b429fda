package tessera

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInterpolationEndpoints(t *testing.T) {
	ip := NewInterpolation(time.Second, ModeLinear, 60)
	from := CanvasPoint{X: 0, Y: 0}
	to := CanvasPoint{X: 800, Y: 600}

	values := ip.Canvas(from, to).Values()
	require.NotEmpty(t, values)
	assert.Equal(t, from, values[0])
	assert.Equal(t, to, values[len(values)-1])
	assert.GreaterOrEqual(t, len(values), 55)
	assert.LessOrEqual(t, len(values), 65)
}

func TestInterpolationLinearIsMonotonic(t *testing.T) {
	ip := NewInterpolation(500*time.Millisecond, ModeLinear, 60)
	values := ip.Canvas(CanvasPoint{}, CanvasPoint{X: 100, Y: 50}).Values()

	for i := 1; i < len(values); i++ {
		assert.GreaterOrEqual(t, values[i].X, values[i-1].X-epsilon, "index %d", i)
		assert.GreaterOrEqual(t, values[i].Y, values[i-1].Y-epsilon, "index %d", i)
	}
}

func TestInterpolationModesHitEndpoints(t *testing.T) {
	for _, mode := range []InterpolationMode{ModeLinear, ModeEaseIn, ModeEaseOut, ModeEaseInOut, ModeCubic} {
		t.Run(mode.String(), func(t *testing.T) {
			ip := NewInterpolation(250*time.Millisecond, mode, 60)
			values := ip.Scalar(0, 1).Values()
			require.NotEmpty(t, values)
			assert.Equal(t, 0.0, values[0])
			assert.Equal(t, 1.0, values[len(values)-1])
			// Monotonic within float32 tolerance.
			for i := 1; i < len(values); i++ {
				assert.GreaterOrEqual(t, values[i], values[i-1]-1e-4, "index %d", i)
			}
		})
	}
}

func TestScalarTweenZoom(t *testing.T) {
	ip := NewInterpolation(time.Second, ModeEaseInOut, 60)
	values := ip.Scalar(1.0, 2.5).Values()
	assert.Equal(t, 1.0, values[0])
	assert.Equal(t, 2.5, values[len(values)-1])
}

func TestTweenUpdateAfterDone(t *testing.T) {
	ip := NewInterpolation(100*time.Millisecond, ModeLinear, 60)
	tw := ip.Canvas(CanvasPoint{}, CanvasPoint{X: 10, Y: 10})

	v, done := tw.Update(1.0) // overshoot the whole duration
	assert.True(t, done)
	assert.Equal(t, CanvasPoint{X: 10, Y: 10}, v)

	v, done = tw.Update(1.0)
	assert.True(t, done)
	assert.Equal(t, CanvasPoint{X: 10, Y: 10}, v, "finished tween keeps returning the endpoint")
}

func TestInterpolatorFrames(t *testing.T) {
	assert.Equal(t, 60, NewInterpolation(time.Second, ModeLinear, 60).Frames())
	assert.Equal(t, 30, NewInterpolation(500*time.Millisecond, ModeLinear, 60).Frames())
	assert.Equal(t, 1, NewInterpolation(time.Millisecond, ModeLinear, 60).Frames())
}

func TestInterpolatorDefaults(t *testing.T) {
	ip := NewInterpolation(0, ModeLinear, 0)
	assert.Equal(t, DefaultFPS, ip.fps)
	assert.Equal(t, time.Second, ip.duration)
}

func TestStreamEmitsSequence(t *testing.T) {
	ip := NewInterpolation(50*time.Millisecond, ModeLinear, 100)
	tw := ip.Canvas(CanvasPoint{}, CanvasPoint{X: 100, Y: 100})

	var values []CanvasPoint
	for v := range tw.Stream(context.Background()) {
		values = append(values, v)
	}
	require.NotEmpty(t, values)
	assert.Equal(t, CanvasPoint{}, values[0])
	assert.Equal(t, CanvasPoint{X: 100, Y: 100}, values[len(values)-1])
}

func TestStreamCancellation(t *testing.T) {
	ip := NewInterpolation(time.Hour, ModeLinear, 60)
	tw := ip.Canvas(CanvasPoint{}, CanvasPoint{X: 1, Y: 1})

	ctx, cancel := context.WithCancel(context.Background())
	ch := tw.Stream(ctx)

	<-ch // first value arrives immediately
	cancel()

	// The stream goroutine must exit and close the channel.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestManagerDisposeStopsStreams(t *testing.T) {
	m := newTestManager(ManagerConfig{})
	ip := m.CreateInterpolation(time.Hour, ModeLinear, 60)
	ch := ip.Canvas(CanvasPoint{}, CanvasPoint{X: 1, Y: 1}).Stream(context.Background())

	<-ch
	m.Dispose()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, open := <-ch:
			if !open {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after manager dispose")
		}
	}
}
