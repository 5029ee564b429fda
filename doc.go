// Package tessera converts coordinates between the four spaces of an
// interactive 2D tile workspace: device-pixel screen space, logical canvas
// space, discrete grid space, and a zoom/pan-independent workspace space
// used for durable position storage.
//
// The transforms themselves are closed-form arithmetic; the point of the
// package is making them fast and safe under per-frame, overlapping, and
// concurrent invocation, with memoization, batch queries, and time-based
// interpolation layered on top.
//
// # Coordinate system
//
// A [CoordinateSystem] owns an immutable [Config] (device pixel ratio,
// canvas size, grid geometry, workspace bounds, zoom, pan) that is replaced
// wholesale on every change:
//
//	cs := tessera.NewCoordinateSystem(tessera.Config{
//		DevicePixelRatio: 2.0,
//		CanvasSize:       tessera.Size{Width: 800, Height: 600},
//		GridCellSize:     50,
//		GridCols:         10,
//		GridRows:         8,
//	})
//	grid, ok := cs.CanvasToGrid(tessera.CanvasPoint{X: 75, Y: 125})
//
// Grid lookups outside the grid (or with a zero-sized grid) return ok=false;
// that is an expected outcome, not an error. View controls
// ([CoordinateSystem.ApplyZoom], [CoordinateSystem.ApplyPan],
// [CoordinateSystem.CenterOnGridPoint], [CoordinateSystem.FitGridToView])
// build a fresh Config and swap it atomically. ApplyZoom is focal-point
// invariant: the grid cell under the focal point is the same before and
// after the zoom.
//
// # Manager, cache, batching
//
// A [TransformationManager] wraps a CoordinateSystem with an LRU/TTL cache,
// call recording, and metrics. The generic entry points are package-level:
//
//	m := tessera.NewTransformationManager(cs, tessera.ManagerConfig{})
//	res, err := tessera.Transform(m, screenPt, "screenToGrid",
//		func(p tessera.ScreenPoint) (tessera.GridPoint, bool, error) {
//			g, ok := m.CoordinateSystem().ScreenToGrid(p)
//			return g, ok, nil
//		})
//
// [BatchTransform] applies the same cache-or-compute logic across a point
// slice, preserving input order. After a geometry-changing UpdateConfig the
// caller must invalidate with [TransformationManager.Reset]; alternatively
// set ManagerConfig.VersionedKeys so stale entries can never hit.
//
// # Interpolation
//
// [Interpolator] produces finite, time-paced value sequences between two
// endpoints using [gween] easing curves, driven either by pulling Update(dt)
// each frame or by consuming a ticker-paced channel from Stream.
//
// [gween]: https://github.com/tanema/gween
package tessera
