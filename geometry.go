package tessera

import "strconv"

// Vec2 is a 2D vector used for offsets, deltas, and pan state.
type Vec2 struct {
	X, Y float64
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{X: v.X + other.X, Y: v.Y + other.Y}
}

// Size is a width/height pair.
type Size struct {
	Width, Height float64
}

// Rect is an axis-aligned rectangle. The coordinate system has its origin at
// the top-left, with Y increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Intersects reports whether r and other overlap.
// Adjacent rectangles (sharing only an edge) are considered intersecting.
func (r Rect) Intersects(other Rect) bool {
	return r.X <= other.X+other.Width &&
		r.X+r.Width >= other.X &&
		r.Y <= other.Y+other.Height &&
		r.Y+r.Height >= other.Y
}

// CacheKeyer is implemented by point types that can serve as transformation
// cache keys. The key must be stable and unique per value.
type CacheKeyer interface {
	CacheKey() string
}

// ScreenPoint is a point in physical device-pixel coordinates.
type ScreenPoint struct {
	X, Y float64
}

// CanvasPoint is a point in the logical rendering coordinate system,
// independent of device pixel density.
type CanvasPoint struct {
	X, Y float64
}

// GridPoint addresses a cell in the discrete grid by column and row index.
type GridPoint struct {
	Col, Row int
}

// WorkspacePoint is a point in the zoom/pan-independent coordinate system
// used for durable position storage.
type WorkspacePoint struct {
	X, Y float64
}

// CacheKey returns a stable serialization of the point.
func (p ScreenPoint) CacheKey() string { return floatPairKey(p.X, p.Y) }

// CacheKey returns a stable serialization of the point.
func (p CanvasPoint) CacheKey() string { return floatPairKey(p.X, p.Y) }

// CacheKey returns a stable serialization of the point.
func (p WorkspacePoint) CacheKey() string { return floatPairKey(p.X, p.Y) }

// CacheKey returns a stable serialization of the point.
func (p GridPoint) CacheKey() string {
	return strconv.Itoa(p.Col) + "," + strconv.Itoa(p.Row)
}

func floatPairKey(x, y float64) string {
	// 'g' with full precision so distinct float values never collide.
	buf := make([]byte, 0, 48)
	buf = strconv.AppendFloat(buf, x, 'g', -1, 64)
	buf = append(buf, ',')
	buf = strconv.AppendFloat(buf, y, 'g', -1, 64)
	return string(buf)
}
