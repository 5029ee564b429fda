package tessera

import (
	"math"
	"sync"
	"sync/atomic"
)

// Zoom limits. Every mutation clamps the zoom level into this range.
const (
	MinZoom = 0.1
	MaxZoom = 10.0
)

// fitPadding is the margin FitGridToView leaves around the grid.
const fitPadding = 0.05

// Config describes the full geometry of a coordinate system: device metrics,
// canvas layout, grid shape, workspace extent, and the current view (zoom and
// pan). Configs are immutable values; the CoordinateSystem replaces its
// Config wholesale on every change and never mutates one in place.
type Config struct {
	// DevicePixelRatio converts between screen pixels and canvas units.
	// Defaults to 1.0.
	DevicePixelRatio float64
	// CanvasSize is the logical canvas extent in canvas units.
	CanvasSize Size
	// GridCellSize is the unzoomed edge length of one grid cell in canvas
	// units. A zero or negative value makes every grid lookup return
	// no-result.
	GridCellSize float64
	// GridCols and GridRows are the grid dimensions in cells. Zero means
	// "no valid grid": all grid lookups return no-result.
	GridCols int
	GridRows int
	// WorkspaceBounds is the zoom/pan-independent extent used for durable
	// position storage. Defaults to the canvas size at origin.
	WorkspaceBounds Rect
	// ZoomLevel is clamped to [MinZoom, MaxZoom]. Zero means 1.0.
	ZoomLevel float64
	// PanOffset is the canvas-space translation of the grid origin.
	PanOffset Vec2
}

// normalize fills zero-value defaults and clamps the zoom range.
func (c Config) normalize() Config {
	if c.DevicePixelRatio <= 0 {
		c.DevicePixelRatio = 1.0
	}
	if c.ZoomLevel == 0 {
		c.ZoomLevel = 1.0
	}
	c.ZoomLevel = clampZoom(c.ZoomLevel)
	if c.GridCols < 0 {
		c.GridCols = 0
	}
	if c.GridRows < 0 {
		c.GridRows = 0
	}
	if c.WorkspaceBounds.Width <= 0 || c.WorkspaceBounds.Height <= 0 {
		c.WorkspaceBounds = Rect{Width: c.CanvasSize.Width, Height: c.CanvasSize.Height}
	}
	return c
}

// effectiveCellSize is the on-canvas edge length of one grid cell at the
// current zoom.
func (c Config) effectiveCellSize() float64 {
	return c.GridCellSize * c.ZoomLevel
}

// gridValid reports whether grid-space lookups can produce results at all.
func (c Config) gridValid() bool {
	return c.GridCols > 0 && c.GridRows > 0 && c.GridCellSize > 0
}

// workspaceScale is the uniform canvas→workspace scale factor.
func (c Config) workspaceScale() float64 {
	if c.CanvasSize.Width <= 0 {
		return 1.0
	}
	return c.WorkspaceBounds.Width / c.CanvasSize.Width
}

func clampZoom(z float64) float64 {
	return math.Max(MinZoom, math.Min(z, MaxZoom))
}

// versionedConfig pairs a Config with a monotonically increasing version so
// readers observe both atomically.
type versionedConfig struct {
	cfg     Config
	version uint64
}

// CoordinateSystem converts points between screen, canvas, grid, and
// workspace space. All conversion methods are pure functions of the current
// Config; view-control methods build a fresh Config and swap it atomically,
// so conversions may run concurrently with mutations.
//
// A CoordinateSystem never invalidates caches held elsewhere; after a
// geometry-changing UpdateConfig the owning TransformationManager must be
// Reset (or run with versioned keys).
type CoordinateSystem struct {
	mu      sync.Mutex // serializes mutators
	current atomic.Pointer[versionedConfig]
}

// NewCoordinateSystem creates a CoordinateSystem with the given configuration.
func NewCoordinateSystem(cfg Config) *CoordinateSystem {
	cs := &CoordinateSystem{}
	cs.current.Store(&versionedConfig{cfg: cfg.normalize(), version: 1})
	return cs
}

// Snapshot returns the current configuration by value.
func (cs *CoordinateSystem) Snapshot() Config {
	return cs.current.Load().cfg
}

// Version returns the configuration version. It increases by one on every
// mutation and is embedded into cache keys in versioned-keys mode.
func (cs *CoordinateSystem) Version() uint64 {
	return cs.current.Load().version
}

// UpdateConfig atomically replaces the configuration. It does not clear any
// externally held cache; callers owning a TransformationManager must Reset it
// after a geometry change (unless running with versioned keys).
func (cs *CoordinateSystem) UpdateConfig(cfg Config) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.swap(cfg)
}

// swap stores cfg (normalized) with the next version. Callers hold cs.mu.
func (cs *CoordinateSystem) swap(cfg Config) {
	prev := cs.current.Load()
	cs.current.Store(&versionedConfig{cfg: cfg.normalize(), version: prev.version + 1})
}

// --- Primitive transforms ---

// ScreenToCanvas converts a device-pixel point to canvas space by dividing
// out the device pixel ratio. Exact inverse of CanvasToScreen.
func (cs *CoordinateSystem) ScreenToCanvas(p ScreenPoint) CanvasPoint {
	cfg := cs.Snapshot()
	return CanvasPoint{X: p.X / cfg.DevicePixelRatio, Y: p.Y / cfg.DevicePixelRatio}
}

// CanvasToScreen converts a canvas point to device pixels. Exact inverse of
// ScreenToCanvas.
func (cs *CoordinateSystem) CanvasToScreen(p CanvasPoint) ScreenPoint {
	cfg := cs.Snapshot()
	return ScreenPoint{X: p.X * cfg.DevicePixelRatio, Y: p.Y * cfg.DevicePixelRatio}
}

// CanvasToGrid maps a canvas point to the grid cell containing it. Returns
// ok=false for points outside the grid, or when the grid has no valid
// dimensions.
func (cs *CoordinateSystem) CanvasToGrid(p CanvasPoint) (GridPoint, bool) {
	cfg := cs.Snapshot()
	return canvasToGrid(cfg, p)
}

func canvasToGrid(cfg Config, p CanvasPoint) (GridPoint, bool) {
	if !cfg.gridValid() {
		return GridPoint{}, false
	}
	cell := cfg.effectiveCellSize()
	col := int(math.Floor((p.X - cfg.PanOffset.X) / cell))
	row := int(math.Floor((p.Y - cfg.PanOffset.Y) / cell))
	if col < 0 || col >= cfg.GridCols || row < 0 || row >= cfg.GridRows {
		return GridPoint{}, false
	}
	return GridPoint{Col: col, Row: row}, true
}

// GridToCanvas returns the canvas-space center of the addressed cell. It is
// the algebraic inverse of CanvasToGrid's forward mapping: converting the
// result back yields the same cell.
func (cs *CoordinateSystem) GridToCanvas(p GridPoint) CanvasPoint {
	cfg := cs.Snapshot()
	return gridToCanvas(cfg, p)
}

func gridToCanvas(cfg Config, p GridPoint) CanvasPoint {
	cell := cfg.effectiveCellSize()
	return CanvasPoint{
		X: (float64(p.Col)+0.5)*cell + cfg.PanOffset.X,
		Y: (float64(p.Row)+0.5)*cell + cfg.PanOffset.Y,
	}
}

// GridCellCanvasBounds returns the canvas-space rectangle covered by the
// addressed cell.
func (cs *CoordinateSystem) GridCellCanvasBounds(p GridPoint) Rect {
	cfg := cs.Snapshot()
	cell := cfg.effectiveCellSize()
	return Rect{
		X:      float64(p.Col)*cell + cfg.PanOffset.X,
		Y:      float64(p.Row)*cell + cfg.PanOffset.Y,
		Width:  cell,
		Height: cell,
	}
}

// CanvasToWorkspace converts a canvas point to the zoom/pan-independent
// workspace space. Exact inverse of WorkspaceToCanvas.
func (cs *CoordinateSystem) CanvasToWorkspace(p CanvasPoint) WorkspacePoint {
	cfg := cs.Snapshot()
	s := cfg.workspaceScale()
	return WorkspacePoint{
		X: cfg.WorkspaceBounds.X + p.X*s,
		Y: cfg.WorkspaceBounds.Y + p.Y*s,
	}
}

// WorkspaceToCanvas converts a workspace point back to canvas space. Exact
// inverse of CanvasToWorkspace.
func (cs *CoordinateSystem) WorkspaceToCanvas(p WorkspacePoint) CanvasPoint {
	cfg := cs.Snapshot()
	s := cfg.workspaceScale()
	return CanvasPoint{
		X: (p.X - cfg.WorkspaceBounds.X) / s,
		Y: (p.Y - cfg.WorkspaceBounds.Y) / s,
	}
}

// --- Composite transforms ---
//
// Composites chain the primitives through canvas space and are never
// reimplemented independently, so ScreenToGrid(p) always equals
// CanvasToGrid(ScreenToCanvas(p)).

// ScreenToGrid maps a device-pixel point to the grid cell containing it.
func (cs *CoordinateSystem) ScreenToGrid(p ScreenPoint) (GridPoint, bool) {
	return cs.CanvasToGrid(cs.ScreenToCanvas(p))
}

// GridToScreen returns the device-pixel center of the addressed cell.
func (cs *CoordinateSystem) GridToScreen(p GridPoint) ScreenPoint {
	return cs.CanvasToScreen(cs.GridToCanvas(p))
}

// ScreenToWorkspace maps a device-pixel point to workspace space.
func (cs *CoordinateSystem) ScreenToWorkspace(p ScreenPoint) WorkspacePoint {
	return cs.CanvasToWorkspace(cs.ScreenToCanvas(p))
}

// GridToWorkspace returns the workspace-space center of the addressed cell.
func (cs *CoordinateSystem) GridToWorkspace(p GridPoint) WorkspacePoint {
	return cs.CanvasToWorkspace(cs.GridToCanvas(p))
}

// WorkspaceToGrid maps a workspace point to the grid cell containing it.
func (cs *CoordinateSystem) WorkspaceToGrid(p WorkspacePoint) (GridPoint, bool) {
	return cs.CanvasToGrid(cs.WorkspaceToCanvas(p))
}

// --- Predicates and view queries ---

// IsPointInCanvas reports whether the point lies within the canvas bounds.
func (cs *CoordinateSystem) IsPointInCanvas(p CanvasPoint) bool {
	cfg := cs.Snapshot()
	return Rect{Width: cfg.CanvasSize.Width, Height: cfg.CanvasSize.Height}.Contains(p.X, p.Y)
}

// IsPointInGrid reports whether the point maps to a valid grid cell.
func (cs *CoordinateSystem) IsPointInGrid(p CanvasPoint) bool {
	_, ok := cs.CanvasToGrid(p)
	return ok
}

// VisibleGridBounds returns the canvas-space rectangle covered by the whole
// grid at the current zoom and pan.
func (cs *CoordinateSystem) VisibleGridBounds() Rect {
	cfg := cs.Snapshot()
	cell := cfg.effectiveCellSize()
	return Rect{
		X:      cfg.PanOffset.X,
		Y:      cfg.PanOffset.Y,
		Width:  float64(cfg.GridCols) * cell,
		Height: float64(cfg.GridRows) * cell,
	}
}

// VisibleCellRange returns the inclusive column and row range of grid cells
// that intersect the canvas viewport, for windowed iteration over large
// grids. ok is false when no cell is visible or the grid is invalid.
func (cs *CoordinateSystem) VisibleCellRange() (minCol, minRow, maxCol, maxRow int, ok bool) {
	cfg := cs.Snapshot()
	if !cfg.gridValid() {
		return 0, 0, 0, 0, false
	}
	cell := cfg.effectiveCellSize()

	minCol = int(math.Floor(-cfg.PanOffset.X / cell))
	minRow = int(math.Floor(-cfg.PanOffset.Y / cell))
	// A cell starting exactly on the right/bottom edge is not visible.
	maxCol = int(math.Ceil((cfg.CanvasSize.Width-cfg.PanOffset.X)/cell)) - 1
	maxRow = int(math.Ceil((cfg.CanvasSize.Height-cfg.PanOffset.Y)/cell)) - 1

	minCol = max(minCol, 0)
	minRow = max(minRow, 0)
	maxCol = min(maxCol, cfg.GridCols-1)
	maxRow = min(maxRow, cfg.GridRows-1)

	if minCol > maxCol || minRow > maxRow {
		return 0, 0, 0, 0, false
	}
	return minCol, minRow, maxCol, maxRow, true
}

// --- View controls ---

// ApplyZoom multiplies the zoom level by factor, clamped to
// [MinZoom, MaxZoom], keeping the grid position under focal unchanged.
// The pan offset is recomputed from the invariant
//
//	(focal - pan) / (cell * zoom)  ==  (focal - pan') / (cell * zoom')
//
// which solves to pan' = focal - (focal - pan) * zoom'/zoom.
func (cs *CoordinateSystem) ApplyZoom(factor float64, focal CanvasPoint) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cfg := cs.current.Load().cfg
	newZoom := clampZoom(cfg.ZoomLevel * factor)
	ratio := newZoom / cfg.ZoomLevel

	cfg.PanOffset = Vec2{
		X: focal.X - (focal.X-cfg.PanOffset.X)*ratio,
		Y: focal.Y - (focal.Y-cfg.PanOffset.Y)*ratio,
	}
	cfg.ZoomLevel = newZoom
	cs.swap(cfg)
}

// ApplyPan accumulates delta into the pan offset.
func (cs *CoordinateSystem) ApplyPan(delta Vec2) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cfg := cs.current.Load().cfg
	cfg.PanOffset = cfg.PanOffset.Add(delta)
	cs.swap(cfg)
}

// ResetView restores zoom 1.0 and a zero pan offset.
func (cs *CoordinateSystem) ResetView() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cfg := cs.current.Load().cfg
	cfg.ZoomLevel = 1.0
	cfg.PanOffset = Vec2{}
	cs.swap(cfg)
}

// CenterOnGridPoint sets the pan offset so the addressed cell's center maps
// to the canvas center.
func (cs *CoordinateSystem) CenterOnGridPoint(p GridPoint) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cfg := cs.current.Load().cfg
	cell := cfg.effectiveCellSize()
	cfg.PanOffset = Vec2{
		X: cfg.CanvasSize.Width/2 - (float64(p.Col)+0.5)*cell,
		Y: cfg.CanvasSize.Height/2 - (float64(p.Row)+0.5)*cell,
	}
	cs.swap(cfg)
}

// FitGridToView sets the zoom level so the whole grid fits within the canvas
// with a small padding margin, and centers it. No-op when the grid or canvas
// has no extent.
func (cs *CoordinateSystem) FitGridToView() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cfg := cs.current.Load().cfg
	gridW := float64(cfg.GridCols) * cfg.GridCellSize
	gridH := float64(cfg.GridRows) * cfg.GridCellSize
	if gridW <= 0 || gridH <= 0 || cfg.CanvasSize.Width <= 0 || cfg.CanvasSize.Height <= 0 {
		return
	}

	fit := math.Min(cfg.CanvasSize.Width/gridW, cfg.CanvasSize.Height/gridH)
	cfg.ZoomLevel = clampZoom(fit * (1 - fitPadding))

	cell := cfg.effectiveCellSize()
	cfg.PanOffset = Vec2{
		X: (cfg.CanvasSize.Width - float64(cfg.GridCols)*cell) / 2,
		Y: (cfg.CanvasSize.Height - float64(cfg.GridRows)*cell) / 2,
	}
	cs.swap(cfg)
}

// ClampPanToGrid restricts the pan offset so the canvas viewport stays over
// the grid extent. If the grid is smaller than the canvas on an axis, the
// grid is centered on that axis instead. Call after a drag gesture to
// prevent showing empty space beyond the grid edge.
func (cs *CoordinateSystem) ClampPanToGrid() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cfg := cs.current.Load().cfg
	if !cfg.gridValid() {
		return
	}
	cell := cfg.effectiveCellSize()
	extentW := float64(cfg.GridCols) * cell
	extentH := float64(cfg.GridRows) * cell

	cfg.PanOffset.X = clampAxis(cfg.PanOffset.X, extentW, cfg.CanvasSize.Width)
	cfg.PanOffset.Y = clampAxis(cfg.PanOffset.Y, extentH, cfg.CanvasSize.Height)
	cs.swap(cfg)
}

// clampAxis keeps a pan component within [view-extent, 0], or centers the
// extent when it is smaller than the view.
func clampAxis(pan, extent, view float64) float64 {
	if extent < view {
		return (view - extent) / 2
	}
	return math.Max(view-extent, math.Min(pan, 0))
}
