package board

import (
	"math"

	"github.com/fentz26/leadboard/internal/models"
)

// EdgeMargin is how far outside the columns a release still counts as on the board.
const EdgeMargin = 1.0

// Point is a position in board coordinates (terminal cells in the TUI).
type Point struct {
	X, Y float64
}

// Dist is the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Center is the midpoint of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.W/2, Y: r.Y + r.H/2}
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X <= r.X+r.W && p.Y >= r.Y && p.Y <= r.Y+r.H
}

// Union is the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	x0, y0 := math.Min(r.X, o.X), math.Min(r.Y, o.Y)
	x1, y1 := math.Max(r.X+r.W, o.X+o.W), math.Max(r.Y+r.H, o.Y+o.H)
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Grow expands r by m on every side.
func (r Rect) Grow(m float64) Rect {
	return Rect{X: r.X - m, Y: r.Y - m, W: r.W + 2*m, H: r.H + 2*m}
}

// Target is a column registered as a drop target.
type Target struct {
	Status models.Status
	Rect   Rect
}

// Bounds is the union of every target rectangle.
func Bounds(targets []Target) (Rect, bool) {
	if len(targets) == 0 {
		return Rect{}, false
	}
	r := targets[0].Rect
	for _, t := range targets[1:] {
		r = r.Union(t.Rect)
	}
	return r, true
}

// ClosestCenter resolves a release point to the target whose centre is
// nearest. Points outside the board bounds (grown by EdgeMargin) resolve to
// nothing. Ties go to the earlier target.
func ClosestCenter(p Point, targets []Target) (models.Status, bool) {
	bounds, ok := Bounds(targets)
	if !ok || !bounds.Grow(EdgeMargin).Contains(p) {
		return "", false
	}

	best := -1
	bestDist := math.Inf(1)
	for i, t := range targets {
		if d := p.Dist(t.Rect.Center()); d < bestDist {
			best, bestDist = i, d
		}
	}
	return targets[best].Status, true
}
