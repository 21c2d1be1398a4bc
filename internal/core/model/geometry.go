package model

// Point is a position in layout coordinates.
type Point struct {
	X float64
	Y float64
}

// Rect is an axis-aligned rectangle in layout coordinates.
type Rect struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.X + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Y + r.Height }

// Contains reports whether p lies inside r. The right and bottom edges are exclusive.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// Intersects reports whether r and o overlap.
func (r Rect) Intersects(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Viewport is the visible area of the timeline.
type Viewport struct {
	Width  float64
	Height float64
}

// TimelineItem is a packet placed on the timeline.
type TimelineItem struct {
	Row     int
	Rect    Rect
	Flagged bool
}
