package model

import "math"

// Point is a 2-D coordinate in diagram space.
// The origin is the top-left corner; x grows to the right and y grows downward.
type Point struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Bounds describes an axis-aligned rectangle in diagram space.
// X and Y locate the top-left corner.
type Bounds struct {
	X      float64 `json:"x" bson:"x"`
	Y      float64 `json:"y" bson:"y"`
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// CenterX returns the horizontal centre of the rectangle.
func (b Bounds) CenterX() float64 { return b.X + b.Width/2 }

// CenterY returns the vertical centre of the rectangle.
func (b Bounds) CenterY() float64 { return b.Y + b.Height/2 }

// Center returns the centre point of the rectangle.
func (b Bounds) Center() Point { return Point{X: b.CenterX(), Y: b.CenterY()} }

// Right returns the x coordinate of the right edge.
func (b Bounds) Right() float64 { return b.X + b.Width }

// Bottom returns the y coordinate of the bottom edge.
func (b Bounds) Bottom() float64 { return b.Y + b.Height }

// Contains reports whether p lies inside the rectangle (edges inclusive).
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.Right() && p.Y >= b.Y && p.Y <= b.Bottom()
}

// Translated returns a copy of the rectangle shifted by (dx, dy).
func (b Bounds) Translated(dx, dy float64) Bounds {
	b.X += dx
	b.Y += dy
	return b
}

// DistanceToBoundary returns the shortest distance from p to the rectangle's
// boundary. Points inside the rectangle return the distance to the nearest edge.
func (b Bounds) DistanceToBoundary(p Point) float64 {
	if b.Contains(p) {
		return math.Min(
			math.Min(p.X-b.X, b.Right()-p.X),
			math.Min(p.Y-b.Y, b.Bottom()-p.Y),
		)
	}
	dx := math.Max(math.Max(b.X-p.X, 0), p.X-b.Right())
	dy := math.Max(math.Max(b.Y-p.Y, 0), p.Y-b.Bottom())
	return math.Hypot(dx, dy)
}

// Dist returns the Euclidean distance between two points.
func Dist(a, b Point) float64 { return math.Hypot(a.X-b.X, a.Y-b.Y) }
