package model

import "math"

// Connection is a directed sequence flow between two elements with an
// ordered list of waypoints. The first and last waypoints are conceptually
// anchored to the source and target boundaries.
//
// Source and Target are non-owning references into the registry.
type Connection struct {
	ID        string
	Type      string // raw type tag (sequence flow, message flow, association)
	Source    *Element
	Target    *Element
	Waypoints []Point
}

// FirstWaypoint returns the waypoint at the source end, or a zero point for
// an empty route.
func (c *Connection) FirstWaypoint() Point {
	if len(c.Waypoints) == 0 {
		return Point{}
	}
	return c.Waypoints[0]
}

// LastWaypoint returns the waypoint at the target end, or a zero point for
// an empty route.
func (c *Connection) LastWaypoint() Point {
	if len(c.Waypoints) == 0 {
		return Point{}
	}
	return c.Waypoints[len(c.Waypoints)-1]
}

// IsBackward reports whether the connection flows right-to-left, i.e. the
// target centre lies left of the source centre.
func (c *Connection) IsBackward() bool {
	if c.Source == nil || c.Target == nil {
		return false
	}
	return c.Target.Bounds.CenterX() < c.Source.Bounds.CenterX()
}

// IsOrthogonal reports whether every consecutive waypoint pair differs on at
// most one axis by more than tolerance.
func (c *Connection) IsOrthogonal(tolerance float64) bool {
	for i := 0; i < len(c.Waypoints)-1; i++ {
		a, b := c.Waypoints[i], c.Waypoints[i+1]
		if math.Abs(a.X-b.X) > tolerance && math.Abs(a.Y-b.Y) > tolerance {
			return false
		}
	}
	return true
}

// Length returns the total polyline length of the route.
func (c *Connection) Length() float64 {
	var total float64
	for i := 0; i < len(c.Waypoints)-1; i++ {
		total += Dist(c.Waypoints[i], c.Waypoints[i+1])
	}
	return total
}
