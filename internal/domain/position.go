package domain

import "math"

// Position is a point on the shared canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another position.
func (p Position) Distance(o Position) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// Bounds describes the canvas dimensions known to clients.
type Bounds struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Clamp constrains the position to [0, Width] × [0, Height]. Clients clamp
// before sending; the hub stores inbound positions as-is.
func (p Position) Clamp(b Bounds) Position {
	return Position{
		X: math.Min(math.Max(p.X, 0), b.Width),
		Y: math.Min(math.Max(p.Y, 0), b.Height),
	}
}

// Contains reports whether the position lies within the bounds.
func (b Bounds) Contains(p Position) bool {
	return p.X >= 0 && p.X <= b.Width && p.Y >= 0 && p.Y <= b.Height
}
