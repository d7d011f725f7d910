package models

// Bounds is the rectangle of the map currently on screen, reported by the
// dashboard when a pan or zoom settles.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Height returns the latitude span of the bounds.
func (b Bounds) Height() float64 {
	return b.North - b.South
}

// Contains reports whether the point falls inside the bounds.
func (b Bounds) Contains(p LatLng) bool {
	return p.Lat <= b.North && p.Lat >= b.South && p.Lng <= b.East && p.Lng >= b.West
}
