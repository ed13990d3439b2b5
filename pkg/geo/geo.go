// Package geo computes zoom levels from geographic bounds for archive metadata.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// mercatorWorldSize is the width (and height) of the web-mercator plane in
// meters: 2 * pi * earth radius.
const mercatorWorldSize = 2 * math.Pi * 6378137

// maxCenterZoom bounds the zoom derived from degenerate (point or empty)
// bounds, where the continuous computation diverges.
const maxCenterZoom = 15

// ZoomFromBounds returns the continuous zoom level at which the bounds span
// exactly one tile: the whole world yields 0, half the world 1, and so on.
func ZoomFromBounds(b orb.Bound) float64 {
	min := project.WGS84.ToMercator(b.Min)
	max := project.WGS84.ToMercator(b.Max)

	width := (max[0] - min[0]) / mercatorWorldSize
	height := (max[1] - min[1]) / mercatorWorldSize

	maxEdge := math.Max(width, height)
	if maxEdge <= 0 {
		return maxCenterZoom
	}
	return math.Max(0, -math.Log2(maxEdge))
}

// CenterZoom returns the smallest integer zoom level whose tile span covers
// the bounds, used as the default zoom of the "center" metadata value.
func CenterZoom(b orb.Bound) int {
	z := int(math.Ceil(ZoomFromBounds(b)))
	if z > maxCenterZoom {
		return maxCenterZoom
	}
	return z
}
