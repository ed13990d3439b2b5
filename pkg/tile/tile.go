// Package tile defines tile coordinates and the writer input unit for the
// tile archive.
//
// Coordinates use the XYZ convention (origin at the top-left, Y increasing
// downward). The archive file stores rows with a bottom-left origin (TMS);
// FlipY converts between the two and must be applied on every write and
// every read.
package tile

import "fmt"

// Coord identifies a tile in the quad-tree pyramid at zoom Z.
// 0 <= X,Y < 1<<Z.
type Coord struct {
	X int
	Y int
	Z int
}

// Valid reports whether the coordinate is inside the pyramid.
func (c Coord) Valid() bool {
	return c.Z >= 0 && c.X >= 0 && c.Y >= 0 && c.X < 1<<c.Z && c.Y < 1<<c.Z
}

// Compare orders coordinates lexicographically by (Z, X, Y).
func (c Coord) Compare(o Coord) int {
	switch {
	case c.Z != o.Z:
		return cmpInt(c.Z, o.Z)
	case c.X != o.X:
		return cmpInt(c.X, o.X)
	default:
		return cmpInt(c.Y, o.Y)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (c Coord) String() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// FlipY converts a top-origin row to the bottom-origin row stored in the
// archive. The transform is its own inverse, so it also converts archive
// rows back to top-origin rows.
func FlipY(y, z int) int {
	return (1 << z) - 1 - y
}

// EncodingResult is one encoded tile handed to a writer: a coordinate, the
// opaque compressed payload, and an optional content fingerprint. When the
// fingerprint is absent the tile is stored under a fresh content id and no
// deduplication is attempted.
type EncodingResult struct {
	Coord    Coord
	Data     []byte
	DataHash uint32
	HasHash  bool
}

// NewEncodingResult returns a result without a content fingerprint.
func NewEncodingResult(coord Coord, data []byte) EncodingResult {
	return EncodingResult{Coord: coord, Data: data}
}

// WithHash returns a copy of the result carrying the content fingerprint.
func (r EncodingResult) WithHash(hash uint32) EncodingResult {
	r.DataHash = hash
	r.HasHash = true
	return r
}
