package lookup

import (
	"math"

	"github.com/Workiva/go-datastructures/augmentedtree"
	"github.com/golang/geo/r2"
)

type interval struct {
	key  uint64
	kind Kind
	id   int64
	box  r2.Rect
	lo   [2]int64
	hi   [2]int64
}

func newInterval(kind Kind, id int64, box r2.Rect) *interval {
	return &interval{
		key:  makeKey(kind, id),
		kind: kind,
		id:   id,
		box:  box,
		lo:   [2]int64{sortable(box.X.Lo), sortable(box.Y.Lo)},
		hi:   [2]int64{sortable(box.X.Hi), sortable(box.Y.Hi)},
	}
}

func axis(d uint64) int {
	if d <= 1 {
		return 0
	}
	return 1
}

func (s *interval) LowAtDimension(d uint64) int64 {
	return s.lo[axis(d)]
}

func (s *interval) HighAtDimension(d uint64) int64 {
	return s.hi[axis(d)]
}

// Boxes that merely touch still overlap.
func (s *interval) OverlapsAtDimension(i augmentedtree.Interval, d uint64) bool {
	return s.HighAtDimension(d) >= i.LowAtDimension(d) &&
		s.LowAtDimension(d) <= i.HighAtDimension(d)
}

func (s *interval) ID() uint64 {
	return s.key
}

func makeKey(kind Kind, id int64) uint64 {
	return uint64(id)<<2 | uint64(kind)
}

// sortable maps a float onto an int64 that sorts the same way.
func sortable(f float64) int64 {
	if f == 0 {
		f = 0 // no negative zero
	}
	b := math.Float64bits(f)
	if b>>63 != 0 {
		b = ^b
	} else {
		b |= 1 << 63
	}
	return int64(b ^ (1 << 63))
}
