package planar

import (
	"math"
	"testing"

	"github.com/cheekybits/is"
	"github.com/golang/geo/r2"
)

func pt(x, y float64) r2.Point {
	return r2.Point{X: x, Y: y}
}

var square = []r2.Point{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(0, 0)}

func TestSignedArea(t *testing.T) {
	is := is.New(t)

	is.Equal(SignedArea(square), 100.0)
	is.Equal(SignedArea(Reverse(square)), -100.0)
	is.False(IsClockwise(square))
	is.True(IsClockwise(Reverse(square)))
}

func TestIntersect(t *testing.T) {
	is := is.New(t)

	p, tt, u, ok := Intersect(pt(0, 0), pt(10, 0), pt(5, -5), pt(5, 5))
	is.True(ok)
	is.Equal(p, pt(5, 0))
	is.Equal(tt, 0.5)
	is.Equal(u, 0.5)

	_, _, _, ok = Intersect(pt(0, 0), pt(10, 0), pt(0, 1), pt(10, 1))
	is.False(ok)

	_, _, _, ok = Intersect(pt(0, 0), pt(10, 0), pt(11, -1), pt(11, 1))
	is.False(ok)

	p, _, _, ok = Intersect(pt(0, 0), pt(10, 0), pt(10, 0), pt(10, 5))
	is.True(ok)
	is.Equal(p, pt(10, 0))
}

func TestSegmentsIntersect(t *testing.T) {
	is := is.New(t)

	is.True(SegmentsIntersect(pt(0, 0), pt(10, 0), pt(5, -5), pt(5, 5)))
	is.True(SegmentsIntersect(pt(0, 0), pt(10, 0), pt(5, 0), pt(15, 0)))
	is.True(SegmentsIntersect(pt(0, 0), pt(10, 0), pt(10, 0), pt(10, 5)))
	is.False(SegmentsIntersect(pt(0, 0), pt(10, 0), pt(11, 0), pt(15, 0)))
	is.False(SegmentsIntersect(pt(0, 0), pt(10, 0), pt(0, 1), pt(10, 1)))
}

func TestIsSimple(t *testing.T) {
	is := is.New(t)

	is.True(IsSimple([]r2.Point{pt(0, 0), pt(10, 0)}))
	is.True(IsSimple([]r2.Point{pt(0, 0), pt(5, 5), pt(10, 0)}))
	is.True(IsSimple(square))

	// Bow tie
	is.False(IsSimple([]r2.Point{pt(0, 0), pt(10, 10), pt(10, 0), pt(0, 10)}))

	// Folds back onto itself
	is.False(IsSimple([]r2.Point{pt(0, 0), pt(10, 0), pt(5, 0)}))

	// Touches its own start
	is.False(IsSimple([]r2.Point{pt(0, 0), pt(10, 0), pt(10, 10), pt(5, 0)}))

	// Boxes that only share an edge still get compared
	is.False(IsSimple([]r2.Point{pt(0, 0), pt(10, 0), pt(10, 10), pt(5, 10), pt(5, 0)}))

	// Far apart segments are skipped
	is.True(IsSimple([]r2.Point{pt(0, 0), pt(1, 1), pt(2, 0), pt(3, 1), pt(4, 0), pt(5, 1), pt(6, 0)}))
}

func TestPointInPolygon(t *testing.T) {
	is := is.New(t)

	hole := []r2.Point{pt(4, 4), pt(4, 6), pt(6, 6), pt(6, 4), pt(4, 4)}
	is.True(PointInRing(pt(5, 5), square))
	is.False(PointInRing(pt(15, 5), square))
	is.True(PointInPolygon(pt(2, 2), square, [][]r2.Point{hole}))
	is.False(PointInPolygon(pt(5, 5), square, [][]r2.Point{hole}))

	// Orientation and closure do not matter
	is.True(PointInRing(pt(5, 5), Reverse(square)))
	is.True(PointInRing(pt(5, 5), square[:4]))
	is.False(PointInRing(pt(5, 5), square[:2]))
}

func TestSignedAreaOpenRing(t *testing.T) {
	is := is.New(t)

	is.Equal(SignedArea(square[:4]), 100.0)
	is.Equal(SignedArea([]r2.Point{pt(0, 0), pt(5, 0), pt(10, 0), pt(0, 0)}), 0.0)
	is.False(IsClockwise([]r2.Point{pt(0, 0), pt(5, 0), pt(10, 0), pt(0, 0)}))
}

func TestSegmentDistance(t *testing.T) {
	is := is.New(t)

	is.Equal(SegmentDistance(pt(5, 3), pt(0, 0), pt(10, 0)), 3.0)
	is.Equal(SegmentDistance(pt(13, 4), pt(0, 0), pt(10, 0)), 5.0)
	is.Equal(SegmentDistance(pt(-3, 0), pt(0, 0), pt(10, 0)), 3.0)
	is.Equal(SegmentDistance(pt(3, 4), pt(0, 0), pt(0, 0)), 5.0)
}

func TestLocate(t *testing.T) {
	is := is.New(t)

	line := []r2.Point{pt(0, 0), pt(10, 0), pt(10, 10)}
	seg, at, tt, d := Locate(line, pt(12, 5))
	is.Equal(seg, 1)
	is.Equal(at, pt(10, 5))
	is.Equal(tt, 0.5)
	is.Equal(d, 2.0)

	is.Equal(PointAt(line, 1.5), pt(10, 5))
	is.Equal(PointAt(line, 7), pt(10, 10))
	is.Equal(Distance(line, pt(5, 1)), 1.0)
}

func TestSplitAt(t *testing.T) {
	is := is.New(t)

	line := []r2.Point{pt(0, 0), pt(10, 0), pt(10, 10)}
	head, tail := SplitAt(line, 1, pt(10, 5))
	is.Equal(head, []r2.Point{pt(0, 0), pt(10, 0), pt(10, 5)})
	is.Equal(tail, []r2.Point{pt(10, 5), pt(10, 10)})

	// Splitting at a vertex does not duplicate it
	head, tail = SplitAt(line, 0, pt(10, 0))
	is.Equal(head, []r2.Point{pt(0, 0), pt(10, 0)})
	is.Equal(tail, []r2.Point{pt(10, 0), pt(10, 10)})
}

func TestRemoveRepeated(t *testing.T) {
	is := is.New(t)

	line := []r2.Point{pt(0, 0), pt(0.01, 0), pt(5, 0), pt(10, 0), pt(10, 0.01)}
	is.Equal(RemoveRepeated(line, 0.1), []r2.Point{pt(0, 0), pt(5, 0), pt(10, 0.01)})

	// Collapses to a point
	is.Equal(len(RemoveRepeated([]r2.Point{pt(0, 0), pt(0.01, 0.01)}, 0.1)), 1)

	// Rings stay closed
	out := RemoveRepeated(square, 0.1)
	is.Equal(out[0], out[len(out)-1])
}

func TestSameShape(t *testing.T) {
	is := is.New(t)

	a := []r2.Point{pt(0, 0), pt(10, 0)}
	b := []r2.Point{pt(0, 0), pt(5, 0.001), pt(10, 0)}
	is.True(SameShape(a, b, 0.01))
	is.False(SameShape(a, b, 0.0001))
	is.False(SameShape(a, []r2.Point{pt(0, 0), pt(20, 0)}, 0.01))
}

func TestMinTolerance(t *testing.T) {
	is := is.New(t)

	unit := r2.RectFromPoints(pt(0, 0))
	is.True(math.Abs(MinTolerance(unit)-3.6e-15) < 1e-20)

	big := r2.RectFromPoints(pt(-1000, 0), pt(10, 10))
	is.True(math.Abs(MinTolerance(big)-3.6e-12) < 1e-17)
}

func TestInteriorPoint(t *testing.T) {
	is := is.New(t)

	p, ok := InteriorPoint([][]r2.Point{square})
	is.True(ok)
	is.True(PointInRing(p, square))

	hole := []r2.Point{pt(1, 1), pt(1, 9), pt(9, 9), pt(9, 1), pt(1, 1)}
	p, ok = InteriorPoint([][]r2.Point{square, hole})
	is.True(ok)
	is.True(PointInPolygon(p, square, [][]r2.Point{hole}))

	_, ok = InteriorPoint([][]r2.Point{{pt(0, 0), pt(1, 1)}})
	is.False(ok)
}

func TestInteriorPointConcave(t *testing.T) {
	is := is.New(t)

	// The centroid of a C shape lies in its mouth
	c := []r2.Point{pt(0, 0), pt(10, 0), pt(10, 2), pt(2, 2), pt(2, 8), pt(10, 8), pt(10, 10), pt(0, 10), pt(0, 0)}
	p, ok := InteriorPoint([][]r2.Point{c})
	is.True(ok)
	is.True(PointInRing(p, c))

	// A convex shape gets its centroid
	p, ok = InteriorPoint([][]r2.Point{square})
	is.True(ok)
	is.Equal(p, pt(5, 5))
}
