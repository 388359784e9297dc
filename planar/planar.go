// Package planar holds the flat geometry helpers used by the topology engine.
// Orientation, area, containment and distance go through orb/planar; the
// positional helpers the integrator needs (Locate, PointAt, SplitAt) live
// here. All coordinates are r2 points, all rings are closed (first == last).
package planar

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/paulmach/orb"
	orbplanar "github.com/paulmach/orb/planar"
)

func toOrb(p r2.Point) orb.Point {
	return orb.Point{p.X, p.Y}
}

func fromOrb(p orb.Point) r2.Point {
	return r2.Point{X: p[0], Y: p[1]}
}

// toRing converts the points, closing the ring when needed.
func toRing(pts []r2.Point) orb.Ring {
	r := make(orb.Ring, 0, len(pts)+1)
	for _, p := range pts {
		r = append(r, toOrb(p))
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return r
}

func toLineString(pts []r2.Point) orb.LineString {
	ls := make(orb.LineString, len(pts))
	for i, p := range pts {
		ls[i] = toOrb(p)
	}
	return ls
}

func toPolygon(shell []r2.Point, holes [][]r2.Point) orb.Polygon {
	poly := make(orb.Polygon, 0, len(holes)+1)
	poly = append(poly, toRing(shell))
	for _, h := range holes {
		poly = append(poly, toRing(h))
	}
	return poly
}

// Dist returns the euclidean distance between a and b.
func Dist(a, b r2.Point) float64 {
	return a.Sub(b).Norm()
}

// Orient is positive when c lies left of the directed line a->b, negative
// when it lies right and zero when the three points are collinear.
func Orient(a, b, c r2.Point) float64 {
	return b.Sub(a).Cross(c.Sub(a))
}

// Angle returns the direction of a->b in radians, in (-pi, pi].
func Angle(a, b r2.Point) float64 {
	d := b.Sub(a)
	return math.Atan2(d.Y, d.X)
}

// Bound returns the bounding box of the points.
func Bound(pts []r2.Point) r2.Rect {
	return r2.RectFromPoints(pts...)
}

// Expand grows r by tol in every direction.
func Expand(r r2.Rect, tol float64) r2.Rect {
	if r.IsEmpty() {
		return r
	}
	return r.Expanded(r2.Point{X: tol, Y: tol})
}

// PointRect returns the degenerate rectangle holding only p.
func PointRect(p r2.Point) r2.Rect {
	return r2.RectFromPoints(p)
}

// Project returns the point of segment a-b closest to p together with its
// parameter along the segment, clamped to [0, 1].
func Project(p, a, b r2.Point) (r2.Point, float64) {
	d := b.Sub(a)
	l2 := d.Dot(d)
	if l2 == 0 {
		return a, 0
	}
	t := p.Sub(a).Dot(d) / l2
	switch {
	case t <= 0:
		return a, 0
	case t >= 1:
		return b, 1
	}
	return a.Add(d.Mul(t)), t
}

// SegmentDistance returns the distance between p and segment a-b.
func SegmentDistance(p, a, b r2.Point) float64 {
	return orbplanar.DistanceFromSegment(toOrb(a), toOrb(b), toOrb(p))
}

// Intersect computes the single crossing point of segments a-b and c-d.
// Parallel (including collinear) segments never intersect here; callers
// treat those as overlaps. t and u are the parameters on a-b and c-d.
func Intersect(a, b, c, d r2.Point) (p r2.Point, t, u float64, ok bool) {
	r := b.Sub(a)
	s := d.Sub(c)
	denom := r.Cross(s)
	if denom == 0 {
		return r2.Point{}, 0, 0, false
	}
	ca := c.Sub(a)
	t = ca.Cross(s) / denom
	u = ca.Cross(r) / denom
	if t < 0 || t > 1 || u < 0 || u > 1 {
		return r2.Point{}, 0, 0, false
	}
	switch t {
	case 0:
		return a, t, u, true
	case 1:
		return b, t, u, true
	}
	return a.Add(r.Mul(t)), t, u, true
}

func sign(f float64) int {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

func within(a, b, c r2.Point) bool {
	return math.Min(a.X, b.X) <= c.X && c.X <= math.Max(a.X, b.X) &&
		math.Min(a.Y, b.Y) <= c.Y && c.Y <= math.Max(a.Y, b.Y)
}

// SegmentsIntersect reports whether segments a-b and c-d share at least one
// point, touching and collinear overlap included.
func SegmentsIntersect(a, b, c, d r2.Point) bool {
	o1 := sign(Orient(a, b, c))
	o2 := sign(Orient(a, b, d))
	o3 := sign(Orient(c, d, a))
	o4 := sign(Orient(c, d, b))

	if o1*o2 < 0 && o3*o4 < 0 {
		return true
	}

	return (o1 == 0 && within(a, b, c)) ||
		(o2 == 0 && within(a, b, d)) ||
		(o3 == 0 && within(c, d, a)) ||
		(o4 == 0 && within(c, d, b))
}

// SegmentsCross reports whether a-b and c-d cross in a single point that is
// interior to both of them.
func SegmentsCross(a, b, c, d r2.Point) bool {
	return sign(Orient(a, b, c))*sign(Orient(a, b, d)) < 0 &&
		sign(Orient(c, d, a))*sign(Orient(c, d, b)) < 0
}

// Closed reports whether the line ends where it starts.
func Closed(line []r2.Point) bool {
	return len(line) > 2 && line[0] == line[len(line)-1]
}

// IsSimple reports whether the line does not intersect itself. A closed line
// may only touch itself at the shared start/end point.
func IsSimple(line []r2.Point) bool {
	n := len(line) - 1
	if n < 1 {
		return false
	}
	closed := Closed(line)
	for i := 0; i < n; i++ {
		a, b := line[i], line[i+1]
		if a == b {
			return false
		}
		sa := r2.RectFromPoints(a, b)
		for j := i + 1; j < n; j++ {
			c, d := line[j], line[j+1]
			if !sa.Intersects(r2.RectFromPoints(c, d)) {
				continue
			}
			switch {
			case j == i+1:
				// Neighbours share b; folding back onto a-b is a spike.
				if Orient(a, b, d) == 0 && a.Sub(b).Dot(d.Sub(b)) > 0 {
					return false
				}
			case closed && i == 0 && j == n-1:
				// The closing segment ends in a.
				if Orient(a, b, c) == 0 && b.Sub(a).Dot(c.Sub(a)) > 0 {
					return false
				}
			default:
				if SegmentsIntersect(a, b, c, d) {
					return false
				}
			}
		}
	}
	return true
}

// SignedArea returns the area of a ring: positive when the ring runs
// counter-clockwise, zero when it is degenerate.
func SignedArea(ring []r2.Point) float64 {
	if len(ring) < 3 {
		return 0
	}
	r := toRing(ring)
	return float64(r.Orientation()) * math.Abs(orbplanar.Area(r))
}

// IsClockwise reports whether the ring runs clockwise.
func IsClockwise(ring []r2.Point) bool {
	return len(ring) > 2 && toRing(ring).Orientation() == orb.CW
}

// Reverse returns a reversed copy of the line.
func Reverse(line []r2.Point) []r2.Point {
	c := make([]r2.Point, len(line))
	for i := 0; i < len(line); i++ {
		c[i] = line[len(line)-i-1]
	}
	return c
}

// RayCrossings counts how often the ray from p towards +x crosses the
// segments of the line, using a half-open rule so vertices count once.
func RayCrossings(p r2.Point, line []r2.Point) int {
	count := 0
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		if (a.Y > p.Y) == (b.Y > p.Y) {
			continue
		}
		x := a.X + (p.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
		if p.X < x {
			count++
		}
	}
	return count
}

// PointInRing reports whether p lies inside the closed ring. Points on the
// boundary may go either way.
func PointInRing(p r2.Point, ring []r2.Point) bool {
	if len(ring) < 3 {
		return false
	}
	return orbplanar.RingContains(toRing(ring), toOrb(p))
}

// PointInPolygon reports whether p lies inside the shell but in none of the
// holes.
func PointInPolygon(p r2.Point, shell []r2.Point, holes [][]r2.Point) bool {
	if len(shell) < 3 {
		return false
	}
	return orbplanar.PolygonContains(toPolygon(shell, holes), toOrb(p))
}

// Locate finds the segment of line closest to p. It returns the segment
// index, the closest point, its parameter on the segment and the distance.
func Locate(line []r2.Point, p r2.Point) (seg int, at r2.Point, t, dist float64) {
	dist = math.Inf(1)
	for i := 0; i+1 < len(line); i++ {
		q, qt := Project(p, line[i], line[i+1])
		d := Dist(p, q)
		if d < dist {
			seg, at, t, dist = i, q, qt, d
		}
	}
	return
}

// PointAt returns the point at position pos, where the integer part is the
// segment index and the fraction the parameter along it.
func PointAt(line []r2.Point, pos float64) r2.Point {
	seg := int(math.Floor(pos))
	if seg < 0 {
		return line[0]
	}
	if seg >= len(line)-1 {
		return line[len(line)-1]
	}
	t := pos - float64(seg)
	if t == 0 {
		return line[seg]
	}
	a, b := line[seg], line[seg+1]
	return a.Add(b.Sub(a).Mul(t))
}

// Distance returns the distance between p and the line.
func Distance(line []r2.Point, p r2.Point) float64 {
	if len(line) == 1 {
		return Dist(line[0], p)
	}
	return orbplanar.DistanceFrom(toLineString(line), toOrb(p))
}

// SplitAt cuts the line at point p lying on segment seg. The point ends the
// head and starts the tail; it is never duplicated.
func SplitAt(line []r2.Point, seg int, p r2.Point) (head, tail []r2.Point) {
	head = make([]r2.Point, 0, seg+2)
	head = append(head, line[:seg+1]...)
	if head[len(head)-1] != p {
		head = append(head, p)
	}

	tail = make([]r2.Point, 0, len(line)-seg)
	if line[seg+1] != p {
		tail = append(tail, p)
	}
	tail = append(tail, line[seg+1:]...)
	return head, tail
}

// RemoveRepeated drops vertices closer than tol to the previously kept one.
// The last vertex always survives so closed lines stay closed.
func RemoveRepeated(line []r2.Point, tol float64) []r2.Point {
	if len(line) < 2 {
		return line
	}
	out := make([]r2.Point, 0, len(line))
	out = append(out, line[0])
	for _, p := range line[1 : len(line)-1] {
		if Dist(p, out[len(out)-1]) > tol {
			out = append(out, p)
		}
	}
	last := line[len(line)-1]
	if len(out) > 1 && Dist(last, out[len(out)-1]) <= tol {
		out[len(out)-1] = last
	} else {
		out = append(out, last)
	}
	if len(out) == 2 && Dist(out[0], out[1]) <= tol {
		return out[:1]
	}
	return out
}

// WithinDistance reports whether every vertex of a lies within tol of line b.
func WithinDistance(a, b []r2.Point, tol float64) bool {
	for _, p := range a {
		if Distance(b, p) > tol {
			return false
		}
	}
	return true
}

// SameShape reports whether two lines cover each other within tol.
func SameShape(a, b []r2.Point, tol float64) bool {
	return WithinDistance(a, b, tol) && WithinDistance(b, a, tol)
}

// MinTolerance returns the smallest tolerance that is still meaningful for
// coordinates of the magnitude found in the box.
func MinTolerance(box r2.Rect) float64 {
	max := 0.0
	if !box.IsEmpty() {
		max = math.Max(
			math.Max(math.Abs(box.X.Lo), math.Abs(box.X.Hi)),
			math.Max(math.Abs(box.Y.Lo), math.Abs(box.Y.Hi)),
		)
	}
	if max == 0 {
		max = 1
	}
	return 3.6 * math.Pow(10, -(15 - math.Log10(max)))
}

// InteriorPoint returns a point strictly inside the area described by the
// rings (shells and holes together, even-odd rule). The centroid is used when
// it lands inside and off the boundary; otherwise a horizontal line that
// avoids every vertex is scanned and the middle of the widest inside interval
// is picked.
func InteriorPoint(rings [][]r2.Point) (r2.Point, bool) {
	if p, ok := centroidInside(rings); ok {
		return p, true
	}

	ys := make([]float64, 0)
	box := r2.EmptyRect()
	for _, r := range rings {
		for _, p := range r {
			ys = append(ys, p.Y)
			box = box.AddPoint(p)
		}
	}
	if len(ys) < 3 || box.IsEmpty() {
		return r2.Point{}, false
	}
	sort.Float64s(ys)

	// Pick the gap between vertex ordinates closest to the middle.
	center := box.Center().Y
	y0 := math.NaN()
	best := math.Inf(1)
	for i := 0; i+1 < len(ys); i++ {
		if ys[i] == ys[i+1] {
			continue
		}
		mid := (ys[i] + ys[i+1]) / 2
		if d := math.Abs(mid - center); d < best {
			best = d
			y0 = mid
		}
	}
	if math.IsNaN(y0) {
		return r2.Point{}, false
	}

	xs := make([]float64, 0)
	for _, r := range rings {
		for i := 0; i+1 < len(r); i++ {
			a, b := r[i], r[i+1]
			if (a.Y > y0) == (b.Y > y0) {
				continue
			}
			xs = append(xs, a.X+(y0-a.Y)*(b.X-a.X)/(b.Y-a.Y))
		}
	}
	sort.Float64s(xs)

	width := 0.0
	var found r2.Point
	ok := false
	for i := 0; i+1 < len(xs); i += 2 {
		if w := xs[i+1] - xs[i]; w > width {
			width = w
			found = r2.Point{X: (xs[i] + xs[i+1]) / 2, Y: y0}
			ok = true
		}
	}
	return found, ok
}

// centroidInside returns the area centroid of the rings when an odd number of
// them contain it and it keeps clear of every ring by a thousandth of their
// extent.
func centroidInside(rings [][]r2.Point) (r2.Point, bool) {
	poly := make(orb.Polygon, 0, len(rings))
	box := r2.EmptyRect()
	for _, r := range rings {
		if len(r) < 4 {
			return r2.Point{}, false
		}
		poly = append(poly, toRing(r))
		box = box.Union(Bound(r))
	}
	if len(poly) == 0 {
		return r2.Point{}, false
	}

	c, area := orbplanar.CentroidArea(poly)
	if area == 0 || math.IsNaN(c[0]) || math.IsNaN(c[1]) {
		return r2.Point{}, false
	}

	size := box.Size()
	margin := math.Max(math.Max(size.X, size.Y)/1000, MinTolerance(box))
	count := 0
	for _, r := range poly {
		if orbplanar.DistanceFrom(r, c) <= margin {
			return r2.Point{}, false
		}
		if orbplanar.RingContains(r, c) {
			count++
		}
	}
	if count%2 == 0 {
		return r2.Point{}, false
	}
	return fromOrb(c), true
}
