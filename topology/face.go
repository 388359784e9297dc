package topology

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
	"github.com/rubenv/planartopo/topology/model"
)

// Ring follows the next pointers from a signed edge until it comes back.
func (tx *Tx) Ring(start int64) ([]int64, error) {
	if start == 0 || tx.edge(start) == nil {
		return nil, errors.Wrapf(ErrNotFound, "edge %d", abs(start))
	}

	limit := 2*tx.edgeCount() + 2
	ring := []int64{start}
	for cur := tx.nextOf(start); cur != start; cur = tx.nextOf(cur) {
		if cur == 0 || tx.edge(cur) == nil {
			return nil, errors.Wrapf(ErrConstraintViolation, "ring of edge %d links to missing edge %d", start, cur)
		}
		ring = append(ring, cur)
		if len(ring) > limit {
			return nil, errors.Wrapf(ErrConstraintViolation, "ring of edge %d does not close", start)
		}
	}
	return ring, nil
}

func (tx *Tx) directedCurve(s int64) []r2.Point {
	c := tx.edge(s).Curve
	if s < 0 {
		return planar.Reverse(c)
	}
	return c
}

// ringPoints joins the directed curves of a ring into one closed line.
func (tx *Tx) ringPoints(ring []int64) []r2.Point {
	pts := make([]r2.Point, 0)
	for _, s := range ring {
		c := tx.directedCurve(s)
		if len(pts) > 0 {
			c = c[1:]
		}
		pts = append(pts, c...)
	}
	return pts
}

// RingArea is positive for counter-clockwise rings (shells) and negative for
// clockwise ones (holes).
func (tx *Tx) RingArea(ring []int64) float64 {
	return planar.SignedArea(tx.ringPoints(ring))
}

// sidePoint returns a point on the first segment of a signed edge that is not a
// node.
func (tx *Tx) sidePoint(s int64) r2.Point {
	c := tx.directedCurve(s)
	return c[0].Add(c[1]).Mul(0.5)
}

// faceEdges returns the edges with at least one side on a bounded face.
func (tx *Tx) faceEdges(face int64) []*model.Edge {
	f := tx.face(face)
	if f == nil || face == model.UniverseFace {
		return nil
	}

	result := make([]*model.Edge, 0)
	for _, e := range tx.EdgesIn(f.MBR) {
		if e.LeftFace == face || e.RightFace == face {
			result = append(result, e)
		}
	}
	return result
}

// PointInFace tells whether the point lies inside the face. Points on the
// boundary may go either way.
func (tx *Tx) PointInFace(p r2.Point, face int64) (bool, error) {
	if face == model.UniverseFace {
		return tx.FaceAt(p) == model.UniverseFace, nil
	}

	f := tx.face(face)
	if f == nil {
		return false, errors.Wrapf(ErrNotFound, "face %d", face)
	}
	if !f.MBR.ContainsPoint(p) {
		return false, nil
	}

	count := 0
	for _, e := range tx.faceEdges(face) {
		if e.LeftFace == e.RightFace {
			continue
		}
		count += planar.RayCrossings(p, e.Curve)
	}
	return count%2 == 1, nil
}

// FaceAt returns the face containing the point, the universe if none does.
func (tx *Tx) FaceAt(p r2.Point) int64 {
	for _, f := range tx.FacesIn(planar.PointRect(p)) {
		in, err := tx.PointInFace(p, f.ID)
		if err == nil && in {
			return f.ID
		}
	}
	return model.UniverseFace
}

// boundaryRings walks the boundary of the union of the given faces. Edges
// with the set on both sides are skipped.
func (tx *Tx) boundaryRings(faces map[int64]bool) ([][]int64, error) {
	inside := func(s int64) bool {
		return faces[tx.leftFace(s)] && faces[tx.leftFace(-s)]
	}

	seen := make(map[int64]bool)
	starts := make([]int64, 0)
	for f := range faces {
		for _, e := range tx.faceEdges(f) {
			if seen[e.ID] {
				continue
			}
			seen[e.ID] = true
			for _, s := range []int64{e.ID, -e.ID} {
				if faces[tx.leftFace(s)] && !faces[tx.leftFace(-s)] {
					starts = append(starts, s)
				}
			}
		}
	}
	sort.Slice(starts, func(i, j int) bool {
		a, b := abs(starts[i]), abs(starts[j])
		if a != b {
			return a < b
		}
		return starts[i] > starts[j]
	})

	limit := 2*tx.edgeCount() + 2
	visited := make(map[int64]bool)
	rings := make([][]int64, 0)
	for _, s := range starts {
		if visited[s] {
			continue
		}

		ring := make([]int64, 0)
		cur := s
		for {
			ring = append(ring, cur)
			visited[cur] = true

			next := tx.nextOf(cur)
			for steps := 0; next != 0 && inside(next); steps++ {
				if steps > limit {
					return nil, errors.Wrapf(ErrConstraintViolation, "boundary walk stuck at edge %d", cur)
				}
				next = tx.nextOf(-next)
			}
			if next == s {
				break
			}
			if next == 0 || visited[next] || len(ring) > limit {
				return nil, errors.Wrapf(ErrConstraintViolation, "boundary walk from edge %d does not close", s)
			}
			cur = next
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// groupRings groups closed rings into polygons: every counter-clockwise ring
// is a shell, every clockwise ring a hole of the smallest shell around it.
// Each group holds the shell index followed by its holes.
func groupRings(rings [][]r2.Point) [][]int {
	areas := make([]float64, len(rings))
	groups := make([][]int, 0)
	for i, r := range rings {
		areas[i] = planar.SignedArea(r)
		if areas[i] > 0 {
			groups = append(groups, []int{i})
		}
	}

	for i, h := range rings {
		if areas[i] >= 0 {
			continue
		}
		p := h[0].Add(h[1]).Mul(0.5)
		best := -1
		for g, grp := range groups {
			s := grp[0]
			if planar.PointInRing(p, rings[s]) && (best < 0 || areas[s] < areas[groups[best][0]]) {
				best = g
			}
		}
		if best >= 0 {
			groups[best] = append(groups[best], i)
		}
	}
	return groups
}

func polygonize(rings [][]r2.Point) [][][]r2.Point {
	groups := groupRings(rings)
	result := make([][][]r2.Point, 0, len(groups))
	for _, g := range groups {
		poly := make([][]r2.Point, 0, len(g))
		for _, i := range g {
			poly = append(poly, rings[i])
		}
		result = append(result, poly)
	}
	return result
}

// unionPolygons returns the polygons covering the union of the faces.
func (tx *Tx) unionPolygons(faces map[int64]bool) ([][][]r2.Point, error) {
	rings, err := tx.boundaryRings(faces)
	if err != nil {
		return nil, err
	}
	pts := make([][]r2.Point, 0, len(rings))
	for _, r := range rings {
		pts = append(pts, tx.ringPoints(r))
	}
	return polygonize(pts), nil
}

// FaceGeometry returns the shell of a bounded face followed by its holes.
func (tx *Tx) FaceGeometry(face int64) ([][]r2.Point, error) {
	if face == model.UniverseFace {
		return nil, errors.Wrap(ErrConstraintViolation, "the universal face has no geometry")
	}
	if tx.face(face) == nil {
		return nil, errors.Wrapf(ErrNotFound, "face %d", face)
	}

	polys, err := tx.unionPolygons(map[int64]bool{face: true})
	if err != nil {
		return nil, err
	}
	if len(polys) != 1 {
		return nil, errors.Wrapf(ErrConstraintViolation, "face %d has %d shells", face, len(polys))
	}
	return polys[0], nil
}

// FaceInteriorPoint returns a point strictly inside a bounded face.
func (tx *Tx) FaceInteriorPoint(face int64) (r2.Point, bool) {
	rings, err := tx.FaceGeometry(face)
	if err != nil {
		return r2.Point{}, false
	}
	return planar.InteriorPoint(rings)
}
