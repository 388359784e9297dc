package topology

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap"
)

// tolerance picks the snapping distance: the given value, else the topology
// precision, else the smallest meaningful value for the coordinates in box.
func (tx *Tx) tolerance(tol float64, box r2.Rect) float64 {
	if tol > 0 {
		return tol
	}
	if p := tx.Topology().Precision; p > 0 {
		return p
	}
	return planar.MinTolerance(box)
}

// AddPoint returns the node for a point, reusing a node or splitting an edge
// within tolerance when possible.
func (tx *Tx) AddPoint(p r2.Point, tol float64) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	tx.stats.component("point")
	return tx.addPoint(p, tx.tolerance(tol, planar.PointRect(p)))
}

func (tx *Tx) addPoint(p r2.Point, tol float64) (int64, error) {
	near := tx.NodesWithin(p, tol)
	for _, n := range near {
		if n.Point == p {
			return n.ID, nil
		}
	}
	switch len(near) {
	case 0:
	case 1:
		return near[0].ID, nil
	default:
		return 0, errors.Wrapf(ErrCoincidentNodeConflict, "point %v is within %g of nodes %d and %d", p, tol, near[0].ID, near[1].ID)
	}

	var best *model.Edge
	var at r2.Point
	bestDist := math.Inf(1)
	for _, e := range tx.EdgesWithin(p, tol) {
		_, q, _, d := planar.Locate(e.Curve, p)
		if d < bestDist {
			best, at, bestDist = e, q, d
		}
	}
	if best != nil {
		id, err := tx.ModEdgeSplit(best.ID, at)
		if err != nil {
			return 0, errors.Wrapf(err, "snap point %v to edge %d", p, best.ID)
		}
		return id, nil
	}

	return tx.AddIsoNode(model.NullFace, p)
}

const (
	rankNode = iota
	rankBoundary
	rankCrossing
	rankVertex
)

// event is a place along the line where it has to be noded.
type event struct {
	pos   float64
	point r2.Point
	rank  int
	node  int64
}

type span struct {
	lo, hi float64
}

func inside(spans []span, pos float64) bool {
	for _, s := range spans {
		if s.lo < pos && pos < s.hi {
			return true
		}
	}
	return false
}

// overlaps returns the runs of line, as positions, that lie along curve
// within tolerance. A run needs two of the four segment end points to sit on
// the other segment.
func overlaps(line, curve []r2.Point, tol float64) []span {
	spans := make([]span, 0)
	for i := 0; i+1 < len(line); i++ {
		a, b := line[i], line[i+1]
		l := planar.Dist(a, b)
		sa := planar.Expand(r2.RectFromPoints(a, b), tol)
		for j := 0; j+1 < len(curve); j++ {
			c, d := curve[j], curve[j+1]
			if !sa.Intersects(r2.RectFromPoints(c, d)) {
				continue
			}

			ts := make([]float64, 0, 4)
			for _, p := range []r2.Point{c, d} {
				if q, t := planar.Project(p, a, b); planar.Dist(p, q) <= tol {
					ts = append(ts, t)
				}
			}
			if planar.SegmentDistance(a, c, d) <= tol {
				ts = append(ts, 0)
			}
			if planar.SegmentDistance(b, c, d) <= tol {
				ts = append(ts, 1)
			}
			if len(ts) < 2 {
				continue
			}

			lo, hi := ts[0], ts[0]
			for _, t := range ts[1:] {
				lo, hi = math.Min(lo, t), math.Max(hi, t)
			}
			if (hi-lo)*l <= tol {
				continue
			}
			spans = append(spans, span{lo: float64(i) + lo, hi: float64(i) + hi})
		}
	}
	if len(spans) < 2 {
		return spans
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].lo < spans[j].lo })
	merged := spans[:1]
	for _, s := range spans[1:] {
		last := &merged[len(merged)-1]
		if s.lo <= last.hi {
			last.hi = math.Max(last.hi, s.hi)
			continue
		}
		merged = append(merged, s)
	}
	return merged
}

// events finds every place where the line meets the graph.
func (tx *Tx) events(line []r2.Point, tol float64) []event {
	box := planar.Expand(planar.Bound(line), tol)
	last := len(line) - 1

	result := []event{
		{pos: 0, point: line[0], rank: rankVertex},
		{pos: float64(last), point: line[last], rank: rankVertex},
	}

	for _, n := range tx.NodesIn(box) {
		seg, _, t, d := planar.Locate(line, n.Point)
		if d <= tol {
			result = append(result, event{pos: float64(seg) + t, point: n.Point, rank: rankNode, node: n.ID})
		}
	}

	spans := make([]span, 0)
	candidates := make([]event, 0)
	for _, e := range tx.EdgesIn(box) {
		c := e.Curve
		for _, s := range overlaps(line, c, tol) {
			spans = append(spans, s)
			for _, pos := range []float64{s.lo, s.hi} {
				_, at, _, _ := planar.Locate(c, planar.PointAt(line, pos))
				result = append(result, event{pos: pos, point: at, rank: rankBoundary})
			}
		}

		for i := 0; i+1 < len(line); i++ {
			sa := planar.Expand(r2.RectFromPoints(line[i], line[i+1]), tol)
			for j := 0; j+1 < len(c); j++ {
				if !sa.Intersects(r2.RectFromPoints(c[j], c[j+1])) {
					continue
				}
				p, t, _, ok := planar.Intersect(line[i], line[i+1], c[j], c[j+1])
				if ok {
					candidates = append(candidates, event{pos: float64(i) + t, point: p, rank: rankCrossing})
				}
			}
		}
		for i, p := range line {
			if planar.Distance(c, p) <= tol {
				candidates = append(candidates, event{pos: float64(i), point: p, rank: rankVertex})
			}
		}
		for _, p := range c {
			seg, _, t, d := planar.Locate(line, p)
			if d <= tol {
				candidates = append(candidates, event{pos: float64(seg) + t, point: p, rank: rankVertex})
			}
		}
	}

	for _, ev := range candidates {
		if !inside(spans, ev.pos) {
			result = append(result, ev)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		if result[i].pos != result[j].pos {
			return result[i].pos < result[j].pos
		}
		return result[i].rank < result[j].rank
	})

	merged := make([]event, 0, len(result))
	for _, ev := range result {
		if n := len(merged); n > 0 && planar.Dist(merged[n-1].point, ev.point) <= tol && along(line, merged[n-1].pos, ev.pos) <= tol {
			if ev.rank < merged[n-1].rank {
				merged[n-1] = ev
			}
			continue
		}
		merged = append(merged, ev)
	}
	return merged
}

// along measures the line between two positions.
func along(line []r2.Point, from, to float64) float64 {
	p := planar.PointAt(line, from)
	l := 0.0
	for i := int(math.Floor(from)) + 1; float64(i) < to && i < len(line); i++ {
		l += planar.Dist(p, line[i])
		p = line[i]
	}
	return l + planar.Dist(p, planar.PointAt(line, to))
}

type item struct {
	pos   float64
	point r2.Point
	node  int64
}

// AddLineString nodes the line against the graph and returns the signed
// edges it now consists of, in order.
func (tx *Tx) AddLineString(line []r2.Point, tol float64) ([]int64, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	tx.stats.component("linestring")
	if len(line) == 0 {
		return nil, nil
	}
	return tx.addLineString(line, tx.tolerance(tol, planar.Bound(line)))
}

func (tx *Tx) addLineString(line []r2.Point, tol float64) ([]int64, error) {
	line = planar.RemoveRepeated(line, tol)
	if len(line) < 2 {
		return nil, nil
	}
	if !planar.IsSimple(line) {
		return nil, errors.Wrapf(ErrSelfIntersection, "line starting at %v", line[0])
	}

	events := tx.events(line, tol)
	items := make([]item, 0, len(events)+len(line))
	for _, ev := range events {
		id := ev.node
		if id == 0 || tx.node(id) == nil {
			var err error
			id, err = tx.addPoint(ev.point, tol)
			if err != nil {
				return nil, err
			}
		}
		items = append(items, item{pos: ev.pos, point: tx.node(id).Point, node: id})
	}
	for i, p := range line {
		items = append(items, item{pos: float64(i), point: p})
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].pos < items[j].pos })

	// Vertices that snap onto a node are dropped.
	kept := make([]item, 0, len(items))
	next := make([]int, len(items))
	n := -1
	for i := len(items) - 1; i >= 0; i-- {
		next[i] = n
		if items[i].node != 0 {
			n = i
		}
	}
	var prev *item
	for i, it := range items {
		if it.node != 0 {
			kept = append(kept, it)
			prev = &items[i]
			continue
		}
		if prev == nil || next[i] < 0 {
			continue
		}
		if it.pos == prev.pos || planar.Dist(it.point, prev.point) <= tol {
			continue
		}
		if nx := items[next[i]]; it.pos == nx.pos || planar.Dist(it.point, nx.point) <= tol {
			continue
		}
		kept = append(kept, it)
	}

	result := make([]int64, 0)
	var start int64
	curve := make([]r2.Point, 0)
	for _, it := range kept {
		curve = append(curve, it.point)
		if it.node == 0 {
			continue
		}
		if start != 0 {
			id, err := tx.addPiece(start, it.node, curve, tol)
			if err != nil {
				return nil, err
			}
			if id != 0 {
				result = append(result, id)
			}
		}
		start = it.node
		curve = []r2.Point{it.point}
	}

	tx.log.Debug("integrated line",
		zap.Int("vertices", len(line)),
		zap.Int("nodes", len(events)),
		zap.Int64s("edges", result))
	return result, nil
}

// addPiece reuses the edge between two nodes that follows the curve, or adds
// a new one.
func (tx *Tx) addPiece(a, b int64, curve []r2.Point, tol float64) (int64, error) {
	curve = planar.RemoveRepeated(curve, 0)
	if len(curve) < 2 {
		return 0, nil
	}
	if a == b && (len(curve) < 4 || planar.SignedArea(curve) == 0) {
		return 0, nil
	}

	if id := tx.matchEdge(a, b, curve, tol); id != 0 {
		return id, nil
	}
	return tx.AddEdgeModFace(a, b, curve)
}

func (tx *Tx) matchEdge(a, b int64, curve []r2.Point, tol float64) int64 {
	box := planar.Expand(planar.Bound(curve), tol)
	for _, e := range tx.EdgesIn(box) {
		forward := e.StartNode == a && e.EndNode == b
		backward := e.StartNode == b && e.EndNode == a
		if !forward && !backward {
			continue
		}
		if !planar.SameShape(curve, e.Curve, tol) {
			continue
		}
		if a == b {
			forward = (planar.SignedArea(curve) > 0) == (planar.SignedArea(e.Curve) > 0)
		}
		if forward {
			return e.ID
		}
		return -e.ID
	}
	return 0
}

// AddPolygon adds every ring of the polygon and returns the faces inside it.
func (tx *Tx) AddPolygon(rings [][]r2.Point, tol float64) ([]int64, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	tx.stats.component("polygon")
	if len(rings) == 0 || len(rings[0]) == 0 {
		return nil, nil
	}
	tol = tx.tolerance(tol, planar.Bound(rings[0]))

	closed := make([][]r2.Point, 0, len(rings))
	for _, r := range rings {
		if len(r) == 0 {
			continue
		}
		if r[0] != r[len(r)-1] {
			r = append(append([]r2.Point{}, r...), r[0])
		}
		if _, err := tx.addLineString(r, tol); err != nil {
			return nil, err
		}
		closed = append(closed, r)
	}

	shell, holes := closed[0], closed[1:]
	result := make([]int64, 0)
	for _, f := range tx.FacesIn(planar.Expand(planar.Bound(shell), tol)) {
		p, ok := tx.FaceInteriorPoint(f.ID)
		if ok && planar.PointInPolygon(p, shell, holes) {
			result = append(result, f.ID)
		}
	}

	tx.log.Debug("integrated polygon", zap.Int("rings", len(closed)), zap.Int64s("faces", result))
	return result, nil
}
