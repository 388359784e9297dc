package topology

import (
	"context"
	"sort"

	"github.com/golang/geo/r2"
	"github.com/rubenv/planartopo/planar"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Violation is one problem found by Validate. The meaning of the ids depends
// on the kind of problem; unused ids are zero.
type Violation struct {
	Error string `json:"error"`
	ID1   int64  `json:"id1"`
	ID2   int64  `json:"id2"`
}

const (
	ViolationCoincidentNodes    = "coincident nodes"
	ViolationEdgeCrossesNode    = "edge crosses node"
	ViolationInvalidEdge        = "invalid edge"
	ViolationEdgeNotSimple      = "edge not simple"
	ViolationEdgeCrossesEdge    = "edge crosses edge"
	ViolationDuplicateEdge      = "duplicate edge"
	ViolationStartNodeMismatch  = "edge start node geometry mismatch"
	ViolationEndNodeMismatch    = "edge end node geometry mismatch"
	ViolationMissingNode        = "edge references missing node"
	ViolationMissingFace        = "edge references missing face"
	ViolationMissingNextEdge    = "edge references missing next edge"
	ViolationRingNotClosed      = "ring not closed"
	ViolationMixedFaceLabels    = "mixed face labeling in ring"
	ViolationFaceWithoutEdges   = "face without edges"
	ViolationFaceWithoutRings   = "face has no rings"
	ViolationFaceWrongMBR       = "face has wrong mbr"
	ViolationIsolatedNodeEdges  = "isolated node has incident edges"
	ViolationNodeWithoutEdges   = "node without edges nor containing face"
	ViolationNodeMissingFace    = "isolated node references missing face"
	ViolationNodeFaceMismatch   = "isolated node has wrong containing face"
	ViolationRelationMissingRef = "relation references missing primitive"
)

type validation func(tx *Tx) []Violation

func checkNodes(tx *Tx) []Violation {
	result := make([]Violation, 0)
	for _, n := range tx.allNodes() {
		for _, o := range tx.NodesIn(planar.PointRect(n.Point)) {
			if o.ID > n.ID && o.Point == n.Point {
				result = append(result, Violation{ViolationCoincidentNodes, n.ID, o.ID})
			}
		}

		degree := tx.degree(n.ID)
		switch {
		case n.IsIsolated() && degree > 0:
			result = append(result, Violation{ViolationIsolatedNodeEdges, n.ID, 0})
		case !n.IsIsolated() && degree == 0:
			result = append(result, Violation{ViolationNodeWithoutEdges, n.ID, 0})
		case n.IsIsolated() && tx.face(n.ContainingFace) == nil:
			result = append(result, Violation{ViolationNodeMissingFace, n.ID, n.ContainingFace})
		case n.IsIsolated() && tx.FaceAt(n.Point) != n.ContainingFace:
			result = append(result, Violation{ViolationNodeFaceMismatch, n.ID, n.ContainingFace})
		}
	}
	return result
}

func checkEdges(tx *Tx) []Violation {
	result := make([]Violation, 0)
	for _, e := range tx.allEdges() {
		if len(e.Curve) < 2 {
			result = append(result, Violation{ViolationInvalidEdge, e.ID, 0})
			continue
		}
		if !planar.IsSimple(e.Curve) {
			result = append(result, Violation{ViolationEdgeNotSimple, e.ID, 0})
		}

		start, end := tx.node(e.StartNode), tx.node(e.EndNode)
		switch {
		case start == nil:
			result = append(result, Violation{ViolationMissingNode, e.ID, e.StartNode})
		case start.Point != e.Curve[0]:
			result = append(result, Violation{ViolationStartNodeMismatch, e.ID, e.StartNode})
		}
		switch {
		case end == nil:
			result = append(result, Violation{ViolationMissingNode, e.ID, e.EndNode})
		case end.Point != e.Curve[len(e.Curve)-1]:
			result = append(result, Violation{ViolationEndNodeMismatch, e.ID, e.EndNode})
		}

		for _, f := range []int64{e.LeftFace, e.RightFace} {
			if tx.face(f) == nil {
				result = append(result, Violation{ViolationMissingFace, e.ID, f})
			}
		}
		for _, s := range []int64{e.NextLeftEdge, e.NextRightEdge} {
			if s == 0 || tx.edge(s) == nil {
				result = append(result, Violation{ViolationMissingNextEdge, e.ID, abs(s)})
			}
		}

		for _, n := range tx.NodesIn(e.Bound()) {
			if n.ID != e.StartNode && n.ID != e.EndNode && planar.Distance(e.Curve, n.Point) == 0 {
				result = append(result, Violation{ViolationEdgeCrossesNode, e.ID, n.ID})
			}
		}
	}
	return result
}

func checkEdgePairs(tx *Tx) []Violation {
	result := make([]Violation, 0)
	for _, e := range tx.allEdges() {
		if len(e.Curve) < 2 {
			continue
		}
		for _, o := range tx.EdgesIn(e.Bound()) {
			if o.ID <= e.ID || len(o.Curve) < 2 {
				continue
			}
			shared := make([]r2.Point, 0, 2)
			for _, n := range []int64{e.StartNode, e.EndNode} {
				if (o.StartNode == n || o.EndNode == n) && tx.node(n) != nil {
					shared = append(shared, tx.node(n).Point)
				}
			}
			if len(shared) > 0 && sameCurve(e.Curve, o.Curve) {
				result = append(result, Violation{ViolationDuplicateEdge, e.ID, o.ID})
				continue
			}
			if curvesMeet(e.Curve, o.Curve, shared) {
				result = append(result, Violation{ViolationEdgeCrossesEdge, e.ID, o.ID})
			}
		}
	}
	return result
}

func checkRings(tx *Tx) []Violation {
	result := make([]Violation, 0)
	visited := make(map[int64]bool)
	for _, e := range tx.allEdges() {
		for _, s := range []int64{e.ID, -e.ID} {
			if visited[s] {
				continue
			}
			ring, err := tx.Ring(s)
			if err != nil {
				visited[s] = true
				result = append(result, Violation{ViolationRingNotClosed, e.ID, 0})
				continue
			}

			face := tx.leftFace(s)
			for _, r := range ring {
				visited[r] = true
				if f := tx.leftFace(r); f != face {
					result = append(result, Violation{ViolationMixedFaceLabels, abs(r), f})
				}
			}
		}
	}
	return result
}

func checkFaces(tx *Tx) []Violation {
	result := make([]Violation, 0)
	for _, f := range tx.allFaces() {
		if len(tx.faceEdges(f.ID)) == 0 {
			result = append(result, Violation{ViolationFaceWithoutEdges, f.ID, 0})
			continue
		}
		rings, err := tx.FaceGeometry(f.ID)
		if err != nil {
			result = append(result, Violation{ViolationFaceWithoutRings, f.ID, 0})
			continue
		}
		if planar.Bound(rings[0]) != f.MBR {
			result = append(result, Violation{ViolationFaceWrongMBR, f.ID, 0})
		}
	}
	return result
}

func checkRelations(tx *Tx) []Violation {
	result := make([]Violation, 0)
	for _, l := range tx.Layers() {
		for _, tg := range tx.TopoGeometries(l.ID) {
			rels, err := tx.ListElements(tg.ID, l.ID)
			if err != nil {
				continue
			}
			for _, r := range rels {
				if !tx.elementExists(r.Element()) {
					result = append(result, Violation{ViolationRelationMissingRef, tg.ID, r.ElementID})
				}
			}
		}
	}
	return result
}

func sortViolations(v []Violation) {
	sort.Slice(v, func(i, j int) bool {
		if v[i].Error != v[j].Error {
			return v[i].Error < v[j].Error
		}
		if v[i].ID1 != v[j].ID1 {
			return v[i].ID1 < v[j].ID1
		}
		return v[i].ID2 < v[j].ID2
	})
}

// Validate checks the committed state of a topology. It reads a snapshot, so
// writers are never blocked.
func (s *Store) Validate(ctx context.Context, topology string) ([]Violation, error) {
	topo, err := s.Topology(topology)
	if err != nil {
		return nil, err
	}
	g, err := s.snapshot(topo)
	if err != nil {
		return nil, err
	}
	tx := newTx(g, s.log, false)

	checks := []validation{checkNodes, checkEdges, checkEdgePairs, checkRings, checkFaces, checkRelations}
	found := make([][]Violation, len(checks))

	eg, ctx := errgroup.WithContext(ctx)
	for i, c := range checks {
		i, c := i, c
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			found[i] = c(tx)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := make([]Violation, 0)
	for _, v := range found {
		result = append(result, v...)
	}
	sortViolations(result)

	s.log.Info("validated topology", zap.String("topology", topo.Name), zap.Int("violations", len(result)))
	return result, nil
}
