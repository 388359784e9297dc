package topology

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
	"github.com/rubenv/planartopo/topology/model"
)

// Signed edge ids name edge ends: +e leaves the start node along the curve,
// -e leaves the end node walking the curve backwards. The face on the left
// of +e is the left face, the face on the left of -e the right face.

func abs(id int64) int64 {
	if id < 0 {
		return -id
	}
	return id
}

type edgeEnd struct {
	id    int64
	angle float64
}

// endAngle is the direction in which the curve leaves its start (forward)
// or its end (backward).
func endAngle(e *model.Edge, forward bool) float64 {
	c := e.Curve
	if forward {
		for i := 1; i < len(c); i++ {
			if c[i] != c[0] {
				return planar.Angle(c[0], c[i])
			}
		}
	} else {
		n := len(c) - 1
		for i := n - 1; i >= 0; i-- {
			if c[i] != c[n] {
				return planar.Angle(c[n], c[i])
			}
		}
	}
	return 0
}

// endsAt returns the edge ends leaving a node, sorted counter-clockwise.
func (tx *Tx) endsAt(node int64) []edgeEnd {
	n := tx.node(node)
	if n == nil {
		return nil
	}

	ends := make([]edgeEnd, 0)
	for _, e := range tx.EdgesIn(planar.PointRect(n.Point)) {
		if e.StartNode == node {
			ends = append(ends, edgeEnd{id: e.ID, angle: endAngle(e, true)})
		}
		if e.EndNode == node {
			ends = append(ends, edgeEnd{id: -e.ID, angle: endAngle(e, false)})
		}
	}
	sort.Slice(ends, func(i, j int) bool {
		if ends[i].angle != ends[j].angle {
			return ends[i].angle < ends[j].angle
		}
		return ends[i].id < ends[j].id
	})
	return ends
}

func (tx *Tx) degree(node int64) int {
	return len(tx.endsAt(node))
}

func (tx *Tx) nextOf(s int64) int64 {
	e := tx.edge(s)
	if e == nil {
		return 0
	}
	if s > 0 {
		return e.NextLeftEdge
	}
	return e.NextRightEdge
}

func (tx *Tx) leftFace(s int64) int64 {
	e := tx.edge(s)
	if s > 0 {
		return e.LeftFace
	}
	return e.RightFace
}

func (tx *Tx) setLeftFace(s, face int64) {
	e := tx.mutEdge(s)
	if s > 0 {
		e.LeftFace = face
	} else {
		e.RightFace = face
	}
}

// mutEdge returns a copy of the edge owned by the transaction.
func (tx *Tx) mutEdge(id int64) *model.Edge {
	id = abs(id)
	if e, ok := tx.edges[id]; ok && e != nil {
		return e
	}
	e := tx.g.edges[id].Clone()
	tx.edges[id] = e
	return e
}

func (tx *Tx) mutNode(id int64) *model.Node {
	if n, ok := tx.nodes[id]; ok && n != nil {
		return n
	}
	n := tx.g.nodes[id].Clone()
	tx.nodes[id] = n
	return n
}

func (tx *Tx) mutFace(id int64) *model.Face {
	if f, ok := tx.faces[id]; ok && f != nil {
		return f
	}
	f := tx.g.faces[id].Clone()
	tx.faces[id] = f
	return f
}

// relinkNode recomputes the next pointers of every edge arriving at the
// node: a walk arriving over an edge continues with the end found first
// when turning clockwise from it.
func (tx *Tx) relinkNode(node int64) {
	ends := tx.endsAt(node)
	for i, o := range ends {
		cw := ends[(i+len(ends)-1)%len(ends)].id
		e := tx.mutEdge(o.id)
		if o.id > 0 {
			e.NextRightEdge = cw
		} else {
			e.NextLeftEdge = cw
		}
	}
}

// wedgeFace returns the face a new edge end leaving the node at the given
// angle would start in.
func (tx *Tx) wedgeFace(node int64, angle float64) (int64, error) {
	ends := tx.endsAt(node)
	if len(ends) == 0 {
		n := tx.node(node)
		if !n.IsIsolated() {
			return 0, errors.Wrapf(ErrConstraintViolation, "node %d has no edges and no containing face", node)
		}
		return n.ContainingFace, nil
	}

	cw := ends[len(ends)-1]
	for _, o := range ends {
		if o.angle == angle {
			return 0, errors.Wrapf(ErrConstraintViolation, "new edge overlaps edge %d at node %d", abs(o.id), node)
		}
		if o.angle > angle {
			break
		}
		cw = o
	}
	return tx.leftFace(cw.id), nil
}
