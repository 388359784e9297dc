package topology

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
	"github.com/rubenv/planartopo/topology/lookup"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap"
)

// Tx is a copy-on-write view of a topology. Reads fall through to the
// published graph; writes land in the overlay, where a nil entry marks a
// deletion. Records returned by the overlay must be cloned before they are
// changed.
type Tx struct {
	g        *graph
	log      *zap.Logger
	writable bool

	topo      *model.Topology
	layers    map[int]*model.Layer
	nodes     map[int64]*model.Node
	edges     map[int64]*model.Edge
	faces     map[int64]*model.Face
	topogeoms map[model.TopoGeomKey]*model.TopoGeometry
	rels      map[model.Relation]bool
	seq       map[string]int64

	stats stats
}

func newTx(g *graph, log *zap.Logger, writable bool) *Tx {
	return &Tx{
		g:         g,
		log:       log,
		writable:  writable,
		layers:    make(map[int]*model.Layer),
		nodes:     make(map[int64]*model.Node),
		edges:     make(map[int64]*model.Edge),
		faces:     make(map[int64]*model.Face),
		topogeoms: make(map[model.TopoGeomKey]*model.TopoGeometry),
		rels:      make(map[model.Relation]bool),
		seq:       make(map[string]int64),
	}
}

func (tx *Tx) check() error {
	if !tx.writable {
		return ErrReadOnly
	}
	return nil
}

// Topology returns the topology record this transaction works on.
func (tx *Tx) Topology() model.Topology {
	if tx.topo != nil {
		return *tx.topo
	}
	return tx.g.topo
}

func (tx *Tx) SetSRID(srid int) error {
	if err := tx.check(); err != nil {
		return err
	}
	t := tx.Topology()
	t.SRID = srid
	tx.topo = &t
	return nil
}

func (tx *Tx) nextID(kind string) int64 {
	v, ok := tx.seq[kind]
	if !ok {
		v = tx.g.seq[kind]
	}
	v++
	tx.seq[kind] = v
	return v
}

// Nodes

func (tx *Tx) node(id int64) *model.Node {
	if n, ok := tx.nodes[id]; ok {
		return n
	}
	return tx.g.nodes[id]
}

func (tx *Tx) Node(id int64) (*model.Node, error) {
	n := tx.node(id)
	if n == nil {
		return nil, errors.Wrapf(ErrNotFound, "node %d", id)
	}
	return n.Clone(), nil
}

func (tx *Tx) putNode(n *model.Node) {
	tx.nodes[n.ID] = n
}

func (tx *Tx) dropNode(id int64) {
	tx.nodes[id] = nil
}

func (tx *Tx) newNode(p r2.Point, face int64) *model.Node {
	n := &model.Node{
		ID:             tx.nextID("node"),
		Point:          p,
		ContainingFace: face,
	}
	tx.putNode(n)
	tx.stats.nodes++
	return n
}

// NodesIn returns the nodes inside the box, ordered by id.
func (tx *Tx) NodesIn(box r2.Rect) []*model.Node {
	result := make([]*model.Node, 0)
	for _, id := range tx.g.index.Search(box, lookup.Node) {
		if _, touched := tx.nodes[id]; touched {
			continue
		}
		result = append(result, tx.g.nodes[id])
	}
	for _, n := range tx.nodes {
		if n != nil && box.ContainsPoint(n.Point) {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// NodesWithin returns the nodes at most d away from p, ordered by id.
func (tx *Tx) NodesWithin(p r2.Point, d float64) []*model.Node {
	result := make([]*model.Node, 0)
	for _, n := range tx.NodesIn(planar.Expand(planar.PointRect(p), d)) {
		if planar.Dist(n.Point, p) <= d {
			result = append(result, n)
		}
	}
	return result
}

// Edges

func (tx *Tx) edge(id int64) *model.Edge {
	if id < 0 {
		id = -id
	}
	if e, ok := tx.edges[id]; ok {
		return e
	}
	return tx.g.edges[id]
}

func (tx *Tx) Edge(id int64) (*model.Edge, error) {
	e := tx.edge(id)
	if e == nil {
		return nil, errors.Wrapf(ErrNotFound, "edge %d", id)
	}
	return e.Clone(), nil
}

func (tx *Tx) putEdge(e *model.Edge) {
	tx.edges[e.ID] = e
}

func (tx *Tx) dropEdge(id int64) {
	tx.edges[id] = nil
}

// EdgesIn returns the edges whose bounding box touches the box, ordered by id.
func (tx *Tx) EdgesIn(box r2.Rect) []*model.Edge {
	result := make([]*model.Edge, 0)
	for _, id := range tx.g.index.Search(box, lookup.Edge) {
		if _, touched := tx.edges[id]; touched {
			continue
		}
		result = append(result, tx.g.edges[id])
	}
	for _, e := range tx.edges {
		if e != nil && e.Bound().Intersects(box) {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// EdgesWithin returns the edges whose curve passes at most d away from p,
// ordered by id.
func (tx *Tx) EdgesWithin(p r2.Point, d float64) []*model.Edge {
	result := make([]*model.Edge, 0)
	for _, e := range tx.EdgesIn(planar.Expand(planar.PointRect(p), d)) {
		if planar.Distance(e.Curve, p) <= d {
			result = append(result, e)
		}
	}
	return result
}

func (tx *Tx) edgeCount() int {
	return len(tx.g.edges) + len(tx.edges)
}

// Faces

func (tx *Tx) face(id int64) *model.Face {
	if id == model.UniverseFace {
		return &model.Face{ID: model.UniverseFace, MBR: r2.EmptyRect()}
	}
	if f, ok := tx.faces[id]; ok {
		return f
	}
	return tx.g.faces[id]
}

func (tx *Tx) Face(id int64) (*model.Face, error) {
	f := tx.face(id)
	if f == nil {
		return nil, errors.Wrapf(ErrNotFound, "face %d", id)
	}
	return f.Clone(), nil
}

func (tx *Tx) putFace(f *model.Face) {
	tx.faces[f.ID] = f
}

func (tx *Tx) dropFace(id int64) {
	tx.faces[id] = nil
}

func (tx *Tx) newFace(mbr r2.Rect) *model.Face {
	f := &model.Face{
		ID:  tx.nextID("face"),
		MBR: mbr,
	}
	tx.putFace(f)
	tx.stats.faces++
	return f
}

// FacesIn returns the bounded faces whose mbr touches the box, ordered by id.
func (tx *Tx) FacesIn(box r2.Rect) []*model.Face {
	result := make([]*model.Face, 0)
	for _, id := range tx.g.index.Search(box, lookup.Face) {
		if _, touched := tx.faces[id]; touched {
			continue
		}
		result = append(result, tx.g.faces[id])
	}
	for _, f := range tx.faces {
		if f != nil && f.MBR.Intersects(box) {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Full scans, used by the validator and the exporters.

func (tx *Tx) allNodes() []*model.Node {
	result := make([]*model.Node, 0, len(tx.g.nodes))
	for id, n := range tx.g.nodes {
		if _, touched := tx.nodes[id]; !touched {
			result = append(result, n)
		}
	}
	for _, n := range tx.nodes {
		if n != nil {
			result = append(result, n)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (tx *Tx) allEdges() []*model.Edge {
	result := make([]*model.Edge, 0, len(tx.g.edges))
	for id, e := range tx.g.edges {
		if _, touched := tx.edges[id]; !touched {
			result = append(result, e)
		}
	}
	for _, e := range tx.edges {
		if e != nil {
			result = append(result, e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

func (tx *Tx) allFaces() []*model.Face {
	result := make([]*model.Face, 0, len(tx.g.faces))
	for id, f := range tx.g.faces {
		if _, touched := tx.faces[id]; !touched {
			result = append(result, f)
		}
	}
	for _, f := range tx.faces {
		if f != nil {
			result = append(result, f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Counts returns the number of nodes, edges and bounded faces.
func (tx *Tx) Counts() (nodes, edges, faces int) {
	return len(tx.allNodes()), len(tx.allEdges()), len(tx.allFaces())
}
