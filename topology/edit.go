package topology

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap"
)

func nodeEl(id int64) model.Element {
	return model.Element{Type: model.ElementNode, ID: id}
}

func edgeEl(id int64) model.Element {
	return model.Element{Type: model.ElementEdge, ID: abs(id)}
}

func faceEl(id int64) model.Element {
	return model.Element{Type: model.ElementFace, ID: id}
}

func sameOwners(a, b map[model.TopoGeomKey]bool) (model.TopoGeomKey, bool) {
	for k := range a {
		if !b[k] {
			return k, false
		}
	}
	for k := range b {
		if !a[k] {
			return k, false
		}
	}
	return model.TopoGeomKey{}, true
}

func (tx *Tx) mustNode(id int64) (*model.Node, error) {
	n := tx.node(id)
	if n == nil {
		return nil, errors.Wrapf(ErrNotFound, "node %d", id)
	}
	return n, nil
}

func (tx *Tx) mustEdge(id int64) (*model.Edge, error) {
	e := tx.edge(id)
	if e == nil {
		return nil, errors.Wrapf(ErrNotFound, "edge %d", abs(id))
	}
	return e, nil
}

// checkFreeSpot makes sure nothing of the graph sits exactly on p.
func (tx *Tx) checkFreeSpot(p r2.Point, self int64) error {
	box := planar.PointRect(p)
	for _, n := range tx.NodesIn(box) {
		if n.ID != self && n.Point == p {
			return errors.Wrapf(ErrConstraintViolation, "coincident node %d", n.ID)
		}
	}
	for _, e := range tx.EdgesIn(box) {
		if planar.Distance(e.Curve, p) == 0 {
			return errors.Wrapf(ErrConstraintViolation, "edge %d crosses node", e.ID)
		}
	}
	return nil
}

// AddIsoNode adds a node without edges. Pass model.NullFace to have the
// containing face looked up.
func (tx *Tx) AddIsoNode(face int64, p r2.Point) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	if err := tx.checkFreeSpot(p, 0); err != nil {
		return 0, err
	}

	actual := tx.FaceAt(p)
	if face != model.NullFace && face != actual {
		return 0, errors.Wrapf(ErrConstraintViolation, "point %v is not within face %d", p, face)
	}

	n := tx.newNode(p, actual)
	tx.log.Debug("added isolated node", zap.Int64("node", n.ID), zap.Int64("face", actual))
	return n.ID, nil
}

func (tx *Tx) isolatedNode(id int64) (*model.Node, error) {
	n, err := tx.mustNode(id)
	if err != nil {
		return nil, err
	}
	if !n.IsIsolated() || tx.degree(id) > 0 {
		return nil, errors.Wrapf(ErrConstraintViolation, "node %d is not isolated", id)
	}
	return n, nil
}

// MoveIsoNode moves an isolated node within its face.
func (tx *Tx) MoveIsoNode(id int64, p r2.Point) error {
	if err := tx.check(); err != nil {
		return err
	}
	n, err := tx.isolatedNode(id)
	if err != nil {
		return err
	}
	if err := tx.checkFreeSpot(p, id); err != nil {
		return err
	}
	if f := tx.FaceAt(p); f != n.ContainingFace {
		return errors.Wrapf(ErrConstraintViolation, "point %v is not within face %d", p, n.ContainingFace)
	}

	m := tx.mutNode(id)
	m.Point = p
	return nil
}

// RemIsoNode removes an isolated, unreferenced node.
func (tx *Tx) RemIsoNode(id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	if _, err := tx.isolatedNode(id); err != nil {
		return err
	}
	if tx.referenced(nodeEl(id)) {
		return errors.Wrapf(ErrPrimitiveInUse, "node %d is referenced", id)
	}
	tx.dropNode(id)
	return nil
}

// AddIsoEdge connects two isolated nodes of the same face.
func (tx *Tx) AddIsoEdge(start, end int64, curve []r2.Point) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	if start == end {
		return 0, errors.Wrap(ErrConstraintViolation, "closed isolated edge")
	}
	s, err := tx.isolatedNode(start)
	if err != nil {
		return 0, err
	}
	e, err := tx.isolatedNode(end)
	if err != nil {
		return 0, err
	}
	if s.ContainingFace != e.ContainingFace {
		return 0, errors.Wrapf(ErrConstraintViolation, "nodes %d and %d are in different faces", start, end)
	}
	return tx.addEdge(start, end, curve, false)
}

func (tx *Tx) dropDangling(node, face int64) {
	if tx.degree(node) > 0 {
		tx.relinkNode(node)
		return
	}
	if tx.referenced(nodeEl(node)) {
		m := tx.mutNode(node)
		m.ContainingFace = face
		return
	}
	tx.dropNode(node)
}

// RemIsoEdge removes an edge that touches no other edge. End nodes left
// without edges are removed too unless a TopoGeometry references them.
func (tx *Tx) RemIsoEdge(id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	e, err := tx.mustEdge(id)
	if err != nil {
		return err
	}

	ends := 1
	if e.IsClosed() {
		ends = 2
	}
	if e.LeftFace != e.RightFace || tx.degree(e.StartNode) != ends || tx.degree(e.EndNode) != ends {
		return errors.Wrapf(ErrConstraintViolation, "edge %d is not isolated", e.ID)
	}
	if tx.referenced(edgeEl(e.ID)) {
		return errors.Wrapf(ErrPrimitiveInUse, "edge %d is referenced", e.ID)
	}

	face := e.LeftFace
	start, end := e.StartNode, e.EndNode
	tx.dropEdge(e.ID)
	tx.dropDangling(start, face)
	if end != start {
		tx.dropDangling(end, face)
	}
	return nil
}

// ModEdgeSplit splits an edge at a point. The edge keeps its id for the part
// before the point; the rest becomes a new edge. Returns the new node.
func (tx *Tx) ModEdgeSplit(id int64, p r2.Point) (int64, error) {
	return tx.splitEdge(id, p, true)
}

// NewEdgesSplit replaces an edge by two new edges meeting at a new node.
func (tx *Tx) NewEdgesSplit(id int64, p r2.Point) (int64, error) {
	return tx.splitEdge(id, p, false)
}

func (tx *Tx) splitEdge(id int64, p r2.Point, keep bool) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	e, err := tx.mustEdge(id)
	if err != nil {
		return 0, err
	}
	id = e.ID

	if p == e.Curve[0] || p == e.Curve[len(e.Curve)-1] {
		return 0, errors.Wrapf(ErrConstraintViolation, "point %v coincides with an end node of edge %d", p, id)
	}
	seg, _, _, d := planar.Locate(e.Curve, p)
	if d > planar.MinTolerance(e.Bound()) {
		return 0, errors.Wrapf(ErrConstraintViolation, "point %v is not on edge %d", p, id)
	}
	for _, n := range tx.NodesIn(planar.PointRect(p)) {
		if n.Point == p {
			return 0, errors.Wrapf(ErrConstraintViolation, "coincident node %d", n.ID)
		}
	}

	head, tail := planar.SplitAt(e.Curve, seg, p)
	start, end := e.StartNode, e.EndNode
	left, right := e.LeftFace, e.RightFace

	node := tx.newNode(p, model.NullFace)

	var first *model.Edge
	if keep {
		first = tx.mutEdge(id)
	} else {
		first = e.Clone()
		first.ID = tx.nextID("edge")
		tx.putEdge(first)
		tx.dropEdge(id)
		tx.stats.edges++
	}
	first.EndNode = node.ID
	first.Curve = head

	second := &model.Edge{
		ID:        tx.nextID("edge"),
		StartNode: node.ID,
		EndNode:   end,
		LeftFace:  left,
		RightFace: right,
		Curve:     tail,
	}
	tx.putEdge(second)
	tx.stats.edges++

	tx.relinkNode(start)
	tx.relinkNode(node.ID)
	if end != start {
		tx.relinkNode(end)
	}

	if keep {
		tx.extendRelations(edgeEl(id), edgeEl(second.ID))
	} else {
		tx.replaceRelations(edgeEl(id), edgeEl(first.ID), edgeEl(second.ID))
	}

	tx.stats.splits++
	tx.log.Debug("split edge",
		zap.Int64("edge", id),
		zap.Int64("node", node.ID),
		zap.Int64("first", first.ID),
		zap.Int64("second", second.ID))
	return node.ID, nil
}

// ModEdgeHeal merges two edges sharing a node of degree two into the first
// edge. Returns the removed node.
func (tx *Tx) ModEdgeHeal(e1, e2 int64) (int64, error) {
	node, _, err := tx.healEdges(e1, e2, true)
	return node, err
}

// NewEdgeHeal replaces two edges sharing a node of degree two by a new edge.
// Returns the new edge.
func (tx *Tx) NewEdgeHeal(e1, e2 int64) (int64, error) {
	_, edge, err := tx.healEdges(e1, e2, false)
	return edge, err
}

func (tx *Tx) healEdges(id1, id2 int64, keep bool) (int64, int64, error) {
	if err := tx.check(); err != nil {
		return 0, 0, err
	}
	id1, id2 = abs(id1), abs(id2)
	if id1 == id2 {
		return 0, 0, errors.Wrapf(ErrConstraintViolation, "cannot heal edge %d with itself", id1)
	}
	e1, err := tx.mustEdge(id1)
	if err != nil {
		return 0, 0, err
	}
	e2, err := tx.mustEdge(id2)
	if err != nil {
		return 0, 0, err
	}
	if e1.IsClosed() || e2.IsClosed() {
		return 0, 0, errors.Wrapf(ErrConstraintViolation, "cannot heal closed edges %d and %d", id1, id2)
	}

	touches := func(n int64) bool {
		return e2.StartNode == n || e2.EndNode == n
	}
	var shared int64
	switch {
	case touches(e1.EndNode) && tx.degree(e1.EndNode) == 2:
		shared = e1.EndNode
	case touches(e1.StartNode) && tx.degree(e1.StartNode) == 2:
		shared = e1.StartNode
	case touches(e1.EndNode) || touches(e1.StartNode):
		return 0, 0, errors.Wrapf(ErrConstraintViolation, "other edges connected to the node shared by edges %d and %d", id1, id2)
	default:
		return 0, 0, errors.Wrapf(ErrConstraintViolation, "non-connected edges %d and %d", id1, id2)
	}

	if tx.referenced(nodeEl(shared)) {
		return 0, 0, errors.Wrapf(ErrPrimitiveInUse, "node %d is referenced", shared)
	}
	if k, ok := sameOwners(tx.owners(edgeEl(id1)), tx.owners(edgeEl(id2))); !ok {
		return 0, 0, errors.Wrapf(ErrPrimitiveInUse, "topogeometry %d in layer %d references only one of edges %d and %d", k.ID, k.LayerID, id1, id2)
	}

	// c1 ends at the shared node, c2 starts there.
	c1 := e1.Curve
	if e1.EndNode != shared {
		c1 = planar.Reverse(c1)
	}
	c2 := e2.Curve
	far := e2.EndNode
	if e2.StartNode != shared {
		c2 = planar.Reverse(c2)
		far = e2.StartNode
	}
	merged := make([]r2.Point, 0, len(c1)+len(c2)-1)
	merged = append(merged, c1...)
	merged = append(merged, c2[1:]...)

	// Keep the direction of the first edge.
	var start, end int64
	if e1.EndNode == shared {
		start, end = e1.StartNode, far
	} else {
		start, end = far, e1.EndNode
		merged = planar.Reverse(merged)
	}

	var healed *model.Edge
	if keep {
		healed = tx.mutEdge(id1)
	} else {
		healed = e1.Clone()
		healed.ID = tx.nextID("edge")
		tx.putEdge(healed)
		tx.dropEdge(id1)
		tx.stats.edges++
	}
	healed.StartNode = start
	healed.EndNode = end
	healed.Curve = merged

	tx.dropEdge(id2)
	tx.dropNode(shared)
	tx.relinkNode(start)
	if end != start {
		tx.relinkNode(end)
	}

	if !keep {
		tx.replaceRelations(edgeEl(id1), edgeEl(healed.ID))
	}
	tx.dropRelations(edgeEl(id2))

	tx.stats.heals++
	tx.log.Debug("healed edges",
		zap.Int64("first", id1),
		zap.Int64("second", id2),
		zap.Int64("edge", healed.ID),
		zap.Int64("node", shared))
	return shared, healed.ID, nil
}

// AddEdgeModFace adds an edge between two nodes. When it splits a face, the
// new ring gets a new face and the rest keeps the old one.
func (tx *Tx) AddEdgeModFace(start, end int64, curve []r2.Point) (int64, error) {
	return tx.addEdge(start, end, curve, false)
}

// AddEdgeNewFaces adds an edge between two nodes. A split bounded face is
// replaced by new faces on both sides.
func (tx *Tx) AddEdgeNewFaces(start, end int64, curve []r2.Point) (int64, error) {
	return tx.addEdge(start, end, curve, true)
}

func checkCurve(start, end *model.Node, curve []r2.Point) error {
	if len(curve) < 2 {
		return errors.Wrapf(ErrConstraintViolation, "curve has %d points", len(curve))
	}
	if curve[0] != start.Point {
		return errors.Wrapf(ErrConstraintViolation, "start node %d not geometry start point", start.ID)
	}
	if curve[len(curve)-1] != end.Point {
		return errors.Wrapf(ErrConstraintViolation, "end node %d not geometry end point", end.ID)
	}
	if !planar.IsSimple(curve) {
		return errors.Wrap(ErrSelfIntersection, "curve not simple")
	}
	return nil
}

func sameCurve(a, b []r2.Point) bool {
	if len(a) != len(b) {
		return false
	}
	fwd, bwd := true, true
	for i := range a {
		if a[i] != b[i] {
			fwd = false
		}
		if a[i] != b[len(b)-1-i] {
			bwd = false
		}
	}
	return fwd || bwd
}

// touchOnly reports whether segments p-q and r-s meet only in one of the
// shared node points.
func touchOnly(p, q, r, s r2.Point, shared []r2.Point) bool {
	for _, x := range shared {
		var a, b r2.Point
		switch x {
		case p:
			a = q
		case q:
			a = p
		default:
			continue
		}
		switch x {
		case r:
			b = s
		case s:
			b = r
		default:
			continue
		}
		if planar.Orient(x, a, b) != 0 || a.Sub(x).Dot(b.Sub(x)) < 0 {
			return true
		}
	}
	return false
}

// curvesMeet reports whether two curves meet anywhere but the shared nodes.
func curvesMeet(a, b []r2.Point, shared []r2.Point) bool {
	for i := 0; i+1 < len(a); i++ {
		p, q := a[i], a[i+1]
		sa := r2.RectFromPoints(p, q)
		for j := 0; j+1 < len(b); j++ {
			r, s := b[j], b[j+1]
			if !sa.Intersects(r2.RectFromPoints(r, s)) {
				continue
			}
			if !planar.SegmentsIntersect(p, q, r, s) {
				continue
			}
			if touchOnly(p, q, r, s, shared) {
				continue
			}
			return true
		}
	}
	return false
}

// checkCrossings makes sure a new curve only meets the graph at its nodes.
func (tx *Tx) checkCrossings(start, end *model.Node, curve []r2.Point) error {
	box := planar.Bound(curve)
	for _, n := range tx.NodesIn(box) {
		if n.ID == start.ID || n.ID == end.ID {
			continue
		}
		if planar.Distance(curve, n.Point) == 0 {
			return errors.Wrapf(ErrConstraintViolation, "edge crosses node %d", n.ID)
		}
	}

	for _, e := range tx.EdgesIn(box) {
		shared := make([]r2.Point, 0, 2)
		for _, n := range []*model.Node{start, end} {
			if e.StartNode == n.ID || e.EndNode == n.ID {
				shared = append(shared, n.Point)
			}
		}
		if len(shared) > 0 && sameCurve(e.Curve, curve) {
			return errors.Wrapf(ErrConstraintViolation, "coincident edge %d", e.ID)
		}
		if curvesMeet(curve, e.Curve, shared) {
			return errors.Wrapf(ErrConstraintViolation, "edge crosses edge %d", e.ID)
		}
	}
	return nil
}

func (tx *Tx) addEdge(startID, endID int64, curve []r2.Point, newFaces bool) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	start, err := tx.mustNode(startID)
	if err != nil {
		return 0, err
	}
	end, err := tx.mustNode(endID)
	if err != nil {
		return 0, err
	}

	c := make([]r2.Point, len(curve))
	copy(c, curve)
	if err := checkCurve(start, end, c); err != nil {
		return 0, err
	}
	if err := tx.checkCrossings(start, end, c); err != nil {
		return 0, err
	}

	e := &model.Edge{
		StartNode: startID,
		EndNode:   endID,
		Curve:     c,
	}
	fs, err := tx.wedgeFace(startID, endAngle(e, true))
	if err != nil {
		return 0, err
	}
	fe, err := tx.wedgeFace(endID, endAngle(e, false))
	if err != nil {
		return 0, err
	}
	if fs != fe {
		return 0, errors.Wrapf(ErrConstraintViolation, "side-location conflict: new edge starts in face %d and ends in face %d", fs, fe)
	}

	e.ID = tx.nextID("edge")
	e.LeftFace = fs
	e.RightFace = fs
	e.NextLeftEdge = -e.ID
	e.NextRightEdge = e.ID
	tx.putEdge(e)
	tx.stats.edges++

	for _, n := range []*model.Node{start, end} {
		if n.IsIsolated() {
			tx.mutNode(n.ID).ContainingFace = model.NullFace
		}
	}
	tx.relinkNode(startID)
	if endID != startID {
		tx.relinkNode(endID)
	}

	left, err := tx.Ring(e.ID)
	if err != nil {
		return 0, err
	}
	for _, s := range left {
		if s == -e.ID {
			tx.log.Debug("added edge", zap.Int64("edge", e.ID), zap.Int64("face", fs))
			return e.ID, nil
		}
	}

	right, err := tx.Ring(-e.ID)
	if err != nil {
		return 0, err
	}
	err = tx.splitFace(fs, e.ID, left, right, newFaces)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

// splitFace distributes the old face over the two rings now running along
// both sides of the new edge.
func (tx *Tx) splitFace(old, edge int64, left, right []int64, newFaces bool) error {
	al := tx.RingArea(left)
	ar := tx.RingArea(right)

	var grow [][]int64
	var keep []int64
	switch {
	case al > 0 && ar > 0:
		if old == model.UniverseFace {
			return errors.Wrapf(ErrConstraintViolation, "edge %d closes two shells in the universal face", edge)
		}
		grow = [][]int64{left}
		keep = right
		if newFaces {
			grow = append(grow, right)
			keep = nil
		}
	case al > 0:
		grow = [][]int64{left}
		keep = right
	case ar > 0:
		grow = [][]int64{right}
		keep = left
	default:
		return errors.Wrapf(ErrConstraintViolation, "edge %d closes a ring without area", edge)
	}

	skip := make(map[int64]bool)
	for _, s := range left {
		skip[s] = true
	}
	for _, s := range right {
		skip[s] = true
	}

	created := make([]model.Element, 0, 2)
	for _, r := range grow {
		f, err := tx.claimFace(old, r, skip)
		if err != nil {
			return err
		}
		created = append(created, faceEl(f))
	}

	if old != model.UniverseFace {
		switch {
		case newFaces:
			if keep != nil {
				g := tx.newFace(tx.face(old).MBR)
				tx.renameFace(old, g.ID)
				created = append(created, faceEl(g.ID))
			}
			tx.replaceRelations(faceEl(old), created...)
			tx.dropFace(old)
		default:
			tx.extendRelations(faceEl(old), created...)
			if tx.RingArea(keep) > 0 {
				tx.mutFace(old).MBR = planar.Bound(tx.ringPoints(keep))
			}
		}
	}

	ids := make([]int64, 0, len(created))
	for _, c := range created {
		ids = append(ids, c.ID)
	}
	tx.log.Debug("split face", zap.Int64("edge", edge), zap.Int64("face", old), zap.Int64s("new", ids))
	return nil
}

// claimFace creates a face for the ring and moves everything of the old face
// it encloses over to it.
func (tx *Tx) claimFace(old int64, ring []int64, skip map[int64]bool) (int64, error) {
	pts := tx.ringPoints(ring)
	f := tx.newFace(planar.Bound(pts))
	for _, s := range ring {
		tx.setLeftFace(s, f.ID)
	}

	visited := make(map[int64]bool)
	for _, e := range tx.EdgesIn(f.MBR) {
		for _, s := range []int64{e.ID, -e.ID} {
			if skip[s] || visited[s] || tx.leftFace(s) != old {
				continue
			}
			r, err := tx.Ring(s)
			if err != nil {
				return 0, err
			}
			for _, x := range r {
				visited[x] = true
			}
			if !planar.PointInRing(tx.sidePoint(r[0]), pts) {
				continue
			}
			for _, x := range r {
				tx.setLeftFace(x, f.ID)
			}
		}
	}

	for _, n := range tx.NodesIn(f.MBR) {
		if n.ContainingFace == old && planar.PointInRing(n.Point, pts) {
			tx.mutNode(n.ID).ContainingFace = f.ID
		}
	}
	return f.ID, nil
}

// renameFace moves every reference to a bounded face over to another face.
func (tx *Tx) renameFace(from, to int64) {
	box := tx.face(from).MBR
	for _, e := range tx.EdgesIn(box) {
		for _, s := range []int64{e.ID, -e.ID} {
			if tx.leftFace(s) == from {
				tx.setLeftFace(s, to)
			}
		}
	}
	for _, n := range tx.NodesIn(box) {
		if n.ContainingFace == from {
			tx.mutNode(n.ID).ContainingFace = to
		}
	}
}

// RemEdgeModFace removes an edge. If it separated two faces they merge into
// one: the left face survives unless the right one is the universal face.
// Returns the surviving face.
func (tx *Tx) RemEdgeModFace(id int64) (int64, error) {
	if err := tx.check(); err != nil {
		return 0, err
	}
	e, err := tx.mustEdge(id)
	if err != nil {
		return 0, err
	}
	id = e.ID
	if tx.referenced(edgeEl(id)) {
		return 0, errors.Wrapf(ErrPrimitiveInUse, "edge %d is referenced", id)
	}

	keep, drop := e.LeftFace, e.RightFace
	if drop == model.UniverseFace {
		keep, drop = drop, keep
	}
	if keep != drop {
		if k, ok := sameOwners(tx.owners(faceEl(keep)), tx.owners(faceEl(drop))); !ok {
			return 0, errors.Wrapf(ErrPrimitiveInUse, "topogeometry %d in layer %d references only one of faces %d and %d", k.ID, k.LayerID, keep, drop)
		}
	}

	start, end := e.StartNode, e.EndNode
	tx.dropEdge(id)
	tx.dropDangling(start, keep)
	if end != start {
		tx.dropDangling(end, keep)
	}

	if keep != drop {
		dropped := tx.face(drop)
		tx.renameFace(drop, keep)
		if keep != model.UniverseFace {
			k := tx.mutFace(keep)
			k.MBR = k.MBR.Union(dropped.MBR)
		}
		tx.dropRelations(faceEl(drop))
		tx.dropFace(drop)
		if keep != model.UniverseFace {
			if rings, err := tx.FaceGeometry(keep); err == nil {
				tx.mutFace(keep).MBR = planar.Bound(rings[0])
			}
		}
		tx.log.Debug("merged faces", zap.Int64("face", keep), zap.Int64("removed", drop))
	}
	return keep, nil
}
