package topology

import (
	"testing"

	"github.com/cheekybits/is"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/topology/model"
)

// buildSquare adds the (0,0)-(10,10) square as four edges between four
// nodes, closing the ring last.
func buildSquare(tx *Tx) error {
	corners := []r2.Point{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10)}
	for _, p := range corners {
		if _, err := tx.AddIsoNode(model.NullFace, p); err != nil {
			return err
		}
	}
	if _, err := tx.AddIsoEdge(1, 2, []r2.Point{corners[0], corners[1]}); err != nil {
		return err
	}
	for i := 1; i < 4; i++ {
		j := (i + 1) % 4
		_, err := tx.AddEdgeModFace(int64(i+1), int64(j+1), []r2.Point{corners[i], corners[j]})
		if err != nil {
			return err
		}
	}
	return nil
}

func relate(tx *Tx, tg *model.TopoGeometry, t model.ElementType, id int64) error {
	_, err := tx.InsertIfAbsent(model.Relation{
		TopoGeoID:   tg.ID,
		LayerID:     tg.LayerID,
		ElementType: t,
		ElementID:   id,
	})
	return err
}

func elementIDs(tx *Tx, tg *model.TopoGeometry) []int64 {
	rels, _ := tx.ListElements(tg.ID, tg.LayerID)
	result := make([]int64, 0, len(rels))
	for _, r := range rels {
		result = append(result, r.ElementID)
	}
	return result
}

func TestIsoNodes(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		id, err := tx.AddIsoNode(model.NullFace, pt(1, 1))
		is.NoErr(err)
		is.Equal(id, int64(1))

		n, err := tx.Node(id)
		is.NoErr(err)
		is.Equal(n.ContainingFace, model.UniverseFace)

		_, err = tx.AddIsoNode(model.NullFace, pt(1, 1))
		is.True(errors.Is(err, ErrConstraintViolation))

		_, err = tx.AddIsoNode(3, pt(2, 2))
		is.True(errors.Is(err, ErrConstraintViolation))

		is.NoErr(tx.MoveIsoNode(id, pt(2, 2)))
		n, _ = tx.Node(id)
		is.Equal(n.Point, pt(2, 2))

		is.NoErr(tx.RemIsoNode(id))
		_, err = tx.Node(id)
		is.True(errors.Is(err, ErrNotFound))
		return nil
	})
}

func TestRemIsoNodeInUse(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		l, err := tx.AddLayer("public", "poi", "topo", model.Puntal, 0)
		is.NoErr(err)
		tg, err := tx.CreateEmpty(l.ID, model.Puntal)
		is.NoErr(err)
		id, err := tx.AddIsoNode(model.NullFace, pt(1, 1))
		is.NoErr(err)
		is.NoErr(relate(tx, tg, model.ElementNode, id))

		err = tx.RemIsoNode(id)
		is.True(errors.Is(err, ErrPrimitiveInUse))
		return nil
	})
}

func TestAddEdgeClosesFace(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		is.NoErr(buildSquare(tx))

		nodes, edges, faces := tx.Counts()
		is.Equal(nodes, 4)
		is.Equal(edges, 4)
		is.Equal(faces, 1)

		f, err := tx.Face(1)
		is.NoErr(err)
		is.Equal(f.MBR, r2.RectFromPoints(pt(0, 0), pt(10, 10)))

		for id := int64(1); id <= 4; id++ {
			e, err := tx.Edge(id)
			is.NoErr(err)
			is.Equal(e.LeftFace, int64(1))
			is.Equal(e.RightFace, model.UniverseFace)
		}

		ring, err := tx.Ring(4)
		is.NoErr(err)
		is.Equal(ring, []int64{4, 1, 2, 3})
		is.Equal(tx.RingArea(ring), 100.0)

		is.Equal(tx.FaceAt(pt(5, 5)), int64(1))
		is.Equal(tx.FaceAt(pt(15, 5)), model.UniverseFace)

		id, err := tx.AddIsoNode(model.NullFace, pt(5, 5))
		is.NoErr(err)
		n, _ := tx.Node(id)
		is.Equal(n.ContainingFace, int64(1))
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestAddEdgeModFace(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		is.NoErr(buildSquare(tx))
		l, err := tx.AddLayer("public", "parcels", "topo", model.Areal, 0)
		is.NoErr(err)
		tg, err := tx.CreateEmpty(l.ID, model.Areal)
		is.NoErr(err)
		is.NoErr(relate(tx, tg, model.ElementFace, 1))

		id, err := tx.AddEdgeModFace(1, 3, []r2.Point{pt(0, 0), pt(10, 10)})
		is.NoErr(err)
		is.Equal(id, int64(5))

		e, _ := tx.Edge(id)
		is.Equal(e.LeftFace, int64(2))
		is.Equal(e.RightFace, int64(1))

		// The ring left of the diagonal moved to the new face
		for _, id := range []int64{3, 4} {
			e, _ := tx.Edge(id)
			is.Equal(e.LeftFace, int64(2))
		}
		for _, id := range []int64{1, 2} {
			e, _ := tx.Edge(id)
			is.Equal(e.LeftFace, int64(1))
		}

		is.Equal(elementIDs(tx, tg), []int64{1, 2})
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestAddEdgeNewFaces(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		is.NoErr(buildSquare(tx))
		l, err := tx.AddLayer("public", "parcels", "topo", model.Areal, 0)
		is.NoErr(err)
		tg, err := tx.CreateEmpty(l.ID, model.Areal)
		is.NoErr(err)
		is.NoErr(relate(tx, tg, model.ElementFace, 1))

		id, err := tx.AddEdgeNewFaces(1, 3, []r2.Point{pt(0, 0), pt(10, 10)})
		is.NoErr(err)

		e, _ := tx.Edge(id)
		is.Equal(e.LeftFace, int64(2))
		is.Equal(e.RightFace, int64(3))

		_, err = tx.Face(1)
		is.True(errors.Is(err, ErrNotFound))
		_, _, faces := tx.Counts()
		is.Equal(faces, 2)

		is.Equal(elementIDs(tx, tg), []int64{2, 3})
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestAddEdgeRejects(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		is.NoErr(buildSquare(tx))
		a, err := tx.AddIsoNode(model.NullFace, pt(-5, 5))
		is.NoErr(err)
		b, err := tx.AddIsoNode(model.NullFace, pt(5, 5))
		is.NoErr(err)

		// Crosses the square
		_, err = tx.AddEdgeModFace(a, b, []r2.Point{pt(-5, 5), pt(5, 5)})
		is.True(errors.Is(err, ErrConstraintViolation))

		// Does not start at its start node
		_, err = tx.AddEdgeModFace(1, 3, []r2.Point{pt(1, 1), pt(10, 10)})
		is.True(errors.Is(err, ErrConstraintViolation))

		// Not simple
		_, err = tx.AddEdgeModFace(1, 3, []r2.Point{pt(0, 0), pt(8, 2), pt(2, 2), pt(5, -1), pt(10, 10)})
		is.True(errors.Is(err, ErrSelfIntersection))

		// Duplicates an edge
		_, err = tx.AddEdgeModFace(1, 2, []r2.Point{pt(0, 0), pt(10, 0)})
		is.True(errors.Is(err, ErrConstraintViolation))

		// Isolated edges need isolated nodes
		_, err = tx.AddIsoEdge(1, b, []r2.Point{pt(0, 0), pt(5, 5)})
		is.True(errors.Is(err, ErrConstraintViolation))
		return nil
	})
}

func TestRemIsoEdge(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		a, _ := tx.AddIsoNode(model.NullFace, pt(0, 0))
		b, _ := tx.AddIsoNode(model.NullFace, pt(10, 0))
		id, err := tx.AddIsoEdge(a, b, []r2.Point{pt(0, 0), pt(10, 0)})
		is.NoErr(err)

		n, _ := tx.Node(a)
		is.False(n.IsIsolated())

		is.NoErr(tx.RemIsoEdge(id))
		nodes, edges, _ := tx.Counts()
		is.Equal(nodes, 0)
		is.Equal(edges, 0)
		return nil
	})
}

func TestRemIsoEdgeKeepsReferencedNodes(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		l, _ := tx.AddLayer("public", "poi", "topo", model.Puntal, 0)
		tg, _ := tx.CreateEmpty(l.ID, model.Puntal)
		a, _ := tx.AddIsoNode(model.NullFace, pt(0, 0))
		b, _ := tx.AddIsoNode(model.NullFace, pt(10, 0))
		is.NoErr(relate(tx, tg, model.ElementNode, a))

		id, err := tx.AddIsoEdge(a, b, []r2.Point{pt(0, 0), pt(10, 0)})
		is.NoErr(err)
		is.NoErr(tx.RemIsoEdge(id))

		n, err := tx.Node(a)
		is.NoErr(err)
		is.Equal(n.ContainingFace, model.UniverseFace)
		_, err = tx.Node(b)
		is.True(errors.Is(err, ErrNotFound))
		return nil
	})
}

func TestModEdgeSplit(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		l, _ := tx.AddLayer("public", "roads", "topo", model.Lineal, 0)
		tg, _ := tx.CreateEmpty(l.ID, model.Lineal)
		a, _ := tx.AddIsoNode(model.NullFace, pt(0, 0))
		b, _ := tx.AddIsoNode(model.NullFace, pt(10, 0))
		id, err := tx.AddIsoEdge(a, b, []r2.Point{pt(0, 0), pt(10, 0)})
		is.NoErr(err)
		is.NoErr(relate(tx, tg, model.ElementEdge, id))

		_, err = tx.ModEdgeSplit(id, pt(0, 0))
		is.True(errors.Is(err, ErrConstraintViolation))
		_, err = tx.ModEdgeSplit(id, pt(5, 1))
		is.True(errors.Is(err, ErrConstraintViolation))

		node, err := tx.ModEdgeSplit(id, pt(5, 0))
		is.NoErr(err)
		is.Equal(node, int64(3))

		e1, _ := tx.Edge(1)
		is.Equal(e1.EndNode, node)
		is.Equal(e1.Curve, []r2.Point{pt(0, 0), pt(5, 0)})
		e2, _ := tx.Edge(2)
		is.Equal(e2.StartNode, node)
		is.Equal(e2.EndNode, b)
		is.Equal(e2.Curve, []r2.Point{pt(5, 0), pt(10, 0)})

		is.Equal(elementIDs(tx, tg), []int64{1, 2})
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestNewEdgesSplit(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		l, _ := tx.AddLayer("public", "roads", "topo", model.Lineal, 0)
		tg, _ := tx.CreateEmpty(l.ID, model.Lineal)
		a, _ := tx.AddIsoNode(model.NullFace, pt(0, 0))
		b, _ := tx.AddIsoNode(model.NullFace, pt(10, 0))
		id, _ := tx.AddIsoEdge(a, b, []r2.Point{pt(0, 0), pt(10, 0)})
		is.NoErr(relate(tx, tg, model.ElementEdge, id))

		_, err := tx.NewEdgesSplit(id, pt(5, 0))
		is.NoErr(err)

		_, err = tx.Edge(id)
		is.True(errors.Is(err, ErrNotFound))
		is.Equal(elementIDs(tx, tg), []int64{2, 3})
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

// splitLine adds the (0,0)-(10,0) line as two edges meeting in node 3 at
// (5,0). Both edges belong to a lineal TopoGeometry.
func splitLine(tx *Tx) (*model.TopoGeometry, error) {
	l, err := tx.AddLayer("public", "roads", "topo", model.Lineal, 0)
	if err != nil {
		return nil, err
	}
	tg, err := tx.CreateEmpty(l.ID, model.Lineal)
	if err != nil {
		return nil, err
	}
	a, _ := tx.AddIsoNode(model.NullFace, pt(0, 0))
	b, _ := tx.AddIsoNode(model.NullFace, pt(10, 0))
	id, err := tx.AddIsoEdge(a, b, []r2.Point{pt(0, 0), pt(10, 0)})
	if err != nil {
		return nil, err
	}
	if err := relate(tx, tg, model.ElementEdge, id); err != nil {
		return nil, err
	}
	_, err = tx.ModEdgeSplit(id, pt(5, 0))
	return tg, err
}

func TestModEdgeHeal(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		tg, err := splitLine(tx)
		is.NoErr(err)

		node, err := tx.ModEdgeHeal(1, 2)
		is.NoErr(err)
		is.Equal(node, int64(3))

		e, _ := tx.Edge(1)
		is.Equal(e.StartNode, int64(1))
		is.Equal(e.EndNode, int64(2))
		is.Equal(e.Curve, []r2.Point{pt(0, 0), pt(5, 0), pt(10, 0)})

		nodes, edges, _ := tx.Counts()
		is.Equal(nodes, 2)
		is.Equal(edges, 1)
		is.Equal(elementIDs(tx, tg), []int64{1})
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestNewEdgeHeal(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		tg, err := splitLine(tx)
		is.NoErr(err)

		// The healed edge runs the way the first edge does
		id, err := tx.NewEdgeHeal(2, 1)
		is.NoErr(err)
		is.Equal(id, int64(3))

		e, _ := tx.Edge(id)
		is.Equal(e.StartNode, int64(1))
		is.Equal(e.EndNode, int64(2))
		is.Equal(e.Curve, []r2.Point{pt(0, 0), pt(5, 0), pt(10, 0)})

		_, err = tx.Edge(1)
		is.True(errors.Is(err, ErrNotFound))
		_, err = tx.Edge(2)
		is.True(errors.Is(err, ErrNotFound))
		is.Equal(elementIDs(tx, tg), []int64{3})
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestHealRejects(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		_, err := splitLine(tx)
		is.NoErr(err)

		l, _ := tx.AddLayer("public", "stops", "topo", model.Puntal, 0)
		stops, _ := tx.CreateEmpty(l.ID, model.Puntal)
		is.NoErr(relate(tx, stops, model.ElementNode, 3))

		_, err = tx.ModEdgeHeal(1, 2)
		is.True(errors.Is(err, ErrPrimitiveInUse))

		_, err = tx.ModEdgeHeal(1, 1)
		is.True(errors.Is(err, ErrConstraintViolation))
		return nil
	})

	update(t, s, func(tx *Tx) error {
		l, _ := tx.AddLayer("public", "bridges", "topo", model.Lineal, 0)
		bridges, _ := tx.CreateEmpty(l.ID, model.Lineal)
		is.NoErr(relate(tx, bridges, model.ElementEdge, 2))
		is.NoErr(tx.ClearTopoGeom(1, 1))
		is.NoErr(tx.ClearTopoGeom(2, 1))

		// Only one of the edges belongs to the bridge
		_, err := tx.ModEdgeHeal(1, 2)
		is.True(errors.Is(err, ErrPrimitiveInUse))

		// Not connected
		c, _ := tx.AddIsoNode(model.NullFace, pt(20, 0))
		d, _ := tx.AddIsoNode(model.NullFace, pt(30, 0))
		far, err := tx.AddIsoEdge(c, d, []r2.Point{pt(20, 0), pt(30, 0)})
		is.NoErr(err)
		_, err = tx.ModEdgeHeal(1, far)
		is.True(errors.Is(err, ErrConstraintViolation))
		return nil
	})
}

// twoSquares adds the squares (0,0)-(10,10) and (10,0)-(20,10) as
// polygons. Edge 2 runs along their shared side.
func twoSquares(tx *Tx) error {
	_, err := tx.AddPolygon([][]r2.Point{{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(0, 0)}}, 0)
	if err != nil {
		return err
	}
	_, err = tx.AddPolygon([][]r2.Point{{pt(10, 0), pt(20, 0), pt(20, 10), pt(10, 10), pt(10, 0)}}, 0)
	return err
}

func TestRemEdgeModFace(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		is.NoErr(twoSquares(tx))

		e, err := tx.Edge(2)
		is.NoErr(err)
		is.Equal(e.Curve, []r2.Point{pt(10, 0), pt(10, 10)})
		is.Equal(e.LeftFace, int64(1))
		is.Equal(e.RightFace, int64(2))

		face, err := tx.RemEdgeModFace(2)
		is.NoErr(err)
		is.Equal(face, int64(1))

		_, err = tx.Face(2)
		is.True(errors.Is(err, ErrNotFound))
		f, _ := tx.Face(1)
		is.Equal(f.MBR, r2.RectFromPoints(pt(0, 0), pt(20, 10)))

		nodes, edges, faces := tx.Counts()
		is.Equal(nodes, 3)
		is.Equal(edges, 3)
		is.Equal(faces, 1)
		return nil
	})

	v, err := s.Validate(ctx(), "t")
	is.NoErr(err)
	is.Equal(len(v), 0)
}

func TestRemEdgeModFaceUniverse(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		edges, err := tx.AddLineString([]r2.Point{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(0, 0)}, 0)
		is.NoErr(err)
		is.Equal(edges, []int64{1})

		face, err := tx.RemEdgeModFace(1)
		is.NoErr(err)
		is.Equal(face, model.UniverseFace)

		nodes, edges2, faces := tx.Counts()
		is.Equal(nodes, 0)
		is.Equal(edges2, 0)
		is.Equal(faces, 0)
		return nil
	})
}

func TestRemEdgeModFaceInUse(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		is.NoErr(twoSquares(tx))
		l, _ := tx.AddLayer("public", "parcels", "topo", model.Areal, 0)
		tg, _ := tx.CreateEmpty(l.ID, model.Areal)
		is.NoErr(relate(tx, tg, model.ElementFace, 2))

		_, err := tx.RemEdgeModFace(2)
		is.True(errors.Is(err, ErrPrimitiveInUse))

		// Once both faces belong to it the merge is fine
		is.NoErr(relate(tx, tg, model.ElementFace, 1))
		_, err = tx.RemEdgeModFace(2)
		is.NoErr(err)
		is.Equal(elementIDs(tx, tg), []int64{1})
		return nil
	})
}
