package topology

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cheekybits/is"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap/zaptest"
)

func pt(x, y float64) r2.Point {
	return r2.Point{X: x, Y: y}
}

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := NewStore(path, WithLogger(zaptest.NewLogger(t)), WithRegisterer(prometheus.NewRegistry()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}

// newTestStore opens a store holding one empty topology named "t".
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := openStore(t, filepath.Join(t.TempDir(), "topo.db"))
	_, err := s.CreateTopology("t", 0, 0, false)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func update(t *testing.T, s *Store, fn func(tx *Tx) error) {
	t.Helper()
	err := s.Update(context.Background(), "t", fn)
	if err != nil {
		t.Fatal(err)
	}
}

func counts(t *testing.T, s *Store) (nodes, edges, faces int) {
	t.Helper()
	err := s.View(context.Background(), "t", func(tx *Tx) error {
		nodes, edges, faces = tx.Counts()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return nodes, edges, faces
}

func TestCreateTopology(t *testing.T) {
	is := is.New(t)

	s := openStore(t, filepath.Join(t.TempDir(), "topo.db"))
	topo, err := s.CreateTopology("Roads", 4326, 0.5, false)
	is.NoErr(err)
	is.Equal(topo.ID, int64(1))

	_, err = s.CreateTopology("Roads", 4326, 0, false)
	is.True(errors.Is(err, ErrConstraintViolation))

	_, err = s.CreateTopology("", 4326, 0, false)
	is.Err(err)

	found, err := s.Topology("roads")
	is.NoErr(err)
	is.Equal(found.Name, "Roads")
	is.Equal(found.SRID, 4326)
	is.Equal(found.Precision, 0.5)

	_, err = s.Topology("rivers")
	is.True(errors.Is(err, ErrUnknownTopology))
}

func TestAmbiguousTopology(t *testing.T) {
	is := is.New(t)

	s := openStore(t, filepath.Join(t.TempDir(), "topo.db"))
	_, err := s.CreateTopology("roads", 0, 0, false)
	is.NoErr(err)
	_, err = s.CreateTopology("ROADS", 0, 0, false)
	is.NoErr(err)

	// Exact names still resolve
	topo, err := s.Topology("ROADS")
	is.NoErr(err)
	is.Equal(topo.ID, int64(2))

	_, err = s.Topology("Roads")
	is.True(errors.Is(err, ErrAmbiguousTopology))

	list, err := s.Topologies()
	is.NoErr(err)
	is.Equal(len(list), 2)
	is.Equal(list[0].Name, "roads")
}

func TestDropTopology(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := newTestStore(t)
	update(t, s, func(tx *Tx) error {
		_, err := tx.AddIsoNode(model.NullFace, pt(1, 1))
		return err
	})

	is.NoErr(s.DropTopology("t"))
	_, err := s.Topology("t")
	is.True(errors.Is(err, ErrUnknownTopology))

	// A new topology with the same name starts empty
	_, err = s.CreateTopology("t", 0, 0, false)
	is.NoErr(err)
	err = s.View(ctx, "t", func(tx *Tx) error {
		nodes, _, _ := tx.Counts()
		is.Equal(nodes, 0)
		return nil
	})
	is.NoErr(err)
}

func TestUpdateRollback(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	s := newTestStore(t)
	boom := errors.New("boom")
	err := s.Update(ctx, "t", func(tx *Tx) error {
		_, err := tx.AddIsoNode(model.NullFace, pt(1, 1))
		is.NoErr(err)
		return boom
	})
	is.Equal(errors.Cause(err), boom)

	nodes, _, _ := counts(t, s)
	is.Equal(nodes, 0)
	is.Equal(testutil.ToFloat64(s.metrics.failures), 1.0)
	is.Equal(testutil.ToFloat64(s.metrics.nodes), 0.0)

	// Ids are not burnt by a rolled back update
	update(t, s, func(tx *Tx) error {
		id, err := tx.AddIsoNode(model.NullFace, pt(1, 1))
		is.Equal(id, int64(1))
		return err
	})
	is.Equal(testutil.ToFloat64(s.metrics.nodes), 1.0)
}

func TestViewIsReadOnly(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	err := s.View(context.Background(), "t", func(tx *Tx) error {
		_, err := tx.AddIsoNode(model.NullFace, pt(1, 1))
		return err
	})
	is.True(errors.Is(err, ErrReadOnly))
}

func TestCanceledUpdate(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Update(ctx, "t", func(tx *Tx) error {
		return nil
	})
	is.Equal(err, context.Canceled)
}

func TestReopen(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "topo.db")

	s, err := NewStore(path, WithLogger(zaptest.NewLogger(t)))
	is.NoErr(err)
	_, err = s.CreateTopology("t", 28992, 0, false)
	is.NoErr(err)
	err = s.Update(ctx, "t", func(tx *Tx) error {
		l, err := tx.AddLayer("public", "parcels", "topo", model.Areal, 0)
		if err != nil {
			return err
		}
		_, err = tx.AddPolygon([][]r2.Point{{pt(0, 0), pt(10, 0), pt(10, 10), pt(0, 10), pt(0, 0)}}, 0)
		if err != nil {
			return err
		}
		_, err = tx.CreateEmpty(l.ID, model.Areal)
		return err
	})
	is.NoErr(err)
	is.NoErr(s.Close())

	s = openStore(t, path)
	err = s.View(ctx, "t", func(tx *Tx) error {
		nodes, edges, faces := tx.Counts()
		is.Equal(nodes, 1)
		is.Equal(edges, 1)
		is.Equal(faces, 1)

		f, err := tx.Face(1)
		is.NoErr(err)
		is.Equal(f.MBR, r2.RectFromPoints(pt(0, 0), pt(10, 10)))

		l, ok := tx.FindLayer("public", "parcels", "topo")
		is.True(ok)
		is.Equal(len(tx.TopoGeometries(l.ID)), 1)
		is.Equal(tx.Topology().SRID, 28992)
		return nil
	})
	is.NoErr(err)

	// Sequences survive as well
	update(t, s, func(tx *Tx) error {
		id, err := tx.AddIsoNode(model.NullFace, pt(20, 20))
		is.Equal(id, int64(2))
		return err
	})
}

func TestSetSRID(t *testing.T) {
	is := is.New(t)

	s := newTestStore(t)
	is.NoErr(s.SetSRID(context.Background(), "t", 3857))

	topo, err := s.Topology("t")
	is.NoErr(err)
	is.Equal(topo.SRID, 3857)
}

func ctx() context.Context {
	return context.Background()
}
