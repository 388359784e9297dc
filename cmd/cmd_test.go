package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/cheekybits/is"
	geojson "github.com/paulmach/go.geojson"
	"github.com/rubenv/planartopo/topology"
	"github.com/rubenv/planartopo/topology/model"
)

func TestLogger(t *testing.T) {
	is := is.New(t)

	g := &GlobalOptions{LogLevel: "debug"}
	log, err := g.Logger()
	is.NoErr(err)
	is.NotNil(log)

	g.LogLevel = "loud"
	_, err = g.Logger()
	is.Err(err)
}

func TestOpenStoreRequiresPath(t *testing.T) {
	is := is.New(t)

	_, err := (&GlobalOptions{LogLevel: "info"}).OpenStore()
	is.Err(err)
}

func TestLoad(t *testing.T) {
	is := is.New(t)

	path := filepath.Join(t.TempDir(), "topo.db")
	s, err := topology.NewStore(path)
	is.NoErr(err)
	_, err = s.CreateTopology("city", 0, 0, false)
	is.NoErr(err)
	err = s.Update(context.Background(), "city", func(tx *topology.Tx) error {
		_, err := tx.AddLayer("public", "roads", "topogeom", model.Lineal, 0)
		return err
	})
	is.NoErr(err)
	is.NoErr(s.Close())

	features := []*geojson.Feature{
		geojson.NewFeature(geojson.NewLineStringGeometry([][]float64{{0, 0}, {10, 0}})),
		{Type: "Feature"},
		geojson.NewFeature(geojson.NewLineStringGeometry([][]float64{{5, -5}, {5, 5}})),
	}
	global := &GlobalOptions{DataStore: path, LogLevel: "error"}
	is.NoErr(load(global, "city", "1", features, 0))

	is.Err(load(global, "city", "one", features, 0))
	is.Err(load(global, "city", "2", features, 0))

	s, err = topology.NewStore(path)
	is.NoErr(err)
	defer s.Close()
	err = s.View(context.Background(), "city", func(tx *topology.Tx) error {
		is.Equal(len(tx.TopoGeometries(1)), 2)
		nodes, edges, _ := tx.Counts()
		is.Equal(nodes, 5)
		is.Equal(edges, 4)
		return nil
	})
	is.NoErr(err)
}
