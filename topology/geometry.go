package topology

import (
	"context"

	"github.com/golang/geo/r2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/simplify"
	"github.com/rubenv/planartopo/topology/model"
)

func fromPoint(p r2.Point) []float64 {
	return []float64{p.X, p.Y}
}

func fromLine(line []r2.Point) [][]float64 {
	coords := make([][]float64, len(line))
	for i, p := range line {
		coords[i] = fromPoint(p)
	}
	return coords
}

func fromPolygon(rings [][]r2.Point) [][][]float64 {
	coords := make([][][]float64, len(rings))
	for i, r := range rings {
		coords[i] = fromLine(r)
	}
	return coords
}

// elements splits the relation rows of a TopoGeometry by primitive type.
func (tx *Tx) elements(layerID int, id int64) (nodes, edges, faces []int64, err error) {
	rels, err := tx.ListElements(id, layerID)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, r := range rels {
		switch r.ElementType {
		case model.ElementNode:
			nodes = append(nodes, r.ElementID)
		case model.ElementEdge:
			edges = append(edges, r.ElementID)
		case model.ElementFace:
			faces = append(faces, r.ElementID)
		}
	}
	return nodes, edges, faces, nil
}

func (tx *Tx) puntalGeometry(nodes []int64) (*geojson.Geometry, error) {
	points := make([][]float64, 0, len(nodes))
	for _, id := range nodes {
		n, err := tx.mustNode(id)
		if err != nil {
			return nil, err
		}
		points = append(points, fromPoint(n.Point))
	}
	if len(points) == 1 {
		return geojson.NewPointGeometry(points[0]), nil
	}
	return geojson.NewMultiPointGeometry(points...), nil
}

func (tx *Tx) linealGeometry(edges []int64) (*geojson.Geometry, error) {
	lines := make([][]r2.Point, 0, len(edges))
	for _, id := range edges {
		e, err := tx.mustEdge(id)
		if err != nil {
			return nil, err
		}
		c := make([]r2.Point, len(e.Curve))
		copy(c, e.Curve)
		lines = append(lines, c)
	}

	lines = simplify.Reduce(lines)
	if len(lines) == 1 {
		return geojson.NewLineStringGeometry(fromLine(lines[0])), nil
	}
	coords := make([][][]float64, len(lines))
	for i, l := range lines {
		coords[i] = fromLine(l)
	}
	return geojson.NewMultiLineStringGeometry(coords...), nil
}

func (tx *Tx) arealGeometry(faces []int64) (*geojson.Geometry, error) {
	set := make(map[int64]bool, len(faces))
	for _, id := range faces {
		if tx.face(id) == nil {
			return nil, errors.Wrapf(ErrNotFound, "face %d", id)
		}
		set[id] = true
	}

	polys, err := tx.unionPolygons(set)
	if err != nil {
		return nil, err
	}
	if len(polys) == 1 {
		return geojson.NewPolygonGeometry(fromPolygon(polys[0])), nil
	}
	coords := make([][][][]float64, len(polys))
	for i, p := range polys {
		coords[i] = fromPolygon(p)
	}
	return geojson.NewMultiPolygonGeometry(coords...), nil
}

// TopoGeomGeometry rebuilds the geometry of a TopoGeometry from its
// primitives.
func (tx *Tx) TopoGeomGeometry(layerID int, id int64) (*geojson.Geometry, error) {
	layer, err := tx.Layer(layerID)
	if err != nil {
		return nil, err
	}
	if layer.IsHierarchical() {
		return nil, errors.Wrapf(ErrHierarchicalLayerUnsupported, "layer %d has level %d", layer.ID, layer.Level)
	}
	tg, err := tx.TopoGeometry(layerID, id)
	if err != nil {
		return nil, err
	}
	nodes, edges, faces, err := tx.elements(layerID, id)
	if err != nil {
		return nil, err
	}

	switch tg.Type {
	case model.Puntal:
		return tx.puntalGeometry(nodes)
	case model.Lineal:
		return tx.linealGeometry(edges)
	case model.Areal:
		return tx.arealGeometry(faces)
	}

	parts := make([]*geojson.Geometry, 0, 3)
	if len(nodes) > 0 {
		g, err := tx.puntalGeometry(nodes)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	if len(edges) > 0 {
		g, err := tx.linealGeometry(edges)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	if len(faces) > 0 {
		g, err := tx.arealGeometry(faces)
		if err != nil {
			return nil, err
		}
		parts = append(parts, g)
	}
	return geojson.NewCollectionGeometry(parts...), nil
}

// TopoGeomGeometry rebuilds the geometry of a TopoGeometry.
func (s *Store) TopoGeomGeometry(ctx context.Context, topology string, layerID int, id int64) (*geojson.Geometry, error) {
	var g *geojson.Geometry
	err := s.View(ctx, topology, func(tx *Tx) error {
		var err error
		g, err = tx.TopoGeomGeometry(layerID, id)
		return err
	})
	return g, err
}
