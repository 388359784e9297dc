package topology

import (
	"context"

	"github.com/golang/geo/r2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap"
)

func toPoint(c []float64) r2.Point {
	return r2.Point{X: c[0], Y: c[1]}
}

func toLine(coords [][]float64) []r2.Point {
	line := make([]r2.Point, len(coords))
	for i, c := range coords {
		line[i] = toPoint(c)
	}
	return line
}

func toRings(coords [][][]float64) [][]r2.Point {
	rings := make([][]r2.Point, 0, len(coords))
	for _, r := range coords {
		if len(r) > 0 {
			rings = append(rings, toLine(r))
		}
	}
	return rings
}

func featureTypeOf(g *geojson.Geometry) (model.FeatureType, error) {
	if g == nil {
		return 0, errors.Wrap(ErrUnsupportedGeometry, "no geometry")
	}
	switch g.Type {
	case geojson.GeometryPoint, geojson.GeometryMultiPoint:
		return model.Puntal, nil
	case geojson.GeometryLineString, geojson.GeometryMultiLineString:
		return model.Lineal, nil
	case geojson.GeometryPolygon, geojson.GeometryMultiPolygon:
		return model.Areal, nil
	case geojson.GeometryCollection:
		return model.Collection, nil
	}
	return 0, errors.Wrapf(ErrUnsupportedGeometry, "geometry type %q", g.Type)
}

// eachComponent calls fn for every single Point, LineString and Polygon
// within the geometry. Empty parts are skipped.
func eachComponent(g *geojson.Geometry, fn func(*geojson.Geometry) error) error {
	switch g.Type {
	case geojson.GeometryPoint:
		if len(g.Point) < 2 {
			return nil
		}
		return fn(g)
	case geojson.GeometryMultiPoint:
		for _, p := range g.MultiPoint {
			if err := eachComponent(geojson.NewPointGeometry(p), fn); err != nil {
				return err
			}
		}
	case geojson.GeometryLineString:
		if len(g.LineString) == 0 {
			return nil
		}
		return fn(g)
	case geojson.GeometryMultiLineString:
		for _, l := range g.MultiLineString {
			if err := eachComponent(geojson.NewLineStringGeometry(l), fn); err != nil {
				return err
			}
		}
	case geojson.GeometryPolygon:
		if len(g.Polygon) == 0 || len(g.Polygon[0]) == 0 {
			return nil
		}
		return fn(g)
	case geojson.GeometryMultiPolygon:
		for _, p := range g.MultiPolygon {
			if err := eachComponent(geojson.NewPolygonGeometry(p), fn); err != nil {
				return err
			}
		}
	case geojson.GeometryCollection:
		for _, c := range g.Geometries {
			if c == nil {
				continue
			}
			if err := eachComponent(c, fn); err != nil {
				return err
			}
		}
	default:
		return errors.Wrapf(ErrUnsupportedGeometry, "geometry type %q", g.Type)
	}
	return nil
}

func geometryBound(g *geojson.Geometry) (r2.Rect, error) {
	box := r2.EmptyRect()
	err := eachComponent(g, func(c *geojson.Geometry) error {
		switch c.Type {
		case geojson.GeometryPoint:
			box = box.AddPoint(toPoint(c.Point))
		case geojson.GeometryLineString:
			for _, p := range c.LineString {
				box = box.AddPoint(toPoint(p))
			}
		case geojson.GeometryPolygon:
			for _, p := range c.Polygon[0] {
				box = box.AddPoint(toPoint(p))
			}
		}
		return nil
	})
	return box, err
}

// integrate adds every component of the geometry and records the resulting
// primitives as part of the TopoGeometry.
func (tx *Tx) integrate(ctx context.Context, g *geojson.Geometry, tg *model.TopoGeometry, tol float64) error {
	box, err := geometryBound(g)
	if err != nil {
		return err
	}
	tol = tx.tolerance(tol, box)

	relate := func(t model.ElementType, id int64) error {
		_, err := tx.InsertIfAbsent(model.Relation{
			TopoGeoID:   tg.ID,
			LayerID:     tg.LayerID,
			ElementType: t,
			ElementID:   abs(id),
		})
		return err
	}

	return eachComponent(g, func(c *geojson.Geometry) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		switch c.Type {
		case geojson.GeometryPoint:
			node, err := tx.AddPoint(toPoint(c.Point), tol)
			if err != nil {
				return err
			}
			return relate(model.ElementNode, node)
		case geojson.GeometryLineString:
			edges, err := tx.AddLineString(toLine(c.LineString), tol)
			if err != nil {
				return err
			}
			for _, e := range edges {
				if err := relate(model.ElementEdge, e); err != nil {
					return err
				}
			}
		case geojson.GeometryPolygon:
			faces, err := tx.AddPolygon(toRings(c.Polygon), tol)
			if err != nil {
				return err
			}
			for _, f := range faces {
				if err := relate(model.ElementFace, f); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// composableLayer returns the layer if features of type typ may be added to
// it.
func (tx *Tx) composableLayer(layerID int, typ model.FeatureType) (*model.Layer, error) {
	layer, err := tx.Layer(layerID)
	if err != nil {
		return nil, err
	}
	if layer.IsHierarchical() {
		return nil, errors.Wrapf(ErrHierarchicalLayerUnsupported, "layer %d has level %d", layer.ID, layer.Level)
	}
	if !layer.Accepts(typ) {
		return nil, errors.Wrapf(ErrFeatureTypeMismatch, "layer %d holds %s features, not %s", layer.ID, layer.FeatureType, typ)
	}
	return layer, nil
}

// ToTopoGeom creates a TopoGeometry in the layer for the geometry.
func (tx *Tx) ToTopoGeom(ctx context.Context, g *geojson.Geometry, layerID int, tol float64) (*model.TopoGeometry, error) {
	typ, err := featureTypeOf(g)
	if err != nil {
		return nil, err
	}
	if _, err := tx.composableLayer(layerID, typ); err != nil {
		return nil, err
	}

	tg, err := tx.CreateEmpty(layerID, typ)
	if err != nil {
		return nil, err
	}
	if err := tx.integrate(ctx, g, tg, tol); err != nil {
		return nil, err
	}

	tx.log.Debug("created topogeometry", zap.Int("layer", layerID), zap.Int64("id", tg.ID), zap.Stringer("type", typ))
	return tg, nil
}

// AddToTopoGeom adds the primitives of the geometry to an existing
// TopoGeometry.
func (tx *Tx) AddToTopoGeom(ctx context.Context, g *geojson.Geometry, layerID int, id int64, tol float64) (*model.TopoGeometry, error) {
	tg, err := tx.TopoGeometry(layerID, id)
	if err != nil {
		return nil, err
	}
	typ, err := featureTypeOf(g)
	if err != nil {
		return nil, err
	}
	if tg.Type != model.Collection && tg.Type != typ {
		return nil, errors.Wrapf(ErrFeatureTypeMismatch, "topogeometry %d holds %s features, not %s", id, tg.Type, typ)
	}
	if _, err := tx.composableLayer(layerID, typ); err != nil {
		return nil, err
	}

	if err := tx.integrate(ctx, g, tg, tol); err != nil {
		return nil, err
	}
	return tg, nil
}

// ClearTopoGeom removes every relation row of a TopoGeometry, leaving it
// empty.
func (tx *Tx) ClearTopoGeom(layerID int, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	rels, err := tx.ListElements(id, layerID)
	if err != nil {
		return err
	}
	for _, r := range rels {
		tx.removeRelation(r)
	}
	return nil
}

// ToTopoGeom converts a geometry into a TopoGeometry of the layer, adding
// whatever primitives are missing. Nothing changes when it fails.
func (s *Store) ToTopoGeom(ctx context.Context, g *geojson.Geometry, topology string, layerID int, tol float64) (*model.TopoGeometry, error) {
	var tg *model.TopoGeometry
	err := s.Update(ctx, topology, func(tx *Tx) error {
		var err error
		tg, err = tx.ToTopoGeom(ctx, g, layerID, tol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tg, nil
}

func (s *Store) AddToTopoGeom(ctx context.Context, g *geojson.Geometry, topology string, layerID int, id int64, tol float64) (*model.TopoGeometry, error) {
	var tg *model.TopoGeometry
	err := s.Update(ctx, topology, func(tx *Tx) error {
		var err error
		tg, err = tx.AddToTopoGeom(ctx, g, layerID, id, tol)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tg, nil
}

func (s *Store) ClearTopoGeom(ctx context.Context, topology string, layerID int, id int64) error {
	return s.Update(ctx, topology, func(tx *Tx) error {
		return tx.ClearTopoGeom(layerID, id)
	})
}
