package topology

import (
	"context"
	"fmt"
	"strconv"

	"github.com/golang/geo/r2"
	geojson "github.com/paulmach/go.geojson"
	"github.com/rubenv/planartopo/topojson"
	"github.com/rubenv/planartopo/topology/model"
)

// arc returns the TopoJSON reference for a signed edge.
func arc(index map[int64]int, s int64) int {
	i := index[abs(s)]
	if s < 0 {
		return ^i
	}
	return i
}

func (tx *Tx) exportGeometry(tg *model.TopoGeometry, index map[int64]int) (*topojson.Geometry, error) {
	nodes, edges, faces, err := tx.elements(tg.LayerID, tg.ID)
	if err != nil {
		return nil, err
	}

	parts := make([]*topojson.Geometry, 0, 3)
	if len(nodes) > 0 {
		points := make([][]float64, 0, len(nodes))
		for _, id := range nodes {
			n, err := tx.mustNode(id)
			if err != nil {
				return nil, err
			}
			points = append(points, fromPoint(n.Point))
		}
		g := &topojson.Geometry{Type: geojson.GeometryMultiPoint, MultiPoint: points}
		if len(points) == 1 {
			g = &topojson.Geometry{Type: geojson.GeometryPoint, Point: points[0]}
		}
		parts = append(parts, g)
	}

	if len(edges) > 0 {
		lines := make([][]int, 0, len(edges))
		for _, id := range edges {
			lines = append(lines, []int{arc(index, id)})
		}
		g := &topojson.Geometry{Type: geojson.GeometryMultiLineString, MultiLineString: lines}
		if len(lines) == 1 {
			g = &topojson.Geometry{Type: geojson.GeometryLineString, LineString: lines[0]}
		}
		parts = append(parts, g)
	}

	if len(faces) > 0 {
		set := make(map[int64]bool, len(faces))
		for _, f := range faces {
			set[f] = true
		}
		rings, err := tx.boundaryRings(set)
		if err != nil {
			return nil, err
		}
		pts := make([][]r2.Point, len(rings))
		for i, r := range rings {
			pts[i] = tx.ringPoints(r)
		}
		polys := make([][][]int, 0)
		for _, grp := range groupRings(pts) {
			poly := make([][]int, 0, len(grp))
			for _, i := range grp {
				refs := make([]int, len(rings[i]))
				for j, s := range rings[i] {
					refs[j] = arc(index, s)
				}
				poly = append(poly, refs)
			}
			polys = append(polys, poly)
		}
		g := &topojson.Geometry{Type: geojson.GeometryMultiPolygon, MultiPolygon: polys}
		if len(polys) == 1 {
			g = &topojson.Geometry{Type: geojson.GeometryPolygon, Polygon: polys[0]}
		}
		parts = append(parts, g)
	}

	g := &topojson.Geometry{Type: geojson.GeometryCollection, Geometries: parts}
	if tg.Type != model.Collection && len(parts) == 1 {
		g = parts[0]
	}
	g.ID = strconv.FormatInt(tg.ID, 10)
	return g, nil
}

// TopoJSON exports the edges as arcs and the TopoGeometries of the given
// layers, all layers if none are given, as objects named after their layer.
func (tx *Tx) TopoJSON(layerIDs ...int) (*topojson.Topology, error) {
	layers := make([]*model.Layer, 0)
	if len(layerIDs) == 0 {
		layers = tx.Layers()
	} else {
		for _, id := range layerIDs {
			l, err := tx.Layer(id)
			if err != nil {
				return nil, err
			}
			layers = append(layers, l)
		}
	}

	topo := topojson.NewTopology()
	index := make(map[int64]int)
	box := r2.EmptyRect()
	for _, e := range tx.allEdges() {
		index[e.ID] = len(topo.Arcs)
		topo.Arcs = append(topo.Arcs, fromLine(e.Curve))
		box = box.Union(e.Bound())
	}
	for _, n := range tx.allNodes() {
		box = box.AddPoint(n.Point)
	}
	if !box.IsEmpty() {
		topo.BoundingBox = []float64{box.X.Lo, box.Y.Lo, box.X.Hi, box.Y.Hi}
	}

	for _, l := range layers {
		geometries := make([]*topojson.Geometry, 0)
		for _, tg := range tx.TopoGeometries(l.ID) {
			g, err := tx.exportGeometry(tg, index)
			if err != nil {
				return nil, err
			}
			g.Properties = map[string]interface{}{
				"layer": l.ID,
				"type":  tg.Type.String(),
			}
			geometries = append(geometries, g)
		}
		name := fmt.Sprintf("%s.%s", l.TableName, l.FeatureColumn)
		topo.Objects[name] = &topojson.Geometry{
			Type:       geojson.GeometryCollection,
			Geometries: geometries,
		}
	}
	return topo, nil
}

// TopoJSON exports the layers of a topology.
func (s *Store) TopoJSON(ctx context.Context, topology string, layerIDs ...int) (*topojson.Topology, error) {
	var topo *topojson.Topology
	err := s.View(ctx, topology, func(tx *Tx) error {
		var err error
		topo, err = tx.TopoJSON(layerIDs...)
		return err
	})
	return topo, err
}
