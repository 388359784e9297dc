package topojson

import (
	geojson "github.com/paulmach/go.geojson"
)

// FilterTopology returns a topology holding only the geometries with the given ids.
// Anonymous collections are descended into and kept when anything inside
// them survives. Arcs are renumbered, unused ones dropped.
func FilterTopology(topo *Topology, ids []string) *Topology {
	result := &Topology{
		Type:        topo.Type,
		Transform:   topo.Transform,
		BoundingBox: topo.BoundingBox,
		Objects:     make(map[string]*Geometry),
	}

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	arcMap := make(map[int]int)
	for name, g := range topo.Objects {
		geom := remapGeometry(arcMap, wanted, g)
		if geom != nil {
			result.Objects[name] = geom
		}
	}

	result.Arcs = make([][][]float64, len(arcMap))
	for k, v := range arcMap {
		result.Arcs[v] = topo.Arcs[k]
	}

	return result
}

func remapLineString(arcMap map[int]int, in []int) []int {
	out := make([]int, len(in))

	for i, arc := range in {
		a := arc
		reverse := false
		if a < 0 {
			a = ^a
			reverse = true
		}

		idx, ok := arcMap[a]
		if !ok {
			idx = len(arcMap)
			arcMap[a] = idx
		}
		if reverse {
			out[i] = ^idx
		} else {
			out[i] = idx
		}
	}

	return out
}

func remapMultiLineString(arcMap map[int]int, in [][]int) [][]int {
	lines := make([][]int, len(in))
	for i, line := range in {
		lines[i] = remapLineString(arcMap, line)
	}
	return lines
}

func remapGeometry(arcMap map[int]int, wanted map[string]bool, g *Geometry) *Geometry {
	if g.ID == "" && g.Type == geojson.GeometryCollection {
		geometries := make([]*Geometry, 0)
		for _, geometry := range g.Geometries {
			out := remapGeometry(arcMap, wanted, geometry)
			if out != nil {
				geometries = append(geometries, out)
			}
		}
		if len(geometries) == 0 {
			return nil
		}
		return &Geometry{
			Type:       g.Type,
			Properties: g.Properties,
			Geometries: geometries,
		}
	}

	if !wanted[g.ID] {
		return nil
	}
	return remap(arcMap, g)
}

func remap(arcMap map[int]int, g *Geometry) *Geometry {
	geom := &Geometry{
		ID:         g.ID,
		Type:       g.Type,
		Properties: g.Properties,
	}

	switch g.Type {
	case geojson.GeometryPoint:
		geom.Point = g.Point
	case geojson.GeometryMultiPoint:
		geom.MultiPoint = g.MultiPoint
	case geojson.GeometryLineString:
		geom.LineString = remapLineString(arcMap, g.LineString)
	case geojson.GeometryMultiLineString:
		geom.MultiLineString = remapMultiLineString(arcMap, g.MultiLineString)
	case geojson.GeometryPolygon:
		geom.Polygon = remapMultiLineString(arcMap, g.Polygon)
	case geojson.GeometryMultiPolygon:
		polygons := make([][][]int, len(g.MultiPolygon))
		for i, poly := range g.MultiPolygon {
			polygons[i] = remapMultiLineString(arcMap, poly)
		}
		geom.MultiPolygon = polygons
	case geojson.GeometryCollection:
		geometries := make([]*Geometry, 0, len(g.Geometries))
		for _, geometry := range g.Geometries {
			geometries = append(geometries, remap(arcMap, geometry))
		}
		geom.Geometries = geometries
	}

	return geom
}
