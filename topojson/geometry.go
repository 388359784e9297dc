package topojson

import (
	"encoding/json"
	"fmt"

	geojson "github.com/paulmach/go.geojson"
)

// Geometry is a TopoJSON object. Points carry their coordinates inline,
// everything else refers to the arcs of the enclosing topology.
type Geometry struct {
	ID         string                 `json:"id,omitempty"`
	Type       geojson.GeometryType   `json:"type"`
	Properties map[string]interface{} `json:"properties"`

	Point           []float64
	MultiPoint      [][]float64
	LineString      []int
	MultiLineString [][]int
	Polygon         [][]int
	MultiPolygon    [][][]int
	Geometries      []*Geometry
}

// wireGeometry is the on-disk layout; field order fixes the key order.
type wireGeometry struct {
	ID          interface{}            `json:"id,omitempty"`
	Type        geojson.GeometryType   `json:"type"`
	Properties  map[string]interface{} `json:"properties,omitempty"`
	Coordinates json.RawMessage        `json:"coordinates,omitempty"`
	Arcs        json.RawMessage        `json:"arcs,omitempty"`
	Geometries  []*Geometry            `json:"geometries,omitempty"`
}

func (g *Geometry) MarshalJSON() ([]byte, error) {
	out := wireGeometry{
		Type:       g.Type,
		Properties: g.Properties,
		Geometries: g.Geometries,
	}
	if g.ID != "" {
		out.ID = g.ID
	}

	var coords, arcs interface{}
	switch g.Type {
	case geojson.GeometryPoint:
		coords = g.Point
	case geojson.GeometryMultiPoint:
		coords = g.MultiPoint
	case geojson.GeometryLineString:
		arcs = g.LineString
	case geojson.GeometryMultiLineString:
		arcs = g.MultiLineString
	case geojson.GeometryPolygon:
		arcs = g.Polygon
	case geojson.GeometryMultiPolygon:
		arcs = g.MultiPolygon
	case geojson.GeometryCollection:
		if out.Geometries == nil {
			out.Geometries = []*Geometry{}
		}
	}

	var err error
	if coords != nil {
		if out.Coordinates, err = json.Marshal(coords); err != nil {
			return nil, err
		}
	}
	if arcs != nil {
		if out.Arcs, err = json.Marshal(arcs); err != nil {
			return nil, err
		}
	}
	return json.Marshal(out)
}

func (g *Geometry) UnmarshalJSON(data []byte) error {
	var in wireGeometry
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Type == "" {
		return fmt.Errorf("topojson: geometry without type")
	}

	*g = Geometry{
		Type:       in.Type,
		Properties: in.Properties,
		Geometries: in.Geometries,
	}
	if in.ID != nil {
		g.ID = fmt.Sprint(in.ID)
	}

	switch g.Type {
	case geojson.GeometryPoint:
		return decode(in.Coordinates, &g.Point)
	case geojson.GeometryMultiPoint:
		return decode(in.Coordinates, &g.MultiPoint)
	case geojson.GeometryLineString:
		return decode(in.Arcs, &g.LineString)
	case geojson.GeometryMultiLineString:
		return decode(in.Arcs, &g.MultiLineString)
	case geojson.GeometryPolygon:
		return decode(in.Arcs, &g.Polygon)
	case geojson.GeometryMultiPolygon:
		return decode(in.Arcs, &g.MultiPolygon)
	case geojson.GeometryCollection:
		return nil
	}
	return fmt.Errorf("topojson: unknown geometry type %q", g.Type)
}

// decode fills v from raw, which must be present. Arc indexes that are not
// integers fail here.
func decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return fmt.Errorf("topojson: missing coordinates or arcs")
	}
	return json.Unmarshal(raw, v)
}

func (g *Geometry) quantizePoints(fn func([]float64) []float64) {
	switch g.Type {
	case geojson.GeometryPoint:
		g.Point = fn(g.Point)
	case geojson.GeometryMultiPoint:
		for i, p := range g.MultiPoint {
			g.MultiPoint[i] = fn(p)
		}
	case geojson.GeometryCollection:
		for _, c := range g.Geometries {
			c.quantizePoints(fn)
		}
	}
}
