package input

import (
	"reflect"

	"github.com/golang/geo/r2"
	shp "github.com/jonas-p/go-shp"
	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
)

// ReadShapefile converts every record of a shapefile into a feature, with
// the dBase attributes as properties.
func ReadShapefile(filename string) ([]*geojson.Feature, error) {
	shape, err := shp.Open(filename)
	if err != nil {
		return nil, err
	}
	defer shape.Close()

	fields := shape.Fields()
	features := make([]*geojson.Feature, 0)
	for shape.Next() {
		n, s := shape.Shape()
		g, err := shapeGeometry(s)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d", n)
		}
		if g == nil {
			continue
		}

		f := geojson.NewFeature(g)
		for i, field := range fields {
			f.SetProperty(field.String(), shape.ReadAttribute(n, i))
		}
		features = append(features, f)
	}
	if err := shape.Err(); err != nil {
		return nil, err
	}
	return features, nil
}

func shapeGeometry(s shp.Shape) (*geojson.Geometry, error) {
	switch p := s.(type) {
	case *shp.Null:
		return nil, nil
	case *shp.Point:
		return geojson.NewPointGeometry([]float64{p.X, p.Y}), nil
	case *shp.PointZ:
		return geojson.NewPointGeometry([]float64{p.X, p.Y}), nil
	case *shp.PointM:
		return geojson.NewPointGeometry([]float64{p.X, p.Y}), nil
	case *shp.MultiPoint:
		return multiPoint(p.Points), nil
	case *shp.MultiPointZ:
		return multiPoint(p.Points), nil
	case *shp.MultiPointM:
		return multiPoint(p.Points), nil
	case *shp.PolyLine:
		return lines(parts(p.Parts, p.Points)), nil
	case *shp.PolyLineZ:
		return lines(parts(p.Parts, p.Points)), nil
	case *shp.PolyLineM:
		return lines(parts(p.Parts, p.Points)), nil
	case *shp.Polygon:
		return polygons(parts(p.Parts, p.Points)), nil
	case *shp.PolygonZ:
		return polygons(parts(p.Parts, p.Points)), nil
	case *shp.PolygonM:
		return polygons(parts(p.Parts, p.Points)), nil
	}
	return nil, errors.Errorf("unsupported shape %s", reflect.TypeOf(s).Elem())
}

func multiPoint(points []shp.Point) *geojson.Geometry {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.X, p.Y}
	}
	return geojson.NewMultiPointGeometry(coords...)
}

// parts splits the points of a shape at its part offsets.
func parts(offsets []int32, points []shp.Point) [][]r2.Point {
	result := make([][]r2.Point, 0, len(offsets))
	for i, first := range offsets {
		last := len(points)
		if i < len(offsets)-1 {
			last = int(offsets[i+1])
		}

		part := make([]r2.Point, 0, last-int(first))
		for _, p := range points[first:last] {
			part = append(part, r2.Point{X: p.X, Y: p.Y})
		}
		result = append(result, part)
	}
	return result
}

func coordinates(line []r2.Point) [][]float64 {
	coords := make([][]float64, len(line))
	for i, p := range line {
		coords[i] = []float64{p.X, p.Y}
	}
	return coords
}

func lines(in [][]r2.Point) *geojson.Geometry {
	if len(in) == 1 {
		return geojson.NewLineStringGeometry(coordinates(in[0]))
	}
	coords := make([][][]float64, len(in))
	for i, l := range in {
		coords[i] = coordinates(l)
	}
	return geojson.NewMultiLineStringGeometry(coords...)
}

// polygons groups rings into polygons. Shapefiles store outer rings
// clockwise and holes counter-clockwise.
func polygons(rings [][]r2.Point) *geojson.Geometry {
	type polygon struct {
		shell []r2.Point
		rings [][][]float64
	}

	shells := make([]*polygon, 0)
	holes := make([][]r2.Point, 0)
	for _, r := range rings {
		if len(r) < 4 {
			continue
		}
		if planar.IsClockwise(r) {
			shells = append(shells, &polygon{shell: r, rings: [][][]float64{coordinates(r)}})
		} else {
			holes = append(holes, r)
		}
	}

	for _, h := range holes {
		for _, s := range shells {
			if planar.PointInRing(h[0], s.shell) {
				s.rings = append(s.rings, coordinates(h))
				break
			}
		}
	}

	if len(shells) == 1 {
		return geojson.NewPolygonGeometry(shells[0].rings)
	}
	coords := make([][][][]float64, len(shells))
	for i, s := range shells {
		coords[i] = s.rings
	}
	return geojson.NewMultiPolygonGeometry(coords...)
}
