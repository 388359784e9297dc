// Package input reads features to load into a topology.
package input

import (
	"encoding/json"
	"os"

	geojson "github.com/paulmach/go.geojson"
	"github.com/pkg/errors"
)

// ReadFeatures loads a GeoJSON file holding a FeatureCollection, a single
// Feature or a bare geometry.
func ReadFeatures(filename string) ([]*geojson.Feature, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return ParseFeatures(data)
}

func ParseFeatures(data []byte) ([]*geojson.Feature, error) {
	var head struct {
		Type string `json:"type"`
	}
	err := json.Unmarshal(data, &head)
	if err != nil {
		return nil, err
	}

	switch head.Type {
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, err
		}
		return fc.Features, nil
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, err
		}
		return []*geojson.Feature{f}, nil
	case "":
		return nil, errors.New("missing GeoJSON type")
	}

	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", head.Type)
	}
	return []*geojson.Feature{geojson.NewFeature(g)}, nil
}
