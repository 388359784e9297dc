package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/cheggaaa/pb"
	geojson "github.com/paulmach/go.geojson"
	"github.com/rubenv/planartopo/input"
)

type CmdAdd struct {
	global *GlobalOptions

	Tolerance float64 `short:"t" long:"tolerance" description:"Snapping tolerance, defaults to the topology precision"`
}

func init() {
	_, err := parser.AddCommand("add",
		"Add GeoJSON features",
		"Converts every feature of a GeoJSON file into a TopoGeometry of the layer",
		&CmdAdd{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdAdd) Usage() string {
	return "topology layer file.geojson"
}

func (cmd CmdAdd) Execute(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("Options missing, Usage: %s", cmd.Usage())
	}

	features, err := input.ReadFeatures(args[2])
	if err != nil {
		return fmt.Errorf("Failed to read features: %s\n", err.Error())
	}
	return load(cmd.global, args[0], args[1], features, cmd.Tolerance)
}

// load adds the features one by one, each in its own update.
func load(global *GlobalOptions, topology, layer string, features []*geojson.Feature, tol float64) error {
	layerID, err := strconv.Atoi(layer)
	if err != nil {
		return fmt.Errorf("Invalid layer id %q", layer)
	}

	store, err := global.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	if _, err := store.Layer(ctx, topology, layerID); err != nil {
		return err
	}

	bar := pb.StartNew(len(features))
	defer bar.Finish()

	for i, f := range features {
		if f.Geometry == nil {
			bar.Increment()
			continue
		}
		_, err := store.ToTopoGeom(ctx, f.Geometry, topology, layerID, tol)
		if err != nil {
			return fmt.Errorf("Failed to add feature %d: %s\n", i, err.Error())
		}
		bar.Increment()
	}
	return nil
}
