package cmd

import (
	"fmt"

	"github.com/rubenv/planartopo/input"
)

type CmdShp struct {
	global *GlobalOptions

	Tolerance float64 `short:"t" long:"tolerance" description:"Snapping tolerance, defaults to the topology precision"`
}

func init() {
	_, err := parser.AddCommand("shp",
		"Add shapefile records",
		"Converts every record of a shapefile into a TopoGeometry of the layer",
		&CmdShp{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdShp) Usage() string {
	return "topology layer file.shp"
}

func (cmd CmdShp) Execute(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("Options missing, Usage: %s", cmd.Usage())
	}

	features, err := input.ReadShapefile(args[2])
	if err != nil {
		return fmt.Errorf("Failed to read shapefile: %s\n", err.Error())
	}
	return load(cmd.global, args[0], args[1], features, cmd.Tolerance)
}
