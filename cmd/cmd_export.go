package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rubenv/planartopo/topojson"
)

type CmdExport struct {
	global *GlobalOptions

	Quantize int      `short:"q" long:"quantize" description:"Quantize coordinates on a grid of this size"`
	IDs      []string `long:"id" description:"Only export these TopoGeometries"`
}

func init() {
	_, err := parser.AddCommand("export",
		"Export TopoJSON",
		"Writes the layers of a topology as TopoJSON to stdout",
		&CmdExport{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdExport) Usage() string {
	return "topology [layer...]"
}

func (cmd CmdExport) Execute(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("Topology not specified, Usage: %s", cmd.Usage())
	}

	layers := make([]int, 0, len(args)-1)
	for _, a := range args[1:] {
		id, err := strconv.Atoi(a)
		if err != nil {
			return fmt.Errorf("Invalid layer id %q", a)
		}
		layers = append(layers, id)
	}

	store, err := cmd.global.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	topo, err := store.TopoJSON(context.Background(), args[0], layers...)
	if err != nil {
		return fmt.Errorf("Failed to export: %s\n", err.Error())
	}
	if len(cmd.IDs) > 0 {
		topo = topojson.FilterTopology(topo, cmd.IDs)
	}
	if cmd.Quantize > 0 {
		topo.Quantize(cmd.Quantize)
	}

	return json.NewEncoder(os.Stdout).Encode(topo)
}
