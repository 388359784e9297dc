package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/kr/pretty"
	"github.com/rubenv/planartopo/topology"
)

type CmdGet struct {
	global *GlobalOptions
}

func init() {
	_, err := parser.AddCommand("get",
		"Get items",
		"Get primitives and TopoGeometries from a topology",
		&CmdGet{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdGet) Usage() string {
	return "topology [node|edge|face|topogeom layer] id"
}

func (cmd CmdGet) Execute(args []string) error {
	if len(args) < 3 {
		return fmt.Errorf("Options missing, Usage: %s", cmd.Usage())
	}

	store, err := cmd.global.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	id, err := strconv.ParseInt(args[len(args)-1], 10, 64)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return store.View(ctx, args[0], func(tx *topology.Tx) error {
		switch args[1] {
		case "node":
			node, err := tx.Node(id)
			if err != nil {
				return fmt.Errorf("Failed to get node: %s\n", err.Error())
			}

			fmt.Printf("%# v\n", pretty.Formatter(node))
		case "edge":
			edge, err := tx.Edge(id)
			if err != nil {
				return fmt.Errorf("Failed to get edge: %s\n", err.Error())
			}

			fmt.Printf("%# v\n", pretty.Formatter(edge))
		case "face":
			face, err := tx.Face(id)
			if err != nil {
				return fmt.Errorf("Failed to get face: %s\n", err.Error())
			}

			fmt.Printf("%# v\n", pretty.Formatter(face))
		case "topogeom":
			if len(args) != 4 {
				return fmt.Errorf("Layer missing, Usage: %s", cmd.Usage())
			}
			layer, err := strconv.Atoi(args[2])
			if err != nil {
				return err
			}

			geom, err := tx.TopoGeomGeometry(layer, id)
			if err != nil {
				return fmt.Errorf("Failed to get topogeometry: %s\n", err.Error())
			}

			b, err := json.Marshal(geom)
			if err != nil {
				return err
			}
			os.Stdout.Write(b)
			os.Stdout.WriteString("\n")
		default:
			return fmt.Errorf("Unknown type %s, Usage: %s", args[1], cmd.Usage())
		}
		return nil
	})
}
