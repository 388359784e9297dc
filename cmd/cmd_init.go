package cmd

import (
	"context"
	"fmt"

	"github.com/rubenv/planartopo/topology"
)

type CmdInit struct {
	global *GlobalOptions
}

func init() {
	_, err := parser.AddCommand("init",
		"Create topologies",
		"Creates the topologies and layers of a configuration file",
		&CmdInit{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdInit) Usage() string {
	return "config.yaml"
}

func (cmd CmdInit) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("Config file not specified, Usage: %s", cmd.Usage())
	}

	config, err := topology.ReadConfig(args[0])
	if err != nil {
		return fmt.Errorf("Failed to read config: %s\n", err.Error())
	}

	if cmd.global.DataStore == "" {
		cmd.global.DataStore = config.Store
	}
	if config.LogLevel != topology.DefaultLogLevel {
		cmd.global.LogLevel = config.LogLevel
	}

	store, err := cmd.global.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	err = config.Apply(context.Background(), store)
	if err != nil {
		return fmt.Errorf("Failed to apply config: %s\n", err.Error())
	}

	topologies, err := store.Topologies()
	if err != nil {
		return err
	}
	for _, t := range topologies {
		fmt.Printf("%d\t%s\tsrid=%d\tprecision=%g\n", t.ID, t.Name, t.SRID, t.Precision)
	}
	return nil
}
