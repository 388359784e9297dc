package cmd

import (
	"context"
	"fmt"
)

type CmdValidate struct {
	global *GlobalOptions
}

func init() {
	_, err := parser.AddCommand("validate",
		"Validate a topology",
		"Checks the primitives of a topology and lists every problem found",
		&CmdValidate{global: &globalOpts})
	if err != nil {
		panic(err)
	}
}

func (cmd CmdValidate) Usage() string {
	return "topology"
}

func (cmd CmdValidate) Execute(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("Topology not specified, Usage: %s", cmd.Usage())
	}

	store, err := cmd.global.OpenStore()
	if err != nil {
		return err
	}
	defer store.Close()

	violations, err := store.Validate(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("Failed to validate: %s\n", err.Error())
	}

	for _, v := range violations {
		fmt.Printf("%s\t%d\t%d\n", v.Error, v.ID1, v.ID2)
	}
	if len(violations) > 0 {
		return fmt.Errorf("Found %d problems in %s", len(violations), args[0])
	}
	return nil
}
