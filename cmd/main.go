package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/rubenv/planartopo/topology"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type GlobalOptions struct {
	DataStore string `short:"d" long:"datastore" description:"Data store path (required)"`
	LogLevel  string `long:"log-level" description:"Log level" default:"info"`
}

var globalOpts = GlobalOptions{}
var parser = flags.NewParser(&globalOpts, flags.HelpFlag|flags.PassDoubleDash)

func Run() error {
	_, err := parser.Parse()
	if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
		parser.WriteHelp(os.Stdout)
		return nil
	}
	return err
}

func (g *GlobalOptions) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(g.LogLevel)
	if err != nil {
		return nil, err
	}

	cfg := zap.NewProductionConfig()
	if level == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	return cfg.Build()
}

func (g *GlobalOptions) OpenStore(opts ...topology.Option) (*topology.Store, error) {
	if g.DataStore == "" {
		return nil, errors.New("No datastore specified")
	}

	log, err := g.Logger()
	if err != nil {
		return nil, err
	}

	opts = append([]topology.Option{topology.WithLogger(log)}, opts...)
	store, err := topology.NewStore(g.DataStore, opts...)
	if err != nil {
		return nil, fmt.Errorf("Failed to open store: %s\n", err.Error())
	}
	return store, nil
}
