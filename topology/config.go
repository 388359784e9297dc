package topology

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultStorePath = "topo.db"
	DefaultLogLevel  = "info"
)

type Config struct {
	Store      string            `yaml:"store"`
	LogLevel   string            `yaml:"log_level"`
	Topologies []*TopologyConfig `yaml:"topologies"`
}

type TopologyConfig struct {
	Name      string         `yaml:"name"`
	SRID      int            `yaml:"srid"`
	Precision float64        `yaml:"precision"`
	HasZ      bool           `yaml:"has_z"`
	Layers    []*LayerConfig `yaml:"layers"`
}

// LayerConfig describes a feature column. Child names the table.column of
// the layer a hierarchical layer is built from.
type LayerConfig struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
	Column string `yaml:"column"`
	Type   string `yaml:"type"`
	Child  string `yaml:"child"`
}

func ReadConfig(filename string) (*Config, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return ParseConfig(fp)
}

func ParseConfig(in io.Reader) (*Config, error) {
	c := &Config{
		Store:    DefaultStorePath,
		LogLevel: DefaultLogLevel,
	}
	err := yaml.NewDecoder(in).Decode(c)
	if err != nil && err != io.EOF {
		return nil, err
	}

	for _, t := range c.Topologies {
		if t.Name == "" {
			return nil, errors.New("topology without a name")
		}
		for _, l := range t.Layers {
			if l.Schema == "" {
				l.Schema = "public"
			}
			if l.Column == "" {
				l.Column = "topogeom"
			}
			if l.Table == "" {
				return nil, errors.Errorf("layer without a table in topology %q", t.Name)
			}
			if _, err := model.ParseFeatureType(l.Type); err != nil {
				return nil, errors.Wrapf(err, "layer %s of topology %q", l.Table, t.Name)
			}
		}
	}
	return c, nil
}

// Apply creates the topologies and layers that do not exist yet.
func (c *Config) Apply(ctx context.Context, s *Store) error {
	for _, t := range c.Topologies {
		_, err := s.Topology(t.Name)
		if errors.Is(err, ErrUnknownTopology) {
			_, err = s.CreateTopology(t.Name, t.SRID, t.Precision, t.HasZ)
		}
		if err != nil {
			return err
		}

		err = s.Update(ctx, t.Name, func(tx *Tx) error {
			for _, l := range t.Layers {
				if _, ok := tx.FindLayer(l.Schema, l.Table, l.Column); ok {
					continue
				}

				typ, err := model.ParseFeatureType(l.Type)
				if err != nil {
					return err
				}
				child := 0
				if l.Child != "" {
					table, column := l.Child, "topogeom"
					if i := strings.LastIndex(l.Child, "."); i >= 0 {
						table, column = l.Child[:i], l.Child[i+1:]
					}
					cl, ok := tx.FindLayer(l.Schema, table, column)
					if !ok {
						return errors.Wrapf(ErrUnknownLayer, "child %s of layer %s", l.Child, l.Table)
					}
					child = cl.ID
				}

				if _, err := tx.AddLayer(l.Schema, l.Table, l.Column, typ, child); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return errors.Wrapf(err, "apply topology %q", t.Name)
		}
		s.log.Debug("applied topology", zap.String("topology", t.Name), zap.Int("layers", len(t.Layers)))
	}
	return nil
}
