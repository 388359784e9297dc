package topology

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/topology/model"
	"go.uber.org/zap"
)

// TopoGeomAllocator hands out empty TopoGeometries.
type TopoGeomAllocator interface {
	CreateEmpty(layerID int, typ model.FeatureType) (*model.TopoGeometry, error)
}

var _ TopoGeomAllocator = (*Tx)(nil)

func (tx *Tx) layer(id int) *model.Layer {
	if l, ok := tx.layers[id]; ok {
		return l
	}
	return tx.g.layers[id]
}

func (tx *Tx) Layer(id int) (*model.Layer, error) {
	l := tx.layer(id)
	if l == nil {
		return nil, errors.Wrapf(ErrUnknownLayer, "layer %d of topology %q", id, tx.Topology().Name)
	}
	c := *l
	return &c, nil
}

// Layers lists all layers ordered by id.
func (tx *Tx) Layers() []*model.Layer {
	seen := make(map[int]bool)
	result := make([]*model.Layer, 0)
	for id, l := range tx.layers {
		seen[id] = true
		result = append(result, l)
	}
	for id, l := range tx.g.layers {
		if !seen[id] {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// FindLayer looks a layer up by its table and column.
func (tx *Tx) FindLayer(schema, table, column string) (*model.Layer, bool) {
	for _, l := range tx.Layers() {
		if l.SchemaName == schema && l.TableName == table && l.FeatureColumn == column {
			return l, true
		}
	}
	return nil, false
}

// AddLayer registers a feature column. A non-zero child makes the layer
// hierarchical, one level above its child.
func (tx *Tx) AddLayer(schema, table, column string, typ model.FeatureType, child int) (*model.Layer, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	if typ < model.Puntal || typ > model.Collection {
		return nil, errors.Wrapf(ErrConstraintViolation, "invalid feature type %d", typ)
	}
	if _, ok := tx.FindLayer(schema, table, column); ok {
		return nil, errors.Wrapf(ErrConstraintViolation, "layer %s.%s.%s already exists", schema, table, column)
	}

	l := &model.Layer{
		ID:            int(tx.nextID("layer")),
		TopologyID:    tx.Topology().ID,
		SchemaName:    schema,
		TableName:     table,
		FeatureColumn: column,
		FeatureType:   typ,
	}
	if child != 0 {
		c := tx.layer(child)
		if c == nil {
			return nil, errors.Wrapf(ErrUnknownLayer, "child layer %d", child)
		}
		l.ChildID = child
		l.Level = c.Level + 1
	}

	tx.layers[l.ID] = l
	tx.log.Info("added layer",
		zap.Int("layer", l.ID),
		zap.String("table", schema+"."+table),
		zap.String("column", column),
		zap.Stringer("type", typ))
	return l, nil
}

func (tx *Tx) topogeom(k model.TopoGeomKey) *model.TopoGeometry {
	if t, ok := tx.topogeoms[k]; ok {
		return t
	}
	return tx.g.topogeoms[k]
}

func (tx *Tx) TopoGeometry(layerID int, id int64) (*model.TopoGeometry, error) {
	t := tx.topogeom(model.TopoGeomKey{LayerID: layerID, ID: id})
	if t == nil {
		return nil, errors.Wrapf(ErrNotFound, "topogeometry %d in layer %d", id, layerID)
	}
	c := *t
	return &c, nil
}

// TopoGeometries lists the TopoGeometries of a layer ordered by id.
func (tx *Tx) TopoGeometries(layerID int) []*model.TopoGeometry {
	seen := make(map[model.TopoGeomKey]bool)
	result := make([]*model.TopoGeometry, 0)
	for k, t := range tx.topogeoms {
		seen[k] = true
		if t != nil && k.LayerID == layerID {
			result = append(result, t)
		}
	}
	for k, t := range tx.g.topogeoms {
		if !seen[k] && k.LayerID == layerID {
			result = append(result, t)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// CreateEmpty allocates a TopoGeometry without any primitives.
func (tx *Tx) CreateEmpty(layerID int, typ model.FeatureType) (*model.TopoGeometry, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	if _, err := tx.Layer(layerID); err != nil {
		return nil, err
	}

	t := &model.TopoGeometry{
		TopologyID: tx.Topology().ID,
		LayerID:    layerID,
		ID:         tx.nextID(fmt.Sprintf("topogeom.%d", layerID)),
		Type:       typ,
	}
	tx.topogeoms[t.Key()] = t
	return t, nil
}

// DeleteTopoGeom removes a TopoGeometry and its relation rows. The
// primitives stay.
func (tx *Tx) DeleteTopoGeom(layerID int, id int64) error {
	if err := tx.check(); err != nil {
		return err
	}
	rels, err := tx.ListElements(id, layerID)
	if err != nil {
		return err
	}
	for _, r := range rels {
		tx.removeRelation(r)
	}
	tx.topogeoms[model.TopoGeomKey{LayerID: layerID, ID: id}] = nil
	return nil
}
