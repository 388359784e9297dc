package topology

import (
	"sort"

	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/topology/model"
)

// RelationCatalog records which primitives compose which TopoGeometry.
type RelationCatalog interface {
	InsertIfAbsent(r model.Relation) (bool, error)
	CountReferences(t model.ElementType, id int64) (int, error)
	ListElements(topogeoID int64, layerID int) ([]model.Relation, error)
}

var _ RelationCatalog = (*Tx)(nil)

func sortRelations(rels []model.Relation) {
	sort.Slice(rels, func(i, j int) bool {
		a, b := rels[i], rels[j]
		if a.LayerID != b.LayerID {
			return a.LayerID < b.LayerID
		}
		if a.TopoGeoID != b.TopoGeoID {
			return a.TopoGeoID < b.TopoGeoID
		}
		if a.ElementType != b.ElementType {
			return a.ElementType < b.ElementType
		}
		return a.ElementID < b.ElementID
	})
}

func (tx *Tx) hasRelation(r model.Relation) bool {
	if present, ok := tx.rels[r]; ok {
		return present
	}
	_, ok := tx.g.relations[r]
	return ok
}

func (tx *Tx) elementExists(el model.Element) bool {
	switch el.Type {
	case model.ElementNode:
		return tx.node(el.ID) != nil
	case model.ElementEdge:
		return el.ID > 0 && tx.edge(el.ID) != nil
	case model.ElementFace:
		return el.ID != model.UniverseFace && tx.face(el.ID) != nil
	}
	return false
}

// InsertIfAbsent adds a relation row unless it already exists. It reports
// whether a row was added.
func (tx *Tx) InsertIfAbsent(r model.Relation) (bool, error) {
	if err := tx.check(); err != nil {
		return false, err
	}
	if tx.hasRelation(r) {
		return false, nil
	}
	if tx.topogeom(r.Owner()) == nil {
		return false, errors.Wrapf(ErrNotFound, "topogeometry %d in layer %d", r.TopoGeoID, r.LayerID)
	}
	if !tx.elementExists(r.Element()) {
		return false, errors.Wrapf(ErrConstraintViolation, "relation references missing %s", r.Element())
	}
	tx.rels[r] = true
	return true, nil
}

func (tx *Tx) removeRelation(r model.Relation) {
	tx.rels[r] = false
}

func (tx *Tx) relationsOf(el model.Element) []model.Relation {
	result := make([]model.Relation, 0)
	for r := range tx.g.byElement[el] {
		if present, ok := tx.rels[r]; ok && !present {
			continue
		}
		result = append(result, r)
	}
	for r, present := range tx.rels {
		if !present || r.Element() != el {
			continue
		}
		if _, ok := tx.g.relations[r]; ok {
			continue
		}
		result = append(result, r)
	}
	sortRelations(result)
	return result
}

// CountReferences returns how many relation rows reference a primitive.
func (tx *Tx) CountReferences(t model.ElementType, id int64) (int, error) {
	return len(tx.relationsOf(model.Element{Type: t, ID: id})), nil
}

// ListElements returns the relation rows of a TopoGeometry.
func (tx *Tx) ListElements(topogeoID int64, layerID int) ([]model.Relation, error) {
	owner := model.TopoGeomKey{LayerID: layerID, ID: topogeoID}
	if tx.topogeom(owner) == nil {
		return nil, errors.Wrapf(ErrNotFound, "topogeometry %d in layer %d", topogeoID, layerID)
	}

	result := make([]model.Relation, 0)
	for r := range tx.g.byOwner[owner] {
		if present, ok := tx.rels[r]; ok && !present {
			continue
		}
		result = append(result, r)
	}
	for r, present := range tx.rels {
		if !present || r.Owner() != owner {
			continue
		}
		if _, ok := tx.g.relations[r]; ok {
			continue
		}
		result = append(result, r)
	}
	sortRelations(result)
	return result, nil
}

func (tx *Tx) owners(el model.Element) map[model.TopoGeomKey]bool {
	result := make(map[model.TopoGeomKey]bool)
	for _, r := range tx.relationsOf(el) {
		result[r.Owner()] = true
	}
	return result
}

func (tx *Tx) referenced(el model.Element) bool {
	return len(tx.relationsOf(el)) > 0
}

// extendRelations makes every TopoGeometry composed of old also reference
// the added elements.
func (tx *Tx) extendRelations(old model.Element, added ...model.Element) {
	for _, r := range tx.relationsOf(old) {
		for _, el := range added {
			n := model.Relation{
				TopoGeoID:   r.TopoGeoID,
				LayerID:     r.LayerID,
				ElementType: el.Type,
				ElementID:   el.ID,
			}
			if !tx.hasRelation(n) {
				tx.rels[n] = true
			}
		}
	}
}

// replaceRelations swaps old for the given elements in every TopoGeometry.
func (tx *Tx) replaceRelations(old model.Element, added ...model.Element) {
	rels := tx.relationsOf(old)
	tx.extendRelations(old, added...)
	for _, r := range rels {
		tx.removeRelation(r)
	}
}

// dropRelations removes every row referencing the element.
func (tx *Tx) dropRelations(el model.Element) {
	for _, r := range tx.relationsOf(el) {
		tx.removeRelation(r)
	}
}
