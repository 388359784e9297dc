package model

import (
	"fmt"
	"strings"

	"github.com/golang/geo/r2"
)

const (
	// UniverseFace is the unbounded face outside every ring.
	UniverseFace int64 = 0

	// NullFace marks a node that is not isolated: it has a containing face
	// only while no edge touches it.
	NullFace int64 = -1
)

type FeatureType int

const (
	Puntal     FeatureType = 1
	Lineal     FeatureType = 2
	Areal      FeatureType = 3
	Collection FeatureType = 4
)

func (t FeatureType) String() string {
	switch t {
	case Puntal:
		return "puntal"
	case Lineal:
		return "lineal"
	case Areal:
		return "areal"
	case Collection:
		return "collection"
	}
	return fmt.Sprintf("FeatureType(%d)", int(t))
}

func ParseFeatureType(s string) (FeatureType, error) {
	switch strings.ToLower(s) {
	case "puntal", "point", "multipoint":
		return Puntal, nil
	case "lineal", "line", "linestring", "multilinestring":
		return Lineal, nil
	case "areal", "polygon", "multipolygon":
		return Areal, nil
	case "collection", "geometrycollection":
		return Collection, nil
	}
	return 0, fmt.Errorf("Unknown feature type: %q", s)
}

type ElementType int

const (
	ElementNode ElementType = 1
	ElementEdge ElementType = 2
	ElementFace ElementType = 3
)

func (t ElementType) String() string {
	switch t {
	case ElementNode:
		return "node"
	case ElementEdge:
		return "edge"
	case ElementFace:
		return "face"
	}
	return fmt.Sprintf("ElementType(%d)", int(t))
}

type Topology struct {
	ID        int64   `msgpack:"id"`
	Name      string  `msgpack:"name"`
	SRID      int     `msgpack:"srid"`
	Precision float64 `msgpack:"precision"`
	HasZ      bool    `msgpack:"has_z"`
}

type Layer struct {
	ID            int         `msgpack:"id"`
	TopologyID    int64       `msgpack:"topology_id"`
	SchemaName    string      `msgpack:"schema_name"`
	TableName     string      `msgpack:"table_name"`
	FeatureColumn string      `msgpack:"feature_column"`
	FeatureType   FeatureType `msgpack:"feature_type"`
	Level         int         `msgpack:"level"`
	ChildID       int         `msgpack:"child_id"`
}

// Accepts reports whether features of type t may be stored in the layer.
func (l *Layer) Accepts(t FeatureType) bool {
	return l.FeatureType == Collection || l.FeatureType == t
}

func (l *Layer) IsHierarchical() bool {
	return l.Level > 0
}

type Node struct {
	ID             int64    `msgpack:"id"`
	Point          r2.Point `msgpack:"point"`
	ContainingFace int64    `msgpack:"containing_face"`
}

func (n *Node) IsIsolated() bool {
	return n.ContainingFace != NullFace
}

func (n *Node) Clone() *Node {
	c := *n
	return &c
}

type Edge struct {
	ID            int64      `msgpack:"id"`
	StartNode     int64      `msgpack:"start_node"`
	EndNode       int64      `msgpack:"end_node"`
	NextLeftEdge  int64      `msgpack:"next_left_edge"`
	NextRightEdge int64      `msgpack:"next_right_edge"`
	LeftFace      int64      `msgpack:"left_face"`
	RightFace     int64      `msgpack:"right_face"`
	Curve         []r2.Point `msgpack:"curve"`
}

func (e *Edge) Bound() r2.Rect {
	return r2.RectFromPoints(e.Curve...)
}

func (e *Edge) IsClosed() bool {
	return e.StartNode == e.EndNode
}

// Clone copies the edge, curve included.
func (e *Edge) Clone() *Edge {
	c := *e
	c.Curve = make([]r2.Point, len(e.Curve))
	copy(c.Curve, e.Curve)
	return &c
}

type Face struct {
	ID  int64   `msgpack:"id"`
	MBR r2.Rect `msgpack:"mbr"`
}

func (f *Face) Clone() *Face {
	c := *f
	return &c
}

// Relation links a TopoGeometry to one of the primitives composing it.
type Relation struct {
	TopoGeoID   int64       `msgpack:"topogeo_id"`
	LayerID     int         `msgpack:"layer_id"`
	ElementType ElementType `msgpack:"element_type"`
	ElementID   int64       `msgpack:"element_id"`
}

func (r Relation) Element() Element {
	return Element{Type: r.ElementType, ID: r.ElementID}
}

func (r Relation) Owner() TopoGeomKey {
	return TopoGeomKey{LayerID: r.LayerID, ID: r.TopoGeoID}
}

// Element identifies a primitive.
type Element struct {
	Type ElementType
	ID   int64
}

func (e Element) String() string {
	return fmt.Sprintf("%s %d", e.Type, e.ID)
}

type TopoGeomKey struct {
	LayerID int
	ID      int64
}

type TopoGeometry struct {
	TopologyID int64       `msgpack:"topology_id"`
	LayerID    int         `msgpack:"layer_id"`
	ID         int64       `msgpack:"id"`
	Type       FeatureType `msgpack:"type"`
}

func (t *TopoGeometry) Key() TopoGeomKey {
	return TopoGeomKey{LayerID: t.LayerID, ID: t.ID}
}
