package model

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Record is anything persisted by the store.
type Record interface {
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
}

func (t *Topology) Marshal() ([]byte, error) {
	return msgpack.Marshal(t)
}

func (t *Topology) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, t)
}

func (l *Layer) Marshal() ([]byte, error) {
	return msgpack.Marshal(l)
}

func (l *Layer) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, l)
}

func (n *Node) Marshal() ([]byte, error) {
	return msgpack.Marshal(n)
}

func (n *Node) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, n)
}

func (e *Edge) Marshal() ([]byte, error) {
	return msgpack.Marshal(e)
}

func (e *Edge) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, e)
}

func (f *Face) Marshal() ([]byte, error) {
	return msgpack.Marshal(f)
}

func (f *Face) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, f)
}

func (r *Relation) Marshal() ([]byte, error) {
	return msgpack.Marshal(r)
}

func (r *Relation) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, r)
}

func (t *TopoGeometry) Marshal() ([]byte, error) {
	return msgpack.Marshal(t)
}

func (t *TopoGeometry) Unmarshal(data []byte) error {
	return msgpack.Unmarshal(data, t)
}
