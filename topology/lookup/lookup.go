// Index structure for the bounding boxes of topology primitives.
//
// Or in easier terms: index a bunch of boxes, then ask: "which of them touch this box?".
package lookup

import (
	"sort"

	"github.com/Workiva/go-datastructures/augmentedtree"
	"github.com/golang/geo/r2"
)

type Kind uint8

const (
	Node Kind = iota + 1
	Edge
	Face
)

func (k Kind) String() string {
	switch k {
	case Node:
		return "node"
	case Edge:
		return "edge"
	case Face:
		return "face"
	}
	return "unknown"
}

// Index is not safe for concurrent mutation. Concurrent queries are fine as
// long as nobody writes.
type Index struct {
	tree    augmentedtree.Tree
	entries map[uint64]*interval
}

func New() *Index {
	return &Index{
		tree:    augmentedtree.New(2),
		entries: make(map[uint64]*interval),
	}
}

// Insert adds (or replaces) the box of a primitive.
func (x *Index) Insert(kind Kind, id int64, box r2.Rect) {
	if box.IsEmpty() {
		x.Remove(kind, id)
		return
	}
	key := makeKey(kind, id)
	if old, ok := x.entries[key]; ok {
		if old.box == box {
			return
		}
		x.tree.Delete(old)
	}
	iv := newInterval(kind, id, box)
	x.entries[key] = iv
	x.tree.Add(iv)
}

func (x *Index) Remove(kind Kind, id int64) {
	key := makeKey(kind, id)
	old, ok := x.entries[key]
	if !ok {
		return
	}
	x.tree.Delete(old)
	delete(x.entries, key)
}

// Box returns the indexed box of a primitive.
func (x *Index) Box(kind Kind, id int64) (r2.Rect, bool) {
	iv, ok := x.entries[makeKey(kind, id)]
	if !ok {
		return r2.EmptyRect(), false
	}
	return iv.box, true
}

// Search returns the ids of all primitives of the given kind whose box
// intersects (or touches) the query box, in ascending order.
func (x *Index) Search(box r2.Rect, kind Kind) []int64 {
	if box.IsEmpty() || x.tree.Len() == 0 {
		return nil
	}

	// Widen by one ulp so touching boxes survive the tree's pruning; the
	// exact check below drops anything that does not really touch.
	q := newInterval(kind, 0, box)
	for i := range q.lo {
		q.lo[i]--
		q.hi[i]++
	}
	found := x.tree.Query(q)

	result := make([]int64, 0, len(found))
	for _, f := range found {
		iv, ok := f.(*interval)
		if !ok || iv.kind != kind {
			continue
		}
		if !iv.box.Intersects(box) {
			continue
		}
		result = append(result, iv.id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

func (x *Index) Len() int {
	return len(x.entries)
}
