package topology

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rubenv/planartopo/planar"
	"github.com/rubenv/planartopo/topology/lookup"
	"github.com/rubenv/planartopo/topology/model"
	bolt "go.etcd.io/bbolt"
)

// graph is the published state of one topology. Readers hold mu for
// reading; the single writer holds writer for the whole update and mu only
// while applying a committed overlay.
type graph struct {
	mu     sync.RWMutex
	writer sync.Mutex

	topo      model.Topology
	layers    map[int]*model.Layer
	nodes     map[int64]*model.Node
	edges     map[int64]*model.Edge
	faces     map[int64]*model.Face
	topogeoms map[model.TopoGeomKey]*model.TopoGeometry
	relations map[model.Relation]struct{}
	byElement map[model.Element]map[model.Relation]struct{}
	byOwner   map[model.TopoGeomKey]map[model.Relation]struct{}
	seq       map[string]int64
	index     *lookup.Index
}

func newGraph(topo model.Topology) *graph {
	return &graph{
		topo:      topo,
		layers:    make(map[int]*model.Layer),
		nodes:     make(map[int64]*model.Node),
		edges:     make(map[int64]*model.Edge),
		faces:     make(map[int64]*model.Face),
		topogeoms: make(map[model.TopoGeomKey]*model.TopoGeometry),
		relations: make(map[model.Relation]struct{}),
		byElement: make(map[model.Element]map[model.Relation]struct{}),
		byOwner:   make(map[model.TopoGeomKey]map[model.Relation]struct{}),
		seq:       make(map[string]int64),
		index:     lookup.New(),
	}
}

func bucketName(id int64) []byte {
	return []byte(fmt.Sprintf("topology/%d", id))
}

func nodeKey(id int64) string {
	return fmt.Sprintf("node/%d", id)
}

func edgeKey(id int64) string {
	return fmt.Sprintf("edge/%d", id)
}

func faceKey(id int64) string {
	return fmt.Sprintf("face/%d", id)
}

func layerKey(id int) string {
	return fmt.Sprintf("layer/%d", id)
}

func topogeomKey(k model.TopoGeomKey) string {
	return fmt.Sprintf("topogeom/%d/%d", k.LayerID, k.ID)
}

func relationKey(r model.Relation) string {
	return fmt.Sprintf("relation/%d/%d/%d/%d", r.LayerID, r.TopoGeoID, r.ElementType, r.ElementID)
}

func seqKey(kind string) string {
	return fmt.Sprintf("seq/%s", kind)
}

func loadGraph(btx *bolt.Tx, topo model.Topology) (*graph, error) {
	g := newGraph(topo)
	b := btx.Bucket(bucketName(topo.ID))
	if b == nil {
		return g, nil
	}

	err := b.ForEach(func(k, v []byte) error {
		key := string(k)
		slash := strings.IndexByte(key, '/')
		if slash < 0 {
			return nil
		}

		var err error
		switch key[:slash] {
		case "node":
			n := &model.Node{}
			if err = n.Unmarshal(v); err == nil {
				g.putNode(n)
			}
		case "edge":
			e := &model.Edge{}
			if err = e.Unmarshal(v); err == nil {
				g.putEdge(e)
			}
		case "face":
			f := &model.Face{}
			if err = f.Unmarshal(v); err == nil {
				g.putFace(f)
			}
		case "layer":
			l := &model.Layer{}
			if err = l.Unmarshal(v); err == nil {
				g.layers[l.ID] = l
			}
		case "topogeom":
			t := &model.TopoGeometry{}
			if err = t.Unmarshal(v); err == nil {
				g.topogeoms[t.Key()] = t
			}
		case "relation":
			r := model.Relation{}
			if err = r.Unmarshal(v); err == nil {
				g.addRelation(r)
			}
		case "seq":
			var n int64
			n, err = strconv.ParseInt(string(v), 10, 64)
			g.seq[key[slash+1:]] = n
		}
		return errors.Wrapf(err, "decode %s", key)
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (g *graph) putNode(n *model.Node) {
	g.nodes[n.ID] = n
	g.index.Insert(lookup.Node, n.ID, planar.PointRect(n.Point))
}

func (g *graph) deleteNode(id int64) {
	delete(g.nodes, id)
	g.index.Remove(lookup.Node, id)
}

func (g *graph) putEdge(e *model.Edge) {
	g.edges[e.ID] = e
	g.index.Insert(lookup.Edge, e.ID, e.Bound())
}

func (g *graph) deleteEdge(id int64) {
	delete(g.edges, id)
	g.index.Remove(lookup.Edge, id)
}

func (g *graph) putFace(f *model.Face) {
	g.faces[f.ID] = f
	g.index.Insert(lookup.Face, f.ID, f.MBR)
}

func (g *graph) deleteFace(id int64) {
	delete(g.faces, id)
	g.index.Remove(lookup.Face, id)
}

func (g *graph) addRelation(r model.Relation) {
	g.relations[r] = struct{}{}

	el := r.Element()
	if g.byElement[el] == nil {
		g.byElement[el] = make(map[model.Relation]struct{})
	}
	g.byElement[el][r] = struct{}{}

	owner := r.Owner()
	if g.byOwner[owner] == nil {
		g.byOwner[owner] = make(map[model.Relation]struct{})
	}
	g.byOwner[owner][r] = struct{}{}
}

func (g *graph) removeRelation(r model.Relation) {
	delete(g.relations, r)

	el := r.Element()
	delete(g.byElement[el], r)
	if len(g.byElement[el]) == 0 {
		delete(g.byElement, el)
	}

	owner := r.Owner()
	delete(g.byOwner[owner], r)
	if len(g.byOwner[owner]) == 0 {
		delete(g.byOwner, owner)
	}
}

// persist writes the overlay of a transaction into the topology bucket.
func (g *graph) persist(btx *bolt.Tx, tx *Tx) error {
	b, err := btx.CreateBucketIfNotExists(bucketName(g.topo.ID))
	if err != nil {
		return err
	}

	put := func(key string, r model.Record) error {
		data, err := r.Marshal()
		if err != nil {
			return errors.Wrapf(err, "encode %s", key)
		}
		return b.Put([]byte(key), data)
	}
	del := func(key string) error {
		return b.Delete([]byte(key))
	}

	for id, n := range tx.nodes {
		if n == nil {
			err = del(nodeKey(id))
		} else {
			err = put(nodeKey(id), n)
		}
		if err != nil {
			return err
		}
	}
	for id, e := range tx.edges {
		if e == nil {
			err = del(edgeKey(id))
		} else {
			err = put(edgeKey(id), e)
		}
		if err != nil {
			return err
		}
	}
	for id, f := range tx.faces {
		if f == nil {
			err = del(faceKey(id))
		} else {
			err = put(faceKey(id), f)
		}
		if err != nil {
			return err
		}
	}
	for id, l := range tx.layers {
		if err := put(layerKey(id), l); err != nil {
			return err
		}
	}
	for k, t := range tx.topogeoms {
		if t == nil {
			err = del(topogeomKey(k))
		} else {
			err = put(topogeomKey(k), t)
		}
		if err != nil {
			return err
		}
	}
	for r, present := range tx.rels {
		r := r
		if present {
			err = put(relationKey(r), &r)
		} else {
			err = del(relationKey(r))
		}
		if err != nil {
			return err
		}
	}
	for kind, v := range tx.seq {
		err := b.Put([]byte(seqKey(kind)), []byte(strconv.FormatInt(v, 10)))
		if err != nil {
			return err
		}
	}

	if tx.topo != nil {
		err := putTopology(btx, tx.topo)
		if err != nil {
			return err
		}
	}
	return nil
}

// apply publishes a committed overlay.
func (g *graph) apply(tx *Tx) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if tx.topo != nil {
		g.topo = *tx.topo
	}
	for id, n := range tx.nodes {
		if n == nil {
			g.deleteNode(id)
		} else {
			g.putNode(n)
		}
	}
	for id, e := range tx.edges {
		if e == nil {
			g.deleteEdge(id)
		} else {
			g.putEdge(e)
		}
	}
	for id, f := range tx.faces {
		if f == nil {
			g.deleteFace(id)
		} else {
			g.putFace(f)
		}
	}
	for id, l := range tx.layers {
		g.layers[id] = l
	}
	for k, t := range tx.topogeoms {
		if t == nil {
			delete(g.topogeoms, k)
		} else {
			g.topogeoms[k] = t
		}
	}
	for r, present := range tx.rels {
		if present {
			g.addRelation(r)
		} else {
			g.removeRelation(r)
		}
	}
	for kind, v := range tx.seq {
		g.seq[kind] = v
	}
}
