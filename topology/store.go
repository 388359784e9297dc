package topology

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rubenv/planartopo/topology/model"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var catalogBucket = []byte("topologies")

type Option func(*Store)

func WithLogger(log *zap.Logger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithRegisterer registers the store metrics. Without it they are still
// collected, just not exposed.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.reg = reg
	}
}

// Store keeps topologies in a bolt file and their graphs in memory.
type Store struct {
	path    string
	db      *bolt.DB
	log     *zap.Logger
	reg     prometheus.Registerer
	metrics *metrics

	mu     sync.Mutex
	graphs map[int64]*graph
}

func NewStore(path string, opts ...Option) (*Store, error) {
	err := os.MkdirAll(filepath.Dir(path), 0755)
	if err != nil {
		return nil, err
	}

	db, err := bolt.Open(path, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	store := &Store{
		path:   path,
		db:     db,
		log:    zap.NewNop(),
		graphs: make(map[int64]*graph),
	}
	for _, opt := range opts {
		opt(store)
	}
	store.metrics = newMetrics(store.reg)

	err = db.Update(func(btx *bolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(catalogBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Update runs fn as the single writer of the topology. Changes made through
// the transaction are persisted and published only when fn returns nil.
func (s *Store) Update(ctx context.Context, topology string, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topo, err := s.Topology(topology)
	if err != nil {
		return err
	}
	g, err := s.graph(topo)
	if err != nil {
		return err
	}

	g.writer.Lock()
	defer g.writer.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	tx := newTx(g, s.log.With(zap.String("topology", topo.Name)), true)
	err = fn(tx)
	if err == nil {
		err = s.db.Update(func(btx *bolt.Tx) error {
			return g.persist(btx, tx)
		})
	}
	if err != nil {
		s.metrics.failures.Inc()
		s.log.Debug("update rolled back", zap.String("topology", topo.Name), zap.Error(err))
		return err
	}

	g.apply(tx)
	s.metrics.add(&tx.stats)
	s.metrics.duration.Observe(time.Since(start).Seconds())
	return nil
}

// View runs fn against the published state of the topology. Any number of
// readers may run while a writer prepares its changes.
func (s *Store) View(ctx context.Context, topology string, fn func(tx *Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	topo, err := s.Topology(topology)
	if err != nil {
		return err
	}
	g, err := s.graph(topo)
	if err != nil {
		return err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(newTx(g, s.log.With(zap.String("topology", topo.Name)), false))
}

func (s *Store) graph(topo *model.Topology) (*graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g, ok := s.graphs[topo.ID]; ok {
		return g, nil
	}

	var g *graph
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		g, err = loadGraph(btx, *topo)
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load topology %q", topo.Name)
	}

	s.graphs[topo.ID] = g
	return g, nil
}

// snapshot loads a private copy of the committed state.
func (s *Store) snapshot(topo *model.Topology) (*graph, error) {
	var g *graph
	err := s.db.View(func(btx *bolt.Tx) error {
		var err error
		g, err = loadGraph(btx, *topo)
		return err
	})
	return g, err
}

func putTopology(btx *bolt.Tx, topo *model.Topology) error {
	data, err := topo.Marshal()
	if err != nil {
		return err
	}
	return btx.Bucket(catalogBucket).Put([]byte(topo.Name), data)
}

// CreateTopology registers a new, empty topology.
func (s *Store) CreateTopology(name string, srid int, precision float64, hasZ bool) (*model.Topology, error) {
	if name == "" {
		return nil, errors.Wrap(ErrConstraintViolation, "topology name is empty")
	}
	if precision < 0 {
		return nil, errors.Wrapf(ErrConstraintViolation, "negative precision %g", precision)
	}

	topo := &model.Topology{
		Name:      name,
		SRID:      srid,
		Precision: precision,
		HasZ:      hasZ,
	}
	err := s.db.Update(func(btx *bolt.Tx) error {
		b := btx.Bucket(catalogBucket)
		if b.Get([]byte(name)) != nil {
			return errors.Wrapf(ErrConstraintViolation, "topology %q already exists", name)
		}

		id, err := b.NextSequence()
		if err != nil {
			return err
		}
		topo.ID = int64(id)

		_, err = btx.CreateBucketIfNotExists(bucketName(topo.ID))
		if err != nil {
			return err
		}
		return putTopology(btx, topo)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("created topology", zap.String("name", name), zap.Int64("id", topo.ID), zap.Int("srid", srid))
	return topo, nil
}

// DropTopology removes a topology with all its primitives and features.
func (s *Store) DropTopology(name string) error {
	topo, err := s.Topology(name)
	if err != nil {
		return err
	}

	g, err := s.graph(topo)
	if err != nil {
		return err
	}
	g.writer.Lock()
	defer g.writer.Unlock()

	err = s.db.Update(func(btx *bolt.Tx) error {
		err := btx.Bucket(catalogBucket).Delete([]byte(topo.Name))
		if err != nil {
			return err
		}
		err = btx.DeleteBucket(bucketName(topo.ID))
		if err == bolt.ErrBucketNotFound {
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.graphs, topo.ID)
	s.mu.Unlock()
	return nil
}

// Topology resolves a topology by name: an exact match wins, otherwise the
// name is compared case-insensitively and must match exactly one topology.
func (s *Store) Topology(name string) (*model.Topology, error) {
	var topo *model.Topology
	err := s.db.View(func(btx *bolt.Tx) error {
		b := btx.Bucket(catalogBucket)
		if v := b.Get([]byte(name)); v != nil {
			topo = &model.Topology{}
			return topo.Unmarshal(v)
		}

		var matches []string
		var data []byte
		err := b.ForEach(func(k, v []byte) error {
			if strings.EqualFold(string(k), name) {
				matches = append(matches, string(k))
				data = v
			}
			return nil
		})
		if err != nil {
			return err
		}

		switch len(matches) {
		case 0:
			return errors.Wrapf(ErrUnknownTopology, "%q", name)
		case 1:
			topo = &model.Topology{}
			return topo.Unmarshal(data)
		default:
			return errors.Wrapf(ErrAmbiguousTopology, "%q matches %s", name, strings.Join(matches, ", "))
		}
	})
	if err != nil {
		return nil, err
	}
	return topo, nil
}

// Topologies lists all topologies ordered by id.
func (s *Store) Topologies() ([]*model.Topology, error) {
	result := make([]*model.Topology, 0)
	err := s.db.View(func(btx *bolt.Tx) error {
		return btx.Bucket(catalogBucket).ForEach(func(k, v []byte) error {
			t := &model.Topology{}
			if err := t.Unmarshal(v); err != nil {
				return errors.Wrapf(err, "decode topology %s", k)
			}
			result = append(result, t)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// SetSRID corrects the spatial reference of a topology.
func (s *Store) SetSRID(ctx context.Context, topology string, srid int) error {
	return s.Update(ctx, topology, func(tx *Tx) error {
		return tx.SetSRID(srid)
	})
}

// Layer looks up a layer of a topology.
func (s *Store) Layer(ctx context.Context, topology string, id int) (*model.Layer, error) {
	var layer *model.Layer
	err := s.View(ctx, topology, func(tx *Tx) error {
		var err error
		layer, err = tx.Layer(id)
		return err
	})
	return layer, err
}
