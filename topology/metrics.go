package topology

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	nodes      prometheus.Counter
	edges      prometheus.Counter
	faces      prometheus.Counter
	splits     prometheus.Counter
	heals      prometheus.Counter
	components *prometheus.CounterVec
	failures   prometheus.Counter
	duration   prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		nodes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "nodes_created_total",
			Help:      "Number of nodes created.",
		}),
		edges: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "edges_created_total",
			Help:      "Number of edges created.",
		}),
		faces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "faces_created_total",
			Help:      "Number of faces created.",
		}),
		splits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "edge_splits_total",
			Help:      "Number of edges split by a new node.",
		}),
		heals: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "edge_heals_total",
			Help:      "Number of edge pairs merged.",
		}),
		components: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "integrated_components_total",
			Help:      "Number of geometry components integrated, by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planartopo",
			Name:      "update_failures_total",
			Help:      "Number of rolled back updates.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "planartopo",
			Name:      "update_duration_seconds",
			Help:      "Duration of committed updates.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		}),
	}

	if reg != nil {
		reg.MustRegister(m.nodes, m.edges, m.faces, m.splits, m.heals, m.components, m.failures, m.duration)
	}
	return m
}

// stats are collected per transaction and only reach the counters on commit.
type stats struct {
	nodes      int
	edges      int
	faces      int
	splits     int
	heals      int
	components map[string]int
}

func (s *stats) component(kind string) {
	if s.components == nil {
		s.components = make(map[string]int)
	}
	s.components[kind]++
}

func (m *metrics) add(s *stats) {
	m.nodes.Add(float64(s.nodes))
	m.edges.Add(float64(s.edges))
	m.faces.Add(float64(s.faces))
	m.splits.Add(float64(s.splits))
	m.heals.Add(float64(s.heals))
	for kind, n := range s.components {
		m.components.WithLabelValues(kind).Add(float64(n))
	}
}
