// Package topojson encodes topologies in the TopoJSON format: shared arcs
// plus objects that reference them by index. A negative index ^i walks arc
// i backwards.
package topojson

import (
	"encoding/json"
	"math"
)

type Topology struct {
	Type      string     `json:"type"`
	Transform *Transform `json:"transform,omitempty"`

	BoundingBox []float64            `json:"bbox,omitempty"`
	Objects     map[string]*Geometry `json:"objects"`
	Arcs        [][][]float64        `json:"arcs"`
}

type Transform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

func NewTopology() *Topology {
	return &Topology{
		Type:    "Topology",
		Objects: make(map[string]*Geometry),
		Arcs:    make([][][]float64, 0),
	}
}

// MarshalJSON converts the topology object into the proper JSON.
// It will handle the encoding of all the child geometries.
// Alternately one can call json.Marshal(t) directly for the same result.
func (t *Topology) MarshalJSON() ([]byte, error) {
	type topology Topology

	out := topology(*t)
	out.Type = "Topology"
	if out.Objects == nil {
		out.Objects = make(map[string]*Geometry) // TopoJSON requires the objects attribute
	}
	if out.Arcs == nil {
		out.Arcs = make([][][]float64, 0) // TopoJSON requires the arcs attribute to be at least []
	}
	return json.Marshal(out)
}

// Quantize converts all coordinates to integers on a q x q grid spanning the
// bounding box and delta-encodes the arcs. It is a no-op without a bounding
// box or when the topology is already quantized.
func (t *Topology) Quantize(q int) {
	if t.Transform != nil || len(t.BoundingBox) < 4 || q < 2 {
		return
	}

	x0, y0, x1, y1 := t.BoundingBox[0], t.BoundingBox[1], t.BoundingBox[2], t.BoundingBox[3]
	kx := (x1 - x0) / float64(q-1)
	ky := (y1 - y0) / float64(q-1)
	if kx == 0 {
		kx = 1
	}
	if ky == 0 {
		ky = 1
	}

	t.Transform = &Transform{
		Scale:     [2]float64{kx, ky},
		Translate: [2]float64{x0, y0},
	}

	quantize := func(p []float64) []float64 {
		return []float64{
			math.Round((p[0] - x0) / kx),
			math.Round((p[1] - y0) / ky),
		}
	}

	for i, arc := range t.Arcs {
		out := make([][]float64, 0, len(arc))
		var prev []float64
		for _, p := range arc {
			qp := quantize(p)
			if prev == nil {
				out = append(out, qp)
			} else {
				d := []float64{qp[0] - prev[0], qp[1] - prev[1]}
				if d[0] == 0 && d[1] == 0 && len(out) > 1 {
					continue
				}
				out = append(out, d)
			}
			prev = qp
		}
		t.Arcs[i] = out
	}

	for _, g := range t.Objects {
		g.quantizePoints(quantize)
	}
}

// Unquantize reverses Quantize, yielding absolute coordinates again.
func (t *Topology) Unquantize() {
	if t.Transform == nil {
		return
	}

	kx, ky := t.Transform.Scale[0], t.Transform.Scale[1]
	dx, dy := t.Transform.Translate[0], t.Transform.Translate[1]

	for i, arc := range t.Arcs {
		out := make([][]float64, len(arc))
		x, y := 0.0, 0.0
		for j, p := range arc {
			x += p[0]
			y += p[1]
			out[j] = []float64{x*kx + dx, y*ky + dy}
		}
		t.Arcs[i] = out
	}

	for _, g := range t.Objects {
		g.quantizePoints(func(p []float64) []float64 {
			return []float64{p[0]*kx + dx, p[1]*ky + dy}
		})
	}

	t.Transform = nil
}
