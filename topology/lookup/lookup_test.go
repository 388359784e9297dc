package lookup

import (
	"math"
	"testing"

	"github.com/cheekybits/is"
	"github.com/golang/geo/r2"
)

func rect(x0, y0, x1, y1 float64) r2.Rect {
	return r2.RectFromPoints(r2.Point{X: x0, Y: y0}, r2.Point{X: x1, Y: y1})
}

func TestSearch(t *testing.T) {
	is := is.New(t)

	idx := New()
	idx.Insert(Edge, 1, rect(0, 0, 10, 10))
	idx.Insert(Edge, 2, rect(20, 20, 30, 30))
	idx.Insert(Edge, 3, rect(-5, -5, -1, -1))
	idx.Insert(Node, 1, rect(5, 5, 5, 5))
	is.Equal(idx.Len(), 4)

	is.Equal(idx.Search(rect(1, 1, 2, 2), Edge), []int64{1})
	is.Equal(idx.Search(rect(-10, -10, 50, 50), Edge), []int64{1, 2, 3})
	is.Equal(idx.Search(rect(5, 5, 5, 5), Node), []int64{1})
	is.Equal(len(idx.Search(rect(11, 11, 19, 19), Edge)), 0)

	// Touching counts
	is.Equal(idx.Search(rect(10, 10, 15, 15), Edge), []int64{1})
	is.Equal(idx.Search(rect(-1, -1, -1, -1), Edge), []int64{3})

	// Boxes overlapping on one axis only do not match
	is.Equal(len(idx.Search(rect(0, 11, 10, 12), Edge)), 0)
}

func TestReplaceAndRemove(t *testing.T) {
	is := is.New(t)

	idx := New()
	idx.Insert(Face, 7, rect(0, 0, 1, 1))
	idx.Insert(Face, 7, rect(100, 100, 101, 101))
	is.Equal(idx.Len(), 1)
	is.Equal(len(idx.Search(rect(0, 0, 1, 1), Face)), 0)
	is.Equal(idx.Search(rect(100, 100, 100.5, 100.5), Face), []int64{7})

	box, ok := idx.Box(Face, 7)
	is.True(ok)
	is.Equal(box, rect(100, 100, 101, 101))

	idx.Remove(Face, 7)
	is.Equal(idx.Len(), 0)
	is.Equal(len(idx.Search(rect(0, 0, 1000, 1000), Face)), 0)

	// Removing twice is harmless
	idx.Remove(Face, 7)
}

func TestSortable(t *testing.T) {
	is := is.New(t)

	values := []float64{-1e300, -2.5, -1, -1e-300, 0, 1e-300, 0.5, 1, 3, 1e300}
	for i := 0; i+1 < len(values); i++ {
		is.True(sortable(values[i]) < sortable(values[i+1]))
	}
	is.Equal(sortable(0), sortable(math.Copysign(0, -1)))
}
