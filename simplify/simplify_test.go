package simplify

import (
	"testing"

	"github.com/cheekybits/is"
	"github.com/golang/geo/r2"
)

func TestReduce(t *testing.T) {
	cases := []struct {
		name     string
		input    [][]int64
		expected [][]int64
	}{
		{"single coord", [][]int64{{1}}, [][]int64{{1}}},
		{"merge", [][]int64{{1, 2}, {2, 3}}, [][]int64{{1, 2, 3}}},
		{"bodies", [][]int64{{1, 2, 3}, {3, 4, 5}}, [][]int64{{1, 2, 3, 4, 5}}},
		{"multiple", [][]int64{{1, 2}, {2, 3}, {3, 4}}, [][]int64{{1, 2, 3, 4}}},
		{"order", [][]int64{{2, 3}, {3, 4}, {1, 2}}, [][]int64{{1, 2, 3, 4}}},
		{"circular", [][]int64{{1, 2}, {2, 3}, {3, 1}}, [][]int64{{1, 2, 3, 1}}},
		{"inverted", [][]int64{{1, 2}, {3, 2}, {3, 4}}, [][]int64{{1, 2, 3, 4}}},
		{"inverted bodies", [][]int64{{1, 2, 3}, {5, 4, 3}, {5, 6, 7}}, [][]int64{{1, 2, 3, 4, 5, 6, 7}}},
		{"separate", [][]int64{{1, 2}, {2, 3}, {4, 5}, {5, 6}}, [][]int64{{1, 2, 3}, {4, 5, 6}}},
		{"start", [][]int64{{1, 2, 3}, {1, 4, 5}}, [][]int64{{5, 4, 1, 2, 3}}},
		{"closed stays closed", [][]int64{{1, 2, 3, 1}, {1, 4}}, [][]int64{{1, 2, 3, 1}, {1, 4}}},
		{"drops empty", [][]int64{{}, {1, 2}}, [][]int64{{1, 2}}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			is := is.New(t)
			is.Equal(Reduce(c.input), c.expected)
		})
	}
}

func TestReducePoints(t *testing.T) {
	is := is.New(t)

	a := r2.Point{X: 0, Y: 0}
	b := r2.Point{X: 1, Y: 0}
	c := r2.Point{X: 1, Y: 1}
	out := Reduce([][]r2.Point{{c, b}, {a, b}})
	is.Equal(out, [][]r2.Point{{c, b, a}})
}

func BenchmarkSimplify(b *testing.B) {
	for n := 0; n < b.N; n++ {
		Reduce([][]int64{{1, 2, 3}, {3, 4, 5}})
	}
}
