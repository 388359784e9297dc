// Package simplify merges chains of lines that share end points.
package simplify

func reverse[T comparable](s []T) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}

func closed[T comparable](s []T) bool {
	return len(s) > 1 && s[0] == s[len(s)-1]
}

// join tries to attach b to either end of a, reversing b when needed.
func join[T comparable](a, b []T) ([]T, bool) {
	start, end := a[0], a[len(a)-1]
	start2, end2 := b[0], b[len(b)-1]

	switch {
	case end == start2:
		return append(a, b[1:]...), true
	case end == end2:
		reverse(b)
		return append(a, b[1:]...), true
	case start == start2:
		reverse(b)
		return append(b[:len(b)-1], a...), true
	case start == end2:
		return append(b[:len(b)-1], a...), true
	}
	return a, false
}

// Reduce joins lines that share an end point into longer lines. Lines may be
// reversed to make them fit. Closed lines are never extended.
func Reduce[T comparable](in [][]T) [][]T {
	out := make([][]T, 0, len(in))
	for _, line := range in {
		if len(line) > 0 {
			out = append(out, line)
		}
	}

	// Keep going until a full pass finds nothing to join
	for changed := true; changed; {
		changed = false
		for i := 0; i < len(out) && !changed; i++ {
			if closed(out[i]) {
				continue
			}
			for j := 0; j < len(out); j++ {
				if i == j || closed(out[j]) {
					continue
				}
				if line, ok := join(out[i], out[j]); ok {
					out[i] = line
					out = append(out[:j], out[j+1:]...)
					changed = true
					break
				}
			}
		}
	}
	return out
}
