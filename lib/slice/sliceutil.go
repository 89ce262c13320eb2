package sliceutil

func Map[From any, To any](v []From, f func(From) To) []To {
	out := make([]To, len(v))
	for idx := 0; idx < len(v); idx++ {
		out[idx] = f(v[idx])
	}
	return out
}

// FlatMap concatenates f of every element, keeping order.
func FlatMap[From any, To any](v []From, f func(From) []To) []To {
	var out []To
	for idx := 0; idx < len(v); idx++ {
		out = append(out, f(v[idx])...)
	}
	return out
}

func Filter[T any](v []T, keep func(T) bool) []T {
	var out []T
	for _, e := range v {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
