package value

// Equal reports whether a and b are structurally equal.
// A nil Array and an empty Array are equal, as are nil and Null.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case nil, Null:
		switch b.(type) {
		case nil, Null:
			return true
		}
		return false
	case String:
		y, ok := b.(String)
		return ok && x == y
	case Number:
		y, ok := b.(Number)
		return ok && x == y
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Object:
		y, ok := b.(Object)
		if !ok {
			return false
		}
		return equalMaps(x, y)
	}
	return false
}

// EqualRecords reports whether two records hold structurally equal values
// under the same keys.
func EqualRecords(a, b Record) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return equalMaps(a, b)
}

func equalMaps[M ~map[string]Value](a, b M) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !Equal(av, bv) {
			return false
		}
	}
	return true
}
