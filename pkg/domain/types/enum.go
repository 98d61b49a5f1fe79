package types

import "strings"

type enum interface {
	~string
	IsValid() bool
}

// coerce parses s into an enum value. Unknown values are replaced by fallback
// and reported through the second return value instead of an error.
func coerce[T enum](s string, fallback T) (T, bool) {
	v := T(strings.TrimSpace(s))
	if v.IsValid() {
		return v, false
	}
	return fallback, true
}
