package cache

import (
	"sync"

	"golang.org/x/sync/singleflight"
)

// Once holds a value computed at most once for its lifetime. Concurrent
// first callers share a single computation; later callers get the stored value.
type Once[T any] struct {
	mu    sync.RWMutex
	done  bool
	value T
	group singleflight.Group
}

// Do returns the cached value, computing it with supplier on first use
func (o *Once[T]) Do(supplier func() T) T {
	if v, ok := o.load(); ok {
		return v
	}

	v, _, _ := o.group.Do("once", func() (any, error) {
		if v, ok := o.load(); ok {
			return v, nil
		}

		v := supplier()

		o.mu.Lock()
		o.value = v
		o.done = true
		o.mu.Unlock()
		return v, nil
	})
	return v.(T)
}

// Loaded reports whether the value has been computed
func (o *Once[T]) Loaded() bool {
	_, ok := o.load()
	return ok
}

func (o *Once[T]) load() (T, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.value, o.done
}
