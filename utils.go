package mapreduce

import (
	"io"
)

// Collector receives key/value pairs, e.g. the emit callback of a mapper or
// a reducer.
type Collector[K, V any] interface {
	Collect(key K, val V) error
}

// A func type implementing Collector interface.
// A nil func is a no-op Collector.
type CollectorF[K, V any] func(key K, val V) error

// Collector interface.
func (c CollectorF[K, V]) Collect(key K, val V) error {
	if c == nil {
		return nil
	}
	return c(key, val)
}

// CloseAll closes every closer and returns the first error.
func CloseAll[C io.Closer](closers []C) (err error) {
	for _, c := range closers {
		if e := c.Close(); e != nil && err == nil {
			err = e
		}
	}
	return err
}
