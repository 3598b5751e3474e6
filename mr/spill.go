package mr

import (
	"github.com/golangplus/errors"

	"github.com/MlronGaskov/mapreduce"
	"github.com/MlronGaskov/mapreduce/line"
)

// Partition maps a key hash, possibly negative, to a reducer index in
// [0, parts).
func Partition(hash, parts int) int {
	return (hash%parts + parts) % parts
}

// PartitionedWriter routes the pairs emitted by one mapper to the spill files
// of its reducers. *PartitionedWriter implements mapreduce.Collector and io.Closer.
type PartitionedWriter[K, V any] struct {
	writers []*line.Writer
	keyEnc  mapreduce.Serializer[K]
	valEnc  mapreduce.Serializer[V]
	hasher  mapreduce.KeyHasher[K]
	closed  bool
}

// NewPartitionedWriter creates (or truncates) the spill files of mapper for
// all reducers in dir.
func NewPartitionedWriter[K, V any](dir line.Dir, mapper, reducers int,
	keyEnc mapreduce.Serializer[K], valEnc mapreduce.Serializer[V],
	hasher mapreduce.KeyHasher[K]) (*PartitionedWriter[K, V], error) {

	if reducers <= 0 {
		return nil, errorsp.WithStacksAndMessage(ErrConfig, "reducers count must be positive, got %d", reducers)
	}
	writers := make([]*line.Writer, 0, reducers)
	for r := 0; r < reducers; r++ {
		w, err := dir.Collector(mapper, r)
		if err != nil {
			mapreduce.CloseAll(writers)
			return nil, errorsp.WithStacksAndMessage(err, "open spill file of mapper %d reducer %d failed", mapper, r)
		}
		writers = append(writers, w)
	}
	return &PartitionedWriter[K, V]{
		writers: writers,
		keyEnc:  keyEnc,
		valEnc:  valEnc,
		hasher:  hasher,
	}, nil
}

// mapreduce.Collector interface
func (pw *PartitionedWriter[K, V]) Collect(key K, val V) error {
	if pw.closed {
		return errorsp.WithStacks(ErrClosed)
	}
	part := Partition(pw.hasher(key), len(pw.writers))
	return pw.writers[part].Collect(pw.keyEnc(key), pw.valEnc(val))
}

// io.Closer interface. Flushes and closes all spill files. Only the first
// call does so, later calls return ErrClosed.
func (pw *PartitionedWriter[K, V]) Close() error {
	if pw.closed {
		return errorsp.WithStacks(ErrClosed)
	}
	pw.closed = true
	return mapreduce.CloseAll(pw.writers)
}
