package mr

import (
	"github.com/MlronGaskov/mapreduce"
)

// Line is one line of an input file handed to a Mapper.
type Line struct {
	// The input file the line comes from.
	File string
	// The text of the line without its line break.
	Text string
}

// LineIterator returns the lines of a shard in file-then-line order. io.EOF is
// returned after the last line.
type LineIterator interface {
	Next() (Line, error)
}

// An iterator for fetching the values of one key group. If io.EOF is returned
// as the error, no further values of the group are available.
type ValueIterator[V any] func() (V, error)

// The mapping stage of a Job.
type Mapper[K, V any] interface {
	// Map consumes all lines of one shard and emits intermediate pairs to c.
	// It is invoked exactly once per shard.
	Map(in LineIterator, c mapreduce.Collector[K, V]) error
}

// The reducing stage of a Job.
type Reducer[K, V, KO, VO any] interface {
	// Reduce is invoked once for every distinct key of a partition. To get all
	// values:
	//   for {
	//     val, err := nextVal()
	//     if err == io.EOF {
	//       break
	//     }
	//     if err != nil {
	//       return err
	//     }
	//     ...
	//   }
	// The order of values is unspecified. Values not fetched before Reduce
	// returns are skipped, and nextVal must not be called after that.
	Reduce(key K, nextVal ValueIterator[V], c mapreduce.Collector[KO, VO]) error
	// ReduceEnd is invoked after all keys of a partition are reduced, also for
	// an empty partition.
	ReduceEnd(c mapreduce.Collector[KO, VO]) error
}
