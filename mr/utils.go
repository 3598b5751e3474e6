package mr

import (
	"github.com/MlronGaskov/mapreduce"
)

// A func type implementing Mapper interface.
// A nil func maps nothing.
type MapperF[K, V any] func(in LineIterator, c mapreduce.Collector[K, V]) error

// Mapper interface
func (f MapperF[K, V]) Map(in LineIterator, c mapreduce.Collector[K, V]) error {
	if f == nil {
		return nil
	}
	return f(in, c)
}

// A struct implementing Reducer interface by funcs.
type ReducerStruct[K, V, KO, VO any] struct {
	ReduceF    func(key K, nextVal ValueIterator[V], c mapreduce.Collector[KO, VO]) error
	ReduceEndF func(c mapreduce.Collector[KO, VO]) error
}

// Reducer interface
func (rs *ReducerStruct[K, V, KO, VO]) Reduce(key K, nextVal ValueIterator[V],
	c mapreduce.Collector[KO, VO]) error {

	if rs.ReduceF != nil {
		return rs.ReduceF(key, nextVal, c)
	}
	return nil
}

// Reducer interface
func (rs *ReducerStruct[K, V, KO, VO]) ReduceEnd(c mapreduce.Collector[KO, VO]) error {
	if rs.ReduceEndF != nil {
		return rs.ReduceEndF(c)
	}
	return nil
}
