package mr

import (
	"sort"

	"github.com/golangplus/errors"

	"github.com/daviddengcn/go-villa"

	"github.com/MlronGaskov/mapreduce"
	"github.com/MlronGaskov/mapreduce/line"
)

// keySorter sorts a permutation of decoded keys.
type keySorter[K any] struct {
	keys  []K
	order villa.IntSlice
	cmp   mapreduce.Comparator[K]
}

func (ks *keySorter[K]) Len() int {
	return len(ks.order)
}

func (ks *keySorter[K]) Less(i, j int) bool {
	return ks.cmp(ks.keys[ks.order[i]], ks.keys[ks.order[j]]) < 0
}

func (ks *keySorter[K]) Swap(i, j int) {
	ks.order.Swap(i, j)
}

// SortFile sorts the records of a spill file by key, in place. Keys are
// deserialized and compared with cmp, the same ordering Merger uses. Records
// with equal keys keep their relative order. The whole file is loaded into
// memory.
func SortFile[K any](fp mapreduce.FsPath, keyDec mapreduce.Deserializer[K], cmp mapreduce.Comparator[K]) error {
	buffer, keyOffs, keyEnds, valOffs, valEnds, err := line.ReadAsByteOffs(fp)
	if err != nil {
		return err
	}

	ks := &keySorter[K]{
		keys:  make([]K, len(keyOffs)),
		order: make(villa.IntSlice, len(keyOffs)),
		cmp:   cmp,
	}
	for i := range keyOffs {
		key := string(buffer[keyOffs[i]:keyEnds[i]])
		if ks.keys[i], err = keyDec(key); err != nil {
			return errorsp.WithStacksAndMessage(err, "decoding key %q of %v failed", key, fp)
		}
		ks.order[i] = i
	}
	sort.Stable(ks)

	return line.WriteByteOffs(fp, buffer, keyOffs, keyEnds, valOffs, valEnds, ks.order)
}
