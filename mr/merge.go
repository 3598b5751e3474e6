package mr

import (
	"container/heap"
	"io"

	"github.com/golangplus/errors"

	"github.com/MlronGaskov/mapreduce"
	"github.com/MlronGaskov/mapreduce/line"
)

// Record is a decoded key/value pair.
type Record[K, V any] struct {
	Key K
	Val V
}

// mergeSource is the cursor of one sorted input of a Merger: its open reader
// and the decoded record at its head.
type mergeSource[K, V any] struct {
	index  int
	fp     mapreduce.FsPath
	reader *line.Reader
	head   Record[K, V]
}

type mergeHeap[K, V any] struct {
	sources []*mergeSource[K, V]
	cmp     mapreduce.Comparator[K]
}

func (h *mergeHeap[K, V]) Len() int {
	return len(h.sources)
}

// Ties are broken by source index, which keeps a merge deterministic.
func (h *mergeHeap[K, V]) Less(i, j int) bool {
	a, b := h.sources[i], h.sources[j]
	if c := h.cmp(a.head.Key, b.head.Key); c != 0 {
		return c < 0
	}
	return a.index < b.index
}

func (h *mergeHeap[K, V]) Swap(i, j int) {
	h.sources[i], h.sources[j] = h.sources[j], h.sources[i]
}

func (h *mergeHeap[K, V]) Push(x interface{}) {
	h.sources = append(h.sources, x.(*mergeSource[K, V]))
}

func (h *mergeHeap[K, V]) Pop() interface{} {
	last := h.sources[len(h.sources)-1]
	h.sources[len(h.sources)-1] = nil
	h.sources = h.sources[:len(h.sources)-1]
	return last
}

// Merger merges sorted line files into one stream of records sorted by key.
// At most one record per input is buffered and every input is closed as soon
// as it is exhausted. Merger is not safe for concurrent use.
type Merger[K, V any] struct {
	heap   mergeHeap[K, V]
	keyDec mapreduce.Deserializer[K]
	valDec mapreduce.Deserializer[V]
	err    error
}

// NewMerger opens all files and reads the first record of each. Every file
// must be sorted by cmp.
func NewMerger[K, V any](files []mapreduce.FsPath, keyDec mapreduce.Deserializer[K],
	valDec mapreduce.Deserializer[V], cmp mapreduce.Comparator[K]) (*Merger[K, V], error) {

	m := &Merger[K, V]{
		heap: mergeHeap[K, V]{
			sources: make([]*mergeSource[K, V], 0, len(files)),
			cmp:     cmp,
		},
		keyDec: keyDec,
		valDec: valDec,
	}
	for i, fp := range files {
		reader, err := line.NewReader(fp)
		if err != nil {
			m.Close()
			return nil, err
		}
		src := &mergeSource[K, V]{index: i, fp: fp, reader: reader}
		ok, err := m.advance(src)
		if err != nil {
			m.Close()
			return nil, err
		}
		if ok {
			m.heap.sources = append(m.heap.sources, src)
		}
	}
	heap.Init(&m.heap)
	return m, nil
}

// advance reads the next record of src into its head. If false is returned,
// src is exhausted or failed and its reader has been closed.
func (m *Merger[K, V]) advance(src *mergeSource[K, V]) (bool, error) {
	key, val, err := src.reader.Next()
	if err == nil {
		if src.head.Key, err = m.keyDec(key); err != nil {
			err = errorsp.WithStacksAndMessage(err, "decoding key %q", key)
		} else if src.head.Val, err = m.valDec(val); err != nil {
			err = errorsp.WithStacksAndMessage(err, "decoding value %q of key %q", val, key)
		}
		if err == nil {
			return true, nil
		}
	}
	closeErr := src.reader.Close()
	if err == io.EOF {
		return false, closeErr
	}
	return false, errorsp.WithStacksAndMessage(err, "merging %v failed", src.fp)
}

// HasNext returns true if a record is available.
func (m *Merger[K, V]) HasNext() bool {
	return m.err == nil && len(m.heap.sources) > 0
}

// Peek returns the next record without consuming it. The second result is false
// if no record is available.
func (m *Merger[K, V]) Peek() (Record[K, V], bool) {
	if !m.HasNext() {
		return Record[K, V]{}, false
	}
	return m.heap.sources[0].head, true
}

// Next consumes and returns the record with the smallest key. io.EOF is
// returned when all inputs are exhausted. Any other error fails the merge
// permanently and is returned by every following call.
func (m *Merger[K, V]) Next() (Record[K, V], error) {
	if m.err != nil {
		return Record[K, V]{}, m.err
	}
	if len(m.heap.sources) == 0 {
		return Record[K, V]{}, io.EOF
	}
	src := m.heap.sources[0]
	rec := src.head
	ok, err := m.advance(src)
	if ok {
		heap.Fix(&m.heap, 0)
	} else {
		heap.Pop(&m.heap)
	}
	if err != nil {
		m.err = err
		return Record[K, V]{}, err
	}
	return rec, nil
}

// Err returns the error that failed the merge, if any.
func (m *Merger[K, V]) Err() error {
	return m.err
}

// io.Closer interface. Closes the inputs not yet exhausted.
func (m *Merger[K, V]) Close() error {
	var err error
	for _, src := range m.heap.sources {
		if e := src.reader.Close(); e != nil && err == nil {
			err = e
		}
	}
	m.heap.sources = nil
	return err
}
