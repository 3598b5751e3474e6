package mr

import (
	"io"

	"github.com/golangplus/errors"

	"github.com/MlronGaskov/mapreduce"
)

type groupState int

const (
	awaitingGroup groupState = iota
	emittingGroup
	groupsDone
)

// Grouper splits the sorted stream of a Merger into groups of consecutive
// records with equal keys. Keys are equal if cmp returns 0.
//
// A group stays valid until the next call of NextGroup, which first skips the
// values of the current group not fetched yet.
type Grouper[K, V any] struct {
	merger *Merger[K, V]
	cmp    mapreduce.Comparator[K]

	state groupState
	key   K
	// generation of the current group, to detect stale ValueIterators
	gen int
	// whether all values of the current group are fetched
	exhausted bool
}

func NewGrouper[K, V any](merger *Merger[K, V], cmp mapreduce.Comparator[K]) *Grouper[K, V] {
	return &Grouper[K, V]{
		merger: merger,
		cmp:    cmp,
	}
}

// NextGroup returns the key and the value iterator of the next group. io.EOF
// is returned if no more groups are available.
func (g *Grouper[K, V]) NextGroup() (K, ValueIterator[V], error) {
	var zero K
	if g.state == emittingGroup {
		if err := g.drain(); err != nil {
			return zero, nil, err
		}
		g.gen++
		g.state = awaitingGroup
	}
	if g.state == groupsDone {
		return zero, nil, io.EOF
	}

	rec, ok := g.merger.Peek()
	if !ok {
		if err := g.merger.Err(); err != nil {
			return zero, nil, err
		}
		g.state = groupsDone
		return zero, nil, io.EOF
	}
	g.state = emittingGroup
	g.key = rec.Key
	g.exhausted = false

	gen := g.gen
	return g.key, func() (V, error) {
		if gen != g.gen {
			var zero V
			return zero, errorsp.WithStacks(ErrGroupExpired)
		}
		return g.nextValue()
	}, nil
}

func (g *Grouper[K, V]) nextValue() (V, error) {
	var zero V
	if g.exhausted {
		return zero, io.EOF
	}
	rec, ok := g.merger.Peek()
	if !ok || g.cmp(rec.Key, g.key) != 0 {
		g.exhausted = true
		if err := g.merger.Err(); err != nil {
			return zero, err
		}
		return zero, io.EOF
	}
	if _, err := g.merger.Next(); err != nil {
		g.exhausted = true
		return zero, err
	}
	return rec.Val, nil
}

// drain skips the values of the current group the reducer did not fetch.
func (g *Grouper[K, V]) drain() error {
	for {
		if _, err := g.nextValue(); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}
