package mr

import (
	"io"
	"strings"

	"github.com/golangplus/errors"

	"github.com/MlronGaskov/mapreduce"
)

// Shard is a contiguous range [Start, End) of the input files assigned to the
// mapper with the same Index.
type Shard struct {
	Index      int
	Start, End int
}

// SplitShards splits n ordered inputs into m contiguous shards whose sizes
// differ by at most one. Earlier shards take the remainder.
func SplitShards(n, m int) ([]Shard, error) {
	if m <= 0 {
		return nil, errorsp.WithStacksAndMessage(ErrConfig, "mappers count must be positive, got %d", m)
	}
	if n < m {
		return nil, errorsp.WithStacksAndMessage(ErrConfig, "%d input files are not enough for %d mappers", n, m)
	}
	size, rem := n/m, n%m
	shards := make([]Shard, 0, m)
	start := 0
	for i := 0; i < m; i++ {
		end := start + size
		if i < rem {
			end++
		}
		shards = append(shards, Shard{Index: i, Start: start, End: end})
		start = end
	}
	return shards, nil
}

// InputIterator implements LineIterator over a list of files. Files are opened
// one at a time, when the previous one is exhausted.
type InputIterator struct {
	files  []mapreduce.FsPath
	cur    int
	reader mapreduce.ReadCloser
}

func NewInputIterator(files []mapreduce.FsPath) *InputIterator {
	return &InputIterator{
		files: files,
	}
}

// LineIterator interface
func (it *InputIterator) Next() (Line, error) {
	for {
		if it.reader == nil {
			if it.cur >= len(it.files) {
				return Line{}, io.EOF
			}
			reader, err := it.files[it.cur].Open()
			if err != nil {
				return Line{}, errorsp.WithStacksAndMessage(err, "open input %v failed", it.files[it.cur])
			}
			it.reader = reader
		}

		text, err := it.reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return Line{}, errorsp.WithStacksAndMessage(err, "reading input %v failed", it.files[it.cur])
		}
		if text == "" && err == io.EOF {
			reader := it.reader
			it.reader = nil
			it.cur++
			if err := reader.Close(); err != nil {
				return Line{}, errorsp.WithStacks(err)
			}
			continue
		}
		text = strings.TrimSuffix(strings.TrimSuffix(text, "\n"), "\r")
		return Line{File: it.files[it.cur].Path, Text: text}, nil
	}
}

// io.Closer interface. Closes the currently open file, if any.
func (it *InputIterator) Close() error {
	if it.reader == nil {
		return nil
	}
	reader := it.reader
	it.reader = nil
	return errorsp.WithStacks(reader.Close())
}
