/*
Package line supports reading and writing the record files of the engine,
which store one key-value pair per line.

Line file format:
  key <whitespace> value \n

Keys never contain whitespace, values never contain line breaks. A reader
splits every line on its first whitespace run.
*/
package line

import (
	"io"
	"strings"

	"github.com/golangplus/bytes"
	"github.com/golangplus/errors"

	"github.com/daviddengcn/go-villa"

	"github.com/MlronGaskov/mapreduce"
)

// line.Writer is a struct for generating a line file.
// *line.Writer implements mapreduce.Collector[string, string] and io.Closer.
type Writer struct {
	writer mapreduce.WriteCloser
	objBuf bytesp.Slice
	closed bool
}

// NewWriter returns a *line.Writer creating (or truncating) the file at the
// specified FsPath.
func NewWriter(fp mapreduce.FsPath) (*Writer, error) {
	writer, err := fp.Fs.Create(fp.Path)
	if err != nil {
		return nil, errorsp.WithStacksAndMessage(err, "create %v failed", fp)
	}

	return &Writer{
		writer: writer,
	}, nil
}

// io.Closer interface. Close flushes the buffered lines. Calls after the
// first one are no-ops.
func (lw *Writer) Close() error {
	if lw.closed {
		return nil
	}
	lw.closed = true
	return errorsp.WithStacks(lw.writer.Close())
}

// mapreduce.Collector interface
func (lw *Writer) Collect(key, val string) error {
	if lw.closed {
		return errorsp.NewWithStacks("collecting to a closed line.Writer")
	}
	if err := mapreduce.ValidKey(key); err != nil {
		return err
	}
	if err := mapreduce.ValidValue(val); err != nil {
		return err
	}
	lw.objBuf.Reset()
	lw.objBuf = appendLine(lw.objBuf, key, val)
	if _, err := lw.writer.Write([]byte(lw.objBuf)); err != nil {
		return errorsp.WithStacks(err)
	}
	return nil
}

func appendLine(buf bytesp.Slice, key, val string) bytesp.Slice {
	buf = append(buf, key...)
	buf = append(buf, ' ')
	buf = append(buf, val...)
	return append(buf, '\n')
}

// line.Reader is a struct for reading a line file forward only.
type Reader struct {
	reader mapreduce.ReadCloser
	lineNo int
}

// NewReader returns a *Reader for reading the line file at the specified
// FsPath.
func NewReader(fp mapreduce.FsPath) (*Reader, error) {
	reader, err := fp.Fs.Open(fp.Path)
	if err != nil {
		return nil, errorsp.WithStacksAndMessage(err, "open %v failed", fp)
	}
	return &Reader{
		reader: reader,
	}, nil
}

// io.Closer interface
func (lr *Reader) Close() error {
	return errorsp.WithStacks(lr.reader.Close())
}

// Next fetches the next key/val pair. io.EOF is returned after the last one.
func (lr *Reader) Next() (key, val string, err error) {
	l, err := lr.reader.ReadString('\n')
	if err != nil {
		if err != io.EOF {
			return "", "", errorsp.WithStacks(err)
		}
		if l == "" {
			return "", "", io.EOF
		}
		// last line without a trailing newline
	}
	lr.lineNo++
	l = strings.TrimSuffix(strings.TrimSuffix(l, "\n"), "\r")
	key, val, err = mapreduce.SplitRecord(l)
	if err != nil {
		return "", "", errorsp.WithStacksAndMessage(err, "line %d", lr.lineNo)
	}
	return key, val, nil
}

// ReadAsByteOffs reads a line file as a slice of buffer and some int slices
// of key offsets, key ends, value offsets, and value ends.
func ReadAsByteOffs(fp mapreduce.FsPath) (buffer bytesp.Slice, keyOffs, keyEnds, valOffs, valEnds villa.IntSlice, err error) {
	fi, err := fp.Stat()
	if err != nil {
		return nil, nil, nil, nil, nil, errorsp.WithStacks(err)
	}

	reader, err := fp.Open()
	if err != nil {
		return nil, nil, nil, nil, nil, errorsp.WithStacks(err)
	}
	defer reader.Close()

	buffer = make(bytesp.Slice, 0, fi.Size())
	for lineNo := 1; ; lineNo++ {
		l, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, nil, nil, nil, nil, errorsp.WithStacks(err)
		}
		if l == "" {
			break
		}
		l = strings.TrimSuffix(strings.TrimSuffix(l, "\n"), "\r")
		key, val, e := mapreduce.SplitRecord(l)
		if e != nil {
			return nil, nil, nil, nil, nil, errorsp.WithStacksAndMessage(e, "%v line %d", fp, lineNo)
		}
		keyOffs.Add(len(buffer))
		buffer = append(buffer, key...)
		keyEnds.Add(len(buffer))
		valOffs.Add(len(buffer))
		buffer = append(buffer, val...)
		valEnds.Add(len(buffer))
		if err == io.EOF {
			break
		}
	}
	return buffer, keyOffs, keyEnds, valOffs, valEnds, nil
}

// WriteByteOffs generates a line file with key-value pairs represented as a
// slice of buffer and some int slices of key offsets, key ends, value offsets,
// and value ends. The pairs are written in the order of order, or in their
// natural order if order is nil.
func WriteByteOffs(fp mapreduce.FsPath, buffer []byte, keyOffs, keyEnds, valOffs, valEnds, order []int) error {
	if len(keyOffs) != len(keyEnds) || len(keyOffs) != len(valOffs) || len(keyOffs) != len(valEnds) {
		return errorsp.NewWithStacks("length of keyOffs(%d), keyEnds(%d), valOffs(%d) and valEnds(%d) must be the same",
			len(keyOffs), len(keyEnds), len(valOffs), len(valEnds))
	}
	if order != nil && len(order) != len(keyOffs) {
		return errorsp.NewWithStacks("length of order(%d) must be %d", len(order), len(keyOffs))
	}
	writer, err := fp.Create()
	if err != nil {
		return errorsp.WithStacks(err)
	}

	var buf bytesp.Slice
	for i := range keyOffs {
		if order != nil {
			i = order[i]
		}
		buf.Reset()
		buf = append(buf, buffer[keyOffs[i]:keyEnds[i]]...)
		buf = append(buf, ' ')
		buf = append(buf, buffer[valOffs[i]:valEnds[i]]...)
		buf = append(buf, '\n')
		if _, err := writer.Write([]byte(buf)); err != nil {
			writer.Close()
			return errorsp.WithStacks(err)
		}
	}
	return errorsp.WithStacks(writer.Close())
}
