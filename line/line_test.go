package line

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/golangplus/errors"
	"github.com/golangplus/testing/assert"

	"github.com/MlronGaskov/mapreduce"
)

func TestReaderWriter(t *testing.T) {
	fn := mapreduce.LocalFsPath(filepath.Join(t.TempDir(), "test.txt"))

	keys := []string{
		"abc", "def", "empty",
	}
	vals := []string{
		"2", "2013 and more words", "",
	}

	writer, err := NewWriter(fn)
	assert.NoError(t, err)

	for i, key := range keys {
		assert.NoError(t, writer.Collect(key, vals[i]))
	}
	assert.NoError(t, writer.Close())
	assert.NoError(t, writer.Close())
	assert.True(t, "collect after close fails", writer.Collect("k", "v") != nil)

	reader, err := NewReader(fn)
	assert.NoError(t, err)

	for i := 0; ; i++ {
		key, val, err := reader.Next()
		if err == io.EOF {
			assert.Equal(t, "count", i, len(keys))
			break
		}
		assert.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("key[%d]", i), key, keys[i])
		assert.Equal(t, fmt.Sprintf("val[%d]", i), val, vals[i])
	}

	assert.NoError(t, reader.Close())
}

func TestWriter_BadRecords(t *testing.T) {
	fn := mapreduce.LocalFsPath(filepath.Join(t.TempDir(), "bad.txt"))
	writer, err := NewWriter(fn)
	assert.NoError(t, err)
	defer writer.Close()

	assert.Equal(t, "empty key", errorsp.Cause(writer.Collect("", "v")), mapreduce.ErrBadKey)
	assert.Equal(t, "key with space", errorsp.Cause(writer.Collect("a b", "v")), mapreduce.ErrBadKey)
	assert.Equal(t, "value with newline", errorsp.Cause(writer.Collect("a", "v\nw")), mapreduce.ErrBadKey)
	// leading whitespace of a value would be lost when reading it back
	assert.Equal(t, "indented value", errorsp.Cause(writer.Collect("k", "  indented text")), mapreduce.ErrBadKey)
	assert.Equal(t, "tab-indented value", errorsp.Cause(writer.Collect("k", "\tx")), mapreduce.ErrBadKey)
}

func TestReader_Formats(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "raw.txt")
	assert.NoError(t, os.WriteFile(fn, []byte("a 1\r\nb\t\t2 3\nc 4"), 0644))

	reader, err := NewReader(mapreduce.LocalFsPath(fn))
	assert.NoError(t, err)
	defer reader.Close()

	var got []string
	for {
		key, val, err := reader.Next()
		if err == io.EOF {
			break
		}
		if !assert.NoError(t, err) {
			return
		}
		got = append(got, key+"="+val)
	}
	assert.Equal(t, "records", got, []string{"a=1", "b=2 3", "c=4"})
}

func TestReader_BadFormat(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "raw.txt")
	assert.NoError(t, os.WriteFile(fn, []byte("a 1\nnovalue\n"), 0644))

	reader, err := NewReader(mapreduce.LocalFsPath(fn))
	assert.NoError(t, err)
	defer reader.Close()

	_, _, err = reader.Next()
	assert.NoError(t, err)
	_, _, err = reader.Next()
	assert.Equal(t, "cause", errorsp.Cause(err), mapreduce.ErrBadFormat)

	_, _, _, _, _, err = ReadAsByteOffs(mapreduce.LocalFsPath(fn))
	assert.Equal(t, "cause", errorsp.Cause(err), mapreduce.ErrBadFormat)
}

func TestByteOffs(t *testing.T) {
	fn := mapreduce.LocalFsPath(filepath.Join(t.TempDir(), "offs.txt"))
	writer, err := NewWriter(fn)
	assert.NoError(t, err)
	assert.NoError(t, writer.Collect("b", "2"))
	assert.NoError(t, writer.Collect("a", "1 one"))
	assert.NoError(t, writer.Collect("c", ""))
	assert.NoError(t, writer.Close())

	buf, keyOffs, keyEnds, valOffs, valEnds, err := ReadAsByteOffs(fn)
	assert.NoError(t, err)
	assert.Equal(t, "len(keyOffs)", len(keyOffs), 3)
	assert.Equal(t, "key[1]", string(buf[keyOffs[1]:keyEnds[1]]), "a")
	assert.Equal(t, "val[1]", string(buf[valOffs[1]:valEnds[1]]), "1 one")
	assert.Equal(t, "val[2]", string(buf[valOffs[2]:valEnds[2]]), "")

	assert.NoError(t, WriteByteOffs(fn, buf, keyOffs, keyEnds, valOffs, valEnds, []int{1, 0, 2}))
	data, err := os.ReadFile(fn.Path)
	assert.NoError(t, err)
	assert.Equal(t, "rewritten", string(data), "a 1 one\nb 2\nc \n")

	assert.True(t, "mismatched order", WriteByteOffs(fn, buf, keyOffs, keyEnds, valOffs, valEnds, []int{0}) != nil)
}

func TestDir(t *testing.T) {
	d := Dir{
		FsPath:  mapreduce.LocalFsPath(filepath.Join(t.TempDir(), "sub", "dir")),
		Pattern: "mapper-output-%d-%d.txt",
	}
	assert.Equal(t, "file", filepath.Base(d.File(1, 2).Path), "mapper-output-1-2.txt")

	w, err := d.Collector(0, 3)
	assert.NoError(t, err)
	assert.NoError(t, w.Collect("k", "v"))
	assert.NoError(t, w.Close())

	r, err := NewReader(d.File(0, 3))
	assert.NoError(t, err)
	key, val, err := r.Next()
	assert.NoError(t, err)
	assert.Equal(t, "key", key, "k")
	assert.Equal(t, "val", val, "v")
	assert.NoError(t, r.Close())

	assert.NoError(t, d.Clean())
	_, err = os.Stat(d.Path)
	assert.True(t, "removed", os.IsNotExist(err))
}
