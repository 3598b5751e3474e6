package mr

import (
	"cmp"
	"fmt"
	"io"
	"math/rand"
	"path/filepath"
	"sort"
	"testing"

	"github.com/golangplus/errors"
	"github.com/golangplus/testing/assert"

	"github.com/MlronGaskov/mapreduce"
)

func fruitSources(t *testing.T) []mapreduce.FsPath {
	dir := t.TempDir()
	return []mapreduce.FsPath{
		writeFile(t, dir, "sorted_file_1.txt", "apple 1\napple 2\napple 3\nbanana 2\nbanana 2\nbanana 2\ncherry 3\n"),
		writeFile(t, dir, "sorted_file_2.txt", "apricot 1\nblueberry 2\ndate 3\n"),
		writeFile(t, dir, "sorted_file_3.txt", "a 1\ny 2\nz 3\n"),
	}
}

func TestMerger(t *testing.T) {
	m, err := NewMerger(fruitSources(t), mapreduce.StringCodec.Deserialize,
		mapreduce.StringCodec.Deserialize, cmp.Compare[string])
	if !assert.NoError(t, err) {
		return
	}
	defer m.Close()

	var keys []string
	for m.HasNext() {
		peeked, ok := m.Peek()
		assert.True(t, "Peek", ok)
		rec, err := m.Next()
		if !assert.NoError(t, err) {
			return
		}
		assert.Equal(t, "Peek == Next", rec, peeked)
		keys = append(keys, rec.Key)
	}
	assert.Equal(t, "keys", keys, []string{
		"a", "apple", "apple", "apple", "apricot", "banana", "banana",
		"banana", "blueberry", "cherry", "date", "y", "z",
	})
	_, err = m.Next()
	assert.Equal(t, "Next after end", err, io.EOF)
	_, ok := m.Peek()
	assert.True(t, "Peek after end", !ok)
	assert.NoError(t, m.Err())
}

func TestMerger_Random(t *testing.T) {
	dir := t.TempDir()
	rnd := rand.New(rand.NewSource(42))
	var files []mapreduce.FsPath
	var exp []string
	for i := 0; i < 7; i++ {
		var keys []int
		// some sources are empty
		for j := rnd.Intn(4) * rnd.Intn(40); j > 0; j-- {
			keys = append(keys, rnd.Intn(100)-50)
		}
		sort.Ints(keys)
		content := ""
		for j, k := range keys {
			content += fmt.Sprintf("%d %d-%d\n", k, i, j)
			exp = append(exp, fmt.Sprintf("%d %d-%d", k, i, j))
		}
		files = append(files, writeFile(t, dir, fmt.Sprintf("src-%d.txt", i), content))
	}

	m, err := NewMerger(files, mapreduce.IntCodec.Deserialize,
		mapreduce.StringCodec.Deserialize, cmp.Compare[int])
	if !assert.NoError(t, err) {
		return
	}
	defer m.Close()

	var act []string
	prev := -1000
	for m.HasNext() {
		rec, err := m.Next()
		if !assert.NoError(t, err) {
			return
		}
		assert.True(t, fmt.Sprintf("%d >= %d", rec.Key, prev), rec.Key >= prev)
		prev = rec.Key
		act = append(act, fmt.Sprintf("%d %s", rec.Key, rec.Val))
	}
	sort.Strings(act)
	sort.Strings(exp)
	assert.Equal(t, "multiset", act, exp)
}

func TestMerger_DecodeError(t *testing.T) {
	dir := t.TempDir()
	files := []mapreduce.FsPath{
		writeFile(t, dir, "good.txt", "1 a\n2 b\n"),
		writeFile(t, dir, "bad.txt", "1 c\nx d\n"),
	}
	m, err := NewMerger(files, mapreduce.IntCodec.Deserialize,
		mapreduce.StringCodec.Deserialize, cmp.Compare[int])
	if !assert.NoError(t, err) {
		return
	}
	defer m.Close()

	rec, err := m.Next()
	assert.NoError(t, err)
	assert.Equal(t, "first", rec, Record[int, string]{1, "a"})
	// refilling "bad.txt" fails
	_, err = m.Next()
	assert.Equal(t, "cause", errorsp.Cause(err), mapreduce.ErrBadFormat)
	assert.True(t, "HasNext after failure", !m.HasNext())
	_, err = m.Next()
	assert.Equal(t, "sticky", errorsp.Cause(err), mapreduce.ErrBadFormat)
	assert.Equal(t, "Err", errorsp.Cause(m.Err()), mapreduce.ErrBadFormat)
}

func TestMerger_BadHead(t *testing.T) {
	dir := t.TempDir()
	files := []mapreduce.FsPath{
		writeFile(t, dir, "good.txt", "1 a\n"),
		writeFile(t, dir, "bad.txt", "novalue\n"),
	}
	_, err := NewMerger(files, mapreduce.IntCodec.Deserialize,
		mapreduce.StringCodec.Deserialize, cmp.Compare[int])
	assert.Equal(t, "cause", errorsp.Cause(err), mapreduce.ErrBadFormat)

	_, err = NewMerger([]mapreduce.FsPath{mapreduce.LocalFsPath(filepath.Join(dir, "missing.txt"))},
		mapreduce.IntCodec.Deserialize, mapreduce.StringCodec.Deserialize, cmp.Compare[int])
	assert.True(t, "missing file", err != nil)
}

func TestMerger_NoSources(t *testing.T) {
	m, err := NewMerger[string, string](nil, mapreduce.StringCodec.Deserialize,
		mapreduce.StringCodec.Deserialize, cmp.Compare[string])
	assert.NoError(t, err)
	assert.True(t, "HasNext", !m.HasNext())
	assert.NoError(t, m.Close())
}
