package mapreduce

import (
	"bufio"
	"io"
	"os"

	"github.com/daviddengcn/go-villa"
	"github.com/golangplus/errors"
)

// FileSystem is the set of file operations the engine needs. LocalFS is the
// only implementation shipped, tests may supply others.
type FileSystem interface {
	Create(fn string) (WriteCloser, error)
	Mkdir(path string, perm os.FileMode) error
	Open(fn string) (ReadCloser, error)
	Stat(fn string) (os.FileInfo, error)
	Remove(fn string) error
}

// Reader is a buffered, forward-only reader of text lines.
type Reader interface {
	io.Reader
	io.ByteReader
	ReadString(delim byte) (string, error)
}

type ReadCloser interface {
	Reader
	io.Closer
}

type Writer interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
}

// WriteCloser flushes any buffered data on Close.
type WriteCloser interface {
	Writer
	io.Closer
}

type BufferedFileWriter struct {
	file *os.File
	*bufio.Writer
}

func (b BufferedFileWriter) Close() error {
	if err := b.Flush(); err != nil {
		b.file.Close()
		return err
	}
	return b.file.Close()
}

type BufferedFileReader struct {
	file *os.File
	*bufio.Reader
}

func (b BufferedFileReader) Close() error {
	return b.file.Close()
}

type localFileSystem struct {
}

var (
	LocalFS FileSystem = localFileSystem{}
)

func (lfs localFileSystem) Create(fn string) (WriteCloser, error) {
	file, err := villa.Path(fn).Create()
	if err != nil {
		return nil, errorsp.WithStacks(err)
	}
	return BufferedFileWriter{
		file:   file,
		Writer: bufio.NewWriter(file),
	}, nil
}

func (lfs localFileSystem) Open(fn string) (ReadCloser, error) {
	file, err := villa.Path(fn).Open()
	if err != nil {
		return nil, errorsp.WithStacks(err)
	}
	return BufferedFileReader{
		file:   file,
		Reader: bufio.NewReader(file),
	}, nil
}

func (lfs localFileSystem) Mkdir(path string, perm os.FileMode) error {
	return errorsp.WithStacks(villa.Path(path).MkdirAll(perm))
}

func (lfs localFileSystem) Stat(fn string) (os.FileInfo, error) {
	fi, err := villa.Path(fn).Stat()
	return fi, errorsp.WithStacks(err)
}

func (lfs localFileSystem) Remove(fn string) error {
	return errorsp.WithStacks(villa.Path(fn).RemoveAll())
}

// FsPath is a path on a specific FileSystem.
type FsPath struct {
	Fs   FileSystem
	Path string
}

// LocalFsPath returns an FsPath on LocalFS.
func LocalFsPath(path string) FsPath {
	return FsPath{
		Fs:   LocalFS,
		Path: path,
	}
}

func (fp FsPath) Create() (WriteCloser, error) {
	return fp.Fs.Create(fp.Path)
}

func (fp FsPath) Open() (ReadCloser, error) {
	return fp.Fs.Open(fp.Path)
}
func (fp FsPath) Mkdir(perm os.FileMode) error {
	return fp.Fs.Mkdir(fp.Path, perm)
}
func (fp FsPath) Stat() (os.FileInfo, error) {
	return fp.Fs.Stat(fp.Path)
}
func (fp FsPath) Remove() error {
	return fp.Fs.Remove(fp.Path)
}

func (fp FsPath) Join(sub string) FsPath {
	return FsPath{
		Fs:   fp.Fs,
		Path: string(villa.Path(fp.Path).Join(sub)),
	}
}

func (fp FsPath) String() string {
	return fp.Path
}
