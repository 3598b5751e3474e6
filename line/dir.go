package line

import (
	"fmt"

	"github.com/golangplus/errors"

	"github.com/MlronGaskov/mapreduce"
)

/*
	A folder of line files whose names are generated from a fmt pattern and
	the indices of the file, e.g. "output-%d.txt".
*/
type Dir struct {
	mapreduce.FsPath
	Pattern string
}

// File returns the FsPath of the file with the specified indices.
func (d Dir) File(indices ...interface{}) mapreduce.FsPath {
	return d.Join(fmt.Sprintf(d.Pattern, indices...))
}

// Collector creates the folder if necessary and returns a *Writer of the
// file with the specified indices.
func (d Dir) Collector(indices ...interface{}) (*Writer, error) {
	if err := d.Mkdir(0755); err != nil {
		return nil, errorsp.WithStacks(err)
	}
	return NewWriter(d.File(indices...))
}

// Clean removes the folder.
func (d Dir) Clean() error {
	return errorsp.WithStacks(d.Remove())
}
