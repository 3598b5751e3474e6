/*
Package mr provides a single-machine MapReduce engine whose intermediate data
lives in line files on disk, so the input need not fit in memory.

A simple word count example is like this:

	job := Job[string, int, string, int]{
		NewMapperF: func(shard int) Mapper[string, int] {
			return MapperF[string, int](func(in LineIterator, c mapreduce.Collector[string, int]) error {
				for {
					l, err := in.Next()
					if err == io.EOF {
						return nil
					}
					if err != nil {
						return err
					}
					for _, word := range strings.Fields(l.Text) {
						if err := c.Collect(word, 1); err != nil {
							return err
						}
					}
				}
			})
		},
		NewReducerF: func(part int) Reducer[string, int, string, int] {
			return &ReducerStruct[string, int, string, int]{
				ReduceF: func(key string, nextVal ValueIterator[int],
					c mapreduce.Collector[string, int]) error {
					count := 0
					for {
						val, err := nextVal()
						if err == io.EOF {
							break
						}
						if err != nil {
							return err
						}
						count += val
					}
					return c.Collect(key, count)
				},
			}
		},
		KeyCodec: mapreduce.StringCodec,
		ValCodec: mapreduce.IntCodec,
		OutKey:   mapreduce.StringCodec.Serialize,
		OutVal:   mapreduce.IntCodec.Serialize,
		Hasher:   mapreduce.HashString,
		Compare:  cmp.Compare[string],

		MappersCount:  3,
		ReducersCount: 4,

		Inputs: []mapreduce.FsPath{...},
		OutDir: mapreduce.LocalFsPath("out"),
	}

	if err := job.Run(); err != nil {
		glog.Fatalf("job.Run failed: %v", err)
	}

Mappers write their output to M×R spill files, partitioned by key hash and
sorted by key. Each reducer merges its M spill files and reduces every key
group exactly once.
*/
package mr

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/golangplus/errors"
	"github.com/google/uuid"

	"github.com/MlronGaskov/mapreduce"
	"github.com/MlronGaskov/mapreduce/line"
)

var (
	// ErrConfig is the cause of errors about invalid Job settings.
	ErrConfig = errors.New("invalid job config")
	// ErrClosed is returned when collecting to a closed PartitionedWriter.
	ErrClosed = errors.New("collector closed")
	// ErrGroupExpired is returned by a ValueIterator used after its group
	// ended.
	ErrGroupExpired = errors.New("value iterator used after its group ended")
)

const (
	fmtSpill  = "mapper-output-%d-%d.txt"
	fmtOutput = "output-%d.txt"
)

// SpillDir returns the folder of spill files, which are named by mapper and
// reducer indices.
func SpillDir(fp mapreduce.FsPath) line.Dir {
	return line.Dir{FsPath: fp, Pattern: fmtSpill}
}

// OutputDir returns the folder of result files, which are named by reducer
// index.
func OutputDir(fp mapreduce.FsPath) line.Dir {
	return line.Dir{FsPath: fp, Pattern: fmtOutput}
}

// A Job maps the lines of its Inputs to intermediate kv pairs of type K and V,
// and reduces the values of every key to result pairs of type KO and VO.
type Job[K, V, KO, VO any] struct {
	// Creates the Mapper of a shard. Called once per shard.
	NewMapperF func(shard int) Mapper[K, V]
	// Creates the Reducer of a partition. Called once per partition, so a
	// Reducer may keep state for its partition and flush it in ReduceEnd.
	NewReducerF func(part int) Reducer[K, V, KO, VO]

	// Codecs of the intermediate pairs in the spill files.
	KeyCodec mapreduce.Codec[K]
	ValCodec mapreduce.Codec[V]
	// Serializers of the result pairs.
	OutKey mapreduce.Serializer[KO]
	OutVal mapreduce.Serializer[VO]

	// Selects the reducer of a key. Keys equal under Compare must have the
	// same hash.
	Hasher mapreduce.KeyHasher[K]
	// The ordering of keys used for sorting, merging and grouping.
	Compare mapreduce.Comparator[K]

	MappersCount  int
	ReducersCount int
	// The number of shards or partitions processed at the same time. Values
	// less than 2 run everything sequentially.
	Workers int

	// The input files, split in order into MappersCount shards.
	Inputs []mapreduce.FsPath
	// The folder of spill files. If the Path is empty, a new folder under the
	// system temporary folder is used and removed after a successful run.
	MapOutDir mapreduce.FsPath
	// The folder of the ReducersCount result files.
	OutDir mapreduce.FsPath
}

// Validate checks the settings of the job before anything is run.
func (job *Job[K, V, KO, VO]) Validate() error {
	switch {
	case job.NewMapperF == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "NewMapperF undefined")
	case job.NewReducerF == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "NewReducerF undefined")
	case job.KeyCodec.Serialize == nil || job.KeyCodec.Deserialize == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "KeyCodec undefined")
	case job.ValCodec.Serialize == nil || job.ValCodec.Deserialize == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "ValCodec undefined")
	case job.OutKey == nil || job.OutVal == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "OutKey/OutVal undefined")
	case job.Hasher == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "Hasher undefined")
	case job.Compare == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "Compare undefined")
	case job.MappersCount <= 0:
		return errorsp.WithStacksAndMessage(ErrConfig, "MappersCount must be positive, got %d", job.MappersCount)
	case job.ReducersCount <= 0:
		return errorsp.WithStacksAndMessage(ErrConfig, "ReducersCount must be positive, got %d", job.ReducersCount)
	case job.OutDir.Fs == nil:
		return errorsp.WithStacksAndMessage(ErrConfig, "OutDir undefined")
	}
	for i, in := range job.Inputs {
		if in.Fs == nil {
			return errorsp.WithStacksAndMessage(ErrConfig, "FileSystem of input %d (%q) undefined", i, in.Path)
		}
	}
	if _, err := SplitShards(len(job.Inputs), job.MappersCount); err != nil {
		return err
	}
	return nil
}

// Runs the Job. Any failure aborts the whole run, and output files may be
// left partially written.
func (job *Job[K, V, KO, VO]) Run() error {
	if err := job.Validate(); err != nil {
		return err
	}
	shards, err := SplitShards(len(job.Inputs), job.MappersCount)
	if err != nil {
		return err
	}

	mapOut, scratch := job.MapOutDir, false
	if mapOut.Path == "" {
		mapOut, scratch = mapreduce.LocalFsPath(filepath.Join(os.TempDir(), "mr-"+uuid.New().String())), true
		glog.Infof("MapOutDir not specified, using %v", mapOut)
	} else if mapOut.Fs == nil {
		mapOut.Fs = mapreduce.LocalFS
	}
	spillDir, outDir := SpillDir(mapOut), OutputDir(job.OutDir)
	if err := spillDir.Mkdir(0755); err != nil {
		return err
	}
	if err := outDir.Mkdir(0755); err != nil {
		return err
	}

	glog.Infof("Start mapping %d files with %d mappers...", len(job.Inputs), len(shards))
	if err := runTasks(job.Workers, len(shards), func(i int) error {
		return job.MapShard(spillDir, shards[i])
	}); err != nil {
		return err
	}
	glog.Infof("Map ends, begin to reduce with %d reducers", job.ReducersCount)

	if err := runTasks(job.Workers, job.ReducersCount, func(part int) error {
		files := make([]mapreduce.FsPath, 0, job.MappersCount)
		for m := 0; m < job.MappersCount; m++ {
			files = append(files, spillDir.File(m, part))
		}
		return job.ReducePartition(part, files, outDir.File(part))
	}); err != nil {
		return err
	}
	glog.Info("Reduce ends.")

	if scratch {
		if err := spillDir.Clean(); err != nil {
			glog.Warningf("Removing %v failed: %v", mapOut, err)
		}
	}
	return nil
}

// MapShard runs a new Mapper over the input files of shard, writing the spill
// files of the mapper in spillDir, and sorts them.
func (job *Job[K, V, KO, VO]) MapShard(spillDir line.Dir, shard Shard) error {
	files := job.Inputs[shard.Start:shard.End]
	glog.V(1).Infof("Mapper %d processing %d input files", shard.Index, len(files))

	c, err := NewPartitionedWriter(spillDir, shard.Index, job.ReducersCount,
		job.KeyCodec.Serialize, job.ValCodec.Serialize, job.Hasher)
	if err != nil {
		return err
	}
	in := NewInputIterator(files)
	err = job.NewMapperF(shard.Index).Map(in, c)
	if e := in.Close(); e != nil {
		glog.Warningf("Closing inputs of mapper %d failed: %v", shard.Index, e)
	}
	if e := c.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "mapper %d failed", shard.Index)
	}

	for r := 0; r < job.ReducersCount; r++ {
		if err := SortFile(spillDir.File(shard.Index, r), job.KeyCodec.Deserialize, job.Compare); err != nil {
			return errorsp.WithStacksAndMessage(err, "sorting output of mapper %d for reducer %d failed", shard.Index, r)
		}
	}
	glog.V(1).Infof("Mapper %d done", shard.Index)
	return nil
}

// ReducePartition merges the sorted spill files of a partition, calls a new
// Reducer for every key group and writes the results to out. An empty
// partition produces an empty out file.
func (job *Job[K, V, KO, VO]) ReducePartition(part int, files []mapreduce.FsPath, out mapreduce.FsPath) error {
	glog.V(1).Infof("Reducer %d processing %d spill files to %v", part, len(files), out)

	merger, err := NewMerger(files, job.KeyCodec.Deserialize, job.ValCodec.Deserialize, job.Compare)
	if err != nil {
		return errorsp.WithStacksAndMessage(err, "reducer %d", part)
	}
	defer func() {
		if err := merger.Close(); err != nil {
			glog.Warningf("Closing spill files of reducer %d failed: %v", part, err)
		}
	}()

	writer, err := line.NewWriter(out)
	if err != nil {
		return err
	}
	c := mapreduce.CollectorF[KO, VO](func(key KO, val VO) error {
		return writer.Collect(job.OutKey(key), job.OutVal(val))
	})

	reducer := job.NewReducerF(part)
	groups := 0
	g := NewGrouper(merger, job.Compare)
	for {
		key, nextVal, err := g.NextGroup()
		if err == io.EOF {
			break
		}
		if err != nil {
			writer.Close()
			return errorsp.WithStacksAndMessage(err, "reducer %d", part)
		}
		if err := reducer.Reduce(key, nextVal, c); err != nil {
			writer.Close()
			return errorsp.WithStacksAndMessage(err, "reducer %d: reducing key %v failed", part, key)
		}
		groups++
	}
	if err := reducer.ReduceEnd(c); err != nil {
		writer.Close()
		return errorsp.WithStacksAndMessage(err, "reducer %d: ReduceEnd failed", part)
	}
	if err := writer.Close(); err != nil {
		return err
	}
	glog.V(1).Infof("Reducer %d done with %d keys", part, groups)
	return nil
}

// runTasks calls task(0), ..., task(n - 1), at most workers of them at a time.
// Tasks not started yet are skipped after a failure. The error of the task
// with the smallest index is returned.
func runTasks(workers, n int, task func(i int) error) error {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := task(i); err != nil {
				return err
			}
		}
		return nil
	}

	tokens := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		tokens <- true
	}
	var failed atomic.Bool
	ends := make([]chan error, 0, n)
	for i := 0; i < n; i++ {
		end := make(chan error, 1)
		ends = append(ends, end)
		go func(i int, end chan error) {
			// Request for a token
			<-tokens
			defer func() {
				// Return the token back
				tokens <- true
			}()
			if failed.Load() {
				end <- nil
				return
			}
			err := task(i)
			if err != nil {
				failed.Store(true)
			}
			end <- err
		}(i, end)
	}

	var errReturned error
	for i, end := range ends {
		if err := <-end; err != nil {
			if errReturned == nil {
				errReturned = err
			} else {
				glog.Errorf("Task %d failed as well: %v", i, err)
			}
		}
	}
	return errReturned
}
