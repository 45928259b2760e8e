package store

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/sirupsen/logrus"
	"github.com/ssargent/brokerdb/pkg/metrics"
)

// Checkpointer saves and loads the persistence file in DataDir. A save
// writes to a temp file and renames it into place, so a failed or cancelled
// pass leaves the previous checkpoint untouched.
type Checkpointer struct {
	config  CheckpointConfig
	path    string
	metrics *metrics.Metrics
	log     *logrus.Entry
	mutex   sync.Mutex
}

// NewCheckpointer creates a checkpointer. m and log may be nil.
func NewCheckpointer(config CheckpointConfig, m *metrics.Metrics, log *logrus.Entry) (*Checkpointer, error) {
	if config.FileName == "" {
		return nil, errors.New("checkpoint file name is required")
	}
	if err := os.MkdirAll(config.DataDir, 0750); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}

	return &Checkpointer{
		config:  config,
		path:    filepath.Join(config.DataDir, config.FileName),
		metrics: m,
		log:     log.WithField("component", "checkpoint"),
	}, nil
}

// Path returns the persistence file path
func (c *Checkpointer) Path() string {
	return c.path
}

// Exists reports whether a checkpoint has been written
func (c *Checkpointer) Exists() bool {
	_, err := os.Stat(c.path)
	return err == nil
}

// Save writes state as a new checkpoint. ctx is checked between chunks; a
// cancelled pass is abandoned and the temp file removed.
func (c *Checkpointer) Save(ctx context.Context, state *State) (*CheckpointResult, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	start := time.Now()
	id := ksuid.New()
	log := c.log.WithField("checkpoint", id.String())

	result, err := c.save(ctx, id, state)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordPass(metrics.OpSave, false, duration, 0)
		log.WithError(err).Error("checkpoint failed")
		return nil, err
	}
	result.Duration = duration

	c.metrics.RecordPass(metrics.OpSave, true, duration, result.Bytes)
	log.WithFields(logrus.Fields{
		"path":     result.Path,
		"chunks":   result.Chunks,
		"bytes":    result.Bytes,
		"duration": duration,
	}).Info("checkpoint written")

	return result, nil
}

func (c *Checkpointer) save(ctx context.Context, id ksuid.KSUID, state *State) (*CheckpointResult, error) {
	tmpPath := filepath.Join(c.config.DataDir, "."+c.config.FileName+"."+id.String()+".tmp")

	w, err := NewChunkWriter(ChunkWriterConfig{
		FilePath:   tmpPath,
		BufferSize: c.config.BufferSize,
		Fsync:      c.config.Fsync,
	})
	if err != nil {
		return nil, err
	}

	abort := func(err error) (*CheckpointResult, error) {
		w.Close()
		os.Remove(tmpPath)
		return nil, err
	}

	for _, e := range state.Entities() {
		if err := ctx.Err(); err != nil {
			return abort(errors.Wrap(err, "checkpoint cancelled"))
		}
		if _, err := w.Write(e); err != nil {
			return abort(errors.Wrapf(err, "write %s chunk", e.ChunkType()))
		}
		c.metrics.RecordChunk(metrics.OpSave, e.ChunkType().String())
	}

	if err := w.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	if err := os.Rename(tmpPath, c.path); err != nil {
		os.Remove(tmpPath)
		return nil, errors.Wrap(err, "rename checkpoint into place")
	}
	// The new file is in place either way; a failed directory fsync only
	// means the rename may not survive a crash yet.
	if c.config.Fsync {
		if err := syncDir(c.config.DataDir); err != nil {
			c.log.WithError(err).WithField("path", c.path).Warn("checkpoint renamed but directory not synced")
		}
	}

	return &CheckpointResult{
		ID:     id,
		Path:   c.path,
		Chunks: w.Chunks(),
		Bytes:  w.Size(),
		Digest: w.Digest(),
	}, nil
}

// Load reads the checkpoint back into a State. Referential problems are
// returned in LoadResult.Issues; structural problems fail the load.
func (c *Checkpointer) Load(ctx context.Context) (*State, *LoadResult, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	start := time.Now()
	state, result, err := LoadFile(ctx, c.path, c.config.BufferSize, c.metrics)
	duration := time.Since(start)
	if err != nil {
		c.metrics.RecordPass(metrics.OpLoad, false, duration, 0)
		c.log.WithError(err).WithField("path", c.path).Error("load failed")
		return nil, nil, err
	}
	result.Duration = duration
	c.metrics.RecordPass(metrics.OpLoad, true, duration, result.Bytes)

	for chunk, n := range state.Counts() {
		c.metrics.SetStateEntities(chunk.String(), n)
	}
	for _, issue := range result.Issues {
		c.log.WithField("issue", issue.String()).Warn("inconsistent record in checkpoint")
	}
	c.log.WithFields(logrus.Fields{
		"path":     c.path,
		"chunks":   result.Chunks,
		"skipped":  result.Skipped,
		"duration": duration,
	}).Info("checkpoint loaded")

	return state, result, nil
}

// LoadFile decodes the persistence file at path, plain or archived, into a
// State. m may be nil.
func LoadFile(ctx context.Context, path string, bufferSize int, m *metrics.Metrics) (*State, *LoadResult, error) {
	r, err := NewChunkReader(ChunkReaderConfig{FilePath: path, BufferSize: bufferSize})
	if err != nil {
		return nil, nil, errors.Wrapf(err, "open %s", path)
	}
	defer r.Close()

	state := NewState()
	chunks := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, nil, errors.Wrap(err, "load cancelled")
		}
		offset := r.Offset()
		e, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, errors.Wrapf(err, "decode chunk at offset %d", offset)
		}
		if err := state.Add(e); err != nil {
			return nil, nil, err
		}
		chunks++
		m.RecordChunk(metrics.OpLoad, e.ChunkType().String())
	}

	return state, &LoadResult{
		Path:    path,
		Chunks:  chunks,
		Skipped: r.Skipped(),
		Bytes:   r.Offset(),
		Digest:  r.Digest(),
		Issues:  state.Validate(),
	}, nil
}

var syncDir = func(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return errors.Wrap(err, "open data directory")
	}
	defer d.Close()
	return errors.Wrap(d.Sync(), "fsync data directory")
}
