package store

import (
	"bufio"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/ssargent/brokerdb/pkg/codec"
	"github.com/zeebo/blake3"
)

// ChunkWriter writes a persistence file: the file header followed by one
// chunk per entity. The first failed write poisons the writer, since the
// file past that point cannot be trusted.
type ChunkWriter struct {
	file   *os.File
	writer *bufio.Writer
	out    *countingWriter
	digest *blake3.Hasher
	config ChunkWriterConfig
	mutex  sync.Mutex
	chunks int
	err    error
	closed bool
}

// NewChunkWriter creates (or truncates) the file at config.FilePath and
// writes the file header
func NewChunkWriter(config ChunkWriterConfig) (*ChunkWriter, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0750); err != nil {
		return nil, errors.Wrap(err, "create data directory")
	}

	file, err := os.OpenFile(config.FilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "open persistence file")
	}

	if config.BufferSize <= 0 {
		config.BufferSize = 64 * 1024
	}

	w := &ChunkWriter{
		file:   file,
		writer: bufio.NewWriterSize(file, config.BufferSize),
		digest: blake3.New(),
		config: config,
	}
	w.out = &countingWriter{w: io.MultiWriter(w.writer, w.digest)}

	if err := WriteFileHeader(w.out, FileHeader{Version: DBVersion}); err != nil {
		file.Close()
		return nil, err
	}

	return w, nil
}

// Write appends one chunk and returns the offset it starts at
func (w *ChunkWriter) Write(e codec.Entity) (int64, error) {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.usable(); err != nil {
		return 0, err
	}

	offset := w.out.n
	if err := codec.Encode(w.out, e); err != nil {
		w.err = err
		return 0, err
	}
	w.chunks++

	return offset, nil
}

// WriteAll appends every entity in order, stopping at the first failure
func (w *ChunkWriter) WriteAll(entities []codec.Entity) error {
	for _, e := range entities {
		if _, err := w.Write(e); err != nil {
			return err
		}
	}
	return nil
}

// Sync flushes buffered chunks and, if configured, fsyncs the file
func (w *ChunkWriter) Sync() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if err := w.usable(); err != nil {
		return err
	}
	return w.sync()
}

// sync performs the actual flush (internal method)
func (w *ChunkWriter) sync() error {
	if err := w.writer.Flush(); err != nil {
		w.err = errors.Wrap(err, "flush persistence file")
		return w.err
	}
	if w.config.Fsync {
		if err := w.file.Sync(); err != nil {
			w.err = errors.Wrap(err, "fsync persistence file")
			return w.err
		}
	}
	return nil
}

// Close flushes and closes the file. It reports the first error seen by the
// writer, if any.
func (w *ChunkWriter) Close() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if w.err == nil {
		w.sync()
	}
	closeErr := w.file.Close()
	if w.err != nil {
		return w.err
	}
	return errors.Wrap(closeErr, "close persistence file")
}

func (w *ChunkWriter) usable() error {
	if w.closed {
		return ErrClosed
	}
	return w.err
}

// Size returns the number of bytes written so far, file header included
func (w *ChunkWriter) Size() int64 {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.out.n
}

// Chunks returns the number of chunks written
func (w *ChunkWriter) Chunks() int {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return w.chunks
}

// Digest returns the hex BLAKE3 digest of every byte written so far
func (w *ChunkWriter) Digest() string {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	return hex.EncodeToString(w.digest.Sum(nil))
}

// Path returns the file path
func (w *ChunkWriter) Path() string {
	return w.config.FilePath
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
