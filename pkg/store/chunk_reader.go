package store

import (
	"bufio"
	"encoding/hex"
	"io"

	"github.com/ssargent/brokerdb/pkg/codec"
	"github.com/zeebo/blake3"
)

// ChunkReader provides sequential access to the chunks of a persistence
// file. Like the codec reader it wraps, it cannot continue after an error.
type ChunkReader struct {
	source  io.Closer
	decoder *codec.Reader
	header  FileHeader
	digest  *blake3.Hasher
	config  ChunkReaderConfig
}

// NewChunkReader opens the persistence file at config.FilePath, plain or
// zstd archived, and checks its header
func NewChunkReader(config ChunkReaderConfig) (*ChunkReader, error) {
	rc, err := OpenStream(config.FilePath)
	if err != nil {
		return nil, err
	}

	r, err := newChunkReader(rc, config)
	if err != nil {
		rc.Close()
		return nil, err
	}
	r.source = rc
	return r, nil
}

// NewStreamReader reads a persistence file from an already open stream. The
// caller keeps ownership of r.
func NewStreamReader(r io.Reader) (*ChunkReader, error) {
	return newChunkReader(r, ChunkReaderConfig{})
}

func newChunkReader(src io.Reader, config ChunkReaderConfig) (*ChunkReader, error) {
	if config.BufferSize <= 0 {
		config.BufferSize = 64 * 1024
	}

	digest := blake3.New()
	tee := io.TeeReader(bufio.NewReaderSize(src, config.BufferSize), digest)

	header, err := ReadFileHeader(tee)
	if err != nil {
		return nil, err
	}

	return &ChunkReader{
		decoder: codec.NewReader(tee),
		header:  header,
		digest:  digest,
		config:  config,
	}, nil
}

// Next returns the next entity, or io.EOF at the end of the file
func (r *ChunkReader) Next() (codec.Entity, error) {
	return r.decoder.Next()
}

// Iterator returns a streaming iterator for the remaining entities
func (r *ChunkReader) Iterator() *codec.Iterator {
	return r.decoder.Iterator()
}

// Header returns the file header read when the reader was opened
func (r *ChunkReader) Header() FileHeader {
	return r.header
}

// Offset returns the number of bytes consumed, file header included
func (r *ChunkReader) Offset() int64 {
	return int64(FileHeaderSize) + r.decoder.Offset()
}

// Skipped returns how many chunks of unknown type were passed over
func (r *ChunkReader) Skipped() int {
	return r.decoder.Skipped()
}

// Digest returns the hex BLAKE3 digest of the uncompressed bytes consumed so
// far. Once Next has returned io.EOF it covers the whole file.
func (r *ChunkReader) Digest() string {
	return hex.EncodeToString(r.digest.Sum(nil))
}

// Close closes the underlying file, if the reader opened it
func (r *ChunkReader) Close() error {
	if r.source == nil {
		return nil
	}
	return r.source.Close()
}
