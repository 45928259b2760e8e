package store

import (
	"time"

	"github.com/segmentio/ksuid"
	"github.com/ssargent/brokerdb/pkg/codec"
)

// ChunkWriterConfig holds configuration for the chunk writer
type ChunkWriterConfig struct {
	FilePath   string // Path of the file to create
	BufferSize int    // Write buffer size
	Fsync      bool   // Fsync on Sync and Close
}

// ChunkReaderConfig holds configuration for the chunk reader
type ChunkReaderConfig struct {
	FilePath   string // Path of the persistence file, plain or zstd archived
	BufferSize int    // Read buffer size
}

// CheckpointConfig holds configuration for the checkpointer
type CheckpointConfig struct {
	DataDir    string // Directory holding the persistence file
	FileName   string // Persistence file name within DataDir
	BufferSize int    // IO buffer size
	Fsync      bool   // Fsync the temp file and directory before and after rename
}

// CheckpointResult describes a completed save
type CheckpointResult struct {
	ID       ksuid.KSUID
	Path     string
	Chunks   int
	Bytes    int64
	Digest   string // BLAKE3 of the whole file, hex
	Duration time.Duration
}

// LoadResult describes a completed load
type LoadResult struct {
	Path     string
	Chunks   int
	Skipped  int // chunks of unknown type passed over
	Bytes    int64
	Digest   string
	Issues   []Issue // referential problems found in the loaded state
	Duration time.Duration
}

// Issue is a referential problem in a loaded state. Issues are reported, not
// fatal: the caller decides whether to drop the offending records.
type Issue struct {
	Chunk   codec.ChunkType
	Key     string
	Message string
}

func (i Issue) String() string {
	return i.Chunk.String() + " " + i.Key + ": " + i.Message
}

// Summary counts the entities in a State
type Summary struct {
	Clients        int    `json:"clients" yaml:"clients"`
	ClientMessages int    `json:"client_messages" yaml:"client_messages"`
	Messages       int    `json:"messages" yaml:"messages"`
	Retained       int    `json:"retained" yaml:"retained"`
	Subscriptions  int    `json:"subscriptions" yaml:"subscriptions"`
	PayloadBytes   int64  `json:"payload_bytes" yaml:"payload_bytes"`
	LastDBID       uint64 `json:"last_db_id" yaml:"last_db_id"`
	Shutdown       bool   `json:"shutdown" yaml:"shutdown"`
}

// Errors
var (
	ErrBadMagic           = &StoreError{"not a broker persistence file"}
	ErrUnsupportedVersion = &StoreError{"unsupported persistence file version"}
	ErrClosed             = &StoreError{"writer is closed"}
)

// StoreError represents a persistence file error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}
