package codec

import (
	"errors"
	"fmt"
)

// Sentinel errors. A *FormatError matches exactly one of these with errors.Is.
var (
	ErrLengthMismatch = errors.New("chunk length mismatch")
	ErrUnexpectedEOF  = errors.New("unexpected end of stream")
	ErrFieldTooLarge  = errors.New("field too large")
	ErrUnknownChunk   = errors.New("unknown chunk type")
)

// FormatError describes a structural problem with a chunk. Once a decoder
// returns one the stream position can no longer be trusted.
type FormatError struct {
	Kind   error     // one of the sentinel errors above
	Chunk  ChunkType // chunk being processed, 0 if not yet known
	Field  string    // offending field, if any
	Detail string
}

func (e *FormatError) Error() string {
	msg := e.Kind.Error()
	if e.Chunk != 0 {
		msg = fmt.Sprintf("%s: %s", e.Chunk, msg)
	}
	if e.Field != "" {
		msg = fmt.Sprintf("%s (field %s)", msg, e.Field)
	}
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	return msg
}

func (e *FormatError) Unwrap() error {
	return e.Kind
}

// IOError wraps a failure of the underlying stream.
type IOError struct {
	Op  string // "read" or "write"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func formatErr(kind error, chunk ChunkType, field, detail string, args ...interface{}) error {
	if len(args) > 0 {
		detail = fmt.Sprintf(detail, args...)
	}
	return &FormatError{Kind: kind, Chunk: chunk, Field: field, Detail: detail}
}
