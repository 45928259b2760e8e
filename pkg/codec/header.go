package codec

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ChunkType tags the record that follows a chunk header.
type ChunkType uint32

// Chunk type tags. The values are part of the file format and never change.
const (
	ChunkConfig        ChunkType = 1
	ChunkMessageStore  ChunkType = 2
	ChunkClientMessage ChunkType = 3
	ChunkRetain        ChunkType = 4
	ChunkSubscription  ChunkType = 5
	ChunkClient        ChunkType = 6
)

// HeaderSize is the encoded size of a ChunkHeader.
const HeaderSize = 8

func (t ChunkType) String() string {
	switch t {
	case ChunkConfig:
		return "CFG"
	case ChunkMessageStore:
		return "MSG_STORE"
	case ChunkClientMessage:
		return "CLIENT_MSG"
	case ChunkRetain:
		return "RETAIN"
	case ChunkSubscription:
		return "SUB"
	case ChunkClient:
		return "CLIENT"
	default:
		return fmt.Sprintf("CHUNK(%d)", uint32(t))
	}
}

// Known reports whether this build has a codec for t.
func (t ChunkType) Known() bool {
	return t >= ChunkConfig && t <= ChunkClient
}

// ChunkHeader precedes every record. Length counts the bytes after the
// header only.
type ChunkHeader struct {
	Type   ChunkType
	Length uint32
}

// WriteHeader writes the 8-byte header for a chunk of the given type and
// payload length.
func WriteHeader(w io.Writer, t ChunkType, length uint32) error {
	var buf [HeaderSize]byte
	binary.BigEndian.PutUint32(buf[0:4], uint32(t))
	binary.BigEndian.PutUint32(buf[4:8], length)
	return writeFull(w, buf[:])
}

// ReadHeader reads the next chunk header. It returns io.EOF if the stream
// ends cleanly before the header and ErrUnexpectedEOF if it ends inside it.
func ReadHeader(r io.Reader) (ChunkHeader, error) {
	var buf [HeaderSize]byte
	n, err := io.ReadFull(r, buf[:])
	if err != nil {
		if err == io.EOF && n == 0 {
			return ChunkHeader{}, io.EOF
		}
		if err == io.ErrUnexpectedEOF {
			return ChunkHeader{}, formatErr(ErrUnexpectedEOF, 0, "header", "got %d of %d bytes", n, HeaderSize)
		}
		return ChunkHeader{}, &IOError{Op: "read", Err: err}
	}
	return ChunkHeader{
		Type:   ChunkType(binary.BigEndian.Uint32(buf[0:4])),
		Length: binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}

// writeFull writes all of b, turning a silent short write into an error.
func writeFull(w io.Writer, b []byte) error {
	if len(b) == 0 {
		return nil
	}
	n, err := w.Write(b)
	if err == nil && n < len(b) {
		err = io.ErrShortWrite
	}
	if err != nil {
		return &IOError{Op: "write", Err: err}
	}
	return nil
}

// readFull fills b from r. Running out of input is reported as a format
// error against the chunk and field being read.
func readFull(r io.Reader, b []byte, t ChunkType, field string) error {
	if len(b) == 0 {
		return nil
	}
	n, err := io.ReadFull(r, b)
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return formatErr(ErrUnexpectedEOF, t, field, "got %d of %d bytes", n, len(b))
		}
		return &IOError{Op: "read", Err: err}
	}
	return nil
}
