package store

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// Magic opens every persistence file.
var Magic = [15]byte{0x00, 0xB5, 0x00, 'm', 'o', 's', 'q', 'u', 'i', 't', 't', 'o', ' ', 'd', 'b'}

// DBVersion is the only chunk layout version this package reads and writes.
const DBVersion uint32 = 5

// FileHeaderSize is the encoded size of FileHeader.
const FileHeaderSize = len(Magic) + 4 + 4

// FileHeader precedes the chunk stream.
//
//	[Magic(15)][CRC(4)][Version(4)]
//
// CRC is carried for layout compatibility; it is written as zero and not
// checked.
type FileHeader struct {
	CRC     uint32
	Version uint32
}

// WriteFileHeader writes h to w.
func WriteFileHeader(w io.Writer, h FileHeader) error {
	var buf [FileHeaderSize]byte
	copy(buf[:], Magic[:])
	binary.BigEndian.PutUint32(buf[15:19], h.CRC)
	binary.BigEndian.PutUint32(buf[19:23], h.Version)
	_, err := w.Write(buf[:])
	return errors.Wrap(err, "write file header")
}

// ReadFileHeader reads and checks the file header.
func ReadFileHeader(r io.Reader) (FileHeader, error) {
	var buf [FileHeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return FileHeader{}, errors.Wrap(ErrBadMagic, "file shorter than header")
		}
		return FileHeader{}, errors.Wrap(err, "read file header")
	}
	if !bytes.Equal(buf[:15], Magic[:]) {
		return FileHeader{}, ErrBadMagic
	}

	h := FileHeader{
		CRC:     binary.BigEndian.Uint32(buf[15:19]),
		Version: binary.BigEndian.Uint32(buf[19:23]),
	}
	if h.Version != DBVersion {
		return h, errors.Wrapf(ErrUnsupportedVersion, "version %d", h.Version)
	}
	return h, nil
}
