package codec

import (
	"bufio"
	"errors"
	"io"
)

// WriteAll encodes entities to w in order. It stops at the first error;
// whatever was already written stays in w.
func WriteAll(w io.Writer, entities []Entity) error {
	for _, e := range entities {
		if err := Encode(w, e); err != nil {
			return err
		}
	}
	return nil
}

// Reader decodes a stream of chunks. Chunk types it does not know are
// skipped using their header length. After the first error the Reader is
// finished and keeps returning that error.
type Reader struct {
	r       *countingReader
	err     error
	skipped int
}

// NewReader returns a Reader decoding chunks from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: &countingReader{r: r}}
}

// Next returns the next decoded entity, or io.EOF once the stream ends
// cleanly on a chunk boundary.
func (r *Reader) Next() (Entity, error) {
	if r.err != nil {
		return nil, r.err
	}
	for {
		h, err := ReadHeader(r.r)
		if err != nil {
			r.err = err
			return nil, err
		}
		if !h.Type.Known() {
			if err := r.skip(h); err != nil {
				r.err = err
				return nil, err
			}
			continue
		}
		e, err := Decode(r.r, h)
		if err != nil {
			r.err = err
			return nil, err
		}
		return e, nil
	}
}

// ReadAll decodes every remaining entity. A clean end of stream is not an
// error.
func (r *Reader) ReadAll() ([]Entity, error) {
	var out []Entity
	for {
		e, err := r.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.r.n
}

// Skipped returns how many chunks of unknown type were passed over.
func (r *Reader) Skipped() int {
	return r.skipped
}

func (r *Reader) skip(h ChunkHeader) error {
	n, err := io.CopyN(io.Discard, r.r, int64(h.Length))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return formatErr(ErrUnexpectedEOF, h.Type, "", "skipped %d of %d bytes", n, h.Length)
		}
		return &IOError{Op: "read", Err: err}
	}
	r.skipped++
	return nil
}

// Iterator returns a streaming iterator over the remaining entities.
func (r *Reader) Iterator() *Iterator {
	return &Iterator{reader: r}
}

// Iterator walks a Reader in the Next/Entity/Err style.
type Iterator struct {
	reader *Reader
	entity Entity
	err    error
}

// Next advances to the next entity and reports whether there is one.
func (it *Iterator) Next() bool {
	it.entity, it.err = it.reader.Next()
	return it.err == nil
}

// Entity returns the entity loaded by the last call to Next.
func (it *Iterator) Entity() Entity {
	return it.entity
}

// Err returns the error that stopped iteration, or nil at a clean end.
func (it *Iterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// NewBufferedReader is NewReader over a bufio.Reader of the given size.
func NewBufferedReader(r io.Reader, size int) *Reader {
	return NewReader(bufio.NewReaderSize(r, size))
}
