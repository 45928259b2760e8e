package codec

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteHeader(&buf, ChunkSubscription, 0x01020304); err != nil {
		t.Fatalf("WriteHeader failed: %v", err)
	}

	want := []byte{0x00, 0x00, 0x00, 0x05, 0x01, 0x02, 0x03, 0x04}
	if !bytes.Equal(buf.Bytes(), want) {
		t.Errorf("header bytes = % x, want % x", buf.Bytes(), want)
	}
}

func TestReadHeader(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		var buf bytes.Buffer
		if err := WriteHeader(&buf, ChunkType(77), 12); err != nil {
			t.Fatalf("WriteHeader failed: %v", err)
		}

		h, err := ReadHeader(&buf)
		if err != nil {
			t.Fatalf("ReadHeader failed: %v", err)
		}
		if h.Type != ChunkType(77) || h.Length != 12 {
			t.Errorf("got %+v", h)
		}
	})

	t.Run("clean end of stream", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader(nil))
		if err != io.EOF {
			t.Errorf("expected io.EOF, got %v", err)
		}
	})

	t.Run("partial header", func(t *testing.T) {
		_, err := ReadHeader(bytes.NewReader([]byte{0, 0, 0}))
		if !errors.Is(err, ErrUnexpectedEOF) {
			t.Errorf("expected ErrUnexpectedEOF, got %v", err)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		boom := errors.New("disk on fire")
		_, err := ReadHeader(&failingReader{err: boom})

		var ioErr *IOError
		if !errors.As(err, &ioErr) || !errors.Is(err, boom) {
			t.Errorf("expected IOError wrapping %v, got %v", boom, err)
		}
	})
}

func TestChunkTypeString(t *testing.T) {
	testCases := map[ChunkType]string{
		ChunkConfig:        "CFG",
		ChunkMessageStore:  "MSG_STORE",
		ChunkClientMessage: "CLIENT_MSG",
		ChunkRetain:        "RETAIN",
		ChunkSubscription:  "SUB",
		ChunkClient:        "CLIENT",
		ChunkType(42):      "CHUNK(42)",
	}
	for ct, want := range testCases {
		if got := ct.String(); got != want {
			t.Errorf("ChunkType(%d).String() = %q, want %q", uint32(ct), got, want)
		}
	}
	if ChunkType(0).Known() || ChunkType(7).Known() {
		t.Error("types outside 1..6 must not be known")
	}
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

// shortWriter accepts at most limit bytes in total and then reports short
// writes without an error.
type shortWriter struct {
	limit int
	buf   bytes.Buffer
}

func (w *shortWriter) Write(p []byte) (int, error) {
	room := w.limit - w.buf.Len()
	if room <= 0 {
		return 0, nil
	}
	if len(p) > room {
		p = p[:room]
	}
	return w.buf.Write(p)
}
