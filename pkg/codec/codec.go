package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
)

// tailField is one variable-length field of an encoded chunk.
type tailField struct {
	name string
	data []byte
}

// tailSpec describes a variable-length field still to be read.
type tailSpec struct {
	name string
	n    int
	set  func([]byte)
}

// Encode writes e as one chunk: header, fixed part, then each non-empty
// variable field. Nothing is written if a field is out of range.
func Encode(w io.Writer, e Entity) error {
	fixed, tail, err := encodeView(e)
	if err != nil {
		return err
	}
	length, err := chunkLength(e.ChunkType(), fixed, tail)
	if err != nil {
		return err
	}

	if err := WriteHeader(w, e.ChunkType(), length); err != nil {
		return err
	}
	if err := writeFull(w, fixed); err != nil {
		return err
	}
	for _, f := range tail {
		if err := writeFull(w, f.data); err != nil {
			return err
		}
	}
	return nil
}

// EncodedSize returns the header length Encode would write for e.
func EncodedSize(e Entity) (uint32, error) {
	fixed, tail, err := encodeView(e)
	if err != nil {
		return 0, err
	}
	return chunkLength(e.ChunkType(), fixed, tail)
}

// Marshal encodes e into a new byte slice, header included.
func Marshal(e Entity) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a single chunk produced by Marshal. Trailing bytes are
// a length mismatch.
func Unmarshal(data []byte) (Entity, error) {
	r := bytes.NewReader(data)
	h, err := ReadHeader(r)
	if err == io.EOF {
		return nil, formatErr(ErrUnexpectedEOF, 0, "header", "empty input")
	}
	if err != nil {
		return nil, err
	}
	e, err := Decode(r, h)
	if err != nil {
		return nil, err
	}
	if r.Len() != 0 {
		return nil, formatErr(ErrLengthMismatch, h.Type, "", "%d trailing bytes", r.Len())
	}
	return e, nil
}

// Decode reads the body of a chunk whose header has already been consumed.
// It reads exactly h.Length bytes on success.
func Decode(r io.Reader, h ChunkHeader) (Entity, error) {
	size := FixedSize(h.Type)
	if size == 0 {
		return nil, formatErr(ErrUnknownChunk, h.Type, "", "")
	}
	if h.Length < uint32(size) {
		return nil, formatErr(ErrLengthMismatch, h.Type, "", "length %d shorter than fixed part %d", h.Length, size)
	}

	fixed := make([]byte, size)
	if err := readFull(r, fixed, h.Type, "fixed"); err != nil {
		return nil, err
	}
	e, tail := decodeView(h.Type, fixed)

	total := uint64(size)
	for _, f := range tail {
		total += uint64(f.n)
	}
	if total != uint64(h.Length) {
		return nil, formatErr(ErrLengthMismatch, h.Type, "", "fields total %d, header says %d", total, h.Length)
	}

	for _, f := range tail {
		if f.n == 0 {
			continue
		}
		data, err := readField(r, f.n, h.Type, f.name)
		if err != nil {
			return nil, err
		}
		f.set(data)
	}
	return e, nil
}

// largeField is the size above which a field is read incrementally, so a
// corrupt length cannot force a huge allocation before the data arrives.
const largeField = 1 << 20

func readField(r io.Reader, n int, t ChunkType, field string) ([]byte, error) {
	if n <= largeField {
		data := make([]byte, n)
		if err := readFull(r, data, t, field); err != nil {
			return nil, err
		}
		return data, nil
	}

	var buf bytes.Buffer
	got, err := io.CopyN(&buf, r, int64(n))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, formatErr(ErrUnexpectedEOF, t, field, "got %d of %d bytes", got, n)
		}
		return nil, &IOError{Op: "read", Err: err}
	}
	return buf.Bytes(), nil
}

func chunkLength(t ChunkType, fixed []byte, tail []tailField) (uint32, error) {
	total := uint64(len(fixed))
	for _, f := range tail {
		total += uint64(len(f.data))
	}
	if total > math.MaxUint32 {
		return 0, formatErr(ErrFieldTooLarge, t, "", "chunk of %d bytes", total)
	}
	return uint32(total), nil
}

func len16(t ChunkType, field string, n int) (uint16, error) {
	if n > math.MaxUint16 {
		return 0, formatErr(ErrFieldTooLarge, t, field, "%d bytes, limit %d", n, math.MaxUint16)
	}
	return uint16(n), nil
}

func len32(t ChunkType, field string, n int) (uint32, error) {
	if uint64(n) > math.MaxUint32 {
		return 0, formatErr(ErrFieldTooLarge, t, field, "%d bytes, limit %d", n, uint64(math.MaxUint32))
	}
	return uint32(n), nil
}

// encodeView captures every variable length from e before laying out the
// fixed part in wire order. e is only read.
func encodeView(e Entity) ([]byte, []tailField, error) {
	if e == nil {
		return nil, nil, fmt.Errorf("codec: nil entity")
	}
	t := e.ChunkType()
	buf := newFieldWriter(FixedSize(t))

	switch v := e.(type) {
	case *Config:
		w := configWire{LastDBID: v.LastDBID, Shutdown: v.Shutdown, DBIDSize: v.DBIDSize}
		w.pack(buf)
		return buf.data, nil, nil

	case *Client:
		idLen, err := len16(t, "client_id", len(v.ID))
		if err != nil {
			return nil, nil, err
		}
		w := clientWire{
			SessionExpiryTime:     v.SessionExpiryTime,
			SessionExpiryInterval: v.SessionExpiryInterval,
			LastMID:               v.LastMID,
			IDLen:                 idLen,
		}
		w.pack(buf)
		return buf.data, []tailField{{"client_id", []byte(v.ID)}}, nil

	case *ClientMessage:
		idLen, err := len16(t, "client_id", len(v.ClientID))
		if err != nil {
			return nil, nil, err
		}
		w := clientMessageWire{
			StoreID:   v.StoreID,
			MID:       v.MID,
			IDLen:     idLen,
			QoS:       v.QoS,
			State:     uint8(v.State),
			RetainDup: nibble(v.Retain)<<4 | nibble(v.Dup),
			Direction: uint8(v.Direction),
		}
		w.pack(buf)
		return buf.data, []tailField{{"client_id", []byte(v.ClientID)}}, nil

	case *MessageStore:
		payloadLen, err := len32(t, "payload", len(v.Payload))
		if err != nil {
			return nil, nil, err
		}
		sourceIDLen, err := len16(t, "source_id", len(v.SourceID))
		if err != nil {
			return nil, nil, err
		}
		usernameLen, err := len16(t, "source_username", len(v.SourceUsername))
		if err != nil {
			return nil, nil, err
		}
		topicLen, err := len16(t, "topic", len(v.Topic))
		if err != nil {
			return nil, nil, err
		}
		w := messageStoreWire{
			StoreID:           v.StoreID,
			ExpiryTime:        v.ExpiryTime,
			PayloadLen:        payloadLen,
			SourceMID:         v.SourceMID,
			SourceIDLen:       sourceIDLen,
			SourceUsernameLen: usernameLen,
			TopicLen:          topicLen,
			SourcePort:        v.SourcePort,
			QoS:               v.QoS,
			Retain:            v.Retain,
		}
		w.pack(buf)
		return buf.data, []tailField{
			{"source_id", []byte(v.SourceID)},
			{"source_username", []byte(v.SourceUsername)},
			{"topic", []byte(v.Topic)},
			{"payload", v.Payload},
		}, nil

	case *Retain:
		w := retainWire{StoreID: v.StoreID}
		w.pack(buf)
		return buf.data, nil, nil

	case *Subscription:
		idLen, err := len16(t, "client_id", len(v.ClientID))
		if err != nil {
			return nil, nil, err
		}
		topicLen, err := len16(t, "topic", len(v.Topic))
		if err != nil {
			return nil, nil, err
		}
		w := subscriptionWire{
			Identifier: v.Identifier,
			IDLen:      idLen,
			TopicLen:   topicLen,
			QoS:        v.QoS,
			Options:    v.Options,
		}
		w.pack(buf)
		return buf.data, []tailField{
			{"client_id", []byte(v.ClientID)},
			{"topic", []byte(v.Topic)},
		}, nil
	}

	return nil, nil, fmt.Errorf("codec: unsupported entity %T", e)
}

// decodeView parses a fixed part that is exactly FixedSize(t) bytes long and
// returns the entity plus the variable fields it declares, in file order.
func decodeView(t ChunkType, fixed []byte) (Entity, []tailSpec) {
	buf := newFieldReader(fixed)

	switch t {
	case ChunkConfig:
		var w configWire
		w.pack(buf)
		return &Config{LastDBID: w.LastDBID, Shutdown: w.Shutdown, DBIDSize: w.DBIDSize}, nil

	case ChunkClient:
		var w clientWire
		w.pack(buf)
		c := &Client{
			SessionExpiryTime:     w.SessionExpiryTime,
			SessionExpiryInterval: w.SessionExpiryInterval,
			LastMID:               w.LastMID,
		}
		return c, []tailSpec{
			{"client_id", int(w.IDLen), func(b []byte) { c.ID = string(b) }},
		}

	case ChunkClientMessage:
		var w clientMessageWire
		w.pack(buf)
		m := &ClientMessage{
			StoreID:   w.StoreID,
			MID:       w.MID,
			QoS:       w.QoS,
			State:     MessageState(w.State),
			Retain:    w.RetainDup>>4 != 0,
			Dup:       w.RetainDup&0x0F != 0,
			Direction: Direction(w.Direction),
		}
		return m, []tailSpec{
			{"client_id", int(w.IDLen), func(b []byte) { m.ClientID = string(b) }},
		}

	case ChunkMessageStore:
		var w messageStoreWire
		w.pack(buf)
		m := &MessageStore{
			StoreID:    w.StoreID,
			ExpiryTime: w.ExpiryTime,
			SourceMID:  w.SourceMID,
			SourcePort: w.SourcePort,
			QoS:        w.QoS,
			Retain:     w.Retain,
		}
		return m, []tailSpec{
			{"source_id", int(w.SourceIDLen), func(b []byte) { m.SourceID = string(b) }},
			{"source_username", int(w.SourceUsernameLen), func(b []byte) { m.SourceUsername = string(b) }},
			{"topic", int(w.TopicLen), func(b []byte) { m.Topic = string(b) }},
			{"payload", int(w.PayloadLen), func(b []byte) { m.Payload = b }},
		}

	case ChunkRetain:
		var w retainWire
		w.pack(buf)
		return &Retain{StoreID: w.StoreID}, nil

	case ChunkSubscription:
		var w subscriptionWire
		w.pack(buf)
		s := &Subscription{
			Identifier: w.Identifier,
			QoS:        w.QoS,
			Options:    w.Options,
		}
		return s, []tailSpec{
			{"client_id", int(w.IDLen), func(b []byte) { s.ClientID = string(b) }},
			{"topic", int(w.TopicLen), func(b []byte) { s.Topic = string(b) }},
		}
	}

	return nil, nil
}

func nibble(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
