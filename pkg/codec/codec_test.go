package codec

import (
	"bytes"
	"encoding/binary"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func sampleEntities() []struct {
	name   string
	entity Entity
} {
	return []struct {
		name   string
		entity Entity
	}{
		{
			name:   "config",
			entity: &Config{LastDBID: 0x0102030405060708, Shutdown: true, DBIDSize: 8},
		},
		{
			name: "client",
			entity: &Client{
				ID:                    "dev-01",
				SessionExpiryTime:     1719043200,
				SessionExpiryInterval: 3600,
				LastMID:               42,
			},
		},
		{
			name:   "client with empty id",
			entity: &Client{SessionExpiryInterval: 1},
		},
		{
			name: "client message",
			entity: &ClientMessage{
				ClientID:  "sensor/7",
				StoreID:   99,
				MID:       513,
				QoS:       2,
				State:     StateWaitForPubrec,
				Retain:    true,
				Dup:       true,
				Direction: DirectionOut,
			},
		},
		{
			name: "message store with all fields",
			entity: &MessageStore{
				StoreID:        99,
				ExpiryTime:     -1,
				SourceID:       "publisher",
				SourceUsername: "alice",
				SourceMID:      7,
				SourcePort:     1883,
				Topic:          "a/b/c",
				QoS:            1,
				Retain:         true,
				Payload:        []byte{0x00, 0xFF, 0x10, 0x20},
			},
		},
		{
			name: "message store with empty source and payload",
			entity: &MessageStore{
				StoreID: 1,
				Topic:   "a/b",
			},
		},
		{
			name:   "retain",
			entity: &Retain{StoreID: 0xDEADBEEF},
		},
		{
			name: "subscription",
			entity: &Subscription{
				ClientID:   "dev-01",
				Topic:      "sensors/+/temp",
				Identifier: 0x00ABCDEF,
				QoS:        1,
				Options:    0x0C,
			},
		},
		{
			name: "unicode topic",
			entity: &Subscription{
				ClientID: "🔑",
				Topic:    "капуста/#",
			},
		},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	for _, tc := range sampleEntities() {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Marshal(tc.entity)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			decoded, err := Unmarshal(encoded)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}

			if !reflect.DeepEqual(decoded, tc.entity) {
				t.Errorf("round trip mismatch:\n got  %#v\n want %#v", decoded, tc.entity)
			}
		})
	}
}

func TestHeaderLengthMatchesBytesConsumed(t *testing.T) {
	for _, tc := range sampleEntities() {
		t.Run(tc.name, func(t *testing.T) {
			encoded, err := Marshal(tc.entity)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}

			length := binary.BigEndian.Uint32(encoded[4:8])
			if int(length) != len(encoded)-HeaderSize {
				t.Errorf("header length %d, body is %d bytes", length, len(encoded)-HeaderSize)
			}

			size, err := EncodedSize(tc.entity)
			if err != nil {
				t.Fatalf("EncodedSize failed: %v", err)
			}
			if size != length {
				t.Errorf("EncodedSize = %d, header says %d", size, length)
			}

			r := NewReader(bytes.NewReader(encoded))
			if _, err := r.Next(); err != nil {
				t.Fatalf("Next failed: %v", err)
			}
			if r.Offset() != int64(len(encoded)) {
				t.Errorf("reader consumed %d bytes, want %d", r.Offset(), len(encoded))
			}
		})
	}
}

func TestEncodeWireVector(t *testing.T) {
	c := &Client{ID: "ab", SessionExpiryInterval: 3600, LastMID: 42}

	encoded, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	want := []byte{
		0x00, 0x00, 0x00, 0x06, // CLIENT
		0x00, 0x00, 0x00, 0x12, // 16 fixed + 2
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // session expiry time
		0x00, 0x00, 0x0E, 0x10, // session expiry interval
		0x00, 0x2A, // last mid
		0x00, 0x02, // id len
		'a', 'b',
	}
	if !bytes.Equal(encoded, want) {
		t.Errorf("encoded bytes:\n got  % x\n want % x", encoded, want)
	}
}

func TestEncodeIDLengthIsBigEndian(t *testing.T) {
	c := &Client{ID: strings.Repeat("x", 258)}

	encoded, err := Marshal(c)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	// id_len sits in the last two bytes of the fixed part.
	idLen := encoded[HeaderSize+14 : HeaderSize+16]
	if !bytes.Equal(idLen, []byte{0x01, 0x02}) {
		t.Errorf("id_len bytes = % x, want 01 02", idLen)
	}
}

func TestEncodeMessageStoreLayout(t *testing.T) {
	m := &MessageStore{
		StoreID:        1,
		SourceID:       "src",
		SourceUsername: "user",
		Topic:          "t",
		Payload:        []byte("pl"),
		SourcePort:     1883,
		QoS:            2,
		Retain:         true,
	}

	encoded, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	body := encoded[HeaderSize:]
	if got := binary.BigEndian.Uint32(body[16:20]); got != 2 {
		t.Errorf("payloadlen = %d, want 2", got)
	}
	if got := binary.BigEndian.Uint16(body[28:30]); got != 1883 {
		t.Errorf("source_port = %d, want 1883", got)
	}
	if body[30] != 2 || body[31] != 1 {
		t.Errorf("qos/retain = %d/%d, want 2/1", body[30], body[31])
	}
	if tail := string(body[messageStoreFixedSize:]); tail != "srcusertpl" {
		t.Errorf("variable fields = %q, want %q", tail, "srcusertpl")
	}
}

func TestEncodeClientMessageRetainDupNibbles(t *testing.T) {
	m := &ClientMessage{ClientID: "c", Retain: true, Dup: false}

	encoded, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if got := encoded[HeaderSize+14]; got != 0x10 {
		t.Errorf("retain_dup = %#x, want 0x10", got)
	}
}

func TestEncodeDoesNotMutateEntity(t *testing.T) {
	original := &MessageStore{
		StoreID:   5,
		SourceMID: 0x0102,
		Topic:     "a/b",
		Payload:   []byte{1, 2, 3},
	}
	snapshot := *original
	snapshot.Payload = append([]byte(nil), original.Payload...)

	var buf bytes.Buffer
	if err := Encode(&buf, original); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := Encode(&buf, original); err != nil {
		t.Fatalf("second Encode failed: %v", err)
	}

	if !reflect.DeepEqual(*original, snapshot) {
		t.Errorf("entity changed by Encode: %#v", original)
	}

	half := buf.Len() / 2
	if !bytes.Equal(buf.Bytes()[:half], buf.Bytes()[half:]) {
		t.Error("encoding the same entity twice produced different bytes")
	}
}

func TestEncodeFieldLimits(t *testing.T) {
	t.Run("client id of 65535 bytes round trips", func(t *testing.T) {
		c := &Client{ID: strings.Repeat("a", 65535)}

		encoded, err := Marshal(c)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		decoded, err := Unmarshal(encoded)
		if err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if decoded.(*Client).ID != c.ID {
			t.Error("client id changed across round trip")
		}
	})

	testCases := []struct {
		name   string
		entity Entity
		field  string
	}{
		{"client id", &Client{ID: strings.Repeat("a", 65536)}, "client_id"},
		{"client message id", &ClientMessage{ClientID: strings.Repeat("a", 65536)}, "client_id"},
		{"message topic", &MessageStore{Topic: strings.Repeat("t", 65536)}, "topic"},
		{"source username", &MessageStore{SourceUsername: strings.Repeat("u", 70000)}, "source_username"},
		{"subscription topic", &Subscription{ClientID: "c", Topic: strings.Repeat("t", 65536)}, "topic"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Encode(&buf, tc.entity)
			if !errors.Is(err, ErrFieldTooLarge) {
				t.Fatalf("expected ErrFieldTooLarge, got %v", err)
			}

			var fe *FormatError
			if !errors.As(err, &fe) || fe.Field != tc.field {
				t.Errorf("expected error on field %q, got %v", tc.field, err)
			}
			if buf.Len() != 0 {
				t.Errorf("%d bytes written for a rejected entity", buf.Len())
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	client, err := Marshal(&Client{ID: "dev-01"})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	withLength := func(data []byte, length uint32) []byte {
		out := append([]byte(nil), data...)
		binary.BigEndian.PutUint32(out[4:8], length)
		return out
	}

	testCases := []struct {
		name string
		data []byte
		want error
	}{
		{"empty input", nil, ErrUnexpectedEOF},
		{"partial header", client[:5], ErrUnexpectedEOF},
		{"partial fixed part", client[:HeaderSize+10], ErrUnexpectedEOF},
		{"truncated client id", client[:len(client)-1], ErrUnexpectedEOF},
		{"header length one short", withLength(client, 21), ErrLengthMismatch},
		{"header length one long", withLength(client, 23), ErrLengthMismatch},
		{"header shorter than fixed part", withLength(client, 4), ErrLengthMismatch},
		{"trailing bytes", append(append([]byte(nil), client...), 0x00), ErrLengthMismatch},
		{"unknown chunk type", []byte{0, 0, 0, 42, 0, 0, 0, 0}, ErrUnknownChunk},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Unmarshal(tc.data)
			if !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestEndToEndClientAndMessageStore(t *testing.T) {
	client := &Client{ID: "dev-01", SessionExpiryInterval: 3600, LastMID: 42}
	msg := &MessageStore{Topic: "a/b", Payload: []byte{0, 1, 2, 3, 4}}

	var buf bytes.Buffer
	if err := WriteAll(&buf, []Entity{client, msg}); err != nil {
		t.Fatalf("WriteAll failed: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	entities, err := r.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("decoded %d entities, want 2", len(entities))
	}

	gotClient, ok := entities[0].(*Client)
	if !ok {
		t.Fatalf("first entity is %T, want *Client", entities[0])
	}
	if gotClient.SessionExpiryInterval != 3600 || gotClient.LastMID != 42 || gotClient.ID != "dev-01" {
		t.Errorf("client mismatch: %#v", gotClient)
	}

	gotMsg, ok := entities[1].(*MessageStore)
	if !ok {
		t.Fatalf("second entity is %T, want *MessageStore", entities[1])
	}
	if gotMsg.Topic != "a/b" || !bytes.Equal(gotMsg.Payload, []byte{0, 1, 2, 3, 4}) {
		t.Errorf("message mismatch: %#v", gotMsg)
	}
	if gotMsg.SourceID != "" || gotMsg.SourceUsername != "" {
		t.Errorf("expected empty source fields, got %q/%q", gotMsg.SourceID, gotMsg.SourceUsername)
	}
}

func TestFixedSizes(t *testing.T) {
	// The fixed part written by each wire view must match the declared size.
	for _, tc := range sampleEntities() {
		t.Run(tc.name, func(t *testing.T) {
			fixed, _, err := encodeView(tc.entity)
			if err != nil {
				t.Fatalf("encodeView failed: %v", err)
			}
			if len(fixed) != FixedSize(tc.entity.ChunkType()) {
				t.Errorf("fixed part is %d bytes, want %d", len(fixed), FixedSize(tc.entity.ChunkType()))
			}
		})
	}
}

func TestEncodeNilEntity(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil); err == nil {
		t.Error("expected error for nil entity")
	}
}
