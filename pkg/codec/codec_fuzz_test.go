//go:build fuzz
// +build fuzz

package codec

import (
	"bytes"
	"errors"
	"io"
	"reflect"
	"testing"
)

// FuzzMessageStore_RoundTrip tests encode/decode round-trip with random fields
func FuzzMessageStore_RoundTrip(f *testing.F) {
	f.Add("", "", "a/b", []byte{0, 1, 2, 3, 4}, uint64(1), uint16(0))
	f.Add("publisher", "alice", "sensors/1", []byte(nil), uint64(99), uint16(1883))
	f.Add("x", "", "", []byte{0xFF}, ^uint64(0), uint16(0xFFFF))

	f.Fuzz(func(t *testing.T, sourceID, username, topic string, payload []byte, storeID uint64, port uint16) {
		if len(sourceID) > 65535 || len(username) > 65535 || len(topic) > 65535 || len(payload) > 1<<20 {
			t.Skip("Input too large for fuzz test")
		}
		if len(payload) == 0 {
			payload = nil
		}

		m := &MessageStore{
			StoreID:        storeID,
			SourceID:       sourceID,
			SourceUsername: username,
			Topic:          topic,
			SourcePort:     port,
			Payload:        payload,
		}

		encoded, err := Marshal(m)
		if err != nil {
			t.Fatalf("Marshal failed: %v", err)
		}
		decoded, err := Unmarshal(encoded)
		if err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if !reflect.DeepEqual(decoded, m) {
			t.Errorf("round trip mismatch: got %#v, want %#v", decoded, m)
		}
	})
}

// FuzzReader_MalformedData tests that arbitrary input never panics the reader
func FuzzReader_MalformedData(f *testing.F) {
	f.Add([]byte{})
	f.Add([]byte{0, 0, 0, 6})
	f.Add([]byte{0, 0, 0, 4, 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 1})
	f.Add([]byte{0, 0, 0, 99, 0, 0, 0, 1, 0})

	f.Fuzz(func(t *testing.T, data []byte) {
		if len(data) > 100000 {
			t.Skip("Input too large for fuzz test")
		}

		r := NewReader(bytes.NewReader(data))
		for {
			_, err := r.Next()
			if err == nil {
				continue
			}
			var fe *FormatError
			var ioErr *IOError
			if err != io.EOF && !errors.As(err, &fe) && !errors.As(err, &ioErr) {
				t.Fatalf("untyped error from reader: %v", err)
			}
			return
		}
	})
}

// FuzzTruncation checks that dropping trailing bytes is always detected
func FuzzTruncation(f *testing.F) {
	f.Add("dev-01", "a/b", uint(1))
	f.Add("c", "sensors/#", uint(7))

	f.Fuzz(func(t *testing.T, clientID, topic string, cut uint) {
		if len(clientID) > 1000 || len(topic) > 1000 {
			t.Skip("Input too large for fuzz test")
		}

		encoded, err := Marshal(&Subscription{ClientID: clientID, Topic: topic})
		if err != nil {
			t.Skip("Encode failed, skipping")
		}
		if cut == 0 || int(cut) > len(encoded) {
			t.Skip("Cut outside encoded data")
		}

		_, err = Unmarshal(encoded[:len(encoded)-int(cut)])
		if !errors.Is(err, ErrUnexpectedEOF) && !errors.Is(err, ErrLengthMismatch) {
			t.Errorf("truncation by %d not detected: %v", cut, err)
		}
	})
}
