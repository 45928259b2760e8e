package codec

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestToWireProducesBigEndianMemory(t *testing.T) {
	var b16 [2]byte
	binary.NativeEndian.PutUint16(b16[:], ToWire16(258))
	if !bytes.Equal(b16[:], []byte{0x01, 0x02}) {
		t.Errorf("ToWire16(258) in memory = % x, want 01 02", b16)
	}

	var b32 [4]byte
	binary.NativeEndian.PutUint32(b32[:], ToWire32(0x01020304))
	if !bytes.Equal(b32[:], []byte{0x01, 0x02, 0x03, 0x04}) {
		t.Errorf("ToWire32 in memory = % x, want 01 02 03 04", b32)
	}

	var b64 [8]byte
	binary.NativeEndian.PutUint64(b64[:], ToWire64(0x0102030405060708))
	if !bytes.Equal(b64[:], []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Errorf("ToWire64 in memory = % x, want 01 .. 08", b64)
	}
}

func TestFromWireInvertsToWire(t *testing.T) {
	for _, v := range []uint16{0, 1, 258, 0xFFFF} {
		if got := FromWire16(ToWire16(v)); got != v {
			t.Errorf("FromWire16(ToWire16(%d)) = %d", v, got)
		}
	}
	for _, v := range []uint32{0, 1, 3600, 0xFFFFFFFF} {
		if got := FromWire32(ToWire32(v)); got != v {
			t.Errorf("FromWire32(ToWire32(%d)) = %d", v, got)
		}
	}
	for _, v := range []uint64{0, 1, 1 << 40, ^uint64(0)} {
		if got := FromWire64(ToWire64(v)); got != v {
			t.Errorf("FromWire64(ToWire64(%d)) = %d", v, got)
		}
	}
}

func TestToWireMatchesEncodedField(t *testing.T) {
	// The codec writes through encoding/binary; its bytes must agree with the
	// in-memory form produced by ToWire.
	encoded, err := Marshal(&Client{LastMID: 0xBEEF})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var mem [2]byte
	binary.NativeEndian.PutUint16(mem[:], ToWire16(0xBEEF))
	if !bytes.Equal(encoded[HeaderSize+12:HeaderSize+14], mem[:]) {
		t.Errorf("last_mid bytes % x, ToWire16 memory % x", encoded[HeaderSize+12:HeaderSize+14], mem)
	}
}
