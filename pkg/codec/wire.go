package codec

import "encoding/binary"

// ToWire16 returns v rearranged so that its in-memory bytes are big-endian.
// On a big-endian host it is the identity.
func ToWire16(v uint16) uint16 {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return binary.NativeEndian.Uint16(b[:])
}

// FromWire16 is the inverse of ToWire16.
func FromWire16(v uint16) uint16 {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], v)
	return binary.BigEndian.Uint16(b[:])
}

// ToWire32 returns v rearranged so that its in-memory bytes are big-endian.
func ToWire32(v uint32) uint32 {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	return binary.NativeEndian.Uint32(b[:])
}

// FromWire32 is the inverse of ToWire32.
func FromWire32(v uint32) uint32 {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], v)
	return binary.BigEndian.Uint32(b[:])
}

// ToWire64 returns v rearranged so that its in-memory bytes are big-endian.
func ToWire64(v uint64) uint64 {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return binary.NativeEndian.Uint64(b[:])
}

// FromWire64 is the inverse of ToWire64.
func FromWire64(v uint64) uint64 {
	var b [8]byte
	binary.NativeEndian.PutUint64(b[:], v)
	return binary.BigEndian.Uint64(b[:])
}
