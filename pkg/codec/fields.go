package codec

import "encoding/binary"

// fieldBuffer lays out the fixed part of a chunk. The same pack function
// drives both directions: when writing it appends the pointed-to values in
// wire order, when reading it fills them from data. Readers are always
// handed exactly the fixed size of their chunk.
type fieldBuffer struct {
	data    []byte
	pos     int
	writing bool
}

func newFieldWriter(size int) *fieldBuffer {
	return &fieldBuffer{data: make([]byte, 0, size), writing: true}
}

func newFieldReader(data []byte) *fieldBuffer {
	return &fieldBuffer{data: data}
}

func (b *fieldBuffer) next(n int) []byte {
	s := b.data[b.pos : b.pos+n]
	b.pos += n
	return s
}

func (b *fieldBuffer) u8(v *uint8) {
	if b.writing {
		b.data = append(b.data, *v)
	} else {
		*v = b.next(1)[0]
	}
}

func (b *fieldBuffer) flag(v *bool) {
	var u uint8
	if *v {
		u = 1
	}
	b.u8(&u)
	*v = u != 0
}

func (b *fieldBuffer) u16(v *uint16) {
	if b.writing {
		b.data = binary.BigEndian.AppendUint16(b.data, *v)
	} else {
		*v = binary.BigEndian.Uint16(b.next(2))
	}
}

func (b *fieldBuffer) u32(v *uint32) {
	if b.writing {
		b.data = binary.BigEndian.AppendUint32(b.data, *v)
	} else {
		*v = binary.BigEndian.Uint32(b.next(4))
	}
}

func (b *fieldBuffer) u64(v *uint64) {
	if b.writing {
		b.data = binary.BigEndian.AppendUint64(b.data, *v)
	} else {
		*v = binary.BigEndian.Uint64(b.next(8))
	}
}

func (b *fieldBuffer) i64(v *int64) {
	u := uint64(*v)
	b.u64(&u)
	*v = int64(u)
}

// pad writes n zero bytes, or skips n bytes when reading.
func (b *fieldBuffer) pad(n int) {
	if b.writing {
		b.data = append(b.data, make([]byte, n)...)
	} else {
		b.pos += n
	}
}
