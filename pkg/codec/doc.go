// Package codec encodes and decodes the chunks of a broker persistence file.
//
// A persistence file body is a flat sequence of chunks. Every chunk starts
// with an 8-byte header followed by a fixed-size part and zero or more
// variable-length fields:
//
//	[Type(4)][Length(4)][Fixed part][Variable fields...]
//
// All multi-byte integers are big-endian regardless of host. Length counts
// the fixed part plus the variable fields and never the header, so a reader
// that does not understand Type can skip exactly Length bytes and land on
// the next header.
//
// # Chunk Types
//
//	CFG        (1)  16 bytes fixed, no variable fields
//	MSG_STORE  (2)  32 bytes fixed, then source id, source username, topic, payload
//	CLIENT_MSG (3)  16 bytes fixed, then client id
//	RETAIN     (4)   8 bytes fixed, no variable fields
//	SUB        (5)  16 bytes fixed, then client id, topic
//	CLIENT     (6)  16 bytes fixed, then client id
//
// Each variable field is announced by a count in the fixed part: 16 bits for
// ids, usernames and topics, 32 bits for payloads. Zero-length fields
// occupy no bytes. Encoding a field longer than its count can express fails
// with ErrFieldTooLarge before anything is written.
//
// # Usage
//
//	err := codec.WriteAll(w, []codec.Entity{
//	    &codec.Client{ID: "dev-01", SessionExpiryInterval: 3600, LastMID: 42},
//	    &codec.Retain{StoreID: 7},
//	})
//
//	r := codec.NewReader(f)
//	for {
//	    e, err := r.Next()
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        return err // stream position is no longer trustworthy
//	    }
//	    switch v := e.(type) {
//	    case *codec.Client:
//	        ...
//	    }
//	}
//
// # Errors
//
// Structural problems are reported as *FormatError and match one of
// ErrLengthMismatch, ErrUnexpectedEOF or ErrFieldTooLarge with errors.Is.
// Failures of the underlying stream are *IOError. Both are fatal to the
// stream being read or written. The package never logs.
//
// # Thread Safety
//
// Encode, Decode and WriteAll hold no state. A Reader must not be shared
// between goroutines.
package codec
