package store

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// zstdMagic starts every zstd frame.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// ArchiveResult describes a completed archive
type ArchiveResult struct {
	Source         string
	Destination    string
	BytesIn        int64
	BytesOut       int64
	SourceDigest   string
	ArchivedDigest string
}

// Archive copies the persistence file at src to dst as a zstd stream. The
// source header is checked first so only persistence files get archived.
func Archive(src, dst string) (*ArchiveResult, error) {
	in, err := os.Open(src)
	if err != nil {
		return nil, errors.Wrap(err, "open source")
	}
	defer in.Close()

	if _, err := ReadFileHeader(in); err != nil {
		return nil, errors.Wrapf(err, "archive %s", src)
	}
	if _, err := in.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "rewind source")
	}

	return writeArchive(dst, src, in)
}

// writeArchive compresses in to dst. On failure dst is removed so no
// partial archive is left behind.
func writeArchive(dst, src string, in io.Reader) (*ArchiveResult, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return nil, errors.Wrap(err, "create archive directory")
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return nil, errors.Wrap(err, "create archive")
	}

	fail := func(err error) (*ArchiveResult, error) {
		out.Close()
		os.Remove(dst)
		return nil, err
	}

	counted := &countingWriter{w: out}
	enc, err := zstd.NewWriter(counted, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fail(errors.Wrap(err, "create zstd encoder"))
	}

	srcDigest, err := digestCopy(enc, in)
	if err != nil {
		enc.Close()
		return fail(errors.Wrap(err, "compress"))
	}
	if err := enc.Close(); err != nil {
		return fail(errors.Wrap(err, "finish zstd stream"))
	}
	if err := out.Sync(); err != nil {
		return fail(errors.Wrap(err, "fsync archive"))
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return nil, errors.Wrap(err, "close archive")
	}

	archived, err := FileDigest(dst)
	if err != nil {
		return nil, err
	}

	return &ArchiveResult{
		Source:         src,
		Destination:    dst,
		BytesIn:        srcDigest.n,
		BytesOut:       counted.n,
		SourceDigest:   srcDigest.sum,
		ArchivedDigest: archived,
	}, nil
}

// OpenStream opens a persistence file for reading, decompressing it if it
// is a zstd archive. The returned stream starts at the file header.
func OpenStream(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open persistence file")
	}

	br := bufio.NewReader(file)
	head, err := br.Peek(len(zstdMagic))
	if err != nil && err != io.EOF {
		file.Close()
		return nil, errors.Wrap(err, "peek persistence file")
	}

	if !bytes.Equal(head, zstdMagic) {
		return &stream{Reader: br, closers: []io.Closer{file}}, nil
	}

	dec, err := zstd.NewReader(br)
	if err != nil {
		file.Close()
		return nil, errors.Wrap(err, "create zstd decoder")
	}
	rc := dec.IOReadCloser()
	return &stream{Reader: rc, closers: []io.Closer{rc, file}}, nil
}

// stream closes every layer under a decoded reader.
type stream struct {
	io.Reader
	closers []io.Closer
}

func (s *stream) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
