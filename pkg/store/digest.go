package store

import (
	"encoding/hex"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/zeebo/blake3"
)

type digestResult struct {
	n   int64
	sum string
}

// digestCopy copies src to dst and hashes what passed through.
func digestCopy(dst io.Writer, src io.Reader) (digestResult, error) {
	h := blake3.New()
	n, err := io.Copy(io.MultiWriter(dst, h), src)
	if err != nil {
		return digestResult{n: n}, err
	}
	return digestResult{n: n, sum: hex.EncodeToString(h.Sum(nil))}, nil
}

// FileDigest returns the hex BLAKE3 digest of the file at path as stored on
// disk, without decompressing it.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrap(err, "open for digest")
	}
	defer f.Close()

	d, err := digestCopy(io.Discard, f)
	if err != nil {
		return "", errors.Wrap(err, "digest")
	}
	return d.sum, nil
}
