// Package compress provides the byte-level compression stage of the content
// cache pipeline. It is deliberately a standalone bytes-to-bytes transform
// so the compressor can be swapped without touching cache storage logic.
package compress

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
)

// Gzip compresses and decompresses byte slices with compress/gzip.
type Gzip struct{}

func NewGzip() *Gzip {
	return &Gzip{}
}

// Compress returns the gzip-compressed form of data.
func (g *Gzip) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("compressing: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalizing compression: %w", err)
	}

	return buf.Bytes(), nil
}

// Decompress inflates gzip data. Corrupt input returns an error; callers in
// the cache treat that as a miss.
func (g *Gzip) Decompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opening compressed data: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("decompressing: %w", err)
	}
	return out, nil
}
