package compress

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

type Encoding string

const (
	Gzip Encoding = "gzip"
	Zstd Encoding = "zstd"
)

func (e Encoding) Ext() string {
	switch e {
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	}
	return ""
}

func ParseEncoding(s string) (Encoding, error) {
	switch Encoding(s) {
	case Gzip, Zstd:
		return Encoding(s), nil
	}
	return "", fmt.Errorf("unknown precompression encoding %q (want %q or %q)", s, Gzip, Zstd)
}

// zstd.Encoder is safe for concurrent EncodeAll calls.
var zstdEncoder *zstd.Encoder

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil,
		zstd.WithEncoderLevel(zstd.SpeedBestCompression),
		zstd.WithEncoderConcurrency(1),
	)
	if err != nil {
		panic("compress: zstd encoder initialization failed: " + err.Error())
	}
}

// Encode compresses data. Output depends only on the input bytes: the gzip
// header carries no name or modification time.
func Encode(enc Encoding, data []byte) ([]byte, error) {
	switch enc {
	case Gzip:
		var buf bytes.Buffer
		w, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return buf.Bytes(), nil
	case Zstd:
		return zstdEncoder.EncodeAll(data, nil), nil
	}
	return nil, fmt.Errorf("unknown encoding %q", enc)
}
