package compress

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

func TestEncodeRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("body{color:red}", 200))

	t.Run("gzip", func(t *testing.T) {
		out, err := Encode(Gzip, data)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		r, err := gzip.NewReader(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("gzip.NewReader() error = %v", err)
		}
		got, err := io.ReadAll(r)
		if err != nil {
			t.Fatalf("ReadAll() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Error("gzip round trip mismatch")
		}
	})

	t.Run("zstd", func(t *testing.T) {
		out, err := Encode(Zstd, data)
		if err != nil {
			t.Fatalf("Encode() error = %v", err)
		}
		dec, err := zstd.NewReader(nil)
		if err != nil {
			t.Fatalf("zstd.NewReader() error = %v", err)
		}
		defer dec.Close()
		got, err := dec.DecodeAll(out, nil)
		if err != nil {
			t.Fatalf("DecodeAll() error = %v", err)
		}
		if !bytes.Equal(got, data) {
			t.Error("zstd round trip mismatch")
		}
	})
}

func TestEncodeDeterministic(t *testing.T) {
	data := []byte("function f(){return 1}")
	for _, enc := range []Encoding{Gzip, Zstd} {
		a, err := Encode(enc, data)
		if err != nil {
			t.Fatalf("Encode(%s) error = %v", enc, err)
		}
		b, _ := Encode(enc, data)
		if !bytes.Equal(a, b) {
			t.Errorf("Encode(%s) is not deterministic", enc)
		}
	}
}

func TestParseEncoding(t *testing.T) {
	if enc, err := ParseEncoding("gzip"); err != nil || enc.Ext() != ".gz" {
		t.Errorf("ParseEncoding(gzip) = %q, %v", enc, err)
	}
	if enc, err := ParseEncoding("zstd"); err != nil || enc.Ext() != ".zst" {
		t.Errorf("ParseEncoding(zstd) = %q, %v", enc, err)
	}
	if _, err := ParseEncoding("brotli"); err == nil {
		t.Error("ParseEncoding(brotli) expected error")
	}
}
