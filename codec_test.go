package main

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/zlib"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"hello",
		`{"grid":["  !!"],"keys":["","1"]}`,
		"ünïcødé 瓦片",
		string(bytes.Repeat([]byte("abc"), 10000)),
	}
	for _, in := range inputs {
		enc, err := Encode([]byte(in))
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		if f := DetectFormat(enc); f != GZIP {
			t.Fatalf("encoded data detected as %s", f)
		}
		out, err := Decode(enc, GZIP)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if out != in {
			t.Errorf("round trip mismatch: got %d bytes, want %d", len(out), len(in))
		}
	}
}

func TestDecode_Zlib(t *testing.T) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write([]byte(`{"keys":[]}`))
	zw.Close()

	if f := DetectFormat(buf.Bytes()); f != ZLIB {
		t.Fatalf("DetectFormat = %s, want zlib", f)
	}
	out, err := Decode(buf.Bytes(), ZLIB)
	if err != nil {
		t.Fatal(err)
	}
	if out != `{"keys":[]}` {
		t.Errorf("Decode = %q", out)
	}
}

func TestDecode_Unsupported(t *testing.T) {
	for _, f := range []DataFormat{PNG, JPG, WEBP, JSON, PBF, UNKNOWN} {
		if _, err := Decode([]byte("x"), f); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("Decode(%s) err = %v, want ErrUnsupportedFormat", f, err)
		}
	}
}

func TestDecode_Corrupt(t *testing.T) {
	enc := mustEncode(t, []byte("some payload that is long enough"))
	tests := map[string]struct {
		data   []byte
		format DataFormat
	}{
		"truncated gzip":  {enc[:len(enc)/2], GZIP},
		"bad gzip header": {[]byte{0x1f, 0x8b, 0xff}, GZIP},
		"bad zlib":        {[]byte{0x78, 0x9c, 0xff, 0xff, 0xff}, ZLIB},
		"invalid utf8":    {mustEncode(t, []byte{0xff, 0xfe, 0xfd}), GZIP},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode(tt.data, tt.format); !errors.Is(err, ErrCorruptData) {
				t.Errorf("err = %v, want ErrCorruptData", err)
			}
		})
	}
}
