package main

import (
	"testing"

	json "github.com/goccy/go-json"
)

func TestDetectFormat(t *testing.T) {
	webp := func(size byte) []byte {
		return []byte{'R', 'I', 'F', 'F', size, 0x12, 0x00, 0x00, 'W', 'E', 'B', 'P', 'V', 'P', '8', ' '}
	}
	tests := []struct {
		name string
		data []byte
		want DataFormat
	}{
		{"empty", nil, UNKNOWN},
		{"one byte", []byte{0x1f}, UNKNOWN},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, GZIP},
		{"gzip magic only", []byte{0x1f, 0x8b}, GZIP},
		{"zlib", []byte{0x78, 0x9c, 0x01}, ZLIB},
		{"png", pngTile, PNG},
		{"truncated png", pngTile[:5], UNKNOWN},
		{"jpg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, JPG},
		{"webp", webp(0xc0), WEBP},
		{"webp other size", webp(0x2a), WEBP},
		{"riff not webp", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), UNKNOWN},
		{"short riff", []byte("RIFF\x00\x00\x00\x00WEB"), UNKNOWN},
		{"json", []byte(`{"grid":[]}`), UNKNOWN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFormat(tt.data); got != tt.want {
				t.Errorf("DetectFormat() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDetectFormat_GzipMasksPBF(t *testing.T) {
	pbf := []byte{0x1a, 0x05, 0x0a, 0x03, 'r', 'o', 'a'}
	if got := DetectFormat(mustEncode(t, pbf)); got != GZIP {
		t.Errorf("gzip pbf detected as %s, want gzip", got)
	}
}

func TestDataFormat_Lookups(t *testing.T) {
	tests := []struct {
		format      DataFormat
		ext         string
		contentType string
	}{
		{PNG, "png", "image/png"},
		{JPG, "jpg", "image/jpeg"},
		{WEBP, "webp", "image/webp"},
		{JSON, "json", "application/json"},
		{PBF, "pbf", "application/x-protobuf"},
		{GZIP, "", ""},
		{ZLIB, "", ""},
		{UNKNOWN, "", ""},
		{DataFormat(99), "", ""},
	}
	for _, tt := range tests {
		if got := tt.format.Extension(); got != tt.ext {
			t.Errorf("%s.Extension() = %q, want %q", tt.format, got, tt.ext)
		}
		if got := tt.format.ContentType(); got != tt.contentType {
			t.Errorf("%s.ContentType() = %q, want %q", tt.format, got, tt.contentType)
		}
	}
}

func TestParseDataFormat(t *testing.T) {
	tests := map[string]DataFormat{
		"png":  PNG,
		"jpg":  JPG,
		"jpeg": JPG,
		"JPEG": JPG,
		"webp": WEBP,
		"json": JSON,
		"pbf":  PBF,
		"gzip": GZIP,
		"zlib": ZLIB,
		"tiff": UNKNOWN,
		"":     UNKNOWN,
	}
	for in, want := range tests {
		if got := ParseDataFormat(in); got != want {
			t.Errorf("ParseDataFormat(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestDataFormat_JSON(t *testing.T) {
	out, err := json.Marshal(struct {
		F DataFormat `json:"f"`
	}{PBF})
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != `{"f":"pbf"}` {
		t.Errorf("Marshal = %s", out)
	}

	var f DataFormat
	if err := json.Unmarshal([]byte(`"webp"`), &f); err != nil {
		t.Fatal(err)
	}
	if f != WEBP {
		t.Errorf("Unmarshal = %s, want webp", f)
	}
}
