package main

import (
	"bytes"
	"strings"

	json "github.com/goccy/go-json"
)

// DataFormat 瓦片/UTFGrid 数据格式
type DataFormat int

// Constants representing DataFormat types
const (
	UNKNOWN DataFormat = iota
	PNG
	JPG
	WEBP
	JSON
	PBF
	GZIP // encoding = gzip, may hide a PBF payload
	ZLIB // encoding = deflate
)

var formatNames = map[DataFormat]string{
	UNKNOWN: "unknown",
	PNG:     "png",
	JPG:     "jpg",
	WEBP:    "webp",
	JSON:    "json",
	PBF:     "pbf",
	GZIP:    "gzip",
	ZLIB:    "zlib",
}

var (
	magicGZIP = []byte{0x1f, 0x8b}
	magicZLIB = []byte{0x78, 0x9c}
	magicPNG  = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}
	magicJPG  = []byte{0xff, 0xd8, 0xff}
	magicRIFF = []byte("RIFF")
	magicWEBP = []byte("WEBP")
)

// ParseDataFormat 由名称解析格式, 未知名称返回 UNKNOWN
func ParseDataFormat(s string) DataFormat {
	switch strings.ToLower(s) {
	case "png":
		return PNG
	case "jpg", "jpeg":
		return JPG
	case "webp":
		return WEBP
	case "json":
		return JSON
	case "pbf":
		return PBF
	case "gzip":
		return GZIP
	case "zlib":
		return ZLIB
	}
	return UNKNOWN
}

func (f DataFormat) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return formatNames[UNKNOWN]
}

// Extension 瓦片URL后缀, 压缩格式与未知格式没有后缀
func (f DataFormat) Extension() string {
	switch f {
	case PNG, JPG, WEBP, JSON, PBF:
		return f.String()
	}
	return ""
}

// ContentType HTTP Content-Type
func (f DataFormat) ContentType() string {
	switch f {
	case PNG:
		return "image/png"
	case JPG:
		return "image/jpeg"
	case WEBP:
		return "image/webp"
	case JSON:
		return "application/json"
	case PBF:
		return "application/x-protobuf"
	}
	return ""
}

// IsCompressed reports whether f is a compression wrapper rather than a payload.
func (f DataFormat) IsCompressed() bool {
	return f == GZIP || f == ZLIB
}

func (f DataFormat) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

func (f *DataFormat) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*f = ParseDataFormat(s)
	return nil
}

// DetectFormat 根据魔数判断数据格式
//
// GZIP is checked first, so a gzip compressed PBF tile is reported as GZIP.
// Buffers shorter than a signature simply do not match it.
func DetectFormat(data []byte) DataFormat {
	switch {
	case bytes.HasPrefix(data, magicGZIP):
		return GZIP
	case bytes.HasPrefix(data, magicZLIB):
		return ZLIB
	case bytes.HasPrefix(data, magicPNG):
		return PNG
	case bytes.HasPrefix(data, magicJPG):
		return JPG
	case len(data) >= 12 && bytes.Equal(data[0:4], magicRIFF) && bytes.Equal(data[8:12], magicWEBP):
		// bytes 4..8 hold the little endian RIFF chunk size
		return WEBP
	}
	return UNKNOWN
}
