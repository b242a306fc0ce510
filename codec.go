package main

import (
	"bytes"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
)

// Decode 解压 gzip/zlib 数据为文本
func Decode(data []byte, format DataFormat) (string, error) {
	raw, err := inflate(data, format)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("decode %s: invalid utf-8: %w", format, ErrCorruptData)
	}
	return string(raw), nil
}

// Encode 以默认压缩级别 gzip 压缩
func Encode(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func inflate(data []byte, format DataFormat) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	switch format {
	case GZIP:
		r, err = gzip.NewReader(bytes.NewReader(data))
	case ZLIB:
		r, err = zlib.NewReader(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("decode %s: %w", format, ErrUnsupportedFormat)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %v: %w", format, err, ErrCorruptData)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s stream: %v: %w", format, err, ErrCorruptData)
	}
	return out, nil
}
