package main

import "errors"

// Sentinel errors, wrapped with context and matched with errors.Is.
var (
	// ErrNotAnArchive 文件无法打开, 或缺少 tiles/metadata 表
	ErrNotAnArchive = errors.New("not an mbtiles archive")
	// ErrUnsupportedFormat 解码时数据不是 gzip/zlib
	ErrUnsupportedFormat = errors.New("unsupported data format")
	// ErrCorruptData 解压或 JSON 解析失败
	ErrCorruptData = errors.New("corrupt data")
	// ErrNotFound 坐标没有对应数据
	ErrNotFound = errors.New("not found")
	// ErrParse metadata 中的数值字段非法
	ErrParse = errors.New("invalid metadata value")
	// ErrDuplicateID 两个文件得到了同一个 id
	ErrDuplicateID = errors.New("duplicate tileset id")
)
