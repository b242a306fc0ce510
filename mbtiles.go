package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

const (
	defaultTileJSON = "2.1.0"
	defaultScheme   = "xyz"
)

// TileMeta 一个 mbtiles 文件的元数据, 创建后不再修改
type TileMeta struct {
	Path         string
	ID           string
	Name         *string
	Version      *string
	Description  *string
	Attribution  *string
	Legend       *string
	Template     *string
	TileJSON     string
	Scheme       string
	TileFormat   DataFormat
	TileEncoding *DataFormat // gzip/zlib wrapper of a vector tileset
	GridFormat   *DataFormat
	Bounds       []float64 // west, south, east, north
	MinZoom      *uint32
	MaxZoom      *uint32
}

// Bound 返回 bounds 对应的 orb.Bound
func (m *TileMeta) Bound() (orb.Bound, bool) {
	if len(m.Bounds) != 4 {
		return orb.Bound{}, false
	}
	return orb.Bound{
		Min: orb.Point{m.Bounds[0], m.Bounds[1]},
		Max: orb.Point{m.Bounds[2], m.Bounds[3]},
	}, true
}

// UTFGrid 交互数据
type UTFGrid struct {
	Data map[string]interface{} `json:"data"`
	Grid []string               `json:"grid"`
	Keys []string               `json:"keys"`
}

type utfGridKeys struct {
	Grid []string `json:"grid"`
	Keys []string `json:"keys"`
}

var gridTables = []string{"grids", "grid_data", "grid_utfgrid", "keymap", "grid_key"}

// blankPNG 256x256 透明 png, 缺失瓦片时返回
var blankPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00,
	0x01, 0x03, 0x00, 0x00, 0x00, 0x66, 0xbc, 0x3a, 0x25, 0x00, 0x00, 0x00,
	0x03, 0x50, 0x4c, 0x54, 0x45, 0x00, 0x00, 0x00, 0xa7, 0x7a, 0x3d, 0xda,
	0x00, 0x00, 0x00, 0x01, 0x74, 0x52, 0x4e, 0x53, 0x00, 0x40, 0xe6, 0xd8,
	0x66, 0x00, 0x00, 0x00, 0x1f, 0x49, 0x44, 0x41, 0x54, 0x68, 0xde, 0xed,
	0xc1, 0x01, 0x0d, 0x00, 0x00, 0x00, 0xc2, 0x20, 0xfb, 0xa7, 0x36, 0xc7,
	0x37, 0x60, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x71, 0x07,
	0x21, 0x00, 0x00, 0x01, 0xa7, 0x57, 0x29, 0xd7, 0x00, 0x00, 0x00, 0x00,
	0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// BlankImage 返回占位图的副本
func BlankImage() []byte {
	out := make([]byte, len(blankPNG))
	copy(out, blankPNG)
	return out
}

var dsnEscaper = strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")

// openArchive 只读打开; 调用方负责 Close
func openArchive(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", "file:"+dsnEscaper.Replace(path)+"?mode=ro")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenArchive 读取 mbtiles 文件的元数据
func OpenArchive(ctx context.Context, path, id string) (*TileMeta, error) {
	db, err := openArchive(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %v: %w", path, err, ErrNotAnArchive)
	}
	defer db.Close()

	// 'tiles', 'metadata' tables or views must be present
	var count int
	err = db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master
		WHERE type IN ('table', 'view') AND name IN ('tiles', 'metadata')`).Scan(&count)
	if err != nil {
		return nil, fmt.Errorf("read schema of %s: %v: %w", path, err, ErrNotAnArchive)
	}
	if count < 2 {
		return nil, fmt.Errorf("%s lacks tiles or metadata: %w", path, ErrNotAnArchive)
	}

	tileFormat, err := sampleFormat(ctx, db, `SELECT tile_data FROM tiles LIMIT 1`)
	if err != nil {
		return nil, fmt.Errorf("sample tiles of %s: %v: %w", path, err, ErrNotAnArchive)
	}

	meta := &TileMeta{
		Path:       path,
		ID:         id,
		TileJSON:   defaultTileJSON,
		Scheme:     defaultScheme,
		TileFormat: tileFormat,
		GridFormat: gridFormat(ctx, db),
	}
	if tileFormat.IsCompressed() {
		encoding := tileFormat
		meta.TileFormat = PBF
		meta.TileEncoding = &encoding
	}

	if err := readMetadata(ctx, db, meta); err != nil {
		return nil, fmt.Errorf("read metadata of %s: %w", path, err)
	}
	return meta, nil
}

// sampleFormat 取一行数据判断格式, 空表返回 UNKNOWN
func sampleFormat(ctx context.Context, db *sql.DB, query string) (DataFormat, error) {
	var data []byte
	err := db.QueryRowContext(ctx, query).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return UNKNOWN, nil
	case err != nil:
		return UNKNOWN, err
	}
	return DetectFormat(data), nil
}

func gridFormat(ctx context.Context, db *sql.DB) *DataFormat {
	args := make([]interface{}, len(gridTables))
	for i, name := range gridTables {
		args[i] = name
	}
	query := `SELECT count(*) FROM sqlite_master WHERE name IN (?` + strings.Repeat(", ?", len(gridTables)-1) + `)`

	var count int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Debugf("grid schema check failed: %s", err)
		return nil
	}
	if count != len(gridTables) {
		return nil
	}
	format, err := sampleFormat(ctx, db, `SELECT grid_utfgrid FROM grid_utfgrid LIMIT 1`)
	if err != nil {
		log.Debugf("grid sample failed: %s", err)
		return nil
	}
	return &format
}

func readMetadata(ctx context.Context, db *sql.DB, meta *TileMeta) error {
	rows, err := db.QueryContext(ctx, `SELECT name, value FROM metadata
		WHERE value IS NOT NULL AND value <> ''`)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrNotAnArchive)
	}
	defer rows.Close()

	for rows.Next() {
		var label, value string
		if err := rows.Scan(&label, &value); err != nil {
			return fmt.Errorf("%v: %w", err, ErrNotAnArchive)
		}
		v := value
		switch label {
		case "name":
			meta.Name = &v
		case "version":
			meta.Version = &v
		case "description":
			meta.Description = &v
		case "attribution":
			meta.Attribution = &v
		case "legend":
			meta.Legend = &v
		case "template":
			meta.Template = &v
		case "bounds":
			bounds, err := parseBounds(value)
			if err != nil {
				return err
			}
			meta.Bounds = bounds
		case "minzoom":
			zoom, err := parseZoom(label, value)
			if err != nil {
				return err
			}
			meta.MinZoom = &zoom
		case "maxzoom":
			zoom, err := parseZoom(label, value)
			if err != nil {
				return err
			}
			meta.MaxZoom = &zoom
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrNotAnArchive)
	}
	return nil
}

// parseBounds 解析 "west,south,east,north", 必须正好 4 个数值
func parseBounds(value string) ([]float64, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bounds %q: want 4 components, got %d: %w", value, len(parts), ErrParse)
	}
	bounds := make([]float64, 0, 4)
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bounds %q: %v: %w", value, err, ErrParse)
		}
		bounds = append(bounds, v)
	}
	return bounds, nil
}

func parseZoom(label, value string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %v: %w", label, value, err, ErrParse)
	}
	return uint32(v), nil
}

// lookupTile 精确查询一块瓦片, 坐标为文件内的行号 (TMS)
func lookupTile(ctx context.Context, path string, t maptile.Tile) ([]byte, error) {
	db, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	var data []byte
	err = db.QueryRowContext(ctx, `SELECT tile_data FROM tiles
		WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`,
		uint32(t.Z), t.X, t.Y).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("tile %d/%d/%d: %w", t.Z, t.X, t.Y, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// GetTile 查询瓦片, 没有数据或查询出错时返回透明占位图
func GetTile(ctx context.Context, path string, t maptile.Tile) []byte {
	data, err := lookupTile(ctx, path, t)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Debugf("get tile %s %d/%d/%d error, details: %s", path, t.Z, t.X, t.Y, err)
		}
		return BlankImage()
	}
	return data
}

// GetGrid 查询 UTFGrid, 任何失败都返回错误
func GetGrid(ctx context.Context, path string, t maptile.Tile) (*UTFGrid, error) {
	db, err := openArchive(path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	z, x, y := uint32(t.Z), t.X, t.Y

	var blob []byte
	err = db.QueryRowContext(ctx, `SELECT grid FROM grids
		WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`, z, x, y).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("grid %d/%d/%d: %w", z, x, y, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("grid %d/%d/%d: %w", z, x, y, err)
	}

	raw := blob
	if format := DetectFormat(blob); format.IsCompressed() {
		if raw, err = inflate(blob, format); err != nil {
			return nil, err
		}
	}
	var keys utfGridKeys
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, fmt.Errorf("grid %d/%d/%d: %v: %w", z, x, y, err, ErrCorruptData)
	}

	grid := &UTFGrid{
		Data: make(map[string]interface{}),
		Grid: keys.Grid,
		Keys: keys.Keys,
	}

	rows, err := db.QueryContext(ctx, `SELECT key_name, key_json FROM grid_data
		WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?`, z, x, y)
	if err != nil {
		return nil, fmt.Errorf("grid data %d/%d/%d: %w", z, x, y, err)
	}
	defer rows.Close()

	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("grid data %d/%d/%d: %v: %w", z, x, y, err, ErrCorruptData)
		}
		var v interface{}
		if err := json.Unmarshal([]byte(value), &v); err != nil {
			return nil, fmt.Errorf("grid key %q: %v: %w", name, err, ErrCorruptData)
		}
		grid.Data[name] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("grid data %d/%d/%d: %w", z, x, y, err)
	}
	return grid, nil
}
