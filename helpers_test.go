package main

import (
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fixtureTile struct {
	z, x, y uint32
	data    []byte
}

type fixtureKey struct {
	name, json string
}

type fixtureGrid struct {
	z, x, y uint32
	blob    []byte
	keys    []fixtureKey
}

type fixture struct {
	skipMetadata bool
	metadata     map[string]string
	tiles        []fixtureTile
	grids        []fixtureGrid
}

var pngTile = append([]byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}, []byte("fake png body")...)

// writeArchive 在 dir 下写入一个 mbtiles 文件, 返回路径
func writeArchive(t *testing.T, path string, f fixture) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	db := openWritable(t, path)
	defer db.Close()

	exec := func(query string, args ...interface{}) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
	}

	exec(`CREATE TABLE tiles (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, tile_data BLOB)`)
	for _, tile := range f.tiles {
		exec(`INSERT INTO tiles VALUES (?, ?, ?, ?)`, tile.z, tile.x, tile.y, tile.data)
	}
	if !f.skipMetadata {
		exec(`CREATE TABLE metadata (name TEXT, value TEXT)`)
		for k, v := range f.metadata {
			exec(`INSERT INTO metadata VALUES (?, ?)`, k, v)
		}
	}
	if f.grids != nil {
		exec(`CREATE TABLE grids (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, grid BLOB)`)
		exec(`CREATE TABLE grid_data (zoom_level INTEGER, tile_column INTEGER, tile_row INTEGER, key_name TEXT, key_json TEXT)`)
		exec(`CREATE TABLE grid_utfgrid (grid_id TEXT, grid_utfgrid BLOB)`)
		exec(`CREATE TABLE keymap (key_name TEXT, key_json TEXT)`)
		exec(`CREATE TABLE grid_key (grid_id TEXT, key_name TEXT)`)
		for _, g := range f.grids {
			exec(`INSERT INTO grids VALUES (?, ?, ?, ?)`, g.z, g.x, g.y, g.blob)
			exec(`INSERT INTO grid_utfgrid VALUES (?, ?)`, "g", g.blob)
			for _, k := range g.keys {
				exec(`INSERT INTO grid_data VALUES (?, ?, ?, ?, ?)`, g.z, g.x, g.y, k.name, k.json)
			}
		}
	}
	return path
}

func mustEncode(t *testing.T, data []byte) []byte {
	t.Helper()
	out, err := Encode(data)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func openWritable(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	return db
}
