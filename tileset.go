package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const archiveExt = "mbtiles"

// Index 瓦片集索引: id -> 元数据, 启动时构建一次, 之后只读
type Index struct {
	tilesets map[string]*TileMeta
}

// Skipped 构建索引时被跳过的文件
type Skipped struct {
	Path string
	Err  error
}

func (s Skipped) String() string {
	return fmt.Sprintf("%s: %s", s.Path, s.Err)
}

// Get 按 id 查找
func (idx *Index) Get(id string) (*TileMeta, bool) {
	meta, ok := idx.tilesets[id]
	return meta, ok
}

// IDs 排序后的全部 id
func (idx *Index) IDs() []string {
	ids := make([]string, 0, len(idx.tilesets))
	for id := range idx.tilesets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len 瓦片集数量
func (idx *Index) Len() int {
	return len(idx.tilesets)
}

// BuildIndex 递归扫描 root, 打开每个 .mbtiles 文件
//
// A file that fails to open never aborts the walk; it is returned in the
// skipped list together with its reason. Entries are read in lexical order,
// so when two files map to the same id the first one wins.
func BuildIndex(ctx context.Context, root string, onFile func(path string)) (*Index, []Skipped, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil, err
	}
	b := &indexBuilder{
		ctx:      ctx,
		onFile:   onFile,
		tilesets: make(map[string]*TileMeta),
	}
	b.walk("", root)
	return &Index{tilesets: b.tilesets}, b.skipped, nil
}

type indexBuilder struct {
	ctx      context.Context
	onFile   func(path string)
	tilesets map[string]*TileMeta
	skipped  []Skipped
}

func (b *indexBuilder) skip(path string, err error) {
	log.Warnf("skip %s, details: %s", path, err)
	b.skipped = append(b.skipped, Skipped{Path: path, Err: err})
}

func (b *indexBuilder) walk(prefix, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		b.skip(dir, err)
		return
	}
	for _, e := range entries {
		path := filepath.Join(dir, e.Name())
		if e.IsDir() {
			b.walk(prefix+e.Name()+"/", path)
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != "."+archiveExt {
			continue
		}
		if b.onFile != nil {
			b.onFile(path)
		}
		id := prefix + strings.TrimSuffix(e.Name(), ext)
		if _, ok := b.tilesets[id]; ok {
			b.skip(path, fmt.Errorf("%q: %w", id, ErrDuplicateID))
			continue
		}
		meta, err := OpenArchive(b.ctx, path, id)
		if err != nil {
			b.skip(path, err)
			continue
		}
		log.Debugf("tileset %s -> %s (%s)", id, path, meta.TileFormat)
		b.tilesets[id] = meta
	}
}

// CountArchives 统计 root 下的 .mbtiles 文件数, 用于进度条
func CountArchives(root string) int {
	n := 0
	filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && filepath.Ext(path) == "."+archiveExt {
			n++
		}
		return nil
	})
	return n
}
