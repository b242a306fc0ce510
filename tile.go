package main

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/paulmach/orb/maptile"
)

// ZoomMax 最大级别
const ZoomMax = 30

// tileRequest 解析后的瓦片请求
type tileRequest struct {
	ID   string
	Tile maptile.Tile // xyz
	Ext  string
}

// <id>/tiles/<z>/<x>/<y>.<ext>, id may itself contain slashes
var tilePathRe = regexp.MustCompile(`^(.+)/tiles/(\d+)/(\d+)/(\d+)\.([a-z]+)$`)

func parseTilePath(p string) (*tileRequest, bool) {
	m := tilePathRe.FindStringSubmatch(p)
	if m == nil {
		return nil, false
	}
	z, errZ := strconv.ParseUint(m[2], 10, 32)
	x, errX := strconv.ParseUint(m[3], 10, 32)
	y, errY := strconv.ParseUint(m[4], 10, 32)
	if errZ != nil || errX != nil || errY != nil || z > ZoomMax {
		return nil, false
	}
	if n := uint64(1) << z; x >= n || y >= n {
		return nil, false
	}
	t := maptile.New(uint32(x), uint32(y), maptile.Zoom(z))
	return &tileRequest{ID: m[1], Tile: t, Ext: m[5]}, true
}

// flipY xyz 与 tms 行号互换
func flipY(t maptile.Tile) maptile.Tile {
	t.Y = (1 << uint32(t.Z)) - 1 - t.Y
	return t
}

func tileString(t maptile.Tile) string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}
