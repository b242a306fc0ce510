package main

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb/maptile"
)

// TileSummaryJSON /services 列表项
type TileSummaryJSON struct {
	ImageType DataFormat `json:"imageType"`
	URL       string     `json:"url"`
}

// TileMetaJSON TileJSON 描述
type TileMetaJSON struct {
	Name        *string    `json:"name,omitempty"`
	Version     *string    `json:"version,omitempty"`
	Map         string     `json:"map"`
	Tiles       []string   `json:"tiles"`
	TileJSON    string     `json:"tilejson"`
	Scheme      string     `json:"scheme"`
	ID          string     `json:"id"`
	Format      DataFormat `json:"format"`
	Grids       []string   `json:"grids,omitempty"`
	Bounds      []float64  `json:"bounds,omitempty"`
	MinZoom     *uint32    `json:"minzoom,omitempty"`
	MaxZoom     *uint32    `json:"maxzoom,omitempty"`
	Description *string    `json:"description,omitempty"`
	Attribution *string    `json:"attribution,omitempty"`
	Legend      *string    `json:"legend,omitempty"`
	Template    *string    `json:"template,omitempty"`
}

// serviceURL 瓦片集的基础地址
func serviceURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/services/" + id
}

// tileTemplate 瓦片地址模板
func tileTemplate(baseURL, id string, f DataFormat) string {
	return serviceURL(baseURL, id) + "/tiles/{z}/{x}/{y}." + f.Extension()
}

// GetTileURL 替换模板中的 {z}/{x}/{y}
func GetTileURL(template string, t maptile.Tile) string {
	url := strings.Replace(template, "{x}", strconv.Itoa(int(t.X)), -1)
	url = strings.Replace(url, "{y}", strconv.Itoa(int(t.Y)), -1)
	url = strings.Replace(url, "{z}", strconv.Itoa(int(t.Z)), -1)
	return url
}

// Summary 列表视图
func (m *TileMeta) Summary(baseURL string) TileSummaryJSON {
	return TileSummaryJSON{
		ImageType: m.TileFormat,
		URL:       serviceURL(baseURL, m.ID),
	}
}

// TileJSONView 详情视图
func (m *TileMeta) TileJSONView(baseURL string) TileMetaJSON {
	base := serviceURL(baseURL, m.ID)
	v := TileMetaJSON{
		Name:        m.Name,
		Version:     m.Version,
		Map:         base + "/map",
		Tiles:       []string{tileTemplate(baseURL, m.ID, m.TileFormat)},
		TileJSON:    m.TileJSON,
		Scheme:      m.Scheme,
		ID:          m.ID,
		Format:      m.TileFormat,
		Bounds:      m.Bounds,
		MinZoom:     m.MinZoom,
		MaxZoom:     m.MaxZoom,
		Description: m.Description,
		Attribution: m.Attribution,
		Legend:      m.Legend,
		Template:    m.Template,
	}
	if m.GridFormat != nil {
		v.Grids = []string{tileTemplate(baseURL, m.ID, JSON)}
	}
	return v
}
