package main

import (
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	json "github.com/goccy/go-json"
	"github.com/sirupsen/logrus"
	"github.com/teris-io/shortid"
)

// ServerOptions 服务配置
type ServerOptions struct {
	AllowedHosts []string
	Headers      map[string]string
	CORS         bool
}

// Server 瓦片服务, index 只读共享, 每个请求独立打开文件
type Server struct {
	index *Index
	opts  ServerOptions
}

// NewServer 创建服务
func NewServer(index *Index, opts ServerOptions) *Server {
	return &Server{index: index, opts: opts}
}

// Routes 路由
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.opts.CORS {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		}))
	}
	r.Use(s.checkHost)
	r.Use(s.extraHeaders)

	r.Get("/services", s.listServices)
	r.Get("/services/*", s.serveTileset)
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rid, err := shortid.Generate()
		if err != nil {
			rid = "-"
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		ww.Header().Set("X-Request-Id", rid)
		next.ServeHTTP(ww, r)
		log.WithFields(logrus.Fields{
			"rid": rid,
		}).Infof("%s %s %d %dms", r.Method, r.URL.Path, ww.Status(), time.Since(start).Milliseconds())
	})
}

func (s *Server) checkHost(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !hostAllowed(s.opts.AllowedHosts, r.Host) {
			http.Error(w, "host not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func hostAllowed(allowed []string, host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	for _, a := range allowed {
		if a == "*" || strings.EqualFold(a, host) {
			return true
		}
	}
	return false
}

func (s *Server) extraHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range s.opts.Headers {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Errorf("encode response error ~ %s", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", JSON.ContentType())
	if acceptsEncoding(r, "gzip") {
		if gz, err := Encode(body); err == nil {
			w.Header().Set("Content-Encoding", "gzip")
			body = gz
		}
	}
	w.Write(body)
}

func acceptsEncoding(r *http.Request, encoding string) bool {
	for _, part := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		if strings.EqualFold(name, encoding) {
			return true
		}
	}
	return false
}

func (s *Server) listServices(w http.ResponseWriter, r *http.Request) {
	base := baseURL(r)
	out := make([]TileSummaryJSON, 0, s.index.Len())
	for _, id := range s.index.IDs() {
		meta, _ := s.index.Get(id)
		out = append(out, meta.Summary(base))
	}
	writeJSON(w, r, out)
}

func (s *Server) serveTileset(w http.ResponseWriter, r *http.Request) {
	p := chi.URLParam(r, "*")
	if meta, ok := s.index.Get(p); ok {
		writeJSON(w, r, meta.TileJSONView(baseURL(r)))
		return
	}
	req, ok := parseTilePath(p)
	if !ok {
		http.NotFound(w, r)
		return
	}
	meta, ok := s.index.Get(req.ID)
	if !ok {
		http.NotFound(w, r)
		return
	}
	if req.Ext == JSON.Extension() {
		s.serveGrid(w, r, meta, req)
		return
	}
	if req.Ext != meta.TileFormat.Extension() {
		http.NotFound(w, r)
		return
	}
	s.serveTile(w, r, meta, req)
}

func (s *Server) serveTile(w http.ResponseWriter, r *http.Request, meta *TileMeta, req *tileRequest) {
	row := flipY(req.Tile)
	if meta.TileFormat != PBF {
		w.Header().Set("Content-Type", meta.TileFormat.ContentType())
		w.Write(GetTile(r.Context(), meta.Path, row))
		return
	}

	// vector tiles: a miss is an empty response, not a png
	data, err := lookupTile(r.Context(), meta.Path, row)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Debugf("get tile %s/%s error, details: %s", meta.ID, tileString(req.Tile), err)
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", PBF.ContentType())
	if enc := meta.TileEncoding; enc != nil {
		name := "gzip"
		if *enc == ZLIB {
			name = "deflate"
		}
		if acceptsEncoding(r, name) {
			w.Header().Set("Content-Encoding", name)
		} else if data, err = inflate(data, *enc); err != nil {
			log.Errorf("inflate tile %s/%s error ~ %s", meta.ID, tileString(req.Tile), err)
			http.Error(w, "corrupt tile", http.StatusInternalServerError)
			return
		}
	}
	w.Write(data)
}

func (s *Server) serveGrid(w http.ResponseWriter, r *http.Request, meta *TileMeta, req *tileRequest) {
	if meta.GridFormat == nil {
		http.NotFound(w, r)
		return
	}
	grid, err := GetGrid(r.Context(), meta.Path, flipY(req.Tile))
	switch {
	case errors.Is(err, ErrNotFound):
		http.NotFound(w, r)
		return
	case err != nil:
		log.Errorf("get grid %s/%s error ~ %s", meta.ID, tileString(req.Tile), err)
		http.Error(w, "grid unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, grid)
}
