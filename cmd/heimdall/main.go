package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"image"
	"image/png"
	"net/http"
	"strconv"

	"github.com/tapiab/heimdall-sub000/gdalib"
	"github.com/tapiab/heimdall-sub000/log"
	"github.com/tapiab/heimdall-sub000/utils"
	"github.com/tapiab/heimdall-sub000/viewer"

	"go.uber.org/zap"
)

type server struct {
	backend    *gdalib.GdalBackend
	registry   *viewer.LayerRegistry
	dispatcher *viewer.TileProtocolDispatcher
	inspector  *viewer.PixelInspector
	emptyTile  []byte
}

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	tmpDir := flag.String("tmp", "", "temp dir for derived files")
	flag.Parse()
	defer log.Sync()

	backend := gdalib.NewGdalBackend(*tmpDir)
	registry := viewer.NewLayerRegistry()
	s := &server{
		backend:    backend,
		registry:   registry,
		dispatcher: viewer.NewTileProtocolDispatcher(registry, backend, viewer.TILE_CACHE_SIZE),
		inspector:  viewer.NewPixelInspector(registry, backend),
		emptyTile:  transparentTile(),
	}
	registry.Subscribe(func(layerID string) {
		log.Debug("layer state changed", zap.String("id", layerID))
	})

	http.HandleFunc("/tiles/", s.tile)
	http.HandleFunc("/open", s.open)
	http.HandleFunc("/close", s.close)
	http.HandleFunc("/layers", s.layers)
	http.HandleFunc("/config", s.config)
	http.HandleFunc("/reorder", s.reorder)
	http.HandleFunc("/histogram", s.histogram)
	http.HandleFunc("/query", s.query)
	http.HandleFunc("/profile", s.profile)

	log.Info("heimdall server listening", zap.String("addr", *addr))
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Error("server exited", zap.Error(err))
	}
}

// GET /tiles/{layer}/{z}/{x}/{y}.png
// 图层缺失或地址非法返回4xx；单张瓦片渲染失败返回透明瓦片而不是5xx
func (s *server) tile(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	tile, err := s.dispatcher.Dispatch(r.Context(), r.URL.Path)
	switch {
	case err == nil:
	case errors.Is(err, viewer.ErrInvalidTileAddress):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, viewer.ErrLayerNotFound), errors.Is(err, viewer.ErrNotRasterLayer):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	default:
		tile = nil
	}
	if len(tile) == 0 {
		tile = s.emptyTile
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(tile)
}

type openReq struct {
	Type string `json:"type"` // raster | vector
	Path string `json:"path"`
}

// POST /open：打开数据集并注册为图层
func (s *server) open(w http.ResponseWriter, r *http.Request) {
	var req openReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Path == "" {
		http.Error(w, "malformed open request", http.StatusBadRequest)
		return
	}
	switch req.Type {
	case "vector":
		data, err := s.backend.OpenVector(req.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		err = s.registry.Register(viewer.Layer{
			ID:            data.Metadata.Id,
			Name:          data.Metadata.Name,
			Kind:          viewer.KindVector,
			Georeferenced: true,
			Bounds:        data.Metadata.Extent,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, data)
	default:
		meta, err := s.backend.OpenRaster(req.Path)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		layer := viewer.Layer{
			ID:            meta.Id,
			Name:          utils.GetFilenameWithoutExt(req.Path),
			Kind:          viewer.KindRaster,
			BandCount:     meta.Bands,
			Stats:         meta.BandStats,
			Georeferenced: meta.IsGeoreference,
			Bounds:        meta.Bounds,
		}
		if !meta.IsGeoreference {
			ext, err := viewer.NewPixelExtent(meta.Width, meta.Height, viewer.PIXEL_FRAME_SCALE)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			layer.Extent = ext
			layer.Bounds = ext.Bounds()
		}
		if err = s.registry.Register(layer); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		snapshot, _ := s.registry.Get(meta.Id)
		writeJSON(w, struct {
			Metadata gdalib.RasterMetadata `json:"metadata"`
			Layer    viewer.Layer          `json:"layer"`
		}{meta, snapshot})
	}
}

// POST /close?layer=：注销图层并释放数据集
func (s *server) close(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("layer")
	if id == "" {
		http.Error(w, "layer required", http.StatusBadRequest)
		return
	}
	s.registry.Remove(id)
	s.backend.CloseDataset(id)
	w.WriteHeader(http.StatusNoContent)
}

// GET /layers：按叠置次序返回全部图层快照
func (s *server) layers(w http.ResponseWriter, r *http.Request) {
	order := s.registry.Order()
	out := make([]viewer.Layer, 0, len(order))
	for _, id := range order {
		if l, ok := s.registry.Get(id); ok {
			out = append(out, l)
		}
	}
	writeJSON(w, out)
}

type configReq struct {
	Layer      string                    `json:"layer"`
	Mode       *string                   `json:"display_mode,omitempty"`
	Band       *int                      `json:"band,omitempty"`
	Stretch    *viewer.Stretch           `json:"stretch,omitempty"`
	RGBBands   *viewer.RGBBands          `json:"rgb_bands,omitempty"`
	RGBStretch *viewer.RGBStretch        `json:"rgb_stretch,omitempty"`
	Sources    *viewer.CrossLayerSources `json:"cross_layer_sources,omitempty"`
}

// POST /config：按出现的字段逐项更新图层渲染配置
func (s *server) config(w http.ResponseWriter, r *http.Request) {
	var req configReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Layer == "" {
		http.Error(w, "malformed config request", http.StatusBadRequest)
		return
	}
	apply := func(err error) bool {
		if err == nil {
			return true
		}
		code := http.StatusUnprocessableEntity
		if errors.Is(err, viewer.ErrLayerNotFound) {
			code = http.StatusNotFound
		}
		http.Error(w, err.Error(), code)
		return false
	}
	if req.Mode != nil {
		mode, err := viewer.ParseDisplayMode(*req.Mode)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !apply(s.registry.SetDisplayMode(req.Layer, mode)) {
			return
		}
	}
	if req.Band != nil && !apply(s.registry.SetBand(req.Layer, *req.Band)) {
		return
	}
	if req.Stretch != nil && !apply(s.registry.SetStretch(req.Layer, req.Stretch.Min, req.Stretch.Max, req.Stretch.Gamma)) {
		return
	}
	if req.RGBBands != nil && !apply(s.registry.SetRGBBands(req.Layer, *req.RGBBands)) {
		return
	}
	if req.RGBStretch != nil && !apply(s.registry.SetRGBStretch(req.Layer, *req.RGBStretch)) {
		return
	}
	if req.Sources != nil && !apply(s.registry.SetCrossLayerSources(req.Layer, req.Sources)) {
		return
	}
	l, ok := s.registry.Get(req.Layer)
	if !ok {
		http.Error(w, viewer.ErrLayerNotFound.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, l)
}

// POST /reorder?from=&to=：调整叠置次序
func (s *server) reorder(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		http.Error(w, "malformed reorder request", http.StatusBadRequest)
		return
	}
	s.registry.Reorder(from, to)
	writeJSON(w, s.registry.Order())
}

// GET /histogram?layer=&band=&bins=
func (s *server) histogram(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	id := params.Get("layer")
	band, _ := strconv.Atoi(params.Get("band"))
	bins, _ := strconv.Atoi(params.Get("bins"))
	if band == 0 {
		band = 1
	}
	histo, err := s.backend.Histogram(r.Context(), id, band, bins)
	if err != nil {
		http.Error(w, err.Error(), queryStatus(err))
		return
	}
	writeJSON(w, histo)
}

// GET /query?layer=&band=&lng=&lat= 或 /query?layer=&band=&x=&y=
func (s *server) query(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	id := params.Get("layer")
	band, _ := strconv.Atoi(params.Get("band"))
	if band == 0 {
		band = 1
	}
	var (
		q   viewer.PixelQuery
		err error
	)
	if params.Has("x") {
		px, e1 := strconv.Atoi(params.Get("x"))
		py, e2 := strconv.Atoi(params.Get("y"))
		if e1 != nil || e2 != nil {
			http.Error(w, "malformed query request", http.StatusBadRequest)
			return
		}
		q, err = s.inspector.QueryValueAtPixel(r.Context(), id, px, py, band)
	} else {
		lng, e1 := strconv.ParseFloat(params.Get("lng"), 64)
		lat, e2 := strconv.ParseFloat(params.Get("lat"), 64)
		if e1 != nil || e2 != nil {
			http.Error(w, "malformed query request", http.StatusBadRequest)
			return
		}
		q, err = s.inspector.QueryValue(r.Context(), id, lng, lat, band)
	}
	if err != nil {
		http.Error(w, err.Error(), queryStatus(err))
		return
	}
	writeJSON(w, q)
}

// GET /profile?layer=&lng1=&lat1=&lng2=&lat2=&samples=&band=
func (s *server) profile(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	id := params.Get("layer")
	band, _ := strconv.Atoi(params.Get("band"))
	if band == 0 {
		band = 1
	}
	samples, _ := strconv.Atoi(params.Get("samples"))
	coords := make([]float64, 4)
	for i, key := range []string{"lng1", "lat1", "lng2", "lat2"} {
		v, err := strconv.ParseFloat(params.Get(key), 64)
		if err != nil {
			http.Error(w, "malformed profile request", http.StatusBadRequest)
			return
		}
		coords[i] = v
	}
	pts, err := s.inspector.Profile(r.Context(), id, coords[0], coords[1], coords[2], coords[3], samples, band)
	if err != nil {
		http.Error(w, err.Error(), queryStatus(err))
		return
	}
	writeJSON(w, pts)
}

// 全透明占位瓦片，启动时编码一次
func transparentTile() []byte {
	img := image.NewNRGBA(image.Rect(0, 0, viewer.TILE_SIZE, viewer.TILE_SIZE))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		log.Error("encode transparent tile failed", zap.Error(err))
		return nil
	}
	return buf.Bytes()
}

func queryStatus(err error) int {
	switch {
	case errors.Is(err, viewer.ErrLayerNotFound), errors.Is(err, gdalib.ErrDatasetNotFound):
		return http.StatusNotFound
	case errors.Is(err, viewer.ErrBandOutOfRange), errors.Is(err, viewer.ErrOutsideExtent),
		errors.Is(err, gdalib.ErrWrongBand), errors.Is(err, gdalib.ErrOutsideRaster):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("write response failed", zap.Error(err))
	}
}
