package viewer

import (
	"context"
	"math"
)

// 坐标类工具的适配层：像元查询与剖面采样共用同一套像素/地图坐标
// 互转，点到哪个像素由PixelExtent说了算。
type PixelInspector struct {
	registry *LayerRegistry
	backend  DatasetQuerier
}

func NewPixelInspector(registry *LayerRegistry, backend DatasetQuerier) *PixelInspector {
	return &PixelInspector{registry: registry, backend: backend}
}

type PixelQuery struct {
	LayerID string  `json:"layer_id"`
	Band    int     `json:"band"`
	Lng     float64 `json:"lng"`
	Lat     float64 `json:"lat"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Value   float64 `json:"value"`
}

// 地图点击位置的像元值。地理配准图层直接按经纬度查询；
// 非配准图层先经伪地理框架反算像素坐标。
func (p *PixelInspector) QueryValue(ctx context.Context, layerID string, lng, lat float64, band int) (q PixelQuery, err error) {
	l, ok := p.registry.Get(layerID)
	if !ok {
		err = ErrLayerNotFound
		return
	}
	if l.Kind != KindRaster {
		err = ErrNotRasterLayer
		return
	}
	if band < 1 || band > l.BandCount {
		err = ErrBandOutOfRange
		return
	}
	q = PixelQuery{LayerID: layerID, Band: band, Lng: lng, Lat: lat}
	if l.Georeferenced {
		q.Value, err = p.backend.GeoValue(ctx, l.ID, lng, lat, band)
		return
	}
	if l.Extent == nil {
		err = ErrEmptyRaster
		return
	}
	if !l.Extent.Contains(lng, lat) {
		err = ErrOutsideExtent
		return
	}
	q.X, q.Y = l.Extent.ToPixel(lng, lat)
	q.Value, err = p.backend.PixelValue(ctx, l.ID, q.X, q.Y, band)
	return
}

// 指定像素坐标的像元值
func (p *PixelInspector) QueryValueAtPixel(ctx context.Context, layerID string, px, py, band int) (q PixelQuery, err error) {
	l, ok := p.registry.Get(layerID)
	if !ok {
		err = ErrLayerNotFound
		return
	}
	if l.Kind != KindRaster {
		err = ErrNotRasterLayer
		return
	}
	if band < 1 || band > l.BandCount {
		err = ErrBandOutOfRange
		return
	}
	q = PixelQuery{LayerID: layerID, Band: band, X: px, Y: py}
	if l.Extent != nil {
		q.Lng, q.Lat = l.Extent.ToMapSpace(px, py)
	}
	q.Value, err = p.backend.PixelValue(ctx, l.ID, px, py, band)
	return
}

type ProfilePoint struct {
	Distance float64 `json:"distance"`
	Lng      float64 `json:"lng"`
	Lat      float64 `json:"lat"`
	X        int     `json:"x"`
	Y        int     `json:"y"`
	Value    float64 `json:"value"`
	Valid    bool    `json:"valid"`
}

// 沿线段等距采样像元值（高程剖面）。距离对地理配准图层为
// 球面米数，对像素寻址图层为像素单位。取不到值的采样点保留
// 位置并标记无效，曲线整体不中断。
func (p *PixelInspector) Profile(ctx context.Context, layerID string, startLng, startLat, endLng, endLat float64, samples, band int) (pts []ProfilePoint, err error) {
	l, ok := p.registry.Get(layerID)
	if !ok {
		err = ErrLayerNotFound
		return
	}
	if l.Kind != KindRaster {
		err = ErrNotRasterLayer
		return
	}
	if band < 1 || band > l.BandCount {
		err = ErrBandOutOfRange
		return
	}
	if samples <= 1 {
		samples = DEFAULT_PROFILE_SAMPLES
	}
	if samples > MAX_PROFILE_SAMPLES {
		samples = MAX_PROFILE_SAMPLES
	}
	if !l.Georeferenced && l.Extent == nil {
		err = ErrEmptyRaster
		return
	}
	pts = make([]ProfilePoint, 0, samples)
	for i := 0; i < samples; i++ {
		t := float64(i) / float64(samples-1)
		lng := startLng + (endLng-startLng)*t
		lat := startLat + (endLat-startLat)*t
		pt := ProfilePoint{Lng: lng, Lat: lat}
		if l.Georeferenced {
			pt.Distance = haversineMeters(startLng, startLat, lng, lat)
			if v, e := p.backend.GeoValue(ctx, l.ID, lng, lat, band); e == nil {
				pt.Value, pt.Valid = v, true
			}
		} else {
			pt.X, pt.Y = l.Extent.ToPixel(lng, lat)
			x0, y0 := l.Extent.ToPixel(startLng, startLat)
			pt.Distance = math.Hypot(float64(pt.X-x0), float64(pt.Y-y0))
			if pt.X >= 0 && pt.X < l.Extent.Width && pt.Y >= 0 && pt.Y < l.Extent.Height {
				if v, e := p.backend.PixelValue(ctx, l.ID, pt.X, pt.Y, band); e == nil {
					pt.Value, pt.Valid = v, true
				}
			}
		}
		pts = append(pts, pt)
	}
	return
}

func haversineMeters(lng1, lat1, lng2, lat2 float64) float64 {
	const degToRad = math.Pi / 180
	dLat := (lat2 - lat1) * degToRad
	dLng := (lng2 - lng1) * degToRad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EARTH_RADIUS_M * math.Asin(math.Min(1, math.Sqrt(a)))
}
