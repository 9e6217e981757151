package gdalib

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"math"

	"github.com/tapiab/heimdall-sub000/log"
	"github.com/tapiab/heimdall-sub000/viewer"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 按解析好的渲染请求产出一张PNG瓦片
func (g *GdalBackend) RenderTile(ctx context.Context, req viewer.RenderRequest) (tile []byte, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	size := req.TileSize
	if size <= 0 {
		size = viewer.TILE_SIZE
	}
	switch req.Kind {
	case viewer.RenderGrayscale:
		tile, err = g.renderGrayTile(ctx, req, size)
	case viewer.RenderRGB, viewer.RenderCrossRGB:
		tile, err = g.renderRGBTile(ctx, req, size)
	default:
		err = ErrUnknownRender
	}
	if err != nil {
		log.Error(g.logTag+"render tile failed", zap.String("kind", req.Kind.String()),
			zap.Int("z", req.Z), zap.Int("x", req.X), zap.Int("y", req.Y), zap.Error(err))
	}
	return
}

func (g *GdalBackend) renderGrayTile(ctx context.Context, req viewer.RenderRequest, size int) (tile []byte, err error) {
	ds, err := g.openByID(req.Gray.Dataset)
	if err != nil {
		return
	}
	defer ds.Close()
	data, nodata, ok, err := g.extractBand(ctx, ds, req.Gray.Band, req.Addressing, req.Z, req.X, req.Y, size)
	if err != nil {
		return
	}
	if !ok {
		return emptyTilePNG(size)
	}
	rgba := make([]uint8, size*size*4)
	for i, v := range data {
		if c, valid := applyStretch(v, req.Gray.Stretch, nodata); valid {
			p := i * 4
			rgba[p], rgba[p+1], rgba[p+2], rgba[p+3] = c, c, c, 255
		}
	}
	return encodePNG(rgba, size)
}

// RGB与跨数据集RGB共用一套流程，同ID数据集只打开一次
func (g *GdalBackend) renderRGBTile(ctx context.Context, req viewer.RenderRequest, size int) (tile []byte, err error) {
	srcs := [3]viewer.BandSource{req.Red, req.Green, req.Blue}
	opened := map[string]gdal.Dataset{}
	defer func() {
		for _, ds := range opened {
			ds.Close()
		}
	}()
	var (
		chans   [3][]float64
		nodatas [3]*float64
		oks     [3]bool
	)
	for i, s := range srcs {
		ds, has := opened[s.Dataset]
		if !has {
			if ds, err = g.openByID(s.Dataset); err != nil {
				return
			}
			opened[s.Dataset] = ds
		}
		chans[i], nodatas[i], oks[i], err = g.extractBand(ctx, ds, s.Band, req.Addressing, req.Z, req.X, req.Y, size)
		if err != nil {
			return
		}
	}
	if !oks[0] && !oks[1] && !oks[2] {
		return emptyTilePNG(size)
	}
	rgba := make([]uint8, size*size*4)
	for p := 0; p < size*size; p++ {
		var c [3]uint8
		any := false
		for i := range srcs {
			if !oks[i] {
				continue
			}
			if v, valid := applyStretch(chans[i][p], srcs[i].Stretch, nodatas[i]); valid {
				c[i] = v
				any = true
			}
		}
		if any {
			q := p * 4
			rgba[q], rgba[q+1], rgba[q+2], rgba[q+3] = c[0], c[1], c[2], 255
		}
	}
	return encodePNG(rgba, size)
}

// 读出瓦片覆盖范围的原始波段值；ok为false表示瓦片与数据集不相交
func (g *GdalBackend) extractBand(ctx context.Context, ds gdal.Dataset, band int, addressing viewer.Addressing,
	z, x, y, size int) (data []float64, nodata *float64, ok bool, err error) {
	if band < 1 || band > ds.RasterCount() {
		err = ErrWrongBand
		return
	}
	if err = ctx.Err(); err != nil {
		return
	}
	if addressing == viewer.AddressingPixel {
		data, err = extractRawPixelTile(ds, band, z, x, y, size)
		ok = err == nil
	} else {
		data, ok, err = g.extractRawGeoTile(ds, band, z, x, y, size)
	}
	if err != nil {
		return
	}
	if nd, has := ds.RasterBand(band).NoDataValue(); has {
		nodata = &nd
	}
	return
}

// 未配准数据集按像素坐标取瓦片：把像素网格视作以栅格中心为原点的伪地理平面，
// 纵向超出±MAX_PSEUDO_LAT时整体压缩到该范围内
func extractRawPixelTile(ds gdal.Dataset, band, z, x, y, size int) (data []float64, err error) {
	width, height := ds.RasterXSize(), ds.RasterYSize()
	scale := viewer.PIXEL_FRAME_SCALE
	halfW := float64(width) * scale / 2
	halfH := float64(height) * scale / 2
	clampedH := math.Min(halfH, viewer.MAX_PSEUDO_LAT)

	data = make([]float64, size*size)
	tb := tileToGeoBounds(x, y, z)
	if !boundsIntersect(tb, Span{-halfW, -clampedH, halfW, clampedH}) {
		return
	}
	scaleY := scale
	if halfH > viewer.MAX_PSEUDO_LAT {
		scaleY = clampedH * 2 / float64(height)
	}
	sx0 := (tb[0] + halfW) / scale
	sx1 := (tb[2] + halfW) / scale
	sy0 := (clampedH - tb[3]) / scaleY
	sy1 := (clampedH - tb[1]) / scaleY

	sx := int(math.Floor(math.Max(sx0, 0)))
	sy := int(math.Floor(math.Max(sy0, 0)))
	sxEnd := int(math.Ceil(math.Min(sx1, float64(width))))
	syEnd := int(math.Ceil(math.Min(sy1, float64(height))))
	if sx >= width || sy >= height || sxEnd <= sx || syEnd <= sy {
		return
	}
	err = ds.RasterBand(band).IO(gdal.Read, sx, sy, sxEnd-sx, syEnd-sy, data, size, size, 0, 0)
	if err != nil {
		err = ErrRasterRead
	}
	return
}

// 已配准数据集按地理范围取瓦片：瓦片经纬度范围转到数据集原生坐标系后映射为像素窗口，
// 重采样读入目标子矩形，未覆盖部分留零（零值渲染为透明）
func (g *GdalBackend) extractRawGeoTile(ds gdal.Dataset, band, z, x, y, size int) (data []float64, ok bool, err error) {
	width, height := ds.RasterXSize(), ds.RasterYSize()
	gt := ds.GeoTransform()
	nb := nativeBounds(gt, width, height)
	tileGeo := tileToGeoBounds(x, y, z)
	tn := tileGeo
	dsGeo := nb
	if proj := ds.Projection(); proj != "" {
		ref := g.projRef(proj)
		defer ref.Destroy()
		if !ref.IsGeographic() {
			var uRef gdal.SpatialReference
			if uRef, err = g.getSridRef(UNIVERSAL_SRID); err != nil {
				return
			}
			if dsGeo, err = g.transformSpan(nb, ref, uRef); err != nil {
				return
			}
			if tn, err = g.transformSpan(tileGeo, uRef, ref); err != nil {
				return
			}
		}
	}
	if !boundsIntersect(tileGeo, dsGeo) {
		return
	}
	// 旋转项gt[2]/gt[4]不参与，仅支持与坐标轴对齐的地理变换
	fx0 := (tn[0] - gt[0]) / gt[1]
	fx1 := (tn[2] - gt[0]) / gt[1]
	if fx1 < fx0 {
		fx0, fx1 = fx1, fx0
	}
	fy0 := (tn[3] - gt[3]) / gt[5]
	fy1 := (tn[1] - gt[3]) / gt[5]
	if fy1 < fy0 {
		fy0, fy1 = fy1, fy0
	}
	cx0, cx1 := math.Max(fx0, 0), math.Min(fx1, float64(width))
	cy0, cy1 := math.Max(fy0, 0), math.Min(fy1, float64(height))
	if cx1 <= cx0 || cy1 <= cy0 {
		return
	}
	dx0 := int((cx0 - fx0) / (fx1 - fx0) * float64(size))
	dx1 := int(math.Ceil((cx1 - fx0) / (fx1 - fx0) * float64(size)))
	dy0 := int((cy0 - fy0) / (fy1 - fy0) * float64(size))
	dy1 := int(math.Ceil((cy1 - fy0) / (fy1 - fy0) * float64(size)))
	dx0, dx1 = clampRange(dx0, dx1, size)
	dy0, dy1 = clampRange(dy0, dy1, size)

	sx, sy := int(math.Floor(cx0)), int(math.Floor(cy0))
	sw := int(math.Ceil(cx1)) - sx
	sh := int(math.Ceil(cy1)) - sy
	if sx+sw > width {
		sw = width - sx
	}
	if sy+sh > height {
		sh = height - sy
	}
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	bw, bh := dx1-dx0, dy1-dy0
	buf := make([]float64, bw*bh)
	if err = ds.RasterBand(band).IO(gdal.Read, sx, sy, sw, sh, buf, bw, bh, 0, 0); err != nil {
		err = ErrRasterRead
		return
	}
	data = make([]float64, size*size)
	for r := 0; r < bh; r++ {
		row := (dy0+r)*size + dx0
		copy(data[row:row+bw], buf[r*bw:(r+1)*bw])
	}
	ok = true
	return
}

func clampRange(lo, hi, max int) (int, int) {
	if lo < 0 {
		lo = 0
	}
	if hi > max {
		hi = max
	}
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// 把原始值映射到0-255灰阶；零值、nodata与非有限值视为透明
func applyStretch(val float64, s viewer.Stretch, nodata *float64) (c uint8, valid bool) {
	if val == 0 || math.IsNaN(val) || math.IsInf(val, 0) {
		return
	}
	if nodata != nil && math.Abs(val-*nodata) < NODATA_EPS {
		return
	}
	span := 1.0
	if s.Max > s.Min {
		span = s.Max - s.Min
	}
	norm := (val - s.Min) / span
	if norm < 0 {
		norm = 0
	} else if norm > 1 {
		norm = 1
	}
	gamma := s.Gamma
	if gamma <= 0 {
		gamma = viewer.DEFAULT_GAMMA
	}
	v := math.Pow(norm, 1/gamma) * viewer.DEFAULT_MAX_VALUE
	if v > 255 {
		v = 255
	}
	return uint8(v), true
}

func encodePNG(rgba []uint8, size int) ([]byte, error) {
	img := &image.NRGBA{
		Pix:    rgba,
		Stride: size * 4,
		Rect:   image.Rect(0, 0, size, size),
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func emptyTilePNG(size int) ([]byte, error) {
	return encodePNG(make([]uint8, size*size*4), size)
}
