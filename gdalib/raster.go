package gdalib

import (
	"context"
	"math"

	"github.com/tapiab/heimdall-sub000/log"
	"github.com/tapiab/heimdall-sub000/viewer"

	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 打开栅格后返回的元信息
type RasterMetadata struct {
	Id             string             `json:"id"`
	Path           string             `json:"path"`
	Width          int                `json:"width"`
	Height         int                `json:"height"`
	Bands          int                `json:"bands"`
	Bounds         Span               `json:"bounds"`
	NativeBounds   Span               `json:"native_bounds"`
	Projection     string             `json:"projection"`
	PixelSize      [2]float64         `json:"pixel_size"`
	Nodata         *float64           `json:"nodata"`
	BandStats      []viewer.BandStats `json:"band_stats"`
	IsGeoreference bool               `json:"is_georeferenced"`
}

type HistogramData struct {
	Band     int       `json:"band"`
	Min      float64   `json:"min"`
	Max      float64   `json:"max"`
	BinCount int       `json:"bin_count"`
	Counts   []uint64  `json:"counts"`
	BinEdges []float64 `json:"bin_edges"`
}

// 打开栅格数据集，读取元信息并登记路径，返回数据集ID
func (g *GdalBackend) OpenRaster(path string) (meta RasterMetadata, err error) {
	ds, err := gdal.Open(path, gdal.ReadOnly)
	if err != nil {
		log.Error(g.logTag+"open raster failed", zap.String("path", path), zap.Error(err))
		err = ErrGdalDriverOpen
		return
	}
	defer ds.Close()
	width, height := ds.RasterXSize(), ds.RasterYSize()
	bands := ds.RasterCount()
	gt := ds.GeoTransform()
	proj := ds.Projection()
	meta = RasterMetadata{
		Id:             uuid.NewString(),
		Path:           path,
		Width:          width,
		Height:         height,
		Bands:          bands,
		Projection:     proj,
		PixelSize:      [2]float64{gt[1], gt[5]},
		IsGeoreference: isGeoreferenced(proj, gt),
	}
	meta.NativeBounds = nativeBounds(gt, width, height)
	meta.Bounds = meta.NativeBounds
	if meta.IsGeoreference && proj != "" {
		ref := g.projRef(proj)
		if !ref.IsGeographic() {
			if uRef, e := g.getSridRef(UNIVERSAL_SRID); e == nil {
				if b, e := g.transformSpan(meta.NativeBounds, ref, uRef); e == nil {
					meta.Bounds = b
				}
			}
		}
		ref.Destroy()
	}
	for i := 1; i <= bands; i++ {
		rb := ds.RasterBand(i)
		if i == 1 {
			if nd, ok := rb.NoDataValue(); ok {
				meta.Nodata = &nd
			}
		}
		min, max := rb.ComputeMinMax(1)
		meta.BandStats = append(meta.BandStats, viewer.BandStats{
			Band:   i,
			Min:    min,
			Max:    max,
			Mean:   (min + max) / 2,
			StdDev: (max - min) / 4,
		})
	}
	g.paths.Set(meta.Id, path)
	log.Info(g.logTag+"raster opened", zap.String("id", meta.Id), zap.String("path", path),
		zap.Int("width", width), zap.Int("height", height), zap.Int("bands", bands))
	return
}

// 关闭数据集，释放其路径登记（幂等）
func (g *GdalBackend) CloseDataset(id string) {
	g.paths.Delete(id)
}

// 按ID重新打开数据集，调用方负责Close
func (g *GdalBackend) openByID(id string) (ds gdal.Dataset, err error) {
	path, ok := g.paths.Get(id)
	if !ok {
		err = ErrDatasetNotFound
		return
	}
	if ds, err = gdal.Open(path, gdal.ReadOnly); err != nil {
		log.Error(g.logTag+"reopen raster failed", zap.String("id", id), zap.Error(err))
		err = ErrGdalDriverOpen
	}
	return
}

// 重新计算指定波段的统计值
func (g *GdalBackend) BandStatsFor(id string, band int) (stats viewer.BandStats, err error) {
	ds, err := g.openByID(id)
	if err != nil {
		return
	}
	defer ds.Close()
	if band < 1 || band > ds.RasterCount() {
		err = ErrWrongBand
		return
	}
	min, max := ds.RasterBand(band).ComputeMinMax(1)
	stats = viewer.BandStats{
		Band:   band,
		Min:    min,
		Max:    max,
		Mean:   (min + max) / 2,
		StdDev: (max - min) / 4,
	}
	return
}

// 计算指定波段的直方图；大图抽稀读取，最多采样HISTO_MAX_SAMPLE×HISTO_MAX_SAMPLE个像素
func (g *GdalBackend) Histogram(ctx context.Context, id string, band, binCount int) (histo HistogramData, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	if binCount <= 0 {
		binCount = DEFAULT_HISTO_BINS
	}
	ds, err := g.openByID(id)
	if err != nil {
		return
	}
	defer ds.Close()
	if band < 1 || band > ds.RasterCount() {
		err = ErrWrongBand
		return
	}
	width, height := ds.RasterXSize(), ds.RasterYSize()
	bufW, bufH := width, height
	if bufW > HISTO_MAX_SAMPLE {
		bufW = HISTO_MAX_SAMPLE
	}
	if bufH > HISTO_MAX_SAMPLE {
		bufH = HISTO_MAX_SAMPLE
	}
	buf := make([]float64, bufW*bufH)
	rb := ds.RasterBand(band)
	if err = rb.IO(gdal.Read, 0, 0, width, height, buf, bufW, bufH, 0, 0); err != nil {
		log.Error(g.logTag+"histogram read failed", zap.String("id", id), zap.Error(err))
		err = ErrRasterRead
		return
	}
	var nodata *float64
	if nd, ok := rb.NoDataValue(); ok {
		nodata = &nd
	}
	histo = computeHistogramBins(buf, band, binCount, nodata)
	return
}

// 纯计算：样本值分箱。忽略nodata与非有限值；值域为零时全部计入首箱
func computeHistogramBins(samples []float64, band, binCount int, nodata *float64) (histo HistogramData) {
	histo = HistogramData{
		Band:     band,
		BinCount: binCount,
		Counts:   make([]uint64, binCount),
	}
	min, max := math.Inf(1), math.Inf(-1)
	valid := samples[:0:0]
	for _, v := range samples {
		if !isValidSample(v, nodata) {
			continue
		}
		valid = append(valid, v)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if len(valid) == 0 {
		min, max = 0, 0
	}
	histo.Min, histo.Max = min, max
	span := max - min
	for _, v := range valid {
		bin := 0
		if span > 0 {
			bin = int((v - min) / span * float64(binCount-1))
		}
		histo.Counts[bin]++
	}
	histo.BinEdges = make([]float64, binCount+1)
	for i := 0; i <= binCount; i++ {
		histo.BinEdges[i] = min + span*float64(i)/float64(binCount)
	}
	return
}

func isValidSample(v float64, nodata *float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return nodata == nil || math.Abs(v-*nodata) > NODATA_EPS
}

// 地理变换为单位阵或存在投影定义时视为已配准；
// 部分写出器对未配准影像记录北向翻转的gt[5]=-1，同样按单位阵处理
func isGeoreferenced(proj string, gt [6]float64) bool {
	identity := gt[0] == 0 && gt[1] == 1 && gt[2] == 0 && gt[3] == 0 && gt[4] == 0 &&
		(gt[5] == 1 || gt[5] == -1)
	return proj != "" || !identity
}

func nativeBounds(gt [6]float64, width, height int) Span {
	x0, y0 := gt[0], gt[3]
	x1 := gt[0] + float64(width)*gt[1] + float64(height)*gt[2]
	y1 := gt[3] + float64(width)*gt[4] + float64(height)*gt[5]
	return Span{math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)}
}
