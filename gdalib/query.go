package gdalib

import (
	"context"
	"math"

	"github.com/lukeroth/gdal"
)

// 读取指定像素位置的波段值
func (g *GdalBackend) PixelValue(ctx context.Context, dataset string, px, py, band int) (val float64, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	ds, err := g.openByID(dataset)
	if err != nil {
		return
	}
	defer ds.Close()
	return g.readPixel(ds, px, py, band)
}

// 读取指定经纬度（EPSG:4326）处的波段值
func (g *GdalBackend) GeoValue(ctx context.Context, dataset string, lng, lat float64, band int) (val float64, err error) {
	if err = ctx.Err(); err != nil {
		return
	}
	ds, err := g.openByID(dataset)
	if err != nil {
		return
	}
	defer ds.Close()
	x, y := lng, lat
	if proj := ds.Projection(); proj != "" {
		ref := g.projRef(proj)
		defer ref.Destroy()
		if !ref.IsGeographic() {
			var uRef gdal.SpatialReference
			if uRef, err = g.getSridRef(UNIVERSAL_SRID); err != nil {
				return
			}
			if x, y, err = g.transformPoint(lng, lat, uRef, ref); err != nil {
				return
			}
		}
	}
	gt := ds.GeoTransform()
	if gt[1] == 0 || gt[5] == 0 {
		err = ErrOutsideRaster
		return
	}
	px := int(math.Floor((x - gt[0]) / gt[1]))
	py := int(math.Floor((y - gt[3]) / gt[5]))
	return g.readPixel(ds, px, py, band)
}

func (g *GdalBackend) readPixel(ds gdal.Dataset, px, py, band int) (val float64, err error) {
	if band < 1 || band > ds.RasterCount() {
		err = ErrWrongBand
		return
	}
	if px < 0 || py < 0 || px >= ds.RasterXSize() || py >= ds.RasterYSize() {
		err = ErrOutsideRaster
		return
	}
	buf := make([]float64, 1)
	if err = ds.RasterBand(band).IO(gdal.Read, px, py, 1, 1, buf, 1, 1, 0, 0); err != nil {
		err = ErrRasterRead
		return
	}
	val = buf[0]
	return
}
