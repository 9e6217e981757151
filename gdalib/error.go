package gdalib

import "errors"

var (
	ErrGdalDriverOpen    = errors.New("gdal driver open err")
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrWrongBand         = errors.New("wrong raster band")
	ErrOutsideRaster     = errors.New("pixel outside raster")
	ErrVoidSrid          = errors.New("void srid")
	ErrInvalidWkt        = errors.New("invalid wkt geometry")
	ErrUnsupportedVector = errors.New("unsupported vector format")
	ErrUnknownRender     = errors.New("unknown render request")
	ErrRasterRead        = errors.New("raster read failed")
)
