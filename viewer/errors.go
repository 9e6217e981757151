package viewer

import "errors"

var (
	ErrInvalidTileAddress     = errors.New("invalid tile address")
	ErrLayerNotFound          = errors.New("layer not found")
	ErrIncompatibleAddressing = errors.New("mixed addressing in cross-layer composite")
	ErrBackendRender          = errors.New("backend render failed")
	ErrEmptyRaster            = errors.New("empty raster extent")
	ErrDuplicateLayerID       = errors.New("duplicate layer id")
	ErrNotRasterLayer         = errors.New("layer is not raster")
	ErrBandOutOfRange         = errors.New("band out of range")
	ErrInvalidDisplayMode     = errors.New("invalid display mode")
	ErrOutsideExtent          = errors.New("coordinate outside layer extent")
)
