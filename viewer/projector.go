package viewer

import "math"

// 非地理配准影像的伪地理坐标框架：以原点为中心，scale为每像素度数。
// 地图侧坐标与像素坐标的互转必须且仅经由这一组公式，保证各交互工具
// 指向同一个像素。
type PixelExtent struct {
	Width   int     `json:"width"`
	Height  int     `json:"height"`
	Scale   float64 `json:"scale"`
	OffsetX float64 `json:"offset_x"`
	OffsetY float64 `json:"offset_y"`
}

// 构建伪地理框架，纬向半幅限制在Web墨卡托有效纬度内
func NewPixelExtent(width, height int, scale float64) (ext *PixelExtent, err error) {
	if width <= 0 || height <= 0 {
		err = ErrEmptyRaster
		return
	}
	if scale <= 0 {
		scale = PIXEL_FRAME_SCALE
	}
	halfWidth := float64(width) * scale / 2
	halfHeight := float64(height) * scale / 2
	if halfHeight > MAX_PSEUDO_LAT {
		halfHeight = MAX_PSEUDO_LAT
	}
	ext = &PixelExtent{
		Width:   width,
		Height:  height,
		Scale:   scale,
		OffsetX: halfWidth,
		OffsetY: halfHeight,
	}
	return
}

// [minLng, minLat, maxLng, maxLat]
func (e *PixelExtent) Bounds() [4]float64 {
	return [4]float64{-e.OffsetX, -e.OffsetY, e.OffsetX, e.OffsetY}
}

// 像素坐标转地图坐标，像素行0在顶部
func (e *PixelExtent) ToMapSpace(x, y int) (lng, lat float64) {
	lng = float64(x)*e.Scale - e.OffsetX
	lat = e.OffsetY - float64(y)*e.Scale
	return
}

// 地图坐标转像素坐标
func (e *PixelExtent) ToPixel(lng, lat float64) (x, y int) {
	x = int(math.Round((lng + e.OffsetX) / e.Scale))
	y = int(math.Round((e.OffsetY - lat) / e.Scale))
	return
}

// 地图坐标是否落在影像内
func (e *PixelExtent) Contains(lng, lat float64) bool {
	x, y := e.ToPixel(lng, lat)
	return x >= 0 && x < e.Width && y >= 0 && y < e.Height
}
