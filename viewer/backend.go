package viewer

import (
	"context"
	"fmt"
)

// 瓦片寻址方式：按真实地理范围或直接按像素网格
type Addressing int

const (
	AddressingGeographic Addressing = iota
	AddressingPixel
)

func (a Addressing) String() string {
	if a == AddressingPixel {
		return "pixel"
	}
	return "geographic"
}

type RenderKind int

const (
	RenderGrayscale RenderKind = iota
	RenderRGB
	RenderCrossRGB
)

func (k RenderKind) String() string {
	switch k {
	case RenderRGB:
		return "rgb"
	case RenderCrossRGB:
		return "crossRgb"
	default:
		return "grayscale"
	}
}

// 单通道取数来源：数据集、波段及拉伸
type BandSource struct {
	Dataset string
	Band    int
	Stretch Stretch
}

// 一次tile分发解析出的后端调用描述。Kind与Addressing一经解析即固定，
// 后端按此穷举分支，不再回读配置。
type RenderRequest struct {
	Kind       RenderKind
	Addressing Addressing
	Z, X, Y    int
	TileSize   int

	// RenderGrayscale仅用Gray；RenderRGB三者同数据集；RenderCrossRGB三者各自独立
	Gray  BandSource
	Red   BandSource
	Green BandSource
	Blue  BandSource
}

// 缓存键：完整编码全部渲染参数，配置一变键即不同
func (r RenderRequest) Key() string {
	switch r.Kind {
	case RenderRGB, RenderCrossRGB:
		return fmt.Sprintf("%s|%s|%d/%d/%d|%d|%s|%s|%s",
			r.Kind, r.Addressing, r.Z, r.X, r.Y, r.TileSize,
			sourceKey(r.Red), sourceKey(r.Green), sourceKey(r.Blue))
	default:
		return fmt.Sprintf("%s|%s|%d/%d/%d|%d|%s",
			r.Kind, r.Addressing, r.Z, r.X, r.Y, r.TileSize, sourceKey(r.Gray))
	}
}

func sourceKey(s BandSource) string {
	return fmt.Sprintf("%s:%d:%g:%g:%g", s.Dataset, s.Band, s.Stretch.Min, s.Stretch.Max, s.Stretch.Gamma)
}

// 后端渲染服务，产出编码后的瓦片字节
type TileRenderer interface {
	RenderTile(ctx context.Context, req RenderRequest) ([]byte, error)
}

// 后端取值服务，供坐标类工具查询像元
type DatasetQuerier interface {
	PixelValue(ctx context.Context, dataset string, px, py, band int) (float64, error)
	GeoValue(ctx context.Context, dataset string, lng, lat float64, band int) (float64, error)
}
