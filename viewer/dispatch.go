package viewer

import (
	"context"
	"strconv"
	"strings"

	"github.com/tapiab/heimdall-sub000/cache"
	"github.com/tapiab/heimdall-sub000/log"

	"go.uber.org/zap"
)

// 瓦片协议分发器：把渲染端发来的瓦片地址翻译成恰好一次后端调用。
// 配置一律在分发瞬间从注册表读取，绝不跨请求缓存；渲染结果按完整
// 参数键记入LRU，重复请求不再回源。
type TileProtocolDispatcher struct {
	registry *LayerRegistry
	backend  TileRenderer
	tiles    *cache.LRU[string, []byte]
	logTag   string
}

func NewTileProtocolDispatcher(registry *LayerRegistry, backend TileRenderer, cacheSize int) *TileProtocolDispatcher {
	if cacheSize <= 0 {
		cacheSize = TILE_CACHE_SIZE
	}
	return &TileProtocolDispatcher{
		registry: registry,
		backend:  backend,
		tiles:    cache.New[string, []byte](cacheSize),
		logTag:   "TileProtocolDispatcher:",
	}
}

type TileAddress struct {
	LayerID string
	Z, X, Y int
}

// 解析瓦片地址。接受自定义协议形式 heimdall://{layer}/{z}/{x}/{y}
// 或路径形式 /tiles/{layer}/{z}/{x}/{y}[.png]；查询串只承载防缓存
// 标记，对寻址无意义，一概丢弃。
func ParseTileAddress(raw string) (addr TileAddress, err error) {
	s := raw
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimPrefix(s, TILE_SCHEME+"://")
	s = strings.TrimPrefix(s, "/")
	s = strings.TrimPrefix(s, "tiles/")
	s = strings.TrimSuffix(s, ".png")
	parts := strings.Split(s, "/")
	if len(parts) != 4 || parts[0] == "" {
		err = ErrInvalidTileAddress
		return
	}
	addr.LayerID = parts[0]
	var nums [3]int
	for i, p := range parts[1:] {
		if nums[i], err = strconv.Atoi(p); err != nil {
			err = ErrInvalidTileAddress
			return
		}
	}
	addr.Z, addr.X, addr.Y = nums[0], nums[1], nums[2]
	if addr.Z < 0 {
		err = ErrInvalidTileAddress
	}
	return
}

// 处理一次瓦片请求，返回编码后的瓦片字节。跨图层来源未解析时返回
// 零长度瓦片而非报错；请求间相互独立，单个失败不牵连其他在途瓦片。
func (d *TileProtocolDispatcher) Dispatch(ctx context.Context, rawAddr string) (tile []byte, err error) {
	addr, err := ParseTileAddress(rawAddr)
	if err != nil {
		return
	}
	return d.DispatchAddress(ctx, addr)
}

func (d *TileProtocolDispatcher) DispatchAddress(ctx context.Context, addr TileAddress) (tile []byte, err error) {
	layer, ok := d.registry.Get(addr.LayerID)
	if !ok {
		err = ErrLayerNotFound
		return
	}
	if layer.Kind != KindRaster {
		err = ErrNotRasterLayer
		return
	}
	req, unresolved, err := d.resolve(&layer, addr)
	if err != nil {
		return
	}
	if unresolved {
		tile = []byte{}
		return
	}
	key := req.Key()
	if tile, ok = d.tiles.Get(key); ok {
		return
	}
	tile, err = d.backend.RenderTile(ctx, req)
	if err != nil {
		log.Error(d.logTag+"render failed", zap.String("layer", addr.LayerID),
			zap.Int("z", addr.Z), zap.Int("x", addr.X), zap.Int("y", addr.Y), zap.Error(err))
		tile = nil
		err = ErrBackendRender
		return
	}
	// 请求已被放弃的结果只丢弃，不回写
	if ctx.Err() == nil {
		d.tiles.Set(key, tile)
	}
	return
}

// 按当前配置把图层解析为带寻址标记的后端调用描述
func (d *TileProtocolDispatcher) resolve(l *Layer, addr TileAddress) (req RenderRequest, unresolved bool, err error) {
	req.Z, req.X, req.Y = addr.Z, addr.X, addr.Y
	req.TileSize = TILE_SIZE
	req.Addressing = layerAddressing(l)

	switch {
	case l.Mode == ModeCrossLayerRGB:
		return d.resolveComposite(l, addr)
	case l.Mode == ModeRGB && l.BandCount >= 3:
		req.Kind = RenderRGB
		req.Red = BandSource{Dataset: l.ID, Band: l.RGBBands.R, Stretch: l.RGBStretch.R}
		req.Green = BandSource{Dataset: l.ID, Band: l.RGBBands.G, Stretch: l.RGBStretch.G}
		req.Blue = BandSource{Dataset: l.ID, Band: l.RGBBands.B, Stretch: l.RGBStretch.B}
	default:
		// 波段数不足RGB的图层退回单波段灰度
		req.Kind = RenderGrayscale
		req.Gray = BandSource{Dataset: l.ID, Band: l.Band, Stretch: l.Stretch}
	}
	return
}

func layerAddressing(l *Layer) Addressing {
	if l.Georeferenced {
		return AddressingGeographic
	}
	return AddressingPixel
}

// 瓦片结果缓存统计
func (d *TileProtocolDispatcher) CacheStats() cache.Stats {
	return d.tiles.Stats()
}
