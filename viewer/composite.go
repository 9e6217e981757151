package viewer

import (
	"github.com/tapiab/heimdall-sub000/log"

	"go.uber.org/zap"
)

// 跨图层RGB合成：三个通道分别取自至多三个其他图层的某个波段。
// 来源图层在每次瓦片请求时经注册表现场解析，其拉伸参数的修改无需
// 重新接线即可在下一张瓦片上生效。
func (d *TileProtocolDispatcher) resolveComposite(l *Layer, addr TileAddress) (req RenderRequest, unresolved bool, err error) {
	req.Kind = RenderCrossRGB
	req.Z, req.X, req.Y = addr.Z, addr.X, addr.Y
	req.TileSize = TILE_SIZE

	if l.Sources == nil {
		unresolved = true
		return
	}
	wiring := [3]struct {
		layerID string
		band    int
		out     *BandSource
	}{
		{l.Sources.RLayer, l.Sources.RBand, &req.Red},
		{l.Sources.GLayer, l.Sources.GBand, &req.Green},
		{l.Sources.BLayer, l.Sources.BBand, &req.Blue},
	}
	geoCount := 0
	for _, w := range wiring {
		src, ok := d.registry.Get(w.layerID)
		if !ok || src.Kind != KindRaster || w.band < 1 || w.band > src.BandCount {
			// 悬空或失配的来源：合成出现空洞，但图层整体不中断
			log.Info(d.logTag+"composite source unresolved",
				zap.String("layer", l.ID), zap.String("source", w.layerID), zap.Int("band", w.band))
			unresolved = true
			return
		}
		if src.Georeferenced {
			geoCount++
		}
		*w.out = BandSource{Dataset: src.ID, Band: w.band, Stretch: src.Stretch}
	}
	switch geoCount {
	case 3:
		req.Addressing = AddressingGeographic
	case 0:
		req.Addressing = AddressingPixel
	default:
		// 三个来源必须同属一种寻址，混用会得到错位的假合成
		err = ErrIncompatibleAddressing
	}
	return
}
