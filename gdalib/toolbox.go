package gdalib

import (
	"sync"

	"github.com/tapiab/heimdall-sub000/cache"
	"github.com/tapiab/heimdall-sub000/log"

	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

// 栅格/矢量渲染后端，持有数据集路径缓存与可复用的坐标系对象
type GdalBackend struct {
	refMap map[int]gdal.SpatialReference
	rLock  sync.Mutex
	paths  *cache.LRU[string, string]
	tmpDir string
	logTag string
}

// 初始化GDAL渲染后端，tmpDir为可选的临时目录路径（未提供的话为当前目录）
func NewGdalBackend(tmpDir ...string) *GdalBackend {
	g := &GdalBackend{
		refMap: map[int]gdal.SpatialReference{},
		paths:  cache.New[string, string](DATASET_CACHE_SIZE),
		logTag: "GdalBackend:",
	}
	if len(tmpDir) > 0 && tmpDir[0] != "" {
		g.tmpDir = tmpDir[0]
	}
	return g
}

// 获取srid对应的坐标系（可复用，故无需回收）
func (g *GdalBackend) getSridRef(srid int) (ref gdal.SpatialReference, err error) {
	g.rLock.Lock()
	defer g.rLock.Unlock()
	ref, ok := g.refMap[srid]
	if ok {
		return
	}
	ref = gdal.CreateSpatialReference("")
	if err = ref.FromEPSG(srid); err != nil { // 设定坐标系ID
		log.Error(g.logTag+"set ref srid failed", zap.Int("srid", srid), zap.Error(err))
		ref.Destroy()
		return
	}
	// 这里应设置坐标系对应的数据轴次序为固定的(经度,纬度)（传统GIS坐标序），否则在转换坐标系时可能出现次序倒置问题
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	g.refMap[srid] = ref
	return
}

// 由WKT字符串创建坐标系（每次新建，调用方负责回收）
func (g *GdalBackend) projRef(wkt string) gdal.SpatialReference {
	ref := gdal.CreateSpatialReference(wkt)
	ref.SetAxisMappingStrategy(gdal.OAMS_TraditionalGisOrder)
	return ref
}

func (g *GdalBackend) parseWKT(wkt string, ref gdal.SpatialReference) (ret gdal.Geometry, err error) {
	ret, err = gdal.CreateFromWKT(wkt, ref)
	if err != nil {
		log.Error(g.logTag+"parse wkt failed", zap.Error(err))
		err = ErrInvalidWkt
	}
	return
}

// 将矩形范围从src坐标系转换到dst坐标系，返回转换后几何的外包络
func (g *GdalBackend) transformSpan(span Span, src, dst gdal.SpatialReference) (ret Span, err error) {
	geo, err := g.parseWKT(SpanToWkt(span), src)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if err = geo.TransformTo(dst); err != nil {
		log.Error(g.logTag+"span transform failed", zap.Error(err))
		return
	}
	envelop := geo.Envelope()
	ret = Span{envelop.MinX(), envelop.MinY(), envelop.MaxX(), envelop.MaxY()}
	return
}

// 将单点从src坐标系转换到dst坐标系
func (g *GdalBackend) transformPoint(x, y float64, src, dst gdal.SpatialReference) (tx, ty float64, err error) {
	geo, err := g.parseWKT(pointToWkt(x, y), src)
	if err != nil {
		return
	}
	defer geo.Destroy()
	if err = geo.TransformTo(dst); err != nil {
		log.Error(g.logTag+"point transform failed", zap.Error(err))
		return
	}
	envelop := geo.Envelope()
	tx, ty = envelop.MinX(), envelop.MinY()
	return
}
