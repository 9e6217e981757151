package gdalib

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tapiab/heimdall-sub000/log"
	"github.com/tapiab/heimdall-sub000/utils"

	"github.com/google/uuid"
	"github.com/lukeroth/gdal"
	"go.uber.org/zap"
)

type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type VectorMetadata struct {
	Id           string      `json:"id"`
	Path         string      `json:"path"`
	Name         string      `json:"name"`
	GeometryType string      `json:"geometry_type"`
	FeatureCount int         `json:"feature_count"`
	Fields       []FieldInfo `json:"fields"`
	Extent       Span        `json:"extent"`
}

type VectorLayerData struct {
	Metadata VectorMetadata `json:"metadata"`
	GeoJSON  AnyJson        `json:"geojson"`
}

// 打开矢量数据集，读取首图层元信息并整体转为EPSG:4326的GeoJSON
func (g *GdalBackend) OpenVector(path string) (data VectorLayerData, err error) {
	var openOpts []string
	switch strings.ToLower(filepath.Ext(path)) {
	case FILE_EXT_SHP:
		if shpNeedsGbk(path) {
			openOpts = []string{OO_ENCODING}
		}
	case FILE_EXT_JSON, FILE_EXT_GEOJSON:
	default:
		err = ErrUnsupportedVector
		return
	}
	sds, err := gdal.OpenEx(path, gdal.OFVector, nil, openOpts, nil)
	if err != nil {
		log.Error(g.logTag+"open vector error", zap.String("path", path), zap.Error(err))
		err = ErrGdalDriverOpen
		return
	}
	defer sds.Close()

	layer := sds.LayerByIndex(0)
	meta := VectorMetadata{
		Id:           uuid.NewString(),
		Path:         path,
		Name:         utils.GetFilenameWithoutExt(path),
		GeometryType: geomTypeName(layer.Type()),
	}
	if count, ok := layer.FeatureCount(true); ok {
		meta.FeatureCount = count
	}
	def := layer.Definition()
	for i := 0; i < def.FieldCount(); i++ {
		fd := def.FieldDefinition(i)
		meta.Fields = append(meta.Fields, FieldInfo{
			Name: utils.DecodeFieldText(fd.Name()),
			Type: fd.Type().Name(),
		})
	}
	if env, e := layer.Extent(true); e == nil {
		meta.Extent = Span{env.MinX(), env.MinY(), env.MaxX(), env.MaxY()}
		sp := layer.SpatialReference()
		if wkt, _ := sp.ToWKT(); wkt != "" && !sp.IsGeographic() {
			if uRef, e := g.getSridRef(UNIVERSAL_SRID); e == nil {
				if b, e := g.transformSpan(meta.Extent, sp, uRef); e == nil {
					meta.Extent = b
				}
			}
		}
	}

	out := filepath.Join(g.tmpDir, fmt.Sprintf(TMP_GEOJSON, meta.Id))
	dds, err := gdal.VectorTranslate(out, []gdal.Dataset{sds}, []string{
		"-f", "GeoJSON", "-t_srs", fmt.Sprintf("epsg:%d", UNIVERSAL_SRID)})
	if err != nil {
		log.Error(g.logTag + "VectorTranslate failed")
		return
	}
	dds.Close() // 生成转换后的json文件
	geojson, err := os.ReadFile(out)
	os.Remove(out)
	if err != nil {
		return
	}
	g.paths.Set(meta.Id, path)
	data = VectorLayerData{Metadata: meta, GeoJSON: geojson}
	log.Info(g.logTag+"vector opened", zap.String("id", meta.Id), zap.String("path", path),
		zap.Int("features", meta.FeatureCount))
	return
}

// shp的.cpg边车文件缺失或声明GBK系编码时，需带编码选项打开
func shpNeedsGbk(shp string) bool {
	cpg, err := os.ReadFile(strings.TrimSuffix(shp, FILE_EXT_SHP) + FILE_EXT_CPG)
	if err != nil {
		return true
	}
	enc := strings.ToUpper(strings.TrimSpace(utils.B2S(cpg)))
	return enc == ZH_ENC || enc == "CP936" || enc == "936"
}

func geomTypeName(gt gdal.GeometryType) string {
	switch gt {
	case gdal.GT_Point:
		return "Point"
	case gdal.GT_LineString:
		return "LineString"
	case gdal.GT_Polygon:
		return "Polygon"
	case gdal.GT_MultiPoint:
		return "MultiPoint"
	case gdal.GT_MultiLineString:
		return "MultiLineString"
	case gdal.GT_MultiPolygon:
		return "MultiPolygon"
	default:
		return "Unknown"
	}
}
