package gdalib

const (
	SHP_DRIVER_NAME     = "ESRI Shapefile"
	GEOJSON_DRIVER_NAME = "GeoJSON"

	FILE_EXT_SHP     = ".shp"
	FILE_EXT_CPG     = ".cpg"
	FILE_EXT_JSON    = ".json"
	FILE_EXT_GEOJSON = ".geojson"

	SHAPE_ENCODING = "SHAPE_ENCODING"
	UTF8_ENC       = "UTF-8"
	ZH_ENC         = "GBK"
	OO_ENCODING    = "ENCODING=" + ZH_ENC

	UNIVERSAL_SRID    = 4326
	WEB_MERCATOR_SRID = 3857

	DATASET_CACHE_SIZE = 64

	HISTO_MAX_SAMPLE   = 1024
	DEFAULT_HISTO_BINS = 256

	NODATA_EPS = 1e-10

	TMP_GEOJSON = "geo_%s.json"
)
