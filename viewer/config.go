package viewer

const (
	TILE_SCHEME       = "heimdall"
	TILE_SIZE         = 256
	TILE_CACHE_SIZE   = 500
	DEFAULT_GAMMA     = 1.0
	DEFAULT_MAX_VALUE = 255.0

	// 非地理配准影像的伪地理坐标系参数
	PIXEL_FRAME_SCALE = 0.01
	MAX_PSEUDO_LAT    = 85.0

	DEFAULT_PROFILE_SAMPLES = 100
	MAX_PROFILE_SAMPLES     = 2048

	EARTH_RADIUS_M = 6371000.0
)
