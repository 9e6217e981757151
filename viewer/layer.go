package viewer

type LayerKind int

const (
	KindRaster LayerKind = iota
	KindVector
)

func (k LayerKind) String() string {
	if k == KindVector {
		return "vector"
	}
	return "raster"
}

type DisplayMode int

const (
	ModeGrayscale DisplayMode = iota
	ModeRGB
	ModeCrossLayerRGB
)

func (m DisplayMode) String() string {
	switch m {
	case ModeRGB:
		return "rgb"
	case ModeCrossLayerRGB:
		return "crossLayerRgb"
	default:
		return "grayscale"
	}
}

func ParseDisplayMode(s string) (DisplayMode, error) {
	switch s {
	case "grayscale":
		return ModeGrayscale, nil
	case "rgb":
		return ModeRGB, nil
	case "crossLayerRgb":
		return ModeCrossLayerRGB, nil
	}
	return ModeGrayscale, ErrInvalidDisplayMode
}

// 拉伸参数，将原始像元值映射为显示亮度
type Stretch struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Gamma float64 `json:"gamma"`
}

func DefaultStretch() Stretch {
	return Stretch{Min: 0, Max: DEFAULT_MAX_VALUE, Gamma: DEFAULT_GAMMA}
}

type RGBBands struct {
	R int `json:"r"`
	G int `json:"g"`
	B int `json:"b"`
}

type RGBStretch struct {
	R Stretch `json:"r"`
	G Stretch `json:"g"`
	B Stretch `json:"b"`
}

// 跨图层合成的三个通道来源，按图层id引用，允许悬空
type CrossLayerSources struct {
	RLayer string `json:"r_layer"`
	RBand  int    `json:"r_band"`
	GLayer string `json:"g_layer"`
	GBand  int    `json:"g_band"`
	BLayer string `json:"b_layer"`
	BBand  int    `json:"b_band"`
}

func (s *CrossLayerSources) references(id string) bool {
	return s != nil && (s.RLayer == id || s.GLayer == id || s.BLayer == id)
}

type BandStats struct {
	Band   int     `json:"band"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
}

// 一个已加载的数据集及其当前渲染配置
type Layer struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Kind          LayerKind   `json:"kind"`
	BandCount     int         `json:"band_count"`
	Stats         []BandStats `json:"band_stats"`
	Georeferenced bool        `json:"is_georeferenced"`
	Bounds        [4]float64  `json:"bounds"`

	Mode       DisplayMode        `json:"display_mode"`
	Band       int                `json:"band"`
	Stretch    Stretch            `json:"stretch"`
	RGBBands   RGBBands           `json:"rgb_bands"`
	RGBStretch RGBStretch         `json:"rgb_stretch"`
	Sources    *CrossLayerSources `json:"cross_layer_sources,omitempty"`

	// 仅非地理配准影像持有
	Extent *PixelExtent `json:"pixel_extent,omitempty"`
}

// 深拷贝，注册表对外只交出快照
func (l *Layer) clone() Layer {
	c := *l
	if l.Sources != nil {
		src := *l.Sources
		c.Sources = &src
	}
	if l.Extent != nil {
		ext := *l.Extent
		c.Extent = &ext
	}
	c.Stats = make([]BandStats, len(l.Stats))
	copy(c.Stats, l.Stats)
	return c
}

// 波段统计缺省时的拉伸范围
func (l *Layer) statsStretch(band int) Stretch {
	for _, s := range l.Stats {
		if s.Band == band {
			return Stretch{Min: s.Min, Max: s.Max, Gamma: DEFAULT_GAMMA}
		}
	}
	return DefaultStretch()
}
