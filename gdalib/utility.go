package gdalib

import (
	"fmt"
	"math"
)

const (
	degToRad = math.Pi / 180

	xr = 20037508.34 / 180
	yr = xr / degToRad
	tr = degToRad / 2

	webMercatorHalf = 20037508.342789244
)

func PointsToWkt(lon1, lon2, lat1, lat2 float64) string {
	return fmt.Sprintf("POLYGON((%[1]f %[3]f, %[1]f %[4]f, %[2]f %[4]f, %[2]f %[3]f, %[1]f %[3]f))", lon1, lon2, lat1, lat2)
}

func pointToWkt(x, y float64) string {
	return fmt.Sprintf("POINT(%f %f)", x, y)
}

func SpanToWkt(span Span) string {
	return PointsToWkt(span[0], span[2], span[1], span[3])
}

func Convert4326To3857(lon, lat float64) (lonIn3857, latIn3857 float64) {
	lonIn3857 = lon * xr
	latIn3857 = math.Log(math.Tan((90+lat)*tr)) * yr
	return
}

func Convert3857To4326(lonIn3857, latIn3857 float64) (lon, lat float64) {
	lon = lonIn3857 / xr
	lat = math.Atan(math.Pow(math.E, latIn3857/yr))/tr - 90
	return
}

// XYZ瓦片在3857下的范围
func tileToWebMercatorBounds(x, y, z int) (b Span) {
	n := math.Exp2(float64(z))
	ts := webMercatorHalf * 2 / n
	b[0] = -webMercatorHalf + float64(x)*ts
	b[2] = b[0] + ts
	b[3] = webMercatorHalf - float64(y)*ts
	b[1] = b[3] - ts
	return
}

// XYZ瓦片在4326下的范围
func tileToGeoBounds(x, y, z int) (b Span) {
	m := tileToWebMercatorBounds(x, y, z)
	b[0], b[1] = Convert3857To4326(m[0], m[1])
	b[2], b[3] = Convert3857To4326(m[2], m[3])
	return
}

func boundsIntersect(a, b Span) bool {
	return a[0] <= b[2] && a[2] >= b[0] && a[1] <= b[3] && a[3] >= b[1]
}
