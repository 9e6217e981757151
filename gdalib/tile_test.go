package gdalib

import (
	"math"
	"testing"

	"github.com/tapiab/heimdall-sub000/viewer"
)

func TestTileToGeoBoundsZoomZero(t *testing.T) {
	b := tileToGeoBounds(0, 0, 0)
	if math.Abs(b[0]+180) > 0.001 || math.Abs(b[2]-180) > 0.001 {
		t.Fatalf("zoom 0 lon bounds = [%f, %f]", b[0], b[2])
	}
	if b[3] < 80 || b[3] > 90 || math.Abs(b[1]+b[3]) > 0.001 {
		t.Fatalf("zoom 0 lat bounds = [%f, %f]", b[1], b[3])
	}
}

func TestTileToGeoBoundsZoomOne(t *testing.T) {
	nw := tileToGeoBounds(0, 0, 1)
	se := tileToGeoBounds(1, 1, 1)
	if math.Abs(nw[0]+180) > 0.001 || math.Abs(nw[2]) > 0.001 {
		t.Fatalf("tile (0,0,1) lon = [%f, %f]", nw[0], nw[2])
	}
	if math.Abs(nw[1]) > 0.001 {
		t.Fatalf("tile (0,0,1) min lat = %f, want 0", nw[1])
	}
	if math.Abs(se[0]) > 0.001 || math.Abs(se[2]-180) > 0.001 {
		t.Fatalf("tile (1,1,1) lon = [%f, %f]", se[0], se[2])
	}
	if math.Abs(se[3]) > 0.001 {
		t.Fatalf("tile (1,1,1) max lat = %f, want 0", se[3])
	}
}

func TestTileToWebMercatorBounds(t *testing.T) {
	b := tileToWebMercatorBounds(0, 0, 0)
	if math.Abs(b[0]+webMercatorHalf) > 1e-6 || math.Abs(b[2]-webMercatorHalf) > 1e-6 {
		t.Fatalf("zoom 0 mercator x = [%f, %f]", b[0], b[2])
	}
	if b[1] != -b[3] {
		t.Fatalf("zoom 0 mercator y not symmetric: [%f, %f]", b[1], b[3])
	}
	q := tileToWebMercatorBounds(1, 0, 1)
	if math.Abs(q[0]) > 1e-6 || math.Abs(q[2]-webMercatorHalf) > 1e-6 {
		t.Fatalf("tile (1,0,1) mercator x = [%f, %f]", q[0], q[2])
	}
}

func TestConvertRoundTrip(t *testing.T) {
	for _, p := range [][2]float64{{0, 0}, {120.5, 31.2}, {-73.9, -40.7}, {179, 84}} {
		x, y := Convert4326To3857(p[0], p[1])
		lon, lat := Convert3857To4326(x, y)
		if math.Abs(lon-p[0]) > 1e-6 || math.Abs(lat-p[1]) > 1e-6 {
			t.Fatalf("round trip (%f, %f) -> (%f, %f)", p[0], p[1], lon, lat)
		}
	}
}

func TestBoundsIntersect(t *testing.T) {
	base := Span{0, 0, 10, 10}
	cases := []struct {
		b    Span
		want bool
	}{
		{Span{5, 5, 15, 15}, true},
		{Span{10, 10, 20, 20}, true}, // 仅边界相触
		{Span{11, 0, 20, 10}, false},
		{Span{0, -20, 10, -1}, false},
		{Span{2, 2, 3, 3}, true},
	}
	for i, c := range cases {
		if got := boundsIntersect(base, c.b); got != c.want {
			t.Fatalf("case %d: boundsIntersect = %v, want %v", i, got, c.want)
		}
	}
}

func TestApplyStretch(t *testing.T) {
	s := viewer.Stretch{Min: 100, Max: 300, Gamma: 1}
	if _, valid := applyStretch(0, s, nil); valid {
		t.Fatal("zero value should be transparent")
	}
	if _, valid := applyStretch(math.NaN(), s, nil); valid {
		t.Fatal("NaN should be transparent")
	}
	if _, valid := applyStretch(math.Inf(1), s, nil); valid {
		t.Fatal("Inf should be transparent")
	}
	nodata := 255.0
	if _, valid := applyStretch(255, s, &nodata); valid {
		t.Fatal("nodata value should be transparent")
	}
	if c, valid := applyStretch(50, s, nil); !valid || c != 0 {
		t.Fatalf("below min -> (%d, %v), want (0, true)", c, valid)
	}
	if c, valid := applyStretch(500, s, nil); !valid || c != 255 {
		t.Fatalf("above max -> (%d, %v), want (255, true)", c, valid)
	}
	if c, valid := applyStretch(200, s, nil); !valid || c != 127 {
		t.Fatalf("midpoint -> (%d, %v), want (127, true)", c, valid)
	}
}

func TestApplyStretchGamma(t *testing.T) {
	lo := viewer.Stretch{Min: 0, Max: 100, Gamma: 0.5}
	hi := viewer.Stretch{Min: 0, Max: 100, Gamma: 2}
	cLo, _ := applyStretch(50, lo, nil)
	cHi, _ := applyStretch(50, hi, nil)
	lin, _ := applyStretch(50, viewer.Stretch{Min: 0, Max: 100, Gamma: 1}, nil)
	if cLo >= lin || cHi <= lin {
		t.Fatalf("gamma ordering broken: lo=%d lin=%d hi=%d", cLo, lin, cHi)
	}
	// gamma非法时回退为线性
	fb, _ := applyStretch(50, viewer.Stretch{Min: 0, Max: 100, Gamma: 0}, nil)
	if fb != lin {
		t.Fatalf("gamma fallback = %d, want %d", fb, lin)
	}
}

func TestApplyStretchDegenerateRange(t *testing.T) {
	s := viewer.Stretch{Min: 42, Max: 42, Gamma: 1}
	if c, valid := applyStretch(43, s, nil); !valid || c != 255 {
		t.Fatalf("degenerate range -> (%d, %v)", c, valid)
	}
}

func TestClampRange(t *testing.T) {
	if lo, hi := clampRange(-3, 300, 256); lo != 0 || hi != 256 {
		t.Fatalf("clampRange(-3, 300) = (%d, %d)", lo, hi)
	}
	if lo, hi := clampRange(10, 10, 256); lo != 10 || hi != 11 {
		t.Fatalf("clampRange(10, 10) = (%d, %d)", lo, hi)
	}
}

func TestEmptyTilePNG(t *testing.T) {
	tile, err := emptyTilePNG(viewer.TILE_SIZE)
	if err != nil {
		t.Fatal(err)
	}
	if len(tile) == 0 {
		t.Fatal("empty tile should still be a valid png")
	}
}
