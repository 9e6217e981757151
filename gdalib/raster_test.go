package gdalib

import (
	"math"
	"testing"
)

func TestComputeHistogramBins(t *testing.T) {
	samples := []float64{10, 20, 30, 40, 50}
	h := computeHistogramBins(samples, 1, 4, nil)
	if h.Min != 10 || h.Max != 50 {
		t.Fatalf("range = [%f, %f]", h.Min, h.Max)
	}
	var total uint64
	for _, c := range h.Counts {
		total += c
	}
	if total != 5 {
		t.Fatalf("total count = %d, want 5", total)
	}
	// 最大值落入末箱
	if h.Counts[3] == 0 {
		t.Fatal("max value should land in last bin")
	}
	if len(h.BinEdges) != 5 || h.BinEdges[0] != 10 || h.BinEdges[4] != 50 {
		t.Fatalf("bin edges = %v", h.BinEdges)
	}
}

func TestComputeHistogramBinsSkipsInvalid(t *testing.T) {
	nodata := -9999.0
	samples := []float64{-9999, math.NaN(), math.Inf(1), 5, 15}
	h := computeHistogramBins(samples, 1, 2, &nodata)
	if h.Min != 5 || h.Max != 15 {
		t.Fatalf("range = [%f, %f], want [5, 15]", h.Min, h.Max)
	}
	if h.Counts[0]+h.Counts[1] != 2 {
		t.Fatalf("counts = %v, want 2 valid samples", h.Counts)
	}
}

func TestComputeHistogramBinsUniform(t *testing.T) {
	samples := []float64{7, 7, 7}
	h := computeHistogramBins(samples, 1, 8, nil)
	if h.Counts[0] != 3 {
		t.Fatalf("uniform samples should all land in bin 0, counts = %v", h.Counts)
	}
	for _, c := range h.Counts[1:] {
		if c != 0 {
			t.Fatalf("unexpected spill: %v", h.Counts)
		}
	}
}

func TestComputeHistogramBinsEmpty(t *testing.T) {
	h := computeHistogramBins([]float64{math.NaN()}, 1, 4, nil)
	if h.Min != 0 || h.Max != 0 {
		t.Fatalf("empty range = [%f, %f]", h.Min, h.Max)
	}
	for _, c := range h.Counts {
		if c != 0 {
			t.Fatalf("empty input counts = %v", h.Counts)
		}
	}
}

func TestIsGeoreferenced(t *testing.T) {
	identity := [6]float64{0, 1, 0, 0, 0, 1}
	if isGeoreferenced("", identity) {
		t.Fatal("identity transform without projection is not georeferenced")
	}
	flipped := [6]float64{0, 1, 0, 0, 0, -1}
	if isGeoreferenced("", flipped) {
		t.Fatal("north-up flipped identity without projection is not georeferenced")
	}
	if !isGeoreferenced("PROJCS[...]", identity) {
		t.Fatal("projection definition implies georeferenced")
	}
	gt := [6]float64{116.0, 0.001, 0, 40.0, 0, -0.001}
	if !isGeoreferenced("", gt) {
		t.Fatal("non-identity transform implies georeferenced")
	}
}

func TestNativeBounds(t *testing.T) {
	gt := [6]float64{100, 0.5, 0, 50, 0, -0.25}
	b := nativeBounds(gt, 200, 100)
	want := Span{100, 25, 200, 50}
	for i := range b {
		if math.Abs(b[i]-want[i]) > 1e-9 {
			t.Fatalf("bounds = %v, want %v", b, want)
		}
	}
}
