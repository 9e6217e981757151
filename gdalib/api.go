package gdalib

import "encoding/json"

type AnyJson = json.RawMessage

// [minX, minY, maxX, maxY]
type Span = [4]float64
