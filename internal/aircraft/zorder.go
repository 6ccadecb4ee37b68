// In file: internal/aircraft/zorder.go
package aircraft

import "math"

const zorderBits = 20

// ZOrder interleaves latitude and longitude, each scaled to a 20-bit cell,
// into a 40-bit Morton key. Latitude bits land on even positions.
//
// Keys match what ingestion stores: lat=90 and lon=180 scale to 2^20, which
// has no bits below bit 20, so they wrap to cell 0.
func ZOrder(lat, lon float64) uint64 {
	latInt := cell((lat + 90.0) * (1 << zorderBits) / 180.0)
	lonInt := cell((lon + 180.0) * (1 << zorderBits) / 360.0)

	var result uint64
	for i := 0; i < zorderBits; i++ {
		result |= ((latInt & (1 << i)) << i) | ((lonInt & (1 << i)) << (i + 1))
	}
	return result
}

// cell truncates v and keeps its low 20 bits. Negative and NaN inputs map to 0.
func cell(v float64) uint64 {
	if !(v > 0) {
		return 0
	}
	return uint64(math.Mod(math.Trunc(v), 1<<zorderBits))
}
