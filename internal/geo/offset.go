package geo

import "strings"

// offsetMagnitude bounds the base district offset to roughly ±0.005
// degrees (~500 m) in each axis.
const offsetMagnitude = 0.01

// Offset is a small lat/lng displacement from a reference point.
type Offset struct {
	Lat float64
	Lng float64
}

// DistrictOffset derives a stable pseudo-random offset from a district
// name. The same name and index always yield the same offset, so repeated
// enrichment runs place fallback markers consistently. Index separates
// multiple activities assigned to the same district.
func DistrictOffset(district string, index int) Offset {
	hash := districtHash(district)

	base := Offset{
		Lat: float64((hash%100)-50) / 100 * offsetMagnitude,
		Lng: float64(((hash>>8)%100)-50) / 100 * offsetMagnitude,
	}

	return Offset{
		Lat: base.Lat + float64(index)*0.001,
		Lng: base.Lng + float64(index)*0.001,
	}
}

// districtHash folds the lower-cased district name into a 32-bit hash
// using the classic h = h*31 + c recurrence with wrapping arithmetic.
func districtHash(district string) int32 {
	var h int32
	for _, c := range strings.ToLower(district) {
		h = (h << 5) - h + int32(c)
	}
	return h
}
