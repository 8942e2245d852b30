// Package icon owns the weather icon catalog and the lifetime of the one
// icon bitmap the face displays.
package icon

// catalog is ordered; the companion sends indexes into it.
var catalog = [...]string{
	"01d", "01n", "02d", "02n", "03d", "03n", "04d", "04n", "09d",
	"09n", "10d", "10n", "11d", "11n", "13d", "13n", "50d", "50n",
}

// Count is the number of icons in the catalog.
const Count = len(catalog)

// Valid reports whether index resolves to a catalog entry.
func Valid(index int32) bool {
	return index >= 0 && int(index) < Count
}

// Code returns the weather condition code of a catalog entry ("10n").
func Code(index int) string {
	return catalog[index]
}

// IndexOf returns the catalog index for a weather condition code, or -1.
func IndexOf(code string) int32 {
	for i, c := range catalog {
		if c == code {
			return int32(i)
		}
	}
	return -1
}
