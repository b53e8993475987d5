package notice

import "strings"

// Classify returns the key of the marker that opens markerLine. A line that
// opens with no known marker falls back to the first table entry whose
// marker occurs anywhere in it, and then to KeyUnknown. Text after the
// leading marker never changes the result.
func Classify(markerLine string) Key {
	if e, ok := leadingMarker(markerLine); ok {
		return e.Key
	}
	for _, e := range markerTable {
		if strings.Contains(markerLine, e.Marker) {
			return e.Key
		}
	}
	return KeyUnknown
}

// ClassifyValue is Classify for loosely typed input such as decoded JSON.
// Anything that is not a string resolves to KeyUnknown.
func ClassifyValue(v any) Key {
	s, ok := v.(string)
	if !ok {
		return KeyUnknown
	}
	return Classify(s)
}
