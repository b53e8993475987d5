package notice

import "net/url"

// Document maps canonical keys to the text extracted for them.
type Document map[Key]string

// Build classifies every chapter and stores its text. A key seen twice keeps
// the text of the later chapter.
func Build(body string, chapters []Chapter) Document {
	doc := make(Document, len(chapters))
	for _, c := range chapters {
		doc[Classify(c.Marker)] = c.Text(body)
	}
	return doc
}

// Parse segments body and builds its document. It reports false when body
// carries no section markers; such a body must be skipped, not delivered.
func Parse(body string) (Document, bool) {
	chapters, ok := Segment(body)
	if !ok {
		return nil, false
	}
	return Build(body, chapters), true
}

// Keys returns the keys present in d in marker table order, with KeyUnknown
// last.
func (d Document) Keys() []Key {
	keys := make([]Key, 0, len(d))
	for _, e := range markerTable {
		if _, ok := d[e.Key]; ok {
			keys = append(keys, e.Key)
		}
	}
	if _, ok := d[KeyUnknown]; ok {
		keys = append(keys, KeyUnknown)
	}
	return keys
}

// Form renders d as an HTTP form payload.
func (d Document) Form() url.Values {
	form := make(url.Values, len(d))
	for k, v := range d {
		form.Set(string(k), v)
	}
	return form
}

// Strings returns d with plain string keys, ready for JSON encoding.
func (d Document) Strings() map[string]string {
	out := make(map[string]string, len(d))
	for k, v := range d {
		out[string(k)] = v
	}
	return out
}
