package notice

import (
	"strings"
	"unicode"
)

// Chapter is the span of a body attributed to one marker occurrence.
type Chapter struct {
	Marker string // marker line as captured, terminator included
	Offset int    // byte offset of the marker line
	Start  int    // first byte of the chapter text
	End    int    // one past the last byte of the chapter text
}

// Text returns the chapter text of body. Offsets outside body are clamped.
func (c Chapter) Text(body string) string {
	start := min(max(c.Start, 0), len(body))
	end := min(max(c.End, start), len(body))
	return body[start:end]
}

type markerLine struct {
	offset   int
	labelEnd int
	lineEnd  int // before the terminator
	next     int // after the terminator
}

// Segment splits body into chapters, one per marker line, in document order.
// It reports false when body has no marker line at all.
//
// Text following the label on a marker line belongs to that chapter,
// separators such as "：" included; a marker line with nothing after its
// label starts its chapter on the next line. A
// line terminator directly before the next marker is dropped when it only
// separates sections (it closes a blank line, or the chapter holds nothing
// else).
func Segment(body string) ([]Chapter, bool) {
	lines := scanMarkers(body)
	if len(lines) == 0 {
		return nil, false
	}

	chapters := make([]Chapter, 0, len(lines))
	for i, m := range lines {
		start := m.labelEnd
		if strings.TrimSpace(body[m.labelEnd:m.lineEnd]) == "" {
			start = m.next
		}
		end := len(body)
		if i+1 < len(lines) {
			end = trimSeparator(body, start, lines[i+1].offset)
		}
		if end < start {
			end = start
		}
		chapters = append(chapters, Chapter{
			Marker: body[m.offset:m.next],
			Offset: m.offset,
			Start:  start,
			End:    end,
		})
	}
	return chapters, true
}

// scanMarkers finds every line that begins with the marker glyph. Lines end at
// "\r\n", "\n" or "\r".
func scanMarkers(body string) []markerLine {
	var out []markerLine
	for pos := 0; pos < len(body); {
		end, next := lineBounds(body, pos)
		if strings.HasPrefix(body[pos:end], Glyph) {
			out = append(out, markerLine{
				offset:   pos,
				labelEnd: labelEnd(body, pos, end),
				lineEnd:  end,
				next:     next,
			})
		}
		pos = next
	}
	return out
}

func lineBounds(body string, pos int) (end, next int) {
	i := strings.IndexAny(body[pos:], "\r\n")
	if i < 0 {
		return len(body), len(body)
	}
	end = pos + i
	if body[end] == '\r' && end+1 < len(body) && body[end+1] == '\n' {
		return end, end + 2
	}
	return end, end + 1
}

// labelEnd is the end of the table marker that opens the line. For a marker
// not in the table it is the end of the glyph plus the run of non-space
// characters after it.
func labelEnd(body string, start, end int) int {
	if e, ok := leadingMarker(body[start:end]); ok {
		return start + len(e.Marker)
	}
	i := strings.IndexFunc(body[start:end], unicode.IsSpace)
	if i < 0 {
		return end
	}
	return start + i
}

func trimSeparator(body string, start, end int) int {
	n := terminatorBefore(body, start, end)
	if n == 0 {
		return end
	}
	if end-n == start || terminatorBefore(body, start, end-n) > 0 {
		return end - n
	}
	return end
}

// terminatorBefore returns the width of the line terminator ending
// body[start:end], or 0.
func terminatorBefore(body string, start, end int) int {
	switch {
	case end-start >= 2 && body[end-2:end] == "\r\n":
		return 2
	case end > start && (body[end-1] == '\n' || body[end-1] == '\r'):
		return 1
	}
	return 0
}
