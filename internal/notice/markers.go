// Package notice turns Circle Square notification bodies into flat
// key/value documents.
package notice

import "strings"

// Glyph opens every section marker line.
const Glyph = "■"

// Key is a canonical document field.
type Key string

const (
	KeyName         Key = "event_name"
	KeyDate         Key = "event_date"
	KeyPlace        Key = "event_place"
	KeyMeetingDate  Key = "event_meetingDate"
	KeyMeetingPlace Key = "event_meetingPlace"
	KeyExplanation  Key = "event_explanation"
	KeyRSVPDeadline Key = "event_RSVPDeadline"
	KeyPageURL      Key = "event_pageUrl"
	KeyFacebook     Key = "event_facebook"
	KeyTwitter      Key = "event_twitter"
	KeyBlog         Key = "event_blog"
	KeySupport      Key = "event_support"

	// KeyUnknown receives sections whose marker is not in the table.
	KeyUnknown Key = "event_unknown"
)

// MarkerEntry binds a canonical key to the marker that introduces it.
type MarkerEntry struct {
	Key    Key
	Marker string
}

// markerTable is the classification precedence list. Order matters only for
// a line that does not open with a marker but embeds several.
var markerTable = []MarkerEntry{
	{KeyName, "■イベント名"},
	{KeyDate, "■日時"},
	{KeyPlace, "■場所"},
	{KeyMeetingDate, "■集合日時"},
	{KeyMeetingPlace, "■集合場所"},
	{KeyExplanation, "■説明"},
	{KeyRSVPDeadline, "■出欠期限"},
	{KeyPageURL, "■イベントページ"},
	{KeyFacebook, "■Facebook"},
	{KeyTwitter, "■Twitter"},
	{KeyBlog, "■公式ブログ"},
	{KeySupport, "■お問い合わせ"},
}

// Entries returns a copy of the marker table in precedence order.
func Entries() []MarkerEntry {
	out := make([]MarkerEntry, len(markerTable))
	copy(out, markerTable)
	return out
}

// leadingMarker returns the entry whose marker opens line. No marker is a
// prefix of another, but the longest match is taken regardless.
func leadingMarker(line string) (MarkerEntry, bool) {
	var best MarkerEntry
	found := false
	for _, e := range markerTable {
		if strings.HasPrefix(line, e.Marker) && len(e.Marker) > len(best.Marker) {
			best, found = e, true
		}
	}
	return best, found
}
