package record

import (
	"strconv"
	"strings"
	"time"
)

// NoData is the sentinel substituted for any field that is missing or malformed.
const NoData = "Tidak ada data"

// DisplayLayout is the rendering of extracted timestamps (DD/MM/YYYY HH:MM).
const DisplayLayout = "02/01/2006 15:04"

// Accepted start-timestamp layouts, tried in order. Layouts without an offset
// are wall-clock times and are read in the display location as is.
var dateLayouts = []struct {
	layout    string
	hasOffset bool
}{
	{time.RFC3339Nano, true},
	{"2006-01-02T15:04Z07:00", true},
	{"2006-01-02T15:04:05.999999999", false},
	{"2006-01-02T15:04", false},
	{"2006-01-02 15:04:05", false},
	{"2006-01-02", false},
}

// Text returns the first fragment's plain text, or def when the list is empty
// or the first fragment carries no plain text.
func Text(frags []TextFragment, def string) string {
	if len(frags) == 0 || frags[0].PlainText == nil {
		return def
	}
	return *frags[0].PlainText
}

// PropertyText extracts text from a title or rich_text property.
// The populated list is chosen by the property kind; title wins when the kind is unknown.
func PropertyText(p Property, def string) string {
	switch p.Kind {
	case KindRichText:
		return Text(p.RichText, def)
	case KindTitle:
		return Text(p.Title, def)
	}
	if p.Title != nil {
		return Text(p.Title, def)
	}
	return Text(p.RichText, def)
}

// FormulaValue returns the formula result as text.
//
// Variants are inspected in fixed priority: string, number, boolean, date
// (its raw start value). The first present variant wins.
func FormulaValue(p Property, def string) string {
	f := p.Formula
	if f == nil {
		return def
	}
	switch {
	case f.String != nil:
		return *f.String
	case f.Number != nil:
		return strconv.FormatFloat(*f.Number, 'f', -1, 64)
	case f.Boolean != nil:
		if *f.Boolean {
			return "True"
		}
		return "False"
	case f.Date != nil && f.Date.Start != nil:
		return *f.Date.Start
	}
	return def
}

// DateValueText parses the date property's start timestamp and renders it with
// DisplayLayout. When loc is non-nil, a timestamp carrying an offset is
// converted to loc; one without an offset is already local wall time and is
// never shifted. Failures yield def.
func DateValueText(p Property, loc *time.Location, def string) string {
	if p.Date == nil || p.Date.Start == nil {
		return def
	}
	t, ok := ParseTimestampIn(*p.Date.Start, loc)
	if !ok {
		return def
	}
	return t.Format(DisplayLayout)
}

// ParseTimestamp parses an ISO-8601 timestamp in any of the accepted layouts.
// Timestamps without an offset are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	return ParseTimestampIn(raw, nil)
}

// ParseTimestampIn is ParseTimestamp with a display location: offset-less
// timestamps are read in loc, offset-bearing ones are converted to it.
func ParseTimestampIn(raw string, loc *time.Location) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, l := range dateLayouts {
		if l.hasOffset {
			t, err := time.Parse(l.layout, s)
			if err != nil {
				continue
			}
			if loc != nil {
				t = t.In(loc)
			}
			return t, true
		}
		in := loc
		if in == nil {
			in = time.UTC
		}
		if t, err := time.ParseInLocation(l.layout, s, in); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// HasTarget reports whether a resolved delivery address can be used.
func HasTarget(addr string) bool {
	a := strings.TrimSpace(addr)
	return a != "" && a != NoData
}
