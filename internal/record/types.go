package record

import (
	"bytes"
	"encoding/json"
)

// Record is one page returned by a database query. It is read-only once decoded.
type Record struct {
	ID         string              `json:"id"`
	Properties map[string]Property `json:"properties"`
}

// PropertyKind tags which variant of Property is populated.
type PropertyKind string

const (
	KindUnknown  PropertyKind = ""
	KindTitle    PropertyKind = "title"
	KindRichText PropertyKind = "rich_text"
	KindFormula  PropertyKind = "formula"
	KindDate     PropertyKind = "date"
)

// Property is a loosely-typed database property value.
//
// Only the variant named by Kind is meaningful. Decoding is lenient: a variant
// whose JSON has the wrong shape stays nil instead of failing the whole record.
type Property struct {
	Kind     PropertyKind
	Title    []TextFragment
	RichText []TextFragment
	Formula  *Formula
	Date     *DateValue
}

// TextFragment is one element of a title / rich_text array.
// PlainText is nil when the fragment has no usable plain_text.
type TextFragment struct {
	PlainText *string
}

// Formula is the result wrapper of a formula property. At most one variant is
// normally set, but the wrapper shape is uniform.
type Formula struct {
	String  *string
	Number  *float64
	Boolean *bool
	Date    *DateValue
}

// DateValue wraps a date object. Start is the raw ISO-8601 string.
type DateValue struct {
	Start *string
	End   *string
}

// UnmarshalJSON never fails because of the record's properties; bad properties
// decode to empty values.
func (r *Record) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID         string                     `json:"id"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		// Tolerate a non-object "properties" by retrying with just the id.
		var idOnly struct {
			ID string `json:"id"`
		}
		if err2 := json.Unmarshal(b, &idOnly); err2 != nil {
			return err
		}
		*r = Record{ID: idOnly.ID, Properties: map[string]Property{}}
		return nil
	}
	props := make(map[string]Property, len(raw.Properties))
	for name, pb := range raw.Properties {
		props[name] = decodeProperty(pb)
	}
	*r = Record{ID: raw.ID, Properties: props}
	return nil
}

// UnmarshalJSON decodes leniently and never returns an error.
func (p *Property) UnmarshalJSON(b []byte) error {
	*p = decodeProperty(b)
	return nil
}

func decodeProperty(b []byte) Property {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return Property{}
	}

	var p Property
	var typ string
	if t, ok := obj["type"]; ok {
		_ = json.Unmarshal(t, &typ)
	}
	p.Kind = PropertyKind(typ)

	if v, ok := obj["title"]; ok {
		p.Title = decodeFragments(v)
		if p.Kind == KindUnknown {
			p.Kind = KindTitle
		}
	}
	if v, ok := obj["rich_text"]; ok {
		p.RichText = decodeFragments(v)
		if p.Kind == KindUnknown {
			p.Kind = KindRichText
		}
	}
	if v, ok := obj["formula"]; ok {
		p.Formula = decodeFormula(v)
		if p.Kind == KindUnknown {
			p.Kind = KindFormula
		}
	}
	if v, ok := obj["date"]; ok {
		p.Date = decodeDate(v)
		if p.Kind == KindUnknown {
			p.Kind = KindDate
		}
	}
	return p
}

func decodeFragments(b []byte) []TextFragment {
	var items []json.RawMessage
	if err := json.Unmarshal(b, &items); err != nil {
		return nil
	}
	out := make([]TextFragment, 0, len(items))
	for _, it := range items {
		var f struct {
			PlainText *string `json:"plain_text"`
		}
		if err := json.Unmarshal(it, &f); err != nil {
			out = append(out, TextFragment{})
			continue
		}
		out = append(out, TextFragment{PlainText: f.PlainText})
	}
	return out
}

func decodeFormula(b []byte) *Formula {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return nil
	}
	f := &Formula{}
	if v, ok := obj["string"]; ok && !isNull(v) {
		var s string
		if json.Unmarshal(v, &s) == nil {
			f.String = &s
		}
	}
	if v, ok := obj["number"]; ok && !isNull(v) {
		var n float64
		if json.Unmarshal(v, &n) == nil {
			f.Number = &n
		}
	}
	if v, ok := obj["boolean"]; ok && !isNull(v) {
		var bl bool
		if json.Unmarshal(v, &bl) == nil {
			f.Boolean = &bl
		}
	}
	if v, ok := obj["date"]; ok {
		f.Date = decodeDate(v)
	}
	return f
}

func decodeDate(b []byte) *DateValue {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(b, &obj); err != nil || obj == nil {
		return nil
	}
	d := &DateValue{}
	if v, ok := obj["start"]; ok && !isNull(v) {
		var s string
		if json.Unmarshal(v, &s) == nil {
			d.Start = &s
		}
	}
	if v, ok := obj["end"]; ok && !isNull(v) {
		var s string
		if json.Unmarshal(v, &s) == nil {
			d.End = &s
		}
	}
	return d
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}
