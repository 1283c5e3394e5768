package types

import (
	"bytes"
	"encoding/json"
	"strings"
)

// FieldKind identifies the shape of an xAPI leaf value.
type FieldKind int

const (
	// FieldAbsent marks a value that is missing or JSON null
	FieldAbsent FieldKind = iota
	// FieldScalar marks a string, number, or boolean value
	FieldScalar
	// FieldList marks a JSON array value
	FieldList
	// FieldObject marks a plain JSON object value
	FieldObject
	// FieldLangMap marks a JSON object interpreted as a language map
	FieldLangMap
)

// Field is a tagged variant over the shapes an xAPI leaf value can take.
// Classification happens once, at parse time; storage shaping dispatches on
// the tag instead of re-inspecting runtime types.
type Field struct {
	kind  FieldKind
	text  string            // scalar text form
	raw   []byte            // serialized list/object form
	langs map[string]string // language map entries
}

// FieldOf classifies a raw JSON value. langMap marks values that the xAPI
// schema defines as language maps (verb display, activity name/description).
func FieldOf(raw json.RawMessage, langMap bool) Field {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Field{kind: FieldAbsent}
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return Field{kind: FieldAbsent}
		}
		return Field{kind: FieldScalar, text: s}
	case '[':
		return Field{kind: FieldList, raw: trimmed}
	case '{':
		if langMap {
			var m map[string]string
			if err := json.Unmarshal(trimmed, &m); err == nil {
				return Field{kind: FieldLangMap, langs: m}
			}
		}
		return Field{kind: FieldObject, raw: trimmed}
	default:
		// Number or boolean literal; the JSON token is its own text form
		return Field{kind: FieldScalar, text: string(trimmed)}
	}
}

// Kind returns the variant tag.
func (f Field) Kind() FieldKind {
	return f.kind
}

// IsAbsent reports whether the value was missing or null.
func (f Field) IsAbsent() bool {
	return f.kind == FieldAbsent
}

// Text shapes the value into its stored text form:
//   - absent values stay nil (stored as SQL NULL)
//   - scalars keep their literal text
//   - lists and plain objects keep their JSON-serialized form
//   - language maps resolve to the entry at the hyphen-normalized locale,
//     falling back to en-US, falling back to nil
func (f Field) Text(locale string) *string {
	switch f.kind {
	case FieldScalar:
		s := f.text
		return &s
	case FieldList:
		s := string(f.raw)
		return &s
	case FieldObject:
		s := string(f.raw)
		if s == "null" {
			s = ""
		}
		return &s
	case FieldLangMap:
		loc := strings.ReplaceAll(locale, "_", "-")
		if v, ok := f.langs[loc]; ok {
			return &v
		}
		if v, ok := f.langs["en-US"]; ok {
			return &v
		}
		return nil
	default:
		return nil
	}
}
