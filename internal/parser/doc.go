// Package parser decodes raw xAPI statements into the typed dimension
// records the storage layer persists.
//
// Parsing is a pure transform. The parser applies the field-shaping rules
// defined by types.Field (scalars kept as-is, lists and objects serialized to
// JSON text, language maps resolved against the configured locale) and fails
// fast with types.ErrMalformedStatement when the payload is not decodable or
// lacks the required actor, verb, or object fields.
package parser
