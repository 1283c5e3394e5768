// Package types defines the shared data types for the xAPI ingestion
// pipeline.
//
// A raw xAPI statement decomposes into four dimension records:
//
//   - Actor: who performed the activity (natural key: inverse functional
//     identifier)
//   - Verb: what they did (natural key: verb URI)
//   - Object: the learning activity (composite natural key over id and
//     interaction definition)
//   - Result: the outcome (composite natural key over all six fields)
//
// Field is a tagged variant covering the shapes an xAPI leaf value can take
// (absent, scalar, list, plain object, language map) and carries the shaping
// rules that turn a value into its stored text form.
//
// Pipeline errors (ErrMalformedStatement, ErrResolutionFailed, ErrWriteFailed,
// ErrSchema) are sentinel values intended for errors.Is checks across package
// boundaries.
package types
