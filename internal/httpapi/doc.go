// Package httpapi exposes the ingestion and reporting boundary over HTTP.
//
// POST /statements accepts a single field named xapi, either as a form value
// or a JSON body, and answers 204 on success. Malformed statements get 400;
// storage failures get 500 with an opaque body, with the details in the
// operator log. GET /statements, /columns, and /content-types serve the
// reporting reads.
package httpapi
