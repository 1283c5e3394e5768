// Package mcp exposes the statement store to MCP clients over stdio.
//
// Three tools are registered: ingest_statement feeds a raw xAPI statement
// through the same transactional pipeline as the HTTP boundary, get_report
// returns the joined fact/dimension rows, and get_content_types lists the
// external content-authoring catalog when its tables are present.
package mcp
