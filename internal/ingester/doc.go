// Package ingester implements the transactional write path for xAPI
// statements.
//
// One ingestion is one unit of work: parse the raw statement, resolve the
// four dimension rows, insert the fact row, commit. The parse step runs
// before the transaction begins, so malformed input never touches the store.
// Resolution failures are accumulated across all four dimensions before the
// transaction rolls back, which keeps complete diagnostics in the operator
// log while guaranteeing the fact table only ever reflects fully-succeeded
// ingestions.
//
// Failures are loud for operators (structured error logs) and quiet for
// learners: callers surface a plain failure without blocking the learning
// experience on telemetry.
package ingester
