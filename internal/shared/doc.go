// Package shared holds helpers used by more than one package's tests.
//
// The testutil subpackage provides a capturing slog handler so tests can
// assert on structured log output, and workbook fixtures that build small
// in-memory .xlsx files for the ingestion pipeline.
//
// Nothing here carries business logic, and production code must not
// import it.
package shared
