// Package dataprocessing turns uploaded spreadsheet workbooks into typed,
// schema-conformant sheets.
//
// # Pipeline
//
// A run moves through four components, each driven by a schema.SchemaConfig:
//
//  1. CheckUpload and WorkbookReader: extension and size checks, then
//     decoding with excelize into raw cell text.
//  2. WorkbookValidator: matches worksheet names to sheet schemas by
//     canonical name or alias, ignoring case.
//  3. ColumnMapper: resolves the header row of each matched sheet.
//  4. SheetProcessor with RowCoercer: coerces each mapped cell to its
//     declared type and applies the column rules.
//
// Structural failures (size, format, sheets, columns) are returned as
// *errors.ProcessingError and abort the run. Cell failures are recorded as
// warnings and only the offending field is dropped from its row.
//
// # Usage
//
//	reader := dataprocessing.NewWorkbookReader(logger)
//	wb, err := reader.Read(ctx, upload.Content)
//	if err != nil {
//	    return err
//	}
//	matches, warnings, err := dataprocessing.NewWorkbookValidator(logger).
//	    Validate(ctx, wb.SheetNames(), cfg)
//	if err != nil {
//	    return err
//	}
//	sheets, more, err := dataprocessing.NewSheetProcessor(cfg, logger).
//	    ProcessMatched(ctx, wb, matches, nil)
//
// Conversions accept the forms common in exported reports: "1,234.56",
// "$1,000", "(50)", Excel serial dates and ISO dates.
package dataprocessing
