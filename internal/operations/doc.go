// Package operations runs the ingestion pipeline for uploaded workbooks.
//
// An upload passes through four stages, executed one after another:
//
//   - reading: size and extension checks, workbook open
//   - parsing: every worksheet decoded into cell text
//   - validating: sheet names matched against the category's schema
//   - processing: header detection, column mapping, coercion, normalization
//
// Core Components:
//
// Manager: runs the registered stages in dependency order under one
// whole-run timeout taken from the schema. A failing stage ends the run and
// nothing is retried. Every run yields a ProcessingResult, successful or not.
//
// Registry: holds the stages and orders them topologically.
//
// ProgressChannel: turns stage-relative progress into monotonic percentages
// (reading 0-10, parsing 10-40, validating 40-50, processing 50-95,
// complete 100). Events that would move backwards are dropped.
//
// StatusBroadcaster: keeps a snapshot per operation and pushes it to
// websocket clients as "operation:snapshot" messages.
//
// JobQueue: a single worker fed by a bounded buffer. Uploads beyond the
// buffer are rejected with ErrQueueFull instead of waiting.
//
// Example usage:
//
//	manager, err := operations.NewManager(hub, nil, schemas, operations.NewConfig(), logger)
//	if err != nil {
//		return err
//	}
//	queue := operations.NewJobQueue(4, operations.NewMemoryJobStore(), manager, logger)
//	queue.SetResultSink(uploadService)
//	queue.Start(ctx)
//
//	job, err := queue.Enqueue(ctx, dataprocessing.Upload{
//		FileName: "stock.xlsx",
//		Category: domain.CategoryInventory,
//		Content:  data,
//	})
//
// The CLI calls Manager.Execute directly and waits for the response.
package operations
