// Package http implements the HTTP handlers of the StockPulse web service.
// Handlers are a thin layer over the services package: they parse and
// validate the request, call one service method and render the result.
//
// # Endpoints
//
//	POST   /api/uploads                      multipart "file" + "category", 202 with job_id
//	GET    /api/uploads                      list upload jobs
//	GET    /api/uploads/{id}                 poll one upload job
//	DELETE /api/uploads/{id}                 cancel a queued or running job
//	GET    /api/datasets/{category}/active   active dataset of a category
//	GET    /api/datasets/{category}/history  dataset history, newest first
//	GET    /api/metrics                      combined inventory and OSR metrics
//	GET    /api/metrics/{category}           metrics of one category
//	GET    /api/schema/{category}            effective schema of a category
//	GET    /api/operations                   ingestion runs in flight
//	GET    /api/operations/{id}              one run with its stage states
//	GET    /api/health                       liveness
//	GET    /api/health/ready                 readiness, 503 when a dependency is down
//
// # Error Handling
//
// Service errors are mapped to API errors by apiError and written as
// RFC 7807 problem documents by the shared ErrorHandler:
//
//	{
//	    "type": "/errors/upload/size",
//	    "title": "File Too Large",
//	    "status": 413,
//	    "detail": "file size 12.0MB exceeds the 10.0MB limit",
//	    "instance": "/api/uploads",
//	    "trace_id": "..."
//	}
package http
