// Package app wires the StockPulse server together and runs it.
//
// New builds every component from a loaded configuration:
//
//	1. OpenTelemetry providers and the business metrics
//	2. The schema registry, from processing.schema_file or the built-in schema
//	3. The dataset store selected by storage.driver
//	4. The websocket hub, the operation manager and the job queue
//	5. The upload, dataset and health services
//	6. The chi router and the HTTP server
//
// Run starts the hub and the queue worker, serves HTTP and runs the janitor
// under one errgroup. SIGINT, SIGTERM, a cancelled context or a server error
// stop all of them; Stop then drains the server, the queue, the hub, the
// store and the telemetry providers in that order.
package app
