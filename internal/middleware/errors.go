package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	apperrors "stockpulse/internal/errors"
)

// writeProblem writes an RFC 7807 response for failures raised by the
// middleware itself, before any handler ran
func writeProblem(w http.ResponseWriter, r *http.Request, status int, problemType, title, detail string) {
	problem := apperrors.NewProblemDetails(status, problemType, title, detail, r.URL.Path)
	if reqID := middleware.GetReqID(r.Context()); reqID != "" {
		problem.WithExtension("trace_id", reqID)
	}
	render.Render(w, r, problem)
}

// MaxBodySize caps request bodies at limit bytes. Requests that announce a
// larger body are rejected with 413 up front; chunked bodies are cut off by
// http.MaxBytesReader when read.
func MaxBodySize(limit int64) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeProblem(w, r, http.StatusRequestEntityTooLarge, apperrors.TypePayloadTooLarge,
					"Payload Too Large", "The request body exceeds the maximum allowed size")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
