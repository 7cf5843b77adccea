package core

import (
	"net/http"
	"time"
)

// ResponseRecorder wraps the response of one request so the request log and
// the HTTP metrics can read the final status, size and latency.
type ResponseRecorder struct {
	http.ResponseWriter
	Status       int
	WroteHeader  bool
	BytesWritten int64
	StartTime    time.Time
}

// NewResponseRecorder starts recording w now. Status is 200 until the handler
// writes a header.
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, Status: http.StatusOK, StartTime: time.Now()}
}

// WriteHeader keeps the first status, later calls are dropped like net/http
// does.
func (r *ResponseRecorder) WriteHeader(status int) {
	if r.WroteHeader {
		return
	}
	r.Status = status
	r.WroteHeader = true
	r.ResponseWriter.WriteHeader(status)
}

func (r *ResponseRecorder) Write(b []byte) (int, error) {
	if !r.WroteHeader {
		r.WriteHeader(http.StatusOK)
	}
	n, err := r.ResponseWriter.Write(b)
	r.BytesWritten += int64(n)
	return n, err
}

func (r *ResponseRecorder) Duration() time.Duration {
	return time.Since(r.StartTime)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *ResponseRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
