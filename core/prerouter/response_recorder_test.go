package prerouter

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/keyward/keyward/core"
)

func TestRecorderMiddleware(t *testing.T) {
	middleware := NewRecorder(newTestApp(t, nil, nil, nil))

	var calls int
	finalHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		recorder, ok := w.(*core.ResponseRecorder)
		if !ok {
			t.Fatalf("expected *core.ResponseRecorder, got %T", w)
		}
		if recorder.Status != http.StatusOK {
			t.Errorf("expected default status %d, got %d", http.StatusOK, recorder.Status)
		}
		if time.Since(recorder.StartTime) > time.Second {
			t.Errorf("expected recent StartTime, got %v", recorder.StartTime)
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte("abc"))
		if recorder.Status != http.StatusAccepted || recorder.BytesWritten != 3 {
			t.Errorf("expected status 202 and 3 bytes recorded, got %d and %d", recorder.Status, recorder.BytesWritten)
		}
	})

	rr := httptest.NewRecorder()
	// a second Recorder reuses the first one
	middleware.Execute(middleware.Execute(finalHandler)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if rr.Code != http.StatusAccepted {
		t.Errorf("expected final status %d, got %d", http.StatusAccepted, rr.Code)
	}
}

func TestRecorderWriteHeaderOnce(t *testing.T) {
	rr := httptest.NewRecorder()
	rec := &core.ResponseRecorder{ResponseWriter: rr, Status: http.StatusOK}

	rec.Write([]byte("x"))
	rec.WriteHeader(http.StatusTeapot)

	if rec.Status != http.StatusOK {
		t.Errorf("expected implicit 200 to stick, got %d", rec.Status)
	}
	if rec.Unwrap() != rr {
		t.Error("expected Unwrap to return the wrapped writer")
	}
}
