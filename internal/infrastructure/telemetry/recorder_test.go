package telemetry

import (
	"math"
	"net/http"
	"sync"
	"testing"
	"time"
)

func TestRecorderRequestWindow(t *testing.T) {
	r := NewRecorder(4)

	if stats := r.Requests(); stats.Count != 0 || stats.AvgResponseMs != 0 || stats.ErrorRate != 0 {
		t.Fatalf("empty window should be zero, got %+v", stats)
	}

	r.RecordRequest(100*time.Millisecond, http.StatusOK)
	r.RecordRequest(300*time.Millisecond, http.StatusInternalServerError)

	stats := r.Requests()
	if stats.Count != 2 || stats.AvgResponseMs != 200 || stats.ErrorRate != 0.5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	// Окно вытесняет старые значения
	for i := 0; i < 4; i++ {
		r.RecordRequest(10*time.Millisecond, http.StatusNotFound)
	}
	stats = r.Requests()
	if stats.Count != 4 || stats.AvgResponseMs != 10 || stats.ErrorRate != 0 {
		t.Fatalf("unexpected stats after rotation: %+v", stats)
	}
}

func TestRecorderSatisfaction(t *testing.T) {
	r := NewRecorder(0)
	if got := r.Satisfaction(); math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("baseline satisfaction = %v, want 0.9", got)
	}

	for i := 0; i < 10; i++ {
		r.RecordFeedback(false)
	}
	if got := r.Satisfaction(); math.Abs(got-0.45) > 1e-9 {
		t.Fatalf("satisfaction = %v, want 0.45", got)
	}
}

func TestRecorderConcurrent(t *testing.T) {
	r := NewRecorder(64)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.RecordRequest(time.Millisecond, http.StatusOK)
				r.RecordFeedback(j%2 == 0)
				_ = r.Requests()
			}
		}()
	}
	wg.Wait()

	if r.Requests().Count != 64 {
		t.Errorf("window should be full")
	}
}
