package telemetry

import (
	"sync"
	"time"
)

const (
	defaultWindowSize       = 1024
	defaultSatisfactionBase = 0.9
	satisfactionPriorWeight = 10
)

// RequestStats содержит агрегаты окна HTTP-запросов
type RequestStats struct {
	Count          int
	AvgResponseMs  float64
	ErrorRate      float64
	LastObservedAt time.Time
}

type requestSample struct {
	duration time.Duration
	failed   bool
}

// Recorder накапливает скользящее окно запросов и неявных оценок пользователей.
// Безопасен для конкурентного использования.
type Recorder struct {
	mu         sync.Mutex
	windowSize int

	requests     []requestSample
	nextRequest  int
	lastObserved time.Time

	feedback     []bool
	nextFeedback int
	baseline     float64
}

// NewRecorder создает recorder с окном windowSize (0 - значение по умолчанию)
func NewRecorder(windowSize int) *Recorder {
	if windowSize <= 0 {
		windowSize = defaultWindowSize
	}
	return &Recorder{
		windowSize: windowSize,
		requests:   make([]requestSample, 0, windowSize),
		feedback:   make([]bool, 0, windowSize),
		baseline:   defaultSatisfactionBase,
	}
}

// RecordRequest добавляет запрос в окно. Ответы 5xx считаются ошибками.
func (r *Recorder) RecordRequest(duration time.Duration, status int) {
	sample := requestSample{duration: duration, failed: status >= 500}

	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.requests) < r.windowSize {
		r.requests = append(r.requests, sample)
	} else {
		r.requests[r.nextRequest] = sample
		r.nextRequest = (r.nextRequest + 1) % r.windowSize
	}
	r.lastObserved = time.Now()
}

// RecordFeedback добавляет неявную оценку пользователя
func (r *Recorder) RecordFeedback(positive bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.feedback) < r.windowSize {
		r.feedback = append(r.feedback, positive)
	} else {
		r.feedback[r.nextFeedback] = positive
		r.nextFeedback = (r.nextFeedback + 1) % r.windowSize
	}
}

// Requests возвращает агрегаты текущего окна запросов
func (r *Recorder) Requests() RequestStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := RequestStats{Count: len(r.requests), LastObservedAt: r.lastObserved}
	if stats.Count == 0 {
		return stats
	}

	var total time.Duration
	var failed int
	for _, s := range r.requests {
		total += s.duration
		if s.failed {
			failed++
		}
	}

	stats.AvgResponseMs = float64(total) / float64(stats.Count) / float64(time.Millisecond)
	stats.ErrorRate = float64(failed) / float64(stats.Count)
	return stats
}

// Satisfaction возвращает долю положительных оценок, сглаженную к базовому значению
func (r *Recorder) Satisfaction() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	var positive int
	for _, p := range r.feedback {
		if p {
			positive++
		}
	}

	prior := r.baseline * satisfactionPriorWeight
	return (float64(positive) + prior) / (float64(len(r.feedback)) + satisfactionPriorWeight)
}
