package health

import (
	"time"
)

// Direction classifies how the trend window is moving.
type Direction string

const (
	// DirectionImproving means the newer half of the window succeeds more
	// often than the older half.
	DirectionImproving Direction = "improving"
	// DirectionDeclining means the newer half succeeds less often.
	DirectionDeclining Direction = "declining"
	// DirectionStable means no meaningful change across the window.
	DirectionStable Direction = "stable"
)

// TrendSnapshot is a read-only copy of the trend's aggregates.
type TrendSnapshot struct {
	WindowSize          int           `json:"windowSize"`
	SampleCount         int           `json:"sampleCount"`
	SuccessRate         float64       `json:"successRate"`
	AverageResponseTime time.Duration `json:"averageResponseTimeMs"`
	Direction           Direction     `json:"direction"`
	Results             []Result      `json:"results,omitempty"`
}

// trend is a bounded FIFO window of recent health results with computed
// aggregates. It is owned by the monitor and mutated only inside its mutex.
type trend struct {
	capacity int
	results  []Result
}

func newTrend(capacity int) *trend {
	return &trend{
		capacity: capacity,
		results:  make([]Result, 0, capacity),
	}
}

// add appends a result, evicting the oldest entry when the window is full.
func (t *trend) add(result Result) {
	if len(t.results) == t.capacity {
		t.results = t.results[1:]
	}
	t.results = append(t.results, result)
}

// successRate returns the fraction of successful results in the window.
func (t *trend) successRate() float64 {
	if len(t.results) == 0 {
		return 0
	}
	successes := 0
	for _, r := range t.results {
		if r.Healthy {
			successes++
		}
	}
	return float64(successes) / float64(len(t.results))
}

// averageResponseTime returns the mean probe duration across the window.
func (t *trend) averageResponseTime() time.Duration {
	if len(t.results) == 0 {
		return 0
	}
	var total time.Duration
	for _, r := range t.results {
		total += r.ResponseTime
	}
	return total / time.Duration(len(t.results))
}

// direction compares the success rate of the older half of the window with
// the newer half. Fewer than four samples is always stable.
func (t *trend) direction() Direction {
	n := len(t.results)
	if n < 4 {
		return DirectionStable
	}
	mid := n / 2
	older := rate(t.results[:mid])
	newer := rate(t.results[mid:])
	const epsilon = 0.05
	switch {
	case newer > older+epsilon:
		return DirectionImproving
	case newer < older-epsilon:
		return DirectionDeclining
	default:
		return DirectionStable
	}
}

// snapshot copies the window and its aggregates.
func (t *trend) snapshot(includeResults bool) TrendSnapshot {
	s := TrendSnapshot{
		WindowSize:          t.capacity,
		SampleCount:         len(t.results),
		SuccessRate:         t.successRate(),
		AverageResponseTime: t.averageResponseTime(),
		Direction:           t.direction(),
	}
	if includeResults {
		s.Results = append([]Result(nil), t.results...)
	}
	return s
}

func rate(results []Result) float64 {
	if len(results) == 0 {
		return 0
	}
	successes := 0
	for _, r := range results {
		if r.Healthy {
			successes++
		}
	}
	return float64(successes) / float64(len(results))
}
