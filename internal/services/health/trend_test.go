package health

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func result(healthy bool, responseTime time.Duration) Result {
	return Result{Healthy: healthy, ResponseTime: responseTime}
}

func TestTrend_EvictsOldestWhenFull(t *testing.T) {
	// Arrange
	tr := newTrend(3)
	tr.add(result(false, 0))
	tr.add(result(true, 0))
	tr.add(result(true, 0))

	// Act: the failing result at the head falls out of the window.
	tr.add(result(true, 0))

	// Assert
	snapshot := tr.snapshot(true)
	assert.Equal(t, 3, snapshot.SampleCount)
	assert.Equal(t, 1.0, snapshot.SuccessRate)
}

func TestTrend_SuccessRate(t *testing.T) {
	// Arrange
	tr := newTrend(10)
	tr.add(result(true, 0))
	tr.add(result(false, 0))
	tr.add(result(true, 0))
	tr.add(result(false, 0))

	// Act + Assert
	assert.InDelta(t, 0.5, tr.successRate(), 0.001)
}

func TestTrend_EmptyWindow(t *testing.T) {
	// Arrange
	tr := newTrend(5)

	// Act + Assert
	assert.Equal(t, 0.0, tr.successRate())
	assert.Equal(t, time.Duration(0), tr.averageResponseTime())
	assert.Equal(t, DirectionStable, tr.direction())
}

func TestTrend_AverageResponseTime(t *testing.T) {
	// Arrange
	tr := newTrend(10)
	tr.add(result(true, 10*time.Millisecond))
	tr.add(result(true, 30*time.Millisecond))

	// Act + Assert
	assert.Equal(t, 20*time.Millisecond, tr.averageResponseTime())
}

func TestTrend_DirectionDeclining(t *testing.T) {
	// Arrange: older half all successes, newer half all failures.
	tr := newTrend(10)
	for i := 0; i < 4; i++ {
		tr.add(result(true, 0))
	}
	for i := 0; i < 4; i++ {
		tr.add(result(false, 0))
	}

	// Act + Assert
	assert.Equal(t, DirectionDeclining, tr.direction())
}

func TestTrend_DirectionImproving(t *testing.T) {
	// Arrange
	tr := newTrend(10)
	for i := 0; i < 4; i++ {
		tr.add(result(false, 0))
	}
	for i := 0; i < 4; i++ {
		tr.add(result(true, 0))
	}

	// Act + Assert
	assert.Equal(t, DirectionImproving, tr.direction())
}

func TestTrend_DirectionStableWithFewSamples(t *testing.T) {
	// Arrange
	tr := newTrend(10)
	tr.add(result(true, 0))
	tr.add(result(false, 0))
	tr.add(result(false, 0))

	// Act + Assert: fewer than four samples never classifies a direction.
	assert.Equal(t, DirectionStable, tr.direction())
}

func TestTrend_SnapshotOmitsResultsByDefault(t *testing.T) {
	// Arrange
	tr := newTrend(5)
	tr.add(result(true, 0))

	// Act
	bare := tr.snapshot(false)
	full := tr.snapshot(true)

	// Assert
	assert.Nil(t, bare.Results)
	assert.Len(t, full.Results, 1)
	assert.Equal(t, 5, bare.WindowSize)
}
