package health

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/taskvault/storage-service/internal/core/storage"
	"github.com/taskvault/storage-service/internal/domain/models"
)

// Strategy names.
const (
	StrategyPing          = "ping"
	StrategyRead          = "read"
	StrategyWrite         = "write"
	StrategyComprehensive = "comprehensive"
)

// StrategyResult is the raw outcome of one probe method.
type StrategyResult struct {
	Healthy      bool
	Error        string
	Details      map[string]interface{}
	ResponseTime time.Duration
}

// Strategy is one method of checking adapter liveness.
type Strategy interface {
	// Name returns the strategy identifier.
	Name() string
	// Check probes the adapter.
	Check(ctx context.Context, adapter storage.Adapter) StrategyResult
}

// strategies returns the built-in strategy set keyed by name.
func strategies() map[string]Strategy {
	return map[string]Strategy{
		StrategyPing:          pingStrategy{},
		StrategyRead:          readStrategy{},
		StrategyWrite:         writeStrategy{},
		StrategyComprehensive: comprehensiveStrategy{},
	}
}

// pingStrategy delegates to the adapter's own health probe.
type pingStrategy struct{}

func (pingStrategy) Name() string { return StrategyPing }

func (pingStrategy) Check(ctx context.Context, adapter storage.Adapter) StrategyResult {
	start := time.Now()
	result := adapter.HealthCheck(ctx)
	return StrategyResult{
		Healthy:      result.Healthy,
		Error:        result.Error,
		Details:      result.Details,
		ResponseTime: time.Since(start),
	}
}

// readStrategy verifies the adapter can serve a read.
type readStrategy struct{}

func (readStrategy) Name() string { return StrategyRead }

func (readStrategy) Check(ctx context.Context, adapter storage.Adapter) StrategyResult {
	start := time.Now()
	stats, err := adapter.Stats(ctx)
	elapsed := time.Since(start)
	if err != nil {
		return StrategyResult{
			Healthy:      false,
			Error:        fmt.Sprintf("read probe failed: %v", err),
			ResponseTime: elapsed,
		}
	}
	return StrategyResult{
		Healthy: true,
		Details: map[string]interface{}{
			"itemCount": stats.ItemCount,
		},
		ResponseTime: elapsed,
	}
}

// writeStrategy verifies the adapter can accept a write by creating and
// deleting a probe record.
type writeStrategy struct{}

func (writeStrategy) Name() string { return StrategyWrite }

func (writeStrategy) Check(ctx context.Context, adapter storage.Adapter) StrategyResult {
	start := time.Now()
	probe := models.NewTask("health-probe-"+uuid.NewString(), "health probe")
	if _, err := adapter.Create(ctx, probe); err != nil {
		return StrategyResult{
			Healthy:      false,
			Error:        fmt.Sprintf("write probe failed: %v", err),
			ResponseTime: time.Since(start),
		}
	}
	if _, err := adapter.Delete(ctx, probe.ID); err != nil {
		return StrategyResult{
			Healthy:      false,
			Error:        fmt.Sprintf("write probe cleanup failed: %v", err),
			ResponseTime: time.Since(start),
		}
	}
	return StrategyResult{
		Healthy:      true,
		ResponseTime: time.Since(start),
	}
}

// comprehensiveStrategy runs ping, read, and write in sequence and fails on
// the first unhealthy step.
type comprehensiveStrategy struct{}

func (comprehensiveStrategy) Name() string { return StrategyComprehensive }

func (comprehensiveStrategy) Check(ctx context.Context, adapter storage.Adapter) StrategyResult {
	start := time.Now()
	steps := []Strategy{pingStrategy{}, readStrategy{}, writeStrategy{}}
	details := make(map[string]interface{}, len(steps))
	for _, step := range steps {
		result := step.Check(ctx, adapter)
		details[step.Name()] = result.Healthy
		if !result.Healthy {
			return StrategyResult{
				Healthy:      false,
				Error:        fmt.Sprintf("%s step failed: %s", step.Name(), result.Error),
				Details:      details,
				ResponseTime: time.Since(start),
			}
		}
	}
	return StrategyResult{
		Healthy:      true,
		Details:      details,
		ResponseTime: time.Since(start),
	}
}
