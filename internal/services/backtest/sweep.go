package backtest

import (
	"context"
	"sync"
	"time"

	"AssetRevest/internal/domain/service"
	"AssetRevest/pkg/config"
	applogger "AssetRevest/pkg/logger"
)

// Scenario is one independent run of a sweep. Indicator and stage parameters
// are baked into the stored series, so only decision and exit parameters of
// Strategy take effect here.
type Scenario struct {
	Name     string
	Strategy config.Strategy
	Start    time.Time
	End      time.Time
	Capital  float64
}

type SweepResult struct {
	Scenario string   `json:"scenario"`
	Result   *Result  `json:"result,omitempty"`
	Summary  *Summary `json:"summary,omitempty"`
	Err      error    `json:"-"`
}

// Sweep runs scenarios on up to workers goroutines. Each run owns its
// portfolio; the sources are only read. Results keep the input order.
func Sweep(ctx context.Context, bars service.BarSource, loader service.SnapshotLoader, u config.Universe, scenarios []Scenario, workers int, l *applogger.Logger) []SweepResult {
	if workers < 1 {
		workers = 1
	}
	out := make([]SweepResult, len(scenarios))
	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				sc := scenarios[i]
				sim := NewSimulator(bars, loader, u, sc.Strategy,
					WithLogger(applogger.OrNop(l).With(applogger.String("scenario", sc.Name))))
				res, err := sim.Run(ctx, sc.Start, sc.End, sc.Capital)
				out[i] = SweepResult{Scenario: sc.Name, Result: res, Err: err}
				if err == nil {
					sum := res.Summary()
					out[i].Summary = &sum
				}
			}
		}()
	}

loop:
	for i := range scenarios {
		select {
		case <-ctx.Done():
			for j := i; j < len(scenarios); j++ {
				out[j] = SweepResult{Scenario: scenarios[j].Name, Err: ctx.Err()}
			}
			break loop
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()
	return out
}
