package scoring

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/brainnova/brainnova-score/internal/metrics"
	"github.com/brainnova/brainnova-score/internal/store"
)

// Engine recomputes the Brainnova Score from primary data.
type Engine struct {
	store   store.Store
	policy  Policy
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewEngine creates an Engine. An empty policy means PolicyZero.
func NewEngine(s store.Store, policy Policy, m *metrics.Metrics, logger *slog.Logger) *Engine {
	if policy == "" {
		policy = PolicyZero
	}
	return &Engine{store: s, policy: policy, metrics: m, logger: logger}
}

// Compute fetches the observations and the hierarchy for req and aggregates
// them. It returns ErrNoDataForFilters when nothing usable matched.
func (e *Engine) Compute(ctx context.Context, req Request) (*ScoreResult, error) {
	req = req.Normalized()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	var (
		observations []store.Observation
		hierarchy    *store.Hierarchy
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		observations, err = e.store.FetchObservations(gctx, req.ObservationQuery())
		return eris.Wrap(err, "fetch observations")
	})
	g.Go(func() error {
		var err error
		hierarchy, err = e.store.FetchHierarchy(gctx, nil)
		return eris.Wrap(err, "fetch hierarchy")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := NewSnapshot(hierarchy)
	if total := snap.TotalWeightPct(); math.Abs(total-100) > 0.001 {
		e.logger.Warn("dimension weights do not sum to 100", "total", total)
	}

	result, err := Aggregate(req, observations, snap, e.policy)
	if err != nil {
		if errors.Is(err, ErrNoDataForFilters) {
			e.metrics.NoData()
		}
		return nil, err
	}

	if result.Stats.PartialHierarchy() {
		e.metrics.DroppedIndicators(len(result.Stats.DroppedIndicators))
		e.logger.Warn("indicators excluded from score",
			"region", req.Region,
			"period", req.Period,
			"dropped", result.Stats.DroppedIndicators,
		)
	}
	e.metrics.ObserveResolution(string(SourceLocal), time.Since(start))
	e.logger.Debug("local score computed",
		"region", req.Region,
		"period", req.Period,
		"global_score", result.GlobalScore,
		"observations", result.Stats.Observations,
		"used", result.Stats.Used,
	)
	return result, nil
}

// Hierarchy returns the full indicator tree.
func (e *Engine) Hierarchy(ctx context.Context) ([]DimensionNode, error) {
	h, err := e.store.FetchHierarchy(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch hierarchy")
	}
	return NewSnapshot(h).Tree(), nil
}
