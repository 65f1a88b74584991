// Package solver ties the pipeline stages of the scheduling core together:
// normalize, build, search (guarded by a circuit breaker), and project.
package solver

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/kilgorjn/patient-scheduling/pkg/observability"

	"github.com/kilgorjn/patient-scheduling/internal/solver/cache"
	"github.com/kilgorjn/patient-scheduling/internal/solver/domain"
	"github.com/kilgorjn/patient-scheduling/internal/solver/fallback"
	"github.com/kilgorjn/patient-scheduling/internal/solver/model"
	"github.com/kilgorjn/patient-scheduling/internal/solver/normalize"
	"github.com/kilgorjn/patient-scheduling/internal/solver/project"
	"github.com/kilgorjn/patient-scheduling/internal/solver/search"
	"github.com/kilgorjn/patient-scheduling/internal/solver/solvererr"
)

// BreakerConfig configures the circuit breaker wrapping the exact search.
// When the search is tripping errors repeatedly (library panics, repeated
// internal failures), the breaker opens and callers fall through to the
// greedy fallback without retrying the search, the same "protect the
// downstream, degrade gracefully" shape as the engine executor's breaker.
type BreakerConfig struct {
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
}

// DefaultBreakerConfig mirrors the kind of conservative defaults used
// elsewhere in this codebase for protecting a single expensive downstream
// call.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.6,
	}
}

// Engine is the stateless entry point for solving one instance per call; it
// owns no mutable state across calls beyond the circuit breaker's own
// bookkeeping (§5: no shared mutable globals across solves).
type Engine struct {
	logger  *slog.Logger
	breaker *gobreaker.CircuitBreaker[*search.Result]
	metrics observability.Metrics
}

// New builds an Engine with the given breaker configuration. Metrics default
// to a no-op recorder; call SetMetrics to wire a real collector.
func New(logger *slog.Logger, cfg BreakerConfig) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	settings := gobreaker.Settings{
		Name:        "scheduling-search",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 3 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("search circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	}
	return &Engine{
		logger:  logger,
		breaker: gobreaker.NewCircuitBreaker[*search.Result](settings),
		metrics: observability.NoopMetrics{},
	}
}

// SetMetrics wires a metrics collector into the engine.
func (e *Engine) SetMetrics(m observability.Metrics) {
	if m == nil {
		m = observability.NoopMetrics{}
	}
	e.metrics = m
}

// Solve runs the full pipeline: normalize, build, search, project. If the
// circuit breaker is open (the search has been failing repeatedly), it falls
// back to the greedy strategy instead of attempting the search again.
func (e *Engine) Solve(ctx context.Context, req *domain.Request) *domain.Response {
	start := time.Now()
	e.metrics.Counter(observability.MetricSolveRequests, 1)

	inst, err := normalize.Normalize(req)
	if err != nil {
		return e.recordResponse(errorResponse(err, start))
	}

	m, err := model.Build(inst)
	if err != nil {
		return e.recordResponse(errorResponse(err, start))
	}

	timeLimit := time.Duration(inst.TimeLimitMillis) * time.Millisecond
	deadline := time.Now().Add(timeLimit)

	result, err := e.breaker.Execute(func() (*search.Result, error) {
		r := search.Solve(ctx, m, deadline, inst.Seed)
		if r.Status == domain.StatusError && r.Reason == "" {
			return nil, solvererr.New(solvererr.Internal, "search returned an error status with no reason")
		}
		return &r, nil
	})

	if err != nil {
		e.logger.Warn("search unavailable, falling back to greedy placement", "error", err)
		e.metrics.Counter(observability.MetricBreakerTrips, 1)
		return e.recordResponse(e.solveFallback(inst, start))
	}

	return e.recordResponse(e.finish(m, *result, inst, start))
}

func (e *Engine) recordResponse(resp *domain.Response) *domain.Response {
	e.metrics.Timing(observability.MetricSolveDuration, time.Duration(resp.SolveTimeMs)*time.Millisecond)
	switch resp.Status {
	case domain.StatusOptimal:
		e.metrics.Counter(observability.MetricSolveOptimal, 1)
	case domain.StatusFeasible:
		e.metrics.Counter(observability.MetricSolveFeasible, 1)
	case domain.StatusInfeasible:
		e.metrics.Counter(observability.MetricSolveInfeasible, 1)
	case domain.StatusError:
		e.metrics.Counter(observability.MetricSolveErrors, 1)
	}
	return resp
}

func (e *Engine) finish(m *model.Model, result search.Result, inst *domain.Instance, start time.Time) *domain.Response {
	elapsed := time.Since(start).Milliseconds()

	switch result.Status {
	case domain.StatusOptimal, domain.StatusFeasible:
		slots := project.FromAssignment(m, result.Assignment)
		obj := int64(result.Objective + 0.5)
		return &domain.Response{
			Status:      result.Status,
			Slots:       slots,
			SolveTimeMs: elapsed,
			Objective:   &obj,
		}
	case domain.StatusInfeasible:
		return &domain.Response{
			Status:      domain.StatusInfeasible,
			SolveTimeMs: elapsed,
			Message:     "no schedule satisfies the hard constraints",
		}
	default:
		msg := "internal solver error"
		if result.Reason != "" {
			msg = result.Reason
		}
		return &domain.Response{
			Status:      domain.StatusError,
			SolveTimeMs: elapsed,
			Message:     msg,
		}
	}
}

func (e *Engine) solveFallback(inst *domain.Instance, start time.Time) *domain.Response {
	e.metrics.Counter(observability.MetricSolveFallbacks, 1)
	placements, ok := fallback.Schedule(inst)
	elapsed := time.Since(start).Milliseconds()
	if !ok {
		return &domain.Response{
			Status:      domain.StatusError,
			SolveTimeMs: elapsed,
			Message:     "fallback placement could not satisfy the instance",
		}
	}
	slots := project.FromPlacements(inst, placements)
	return &domain.Response{
		Status:      domain.StatusFeasible,
		Slots:       slots,
		SolveTimeMs: elapsed,
		Message:     "produced by greedy fallback; optimality not evaluated",
	}
}

// SolveCached wraps Solve with a lookup against c keyed by the request's
// fingerprint. A cache hit skips normalization, model building, and search
// entirely.
func (e *Engine) SolveCached(ctx context.Context, req *domain.Request, c *cache.Cache) *domain.Response {
	if c == nil {
		return e.Solve(ctx, req)
	}

	fp := cache.Fingerprint(req)
	if resp, hit, err := c.Get(ctx, fp); err == nil && hit {
		e.metrics.Counter(observability.MetricCacheHits, 1)
		return resp
	} else if err != nil {
		e.logger.Warn("result cache lookup failed, solving uncached", "error", err)
	}
	e.metrics.Counter(observability.MetricCacheMisses, 1)

	resp := e.Solve(ctx, req)
	if err := c.Put(ctx, fp, resp); err != nil {
		e.logger.Warn("result cache write failed", "error", err)
	}
	return resp
}

func errorResponse(err error, start time.Time) *domain.Response {
	elapsed := time.Since(start).Milliseconds()
	status := domain.StatusError
	message := err.Error()

	if se, ok := solvererr.As(err); ok {
		switch se.Kind {
		case solvererr.InfeasibleModel:
			status = domain.StatusInfeasible
		}
		message = se.Message
		if se.Field != "" {
			message = se.Field + ": " + se.Message
		}
	}

	return &domain.Response{
		Status:      status,
		SolveTimeMs: elapsed,
		Message:     message,
	}
}
