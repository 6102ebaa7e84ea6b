package observability

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	nativecommon "basketswap/native/common"
)

var (
	engineMetricsOnce sync.Once
	engineRegistry    *EngineMetrics

	solverMetricsOnce sync.Once
	solverRegistry    *SolverMetrics
)

// EngineMetrics captures operation counts and latency for the native engines.
type EngineMetrics struct {
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// Engines returns the lazily-initialised registry shared by the basket ledger
// and the stable swap pool.
func Engines() *EngineMetrics {
	engineMetricsOnce.Do(func() {
		engineRegistry = &EngineMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "basketswap",
				Subsystem: "engine",
				Name:      "operations_total",
				Help:      "Count of engine operations segmented by module, operation and outcome.",
			}, []string{"module", "operation", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "basketswap",
				Subsystem: "engine",
				Name:      "errors_total",
				Help:      "Count of rejected engine operations segmented by module, operation and error kind.",
			}, []string{"module", "operation", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "basketswap",
				Subsystem: "engine",
				Name:      "operation_duration_seconds",
				Help:      "Latency distribution for engine operations.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "operation"}),
		}
		prometheus.MustRegister(
			engineRegistry.requests,
			engineRegistry.errors,
			engineRegistry.latency,
		)
	})
	return engineRegistry
}

// Observe records the outcome of one engine operation.
func (m *EngineMetrics) Observe(module, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	module = labelOrUnknown(module)
	operation = labelOrUnknown(operation)
	outcome := "success"
	if err != nil {
		outcome = "error"
		m.errors.WithLabelValues(module, operation, ErrorReason(err)).Inc()
	}
	m.requests.WithLabelValues(module, operation, outcome).Inc()
	m.latency.WithLabelValues(module, operation).Observe(duration.Seconds())
}

// SolverMetrics tracks the invariant solver's iteration behaviour.
type SolverMetrics struct {
	iterations     *prometheus.HistogramVec
	nonConvergence *prometheus.CounterVec
}

// Solver returns the lazily-initialised solver registry.
func Solver() *SolverMetrics {
	solverMetricsOnce.Do(func() {
		solverRegistry = &SolverMetrics{
			iterations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "basketswap",
				Subsystem: "solver",
				Name:      "iterations",
				Help:      "Newton iterations used per invariant solve.",
				Buckets:   []float64{1, 2, 4, 8, 16, 32, 64, 128, 255},
			}, []string{"solver"}),
			nonConvergence: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "basketswap",
				Subsystem: "solver",
				Name:      "non_convergence_total",
				Help:      "Solves that hit the iteration cap without converging.",
			}, []string{"solver"}),
		}
		prometheus.MustRegister(
			solverRegistry.iterations,
			solverRegistry.nonConvergence,
		)
	})
	return solverRegistry
}

// NonConvergenceVec exposes the non-convergence counter vector.
func (m *SolverMetrics) NonConvergenceVec() *prometheus.CounterVec {
	if m == nil {
		return nil
	}
	return m.nonConvergence
}

// ObserveSolve records the iterations used by one solve.
func (m *SolverMetrics) ObserveSolve(solver string, iterations int, converged bool) {
	if m == nil {
		return
	}
	solver = labelOrUnknown(solver)
	m.iterations.WithLabelValues(solver).Observe(float64(iterations))
	if !converged {
		m.nonConvergence.WithLabelValues(solver).Inc()
	}
}

var errorReasons = []struct {
	err    error
	reason string
}{
	{nativecommon.ErrInvalidArgument, "invalid_argument"},
	{nativecommon.ErrNotAuthorized, "not_authorized"},
	{nativecommon.ErrInsufficientBalance, "insufficient_balance"},
	{nativecommon.ErrArithmeticUnderflow, "arithmetic_underflow"},
	{nativecommon.ErrArithmeticOverflow, "arithmetic_overflow"},
	{nativecommon.ErrTransferMismatch, "transfer_mismatch"},
	{nativecommon.ErrNotActive, "not_active"},
	{nativecommon.ErrSlippageExceeded, "slippage_exceeded"},
	{nativecommon.ErrReentrantCall, "reentrant_call"},
}

// ErrorReason maps an engine error onto a bounded label value.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	for _, candidate := range errorReasons {
		if errors.Is(err, candidate.err) {
			return candidate.reason
		}
	}
	return "other"
}

func labelOrUnknown(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "unknown"
	}
	return v
}
