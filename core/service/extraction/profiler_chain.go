// Package extraction resolves profile attributes through ordered fallback
// chains of extraction strategies.
//
// A chain tries strategies most-reliable first. Every strategy returns a
// Signal with its own confidence; the chain keeps the best one seen and stops
// early once the best confidence exceeds the high-confidence threshold, so
// later, noisier sources are skipped. Strategy errors, panics and timeouts
// become zero signals and never abort the chain: the zero signal is the only
// failure mode a caller sees.
//
// Each resolution walks an explicit state machine: pending → tried after
// every strategy, ending satisfied (threshold met) or exhausted (all
// strategies tried). The trace records every attempt so a reviewer can
// reconstruct why a value won.
package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mailprofiler/core/domain"
)

// =============================================================================
// Chain state machine
// =============================================================================

// ChainState is a resolution state.
type ChainState string

const (
	StatePending   ChainState = "pending"
	StateTried     ChainState = "tried"
	StateSatisfied ChainState = "satisfied"
	StateExhausted ChainState = "exhausted"
)

// Attempt records one executed strategy.
type Attempt struct {
	Strategy   string        `json:"strategy"`
	Source     domain.Source `json:"source"`
	Confidence float64       `json:"confidence"`
	Err        string        `json:"err,omitempty"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Trace is the observable record of one resolution.
type Trace struct {
	Field    domain.Field `json:"field"`
	State    ChainState   `json:"state"`
	Attempts []Attempt    `json:"attempts"`
	Failures int          `json:"failures"` // strategies that errored, panicked or timed out
}

// =============================================================================
// Strategies and chains
// =============================================================================

// StrategyFunc is one extraction attempt against one message.
type StrategyFunc func(ctx context.Context, msg *domain.RawMessage) (domain.Signal, error)

// Strategy is a named extraction step with its own time budget.
type Strategy struct {
	Name    string
	Source  domain.Source
	Timeout time.Duration // zero inherits the caller's context
	Run     StrategyFunc
}

// Chain resolves one field by walking strategies in declared order.
type Chain struct {
	Field      domain.Field
	Strategies []Strategy
	Threshold  float64 // early exit when best confidence strictly exceeds this

	log zerolog.Logger
}

// NewChain builds a chain over the given strategies.
func NewChain(field domain.Field, threshold float64, log zerolog.Logger, strategies ...Strategy) *Chain {
	return &Chain{
		Field:      field,
		Strategies: strategies,
		Threshold:  threshold,
		log:        log.With().Str("field", string(field)).Logger(),
	}
}

// Resolve runs the chain against one message. It never returns an error: the
// zero signal is the failure mode. The running best confidence is monotone,
// and strategies after an early exit are not executed.
func (c *Chain) Resolve(ctx context.Context, msg *domain.RawMessage) (domain.Signal, Trace) {
	best := domain.ZeroSignal()
	trace := Trace{Field: c.Field, State: StatePending}

	for _, strategy := range c.Strategies {
		if ctx.Err() != nil {
			break
		}

		signal := c.runStrategy(ctx, strategy, msg, &trace)
		trace.State = StateTried

		if signal.Confidence > best.Confidence {
			best = signal
		}
		if best.Confidence > c.Threshold {
			trace.State = StateSatisfied
			return best, trace
		}
	}

	trace.State = StateExhausted
	return best, trace
}

// runStrategy executes one strategy under its time budget, containing errors
// and panics, and records the attempt.
func (c *Chain) runStrategy(ctx context.Context, s Strategy, msg *domain.RawMessage, trace *Trace) domain.Signal {
	sctx := ctx
	cancel := context.CancelFunc(func() {})
	if s.Timeout > 0 {
		sctx, cancel = context.WithTimeout(ctx, s.Timeout)
	}
	defer cancel()

	type outcome struct {
		signal domain.Signal
		err    error
	}
	done := make(chan outcome, 1)
	start := time.Now()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		signal, err := s.Run(sctx, msg)
		done <- outcome{signal: signal, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-sctx.Done():
		out = outcome{err: sctx.Err()}
	}
	elapsed := time.Since(start)

	attempt := Attempt{Strategy: s.Name, Source: s.Source, Elapsed: elapsed}
	if out.err != nil {
		attempt.Err = out.err.Error()
		trace.Failures++
		trace.Attempts = append(trace.Attempts, attempt)
		c.log.Debug().
			Str("strategy", s.Name).
			Dur("elapsed", elapsed).
			Err(out.err).
			Msg("extraction strategy failed")
		return domain.ZeroSignal()
	}

	signal := out.signal
	if signal.Value != "" && (signal.Source == "" || signal.Source == domain.SourceNone) {
		signal.Source = s.Source
	}
	signal = domain.NewSignal(signal.Value, signal.Confidence, signal.Source)
	attempt.Confidence = signal.Confidence
	trace.Attempts = append(trace.Attempts, attempt)
	return signal
}
