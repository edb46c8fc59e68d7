// Package runtime runs batches of expressions concurrently.
package runtime

import (
	"context"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lemonberrylabs/polycalc/pkg/expr"
	"github.com/lemonberrylabs/polycalc/pkg/ops"
	"github.com/lemonberrylabs/polycalc/pkg/poly"
	"github.com/lemonberrylabs/polycalc/pkg/solver"
)

// DefaultConcurrencyLimit is used when a Runner is built with limit <= 0.
const DefaultConcurrencyLimit = 20

// Result is the outcome of one batch item.
type Result struct {
	Expression string
	// Output is the solution for equations and the canonical polynomial
	// otherwise. Empty when Err is set.
	Output     string
	Polynomial poly.Polynomial
	Solution   *solver.Solution
	Err        error
}

// Runner parses and solves expressions with a shared strategy set.
type Runner struct {
	set    ops.Set
	limit  int
	logger *zap.Logger

	mu        sync.Mutex
	processed int
	cancel    context.CancelFunc
}

// NewRunner creates a batch runner. A nil logger disables logging.
func NewRunner(set ops.Set, limit int, logger *zap.Logger) *Runner {
	if limit <= 0 {
		limit = DefaultConcurrencyLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{set: set, limit: limit, logger: logger}
}

// Run processes every expression and returns one Result per input, in
// input order. Item failures are recorded in the Result and never stop the
// batch. Once ctx is done, items not yet started report ctx.Err().
func (r *Runner) Run(ctx context.Context, expressions []string) []Result {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.cancel = nil
		r.mu.Unlock()
	}()

	results := make([]Result, len(expressions))

	var g errgroup.Group
	g.SetLimit(r.limit)
	for i, e := range expressions {
		g.Go(func() error {
			results[i] = r.runOne(runCtx, e)
			r.mu.Lock()
			r.processed++
			r.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, res := range results {
		if res.Err != nil {
			failed++
		}
	}
	r.logger.Debug("batch finished",
		zap.Int("items", len(expressions)),
		zap.Int("failed", failed))
	return results
}

func (r *Runner) runOne(ctx context.Context, expression string) Result {
	res := Result{Expression: expression}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	p, err := expr.ParseWith(expression, r.set)
	if err != nil {
		r.logger.Debug("item failed", zap.String("expression", expression), zap.Error(err))
		res.Err = err
		return res
	}
	res.Polynomial = p

	if !strings.Contains(expression, "=") {
		res.Output = p.String()
		return res
	}

	sol, err := solver.Solve(p)
	if err != nil {
		r.logger.Debug("item failed", zap.String("expression", expression), zap.Error(err))
		res.Err = err
		return res
	}
	res.Solution = &sol
	res.Output = sol.String()
	return res
}

// Cancel stops the batch currently running, if any. Items already in
// progress finish; the rest report context.Canceled.
func (r *Runner) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Processed returns the number of items handled since the Runner was built.
func (r *Runner) Processed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.processed
}
