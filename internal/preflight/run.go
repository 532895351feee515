// Package preflight verifies, before a deploy, that the resources an app
// imports exist and that the names it creates are free.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/picklr-io/datastacks/internal/awsapi"
	"github.com/picklr-io/datastacks/internal/logging"
)

const (
	DefaultParallelism = 8
	DefaultTimeout     = 2 * time.Minute
)

// Options tune Run. Zero values select the defaults.
type Options struct {
	Parallelism int
	// Timeout bounds each check on its own.
	Timeout time.Duration
}

// Check is one named verification against an account.
type Check struct {
	Name string
	Run  func(ctx context.Context, c *awsapi.Clients) error
}

type Result struct {
	Name     string
	Err      error
	Duration time.Duration
}

func (r Result) Passed() bool { return r.Err == nil }

// Report holds results in the order the checks were given.
type Report struct {
	Results []Result
}

// Failed returns the failed results.
func (r *Report) Failed() []Result {
	var failed []Result
	for _, res := range r.Results {
		if !res.Passed() {
			failed = append(failed, res)
		}
	}
	return failed
}

// Err summarizes the failures, or returns nil.
func (r *Report) Err() error {
	failed := r.Failed()
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d preflight checks failed", len(failed), len(r.Results))
}

// Run executes checks concurrently. A failing check does not cancel the
// others; only ctx does.
func Run(ctx context.Context, clients *awsapi.Clients, checks []Check, opts Options) *Report {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	results := make([]Result, len(checks))
	var g errgroup.Group
	g.SetLimit(parallelism)

	for i, check := range checks {
		g.Go(func() error {
			start := time.Now()
			err := runCheck(ctx, clients, check, timeout)
			results[i] = Result{Name: check.Name, Err: err, Duration: time.Since(start)}

			if err != nil {
				logging.Debug("preflight check failed", "check", check.Name, "error", err)
			} else {
				logging.Debug("preflight check passed", "check", check.Name)
			}
			return nil
		})
	}
	_ = g.Wait()

	return &Report{Results: results}
}

func runCheck(ctx context.Context, clients *awsapi.Clients, check Check, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	err := check.Run(ctx, clients)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return err
}
