package preflight

import (
	"context"

	"dral/internal/config"
	"dral/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks a release run needs for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	var results []Result

	results = append(results, CheckInputLayout("Input directory", cfg.Paths.InputRoot))
	results = append(results, CheckOutputRoot("Output directory", cfg.Paths.OutputRoot))

	for _, status := range CheckSystemDeps(ctx, cfg) {
		results = append(results, FromStatus(status))
	}
	return results
}

// FromStatus converts a dependency status into a check result.
func FromStatus(status deps.Status) Result {
	detail := status.Detail
	if status.Available {
		detail = status.Command
		if status.Version != "" {
			detail += " (" + status.Version + ")"
		}
	}
	return Result{Name: status.Name, Passed: status.Available || status.Optional, Detail: detail}
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
