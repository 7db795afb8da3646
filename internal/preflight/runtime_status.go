package preflight

import (
	"context"
	"fmt"
	"os"

	"dral/internal/config"
	"dral/internal/ledger"
)

// CheckLedger reports the run ledger and its most recent run. A ledger that
// has never been written passes.
func CheckLedger(ctx context.Context, cfg *config.Config) Result {
	const name = "Run ledger"
	if cfg == nil {
		return Result{Name: name, Detail: "Unknown"}
	}
	path := cfg.Paths.LedgerPath
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no runs yet)", path)}
	}

	store, err := ledger.OpenPath(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	defer store.Close()

	run, err := store.LatestRun(ctx)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if run == nil {
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (no runs yet)", path)}
	}
	detail := fmt.Sprintf("last run %s %s at %s", run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04"))
	if run.Status == ledger.StatusFailed && run.ErrorMessage != "" {
		detail += ": " + run.ErrorMessage
	}
	return Result{Name: name, Passed: true, Detail: detail}
}
