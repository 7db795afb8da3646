package preflight

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"dral/internal/config"
	"dral/internal/deps"
	"dral/internal/release"
)

// CheckDirectoryAccess verifies that the directory exists and grants mode
// (a combination of unix.R_OK, unix.W_OK, and unix.X_OK).
func CheckDirectoryAccess(name, path string, mode uint32) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	label := "read ok"
	if mode&unix.W_OK != 0 {
		label = "read/write ok"
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%s)", path, label)}
}

// CheckInputLayout verifies the raw-data root holds the recordings directory
// and the metadata workbook.
func CheckInputLayout(name, root string) Result {
	access := CheckDirectoryAccess(name, root, unix.R_OK|unix.X_OK)
	if !access.Passed {
		return access
	}
	recordings := filepath.Join(root, release.InputRecordingsDir)
	if info, err := os.Stat(recordings); err != nil || !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing %s directory)", root, release.InputRecordingsDir)}
	}
	if info, err := os.Stat(filepath.Join(root, release.InputWorkbook)); err != nil || info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: missing %s)", root, release.InputWorkbook)}
	}
	return access
}

// CheckOutputRoot verifies the release directory, or the nearest existing
// parent when it has not been created yet, is writable.
func CheckOutputRoot(name, path string) Result {
	dir := path
	for {
		if _, err := os.Stat(dir); err == nil {
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	result := CheckDirectoryAccess(name, dir, unix.R_OK|unix.W_OK|unix.X_OK)
	if result.Passed && dir != path {
		result.Detail = fmt.Sprintf("%s (will be created under %s)", path, dir)
	}
	return result
}

// CheckSystemDeps evaluates the external tools for the given config. Both the
// release command and doctor use this to avoid duplicating the requirements
// list.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(ctx, deps.AudioTools(cfg.FFmpegBinary(), cfg.FFprobeBinary()))
}
