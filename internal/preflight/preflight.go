package preflight

import (
	"fmt"
	"path/filepath"
	"strings"

	"darkframes/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// ForCapture checks the library directory of cfg for a capture of points
// grid points producing frames of frameBytes bytes each.
func ForCapture(cfg *config.Config, frameBytes uint64, points int) []Result {
	if cfg == nil {
		return nil
	}
	dir := filepath.Dir(cfg.Library.Path)
	results := []Result{CheckDirectoryAccess("Library directory", dir)}
	if !results[0].Passed {
		return results
	}
	required := frameBytes * uint64(max(points, 0))
	results = append(results, CheckFreeSpace("Free space", dir, required))
	return results
}

// ForFusion checks that target can be created and that every source is readable.
func ForFusion(target string, sources []string) []Result {
	results := []Result{CheckDirectoryAccess("Target directory", filepath.Dir(target))}
	for _, src := range sources {
		results = append(results, CheckReadable("Source "+filepath.Base(src), src))
	}
	return results
}

// Failed summarizes the failed results as an error, or returns nil.
func Failed(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
