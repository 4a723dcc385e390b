package evtfix

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// RunPath builds the container path for a run, e.g. dir/run_0042.h5
func RunPath(directory string, run int, format string) string {
	if format == "" {
		format = DefaultRunFormat
	}
	return filepath.Join(directory, fmt.Sprintf(format, run))
}

// ExistingRuns returns the runs in [runMin, runMax] whose container exists.
// Missing runs are skipped silently, matching how acquisition gaps are handled.
func ExistingRuns(directory string, runMin, runMax int, format string) ([]int, error) {
	if runMax < runMin {
		return nil, fmt.Errorf("run range %d..%d is empty", runMin, runMax)
	}
	var runs []int
	for run := runMin; run <= runMax; run++ {
		path := RunPath(directory, run, format)
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				VerboseLog(2, "Run %d: %s not found, skipping", run, path)
				continue
			}
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if info.IsDir() {
			VerboseLog(1, "Run %d: %s is a directory, skipping", run, path)
			continue
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// ValidateRunFormat checks that a run file format takes exactly one integer verb
func ValidateRunFormat(format string) error {
	if strings.ContainsAny(format, "/\\") {
		return fmt.Errorf("run file format %q must be a file name, not a path", format)
	}
	first, second := fmt.Sprintf(format, 7), fmt.Sprintf(format, 8)
	if strings.Contains(first, "%!") || first == second {
		return fmt.Errorf("run file format %q must contain exactly one integer verb", format)
	}
	return nil
}
