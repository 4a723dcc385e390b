package evtfix

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRunPath(t *testing.T) {
	testCases := []struct {
		run    int
		format string
		want   string
	}{
		{42, "", "run_0042.h5"},
		{7, DefaultRunFormat, "run_0007.h5"},
		{12345, "", "run_12345.h5"},
		{3, "merged_%d.h5", "merged_3.h5"},
	}

	for _, tc := range testCases {
		got := RunPath("/data", tc.run, tc.format)
		if want := filepath.Join("/data", tc.want); got != want {
			t.Errorf("RunPath(%d, %q) = %s, want %s", tc.run, tc.format, got, want)
		}
	}
}

func TestExistingRuns(t *testing.T) {
	dir := t.TempDir()
	for _, run := range []int{1, 2, 4, 7} {
		if err := os.WriteFile(RunPath(dir, run, ""), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create run %d: %v", run, err)
		}
	}
	// A directory with a run name is not a container
	if err := os.Mkdir(RunPath(dir, 5, ""), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	runs, err := ExistingRuns(dir, 2, 6, "")
	if err != nil {
		t.Fatalf("ExistingRuns failed: %v", err)
	}
	want := []int{2, 4}
	if len(runs) != len(want) {
		t.Fatalf("Expected runs %v, got %v", want, runs)
	}
	for i := range want {
		if runs[i] != want[i] {
			t.Errorf("Expected runs %v, got %v", want, runs)
		}
	}

	// Inclusive on both ends
	runs, err = ExistingRuns(dir, 7, 7, "")
	if err != nil || len(runs) != 1 || runs[0] != 7 {
		t.Errorf("Expected [7], got %v (err %v)", runs, err)
	}

	if _, err := ExistingRuns(dir, 6, 2, ""); err == nil {
		t.Error("Expected error for reversed run range")
	}
}

func TestValidateRunFormat(t *testing.T) {
	testCases := []struct {
		format string
		valid  bool
	}{
		{DefaultRunFormat, true},
		{"merged_%d.h5", true},
		{"run_%06d", true},
		{"run.h5", false},
		{"run_%s.h5", false},
		{"run_%d_%d.h5", false},
		{"data/run_%d.h5", false},
	}

	for _, tc := range testCases {
		err := ValidateRunFormat(tc.format)
		if tc.valid && err != nil {
			t.Errorf("Expected format %q to be valid, got error: %v", tc.format, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("Expected format %q to be invalid, but got no error", tc.format)
		}
	}
}
