package main

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"testing"

	evtfix "github.com/mattkeenan/evtfix/pkg"
)

func writeRun(t *testing.T, dir string, run int, min, max int64, withFrib bool) {
	t.Helper()
	b := evtfix.Create(evtfix.RunPath(dir, run, ""))
	if err := b.PutInt64(evtfix.MetaGroup, evtfix.MetaRecord, min, 0, max); err != nil {
		t.Fatal(err)
	}
	for e := min; e <= max; e++ {
		if err := b.PutInt16(evtfix.GetGroup, fmt.Sprintf(evtfix.GetDataKey, e), 1, 2, 3); err != nil {
			t.Fatal(err)
		}
		if err := b.PutFloat64(evtfix.GetGroup, fmt.Sprintf(evtfix.GetHeaderKey, e), float64(e), 0, 1); err != nil {
			t.Fatal(err)
		}
		if withFrib {
			if err := b.PutFloat64(evtfix.FribEvents, fmt.Sprintf(evtfix.FribHeaderKey, e-min), 0, 1); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := b.Close(); err != nil {
		t.Fatal(err)
	}
}

func runCommand(args ...string) (int, string, string) {
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestParseArguments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
		actions string
		expr    string
	}{
		{name: "defaults to print", args: []string{"/data", "1", "2"}, actions: "--print"},
		{name: "verbose implies ls", args: []string{"-v", "/data", "1", "2"}, actions: "--ls"},
		{name: "meta alone", args: []string{"--meta", "/data", "1", "2"}, actions: "--meta"},
		{name: "meta with test", args: []string{"--meta", "--group", "get", "/data", "1", "2"}, actions: "--meta --print", expr: "--group get"},
		{name: "combined tests", args: []string{"--group=frib/evt/", "--name", "evt1*", "/data", "1", "2"}, actions: "--print", expr: "(--group frib/evt --and --name evt1*)"},
		{name: "missing value", args: []string{"/data", "1", "2", "--name"}, wantErr: "--name requires an argument"},
		{name: "bad pattern", args: []string{"--name", "[", "/data", "1", "2"}, wantErr: "invalid --name pattern"},
		{name: "bad type", args: []string{"--type", "x", "/data", "1", "2"}, wantErr: "invalid --type"},
		{name: "unknown option", args: []string{"--size", "/data", "1", "2"}, wantErr: "unknown option"},
		{name: "missing range", args: []string{"/data", "1"}, wantErr: "expected <directory> <run_min> <run_max>"},
		{name: "bad run number", args: []string{"/data", "x", "2"}, wantErr: "run_min must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, err := parseArguments(tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseArguments() error = %v", err)
			}

			var actions []string
			for _, a := range args.Actions {
				actions = append(actions, a.String())
			}
			if got := strings.Join(actions, " "); got != tt.actions {
				t.Errorf("Expected actions %q, got %q", tt.actions, got)
			}
			var expr string
			if args.Expression != nil {
				expr = args.Expression.String()
			}
			if expr != tt.expr {
				t.Errorf("Expected expression %q, got %q", tt.expr, expr)
			}
		})
	}
}

func TestFindEntries(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, 1, 3, 4, true)
	writeRun(t, dir, 2, 0, 1, false)

	code, stdout, stderr := runCommand("--group", "get", "--name", "evt3_*", dir, "1", "2")
	if code != 0 {
		t.Fatalf("Expected success, got %d (stderr %q)", code, stderr)
	}
	want := "run_0001.h5:get/evt3_data\nrun_0001.h5:get/evt3_header\n"
	if stdout != want {
		t.Errorf("Expected\n%s\ngot\n%s", want, stdout)
	}

	code, stdout, _ = runCommand("--type", "g", dir, "2", "2")
	if code != 0 || stdout != "run_0002.h5:get\nrun_0002.h5:meta\n" {
		t.Errorf("Unexpected group listing (code %d): %q", code, stdout)
	}

	code, stdout, _ = runCommand("--ls", "--group", "frib/evt", dir, "1", "1")
	if code != 0 || !strings.Contains(stdout, "r float64         2") || !strings.Contains(stdout, "run_0001.h5:frib/evt/evt1_header") {
		t.Errorf("Unexpected ls output (code %d): %q", code, stdout)
	}
}

func TestFindMeta(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, 1, 3, 4, true)
	writeRun(t, dir, 2, 0, 1, false)

	code, stdout, _ := runCommand("--meta", dir, "1", "5")
	if code != 0 {
		t.Fatalf("Expected success, got %d", code)
	}
	lines := strings.Split(strings.TrimSpace(stdout), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected one line per run, got %q", stdout)
	}
	if !strings.HasPrefix(lines[0], "run_0001.h5: event_min=3 event_max=4") || !strings.Contains(lines[0], "2 FRIBDAQ entries") {
		t.Errorf("Unexpected meta line: %q", lines[0])
	}
	if !strings.Contains(lines[1], "event_min=0 event_max=1") || !strings.Contains(lines[1], "no FRIBDAQ data") {
		t.Errorf("Unexpected meta line: %q", lines[1])
	}
}

func TestFindReportsBrokenRuns(t *testing.T) {
	dir := t.TempDir()
	writeRun(t, dir, 1, 0, 1, false)
	if err := os.WriteFile(evtfix.RunPath(dir, 2, ""), []byte("junk"), 0644); err != nil {
		t.Fatal(err)
	}

	code, stdout, stderr := runCommand("--meta", dir, "1", "2")
	if code != 1 {
		t.Errorf("Expected exit code 1, got %d", code)
	}
	if !strings.Contains(stdout, "run_0001.h5") {
		t.Errorf("Healthy runs should still be listed, got %q", stdout)
	}
	if !strings.Contains(stderr, "run 2:") {
		t.Errorf("Expected error for run 2, got %q", stderr)
	}
}

func TestHelpAndVersion(t *testing.T) {
	code, stdout, _ := runCommand("--help")
	if code != 0 || !strings.Contains(stdout, "--meta") {
		t.Errorf("Unexpected help (code %d): %q", code, stdout)
	}
	code, stdout, _ = runCommand("--version")
	if code != 0 || stdout != "evtfind dev\n" {
		t.Errorf("Unexpected version (code %d): %q", code, stdout)
	}
	code, _, stderr := runCommand()
	if code != 1 || !strings.Contains(stderr, "Usage: evtfind") {
		t.Errorf("Expected usage on no arguments, got %d %q", code, stderr)
	}
}
