package evtfix

import (
	"bytes"
	"strings"
	"testing"
)

// TestPublicAPI tests the logging and debug helpers used by the commands
func TestPublicAPI(t *testing.T) {
	t.Run("DebugFunctions", func(t *testing.T) {
		InitDebugFlags("renames,plan:false,Entries")
		defer SetDebugFlags("")

		if !IsDebugEnabled("renames") {
			t.Errorf("Expected renames debug to be enabled")
		}
		if IsDebugEnabled("plan") {
			t.Errorf("Expected plan debug to be disabled")
		}
		if !IsDebugEnabled("entries") {
			t.Errorf("Expected flag names to be case-insensitive")
		}
	})

	t.Run("VerboseFunctions", func(t *testing.T) {
		SetVerboseLevel(2)
		defer SetVerboseLevel(0)

		if GetVerboseLevel() != 2 {
			t.Errorf("Expected verbose level 2, got %d", GetVerboseLevel())
		}
	})

	t.Run("VerboseLogFiltersByLevel", func(t *testing.T) {
		var buf bytes.Buffer
		SetLogOutput(&buf)
		defer SetLogOutput(nil)
		SetVerboseLevel(1)
		defer SetVerboseLevel(0)

		VerboseLog(1, "renumbering %s", "get")
		VerboseLog(2, "hidden")

		out := buf.String()
		if !strings.Contains(out, "[VERBOSE-1] renumbering get\n") {
			t.Errorf("Expected level 1 message, got %q", out)
		}
		if strings.Contains(out, "hidden") {
			t.Errorf("Level 2 message should be filtered, got %q", out)
		}
	})

	t.Run("ApplyConfig", func(t *testing.T) {
		config, err := LoadConfig(DefaultConfigPath(t.TempDir()))
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if err := config.ApplyOverrides([]string{"level:3", "debug:plan"}); err != nil {
			t.Fatalf("Failed to apply overrides: %v", err)
		}
		ApplyConfig(config)
		defer SetVerboseLevel(0)
		defer SetDebugFlags("")

		if GetVerboseLevel() != 3 || !IsDebugEnabled("plan") {
			t.Errorf("Config not applied: level %d, plan %v", GetVerboseLevel(), IsDebugEnabled("plan"))
		}
	})
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(nil)
	SetVerboseLevel(1)
	defer SetVerboseLevel(0)

	p := NewProgress("frib shift", 5, 2)
	for i := 0; i < 5; i++ {
		p.Step()
	}

	if p.Done() != 5 {
		t.Errorf("Expected 5 steps done, got %d", p.Done())
	}
	// Every second step plus the final one
	lines := strings.Count(buf.String(), "frib shift:")
	if lines != 3 {
		t.Errorf("Expected 3 progress lines, got %d: %q", lines, buf.String())
	}
	if !strings.Contains(buf.String(), "frib shift: 5/5") {
		t.Errorf("Expected final progress line, got %q", buf.String())
	}

	var nilProgress *Progress
	nilProgress.Step()
	if nilProgress.Done() != 0 {
		t.Error("Nil progress should report zero steps")
	}
}

func TestRenameDebugTrace(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)
	defer SetLogOutput(nil)
	SetDebugFlags("renames")
	defer SetDebugFlags("")

	path := runFixture{
		eventMin: 0, eventMax: 1,
		getEvents:  eventSpan(0, 1),
		fribEvents: eventSpan(1, 2),
	}.build(t, t.TempDir())

	if _, err := Repair(path, RepairOptions{}); err != nil {
		t.Fatalf("Repair failed: %v", err)
	}
	if !strings.Contains(buf.String(), "renamed frib/evt/evt1_1903 -> frib/evt/evt0_1903") {
		t.Errorf("Expected rename trace, got %q", buf.String())
	}
}
