package main

import (
	"bytes"
	"strings"
	"testing"
)

// Test basic option definition and parsing
func TestOptionDefinition(t *testing.T) {
	options := NewParsedOptions()

	options.DefineOption("test-string", "", OptionTypeString, "default", "Test string option")
	options.DefineOption("test-bool", "b", OptionTypeBool, "false", "Test bool option")
	options.DefineOption("test-int", "i", OptionTypeInt, "0", "Test int option")
	options.DefineOption("test-float", "", OptionTypeFloat, "", "Test float option")

	args := []string{"--test-string=value", "--test-bool", "--test-int=42", "--test-float=1.5"}
	if err := options.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if options.GetString("test-string") != "value" {
		t.Errorf("Expected string 'value', got %s", options.GetString("test-string"))
	}
	if !options.GetBool("test-bool") {
		t.Errorf("Expected bool true, got %v", options.GetBool("test-bool"))
	}
	if options.GetInt("test-int") != 42 {
		t.Errorf("Expected int 42, got %d", options.GetInt("test-int"))
	}
	if options.GetFloat("test-float") != 1.5 {
		t.Errorf("Expected float 1.5, got %v", options.GetFloat("test-float"))
	}
}

// Test short option parsing
func TestShortOptions(t *testing.T) {
	options := defineOptions()

	args := []string{"-vvv", "-nq"}
	if err := options.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	// Verbose should be 3 (repeated 3 times)
	if options.GetInt("verbose") != 3 {
		t.Errorf("Expected verbose level 3, got %d", options.GetInt("verbose"))
	}
	if !options.GetBool("dry-run") || !options.GetBool("quiet") {
		t.Errorf("Expected dry-run and quiet, got %v %v", options.GetBool("dry-run"), options.GetBool("quiet"))
	}
}

// A lone -v must not take the run number that follows it
func TestShortIntDoesNotConsumeRunNumbers(t *testing.T) {
	options := defineOptions()

	if err := options.Parse([]string{"-v", "/data", "1", "5"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if options.GetInt("verbose") != 1 {
		t.Errorf("Expected verbose level 1, got %d", options.GetInt("verbose"))
	}
	args := options.GetArgs()
	if len(args) != 3 || args[0] != "/data" || args[1] != "1" || args[2] != "5" {
		t.Errorf("Expected positional [/data 1 5], got %v", args)
	}
}

// Test options interleaved with positional arguments
func TestMixedArguments(t *testing.T) {
	options := defineOptions()

	args := []string{"/data", "--format=json", "10", "-n", "20", "--tolerance=2.5"}
	if err := options.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if got := strings.Join(options.GetArgs(), " "); got != "/data 10 20" {
		t.Errorf("Expected positional '/data 10 20', got '%s'", got)
	}
	if options.GetString("format") != "json" || !options.GetBool("dry-run") {
		t.Errorf("Unexpected options: format=%s dry-run=%v", options.GetString("format"), options.GetBool("dry-run"))
	}
	if options.GetFloat("tolerance") != 2.5 {
		t.Errorf("Expected tolerance 2.5, got %v", options.GetFloat("tolerance"))
	}
}

// Test explicit-set tracking, used to layer the command line over the config
func TestIsSet(t *testing.T) {
	options := defineOptions()

	if err := options.Parse([]string{"--color=never"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if !options.IsSet("color") {
		t.Error("Expected color to be explicitly set")
	}
	if options.IsSet("format") || options.IsSet("verbose") {
		t.Error("Options left at their defaults should not count as set")
	}
	if options.GetInt("verbose") != 0 {
		t.Errorf("Expected default verbose 0, got %d", options.GetInt("verbose"))
	}
}

// Test parse errors
func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		errMsg string
	}{
		{"unknown long option", []string{"--backup"}, "unknown option: --backup"},
		{"unknown short option", []string{"-x"}, "unknown option: -x"},
		{"string option without value", []string{"--format"}, "requires a value"},
		{"int option with bad value", []string{"--verbose=loud"}, "invalid integer value"},
		{"float option with bad value", []string{"--tolerance=wide"}, "invalid number"},
		{"bool option with bad value", []string{"--dry-run=maybe"}, "invalid boolean value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := defineOptions().Parse(tt.args)
			if err == nil {
				t.Fatalf("Expected error for %v", tt.args)
			}
			if !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("Expected error containing %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestBooleanValues(t *testing.T) {
	options := defineOptions()
	if err := options.Parse([]string{"--no-check=false", "--dry-run=1"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if options.GetBool("no-check") {
		t.Error("Expected no-check false")
	}
	if !options.IsSet("no-check") {
		t.Error("Explicit false should still count as set")
	}
	if !options.GetBool("dry-run") {
		t.Error("Expected dry-run true")
	}
}

func TestShowOptionsOrder(t *testing.T) {
	var buf bytes.Buffer
	defineOptions().ShowOptions(&buf)
	out := buf.String()

	help := strings.Index(out, "--help")
	tolerance := strings.Index(out, "--tolerance=N")
	if help == -1 || tolerance == -1 || help > tolerance {
		t.Errorf("Options should be listed in definition order, got:\n%s", out)
	}
	if !strings.Contains(out, "-n, --dry-run") {
		t.Errorf("Expected short form for dry-run, got:\n%s", out)
	}
}
