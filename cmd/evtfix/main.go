package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	evtfix "github.com/mattkeenan/evtfix/pkg"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func defineOptions() *ParsedOptions {
	options := NewParsedOptions()
	options.DefineOption("help", "h", OptionTypeBool, "false", "Show help message")
	options.DefineOption("version", "", OptionTypeBool, "false", "Show version information")
	options.DefineOption("verbose", "v", OptionTypeInt, "0", "Enable verbose output (repeat for more)")
	options.DefineOption("dry-run", "n", OptionTypeBool, "false", "Report what would be renamed without modifying files")
	options.DefineOption("quiet", "q", OptionTypeBool, "false", "Only report failures and timestamp mismatches")
	options.DefineOption("format", "", OptionTypeString, "", "Output format (human|json, default: human)")
	options.DefineOption("color", "", OptionTypeString, "", "Colour human output (auto|always|never, default: auto)")
	options.DefineOption("config", "", OptionTypeString, "", "Config file (default: <directory>/.evtfix/config)")
	options.DefineOption("debug", "", OptionTypeString, "", "Debug flags (renames,plan,entries)")
	options.DefineOption("no-check", "", OptionTypeBool, "false", "Skip the timestamp consistency check")
	options.DefineOption("tolerance", "", OptionTypeFloat, "", "Allowed timestamp drift (default: 1)")
	return options
}

// run is main without the process exit, returning the exit status
func run(args []string, stdout, stderr io.Writer) int {
	options := defineOptions()
	if err := options.Parse(args); err != nil {
		fmt.Fprintf(stderr, "evtfix: %v\n", err)
		fmt.Fprintf(stderr, "Try 'evtfix --help' for more information.\n")
		return 1
	}

	if options.GetBool("version") {
		fmt.Fprintf(stdout, "evtfix %s\n", getVersionString())
		return 0
	}
	if options.GetBool("help") {
		showHelp(stdout, options)
		return 0
	}

	evtfix.SetLogOutput(stderr)
	defer evtfix.SetLogOutput(nil)

	positional := options.GetArgs()
	if len(positional) != 3 {
		fmt.Fprintf(stderr, "evtfix: expected <directory> <run_min> <run_max>, got %d arguments\n", len(positional))
		fmt.Fprintf(stderr, "Try 'evtfix --help' for more information.\n")
		return 1
	}
	directory := positional[0]
	runMin, err := parseRunNumber("run_min", positional[1])
	if err != nil {
		fmt.Fprintf(stderr, "evtfix: %v\n", err)
		return 1
	}
	runMax, err := parseRunNumber("run_max", positional[2])
	if err != nil {
		fmt.Fprintf(stderr, "evtfix: %v\n", err)
		return 1
	}

	if info, err := os.Stat(directory); err != nil {
		fmt.Fprintf(stderr, "evtfix: %v\n", err)
		return 1
	} else if !info.IsDir() {
		fmt.Fprintf(stderr, "evtfix: %s is not a directory\n", directory)
		return 1
	}

	cfg, err := loadConfig(directory, options)
	if err != nil {
		fmt.Fprintf(stderr, "evtfix: %v\n", err)
		return 1
	}
	evtfix.ApplyConfig(cfg)

	all := cfg.GetAllConfig()
	dryRun := options.GetBool("dry-run")
	checkEnabled := all.Check.Enabled && !options.GetBool("no-check")

	runs, err := evtfix.ExistingRuns(directory, runMin, runMax, all.Run.FileFormat)
	if err != nil {
		fmt.Fprintf(stderr, "evtfix: %v\n", err)
		return 1
	}
	evtfix.VerboseLog(1, "Found %d of %d runs in %s", len(runs), runMax-runMin+1, directory)

	result := &summary{Directory: directory, DryRun: dryRun, Runs: []*runResult{}}
	jsonOutput := all.Output.Format == "json"
	human := &humanReporter{
		w:      stdout,
		colors: newPalette(colorEnabled(all.Output.Color, stdout)),
		quiet:  options.GetBool("quiet"),
		dryRun: dryRun,
	}

	shutdown, stopSignals := setupSignalHandler(stderr)
	defer stopSignals()

	for _, runNumber := range runs {
		if interrupted(shutdown) {
			result.Interrupted = true
			break
		}

		r := processRun(runNumber, evtfix.RunPath(directory, runNumber, all.Run.FileFormat), cfg, dryRun, checkEnabled)
		result.Runs = append(result.Runs, r)
		if r.failed() {
			result.Failed++
			// Keep stderr informative even when stdout carries JSON
			if jsonOutput {
				fmt.Fprintf(stderr, "evtfix: run %d: %s\n", r.Run, r.Error)
			}
		}
		if r.Check != nil && r.Check.Status == evtfix.CheckMismatch {
			result.Mismatched++
		}
		if !jsonOutput {
			human.report(r)
		}
	}

	if jsonOutput {
		if err := writeJSON(stdout, result); err != nil {
			fmt.Fprintf(stderr, "evtfix: %v\n", err)
			return 1
		}
	} else {
		human.finish(result)
	}

	if result.Failed > 0 || result.Interrupted {
		return 1
	}
	return 0
}

// processRun repairs one container and, unless disabled, checks it afterwards.
// A failure is recorded in the result; the caller moves on to the next run.
func processRun(runNumber int, path string, cfg *evtfix.Config, dryRun, checkEnabled bool) *runResult {
	r := &runResult{Run: runNumber, Path: path}

	report, err := evtfix.Repair(path, evtfix.RepairOptionsFromConfig(cfg, dryRun))
	r.Repair = report
	if err != nil {
		r.Error = err.Error()
		return r
	}

	// A dry run leaves the numbering as it was, so checking it says nothing
	// about the repaired container
	if !checkEnabled || dryRun {
		return r
	}
	check, err := evtfix.Check(path, evtfix.CheckOptionsFromConfig(cfg))
	if err != nil {
		r.Error = fmt.Sprintf("timestamp check: %v", err)
		return r
	}
	r.Check = check
	return r
}

// loadConfig reads the config file and layers the command line on top
func loadConfig(directory string, options *ParsedOptions) (*evtfix.Config, error) {
	configPath := evtfix.DefaultConfigPath(directory)
	if options.IsSet("config") {
		configPath = options.GetString("config")
	}
	cfg, err := evtfix.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	var overrides []string
	if options.IsSet("verbose") {
		overrides = append(overrides, "level:"+strconv.Itoa(options.GetInt("verbose")))
	}
	if options.IsSet("quiet") && options.GetBool("quiet") && !options.IsSet("verbose") {
		overrides = append(overrides, "level:0")
	}
	for _, name := range []string{"format", "color", "debug", "tolerance"} {
		if options.IsSet(name) {
			overrides = append(overrides, name+":"+options.GetString(name))
		}
	}
	if err := cfg.ApplyOverrides(overrides); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func parseRunNumber(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
	}
	return n, nil
}

func showHelp(w io.Writer, options *ParsedOptions) {
	fmt.Fprintf(w, "evtfix - repair event numbering of merged GET/FRIBDAQ run files\n\n")
	fmt.Fprintf(w, "Usage: evtfix [OPTIONS] <directory> <run_min> <run_max>\n\n")

	fmt.Fprintf(w, "Every existing run file in <directory> from run_min to run_max (inclusive)\n")
	fmt.Fprintf(w, "is repaired in place, then its timestamps are checked:\n")
	fmt.Fprintf(w, "  - GET events numbered from event_min are renumbered to start at 0\n")
	fmt.Fprintf(w, "  - FRIBDAQ events shifted up by one are moved down by one\n")
	fmt.Fprintf(w, "  - the GET/FRIBDAQ timestamp offset must stay within the tolerance\n\n")

	fmt.Fprintf(w, "Options:\n")
	options.ShowOptions(w)
	fmt.Fprintf(w, "\n")

	fmt.Fprintf(w, "Configuration:\n")
	fmt.Fprintf(w, "  <directory>/.evtfix/config (INI). Sections: [run] file_format,\n")
	fmt.Fprintf(w, "  [check] tolerance enabled, [output] format color, [verbose] level debug,\n")
	fmt.Fprintf(w, "  [progress] interval. Command-line options take precedence.\n\n")

	fmt.Fprintf(w, "Examples:\n")
	fmt.Fprintf(w, "  evtfix /data/e20009 1 120\n")
	fmt.Fprintf(w, "  evtfix -n -v /data/e20009 42 42\n")
	fmt.Fprintf(w, "  evtfix --format=json --no-check /data/e20009 1 10\n\n")

	fmt.Fprintf(w, "Notes:\n")
	fmt.Fprintf(w, "  - Renames are not reversible; use --dry-run first\n")
	fmt.Fprintf(w, "  - Missing run files are skipped\n")
	fmt.Fprintf(w, "  - A failed run is reported and the next run is processed\n")
}
