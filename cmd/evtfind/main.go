package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	evtfix "github.com/mattkeenan/evtfix/pkg"
)

// version is set at link time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	if len(argv) == 0 {
		showUsage(stderr)
		return 1
	}

	// Handle help and version early
	switch argv[0] {
	case "--help", "-h", "help":
		showHelp(stdout)
		return 0
	case "--version":
		fmt.Fprintf(stdout, "evtfind %s\n", version)
		return 0
	}

	args, err := parseArguments(argv)
	if err != nil {
		fmt.Fprintf(stderr, "evtfind: %v\n", err)
		return 1
	}

	evtfix.SetLogOutput(stderr)
	defer evtfix.SetLogOutput(nil)
	evtfix.SetVerboseLevel(args.Verbose)
	defer evtfix.SetVerboseLevel(0)

	runFormat, err := resolveRunFormat(args)
	if err != nil {
		fmt.Fprintf(stderr, "evtfind: %v\n", err)
		return 1
	}

	runs, err := evtfix.ExistingRuns(args.Directory, args.RunMin, args.RunMax, runFormat)
	if err != nil {
		fmt.Fprintf(stderr, "evtfind: %v\n", err)
		return 1
	}

	status := 0
	for _, runNumber := range runs {
		path := evtfix.RunPath(args.Directory, runNumber, runFormat)
		if err := findInRun(path, args, stdout); err != nil {
			fmt.Fprintf(stderr, "evtfind: run %d: %v\n", runNumber, err)
			status = 1
		}
	}
	return status
}

func showUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: evtfind [expressions] <directory> <run_min> <run_max>\n")
	fmt.Fprintf(w, "Try 'evtfind --help' for more information.\n")
}

func showHelp(w io.Writer) {
	fmt.Fprintf(w, "evtfind - find-style listing of run file entries\n\n")
	fmt.Fprintf(w, "Usage: evtfind [expressions] <directory> <run_min> <run_max>\n\n")

	fmt.Fprintf(w, "TESTS:\n")
	fmt.Fprintf(w, "  --group GROUP     Entries below GROUP (e.g. get, frib/evt)\n")
	fmt.Fprintf(w, "  --name PATTERN    Match entry key (glob, e.g. 'evt1*_header')\n")
	fmt.Fprintf(w, "  --type TYPE       Entry type (g=group, r=record)\n\n")

	fmt.Fprintf(w, "ACTIONS:\n")
	fmt.Fprintf(w, "  --print           Print run file and entry path (default)\n")
	fmt.Fprintf(w, "  --ls              Detailed listing (type, element count, size)\n")
	fmt.Fprintf(w, "  --meta            Print each run's event_min and event_max\n\n")

	fmt.Fprintf(w, "GLOBAL OPTIONS:\n")
	fmt.Fprintf(w, "  --config FILE     Config file (default: <directory>/.evtfix/config)\n")
	fmt.Fprintf(w, "  -v                Verbose output (repeat for more); -v alone implies --ls\n\n")

	fmt.Fprintf(w, "EXAMPLES:\n")
	fmt.Fprintf(w, "  evtfind --meta /data/e20009 1 120                      # Event ranges\n")
	fmt.Fprintf(w, "  evtfind --group frib/evt --name 'evt0_*' /data 42 42   # FRIB event 0\n")
	fmt.Fprintf(w, "  evtfind --group get --ls /data 1 3                     # GET entries\n")
}

// Arguments represents parsed command line arguments
type Arguments struct {
	Directory  string
	RunMin     int
	RunMax     int
	Expression Expression
	Actions    []Action
	ConfigPath string
	Verbose    int
}

// Expression represents a test on an entry
type Expression interface {
	Evaluate(entry *evtfix.EntryInfo) (bool, error)
	String() string
}

// Action represents an action to perform on matching entries
type Action interface {
	Execute(entry *evtfix.EntryInfo, context *EvalContext) error
	String() string
}

// EvalContext provides the run being searched to actions
type EvalContext struct {
	RunPath string
	Output  io.Writer
}

func parseArguments(argv []string) (*Arguments, error) {
	args := &Arguments{}
	var expressions []Expression
	var positional []string
	showMeta := false

	// value returns the argument of an option given as "--opt value" or "--opt=value"
	value := func(i *int, opt string) (string, error) {
		if eq := strings.Index(argv[*i], "="); eq != -1 {
			return argv[*i][eq+1:], nil
		}
		if *i+1 >= len(argv) {
			return "", fmt.Errorf("%s requires an argument", opt)
		}
		*i++
		return argv[*i], nil
	}

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		opt := arg
		if eq := strings.Index(arg, "="); eq != -1 && strings.HasPrefix(arg, "--") {
			opt = arg[:eq]
		}

		switch {
		case opt == "--group":
			v, err := value(&i, opt)
			if err != nil {
				return nil, err
			}
			expressions = append(expressions, &GroupExpression{Group: strings.Trim(v, "/")})
		case opt == "--name":
			v, err := value(&i, opt)
			if err != nil {
				return nil, err
			}
			if _, err := filepath.Match(v, ""); err != nil {
				return nil, fmt.Errorf("invalid --name pattern %q: %v", v, err)
			}
			expressions = append(expressions, &NameExpression{Pattern: v})
		case opt == "--type":
			v, err := value(&i, opt)
			if err != nil {
				return nil, err
			}
			if v != "g" && v != "r" {
				return nil, fmt.Errorf("invalid --type %q (supported: g, r)", v)
			}
			expressions = append(expressions, &TypeExpression{Group: v == "g"})
		case opt == "--config":
			v, err := value(&i, opt)
			if err != nil {
				return nil, err
			}
			args.ConfigPath = v
		case opt == "--print":
			args.Actions = append(args.Actions, &PrintAction{})
		case opt == "--ls":
			args.Actions = append(args.Actions, &LsAction{})
		case opt == "--meta":
			showMeta = true
		case strings.HasPrefix(arg, "-v") && strings.Trim(arg[1:], "v") == "":
			args.Verbose += len(arg) - 1
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			return nil, fmt.Errorf("unknown option: %s", arg)
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) != 3 {
		return nil, fmt.Errorf("expected <directory> <run_min> <run_max>, got %d arguments", len(positional))
	}
	args.Directory = positional[0]
	var err error
	if args.RunMin, err = parseRunNumber("run_min", positional[1]); err != nil {
		return nil, err
	}
	if args.RunMax, err = parseRunNumber("run_max", positional[2]); err != nil {
		return nil, err
	}

	// Combine multiple tests with implicit AND
	for _, expr := range expressions {
		if args.Expression == nil {
			args.Expression = expr
		} else {
			args.Expression = &AndExpression{Left: args.Expression, Right: expr}
		}
	}

	// --meta on its own lists event ranges only
	if len(args.Actions) == 0 && (!showMeta || len(expressions) > 0) {
		if args.Verbose > 0 {
			args.Actions = append(args.Actions, &LsAction{})
		} else {
			args.Actions = append(args.Actions, &PrintAction{})
		}
	}
	if showMeta {
		args.Actions = append([]Action{&MetaAction{}}, args.Actions...)
	}
	return args, nil
}

func parseRunNumber(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %q", name, value)
	}
	return n, nil
}

// resolveRunFormat reads the run file naming from the config, if any
func resolveRunFormat(args *Arguments) (string, error) {
	configPath := args.ConfigPath
	if configPath == "" {
		configPath = evtfix.DefaultConfigPath(args.Directory)
	}
	cfg, err := evtfix.LoadConfig(configPath)
	if err != nil {
		return "", err
	}
	format := cfg.GetRunConfig().FileFormat
	if err := evtfix.ValidateRunFormat(format); err != nil {
		return "", err
	}
	return format, nil
}

// findInRun evaluates the expression over one container and runs the actions on matches
func findInRun(path string, args *Arguments, w io.Writer) error {
	c, err := evtfix.Open(path, evtfix.ReadOnly)
	if err != nil {
		return err
	}
	defer c.Close()

	context := &EvalContext{RunPath: path, Output: w}
	var entryActions []Action
	for _, action := range args.Actions {
		if meta, ok := action.(*MetaAction); ok {
			if err := meta.Describe(c, context); err != nil {
				return err
			}
			continue
		}
		entryActions = append(entryActions, action)
	}
	if len(entryActions) == 0 {
		return nil
	}

	var actionErr error
	err = c.ForEachEntry(func(entry *evtfix.EntryInfo) bool {
		if args.Expression != nil {
			match, err := args.Expression.Evaluate(entry)
			if err != nil {
				actionErr = err
				return false
			}
			if !match {
				return true
			}
		}
		for _, action := range entryActions {
			if err := action.Execute(entry, context); err != nil {
				actionErr = err
				return false
			}
		}
		return true
	})
	if err != nil {
		return err
	}
	return actionErr
}
