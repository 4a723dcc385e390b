package evtfix

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

var globalVerboseLevel int
var debugFlags map[string]bool
var logOutput io.Writer = os.Stderr

// SetVerboseLevel sets the global verbose level
func SetVerboseLevel(level int) {
	globalVerboseLevel = level
}

// GetVerboseLevel returns the current verbose level
func GetVerboseLevel() int {
	return globalVerboseLevel
}

// SetLogOutput redirects verbose and trace output; nil restores stderr
func SetLogOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	logOutput = w
}

// VerboseEnter logs function entry at level 3+ and returns a defer function for exit logging
func VerboseEnter() func() {
	if globalVerboseLevel < 3 {
		return func() {}
	}

	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return func() {}
	}

	funcName := runtime.FuncForPC(pc).Name()
	if idx := strings.LastIndex(funcName, "."); idx != -1 {
		funcName = funcName[idx+1:]
	}

	fmt.Fprintf(logOutput, "[TRACE] Entering function: %s\n", funcName)

	return func() {
		fmt.Fprintf(logOutput, "[TRACE] Exiting function: %s\n", funcName)
	}
}

// VerboseLog logs a message at the specified verbose level
func VerboseLog(level int, format string, args ...interface{}) {
	if globalVerboseLevel >= level {
		fmt.Fprintf(logOutput, "[VERBOSE-%d] ", level)
		fmt.Fprintf(logOutput, format, args...)
		if !strings.HasSuffix(format, "\n") {
			fmt.Fprintf(logOutput, "\n")
		}
	}
}

// SetDebugFlags sets the debug flags from a comma-separated string
// Supports both simple flags ("renames,plan") and key:value format ("renames:true,plan:false")
func SetDebugFlags(flagsStr string) {
	debugFlags = make(map[string]bool)
	if flagsStr == "" {
		return
	}

	for _, flag := range strings.Split(flagsStr, ",") {
		flag = strings.TrimSpace(flag)
		if flag == "" {
			continue
		}

		parts := strings.SplitN(flag, ":", 2)
		flagName := strings.ToLower(parts[0])
		flagValue := true

		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "false", "0", "no", "off":
				flagValue = false
			}
		}

		debugFlags[flagName] = flagValue
	}
}

// IsDebugEnabled returns true if the specified debug flag is enabled
func IsDebugEnabled(flag string) bool {
	if debugFlags == nil {
		return false
	}
	return debugFlags[strings.ToLower(flag)]
}

// Progress reports a long rename loop every interval steps at verbose level 1
type Progress struct {
	label    string
	total    int
	interval int
	done     int
}

// NewProgress creates a reporter for total steps; interval <= 0 uses the default
func NewProgress(label string, total int, interval int) *Progress {
	if interval <= 0 {
		interval = DefaultProgressInterval
	}
	return &Progress{label: label, total: total, interval: interval}
}

// Step records one completed step
func (p *Progress) Step() {
	if p == nil {
		return
	}
	p.done++
	if p.done%p.interval == 0 || p.done == p.total {
		VerboseLog(1, "%s: %d/%d", p.label, p.done, p.total)
	}
}

// Done returns the number of completed steps
func (p *Progress) Done() int {
	if p == nil {
		return 0
	}
	return p.done
}
