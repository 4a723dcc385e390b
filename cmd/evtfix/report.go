package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	evtfix "github.com/mattkeenan/evtfix/pkg"
)

// runResult is the outcome of one run, as printed and as serialised to JSON
type runResult struct {
	Run    int                       `json:"run"`
	Path   string                    `json:"path"`
	Repair *evtfix.RepairReport      `json:"repair,omitempty"`
	Check  *evtfix.ConsistencyReport `json:"check,omitempty"`
	Error  string                    `json:"error,omitempty"`
}

func (r *runResult) failed() bool {
	return r.Error != ""
}

// summary is the JSON document written in --format=json mode
type summary struct {
	Directory   string       `json:"directory"`
	DryRun      bool         `json:"dry_run"`
	Runs        []*runResult `json:"runs"`
	Failed      int          `json:"failed"`
	Mismatched  int          `json:"mismatched"`
	Interrupted bool         `json:"interrupted,omitempty"`
}

// palette holds the colours of the human report
type palette struct {
	run  *color.Color
	ok   *color.Color
	warn *color.Color
	fail *color.Color
}

func newPalette(enabled bool) *palette {
	p := &palette{
		run:  color.New(color.Bold),
		ok:   color.New(color.FgGreen),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
	}
	for _, c := range []*color.Color{p.run, p.ok, p.warn, p.fail} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// colorEnabled resolves --color=auto against the output stream
func colorEnabled(mode string, w io.Writer) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// humanReporter prints each run as soon as it completes
type humanReporter struct {
	w      io.Writer
	colors *palette
	quiet  bool
	dryRun bool
}

func (h *humanReporter) report(r *runResult) {
	// Quiet mode keeps failures and findings only
	if h.quiet && !r.failed() && (r.Check == nil || r.Check.OK()) {
		return
	}

	h.colors.run.Fprintf(h.w, "Run %d", r.Run)
	fmt.Fprintf(h.w, ": %s\n", r.Path)

	if rep := r.Repair; rep != nil {
		h.reportGet(rep)
		h.reportFrib(rep)
	}
	if r.failed() {
		fmt.Fprintf(h.w, "  %s %s\n", h.colors.fail.Sprint("FAILED:"), r.Error)
		return
	}
	h.reportCheck(r.Check)
}

func (h *humanReporter) reportGet(rep *evtfix.RepairReport) {
	switch {
	case !rep.GetOffset:
		fmt.Fprintf(h.w, "  GET events %d..%d: %s\n", rep.Original.Min, rep.Original.Max, h.colors.ok.Sprint("ok"))
	case rep.DryRun:
		fmt.Fprintf(h.w, "  GET events %d..%d: %s to %d..%d\n", rep.Original.Min, rep.Original.Max,
			h.colors.warn.Sprint("would renumber"), rep.Final.Min, rep.Final.Max)
	default:
		fmt.Fprintf(h.w, "  GET events %d..%d: %s to %d..%d (%d renames)\n", rep.Original.Min, rep.Original.Max,
			h.colors.warn.Sprint("renumbered"), rep.Final.Min, rep.Final.Max, rep.GetRenamed)
	}
}

func (h *humanReporter) reportFrib(rep *evtfix.RepairReport) {
	switch rep.Frib {
	case evtfix.FribStatusOK:
		fmt.Fprintf(h.w, "  FRIBDAQ: %s\n", h.colors.ok.Sprint(rep.Frib))
	case evtfix.FribStatusShifted:
		fmt.Fprintf(h.w, "  FRIBDAQ: %s (%d renames)\n", h.colors.warn.Sprint(rep.Frib), rep.FribRenamed)
	case evtfix.FribStatusNeedsFix:
		if h.dryRun {
			fmt.Fprintf(h.w, "  FRIBDAQ: %s, would move evt1..evt%d down by one\n",
				h.colors.warn.Sprint(rep.Frib), rep.Original.Span()+1)
		} else {
			fmt.Fprintf(h.w, "  FRIBDAQ: %s\n", h.colors.warn.Sprint(rep.Frib))
		}
	default:
		fmt.Fprintf(h.w, "  FRIBDAQ: %s\n", rep.Frib)
	}
}

func (h *humanReporter) reportCheck(check *evtfix.ConsistencyReport) {
	switch {
	case check == nil:
		return
	case check.Status == evtfix.CheckMatch:
		fmt.Fprintf(h.w, "  Timestamps: %s (offset %v, %d events checked)\n",
			h.colors.ok.Sprint(check.Status), check.Offset, check.Checked)
	case check.Status == evtfix.CheckMismatch:
		fmt.Fprintf(h.w, "  Timestamps: %s %s\n", h.colors.fail.Sprint(check.Status), check.Mismatch)
	default:
		fmt.Fprintf(h.w, "  Timestamps: %s\n", check.Status)
	}
}

func (h *humanReporter) finish(s *summary) {
	if h.quiet && s.Failed == 0 && !s.Interrupted {
		return
	}
	if len(s.Runs) == 0 {
		fmt.Fprintf(h.w, "No runs found in %s\n", s.Directory)
		return
	}
	fmt.Fprintf(h.w, "\n%d runs processed", len(s.Runs))
	if s.Failed > 0 {
		fmt.Fprintf(h.w, ", %s", h.colors.fail.Sprintf("%d failed", s.Failed))
	}
	if s.Mismatched > 0 {
		fmt.Fprintf(h.w, ", %s", h.colors.warn.Sprintf("%d with timestamp mismatches", s.Mismatched))
	}
	if s.Interrupted {
		fmt.Fprintf(h.w, ", %s", h.colors.fail.Sprint("interrupted"))
	}
	fmt.Fprintf(h.w, "\n")
}

func writeJSON(w io.Writer, s *summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %v", err)
	}
	fmt.Fprintf(w, "%s\n", data)
	return nil
}
