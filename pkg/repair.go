package evtfix

import (
	"errors"
	"fmt"
)

// FribStatus describes the state of the beam diagnostics stream
type FribStatus int

const (
	FribStatusNoData   FribStatus = iota // No frib group, no frib/evt group or no entries
	FribStatusOK                         // evt0 and evt{range} both present
	FribStatusShifted                    // Shift-by-one repair applied
	FribStatusNeedsFix                   // Shift detected, not applied (dry run)
)

func (s FribStatus) String() string {
	switch s {
	case FribStatusNoData:
		return "no FRIBDAQ data"
	case FribStatusOK:
		return "ok"
	case FribStatusShifted:
		return "shift repaired"
	case FribStatusNeedsFix:
		return "shift detected"
	default:
		return "unknown"
	}
}

// MarshalText renders the status in JSON reports
func (s FribStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText reads a status written by MarshalText
func (s *FribStatus) UnmarshalText(text []byte) error {
	for _, status := range []FribStatus{FribStatusNoData, FribStatusOK, FribStatusShifted, FribStatusNeedsFix} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown FRIBDAQ status %q", text)
}

// RepairOptions controls a repair
type RepairOptions struct {
	DryRun           bool // Compute and validate plans only, open read-only
	ProgressInterval int  // Steps between progress lines, 0 for the default
}

// RepairReport records what a repair found and did
type RepairReport struct {
	Path        string     `json:"path"`
	DryRun      bool       `json:"dry_run"`
	Original    EventRange `json:"original"`
	Final       EventRange `json:"final"`
	GetOffset   bool       `json:"get_offset"`
	GetRenamed  int        `json:"get_renamed"`
	Frib        FribStatus `json:"frib"`
	FribRenamed int        `json:"frib_renamed"`
}

// Repair fixes the event numbering of the container at path in place.
// This is not reversible. The container is closed on every return path.
func Repair(path string, opts RepairOptions) (report *RepairReport, err error) {
	defer VerboseEnter()()

	mode := ReadWrite
	if opts.DryRun {
		mode = ReadOnly
	}
	c, err := Open(path, mode)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return RepairContainer(c, opts)
}

// RepairContainer runs the GET offset repair followed by the FRIB shift repair
func RepairContainer(c *Container, opts RepairOptions) (*RepairReport, error) {
	VerboseLog(1, "Fixing run %s...", c.Path())

	original, err := c.Meta()
	if err != nil {
		return nil, err
	}
	report := &RepairReport{
		Path:     c.Path(),
		DryRun:   opts.DryRun,
		Original: original,
		Final:    original,
	}

	// Inclusive on the max as well as min. Taken before the GET repair
	// rewrites the metadata.
	eventRange := original.Span()

	if err := repairGet(c, original, opts, report); err != nil {
		return report, err
	}
	if err := repairFrib(c, eventRange, opts, report); err != nil {
		return report, err
	}
	return report, nil
}

func repairGet(c *Container, r EventRange, opts RepairOptions, report *RepairReport) error {
	VerboseLog(1, "Checking GET data...")
	plan := GetOffsetPlan(r)
	if plan.Len() == 0 {
		return nil
	}
	report.GetOffset = true
	VerboseLog(1, "GET MuTaNT offset detected (first event %d)", r.Min)

	if err := plan.Validate(); err != nil {
		return err
	}
	group, err := c.Group(GetGroup)
	if err != nil {
		return err
	}

	if opts.DryRun {
		return plan.Simulate(group)
	}

	progress := NewProgress("GET renumber", plan.Len(), opts.ProgressInterval)
	n, err := plan.Apply(group, progress)
	report.GetRenamed = n
	if err != nil {
		return fmt.Errorf("GET offset repair of %s: %w", c.Path(), err)
	}

	report.Final = EventRange{Min: 0, Max: r.Max - r.Min}
	if err := c.SetMeta(report.Final); err != nil {
		return fmt.Errorf("failed to update metadata: %w", err)
	}
	VerboseLog(1, "GET data repaired.")
	return nil
}

// DetectFrib classifies the FRIB stream; eventRange must come from the
// metadata as it was before any GET repair
func DetectFrib(c *Container, eventRange int64) (FribStatus, *Group, error) {
	group, err := c.Group(FribEvents)
	if err != nil {
		var missing *MissingGroupError
		if errors.As(err, &missing) {
			return FribStatusNoData, nil, nil
		}
		return FribStatusNoData, nil, err
	}
	if group.Len() == 0 {
		return FribStatusNoData, group, nil
	}
	if group.HasKey(fmt.Sprintf(FribDataKey, 0)) {
		VerboseLog(2, "FRIB evt start looks ok. Checking end...")
		if group.HasKey(fmt.Sprintf(FribDataKey, eventRange)) {
			VerboseLog(2, "FRIB evt end looks ok.")
			return FribStatusOK, group, nil
		}
	}
	return FribStatusNeedsFix, group, nil
}

func repairFrib(c *Container, eventRange int64, opts RepairOptions, report *RepairReport) error {
	VerboseLog(1, "Checking FRIB data...")
	status, group, err := DetectFrib(c, eventRange)
	report.Frib = status
	if err != nil {
		return err
	}
	switch status {
	case FribStatusNoData:
		VerboseLog(1, "Run %s did not contain FRIBDAQ data. Skipping.", c.Path())
		return nil
	case FribStatusOK:
		return nil
	}

	VerboseLog(1, "FRIB offset detected. Fixing FRIB data...")
	plan := FribShiftPlan(eventRange)
	if err := plan.Validate(); err != nil {
		return err
	}
	if opts.DryRun {
		return plan.Simulate(group)
	}

	progress := NewProgress("FRIB shift", plan.Len(), opts.ProgressInterval)
	n, err := plan.Apply(group, progress)
	report.FribRenamed = n
	if err != nil {
		return fmt.Errorf("FRIB shift repair of %s: %w", c.Path(), err)
	}
	report.Frib = FribStatusShifted
	VerboseLog(1, "Run %s fixed.", c.Path())
	return nil
}
