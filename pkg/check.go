package evtfix

import (
	"errors"
	"fmt"
)

// CheckStatus is the outcome of a timestamp consistency check
type CheckStatus int

const (
	CheckMatch      CheckStatus = iota // Offset constant within tolerance over the whole range
	CheckMismatch                      // First drifting event recorded in the report
	CheckNoFribData                    // Nothing to compare against
)

func (s CheckStatus) String() string {
	switch s {
	case CheckMatch:
		return "match"
	case CheckMismatch:
		return "mismatch"
	case CheckNoFribData:
		return "no FRIBDAQ data"
	default:
		return "unknown"
	}
}

// MarshalText renders the status in JSON reports
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText reads a status written by MarshalText
func (s *CheckStatus) UnmarshalText(text []byte) error {
	for _, status := range []CheckStatus{CheckMatch, CheckMismatch, CheckNoFribData} {
		if status.String() == string(text) {
			*s = status
			return nil
		}
	}
	return fmt.Errorf("unknown check status %q", text)
}

// CheckOptions controls a consistency check
type CheckOptions struct {
	Tolerance        float64 // Allowed drift above the reference offset
	ProgressInterval int
}

// DefaultCheckOptions returns tolerance 1 and the default progress interval
func DefaultCheckOptions() CheckOptions {
	return CheckOptions{Tolerance: DefaultTolerance, ProgressInterval: DefaultProgressInterval}
}

// TimestampMismatch describes the first event whose clock offset drifted
type TimestampMismatch struct {
	Event         int64   `json:"event"`
	Offset        int64   `json:"offset"`
	Expected      float64 `json:"expected"`
	GetTimestamp  float64 `json:"get_timestamp"`
	FribTimestamp float64 `json:"frib_timestamp"`
}

func (m *TimestampMismatch) String() string {
	return fmt.Sprintf("Event %d timestamp mismatch. Found offset of %d from get %v and frib %v, expected %v",
		m.Event, m.Offset, m.GetTimestamp, m.FribTimestamp, m.Expected)
}

// ConsistencyReport is the result of Check. A mismatch is a finding, not an error.
type ConsistencyReport struct {
	Path     string             `json:"path"`
	Range    EventRange         `json:"range"`
	Status   CheckStatus        `json:"status"`
	Offset   float64            `json:"offset"`
	Checked  int                `json:"checked"`
	Mismatch *TimestampMismatch `json:"mismatch,omitempty"`
}

// OK reports whether no mismatch was found
func (r *ConsistencyReport) OK() bool {
	return r.Status != CheckMismatch
}

// Check verifies that the GET and FRIB timestamps of the container at path
// differ by a constant offset. The container is opened read-only.
func Check(path string, opts CheckOptions) (report *ConsistencyReport, err error) {
	defer VerboseEnter()()

	c, err := Open(path, ReadOnly)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return CheckContainer(c, opts)
}

// CheckContainer runs the timestamp scan over event_min..event_max-1 and
// stops at the first event whose offset exceeds the reference by more than
// the tolerance.
func CheckContainer(c *Container, opts CheckOptions) (*ConsistencyReport, error) {
	VerboseLog(1, "Checking that timestamps match up between the two DAQs...")

	r, err := c.Meta()
	if err != nil {
		return nil, err
	}
	report := &ConsistencyReport{Path: c.Path(), Range: r}

	getGroup, err := c.Group(GetGroup)
	if err != nil {
		return nil, err
	}
	fribGroup, err := c.Group(FribEvents)
	if err != nil {
		var missing *MissingGroupError
		if errors.As(err, &missing) {
			report.Status = CheckNoFribData
			return report, nil
		}
		return nil, err
	}
	if fribGroup.Len() == 0 {
		report.Status = CheckNoFribData
		return report, nil
	}

	// Reference offset is taken in floating point, the scan in integers
	getRef, err := headerField(getGroup, GetHeaderKey, r.Min, GetTimestampField)
	if err != nil {
		return nil, err
	}
	fribRef, err := headerField(fribGroup, FribHeaderKey, r.Min, FribTimestampField)
	if err != nil {
		return nil, err
	}
	offset := getRef - fribRef
	report.Offset = offset

	total := 0
	if r.Max > r.Min {
		total = int(r.Max - r.Min)
	}
	progress := NewProgress("timestamp check", total, opts.ProgressInterval)

	for event := r.Min; event < r.Max; event++ {
		getHeader, err := getGroup.Read(fmt.Sprintf(GetHeaderKey, event))
		if err != nil {
			return nil, err
		}
		fribHeader, err := fribGroup.Read(fmt.Sprintf(FribHeaderKey, event))
		if err != nil {
			return nil, err
		}
		getTs, err := getHeader.Int(GetTimestampField)
		if err != nil {
			return nil, err
		}
		fribTs, err := fribHeader.Int(FribTimestampField)
		if err != nil {
			return nil, err
		}

		thisOffset := getTs - fribTs
		if float64(thisOffset)-offset > opts.Tolerance {
			rawGet, _ := getHeader.Float(GetTimestampField)
			rawFrib, _ := fribHeader.Float(FribTimestampField)
			report.Status = CheckMismatch
			report.Mismatch = &TimestampMismatch{
				Event:         event,
				Offset:        thisOffset,
				Expected:      offset,
				GetTimestamp:  rawGet,
				FribTimestamp: rawFrib,
			}
			VerboseLog(1, "%s", report.Mismatch)
			return report, nil
		}
		report.Checked++
		progress.Step()
	}

	report.Status = CheckMatch
	VerboseLog(1, "Finished, timestamps match as expected")
	return report, nil
}

func headerField(g *Group, keyFormat string, event int64, field int) (float64, error) {
	header, err := g.Read(fmt.Sprintf(keyFormat, event))
	if err != nil {
		return 0, err
	}
	return header.Float(field)
}
