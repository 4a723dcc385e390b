// Package evtfix repairs the event numbering of merged GET/FRIBDAQ run
// containers in place and checks that the two acquisitions' timestamps agree.
//
// # Container Layout
//
// A run container holds three groups:
//
//	meta/meta                  event_min at [0], event_max at [2]
//	get/evt<N>_data            GET trace data
//	get/evt<N>_header          GET header, timestamp at [2]
//	frib/evt/evt<N>_1903       FRIBDAQ scaler/trace data
//	frib/evt/evt<N>_header     FRIBDAQ header, timestamp at [1]
//
// # Repair
//
// Two defects are fixed. When the GET MuTaNT event counter was not reset,
// event_min is not 0 and every GET entry is renumbered down to start at 0.
// When the FRIBDAQ stream is shifted by one, every FRIB entry is moved down
// one index:
//
//	report, err := evtfix.Repair("/data/run_0042.h5", evtfix.RepairOptions{})
//
// Renames are destructive and applied in ascending order; the order is
// checked up front with Plan.Validate. A failed rename aborts the run and
// leaves the container partially renamed.
//
// # Check
//
// Check derives the clock offset between the streams at event_min and scans
// the range for the first event drifting more than the tolerance:
//
//	result, err := evtfix.Check("/data/run_0042.h5", evtfix.DefaultCheckOptions())
//	if result.Status == evtfix.CheckMismatch {
//		fmt.Println(result.Mismatch)
//	}
//
// # Configuration
//
// Enable debug output:
//
//	evtfix.SetDebugFlags("renames,plan")
//	evtfix.SetVerboseLevel(2)
package evtfix
