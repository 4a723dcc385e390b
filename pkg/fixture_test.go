package evtfix

import (
	"fmt"
	"path/filepath"
	"sort"
	"testing"
)

// runFixture describes a synthetic merged run container
type runFixture struct {
	eventMin, eventMax int64
	getEvents          []int64 // GET indices present
	fribEvents         []int64 // FRIB indices present
	noFrib             bool    // omit the frib group entirely
	emptyFrib          bool    // frib/evt exists but has no entries
	getTimestamp       func(event int64) float64
	fribTimestamp      func(event int64) float64
}

func eventSpan(from, to int64) []int64 {
	var events []int64
	for e := from; e <= to; e++ {
		events = append(events, e)
	}
	return events
}

// build writes the fixture and returns its path
func (f runFixture) build(t testing.TB, dir string) string {
	t.Helper()
	path := filepath.Join(dir, fmt.Sprintf("fixture_%d.h5", len(f.getEvents)))
	f.buildAt(t, path)
	return path
}

func (f runFixture) buildAt(t testing.TB, path string) {
	t.Helper()
	getTs := f.getTimestamp
	if getTs == nil {
		getTs = func(e int64) float64 { return float64(1000 + 10*e) }
	}
	fribTs := f.fribTimestamp
	if fribTs == nil {
		fribTs = func(e int64) float64 { return float64(10 * e) }
	}

	b := Create(path)
	if err := b.PutInt64(MetaGroup, MetaRecord, f.eventMin, 0, f.eventMax, 0); err != nil {
		t.Fatalf("failed to add meta: %v", err)
	}
	if err := b.Group(GetGroup); err != nil {
		t.Fatalf("failed to add get group: %v", err)
	}
	for _, e := range f.getEvents {
		if err := b.PutInt16(GetGroup, fmt.Sprintf(GetDataKey, e), int16(e), 1, 2, 3); err != nil {
			t.Fatalf("failed to add get data %d: %v", e, err)
		}
		if err := b.PutFloat64(GetGroup, fmt.Sprintf(GetHeaderKey, e), float64(e), 0, getTs(e)); err != nil {
			t.Fatalf("failed to add get header %d: %v", e, err)
		}
	}

	if !f.noFrib {
		if err := b.Group(FribEvents); err != nil {
			t.Fatalf("failed to add frib group: %v", err)
		}
		if !f.emptyFrib {
			for _, e := range f.fribEvents {
				if err := b.PutInt16(FribEvents, fmt.Sprintf(FribDataKey, e), int16(e), 4, 5); err != nil {
					t.Fatalf("failed to add frib data %d: %v", e, err)
				}
				if err := b.PutFloat64(FribEvents, fmt.Sprintf(FribHeaderKey, e), float64(e), fribTs(e)); err != nil {
					t.Fatalf("failed to add frib header %d: %v", e, err)
				}
			}
		}
	}

	if err := b.Close(); err != nil {
		t.Fatalf("failed to write container: %v", err)
	}
}

// groupKeys returns the keys of a group, reopening the container read-only
func groupKeys(t testing.TB, path, group string) []string {
	t.Helper()
	c, err := Open(path, ReadOnly)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer c.Close()
	g, err := c.Group(group)
	if err != nil {
		t.Fatalf("failed to open group %s: %v", group, err)
	}
	return g.Keys()
}

func readMeta(t testing.TB, path string) EventRange {
	t.Helper()
	c, err := Open(path, ReadOnly)
	if err != nil {
		t.Fatalf("failed to open %s: %v", path, err)
	}
	defer c.Close()
	r, err := c.Meta()
	if err != nil {
		t.Fatalf("failed to read meta: %v", err)
	}
	return r
}

// keySet builds the sorted key list a group should have for the given events
func keySet(events []int64, formats ...string) []string {
	set := make(map[string]bool)
	for _, e := range events {
		for _, format := range formats {
			set[fmt.Sprintf(format, e)] = true
		}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
