package evtfix

import (
	"strings"

	zcsl "github.com/mattkeenan/zerocopyskiplist"
)

// entryRef locates an entry inside a container mapping by offset, so the
// skiplist never holds pointers into memory that may be unmapped
type entryRef struct {
	Offset    int // Offset from start of entry data
	container *Container
}

// entry resolves the ref against the current mapping
func (ref *entryRef) entry() *recordEntry {
	if ref.container == nil {
		return nil
	}
	e, err := entryAt(ref.container.entryData(), -1, ref.Offset)
	if err != nil {
		return nil
	}
	return e
}

// entryIndex is an ordered index of container entries keyed by full path
type entryIndex struct {
	skiplist *zcsl.ZeroCopySkiplist[entryRef, string, string]
}

func newEntryIndex(maxLevels int) *entryIndex {
	if maxLevels < 8 {
		maxLevels = 16
	}

	// Key is copied out of the mapping; names change in place on rename
	getKeyFromItem := func(ref *entryRef) string {
		e := ref.entry()
		if e == nil {
			return ""
		}
		return e.FullName()
	}

	getItemSize := func(ref *entryRef) int {
		e := ref.entry()
		if e == nil {
			return 0
		}
		return int(e.Size)
	}

	cmpKey := func(a, b string) int {
		return strings.Compare(a, b)
	}

	return &entryIndex{
		skiplist: zcsl.MakeZeroCopySkiplist[entryRef, string, string](
			maxLevels,
			getKeyFromItem,
			getItemSize,
			cmpKey,
		),
	}
}

// Insert adds an entry; context carries the parent group name
func (ix *entryIndex) Insert(ref entryRef, group string) bool {
	return ix.skiplist.Insert(&ref, group)
}

// Find returns the ref stored under name
func (ix *entryIndex) Find(name string) (*entryRef, bool) {
	itemPtr, _ := ix.skiplist.Find(name)
	if itemPtr == nil {
		return nil, false
	}
	return itemPtr.Item(), true
}

// Delete removes an entry by name
func (ix *entryIndex) Delete(name string) bool {
	return ix.skiplist.Delete(name)
}

// ForEach iterates through all entries in key order
func (ix *entryIndex) ForEach(callback func(name string, ref *entryRef, group string) bool) {
	for current := ix.skiplist.First(); current != nil; current = current.Next() {
		ref := current.Item()
		e := ref.entry()
		if e == nil {
			continue
		}
		if !callback(e.FullName(), ref, current.Context()) {
			break
		}
	}
}

// ForEachInGroup iterates through the direct children of group
func (ix *entryIndex) ForEachInGroup(group string, callback func(key string, ref *entryRef) bool) {
	ix.ForEach(func(name string, ref *entryRef, parent string) bool {
		if parent != group {
			return true
		}
		return callback(baseName(name), ref)
	})
}

// Length returns the number of entries
func (ix *entryIndex) Length() int {
	return ix.skiplist.Length()
}

// splitName splits "frib/evt/evt0_1903" into ("frib/evt", "evt0_1903")
func splitName(name string) (string, string) {
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		return name[:idx], name[idx+1:]
	}
	return "", name
}

func baseName(name string) string {
	_, key := splitName(name)
	return key
}

func joinName(group, key string) string {
	if group == "" {
		return key
	}
	return group + "/" + key
}
