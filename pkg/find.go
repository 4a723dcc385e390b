package evtfix

import (
	"fmt"
)

// EntryInfo provides read-only access to container entry information for external tools
type EntryInfo struct {
	Name    string `json:"name"`  // Full path, e.g. "get/evt3_header"
	Group   string `json:"group"` // Parent group, "" for top-level groups
	Key     string `json:"key"`
	IsGroup bool   `json:"is_group"`
	DType   string `json:"dtype,omitempty"`
	Count   int    `json:"count"`
	Size    int    `json:"size"` // On-disk entry size including padding
}

// EntryCallback is called for each entry during container iteration
type EntryCallback func(entry *EntryInfo) bool

// IterateContainer opens the container at path read-only and calls callback
// for each entry in name order until it returns false
func IterateContainer(path string, callback EntryCallback) (err error) {
	c, err := Open(path, ReadOnly)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return c.ForEachEntry(callback)
}

// ForEachEntry calls callback for each entry of an open container in name order
func (c *Container) ForEachEntry(callback EntryCallback) error {
	if c.closed {
		return fmt.Errorf("container %s is closed", c.path)
	}
	var iterErr error
	c.index.ForEach(func(name string, ref *entryRef, group string) bool {
		entry := ref.entry()
		if entry == nil {
			iterErr = fmt.Errorf("entry %s is unreadable", name)
			return false
		}
		info := &EntryInfo{
			Name:    name,
			Group:   group,
			Key:     baseName(name),
			IsGroup: entry.IsGroup(),
			Count:   int(entry.Count),
			Size:    int(entry.Size),
		}
		if !info.IsGroup {
			info.DType = DType(entry.DType).String()
		}
		return callback(info)
	})
	return iterErr
}
