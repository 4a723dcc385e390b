package evtfix

import (
	"fmt"
	"sort"
)

// Group is a view of the entries directly below one group of a container
type Group struct {
	name      string
	container *Container
}

// Name returns the full group path
func (g *Group) Name() string {
	return g.name
}

// HasKey reports whether key names a record or a subgroup of g
func (g *Group) HasKey(key string) bool {
	if g.container.closed {
		return false
	}
	full := joinName(g.name, key)
	if _, ok := g.container.index.Find(full); ok {
		return true
	}
	return g.container.groups[full]
}

// Keys returns the direct members of g (records and subgroups) in sorted order
func (g *Group) Keys() []string {
	seen := make(map[string]bool)
	g.container.index.ForEachInGroup(g.name, func(key string, ref *entryRef) bool {
		seen[key] = true
		return true
	})
	// Groups that only exist implicitly through their children
	for name := range g.container.groups {
		if parent, key := splitName(name); parent == g.name {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of direct members of g
func (g *Group) Len() int {
	return len(g.Keys())
}

// Read returns the record stored under key
func (g *Group) Read(key string) (*Record, error) {
	return g.container.readRecord(g.name, key)
}

// Rename moves the record stored under oldKey to newKey. Only the entry name
// changes; the payload stays where it is. Fails with *KeyNotFoundError when
// oldKey is absent and *KeyCollisionError when newKey is taken.
func (g *Group) Rename(oldKey, newKey string) error {
	c := g.container
	if c.closed {
		return fmt.Errorf("container %s is closed", c.path)
	}
	if c.mode != ReadWrite {
		return fmt.Errorf("container %s is read-only", c.path)
	}

	oldName := joinName(g.name, oldKey)
	newName := joinName(g.name, newKey)

	ref, ok := c.index.Find(oldName)
	if !ok {
		return &KeyNotFoundError{Group: g.name, Key: oldKey}
	}
	if _, taken := c.index.Find(newName); taken || c.groups[newName] {
		return &KeyCollisionError{Group: g.name, Key: newKey}
	}
	if err := validateEntryName(newName); err != nil {
		return err
	}

	entry := ref.entry()
	if entry == nil {
		return fmt.Errorf("entry %s is unreadable", oldName)
	}
	if entry.IsGroup() {
		return fmt.Errorf("cannot rename group %s", oldName)
	}

	// Remove under the old key before the name bytes change underneath the skiplist
	moved := *ref
	if !c.index.Delete(oldName) {
		return fmt.Errorf("failed to unindex %s", oldName)
	}
	if err := entry.setName(newName); err != nil {
		return err
	}
	if !c.index.Insert(moved, g.name) {
		return fmt.Errorf("failed to index %s", newName)
	}

	if IsDebugEnabled("renames") {
		VerboseLog(0, "renamed %s -> %s", oldName, newName)
	}
	return nil
}

// WriteScalar overwrites element index of the record stored under key
func (g *Group) WriteScalar(key string, index int, value float64) error {
	c := g.container
	if c.closed {
		return fmt.Errorf("container %s is closed", c.path)
	}
	if c.mode != ReadWrite {
		return fmt.Errorf("container %s is read-only", c.path)
	}
	record, err := g.Read(key)
	if err != nil {
		return err
	}
	if err := record.checkIndex(index); err != nil {
		return err
	}
	return putElement(record.dtype, record.data, index, value)
}
