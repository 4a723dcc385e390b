package evtfix

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Mode selects how a container is opened
type Mode int

const (
	ReadOnly  Mode = iota // Shared lock, read-only mapping
	ReadWrite             // Exclusive lock, shared writable mapping
)

func (m Mode) String() string {
	if m == ReadWrite {
		return "r+"
	}
	return "r"
}

// Container is an open, memory-mapped event container. All mutations go
// straight to the shared mapping; Close syncs them and restores the clean flag.
type Container struct {
	path   string
	mode   Mode
	file   *os.File
	data   []byte
	index  *entryIndex
	groups map[string]bool
	closed bool
}

// EventRange is the event_min / event_max pair stored in the metadata record
type EventRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Span returns max - min, the "event range" of the acquisition
func (r EventRange) Span() int64 {
	return r.Max - r.Min
}

// Open maps the container at path. Errors are always *AccessError.
func Open(path string, mode Mode) (*Container, error) {
	defer VerboseEnter()()

	flags := os.O_RDONLY
	if mode == ReadWrite {
		flags = os.O_RDWR
	}
	file, err := os.OpenFile(path, flags, 0)
	if err != nil {
		return nil, &AccessError{Path: path, Err: err}
	}

	c := &Container{
		path:   path,
		mode:   mode,
		file:   file,
		groups: make(map[string]bool),
	}
	if err := c.load(); err != nil {
		c.release()
		return nil, &AccessError{Path: path, Err: err}
	}

	VerboseLog(2, "Opened container %s (%s, %d entries)", path, mode, c.index.Length())
	return c, nil
}

// load locks, maps and indexes the file
func (c *Container) load() error {
	fd := int(c.file.Fd())

	lockType := unix.LOCK_SH
	if c.mode == ReadWrite {
		lockType = unix.LOCK_EX
	}
	if err := unix.Flock(fd, lockType|unix.LOCK_NB); err != nil {
		return fmt.Errorf("failed to lock container: %w", err)
	}

	stat, err := c.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < int64(HeaderSize) {
		return fmt.Errorf("file too small: %d bytes", stat.Size())
	}

	prot := unix.PROT_READ
	if c.mode == ReadWrite {
		prot |= unix.PROT_WRITE
	}
	data, err := unix.Mmap(fd, 0, int(stat.Size()), prot, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to mmap file: %w", err)
	}
	c.data = data

	header := c.header()
	if err := header.ValidateSignature(); err != nil {
		return err
	}
	if err := header.ValidateByteOrder(); err != nil {
		return err
	}
	if err := header.ValidateVersion(); err != nil {
		return err
	}

	if header.isClean() {
		if err := header.verifyChecksum(c.entryData()); err != nil {
			return fmt.Errorf("checksum verification failed: %w", err)
		}
	} else {
		// Left unclean by an interrupted repair; entries are still walkable
		VerboseLog(1, "Container %s was not closed cleanly, skipping checksum validation", c.path)
	}

	if err := c.buildIndex(header.EntryCount); err != nil {
		return err
	}

	if !c.groups[MetaGroup] {
		return &MissingGroupError{Group: MetaGroup}
	}
	meta, err := c.readRecord(MetaGroup, MetaRecord)
	if err != nil {
		return fmt.Errorf("missing metadata: %w", err)
	}
	if meta.Len() <= MetaEventMax {
		return fmt.Errorf("metadata record has %d elements, need at least %d", meta.Len(), MetaEventMax+1)
	}

	if c.mode == ReadWrite {
		header.clearClean()
		if err := unix.Msync(c.data[:HeaderSize], unix.MS_SYNC); err != nil {
			return fmt.Errorf("failed to sync header: %w", err)
		}
	}
	return nil
}

// buildIndex walks the chained entries and indexes them by name
func (c *Container) buildIndex(entryCount uint32) error {
	c.index = newEntryIndex(16)
	entryData := c.entryData()
	offset := 0

	for i := 0; i < int(entryCount); i++ {
		entry, err := entryAt(entryData, i, offset)
		if err != nil {
			return err
		}
		name := entry.FullName()
		if err := validateEntryName(name); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		if _, exists := c.index.Find(name); exists {
			return fmt.Errorf("entry %d: duplicate name %q", i, name)
		}

		parent, _ := splitName(name)
		if !c.index.Insert(entryRef{Offset: offset, container: c}, parent) {
			return fmt.Errorf("entry %d: failed to index %q", i, name)
		}
		if entry.IsGroup() {
			c.groups[name] = true
		}
		for p := parent; p != ""; p, _ = splitName(p) {
			c.groups[p] = true
		}

		if IsDebugEnabled("entries") {
			VerboseLog(0, "entry %d: %s %s[%d] size %d", i, name, DType(entry.DType), entry.Count, entry.Size)
		}
		offset += int(entry.Size)
	}

	if offset != len(entryData) {
		return fmt.Errorf("data size mismatch: consumed %d bytes, expected %d bytes", offset, len(entryData))
	}
	return nil
}

func (c *Container) header() *containerHeader {
	return (*containerHeader)(unsafe.Pointer(&c.data[0]))
}

func (c *Container) entryData() []byte {
	if len(c.data) < HeaderSize {
		return nil
	}
	return c.data[HeaderSize:]
}

// Path returns the file the container was opened from
func (c *Container) Path() string {
	return c.path
}

// Mode returns the open mode
func (c *Container) Mode() Mode {
	return c.mode
}

// Len returns the number of entries, group markers included
func (c *Container) Len() int {
	return c.index.Length()
}

// HasGroup reports whether a group exists
func (c *Container) HasGroup(name string) bool {
	return !c.closed && c.groups[name]
}

// Group returns the named group; nested groups use "/" (e.g. "frib/evt")
func (c *Container) Group(name string) (*Group, error) {
	if c.closed {
		return nil, fmt.Errorf("container %s is closed", c.path)
	}
	if !c.groups[name] {
		return nil, &MissingGroupError{Group: name}
	}
	return &Group{name: name, container: c}, nil
}

// Groups returns all group names in sorted order
func (c *Container) Groups() []string {
	names := make([]string, 0, len(c.groups))
	for name := range c.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Meta reads event_min and event_max from the metadata record
func (c *Container) Meta() (EventRange, error) {
	meta, err := c.readRecord(MetaGroup, MetaRecord)
	if err != nil {
		return EventRange{}, err
	}
	minEvent, err := meta.Int(MetaEventMin)
	if err != nil {
		return EventRange{}, err
	}
	maxEvent, err := meta.Int(MetaEventMax)
	if err != nil {
		return EventRange{}, err
	}
	return EventRange{Min: minEvent, Max: maxEvent}, nil
}

// SetMeta rewrites positions 0 and 2 of the metadata record; nothing else is touched
func (c *Container) SetMeta(r EventRange) error {
	group, err := c.Group(MetaGroup)
	if err != nil {
		return err
	}
	if err := group.WriteScalar(MetaRecord, MetaEventMin, float64(r.Min)); err != nil {
		return err
	}
	return group.WriteScalar(MetaRecord, MetaEventMax, float64(r.Max))
}

func (c *Container) readRecord(group, key string) (*Record, error) {
	ref, ok := c.index.Find(joinName(group, key))
	if !ok {
		return nil, &KeyNotFoundError{Group: group, Key: key}
	}
	entry := ref.entry()
	if entry == nil {
		return nil, fmt.Errorf("entry %s/%s is unreadable", group, key)
	}
	if entry.IsGroup() {
		return nil, fmt.Errorf("%s/%s is a group, not a record", group, key)
	}
	start := ref.Offset
	raw := c.entryData()[start : start+int(entry.Size)]
	return &Record{
		name:  entry.FullName(),
		dtype: DType(entry.DType),
		count: int(entry.Count),
		data:  entry.payload(raw),
	}, nil
}

// Sync flushes pending writes to disk without closing
func (c *Container) Sync() error {
	if c.closed || c.mode != ReadWrite {
		return nil
	}
	return unix.Msync(c.data, unix.MS_SYNC)
}

// Close recomputes the checksum of a writable container, marks it clean and
// releases the mapping, lock and file. Calling Close twice is harmless.
func (c *Container) Close() error {
	if c.closed {
		return nil
	}
	defer VerboseEnter()()

	var errs []error
	if c.mode == ReadWrite && c.data != nil {
		header := c.header()
		header.setClean()
		if err := header.storeChecksum(c.entryData()); err != nil {
			errs = append(errs, fmt.Errorf("failed to store checksum: %w", err))
			header.clearClean()
		}
		if err := unix.Msync(c.data, unix.MS_SYNC); err != nil {
			errs = append(errs, fmt.Errorf("failed to sync container: %w", err))
		}
	}
	if err := c.release(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// release unmaps, unlocks and closes without touching the header
func (c *Container) release() error {
	c.closed = true
	var errs []error
	if c.data != nil {
		if err := unix.Munmap(c.data); err != nil {
			errs = append(errs, fmt.Errorf("failed to unmap %s: %w", c.path, err))
		}
		c.data = nil
	}
	if c.file != nil {
		// Closing the descriptor drops the flock as well
		if err := c.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close %s: %w", c.path, err))
		}
		c.file = nil
	}
	return errors.Join(errs...)
}
