package evtfix

import (
	"fmt"
	"os"
	"syscall"
	"unsafe"

	"github.com/google/vectorio"
)

// maxIovecs bounds a single writev call (Linux UIO_MAXIOV)
const maxIovecs = 1024

// Builder writes a new container. Entries are kept in insertion order.
type Builder struct {
	path         string
	checksumType uint16
	entries      [][]byte
	names        map[string]bool
}

// Create starts a new container at path. Nothing is written until Close.
func Create(path string) *Builder {
	b := &Builder{
		path:         path,
		checksumType: HashTypeSHA1,
		names:        make(map[string]bool),
	}
	return b
}

// SetChecksumType selects the header checksum algorithm
func (b *Builder) SetChecksumType(checksumType uint16) error {
	if _, err := newChecksumHasher(checksumType); err != nil {
		return err
	}
	b.checksumType = checksumType
	return nil
}

// Group adds a group marker, creating parent groups as needed
func (b *Builder) Group(name string) error {
	if err := validateEntryName(name); err != nil {
		return err
	}
	if parent, _ := splitName(name); parent != "" && !b.names[parent] {
		if err := b.Group(parent); err != nil {
			return err
		}
	}
	if b.names[name] {
		return nil
	}
	b.names[name] = true
	b.entries = append(b.entries, encodeEntry(name, EntryFlagGroup, DTypeNone, 0, nil))
	return nil
}

// put adds a record with an already encoded payload
func (b *Builder) put(group, key string, dtype DType, count int, payload []byte) error {
	name := joinName(group, key)
	if err := validateEntryName(name); err != nil {
		return err
	}
	if b.names[name] {
		return fmt.Errorf("duplicate entry %q", name)
	}
	if len(payload) > MaxEntryPayload {
		return fmt.Errorf("entry %q payload of %d bytes is too large", name, len(payload))
	}
	if group != "" {
		if err := b.Group(group); err != nil {
			return err
		}
	}
	b.names[name] = true
	b.entries = append(b.entries, encodeEntry(name, 0, dtype, count, payload))
	return nil
}

// PutFloat64 adds a float64 record
func (b *Builder) PutFloat64(group, key string, values ...float64) error {
	return b.putNumeric(group, key, DTypeFloat64, values)
}

// PutInt64 adds an int64 record
func (b *Builder) PutInt64(group, key string, values ...int64) error {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}
	return b.putNumeric(group, key, DTypeInt64, floats)
}

// PutInt16 adds an int16 record, the element type of digitised trace data
func (b *Builder) PutInt16(group, key string, values ...int16) error {
	floats := make([]float64, len(values))
	for i, v := range values {
		floats[i] = float64(v)
	}
	return b.putNumeric(group, key, DTypeInt16, floats)
}

// PutBytes adds an opaque record
func (b *Builder) PutBytes(group, key string, data []byte) error {
	payload := make([]byte, len(data))
	copy(payload, data)
	return b.put(group, key, DTypeBytes, len(data), payload)
}

func (b *Builder) putNumeric(group, key string, dtype DType, values []float64) error {
	payload := make([]byte, len(values)*dtype.Size())
	for i, v := range values {
		if err := putElement(dtype, payload, i, v); err != nil {
			return err
		}
	}
	return b.put(group, key, dtype, len(values), payload)
}

// encodeEntry lays out one padded entry in host byte order
func encodeEntry(name string, flags uint16, dtype DType, count int, payload []byte) []byte {
	buf := make([]byte, entrySizeFor(len(payload)))
	entry := (*recordEntry)(unsafe.Pointer(&buf[0]))
	entry.Size = uint32(len(buf))
	entry.Flags = flags
	entry.DType = uint16(dtype)
	entry.Count = uint32(count)
	copy(entry.Name[:], name)
	entry.NameLen = uint16(len(name))
	copy(buf[entryBaseSize:], payload)
	return buf
}

// Close writes the header and entries with vectored writes and marks the file clean
func (b *Builder) Close() error {
	defer VerboseEnter()()

	file, err := os.OpenFile(b.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create container %s: %w", b.path, err)
	}
	defer file.Close()

	header := containerHeader{}
	header.SetHeader(CurrentFormatVersion, uint32(len(b.entries)), 0, b.checksumType)

	headerIovec := syscall.Iovec{Base: (*byte)(unsafe.Pointer(&header))}
	headerIovec.SetLen(HeaderSize)

	if nw, err := vectorio.WritevRaw(uintptr(file.Fd()), []syscall.Iovec{headerIovec}); err != nil {
		return fmt.Errorf("failed to write header with vectorio: %w", err)
	} else if nw != HeaderSize {
		return fmt.Errorf("header write incomplete: wrote %d bytes, expected %d", nw, HeaderSize)
	}

	entryIovecs := make([]syscall.Iovec, 0, len(b.entries))
	totalEntrySize := 0
	for _, buf := range b.entries {
		iovec := syscall.Iovec{Base: &buf[0]}
		iovec.SetLen(len(buf))
		entryIovecs = append(entryIovecs, iovec)
		totalEntrySize += len(buf)
	}

	totalWritten := 0
	for offset := 0; offset < len(entryIovecs); offset += maxIovecs {
		end := min(offset+maxIovecs, len(entryIovecs))
		nw, err := vectorio.WritevRaw(uintptr(file.Fd()), entryIovecs[offset:end])
		if err != nil {
			return fmt.Errorf("failed to write entries chunk with vectorio: %w", err)
		}
		totalWritten += nw
	}
	if totalWritten != totalEntrySize {
		return fmt.Errorf("entries write incomplete: wrote %d bytes, expected %d", totalWritten, totalEntrySize)
	}

	// Mark clean first so the flag is covered by the checksum
	header.setClean()
	if err := header.storeChecksum(b.entries...); err != nil {
		return err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return fmt.Errorf("failed to seek to beginning for final header: %w", err)
	}
	if nw, err := vectorio.WritevRaw(uintptr(file.Fd()), []syscall.Iovec{headerIovec}); err != nil {
		return fmt.Errorf("failed to write final header with vectorio: %w", err)
	} else if nw != HeaderSize {
		return fmt.Errorf("final header write incomplete: wrote %d bytes, expected %d", nw, HeaderSize)
	}

	if err := file.Sync(); err != nil {
		return fmt.Errorf("failed to sync container: %w", err)
	}
	VerboseLog(2, "Wrote container %s (%d entries, %d bytes)", b.path, len(b.entries), HeaderSize+totalEntrySize)
	return nil
}
