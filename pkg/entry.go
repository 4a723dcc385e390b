package evtfix

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unsafe"
)

// recordEntry is the fixed part of an entry in host byte order. The payload
// follows immediately after the struct and the whole entry is padded to 8 bytes.
type recordEntry struct {
	Size     uint32              // Total size of this entry including padding - MUST BE FIRST
	Flags    uint16              // Entry flags
	DType    uint16              // Payload element type
	Count    uint32              // Number of payload elements
	NameLen  uint16              // Used length of Name
	Reserved uint16              // Zero
	Name     [EntryNameSize]byte // Full path, e.g. "frib/evt/evt12_header"
}

const entryBaseSize = int(unsafe.Sizeof(recordEntry{}))

// entrySizeFor returns the padded entry size for a payload length
func entrySizeFor(payloadLen int) int {
	total := entryBaseSize + payloadLen
	return total + (8-(total%8))%8
}

// IsGroup returns true if the entry is a group marker
func (re *recordEntry) IsGroup() bool {
	return re.Flags&EntryFlagGroup != 0
}

// FullName returns a heap copy of the entry path
func (re *recordEntry) FullName() string {
	n := int(re.NameLen)
	if n > EntryNameSize {
		n = EntryNameSize
	}
	return string(re.Name[:n])
}

// setName overwrites the name field in place
func (re *recordEntry) setName(name string) error {
	if err := validateEntryName(name); err != nil {
		return err
	}
	re.Name = [EntryNameSize]byte{}
	copy(re.Name[:], name)
	re.NameLen = uint16(len(name))
	return nil
}

// payload returns the payload bytes of an entry that starts at data[0]
func (re *recordEntry) payload(data []byte) []byte {
	n := int(re.Count) * DType(re.DType).Size()
	return data[entryBaseSize : entryBaseSize+n]
}

func validateEntryName(name string) error {
	if name == "" {
		return fmt.Errorf("empty entry name")
	}
	if len(name) > EntryNameSize {
		return fmt.Errorf("entry name %q longer than %d bytes", name, EntryNameSize)
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") || strings.Contains(name, "//") {
		return fmt.Errorf("malformed entry name %q", name)
	}
	return nil
}

// entryAt returns a bounds-checked pointer to the entry at offset.
// Corrupted containers must produce errors here, never out-of-range reads.
func entryAt(data []byte, entryIdx int, offset int) (*recordEntry, error) {
	if offset < 0 || offset+entryBaseSize > len(data) {
		return nil, fmt.Errorf("entry %d: offset %d leaves no room for entry header (data length %d)", entryIdx, offset, len(data))
	}
	entry := (*recordEntry)(unsafe.Pointer(&data[offset]))

	size := int(entry.Size)
	if size < entryBaseSize {
		return nil, fmt.Errorf("entry %d: size %d too small (minimum %d) at offset %d", entryIdx, size, entryBaseSize, offset)
	}
	if size%8 != 0 {
		return nil, fmt.Errorf("entry %d: size %d not 8-byte aligned at offset %d", entryIdx, size, offset)
	}
	if offset+size > len(data) {
		return nil, fmt.Errorf("entry %d: size %d extends beyond data bounds at offset %d", entryIdx, size, offset)
	}
	if int(entry.NameLen) == 0 || int(entry.NameLen) > EntryNameSize {
		return nil, fmt.Errorf("entry %d: invalid name length %d", entryIdx, entry.NameLen)
	}

	dtype := DType(entry.DType)
	if entry.IsGroup() {
		if entry.Count != 0 {
			return nil, fmt.Errorf("entry %d: group marker %q carries %d elements", entryIdx, entry.FullName(), entry.Count)
		}
	} else {
		if dtype.Size() == 0 {
			return nil, fmt.Errorf("entry %d: unknown data type %d", entryIdx, entry.DType)
		}
		if entryBaseSize+int(entry.Count)*dtype.Size() > size {
			return nil, fmt.Errorf("entry %d: %d %s elements do not fit in entry of size %d", entryIdx, entry.Count, dtype, size)
		}
	}
	return entry, nil
}

// Record is a read view of one entry's payload. It is only valid until the
// container it came from is closed.
type Record struct {
	name  string
	dtype DType
	count int
	data  []byte
}

// Name returns the full path of the record
func (r *Record) Name() string {
	return r.name
}

// DType returns the payload element type
func (r *Record) DType() DType {
	return r.dtype
}

// Len returns the number of elements
func (r *Record) Len() int {
	return r.count
}

// Bytes returns the raw payload
func (r *Record) Bytes() []byte {
	return r.data
}

func (r *Record) checkIndex(i int) error {
	if i < 0 || i >= r.count {
		return fmt.Errorf("record %s: index %d out of range (length %d)", r.name, i, r.count)
	}
	return nil
}

// Float returns element i converted to float64
func (r *Record) Float(i int) (float64, error) {
	if err := r.checkIndex(i); err != nil {
		return 0, err
	}
	off := i * r.dtype.Size()
	switch r.dtype {
	case DTypeInt16:
		return float64(int16(binary.NativeEndian.Uint16(r.data[off:]))), nil
	case DTypeInt32:
		return float64(int32(binary.NativeEndian.Uint32(r.data[off:]))), nil
	case DTypeInt64:
		return float64(int64(binary.NativeEndian.Uint64(r.data[off:]))), nil
	case DTypeFloat32:
		return float64(math.Float32frombits(binary.NativeEndian.Uint32(r.data[off:]))), nil
	case DTypeFloat64:
		return math.Float64frombits(binary.NativeEndian.Uint64(r.data[off:])), nil
	case DTypeBytes:
		return float64(r.data[off]), nil
	default:
		return 0, fmt.Errorf("record %s: type %s is not numeric", r.name, r.dtype)
	}
}

// Int returns element i converted to int64, truncating floating point values toward zero
func (r *Record) Int(i int) (int64, error) {
	if err := r.checkIndex(i); err != nil {
		return 0, err
	}
	off := i * r.dtype.Size()
	switch r.dtype {
	case DTypeInt16:
		return int64(int16(binary.NativeEndian.Uint16(r.data[off:]))), nil
	case DTypeInt32:
		return int64(int32(binary.NativeEndian.Uint32(r.data[off:]))), nil
	case DTypeInt64:
		return int64(binary.NativeEndian.Uint64(r.data[off:])), nil
	case DTypeBytes:
		return int64(r.data[off]), nil
	case DTypeFloat32, DTypeFloat64:
		f, err := r.Float(i)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("record %s: element %d is %v", r.name, i, f)
		}
		return int64(f), nil
	default:
		return 0, fmt.Errorf("record %s: type %s is not numeric", r.name, r.dtype)
	}
}

// putElement encodes v as element i of a payload of the given type
func putElement(dtype DType, payload []byte, i int, v float64) error {
	off := i * dtype.Size()
	switch dtype {
	case DTypeInt16:
		binary.NativeEndian.PutUint16(payload[off:], uint16(int16(v)))
	case DTypeInt32:
		binary.NativeEndian.PutUint32(payload[off:], uint32(int32(v)))
	case DTypeInt64:
		binary.NativeEndian.PutUint64(payload[off:], uint64(int64(v)))
	case DTypeFloat32:
		binary.NativeEndian.PutUint32(payload[off:], math.Float32bits(float32(v)))
	case DTypeFloat64:
		binary.NativeEndian.PutUint64(payload[off:], math.Float64bits(v))
	case DTypeBytes:
		payload[off] = byte(v)
	default:
		return fmt.Errorf("type %s is not numeric", dtype)
	}
	return nil
}
