package evtfix

import (
	"strings"
)

// Group and record names used by the merged acquisition files
const (
	MetaGroup  = "meta"
	MetaRecord = "meta"
	GetGroup   = "get"
	FribGroup  = "frib"
	FribEvents = "frib/evt"
)

// Key formats. These must match the upstream merger byte for byte.
const (
	GetDataKey    = "evt%d_data"
	GetHeaderKey  = "evt%d_header"
	FribDataKey   = "evt%d_1903"
	FribHeaderKey = "evt%d_header"
)

// Positions inside the metadata record and the header records
const (
	MetaEventMin       = 0
	MetaEventMax       = 2
	GetTimestampField  = 2
	FribTimestampField = 1
)

// Defaults
const (
	DefaultRunFormat        = "run_%04d.h5"
	DefaultTolerance        = 1 // least significant bit wiggles sometimes
	DefaultProgressInterval = 100
)

// Header and file format constants
const (
	ChecksumSize          = 64 // Maximum checksum size (512 bits)
	CurrentFormatVersion  = 1
	EntryNameSize         = 96 // Fixed name field, renames happen in place
	MaxEntryPayload       = 1 << 30
	ContainerSignatureLen = 4
)

// ContainerSignature identifies an event container file
var ContainerSignature = [ContainerSignatureLen]byte{'e', 'v', 't', 'c'}

// Byte order magic for file format validation
const ByteOrderMagic uint64 = 0x0102030405060708

// Checksum type constants
const (
	HashTypeSHA1   uint16 = 1 // SHA-1 (20 bytes)
	HashTypeSHA256 uint16 = 2 // SHA-256 (32 bytes)
	HashTypeSHA512 uint16 = 3 // SHA-512 (64 bytes)
)

// HashTypeName returns the human-readable name for a hash type
func HashTypeName(hashType uint16) string {
	switch hashType {
	case HashTypeSHA1:
		return "sha1"
	case HashTypeSHA256:
		return "sha256"
	case HashTypeSHA512:
		return "sha512"
	default:
		return "unknown"
	}
}

// HashTypeFromName returns the hash type constant from a name (case-insensitive)
func HashTypeFromName(name string) (uint16, bool) {
	switch strings.ToLower(name) {
	case "sha1":
		return HashTypeSHA1, true
	case "sha256":
		return HashTypeSHA256, true
	case "sha512":
		return HashTypeSHA512, true
	default:
		return 0, false
	}
}

// Container header flags
const (
	ContainerFlagClean uint16 = 1 << 1 // Container was closed cleanly
)

// Entry flags
const (
	EntryFlagGroup uint16 = 1 << 0 // Entry is a group marker with no payload
)

// DType identifies the element type of a record payload
type DType uint16

const (
	DTypeNone DType = iota
	DTypeInt16
	DTypeInt32
	DTypeInt64
	DTypeFloat32
	DTypeFloat64
	DTypeBytes
)

// Size returns the element size in bytes
func (d DType) Size() int {
	switch d {
	case DTypeInt16:
		return 2
	case DTypeInt32, DTypeFloat32:
		return 4
	case DTypeInt64, DTypeFloat64:
		return 8
	case DTypeBytes:
		return 1
	default:
		return 0
	}
}

func (d DType) String() string {
	switch d {
	case DTypeNone:
		return "group"
	case DTypeInt16:
		return "int16"
	case DTypeInt32:
		return "int32"
	case DTypeInt64:
		return "int64"
	case DTypeFloat32:
		return "float32"
	case DTypeFloat64:
		return "float64"
	case DTypeBytes:
		return "bytes"
	default:
		return "unknown"
	}
}
