package evtfix

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"
	"unsafe"
)

// containerHeader is the file header in host byte order (cast directly onto mapped memory)
type containerHeader struct {
	Signature    [4]byte  // "evtc" signature
	Reserved     [4]byte  // Keeps ByteOrder 8-byte aligned
	ByteOrder    uint64   // Byte order detection magic - MUST be checked before other fields
	Version      uint32   // Format version (host order)
	EntryCount   uint32   // Number of entries (host order)
	Flags        uint16   // Container flags (host order)
	ChecksumType uint16   // Checksum algorithm type
	Checksum     [64]byte // Checksum of header+entries (up to 512-bit support)
	Reserved2    [4]byte
}

// HeaderSize is the on-disk size of containerHeader
const HeaderSize = int(unsafe.Sizeof(containerHeader{}))

// SetHeader initialises the header fields
func (ch *containerHeader) SetHeader(version uint32, entryCount uint32, flags uint16, checksumType uint16) {
	ch.Signature = ContainerSignature
	ch.ByteOrder = ByteOrderMagic
	ch.Version = version
	ch.EntryCount = entryCount
	ch.Flags = flags
	ch.ChecksumType = checksumType
}

// ValidateSignature checks if the signature matches expected value
func (ch *containerHeader) ValidateSignature() error {
	if ch.Signature != ContainerSignature {
		return fmt.Errorf("invalid signature: got %q, expected %q",
			string(ch.Signature[:]), string(ContainerSignature[:]))
	}
	return nil
}

// ValidateByteOrder checks if the byte order matches the host machine
func (ch *containerHeader) ValidateByteOrder() error {
	if ch.ByteOrder != ByteOrderMagic {
		return fmt.Errorf("byte order mismatch: container byte order 0x%016x does not match host byte order 0x%016x",
			ch.ByteOrder, ByteOrderMagic)
	}
	return nil
}

// ValidateVersion checks if the version is supported
func (ch *containerHeader) ValidateVersion() error {
	if ch.Version != CurrentFormatVersion {
		return fmt.Errorf("unsupported version: got %d, expected %d", ch.Version, CurrentFormatVersion)
	}
	return nil
}

func (ch *containerHeader) isClean() bool {
	return ch.Flags&ContainerFlagClean != 0
}

func (ch *containerHeader) setClean() {
	ch.Flags |= ContainerFlagClean
}

func (ch *containerHeader) clearClean() {
	ch.Flags &^= ContainerFlagClean
}

// newChecksumHasher returns the hasher and digest size for a checksum type
func newChecksumHasher(checksumType uint16) (hash.Hash, error) {
	switch checksumType {
	case HashTypeSHA1:
		return sha1.New(), nil
	case HashTypeSHA256:
		return sha256.New(), nil
	case HashTypeSHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum type: %d", checksumType)
	}
}

// computeChecksum hashes the header up to the checksum field followed by the entry data
func (ch *containerHeader) computeChecksum(entryData ...[]byte) ([]byte, error) {
	hasher, err := newChecksumHasher(ch.ChecksumType)
	if err != nil {
		return nil, err
	}
	headerBytes := (*[HeaderSize]byte)(unsafe.Pointer(ch))
	checksumOffset := unsafe.Offsetof(ch.Checksum)
	hasher.Write(headerBytes[:checksumOffset])
	for _, data := range entryData {
		hasher.Write(data)
	}
	return hasher.Sum(nil), nil
}

// storeChecksum calculates the checksum and stores it in the header
func (ch *containerHeader) storeChecksum(entryData ...[]byte) error {
	sum, err := ch.computeChecksum(entryData...)
	if err != nil {
		return err
	}
	ch.Checksum = [ChecksumSize]byte{}
	copy(ch.Checksum[:], sum)
	return nil
}

// verifyChecksum compares the stored checksum against the entry data
func (ch *containerHeader) verifyChecksum(entryData []byte) error {
	sum, err := ch.computeChecksum(entryData)
	if err != nil {
		return err
	}
	if !bytes.Equal(sum, ch.Checksum[:len(sum)]) {
		return fmt.Errorf("checksum mismatch: expected %x, got %x", sum, ch.Checksum[:len(sum)])
	}
	return nil
}
