package model

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
)

// ResourceHash is the 128-bit content address of a resource.
type ResourceHash struct {
	Lo uint64
	Hi uint64
}

// ComputeHash derives the content hash of a resource of the given type.
// The type is part of the hash, so identical bytes used as a texture and as a
// vertex array are distinct resources.
func ComputeHash(t ResourceType, data []byte) ResourceHash {
	h := sha256.New()
	_, _ = h.Write([]byte{byte(t)}) // hash.Write never returns an error
	_, _ = h.Write(data)

	var sum [sha256.Size]byte
	h.Sum(sum[:0])

	return ResourceHash{
		Lo: binary.LittleEndian.Uint64(sum[0:8]),
		Hi: binary.LittleEndian.Uint64(sum[8:16]),
	}
}

// IsZero reports whether h is the zero hash.
func (h ResourceHash) IsZero() bool {
	return h.Lo == 0 && h.Hi == 0
}

// String returns the 32-digit hex form, high word first.
func (h ResourceHash) String() string {
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}

// ParseResourceHash parses the form produced by String.
func ParseResourceHash(s string) (ResourceHash, error) {
	if len(s) != 32 {
		return ResourceHash{}, fmt.Errorf("invalid resource hash %q: want 32 hex digits", s)
	}

	b, err := hex.DecodeString(s)
	if err != nil {
		return ResourceHash{}, fmt.Errorf("invalid resource hash %q: %w", s, err)
	}

	return ResourceHash{
		Hi: binary.BigEndian.Uint64(b[0:8]),
		Lo: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}
