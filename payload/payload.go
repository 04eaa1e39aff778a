package payload

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/hupe1980/vramcache/internal/hash"
)

var (
	// ErrCorrupt is returned when an envelope is malformed or fails its checksum.
	ErrCorrupt = errors.New("payload corrupt")

	// ErrSizeMismatch is returned when decompression yields an unexpected size.
	ErrSizeMismatch = errors.New("payload decompressed size mismatch")

	// ErrUnknownCodec is returned for a codec id this package does not know.
	ErrUnknownCodec = errors.New("payload codec unknown")

	// ErrTooLarge is returned for data that does not fit the 32-bit size fields
	// or exceeds the decode size limit.
	ErrTooLarge = errors.New("payload too large")
)

// HeaderSize is the size of the envelope header in bytes.
const HeaderSize = 16

// DefaultMaxSize is the largest decompressed size Decode accepts unless
// WithMaxSize says otherwise.
const DefaultMaxSize = 1 << 30

// minCompressionGain is the ratio above which compressed data is discarded
// in favour of storing it raw.
const minCompressionGain = 0.9

// Payload is the byte content of one resource.
// A Payload is not safe for concurrent use.
type Payload struct {
	encoded  []byte
	data     []byte
	codec    Codec
	size     uint32
	checksum uint32
	maxSize  uint64
}

type decodeOptions struct {
	maxSize uint64
}

// DecodeOption configures Decode.
type DecodeOption func(*decodeOptions)

// WithMaxSize bounds the decompressed size Decode accepts and the memory the
// decompressor may use. Defaults to DefaultMaxSize. 0 keeps the default.
func WithMaxSize(bytes uint64) DecodeOption {
	return func(o *decodeOptions) {
		if bytes > 0 {
			o.maxSize = min(bytes, math.MaxUint32)
		}
	}
}

// Encode builds an envelope for data using codec c. If compression does not
// shrink the data enough the envelope stores it raw. The returned payload is
// already decompressed.
func Encode(data []byte, c Codec) (*Payload, error) {
	if uint64(len(data)) > math.MaxUint32 {
		return nil, ErrTooLarge
	}

	var compressed []byte
	if c != CodecNone && len(data) > 0 {
		var err error
		compressed, err = compress(data, c)
		if err != nil {
			return nil, fmt.Errorf("payload: %s compression: %w", c, err)
		}
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*minCompressionGain {
		compressed = nil
		c = CodecNone
	}

	p := &Payload{
		data:     data,
		codec:    c,
		size:     uint32(len(data)),
		checksum: hash.CRC32C(data),
		maxSize:  DefaultMaxSize,
	}
	if uint64(p.size) > p.maxSize {
		p.maxSize = math.MaxUint32
	}

	body := data
	compressedSize := uint32(0)
	if compressed != nil {
		body = compressed
		compressedSize = uint32(len(compressed))
	}

	p.encoded = make([]byte, HeaderSize+len(body))
	binary.LittleEndian.PutUint32(p.encoded[0:], p.size)
	binary.LittleEndian.PutUint32(p.encoded[4:], compressedSize)
	p.encoded[8] = byte(c)
	binary.LittleEndian.PutUint32(p.encoded[12:], p.checksum)
	copy(p.encoded[HeaderSize:], body)

	return p, nil
}

// Raw wraps uncompressed data. It panics for data larger than 4 GiB.
func Raw(data []byte) *Payload {
	p, err := Encode(data, CodecNone)
	if err != nil {
		panic(err) // data larger than 4 GiB
	}
	return p
}

// Decode parses an envelope without decompressing it.
// The payload keeps a reference to encoded. Envelopes announcing more than
// the maximum size fail with ErrTooLarge before anything is allocated.
func Decode(encoded []byte, optFns ...DecodeOption) (*Payload, error) {
	opts := decodeOptions{maxSize: DefaultMaxSize}
	for _, fn := range optFns {
		fn(&opts)
	}

	if len(encoded) < HeaderSize {
		return nil, fmt.Errorf("%w: envelope shorter than header (%d bytes)", ErrCorrupt, len(encoded))
	}

	size := binary.LittleEndian.Uint32(encoded[0:])
	if uint64(size) > opts.maxSize {
		return nil, fmt.Errorf("%w: header says %d bytes, limit is %d", ErrTooLarge, size, opts.maxSize)
	}
	compressedSize := binary.LittleEndian.Uint32(encoded[4:])
	c := Codec(encoded[8])

	bodyLen := uint64(len(encoded) - HeaderSize)
	switch {
	case compressedSize == 0 && bodyLen != uint64(size):
		return nil, fmt.Errorf("%w: raw body is %d bytes, header says %d", ErrCorrupt, bodyLen, size)
	case compressedSize != 0 && bodyLen != uint64(compressedSize):
		return nil, fmt.Errorf("%w: compressed body is %d bytes, header says %d", ErrCorrupt, bodyLen, compressedSize)
	case compressedSize != 0 && c != CodecLZ4 && c != CodecZSTD:
		return nil, fmt.Errorf("%w: codec id %d", ErrUnknownCodec, c)
	}

	if compressedSize == 0 {
		c = CodecNone
	}

	return &Payload{
		encoded:  encoded,
		codec:    c,
		size:     size,
		checksum: binary.LittleEndian.Uint32(encoded[12:]),
		maxSize:  opts.maxSize,
	}, nil
}

// Decompress materializes the data and verifies its checksum.
// It is a no-op when the data is already available.
func (p *Payload) Decompress() error {
	if p.data != nil || p.size == 0 {
		if p.data == nil {
			p.data = []byte{}
		}
		return nil
	}

	body := p.encoded[HeaderSize:]

	var data []byte
	if p.codec == CodecNone {
		data = body
	} else {
		var err error
		data, err = decompress(body, p.codec, p.size, p.maxSize)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCorrupt, err)
		}
	}

	if !hash.Verify(data, p.checksum) {
		return fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	p.data = data
	return nil
}

// IsDecompressed reports whether Data is available.
func (p *Payload) IsDecompressed() bool {
	return p.data != nil
}

// Data returns the decompressed bytes, or nil before Decompress.
// The slice must be treated as read-only.
func (p *Payload) Data() []byte {
	return p.data
}

// DecompressedSize returns the size of the data once decompressed.
func (p *Payload) DecompressedSize() uint64 {
	return uint64(p.size)
}

// Encoded returns the envelope bytes.
func (p *Payload) Encoded() []byte {
	return p.encoded
}

// EncodedSize returns the size of the envelope in bytes.
func (p *Payload) EncodedSize() int {
	return len(p.encoded)
}

// Codec returns the codec the envelope uses.
func (p *Payload) Codec() Codec {
	return p.codec
}

// Release drops the decompressed data so only the envelope is retained.
func (p *Payload) Release() {
	if p.codec != CodecNone {
		p.data = nil
	}
}
