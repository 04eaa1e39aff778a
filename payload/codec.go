package payload

import (
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec is the compression algorithm of an envelope.
type Codec uint8

const (
	// CodecNone stores data uncompressed.
	CodecNone Codec = 0
	// CodecLZ4 uses LZ4 block compression.
	CodecLZ4 Codec = 1
	// CodecZSTD uses ZSTD compression.
	CodecZSTD Codec = 2
)

// String returns the codec name.
func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "none"
	case CodecLZ4:
		return "lz4"
	case CodecZSTD:
		return "zstd"
	default:
		return "unknown"
	}
}

// ParseCodec maps a codec name to a Codec.
func ParseCodec(s string) (Codec, bool) {
	switch s {
	case "", "none":
		return CodecNone, true
	case "lz4":
		return CodecLZ4, true
	case "zstd":
		return CodecZSTD, true
	default:
		return CodecNone, false
	}
}

var (
	zstdEncoderPool sync.Pool

	// zstdDecoderPools holds one *sync.Pool per decoder memory limit.
	zstdDecoderPools sync.Map
)

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func putZstdEncoder(enc *zstd.Encoder) {
	zstdEncoderPool.Put(enc)
}

func zstdDecoderPool(maxMemory uint64) *sync.Pool {
	if v, ok := zstdDecoderPools.Load(maxMemory); ok {
		return v.(*sync.Pool)
	}
	v, _ := zstdDecoderPools.LoadOrStore(maxMemory, &sync.Pool{
		New: func() any {
			dec, _ := zstd.NewReader(nil,
				zstd.WithDecoderConcurrency(1),
				zstd.WithDecoderMaxMemory(maxMemory),
			)
			return dec
		},
	})
	return v.(*sync.Pool)
}

// compress returns nil when the codec does not help.
func compress(data []byte, c Codec) ([]byte, error) {
	switch c {
	case CodecLZ4:
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, nil)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, nil // incompressible
		}
		return dst[:n], nil

	case CodecZSTD:
		enc := getZstdEncoder()
		defer putZstdEncoder(enc)
		return enc.EncodeAll(data, nil), nil

	default:
		return nil, nil
	}
}

// decompress allocates exactly size bytes. The caller has checked size
// against maxMemory, which also bounds what the zstd decoder may allocate.
func decompress(src []byte, c Codec, size uint32, maxMemory uint64) ([]byte, error) {
	dst := make([]byte, size)

	switch c {
	case CodecLZ4:
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, ErrSizeMismatch
		}
		return dst, nil

	case CodecZSTD:
		pool := zstdDecoderPool(maxMemory)
		dec := pool.Get().(*zstd.Decoder)
		defer pool.Put(dec)

		decoded, err := dec.DecodeAll(src, dst[:0])
		if err != nil {
			return nil, err
		}
		if uint32(len(decoded)) != size {
			return nil, ErrSizeMismatch
		}
		return decoded, nil

	default:
		return nil, ErrUnknownCodec
	}
}
