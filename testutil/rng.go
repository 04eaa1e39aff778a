package testutil

import (
	"bytes"
	"math/rand"
	"sync"

	"github.com/hupe1980/vramcache/model"
	"github.com/hupe1980/vramcache/payload"
)

// RNG encapsulates a seeded random number generator.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Bytes returns n random bytes. Random bytes do not compress.
func (r *RNG) Bytes(n int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	b := make([]byte, n)
	_, _ = r.rand.Read(b) // never fails
	return b
}

// CompressibleBytes returns n bytes built from a short random pattern.
func (r *RNG) CompressibleBytes(n int) []byte {
	pattern := r.Bytes(16)
	return bytes.Repeat(pattern, n/len(pattern)+1)[:n]
}

// Resource generates a resource of the given type whose decompressed size is
// exactly size bytes, encoded with codec c.
func (r *RNG) Resource(t model.ResourceType, size int, c payload.Codec) (model.ResourceHash, *payload.Payload) {
	var data []byte
	if c == payload.CodecNone {
		data = r.Bytes(size)
	} else {
		data = r.CompressibleBytes(size)
	}

	p, err := payload.Encode(data, c)
	if err != nil {
		panic(err)
	}
	return model.ComputeHash(t, data), p
}

// EncodedResource is like Resource but returns a payload decoded from its
// envelope, so it starts out compressed as a delivered resource would.
func (r *RNG) EncodedResource(t model.ResourceType, size int, c payload.Codec) (model.ResourceHash, *payload.Payload) {
	h, p := r.Resource(t, size, c)
	decoded, err := payload.Decode(p.Encoded())
	if err != nil {
		panic(err)
	}
	return h, decoded
}
