package compiler

// MethodHasher assigns every distinct method name a globally unique 64-bit
// hash for dynamic dispatch. Only the name participates: the language has no
// overloading, so the signature adds nothing.
//
// The base hash is FNV-1a, which is fast and good enough for small inputs.
// FNV is not a perfect hash function, so on a collision the base digest is
// re-rounded with an incrementing value until the result is unique.
type MethodHasher struct {
	hashes map[string]uint64
	used   map[uint64]struct{}
}

const (
	fnvOffsetBasis uint64 = 0xcbf29ce484222325
	fnvPrime       uint64 = 0x100000001b3
)

func NewMethodHasher() *MethodHasher {
	// Most programs define at least a few hundred unique method names;
	// reserving up front avoids rehashing the common case.
	const size = 512

	return &MethodHasher{
		hashes: make(map[string]uint64, size),
		used:   make(map[uint64]struct{}, size),
	}
}

// Hash returns the dispatch hash for a method name. Identical names always
// produce identical hashes within one compilation; distinct names never
// share a hash.
func (h *MethodHasher) Hash(name string) uint64 {
	if hash, ok := h.hashes[name]; ok {
		return hash
	}

	base := fnvOffsetBasis
	for i := 0; i < len(name); i++ {
		base = round(base, uint64(name[i]))
	}

	// Bytes are in the range 0..255. Starting the extra value at 256 makes
	// collisions with method names one byte longer less likely.
	extra := uint64(256)
	hash := base

	for {
		if _, taken := h.used[hash]; !taken {
			break
		}
		hash = round(base, extra)
		extra++
	}

	h.hashes[name] = hash
	h.used[hash] = struct{}{}
	return hash
}

func round(hash, value uint64) uint64 {
	return (hash ^ value) * fnvPrime
}
