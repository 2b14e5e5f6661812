package compiler

import (
	"fmt"
	"testing"
)

func TestMethodHasherStable(t *testing.T) {
	hasher := NewMethodHasher()

	if hasher.Hash("foo") != hasher.Hash("foo") {
		t.Fatal("hashing the same name twice produced different values")
	}
}

func TestMethodHasherDistinct(t *testing.T) {
	hasher := NewMethodHasher()

	if hasher.Hash("foo") == hasher.Hash("bar") {
		t.Fatal("distinct names produced the same hash")
	}
}

func TestMethodHasherInjective(t *testing.T) {
	hasher := NewMethodHasher()
	seen := make(map[uint64]string)

	// A spread of realistic and adversarial names: short, long, shared
	// prefixes, single-byte suffix differences.
	names := []string{"foo", "bar", "baz", "a", "ab", "abc", "new", "drop",
		"to_string", "to_strinh", "==", "!=", "+", "-", "call", "call_mut"}
	for i := 0; i < 5000; i++ {
		names = append(names, fmt.Sprintf("method_%d", i))
	}

	for _, name := range names {
		hash := hasher.Hash(name)
		if prev, taken := seen[hash]; taken && prev != name {
			t.Fatalf("%q and %q share hash %#x", prev, name, hash)
		}
		seen[hash] = name
	}
}

func TestMethodHasherCollisionRehash(t *testing.T) {
	hasher := NewMethodHasher()
	first := hasher.Hash("foo")

	// Forget the name but keep the digest marked used; rehashing the same
	// name must then resolve to a fresh value.
	delete(hasher.hashes, "foo")

	if second := hasher.Hash("foo"); second == first {
		t.Fatalf("expected a salted rehash, got the original %#x", first)
	}
}

func TestMethodHasherFNVBase(t *testing.T) {
	// First hash of a name, with no collisions, is plain FNV-1a.
	hasher := NewMethodHasher()

	want := fnvOffsetBasis
	for _, b := range []byte("increment") {
		want = (want ^ uint64(b)) * fnvPrime
	}

	if got := hasher.Hash("increment"); got != want {
		t.Fatalf("Hash(increment) = %#x, want %#x", got, want)
	}
}
