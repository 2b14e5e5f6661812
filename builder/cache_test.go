package builder

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aster-lang/aster/compiler"
	"github.com/aster-lang/aster/ir"
)

func cacheOptions() Options {
	return Options{
		Target: compiler.TargetInfo{Triple: "x86_64-unknown-linux-gnu", ProcessSize: 112},
	}
}

// cacheProgram builds a one-module program whose entry method returns the
// given literal.
func cacheProgram(value int64) *ir.Program {
	method := &ir.Method{
		Name:      "main",
		Async:     true,
		Arguments: []ir.RegisterID{0},
		Registers: []ir.Register{{ID: 0}, {ID: 1}},
		Blocks: []*ir.Block{{
			Instructions: []ir.Instruction{
				ir.Int{Register: 1, Value: value},
				ir.Finish{},
			},
		}},
	}
	class := &ir.Class{Name: "Main", Process: true, Methods: []*ir.Method{method}}
	method.Class = class

	mod := &ir.Module{Name: "main", Classes: []*ir.Class{class}}
	class.Module = mod

	return &ir.Program{Modules: []*ir.Module{mod}, EntryClass: class, EntryMethod: method}
}

func digestFor(t *testing.T, program *ir.Program, options Options) []byte {
	t.Helper()

	layouts := compiler.NewLayouts(program, options.Target)
	names := compiler.NewSymbolNames(program)
	return moduleDigest(program.Modules[0], layouts, names, options)
}

func TestModuleDigestStable(t *testing.T) {
	options := cacheOptions()

	a := digestFor(t, cacheProgram(42), options)
	b := digestFor(t, cacheProgram(42), options)

	if !bytes.Equal(a, b) {
		t.Fatal("equal programs produced different digests")
	}
}

func TestModuleDigestChanges(t *testing.T) {
	options := cacheOptions()
	base := digestFor(t, cacheProgram(42), options)

	release := options
	release.Optimization = compiler.OptRelease

	retargeted := options
	retargeted.Target.Triple = "aarch64-unknown-linux-gnu"

	grown := cacheProgram(42)
	class := grown.Modules[0].Classes[0]
	class.Methods = append(class.Methods, &ir.Method{
		Name:      "helper",
		Class:     class,
		Registers: []ir.Register{{ID: 0}},
		Blocks: []*ir.Block{{
			Instructions: []ir.Instruction{ir.Return{Value: 0}},
		}},
	})

	tests := []struct {
		name   string
		digest []byte
	}{
		{"literal value", digestFor(t, cacheProgram(43), options)},
		{"optimization level", digestFor(t, cacheProgram(42), release)},
		{"target triple", digestFor(t, cacheProgram(42), retargeted)},
		{"added method", digestFor(t, grown, options)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if bytes.Equal(base, tc.digest) {
				t.Error("digest did not change")
			}
		})
	}
}

func TestCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	object := filepath.Join(dir, "main.o")
	digest := []byte{1, 2, 3}

	if err := os.WriteFile(object, []byte("object"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := loadCache(dir)
	if cache.fresh("main", digest, object) {
		t.Fatal("empty cache reported a fresh module")
	}

	cache.update("main", digest, object)
	if err := cache.save(dir); err != nil {
		t.Fatalf("save() error: %s", err)
	}

	loaded := loadCache(dir)
	if !loaded.fresh("main", digest, object) {
		t.Error("saved entry is not fresh after a reload")
	}
	if loaded.fresh("main", []byte{9, 9, 9}, object) {
		t.Error("entry with a different digest reported fresh")
	}
	if loaded.fresh("other", digest, object) {
		t.Error("unknown module reported fresh")
	}

	if err := os.Remove(object); err != nil {
		t.Fatal(err)
	}
	if loaded.fresh("main", digest, object) {
		t.Error("entry without an object file reported fresh")
	}
}

func TestCachePrune(t *testing.T) {
	cache := loadCache(t.TempDir())
	cache.update("main", []byte{1}, "main.o")
	cache.update("std::string", []byte{2}, "std.string.o")
	cache.update("renamed", []byte{3}, "renamed.o")

	cache.prune(map[string]bool{"main": true, "std::string": true})

	if _, ok := cache.Modules["renamed"]; ok {
		t.Error("stale entry survived pruning")
	}
	if len(cache.Modules) != 2 {
		t.Errorf("cache has %d entries, want 2", len(cache.Modules))
	}
}

func TestCacheIgnoresCorruptManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, cacheFile), []byte("not cbor"), 0o644); err != nil {
		t.Fatal(err)
	}

	cache := loadCache(dir)
	if len(cache.Modules) != 0 {
		t.Fatal("corrupt manifest produced cache entries")
	}
}
