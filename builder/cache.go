package builder

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"hash"
	"math"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/aster-lang/aster/compiler"
	"github.com/aster-lang/aster/ir"
)

const cacheFile = "cache.cbor"

// buildCache maps module names to the digest their object file was emitted
// from. A matching digest skips code generation for the module.
type buildCache struct {
	Modules map[string]cacheEntry `cbor:"modules"`
}

type cacheEntry struct {
	Digest []byte `cbor:"digest"`
	Object string `cbor:"object"`
}

// loadCache reads the cache manifest from the build directory. A missing,
// stale or corrupt manifest only costs a full rebuild.
func loadCache(dir string) *buildCache {
	cache := &buildCache{Modules: make(map[string]cacheEntry)}

	data, err := os.ReadFile(filepath.Join(dir, cacheFile))
	if err != nil {
		return cache
	}
	if err := cbor.Unmarshal(data, cache); err != nil || cache.Modules == nil {
		return &buildCache{Modules: make(map[string]cacheEntry)}
	}

	return cache
}

// save writes the manifest in canonical form so identical caches are
// byte-identical.
func (c *buildCache) save(dir string) error {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return err
	}
	data, err := em.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, cacheFile), data, 0o644)
}

// prune drops entries for modules that are no longer part of the program,
// so renamed modules do not pin stale objects forever.
func (c *buildCache) prune(keep map[string]bool) {
	names := maps.Keys(c.Modules)
	slices.Sort(names)

	for _, name := range names {
		if !keep[name] {
			log.Debugf("dropping stale cache entry %s", name)
			delete(c.Modules, name)
		}
	}
}

// fresh reports whether the recorded object for a module still matches the
// given digest and is present on disk.
func (c *buildCache) fresh(name string, digest []byte, object string) bool {
	entry, ok := c.Modules[name]
	if !ok || entry.Object != object || !bytes.Equal(entry.Digest, digest) {
		return false
	}
	if _, err := os.Stat(object); err != nil {
		return false
	}
	return true
}

func (c *buildCache) update(name string, digest []byte, object string) {
	c.Modules[name] = cacheEntry{Digest: digest, Object: object}
}

// digester folds module content into a cache key. Everything that can change
// the module's generated object has to pass through here: defined symbols,
// layouts, constant values, method bodies, and the identity of everything
// those bodies reference.
type digester struct {
	h       hash.Hash
	buf     [8]byte
	layouts *compiler.Layouts
	names   *compiler.SymbolNames
}

// moduleDigest computes the cache key for one module under the given build
// options.
func moduleDigest(mod *ir.Module, layouts *compiler.Layouts, names *compiler.SymbolNames, options Options) []byte {
	d := &digester{h: sha256.New(), layouts: layouts, names: names}

	d.string(options.Target.Triple)
	d.int(int64(options.Optimization))

	// Defined symbols first, order independent.
	defined := make([]string, 0, len(mod.Classes)+len(mod.Constants)+1)
	for _, class := range mod.Classes {
		defined = append(defined, d.names.Classes[class])
	}
	for _, constant := range mod.Constants {
		defined = append(defined, d.names.Constants[constant])
	}
	defined = append(defined, d.names.Setup[mod])
	slices.Sort(defined)
	for _, symbol := range defined {
		d.string(symbol)
	}

	for _, class := range mod.Classes {
		d.class(class)
	}
	for _, constant := range mod.Constants {
		d.string(d.names.Constants[constant])
		d.value(constant.Value)
	}
	for _, extern := range mod.Externs {
		d.extern(extern)
	}

	return d.h.Sum(nil)
}

// mainDigest computes the cache key for the synthetic entry module, which
// depends on every module's setup symbol, the entry method, and the builtin
// method counts.
func mainDigest(program *ir.Program, layouts *compiler.Layouts, names *compiler.SymbolNames, options Options) []byte {
	d := &digester{h: sha256.New(), layouts: layouts, names: names}

	d.string(options.Target.Triple)
	d.int(int64(options.Optimization))

	for _, mod := range program.Modules {
		d.string(d.names.Setup[mod])
	}
	d.string(d.names.Classes[program.EntryClass])
	d.callee(program.EntryMethod)

	for _, mod := range program.Modules {
		for _, class := range mod.Classes {
			if class.Builtin != ir.NotBuiltin {
				d.int(int64(class.Builtin))
				d.int(int64(d.layouts.Classes[class].MethodTableSize))
			}
		}
	}

	return d.h.Sum(nil)
}

func (d *digester) string(s string) {
	d.int(int64(len(s)))
	d.h.Write([]byte(s))
}

func (d *digester) int(v int64) {
	binary.LittleEndian.PutUint64(d.buf[:], uint64(v))
	d.h.Write(d.buf[:])
}

func (d *digester) bool(v bool) {
	if v {
		d.h.Write([]byte{1})
	} else {
		d.h.Write([]byte{0})
	}
}

func (d *digester) class(class *ir.Class) {
	layout := d.layouts.Classes[class]

	d.string(d.names.Classes[class])
	d.int(int64(class.Builtin))
	d.bool(class.Process)
	d.bool(class.Closure)
	d.int(int64(layout.InstanceSize))
	d.int(int64(layout.MethodTableSize))

	d.int(int64(len(class.Fields)))
	for _, field := range class.Fields {
		d.int(int64(field.Index))
	}

	d.int(int64(len(class.Methods)))
	for _, method := range class.Methods {
		d.method(method)
	}
}

func (d *digester) method(method *ir.Method) {
	info := d.layouts.Methods[method]

	d.string(d.names.Methods[method])
	d.int(int64(info.Index))
	d.int(int64(info.Hash))
	d.bool(info.Collision)
	d.bool(method.Async)
	d.bool(method.Throws)
	d.bool(method.Static)
	d.registers(method.Arguments)

	d.int(int64(len(method.Registers)))
	for _, reg := range method.Registers {
		d.int(int64(reg.ID))
		d.int(int64(reg.Kind))
	}

	d.int(int64(len(method.Blocks)))
	for _, block := range method.Blocks {
		d.int(int64(len(block.Instructions)))
		for _, ins := range block.Instructions {
			d.instruction(ins)
		}
	}
}

// callee records the identity of a method a body calls: its symbol, calling
// convention, and dispatch placement.
func (d *digester) callee(method *ir.Method) {
	info := d.layouts.Methods[method]

	d.string(d.names.Methods[method])
	d.bool(method.Async)
	d.bool(method.Throws)
	d.bool(method.Static)
	d.int(int64(len(method.Arguments)))
	d.int(int64(info.Hash))
	d.bool(info.Collision)
}

// classRef records the identity of a class a body allocates or reads fields
// of.
func (d *digester) classRef(class *ir.Class) {
	d.string(d.names.Classes[class])
	d.int(int64(d.layouts.Classes[class].InstanceSize))
	d.bool(class.Process)
}

func (d *digester) extern(fn *ir.ExternFunction) {
	d.string(fn.Name)
	d.int(int64(fn.Params))
	d.int(int64(fn.Returns))
}

func (d *digester) value(value ir.ConstantValue) {
	switch value := value.(type) {
	case ir.IntValue:
		d.string("int")
		d.int(int64(value))
	case ir.FloatValue:
		d.string("float")
		d.int(int64(math.Float64bits(float64(value))))
	case ir.StringValue:
		d.string("string")
		d.string(string(value))
	case ir.ArrayValue:
		d.string("array")
		d.int(int64(len(value)))
		for _, element := range value {
			d.value(element)
		}
	}
}

func (d *digester) registers(regs []ir.RegisterID) {
	d.int(int64(len(regs)))
	for _, reg := range regs {
		d.int(int64(reg))
	}
}

func (d *digester) blocks(blocks []ir.BlockID) {
	d.int(int64(len(blocks)))
	for _, block := range blocks {
		d.int(int64(block))
	}
}

func (d *digester) instruction(ins ir.Instruction) {
	switch ins := ins.(type) {
	case ir.Int:
		d.string("int")
		d.int(int64(ins.Register))
		d.int(ins.Value)
	case ir.Float:
		d.string("float")
		d.int(int64(ins.Register))
		d.int(int64(math.Float64bits(ins.Value)))
	case ir.String:
		d.string("string")
		d.int(int64(ins.Register))
		d.string(ins.Value)
	case ir.Bool:
		d.string("bool")
		d.int(int64(ins.Register))
		d.bool(ins.Value)
	case ir.Nil:
		d.string("nil")
		d.int(int64(ins.Register))
	case ir.MoveRegister:
		d.string("move")
		d.int(int64(ins.Source))
		d.int(int64(ins.Target))
	case ir.GetConstant:
		d.string("const")
		d.int(int64(ins.Register))
		d.string(d.names.Constants[ins.Constant])
	case ir.Allocate:
		d.string("allocate")
		d.int(int64(ins.Register))
		d.classRef(ins.Class)
	case ir.Spawn:
		d.string("spawn")
		d.int(int64(ins.Register))
		d.classRef(ins.Class)
	case ir.Free:
		d.string("free")
		d.int(int64(ins.Register))
	case ir.Reference:
		d.string("ref")
		d.int(int64(ins.Register))
		d.int(int64(ins.Value))
	case ir.Increment:
		d.string("incr")
		d.int(int64(ins.Register))
	case ir.Decrement:
		d.string("decr")
		d.int(int64(ins.Register))
	case ir.IncrementAtomic:
		d.string("incra")
		d.int(int64(ins.Register))
	case ir.CheckRefs:
		d.string("check")
		d.int(int64(ins.Register))
	case ir.GetField:
		d.string("getf")
		d.int(int64(ins.Register))
		d.int(int64(ins.Receiver))
		d.classRef(ins.Class)
		d.int(int64(ins.Field.Index))
	case ir.SetField:
		d.string("setf")
		d.int(int64(ins.Receiver))
		d.classRef(ins.Class)
		d.int(int64(ins.Field.Index))
		d.int(int64(ins.Value))
	case ir.FieldPointer:
		d.string("fptr")
		d.int(int64(ins.Register))
		d.int(int64(ins.Receiver))
		d.classRef(ins.Class)
		d.int(int64(ins.Field.Index))
	case ir.Pointer:
		d.string("ptr")
		d.int(int64(ins.Register))
		d.int(int64(ins.Value))
	case ir.ReadPointer:
		d.string("readp")
		d.int(int64(ins.Register))
		d.int(int64(ins.Address))
	case ir.WritePointer:
		d.string("writep")
		d.int(int64(ins.Address))
		d.int(int64(ins.Value))
	case ir.CallStatic:
		d.string("calls")
		d.int(int64(ins.Register))
		d.callee(ins.Method)
		d.registers(ins.Arguments)
	case ir.CallInstance:
		d.string("calli")
		d.int(int64(ins.Register))
		d.int(int64(ins.Receiver))
		d.callee(ins.Method)
		d.registers(ins.Arguments)
	case ir.CallDynamic:
		d.string("calld")
		d.int(int64(ins.Register))
		d.int(int64(ins.Receiver))
		d.callee(ins.Method)
		d.registers(ins.Arguments)
	case ir.CallClosure:
		d.string("callc")
		d.int(int64(ins.Register))
		d.int(int64(ins.Receiver))
		d.registers(ins.Arguments)
	case ir.CallDropper:
		d.string("calldr")
		d.int(int64(ins.Register))
		d.int(int64(ins.Receiver))
	case ir.CallExtern:
		d.string("calle")
		d.int(int64(ins.Register))
		d.extern(ins.Function)
		d.registers(ins.Arguments)
	case ir.CallBuiltin:
		d.string("callb")
		d.int(int64(ins.Register))
		d.int(int64(ins.Builtin))
		d.registers(ins.Arguments)
	case ir.Send:
		d.string("send")
		d.int(int64(ins.Receiver))
		d.callee(ins.Method)
		d.registers(ins.Arguments)
	case ir.ResultValue:
		d.string("resval")
		d.int(int64(ins.Register))
		d.int(int64(ins.Value))
	case ir.Preempt:
		d.string("preempt")
	case ir.Goto:
		d.string("goto")
		d.int(int64(ins.Block))
	case ir.Branch:
		d.string("branch")
		d.int(int64(ins.Condition))
		d.int(int64(ins.IfTrue))
		d.int(int64(ins.IfFalse))
	case ir.Switch:
		d.string("switch")
		d.int(int64(ins.Value))
		d.blocks(ins.Blocks)
	case ir.BranchResult:
		d.string("branchres")
		d.int(int64(ins.Value))
		d.int(int64(ins.Ok))
		d.int(int64(ins.Error))
	case ir.DecrementAtomic:
		d.string("decra")
		d.int(int64(ins.Register))
		d.int(int64(ins.Zero))
		d.int(int64(ins.NonZero))
	case ir.Return:
		d.string("return")
		d.int(int64(ins.Value))
	case ir.Throw:
		d.string("throw")
		d.int(int64(ins.Value))
	case ir.Finish:
		d.string("finish")
		d.bool(ins.Terminate)
	}
}
