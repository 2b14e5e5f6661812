package builder

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aster-lang/aster/compiler"
	"github.com/aster-lang/aster/ir"
)

// mainModule names the synthetic module holding the process entry point.
const mainModule = "$main"

// ModuleTiming records how long one module took to generate.
type ModuleTiming struct {
	Module   string
	Duration time.Duration
	Cached   bool
}

// Result describes a finished build.
type Result struct {
	// Objects lists the emitted object files in module order, the entry
	// object last.
	Objects []string

	// Executable is the linked output path. Empty when linking was skipped.
	Executable string

	Timings []ModuleTiming
}

// Build generates native code for the program and links it into an
// executable. Modules are ordered imports first, generated in parallel with
// one LLVM context per module, and reused from the build cache when their
// content digest is unchanged.
func Build(program *ir.Program, options Options) (*Result, error) {
	start := time.Now()

	if len(program.Modules) == 0 {
		return nil, ErrNoModules
	}
	if program.EntryClass == nil || program.EntryMethod == nil {
		return nil, ErrNoEntry
	}
	if err := program.Validate(); err != nil {
		return nil, err
	}

	order, err := moduleOrder(program)
	if err != nil {
		return nil, err
	}
	program.Modules = order

	if options.BuildDir == "" {
		options.BuildDir = "build"
	}
	if err := os.MkdirAll(options.BuildDir, 0o755); err != nil {
		return nil, err
	}

	target, err := compiler.NewTarget(options.Target, options.Optimization)
	if err != nil {
		return nil, err
	}
	if err := target.Initialize(); err != nil {
		return nil, err
	}
	defer target.Dispose()

	layouts := compiler.NewLayouts(program, options.Target)
	names := compiler.NewSymbolNames(program)
	cache := loadCache(options.BuildDir)

	results := compileModules(program, layouts, names, target, cache, options)

	result := &Result{}
	var errs []error
	for _, r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		result.Objects = append(result.Objects, r.object)
		result.Timings = append(result.Timings, r.timing)
		cache.update(r.timing.Module, r.digest, r.object)
	}
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}

	keep := make(map[string]bool, len(program.Modules)+1)
	for _, mod := range program.Modules {
		keep[mod.Name] = true
	}
	keep[mainModule] = true
	cache.prune(keep)

	if err := cache.save(options.BuildDir); err != nil {
		log.Warningf("saving build cache: %s", err)
	}

	if options.Output != "" {
		if err := link(result.Objects, options.Runtime, options.Output); err != nil {
			return nil, err
		}
		result.Executable = options.Output
	}

	log.Infof("built %d modules in %s", len(result.Objects), time.Since(start).Round(time.Millisecond))

	return result, nil
}

type moduleResult struct {
	timing ModuleTiming
	object string
	digest []byte
	err    error
}

// compileModules runs code generation across a worker pool. Each worker owns
// one compiler at a time; results land in a fixed slot per module so the
// output order is deterministic.
func compileModules(program *ir.Program, layouts *compiler.Layouts, names *compiler.SymbolNames, target *compiler.Target, cache *buildCache, options Options) []moduleResult {
	type job struct {
		index int
		mod   *ir.Module
		main  bool
	}

	jobs := make(chan job)
	results := make([]moduleResult, len(program.Modules)+1)

	var wg sync.WaitGroup
	for i := 0; i < options.jobs(len(results)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				results[j.index] = compileModule(program, j.mod, j.main, layouts, names, target, cache, options)
			}
		}()
	}

	for i, mod := range program.Modules {
		jobs <- job{index: i, mod: mod}
	}
	jobs <- job{index: len(program.Modules), mod: &ir.Module{Name: mainModule}, main: true}
	close(jobs)
	wg.Wait()

	return results
}

func compileModule(program *ir.Program, mod *ir.Module, main bool, layouts *compiler.Layouts, names *compiler.SymbolNames, target *compiler.Target, cache *buildCache, options Options) moduleResult {
	start := time.Now()

	var digest []byte
	if main {
		digest = mainDigest(program, layouts, names, options)
	} else {
		digest = moduleDigest(mod, layouts, names, options)
	}
	object := filepath.Join(options.BuildDir, objectName(mod.Name))

	if cache.fresh(mod.Name, digest, object) {
		log.Debugf("%s is up to date", mod.Name)
		return moduleResult{
			timing: ModuleTiming{Module: mod.Name, Duration: time.Since(start), Cached: true},
			object: object,
			digest: digest,
		}
	}

	cc := compiler.NewCompiler(program, mod, layouts, names, options.compilerOptions())
	defer cc.Dispose()

	var err error
	if main {
		cc.CompileMain()
		if options.Verify {
			err = cc.Verify()
		}
	} else {
		err = cc.Compile()
	}
	if err != nil {
		return moduleResult{err: fmt.Errorf("%s: %w", mod.Name, err)}
	}

	if err := cc.Optimize(target.Machine()); err != nil {
		return moduleResult{err: fmt.Errorf("%s: %w", mod.Name, err)}
	}

	if options.WriteIR {
		path := strings.TrimSuffix(object, ".o") + ".ll"
		if err := os.WriteFile(path, []byte(cc.IRText()), 0o644); err != nil {
			return moduleResult{err: err}
		}
	}

	data, err := cc.EmitObject(target.Machine())
	if err != nil {
		return moduleResult{err: fmt.Errorf("%s: %w", mod.Name, err)}
	}
	if err := os.WriteFile(object, data, 0o644); err != nil {
		return moduleResult{err: err}
	}

	log.Infof("compiled %s in %s", mod.Name, time.Since(start).Round(time.Millisecond))

	return moduleResult{
		timing: ModuleTiming{Module: mod.Name, Duration: time.Since(start)},
		object: object,
		digest: digest,
	}
}

var objectNames = strings.NewReplacer("::", ".", "/", "_", "\\", "_", "$", "_")

// objectName flattens a module path into an object file name.
func objectName(name string) string {
	return objectNames.Replace(name) + ".o"
}
