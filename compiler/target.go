package compiler

import (
	"errors"
	"strings"

	"tinygo.org/x/go-llvm"
)

type TargetInfo struct {
	Name        string   `yaml:"name"`
	Triple      string   `yaml:"triple"`
	Cpu         string   `yaml:"cpu"`
	Features    []string `yaml:"features"`
	OS          string   `yaml:"os"`
	PointerSize int      `yaml:"pointerSize"`
	ProcessSize int      `yaml:"processSize"`
}

type Target struct {
	info         TargetInfo
	optimization Opt

	targetRef  llvm.Target
	machineRef llvm.TargetMachine
	dataLayout llvm.TargetData
}

func NewTarget(info TargetInfo, opt Opt) (*Target, error) {
	var target Target

	target.info = info
	target.optimization = opt

	// cpu and triple are required values
	if len(info.Cpu) == 0 {
		return nil, ErrTargetMissingCpu
	}

	if len(info.Triple) == 0 {
		return nil, ErrTargetMissingTriple
	}

	return &target, nil
}

func (t *Target) Initialize() error {
	// Get the target from the triple
	target, err := llvm.GetTargetFromTriple(t.info.Triple)
	if err != nil {
		return errors.Join(ErrTargetInformationFailed, err)
	}

	// Store the target ref
	t.targetRef = target

	// Determine the optimization level
	var optLevel llvm.CodeGenOptLevel
	switch t.optimization {
	case OptRelease:
		optLevel = llvm.CodeGenLevelDefault
	default:
		// Disable optimizations
		optLevel = llvm.CodeGenLevelNone
	}

	// Create the target machine with the desired CPU and features
	t.machineRef = target.CreateTargetMachine(
		t.info.Triple,
		t.info.Cpu,
		t.featuresString(),
		optLevel,
		llvm.RelocPIC,
		llvm.CodeModelDefault)

	// Get the data layout
	t.dataLayout = t.machineRef.CreateTargetData()

	return nil
}

func (t *Target) Dispose() {
	t.machineRef.Dispose()
	t.dataLayout.Dispose()
}

func (t *Target) featuresString() string {
	features := make([]string, len(t.info.Features))
	for i, feature := range t.info.Features {
		features[i] = "+" + feature
	}
	return strings.Join(features, ",")
}

func (t *Target) Info() TargetInfo {
	return t.info
}

func (t *Target) Machine() llvm.TargetMachine {
	return t.machineRef
}

func (t *Target) Triple() string {
	return t.info.Triple
}

func (t *Target) Layout() llvm.TargetData {
	return t.dataLayout
}
