package targets

import (
	_ "embed"
	"errors"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aster-lang/aster/compiler"
)

//go:embed targets.yaml
var rawTargets []byte

var targets Targets

var ErrTargetNotFound = errors.New("target not found")

func All() Targets {
	return targets
}

type Targets []compiler.TargetInfo

func (t Targets) FindByName(name string) (compiler.TargetInfo, error) {
	for _, target := range t {
		if target.Name == strings.ToLower(name) {
			return target, nil
		}
	}
	return compiler.TargetInfo{}, ErrTargetNotFound
}

// Native returns the target describing the host the compiler runs on.
func Native() (compiler.TargetInfo, error) {
	return targets.FindByName(runtime.GOOS + "-" + runtime.GOARCH)
}

func init() {
	var t struct {
		Elements []compiler.TargetInfo `yaml:"targets"`
	}
	if err := yaml.Unmarshal(rawTargets, &t); err != nil {
		panic(err)
	}

	targets = t.Elements
}
