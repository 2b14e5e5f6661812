package builder

import (
	"fmt"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest is a parsed aster.toml project file.
type Manifest struct {
	Package PackageSection `toml:"package"`
}

type PackageSection struct {
	// Name names the executable when no output path is given.
	Name string `toml:"name"`

	// Entry is the module whose Main process starts the program.
	Entry string `toml:"entry"`

	Target string `toml:"target"`
	Output string `toml:"output"`
}

// LoadManifest reads and checks a project manifest. A missing output path
// defaults to build/<name>.
func LoadManifest(path string) (*Manifest, error) {
	var manifest Manifest
	if _, err := toml.DecodeFile(path, &manifest); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if manifest.Package.Name == "" {
		return nil, ErrManifestName
	}
	if manifest.Package.Entry == "" {
		return nil, ErrManifestEntry
	}
	if manifest.Package.Output == "" {
		manifest.Package.Output = filepath.Join("build", manifest.Package.Name)
	}

	return &manifest, nil
}
