package builder

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/tools/txtar"
)

const manifestFixtures = `
-- full/aster.toml --
[package]
name = "counter"
entry = "main"
target = "linux-amd64"
output = "out/counter"
-- minimal/aster.toml --
[package]
name = "counter"
entry = "main"
-- unnamed/aster.toml --
[package]
entry = "main"
-- noentry/aster.toml --
[package]
name = "counter"
`

func writeManifests(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	for _, file := range txtar.Parse([]byte(manifestFixtures)).Files {
		path := filepath.Join(dir, file.Name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, file.Data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoadManifest(t *testing.T) {
	dir := writeManifests(t)

	manifest, err := LoadManifest(filepath.Join(dir, "full", "aster.toml"))
	if err != nil {
		t.Fatalf("LoadManifest() error: %s", err)
	}

	pkg := manifest.Package
	if pkg.Name != "counter" {
		t.Errorf("name = %q, want counter", pkg.Name)
	}
	if pkg.Entry != "main" {
		t.Errorf("entry = %q, want main", pkg.Entry)
	}
	if pkg.Target != "linux-amd64" {
		t.Errorf("target = %q, want linux-amd64", pkg.Target)
	}
	if pkg.Output != "out/counter" {
		t.Errorf("output = %q, want out/counter", pkg.Output)
	}
}

func TestLoadManifestDefaultOutput(t *testing.T) {
	dir := writeManifests(t)

	manifest, err := LoadManifest(filepath.Join(dir, "minimal", "aster.toml"))
	if err != nil {
		t.Fatalf("LoadManifest() error: %s", err)
	}

	if want := filepath.Join("build", "counter"); manifest.Package.Output != want {
		t.Errorf("output = %q, want %q", manifest.Package.Output, want)
	}
}

func TestLoadManifestErrors(t *testing.T) {
	dir := writeManifests(t)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing name", filepath.Join(dir, "unnamed", "aster.toml"), ErrManifestName},
		{"missing entry", filepath.Join(dir, "noentry", "aster.toml"), ErrManifestEntry},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadManifest(tc.path); !errors.Is(err, tc.want) {
				t.Errorf("LoadManifest() error = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := LoadManifest(filepath.Join(dir, "absent", "aster.toml")); err == nil {
		t.Error("LoadManifest() succeeded on a missing file")
	}
}
