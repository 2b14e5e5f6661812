package targets

import (
	"errors"
	"testing"
)

func TestFindByName(t *testing.T) {
	target, err := All().FindByName("linux-amd64")
	if err != nil {
		t.Fatalf("FindByName() error: %s", err)
	}

	if target.Triple != "x86_64-linux-gnu" {
		t.Errorf("triple = %q, want x86_64-linux-gnu", target.Triple)
	}
	if target.PointerSize != 8 {
		t.Errorf("pointer size = %d, want 8", target.PointerSize)
	}
}

func TestFindByNameIgnoresCase(t *testing.T) {
	if _, err := All().FindByName("Linux-AMD64"); err != nil {
		t.Fatalf("FindByName() error: %s", err)
	}
}

func TestFindByNameUnknown(t *testing.T) {
	if _, err := All().FindByName("pdp11"); !errors.Is(err, ErrTargetNotFound) {
		t.Fatalf("FindByName() error = %v, want ErrTargetNotFound", err)
	}
}

func TestTargetTableComplete(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("no targets embedded")
	}

	for _, target := range all {
		if target.Name == "" || target.Triple == "" {
			t.Errorf("target %+v is missing a name or triple", target)
		}
		if target.PointerSize == 0 {
			t.Errorf("target %s has no pointer size", target.Name)
		}
		if target.ProcessSize == 0 {
			t.Errorf("target %s has no process size", target.Name)
		}
	}
}
