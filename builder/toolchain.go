package builder

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// findLinkerDriver locates the C compiler used to drive the final link. CC
// in the environment wins; otherwise clang is preferred with a fallback to
// gcc.
func findLinkerDriver() (string, error) {
	if cc := os.Getenv("CC"); len(cc) != 0 {
		return cc, nil
	}

	cc, err := findExecutable("clang")
	if err != nil {
		// Fallback to GCC.
		cc, err = findExecutable("gcc")
	}
	if err != nil {
		return "", ErrNoLinkerDriver
	}

	return cc, nil
}

func findExecutable(cmd string) (string, error) {
	fname, err := exec.LookPath(cmd)
	if err == nil {
		fname, err = filepath.Abs(fname)
	}
	return fname, err
}

// link combines the emitted objects and the runtime static library into the
// output executable.
func link(objects []string, runtime string, output string) error {
	cc, err := findLinkerDriver()
	if err != nil {
		return err
	}

	if dir := filepath.Dir(output); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	args := make([]string, 0, len(objects)+6)
	args = append(args, objects...)
	if len(runtime) != 0 {
		args = append(args, runtime)
	}
	args = append(args, "-lm", "-lpthread", "-o", output)

	log.Debugf("linking with %s %s", cc, strings.Join(args, " "))

	if out, err := exec.Command(cc, args...).CombinedOutput(); err != nil {
		return errors.Join(ErrLinkFailed, errors.New(strings.TrimSpace(string(out))))
	}

	return nil
}
