// Package rllttest has helpers for Landlock-enabled tests, adapted
// from go-landlock's landlock/lltest against this module's own
// ruleset/syscall package.
package rllttest

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"

	ll "github.com/landlock-lsm/landlockconfig/ruleset/syscall"
)

// RunInSubprocess runs the given test function in a subprocess and
// forwards its output. Landlock restrictions applied by a test are
// irreversible for the rest of that process, so any test that builds
// and enters a ruleset needs to do so in a throwaway subprocess.
func RunInSubprocess(t *testing.T, f func()) {
	t.Helper()

	if IsRunningInSubprocess() {
		f()
		return
	}

	args := append(os.Args[1:], "-test.run="+regexp.QuoteMeta(t.Name())+"$")

	// Make sure the parent process cleans up the actual TempDir; a
	// child using t.TempDir() would create it under $TMPDIR instead.
	t.Setenv("TMPDIR", t.TempDir())

	t.Setenv("IS_SUBPROCESS", "yes")
	buf, err := exec.Command(os.Args[0], args...).Output()

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		t.Fatalf("could not execute test in subprocess: %v", err)
	}

	lines := strings.Split(string(buf), "\n")
	for _, l := range lines {
		if l == "FAIL" {
			defer func() { t.Error("test failed in subprocess") }()
			continue
		}
		if strings.HasPrefix(l, "--- SKIP") {
			defer func() { t.Skip("test skipped in subprocess") }()
			continue
		}
		if strings.HasPrefix(l, "===") || strings.HasPrefix(l, "---") || l == "PASS" || l == "" {
			continue
		}
		fmt.Println(l)
	}
}

// TempDir is a replacement for t.TempDir() for use in tests that enter
// a Landlock sandbox: the test framework tries to remove t.TempDir()
// after the test runs, which fails once the subprocess has restricted
// itself out of being able to remove it.
func TempDir(t testing.TB) string {
	t.Helper()

	if IsRunningInSubprocess() {
		dir, err := os.MkdirTemp("", "LandlockConfigTestTempDir")
		if err != nil {
			t.Fatalf("os.MkdirTemp: %v", err)
		}
		return dir
	}
	return t.TempDir()
}

// RequireABI skips the test if the running kernel does not provide at
// least the given Landlock ABI version.
func RequireABI(t testing.TB, want int) {
	t.Helper()

	v, err := ll.LandlockGetABIVersion()
	if err != nil || v < want {
		t.Skipf("requires Landlock >= v%d, got v%d (err=%v)", want, v, err)
	}
}

func IsRunningInSubprocess() bool {
	return os.Getenv("IS_SUBPROCESS") != ""
}
