//go:build linux

// Package syscall provides a low-level interface to the Linux Landlock
// sandboxing feature. It is the same kind of seam as go-landlock's own
// landlock/syscall package: everything above this layer works with Go
// types and bitmasks, everything in this layer talks raw syscalls.
package syscall

import (
	"syscall"
	"unsafe"

	"kernel.org/pub/linux/libs/security/libcap/psx"
)

// The Landlock syscall numbers are the same on all architectures that
// support Landlock (x86_64, arm64, riscv64). prctl's number differs
// between architectures and is taken from the standard library.
const (
	sysLandlockCreateRuleset = 444
	sysLandlockAddRule       = 445
	sysLandlockRestrictSelf  = 446
	sysPrctl                 = syscall.SYS_PRCTL
)

// LandlockCreateRuleset creates a ruleset file descriptor with the
// given attributes. Passing a nil attr together with
// FlagCreateRulesetVersion queries the ABI version supported by the
// running kernel instead of creating a ruleset.
func LandlockCreateRuleset(attr *RulesetAttr, flags int) (fd int, err error) {
	var (
		attrPtr  uintptr
		attrSize uintptr
	)
	if attr != nil {
		attrPtr = uintptr(unsafe.Pointer(attr))
		attrSize = rulesetAttrSize
	}
	r0, _, e1 := syscall.Syscall(sysLandlockCreateRuleset, attrPtr, attrSize, uintptr(flags))
	fd = int(r0)
	if e1 != 0 {
		err = syscall.Errno(e1)
	}
	return
}

// LandlockGetABIVersion returns the highest Landlock ABI version
// supported by the running kernel, or 0 if Landlock is unavailable.
func LandlockGetABIVersion() (version int, err error) {
	v, err := LandlockCreateRuleset(nil, FlagCreateRulesetVersion)
	if err != nil {
		return 0, err
	}
	return v, nil
}

// LandlockAddRule is the generic landlock_add_rule syscall.
func LandlockAddRule(rulesetFd int, ruleType int, ruleAttr unsafe.Pointer, flags int) (err error) {
	_, _, e1 := syscall.Syscall6(sysLandlockAddRule, uintptr(rulesetFd), uintptr(ruleType), uintptr(ruleAttr), uintptr(flags), 0, 0)
	if e1 != 0 {
		err = syscall.Errno(e1)
	}
	return
}

// LandlockAddPathBeneathRule adds a path-beneath rule to rulesetFd.
func LandlockAddPathBeneathRule(rulesetFd int, attr *PathBeneathAttr, flags int) error {
	return LandlockAddRule(rulesetFd, RuleTypePathBeneath, unsafe.Pointer(attr), flags)
}

// LandlockAddNetPortRule adds a net-port rule to rulesetFd.
func LandlockAddNetPortRule(rulesetFd int, attr *NetPortAttr, flags int) error {
	return LandlockAddRule(rulesetFd, RuleTypeNetPort, unsafe.Pointer(attr), flags)
}

// LandlockRestrictSelf enforces the given ruleset on the calling
// thread only. Go reschedules goroutines across OS threads, so this is
// rarely what a caller wants; see AllThreadsLandlockRestrictSelf. The
// ruleset builder never calls either of them, entering the sandbox is
// the caller's responsibility.
func LandlockRestrictSelf(rulesetFd int, flags int) (err error) {
	_, _, e1 := syscall.Syscall(sysLandlockRestrictSelf, uintptr(rulesetFd), uintptr(flags), 0)
	if e1 != 0 {
		err = syscall.Errno(e1)
	}
	return
}

// AllThreadsLandlockRestrictSelf enforces the given ruleset on every
// OS thread of the current process, using psx to run the syscall
// across all threads before any of them can fork or spawn a new one
// that would otherwise escape the restriction.
func AllThreadsLandlockRestrictSelf(rulesetFd int, flags int) (err error) {
	_, _, e1 := psx.Syscall3(sysLandlockRestrictSelf, uintptr(rulesetFd), uintptr(flags), 0)
	if e1 != 0 {
		err = syscall.Errno(e1)
	}
	return
}

// AllThreadsPrctl is like unix.Prctl, but applies to every OS thread
// of the current process at once, via psx.
func AllThreadsPrctl(option int, arg2, arg3, arg4, arg5 uintptr) (err error) {
	_, _, e1 := psx.Syscall6(sysPrctl, uintptr(option), arg2, arg3, arg4, arg5, 0)
	if e1 != 0 {
		err = syscall.Errno(e1)
	}
	return
}
