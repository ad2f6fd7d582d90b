// Package ruleset drives the Landlock syscalls: it takes a validated
// config.Policy and turns it into a kernel ruleset file descriptor,
// applying the best-effort compatibility downgrade described in
// spec §4.5. It is the Go-native generalization of go-landlock's
// landlock/restrict.go (downgrade, populate, restrictPaths) to a
// policy that was parsed from a document rather than built up through
// Go function calls.
package ruleset

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/landlock-lsm/landlockconfig/abi"
	"github.com/landlock-lsm/landlockconfig/config"
	"github.com/landlock-lsm/landlockconfig/lcerror"
	ll "github.com/landlock-lsm/landlockconfig/ruleset/syscall"
)

// Build implements §4.5's protocol: query the kernel ABI, compute the
// effective (downgraded) handled-access masks, create the ruleset,
// and add every path-beneath and net-port rule, skipping any rule that
// becomes empty after downgrade rather than failing. flags is reserved
// for future compatibility knobs and must currently be 0, matching
// spec §6.2.
//
// The returned file descriptor is owned by the caller; Build never
// calls landlock_restrict_self, entering the sandbox is the caller's
// job (spec §1).
func Build(policy *config.Policy, flags int) (fd int, err error) {
	if flags != 0 {
		return -1, lcerror.New(lcerror.Kernel, "", "flags must be 0")
	}

	version, err := ll.LandlockGetABIVersion()
	if err != nil {
		return -1, lcerror.Wrap(lcerror.Kernel, "", "Landlock is not supported by the running kernel", err)
	}
	level := abi.At(version)
	effectiveFS, effectiveNet, effectiveScope := downgrade(policy.EffectiveHandled(), level)

	attr := &ll.RulesetAttr{
		HandledAccessFS:  uint64(effectiveFS),
		HandledAccessNet: uint64(effectiveNet),
		Scoped:           uint64(effectiveScope),
	}
	rulesetFd, err := ll.LandlockCreateRuleset(attr, 0)
	if err != nil {
		return -1, lcerror.Wrap(lcerror.Kernel, "", "landlock_create_ruleset failed", err)
	}

	ok := false
	defer func() {
		if !ok {
			unix.Close(rulesetFd)
		}
	}()

	for i, rule := range policy.PathBeneath {
		allowed := rule.AllowedAccess & effectiveFS
		if allowed == 0 {
			continue
		}
		if err := addPathBeneathRule(rulesetFd, allowed, rule.Parent); err != nil {
			return -1, lcerror.Wrap(lcerror.Kernel, fmt.Sprintf("pathBeneath[%d]", i), "adding path-beneath rule", err)
		}
	}

	for i, rule := range policy.NetPort {
		allowed := rule.AllowedAccess & effectiveNet
		if allowed == 0 {
			continue
		}
		for _, port := range rule.Port {
			attr := &ll.NetPortAttr{AllowedAccess: uint64(allowed), Port: uint64(port)}
			if err := ll.LandlockAddNetPortRule(rulesetFd, attr, 0); err != nil {
				return -1, lcerror.Wrap(lcerror.Kernel, fmt.Sprintf("netPort[%d]", i), "adding net-port rule", err)
			}
		}
	}

	ok = true
	return rulesetFd, nil
}

// downgrade intersects a policy's handled-access union with what the
// running kernel's ABI level actually supports, the single-point
// compatibility step spec §9's "Design notes" describes: the rest of
// the builder stays ABI-agnostic.
func downgrade(handled config.HandledAccess, level abi.Level) (fs abi.FS, net abi.Net, scope abi.Scope) {
	return handled.FS & level.FS, handled.Net & level.Net, handled.Scope & level.Scope
}

// addPathBeneathRule opens every parent entry (directly, for
// caller-supplied fds, or via O_PATH|O_CLOEXEC for paths) and calls
// landlock_add_rule once per entry, closing any fd it opened itself
// before returning, on every exit path.
func addPathBeneathRule(rulesetFd int, allowed abi.FS, parents []config.ParentEntry) error {
	for _, entry := range parents {
		parentFd, closeFd, err := openParent(entry)
		if err != nil {
			return err
		}
		attr := &ll.PathBeneathAttr{AllowedAccess: uint64(allowed), ParentFd: int32(parentFd)}
		addErr := ll.LandlockAddPathBeneathRule(rulesetFd, attr, 0)
		if closeFd != nil {
			closeFd()
		}
		if addErr != nil {
			return fmt.Errorf("parent %s: %w", entry.Path, addErr)
		}
	}
	return nil
}

// openParent resolves a single parent entry to a file descriptor.
// Caller-supplied fds (entry.IsFD) are returned as-is with no closer,
// since the core never closes a caller-owned fd (spec §5).
func openParent(entry config.ParentEntry) (fd int, closeFd func(), err error) {
	if entry.IsFD {
		return entry.FD, nil, nil
	}
	opened, err := unix.Open(entry.Path, unix.O_PATH|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, nil, fmt.Errorf("opening %q: %w", entry.Path, err)
	}
	return opened, func() { unix.Close(opened) }, nil
}
