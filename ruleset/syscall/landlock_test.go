//go:build linux

package syscall

import "testing"

func TestAccessBitsAreDisjoint(t *testing.T) {
	fs := []uint64{
		AccessFSExecute, AccessFSWriteFile, AccessFSReadFile, AccessFSReadDir,
		AccessFSRemoveDir, AccessFSRemoveFile, AccessFSMakeChar, AccessFSMakeDir,
		AccessFSMakeReg, AccessFSMakeSock, AccessFSMakeFifo, AccessFSMakeBlock,
		AccessFSMakeSym, AccessFSRefer, AccessFSTruncate, AccessFSIoctlDev,
	}
	seen := uint64(0)
	for _, bit := range fs {
		if seen&bit != 0 {
			t.Fatalf("access bit %#x overlaps with an earlier fs access right", bit)
		}
		seen |= bit
	}

	net := []uint64{AccessNetBindTCP, AccessNetConnectTCP}
	seen = 0
	for _, bit := range net {
		if seen&bit != 0 {
			t.Fatalf("access bit %#x overlaps with an earlier net access right", bit)
		}
		seen |= bit
	}

	scope := []uint64{ScopeAbstractUnixSocket, ScopeSignal}
	seen = 0
	for _, bit := range scope {
		if seen&bit != 0 {
			t.Fatalf("access bit %#x overlaps with an earlier scope right", bit)
		}
		seen |= bit
	}
}

func TestRulesetAttrSizeMatchesFieldLayout(t *testing.T) {
	got := int(rulesetAttrSize)
	want := 8 + 8 + 8 // HandledAccessFS + HandledAccessNet + Scoped
	if got != want {
		t.Errorf("rulesetAttrSize = %d, want %d", got, want)
	}
}

func TestGetABIVersionDoesNotPanic(t *testing.T) {
	// On a kernel without Landlock support this returns (0, ENOSYS);
	// on a supporting kernel it returns a version >= 1. Either way it
	// must not panic, which is what this guards against.
	if _, err := LandlockGetABIVersion(); err != nil {
		t.Logf("LandlockGetABIVersion: %v (no Landlock support, or test sandboxed)", err)
	}
}
