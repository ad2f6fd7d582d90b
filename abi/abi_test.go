package abi

import (
	"errors"
	"testing"

	ll "github.com/landlock-lsm/landlockconfig/ruleset/syscall"
)

func TestResolveFSPlainKeyword(t *testing.T) {
	tests := []struct {
		keyword string
		want    FS
	}{
		{"execute", FS(ll.AccessFSExecute)},
		{"write_file", FS(ll.AccessFSWriteFile)},
		{"refer", FS(ll.AccessFSRefer)},
		{"truncate", FS(ll.AccessFSTruncate)},
		{"ioctl_dev", FS(ll.AccessFSIoctlDev)},
	}
	for _, tc := range tests {
		got, err := ResolveFS(tc.keyword, 0)
		if err != nil {
			t.Errorf("ResolveFS(%q): unexpected error %v", tc.keyword, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveFS(%q) = %#x, want %#x", tc.keyword, got, tc.want)
		}
	}
}

func TestResolveFSUnknownKeyword(t *testing.T) {
	_, err := ResolveFS("delete_everything", 0)
	var uk *UnknownKeywordError
	if !errors.As(err, &uk) {
		t.Fatalf("ResolveFS(bogus) error = %v, want *UnknownKeywordError", err)
	}
}

func TestResolveFSVersionAggregates(t *testing.T) {
	tests := []struct {
		keyword string
		want    FS
	}{
		{"v1.all", fsV1},
		{"v2.all", fsV2},
		{"v3.all", fsV3},
		{"v5.all", fsV5},
		{"v1.read_execute", FS(ll.AccessFSExecute | ll.AccessFSReadFile | ll.AccessFSReadDir)},
		{"v2.read_execute", FS(ll.AccessFSExecute | ll.AccessFSReadFile | ll.AccessFSReadDir | ll.AccessFSRefer)},
		{"v1.read_write", fsV1 &^ FS(ll.AccessFSExecute)},
	}
	for _, tc := range tests {
		got, err := ResolveFS(tc.keyword, 0)
		if err != nil {
			t.Errorf("ResolveFS(%q): unexpected error %v", tc.keyword, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ResolveFS(%q) = %#x, want %#x", tc.keyword, got, tc.want)
		}
	}
}

func TestResolveFSAbiAlias(t *testing.T) {
	got, err := ResolveFS("abi.all", 3)
	if err != nil {
		t.Fatalf("ResolveFS(abi.all, 3): unexpected error %v", err)
	}
	if got != fsV3 {
		t.Errorf("ResolveFS(abi.all, 3) = %#x, want %#x", got, fsV3)
	}
}

func TestResolveFSAbiAliasWithoutDeclaredVersion(t *testing.T) {
	_, err := ResolveFS("abi.all", 0)
	var ae *AliasError
	if !errors.As(err, &ae) {
		t.Fatalf("ResolveFS(abi.all, 0) error = %v, want *AliasError", err)
	}
}

func TestResolveNet(t *testing.T) {
	got, err := ResolveNet("bind_tcp", 0)
	if err != nil {
		t.Fatalf("ResolveNet(bind_tcp): unexpected error %v", err)
	}
	if got != Net(ll.AccessNetBindTCP) {
		t.Errorf("ResolveNet(bind_tcp) = %#x, want %#x", got, ll.AccessNetBindTCP)
	}

	all, err := ResolveNet("v4.all", 0)
	if err != nil {
		t.Fatalf("ResolveNet(v4.all): unexpected error %v", err)
	}
	if all != netV4 {
		t.Errorf("ResolveNet(v4.all) = %#x, want %#x", all, netV4)
	}
}

func TestResolveNetRejectsReadExecuteSuffix(t *testing.T) {
	if _, err := ResolveNet("v4.read_execute", 0); err == nil {
		t.Fatalf("ResolveNet(v4.read_execute) succeeded, want error (net has no read_execute aggregate)")
	}
}

func TestResolveScope(t *testing.T) {
	got, err := ResolveScope("signal", 0)
	if err != nil {
		t.Fatalf("ResolveScope(signal): unexpected error %v", err)
	}
	if got != Scope(ll.ScopeSignal) {
		t.Errorf("ResolveScope(signal) = %#x, want %#x", got, ll.ScopeSignal)
	}

	all, err := ResolveScope("v6.all", 0)
	if err != nil {
		t.Fatalf("ResolveScope(v6.all): unexpected error %v", err)
	}
	if all != scopeV6 {
		t.Errorf("ResolveScope(v6.all) = %#x, want %#x", all, scopeV6)
	}
}

func TestLevelsAreCumulative(t *testing.T) {
	for v := 1; v <= Highest; v++ {
		prev := At(v - 1)
		cur := At(v)
		if cur.FS&prev.FS != prev.FS {
			t.Errorf("At(%d).FS does not retain all of At(%d).FS", v, v-1)
		}
		if cur.Net&prev.Net != prev.Net {
			t.Errorf("At(%d).Net does not retain all of At(%d).Net", v, v-1)
		}
		if cur.Scope&prev.Scope != prev.Scope {
			t.Errorf("At(%d).Scope does not retain all of At(%d).Scope", v, v-1)
		}
	}
}

func TestAtClampsOutOfRangeVersions(t *testing.T) {
	if At(-1) != At(0) {
		t.Errorf("At(-1) != At(0)")
	}
	if At(99) != At(Highest) {
		t.Errorf("At(99) != At(Highest)")
	}
}
