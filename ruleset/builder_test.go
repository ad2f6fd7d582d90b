package ruleset

import (
	"testing"

	"github.com/landlock-lsm/landlockconfig/abi"
	"github.com/landlock-lsm/landlockconfig/config"
	"github.com/landlock-lsm/landlockconfig/ruleset/rllttest"
)

func TestDowngrade(t *testing.T) {
	for _, tc := range []struct {
		Name string

		Handled config.HandledAccess
		Level   abi.Level

		WantFS    abi.FS
		WantNet   abi.Net
		WantScope abi.Scope
	}{
		{
			Name:    "RestrictHandledToSupported",
			Handled: config.HandledAccess{FS: abi.At(6).FS},
			Level:   abi.At(1),
			WantFS:  abi.At(1).FS,
		},
		{
			Name:    "DowngradeToV0IfKernelDoesNotSupportLandlock",
			Handled: config.HandledAccess{FS: abi.FS(1)},
			Level:   abi.At(0),
			WantFS:  0,
		},
		{
			Name:    "NetworkDroppedOnV3Kernel",
			Handled: config.HandledAccess{Net: abi.At(4).Net},
			Level:   abi.At(3),
			WantNet: 0,
		},
		{
			Name:      "ScopeDroppedBeforeV6",
			Handled:   config.HandledAccess{Scope: abi.At(6).Scope},
			Level:     abi.At(5),
			WantScope: 0,
		},
		{
			Name:      "NoopWhenAlreadyWithinLevel",
			Handled:   config.HandledAccess{FS: abi.At(3).FS, Net: abi.At(3).Net, Scope: abi.At(3).Scope},
			Level:     abi.At(3),
			WantFS:    abi.At(3).FS,
			WantNet:   abi.At(3).Net,
			WantScope: abi.At(3).Scope,
		},
	} {
		t.Run(tc.Name, func(t *testing.T) {
			gotFS, gotNet, gotScope := downgrade(tc.Handled, tc.Level)
			if gotFS != tc.WantFS {
				t.Errorf("downgrade(...).fs = %#x, want %#x", gotFS, tc.WantFS)
			}
			if gotNet != tc.WantNet {
				t.Errorf("downgrade(...).net = %#x, want %#x", gotNet, tc.WantNet)
			}
			if gotScope != tc.WantScope {
				t.Errorf("downgrade(...).scope = %#x, want %#x", gotScope, tc.WantScope)
			}
		})
	}
}

func TestBuildRejectsNonZeroFlags(t *testing.T) {
	policy, err := config.ParseJSONBytes([]byte(`{"ruleset":[{"handledAccessFs":["execute"]}]}`))
	if err != nil {
		t.Fatalf("ParseJSONBytes: unexpected error %v", err)
	}
	if _, err := Build(policy, 1); err == nil {
		t.Fatal("Build with flags=1 succeeded, want error")
	}
}

func TestBuildEndToEnd(t *testing.T) {
	rllttest.RequireABI(t, 1)
	rllttest.RunInSubprocess(t, func() {
		dir := rllttest.TempDir(t)

		policy, err := config.ParseJSONBytes([]byte(`{
			"ruleset": [{"handledAccessFs": ["execute"]}],
			"pathBeneath": [{"allowedAccess": ["execute"], "parent": ["` + dir + `"]}]
		}`))
		if err != nil {
			t.Fatalf("ParseJSONBytes: unexpected error %v", err)
		}

		fd, err := Build(policy, 0)
		if err != nil {
			t.Fatalf("Build: unexpected error %v", err)
		}
		if fd < 0 {
			t.Fatalf("Build returned invalid fd %d", fd)
		}
	})
}
