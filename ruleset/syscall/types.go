package syscall

// Landlock filesystem access rights, mirrored from the kernel UAPI
// (linux/landlock.h). These bit positions are part of the stable
// kernel ABI and do not depend on build platform.
const (
	AccessFSExecute    = 1 << 0
	AccessFSWriteFile  = 1 << 1
	AccessFSReadFile   = 1 << 2
	AccessFSReadDir    = 1 << 3
	AccessFSRemoveDir  = 1 << 4
	AccessFSRemoveFile = 1 << 5
	AccessFSMakeChar   = 1 << 6
	AccessFSMakeDir    = 1 << 7
	AccessFSMakeReg    = 1 << 8
	AccessFSMakeSock   = 1 << 9
	AccessFSMakeFifo   = 1 << 10
	AccessFSMakeBlock  = 1 << 11
	AccessFSMakeSym    = 1 << 12
	AccessFSRefer      = 1 << 13
	AccessFSTruncate   = 1 << 14
	AccessFSIoctlDev   = 1 << 15
)

// Landlock network access rights.
const (
	AccessNetBindTCP    = 1 << 0
	AccessNetConnectTCP = 1 << 1
)

// Landlock scoping rights, added in ABI v6.
const (
	ScopeAbstractUnixSocket = 1 << 0
	ScopeSignal             = 1 << 1
)

// Landlock rule types, for use with LandlockAddRule.
const (
	RuleTypePathBeneath = 1
	RuleTypeNetPort     = 2
)

// FlagCreateRulesetVersion, passed as the flags argument to
// landlock_create_ruleset with a nil attr, makes the syscall return
// the highest ABI version supported by the running kernel instead of
// creating a ruleset.
const FlagCreateRulesetVersion = 1 << 0

// RulesetAttr mirrors struct landlock_ruleset_attr. The net and scope
// fields were added in ABI v4 and v6 respectively; setting them is a
// no-op (ignored by the kernel) on older ABI levels as long as their
// value is 0, so the struct can always be populated in full and let
// the kernel enforce what it understands.
type RulesetAttr struct {
	HandledAccessFS  uint64
	HandledAccessNet uint64
	Scoped           uint64
}

const rulesetAttrSize = 24

// PathBeneathAttr mirrors struct landlock_path_beneath_attr.
type PathBeneathAttr struct {
	AllowedAccess uint64
	ParentFd      int32
}

// NetPortAttr mirrors struct landlock_net_port_attr.
type NetPortAttr struct {
	AllowedAccess uint64
	Port          uint64
}
