// Package abi holds the Landlock ABI vocabulary: the mapping from the
// keyword names a policy document uses ("execute", "read_dir",
// "bind_tcp", ...) and their version-qualified aggregates
// ("v3.all", "abi.read_write") to the raw kernel access-right bits
// defined in ruleset/syscall.
//
// It is the Go-native generalization of go-landlock's abiInfo/abiInfos
// table (landlock/abi_versions.go, landlock/accessfs.go), extended with
// the keyword-to-bit lookup that original_source/src/parser.rs encodes
// as serde enum variants (JsonFsAccessItem, JsonNetAccessItem,
// JsonScopeItem).
package abi

import (
	"fmt"
	"strconv"
	"strings"

	ll "github.com/landlock-lsm/landlockconfig/ruleset/syscall"
)

// FS, Net and Scope are the three independent bitsets a policy can
// grant rights in. They are distinct types so a caller can't
// accidentally pass a Net value where an FS value is expected.
type FS uint64
type Net uint64
type Scope uint64

// Highest is the newest ABI version this package knows about. The
// config layer does not reject a document that declares a higher
// version; At clamps any such version to Highest.
const Highest = 6

// cumulative per-version bit totals. Each is "everything supported at
// this version and below", matching the "supportedAccessFS" style
// cumulative columns of go-landlock's abiInfos table.
const (
	fsV1 = FS(ll.AccessFSExecute | ll.AccessFSWriteFile | ll.AccessFSReadFile | ll.AccessFSReadDir |
		ll.AccessFSRemoveDir | ll.AccessFSRemoveFile | ll.AccessFSMakeChar | ll.AccessFSMakeDir |
		ll.AccessFSMakeReg | ll.AccessFSMakeSock | ll.AccessFSMakeFifo | ll.AccessFSMakeBlock |
		ll.AccessFSMakeSym)
	fsV2 = fsV1 | FS(ll.AccessFSRefer)
	fsV3 = fsV2 | FS(ll.AccessFSTruncate)
	fsV4 = fsV3
	fsV5 = fsV4 | FS(ll.AccessFSIoctlDev)
	fsV6 = fsV5

	netV4 = Net(ll.AccessNetBindTCP | ll.AccessNetConnectTCP)
	netV5 = netV4
	netV6 = netV5

	scopeV6 = Scope(ll.ScopeAbstractUnixSocket | ll.ScopeSignal)
)

// Level is the set of rights known to exist as of a given ABI version.
type Level struct {
	Version int
	FS      FS
	Net     Net
	Scope   Scope
}

// Levels is indexed by version; Levels[0] is the empty, pre-Landlock
// level, used when the running kernel reports no support at all.
var Levels = []Level{
	{Version: 0},
	{Version: 1, FS: fsV1},
	{Version: 2, FS: fsV2},
	{Version: 3, FS: fsV3},
	{Version: 4, FS: fsV4, Net: netV4},
	{Version: 5, FS: fsV5, Net: netV5},
	{Version: 6, FS: fsV6, Net: netV6, Scope: scopeV6},
}

// At returns the cumulative rights known at version v, clamped to
// [0, Highest].
func At(v int) Level {
	if v < 0 {
		v = 0
	}
	if v > Highest {
		v = Highest
	}
	return Levels[v]
}

// fsKeywords, netKeywords and scopeKeywords are the flat name->bit
// tables. A keyword always resolves to the same bit regardless of the
// policy's declared abi; using a keyword introduced after the
// declared abi is not an error here, the ruleset builder's downgrade
// step is what later drops bits the running kernel can't enforce.
var fsKeywords = map[string]FS{
	"execute":     FS(ll.AccessFSExecute),
	"write_file":  FS(ll.AccessFSWriteFile),
	"read_file":   FS(ll.AccessFSReadFile),
	"read_dir":    FS(ll.AccessFSReadDir),
	"remove_dir":  FS(ll.AccessFSRemoveDir),
	"remove_file": FS(ll.AccessFSRemoveFile),
	"make_char":   FS(ll.AccessFSMakeChar),
	"make_dir":    FS(ll.AccessFSMakeDir),
	"make_reg":    FS(ll.AccessFSMakeReg),
	"make_sock":   FS(ll.AccessFSMakeSock),
	"make_fifo":   FS(ll.AccessFSMakeFifo),
	"make_block":  FS(ll.AccessFSMakeBlock),
	"make_sym":    FS(ll.AccessFSMakeSym),
	"refer":       FS(ll.AccessFSRefer),
	"truncate":    FS(ll.AccessFSTruncate),
	"ioctl_dev":   FS(ll.AccessFSIoctlDev),
}

var netKeywords = map[string]Net{
	"bind_tcp":    Net(ll.AccessNetBindTCP),
	"connect_tcp": Net(ll.AccessNetConnectTCP),
}

var scopeKeywords = map[string]Scope{
	"abstract_unix_socket": Scope(ll.ScopeAbstractUnixSocket),
	"signal":               Scope(ll.ScopeSignal),
}

// fsReadExecute/fsReadWrite mirror parser.rs's get_fs_read_execute and
// get_fs_read_write: "read_execute" is the read rights plus directory
// traversal (refer, once it exists at this abi); "read_write" is every
// non-execute right known at this abi, which is intentionally broader
// than just the "write" rights.
func fsReadExecute(v int) FS {
	all := At(v).FS
	return (FS(ll.AccessFSExecute|ll.AccessFSReadFile|ll.AccessFSReadDir|ll.AccessFSRefer)) & all
}

func fsReadWrite(v int) FS {
	return At(v).FS &^ FS(ll.AccessFSExecute)
}

// UnknownKeywordError is returned when a policy uses an access-right
// name this package doesn't recognize.
type UnknownKeywordError struct {
	Category string
	Keyword  string
}

func (e *UnknownKeywordError) Error() string {
	return fmt.Sprintf("unknown %s access right %q", e.Category, e.Keyword)
}

// AliasError is returned when a policy uses the "abi.*" alias form
// without having declared an abi version for the document it appears
// in.
type AliasError struct {
	Keyword string
}

func (e *AliasError) Error() string {
	return fmt.Sprintf("alias %q used without a declared abi version", e.Keyword)
}

// splitAggregate recognizes "v<N>.<suffix>" and "abi.<suffix>" forms,
// resolving "abi" against declaredABI. ok is false if keyword isn't an
// aggregate form at all (a plain keyword should be tried instead).
func splitAggregate(keyword string, declaredABI int) (version int, suffix string, ok bool, err error) {
	dot := strings.IndexByte(keyword, '.')
	if dot < 0 {
		return 0, "", false, nil
	}
	head, suffix := keyword[:dot], keyword[dot+1:]
	if head == "abi" {
		if declaredABI <= 0 {
			return 0, "", true, &AliasError{Keyword: keyword}
		}
		return declaredABI, suffix, true, nil
	}
	if !strings.HasPrefix(head, "v") {
		return 0, "", false, nil
	}
	n, convErr := strconv.Atoi(head[1:])
	if convErr != nil {
		return 0, "", false, nil
	}
	return n, suffix, true, nil
}

// ResolveFS resolves a single filesystem access-right keyword, which
// may be a plain right ("execute"), a version aggregate ("v3.all",
// "v2.read_execute", "v1.read_write") or an abi-relative alias
// ("abi.all"). declaredABI is the abi value the enclosing document
// declared, or 0 if none; it is only consulted for "abi.*" keywords.
func ResolveFS(keyword string, declaredABI int) (FS, error) {
	if v, suffix, ok, err := splitAggregate(keyword, declaredABI); ok {
		if err != nil {
			return 0, err
		}
		switch suffix {
		case "all":
			return At(v).FS, nil
		case "read_execute":
			return fsReadExecute(v), nil
		case "read_write":
			return fsReadWrite(v), nil
		default:
			return 0, &UnknownKeywordError{Category: "fs", Keyword: keyword}
		}
	}
	if bit, ok := fsKeywords[keyword]; ok {
		return bit, nil
	}
	return 0, &UnknownKeywordError{Category: "fs", Keyword: keyword}
}

// ResolveNet resolves a network access-right keyword or "vN.all" /
// "abi.all" aggregate. Net rights have no read_execute/read_write
// split.
func ResolveNet(keyword string, declaredABI int) (Net, error) {
	if v, suffix, ok, err := splitAggregate(keyword, declaredABI); ok {
		if err != nil {
			return 0, err
		}
		if suffix != "all" {
			return 0, &UnknownKeywordError{Category: "net", Keyword: keyword}
		}
		return At(v).Net, nil
	}
	if bit, ok := netKeywords[keyword]; ok {
		return bit, nil
	}
	return 0, &UnknownKeywordError{Category: "net", Keyword: keyword}
}

// ResolveScope resolves a scope keyword or "vN.all" / "abi.all"
// aggregate.
func ResolveScope(keyword string, declaredABI int) (Scope, error) {
	if v, suffix, ok, err := splitAggregate(keyword, declaredABI); ok {
		if err != nil {
			return 0, err
		}
		if suffix != "all" {
			return 0, &UnknownKeywordError{Category: "scope", Keyword: keyword}
		}
		return At(v).Scope, nil
	}
	if bit, ok := scopeKeywords[keyword]; ok {
		return bit, nil
	}
	return 0, &UnknownKeywordError{Category: "scope", Keyword: keyword}
}

// FSKeywords, NetKeywords and ScopeKeywords return the sorted plain
// keyword names for each category, for use in error messages and
// documentation-style introspection (not in any hot path).
func FSKeywords() []string    { return sortedKeys(fsKeywords) }
func NetKeywords() []string   { return sortedKeys(netKeywordsAsMap()) }
func ScopeKeywords() []string { return sortedKeys(scopeKeywordsAsMap()) }

func netKeywordsAsMap() map[string]FS {
	m := make(map[string]FS, len(netKeywords))
	for k := range netKeywords {
		m[k] = 0
	}
	return m
}

func scopeKeywordsAsMap() map[string]FS {
	m := make(map[string]FS, len(scopeKeywords))
	for k := range scopeKeywords {
		m[k] = 0
	}
	return m
}

func sortedKeys(m map[string]FS) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
