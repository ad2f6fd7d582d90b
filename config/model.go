// Package config implements the policy data model: the semantic model
// a JSON or TOML document lowers to, the validation and
// auto-completion pass that normalizes it, and the composer that
// merges several pre-models (one per TOML file in a directory) into
// one. It is the Go-native generalization of go-landlock's Config type
// (landlock/config.go) to a fully declarative, parsed-from-bytes
// policy, using the shape original_source/src/config.rs's Config and
// ResolvedConfig describe.
package config

import (
	"sort"
	"strconv"
	"strings"

	"github.com/landlock-lsm/landlockconfig/abi"
	"github.com/landlock-lsm/landlockconfig/lcerror"
)

// HandledAccess is one entry of a policy's ruleset[] list: the rights
// the kernel is asked to enforce, split by category. At least one of
// the three sets must be non-empty.
type HandledAccess struct {
	FS    abi.FS
	Net   abi.Net
	Scope abi.Scope
}

func (h HandledAccess) isEmpty() bool {
	return h.FS == 0 && h.Net == 0 && h.Scope == 0
}

// ParentEntry is one element of a path-beneath rule's parent sequence:
// either a filesystem path to be opened by the builder, or a caller
// owned file descriptor to be used as-is.
type ParentEntry struct {
	Path string
	FD   int
	IsFD bool
}

func (p ParentEntry) key() string {
	if p.IsFD {
		return "#" + strconv.Itoa(p.FD)
	}
	return p.Path
}

// PathBeneathRule is one entry of a policy's pathBeneath[] list.
type PathBeneathRule struct {
	AllowedAccess abi.FS
	Parent        []ParentEntry
}

func (r PathBeneathRule) parentKey() string {
	keys := make([]string, len(r.Parent))
	for i, p := range r.Parent {
		keys[i] = p.key()
	}
	return strings.Join(keys, "\x00")
}

// NetPortRule is one entry of a policy's netPort[] list.
type NetPortRule struct {
	AllowedAccess abi.Net
	Port          []uint16
}

func (r NetPortRule) portKey() string {
	ports := make([]string, len(r.Port))
	for i, p := range r.Port {
		ports[i] = strconv.Itoa(int(p))
	}
	return strings.Join(ports, "\x00")
}

// Policy is the semantic model: the parsed, validated, normalized
// result of either surface parser, ready for the ruleset builder. The
// same type also represents the unvalidated "pre-model" in between
// parsing and the §4.3 normalization pass; Validate turns one into the
// other in place.
type Policy struct {
	// ABI is the document's declared reference ABI, used to resolve
	// abi.* aliases. Zero means no abi was declared.
	ABI int

	Ruleset     []HandledAccess
	PathBeneath []PathBeneathRule
	NetPort     []NetPortRule
}

// IsEmpty reports whether the document has no sections at all, which
// spec treats as a rejection at parse time (§3.2).
func (p *Policy) IsEmpty() bool {
	return len(p.Ruleset) == 0 && len(p.PathBeneath) == 0 && len(p.NetPort) == 0
}

// EffectiveHandled unions every ruleset[] entry into the single mask
// the builder cares about. Unioning is well-defined regardless of how
// many (possibly duplicate) entries compose produced, which is what
// makes composition idempotent for the handled-access dimension.
func (p *Policy) EffectiveHandled() HandledAccess {
	var h HandledAccess
	for _, r := range p.Ruleset {
		h.FS |= r.FS
		h.Net |= r.Net
		h.Scope |= r.Scope
	}
	return h
}

// Validate runs the §4.3 fixed-point normalization: auto-completion of
// handled-access from the rules that reference each category, a
// consistency check, and a deterministic merge of rules that share an
// identical parent or port key (the BTreeMap-style coalescing
// original_source/src/config.rs performs, kept here as the
// Idempotence testable property requires).
//
// By the time Validate runs, every abi.* alias and vN.* aggregate in
// the document has already been expanded to concrete bits by the
// surface parser; Validate only auto-completes and checks, it does not
// resolve vocabulary.
func (p *Policy) Validate(path string) error {
	if p.IsEmpty() {
		return lcerror.New(lcerror.Schema, path, "document has no ruleset, pathBeneath or netPort sections")
	}

	for i, h := range p.Ruleset {
		if h.isEmpty() {
			return lcerror.New(lcerror.Schema, path, "ruleset["+strconv.Itoa(i)+"] has no handled rights in any category")
		}
	}
	for i, r := range p.PathBeneath {
		if r.AllowedAccess == 0 {
			return lcerror.New(lcerror.Schema, path, "pathBeneath["+strconv.Itoa(i)+"] has empty allowedAccess")
		}
		if len(r.Parent) == 0 {
			return lcerror.New(lcerror.Schema, path, "pathBeneath["+strconv.Itoa(i)+"] has empty parent")
		}
	}
	for i, r := range p.NetPort {
		if r.AllowedAccess == 0 {
			return lcerror.New(lcerror.Schema, path, "netPort["+strconv.Itoa(i)+"] has empty allowedAccess")
		}
		if len(r.Port) == 0 {
			return lcerror.New(lcerror.Schema, path, "netPort["+strconv.Itoa(i)+"] has empty port")
		}
	}

	p.coalesceRules()
	p.autoComplete()

	h := p.EffectiveHandled()
	for i, r := range p.PathBeneath {
		if r.AllowedAccess&^h.FS != 0 {
			return lcerror.New(lcerror.Schema, path, "pathBeneath["+strconv.Itoa(i)+"] grants rights outside handledAccessFs")
		}
	}
	for i, r := range p.NetPort {
		if r.AllowedAccess&^h.Net != 0 {
			return lcerror.New(lcerror.Schema, path, "netPort["+strconv.Itoa(i)+"] grants rights outside handledAccessNet")
		}
	}
	return nil
}

// autoComplete implements §4.3 step 3: every right granted by a rule
// is folded into the handled-access union for its category. If no
// ruleset[] entry exists at all but rules reference a category, one is
// synthesized.
func (p *Policy) autoComplete() {
	var need HandledAccess
	for _, r := range p.PathBeneath {
		need.FS |= r.AllowedAccess
	}
	for _, r := range p.NetPort {
		need.Net |= r.AllowedAccess
	}
	if need.isEmpty() {
		return
	}
	if len(p.Ruleset) == 0 {
		p.Ruleset = []HandledAccess{need}
		return
	}
	have := p.EffectiveHandled()
	missingFS := need.FS &^ have.FS
	missingNet := need.Net &^ have.Net
	if missingFS == 0 && missingNet == 0 {
		return
	}
	p.Ruleset[0].FS |= missingFS
	p.Ruleset[0].Net |= missingNet
}

// coalesceRules merges pathBeneath/netPort rules that share an
// identical parent or port key, unioning their allowedAccess and
// sorting the result by key. This is what makes composing a document
// with itself N times set-equivalent to composing it once (spec §8,
// Idempotence).
func (p *Policy) coalesceRules() {
	if len(p.PathBeneath) > 1 {
		order := make([]string, 0, len(p.PathBeneath))
		byKey := make(map[string]PathBeneathRule, len(p.PathBeneath))
		for _, r := range p.PathBeneath {
			k := r.parentKey()
			if existing, ok := byKey[k]; ok {
				existing.AllowedAccess |= r.AllowedAccess
				byKey[k] = existing
			} else {
				byKey[k] = r
				order = append(order, k)
			}
		}
		sort.Strings(order)
		merged := make([]PathBeneathRule, len(order))
		for i, k := range order {
			merged[i] = byKey[k]
		}
		p.PathBeneath = merged
	}

	if len(p.NetPort) > 1 {
		order := make([]string, 0, len(p.NetPort))
		byKey := make(map[string]NetPortRule, len(p.NetPort))
		for _, r := range p.NetPort {
			k := r.portKey()
			if existing, ok := byKey[k]; ok {
				existing.AllowedAccess |= r.AllowedAccess
				byKey[k] = existing
			} else {
				byKey[k] = r
				order = append(order, k)
			}
		}
		sort.Strings(order)
		merged := make([]NetPortRule, len(order))
		for i, k := range order {
			merged[i] = byKey[k]
		}
		p.NetPort = merged
	}
}

