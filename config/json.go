package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/landlock-lsm/landlockconfig/abi"
	"github.com/landlock-lsm/landlockconfig/lcerror"
)

// jsonHandledAccess mirrors one entry of the JSON ruleset[] array.
// Field names are camelCase per spec §4.1.
type jsonHandledAccess struct {
	HandledAccessFS  []string `json:"handledAccessFs,omitempty"`
	HandledAccessNet []string `json:"handledAccessNet,omitempty"`
	Scoped           []string `json:"scoped,omitempty"`
}

type jsonPathBeneath struct {
	AllowedAccess []string        `json:"allowedAccess"`
	Parent        []jsonParentRaw `json:"parent"`
}

// jsonParentRaw accepts either a JSON string (a path) or a JSON number
// (a caller-owned file descriptor). Only parent entries take numbers:
// access-right fields decode as strings, so a raw integer access right
// is rejected.
type jsonParentRaw struct {
	raw json.RawMessage
}

func (p *jsonParentRaw) UnmarshalJSON(b []byte) error {
	p.raw = append(json.RawMessage{}, b...)
	return nil
}

func (p jsonParentRaw) toEntry() (ParentEntry, error) {
	var s string
	if err := json.Unmarshal(p.raw, &s); err == nil {
		return ParentEntry{Path: s}, nil
	}
	var n int64
	if err := json.Unmarshal(p.raw, &n); err == nil {
		return ParentEntry{FD: int(n), IsFD: true}, nil
	}
	return ParentEntry{}, fmt.Errorf("parent entry %s is neither a string path nor an integer fd", p.raw)
}

type jsonNetPort struct {
	AllowedAccess []string `json:"allowedAccess"`
	Port          []uint32 `json:"port"`
}

type jsonConfig struct {
	ABI         *int                `json:"abi,omitempty"`
	Ruleset     []jsonHandledAccess `json:"ruleset,omitempty"`
	PathBeneath []jsonPathBeneath   `json:"pathBeneath,omitempty"`
	NetPort     []jsonNetPort       `json:"netPort,omitempty"`
}

// ParseJSON parses a strict JSON policy document into a validated
// Policy. Unknown fields are rejected, matching spec §4.1; this is the
// one substantive reason this surface is decoded with encoding/json's
// DisallowUnknownFields rather than a permissive decoder (see
// SPEC_FULL.md's standard-library justification).
func ParseJSON(r io.Reader) (*Policy, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc jsonConfig
	if err := dec.Decode(&doc); err != nil {
		if field, ok := unknownFieldName(err); ok {
			return nil, lcerror.New(lcerror.Schema, "", fmt.Sprintf("unknown field %q", field))
		}
		return nil, lcerror.Wrap(lcerror.Syntax, "", "invalid JSON policy document", err)
	}
	if extra, err := dec.Token(); err != io.EOF {
		return nil, lcerror.New(lcerror.Syntax, "", fmt.Sprintf("unexpected trailing content %v", extra))
	}

	policy, err := lowerJSON(&doc)
	if err != nil {
		return nil, err
	}
	if err := policy.Validate(""); err != nil {
		return nil, err
	}
	return policy, nil
}

// unknownFieldName recognizes the one error encoding/json's
// DisallowUnknownFields produces ("json: unknown field %q") and
// extracts the field name. encoding/json gives this case no
// structured error type, so this is the same kind of string match
// the JSON standard library leaves callers no alternative to.
func unknownFieldName(err error) (string, bool) {
	const prefix = "json: unknown field "
	msg := err.Error()
	if !strings.HasPrefix(msg, prefix) {
		return "", false
	}
	return strings.Trim(msg[len(prefix):], `"`), true
}

// ParseJSONBytes is a convenience wrapper for callers holding the
// whole document in memory (the FFI shim's primary caller shape, per
// spec §6.2's "source is a file descriptor or a byte buffer").
func ParseJSONBytes(b []byte) (*Policy, error) {
	return ParseJSON(bytes.NewReader(b))
}

func lowerJSON(doc *jsonConfig) (*Policy, error) {
	p := &Policy{}
	if doc.ABI != nil {
		p.ABI = *doc.ABI
	}

	for _, h := range doc.Ruleset {
		entry, err := lowerHandledAccess(h, p.ABI)
		if err != nil {
			return nil, err
		}
		p.Ruleset = append(p.Ruleset, entry)
	}

	for i, r := range doc.PathBeneath {
		fs, err := lowerFSKeywords(r.AllowedAccess, p.ABI)
		if err != nil {
			return nil, err
		}
		parents := make([]ParentEntry, 0, len(r.Parent))
		for _, raw := range r.Parent {
			entry, err := raw.toEntry()
			if err != nil {
				return nil, lcerror.Wrap(lcerror.Schema, fmt.Sprintf("pathBeneath[%d]", i), "invalid parent entry", err)
			}
			parents = append(parents, entry)
		}
		p.PathBeneath = append(p.PathBeneath, PathBeneathRule{AllowedAccess: fs, Parent: parents})
	}

	for i, r := range doc.NetPort {
		net, err := lowerNetKeywords(r.AllowedAccess, p.ABI)
		if err != nil {
			return nil, err
		}
		ports := make([]uint16, 0, len(r.Port))
		for _, raw := range r.Port {
			if raw > 65535 {
				return nil, lcerror.New(lcerror.Schema, fmt.Sprintf("netPort[%d]", i), "port value out of range [0,65535]")
			}
			ports = append(ports, uint16(raw))
		}
		p.NetPort = append(p.NetPort, NetPortRule{AllowedAccess: net, Port: dedupUint16(ports)})
	}

	return p, nil
}

func lowerHandledAccess(h jsonHandledAccess, declaredABI int) (HandledAccess, error) {
	fs, err := lowerFSKeywords(h.HandledAccessFS, declaredABI)
	if err != nil {
		return HandledAccess{}, err
	}
	net, err := lowerNetKeywords(h.HandledAccessNet, declaredABI)
	if err != nil {
		return HandledAccess{}, err
	}
	scope, err := lowerScopeKeywords(h.Scoped, declaredABI)
	if err != nil {
		return HandledAccess{}, err
	}
	return HandledAccess{FS: fs, Net: net, Scope: scope}, nil
}

func lowerFSKeywords(keywords []string, declaredABI int) (abi.FS, error) {
	var out abi.FS
	for _, kw := range dedupStrings(keywords) {
		bit, err := abi.ResolveFS(kw, declaredABI)
		if err != nil {
			return 0, lcerror.Wrap(lcerror.Vocabulary, "", "resolving accessFs keyword", err)
		}
		out |= bit
	}
	return out, nil
}

func lowerNetKeywords(keywords []string, declaredABI int) (abi.Net, error) {
	var out abi.Net
	for _, kw := range dedupStrings(keywords) {
		bit, err := abi.ResolveNet(kw, declaredABI)
		if err != nil {
			return 0, lcerror.Wrap(lcerror.Vocabulary, "", "resolving accessNet keyword", err)
		}
		out |= bit
	}
	return out, nil
}

func lowerScopeKeywords(keywords []string, declaredABI int) (abi.Scope, error) {
	var out abi.Scope
	for _, kw := range dedupStrings(keywords) {
		bit, err := abi.ResolveScope(kw, declaredABI)
		if err != nil {
			return 0, lcerror.Wrap(lcerror.Vocabulary, "", "resolving scope keyword", err)
		}
		out |= bit
	}
	return out, nil
}

func dedupStrings(in []string) []string {
	if len(in) < 2 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupUint16(in []uint16) []uint16 {
	if len(in) < 2 {
		return in
	}
	seen := make(map[uint16]struct{}, len(in))
	out := make([]uint16, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
