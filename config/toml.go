package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/landlock-lsm/landlockconfig/abi"
	"github.com/landlock-lsm/landlockconfig/lcerror"
)

// tomlHandledAccess mirrors one [[ruleset]] table. Field names are
// snake_case per spec §4.2.
type tomlHandledAccess struct {
	HandledAccessFS  []string `toml:"handled_access_fs"`
	HandledAccessNet []string `toml:"handled_access_net"`
	Scoped           []string `toml:"scoped"`
}

type tomlPathBeneath struct {
	AllowedAccess []string      `toml:"allowed_access"`
	Parent        []interface{} `toml:"parent"`
}

type tomlNetPort struct {
	AllowedAccess []string      `toml:"allowed_access"`
	Port          []interface{} `toml:"port"`
}

type tomlConfig struct {
	ABI         *int                `toml:"abi"`
	Ruleset     []tomlHandledAccess `toml:"ruleset"`
	PathBeneath []tomlPathBeneath   `toml:"path_beneath"`
	NetPort     []tomlNetPort       `toml:"net_port"`
	Variable    []tomlVariableDecl  `toml:"variable"`
}

// ParseTOML parses a single TOML policy document (no directory
// composition) into a validated Policy.
func ParseTOML(r io.Reader) (*Policy, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, lcerror.Wrap(lcerror.IO, "", "reading TOML input", err)
	}
	return ParseTOMLBytes(b)
}

// ParseTOMLBytes parses a single in-memory TOML policy document.
func ParseTOMLBytes(b []byte) (*Policy, error) {
	p, err := parseTOMLPreModel(b, "")
	if err != nil {
		return nil, err
	}
	if err := p.Validate(""); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseTOMLPath parses source, which may be a single .toml file or a
// directory of them (§4.2's directory composition).
func ParseTOMLPath(source string) (*Policy, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, lcerror.Wrap(lcerror.IO, source, "opening TOML source", err)
	}
	if info.IsDir() {
		return ParseTOMLDirectory(source)
	}
	b, err := os.ReadFile(source)
	if err != nil {
		return nil, lcerror.Wrap(lcerror.IO, source, "reading TOML file", err)
	}
	p, err := parseTOMLPreModel(b, source)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(source); err != nil {
		return nil, err
	}
	return p, nil
}

// ParseTOMLDirectory implements §4.2's directory composition: every
// regular, non-dotfile entry directly inside dir whose name ends in
// ".toml" is parsed, in lexicographic order, and the results are
// merged by Compose. Subdirectories are ignored; an empty or
// all-filtered-out directory is an error, matching
// original_source/src/config.rs's parse_directory.
func ParseTOMLDirectory(dir string) (*Policy, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, lcerror.Wrap(lcerror.IO, dir, "reading TOML directory", err)
	}

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var preModels []*Policy
	for _, name := range names {
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasSuffix(name, ".toml") {
			continue
		}
		full := filepath.Join(dir, name)
		info, err := os.Lstat(full)
		if err != nil {
			return nil, lcerror.Wrap(lcerror.IO, full, "statting directory entry", err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		b, err := os.ReadFile(full)
		if err != nil {
			return nil, lcerror.Wrap(lcerror.IO, full, "reading directory entry", err)
		}
		pre, err := parseTOMLPreModel(b, full)
		if err != nil {
			return nil, err
		}
		preModels = append(preModels, pre)
	}

	if len(preModels) == 0 {
		return nil, lcerror.New(lcerror.Composition, dir, "directory contains no .toml policy files")
	}

	merged, err := Compose(preModels)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(dir); err != nil {
		return nil, err
	}
	return merged, nil
}

// parseTOMLPreModel decodes and lowers a TOML document but does not
// run §4.3 validation, so it can be composed with siblings first.
func parseTOMLPreModel(b []byte, path string) (*Policy, error) {
	var doc tomlConfig
	meta, err := toml.Decode(string(b), &doc)
	if err != nil {
		return nil, lcerror.Wrap(lcerror.Syntax, path, "invalid TOML policy document", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		names := make([]string, len(undecoded))
		for i, k := range undecoded {
			names[i] = k.String()
		}
		return nil, lcerror.New(lcerror.Schema, path, fmt.Sprintf("unknown field(s): %s", strings.Join(names, ", ")))
	}

	vars, err := newVariableSet(doc.Variable)
	if err != nil {
		return nil, err
	}

	p := &Policy{}
	if doc.ABI != nil {
		p.ABI = *doc.ABI
	}

	for _, h := range doc.Ruleset {
		entry, err := lowerHandledAccess(jsonHandledAccess{
			HandledAccessFS:  h.HandledAccessFS,
			HandledAccessNet: h.HandledAccessNet,
			Scoped:           h.Scoped,
		}, p.ABI)
		if err != nil {
			return nil, err
		}
		p.Ruleset = append(p.Ruleset, entry)
	}

	// §3.3 abi shorthand: only synthesizes a ruleset entry when the
	// document declares no explicit [[ruleset]] blocks of its own.
	if len(p.Ruleset) == 0 && doc.ABI != nil {
		lvl := abi.At(*doc.ABI)
		p.Ruleset = append(p.Ruleset, HandledAccess{FS: lvl.FS, Net: lvl.Net, Scope: lvl.Scope})
	}

	for _, r := range doc.PathBeneath {
		fs, err := lowerFSKeywords(r.AllowedAccess, p.ABI)
		if err != nil {
			return nil, err
		}
		parents, err := expandParentEntries(r.Parent, vars)
		if err != nil {
			return nil, err
		}
		p.PathBeneath = append(p.PathBeneath, PathBeneathRule{AllowedAccess: fs, Parent: parents})
	}

	for _, r := range doc.NetPort {
		net, err := lowerNetKeywords(r.AllowedAccess, p.ABI)
		if err != nil {
			return nil, err
		}
		ports, err := expandPortEntries(r.Port, vars)
		if err != nil {
			return nil, err
		}
		p.NetPort = append(p.NetPort, NetPortRule{AllowedAccess: net, Port: dedupUint16(ports)})
	}

	return p, nil
}

// expandParentEntries lowers a parent[] array, where each raw element
// is either an int64 (a caller fd, used as-is) or a string (a path,
// template-expanded against vars; a string containing ${name}
// references may expand into several parents).
func expandParentEntries(raw []interface{}, vars variableSet) ([]ParentEntry, error) {
	var out []ParentEntry
	for _, item := range raw {
		switch v := item.(type) {
		case int64:
			out = append(out, ParentEntry{FD: int(v), IsFD: true})
		case string:
			expanded, err := expandTemplate(v, vars)
			if err != nil {
				return nil, err
			}
			for _, s := range expanded {
				out = append(out, ParentEntry{Path: s})
			}
		default:
			return nil, lcerror.New(lcerror.Schema, "", fmt.Sprintf("parent entry %v is neither a string nor an integer", item))
		}
	}
	return out, nil
}

// expandPortEntries lowers a port[] array. A plain integer is used
// directly; a string is template-expanded and each resulting element
// parsed as a uint16, covering the "port context" variable splice
// spec §4.2 mentions alongside parent paths.
func expandPortEntries(raw []interface{}, vars variableSet) ([]uint16, error) {
	var out []uint16
	for _, item := range raw {
		switch v := item.(type) {
		case int64:
			if v < 0 || v > 65535 {
				return nil, lcerror.New(lcerror.Schema, "", fmt.Sprintf("port value %d out of range [0,65535]", v))
			}
			out = append(out, uint16(v))
		case string:
			expanded, err := expandTemplate(v, vars)
			if err != nil {
				return nil, err
			}
			for _, s := range expanded {
				n, err := strconv.ParseUint(s, 10, 16)
				if err != nil {
					return nil, lcerror.Wrap(lcerror.Schema, "", fmt.Sprintf("port value %q is not a valid uint16", s), err)
				}
				out = append(out, uint16(n))
			}
		default:
			return nil, lcerror.New(lcerror.Schema, "", fmt.Sprintf("port entry %v is neither a string nor an integer", item))
		}
	}
	return out, nil
}
