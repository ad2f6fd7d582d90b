package config

import (
	"fmt"
	"sort"
	"strings"

	"github.com/landlock-lsm/landlockconfig/lcerror"
)

// validVariableName matches spec §3.3's variable name grammar:
// [A-Za-z_][A-Za-z0-9_]*.
func validVariableName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

// variableSet is a name -> sorted, deduplicated literal set, the same
// shape original_source/src/variable.rs's Variables
// (BTreeMap<Name, BTreeSet<String>>) holds.
type variableSet map[string][]string

// tomlVariableDecl mirrors one [[variable]] table.
type tomlVariableDecl struct {
	Name    string   `toml:"name"`
	Literal []string `toml:"literal"`
}

func newVariableSet(decls []tomlVariableDecl) (variableSet, error) {
	set := make(variableSet, len(decls))
	for _, d := range decls {
		if !validVariableName(d.Name) {
			return nil, lcerror.New(lcerror.Vocabulary, "", fmt.Sprintf("variable name %q does not match [A-Za-z_][A-Za-z0-9_]*", d.Name))
		}
		if _, dup := set[d.Name]; dup {
			return nil, lcerror.New(lcerror.Schema, "", fmt.Sprintf("variable %q declared more than once", d.Name))
		}
		if len(d.Literal) == 0 {
			return nil, lcerror.New(lcerror.Schema, "", fmt.Sprintf("variable %q has an empty literal sequence", d.Name))
		}
		seen := make(map[string]struct{}, len(d.Literal))
		for _, v := range d.Literal {
			seen[v] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		set[d.Name] = values
	}
	return set, nil
}

// templateToken is either a literal run of text or a reference to a
// variable name.
type templateToken struct {
	text   string
	name   string
	isName bool
}

// tokenizeTemplate splits s on ${name} references. It does not support
// nesting or escaped '$', matching spec §4.2's explicit restriction.
func tokenizeTemplate(s string) ([]templateToken, error) {
	var tokens []templateToken
	rest := s
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			if rest != "" {
				tokens = append(tokens, templateToken{text: rest})
			}
			return tokens, nil
		}
		if start > 0 {
			tokens = append(tokens, templateToken{text: rest[:start]})
		}
		rest = rest[start+2:]
		end := strings.IndexByte(rest, '}')
		if end < 0 {
			return nil, lcerror.New(lcerror.Syntax, "", fmt.Sprintf("unterminated variable reference in %q", s))
		}
		name := rest[:end]
		if !validVariableName(name) {
			return nil, lcerror.New(lcerror.Syntax, "", fmt.Sprintf("malformed variable reference %q in %q", name, s))
		}
		tokens = append(tokens, templateToken{name: name, isName: true})
		rest = rest[end+1:]
	}
}

// expandTemplate resolves every ${name} reference in s against vars
// and returns the Cartesian-product splice described by spec §3.3 and
// generalized per original_source/src/variable.rs's VecStringIterator:
// a string with k distinct variable references expands into the
// product of each reference's value set, in reference order.
func expandTemplate(s string, vars variableSet) ([]string, error) {
	tokens, err := tokenizeTemplate(s)
	if err != nil {
		return nil, err
	}

	hasVar := false
	for _, t := range tokens {
		if t.isName {
			hasVar = true
			break
		}
	}
	if !hasVar {
		return []string{s}, nil
	}

	results := []string{""}
	for _, t := range tokens {
		if !t.isName {
			for i := range results {
				results[i] += t.text
			}
			continue
		}
		values, ok := vars[t.name]
		if !ok {
			return nil, lcerror.New(lcerror.Vocabulary, "", fmt.Sprintf("undefined variable %q referenced in %q", t.name, s))
		}
		next := make([]string, 0, len(results)*len(values))
		for _, prefix := range results {
			for _, v := range values {
				next = append(next, prefix+v)
			}
		}
		results = next
	}
	return results, nil
}
