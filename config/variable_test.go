package config

import (
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/landlock-lsm/landlockconfig/lcerror"
)

func TestExpandTemplateSingleReferenceAlone(t *testing.T) {
	vars := variableSet{"rw": {"/tmp", "/var/tmp"}}
	got, err := expandTemplate("${rw}", vars)
	if err != nil {
		t.Fatalf("expandTemplate: unexpected error %v", err)
	}
	sort.Strings(got)
	want := []string{"/tmp", "/var/tmp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandTemplate(${rw}) = %v, want %v", got, want)
	}
}

func TestExpandTemplateEmbeddedSingleElement(t *testing.T) {
	vars := variableSet{"home": {"alice"}}
	got, err := expandTemplate("/home/${home}/bin", vars)
	if err != nil {
		t.Fatalf("expandTemplate: unexpected error %v", err)
	}
	want := []string{"/home/alice/bin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandTemplate = %v, want %v", got, want)
	}
}

func TestExpandTemplateEmbeddedMultiElement(t *testing.T) {
	vars := variableSet{"user": {"alice", "bob"}}
	got, err := expandTemplate("/home/${user}/bin", vars)
	if err != nil {
		t.Fatalf("expandTemplate: unexpected error %v", err)
	}
	sort.Strings(got)
	want := []string{"/home/alice/bin", "/home/bob/bin"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandTemplate = %v, want %v", got, want)
	}
}

func TestExpandTemplateCartesianProductOfTwoVariables(t *testing.T) {
	vars := variableSet{
		"a": {"x", "y"},
		"b": {"1", "2"},
	}
	got, err := expandTemplate("${a}/${b}", vars)
	if err != nil {
		t.Fatalf("expandTemplate: unexpected error %v", err)
	}
	sort.Strings(got)
	want := []string{"x/1", "x/2", "y/1", "y/2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandTemplate(${a}/${b}) = %v, want %v", got, want)
	}
}

func TestExpandTemplateThreeVariables(t *testing.T) {
	vars := variableSet{
		"a": {"1"},
		"b": {"x", "y"},
		"c": {"p", "q"},
	}
	got, err := expandTemplate("${a}-${b}-${c}", vars)
	if err != nil {
		t.Fatalf("expandTemplate: unexpected error %v", err)
	}
	sort.Strings(got)
	want := []string{"1-x-p", "1-x-q", "1-y-p", "1-y-q"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expandTemplate(three vars) = %v, want %v", got, want)
	}
}

func TestExpandTemplateUndefinedVariable(t *testing.T) {
	_, err := expandTemplate("${missing}", variableSet{})
	if err == nil {
		t.Fatal("expandTemplate with undefined variable succeeded, want error")
	}
}

func TestExpandTemplateNoReferencesIsIdentity(t *testing.T) {
	got, err := expandTemplate("/usr/local", variableSet{})
	if err != nil {
		t.Fatalf("expandTemplate: unexpected error %v", err)
	}
	if len(got) != 1 || got[0] != "/usr/local" {
		t.Errorf("expandTemplate(plain string) = %v, want [/usr/local]", got)
	}
}

func TestExpandTemplateUnterminatedReference(t *testing.T) {
	_, err := expandTemplate("/usr/${oops", variableSet{"oops": {"x"}})
	if err == nil {
		t.Fatal("expandTemplate with unterminated ${ succeeded, want error")
	}
}

func TestValidVariableName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"rw", true},
		{"_private", true},
		{"a1b2", true},
		{"", false},
		{"1leading", false},
		{"has-dash", false},
		{"has space", false},
	}
	for _, tc := range tests {
		if got := validVariableName(tc.name); got != tc.want {
			t.Errorf("validVariableName(%q) = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestNewVariableSetRejectsBadName(t *testing.T) {
	_, err := newVariableSet([]tomlVariableDecl{{Name: "bad-name", Literal: []string{"x"}}})
	if err == nil {
		t.Fatal("newVariableSet with an invalid name succeeded, want error")
	}
}

func TestNewVariableSetRejectsEmptyLiteral(t *testing.T) {
	_, err := newVariableSet([]tomlVariableDecl{{Name: "ok", Literal: nil}})
	if err == nil {
		t.Fatal("newVariableSet with an empty literal sequence succeeded, want error")
	}
}

func TestNewVariableSetRejectsDuplicateNames(t *testing.T) {
	_, err := newVariableSet([]tomlVariableDecl{
		{Name: "rw", Literal: []string{"/tmp"}},
		{Name: "rw", Literal: []string{"/var/tmp", "/tmp"}},
	})
	if err == nil {
		t.Fatal("newVariableSet with a repeated name succeeded, want error")
	}
	var lerr *lcerror.Error
	if !errors.As(err, &lerr) || lerr.Kind != lcerror.Schema {
		t.Errorf("error = %v, want lcerror.Schema kind", err)
	}
}
