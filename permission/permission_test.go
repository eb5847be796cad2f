package permission

import (
	"reflect"
	"testing"

	"github.com/medhist/annotation-iam/errors"
)

func TestCatalogue(t *testing.T) {
	for _, n := range []string{ViewSamples, CreateSample, EditSample, DeleteSample, CreateAnnotation,
		DeleteAnnotation, ManageForms, ManageTissueTypes, ManageUsers, ManageRoles} {
		if !IsKnown(n) {
			t.Fatalf("%s missing from catalogue", n)
		}
	}
	if IsKnown("LAUNCH_ROCKETS") {
		t.Fatal("unexpected permission accepted")
	}
	names := Names()
	if len(names) != len(Catalogue) || names[0] != CreateAnnotation {
		t.Fatalf("Names() not sorted or incomplete: %v", names)
	}
}

func TestSetUnionDeduplicates(t *testing.T) {
	s := NewSet("A", "B")
	s.Add("B", "C", "")
	if got := s.Slice(); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Fatalf("Slice() = %v", got)
	}
	if s.Len() != 3 {
		t.Fatalf("Len() = %d", s.Len())
	}
}

func TestSetHasAll(t *testing.T) {
	s := NewSet("X", "Z")
	cases := []struct {
		req  []string
		want bool
	}{
		{nil, true},
		{[]string{"X"}, true},
		{[]string{"X", "Z"}, true},
		{[]string{"X", "Y"}, false},
		{[]string{"Y"}, false},
	}
	for _, c := range cases {
		if got := s.HasAll(c.req...); got != c.want {
			t.Fatalf("HasAll(%v) = %v, want %v", c.req, got, c.want)
		}
	}
	if m := s.Missing("X", "Y", "W"); !reflect.DeepEqual(m, []string{"Y", "W"}) {
		t.Fatalf("Missing() = %v", m)
	}
}

func TestSetHasAny(t *testing.T) {
	s := NewSet("DOCTOR")
	if !s.HasAny("ADMIN", "DOCTOR") {
		t.Fatal("expected any-of to succeed with one match")
	}
	if s.HasAny("ADMIN") {
		t.Fatal("expected any-of to fail without a match")
	}
	if s.HasAny() {
		t.Fatal("empty any-of must not be satisfied")
	}
}

func TestNilSet(t *testing.T) {
	var s *Set
	if s.Has("A") || s.Len() != 0 || len(s.Slice()) != 0 {
		t.Fatal("nil set should behave as empty")
	}
}

type owned string

func (o owned) OwnerID() string { return string(o) }

func TestAssertOwner(t *testing.T) {
	if err := AssertOwner(owned("u2"), "u2"); err != nil {
		t.Fatalf("owner denied: %v", err)
	}
	err := AssertOwner(owned("u2"), "u1")
	if !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if err := AssertOwner(owned(""), ""); !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("empty acting user must be forbidden, got %v", err)
	}
	if err := AssertOwner(nil, "u1"); !errors.Is(err, errors.ErrForbidden) {
		t.Fatalf("nil resource must be forbidden, got %v", err)
	}
}
