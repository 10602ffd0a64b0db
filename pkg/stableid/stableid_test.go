package stableid

import (
	"errors"
	"strings"
	"testing"
)

func TestNew_Deterministic(t *testing.T) {
	a, err := New(Classroom, "c-123")
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(Classroom, "c-123")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("same inputs produced different ids: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "classroom_") {
		t.Errorf("id %q missing namespace prefix", a)
	}
}

func TestNew_EmailCaseInsensitive(t *testing.T) {
	upper, err := New(Student, "Alice@School.EDU")
	if err != nil {
		t.Fatal(err)
	}
	lower, err := New(Student, "alice@school.edu")
	if err != nil {
		t.Fatal(err)
	}
	if upper != lower {
		t.Errorf("student ids must be case-insensitive: %q vs %q", upper, lower)
	}

	other, err := New(Student, "alice@school.edu.other")
	if err != nil {
		t.Fatal(err)
	}
	if other == lower {
		t.Error("different emails produced the same id")
	}
}

func TestNew_NamespacesDoNotCollide(t *testing.T) {
	a, _ := New(Classroom, "x-1")
	b, _ := New(Assignment, "x-1")
	if a == b {
		t.Error("same key in different namespaces produced the same id")
	}
}

func TestNew_CompositeKeyBoundaries(t *testing.T) {
	// ("ab","c") must never hash the same as ("a","bc").
	a, err := New(Submission, "ab", "c")
	if err != nil {
		t.Fatal(err)
	}
	b, err := New(Submission, "a", "bc")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("composite key boundary collision")
	}
}

func TestNew_EmptyComponent(t *testing.T) {
	cases := [][]string{
		{},
		{""},
		{"   "},
		{"c1", "\t", "s1"},
	}
	for _, parts := range cases {
		_, err := New(Submission, parts...)
		if err == nil {
			t.Errorf("expected error for parts %q, got nil", parts)
			continue
		}
		var keyErr *InvalidKeyError
		if !errors.As(err, &keyErr) {
			t.Errorf("expected InvalidKeyError for parts %q, got %v", parts, err)
		}
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@School.EDU "); got != "alice@school.edu" {
		t.Errorf("NormalizeEmail = %q", got)
	}
}
