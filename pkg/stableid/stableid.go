package stableid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Namespace tags keep ids from different entity types apart even when their
// natural keys collide.
type Namespace string

const (
	Classroom  Namespace = "classroom"
	Assignment Namespace = "assignment"
	Student    Namespace = "student"
	Submission Namespace = "submission"
	Enrollment Namespace = "enrollment"
	Teacher    Namespace = "teacher"
)

// keySeparator joins composite key parts before hashing. An ASCII unit
// separator cannot appear in external ids or emails, so ("ab","c") and
// ("a","bc") always hash differently.
const keySeparator = "\x1f"

// InvalidKeyError reports an empty or whitespace-only natural key component.
type InvalidKeyError struct {
	Namespace Namespace
	Position  int
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("stableid: empty key component at position %d for namespace %q", e.Position, e.Namespace)
}

// New derives a deterministic, storage-safe identifier from a namespace and
// one or more natural-key strings. The same inputs always produce the same
// id. Email-keyed namespaces (student, teacher) are case-insensitive.
func New(ns Namespace, parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", &InvalidKeyError{Namespace: ns, Position: 0}
	}

	normalized := make([]string, 0, len(parts))
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return "", &InvalidKeyError{Namespace: ns, Position: i}
		}
		if ns == Student || ns == Teacher {
			part = strings.ToLower(part)
		}
		normalized = append(normalized, part)
	}

	sum := sha256.Sum256([]byte(string(ns) + keySeparator + strings.Join(normalized, keySeparator)))
	return string(ns) + "_" + hex.EncodeToString(sum[:16]), nil
}

// NormalizeEmail trims and lowercases an email address the same way New
// does for email-keyed namespaces, so stored emails match derived ids.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
