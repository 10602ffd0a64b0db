package reconcile

import (
	"errors"
	"testing"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/pkg/stableid"
	"github.com/rs/zerolog"
)

func testSnapshot() *models.Snapshot {
	score := 85.0
	return &models.Snapshot{
		Teacher: models.SnapshotTeacher{
			Email: "Teacher@School.EDU",
			Name:  "Pat Teacher",
		},
		Classrooms: []models.SnapshotClassroom{
			{
				ID:      "c-101",
				Name:    "Algebra I",
				Section: "Period 2",
				Assignments: []models.SnapshotAssignment{
					{ID: "a-1", Title: "Homework 1", MaxScore: 100},
				},
				Students: []models.SnapshotStudent{
					{ID: "s-1", Email: "alice@school.edu", Name: "Alice"},
				},
				Submissions: []models.SnapshotSubmission{
					{
						ID:           "sub-1",
						AssignmentID: "a-1",
						StudentEmail: "ALICE@school.edu",
						State:        "turned_in",
						Content:      "my answer",
						Score:        &score,
						GradedBy:     "teacher",
					},
				},
			},
		},
	}
}

func TestTransform_NilSnapshot(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())

	_, err := tr.Transform(nil)
	var shapeErr *TransformShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected TransformShapeError, got %v", err)
	}
}

func TestTransform_MissingTeacherEmail(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())

	snap := testSnapshot()
	snap.Teacher.Email = ""

	_, err := tr.Transform(snap)
	var shapeErr *TransformShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("expected TransformShapeError, got %v", err)
	}
}

func TestTransform_BuildsEntitiesWithStableIDs(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())

	result, err := tr.Transform(testSnapshot())
	if err != nil {
		t.Fatal(err)
	}

	if result.Teacher.Email != "teacher@school.edu" {
		t.Errorf("teacher email not normalized: %q", result.Teacher.Email)
	}
	if len(result.Classrooms) != 1 || len(result.Assignments) != 1 ||
		len(result.Enrollments) != 1 || len(result.Submissions) != 1 {
		t.Fatalf("unexpected entity counts: %d classrooms, %d assignments, %d enrollments, %d submissions",
			len(result.Classrooms), len(result.Assignments), len(result.Enrollments), len(result.Submissions))
	}

	classroomID, _ := stableid.New(stableid.Classroom, "c-101")
	if result.Classrooms[0].ID != classroomID {
		t.Errorf("classroom id = %q, want %q", result.Classrooms[0].ID, classroomID)
	}

	sub := result.Submissions[0]
	if sub.ClassroomID != classroomID {
		t.Errorf("submission classroom id = %q, want %q", sub.ClassroomID, classroomID)
	}
	if sub.Status != "graded" {
		t.Errorf("scored submission status = %q, want graded", sub.Status)
	}
	if sub.Version != 1 || !sub.IsLatest {
		t.Errorf("fresh submission must be version 1 and latest, got version=%d latest=%v", sub.Version, sub.IsLatest)
	}
	if sub.ContentHash == "" {
		t.Error("submission content hash not set")
	}

	// The submission's student email differs only in case from the roster
	// entry, so both must map to the same student id.
	if sub.StudentID != result.Enrollments[0].StudentID {
		t.Errorf("submission student id %q does not match enrollment student id %q",
			sub.StudentID, result.Enrollments[0].StudentID)
	}
}

func TestTransform_SkipsClassroomWithoutID(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())

	snap := testSnapshot()
	snap.Classrooms = append(snap.Classrooms, models.SnapshotClassroom{Name: "No ID"})

	result, err := tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Classrooms) != 1 {
		t.Errorf("expected the bad classroom to be skipped, got %d classrooms", len(result.Classrooms))
	}
	if result.SkippedRows == 0 {
		t.Error("skipped row not counted")
	}
}

func TestTransform_SchoolEmailFromGroupDomain(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())

	snap := testSnapshot()
	snap.Classrooms[0].GroupEmail = "pat.teacher@board.district.org"

	result, err := tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}
	if result.Teacher.SchoolEmail == nil {
		t.Fatal("expected school email to be extracted from group email")
	}
	if *result.Teacher.SchoolEmail != "pat.teacher@board.district.org" {
		t.Errorf("school email = %q", *result.Teacher.SchoolEmail)
	}

	// Same domain as the login email must not be treated as a second
	// identity.
	snap = testSnapshot()
	snap.Classrooms[0].GroupEmail = "algebra-1@school.edu"
	result, err = tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}
	if result.Teacher.SchoolEmail != nil {
		t.Errorf("same-domain group email must not become school email, got %q", *result.Teacher.SchoolEmail)
	}
}

func TestDeriveStatus(t *testing.T) {
	score := 50.0
	cases := []struct {
		state string
		score *float64
		want  string
	}{
		{"turned_in", nil, "submitted"},
		{"TURNED_IN", nil, "submitted"},
		{"returned", nil, "submitted"},
		{"created", nil, "pending"},
		{"", nil, "pending"},
		{"created", &score, "graded"},
		{"turned_in", &score, "graded"},
	}
	for _, c := range cases {
		if got := deriveStatus(c.state, c.score); got != c.want {
			t.Errorf("deriveStatus(%q, %v) = %q, want %q", c.state, c.score, got, c.want)
		}
	}
}
