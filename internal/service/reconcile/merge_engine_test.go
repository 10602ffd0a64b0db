package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/rs/zerolog"
)

func TestMergeClassrooms_CreateAndIdempotence(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	incoming := []models.Classroom{{ID: "cls-1", Name: "Algebra", Section: "P2", Version: 1}}

	toCreate, toUpdate, err := m.MergeClassrooms(incoming, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(toCreate) != 1 || len(toUpdate) != 0 {
		t.Fatalf("first merge: %d creates, %d updates", len(toCreate), len(toUpdate))
	}

	// Second run against the stored copy must be a full no-op.
	toCreate, toUpdate, err = m.MergeClassrooms(incoming, incoming)
	if err != nil {
		t.Fatal(err)
	}
	if len(toCreate) != 0 || len(toUpdate) != 0 {
		t.Errorf("identical re-merge: %d creates, %d updates, want none", len(toCreate), len(toUpdate))
	}
}

func TestMergeClassrooms_AdditiveFieldMerge(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	existing := []models.Classroom{{ID: "cls-1", Name: "Algebra", Section: "P2", Version: 3}}
	// Incoming has a new name but carries no section; the stored section
	// must survive.
	incoming := []models.Classroom{{ID: "cls-1", Name: "Algebra I", Version: 1}}

	_, toUpdate, err := m.MergeClassrooms(incoming, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(toUpdate) != 1 {
		t.Fatalf("expected one update, got %d", len(toUpdate))
	}
	got := toUpdate[0]
	if got.Name != "Algebra I" {
		t.Errorf("name = %q", got.Name)
	}
	if got.Section != "P2" {
		t.Errorf("empty incoming section wiped stored value, section = %q", got.Section)
	}
	if got.Version != 4 {
		t.Errorf("version = %d, want 4", got.Version)
	}
}

func TestMergeClassrooms_DuplicateStoredID(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	existing := []models.Classroom{{ID: "cls-1"}, {ID: "cls-1"}}
	_, _, err := m.MergeClassrooms(nil, existing)

	var inconsistent *InconsistentStateError
	if !errors.As(err, &inconsistent) {
		t.Fatalf("expected InconsistentStateError, got %v", err)
	}
	if inconsistent.Entity != "classroom" || inconsistent.ID != "cls-1" {
		t.Errorf("error = %+v", inconsistent)
	}
}

func TestMergeSubmissions_VersionsOnChange(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	existing := []models.Submission{{
		ID: "sub-1", ContentHash: "hash-a", Status: "submitted", Version: 1, IsLatest: true,
	}}

	// Unchanged content: nothing to write.
	unchanged := []models.Submission{{
		ID: "sub-1", ContentHash: "hash-a", Status: "submitted", Version: 1, IsLatest: true,
	}}
	merge, err := m.MergeSubmissions(unchanged, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToCreate) != 0 || len(merge.ToSupersede) != 0 {
		t.Fatalf("unchanged submission produced writes: %+v", merge)
	}

	// Resubmission with new content: old row demoted, new row is version 2.
	changed := []models.Submission{{
		ID: "sub-1", ContentHash: "hash-b", Status: "submitted", Version: 1, IsLatest: true,
	}}
	merge, err = m.MergeSubmissions(changed, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToSupersede) != 1 || merge.ToSupersede[0].IsLatest {
		t.Fatalf("previous version not demoted: %+v", merge.ToSupersede)
	}
	if len(merge.ToCreate) != 1 {
		t.Fatalf("expected one new version, got %d", len(merge.ToCreate))
	}
	next := merge.ToCreate[0]
	if next.Version != 2 || !next.IsLatest {
		t.Errorf("new version = %d latest = %v, want 2/true", next.Version, next.IsLatest)
	}
}

func TestMergeSubmissions_ScoreChangeVersions(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	old := 70.0
	existing := []models.Submission{{
		ID: "sub-1", ContentHash: "hash-a", Status: "graded", Score: &old, Version: 2, IsLatest: true,
	}}

	newScore := 90.0
	incoming := []models.Submission{{
		ID: "sub-1", ContentHash: "hash-a", Status: "graded", Score: &newScore, Version: 1, IsLatest: true,
	}}

	merge, err := m.MergeSubmissions(incoming, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToCreate) != 1 || merge.ToCreate[0].Version != 3 {
		t.Fatalf("score change must open version 3: %+v", merge.ToCreate)
	}
}

func TestMergeSubmissions_DuplicateRowsLastSeqWins(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	incoming := []models.Submission{
		{ID: "sub-1", ContentHash: "hash-early", Status: "submitted", Version: 1, Seq: 1},
		{ID: "sub-1", ContentHash: "hash-late", Status: "submitted", Version: 1, Seq: 2},
	}

	merge, err := m.MergeSubmissions(incoming, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToCreate) != 1 {
		t.Fatalf("duplicate rows must collapse to one, got %d", len(merge.ToCreate))
	}
	if merge.ToCreate[0].ContentHash != "hash-late" {
		t.Errorf("winner = %q, want the later row", merge.ToCreate[0].ContentHash)
	}
}

func TestMergeEnrollments_ArchiveAndReactivate(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())
	scope := []string{"cls-1"}

	active := models.Enrollment{
		ID: "enr-1", ClassroomID: "cls-1", StudentID: "stu-1",
		StudentEmail: "alice@school.edu", Status: models.EnrollmentStatusActive, Version: 1,
	}

	// Student missing from a covered classroom: archive.
	merge, err := m.MergeEnrollments(nil, []models.Enrollment{active}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToArchive) != 1 {
		t.Fatalf("expected one archive, got %d", len(merge.ToArchive))
	}
	archived := merge.ToArchive[0]
	if archived.Status != models.EnrollmentStatusRemoved || archived.Version != 2 {
		t.Errorf("archived = %+v", archived)
	}

	// Same student reappears: the removed row flips back under the same id.
	merge, err = m.MergeEnrollments([]models.Enrollment{active}, []models.Enrollment{archived}, scope)
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToCreate) != 0 {
		t.Fatalf("returning student must not be re-created, got %d creates", len(merge.ToCreate))
	}
	if len(merge.ToUpdate) != 1 {
		t.Fatalf("expected one reactivation update, got %d", len(merge.ToUpdate))
	}
	back := merge.ToUpdate[0]
	if back.ID != "enr-1" || back.Status != models.EnrollmentStatusActive || back.Version != 3 {
		t.Errorf("reactivated = %+v", back)
	}
}

func TestMergeEnrollments_OutOfScopeNotArchived(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	other := models.Enrollment{
		ID: "enr-2", ClassroomID: "cls-other", Status: models.EnrollmentStatusActive, Version: 1,
	}

	merge, err := m.MergeEnrollments(nil, []models.Enrollment{other}, []string{"cls-1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(merge.ToArchive) != 0 {
		t.Error("enrollment outside the snapshot's classrooms must not be archived")
	}
}

func TestMergeAssignments_DueDateAndMaterials(t *testing.T) {
	m := NewMergeEngine(zerolog.Nop())

	due := time.Date(2026, 9, 15, 12, 0, 0, 0, time.UTC)
	existing := []models.Assignment{{
		ID: "asg-1", Title: "HW 1", MaxScore: 100, DueDate: &due,
		Materials: []string{"doc-1"}, Version: 1,
	}}

	newDue := due.AddDate(0, 0, 7)
	incoming := []models.Assignment{{
		ID: "asg-1", Title: "HW 1", MaxScore: 100, DueDate: &newDue,
		Materials: []string{"doc-1", "doc-2"}, Version: 1,
	}}

	_, toUpdate, err := m.MergeAssignments(incoming, existing)
	if err != nil {
		t.Fatal(err)
	}
	if len(toUpdate) != 1 {
		t.Fatalf("expected one update, got %d", len(toUpdate))
	}
	got := toUpdate[0]
	if !got.DueDate.Equal(newDue) {
		t.Errorf("due date not updated: %v", got.DueDate)
	}
	if len(got.Materials) != 2 {
		t.Errorf("materials not updated: %v", got.Materials)
	}
	if got.Version != 2 {
		t.Errorf("version = %d", got.Version)
	}
}
