package reconcile

import (
	"testing"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/rs/zerolog"
)

func TestExtract_BuildsGradeInputs(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())
	ex := NewGradeExtractor(zerolog.Nop())

	snap := testSnapshot()
	result, err := tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}

	inputs := ex.Extract(snap, result.Submissions)
	if len(inputs) != 1 {
		t.Fatalf("expected one grade input, got %d", len(inputs))
	}

	g := inputs[0]
	if g.SubmissionID != result.Submissions[0].ID {
		t.Errorf("grade keyed to %q, want %q", g.SubmissionID, result.Submissions[0].ID)
	}
	if g.Score != 85 {
		t.Errorf("score = %v", g.Score)
	}
	if g.MaxScore != 100 {
		t.Errorf("max score must fall back to the assignment's, got %v", g.MaxScore)
	}
	if g.GradedBy != models.GradedByTeacher {
		t.Errorf("graded_by = %q", g.GradedBy)
	}
}

func TestExtract_UngradedSubmissionsSkipped(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())
	ex := NewGradeExtractor(zerolog.Nop())

	snap := testSnapshot()
	snap.Classrooms[0].Submissions[0].Score = nil

	result, err := tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}

	if inputs := ex.Extract(snap, result.Submissions); len(inputs) != 0 {
		t.Errorf("submission without score produced %d grade inputs", len(inputs))
	}
}

func TestExtract_InvalidGradedByDefaultsToAuto(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())
	ex := NewGradeExtractor(zerolog.Nop())

	snap := testSnapshot()
	snap.Classrooms[0].Submissions[0].GradedBy = "robot"

	result, err := tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}

	inputs := ex.Extract(snap, result.Submissions)
	if len(inputs) != 1 || inputs[0].GradedBy != models.GradedByAuto {
		t.Errorf("unknown graded_by must default to auto, got %+v", inputs)
	}
}

func TestExtract_DropsGradeForMissingSubmission(t *testing.T) {
	ex := NewGradeExtractor(zerolog.Nop())

	snap := testSnapshot()
	// No transformed submissions at all, so the embedded grade has no chain
	// to attach to.
	if inputs := ex.Extract(snap, nil); len(inputs) != 0 {
		t.Errorf("grade for unknown submission must be dropped, got %d inputs", len(inputs))
	}
}

func TestExtract_DuplicateSubmissionLastWins(t *testing.T) {
	tr := NewTransformer(zerolog.Nop())
	ex := NewGradeExtractor(zerolog.Nop())

	snap := testSnapshot()
	first := snap.Classrooms[0].Submissions[0]
	second := first
	late := 95.0
	second.Score = &late
	snap.Classrooms[0].Submissions = append(snap.Classrooms[0].Submissions, second)

	result, err := tr.Transform(snap)
	if err != nil {
		t.Fatal(err)
	}

	inputs := ex.Extract(snap, result.Submissions)
	if len(inputs) != 1 {
		t.Fatalf("duplicates must collapse, got %d inputs", len(inputs))
	}
	if inputs[0].Score != 95 {
		t.Errorf("score = %v, want the later row's 95", inputs[0].Score)
	}
}
