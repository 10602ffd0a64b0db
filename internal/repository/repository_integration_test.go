package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/testutil/testdb"
	"github.com/rs/zerolog"
)

func TestRepositories_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	ctx := context.Background()
	handle, err := testdb.Start(ctx)
	if err != nil {
		t.Fatalf("failed to start test database: %v", err)
	}
	defer handle.Close()

	log := zerolog.Nop()
	db := handle.DB
	now := time.Now().UTC().Truncate(time.Microsecond)

	teachers := NewTeacherRepository(db, log)
	classrooms := NewClassroomRepository(db, log)
	assignments := NewAssignmentRepository(db, log)
	submissions := NewSubmissionRepository(db, log)
	enrollments := NewEnrollmentRepository(db, log)
	grades := NewGradeRepository(db, log)
	importRuns := NewImportRunRepository(db, log)

	t.Run("teacher round trip", func(t *testing.T) {
		teacher := &models.Teacher{
			ID: "teacher_abc", Email: "pat@school.edu", Name: "Pat",
			ClassroomIDs: []string{"cls-1"}, TotalClassrooms: 1, Version: 1,
			CreatedAt: now, UpdatedAt: now,
		}
		if err := teachers.Create(ctx, teacher); err != nil {
			t.Fatal(err)
		}

		got, err := teachers.GetByEmail(ctx, "pat@school.edu")
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.ID != "teacher_abc" || len(got.ClassroomIDs) != 1 {
			t.Fatalf("got %+v", got)
		}

		school := "pat@board.org"
		got.SchoolEmail = &school
		got.Version = 2
		got.UpdatedAt = now
		if err := teachers.Update(ctx, got); err != nil {
			t.Fatal(err)
		}

		// Lookup by either identity must find the same profile.
		bySchool, err := teachers.GetByEmail(ctx, "pat@board.org")
		if err != nil {
			t.Fatal(err)
		}
		if bySchool == nil || bySchool.ID != "teacher_abc" {
			t.Fatalf("school email lookup: %+v", bySchool)
		}

		missing, err := teachers.GetByEmail(ctx, "nobody@school.edu")
		if err != nil || missing != nil {
			t.Fatalf("missing teacher: %v %v", missing, err)
		}
	})

	t.Run("classroom batches and counts", func(t *testing.T) {
		batch := []models.Classroom{
			{ID: "cls-1", Name: "Algebra", OwnerID: "teacher_abc", Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now},
			{ID: "cls-2", Name: "Biology", OwnerID: "teacher_abc", Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now},
		}
		if err := classrooms.BatchCreate(ctx, batch); err != nil {
			t.Fatal(err)
		}

		owned, err := classrooms.GetByOwnerID(ctx, "teacher_abc")
		if err != nil {
			t.Fatal(err)
		}
		if len(owned) != 2 {
			t.Fatalf("owned = %d", len(owned))
		}

		if err := enrollments.BatchCreate(ctx, []models.Enrollment{
			{ID: "enr-1", ClassroomID: "cls-1", StudentID: "stu-1", StudentEmail: "a@school.edu", Status: models.EnrollmentStatusActive, Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now},
			{ID: "enr-2", ClassroomID: "cls-1", StudentID: "stu-2", StudentEmail: "b@school.edu", Status: models.EnrollmentStatusRemoved, Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now},
		}); err != nil {
			t.Fatal(err)
		}
		if err := assignments.BatchCreate(ctx, []models.Assignment{
			{ID: "asg-1", ClassroomID: "cls-1", Title: "HW", MaxScore: 100, Materials: []string{"doc"}, Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now},
		}); err != nil {
			t.Fatal(err)
		}

		counts, err := classrooms.CountsFor(ctx, "cls-1")
		if err != nil {
			t.Fatal(err)
		}
		// Removed enrollments are excluded from the roster count.
		if counts.Students != 1 || counts.Assignments != 1 {
			t.Fatalf("counts = %+v", counts)
		}

		if err := classrooms.UpdateCounts(ctx, "cls-1", *counts); err != nil {
			t.Fatal(err)
		}
		got, err := classrooms.GetByID(ctx, "cls-1")
		if err != nil {
			t.Fatal(err)
		}
		if got.StudentCount != 1 || got.AssignmentCount != 1 {
			t.Fatalf("persisted counts = %+v", got)
		}
	})

	t.Run("submission version chain", func(t *testing.T) {
		v1 := models.Submission{
			ID: "sub-1", ClassroomID: "cls-1", AssignmentID: "asg-1", StudentID: "stu-1",
			Content: "draft", ContentHash: "hash-a", Status: "submitted",
			Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now,
		}
		if err := submissions.BatchCreate(ctx, []models.Submission{v1}); err != nil {
			t.Fatal(err)
		}

		demoted := v1
		demoted.IsLatest = false
		if err := submissions.BatchUpdate(ctx, []models.Submission{demoted}); err != nil {
			t.Fatal(err)
		}

		v2 := v1
		v2.Version = 2
		v2.Content = "final"
		v2.ContentHash = "hash-b"
		if err := submissions.BatchCreate(ctx, []models.Submission{v2}); err != nil {
			t.Fatal(err)
		}

		latest, err := submissions.GetLatest(ctx, "sub-1")
		if err != nil {
			t.Fatal(err)
		}
		if latest == nil || latest.Version != 2 || latest.ContentHash != "hash-b" {
			t.Fatalf("latest = %+v", latest)
		}

		chain, err := submissions.GetVersions(ctx, "sub-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(chain) != 2 || chain[0].Version != 2 {
			t.Fatalf("chain = %+v", chain)
		}

		byClassroom, err := submissions.GetLatestByClassroomIDs(ctx, []string{"cls-1"})
		if err != nil {
			t.Fatal(err)
		}
		if len(byClassroom) != 1 {
			t.Fatalf("latest per classroom = %d", len(byClassroom))
		}
	})

	t.Run("grade supersede", func(t *testing.T) {
		g1 := &models.Grade{
			ID: uuid.New().String(), SubmissionID: "sub-1", Score: 70, MaxScore: 100,
			GradedBy: models.GradedByAuto, Version: 1, IsLatest: true, CreatedAt: now, UpdatedAt: now,
		}
		if err := grades.Create(ctx, g1); err != nil {
			t.Fatal(err)
		}
		if err := grades.Supersede(ctx, g1.ID); err != nil {
			t.Fatal(err)
		}
		g2 := &models.Grade{
			ID: uuid.New().String(), SubmissionID: "sub-1", Score: 90, MaxScore: 100,
			GradedBy: models.GradedByTeacher, Version: 2, IsLatest: true, CreatedAt: now, UpdatedAt: now,
		}
		if err := grades.Create(ctx, g2); err != nil {
			t.Fatal(err)
		}

		latest, err := grades.GetLatestBySubmission(ctx, "sub-1")
		if err != nil {
			t.Fatal(err)
		}
		if latest == nil || latest.Version != 2 || latest.Score != 90 {
			t.Fatalf("latest grade = %+v", latest)
		}

		history, err := grades.ListBySubmission(ctx, "sub-1")
		if err != nil {
			t.Fatal(err)
		}
		if len(history) != 2 {
			t.Fatalf("history = %d", len(history))
		}
	})

	t.Run("import run audit trail", func(t *testing.T) {
		run := &models.ImportRun{
			ID:           uuid.New().String(),
			TeacherEmail: "pat@school.edu",
			Success:      false,
			Stats:        models.ImportStats{ClassroomsCreated: 2},
			Errors:       []models.ProcessError{{Entity: "submission", Error: "boom"}},
			CreatedAt:    now,
		}
		if err := importRuns.Create(ctx, run); err != nil {
			t.Fatal(err)
		}

		got, err := importRuns.GetByID(ctx, run.ID)
		if err != nil {
			t.Fatal(err)
		}
		if got == nil || got.Stats.ClassroomsCreated != 2 || len(got.Errors) != 1 {
			t.Fatalf("got = %+v", got)
		}

		list, err := importRuns.ListByTeacherEmail(ctx, "pat@school.edu", 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(list) != 1 {
			t.Fatalf("list = %d", len(list))
		}
	})
}
