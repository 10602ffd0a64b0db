package service

import (
	"context"
	"sync"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/repository"
)

// In-memory repositories for service tests. Writes are mutex-guarded
// because the processor batches entity types concurrently.

type fakeGradeRepo struct {
	mu     sync.Mutex
	grades []models.Grade
}

func (f *fakeGradeRepo) GetLatestBySubmission(_ context.Context, submissionID string) (*models.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.grades {
		if f.grades[i].SubmissionID == submissionID && f.grades[i].IsLatest {
			g := f.grades[i]
			return &g, nil
		}
	}
	return nil, nil
}

func (f *fakeGradeRepo) GetLatestBySubmissionIDs(ctx context.Context, ids []string) ([]models.Grade, error) {
	var out []models.Grade
	for _, id := range ids {
		g, _ := f.GetLatestBySubmission(ctx, id)
		if g != nil {
			out = append(out, *g)
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) ListBySubmission(_ context.Context, submissionID string) ([]models.Grade, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Grade
	for _, g := range f.grades {
		if g.SubmissionID == submissionID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGradeRepo) Create(_ context.Context, grade *models.Grade) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.grades = append(f.grades, *grade)
	return nil
}

func (f *fakeGradeRepo) Supersede(_ context.Context, gradeID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.grades {
		if f.grades[i].ID == gradeID {
			f.grades[i].IsLatest = false
		}
	}
	return nil
}

type fakeTeacherRepo struct {
	mu       sync.Mutex
	teachers map[string]models.Teacher // keyed by id
}

func newFakeTeacherRepo() *fakeTeacherRepo {
	return &fakeTeacherRepo{teachers: make(map[string]models.Teacher)}
}

func (f *fakeTeacherRepo) GetByEmail(_ context.Context, email string) (*models.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.teachers {
		if t.Email == email || (t.SchoolEmail != nil && *t.SchoolEmail == email) {
			out := t
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeTeacherRepo) GetByID(_ context.Context, id string) (*models.Teacher, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.teachers[id]; ok {
		out := t
		return &out, nil
	}
	return nil, nil
}

func (f *fakeTeacherRepo) Create(_ context.Context, teacher *models.Teacher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teachers[teacher.ID] = *teacher
	return nil
}

func (f *fakeTeacherRepo) Update(_ context.Context, teacher *models.Teacher) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teachers[teacher.ID] = *teacher
	return nil
}

type fakeClassroomRepo struct {
	mu         sync.Mutex
	classrooms map[string]models.Classroom
}

func newFakeClassroomRepo() *fakeClassroomRepo {
	return &fakeClassroomRepo{classrooms: make(map[string]models.Classroom)}
}

func (f *fakeClassroomRepo) GetByID(_ context.Context, id string) (*models.Classroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.classrooms[id]; ok {
		out := c
		return &out, nil
	}
	return nil, nil
}

func (f *fakeClassroomRepo) GetByIDs(_ context.Context, ids []string) ([]models.Classroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Classroom
	for _, id := range ids {
		if c, ok := f.classrooms[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClassroomRepo) GetByOwnerID(_ context.Context, ownerID string) ([]models.Classroom, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Classroom
	for _, c := range f.classrooms {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeClassroomRepo) BatchCreate(_ context.Context, classrooms []models.Classroom) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range classrooms {
		f.classrooms[c.ID] = c
	}
	return nil
}

func (f *fakeClassroomRepo) BatchUpdate(_ context.Context, classrooms []models.Classroom) error {
	return f.BatchCreate(context.Background(), classrooms)
}

func (f *fakeClassroomRepo) CountsFor(_ context.Context, id string) (*repository.ClassroomCounts, error) {
	return &repository.ClassroomCounts{}, nil
}

func (f *fakeClassroomRepo) UpdateCounts(_ context.Context, id string, counts repository.ClassroomCounts) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.classrooms[id]; ok {
		c.StudentCount = counts.Students
		c.AssignmentCount = counts.Assignments
		c.SubmissionCount = counts.Submissions
		f.classrooms[id] = c
	}
	return nil
}

type fakeAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[string]models.Assignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: make(map[string]models.Assignment)}
}

func (f *fakeAssignmentRepo) GetByID(_ context.Context, id string) (*models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a, ok := f.assignments[id]; ok {
		out := a
		return &out, nil
	}
	return nil, nil
}

func (f *fakeAssignmentRepo) GetByClassroomIDs(_ context.Context, classroomIDs []string) ([]models.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inScope := make(map[string]bool)
	for _, id := range classroomIDs {
		inScope[id] = true
	}
	var out []models.Assignment
	for _, a := range f.assignments {
		if inScope[a.ClassroomID] {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) BatchCreate(_ context.Context, assignments []models.Assignment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assignments {
		f.assignments[a.ID] = a
	}
	return nil
}

func (f *fakeAssignmentRepo) BatchUpdate(ctx context.Context, assignments []models.Assignment) error {
	return f.BatchCreate(ctx, assignments)
}

type submissionKey struct {
	id      string
	version int
}

type fakeSubmissionRepo struct {
	mu          sync.Mutex
	submissions map[submissionKey]models.Submission
}

func newFakeSubmissionRepo() *fakeSubmissionRepo {
	return &fakeSubmissionRepo{submissions: make(map[submissionKey]models.Submission)}
}

func (f *fakeSubmissionRepo) GetLatest(_ context.Context, id string) (*models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.submissions {
		if s.ID == id && s.IsLatest {
			out := s
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeSubmissionRepo) GetLatestByClassroomIDs(_ context.Context, classroomIDs []string) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inScope := make(map[string]bool)
	for _, id := range classroomIDs {
		inScope[id] = true
	}
	var out []models.Submission
	for _, s := range f.submissions {
		if inScope[s.ClassroomID] && s.IsLatest {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) GetVersions(_ context.Context, id string) ([]models.Submission, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Submission
	for _, s := range f.submissions {
		if s.ID == id {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSubmissionRepo) BatchCreate(_ context.Context, submissions []models.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range submissions {
		f.submissions[submissionKey{s.ID, s.Version}] = s
	}
	return nil
}

func (f *fakeSubmissionRepo) BatchUpdate(ctx context.Context, submissions []models.Submission) error {
	return f.BatchCreate(ctx, submissions)
}

type fakeEnrollmentRepo struct {
	mu          sync.Mutex
	enrollments map[string]models.Enrollment
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{enrollments: make(map[string]models.Enrollment)}
}

func (f *fakeEnrollmentRepo) GetByClassroomIDs(_ context.Context, classroomIDs []string) ([]models.Enrollment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inScope := make(map[string]bool)
	for _, id := range classroomIDs {
		inScope[id] = true
	}
	var out []models.Enrollment
	for _, e := range f.enrollments {
		if inScope[e.ClassroomID] {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEnrollmentRepo) BatchCreate(_ context.Context, enrollments []models.Enrollment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range enrollments {
		f.enrollments[e.ID] = e
	}
	return nil
}

func (f *fakeEnrollmentRepo) BatchUpdate(ctx context.Context, enrollments []models.Enrollment) error {
	return f.BatchCreate(ctx, enrollments)
}

type fakeImportRunRepo struct {
	mu   sync.Mutex
	runs []models.ImportRun
}

func (f *fakeImportRunRepo) Create(_ context.Context, run *models.ImportRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeImportRunRepo) GetByID(_ context.Context, id string) (*models.ImportRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.runs {
		if f.runs[i].ID == id {
			out := f.runs[i]
			return &out, nil
		}
	}
	return nil, nil
}

func (f *fakeImportRunRepo) ListByTeacherEmail(_ context.Context, email string, limit int) ([]models.ImportRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.ImportRun
	for _, r := range f.runs {
		if r.TeacherEmail == email {
			out = append(out, r)
		}
	}
	return out, nil
}
