package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gradekeeper/sync-service/internal/metrics"
	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/gradekeeper/sync-service/internal/repository"
	"github.com/gradekeeper/sync-service/internal/service/reconcile"
	"github.com/rs/zerolog"
)

type SnapshotService interface {
	ProcessSnapshot(ctx context.Context, snap *models.Snapshot, userEmail string) *models.ProcessResult
	GetImportRun(ctx context.Context, id string) (*models.ImportRun, error)
	ListImportRuns(ctx context.Context, teacherEmail string, limit int) (*models.ImportRunsResponse, error)
	FetchArchivedSnapshot(ctx context.Context, importID string) ([]byte, error)
}

type snapshotService struct {
	transformer *reconcile.Transformer
	merger      *reconcile.MergeEngine
	extractor   *reconcile.GradeExtractor
	grades      GradeService

	teachers    repository.TeacherRepository
	classrooms  repository.ClassroomRepository
	assignments repository.AssignmentRepository
	submissions repository.SubmissionRepository
	enrollments repository.EnrollmentRepository
	importRuns  repository.ImportRunRepository
	archive     repository.SnapshotArchive

	logger zerolog.Logger
}

func NewSnapshotService(
	transformer *reconcile.Transformer,
	merger *reconcile.MergeEngine,
	extractor *reconcile.GradeExtractor,
	grades GradeService,
	teachers repository.TeacherRepository,
	classrooms repository.ClassroomRepository,
	assignments repository.AssignmentRepository,
	submissions repository.SubmissionRepository,
	enrollments repository.EnrollmentRepository,
	importRuns repository.ImportRunRepository,
	archive repository.SnapshotArchive,
	logger zerolog.Logger,
) SnapshotService {
	return &snapshotService{
		transformer: transformer,
		merger:      merger,
		extractor:   extractor,
		grades:      grades,
		teachers:    teachers,
		classrooms:  classrooms,
		assignments: assignments,
		submissions: submissions,
		enrollments: enrollments,
		importRuns:  importRuns,
		archive:     archive,
		logger:      logger,
	}
}

// existingFetch carries the stored state for one import plus the per-type
// fetch errors. A type whose fetch failed is excluded from merging and
// writing so stale reads can never produce duplicate creates.
type existingFetch struct {
	state reconcile.ExistingState

	classroomsErr  error
	assignmentsErr error
	submissionsErr error
	enrollmentsErr error
}

// ProcessSnapshot runs the full reconciliation pipeline. It never returns
// an error: every failure is folded into the result, partial progress is
// kept, and success only means the error list came out empty.
func (s *snapshotService) ProcessSnapshot(ctx context.Context, snap *models.Snapshot, userEmail string) *models.ProcessResult {
	start := time.Now()
	result := &models.ProcessResult{
		ImportID: uuid.New().String(),
		Errors:   []models.ProcessError{},
	}

	log := s.logger.With().Str("import_id", result.ImportID).Logger()

	transformed, err := s.transformer.Transform(snap)
	if err != nil {
		// A broken top-level shape aborts before any write.
		log.Error().Err(err).Msg("Snapshot transform failed")
		result.Errors = append(result.Errors, models.ProcessError{
			Entity: "snapshot",
			Error:  err.Error(),
		})
		s.finalize(ctx, result, snap, userEmail, start, log)
		return result
	}

	if userEmail != "" && transformed.Teacher.Email != userEmail {
		log.Warn().
			Str("auth_email", userEmail).
			Str("snapshot_email", transformed.Teacher.Email).
			Msg("Authenticated email differs from snapshot teacher email")
	}

	teacher := s.resolveTeacher(ctx, transformed.Teacher, log)

	scope := make([]string, 0, len(transformed.Classrooms))
	for _, c := range transformed.Classrooms {
		scope = append(scope, c.ID)
	}

	existing := s.fetchExisting(ctx, scope)

	s.mergeAndWrite(ctx, transformed, existing, scope, result)
	s.recordGrades(ctx, snap, transformed, existing, result, log)
	s.refreshCounts(ctx, scope, result)
	s.reconcileTeacher(ctx, teacher, transformed.Teacher, result, log)

	s.finalize(ctx, result, snap, transformed.Teacher.Email, start, log)
	return result
}

func (s *snapshotService) resolveTeacher(ctx context.Context, profile reconcile.TeacherProfile, log zerolog.Logger) *models.Teacher {
	teacher, err := s.teachers.GetByEmail(ctx, profile.Email)
	if err != nil {
		log.Error().Err(err).Str("email", profile.Email).Msg("Failed to look up teacher")
		return nil
	}
	if teacher == nil {
		// Teacher profiles are provisioned elsewhere; an import never
		// creates one.
		log.Info().Str("email", profile.Email).Msg("No teacher profile for snapshot; skipping profile update")
	}
	return teacher
}

func (s *snapshotService) fetchExisting(ctx context.Context, scope []string) *existingFetch {
	fetch := &existingFetch{}

	var wg sync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		fetch.state.Classrooms, fetch.classroomsErr = s.classrooms.GetByIDs(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		fetch.state.Assignments, fetch.assignmentsErr = s.assignments.GetByClassroomIDs(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		fetch.state.Submissions, fetch.submissionsErr = s.submissions.GetLatestByClassroomIDs(ctx, scope)
	}()
	go func() {
		defer wg.Done()
		fetch.state.Enrollments, fetch.enrollmentsErr = s.enrollments.GetByClassroomIDs(ctx, scope)
	}()
	wg.Wait()

	return fetch
}

// mergeAndWrite diffs and persists each entity type independently: a fetch
// or merge failure excludes that one type from writing and the rest
// proceed. Merges are computed up front, then the four batches write
// concurrently.
func (s *snapshotService) mergeAndWrite(
	ctx context.Context,
	transformed *reconcile.TransformResult,
	existing *existingFetch,
	scope []string,
	result *models.ProcessResult,
) {
	var mu sync.Mutex
	fail := func(entity string, err error) {
		mu.Lock()
		defer mu.Unlock()
		result.Errors = append(result.Errors, models.ProcessError{Entity: entity, Error: err.Error()})
	}

	var (
		clsCreate, clsUpdate []models.Classroom
		asgCreate, asgUpdate []models.Assignment
		subMerge             *reconcile.SubmissionMerge
		enrMerge             *reconcile.EnrollmentMerge
		err                  error
	)

	writeCls, writeAsg := false, false
	if existing.classroomsErr != nil {
		fail("classroom", fmt.Errorf("failed to fetch existing classrooms: %w", existing.classroomsErr))
	} else if clsCreate, clsUpdate, err = s.merger.MergeClassrooms(transformed.Classrooms, existing.state.Classrooms); err != nil {
		fail("classroom", err)
	} else {
		writeCls = true
	}

	if existing.assignmentsErr != nil {
		fail("assignment", fmt.Errorf("failed to fetch existing assignments: %w", existing.assignmentsErr))
	} else if asgCreate, asgUpdate, err = s.merger.MergeAssignments(transformed.Assignments, existing.state.Assignments); err != nil {
		fail("assignment", err)
	} else {
		writeAsg = true
	}

	if existing.submissionsErr != nil {
		fail("submission", fmt.Errorf("failed to fetch existing submissions: %w", existing.submissionsErr))
	} else if subMerge, err = s.merger.MergeSubmissions(transformed.Submissions, existing.state.Submissions); err != nil {
		fail("submission", err)
		subMerge = nil
	}

	if existing.enrollmentsErr != nil {
		fail("enrollment", fmt.Errorf("failed to fetch existing enrollments: %w", existing.enrollmentsErr))
	} else if enrMerge, err = s.merger.MergeEnrollments(transformed.Enrollments, existing.state.Enrollments, scope); err != nil {
		fail("enrollment", err)
		enrMerge = nil
	}

	var wg sync.WaitGroup
	run := func(f func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f()
		}()
	}
	if writeCls {
		run(func() { s.writeClassrooms(ctx, clsCreate, clsUpdate, result, &mu, fail) })
	}
	if writeAsg {
		run(func() { s.writeAssignments(ctx, asgCreate, asgUpdate, result, &mu, fail) })
	}
	if subMerge != nil {
		run(func() { s.writeSubmissions(ctx, subMerge, result, &mu, fail) })
	}
	if enrMerge != nil {
		run(func() { s.writeEnrollments(ctx, enrMerge, result, &mu, fail) })
	}
	wg.Wait()
}

func (s *snapshotService) writeClassrooms(ctx context.Context, toCreate, toUpdate []models.Classroom, result *models.ProcessResult, mu *sync.Mutex, fail func(string, error)) {
	if len(toCreate) > 0 {
		if err := s.classrooms.BatchCreate(ctx, toCreate); err != nil {
			fail("classroom", fmt.Errorf("batch create failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.ClassroomsCreated += len(toCreate)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("classroom", "create").Add(float64(len(toCreate)))
		}
	}
	if len(toUpdate) > 0 {
		if err := s.classrooms.BatchUpdate(ctx, toUpdate); err != nil {
			fail("classroom", fmt.Errorf("batch update failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.ClassroomsUpdated += len(toUpdate)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("classroom", "update").Add(float64(len(toUpdate)))
		}
	}
}

func (s *snapshotService) writeAssignments(ctx context.Context, toCreate, toUpdate []models.Assignment, result *models.ProcessResult, mu *sync.Mutex, fail func(string, error)) {
	if len(toCreate) > 0 {
		if err := s.assignments.BatchCreate(ctx, toCreate); err != nil {
			fail("assignment", fmt.Errorf("batch create failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.AssignmentsCreated += len(toCreate)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("assignment", "create").Add(float64(len(toCreate)))
		}
	}
	if len(toUpdate) > 0 {
		if err := s.assignments.BatchUpdate(ctx, toUpdate); err != nil {
			fail("assignment", fmt.Errorf("batch update failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.AssignmentsUpdated += len(toUpdate)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("assignment", "update").Add(float64(len(toUpdate)))
		}
	}
}

// writeSubmissions demotes superseded rows before inserting the new
// versions so a crash in between leaves no chain with two latest rows.
func (s *snapshotService) writeSubmissions(ctx context.Context, merge *reconcile.SubmissionMerge, result *models.ProcessResult, mu *sync.Mutex, fail func(string, error)) {
	if len(merge.ToSupersede) > 0 {
		if err := s.submissions.BatchUpdate(ctx, merge.ToSupersede); err != nil {
			fail("submission", fmt.Errorf("failed to supersede previous versions: %w", err))
			return
		}
	}
	if len(merge.ToCreate) > 0 {
		if err := s.submissions.BatchCreate(ctx, merge.ToCreate); err != nil {
			fail("submission", fmt.Errorf("batch create failed: %w", err))
			return
		}
		created, versioned := 0, 0
		for _, sub := range merge.ToCreate {
			if sub.Version > 1 {
				versioned++
			} else {
				created++
			}
		}
		mu.Lock()
		result.Stats.SubmissionsCreated += created
		result.Stats.SubmissionsVersioned += versioned
		mu.Unlock()
		metrics.EntitiesWritten.WithLabelValues("submission", "create").Add(float64(created))
		metrics.EntitiesWritten.WithLabelValues("submission", "version").Add(float64(versioned))
	}
}

func (s *snapshotService) writeEnrollments(ctx context.Context, merge *reconcile.EnrollmentMerge, result *models.ProcessResult, mu *sync.Mutex, fail func(string, error)) {
	if len(merge.ToCreate) > 0 {
		if err := s.enrollments.BatchCreate(ctx, merge.ToCreate); err != nil {
			fail("enrollment", fmt.Errorf("batch create failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.EnrollmentsCreated += len(merge.ToCreate)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("enrollment", "create").Add(float64(len(merge.ToCreate)))
		}
	}
	if len(merge.ToUpdate) > 0 {
		if err := s.enrollments.BatchUpdate(ctx, merge.ToUpdate); err != nil {
			fail("enrollment", fmt.Errorf("batch update failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.EnrollmentsUpdated += len(merge.ToUpdate)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("enrollment", "update").Add(float64(len(merge.ToUpdate)))
		}
	}
	if len(merge.ToArchive) > 0 {
		if err := s.enrollments.BatchUpdate(ctx, merge.ToArchive); err != nil {
			fail("enrollment", fmt.Errorf("batch archive failed: %w", err))
		} else {
			mu.Lock()
			result.Stats.EnrollmentsArchived += len(merge.ToArchive)
			mu.Unlock()
			metrics.EntitiesWritten.WithLabelValues("enrollment", "archive").Add(float64(len(merge.ToArchive)))
		}
	}
}

// recordGrades extracts embedded grades and pushes them through the
// versioning policy. Skipped entirely when stored submissions could not be
// read, since grade decisions would be made against unknown chains.
func (s *snapshotService) recordGrades(ctx context.Context, snap *models.Snapshot, transformed *reconcile.TransformResult, existing *existingFetch, result *models.ProcessResult, log zerolog.Logger) {
	if existing.submissionsErr != nil {
		log.Warn().Msg("Skipping grade extraction: stored submissions unavailable")
		return
	}

	inputs := s.extractor.Extract(snap, transformed.Submissions)
	if len(inputs) == 0 {
		return
	}

	batch, procErrs := s.grades.RecordGradeBatch(ctx, inputs)
	result.Errors = append(result.Errors, procErrs...)
	result.Stats.GradesCreated += len(batch.Created)
	// Both unchanged and keep_existing conflicts leave the stored grade in
	// place, so both count as preserved.
	result.Stats.GradesPreserved += len(batch.Conflicts)
	metrics.GradesPreserved.Add(float64(len(batch.Conflicts)))
	metrics.EntitiesWritten.WithLabelValues("grade", "create").Add(float64(len(batch.Created)))
}

func (s *snapshotService) refreshCounts(ctx context.Context, scope []string, result *models.ProcessResult) {
	for _, classroomID := range scope {
		counts, err := s.classrooms.CountsFor(ctx, classroomID)
		if err != nil {
			result.Errors = append(result.Errors, models.ProcessError{
				Entity: "classroom",
				ID:     classroomID,
				Error:  fmt.Sprintf("failed to compute counts: %v", err),
			})
			continue
		}
		if counts == nil {
			continue
		}
		if err := s.classrooms.UpdateCounts(ctx, classroomID, *counts); err != nil {
			result.Errors = append(result.Errors, models.ProcessError{
				Entity: "classroom",
				ID:     classroomID,
				Error:  fmt.Sprintf("failed to update counts: %v", err),
			})
		}
	}
}

// reconcileTeacher brings the profile's classroom list and aggregate
// counters in line with what storage now holds, unioned across all imports
// rather than overwritten by this one.
func (s *snapshotService) reconcileTeacher(ctx context.Context, teacher *models.Teacher, profile reconcile.TeacherProfile, result *models.ProcessResult, log zerolog.Logger) {
	if teacher == nil {
		return
	}

	owned, err := s.classrooms.GetByOwnerID(ctx, teacher.ID)
	if err != nil {
		result.Errors = append(result.Errors, models.ProcessError{
			Entity: "teacher",
			ID:     teacher.ID,
			Error:  fmt.Sprintf("failed to list owned classrooms: %v", err),
		})
		return
	}

	classroomIDs := make([]string, 0, len(owned))
	totalStudents := 0
	for _, c := range owned {
		classroomIDs = append(classroomIDs, c.ID)
		totalStudents += c.StudentCount
	}

	teacher.ClassroomIDs = classroomIDs
	teacher.TotalClassrooms = len(classroomIDs)
	teacher.TotalStudents = totalStudents
	if profile.Name != "" {
		teacher.Name = profile.Name
	}
	if profile.SchoolEmail != nil {
		teacher.SchoolEmail = profile.SchoolEmail
	}
	teacher.Version++
	teacher.UpdatedAt = time.Now().UTC()

	if err := s.teachers.Update(ctx, teacher); err != nil {
		result.Errors = append(result.Errors, models.ProcessError{
			Entity: "teacher",
			ID:     teacher.ID,
			Error:  fmt.Sprintf("failed to update teacher: %v", err),
		})
		return
	}

	log.Debug().
		Str("teacher_id", teacher.ID).
		Int("classrooms", teacher.TotalClassrooms).
		Int("students", teacher.TotalStudents).
		Msg("Teacher profile reconciled")
}

// finalize closes out the result, archives the raw snapshot and records
// the import run. Bookkeeping failures are logged, never folded back into
// the result they describe.
func (s *snapshotService) finalize(ctx context.Context, result *models.ProcessResult, snap *models.Snapshot, teacherEmail string, start time.Time, log zerolog.Logger) {
	result.Success = len(result.Errors) == 0
	result.ProcessingTimeMs = time.Since(start).Milliseconds()

	status := "success"
	if !result.Success {
		status = "failed"
	}
	metrics.SnapshotsProcessed.WithLabelValues(status).Inc()
	metrics.ImportDuration.Observe(time.Since(start).Seconds())

	var archiveKey *string
	if s.archive != nil && snap != nil {
		if body, err := json.Marshal(snap); err != nil {
			log.Error().Err(err).Msg("Failed to serialize snapshot for archiving")
		} else if key, err := s.archive.Store(ctx, result.ImportID, body); err != nil {
			log.Error().Err(err).Msg("Failed to archive snapshot")
		} else {
			archiveKey = &key
			archivedAt := time.Now().UTC()
			result.ArchivedAt = &archivedAt
		}
	}

	run := &models.ImportRun{
		ID:               result.ImportID,
		TeacherEmail:     teacherEmail,
		Success:          result.Success,
		Stats:            result.Stats,
		Errors:           result.Errors,
		ProcessingTimeMs: result.ProcessingTimeMs,
		ArchiveKey:       archiveKey,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.importRuns.Create(ctx, run); err != nil {
		log.Error().Err(err).Msg("Failed to record import run")
	}

	log.Info().
		Bool("success", result.Success).
		Int("errors", len(result.Errors)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Interface("stats", result.Stats).
		Msg("Snapshot import finished")
}

func (s *snapshotService) GetImportRun(ctx context.Context, id string) (*models.ImportRun, error) {
	run, err := s.importRuns.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get import run: %w", err)
	}
	if run == nil {
		return nil, ErrImportRunNotFound
	}
	return run, nil
}

func (s *snapshotService) ListImportRuns(ctx context.Context, teacherEmail string, limit int) (*models.ImportRunsResponse, error) {
	runs, err := s.importRuns.ListByTeacherEmail(ctx, teacherEmail, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import runs: %w", err)
	}
	if runs == nil {
		runs = []models.ImportRun{}
	}
	return &models.ImportRunsResponse{Imports: runs, Total: len(runs)}, nil
}

func (s *snapshotService) FetchArchivedSnapshot(ctx context.Context, importID string) ([]byte, error) {
	run, err := s.GetImportRun(ctx, importID)
	if err != nil {
		return nil, err
	}
	if s.archive == nil || run.ArchiveKey == nil {
		return nil, errors.New("no archived snapshot for this import")
	}
	return s.archive.Fetch(ctx, *run.ArchiveKey)
}
