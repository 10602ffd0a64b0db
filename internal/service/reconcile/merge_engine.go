package reconcile

import (
	"slices"
	"time"

	"github.com/gradekeeper/sync-service/internal/models"
	"github.com/rs/zerolog"
)

// ExistingState is what storage currently holds for the classrooms named by
// the incoming snapshot. Submissions are latest versions only; enrollments
// include removed ones so a returning student flips back instead of being
// re-created.
type ExistingState struct {
	Classrooms  []models.Classroom
	Assignments []models.Assignment
	Submissions []models.Submission
	Enrollments []models.Enrollment
}

// SubmissionMerge holds both first-time submissions (version 1) and new
// versions of resubmitted work; ToSupersede are the previous latest rows
// whose is_latest flag must be cleared.
type SubmissionMerge struct {
	ToCreate    []models.Submission
	ToSupersede []models.Submission
}

type EnrollmentMerge struct {
	ToCreate  []models.Enrollment
	ToUpdate  []models.Enrollment
	ToArchive []models.Enrollment
}

// MergeEngine diffs a transformed snapshot against stored state and
// classifies every entity as create, update, archive or no-op. It only
// reads; the processor is the sole writer. Each entity type merges
// independently, so an inconsistency in one type does not block the others.
type MergeEngine struct {
	logger zerolog.Logger
}

func NewMergeEngine(logger zerolog.Logger) *MergeEngine {
	return &MergeEngine{logger: logger}
}

// MergeClassrooms never produces archives: teachers export selectively, so
// absence from a snapshot must not remove a classroom.
func (m *MergeEngine) MergeClassrooms(incoming, existing []models.Classroom) (toCreate, toUpdate []models.Classroom, err error) {
	index, err := indexByID(existing, func(c models.Classroom) string { return c.ID }, "classroom")
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	for _, inc := range incoming {
		ex, ok := index[inc.ID]
		if !ok {
			toCreate = append(toCreate, inc)
			continue
		}

		// Field-level additive merge: a partial snapshot must not null out
		// what it did not carry.
		merged := ex
		changed := false
		if inc.Name != "" && inc.Name != ex.Name {
			merged.Name = inc.Name
			changed = true
		}
		if inc.Section != "" && inc.Section != ex.Section {
			merged.Section = inc.Section
			changed = true
		}
		if inc.ExternalID != nil && !ptrEqual(inc.ExternalID, ex.ExternalID) {
			merged.ExternalID = inc.ExternalID
			changed = true
		}
		if changed {
			merged.Version = ex.Version + 1
			merged.UpdatedAt = now
			toUpdate = append(toUpdate, merged)
		}
	}
	return toCreate, toUpdate, nil
}

// MergeAssignments follows the same rules as classrooms: keyed by stable
// id, additive field merge, never archived by absence.
func (m *MergeEngine) MergeAssignments(incoming, existing []models.Assignment) (toCreate, toUpdate []models.Assignment, err error) {
	index, err := indexByID(existing, func(a models.Assignment) string { return a.ID }, "assignment")
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	for _, inc := range incoming {
		ex, ok := index[inc.ID]
		if !ok {
			toCreate = append(toCreate, inc)
			continue
		}

		merged := ex
		changed := false
		if inc.Title != "" && inc.Title != ex.Title {
			merged.Title = inc.Title
			changed = true
		}
		if inc.Description != "" && inc.Description != ex.Description {
			merged.Description = inc.Description
			changed = true
		}
		if inc.MaxScore != 0 && inc.MaxScore != ex.MaxScore {
			merged.MaxScore = inc.MaxScore
			changed = true
		}
		if inc.DueDate != nil && !timePtrEqual(inc.DueDate, ex.DueDate) {
			merged.DueDate = inc.DueDate
			changed = true
		}
		if len(inc.Materials) > 0 && !slices.Equal(inc.Materials, ex.Materials) {
			merged.Materials = inc.Materials
			changed = true
		}
		if inc.IsQuiz != ex.IsQuiz {
			merged.IsQuiz = inc.IsQuiz
			changed = true
		}
		if inc.QuizID != nil && !ptrEqual(inc.QuizID, ex.QuizID) {
			merged.QuizID = inc.QuizID
			changed = true
		}
		if changed {
			merged.Version = ex.Version + 1
			merged.UpdatedAt = now
			toUpdate = append(toUpdate, merged)
		}
	}
	return toCreate, toUpdate, nil
}

// MergeSubmissions assembles version chains: a changed submission never
// overwrites the stored latest row, it demotes it and becomes the next
// version of the same chain.
func (m *MergeEngine) MergeSubmissions(incoming, existing []models.Submission) (*SubmissionMerge, error) {
	latest, err := indexByID(existing, func(s models.Submission) string { return s.ID }, "submission")
	if err != nil {
		return nil, err
	}

	// Duplicate rows for the same (classroom, assignment, student) can show
	// up in malformed snapshots; the highest sequence number wins, matching
	// the source system's most-recent-activity-last ordering.
	candidates := make(map[string]models.Submission, len(incoming))
	order := make([]string, 0, len(incoming))
	for _, inc := range incoming {
		prev, seen := candidates[inc.ID]
		if !seen {
			order = append(order, inc.ID)
			candidates[inc.ID] = inc
			continue
		}
		if inc.Seq > prev.Seq {
			candidates[inc.ID] = inc
		}
	}

	now := time.Now().UTC()
	merge := &SubmissionMerge{}
	for _, id := range order {
		inc := candidates[id]
		ex, ok := latest[id]
		if !ok {
			merge.ToCreate = append(merge.ToCreate, inc)
			continue
		}

		if ex.Status == inc.Status && ex.ContentHash == inc.ContentHash && floatPtrEqual(ex.Score, inc.Score) {
			continue // unchanged, no-op
		}

		superseded := ex
		superseded.IsLatest = false
		superseded.UpdatedAt = now
		merge.ToSupersede = append(merge.ToSupersede, superseded)

		next := inc
		next.Version = ex.Version + 1
		next.IsLatest = true
		merge.ToCreate = append(merge.ToCreate, next)
	}
	return merge, nil
}

// MergeEnrollments is the one merge that archives by absence: an active
// student missing from a snapshot of their classroom is soft-removed.
// scopeClassroomIDs limits archiving to classrooms the snapshot actually
// covers.
func (m *MergeEngine) MergeEnrollments(incoming, existing []models.Enrollment, scopeClassroomIDs []string) (*EnrollmentMerge, error) {
	index, err := indexByID(existing, func(e models.Enrollment) string { return e.ID }, "enrollment")
	if err != nil {
		return nil, err
	}

	inScope := make(map[string]bool, len(scopeClassroomIDs))
	for _, id := range scopeClassroomIDs {
		inScope[id] = true
	}

	now := time.Now().UTC()
	merge := &EnrollmentMerge{}
	incomingIDs := make(map[string]bool, len(incoming))
	for _, inc := range incoming {
		if incomingIDs[inc.ID] {
			continue // duplicate student row in snapshot
		}
		incomingIDs[inc.ID] = true

		ex, ok := index[inc.ID]
		if !ok {
			merge.ToCreate = append(merge.ToCreate, inc)
			continue
		}

		merged := ex
		changed := false
		if ex.Status == models.EnrollmentStatusRemoved {
			// Returning student: same id, status flips back.
			merged.Status = models.EnrollmentStatusActive
			changed = true
		}
		if inc.StudentName != "" && inc.StudentName != ex.StudentName {
			merged.StudentName = inc.StudentName
			changed = true
		}
		if inc.ExternalID != nil && !ptrEqual(inc.ExternalID, ex.ExternalID) {
			merged.ExternalID = inc.ExternalID
			changed = true
		}
		if changed {
			merged.Version = ex.Version + 1
			merged.UpdatedAt = now
			merge.ToUpdate = append(merge.ToUpdate, merged)
		}
	}

	for _, ex := range existing {
		if ex.Status != models.EnrollmentStatusActive || !inScope[ex.ClassroomID] || incomingIDs[ex.ID] {
			continue
		}
		archived := ex
		archived.Status = models.EnrollmentStatusRemoved
		archived.Version = ex.Version + 1
		archived.UpdatedAt = now
		merge.ToArchive = append(merge.ToArchive, archived)
	}
	return merge, nil
}

func indexByID[T any](items []T, id func(T) string, entity string) (map[string]T, error) {
	index := make(map[string]T, len(items))
	for _, item := range items {
		key := id(item)
		if _, dup := index[key]; dup {
			return nil, &InconsistentStateError{Entity: entity, ID: key}
		}
		index[key] = item
	}
	return index, nil
}

func ptrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
