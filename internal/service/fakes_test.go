package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/course-progress-api/internal/client"
	"github.com/noah-isme/course-progress-api/internal/models"
	"github.com/noah-isme/course-progress-api/internal/repository"
)

type fakeEnrollmentRepo struct {
	mu        sync.Mutex
	items     map[string]*models.Enrollment
	seq       int
	listCalls int
	createErr error
	// beforeStatusUpdate runs inside UpdateStatus before the row is checked.
	beforeStatusUpdate func(stored *models.Enrollment)
}

func newFakeEnrollmentRepo() *fakeEnrollmentRepo {
	return &fakeEnrollmentRepo{items: make(map[string]*models.Enrollment)}
}

func (r *fakeEnrollmentRepo) ListByStudent(ctx context.Context, studentEmail string) ([]models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	return r.filter(func(e *models.Enrollment) bool { return e.StudentEmail == studentEmail }), nil
}

func (r *fakeEnrollmentRepo) ListByCourse(ctx context.Context, courseID string) ([]models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	return r.filter(func(e *models.Enrollment) bool { return e.CourseID == courseID }), nil
}

func (r *fakeEnrollmentRepo) filter(keep func(*models.Enrollment) bool) []models.Enrollment {
	result := []models.Enrollment{}
	for _, e := range r.items {
		if keep(e) {
			result = append(result, *e)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EnrolledAt.After(result[j].EnrolledAt) })
	return result
}

func (r *fakeEnrollmentRepo) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.items[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeEnrollmentRepo) current(studentEmail, courseID string) *models.Enrollment {
	for _, e := range r.items {
		if e.StudentEmail == studentEmail && e.CourseID == courseID && e.Status != models.EnrollmentStatusDropped {
			return e
		}
	}
	return nil
}

func (r *fakeEnrollmentRepo) FindCurrent(ctx context.Context, studentEmail, courseID string) (*models.Enrollment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.current(studentEmail, courseID); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeEnrollmentRepo) ExistsCurrent(ctx context.Context, studentEmail, courseID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current(studentEmail, courseID) != nil, nil
}

func (r *fakeEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if r.current(enrollment.StudentEmail, enrollment.CourseID) != nil {
		return repository.ErrDuplicate
	}
	r.seq++
	enrollment.ID = fmt.Sprintf("enr-%d", r.seq)
	cp := *enrollment
	r.items[enrollment.ID] = &cp
	return nil
}

func (r *fakeEnrollmentRepo) UpdateProgress(ctx context.Context, enrollment *models.Enrollment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[enrollment.ID]
	if !ok || stored.Status == models.EnrollmentStatusDropped {
		return sql.ErrNoRows
	}
	stored.ProgressPercentage = enrollment.ProgressPercentage
	stored.LastAccessAt = enrollment.LastAccessAt
	stored.Status = enrollment.Status
	if stored.CompletedAt == nil {
		stored.CompletedAt = enrollment.CompletedAt
	}
	return nil
}

func (r *fakeEnrollmentRepo) UpdateStatus(ctx context.Context, id string, status models.EnrollmentStatus, accessedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	if r.beforeStatusUpdate != nil {
		r.beforeStatusUpdate(stored)
	}
	if stored.Status == models.EnrollmentStatusDropped {
		return sql.ErrNoRows
	}
	stored.Status = status
	stored.LastAccessAt = accessedAt
	return nil
}

type fakeCourseDirectory struct {
	mu           sync.Mutex
	title        string
	titleErr     error
	lessonCount  int
	countErr     error
	lessons      map[[2]int]models.CourseLesson
	lessonErr    error
	incrementErr error
	increments   int
	decrements   int
	countCalls   int
}

func (d *fakeCourseDirectory) GetCourseTitle(ctx context.Context, courseID string) (string, error) {
	if d.titleErr != nil {
		return "", d.titleErr
	}
	return d.title, nil
}

func (d *fakeCourseDirectory) IncrementEnrollment(ctx context.Context, courseID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.incrementErr != nil {
		return d.incrementErr
	}
	d.increments++
	return nil
}

func (d *fakeCourseDirectory) DecrementEnrollment(ctx context.Context, courseID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.decrements++
	return nil
}

func (d *fakeCourseDirectory) GetLessonCount(ctx context.Context, courseID string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.countCalls++
	if d.countErr != nil {
		return 0, d.countErr
	}
	return d.lessonCount, nil
}

func (d *fakeCourseDirectory) GetLesson(ctx context.Context, courseID string, moduleIndex, lessonIndex int) (*models.CourseLesson, error) {
	if d.lessonErr != nil {
		return nil, d.lessonErr
	}
	lesson, ok := d.lessons[[2]int{moduleIndex, lessonIndex}]
	if !ok {
		return nil, fmt.Errorf("lesson %d/%d: not found", moduleIndex, lessonIndex)
	}
	return &lesson, nil
}

type pushedProgress struct {
	enrollmentID string
	percentage   float64
}

type fakeEnrollmentDirectory struct {
	mu          sync.Mutex
	enrollments map[string]models.EnrollmentSnapshot
	getErr      error
	pushErr     error
	pushes      []pushedProgress
}

func (d *fakeEnrollmentDirectory) GetEnrollment(ctx context.Context, enrollmentID string) (*models.EnrollmentSnapshot, error) {
	if d.getErr != nil {
		return nil, d.getErr
	}
	snapshot, ok := d.enrollments[enrollmentID]
	if !ok {
		return nil, fmt.Errorf("enrollment %s: %w", enrollmentID, client.ErrNotFound)
	}
	return &snapshot, nil
}

func (d *fakeEnrollmentDirectory) PushProgress(ctx context.Context, enrollmentID string, percentage float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pushErr != nil {
		return d.pushErr
	}
	d.pushes = append(d.pushes, pushedProgress{enrollmentID: enrollmentID, percentage: percentage})
	return nil
}

func (d *fakeEnrollmentDirectory) pushed() []pushedProgress {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]pushedProgress(nil), d.pushes...)
}

type lessonKey struct {
	enrollmentID string
	module       int
	lesson       int
}

// fakeProgressRepo mirrors the store's monotonic upsert.
type fakeProgressRepo struct {
	mu         sync.Mutex
	items      map[lessonKey]*models.LessonProgress
	seq        int
	beforeSave func(r *fakeProgressRepo)
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{items: make(map[lessonKey]*models.LessonProgress)}
}

func (r *fakeProgressRepo) FindByLesson(ctx context.Context, enrollmentID string, moduleIndex, lessonIndex int) (*models.LessonProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.items[lessonKey{enrollmentID, moduleIndex, lessonIndex}]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (r *fakeProgressRepo) Save(ctx context.Context, progress *models.LessonProgress) error {
	if r.beforeSave != nil {
		r.beforeSave(r)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	key := lessonKey{progress.EnrollmentID, progress.ModuleIndex, progress.LessonIndex}
	stored, ok := r.items[key]
	if !ok {
		r.seq++
		if progress.ID == "" {
			progress.ID = fmt.Sprintf("lp-%d", r.seq)
		}
		progress.CreatedAt = time.Date(2024, 1, 1, 0, 0, r.seq, 0, time.UTC)
		cp := *progress
		r.items[key] = &cp
		return nil
	}
	stored.WatchedSeconds = progress.WatchedSeconds
	stored.LastAccessedAt = progress.LastAccessedAt
	if stored.Status != models.CompletionStatusCompleted {
		stored.Status = progress.Status
	}
	if stored.StartedAt == nil {
		stored.StartedAt = progress.StartedAt
	}
	if stored.CompletedAt == nil {
		stored.CompletedAt = progress.CompletedAt
	}
	progress.ID = stored.ID
	progress.Status = stored.Status
	progress.StartedAt = stored.StartedAt
	progress.CompletedAt = stored.CompletedAt
	progress.CreatedAt = stored.CreatedAt
	return nil
}

func (r *fakeProgressRepo) put(p models.LessonProgress) {
	r.items[lessonKey{p.EnrollmentID, p.ModuleIndex, p.LessonIndex}] = &p
}

func (r *fakeProgressRepo) all(keep func(*models.LessonProgress) bool) []models.LessonProgress {
	result := []models.LessonProgress{}
	for _, p := range r.items {
		if keep(p) {
			result = append(result, *p)
		}
	}
	return result
}

func (r *fakeProgressRepo) CountByStatus(ctx context.Context, courseID, studentEmail string, status models.CompletionStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all(func(p *models.LessonProgress) bool {
		return p.CourseID == courseID && p.StudentEmail == studentEmail && p.Status == status
	})), nil
}

func (r *fakeProgressRepo) CountCompletedByEnrollment(ctx context.Context, enrollmentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.all(func(p *models.LessonProgress) bool {
		return p.EnrollmentID == enrollmentID && p.Status == models.CompletionStatusCompleted
	})), nil
}

func (r *fakeProgressRepo) ListByCourseAndStudent(ctx context.Context, courseID, studentEmail string) ([]models.LessonProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.all(func(p *models.LessonProgress) bool { return p.CourseID == courseID && p.StudentEmail == studentEmail })
	sort.Slice(records, func(i, j int) bool {
		if records[i].ModuleIndex != records[j].ModuleIndex {
			return records[i].ModuleIndex < records[j].ModuleIndex
		}
		return records[i].LessonIndex < records[j].LessonIndex
	})
	return records, nil
}

func (r *fakeProgressRepo) ListByStudent(ctx context.Context, studentEmail string) ([]models.LessonProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	records := r.all(func(p *models.LessonProgress) bool { return p.StudentEmail == studentEmail })
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return records, nil
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

// steppingClock returns a clock advancing one second per call.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}
