package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

type stubTeacherSearcher struct {
	mu    sync.Mutex
	calls []string
	items []models.Teacher
}

func (s *stubTeacherSearcher) Search(_ context.Context, search string, page, perPage int) (*models.Page[models.Teacher], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, search)
	return &models.Page[models.Teacher]{Items: s.items, Pagination: models.Pagination{CurrentPage: page, PerPage: perPage, Total: len(s.items), TotalPages: 1}}, nil
}

func (s *stubTeacherSearcher) recorded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

type stubClassSearcher struct {
	mu    sync.Mutex
	calls []models.ClassSearch
	items []models.Class
}

func (s *stubClassSearcher) Search(_ context.Context, search models.ClassSearch, page, perPage int) (*models.Page[models.Class], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, search)
	return &models.Page[models.Class]{Items: s.items, Pagination: models.Pagination{CurrentPage: page, PerPage: perPage, Total: len(s.items), TotalPages: 1}}, nil
}

type stubSubjectSearcher struct {
	mu    sync.Mutex
	calls int
	items []models.Subject
	err   error
}

func (s *stubSubjectSearcher) Search(_ context.Context, _ string, page, perPage int) (*models.Page[models.Subject], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.Page[models.Subject]{Items: s.items, Pagination: models.Pagination{CurrentPage: page, PerPage: perPage, Total: len(s.items), TotalPages: 1}}, nil
}

type dialogFixture struct {
	clock    *clock.Fake
	store    *FilterStore
	teachers *stubTeacherSearcher
	classes  *stubClassSearcher
	subjects *stubSubjectSearcher
	manager  *DialogManager
}

func newDialogFixture() *dialogFixture {
	f := &dialogFixture{
		clock: clock.NewFake(time.Date(2024, 9, 5, 8, 0, 0, 0, time.UTC)),
		store: newTestStore(),
		teachers: &stubTeacherSearcher{items: []models.Teacher{
			{ID: 1, Name: "Nguyễn Văn An"},
			{ID: 2, Name: "Lê Thị Hoa"},
		}},
		classes: &stubClassSearcher{items: []models.Class{
			{ID: 10, Name: "10A1", Grade: 10},
			{ID: 11, Name: "11B2", Grade: 11},
		}},
		subjects: &stubSubjectSearcher{items: []models.Subject{{ID: 3, Name: "Toán", Code: "TOAN"}}},
	}
	f.manager = NewDialogManager(f.store, f.teachers, f.classes, f.subjects, DialogConfig{
		ReferencePerPage: 50,
		Debounce:         500 * time.Millisecond,
		Clock:            f.clock,
		Logger:           zap.NewNop(),
	})
	return f
}

func TestDialogManagerOpenLoadsReferenceLists(t *testing.T) {
	f := newDialogFixture()
	dialog := f.manager.Open()
	dialog.Wait()

	require.NotEmpty(t, dialog.ID)
	snap, err := f.manager.Snapshot(dialog.ID)
	require.NoError(t, err)

	assert.Equal(t, 2, snap.Teachers.Total)
	assert.Equal(t, 2, snap.Classes.Total)
	require.Len(t, snap.Subjects, 1)
	assert.False(t, snap.SubjectsLoading)
	assert.False(t, snap.CanClear)
	assert.Equal(t, f.clock.Now(), snap.OpenedAt)
	assert.Equal(t, []string{""}, f.teachers.recorded())
	assert.Equal(t, 1, f.subjects.calls)
}

func TestDialogManagerSearchIsDebounced(t *testing.T) {
	f := newDialogFixture()
	dialog := f.manager.Open()
	dialog.Wait()

	require.NoError(t, f.manager.SearchTeachers(dialog.ID, "Hoa"))
	require.NoError(t, f.manager.SearchClasses(dialog.ID, "10"))
	dialog.Wait()
	assert.Equal(t, []string{""}, f.teachers.recorded())

	f.clock.Advance(500 * time.Millisecond)
	dialog.Wait()
	assert.Equal(t, []string{"", "Hoa"}, f.teachers.recorded())

	f.classes.mu.Lock()
	last := f.classes.calls[len(f.classes.calls)-1]
	f.classes.mu.Unlock()
	assert.Equal(t, "10", last.Search)

	snap, err := f.manager.Snapshot(dialog.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Teachers.Shown)
	assert.Equal(t, 1, snap.Classes.Shown)
}

func TestDialogManagerRefresh(t *testing.T) {
	f := newDialogFixture()
	dialog := f.manager.Open()
	dialog.Wait()

	require.NoError(t, f.manager.SearchTeachers(dialog.ID, "An"))
	require.NoError(t, f.manager.RefreshTeachers(dialog.ID))
	require.NoError(t, f.manager.RefreshClasses(dialog.ID))
	dialog.Wait()

	assert.Equal(t, []string{"", ""}, f.teachers.recorded())
	assert.Zero(t, f.clock.Pending())
}

func TestDialogManagerSubjectFailureOnlyAffectsSubjects(t *testing.T) {
	f := newDialogFixture()
	f.subjects.err = appErrors.Clone(appErrors.ErrConnection, "timetable service unreachable")
	dialog := f.manager.Open()
	dialog.Wait()

	snap, err := f.manager.Snapshot(dialog.ID)
	require.NoError(t, err)
	assert.Equal(t, "timetable service unreachable", snap.SubjectsError)
	assert.Empty(t, snap.Subjects)
	assert.False(t, snap.Teachers.Disabled)
}

func TestDialogManagerApplyAndClose(t *testing.T) {
	f := newDialogFixture()
	dialog := f.manager.Open()
	dialog.Wait()

	require.NoError(t, f.store.SetDraftField(models.FieldTeacher, "2"))
	snap, err := f.manager.Snapshot(dialog.ID)
	require.NoError(t, err)
	assert.True(t, snap.CanClear)
	assert.Equal(t, 1, snap.ActiveFilters)

	applied, err := f.manager.Apply(dialog.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), applied.TeacherID)
	assert.Zero(t, f.manager.OpenCount())

	_, err = f.manager.Snapshot(dialog.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
	assert.ErrorIs(t, f.manager.Close(dialog.ID), appErrors.ErrNotFound)
	assert.ErrorIs(t, f.manager.SearchTeachers(dialog.ID, "x"), appErrors.ErrNotFound)
}

func TestDialogManagerListsDoNotSurviveDialog(t *testing.T) {
	f := newDialogFixture()
	first := f.manager.Open()
	first.Wait()
	require.NoError(t, f.manager.Close(first.ID))

	second := f.manager.Open()
	second.Wait()
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, []string{"", ""}, f.teachers.recorded())
	assert.Zero(t, first.Teachers.Snapshot().Total)

	f.manager.CloseAll()
	assert.Zero(t, f.manager.OpenCount())
}

func TestDialogManagerExpiresIdleDialogs(t *testing.T) {
	f := newDialogFixture()
	f.manager = NewDialogManager(f.store, f.teachers, f.classes, nil, DialogConfig{
		Clock:   f.clock,
		IdleTTL: 30 * time.Millisecond,
	})

	dialog := f.manager.Open()
	dialog.Wait()
	require.Equal(t, 2, dialog.Teachers.Snapshot().Total)

	require.Eventually(t, func() bool { return f.manager.OpenCount() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return dialog.Teachers.Snapshot().Total == 0 }, time.Second, 5*time.Millisecond)
	_, err := f.manager.Get(dialog.ID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestDialogManagerTouchKeepsDialogOpen(t *testing.T) {
	f := newDialogFixture()
	f.manager = NewDialogManager(f.store, f.teachers, f.classes, nil, DialogConfig{
		Clock:   f.clock,
		IdleTTL: 300 * time.Millisecond,
	})

	dialog := f.manager.Open()
	dialog.Wait()

	time.Sleep(180 * time.Millisecond)
	_, err := f.manager.Snapshot(dialog.ID)
	require.NoError(t, err)
	time.Sleep(180 * time.Millisecond)

	assert.Equal(t, 1, f.manager.OpenCount())
	f.manager.CloseAll()
}
