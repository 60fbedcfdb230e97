package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

const (
	// DefaultReferencePerPage bounds teacher, class and subject lookups.
	DefaultReferencePerPage = 50
	// DefaultDialogIdleTTL is how long an untouched dialog stays open.
	DefaultDialogIdleTTL = 15 * time.Minute
)

type teacherSearcher interface {
	Search(ctx context.Context, search string, page, perPage int) (*models.Page[models.Teacher], error)
}

type classSearcher interface {
	Search(ctx context.Context, search models.ClassSearch, page, perPage int) (*models.Page[models.Class], error)
}

type subjectSearcher interface {
	Search(ctx context.Context, search string, page, perPage int) (*models.Page[models.Subject], error)
}

// DialogConfig tunes the reference lookups of a filter dialog.
type DialogConfig struct {
	ReferencePerPage int
	Debounce         time.Duration
	IdleTTL          time.Duration
	Clock            clock.Clock
	Context          context.Context
	Metrics          searchMetrics
	Logger           *zap.Logger
}

// FilterDialog is one open filter dialog with its own reference lists.
type FilterDialog struct {
	ID       string
	OpenedAt time.Time
	Teachers *SearchController[models.Teacher]
	Classes  *SearchController[models.Class]

	mu              sync.Mutex
	subjects        []models.Subject
	subjectsLoading bool
	subjectsErr     error
	wg              sync.WaitGroup
}

// DialogSnapshot is the view of an open dialog.
type DialogSnapshot struct {
	ID              string                         `json:"id"`
	OpenedAt        time.Time                      `json:"opened_at"`
	Teachers        SearchSnapshot[models.Teacher] `json:"teachers"`
	Classes         SearchSnapshot[models.Class]   `json:"classes"`
	Subjects        []models.Subject               `json:"subjects"`
	SubjectsLoading bool                           `json:"subjects_loading"`
	SubjectsError   string                         `json:"subjects_error,omitempty"`
	Draft           models.FilterDraft             `json:"draft"`
	ActiveFilters   int                            `json:"active_filters"`
	CanClear        bool                           `json:"can_clear"`
}

// DialogManager opens and tracks filter dialogs. Reference lists live only as
// long as their dialog; a dialog nobody touches for IdleTTL is closed.
type DialogManager struct {
	store    *FilterStore
	teachers teacherSearcher
	classes  classSearcher
	subjects subjectSearcher
	cfg      DialogConfig
	logger   *zap.Logger
	dialogs  *cache.Cache
}

// NewDialogManager constructs a DialogManager. subjects may be nil.
func NewDialogManager(store *FilterStore, teachers teacherSearcher, classes classSearcher, subjects subjectSearcher, cfg DialogConfig) *DialogManager {
	if cfg.ReferencePerPage <= 0 {
		cfg.ReferencePerPage = DefaultReferencePerPage
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultDialogIdleTTL
	}
	m := &DialogManager{
		store:    store,
		teachers: teachers,
		classes:  classes,
		subjects: subjects,
		cfg:      cfg,
		logger:   cfg.Logger,
		dialogs:  cache.New(cfg.IdleTTL, max(cfg.IdleTTL/4, 10*time.Millisecond)),
	}
	m.dialogs.OnEvicted(m.evicted)
	return m
}

// Open creates a dialog and starts loading its reference lists.
func (m *DialogManager) Open() *FilterDialog {
	id := uuid.NewString()
	logger := m.logger.With(zap.String("dialog_id", id))
	perPage := m.cfg.ReferencePerPage

	teacherFetch := func(ctx context.Context, search string) ([]models.Teacher, error) {
		page, err := m.teachers.Search(ctx, search, 1, perPage)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
	classFetch := func(ctx context.Context, search string) ([]models.Class, error) {
		page, err := m.classes.Search(ctx, models.ClassSearch{Search: search}, 1, perPage)
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}

	dialog := &FilterDialog{
		ID:       id,
		OpenedAt: m.cfg.Clock.Now(),
		Teachers: NewSearchController(teacherFetch, m.controllerConfig("teachers", logger)),
		Classes:  NewSearchController(classFetch, m.controllerConfig("classes", logger)),
	}

	m.dialogs.SetDefault(id, dialog)

	dialog.Teachers.Load()
	dialog.Classes.Load()
	if m.subjects != nil {
		m.loadSubjects(dialog, logger)
	}

	logger.Info("filter dialog opened")
	return dialog
}

// Get returns an open dialog and restarts its idle timer.
func (m *DialogManager) Get(id string) (*FilterDialog, error) {
	v, ok := m.dialogs.Get(id)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "filter dialog not found")
	}
	dialog := v.(*FilterDialog)
	m.dialogs.SetDefault(id, dialog)
	return dialog, nil
}

// Snapshot returns the view of dialog id together with the filter draft.
func (m *DialogManager) Snapshot(id string) (DialogSnapshot, error) {
	dialog, err := m.Get(id)
	if err != nil {
		return DialogSnapshot{}, err
	}

	state := m.store.State()
	snap := DialogSnapshot{
		ID:            dialog.ID,
		OpenedAt:      dialog.OpenedAt,
		Teachers:      dialog.Teachers.Snapshot(),
		Classes:       dialog.Classes.Snapshot(),
		Draft:         state.Draft,
		ActiveFilters: state.ActiveFilters,
		CanClear:      state.ActiveFilters > 0,
	}

	dialog.mu.Lock()
	snap.Subjects = append([]models.Subject{}, dialog.subjects...)
	snap.SubjectsLoading = dialog.subjectsLoading
	if dialog.subjectsErr != nil {
		snap.SubjectsError = appErrors.FromError(dialog.subjectsErr).Message
	}
	dialog.mu.Unlock()

	return snap, nil
}

// SearchTeachers feeds text into the teacher search of dialog id.
func (m *DialogManager) SearchTeachers(id, text string) error {
	dialog, err := m.Get(id)
	if err != nil {
		return err
	}
	dialog.Teachers.OnInput(text)
	return nil
}

// SearchClasses feeds text into the class search of dialog id.
func (m *DialogManager) SearchClasses(id, text string) error {
	dialog, err := m.Get(id)
	if err != nil {
		return err
	}
	dialog.Classes.OnInput(text)
	return nil
}

// RefreshTeachers clears the teacher search and reloads the full list.
func (m *DialogManager) RefreshTeachers(id string) error {
	dialog, err := m.Get(id)
	if err != nil {
		return err
	}
	dialog.Teachers.Refresh()
	return nil
}

// RefreshClasses clears the class search and reloads the full list.
func (m *DialogManager) RefreshClasses(id string) error {
	dialog, err := m.Get(id)
	if err != nil {
		return err
	}
	dialog.Classes.Refresh()
	return nil
}

// Apply commits the draft and closes dialog id.
func (m *DialogManager) Apply(id string) (models.AppliedFilters, error) {
	if _, err := m.Get(id); err != nil {
		return models.AppliedFilters{}, err
	}
	applied := m.store.Apply()
	if err := m.Close(id); err != nil {
		return models.AppliedFilters{}, err
	}
	return applied, nil
}

// Close discards dialog id and its reference lists.
func (m *DialogManager) Close(id string) error {
	if _, ok := m.dialogs.Get(id); !ok {
		return appErrors.Clone(appErrors.ErrNotFound, "filter dialog not found")
	}
	m.dialogs.Delete(id)
	return nil
}

// CloseAll discards every open dialog.
func (m *DialogManager) CloseAll() {
	for id := range m.dialogs.Items() {
		m.dialogs.Delete(id)
	}
}

// OpenCount reports the number of open dialogs.
func (m *DialogManager) OpenCount() int {
	return len(m.dialogs.Items())
}

// evicted runs once per dialog, whether it was closed or expired.
func (m *DialogManager) evicted(id string, v interface{}) {
	v.(*FilterDialog).close()
	m.logger.Info("filter dialog closed", zap.String("dialog_id", id))
}

func (m *DialogManager) controllerConfig(name string, logger *zap.Logger) SearchControllerConfig {
	return SearchControllerConfig{
		Name:    name,
		Quiet:   m.cfg.Debounce,
		Clock:   m.cfg.Clock,
		Context: m.cfg.Context,
		Metrics: m.cfg.Metrics,
		Logger:  logger,
	}
}

func (m *DialogManager) loadSubjects(dialog *FilterDialog, logger *zap.Logger) {
	dialog.mu.Lock()
	dialog.subjectsLoading = true
	dialog.mu.Unlock()

	dialog.wg.Add(1)
	go func() {
		defer dialog.wg.Done()
		page, err := m.subjects.Search(m.cfg.Context, "", 1, m.cfg.ReferencePerPage)

		dialog.mu.Lock()
		defer dialog.mu.Unlock()
		dialog.subjectsLoading = false
		if err != nil {
			dialog.subjectsErr = err
			logger.Warn("subject list failed", zap.Error(err))
			return
		}
		dialog.subjects = page.Items
	}()
}

// Wait blocks until every fetch started for the dialog has returned.
func (d *FilterDialog) Wait() {
	d.Teachers.Wait()
	d.Classes.Wait()
	d.wg.Wait()
}

func (d *FilterDialog) close() {
	d.Teachers.Close()
	d.Classes.Close()
}
