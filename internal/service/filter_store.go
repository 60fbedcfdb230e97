package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

// AppliedChange is published whenever the applied filters, sort or page change.
// Version increases strictly so readers can ignore reordered deliveries.
type AppliedChange struct {
	Version uint64
	Filters models.AppliedFilters
}

// FilterState is a consistent view of the store.
type FilterState struct {
	Draft         models.FilterDraft    `json:"draft"`
	Applied       models.AppliedFilters `json:"applied"`
	ActiveFilters int                   `json:"active_filters"`
	Version       uint64                `json:"version"`
}

// FilterStore owns the draft being edited and the applied filters driving the
// schedule list. It is the only writer of applied filters.
type FilterStore struct {
	mu          sync.Mutex
	draft       models.FilterDraft
	applied     models.AppliedFilters
	version     uint64
	subscribers map[int]func(AppliedChange)
	nextSubID   int

	validator *validator.Validate
	logger    *zap.Logger
}

// NewFilterStore constructs a FilterStore with empty filters sorted by weekday ascending.
func NewFilterStore(validate *validator.Validate, logger *zap.Logger) *FilterStore {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterStore{
		draft:       models.EmptyDraft(),
		applied:     models.DefaultApplied(),
		subscribers: make(map[int]func(AppliedChange)),
		validator:   validate,
		logger:      logger,
	}
}

// Subscribe registers fn for applied changes and returns a func that removes it.
func (s *FilterStore) Subscribe(fn func(AppliedChange)) func() {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subscribers, id)
		s.mu.Unlock()
	}
}

// SetDraftField updates one draft field from its textual value. An empty value
// clears the field. Any change restarts pagination.
func (s *FilterStore) SetDraftField(field, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.draft
	value = strings.TrimSpace(value)
	switch field {
	case models.FieldSearch:
		next.Search = value
	case models.FieldWeekday:
		if value == "" {
			next.Weekday = 0
			break
		}
		day, err := strconv.Atoi(value)
		if err != nil {
			return fieldError(field, "must be a number between 2 and 7")
		}
		next.Weekday = day
	case models.FieldSession:
		next.Session = models.Session(value)
	case models.FieldTeacher, models.FieldClass:
		id, err := models.ParseID(value)
		if err != nil {
			return fieldError(field, "must be a numeric id")
		}
		if field == models.FieldTeacher {
			next.TeacherID = id
		} else {
			next.ClassID = id
		}
	default:
		return fieldError(field, "unknown filter")
	}
	next.Page = 1

	if err := s.validator.Struct(next); err != nil {
		return s.validationError(err)
	}
	s.draft = next
	return nil
}

// SetSearch updates the free-text search of the draft.
func (s *FilterStore) SetSearch(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Search = strings.TrimSpace(text)
	s.draft.Page = 1
}

// Apply promotes the draft, together with the current sort, to the applied
// filters and restarts from page 1.
func (s *FilterStore) Apply() models.AppliedFilters {
	s.mu.Lock()
	s.draft.Page = 1
	s.applied.FilterDraft = s.draft
	change := s.bumpLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	s.logger.Debug("filters applied", zap.Uint64("version", change.Version), zap.Int("active", change.Filters.ActiveCount()))
	publish(subs, change)
	return change.Filters
}

// ClearAll resets the draft and applies the empty filters.
func (s *FilterStore) ClearAll() models.AppliedFilters {
	s.mu.Lock()
	s.draft = models.EmptyDraft()
	s.mu.Unlock()
	return s.Apply()
}

// ActiveFilterCount counts draft fields that differ from their empty default.
func (s *FilterStore) ActiveFilterCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.ActiveCount()
}

// SetSortField changes the sort column and reloads from page 1.
func (s *FilterStore) SetSortField(field models.SortField) error {
	if err := s.validateSortField(field); err != nil {
		return fieldError("sort_field", err.Error())
	}
	s.updateSort(func(a *models.AppliedFilters) { a.SortField = field })
	return nil
}

// SetSortDirection changes the sort direction and reloads from page 1.
func (s *FilterStore) SetSortDirection(direction models.SortDirection) error {
	if err := s.validateSortDirection(direction); err != nil {
		return fieldError("sort_direction", err.Error())
	}
	s.updateSort(func(a *models.AppliedFilters) { a.SortDirection = direction })
	return nil
}

// SetSort changes column and direction together with a single publish. An
// empty value keeps the current one; nothing changes unless both are valid.
func (s *FilterStore) SetSort(field models.SortField, direction models.SortDirection) error {
	fields := map[string][]string{}
	if field != "" {
		if err := s.validateSortField(field); err != nil {
			fields["sort_field"] = []string{err.Error()}
		}
	}
	if direction != "" {
		if err := s.validateSortDirection(direction); err != nil {
			fields["sort_direction"] = []string{err.Error()}
		}
	}
	if len(fields) > 0 {
		return appErrors.WithFields(appErrors.ErrValidation, "invalid filter value", fields)
	}
	if field == "" && direction == "" {
		return nil
	}

	s.updateSort(func(a *models.AppliedFilters) {
		if field != "" {
			a.SortField = field
		}
		if direction != "" {
			a.SortDirection = direction
		}
	})
	return nil
}

// ToggleSortDirection flips between ascending and descending.
func (s *FilterStore) ToggleSortDirection() models.SortDirection {
	var next models.SortDirection
	s.updateSort(func(a *models.AppliedFilters) {
		a.SortDirection = a.SortDirection.Toggle()
		next = a.SortDirection
	})
	return next
}

// SetPage publishes a page change for the applied filters. Callers clamp.
func (s *FilterStore) SetPage(page int) error {
	if page < 1 {
		return fieldError("page", "must be at least 1")
	}
	s.mu.Lock()
	if s.applied.Page == page {
		s.mu.Unlock()
		return nil
	}
	s.applied.Page = page
	s.draft.Page = page
	change := s.bumpLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	publish(subs, change)
	return nil
}

// Applied returns the applied filters.
func (s *FilterStore) Applied() models.AppliedFilters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Draft returns the filters being edited.
func (s *FilterStore) Draft() models.FilterDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// State returns draft, applied and derived values under one lock.
func (s *FilterStore) State() FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return FilterState{
		Draft:         s.draft,
		Applied:       s.applied,
		ActiveFilters: s.draft.ActiveCount(),
		Version:       s.version,
	}
}

// Current returns the latest published change, used by late subscribers.
func (s *FilterStore) Current() AppliedChange {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AppliedChange{Version: s.version, Filters: s.applied}
}

func (s *FilterStore) updateSort(mutate func(*models.AppliedFilters)) {
	s.mu.Lock()
	mutate(&s.applied)
	s.applied.Page = 1
	s.draft.Page = 1
	change := s.bumpLocked()
	subs := s.subscribersLocked()
	s.mu.Unlock()

	publish(subs, change)
}

func (s *FilterStore) bumpLocked() AppliedChange {
	s.version++
	return AppliedChange{Version: s.version, Filters: s.applied}
}

func (s *FilterStore) subscribersLocked() []func(AppliedChange) {
	subs := make([]func(AppliedChange), 0, len(s.subscribers))
	for id := 0; id < s.nextSubID; id++ {
		if fn, ok := s.subscribers[id]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func publish(subs []func(AppliedChange), change AppliedChange) {
	for _, fn := range subs {
		fn(change)
	}
}

func (s *FilterStore) validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter value")
	}
	fields := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		name := draftFieldName(fe.Field())
		fields[name] = append(fields[name], fmt.Sprintf("failed %s validation", fe.Tag()))
	}
	return appErrors.WithFields(appErrors.ErrValidation, "invalid filter value", fields)
}

func draftFieldName(structField string) string {
	switch structField {
	case "Weekday":
		return models.FieldWeekday
	case "Session":
		return models.FieldSession
	case "TeacherID":
		return models.FieldTeacher
	case "ClassID":
		return models.FieldClass
	case "Page":
		return "page"
	default:
		return strings.ToLower(structField)
	}
}

func (s *FilterStore) validateSortField(field models.SortField) error {
	if err := s.validator.Var(string(field), "required,oneof=weekday period subject teacher"); err != nil {
		return errors.New("must be one of weekday, period, subject, teacher")
	}
	return nil
}

func (s *FilterStore) validateSortDirection(direction models.SortDirection) error {
	if err := s.validator.Var(string(direction), "required,oneof=asc desc"); err != nil {
		return errors.New("must be asc or desc")
	}
	return nil
}

func fieldError(field, message string) error {
	return appErrors.WithFields(appErrors.ErrValidation, "invalid filter value", map[string][]string{field: {message}})
}
