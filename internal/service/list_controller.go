package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

// DefaultPerPage matches the page size of the schedule list.
const DefaultPerPage = 5

// ListState is the display state of the schedule list.
type ListState string

const (
	ListLoading   ListState = "loading"
	ListPopulated ListState = "populated"
	ListEmpty     ListState = "empty"
	ListError     ListState = "error"
)

type scheduleLister interface {
	List(ctx context.Context, q query.Query, page, perPage int) (*models.Page[models.ScheduleRow], error)
}

type staleRecorder interface {
	RecordStaleDiscard(controller string)
}

// ListSnapshot is the immutable view served to the handler layer.
type ListSnapshot struct {
	State         ListState                        `json:"state"`
	Items         []models.ScheduleRow             `json:"items"`
	Pagination    models.Pagination                `json:"pagination"`
	Previous      *models.Page[models.ScheduleRow] `json:"previous,omitempty"`
	Error         string                           `json:"error,omitempty"`
	ErrorKind     string                           `json:"error_kind,omitempty"`
	FieldErrors   map[string][]string              `json:"field_errors,omitempty"`
	Applied       models.AppliedFilters            `json:"applied"`
	ActiveFilters int                              `json:"active_filters"`
	Generation    uint64                           `json:"generation"`
}

// ListControllerConfig wires a ListController.
type ListControllerConfig struct {
	PerPage int
	Context context.Context
	Metrics staleRecorder
	// OnUnauthorized runs after a fetch is rejected for missing or expired credentials.
	OnUnauthorized func(err error)
	// OnUpdate receives a fresh snapshot after every state transition, in order.
	OnUpdate func(ListSnapshot)
	Logger   *zap.Logger
}

// ListController fetches the schedule page for every applied filter change.
// Only the newest request may update the list.
type ListController struct {
	store          *FilterStore
	lister         scheduleLister
	perPage        int
	ctx            context.Context
	metrics        staleRecorder
	onUnauthorized func(error)
	onUpdate       func(ListSnapshot)
	logger         *zap.Logger
	notifyMu       sync.Mutex

	mu          sync.Mutex
	state       ListState
	current     *models.Page[models.ScheduleRow]
	previous    *models.Page[models.ScheduleRow]
	known       models.Pagination
	err         error
	generation  uint64
	seenVersion uint64
	request     models.AppliedFilters
	closed      bool
	unsubscribe func()
	wg          sync.WaitGroup
}

// NewListController subscribes to store. Call Start for the first load.
func NewListController(store *FilterStore, lister scheduleLister, cfg ListControllerConfig) *ListController {
	if cfg.PerPage <= 0 {
		cfg.PerPage = DefaultPerPage
	}
	if cfg.Context == nil {
		cfg.Context = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	c := &ListController{
		store:          store,
		lister:         lister,
		perPage:        cfg.PerPage,
		ctx:            cfg.Context,
		metrics:        cfg.Metrics,
		onUnauthorized: cfg.OnUnauthorized,
		onUpdate:       cfg.OnUpdate,
		logger:         cfg.Logger,
		state:          ListLoading,
	}
	c.unsubscribe = store.Subscribe(c.onChange)
	return c
}

// Start loads the page for the filters currently applied.
func (c *ListController) Start() {
	c.onChange(c.store.Current())
}

// Close stops observing the store and drops in-flight results.
func (c *ListController) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	unsubscribe := c.unsubscribe
	c.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

// Wait blocks until launched fetches have returned.
func (c *ListController) Wait() {
	c.wg.Wait()
}

// Retry re-issues the last request without touching the applied filters.
func (c *ListController) Retry() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	filters := c.request
	gen := c.beginLocked(filters)
	c.mu.Unlock()

	c.notify()
	c.launch(gen, filters)
}

// NextPage moves to the following page. It reports false, without fetching,
// when the last known page is already the final one.
func (c *ListController) NextPage() bool {
	c.mu.Lock()
	known := c.known
	page := c.request.Page
	c.mu.Unlock()

	if page >= known.TotalPages {
		return false
	}
	return c.setPage(page + 1)
}

// PrevPage moves to the preceding page. It reports false on page 1.
func (c *ListController) PrevPage() bool {
	c.mu.Lock()
	page := c.request.Page
	c.mu.Unlock()

	if page <= 1 {
		return false
	}
	return c.setPage(page - 1)
}

// GoToPage clamps page into the last known range and moves there. It returns
// the resulting page.
func (c *ListController) GoToPage(page int) int {
	c.mu.Lock()
	target := c.known.Clamp(page)
	c.mu.Unlock()

	c.setPage(target)
	return target
}

// Snapshot returns the current list view.
func (c *ListController) Snapshot() ListSnapshot {
	active := c.store.ActiveFilterCount()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := ListSnapshot{
		State:         c.state,
		Items:         []models.ScheduleRow{},
		Pagination:    c.known,
		Applied:       c.request,
		ActiveFilters: active,
		Generation:    c.generation,
	}
	if c.current != nil {
		snap.Items = append(snap.Items, c.current.Items...)
		snap.Pagination = c.current.Pagination
	} else if c.request.Page > 0 {
		snap.Pagination.CurrentPage = c.request.Page
	}
	if c.state == ListError && c.err != nil {
		appErr := appErrors.FromError(c.err)
		snap.Error = appErr.Message
		snap.ErrorKind = string(appErrors.ReasonOf(c.err))
		snap.FieldErrors = appErr.Fields
		if c.previous != nil {
			prev := *c.previous
			prev.Items = append([]models.ScheduleRow(nil), c.previous.Items...)
			snap.Previous = &prev
		}
	}
	return snap
}

func (c *ListController) setPage(page int) bool {
	if err := c.store.SetPage(page); err != nil {
		c.logger.Warn("rejected page change", zap.Int("page", page), zap.Error(err))
		return false
	}
	return true
}

func (c *ListController) onChange(change AppliedChange) {
	c.mu.Lock()
	if c.closed || (c.generation > 0 && change.Version < c.seenVersion) {
		c.mu.Unlock()
		return
	}
	c.seenVersion = change.Version
	gen := c.beginLocked(change.Filters)
	c.mu.Unlock()

	c.notify()
	c.launch(gen, change.Filters)
}

func (c *ListController) beginLocked(filters models.AppliedFilters) uint64 {
	c.generation++
	c.request = filters
	c.state = ListLoading
	c.current = nil
	return c.generation
}

func (c *ListController) launch(gen uint64, filters models.AppliedFilters) {
	q := query.Build(filters.ScheduleFilters())
	c.logger.Debug("loading schedules",
		zap.Uint64("generation", gen),
		zap.Int("page", filters.Page),
		zap.String("query", q.Encode()),
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		page, err := c.lister.List(c.ctx, q, filters.Page, c.perPage)
		c.apply(gen, page, err)
	}()
}

func (c *ListController) apply(gen uint64, page *models.Page[models.ScheduleRow], err error) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.RecordStaleDiscard("schedules")
		}
		c.logger.Debug("discarding stale schedule page", zap.Uint64("generation", gen))
		return
	}

	if err != nil {
		c.state = ListError
		c.err = err
		c.current = nil
		c.mu.Unlock()

		c.notify()
		c.logger.Warn("schedule list failed", zap.Uint64("generation", gen), zap.Error(err))
		if appErrors.ReasonOf(err) == appErrors.ReasonUnauthorized && c.onUnauthorized != nil {
			c.onUnauthorized(err)
		}
		return
	}

	c.err = nil
	c.current = page
	c.known = page.Pagination
	if len(page.Items) == 0 {
		c.state = ListEmpty
	} else {
		c.state = ListPopulated
		c.previous = page
	}
	c.mu.Unlock()

	c.notify()
}

// notify hands the current snapshot to OnUpdate. Snapshots are taken and
// delivered under notifyMu so observers never see the list go backwards.
func (c *ListController) notify() {
	if c.onUpdate == nil {
		return
	}
	c.notifyMu.Lock()
	defer c.notifyMu.Unlock()
	c.onUpdate(c.Snapshot())
}
