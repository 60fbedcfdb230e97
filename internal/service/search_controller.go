package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/pkg/clock"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

// DefaultSearchDebounce is the quiet period before a search is sent.
const DefaultSearchDebounce = 500 * time.Millisecond

// SearchState is the lifecycle of a debounced reference search.
type SearchState string

const (
	SearchIdle     SearchState = "idle"
	SearchPending  SearchState = "pending"
	SearchInFlight SearchState = "in_flight"
	SearchReady    SearchState = "ready"
)

// SearchFunc loads reference entries for a search term; empty means unfiltered.
type SearchFunc[T any] func(ctx context.Context, search string) ([]T, error)

type searchMetrics interface {
	RecordStaleDiscard(controller string)
	RecordCoalescedInput(controller string)
}

// SearchSnapshot is an immutable view of a controller.
type SearchSnapshot[T any] struct {
	Name      string      `json:"name"`
	Text      string      `json:"text"`
	State     SearchState `json:"state"`
	Items     []T         `json:"items"`
	Shown     int         `json:"shown"`
	Total     int         `json:"total"`
	Loading   bool        `json:"loading"`
	Disabled  bool        `json:"disabled"`
	Error     string      `json:"error,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	RequestID uint64      `json:"request_id"`
}

// SearchController coalesces keystrokes for one reference list into a single
// fetch after a quiet period. Only the result of the latest issued request is
// applied; older responses are dropped when they arrive. Requests are never
// aborted on the network.
type SearchController[T models.ReferenceEntity] struct {
	name    string
	fetch   SearchFunc[T]
	clock   clock.Clock
	quiet   time.Duration
	ctx     context.Context
	metrics searchMetrics
	logger  *zap.Logger

	mu       sync.Mutex
	text     string
	state    SearchState
	timer    clock.Timer
	armed    uint64
	latestID uint64
	items    []T
	err      error
	closed   bool
	wg       sync.WaitGroup
}

// SearchControllerConfig wires a SearchController.
type SearchControllerConfig struct {
	Name    string
	Quiet   time.Duration
	Clock   clock.Clock
	Context context.Context
	Metrics searchMetrics
	Logger  *zap.Logger
}

// NewSearchController constructs an idle controller.
func NewSearchController[T models.ReferenceEntity](fetch SearchFunc[T], cfg SearchControllerConfig) *SearchController[T] {
	if cfg.Quiet <= 0 {
		cfg.Quiet = DefaultSearchDebounce
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
	return &SearchController[T]{
		name:    cfg.Name,
		fetch:   fetch,
		clock:   cfg.Clock,
		quiet:   cfg.Quiet,
		ctx:     cfg.Context,
		metrics: cfg.Metrics,
		logger:  cfg.Logger.With(zap.String("controller", cfg.Name)),
		state:   SearchIdle,
	}
}

// OnInput records new search text and re-arms the debounce timer. Clearing
// the text never reloads a populated list; with nothing loaded yet it fetches
// the unfiltered list at once.
func (c *SearchController[T]) OnInput(text string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.text = text
	if c.stopTimerLocked() && c.metrics != nil {
		c.metrics.RecordCoalescedInput(c.name)
	}

	if strings.TrimSpace(text) == "" {
		if len(c.items) > 0 {
			if c.state != SearchInFlight {
				c.settleStateLocked()
			}
			c.mu.Unlock()
			return
		}
		id := c.issueLocked()
		c.mu.Unlock()
		c.launch(id, "")
		return
	}

	c.armed++
	armed := c.armed
	c.state = SearchPending
	c.timer = c.clock.AfterFunc(c.quiet, func() { c.fire(armed) })
	c.mu.Unlock()
}

// Load performs the first paint when nothing is held yet.
func (c *SearchController[T]) Load() {
	c.mu.Lock()
	if c.closed || len(c.items) > 0 || c.state == SearchInFlight {
		c.mu.Unlock()
		return
	}
	c.stopTimerLocked()
	search := strings.TrimSpace(c.text)
	id := c.issueLocked()
	c.mu.Unlock()
	c.launch(id, search)
}

// Refresh clears the search text and reloads the unfiltered list immediately.
func (c *SearchController[T]) Refresh() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.text = ""
	c.stopTimerLocked()
	id := c.issueLocked()
	c.mu.Unlock()
	c.launch(id, "")
}

// OnResult applies the outcome of request id. It reports whether the result
// was applied; results of superseded requests are discarded.
func (c *SearchController[T]) OnResult(id uint64, items []T, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || id != c.latestID {
		if c.metrics != nil {
			c.metrics.RecordStaleDiscard(c.name)
		}
		c.logger.Debug("discarding stale search result", zap.Uint64("request_id", id), zap.Uint64("latest", c.latestID))
		return false
	}

	if err != nil {
		c.err = err
		c.logger.Warn("reference search failed", zap.Uint64("request_id", id), zap.Error(err))
	} else {
		c.err = nil
		c.items = append([]T(nil), items...)
	}
	c.settleStateLocked()
	return true
}

// Close drops the held list and suppresses any in-flight result.
func (c *SearchController[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.stopTimerLocked()
	c.latestID++
	c.items = nil
	c.err = nil
	c.state = SearchIdle
}

// Wait blocks until launched fetches have returned. Used on shutdown and in tests.
func (c *SearchController[T]) Wait() {
	c.wg.Wait()
}

// Snapshot returns the current view with the held list narrowed locally by
// the search text.
func (c *SearchController[T]) Snapshot() SearchSnapshot[T] {
	c.mu.Lock()
	defer c.mu.Unlock()

	shown := filterByName(c.items, c.text)
	snap := SearchSnapshot[T]{
		Name:      c.name,
		Text:      c.text,
		State:     c.state,
		Items:     shown,
		Shown:     len(shown),
		Total:     len(c.items),
		Loading:   c.state == SearchInFlight,
		Disabled:  c.err != nil || c.state == SearchInFlight,
		RequestID: c.latestID,
	}
	if c.err != nil {
		snap.Error = appErrors.FromError(c.err).Message
		snap.ErrorKind = string(appErrors.ReasonOf(c.err))
	}
	return snap
}

func (c *SearchController[T]) fire(armed uint64) {
	c.mu.Lock()
	if c.closed || armed != c.armed || c.timer == nil {
		c.mu.Unlock()
		return
	}
	c.timer = nil
	search := strings.TrimSpace(c.text)
	id := c.issueLocked()
	c.mu.Unlock()
	c.launch(id, search)
}

func (c *SearchController[T]) issueLocked() uint64 {
	c.latestID++
	c.state = SearchInFlight
	return c.latestID
}

func (c *SearchController[T]) launch(id uint64, search string) {
	c.logger.Debug("searching reference list", zap.Uint64("request_id", id), zap.String("search", search))
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		items, err := c.fetch(c.ctx, search)
		c.OnResult(id, items, err)
	}()
}

// stopTimerLocked disarms the pending debounce and reports whether it was
// still waiting to fire.
func (c *SearchController[T]) stopTimerLocked() bool {
	if c.timer == nil {
		return false
	}
	stopped := c.timer.Stop()
	c.timer = nil
	c.armed++
	return stopped
}

// settleStateLocked picks the resting state once nothing is outstanding.
func (c *SearchController[T]) settleStateLocked() {
	switch {
	case c.timer != nil:
		c.state = SearchPending
	case len(c.items) > 0 || c.err != nil:
		c.state = SearchReady
	default:
		c.state = SearchIdle
	}
}

func filterByName[T models.ReferenceEntity](items []T, text string) []T {
	needle := strings.ToLower(strings.TrimSpace(text))
	out := make([]T, 0, len(items))
	for _, item := range items {
		if needle == "" || strings.Contains(strings.ToLower(item.DisplayName()), needle) {
			out = append(out, item)
		}
	}
	return out
}
