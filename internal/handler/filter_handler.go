package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/service"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

type filterStore interface {
	State() service.FilterState
	SetDraftField(field, value string) error
	SetSearch(text string)
	Apply() models.AppliedFilters
	ClearAll() models.AppliedFilters
	SetSort(field models.SortField, direction models.SortDirection) error
	ToggleSortDirection() models.SortDirection
}

// DraftFieldRequest edits one draft filter. An empty value clears it.
type DraftFieldRequest struct {
	Field string `json:"field" binding:"required,oneof=search weekday session teacher class"`
	Value string `json:"value"`
}

// SearchRequest carries free-text search input.
type SearchRequest struct {
	Text string `json:"text"`
}

// SortRequest changes the sort column, direction or both.
type SortRequest struct {
	Field     models.SortField     `json:"field"`
	Direction models.SortDirection `json:"direction"`
}

// FilterHandler edits and applies the schedule filters.
type FilterHandler struct {
	store filterStore
}

// NewFilterHandler constructs handler.
func NewFilterHandler(store filterStore) *FilterHandler {
	return &FilterHandler{store: store}
}

// Get godoc
// @Summary Draft and applied filters
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters [get]
func (h *FilterHandler) Get(c *gin.Context) {
	h.respond(c)
}

// SetDraft godoc
// @Summary Edit a draft filter
// @Description Draft edits never trigger a fetch.
// @Tags Filters
// @Accept json
// @Produce json
// @Param payload body DraftFieldRequest true "Field and value"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /filters/draft [put]
func (h *FilterHandler) SetDraft(c *gin.Context) {
	var req DraftFieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := h.store.SetDraftField(req.Field, req.Value); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c)
}

// SetSearch godoc
// @Summary Edit the draft search text
// @Tags Filters
// @Accept json
// @Produce json
// @Param payload body SearchRequest true "Search text"
// @Success 200 {object} response.Envelope
// @Router /filters/search [put]
func (h *FilterHandler) SetSearch(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	h.store.SetSearch(req.Text)
	h.respond(c)
}

// Apply godoc
// @Summary Apply the draft filters
// @Description Restarts from page 1 and reloads the schedule list.
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters/apply [post]
func (h *FilterHandler) Apply(c *gin.Context) {
	h.store.Apply()
	h.respond(c)
}

// Clear godoc
// @Summary Clear every filter and apply
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters/clear [post]
func (h *FilterHandler) Clear(c *gin.Context) {
	h.store.ClearAll()
	h.respond(c)
}

// SetSort godoc
// @Summary Change sort column and/or direction
// @Tags Filters
// @Accept json
// @Produce json
// @Param payload body SortRequest true "Sort"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /filters/sort [put]
func (h *FilterHandler) SetSort(c *gin.Context) {
	var req SortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if req.Field == "" && req.Direction == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrBadRequest, "field or direction is required"))
		return
	}
	if err := h.store.SetSort(req.Field, req.Direction); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c)
}

// ToggleSort godoc
// @Summary Flip the sort direction
// @Tags Filters
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /filters/sort/toggle [post]
func (h *FilterHandler) ToggleSort(c *gin.Context) {
	h.store.ToggleSortDirection()
	h.respond(c)
}

func (h *FilterHandler) respond(c *gin.Context) {
	state := h.store.State()
	response.JSON(c, http.StatusOK, state, nil, map[string]interface{}{
		"active_filters": state.ActiveFilters,
		"can_clear":      state.ActiveFilters > 0,
	})
}
