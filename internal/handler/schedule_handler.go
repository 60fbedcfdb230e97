package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

type scheduleList interface {
	Snapshot() service.ListSnapshot
	Retry()
	NextPage() bool
	PrevPage() bool
	GoToPage(page int) int
}

// PageRequest selects a page of the schedule list.
type PageRequest struct {
	Page int `json:"page" binding:"required"`
}

// ScheduleHandler exposes the schedule list of the browsing session.
type ScheduleHandler struct {
	list scheduleList
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(list scheduleList) *ScheduleHandler {
	return &ScheduleHandler{list: list}
}

// List godoc
// @Summary Current schedule page
// @Description Returns the list state: loading, populated, empty or error.
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	h.respond(c, http.StatusOK, nil)
}

// Retry godoc
// @Summary Re-issue the last schedule request
// @Tags Schedules
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /schedules/retry [post]
func (h *ScheduleHandler) Retry(c *gin.Context) {
	h.list.Retry()
	h.respond(c, http.StatusAccepted, nil)
}

// NextPage godoc
// @Summary Move to the next page
// @Description A no-op on the last page; meta.moved reports whether a fetch was issued.
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/page/next [post]
func (h *ScheduleHandler) NextPage(c *gin.Context) {
	moved := h.list.NextPage()
	h.respond(c, http.StatusOK, map[string]interface{}{"moved": moved})
}

// PrevPage godoc
// @Summary Move to the previous page
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules/page/prev [post]
func (h *ScheduleHandler) PrevPage(c *gin.Context) {
	moved := h.list.PrevPage()
	h.respond(c, http.StatusOK, map[string]interface{}{"moved": moved})
}

// GoToPage godoc
// @Summary Jump to a page
// @Description The page is clamped to the last known range.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body PageRequest true "Target page"
// @Success 200 {object} response.Envelope
// @Router /schedules/page [put]
func (h *ScheduleHandler) GoToPage(c *gin.Context) {
	var req PageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	page := h.list.GoToPage(req.Page)
	h.respond(c, http.StatusOK, map[string]interface{}{"page": page})
}

func (h *ScheduleHandler) respond(c *gin.Context, status int, meta map[string]interface{}) {
	snap := h.list.Snapshot()
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["state"] = snap.State
	meta["generation"] = snap.Generation
	pagination := snap.Pagination
	response.JSON(c, status, snap, &pagination, meta)
}
