package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/service"
	"github.com/noah-isme/schedule-browser/pkg/response"
)

type dialogManager interface {
	Open() *service.FilterDialog
	Snapshot(id string) (service.DialogSnapshot, error)
	SearchTeachers(id, text string) error
	SearchClasses(id, text string) error
	RefreshTeachers(id string) error
	RefreshClasses(id string) error
	Apply(id string) (models.AppliedFilters, error)
	Close(id string) error
}

// DialogHandler drives filter dialogs and their reference searches.
type DialogHandler struct {
	dialogs dialogManager
}

// NewDialogHandler constructs handler.
func NewDialogHandler(dialogs dialogManager) *DialogHandler {
	return &DialogHandler{dialogs: dialogs}
}

// Open godoc
// @Summary Open a filter dialog
// @Description Starts loading the teacher, class and subject lists.
// @Tags Dialogs
// @Produce json
// @Success 201 {object} response.Envelope
// @Router /dialogs [post]
func (h *DialogHandler) Open(c *gin.Context) {
	dialog := h.dialogs.Open()
	snap, err := h.dialogs.Snapshot(dialog.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, snap)
}

// Get godoc
// @Summary Filter dialog state
// @Tags Dialogs
// @Produce json
// @Param id path string true "Dialog ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /dialogs/{id} [get]
func (h *DialogHandler) Get(c *gin.Context) {
	h.respond(c, http.StatusOK)
}

// SearchTeachers godoc
// @Summary Type into the teacher search
// @Description The search is sent after the debounce period.
// @Tags Dialogs
// @Accept json
// @Produce json
// @Param id path string true "Dialog ID"
// @Param payload body SearchRequest true "Search text"
// @Success 202 {object} response.Envelope
// @Router /dialogs/{id}/teachers/search [put]
func (h *DialogHandler) SearchTeachers(c *gin.Context) {
	h.search(c, h.dialogs.SearchTeachers)
}

// SearchClasses godoc
// @Summary Type into the class search
// @Tags Dialogs
// @Accept json
// @Produce json
// @Param id path string true "Dialog ID"
// @Param payload body SearchRequest true "Search text"
// @Success 202 {object} response.Envelope
// @Router /dialogs/{id}/classes/search [put]
func (h *DialogHandler) SearchClasses(c *gin.Context) {
	h.search(c, h.dialogs.SearchClasses)
}

// RefreshTeachers godoc
// @Summary Reload the full teacher list
// @Tags Dialogs
// @Produce json
// @Param id path string true "Dialog ID"
// @Success 202 {object} response.Envelope
// @Router /dialogs/{id}/teachers/refresh [post]
func (h *DialogHandler) RefreshTeachers(c *gin.Context) {
	h.refresh(c, h.dialogs.RefreshTeachers)
}

// RefreshClasses godoc
// @Summary Reload the full class list
// @Tags Dialogs
// @Produce json
// @Param id path string true "Dialog ID"
// @Success 202 {object} response.Envelope
// @Router /dialogs/{id}/classes/refresh [post]
func (h *DialogHandler) RefreshClasses(c *gin.Context) {
	h.refresh(c, h.dialogs.RefreshClasses)
}

// Apply godoc
// @Summary Apply the draft and close the dialog
// @Tags Dialogs
// @Produce json
// @Param id path string true "Dialog ID"
// @Success 200 {object} response.Envelope
// @Router /dialogs/{id}/apply [post]
func (h *DialogHandler) Apply(c *gin.Context) {
	applied, err := h.dialogs.Apply(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, applied, nil)
}

// Close godoc
// @Summary Close a filter dialog
// @Description Reference lists are discarded with the dialog.
// @Tags Dialogs
// @Param id path string true "Dialog ID"
// @Success 204
// @Router /dialogs/{id} [delete]
func (h *DialogHandler) Close(c *gin.Context) {
	if err := h.dialogs.Close(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *DialogHandler) search(c *gin.Context, fn func(id, text string) error) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BindError(c, err)
		return
	}
	if err := fn(c.Param("id"), req.Text); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, http.StatusAccepted)
}

func (h *DialogHandler) refresh(c *gin.Context, fn func(id string) error) {
	if err := fn(c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	h.respond(c, http.StatusAccepted)
}

func (h *DialogHandler) respond(c *gin.Context, status int) {
	snap, err := h.dialogs.Snapshot(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, status, snap, nil)
}
