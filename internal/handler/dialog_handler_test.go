package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/service"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

type fakeDialogManager struct {
	open      map[string]bool
	searches  []string
	refreshes []string
	applied   models.AppliedFilters
}

func newFakeDialogManager() *fakeDialogManager {
	return &fakeDialogManager{open: map[string]bool{}}
}

func (f *fakeDialogManager) Open() *service.FilterDialog {
	f.open["dlg-1"] = true
	return &service.FilterDialog{ID: "dlg-1"}
}

func (f *fakeDialogManager) check(id string) error {
	if !f.open[id] {
		return appErrors.Clone(appErrors.ErrNotFound, "filter dialog not found")
	}
	return nil
}

func (f *fakeDialogManager) Snapshot(id string) (service.DialogSnapshot, error) {
	if err := f.check(id); err != nil {
		return service.DialogSnapshot{}, err
	}
	return service.DialogSnapshot{
		ID:       id,
		Teachers: service.SearchSnapshot[models.Teacher]{Name: "teachers", State: service.SearchInFlight, Loading: true},
		Classes:  service.SearchSnapshot[models.Class]{Name: "classes", State: service.SearchIdle},
	}, nil
}

func (f *fakeDialogManager) SearchTeachers(id, text string) error {
	f.searches = append(f.searches, "teachers:"+text)
	return f.check(id)
}

func (f *fakeDialogManager) SearchClasses(id, text string) error {
	f.searches = append(f.searches, "classes:"+text)
	return f.check(id)
}

func (f *fakeDialogManager) RefreshTeachers(id string) error {
	f.refreshes = append(f.refreshes, "teachers")
	return f.check(id)
}

func (f *fakeDialogManager) RefreshClasses(id string) error {
	f.refreshes = append(f.refreshes, "classes")
	return f.check(id)
}

func (f *fakeDialogManager) Apply(id string) (models.AppliedFilters, error) {
	if err := f.check(id); err != nil {
		return models.AppliedFilters{}, err
	}
	delete(f.open, id)
	return f.applied, nil
}

func (f *fakeDialogManager) Close(id string) error {
	if err := f.check(id); err != nil {
		return err
	}
	delete(f.open, id)
	return nil
}

func newDialogContext(method, path, id, body string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	if id != "" {
		c.Params = gin.Params{{Key: "id", Value: id}}
	}
	return c, rec
}

func TestDialogHandlerOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDialogHandler(newFakeDialogManager())

	c, rec := newDialogContext(http.MethodPost, "/dialogs", "", "")
	handler.Open(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "dlg-1", envelope.Data["id"])
	teachers, ok := envelope.Data["teachers"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, teachers["loading"])
}

func TestDialogHandlerSearchAndRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := newFakeDialogManager()
	manager.open["dlg-1"] = true
	handler := NewDialogHandler(manager)

	c, rec := newDialogContext(http.MethodPut, "/dialogs/dlg-1/teachers/search", "dlg-1", `{"text":"Hoa"}`)
	handler.SearchTeachers(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c, rec = newDialogContext(http.MethodPut, "/dialogs/dlg-1/classes/search", "dlg-1", `{"text":"10A"}`)
	handler.SearchClasses(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c, rec = newDialogContext(http.MethodPost, "/dialogs/dlg-1/teachers/refresh", "dlg-1", "")
	handler.RefreshTeachers(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	c, rec = newDialogContext(http.MethodPost, "/dialogs/dlg-1/classes/refresh", "dlg-1", "")
	handler.RefreshClasses(c)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	assert.Equal(t, []string{"teachers:Hoa", "classes:10A"}, manager.searches)
	assert.Equal(t, []string{"teachers", "classes"}, manager.refreshes)
}

func TestDialogHandlerUnknownDialog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDialogHandler(newFakeDialogManager())

	c, rec := newDialogContext(http.MethodGet, "/dialogs/missing", "missing", "")
	handler.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decodeEnvelope(t, rec).Error["code"])

	c, rec = newDialogContext(http.MethodPut, "/dialogs/missing/teachers/search", "missing", `{"text":"x"}`)
	handler.SearchTeachers(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	c, rec = newDialogContext(http.MethodDelete, "/dialogs/missing", "missing", "")
	handler.Close(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDialogHandlerApplyAndClose(t *testing.T) {
	gin.SetMode(gin.TestMode)
	manager := newFakeDialogManager()
	manager.open["dlg-1"] = true
	manager.open["dlg-2"] = true
	manager.applied = models.DefaultApplied()
	manager.applied.TeacherID = 4
	handler := NewDialogHandler(manager)

	c, rec := newDialogContext(http.MethodPost, "/dialogs/dlg-1/apply", "dlg-1", "")
	handler.Apply(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(4), decodeEnvelope(t, rec).Data["teacher_id"])

	c, rec = newDialogContext(http.MethodDelete, "/dialogs/dlg-2", "dlg-2", "")
	handler.Close(c)
	c.Writer.WriteHeaderNow() // gin's engine flushes the pending status after handlers; emulate it here
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, manager.open)
}
