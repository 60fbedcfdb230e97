package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/service"
)

func newFilterContext(method, path, body string) (*gin.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, rec
}

func TestFilterHandlerDraftAndApply(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := service.NewFilterStore(validator.New(), zap.NewNop())
	handler := NewFilterHandler(store)

	c, rec := newFilterContext(http.MethodPut, "/filters/draft", `{"field":"weekday","value":"3"}`)
	handler.SetDraft(c)
	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, float64(1), envelope.Meta["active_filters"])
	assert.Equal(t, true, envelope.Meta["can_clear"])
	assert.Equal(t, 0, store.Applied().Weekday)

	c, rec = newFilterContext(http.MethodPut, "/filters/search", `{"text":"Toán"}`)
	handler.SetSearch(c)
	require.Equal(t, http.StatusOK, rec.Code)

	c, rec = newFilterContext(http.MethodPost, "/filters/apply", "")
	handler.Apply(c)
	require.Equal(t, http.StatusOK, rec.Code)

	applied := store.Applied()
	assert.Equal(t, 3, applied.Weekday)
	assert.Equal(t, "Toán", applied.Search)
}

func TestFilterHandlerRejectsInvalidDraft(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFilterHandler(service.NewFilterStore(validator.New(), zap.NewNop()))

	c, rec := newFilterContext(http.MethodPut, "/filters/draft", `{"field":"weekday","value":"9"}`)
	handler.SetDraft(c)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", envelope.Error["code"])
	assert.Contains(t, envelope.Error["fields"], "weekday")

	c, rec = newFilterContext(http.MethodPut, "/filters/draft", `{"field":"room","value":"A1"}`)
	handler.SetDraft(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFilterHandlerClear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := service.NewFilterStore(validator.New(), zap.NewNop())
	require.NoError(t, store.SetDraftField(models.FieldClass, "5"))
	store.Apply()
	handler := NewFilterHandler(store)

	c, rec := newFilterContext(http.MethodPost, "/filters/clear", "")
	handler.Clear(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["can_clear"])
	assert.Zero(t, store.Applied().ClassID)
}

func TestFilterHandlerSort(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := service.NewFilterStore(validator.New(), zap.NewNop())
	handler := NewFilterHandler(store)

	c, rec := newFilterContext(http.MethodPut, "/filters/sort", `{"field":"teacher","direction":"desc"}`)
	handler.SetSort(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SortByTeacher, store.Applied().SortField)
	assert.Equal(t, models.SortDesc, store.Applied().SortDirection)

	c, rec = newFilterContext(http.MethodPost, "/filters/sort/toggle", "")
	handler.ToggleSort(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.SortAsc, store.Applied().SortDirection)

	c, rec = newFilterContext(http.MethodPut, "/filters/sort", `{}`)
	handler.SetSort(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newFilterContext(http.MethodPut, "/filters/sort", `{"field":"room"}`)
	handler.SetSort(c)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestFilterHandlerSortPublishesOnce(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := service.NewFilterStore(validator.New(), zap.NewNop())
	var changes []service.AppliedChange
	store.Subscribe(func(change service.AppliedChange) { changes = append(changes, change) })
	handler := NewFilterHandler(store)

	c, rec := newFilterContext(http.MethodPut, "/filters/sort", `{"field":"period","direction":"desc"}`)
	handler.SetSort(c)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, changes, 1)
	assert.Equal(t, models.SortByPeriod, changes[0].Filters.SortField)
	assert.Equal(t, models.SortDesc, changes[0].Filters.SortDirection)

	c, rec = newFilterContext(http.MethodPut, "/filters/sort", `{"field":"teacher","direction":"sideways"}`)
	handler.SetSort(c)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decodeEnvelope(t, rec).Error["fields"], "sort_direction")
	assert.Len(t, changes, 1)
	assert.Equal(t, models.SortByPeriod, store.Applied().SortField)
	assert.Equal(t, models.SortDesc, store.Applied().SortDirection)
}

func TestFilterHandlerGet(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFilterHandler(service.NewFilterStore(validator.New(), zap.NewNop()))

	c, rec := newFilterContext(http.MethodGet, "/filters", "")
	handler.Get(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	applied, ok := envelope.Data["applied"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "weekday", applied["sort_field"])
}
