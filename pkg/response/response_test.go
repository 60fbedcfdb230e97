package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schedule-browser/internal/models"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

type decoded struct {
	Data       json.RawMessage        `json:"data"`
	Error      *appErrors.Error       `json:"error"`
	Pagination *models.Pagination     `json:"pagination"`
	Meta       map[string]interface{} `json:"meta"`
}

func newContext() (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) decoded {
	t.Helper()
	var body decoded
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestJSONWritesEnvelope(t *testing.T) {
	c, rec := newContext()
	JSON(c, http.StatusOK, []string{"a"}, &models.Pagination{CurrentPage: 2, PerPage: 5, Total: 12, TotalPages: 3}, map[string]interface{}{"state": "populated"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	body := decode(t, rec)
	assert.JSONEq(t, `["a"]`, string(body.Data))
	require.NotNil(t, body.Pagination)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.Equal(t, "populated", body.Meta["state"])
}

func TestErrorCarriesFetchReason(t *testing.T) {
	c, rec := newContext()
	Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "token expired"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, "UNAUTHORIZED", body.Error.Code)
	assert.Equal(t, "unauthorized", body.Meta["reason"])
}

func TestErrorWithoutReasonForLocalFailures(t *testing.T) {
	c, rec := newContext()
	Error(c, appErrors.ErrNotFound)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Nil(t, decode(t, rec).Meta)
}

func TestBindErrorListsFields(t *testing.T) {
	type payload struct {
		Field     string `validate:"required"`
		Direction string `validate:"oneof=asc desc"`
	}
	err := validator.New().Struct(payload{Direction: "up"})
	require.Error(t, err)

	c, rec := newContext()
	BindError(c, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	require.NotNil(t, body.Error)
	assert.Equal(t, []string{"is required"}, body.Error.Fields["field"])
	assert.Equal(t, []string{"must be one of: asc desc"}, body.Error.Fields["direction"])
}

func TestBindErrorMalformedPayload(t *testing.T) {
	c, rec := newContext()
	BindError(c, &json.SyntaxError{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "invalid payload", body.Error.Message)
	assert.Empty(t, body.Error.Fields)
}

func TestAttachment(t *testing.T) {
	c, rec := newContext()
	Attachment(c, "trang-1.csv", "text/csv; charset=utf-8", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="trang-1.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}
