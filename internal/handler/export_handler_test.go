package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/schedule-browser/internal/service"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

type fakeExporter struct {
	format service.ExportFormat
	err    error
}

func (f *fakeExporter) Export(_ context.Context, format service.ExportFormat) (*service.ExportFile, error) {
	f.format = format
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportFile{
		Filename:    "thoi-khoa-bieu_trang-1_20240905_073000." + string(format),
		ContentType: "text/csv; charset=utf-8",
		Body:        []byte("Thứ,Tiết\n"),
		Rows:        0,
	}, nil
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	exporter := &fakeExporter{}
	handler := NewExportHandler(exporter)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedules/export?format=csv", nil)

	handler.Download(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.ExportCSV, exporter.format)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `filename="thoi-khoa-bieu_trang-1_20240905_073000.csv"`)
	assert.Equal(t, "Thứ,Tiết\n", rec.Body.String())
}

func TestExportHandlerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedules/export?format=xlsx", nil)
	NewExportHandler(&fakeExporter{}).Download(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/schedules/export?format=pdf", nil)
	NewExportHandler(&fakeExporter{err: appErrors.Clone(appErrors.ErrDisabled, "schedule export is disabled")}).Download(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
