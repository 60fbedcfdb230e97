package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/repository"
	"github.com/noah-isme/schedule-browser/pkg/config"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
)

func TestLoadTargets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
targets:
  - collection: schedules
    weekdays: [2, 3]
    session: chieu
    critical: true
  - collection: teachers
    search: Hoa
`), 0o600))

	targets, err := loadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, []int{2, 3}, targets[0].filters().Weekdays)
	assert.Equal(t, "chieu", targets[0].filters().Session)
	assert.True(t, targets[0].Critical)
	assert.Equal(t, "Hoa", targets[1].Search)
}

func TestLoadTargetsRejectsEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "targets.yaml")
	require.NoError(t, os.WriteFile(path, []byte("targets: []\n"), 0o600))

	_, err := loadTargets(path)
	assert.Error(t, err)
}

func TestProbeReportsPagesAndFailures(t *testing.T) {
	var seen *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Clone(r.Context())
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/thoi-khoa-bieu/all-schedules":
			_, _ = w.Write([]byte(`{"success":true,"data":{"schedules":[{"id":1,"thu":2,"tiet":1}],"pagination":{"current_page":1,"per_page":5,"total":1,"total_pages":1}}}`))
		default:
			w.WriteHeader(http.StatusUnprocessableEntity)
			_, _ = w.Write([]byte(`{"success":false,"message":"invalid","errors":{"search":["too long"]}}`))
		}
	}))
	defer srv.Close()

	client := repository.NewCollectionClient(config.APIConfig{BaseURL: srv.URL, Prefix: "/api", Timeout: time.Second}, nil, nil, nil, zap.NewNop())

	res := probe(context.Background(), client, target{Collection: "schedules", Weekdays: []int{2}})
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Items)
	assert.Equal(t, 1, res.Page.TotalPages)
	assert.Equal(t, []string{"2"}, seen.URL.Query()["thu[]"])
	assert.Contains(t, res.Query, "per_page=5")

	res = probe(context.Background(), client, target{Collection: "teachers", Search: "x"})
	assert.Equal(t, appErrors.ReasonValidation, appErrors.ReasonOf(res.Err))

	res = probe(context.Background(), client, target{Collection: "rooms"})
	assert.Error(t, res.Err)
}
