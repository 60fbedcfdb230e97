package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/schedule-browser/internal/models"
	"github.com/noah-isme/schedule-browser/internal/query"
	"github.com/noah-isme/schedule-browser/pkg/config"
	appErrors "github.com/noah-isme/schedule-browser/pkg/errors"
	"github.com/noah-isme/schedule-browser/pkg/logger"
	"github.com/noah-isme/schedule-browser/pkg/middleware/requestid"
)

// Collection identifies a remote resource and the key its items live under.
type Collection struct {
	Name    string
	Path    string
	DataKey string
}

var (
	CollectionSchedules = Collection{Name: "schedules", Path: "/thoi-khoa-bieu/all-schedules", DataKey: "schedules"}
	CollectionTeachers  = Collection{Name: "teachers", Path: "/thoi-khoa-bieu/teachers", DataKey: "teachers"}
	CollectionClasses   = Collection{Name: "classes", Path: "/thoi-khoa-bieu/classes", DataKey: "classes"}
	CollectionSubjects  = Collection{Name: "subjects", Path: "/thoi-khoa-bieu/subjects", DataKey: "subjects"}
)

// CredentialSource supplies the bearer credential for outgoing requests.
type CredentialSource interface {
	Token(ctx context.Context) (string, bool)
}

// FetchObserver records the outcome of every fetch.
type FetchObserver interface {
	ObserveFetch(collection, outcome string, duration time.Duration)
}

// CollectionClient issues paged GET requests against the timetable service.
type CollectionClient struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialSource
	observer    FetchObserver
	logger      *zap.Logger
}

// NewCollectionClient constructs a CollectionClient. A nil httpClient gets one
// bounded by cfg.Timeout.
func NewCollectionClient(cfg config.APIConfig, httpClient *http.Client, credentials CredentialSource, observer FetchObserver, logger *zap.Logger) *CollectionClient {
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollectionClient{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/") + cfg.Prefix,
		httpClient:  httpClient,
		credentials: credentials,
		observer:    observer,
		logger:      logger,
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

// FetchPage loads one page of a collection. It performs exactly one request and
// reports every failure as an *errors.Error from the fetch taxonomy.
func FetchPage[T any](ctx context.Context, c *CollectionClient, col Collection, q query.Query, page, perPage int) (*models.Page[T], error) {
	start := time.Now()
	data, err := c.fetch(ctx, col, q.WithPage(page, perPage))
	if err == nil {
		var result *models.Page[T]
		result, err = decodePage[T](data, col.DataKey, page, perPage)
		if err != nil {
			err = appErrors.Wrap(err, appErrors.ErrServer.Code, appErrors.ErrServer.Status, "unexpected response from timetable service")
		} else {
			c.observe(col, "ok", time.Since(start))
			return result, nil
		}
	}
	c.observe(col, string(appErrors.ReasonOf(err)), time.Since(start))
	return nil, err
}

func (c *CollectionClient) fetch(ctx context.Context, col Collection, q query.Query) (json.RawMessage, error) {
	endpoint := c.baseURL + col.Path
	if encoded := q.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnection.Code, appErrors.ErrConnection.Status, "invalid request")
	}
	requestID := requestid.FromContext(ctx)
	log := logger.WithRequestID(c.logger, requestID).With(zap.String("collection", col.Name))
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestid.Header, requestID)
	if c.credentials != nil {
		if token, ok := c.credentials.Token(ctx); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		} else {
			log.Warn("no credential available for request")
		}
	}

	log.Debug("fetching collection", zap.String("url", endpoint))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("collection request failed", zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrConnection.Code, appErrors.ErrConnection.Status, appErrors.ErrConnection.Message)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrConnection.Code, appErrors.ErrConnection.Status, "connection lost while reading response")
	}

	var env envelope
	decodeErr := json.Unmarshal(body, &env)

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, messageOr(env.Message, decodeErr, ""))
	}
	if decodeErr != nil {
		log.Warn("undecodable collection response", zap.Int("status", resp.StatusCode), zap.Error(decodeErr))
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil, appErrors.Wrap(decodeErr, appErrors.ErrServer.Code, appErrors.ErrServer.Status, "unexpected response from timetable service")
		}
		return nil, appErrors.Clone(appErrors.ErrServer, fmt.Sprintf("timetable service returned status %d", resp.StatusCode))
	}

	fields := decodeFieldErrors(env.Errors)
	if resp.StatusCode == http.StatusUnprocessableEntity || len(fields) > 0 {
		return nil, appErrors.WithFields(appErrors.ErrValidation, messageOr(env.Message, nil, appErrors.ErrValidation.Message), fields)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, appErrors.Clone(appErrors.ErrServer, messageOr(env.Message, nil, fmt.Sprintf("timetable service returned status %d", resp.StatusCode)))
	}
	if !env.Success {
		return nil, appErrors.Clone(appErrors.ErrServer, messageOr(env.Message, nil, appErrors.ErrServer.Message))
	}
	return env.Data, nil
}

func (c *CollectionClient) observe(col Collection, outcome string, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveFetch(col.Name, outcome, d)
	}
}

// decodePage accepts data as {<key>: [...], pagination: {...}} or, as some
// endpoints answer, a bare item array.
func decodePage[T any](data json.RawMessage, key string, page, perPage int) (*models.Page[T], error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &models.Page[T]{Items: []T{}, Pagination: models.Pagination{CurrentPage: page, PerPage: perPage}}, nil
	}

	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode %s items: %w", key, err)
		}
		return &models.Page[T]{
			Items:      nonNil(items),
			Pagination: models.Pagination{CurrentPage: page, PerPage: perPage, Total: len(items), TotalPages: 1},
		}, nil
	}

	var body map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &body); err != nil {
		return nil, fmt.Errorf("decode %s data: %w", key, err)
	}

	var items []T
	if raw, ok := body[key]; ok {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("decode %s items: %w", key, err)
		}
	}

	result := &models.Page[T]{Items: nonNil(items)}
	if raw, ok := body["pagination"]; ok {
		if err := json.Unmarshal(raw, &result.Pagination); err != nil {
			return nil, fmt.Errorf("decode %s pagination: %w", key, err)
		}
		if result.CurrentPage == 0 {
			result.CurrentPage = page
		}
		if result.PerPage == 0 {
			result.PerPage = perPage
		}
	} else {
		result.Pagination = models.Pagination{CurrentPage: page, PerPage: perPage, Total: len(items), TotalPages: 1}
	}
	return result, nil
}

// Field errors may arrive as an object, an empty array or be absent.
func decodeFieldErrors(raw json.RawMessage) map[string][]string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil
	}
	var fields map[string][]string
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		var single map[string]string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil
		}
		fields = make(map[string][]string, len(single))
		for k, v := range single {
			fields[k] = []string{v}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

func messageOr(message string, decodeErr error, fallback string) string {
	if decodeErr == nil && strings.TrimSpace(message) != "" {
		return message
	}
	return fallback
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
