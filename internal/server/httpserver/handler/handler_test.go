package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yndnr/sheetsync-go/internal/core/domain"
	"github.com/yndnr/sheetsync-go/internal/core/service"
	"github.com/yndnr/sheetsync-go/internal/storage/memory"
	"github.com/yndnr/sheetsync-go/internal/telemetry/logger"
)

const (
	testBook  = "book-1"
	testSheet = "Sheet1"
)

// testEnv wires a real engine over an in-memory sheet.
type testEnv struct {
	handler *Handler
	store   *memory.Store
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	rows := [][]string{{"last_modified", "id", "type", "", "m_last_modified", "m_id", "m_type"}}
	for i, ts := range []int64{300, 200, 100} {
		s := strconv.FormatInt(ts, 10)
		id := strconv.Itoa(i + 1)
		rows = append(rows, []string{s, id, "d", "", s, id, "d"})
	}

	store := memory.NewStore()
	store.AddSheet(testBook, testSheet, rows)

	workbooks, err := domain.NewWorkbooks(map[string]string{"dev": testBook})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := service.NewEngine(workbooks, service.StaticSource{Store: store}, memory.NewCache(),
		service.WithLogger(log))

	return &testEnv{handler: New(engine, log, opts...), store: store}
}

func (e *testEnv) do(t *testing.T, method, target, body string) (*httptest.ResponseRecorder, *Response) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	req = req.WithContext(logger.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec, &resp
}

// decodeData re-decodes the envelope's data field into v.
func decodeData(t *testing.T, resp *Response, v any) {
	t.Helper()
	raw, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, v))
}

func TestHandler_Health(t *testing.T) {
	env := newTestEnv(t, WithVersion("v1.2.3"))

	rec, resp := env.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", resp.Code)
	assert.Equal(t, "req-1", resp.RequestID)

	var health HealthResponse
	decodeData(t, resp, &health)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "v1.2.3", health.Version)
}

func TestHandler_Ready(t *testing.T) {
	env := newTestEnv(t)
	rec, _ := env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	env = newTestEnv(t, WithReadyCheck(func(context.Context) error {
		return errors.New("credential pool empty")
	}))
	rec, resp := env.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var health HealthResponse
	decodeData(t, resp, &health)
	assert.Equal(t, "not_ready", health.Status)
	assert.Equal(t, "credential pool empty", health.Error)
}

func TestHandler_Data(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/data?workbook=dev&sheet=Sheet1&last_sync=300", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res service.ChangesResult
	decodeData(t, resp, &res)
	assert.True(t, res.AllSynced)
	assert.Equal(t, [][]string{{"300", "1", "d"}}, res.Rows)
	assert.Equal(t, int64(300), res.Latest)
	assert.Equal(t, "cached", res.TokenUsed)
}

func TestHandler_DataNeverSynced(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/data?workbook=dev&sheet=Sheet1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res service.ChangesResult
	decodeData(t, resp, &res)
	assert.True(t, res.IsFullFetch)
	assert.Len(t, res.Rows, 4)
}

func TestHandler_DataErrors(t *testing.T) {
	tests := []struct {
		name     string
		target   string
		wantCode int
		wantErr  *domain.DomainError
	}{
		{"bad last_sync", "/api/data?workbook=dev&sheet=Sheet1&last_sync=abc", http.StatusBadRequest, domain.ErrInvalidArgument},
		{"unknown workbook", "/api/data?workbook=prod&sheet=Sheet1", http.StatusNotFound, domain.ErrUnknownWorkbook},
		{"missing sheet", "/api/data?workbook=dev&sheet=Nope&last_sync=1", http.StatusNotFound, domain.ErrSheetNotFound},
		{"ahead of server", "/api/data?workbook=dev&sheet=Sheet1&last_sync=999", http.StatusConflict, domain.ErrSyncStateMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec, resp := env.do(t, http.MethodGet, tt.target, "")
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantErr.Code, resp.Code)
			assert.Equal(t, tt.wantErr.Code, rec.Header().Get("X-Error-Code"))
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestHandler_DataRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailNext(memory.OpReadRange, errors.New("quota"))

	rec, resp := env.do(t, http.MethodGet, "/api/data?workbook=dev&sheet=Sheet1&last_sync=200", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, domain.ErrRemoteStore.Code, resp.Code)
}

func TestHandler_Update(t *testing.T) {
	env := newTestEnv(t)

	body := `{"updates":[
		{"dbrow":2,"dbcol":"H","value":{"a":1,"v":"x"},"last_modified":400,"expected_version":0},
		{"dbrow":3,"dbcol":"H","value":{"a":5,"v":"y"},"last_modified":400,"expected_version":1}
	]}`
	rec, resp := env.do(t, http.MethodPost, "/api/update?workbook=dev&sheet=Sheet1", body)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	var res UpdateResponse
	decodeData(t, resp, &res)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Accepted)
	require.Len(t, res.Conflicts, 1)
	assert.Equal(t, 3, res.Conflicts[0].Row)
	assert.Equal(t, "H", res.Conflicts[0].Column)
	assert.Equal(t, string(domain.ReasonPayloadVersionMismatch), res.Conflicts[0].Reason)
	assert.Equal(t, int64(5), res.Conflicts[0].ProposedVersion)

	assert.Equal(t, `{"a":1,"v":"x"}`, env.store.Value(testBook, testSheet, 8, 2))
	assert.Equal(t, "400", env.store.Value(testBook, testSheet, 1, 2))
}

func TestHandler_UpdateRejectsBadBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"not json", `{`, domain.ErrBadRequest.Code},
		{"unknown field", `{"rows":[]}`, domain.ErrBadRequest.Code},
		{"header row", `{"updates":[{"dbrow":1,"dbcol":"H","value":{"a":1,"v":1},"expected_version":0}]}`, domain.ErrInvalidArgument.Code},
		{"column A", `{"updates":[{"dbrow":2,"dbcol":"A","value":{"a":1,"v":1},"expected_version":0}]}`, domain.ErrInvalidColumn.Code},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec, resp := env.do(t, http.MethodPost, "/api/update?workbook=dev&sheet=Sheet1", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantCode, resp.Code)
			assert.Zero(t, env.store.CallCount(memory.OpBatchWrite))
		})
	}
}

func TestHandler_Push(t *testing.T) {
	env := newTestEnv(t)

	body := `{"entries":[{"last_modified":500,"cells":[{"column":"H","value":"new"}]}]}`
	rec, resp := env.do(t, http.MethodPost, "/api/push?workbook=dev&sheet=Sheet1", body)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	var res service.AppendResult
	decodeData(t, resp, &res)
	assert.Equal(t, 5, res.FirstRow)
	assert.Equal(t, []service.AppendedRow{{Row: 5, Cells: 1}}, res.Rows)
	assert.Equal(t, `{"a":1,"v":"new"}`, env.store.Value(testBook, testSheet, 8, 5))
}

func TestHandler_Columns(t *testing.T) {
	env := newTestEnv(t)

	body := `{"name":"price","last_modified":600}`
	rec, resp := env.do(t, http.MethodPost, "/api/columns?workbook=dev&sheet=Sheet1", body)
	require.Equal(t, http.StatusOK, rec.Code, resp.Message)

	var res service.ColumnResult
	decodeData(t, resp, &res)
	assert.True(t, res.Success)
	assert.Equal(t, "D", res.Column)
	assert.Equal(t, "price", env.store.Value(testBook, testSheet, 4, 1))
}

func TestHandler_CacheClear(t *testing.T) {
	env := newTestEnv(t)
	env.do(t, http.MethodGet, "/api/data?workbook=dev&sheet=Sheet1&last_sync=200", "")

	rec, _ := env.do(t, http.MethodPost, "/api/cache/clear", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	_, resp := env.do(t, http.MethodGet, "/api/data?workbook=dev&sheet=Sheet1&last_sync=200", "")
	var res service.ChangesResult
	decodeData(t, resp, &res)
	assert.False(t, res.DataCached)
	assert.False(t, res.ColumnsCached)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/update", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{domain.ErrInvalidArgument, http.StatusBadRequest},
		{domain.ErrEmptyBatch.WithDetails("x"), http.StatusBadRequest},
		{domain.ErrUnknownWorkbook, http.StatusNotFound},
		{domain.ErrSheetNotFound, http.StatusNotFound},
		{domain.ErrSyncStateMismatch, http.StatusConflict},
		{domain.ErrRemoteStore, http.StatusBadGateway},
		{domain.ErrMalformedRemoteData, http.StatusBadGateway},
		{domain.ErrInvalidConfig, http.StatusInternalServerError},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrRateLimited, http.StatusTooManyRequests},
		{domain.ErrBadRequest, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusOf(tt.err), "%v", tt.err)
	}
}

func TestWriteError_HidesNonDomainErrors(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	WriteError(rec, req, errors.New("dial tcp 10.0.0.1: refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "10.0.0.1")
	assert.Equal(t, domain.ErrInternalServer.Code, rec.Header().Get("X-Error-Code"))
}
