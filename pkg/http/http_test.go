package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scoreBody struct {
	Currency string `json:"currency" validate:"required,len=3"`
	Score    *int   `json:"score" validate:"required,gte=-2,lte=2"`
	Mode     string `json:"mode" default:"default" validate:"oneof=default simplified"`
}

func newContext(method, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	c, _ := newContext(http.MethodPut, `{"currency":"USD","score":1}`)
	var req scoreBody
	require.Nil(t, ReadAndValidateRequest(c, &req))
	assert.Equal(t, "default", req.Mode)
	assert.Equal(t, 1, *req.Score)

	c, _ = newContext(http.MethodPut, `{"currency":"US","score":3}`)
	verr := ReadAndValidateRequest(c, &scoreBody{})
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)
	assert.Equal(t, "currency", errs[0].Field)
	assert.Equal(t, "ERR_LEN", errs[0].Code)
	assert.Equal(t, "currency must be 3 characters", errs[0].Message)
	assert.Equal(t, "score", errs[1].Field)
	assert.Equal(t, "score must be <= 2", errs[1].Message)
	assert.Equal(t, "2", errs[1].Params["max"])

	c, _ = newContext(http.MethodPut, `{"currency":`)
	errs, ok = ReadAndValidateRequest(c, &scoreBody{}).([]ValidationError)
	require.True(t, ok)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := newContext(http.MethodGet, "")
	err := fmt.Errorf("wrapped: %w", ConflictError("not analyzed").WithParam("currency", "USD"))
	require.NoError(t, AppErrorResponse(c, err))
	assert.Equal(t, http.StatusConflict, rec.Code)

	var resp struct {
		Status int        `json:"status"`
		Data   []AppError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusConflict, resp.Status)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "ERR_CONFLICT", resp.Data[0].Code)
	assert.Equal(t, "USD", resp.Data[0].Params["currency"])

	c, rec = newContext(http.MethodGet, "")
	require.NoError(t, AppErrorResponse(c, errors.New("boom")))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestTooManyRequestsResponse(t *testing.T) {
	c, rec := newContext(http.MethodPost, "")
	require.NoError(t, TooManyRequestsResponse(c, 1500*time.Millisecond))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	c, rec = newContext(http.MethodPost, "")
	require.NoError(t, TooManyRequestsResponse(c, 0))
	assert.Empty(t, rec.Header().Get("Retry-After"))
}

func TestClient_SendAndParse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/query":
			assert.Equal(t, "FX_DAILY", r.URL.Query().Get("function"))
			assert.Equal(t, "1", r.URL.Query().Get("page"))
			_, _ = io.WriteString(w, `{"ok":true}`)
		case "/score":
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["currency"]})
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = io.WriteString(w, "try later\n")
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c := NewClient(WithHTTPClient(srv.Client()))
	ctx := context.Background()

	var ok map[string]bool
	require.NoError(t, c.SendAndParse(ctx, &RequestOptions{
		Method: MethodGet,
		URL:    srv.URL + "/query?page=1",
		Query:  map[string][]string{"function": {"FX_DAILY"}},
	}, &ok))
	assert.True(t, ok["ok"])

	var echoed map[string]string
	require.NoError(t, c.SendAndParse(ctx, &RequestOptions{
		Method: MethodPost,
		URL:    srv.URL + "/score",
		Body:   map[string]string{"currency": "JPY"},
	}, &echoed))
	assert.Equal(t, "JPY", echoed["echo"])

	err := c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: srv.URL + "/busy"}, nil)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "try later", se.Body)
	assert.True(t, IsTemporary(err))

	err = c.SendAndParse(ctx, &RequestOptions{Method: MethodGet, URL: srv.URL + "/nope"}, nil)
	require.Error(t, err)
	assert.False(t, IsTemporary(err))
}

func TestIsTemporary(t *testing.T) {
	assert.False(t, IsTemporary(nil))
	assert.True(t, IsTemporary(errors.New("connection reset")))
	assert.True(t, IsTemporary(&StatusError{Code: http.StatusTooManyRequests}))
	assert.False(t, IsTemporary(&StatusError{Code: http.StatusNotFound}))
	assert.False(t, IsTemporary(fmt.Errorf("request failed: %w", context.Canceled)))
}

func TestServer_Healthz(t *testing.T) {
	srv := NewServer(nil, WithMetrics(false, 0))
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
