package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, http.StatusBadRequest, "validation_error", "bad input",
		FieldError{Field: "items", Message: "at least one item is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var p Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, "validation_error", p.Type)
	assert.Equal(t, "Bad Request", p.Title)
	assert.Equal(t, 400, p.Status)
	assert.Len(t, p.Errors, 1)
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Name string `json:"name"`
	}

	tests := map[string]struct {
		in      string
		wantErr bool
	}{
		"valid":         {in: `{"name":"x"}`},
		"unknown field": {in: `{"name":"x","extra":1}`, wantErr: true},
		"trailing data": {in: `{"name":"x"}{"name":"y"}`, wantErr: true},
		"malformed":     {in: `{"name":`, wantErr: true},
		"wrong type":    {in: `{"name":5}`, wantErr: true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.in))
			var b body
			err := DecodeJSON(r, &b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "x", b.Name)
		})
	}
}

func TestPathID(t *testing.T) {
	mux := http.NewServeMux()
	var got int64
	var gotErr error
	mux.HandleFunc("GET /things/{id}", func(w http.ResponseWriter, r *http.Request) {
		got, gotErr = PathID(r, "id")
	})

	mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	for _, bad := range []string{"abc", "0", "-3"} {
		mux.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/things/"+bad, nil))
		assert.Error(t, gotErr, bad)
	}
}

func TestPagination(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=10&offset=20", nil)
	l, o := Pagination(r)
	assert.Equal(t, 10, l)
	assert.Equal(t, 20, o)

	r = httptest.NewRequest(http.MethodGet, "/?limit=9999&offset=-1", nil)
	l, o = Pagination(r)
	assert.Equal(t, 50, l)
	assert.Equal(t, 0, o)
}

func TestHealth(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }

	rec := httptest.NewRecorder()
	Health(map[string]Pinger{"postgres": ok, "rabbitmq": ok})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	Health(map[string]Pinger{"postgres": ok, "rabbitmq": down})(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"rabbitmq":"connection refused"}}`, rec.Body.String())
}

func TestValidationError(t *testing.T) {
	var verr ValidationError
	assert.NoError(t, verr.Err())

	verr.Add("customerId", "is required")
	verr.Add("items[0].quantity", "must be positive")
	err := verr.Err()
	require.Error(t, err)
	assert.Equal(t, "validation failed: customerId: is required; items[0].quantity: must be positive", err.Error())

	var target *ValidationError
	assert.True(t, errors.As(err, &target))

	rec := httptest.NewRecorder()
	WriteValidation(rec, target)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"field":"items[0].quantity"`)
}
