package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshcart/grocery-backend/pkg/metrics"
	"github.com/freshcart/grocery-backend/pkg/types"
)

func TestRequestIDHonoursCallerToken(t *testing.T) {
	var seen string
	handler := RequestID(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get(requestIDHeader)
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		header string
		keep   bool
	}{
		{"printable token kept", "edge-7f3a", true},
		{"empty replaced", "", false},
		{"control characters replaced", "abc\x01def", false},
		{"oversized replaced", strings.Repeat("a", maxRequestIDLen+1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
			if tc.header != "" {
				req.Header.Set(requestIDHeader, tc.header)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			got := resp.Header().Get(requestIDHeader)
			require.NotEmpty(t, got)
			if tc.keep {
				assert.Equal(t, tc.header, got)
			} else {
				assert.NotEqual(t, tc.header, got)
				assert.Len(t, got, 36)
			}
			assert.Equal(t, tc.header, seen)
		})
	}
}

func TestRecovererWritesEnvelopeWithRequestID(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(RequestID(nil), Recoverer(nil, m))
	r.Post("/api/v1/customer/checkout", func(http.ResponseWriter, *http.Request) {
		panic("reservation engine exploded")
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/customer/checkout", nil)
	req.Header.Set(requestIDHeader, "checkout-123")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	require.Equal(t, http.StatusInternalServerError, resp.Code)
	var body types.ErrorEnvelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
	assert.Equal(t, "checkout-123", body.Error.RequestID)
	assert.NotContains(t, resp.Body.String(), "exploded")

	mfs, err := reg.Gather()
	require.NoError(t, err)
	var panics float64
	for _, mf := range mfs {
		if mf.GetName() != "freshcart_http_panics_total" {
			continue
		}
		for _, metric := range mf.GetMetric() {
			panics += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), panics)
}

func TestRecovererLeavesStartedResponseAlone(t *testing.T) {
	handler := Recoverer(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late failure")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, resp.Code)
	assert.Empty(t, resp.Body.String())
}

func TestRecovererRepanicsAbortHandler(t *testing.T) {
	handler := Recoverer(nil, nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
