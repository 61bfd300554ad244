package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rtdacademy/rtd-connect-api/internal/service"
)

func TestMetricsHandlerHealthIncludesSnapshot(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordTermEvaluation("compatible")
	handler := NewMetricsHandler(metrics, nil)
	c, w := newGinContext(http.MethodGet, "/health", nil)

	handler.Health(c)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Status  string                  `json:"status"`
		Metrics service.MetricsSnapshot `json:"metrics"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.EqualValues(t, 1, body.Metrics.TermEvaluations)
}

func TestMetricsHandlerReady(t *testing.T) {
	ok := PingFunc(func(ctx context.Context) error { return nil })
	handler := NewMetricsHandler(nil, map[string]Pinger{"postgres": ok, "redis": nil})
	c, w := newGinContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"disabled"`)
}

func TestMetricsHandlerReadyReportsFailures(t *testing.T) {
	down := PingFunc(func(ctx context.Context) error { return errors.New("connection refused") })
	handler := NewMetricsHandler(nil, map[string]Pinger{"postgres": down})
	c, w := newGinContext(http.MethodGet, "/ready", nil)

	handler.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestMetricsHandlerPrometheus(t *testing.T) {
	metrics := service.NewMetricsService()
	metrics.RecordFundingDetermination("kindergarten", true)
	handler := NewMetricsHandler(metrics, nil)
	c, w := newGinContext(http.MethodGet, "/metrics", nil)

	handler.Prometheus(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "funding_determinations_total")
}
