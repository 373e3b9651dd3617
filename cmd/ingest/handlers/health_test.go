package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Health(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("dial tcp: refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantBody   string
	}{
		{
			name:       "healthy",
			checks:     map[string]Pinger{"store": ok},
			wantStatus: http.StatusOK,
			wantBody:   `{"status":"ok","service":"ingest","dependencies":{"store":"ok"}}`,
		},
		{
			name:       "redis down",
			checks:     map[string]Pinger{"store": ok, "redis": down},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"status":"degraded","service":"ingest","dependencies":{"redis":"dial tcp: refused","store":"ok"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/health", NewHealthHandler("ingest", tt.checks).Health)

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}
