package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		resp       *healthpb.HealthCheckResponse
		err        error
		wantStatus int
	}{
		{"SERVING", &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_SERVING}, nil, http.StatusOK},
		{"NOT_SERVING", &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil, http.StatusServiceUnavailable},
		{"不可达", nil, status.Error(codes.Unavailable, "down"), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := new(MockHealthClient)
			if tt.resp != nil {
				health.On("Check", mock.Anything, mock.Anything).Return(tt.resp, nil)
			} else {
				health.On("Check", mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			r := newEngine()
			r.GET("/health", NewHealthHandler(health, time.Second).Check)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
