package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	log "chat-group/pkg/logger"
)

// HealthChecker healthpb.HealthClient 的子集
type HealthChecker interface {
	Check(ctx context.Context, in *healthpb.HealthCheckRequest, opts ...grpc.CallOption) (*healthpb.HealthCheckResponse, error)
}

type HealthHandler struct {
	health  HealthChecker
	timeout time.Duration
}

func NewHealthHandler(health HealthChecker, timeout time.Duration) *HealthHandler {
	return &HealthHandler{health: health, timeout: timeout}
}

// Check 网关存活且 rpcserver 处于 SERVING 时返回 200
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := rpcContext(c, h.timeout, "")
	defer cancel()

	resp, err := h.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		log.Warn("rpcserver 健康检查失败", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "rpcserver": "UNREACHABLE"})
		return
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "rpcserver": resp.GetStatus().String()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "rpcserver": resp.GetStatus().String()})
}
