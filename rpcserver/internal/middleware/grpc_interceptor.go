package middleware

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
	"chat-group/rpcserver/pkg/metrics"
	"chat-group/rpcserver/pkg/redis"
)

// PublicMethods 不需要鉴权的方法
var PublicMethods = map[string]bool{
	chat.UserService_Register_FullMethodName: true,
	chat.UserService_Login_FullMethodName:    true,
	"/grpc.health.v1.Health/Check":           true,
	"/grpc.health.v1.Health/Watch":           true,
}

// ============================================================================
// context 中的鉴权信息
// ============================================================================

type ctxKey int

const (
	userIDKey ctxKey = iota
	tokenKey
)

// WithAuth 把鉴权结果放入 context
func WithAuth(ctx context.Context, userID uint64, token string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, tokenKey, token)
}

// UserIDFromContext 取出当前用户ID
func UserIDFromContext(ctx context.Context) (uint64, bool) {
	id, ok := ctx.Value(userIDKey).(uint64)
	return id, ok && id != 0
}

// TokenFromContext 取出当前请求的 Token
func TokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// ============================================================================
// 1. 日志拦截器
// ============================================================================

// LoggingInterceptor 记录所有 RPC 请求的日志
func LoggingInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		duration := time.Since(start)
		requestID := requestIDFromMetadata(ctx)
		if err != nil {
			log.Error("gRPC 请求失败",
				zap.String("method", info.FullMethod),
				zap.String("request_id", requestID),
				zap.Duration("duration", duration),
				zap.Error(err),
			)
		} else {
			log.Info("gRPC 请求完成",
				zap.String("method", info.FullMethod),
				zap.String("request_id", requestID),
				zap.Duration("duration", duration),
			)
		}

		return resp, err
	}
}

// requestIDFromMetadata 网关透传的 x-request-id
func requestIDFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if ids := md.Get("x-request-id"); len(ids) > 0 {
		return ids[0]
	}
	return ""
}

// ============================================================================
// 2. Panic 恢复拦截器
// ============================================================================

// RecoveryInterceptor 捕获 Panic 并返回 Internal
func RecoveryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp interface{}, err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("gRPC Panic 恢复",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.Stack("stack"),
				)
				err = status.Error(codes.Internal, "服务内部错误")
			}
		}()

		return handler(ctx, req)
	}
}

// ============================================================================
// 3. 鉴权拦截器
// ============================================================================

// AuthInterceptor 从 metadata 取 Token，校验 Session 并续期
func AuthInterceptor(sessions redis.SessionManager) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		// 1. 白名单直接放行
		if PublicMethods[info.FullMethod] {
			return handler(ctx, req)
		}

		// 2. 提取 Token
		md, ok := metadata.FromIncomingContext(ctx)
		if !ok {
			return nil, status.Error(codes.Unauthenticated, "缺少认证信息")
		}
		tokens := md.Get("authorization")
		if len(tokens) == 0 || tokens[0] == "" {
			log.Warn("缺少 Token", zap.String("method", info.FullMethod))
			return nil, status.Error(codes.Unauthenticated, "缺少 Token")
		}
		token := tokens[0]

		// 3. 校验 Session
		userID, err := sessions.ValidateSession(ctx, token)
		if err != nil {
			if errors.Is(err, redis.ErrSessionNotFound) {
				log.Warn("Token 无效或已过期",
					zap.String("method", info.FullMethod),
					zap.String("token", redis.MaskToken(token)))
				return nil, status.Error(codes.Unauthenticated, "Token 无效或已过期")
			}
			log.Error("校验 Session 失败", zap.String("method", info.FullMethod), zap.Error(err))
			return nil, status.Error(codes.Unavailable, "会话服务不可用")
		}

		// 4. 滑动过期，失败不影响本次请求
		if err := sessions.RefreshSession(ctx, token); err != nil {
			log.Warn("Session 续期失败", zap.Error(err), zap.Uint64("user_id", userID))
		}

		return handler(WithAuth(ctx, userID, token), req)
	}
}

// ============================================================================
// 4. Prometheus 指标拦截器
// ============================================================================

// MetricsInterceptor 按方法记录请求数和耗时
func MetricsInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()

		resp, err := handler(ctx, req)

		metrics.RPCRequestDuration.WithLabelValues(info.FullMethod).Observe(time.Since(start).Seconds())
		metrics.RPCRequestsTotal.WithLabelValues(info.FullMethod, status.Code(err).String()).Inc()
		return resp, err
	}
}
