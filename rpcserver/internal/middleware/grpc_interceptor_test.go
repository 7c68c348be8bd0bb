package middleware

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
	"chat-group/rpcserver/pkg/metrics"
	"chat-group/rpcserver/pkg/redis"
)

func TestMain(m *testing.M) {
	if err := log.Init(&log.Config{Level: "fatal", Output: "stdout"}); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	os.Exit(m.Run())
}

type MockSessionManager struct {
	mock.Mock
}

func (m *MockSessionManager) CreateSession(ctx context.Context, userID uint64) (string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.Error(1)
}

func (m *MockSessionManager) ValidateSession(ctx context.Context, token string) (uint64, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockSessionManager) DestroySession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockSessionManager) RefreshSession(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func info(method string) *grpc.UnaryServerInfo {
	return &grpc.UnaryServerInfo{FullMethod: method}
}

func withToken(token string) context.Context {
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", token))
}

// echoAuth 返回 handler 看到的用户ID
func echoAuth(ctx context.Context, _ interface{}) (interface{}, error) {
	id, _ := UserIDFromContext(ctx)
	return id, nil
}

func TestAuthInterceptor_PublicMethod(t *testing.T) {
	sessions := new(MockSessionManager)
	interceptor := AuthInterceptor(sessions)

	resp, err := interceptor(context.Background(), nil, info(chat.UserService_Login_FullMethodName), echoAuth)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), resp)
	sessions.AssertNotCalled(t, "ValidateSession", mock.Anything, mock.Anything)
}

func TestAuthInterceptor_ValidToken(t *testing.T) {
	sessions := new(MockSessionManager)
	interceptor := AuthInterceptor(sessions)

	sessions.On("ValidateSession", mock.Anything, "tok-1").Return(uint64(42), nil)
	sessions.On("RefreshSession", mock.Anything, "tok-1").Return(errors.New("ignored"))

	var seenToken string
	resp, err := interceptor(withToken("tok-1"), nil, info(chat.ChannelService_SendMessage_FullMethodName),
		func(ctx context.Context, req interface{}) (interface{}, error) {
			seenToken = TokenFromContext(ctx)
			return echoAuth(ctx, req)
		})

	require.NoError(t, err)
	assert.Equal(t, uint64(42), resp)
	assert.Equal(t, "tok-1", seenToken)
	sessions.AssertExpectations(t)
}

func TestAuthInterceptor_Rejects(t *testing.T) {
	sessions := new(MockSessionManager)
	interceptor := AuthInterceptor(sessions)
	method := info(chat.UserService_GetProfile_FullMethodName)

	sessions.On("ValidateSession", mock.Anything, "expired").Return(uint64(0), redis.ErrSessionNotFound)
	sessions.On("ValidateSession", mock.Anything, "redis-down").Return(uint64(0), errors.New("dial tcp: refused"))

	tests := []struct {
		name string
		ctx  context.Context
		want codes.Code
	}{
		{"没有 metadata", context.Background(), codes.Unauthenticated},
		{"Token 为空", withToken(""), codes.Unauthenticated},
		{"Session 过期", withToken("expired"), codes.Unauthenticated},
		{"Redis 不可用", withToken("redis-down"), codes.Unavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := interceptor(tt.ctx, nil, method, echoAuth)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}

func TestRecoveryInterceptor(t *testing.T) {
	_, err := RecoveryInterceptor()(context.Background(), nil, info("/chat.Test/Panic"),
		func(context.Context, interface{}) (interface{}, error) { panic("boom") })
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestMetricsInterceptor(t *testing.T) {
	method := "/chat.Test/Metrics"
	before := testutil.ToFloat64(metrics.RPCRequestsTotal.WithLabelValues(method, codes.OK.String()))

	_, err := MetricsInterceptor()(context.Background(), nil, info(method),
		func(context.Context, interface{}) (interface{}, error) { return "ok", nil })
	require.NoError(t, err)

	after := testutil.ToFloat64(metrics.RPCRequestsTotal.WithLabelValues(method, codes.OK.String()))
	assert.Equal(t, before+1, after)
}

func TestLoggingInterceptorPassesThrough(t *testing.T) {
	want := status.Error(codes.NotFound, "x")
	_, err := LoggingInterceptor()(context.Background(), nil, info("/chat.Test/Log"),
		func(context.Context, interface{}) (interface{}, error) { return nil, want })
	assert.Equal(t, want, err)
}
