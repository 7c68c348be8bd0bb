package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"chat-group/httpserver/internal/middleware"
	"chat-group/httpserver/internal/realtime"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

const testToken = "tok-abcdefgh-1234"

func TestMain(m *testing.M) {
	if err := log.Init(&log.Config{Level: "fatal", Output: "stdout"}); err != nil {
		panic("初始化日志失败: " + err.Error())
	}
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// ============================================================================
// gRPC Client Mock
// ============================================================================

type MockUserClient struct {
	mock.Mock
}

func (m *MockUserClient) Register(ctx context.Context, in *chat.RegisterRequest, _ ...grpc.CallOption) (*chat.RegisterResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.RegisterResponse), args.Error(1)
}

func (m *MockUserClient) Login(ctx context.Context, in *chat.LoginRequest, _ ...grpc.CallOption) (*chat.LoginResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.LoginResponse), args.Error(1)
}

func (m *MockUserClient) Logout(ctx context.Context, in *chat.LogoutRequest, _ ...grpc.CallOption) (*chat.LogoutResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.LogoutResponse), args.Error(1)
}

func (m *MockUserClient) GetProfile(ctx context.Context, in *chat.GetProfileRequest, _ ...grpc.CallOption) (*chat.GetProfileResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.GetProfileResponse), args.Error(1)
}

func (m *MockUserClient) UpdateProfile(ctx context.Context, in *chat.UpdateProfileRequest, _ ...grpc.CallOption) (*chat.UpdateProfileResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.UpdateProfileResponse), args.Error(1)
}

func (m *MockUserClient) ChangePassword(ctx context.Context, in *chat.ChangePasswordRequest, _ ...grpc.CallOption) (*chat.ChangePasswordResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.ChangePasswordResponse), args.Error(1)
}

func (m *MockUserClient) UpdateProfilePicture(ctx context.Context, in *chat.UpdateProfilePictureRequest, _ ...grpc.CallOption) (*chat.UpdateProfilePictureResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.UpdateProfilePictureResponse), args.Error(1)
}

type MockChannelClient struct {
	mock.Mock
}

func (m *MockChannelClient) CreateChannel(ctx context.Context, in *chat.CreateChannelRequest, _ ...grpc.CallOption) (*chat.CreateChannelResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.CreateChannelResponse), args.Error(1)
}

func (m *MockChannelClient) SearchChannels(ctx context.Context, in *chat.SearchChannelsRequest, _ ...grpc.CallOption) (*chat.SearchChannelsResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.SearchChannelsResponse), args.Error(1)
}

func (m *MockChannelClient) ListMyChannels(ctx context.Context, in *chat.ListMyChannelsRequest, _ ...grpc.CallOption) (*chat.ListMyChannelsResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.ListMyChannelsResponse), args.Error(1)
}

func (m *MockChannelClient) VisitChannel(ctx context.Context, in *chat.VisitChannelRequest, _ ...grpc.CallOption) (*chat.VisitChannelResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.VisitChannelResponse), args.Error(1)
}

func (m *MockChannelClient) SendMessage(ctx context.Context, in *chat.SendMessageRequest, _ ...grpc.CallOption) (*chat.SendMessageResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.SendMessageResponse), args.Error(1)
}

func (m *MockChannelClient) ListMessages(ctx context.Context, in *chat.ListMessagesRequest, _ ...grpc.CallOption) (*chat.ListMessagesResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*chat.ListMessagesResponse), args.Error(1)
}

type MockHealthClient struct {
	mock.Mock
}

func (m *MockHealthClient) Check(ctx context.Context, in *healthpb.HealthCheckRequest, _ ...grpc.CallOption) (*healthpb.HealthCheckResponse, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*healthpb.HealthCheckResponse), args.Error(1)
}

// ============================================================================
// 其他依赖 Mock
// ============================================================================

type MockBroadcaster struct {
	mock.Mock
}

func (m *MockBroadcaster) PublishMessage(ctx context.Context, msg *chat.ChatMessage, exclude string) error {
	return m.Called(ctx, msg, exclude).Error(0)
}

func (m *MockBroadcaster) PublishMember(ctx context.Context, channelID uint64, member *chat.Member, exclude string) error {
	return m.Called(ctx, channelID, member, exclude).Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, key string, r io.Reader) (string, error) {
	data, _ := io.ReadAll(r)
	args := m.Called(ctx, key, data)
	return args.String(0), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

// fakeAttacher 记录接入的连接后直接关闭
type fakeAttacher struct {
	users chan realtime.Identity
	locs  chan *time.Location
}

func (f *fakeAttacher) Attach(conn *websocket.Conn, user realtime.Identity, loc *time.Location, _ string) error {
	f.users <- user
	f.locs <- loc
	return conn.Close()
}

// ============================================================================
// 辅助函数
// ============================================================================

// authed 匹配携带测试 Token 的调用
func authed() interface{} {
	return mock.MatchedBy(func(ctx context.Context) bool {
		md, ok := metadata.FromOutgoingContext(ctx)
		if !ok {
			return false
		}
		vals := md.Get("authorization")
		return len(vals) == 1 && vals[0] == testToken
	})
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}, withToken bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			reader = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			reader = bytes.NewReader(raw)
		}
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withToken {
		req.AddCookie(&http.Cookie{Name: "auth_token", Value: testToken})
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}
