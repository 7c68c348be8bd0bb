package chat

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

// stubChannelServer 只实现测试用到的方法
type stubChannelServer struct {
	ChannelServiceServer
	lastToken string
}

func (s *stubChannelServer) SendMessage(ctx context.Context, req *SendMessageRequest) (*SendMessageResponse, error) {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get("authorization"); len(v) > 0 {
			s.lastToken = v[0]
		}
	}
	return &SendMessageResponse{
		Code:    CodeSuccess,
		Message: "OK",
		Item: &ChatMessage{
			ID:         7,
			ChannelID:  req.ChannelID,
			Text:       req.Text,
			StartOfDay: true,
		},
	}, nil
}

func startBufServer(t *testing.T, srv ChannelServiceServer, interceptor grpc.UnaryServerInterceptor) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	var opts []grpc.ServerOption
	if interceptor != nil {
		opts = append(opts, grpc.UnaryInterceptor(interceptor))
	}
	s := grpc.NewServer(opts...)
	RegisterChannelServiceServer(s, srv)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(s, healthSrv)

	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestChannelService_RoundTripThroughInterceptor(t *testing.T) {
	srv := &stubChannelServer{}
	var seenMethod string
	interceptor := func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		seenMethod = info.FullMethod
		return handler(ctx, req)
	}
	conn := startBufServer(t, srv, interceptor)

	client := NewChannelServiceClient(conn)
	ctx := metadata.NewOutgoingContext(context.Background(), metadata.Pairs("authorization", "tok-1"))

	resp, err := client.SendMessage(ctx, &SendMessageRequest{ChannelID: 99, Text: "你好"})
	require.NoError(t, err)
	require.NotNil(t, resp.Item)

	assert.Equal(t, ChannelService_SendMessage_FullMethodName, seenMethod)
	assert.Equal(t, "tok-1", srv.lastToken)
	assert.Equal(t, uint64(99), resp.Item.ChannelID)
	assert.Equal(t, "你好", resp.Item.Text)
	assert.True(t, resp.Item.StartOfDay)
}

// TestHealthCheckOverJSONCodec 标准 proto 消息经 protojson 编解码
func TestHealthCheckOverJSONCodec(t *testing.T) {
	conn := startBufServer(t, &stubChannelServer{}, nil)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestJSONCodec_ProtoAndPlainValues(t *testing.T) {
	codec := jsonCodec{}
	assert.Equal(t, "json", codec.Name())

	data, err := codec.Marshal(&healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING})
	require.NoError(t, err)
	assert.Contains(t, string(data), "NOT_SERVING")

	data, err = codec.Marshal(&VisitChannelRequest{ChannelID: 5})
	require.NoError(t, err)
	assert.JSONEq(t, `{"channel_id":5}`, string(data))

	var out VisitChannelRequest
	require.NoError(t, codec.Unmarshal(data, &out))
	assert.Equal(t, uint64(5), out.ChannelID)
}
