package chat

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ChannelService_CreateChannel_FullMethodName  = "/chat.ChannelService/CreateChannel"
	ChannelService_SearchChannels_FullMethodName = "/chat.ChannelService/SearchChannels"
	ChannelService_ListMyChannels_FullMethodName = "/chat.ChannelService/ListMyChannels"
	ChannelService_VisitChannel_FullMethodName   = "/chat.ChannelService/VisitChannel"
	ChannelService_SendMessage_FullMethodName    = "/chat.ChannelService/SendMessage"
	ChannelService_ListMessages_FullMethodName   = "/chat.ChannelService/ListMessages"
)

// ChannelServiceServer 服务端接口
type ChannelServiceServer interface {
	CreateChannel(context.Context, *CreateChannelRequest) (*CreateChannelResponse, error)
	SearchChannels(context.Context, *SearchChannelsRequest) (*SearchChannelsResponse, error)
	ListMyChannels(context.Context, *ListMyChannelsRequest) (*ListMyChannelsResponse, error)
	VisitChannel(context.Context, *VisitChannelRequest) (*VisitChannelResponse, error)
	SendMessage(context.Context, *SendMessageRequest) (*SendMessageResponse, error)
	ListMessages(context.Context, *ListMessagesRequest) (*ListMessagesResponse, error)
}

var ChannelService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chat.ChannelService",
	HandlerType: (*ChannelServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateChannel", Handler: unaryHandler(ChannelService_CreateChannel_FullMethodName, ChannelServiceServer.CreateChannel)},
		{MethodName: "SearchChannels", Handler: unaryHandler(ChannelService_SearchChannels_FullMethodName, ChannelServiceServer.SearchChannels)},
		{MethodName: "ListMyChannels", Handler: unaryHandler(ChannelService_ListMyChannels_FullMethodName, ChannelServiceServer.ListMyChannels)},
		{MethodName: "VisitChannel", Handler: unaryHandler(ChannelService_VisitChannel_FullMethodName, ChannelServiceServer.VisitChannel)},
		{MethodName: "SendMessage", Handler: unaryHandler(ChannelService_SendMessage_FullMethodName, ChannelServiceServer.SendMessage)},
		{MethodName: "ListMessages", Handler: unaryHandler(ChannelService_ListMessages_FullMethodName, ChannelServiceServer.ListMessages)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/channel_service",
}

func RegisterChannelServiceServer(s grpc.ServiceRegistrar, srv ChannelServiceServer) {
	s.RegisterService(&ChannelService_ServiceDesc, srv)
}

// ChannelServiceClient 客户端接口
type ChannelServiceClient interface {
	CreateChannel(ctx context.Context, in *CreateChannelRequest, opts ...grpc.CallOption) (*CreateChannelResponse, error)
	SearchChannels(ctx context.Context, in *SearchChannelsRequest, opts ...grpc.CallOption) (*SearchChannelsResponse, error)
	ListMyChannels(ctx context.Context, in *ListMyChannelsRequest, opts ...grpc.CallOption) (*ListMyChannelsResponse, error)
	VisitChannel(ctx context.Context, in *VisitChannelRequest, opts ...grpc.CallOption) (*VisitChannelResponse, error)
	SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error)
	ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error)
}

type channelServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewChannelServiceClient(cc grpc.ClientConnInterface) ChannelServiceClient {
	return &channelServiceClient{cc: cc}
}

func (c *channelServiceClient) CreateChannel(ctx context.Context, in *CreateChannelRequest, opts ...grpc.CallOption) (*CreateChannelResponse, error) {
	return invoke[CreateChannelRequest, CreateChannelResponse](ctx, c.cc, ChannelService_CreateChannel_FullMethodName, in, opts...)
}

func (c *channelServiceClient) SearchChannels(ctx context.Context, in *SearchChannelsRequest, opts ...grpc.CallOption) (*SearchChannelsResponse, error) {
	return invoke[SearchChannelsRequest, SearchChannelsResponse](ctx, c.cc, ChannelService_SearchChannels_FullMethodName, in, opts...)
}

func (c *channelServiceClient) ListMyChannels(ctx context.Context, in *ListMyChannelsRequest, opts ...grpc.CallOption) (*ListMyChannelsResponse, error) {
	return invoke[ListMyChannelsRequest, ListMyChannelsResponse](ctx, c.cc, ChannelService_ListMyChannels_FullMethodName, in, opts...)
}

func (c *channelServiceClient) VisitChannel(ctx context.Context, in *VisitChannelRequest, opts ...grpc.CallOption) (*VisitChannelResponse, error) {
	return invoke[VisitChannelRequest, VisitChannelResponse](ctx, c.cc, ChannelService_VisitChannel_FullMethodName, in, opts...)
}

func (c *channelServiceClient) SendMessage(ctx context.Context, in *SendMessageRequest, opts ...grpc.CallOption) (*SendMessageResponse, error) {
	return invoke[SendMessageRequest, SendMessageResponse](ctx, c.cc, ChannelService_SendMessage_FullMethodName, in, opts...)
}

func (c *channelServiceClient) ListMessages(ctx context.Context, in *ListMessagesRequest, opts ...grpc.CallOption) (*ListMessagesResponse, error) {
	return invoke[ListMessagesRequest, ListMessagesResponse](ctx, c.cc, ChannelService_ListMessages_FullMethodName, in, opts...)
}
