package chat

import (
	"context"

	"google.golang.org/grpc"
)

const (
	UserService_Register_FullMethodName             = "/chat.UserService/Register"
	UserService_Login_FullMethodName                = "/chat.UserService/Login"
	UserService_Logout_FullMethodName               = "/chat.UserService/Logout"
	UserService_GetProfile_FullMethodName           = "/chat.UserService/GetProfile"
	UserService_UpdateProfile_FullMethodName        = "/chat.UserService/UpdateProfile"
	UserService_ChangePassword_FullMethodName       = "/chat.UserService/ChangePassword"
	UserService_UpdateProfilePicture_FullMethodName = "/chat.UserService/UpdateProfilePicture"
)

// UserServiceServer 服务端接口
type UserServiceServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	Logout(context.Context, *LogoutRequest) (*LogoutResponse, error)
	GetProfile(context.Context, *GetProfileRequest) (*GetProfileResponse, error)
	UpdateProfile(context.Context, *UpdateProfileRequest) (*UpdateProfileResponse, error)
	ChangePassword(context.Context, *ChangePasswordRequest) (*ChangePasswordResponse, error)
	UpdateProfilePicture(context.Context, *UpdateProfilePictureRequest) (*UpdateProfilePictureResponse, error)
}

// UserService_ServiceDesc 注册到 grpc.Server 的服务描述
var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "chat.UserService",
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unaryHandler(UserService_Register_FullMethodName, UserServiceServer.Register)},
		{MethodName: "Login", Handler: unaryHandler(UserService_Login_FullMethodName, UserServiceServer.Login)},
		{MethodName: "Logout", Handler: unaryHandler(UserService_Logout_FullMethodName, UserServiceServer.Logout)},
		{MethodName: "GetProfile", Handler: unaryHandler(UserService_GetProfile_FullMethodName, UserServiceServer.GetProfile)},
		{MethodName: "UpdateProfile", Handler: unaryHandler(UserService_UpdateProfile_FullMethodName, UserServiceServer.UpdateProfile)},
		{MethodName: "ChangePassword", Handler: unaryHandler(UserService_ChangePassword_FullMethodName, UserServiceServer.ChangePassword)},
		{MethodName: "UpdateProfilePicture", Handler: unaryHandler(UserService_UpdateProfilePicture_FullMethodName, UserServiceServer.UpdateProfilePicture)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "chat/user_service",
}

// RegisterUserServiceServer 注册服务实现
func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}

// UserServiceClient 客户端接口
type UserServiceClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error)
	Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error)
	GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*GetProfileResponse, error)
	UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*UpdateProfileResponse, error)
	ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*ChangePasswordResponse, error)
	UpdateProfilePicture(ctx context.Context, in *UpdateProfilePictureRequest, opts ...grpc.CallOption) (*UpdateProfilePictureResponse, error)
}

type userServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewUserServiceClient 创建客户端
func NewUserServiceClient(cc grpc.ClientConnInterface) UserServiceClient {
	return &userServiceClient{cc: cc}
}

func (c *userServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	return invoke[RegisterRequest, RegisterResponse](ctx, c.cc, UserService_Register_FullMethodName, in, opts...)
}

func (c *userServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginRequest, LoginResponse](ctx, c.cc, UserService_Login_FullMethodName, in, opts...)
}

func (c *userServiceClient) Logout(ctx context.Context, in *LogoutRequest, opts ...grpc.CallOption) (*LogoutResponse, error) {
	return invoke[LogoutRequest, LogoutResponse](ctx, c.cc, UserService_Logout_FullMethodName, in, opts...)
}

func (c *userServiceClient) GetProfile(ctx context.Context, in *GetProfileRequest, opts ...grpc.CallOption) (*GetProfileResponse, error) {
	return invoke[GetProfileRequest, GetProfileResponse](ctx, c.cc, UserService_GetProfile_FullMethodName, in, opts...)
}

func (c *userServiceClient) UpdateProfile(ctx context.Context, in *UpdateProfileRequest, opts ...grpc.CallOption) (*UpdateProfileResponse, error) {
	return invoke[UpdateProfileRequest, UpdateProfileResponse](ctx, c.cc, UserService_UpdateProfile_FullMethodName, in, opts...)
}

func (c *userServiceClient) ChangePassword(ctx context.Context, in *ChangePasswordRequest, opts ...grpc.CallOption) (*ChangePasswordResponse, error) {
	return invoke[ChangePasswordRequest, ChangePasswordResponse](ctx, c.cc, UserService_ChangePassword_FullMethodName, in, opts...)
}

func (c *userServiceClient) UpdateProfilePicture(ctx context.Context, in *UpdateProfilePictureRequest, opts ...grpc.CallOption) (*UpdateProfilePictureResponse, error) {
	return invoke[UpdateProfilePictureRequest, UpdateProfilePictureResponse](ctx, c.cc, UserService_UpdateProfilePicture_FullMethodName, in, opts...)
}
