package rpchandler

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-group/proto/chat"
	"chat-group/rpcserver/internal/dto"
	"chat-group/rpcserver/internal/service"
)

var testProfile = &dto.UserProfileDTO{
	ID:        7,
	Username:  "alice",
	Email:     "alice@example.com",
	Name:      "Alice",
	CreatedAt: time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC),
}

func TestMapServiceError(t *testing.T) {
	tests := []struct {
		err  error
		want int32
	}{
		{dto.ErrUsernameInvalid, chat.CodeInvalidParams},
		{dto.ErrMessageTooLong, chat.CodeInvalidParams},
		{service.ErrInvalidCredentials, chat.CodeInvalidCredential},
		{service.ErrLoginLimitExceeded, chat.CodeTooManyRequests},
		{service.ErrUserExists, chat.CodeUserExists},
		{service.ErrEmailTaken, chat.CodeUserExists},
		{service.ErrOldPasswordWrong, chat.CodePasswordMismatch},
		{service.ErrUserNotFound, chat.CodeUserNotFound},
		{fmt.Errorf("visit: %w", service.ErrChannelNotFound), chat.CodeChannelNotFound},
		{service.ErrNotMember, chat.CodeNotMember},
		{errors.New("db down"), chat.CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			code, msg := mapServiceError(tt.err)
			assert.Equal(t, tt.want, code)
			assert.NotEmpty(t, msg)
		})
	}
}

func TestValidationMessagePassedThrough(t *testing.T) {
	_, msg := mapServiceError(dto.ErrPasswordWeak)
	assert.Equal(t, dto.ErrPasswordWeak.Error(), msg)

	// 内部错误不能泄漏细节
	_, msg = mapServiceError(errors.New("dial tcp 10.0.0.1:3306"))
	assert.Equal(t, "内部错误", msg)
}

func TestUserHandler_Register(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)

	svc.On("Register", mock.Anything, mock.MatchedBy(func(d *dto.RegisterDTO) bool {
		return d.Username == "alice" && d.ConfirmPassword == "Passw0rd!"
	})).Return(&dto.LoginResultDTO{Token: "tok", Profile: testProfile}, nil)

	resp, err := h.Register(context.Background(), &chat.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Name: "Alice",
		Password: "Passw0rd!", ConfirmPassword: "Passw0rd!",
	})

	require.NoError(t, err)
	assert.Equal(t, int32(chat.CodeSuccess), resp.Code)
	assert.Equal(t, "tok", resp.Token)
	assert.Equal(t, uint64(7), resp.User.ID)
	assert.Equal(t, testProfile.CreatedAt.UnixMilli(), resp.User.CreatedAt)
}

func TestUserHandler_RegisterConflict(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)
	svc.On("Register", mock.Anything, mock.Anything).Return(nil, service.ErrUserExists)

	resp, err := h.Register(context.Background(), &chat.RegisterRequest{Username: "alice"})

	require.NoError(t, err, "业务错误不走 gRPC status")
	assert.Equal(t, int32(chat.CodeUserExists), resp.Code)
	assert.Empty(t, resp.Token)
	assert.Nil(t, resp.User)
}

func TestUserHandler_LoginLimited(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)
	svc.On("Login", mock.Anything, &dto.LoginDTO{Username: "alice", Password: "x"}).Return(nil, service.ErrLoginLimitExceeded)

	resp, err := h.Login(context.Background(), &chat.LoginRequest{Username: "alice", Password: "x"})

	require.NoError(t, err)
	assert.Equal(t, int32(chat.CodeTooManyRequests), resp.Code)
}

func TestUserHandler_LogoutUsesContextToken(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)
	svc.On("Logout", mock.Anything, &dto.LogoutDTO{Token: "token-abcdefgh-1234"}).Return(nil)

	resp, err := h.Logout(authed(7), &chat.LogoutRequest{})

	require.NoError(t, err)
	assert.Equal(t, int32(chat.CodeSuccess), resp.Code)
	svc.AssertExpectations(t)
}

func TestUserHandler_RequiresAuth(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)
	ctx := context.Background()

	profile, _ := h.GetProfile(ctx, &chat.GetProfileRequest{})
	update, _ := h.UpdateProfile(ctx, &chat.UpdateProfileRequest{Name: "A"})
	password, _ := h.ChangePassword(ctx, &chat.ChangePasswordRequest{})
	picture, _ := h.UpdateProfilePicture(ctx, &chat.UpdateProfilePictureRequest{})

	assert.Equal(t, int32(chat.CodeUnauthorized), profile.Code)
	assert.Equal(t, int32(chat.CodeUnauthorized), update.Code)
	assert.Equal(t, int32(chat.CodeUnauthorized), password.Code)
	assert.Equal(t, int32(chat.CodeUnauthorized), picture.Code)
	svc.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestUserHandler_UpdateProfile(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)

	updated := *testProfile
	updated.Name = "Alice B"
	svc.On("UpdateProfile", mock.Anything, &dto.UpdateProfileDTO{UserID: 7, Name: "Alice B", Email: "alice@example.com"}).
		Return(&updated, nil)

	resp, err := h.UpdateProfile(authed(7), &chat.UpdateProfileRequest{Name: "Alice B", Email: "alice@example.com"})

	require.NoError(t, err)
	assert.Equal(t, int32(chat.CodeSuccess), resp.Code)
	assert.Equal(t, "Alice B", resp.User.Name)
}

func TestUserHandler_ChangePasswordWrongOld(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)
	svc.On("ChangePassword", mock.Anything, mock.Anything).Return(service.ErrOldPasswordWrong)

	resp, err := h.ChangePassword(authed(7), &chat.ChangePasswordRequest{OldPassword: "bad"})

	require.NoError(t, err)
	assert.Equal(t, int32(chat.CodePasswordMismatch), resp.Code)
}

func TestUserHandler_GetProfile(t *testing.T) {
	svc := new(MockUserService)
	h := NewUserServiceHandler(svc)
	svc.On("GetProfile", mock.Anything, uint64(7)).Return(testProfile, nil)

	resp, err := h.GetProfile(authed(7), &chat.GetProfileRequest{})

	require.NoError(t, err)
	assert.Equal(t, "alice", resp.User.Username)
}
