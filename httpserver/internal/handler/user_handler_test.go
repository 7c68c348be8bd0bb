package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"chat-group/httpserver/config"
	"chat-group/httpserver/internal/middleware"
	"chat-group/proto/chat"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

var testProfile = &chat.UserProfile{
	ID:        9007199254740993,
	Username:  "ann_lee",
	Email:     "ann@example.com",
	Name:      "Ann Lee",
	CreatedAt: 1700000000000,
}

func testConfig() *config.Config {
	return &config.Config{
		GRPC:    config.GRPCConfig{Timeout: 1000},
		Cookie:  config.CookieConfig{Name: "auth_token", MaxAge: 7200},
		Storage: config.StorageConfig{MaxAvatarBytes: 1024},
	}
}

func setupUserRouter(users *MockUserClient, store *MockStore) *gin.Engine {
	h := NewUserHandler(users, store, testConfig())

	r := newEngine()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	authed := r.Group("", middleware.RequireToken("auth_token"))
	authed.POST("/auth/logout", h.Logout)
	authed.GET("/profile", h.GetProfile)
	authed.PATCH("/profile", h.UpdateProfile)
	authed.PUT("/profile/password", h.ChangePassword)
	authed.POST("/profile/picture", h.UploadProfilePicture)
	return r
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	req := &chat.RegisterRequest{
		Username: "ann_lee", Email: "ann@example.com", Name: "Ann Lee",
		Password: "Passw0rd!", ConfirmPassword: "Passw0rd!",
	}
	users.On("Register", mock.Anything, req).
		Return(&chat.RegisterResponse{Code: chat.CodeSuccess, Token: testToken, User: testProfile}, nil)

	w, env := doJSON(t, r, http.MethodPost, "/auth/register", map[string]string{
		"username": "ann_lee", "email": "ann@example.com", "name": "Ann Lee",
		"password": "Passw0rd!", "confirm_password": "Passw0rd!",
	}, false)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)

	var view ProfileView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "9007199254740993", view.ID)
	assert.Equal(t, "AL", view.Initials)

	cookie := findCookie(w, "auth_token")
	require.NotNil(t, cookie)
	assert.Equal(t, testToken, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 7200, cookie.MaxAge)
	users.AssertExpectations(t)
}

func TestRegisterConflict(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	users.On("Register", mock.Anything, mock.Anything).
		Return(&chat.RegisterResponse{Code: chat.CodeUserExists, Message: "用户名或邮箱已存在"}, nil)

	w, env := doJSON(t, r, http.MethodPost, "/auth/register", map[string]string{
		"username": "ann_lee", "email": "ann@example.com", "name": "Ann",
		"password": "Passw0rd!", "confirm_password": "Passw0rd!",
	}, false)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 40901, env.Code)
	assert.Equal(t, "用户名或邮箱已存在", env.Message)
	assert.Nil(t, findCookie(w, "auth_token"))
}

func TestRegisterMissingField(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	w, env := doJSON(t, r, http.MethodPost, "/auth/register", map[string]string{"username": "ann"}, false)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 40000, env.Code)
	users.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestLogin(t *testing.T) {
	tests := []struct {
		name       string
		resp       *chat.LoginResponse
		err        error
		wantStatus int
		wantCode   int
	}{
		{
			name:       "成功",
			resp:       &chat.LoginResponse{Code: chat.CodeSuccess, Token: testToken, User: testProfile},
			wantStatus: http.StatusOK,
			wantCode:   0,
		},
		{
			name:       "密码错误",
			resp:       &chat.LoginResponse{Code: chat.CodeInvalidCredential, Message: "用户名或密码错误"},
			wantStatus: http.StatusUnauthorized,
			wantCode:   40103,
		},
		{
			name:       "登录受限",
			resp:       &chat.LoginResponse{Code: chat.CodeTooManyRequests, Message: "登录失败次数过多"},
			wantStatus: http.StatusTooManyRequests,
			wantCode:   42900,
		},
		{
			name:       "rpcserver 不可用",
			err:        status.Error(codes.Unavailable, "connection refused"),
			wantStatus: http.StatusServiceUnavailable,
			wantCode:   50300,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserClient)
			r := setupUserRouter(users, new(MockStore))

			users.On("Login", mock.Anything, &chat.LoginRequest{Username: "ann_lee", Password: "Passw0rd!"}).
				Return(tt.resp, tt.err)

			w, env := doJSON(t, r, http.MethodPost, "/auth/login",
				map[string]string{"username": "ann_lee", "password": "Passw0rd!"}, false)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, env.Code)
			if tt.wantCode == 0 {
				require.NotNil(t, findCookie(w, "auth_token"))
			}
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	users.On("Logout", authed(), &chat.LogoutRequest{}).Return(&chat.LogoutResponse{Code: chat.CodeSuccess}, nil)

	w, env := doJSON(t, r, http.MethodPost, "/auth/logout", nil, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.Code)
	cookie := findCookie(w, "auth_token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Less(t, cookie.MaxAge, 0)
	users.AssertExpectations(t)
}

func TestGetProfile(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	users.On("GetProfile", authed(), &chat.GetProfileRequest{}).
		Return(&chat.GetProfileResponse{Code: chat.CodeSuccess, User: testProfile}, nil)

	w, env := doJSON(t, r, http.MethodGet, "/profile", nil, true)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{
		"id": "9007199254740993",
		"username": "ann_lee",
		"email": "ann@example.com",
		"name": "Ann Lee",
		"profile_picture": "",
		"initials": "AL",
		"created_at": 1700000000000
	}`, string(env.Data))
}

func TestGetProfileWithoutToken(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	w, env := doJSON(t, r, http.MethodGet, "/profile", nil, false)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40100, env.Code)
	users.AssertNotCalled(t, "GetProfile", mock.Anything, mock.Anything)
}

func TestGetProfileSessionExpired(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	users.On("GetProfile", mock.Anything, mock.Anything).
		Return(nil, status.Error(codes.Unauthenticated, "Token 无效或已过期"))

	w, env := doJSON(t, r, http.MethodGet, "/profile", nil, true)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, 40100, env.Code)
}

func TestUpdateProfile(t *testing.T) {
	users := new(MockUserClient)
	r := setupUserRouter(users, new(MockStore))

	updated := *testProfile
	updated.Name = "Annie"
	users.On("UpdateProfile", authed(), &chat.UpdateProfileRequest{Name: "Annie", Email: "ann@example.com"}).
		Return(&chat.UpdateProfileResponse{Code: chat.CodeSuccess, User: &updated}, nil)

	w, env := doJSON(t, r, http.MethodPatch, "/profile",
		map[string]string{"name": "Annie", "email": "ann@example.com"}, true)

	assert.Equal(t, http.StatusOK, w.Code)
	var view ProfileView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "Annie", view.Name)
	assert.Equal(t, "AN", view.Initials)
}

func TestChangePassword(t *testing.T) {
	tests := []struct {
		name       string
		code       int32
		wantStatus int
		wantCode   int
	}{
		{"成功", chat.CodeSuccess, http.StatusOK, 0},
		{"原密码错误", chat.CodePasswordMismatch, http.StatusBadRequest, 40002},
		{"新密码不合法", chat.CodeInvalidParams, http.StatusBadRequest, 40001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserClient)
			r := setupUserRouter(users, new(MockStore))

			users.On("ChangePassword", authed(), &chat.ChangePasswordRequest{
				OldPassword: "Passw0rd!", NewPassword: "N3wPassw0rd!", ConfirmPassword: "N3wPassw0rd!",
			}).Return(&chat.ChangePasswordResponse{Code: tt.code, Message: "x"}, nil)

			w, env := doJSON(t, r, http.MethodPut, "/profile/password", map[string]string{
				"old_password": "Passw0rd!", "new_password": "N3wPassw0rd!", "confirm_password": "N3wPassw0rd!",
			}, true)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, env.Code)
		})
	}
}

// ============================================================================
// 头像上传
// ============================================================================

func uploadRequest(t *testing.T, filename string, content []byte) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/profile/picture", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: testToken})
	return req
}

func serve(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, env
}

func TestUploadProfilePicture(t *testing.T) {
	users := new(MockUserClient)
	store := new(MockStore)
	r := setupUserRouter(users, store)

	keyPrefix := "avatars/9007199254740993-"
	isAvatarKey := mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, keyPrefix) && strings.HasSuffix(key, ".png")
	})

	users.On("GetProfile", authed(), mock.Anything).
		Return(&chat.GetProfileResponse{Code: chat.CodeSuccess, User: testProfile}, nil)
	store.On("Put", mock.Anything, isAvatarKey, pngBytes).Return("/uploads/avatars/x.png", nil)

	withPicture := *testProfile
	withPicture.ProfilePicture = "/uploads/avatars/x.png"
	users.On("UpdateProfilePicture", authed(), &chat.UpdateProfilePictureRequest{ProfilePicture: "/uploads/avatars/x.png"}).
		Return(&chat.UpdateProfilePictureResponse{Code: chat.CodeSuccess, User: &withPicture}, nil)

	w, env := serve(t, r, uploadRequest(t, "me.png", pngBytes))

	assert.Equal(t, http.StatusOK, w.Code)
	var view ProfileView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "/uploads/avatars/x.png", view.ProfilePicture)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	users.AssertExpectations(t)
}

func TestUploadProfilePictureRejects(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  []byte
		wantCode int
	}{
		{"扩展名不支持", "me.gif", pngBytes, 40011},
		{"内容不是图片", "me.png", []byte("definitely not an image"), 40011},
		{"文件过大", "me.png", bytes.Repeat([]byte{0x89}, 2048), 40010},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserClient)
			store := new(MockStore)
			r := setupUserRouter(users, store)

			users.On("GetProfile", mock.Anything, mock.Anything).
				Return(&chat.GetProfileResponse{Code: chat.CodeSuccess, User: testProfile}, nil).Maybe()

			w, env := serve(t, r, uploadRequest(t, tt.filename, tt.content))

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, env.Code)
			store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUploadProfilePictureRollback(t *testing.T) {
	users := new(MockUserClient)
	store := new(MockStore)
	r := setupUserRouter(users, store)

	users.On("GetProfile", mock.Anything, mock.Anything).
		Return(&chat.GetProfileResponse{Code: chat.CodeSuccess, User: testProfile}, nil)
	store.On("Put", mock.Anything, mock.Anything, pngBytes).Return("/uploads/avatars/x.png", nil)
	users.On("UpdateProfilePicture", mock.Anything, mock.Anything).
		Return(nil, status.Error(codes.Unavailable, "down"))
	store.On("Delete", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "avatars/9007199254740993-")
	})).Return(nil)

	w, env := serve(t, r, uploadRequest(t, "me.png", pngBytes))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, 50300, env.Code)
	store.AssertExpectations(t)
}
