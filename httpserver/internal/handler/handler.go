package handler

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"chat-group/httpserver/internal/middleware"
	"chat-group/httpserver/pkg/response"
	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

const defaultPageSize = 20

// Broadcaster 房间广播，由 realtime.Hub 实现
type Broadcaster interface {
	PublishMessage(ctx context.Context, msg *chat.ChatMessage, exclude string) error
	PublishMember(ctx context.Context, channelID uint64, member *chat.Member, exclude string) error
}

// rpcContext 带超时、Token 和请求 ID 的调用上下文
func rpcContext(c *gin.Context, timeout time.Duration, token string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	pairs := []string{"x-request-id", middleware.GetRequestID(c)}
	if token != "" {
		pairs = append(pairs, "authorization", token)
	}
	return metadata.NewOutgoingContext(ctx, metadata.Pairs(pairs...)), cancel
}

// mapRPCCode 将 RPC 业务码映射为 HTTP 响应码
func mapRPCCode(rpcCode int32) int {
	switch rpcCode {
	case chat.CodeInvalidParams:
		return response.CodeInvalidParams
	case chat.CodeInvalidCredential:
		return response.CodeInvalidCredentials
	case chat.CodeUnauthorized:
		return response.CodeUnauthorized
	case chat.CodeUserNotFound:
		return response.CodeUserNotFound
	case chat.CodeChannelNotFound:
		return response.CodeChannelNotFound
	case chat.CodePasswordMismatch:
		return response.CodeOldPasswordWrong
	case chat.CodeNotMember:
		return response.CodeNotMember
	case chat.CodeUserExists:
		return response.CodeUserExists
	case chat.CodeTooManyRequests:
		return response.CodeTooManyRequests
	default:
		return response.CodeInternalServerError
	}
}

// rpcFailed 业务码非 0 时写错误响应
func rpcFailed(c *gin.Context, code int32, message string) bool {
	if code == chat.CodeSuccess {
		return false
	}
	response.Error(c, mapRPCCode(code), message)
	return true
}

// rpcError gRPC 调用本身失败：会话失效、服务不可用、其他
func rpcError(c *gin.Context, method string, err error) {
	switch status.Code(err) {
	case codes.Unauthenticated:
		response.Error(c, response.CodeUnauthorized, "登录已失效，请重新登录")
	case codes.Unavailable, codes.DeadlineExceeded:
		log.Error("rpcserver 不可用", zap.String("method", method), zap.Error(err))
		response.Error(c, response.CodeServiceUnavailable, "")
	default:
		log.Error("RPC调用失败", zap.String("method", method), zap.Error(err))
		response.Error(c, response.CodeRPCError, "")
	}
}

// parseID 路径参数中的十进制 ID
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		response.Error(c, response.CodeBadRequest, "无效的ID")
		return 0, false
	}
	return id, true
}

// pageParams page 从 1 开始；pageSize 上限由 rpcserver 控制，越界或非法时取默认值
func pageParams(c *gin.Context) (int32, int32) {
	return queryInt32(c, "page", 1), queryInt32(c, "pageSize", defaultPageSize)
}

func queryInt32(c *gin.Context, name string, def int32) int32 {
	v, err := strconv.ParseInt(c.Query(name), 10, 32)
	if err != nil || v < 1 {
		return def
	}
	return int32(v)
}

func formatID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// initials 取前两个单词的首字母；只有一个单词时取前两个字母
func initials(name string) string {
	words := strings.Fields(name)

	var out []rune
	switch len(words) {
	case 0:
		return ""
	case 1:
		runes := []rune(words[0])
		if len(runes) > 2 {
			runes = runes[:2]
		}
		out = runes
	default:
		out = []rune{[]rune(words[0])[0], []rune(words[1])[0]}
	}
	return strings.ToUpper(string(out))
}
