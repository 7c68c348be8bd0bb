package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Success 返回成功响应
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "OK",
		Data:    data,
	})
}

// SuccessWithMessage 返回带自定义消息的成功响应
func SuccessWithMessage(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: message,
		Data:    data,
	})
}

// Error 返回错误响应，message 为空时使用错误码的默认消息
func Error(c *gin.Context, code int, message string) {
	if message == "" {
		message = GetMessage(code)
	}
	c.JSON(GetHTTPStatus(code), Response{
		Code:    code,
		Message: message,
	})
}

// Abort 返回错误响应并终止后续中间件
func Abort(c *gin.Context, code int, message string) {
	Error(c, code, message)
	c.Abort()
}

// GetHTTPStatus 根据业务错误码获取HTTP状态码
func GetHTTPStatus(code int) int {
	switch {
	case code == CodeSuccess:
		return http.StatusOK
	case code >= 40000 && code < 40100:
		return http.StatusBadRequest
	case code >= 40100 && code < 40300:
		return http.StatusUnauthorized
	case code >= 40300 && code < 40400:
		return http.StatusForbidden
	case code >= 40400 && code < 40900:
		return http.StatusNotFound
	case code >= 40900 && code < 42900:
		return http.StatusConflict
	case code >= 42900 && code < 50000:
		return http.StatusTooManyRequests
	case code >= 50300:
		return http.StatusServiceUnavailable
	case code >= 50000:
		return http.StatusInternalServerError
	default:
		return http.StatusOK
	}
}
