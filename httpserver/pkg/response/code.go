package response

// 业务错误码定义，前三位与 HTTP 状态码一致
const (
	// 成功
	CodeSuccess = 0

	// 客户端错误 (400xx)
	CodeBadRequest          = 40000 // 请求参数错误
	CodeInvalidParams       = 40001 // 参数验证失败
	CodeOldPasswordWrong    = 40002 // 原密码错误
	CodeFileTooLarge        = 40010 // 文件过大
	CodeUnsupportedFileType = 40011 // 不支持的文件类型

	// 认证错误 (401xx)
	CodeUnauthorized       = 40100 // 未认证
	CodeInvalidToken       = 40101 // Token无效或已过期
	CodeInvalidCredentials = 40103 // 用户名或密码错误

	// 权限错误 (403xx)
	CodeForbidden = 40300 // 无权限
	CodeNotMember = 40301 // 不是频道成员

	// 资源错误 (404xx)
	CodeNotFound        = 40400 // 资源不存在
	CodeUserNotFound    = 40401 // 用户不存在
	CodeChannelNotFound = 40402 // 频道不存在

	// 冲突 (409xx)
	CodeConflict   = 40900 // 资源冲突
	CodeUserExists = 40901 // 用户名或邮箱已存在

	// 限流 (429xx)
	CodeTooManyRequests = 42900 // 请求过于频繁

	// 服务端错误 (500xx)
	CodeInternalServerError = 50000 // 服务器内部错误
	CodeRPCError            = 50002 // RPC调用错误
	CodeStorageError        = 50003 // 文件存储错误
	CodeServiceUnavailable  = 50300 // 服务不可用
)

// CodeMessage 错误信息映射
var CodeMessage = map[int]string{
	CodeSuccess: "OK",

	CodeBadRequest:          "请求参数错误",
	CodeInvalidParams:       "参数验证失败",
	CodeOldPasswordWrong:    "原密码错误",
	CodeFileTooLarge:        "文件过大",
	CodeUnsupportedFileType: "不支持的文件类型",

	CodeUnauthorized:       "未认证",
	CodeInvalidToken:       "Token无效或已过期",
	CodeInvalidCredentials: "用户名或密码错误",

	CodeForbidden: "无权限",
	CodeNotMember: "请先加入频道",

	CodeNotFound:        "资源不存在",
	CodeUserNotFound:    "用户不存在",
	CodeChannelNotFound: "频道不存在",

	CodeConflict:   "资源冲突",
	CodeUserExists: "用户名或邮箱已存在",

	CodeTooManyRequests: "请求过于频繁",

	CodeInternalServerError: "服务器内部错误",
	CodeRPCError:            "RPC调用错误",
	CodeStorageError:        "文件存储错误",
	CodeServiceUnavailable:  "服务不可用",
}

// GetMessage 获取错误码对应的消息
func GetMessage(code int) string {
	if msg, ok := CodeMessage[code]; ok {
		return msg
	}
	return "未知错误"
}
