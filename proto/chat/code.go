package chat

// 业务错误码（放在响应体的 Code 字段里，不走 gRPC status）
const (
	CodeSuccess           = 0
	CodeInvalidParams     = 40001 // 参数错误
	CodeInvalidCredential = 40002 // 用户名或密码错误
	CodeUnauthorized      = 40003 // Token无效或已过期
	CodeUserNotFound      = 40004 // 用户不存在
	CodeChannelNotFound   = 40005 // 频道不存在
	CodePasswordMismatch  = 40006 // 原密码错误
	CodeNotMember         = 40301 // 不是频道成员
	CodeUserExists        = 40901 // 用户名或邮箱已存在
	CodeTooManyRequests   = 42901 // 请求过于频繁
	CodeInternalError     = 50001 // 内部错误
)
