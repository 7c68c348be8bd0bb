package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/config"
)

// loginFailPrefix 失败计数键：login_fail:<小写用户名>
const loginFailPrefix = "login_fail:"

// LoginOptions 固定窗口：第一次失败开始计时，Window 内失败 MaxAttempts 次即锁定到窗口结束
type LoginOptions struct {
	MaxAttempts int64
	Window      time.Duration
}

// LoginOptionsFromConfig 由 login 配置段生成
func LoginOptionsFromConfig(cfg *config.Config) LoginOptions {
	return LoginOptions{
		MaxAttempts: int64(cfg.Login.MaxAttempts),
		Window:      cfg.Login.GetWindow(),
	}
}

func (o LoginOptions) withDefaults() LoginOptions {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Window <= 0 {
		o.Window = 15 * time.Minute
	}
	return o
}

// LoginStatus 某个用户名当前窗口内的状态
type LoginStatus struct {
	Failures  int64
	Remaining int64
	// RetryAfter 仅在锁定时有值
	RetryAfter time.Duration
}

func (s LoginStatus) Locked() bool {
	return s.Remaining <= 0
}

// LoginLimiter 按用户名限制登录失败
type LoginLimiter interface {
	Check(ctx context.Context, username string) (LoginStatus, error)
	RecordFailure(ctx context.Context, username string) (LoginStatus, error)
	Reset(ctx context.Context, username string) error
	Options() LoginOptions
}

type loginLimiter struct {
	client Client
	opts   LoginOptions
}

func NewLoginLimiter(client Client, opts LoginOptions) LoginLimiter {
	return &loginLimiter{client: client, opts: opts.withDefaults()}
}

// loginFailKey 大小写、首尾空白不同的用户名共用一个计数
func loginFailKey(username string) string {
	return loginFailPrefix + strings.ToLower(strings.TrimSpace(username))
}

func (ll *loginLimiter) Options() LoginOptions {
	return ll.opts
}

// status 计数转状态，锁定时查询剩余时间
func (ll *loginLimiter) status(ctx context.Context, key string, failures int64) LoginStatus {
	st := LoginStatus{Failures: failures, Remaining: ll.opts.MaxAttempts - failures}
	if st.Remaining < 0 {
		st.Remaining = 0
	}
	if !st.Locked() {
		return st
	}

	ttl, err := ll.client.TTL(ctx, key)
	if err != nil || ttl <= 0 {
		// 查不到剩余时间时按整个窗口算
		ttl = ll.opts.Window
	}
	st.RetryAfter = ttl
	return st
}

func (ll *loginLimiter) Check(ctx context.Context, username string) (LoginStatus, error) {
	key := loginFailKey(username)

	raw, err := ll.client.Get(ctx, key)
	if err != nil {
		if IsNil(err) {
			return ll.status(ctx, key, 0), nil
		}
		return LoginStatus{}, err
	}

	failures, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return LoginStatus{}, fmt.Errorf("解析登录失败计数失败 %q: %w", raw, err)
	}
	return ll.status(ctx, key, failures), nil
}

// RecordFailure 计数加一，第一次失败时开启窗口
func (ll *loginLimiter) RecordFailure(ctx context.Context, username string) (LoginStatus, error) {
	key := loginFailKey(username)

	failures, err := ll.client.Incr(ctx, key)
	if err != nil {
		return LoginStatus{}, err
	}
	if failures == 1 {
		if err := ll.client.Expire(ctx, key, ll.opts.Window); err != nil {
			// 没有过期时间的计数会永久锁定，删掉重来
			_ = ll.client.Del(ctx, key)
			return LoginStatus{}, fmt.Errorf("设置登录失败窗口失败: %w", err)
		}
	}

	st := ll.status(ctx, key, failures)
	if st.Locked() {
		log.Warn("登录失败次数达到上限",
			zap.String("key", key),
			zap.Int64("failures", failures),
			zap.Duration("retry_after", st.RetryAfter))
	}
	return st, nil
}

func (ll *loginLimiter) Reset(ctx context.Context, username string) error {
	return ll.client.Del(ctx, loginFailKey(username))
}
