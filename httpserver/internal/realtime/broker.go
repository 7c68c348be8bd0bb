package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	log "chat-group/pkg/logger"
	"chat-group/proto/chat"
)

// Envelope 房间事件，消息保持原始数据，由各网关按连接时区渲染
type Envelope struct {
	ChannelID uint64            `json:"channel_id"`
	Event     string            `json:"event"`
	Exclude   string            `json:"exclude,omitempty"` // 不推送的连接 ID
	Message   *chat.ChatMessage `json:"message,omitempty"`
	Member    *chat.Member      `json:"member,omitempty"`
}

// Broker 房间事件分发
type Broker interface {
	Publish(ctx context.Context, env *Envelope) error
	// Subscribe 注册处理函数，订阅就绪后返回
	Subscribe(ctx context.Context, handle func(*Envelope)) error
	Close() error
}

// ============================================================================
// 进程内实现，单个网关实例时使用
// ============================================================================

type LocalBroker struct {
	mu     sync.RWMutex
	handle func(*Envelope)
}

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{}
}

func (b *LocalBroker) Publish(_ context.Context, env *Envelope) error {
	b.mu.RLock()
	handle := b.handle
	b.mu.RUnlock()

	if handle != nil {
		handle(env)
	}
	return nil
}

func (b *LocalBroker) Subscribe(_ context.Context, handle func(*Envelope)) error {
	b.mu.Lock()
	b.handle = handle
	b.mu.Unlock()
	return nil
}

func (b *LocalBroker) Close() error {
	b.mu.Lock()
	b.handle = nil
	b.mu.Unlock()
	return nil
}

// ============================================================================
// Redis Pub/Sub 实现，多个网关实例共享房间
// ============================================================================

const roomChannelPrefix = "chat:room:"

// RoomChannel 频道对应的 Redis channel
func RoomChannel(channelID uint64) string {
	return roomChannelPrefix + strconv.FormatUint(channelID, 10)
}

type RedisBroker struct {
	client *redis.Client
	mu     sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
}

func NewRedisBroker(client *redis.Client) *RedisBroker {
	return &RedisBroker{client: client}
}

func (b *RedisBroker) Publish(ctx context.Context, env *Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("编码房间事件失败: %w", err)
	}
	if err := b.client.Publish(ctx, RoomChannel(env.ChannelID), payload).Err(); err != nil {
		return fmt.Errorf("发布房间事件失败: %w", err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, handle func(*Envelope)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pubsub != nil {
		return errors.New("重复订阅")
	}

	pubsub := b.client.PSubscribe(ctx, roomChannelPrefix+"*")
	// 等待订阅确认
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("订阅房间事件失败: %w", err)
	}
	b.pubsub = pubsub
	b.done = make(chan struct{})

	go b.consume(pubsub.Channel(), handle, b.done)
	log.Info("已订阅房间事件", zap.String("pattern", roomChannelPrefix+"*"))
	return nil
}

func (b *RedisBroker) consume(ch <-chan *redis.Message, handle func(*Envelope), done chan struct{}) {
	defer close(done)
	for msg := range ch {
		if !strings.HasPrefix(msg.Channel, roomChannelPrefix) {
			continue
		}
		var env Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Warn("丢弃无法解析的房间事件", zap.String("channel", msg.Channel), zap.Error(err))
			continue
		}
		handle(&env)
	}
}

// Close 关闭订阅，等待消费协程退出
func (b *RedisBroker) Close() error {
	b.mu.Lock()
	pubsub, done := b.pubsub, b.done
	b.pubsub = nil
	b.mu.Unlock()

	if pubsub == nil {
		return nil
	}
	err := pubsub.Close()
	<-done
	return err
}
