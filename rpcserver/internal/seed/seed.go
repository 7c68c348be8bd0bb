// Package seed 生成演示和压测数据
package seed

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	log "chat-group/pkg/logger"
	"chat-group/rpcserver/internal/model"
	"chat-group/rpcserver/internal/repository"
	"chat-group/rpcserver/pkg/db"
	"chat-group/rpcserver/pkg/redis"
)

// DefaultPassword 所有生成用户共用的密码
const DefaultPassword = "P@ssw0rd!"

// Options 数据量与并发
type Options struct {
	Users           int
	BatchSize       int
	Workers         int
	Channels        int
	MessagesPerChan int
	// MessageGap 相邻两条消息的时间间隔，跨过零点时会产生日期分隔
	MessageGap time.Duration
}

// Seeder 通过 Repository 写入数据，保证与线上走同一套 SQL
type Seeder struct {
	users       repository.UserRepository
	channels    repository.ChannelRepository
	memberships repository.MembershipRepository
	messages    repository.MessageRepository
	idGen       db.IDGenerator
	loc         *time.Location

	passwordHash string
}

func NewSeeder(
	users repository.UserRepository,
	channels repository.ChannelRepository,
	memberships repository.MembershipRepository,
	messages repository.MessageRepository,
	idGen db.IDGenerator,
	loc *time.Location,
	bcryptCost int,
) (*Seeder, error) {
	// 预先生成密码哈希（所有用户使用相同密码）
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("生成密码哈希失败: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Seeder{
		users:        users,
		channels:     channels,
		memberships:  memberships,
		messages:     messages,
		idGen:        idGen,
		loc:          loc,
		passwordHash: string(hash),
	}, nil
}

// Username 第 index 个生成用户的用户名（从 1 开始）
func Username(index int) string {
	return fmt.Sprintf("user%08d", index)
}

// ============================================================================
// 用户
// ============================================================================

// SeedUsers 分批并发写入用户，返回全部用户ID（按序号排列）
func (s *Seeder) SeedUsers(ctx context.Context, opts Options, progress *Progress) ([]uint64, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	ids := make([]uint64, opts.Users)
	taskChan := make(chan int, opts.Workers*2)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	// 启动 worker
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for batchStart := range taskChan {
				batchEnd := min(batchStart+opts.BatchSize, opts.Users)

				batch, err := s.buildUsers(batchStart, batchEnd)
				if err == nil {
					err = s.users.BatchCreate(ctx, batch)
				}
				if err != nil {
					log.Error("批量写入用户失败",
						zap.Int("worker", workerID),
						zap.Int("start", batchStart),
						zap.Int("end", batchEnd),
						zap.Error(err))
					errOnce.Do(func() { firstErr = err })
					continue
				}

				for i, u := range batch {
					ids[batchStart+i] = u.ID
				}
				progress.Add(len(batch))
			}
		}(i)
	}

	// 分配任务
	for i := 0; i < opts.Users; i += opts.BatchSize {
		taskChan <- i
	}
	close(taskChan)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return ids, nil
}

func (s *Seeder) buildUsers(start, end int) ([]*model.User, error) {
	now := time.Now().UTC().Truncate(time.Millisecond)
	users := make([]*model.User, 0, end-start)
	for j := start; j < end; j++ {
		id, err := s.idGen.NextID()
		if err != nil {
			return nil, err
		}
		users = append(users, &model.User{
			ID:           id,
			Username:     Username(j + 1),
			Email:        fmt.Sprintf("%s@example.com", Username(j+1)),
			Name:         fmt.Sprintf("User %d", j+1),
			PasswordHash: s.passwordHash,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return users, nil
}

// ============================================================================
// 频道与消息
// ============================================================================

// SeedChannels 轮流由用户创建频道，所有用户加入每个频道
func (s *Seeder) SeedChannels(ctx context.Context, userIDs []uint64, count int) ([]*model.Channel, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	channels := make([]*model.Channel, 0, count)
	for i := 0; i < count; i++ {
		id, err := s.idGen.NextID()
		if err != nil {
			return nil, err
		}
		channel := &model.Channel{
			ID:          id,
			Name:        fmt.Sprintf("Channel %d", i+1),
			Description: fmt.Sprintf("生成的演示频道 #%d", i+1),
			AdminID:     userIDs[i%len(userIDs)],
			CreatedAt:   time.Now().UTC().Truncate(time.Millisecond),
		}
		if err := s.channels.CreateWithAdmin(ctx, channel); err != nil {
			return nil, err
		}

		for _, uid := range userIDs {
			if _, err := s.memberships.Join(ctx, channel.ID, uid, channel.CreatedAt); err != nil {
				return nil, err
			}
		}
		channels = append(channels, channel)
	}
	return channels, nil
}

// SeedMessages 从 start 开始每隔 gap 写入一条消息，发送者轮流
func (s *Seeder) SeedMessages(ctx context.Context, channelID uint64, userIDs []uint64, count int, start time.Time, gap time.Duration) error {
	if len(userIDs) == 0 {
		return nil
	}
	for i := 0; i < count; i++ {
		id, err := s.idGen.NextID()
		if err != nil {
			return err
		}
		msg := &model.Message{
			ID:        id,
			ChannelID: channelID,
			UserID:    userIDs[i%len(userIDs)],
			Text:      fmt.Sprintf("第 %d 条消息", i+1),
			CreatedAt: start.Add(time.Duration(i) * gap).UTC().Truncate(time.Millisecond),
		}
		if err := s.messages.Insert(ctx, msg, s.loc); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// 压测用 Session
// ============================================================================

// TokenResult 生成的 Session
type TokenResult struct {
	Username string
	Token    string
}

// CreateSessions 直接在 Redis 中创建 Session（跳过 bcrypt 校验），失败的条目被跳过
func CreateSessions(ctx context.Context, sessions redis.SessionManager, userIDs []uint64, parallel int) ([]TokenResult, int64) {
	if parallel <= 0 {
		parallel = 1
	}

	results := make([]TokenResult, len(userIDs))
	semaphore := make(chan struct{}, parallel)

	var (
		wg        sync.WaitGroup
		failCount int64
	)
	for i, uid := range userIDs {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(idx int, userID uint64) {
			defer wg.Done()
			defer func() { <-semaphore }()

			token, err := sessions.CreateSession(ctx, userID)
			if err != nil {
				atomic.AddInt64(&failCount, 1)
				return
			}
			results[idx] = TokenResult{Username: Username(idx + 1), Token: token}
		}(i, uid)
	}
	wg.Wait()

	out := results[:0]
	for _, r := range results {
		if r.Token != "" {
			out = append(out, r)
		}
	}
	return out, failCount
}

// WriteTokens 每行 "username token"
func WriteTokens(w io.Writer, tokens []TokenResult) error {
	if _, err := fmt.Fprintf(w, "# 生成时间: %s\n", time.Now().Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	for _, t := range tokens {
		if _, err := fmt.Fprintf(w, "%s %s\n", t.Username, t.Token); err != nil {
			return err
		}
	}
	return nil
}

// ============================================================================
// 进度显示器
// ============================================================================

type Progress struct {
	total     int
	current   atomic.Int64
	startTime time.Time
	out       io.Writer
}

// NewProgress out 为 nil 时不输出
func NewProgress(total int, out io.Writer) *Progress {
	return &Progress{total: total, startTime: time.Now(), out: out}
}

func (p *Progress) Add(n int) {
	current := p.current.Add(int64(n))
	if p.out == nil || p.total == 0 {
		return
	}
	elapsed := time.Since(p.startTime).Seconds()
	fmt.Fprintf(p.out, "\r进度: %d/%d (%.2f%%) | 速度: %.0f 条/秒",
		current, p.total, float64(current)/float64(p.total)*100, float64(current)/elapsed)
}

func (p *Progress) Done() int {
	return int(p.current.Load())
}
