// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"second-brain-go/internal/model"
	"time"

	"github.com/go-redis/redis/v8"
)

// conversationKey 是单主人助手的对话窗口在 Redis 中的键。
const conversationKey = "brain:conversation"

// conversationTTL 是对话窗口的过期时间，每次追加时刷新。
const conversationTTL = 7 * 24 * time.Hour

// ConversationRepository 定义了近期对话窗口的操作接口。
// 这里只保留展示用的最近 N 轮；完整日志由 ChatTurnRepository 负责。
type ConversationRepository interface {
	AppendTurn(ctx context.Context, question, answer string) error
	Recent(ctx context.Context) ([]model.ChatMessage, error)
	Clear(ctx context.Context) error
}

type redisConversationRepository struct {
	redisClient *redis.Client
	window      int // 保留的轮数
}

// NewConversationRepository 创建一个新的 ConversationRepository 实例。
func NewConversationRepository(redisClient *redis.Client, window int) ConversationRepository {
	if window <= 0 {
		window = 10
	}
	return &redisConversationRepository{redisClient: redisClient, window: window}
}

// AppendTurn 追加一轮问答并截断到最近 window 轮。
// 窗口存为 Redis list，一条消息一个元素；RPUSH+LTRIM 在同一事务
// 管道里提交，并发追加不会丢轮。
func (r *redisConversationRepository) AppendTurn(ctx context.Context, question, answer string) error {
	now := time.Now()
	userMsg, err := json.Marshal(model.ChatMessage{Role: "user", Content: question, Timestamp: now})
	if err != nil {
		return fmt.Errorf("failed to marshal user message: %w", err)
	}
	assistantMsg, err := json.Marshal(model.ChatMessage{Role: "assistant", Content: answer, Timestamp: now})
	if err != nil {
		return fmt.Errorf("failed to marshal assistant message: %w", err)
	}

	pipe := r.redisClient.TxPipeline()
	pipe.RPush(ctx, conversationKey, userMsg, assistantMsg)
	// 每轮两条消息，只保留尾部 window*2 条
	pipe.LTrim(ctx, conversationKey, int64(-r.window*2), -1)
	pipe.Expire(ctx, conversationKey, conversationTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append conversation turn: %w", err)
	}
	return nil
}

// Recent 返回最近的对话窗口。
func (r *redisConversationRepository) Recent(ctx context.Context) ([]model.ChatMessage, error) {
	entries, err := r.redisClient.LRange(ctx, conversationKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation history: %w", err)
	}
	messages := make([]model.ChatMessage, 0, len(entries))
	for _, entry := range entries {
		var msg model.ChatMessage
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conversation message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

// Clear 清空展示窗口。完整日志表不受影响。
func (r *redisConversationRepository) Clear(ctx context.Context) error {
	if err := r.redisClient.Del(ctx, conversationKey).Err(); err != nil {
		return fmt.Errorf("failed to clear conversation history: %w", err)
	}
	return nil
}
