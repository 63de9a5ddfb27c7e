package model

import "time"

// AnswerSource 标识一次问答的终态来源。
type AnswerSource string

const (
	// SourceBlocked 表示被守卫规则拦截（意图或输出命中 PII）。
	SourceBlocked AnswerSource = "blocked"
	// SourceDocument 表示答案来自已入库文档的上下文。
	SourceDocument AnswerSource = "document"
	// SourceWeb 表示答案来自网页搜索结果。
	SourceWeb AnswerSource = "web"
	// SourceDirect 表示答案来自无上下文的直接 LLM 调用。
	SourceDirect AnswerSource = "direct"
)

// Answer 是编排器对一个问题的最终产出。
type Answer struct {
	Text   string       `json:"text"`
	Source AnswerSource `json:"source"`
}

// ChatMessage 代表存储在 Redis 中的单条对话消息。
type ChatMessage struct {
	Role      string    `json:"role"` // "user" 或 "assistant"
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatTurn 对应于数据库中的 chat_turns 表，保存完整的问答日志。
// 问题与答案均以脱敏后的形式写入，且仅追加不修改。
type ChatTurn struct {
	ID        uint         `gorm:"primaryKey;autoIncrement" json:"id"`
	Question  string       `gorm:"type:text;not null" json:"question"`
	Answer    string       `gorm:"type:text;not null" json:"answer"`
	Source    AnswerSource `gorm:"type:varchar(16);not null" json:"source"`
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChatTurn) TableName() string {
	return "chat_turns"
}
