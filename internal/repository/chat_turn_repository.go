package repository

import (
	"second-brain-go/internal/model"

	"gorm.io/gorm"
)

// ChatTurnRepository 定义了完整问答日志（仅追加）的操作接口。
type ChatTurnRepository interface {
	Create(turn *model.ChatTurn) error
	FindRecent(limit int) ([]model.ChatTurn, error)
}

type chatTurnRepository struct {
	db *gorm.DB
}

// NewChatTurnRepository 创建一个新的 ChatTurnRepository 实例。
func NewChatTurnRepository(db *gorm.DB) ChatTurnRepository {
	return &chatTurnRepository{db: db}
}

// Create 追加一条问答日志。
func (r *chatTurnRepository) Create(turn *model.ChatTurn) error {
	return r.db.Create(turn).Error
}

// FindRecent 按时间倒序返回最近的 limit 条日志。
func (r *chatTurnRepository) FindRecent(limit int) ([]model.ChatTurn, error) {
	var turns []model.ChatTurn
	err := r.db.Order("id DESC").Limit(limit).Find(&turns).Error
	return turns, err
}
