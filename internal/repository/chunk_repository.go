package repository

import (
	"second-brain-go/internal/model"

	"gorm.io/gorm"
)

// ChunkRepository 定义了对 chunk_records 表的数据操作接口。
type ChunkRepository interface {
	BatchCreate(records []*model.ChunkRecord) error
	FindBySource(source string) ([]*model.ChunkRecord, error)
	DeleteBySource(source string) error
}

type chunkRepository struct {
	db *gorm.DB
}

// NewChunkRepository 创建一个新的 ChunkRepository 实例。
func NewChunkRepository(db *gorm.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

// BatchCreate 批量创建分块记录。
func (r *chunkRepository) BatchCreate(records []*model.ChunkRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.CreateInBatches(records, 100).Error // 每100条记录一批
}

// FindBySource 根据来源标识查找所有相关的分块记录。
func (r *chunkRepository) FindBySource(source string) ([]*model.ChunkRecord, error) {
	var records []*model.ChunkRecord
	err := r.db.Where("source = ?", source).Find(&records).Error
	return records, err
}

// DeleteBySource 根据来源标识删除所有相关的分块记录（重新入库前的幂等清理）。
func (r *chunkRepository) DeleteBySource(source string) error {
	return r.db.Where("source = ?", source).Delete(&model.ChunkRecord{}).Error
}
