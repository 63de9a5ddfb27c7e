package repository

import (
	"errors"
	"second-brain-go/internal/model"

	"gorm.io/gorm"
)

// IngestedFileRepository 定义了已入库文件注册表的操作接口。
type IngestedFileRepository interface {
	Exists(source string) (bool, error)
	Register(source, fileName string) error
}

type ingestedFileRepository struct {
	db *gorm.DB
}

// NewIngestedFileRepository 创建一个新的 IngestedFileRepository 实例。
func NewIngestedFileRepository(db *gorm.DB) IngestedFileRepository {
	return &ingestedFileRepository{db: db}
}

// Exists 判断来源标识是否已经入库。
func (r *ingestedFileRepository) Exists(source string) (bool, error) {
	var record model.IngestedFile
	err := r.db.Where("source = ?", source).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Register 登记一个新的来源标识。
func (r *ingestedFileRepository) Register(source, fileName string) error {
	return r.db.Create(&model.IngestedFile{Source: source, FileName: fileName}).Error
}
