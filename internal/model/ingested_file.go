package model

import "time"

// IngestedFile 对应于数据库中的 ingested_files 表。
// 记录已入库的来源标识（本地路径或上传对象的 MD5），用于跳过重复入库。
type IngestedFile struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Source    string    `gorm:"type:varchar(255);not null;uniqueIndex" json:"source"`
	FileName  string    `gorm:"type:varchar(255)" json:"fileName"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (IngestedFile) TableName() string {
	return "ingested_files"
}
