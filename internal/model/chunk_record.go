package model

// ChunkRecord 对应于数据库中的 chunk_records 表。
// 向量化之前先把分块文本落库（阶段一），便于排查与重建索引。
type ChunkRecord struct {
	ID           uint   `gorm:"primaryKey;autoIncrement" json:"id"`
	Source       string `gorm:"type:varchar(255);not null;index" json:"source"`
	ChunkID      int    `gorm:"not null" json:"chunkId"`
	TextContent  string `gorm:"type:text" json:"textContent"`
	ModelVersion string `gorm:"type:varchar(50)" json:"modelVersion"`
}

// TableName 指定了此模型在数据库中对应的表名。
func (ChunkRecord) TableName() string {
	return "chunk_records"
}
