// Package model 包含了应用的数据模型定义。
package model

// Document 代表一份已归一化为纯文本的待入库文档。
// 由 Loader 创建后不可变，是分块与向量化的输入单元。
type Document struct {
	Content  string            `json:"content"`
	Source   string            `json:"source"`
	Metadata map[string]string `json:"metadata"`
}

// SearchResult 定义了返回给调用方的检索结果结构。
type SearchResult struct {
	Source      string  `json:"source"`
	ChunkID     int     `json:"chunkId"`
	TextContent string  `json:"textContent"`
	Score       float64 `json:"score"`
}
