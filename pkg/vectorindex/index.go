// Package vectorindex 定义向量索引能力的接口与本地文件实现。
package vectorindex

import (
	"context"
	"math"
)

// Record 是索引中的一条嵌入记录，入库后不可变。
type Record struct {
	Text     string            `json:"text"`
	Vector   []float32         `json:"vector"`
	Metadata map[string]string `json:"metadata"`
}

// Scored 是一条带相似度得分的检索结果。
type Scored struct {
	Record Record  `json:"record"`
	Score  float64 `json:"score"`
}

// Index 是向量索引能力的抽象：仅追加写入，按相似度做最近邻检索。
// Append 必须是原子的：任一失败都不能留下部分追加的状态。
type Index interface {
	// Load 加载持久化状态；文件不存在视为空索引而非错误。
	Load() error
	// Append 追加一批记录并持久化。
	Append(ctx context.Context, records []Record) error
	// Search 返回与查询向量最相似的至多 k 条记录，按得分降序、
	// 同分按插入顺序稳定排列。
	Search(ctx context.Context, vector []float32, k int) ([]Scored, error)
	// Count 返回当前记录总数。
	Count() int
}

// CosineSimilarity 计算两个向量的余弦相似度，维度不符或零向量返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
