// Package store 实现了知识库的分块、向量化与最近邻检索。
package store

import (
	"context"
	"fmt"
	"second-brain-go/internal/config"
	"second-brain-go/internal/model"
	"second-brain-go/internal/repository"
	"second-brain-go/pkg/embedding"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/vectorindex"
	"strconv"
	"sync"
)

// Store 把 Embedding 能力与向量索引能力组合成知识库。
// 写入走单写者锁；读与读之间可并发（索引实现内部保证）。
type Store struct {
	embeddingClient embedding.Client
	index           vectorindex.Index
	chunkRepo       repository.ChunkRepository
	chunkSize       int
	chunkOverlap    int

	writeMu sync.Mutex
}

// New 创建一个新的 Store 实例。
func New(
	embeddingClient embedding.Client,
	index vectorindex.Index,
	chunkRepo repository.ChunkRepository,
	cfg config.StoreConfig,
) *Store {
	return &Store{
		embeddingClient: embeddingClient,
		index:           index,
		chunkRepo:       chunkRepo,
		chunkSize:       cfg.ChunkSize,
		chunkOverlap:    cfg.ChunkOverlap,
	}
}

// SplitText 将长文本按指定大小和重叠进行切分。
// 第 i+1 块从 i*(chunkSize-overlap) 开始，相邻块重叠 overlap 个字符，
// 最后一块可以短于 chunkSize。
func SplitText(text string, chunkSize, chunkOverlap int) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	if chunkSize <= 0 {
		// chunk_size 配置非法（0 或负数）时回退到默认值 1000
		chunkSize = 1000
	}
	if chunkSize <= chunkOverlap {
		// overlap 配置非法时退化为不重叠切分
		chunkOverlap = 0
	}

	var chunks []string
	step := chunkSize - chunkOverlap
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// BuildFromDocuments 对全部文档分块、批量向量化并追加到索引。
// 对索引而言是原子操作：向量化或持久化任一失败，索引的内存与
// 磁盘状态都保持调用前的样子。返回生成的分块数。
func (s *Store) BuildFromDocuments(ctx context.Context, documents []model.Document) (int, error) {
	if len(documents) == 0 {
		return 0, nil
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	// 1. 分块
	type chunkWithSource struct {
		text    string
		source  string
		chunkID int
	}
	var chunks []chunkWithSource
	for _, doc := range documents {
		parts := SplitText(doc.Content, s.chunkSize, s.chunkOverlap)
		for i, part := range parts {
			chunks = append(chunks, chunkWithSource{text: part, source: doc.Source, chunkID: i})
		}
	}
	if len(chunks) == 0 {
		log.Warnf("[Store] 文档未产生任何分块, documents: %d", len(documents))
		return 0, nil
	}
	log.Infof("[Store] 分块完成, documents: %d, chunks: %d (size=%d, overlap=%d)",
		len(documents), len(chunks), s.chunkSize, s.chunkOverlap)

	// 阶段一：分块文本先落库（幂等：重新入库前清理同来源旧记录）
	for _, doc := range documents {
		if err := s.chunkRepo.DeleteBySource(doc.Source); err != nil {
			log.Warnf("[Store] 清理 chunk_records 旧记录失败 (source=%s): %v", doc.Source, err)
		}
	}
	dbRecords := make([]*model.ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		dbRecords = append(dbRecords, &model.ChunkRecord{
			Source:      c.source,
			ChunkID:     c.chunkID,
			TextContent: c.text,
		})
	}
	if err := s.chunkRepo.BatchCreate(dbRecords); err != nil {
		return 0, fmt.Errorf("批量保存文本分块失败: %w", err)
	}

	// 阶段二：一次调用批量向量化
	texts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		texts = append(texts, c.text)
	}
	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("批量向量化失败: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("向量数量与分块数量不一致: %d != %d", len(vectors), len(chunks))
	}

	// 维度不变量：每条向量必须等于 Embedding 能力的固定输出维度
	dims := s.embeddingClient.Dimensions()
	records := make([]vectorindex.Record, 0, len(chunks))
	for i, c := range chunks {
		if dims > 0 && len(vectors[i]) != dims {
			return 0, fmt.Errorf("分块 %d 向量维度异常: got %d, want %d", i, len(vectors[i]), dims)
		}
		records = append(records, vectorindex.Record{
			Text:   c.text,
			Vector: vectors[i],
			Metadata: map[string]string{
				"source":   c.source,
				"chunk_id": strconv.Itoa(c.chunkID),
			},
		})
	}

	// 阶段三：原子追加并持久化
	if err := s.index.Append(ctx, records); err != nil {
		return 0, fmt.Errorf("追加向量索引失败: %w", err)
	}

	log.Infof("[Store] 入库完成, 新增 %d 条记录, 索引总量: %d", len(records), s.index.Count())
	return len(chunks), nil
}

// Query 向量化查询文本并做最近邻检索，结果按相似度降序、
// 同分按插入顺序稳定排列。
func (s *Store) Query(ctx context.Context, text string, topK int) ([]model.SearchResult, error) {
	vectors, err := s.embeddingClient.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("received no embedding for query")
	}

	scored, err := s.index.Search(ctx, vectors[0], topK)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	results := make([]model.SearchResult, 0, len(scored))
	for _, sc := range scored {
		chunkID, _ := strconv.Atoi(sc.Record.Metadata["chunk_id"])
		results = append(results, model.SearchResult{
			Source:      sc.Record.Metadata["source"],
			ChunkID:     chunkID,
			TextContent: sc.Record.Text,
			Score:       sc.Score,
		})
	}
	return results, nil
}

// Count 返回索引中的记录总数。
func (s *Store) Count() int {
	return s.index.Count()
}
