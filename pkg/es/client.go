// Package es 提供基于 Elasticsearch 的向量索引实现。
package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"second-brain-go/internal/config"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/vectorindex"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// Index 是 vectorindex.Index 的 Elasticsearch 后端。
// 持久化由 ES 自身保证，Load 负责恢复追加序号。
type Index struct {
	client     *elasticsearch.Client
	indexName  string
	dimensions int
	seq        int
}

// NewIndex 初始化 Elasticsearch 客户端并确保目标索引存在。
func NewIndex(esCfg config.ElasticsearchConfig, dimensions int) (*Index, error) {
	cfg := elasticsearch.Config{
		Addresses: []string{esCfg.Addresses},
		Username:  esCfg.Username,
		Password:  esCfg.Password,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
	}
	client, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}

	idx := &Index{client: client, indexName: esCfg.IndexName, dimensions: dimensions}
	if err := idx.createIndexIfNotExists(); err != nil {
		return nil, err
	}
	return idx, nil
}

// createIndexIfNotExists 检查索引是否存在，如果不存在则创建它
func (x *Index) createIndexIfNotExists() error {
	res, err := x.client.Indices.Exists([]string{x.indexName})
	if err != nil {
		log.Errorf("检查索引是否存在时出错: %v", err)
		return err
	}
	// 如果 res.StatusCode 是 200，说明索引已存在
	if !res.IsError() && res.StatusCode == http.StatusOK {
		log.Infof("索引 '%s' 已存在", x.indexName)
		return nil
	}
	if res.StatusCode != http.StatusNotFound {
		log.Errorf("检查索引 '%s' 是否存在时收到意外的状态码: %d", x.indexName, res.StatusCode)
		return fmt.Errorf("检查索引是否存在时收到意外的状态码: %d", res.StatusCode)
	}

	// 向量维度来自 Embedding 能力的配置，相似度与文件索引保持一致（cosine）
	mapping := fmt.Sprintf(`{
		"mappings": {
			"properties": {
				"record_id": { "type": "keyword" },
				"source": { "type": "keyword" },
				"chunk_id": { "type": "keyword" },
				"text_content": { "type": "text" },
				"vector": {
					"type": "dense_vector",
					"dims": %d,
					"index": true,
					"similarity": "cosine"
				},
				"seq": { "type": "long" }
			}
		}
	}`, x.dimensions)

	res, err = x.client.Indices.Create(
		x.indexName,
		x.client.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		log.Errorf("创建索引 '%s' 失败: %v", x.indexName, err)
		return err
	}
	if res.IsError() {
		log.Errorf("创建索引 '%s' 时 Elasticsearch 返回错误: %s", x.indexName, res.String())
		return errors.New("创建索引时 Elasticsearch 返回错误")
	}

	log.Infof("索引 '%s' 创建成功", x.indexName)
	return nil
}

// esDocument 是写入 ES 的文档结构。
type esDocument struct {
	RecordID    string    `json:"record_id"`
	Source      string    `json:"source"`
	ChunkID     string    `json:"chunk_id,omitempty"`
	TextContent string    `json:"text_content"`
	Vector      []float32 `json:"vector"`
	Seq         int       `json:"seq"`
}

// Load 从 ES 恢复追加序号。seq 必须跨进程重启单调递增：
// 否则新写入会复用旧 seq，既打乱同分排序又复用 RecordID 覆盖旧文档。
func (x *Index) Load() error {
	query := `{"size":0,"aggs":{"max_seq":{"max":{"field":"seq"}}}}`
	res, err := x.client.Search(
		x.client.Search.WithIndex(x.indexName),
		x.client.Search.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return fmt.Errorf("恢复追加序号失败: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("恢复追加序号时 Elasticsearch 返回错误: %s", res.String())
	}

	var resp struct {
		Aggregations struct {
			MaxSeq struct {
				Value *float64 `json:"value"`
			} `json:"max_seq"`
		} `json:"aggregations"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		return fmt.Errorf("解析追加序号失败: %w", err)
	}
	// 空索引时聚合值为 null，seq 从 0 开始
	if resp.Aggregations.MaxSeq.Value != nil {
		x.seq = int(*resp.Aggregations.MaxSeq.Value)
	}
	log.Infof("[ES] 追加序号恢复完成, seq: %d", x.seq)
	return nil
}

// Append 将一批记录逐条索引到 Elasticsearch。
// ES 后端的原子性是 best-effort：单条失败立即中止并返回错误。
func (x *Index) Append(ctx context.Context, records []vectorindex.Record) error {
	for _, r := range records {
		x.seq++
		doc := esDocument{
			RecordID:    fmt.Sprintf("%s_%s_%d", r.Metadata["source"], r.Metadata["chunk_id"], x.seq),
			Source:      r.Metadata["source"],
			ChunkID:     r.Metadata["chunk_id"],
			TextContent: r.Text,
			Vector:      r.Vector,
			Seq:         x.seq,
		}
		docBytes, err := json.Marshal(doc)
		if err != nil {
			return err
		}

		req := esapi.IndexRequest{
			Index:      x.indexName,
			DocumentID: doc.RecordID,
			Body:       bytes.NewReader(docBytes),
			Refresh:    "true",
		}
		res, err := req.Do(ctx, x.client)
		if err != nil {
			return err
		}
		if res.IsError() {
			res.Body.Close()
			log.Errorf("索引文档到 Elasticsearch 出错: %s", res.String())
			return errors.New("failed to index document")
		}
		res.Body.Close()
	}
	return nil
}

// Search 执行 kNN 检索，同分按 seq（插入顺序）升序稳定排列。
func (x *Index) Search(ctx context.Context, vector []float32, k int) ([]vectorindex.Scored, error) {
	if k <= 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	esQuery := map[string]interface{}{
		"knn": map[string]interface{}{
			"field":          "vector",
			"query_vector":   vector,
			"k":              k,
			"num_candidates": k * 10,
		},
		"sort": []interface{}{
			map[string]interface{}{"_score": "desc"},
			map[string]interface{}{"seq": "asc"},
		},
		"size": k,
	}
	if err := json.NewEncoder(&buf).Encode(esQuery); err != nil {
		return nil, fmt.Errorf("failed to encode es query: %w", err)
	}

	res, err := x.client.Search(
		x.client.Search.WithContext(ctx),
		x.client.Search.WithIndex(x.indexName),
		x.client.Search.WithBody(&buf),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned an error: %s", res.String())
	}

	var esResponse struct {
		Hits struct {
			Hits []struct {
				Source esDocument `json:"_source"`
				Score  float64    `json:"_score"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&esResponse); err != nil {
		return nil, fmt.Errorf("failed to decode es response: %w", err)
	}

	results := make([]vectorindex.Scored, 0, len(esResponse.Hits.Hits))
	for _, hit := range esResponse.Hits.Hits {
		results = append(results, vectorindex.Scored{
			Record: vectorindex.Record{
				Text:   hit.Source.TextContent,
				Vector: hit.Source.Vector,
				Metadata: map[string]string{
					"source":   hit.Source.Source,
					"chunk_id": hit.Source.ChunkID,
				},
			},
			Score: hit.Score,
		})
	}
	return results, nil
}

// Count 返回索引中的文档总数，查询失败时返回 0。
func (x *Index) Count() int {
	res, err := x.client.Count(x.client.Count.WithIndex(x.indexName))
	if err != nil {
		log.Warnf("[ES] 查询文档总数失败: %v", err)
		return 0
	}
	defer res.Body.Close()

	var countResp struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(res.Body).Decode(&countResp); err != nil {
		return 0
	}
	return countResp.Count
}
