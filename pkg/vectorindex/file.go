package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"second-brain-go/pkg/log"
	"sort"
	"sync"
)

// fileFormatVersion 是索引文件的格式版本号。
const fileFormatVersion = 1

// indexFile 是索引文件的持久化结构。
type indexFile struct {
	Version int      `json:"version"`
	Records []Record `json:"records"`
}

// FileIndex 是基于本地 JSON 文件的平铺余弦索引。
// 写者独占（追加+持久化全程持锁），读者之间可并发。
type FileIndex struct {
	mu      sync.RWMutex
	path    string
	records []Record
}

// NewFileIndex 创建一个以 path 为持久化文件的索引实例。
func NewFileIndex(path string) *FileIndex {
	return &FileIndex{path: path}
}

// Load 从磁盘加载索引。文件不存在时得到空索引；文件损坏时
// 记录 warn 并按空索引处理，不让启动失败。
func (x *FileIndex) Load() error {
	x.mu.Lock()
	defer x.mu.Unlock()

	data, err := os.ReadFile(x.path)
	if os.IsNotExist(err) {
		x.records = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("读取索引文件失败: %w", err)
	}

	var f indexFile
	if err := json.Unmarshal(data, &f); err != nil {
		log.Warnf("[VectorIndex] 索引文件 '%s' 无法解析, 按空索引处理: %v", x.path, err)
		x.records = nil
		return nil
	}

	x.records = f.Records
	log.Infof("[VectorIndex] 索引加载完成, path: %s, records: %d", x.path, len(x.records))
	return nil
}

// Append 追加一批记录并原子持久化：先写临时文件再 rename 替换，
// 任一步失败都不修改内存状态，旧索引保持有效且可加载。
func (x *FileIndex) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	next := make([]Record, 0, len(x.records)+len(records))
	next = append(next, x.records...)
	next = append(next, records...)

	if err := x.persist(next); err != nil {
		return err
	}

	x.records = next
	return nil
}

// persist 把给定记录集写入临时文件后 rename 到正式路径。
// 调用方必须已持有写锁。
func (x *FileIndex) persist(records []Record) error {
	data, err := json.Marshal(indexFile{Version: fileFormatVersion, Records: records})
	if err != nil {
		return fmt.Errorf("序列化索引失败: %w", err)
	}

	dir := filepath.Dir(x.path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return fmt.Errorf("创建索引目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".brain_index_*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时索引文件失败: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("写入临时索引文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("关闭临时索引文件失败: %w", err)
	}

	if err := os.Rename(tmpName, x.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("替换索引文件失败: %w", err)
	}
	return nil
}

// Search 对全量记录计算余弦相似度，返回得分最高的 k 条。
// 使用稳定排序，使同分记录保持插入顺序。
func (x *FileIndex) Search(ctx context.Context, vector []float32, k int) ([]Scored, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}

	x.mu.RLock()
	defer x.mu.RUnlock()

	scored := make([]Scored, 0, len(x.records))
	for _, r := range x.records {
		scored = append(scored, Scored{Record: r, Score: CosineSimilarity(vector, r.Vector)})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// Count 返回当前记录数。
func (x *FileIndex) Count() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.records)
}
