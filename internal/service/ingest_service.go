package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"second-brain-go/internal/loader"
	"second-brain-go/internal/model"
	"second-brain-go/internal/repository"
	"second-brain-go/pkg/log"
)

// IngestResult 汇总一次入库批次的结果。
type IngestResult struct {
	Loaded  int `json:"loaded"`  // 新加载的文档数
	Chunks  int `json:"chunks"`  // 生成的分块数
	Skipped int `json:"skipped"` // 因已登记而跳过的来源数
	Failed  int `json:"failed"`  // 加载失败的来源数
}

// IngestService 定义了文档入库的入口。
type IngestService interface {
	// IngestPaths 加载一批服务器本地路径并写入知识库。
	IngestPaths(ctx context.Context, paths []string) (IngestResult, error)
	// IngestDocuments 直接入库已在手的文档（异步管道使用）。
	IngestDocuments(ctx context.Context, documents []model.Document) (int, error)
}

type ingestService struct {
	loader   *loader.Loader
	ingestor Ingestor
	registry repository.IngestedFileRepository
}

// NewIngestService 创建一个新的 IngestService 实例。
func NewIngestService(l *loader.Loader, ingestor Ingestor, registry repository.IngestedFileRepository) IngestService {
	return &ingestService{loader: l, ingestor: ingestor, registry: registry}
}

// IngestPaths 逐路径加载文档。已登记的来源跳过；单个来源的加载
// 失败记录 warn 后计入 Failed，不拖垮整个批次。若批次最终没有产
// 生任何文档且没有任何跳过，返回 ErrEmptyIngestion。
func (s *ingestService) IngestPaths(ctx context.Context, paths []string) (IngestResult, error) {
	var result IngestResult
	var documents []model.Document
	var newSources []string

	for _, path := range paths {
		source := normalizeSource(path)

		exists, err := s.registry.Exists(source)
		if err != nil {
			return result, fmt.Errorf("查询入库注册表失败: %w", err)
		}
		if exists {
			log.Infof("[IngestService] 已入库, 跳过: %s", source)
			result.Skipped++
			continue
		}

		docs, err := s.loader.Load(ctx, path)
		if err != nil {
			var unsupported *loader.UnsupportedFormatError
			if errors.As(err, &unsupported) {
				log.Warnf("[IngestService] 不支持的文件格式 '%s', 跳过: %s", unsupported.Ext, path)
			} else {
				log.Warnf("[IngestService] 加载 '%s' 失败: %v", path, err)
			}
			result.Failed++
			continue
		}
		documents = append(documents, docs...)
		newSources = append(newSources, source)
	}

	if len(documents) == 0 {
		if result.Skipped > 0 {
			// 全部是重复来源：不算错误，本次无新增
			return result, nil
		}
		return result, ErrEmptyIngestion
	}

	chunks, err := s.ingestor.BuildFromDocuments(ctx, documents)
	if err != nil {
		return result, err
	}

	// 入库成功后才登记来源，失败的批次下次可以重试
	for _, source := range newSources {
		if err := s.registry.Register(source, filepath.Base(source)); err != nil {
			log.Warnf("[IngestService] 登记来源 '%s' 失败: %v", source, err)
		}
	}

	result.Loaded = len(documents)
	result.Chunks = chunks
	log.Infof("[IngestService] 批次入库完成, loaded: %d, chunks: %d, skipped: %d, failed: %d",
		result.Loaded, result.Chunks, result.Skipped, result.Failed)
	return result, nil
}

// IngestDocuments 入库已在手的文档，返回分块数。
func (s *ingestService) IngestDocuments(ctx context.Context, documents []model.Document) (int, error) {
	if len(documents) == 0 {
		return 0, ErrEmptyIngestion
	}
	return s.ingestor.BuildFromDocuments(ctx, documents)
}

// normalizeSource 把路径规整为注册表使用的来源标识。
func normalizeSource(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
