// Package pipeline 定义了异步入库的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"second-brain-go/internal/config"
	"second-brain-go/internal/loader"
	"second-brain-go/internal/repository"
	"second-brain-go/internal/service"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/storage"
	"second-brain-go/pkg/tasks"
)

// Processor 封装了异步入库任务的所有依赖和逻辑：
// 从 MinIO 下载上传的原始文件 -> Loader 归一化 -> 知识库入库。
type Processor struct {
	loader        *loader.Loader
	ingestService service.IngestService
	registry      repository.IngestedFileRepository
	minioCfg      config.MinIOConfig
}

// NewProcessor 创建一个新的 Processor 实例。
func NewProcessor(
	l *loader.Loader,
	ingestService service.IngestService,
	registry repository.IngestedFileRepository,
	minioCfg config.MinIOConfig,
) *Processor {
	return &Processor{
		loader:        l,
		ingestService: ingestService,
		registry:      registry,
		minioCfg:      minioCfg,
	}
}

// Process 是入库任务的主函数。
func (p *Processor) Process(ctx context.Context, task tasks.IngestionTask) error {
	log.Infof("[Processor] 开始处理入库任务, SourceMD5: %s, FileName: %s", task.SourceMD5, task.FileName)

	// 幂等检查：已登记的来源直接跳过
	exists, err := p.registry.Exists(task.SourceMD5)
	if err != nil {
		return fmt.Errorf("查询入库注册表失败: %w", err)
	}
	if exists {
		log.Infof("[Processor] 来源已入库, 跳过: %s", task.SourceMD5)
		return nil
	}

	// 1. 从 MinIO 下载文件
	log.Infof("[Processor] 步骤1: 从MinIO下载文件, Bucket: %s, Object: %s", p.minioCfg.BucketName, task.ObjectName)
	object, err := storage.GetObject(ctx, p.minioCfg.BucketName, task.ObjectName)
	if err != nil {
		log.Errorf("[Processor] 从MinIO下载文件失败, Object: %s, Error: %v", task.ObjectName, err)
		return fmt.Errorf("从 MinIO 下载文件失败: %w", err)
	}
	defer object.Close()

	// 2. 写入带原始扩展名的临时文件，复用 Loader 的按格式加载
	tmp, err := os.CreateTemp("", "brain_ingest_*"+filepath.Ext(task.FileName))
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, object)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if size == 0 {
		log.Warnf("[Processor] 文件 '%s' 内容为空, 处理中止", task.FileName)
		return errors.New("文件内容为空")
	}
	log.Infof("[Processor] 步骤2: 文件下载成功, 大小: %d字节", size)

	// 3. 归一化 + 分块 + 向量化 + 入库。来源标记为原始文件名而非临时路径。
	log.Info("[Processor] 步骤3: 加载文档并写入知识库")
	documents, err := p.loader.Load(ctx, tmpPath)
	if err != nil {
		log.Errorf("[Processor] 加载文件失败, FileName: %s, Error: %v", task.FileName, err)
		return fmt.Errorf("加载文件失败: %w", err)
	}
	for i := range documents {
		documents[i].Source = task.FileName
	}

	chunks, err := p.ingestService.IngestDocuments(ctx, documents)
	if err != nil {
		log.Errorf("[Processor] 入库失败, FileName: %s, Error: %v", task.FileName, err)
		return err
	}

	// 4. 以内容 MD5 登记来源，临时路径不可复用
	if err := p.registry.Register(task.SourceMD5, task.FileName); err != nil {
		log.Warnf("[Processor] 登记来源 '%s' 失败: %v", task.SourceMD5, err)
	}

	log.Infof("[Processor] 入库任务处理成功, SourceMD5: %s, chunks: %d", task.SourceMD5, chunks)
	return nil
}
