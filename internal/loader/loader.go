// Package loader 负责把原始文件转换为归一化的文本文档。
package loader

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"second-brain-go/internal/model"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/tika"
	"strings"
	"time"
)

// UnsupportedFormatError 表示文件扩展名不在支持范围内。
// 对单个文件是致命错误，但不影响同批次的其他文件。
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s", e.Ext)
}

// Loader 把文件路径转换为 Document 列表。
// .txt/.md 直接读取；.pdf/.docx 交给 Tika 抽取文本。
type Loader struct {
	tikaClient *tika.Client
}

// New 创建一个新的 Loader 实例。
func New(tikaClient *tika.Client) *Loader {
	return &Loader{tikaClient: tikaClient}
}

// Load 加载一个路径。目录会被递归展开，目录内单个文件的失败
// 记录 warn 后跳过（不会被悄悄当作成功）；若目录内没有任何文件
// 加载成功且存在失败，则返回首个错误。
func (l *Loader) Load(ctx context.Context, path string) ([]model.Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("无法访问路径 '%s': %w", path, err)
	}

	if !info.IsDir() {
		doc, err := l.loadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		return []model.Document{doc}, nil
	}

	var documents []model.Document
	var firstErr error
	walkErr := filepath.Walk(path, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			log.Warnf("[Loader] 遍历 '%s' 出错, 跳过: %v", p, err)
			return nil
		}
		if fi.IsDir() {
			return nil
		}
		doc, loadErr := l.loadFile(ctx, p)
		if loadErr != nil {
			log.Warnf("[Loader] 加载文件 '%s' 失败, 跳过: %v", p, loadErr)
			if firstErr == nil {
				firstErr = loadErr
			}
			return nil
		}
		documents = append(documents, doc)
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("遍历目录 '%s' 失败: %w", path, walkErr)
	}
	if len(documents) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return documents, nil
}

// loadFile 按扩展名加载单个文件。
func (l *Loader) loadFile(ctx context.Context, path string) (model.Document, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		data, err := os.ReadFile(path)
		if err != nil {
			return model.Document{}, fmt.Errorf("读取文件 '%s' 失败: %w", path, err)
		}
		return newDocument(string(data), path), nil

	case ".pdf", ".docx":
		f, err := os.Open(path)
		if err != nil {
			return model.Document{}, fmt.Errorf("打开文件 '%s' 失败: %w", path, err)
		}
		defer f.Close()
		text, err := l.tikaClient.ExtractText(ctx, f, filepath.Base(path))
		if err != nil {
			return model.Document{}, fmt.Errorf("提取 '%s' 文本失败: %w", path, err)
		}
		return newDocument(text, path), nil

	default:
		return model.Document{}, &UnsupportedFormatError{Ext: ext}
	}
}

// FromText 把已在手的文本包装成文档，绕过文件系统。
// 记忆回写走这条路：source 标记为 memory:<纳秒时间戳>。
func FromText(content, source string) model.Document {
	doc := newDocument(content, source)
	doc.Metadata["ephemeral"] = "true"
	return doc
}

// MemorySource 生成一次记忆回写的来源标识。
func MemorySource() string {
	return fmt.Sprintf("memory:%d", time.Now().UnixNano())
}

func newDocument(content, source string) model.Document {
	return model.Document{
		Content: content,
		Source:  source,
		Metadata: map[string]string{
			"source": source,
		},
	}
}
