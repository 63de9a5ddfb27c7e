package service

import (
	"context"
	"fmt"
	"second-brain-go/internal/guardrail"
	"second-brain-go/internal/loader"
	"second-brain-go/internal/model"
	"second-brain-go/pkg/llm"
	"second-brain-go/pkg/log"
	"strings"
)

// noneMarker 是抽取提示词约定的"无可复用事实"标记。
const noneMarker = "NONE"

// Ingestor 是记忆回写需要的入库能力（由 store.Store 提供）。
type Ingestor interface {
	BuildFromDocuments(ctx context.Context, documents []model.Document) (int, error)
}

// MemoryService 把一轮已脱敏的问答转化为零或一条新文档并回灌知识库。
// 保证：从不入库未脱敏文本；抽取结果为空时不入库。
type MemoryService interface {
	Learn(ctx context.Context, question, answer string) error
}

type memoryService struct {
	llmClient llm.Client
	ingestor  Ingestor
}

// NewMemoryService 创建一个新的 MemoryService 实例。
func NewMemoryService(llmClient llm.Client, ingestor Ingestor) MemoryService {
	return &memoryService{llmClient: llmClient, ingestor: ingestor}
}

// Learn 抽取可复用事实并写回知识库。
// 抽取结果会再次脱敏；若脱敏后仍残留占位符，说明仅靠脱敏无法
// 彻底清洗，此次写入被拦截并记录日志。
func (s *memoryService) Learn(ctx context.Context, question, answer string) error {
	prompt := fmt.Sprintf(`Extract reusable factual knowledge.

Conversation:
User: %s
Assistant: %s

Rules:
- One fact per line
- No opinions
- If nothing useful return %s`, question, answer, noneMarker)

	extracted, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		return fmt.Errorf("memory extraction failed: %w", err)
	}

	extracted = strings.TrimSpace(extracted)
	if extracted == "" || extracted == noneMarker {
		log.Info("[MemoryService] 本轮无可复用事实, 跳过回写")
		return nil
	}

	redacted := guardrail.Redact(extracted)
	if guardrail.ContainsRedactionMarker(redacted) {
		log.Warnf("[MemoryService] 抽取结果含脱敏占位符, 拦截记忆写入")
		return nil
	}

	doc := loader.FromText(redacted, loader.MemorySource())
	count, err := s.ingestor.BuildFromDocuments(ctx, []model.Document{doc})
	if err != nil {
		return fmt.Errorf("memory ingestion failed: %w", err)
	}
	log.Infof("[MemoryService] 记忆回写完成, 新增分块: %d", count)
	return nil
}
