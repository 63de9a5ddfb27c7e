// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"second-brain-go/internal/guardrail"
	"second-brain-go/internal/model"
	"second-brain-go/internal/repository"
	"second-brain-go/pkg/llm"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/websearch"
	"strings"
	"unicode/utf8"
)

// abstainMarker 是文档路径提示词约定的"上下文中无答案"标记。
// 只在 answerFromDocuments 内部解析一次，解析结果是类型化的 docOutcome，
// 标记字符串不会作为控制流信号扩散到其他地方。
const abstainMarker = "NO_ANSWER_IN_CONTEXT"

// Retriever 是编排器需要的检索能力（由 store.Store 提供）。
type Retriever interface {
	Query(ctx context.Context, text string, topK int) ([]model.SearchResult, error)
}

// MemoryLearner 是编排器需要的记忆回写能力（由 MemoryService 提供）。
type MemoryLearner interface {
	Learn(ctx context.Context, question, answer string) error
}

// ChatService 定义了问答编排的接口。
type ChatService interface {
	// Ask 处理一个问题并返回最终答案。终态为 blocked/document/web/direct 之一。
	Ask(ctx context.Context, question string) (model.Answer, error)
}

type chatService struct {
	retriever        Retriever
	llmClient        llm.Client
	searchClient     websearch.Client
	memory           MemoryLearner
	conversationRepo repository.ConversationRepository
	chatTurnRepo     repository.ChatTurnRepository
	topK             int
	minChunkChars    int
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(
	retriever Retriever,
	llmClient llm.Client,
	searchClient websearch.Client,
	memory MemoryLearner,
	conversationRepo repository.ConversationRepository,
	chatTurnRepo repository.ChatTurnRepository,
	topK int,
	minChunkChars int,
) ChatService {
	if topK <= 0 {
		topK = 3
	}
	if minChunkChars <= 0 {
		minChunkChars = 30
	}
	return &chatService{
		retriever:        retriever,
		llmClient:        llmClient,
		searchClient:     searchClient,
		memory:           memory,
		conversationRepo: conversationRepo,
		chatTurnRepo:     chatTurnRepo,
		topK:             topK,
		minChunkChars:    minChunkChars,
	}
}

// docOutcome 是文档回答步骤的类型化结果。
type docOutcome struct {
	answered bool
	text     string
}

// Ask 按固定顺序执行问答状态机。
func (s *chatService) Ask(ctx context.Context, question string) (model.Answer, error) {
	// 1. 意图拦截：命中即终态，不做检索、不调用模型、不写历史
	if guardrail.DetectIntent(question) {
		log.Warnf("[ChatService] 提问命中 PII 意图拦截")
		return model.Answer{Text: RefusalIntent, Source: model.SourceBlocked}, nil
	}

	// 2. 脱敏 + 检索上下文
	redactedQuestion := guardrail.Redact(question)
	results, err := s.retriever.Query(ctx, redactedQuestion, s.topK)
	if err != nil {
		return model.Answer{}, fmt.Errorf("failed to retrieve context: %w", err)
	}

	// 过滤过短的噪声分块，长度按字符数而不是字节数算
	contextChunks := make([]model.SearchResult, 0, len(results))
	for _, r := range results {
		if utf8.RuneCountInString(strings.TrimSpace(r.TextContent)) >= s.minChunkChars {
			contextChunks = append(contextChunks, r)
		}
	}
	log.Infof("[ChatService] 检索完成, hits: %d, 过滤后: %d", len(results), len(contextChunks))

	var answer string
	var source model.AnswerSource

	// 3. 文档路径
	needFallback := len(contextChunks) == 0
	if !needFallback {
		outcome, err := s.answerFromDocuments(ctx, redactedQuestion, contextChunks)
		if err != nil {
			return model.Answer{}, err
		}
		if outcome.answered {
			answer = outcome.text
			source = model.SourceDocument
		} else {
			// 文档回答明确表示上下文中没有信息
			needFallback = true
		}
	}

	// 4. 网页路径 / 直接路径
	if needFallback {
		log.Info("[ChatService] 知识库不足, 转向网页搜索")
		webText, err := s.searchClient.Search(ctx, redactedQuestion)
		if err != nil {
			return model.Answer{}, fmt.Errorf("web search failed: %w", err)
		}
		if websearch.IsLowInformation(webText) {
			log.Info("[ChatService] 搜索结果无信息量, 退化为直接回答")
			answer, err = s.llmClient.Complete(ctx, redactedQuestion)
			if err != nil {
				return model.Answer{}, fmt.Errorf("direct llm call failed: %w", err)
			}
			source = model.SourceDirect
		} else {
			answer, err = s.answerFromWeb(ctx, redactedQuestion, webText)
			if err != nil {
				return model.Answer{}, err
			}
			source = model.SourceWeb
		}
	}

	// 5. 输出守卫：答案含高置信度 PII 时终态为 blocked，不写历史、不回写记忆
	if guardrail.ContainsSensitiveOutput(answer) {
		log.Warnf("[ChatService] 答案命中输出守卫, source: %s", source)
		return model.Answer{Text: RefusalOutput, Source: model.SourceBlocked}, nil
	}
	redactedAnswer := guardrail.Redact(answer)

	// 请求已取消时不落任何副作用（历史、记忆）
	if err := ctx.Err(); err != nil {
		return model.Answer{}, err
	}

	// 6. 历史追加（两侧均为脱敏后文本）；持久化失败只记日志，不影响已生成的答案
	s.appendHistory(ctx, redactedQuestion, redactedAnswer, source)

	// 7. 记忆回写：仅在答案来自网页/直接路径时触发
	if source != model.SourceDocument {
		if err := s.memory.Learn(ctx, redactedQuestion, redactedAnswer); err != nil {
			log.Errorf("[ChatService] 记忆回写失败: %v", err)
		}
	}

	return model.Answer{Text: redactedAnswer, Source: source}, nil
}

// answerFromDocuments 用检索到的上下文做受限回答，返回类型化结果。
func (s *chatService) answerFromDocuments(ctx context.Context, question string, chunks []model.SearchResult) (docOutcome, error) {
	var contextBuilder strings.Builder
	for i, c := range chunks {
		fileLabel := c.Source
		if fileLabel == "" {
			fileLabel = "unknown"
		}
		contextBuilder.WriteString(fmt.Sprintf("[%d] (%s) %s\n", i+1, fileLabel, c.TextContent))
	}

	prompt := fmt.Sprintf(`Answer ONLY using the context below.

Rules:
- Do NOT use outside knowledge
- Do NOT switch to other entities
- If the information is not in the context, reply with exactly %s

Context:
%s

Question:
%s`, abstainMarker, contextBuilder.String(), question)

	resp, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		return docOutcome{}, fmt.Errorf("document-grounded llm call failed: %w", err)
	}

	resp = strings.TrimSpace(resp)
	if strings.Contains(resp, abstainMarker) {
		return docOutcome{answered: false}, nil
	}
	return docOutcome{answered: true, text: resp}, nil
}

// answerFromWeb 用搜索结果做事实性回答。
func (s *chatService) answerFromWeb(ctx context.Context, question, webText string) (string, error) {
	prompt := fmt.Sprintf(`Answer the question using the web data below.
Be concise and factual.
Do NOT mention HTML or search engines.

Web data:
%s

Question:
%s`, webText, question)

	answer, err := s.llmClient.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("web-grounded llm call failed: %w", err)
	}
	return answer, nil
}

// appendHistory 把脱敏后的一轮问答写入展示窗口与完整日志。
func (s *chatService) appendHistory(ctx context.Context, question, answer string, source model.AnswerSource) {
	if err := s.conversationRepo.AppendTurn(ctx, question, answer); err != nil {
		log.Errorf("[ChatService] 保存对话窗口失败: %v", err)
	}
	if err := s.chatTurnRepo.Create(&model.ChatTurn{
		Question: question,
		Answer:   answer,
		Source:   source,
	}); err != nil {
		log.Errorf("[ChatService] 保存问答日志失败: %v", err)
	}
}
