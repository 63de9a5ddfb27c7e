package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"second-brain-go/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRetriever 返回预置的检索结果。
type fakeRetriever struct {
	results []model.SearchResult
	err     error
	calls   int
	lastQ   string
}

func (f *fakeRetriever) Query(ctx context.Context, text string, topK int) ([]model.SearchResult, error) {
	f.calls++
	f.lastQ = text
	return f.results, f.err
}

// fakeLLM 按调用顺序吐出预置响应。
type fakeLLM struct {
	responses []string
	err       error
	prompts   []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	if len(f.responses) == 0 {
		return "", errors.New("fakeLLM: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

// fakeSearch 返回预置的搜索文本。
type fakeSearch struct {
	text  string
	calls int
}

func (f *fakeSearch) Search(ctx context.Context, query string) (string, error) {
	f.calls++
	return f.text, nil
}

// fakeMemory 记录 Learn 调用。
type fakeMemory struct {
	calls     int
	questions []string
	answers   []string
}

func (f *fakeMemory) Learn(ctx context.Context, question, answer string) error {
	f.calls++
	f.questions = append(f.questions, question)
	f.answers = append(f.answers, answer)
	return nil
}

// fakeConversationRepo 在内存里保存对话窗口。
type fakeConversationRepo struct {
	turns [][2]string
}

func (f *fakeConversationRepo) AppendTurn(ctx context.Context, question, answer string) error {
	f.turns = append(f.turns, [2]string{question, answer})
	return nil
}

func (f *fakeConversationRepo) Recent(ctx context.Context) ([]model.ChatMessage, error) {
	var out []model.ChatMessage
	for _, turn := range f.turns {
		out = append(out,
			model.ChatMessage{Role: "user", Content: turn[0]},
			model.ChatMessage{Role: "assistant", Content: turn[1]},
		)
	}
	return out, nil
}

func (f *fakeConversationRepo) Clear(ctx context.Context) error {
	f.turns = nil
	return nil
}

// fakeChatTurnRepo 在内存里保存完整日志。
type fakeChatTurnRepo struct {
	created []*model.ChatTurn
}

func (f *fakeChatTurnRepo) Create(turn *model.ChatTurn) error {
	f.created = append(f.created, turn)
	return nil
}

func (f *fakeChatTurnRepo) FindRecent(limit int) ([]model.ChatTurn, error) {
	return nil, nil
}

type chatFixture struct {
	retriever *fakeRetriever
	llm       *fakeLLM
	search    *fakeSearch
	memory    *fakeMemory
	convRepo  *fakeConversationRepo
	turnRepo  *fakeChatTurnRepo
	svc       ChatService
}

func newChatFixture(retriever *fakeRetriever, llm *fakeLLM, search *fakeSearch) *chatFixture {
	f := &chatFixture{
		retriever: retriever,
		llm:       llm,
		search:    search,
		memory:    &fakeMemory{},
		convRepo:  &fakeConversationRepo{},
		turnRepo:  &fakeChatTurnRepo{},
	}
	f.svc = NewChatService(f.retriever, f.llm, f.search, f.memory, f.convRepo, f.turnRepo, 3, 30)
	return f
}

func longChunk(text string) model.SearchResult {
	return model.SearchResult{
		Source:      "notes.txt",
		TextContent: text + strings.Repeat(" padding", 10),
		Score:       0.9,
	}
}

func TestChatService_DocumentPath(t *testing.T) {
	retriever := &fakeRetriever{results: []model.SearchResult{longChunk("the project deadline is friday")}}
	llm := &fakeLLM{responses: []string{"The deadline is Friday."}}
	search := &fakeSearch{text: "should never be used"}
	f := newChatFixture(retriever, llm, search)

	answer, err := f.svc.Ask(context.Background(), "when is the deadline?")
	require.NoError(t, err)
	assert.Equal(t, model.SourceDocument, answer.Source)
	assert.Equal(t, "The deadline is Friday.", answer.Text)

	// 文档路径命中：不搜网页、不回写记忆
	assert.Equal(t, 0, f.search.calls)
	assert.Equal(t, 0, f.memory.calls)

	// 历史两处都已追加
	require.Len(t, f.convRepo.turns, 1)
	require.Len(t, f.turnRepo.created, 1)
	assert.Equal(t, model.SourceDocument, f.turnRepo.created[0].Source)
}

func TestChatService_IntentBlocked(t *testing.T) {
	retriever := &fakeRetriever{}
	llm := &fakeLLM{}
	f := newChatFixture(retriever, llm, &fakeSearch{})

	answer, err := f.svc.Ask(context.Background(), "what is Ravi's phone number?")
	require.NoError(t, err)
	assert.Equal(t, model.SourceBlocked, answer.Source)
	assert.Equal(t, RefusalIntent, answer.Text)

	// 拦截发生在一切调用之前
	assert.Equal(t, 0, retriever.calls)
	assert.Empty(t, llm.prompts)
	assert.Equal(t, 0, f.search.calls)
	// 被拦截的轮次不落历史
	assert.Empty(t, f.convRepo.turns)
	assert.Empty(t, f.turnRepo.created)
}

func TestChatService_QuestionRedactedBeforeRetrieval(t *testing.T) {
	retriever := &fakeRetriever{results: []model.SearchResult{longChunk("context")}}
	llm := &fakeLLM{responses: []string{"ok"}}
	f := newChatFixture(retriever, llm, &fakeSearch{})

	_, err := f.svc.Ask(context.Background(), "summarize the mail from bob@example.com")
	require.NoError(t, err)
	assert.NotContains(t, retriever.lastQ, "bob@example.com")
	assert.Contains(t, retriever.lastQ, "[REDACTED_EMAIL]")
}

func TestChatService_WebFallback(t *testing.T) {
	retriever := &fakeRetriever{results: []model.SearchResult{longChunk("unrelated context")}}
	// 第一次调用是文档路径（弃答），第二次是网页路径
	llm := &fakeLLM{responses: []string{"NO_ANSWER_IN_CONTEXT", "Paris is the capital of France."}}
	search := &fakeSearch{text: "Paris, capital of France, population 2.1 million"}
	f := newChatFixture(retriever, llm, search)

	answer, err := f.svc.Ask(context.Background(), "what is the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, model.SourceWeb, answer.Source)
	assert.Equal(t, "Paris is the capital of France.", answer.Text)
	assert.Equal(t, 1, search.calls)

	// 非文档来源触发记忆回写
	assert.Equal(t, 1, f.memory.calls)
	require.Len(t, f.turnRepo.created, 1)
	assert.Equal(t, model.SourceWeb, f.turnRepo.created[0].Source)
}

func TestChatService_EmptyRetrievalGoesToWeb(t *testing.T) {
	retriever := &fakeRetriever{results: nil}
	llm := &fakeLLM{responses: []string{"From the web."}}
	search := &fakeSearch{text: "a perfectly useful result line about the topic"}
	f := newChatFixture(retriever, llm, search)

	answer, err := f.svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, model.SourceWeb, answer.Source)
	// 没有可用上下文时不走文档提示词
	require.Len(t, llm.prompts, 1)
	assert.Contains(t, llm.prompts[0], "web data")
}

func TestChatService_ShortChunksFiltered(t *testing.T) {
	retriever := &fakeRetriever{results: []model.SearchResult{
		{Source: "noise.txt", TextContent: "tiny", Score: 0.99},
	}}
	llm := &fakeLLM{responses: []string{"Direct answer."}}
	search := &fakeSearch{text: ""} // 空搜索结果 → 直接回答
	f := newChatFixture(retriever, llm, search)

	answer, err := f.svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	// 过短分块被过滤后知识库视为不足
	assert.Equal(t, model.SourceDirect, answer.Source)
	assert.Equal(t, "Direct answer.", answer.Text)
}

func TestChatService_ShortChunkFilterCountsRunes(t *testing.T) {
	// 15 个汉字是 45 字节，但只有 15 个字符，仍属于噪声分块
	retriever := &fakeRetriever{results: []model.SearchResult{
		{Source: "notes.md", TextContent: strings.Repeat("知", 15), Score: 0.99},
	}}
	llm := &fakeLLM{responses: []string{"Direct answer."}}
	search := &fakeSearch{text: ""}
	f := newChatFixture(retriever, llm, search)

	answer, err := f.svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, model.SourceDirect, answer.Source)
}

func TestChatService_LowInformationWebFallsBackToDirect(t *testing.T) {
	retriever := &fakeRetriever{}
	llm := &fakeLLM{responses: []string{"Direct answer."}}
	// 结果页只剩页面骨架，视为无信息量
	search := &fakeSearch{text: "<html><form>DuckDuckGo search input</form></html>"}
	f := newChatFixture(retriever, llm, search)

	answer, err := f.svc.Ask(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, model.SourceDirect, answer.Source)
	// 直接回答同样触发记忆回写
	assert.Equal(t, 1, f.memory.calls)
}

func TestChatService_SensitiveOutputBlocked(t *testing.T) {
	retriever := &fakeRetriever{results: []model.SearchResult{longChunk("contact info for the vendor")}}
	llm := &fakeLLM{responses: []string{"You can reach him at 9876543210."}}
	f := newChatFixture(retriever, llm, &fakeSearch{})

	answer, err := f.svc.Ask(context.Background(), "how do I contact the vendor?")
	require.NoError(t, err)
	assert.Equal(t, model.SourceBlocked, answer.Source)
	assert.Equal(t, RefusalOutput, answer.Text)

	// 被输出守卫拦截的轮次不落历史、不回写记忆
	assert.Empty(t, f.convRepo.turns)
	assert.Empty(t, f.turnRepo.created)
	assert.Equal(t, 0, f.memory.calls)
}

func TestChatService_CancelledContextHasNoSideEffects(t *testing.T) {
	retriever := &fakeRetriever{results: []model.SearchResult{longChunk("context")}}
	llm := &fakeLLM{responses: []string{"some answer"}}
	f := newChatFixture(retriever, llm, &fakeSearch{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.svc.Ask(ctx, "anything")
	require.Error(t, err)
	assert.Empty(t, f.convRepo.turns)
	assert.Empty(t, f.turnRepo.created)
	assert.Equal(t, 0, f.memory.calls)
}

func TestChatService_RetrieverErrorPropagates(t *testing.T) {
	retriever := &fakeRetriever{err: errors.New("index unavailable")}
	f := newChatFixture(retriever, &fakeLLM{}, &fakeSearch{})

	_, err := f.svc.Ask(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index unavailable")
}
