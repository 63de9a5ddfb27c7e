// Package websearch 提供 best-effort 的网页搜索能力。
package websearch

import (
	"context"
	"net/http"
	"net/url"
	"second-brain-go/internal/config"
	"second-brain-go/pkg/log"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Client defines the interface for a web search capability.
// 契约是 best-effort：网络失败返回空文本而不是错误，由调用方的
// 低信息量判断兜底到直接 LLM 回答。
type Client interface {
	Search(ctx context.Context, query string) (string, error)
}

type ddgClient struct {
	cfg    config.WebSearchConfig
	client *http.Client
}

// NewClient 创建一个基于 DuckDuckGo HTML 页面的搜索客户端。
func NewClient(cfg config.WebSearchConfig) Client {
	return &ddgClient{
		cfg:    cfg,
		client: &http.Client{},
	}
}

// Search 向搜索引擎提交查询并返回抽取出的结果文本。
func (c *ddgClient) Search(ctx context.Context, query string) (string, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		// best-effort：网络失败降级为空结果
		log.Warnf("[WebSearch] 搜索请求失败, query: '%s', error: %v", query, err)
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warnf("[WebSearch] 搜索返回非 200 状态码: %s", resp.Status)
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		log.Warnf("[WebSearch] 解析搜索结果页失败: %v", err)
		return "", nil
	}

	return c.extractLines(doc), nil
}

// extractLines 从结果页中抽取标题与摘要行，最多保留 MaxLines 行。
func (c *ddgClient) extractLines(doc *goquery.Document) string {
	maxLines := c.cfg.MaxLines
	if maxLines <= 0 {
		maxLines = 30
	}

	var lines []string
	doc.Find(".result__title, .result__snippet").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if text != "" {
			lines = append(lines, text)
		}
		return len(lines) < maxLines
	})

	// 结果页结构变化时退化为长文本行提取
	if len(lines) == 0 {
		for _, line := range strings.Split(doc.Text(), "\n") {
			line = strings.TrimSpace(line)
			if len(line) > 60 {
				lines = append(lines, line)
			}
			if len(lines) >= maxLines {
				break
			}
		}
	}

	return strings.Join(lines, "\n")
}

// lowInformationSignals 是判定结果文本无信息量的标记词。
// 关键词嗅探是已知的薄弱点：后续可换成搜索能力给出的置信度，
// 不影响编排器侧的调用契约。
var lowInformationSignals = []string{
	"<html",
	"<form",
	"duckduckgo",
	"search input",
	"homepage",
}

// IsLowInformation 判断搜索结果文本是否不足以支撑回答。
func IsLowInformation(text string) bool {
	if strings.TrimSpace(text) == "" {
		return true
	}
	lower := strings.ToLower(text)
	for _, signal := range lowInformationSignals {
		if strings.Contains(lower, signal) {
			return true
		}
	}
	return false
}
