// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"second-brain-go/internal/repository"
	"second-brain-go/internal/service"
	"second-brain-go/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// SearchHandler 负责知识库的相似度检索与分块查看 API。
type SearchHandler struct {
	retriever   service.Retriever
	chunkRepo   repository.ChunkRepository
	defaultTopK int
}

// NewSearchHandler 创建一个新的 SearchHandler 实例。
func NewSearchHandler(retriever service.Retriever, chunkRepo repository.ChunkRepository, defaultTopK int) *SearchHandler {
	return &SearchHandler{retriever: retriever, chunkRepo: chunkRepo, defaultTopK: defaultTopK}
}

// Search 对知识库做一次相似度检索，返回命中的分块。
func (h *SearchHandler) Search(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 query 参数"})
		return
	}

	topK := h.defaultTopK
	if v := c.Query("top_k"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 top_k 参数"})
			return
		}
		topK = parsed
	}

	results, err := h.retriever.Query(c.Request.Context(), query, topK)
	if err != nil {
		log.Error("Search: failed to query index", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "检索失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"results": results},
	})
}

// Chunks 按来源返回已落库的文本分块，便于核对入库内容。
func (h *SearchHandler) Chunks(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "缺少 source 参数"})
		return
	}

	chunks, err := h.chunkRepo.FindBySource(source)
	if err != nil {
		log.Error("Chunks: failed to load chunk records", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取分块失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"chunks": chunks},
	})
}
