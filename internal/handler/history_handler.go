// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"second-brain-go/internal/repository"
	"second-brain-go/pkg/log"
	"strconv"

	"github.com/gin-gonic/gin"
)

// HistoryHandler 负责会话历史相关的 API 请求。
type HistoryHandler struct {
	conversationRepo repository.ConversationRepository
	chatTurnRepo     repository.ChatTurnRepository
}

// NewHistoryHandler 创建一个新的 HistoryHandler 实例。
func NewHistoryHandler(
	conversationRepo repository.ConversationRepository,
	chatTurnRepo repository.ChatTurnRepository,
) *HistoryHandler {
	return &HistoryHandler{conversationRepo: conversationRepo, chatTurnRepo: chatTurnRepo}
}

// Recent 返回最近的会话窗口。
func (h *HistoryHandler) Recent(c *gin.Context) {
	messages, err := h.conversationRepo.Recent(c.Request.Context())
	if err != nil {
		log.Error("Recent: failed to load conversation window", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取会话历史失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"messages": messages},
	})
}

// Log 返回 MySQL 完整对话日志中最近的 limit 条（默认 50）。
func (h *HistoryHandler) Log(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "无效的 limit 参数"})
			return
		}
		limit = parsed
	}

	turns, err := h.chatTurnRepo.FindRecent(limit)
	if err != nil {
		log.Error("Log: failed to load chat turns", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "获取对话日志失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"turns": turns},
	})
}

// Clear 清空会话窗口。MySQL 中的完整对话日志不受影响。
func (h *HistoryHandler) Clear(c *gin.Context) {
	if err := h.conversationRepo.Clear(c.Request.Context()); err != nil {
		log.Error("Clear: failed to clear conversation window", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "清空会话历史失败"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "会话历史已清空",
	})
}
