// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"second-brain-go/internal/service"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/token"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// ChatHandler 负责处理问答请求，HTTP 与 WebSocket 两种入口。
type ChatHandler struct {
	chatService service.ChatService
	jwtManager  *token.JWTManager
}

// NewChatHandler 创建一个新的 ChatHandler。
func NewChatHandler(chatService service.ChatService, jwtManager *token.JWTManager) *ChatHandler {
	return &ChatHandler{chatService: chatService, jwtManager: jwtManager}
}

// AskRequest 定义了问答 API 的请求体结构。
type AskRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask 处理一轮同步问答。
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	answer, err := h.chatService.Ask(c.Request.Context(), req.Question)
	if err != nil {
		log.Error("Ask: chat service failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI服务暂时不可用，请稍后重试"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data": gin.H{
			"answer": answer.Text,
			"source": string(answer.Source),
		},
	})
}

// Handle 处理一个传入的 WebSocket 连接。
// 浏览器的 WebSocket API 无法设置请求头，token 从路径参数传入。
func (h *ChatHandler) Handle(c *gin.Context) {
	tokenString := c.Param("token")
	if _, err := h.jwtManager.VerifyToken(tokenString); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"code": http.StatusUnauthorized, "message": "无效的 token", "data": nil})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WebSocket 升级失败", err)
		return
	}
	defer conn.Close()

	log.Info("WebSocket 连接已建立")

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warnf("从 WebSocket 读取消息失败: %v", err)
			break
		}

		answer, err := h.chatService.Ask(c.Request.Context(), string(message))
		if err != nil {
			log.Errorf("处理问答失败: %v", err)
			if werr := conn.WriteJSON(gin.H{"error": "AI服务暂时不可用，请稍后重试"}); werr != nil {
				break
			}
			continue
		}

		if err := conn.WriteJSON(gin.H{
			"chunk":  answer.Text,
			"source": string(answer.Source),
		}); err != nil {
			log.Warnf("写入 WebSocket 消息失败: %v", err)
			break
		}

		// 每轮回答后发送 completion 通知
		if err := conn.WriteJSON(gin.H{
			"type":      "completion",
			"status":    "finished",
			"timestamp": time.Now().UnixMilli(),
		}); err != nil {
			break
		}
	}
}
