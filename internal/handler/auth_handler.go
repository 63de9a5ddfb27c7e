// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"
	"second-brain-go/internal/config"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/token"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler 负责单用户系统的令牌签发。
type AuthHandler struct {
	jwtManager *token.JWTManager
	authCfg    config.AuthConfig
}

// NewAuthHandler 创建一个新的 AuthHandler 实例。
func NewAuthHandler(jwtManager *token.JWTManager, authCfg config.AuthConfig) *AuthHandler {
	return &AuthHandler{jwtManager: jwtManager, authCfg: authCfg}
}

// TokenRequest 定义了换取访问令牌的请求体结构。
type TokenRequest struct {
	Secret string `json:"secret" binding:"required"`
}

// Token 校验访问口令，成功后签发 JWT。
func (h *AuthHandler) Token(c *gin.Context) {
	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.authCfg.SecretHash), []byte(req.Secret)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "访问口令错误"})
		return
	}

	tokenString, err := h.jwtManager.GenerateToken(h.authCfg.Owner)
	if err != nil {
		log.Error("Token: failed to generate token", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "服务器内部错误"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "success",
		"data":    gin.H{"token": tokenString},
	})
}
