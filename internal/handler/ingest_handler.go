// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"second-brain-go/internal/config"
	"second-brain-go/internal/service"
	"second-brain-go/pkg/kafka"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/storage"
	"second-brain-go/pkg/tasks"

	"github.com/gin-gonic/gin"
)

// IngestHandler 负责处理知识库入库相关的 API 请求。
type IngestHandler struct {
	ingestService service.IngestService
	minioCfg      config.MinIOConfig
}

// NewIngestHandler 创建一个新的 IngestHandler 实例。
func NewIngestHandler(ingestService service.IngestService, minioCfg config.MinIOConfig) *IngestHandler {
	return &IngestHandler{ingestService: ingestService, minioCfg: minioCfg}
}

// IngestRequest 定义了同步入库 API 的请求体结构。
type IngestRequest struct {
	Paths []string `json:"paths" binding:"required,min=1"`
}

// Ingest 同步加载服务器本地路径并写入知识库。
func (h *IngestHandler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求负载"})
		return
	}

	result, err := h.ingestService.IngestPaths(c.Request.Context(), req.Paths)
	if err != nil {
		if errors.Is(err, service.ErrEmptyIngestion) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "没有可入库的文档"})
			return
		}
		log.Error("Ingest: failed to ingest paths", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "入库失败: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    http.StatusOK,
		"message": "入库完成",
		"data":    result,
	})
}

// Upload 接收上传文件，暂存到 MinIO 并投递异步入库任务。
func (h *IngestHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未能获取上传的文件"})
		return
	}
	defer file.Close()

	// 以内容 MD5 作为去重标识和对象名前缀
	var buf bytes.Buffer
	hash := md5.New()
	size, err := io.Copy(io.MultiWriter(&buf, hash), file)
	if err != nil {
		log.Error("Upload: failed to read file", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "读取上传文件失败"})
		return
	}
	if size == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "上传文件为空"})
		return
	}
	sourceMD5 := hex.EncodeToString(hash.Sum(nil))
	objectName := fmt.Sprintf("%s%s", sourceMD5, filepath.Ext(header.Filename))

	if err := storage.PutObject(c.Request.Context(), h.minioCfg.BucketName, objectName, &buf, size); err != nil {
		log.Error("Upload: failed to store object", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "文件暂存失败"})
		return
	}

	task := tasks.IngestionTask{
		SourceMD5:  sourceMD5,
		ObjectName: objectName,
		FileName:   header.Filename,
	}
	if err := kafka.ProduceIngestionTask(task); err != nil {
		log.Error("Upload: failed to produce ingestion task", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投递入库任务失败"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"code":    http.StatusAccepted,
		"message": "文件已接收，任务已发送到 Kafka",
		"data":    gin.H{"source_md5": sourceMD5},
	})
}
