// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"second-brain-go/internal/config"
	"second-brain-go/internal/handler"
	"second-brain-go/internal/loader"
	"second-brain-go/internal/middleware"
	"second-brain-go/internal/model"
	"second-brain-go/internal/pipeline"
	"second-brain-go/internal/repository"
	"second-brain-go/internal/service"
	"second-brain-go/internal/store"
	"second-brain-go/pkg/database"
	"second-brain-go/pkg/embedding"
	"second-brain-go/pkg/es"
	"second-brain-go/pkg/kafka"
	"second-brain-go/pkg/llm"
	"second-brain-go/pkg/log"
	"second-brain-go/pkg/storage"
	"second-brain-go/pkg/tika"
	"second-brain-go/pkg/token"
	"second-brain-go/pkg/vectorindex"
	"second-brain-go/pkg/websearch"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitMySQL(cfg.Database.MySQL.DSN)
	if err := database.DB.AutoMigrate(
		&model.ChatTurn{},
		&model.ChunkRecord{},
		&model.IngestedFile{},
	); err != nil {
		log.Fatalf("数据库迁移失败: %v", err)
	}
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化 Repository
	conversationRepo := repository.NewConversationRepository(database.RDB, cfg.Store.HistoryWindow)
	chatTurnRepo := repository.NewChatTurnRepository(database.DB)
	chunkRepo := repository.NewChunkRepository(database.DB)
	ingestedFileRepo := repository.NewIngestedFileRepository(database.DB)

	// 5. 初始化向量索引后端
	index, err := buildIndex(cfg)
	if err != nil {
		log.Fatalf("向量索引初始化失败: %v", err)
	}

	// 6. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours)
	tikaClient := tika.NewClient(cfg.Tika)
	embeddingClient := embedding.NewClient(cfg.Embedding)
	llmClient := llm.NewClient(cfg.LLM)
	searchClient := websearch.NewClient(cfg.WebSearch)
	docLoader := loader.New(tikaClient)

	brainStore := store.New(embeddingClient, index, chunkRepo, cfg.Store)
	memoryService := service.NewMemoryService(llmClient, brainStore)
	chatService := service.NewChatService(
		brainStore,
		llmClient,
		searchClient,
		memoryService,
		conversationRepo,
		chatTurnRepo,
		cfg.Store.TopK,
		cfg.Store.MinChunkChars,
	)
	ingestService := service.NewIngestService(docLoader, brainStore, ingestedFileRepo)

	// 7. 初始化文件处理管道并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(docLoader, ingestService, ingestedFileRepo, cfg.MinIO)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 7.1 启动时导入 seed 目录（幂等，已登记的来源跳过）
	if cfg.Store.SeedDir != "" {
		go seedIngest(cfg.Store.SeedDir, ingestService)
	}

	// 8. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 9. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		// Auth 路由组（公开访问）
		auth := apiV1.Group("/auth")
		{
			auth.POST("/token", handler.NewAuthHandler(jwtManager, cfg.Auth).Token)
		}

		// 其余路由均需认证
		authed := apiV1.Group("/")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			chatHandler := handler.NewChatHandler(chatService, jwtManager)
			authed.POST("/chat", chatHandler.Ask)

			ingestHandler := handler.NewIngestHandler(ingestService, cfg.MinIO)
			authed.POST("/ingest", ingestHandler.Ingest)
			authed.POST("/ingest/upload", ingestHandler.Upload)

			searchHandler := handler.NewSearchHandler(brainStore, chunkRepo, cfg.Store.TopK)
			authed.GET("/search", searchHandler.Search)
			authed.GET("/search/chunks", searchHandler.Chunks)

			historyHandler := handler.NewHistoryHandler(conversationRepo, chatTurnRepo)
			authed.GET("/history", historyHandler.Recent)
			authed.GET("/history/log", historyHandler.Log)
			authed.DELETE("/history", historyHandler.Clear)
		}
	}
	// WebSocket 入口，token 走路径参数
	r.GET("/chat/:token", handler.NewChatHandler(chatService, jwtManager).Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}

// buildIndex 按配置选择向量索引后端并完成加载。
func buildIndex(cfg config.Config) (vectorindex.Index, error) {
	switch cfg.Store.Backend {
	case "elasticsearch":
		index, err := es.NewIndex(cfg.Elasticsearch, cfg.Embedding.Dimensions)
		if err != nil {
			return nil, err
		}
		if err := index.Load(); err != nil {
			return nil, err
		}
		log.Infof("向量索引后端: elasticsearch, index: %s", cfg.Elasticsearch.IndexName)
		return index, nil
	case "file", "":
		index := vectorindex.NewFileIndex(cfg.Store.IndexPath)
		if err := index.Load(); err != nil {
			return nil, err
		}
		log.Infof("向量索引后端: file, path: %s, 已加载 %d 条记录", cfg.Store.IndexPath, index.Count())
		return index, nil
	default:
		return nil, fmt.Errorf("未知的向量索引后端: %s", cfg.Store.Backend)
	}
}

// seedIngest 导入 seed 目录下的文档（幂等，失败只记日志）。
// 逐文件传入，注册表按文件粒度去重，后续新增文件仍能导入。
func seedIngest(dir string, ingestService service.IngestService) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("seedIngest: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	var paths []string
	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if walkErr != nil {
		log.Warnf("seedIngest: 遍历目录 '%s' 发生错误: %v", dir, walkErr)
	}
	if len(paths) == 0 {
		log.Infof("seedIngest: 目录 '%s' 为空，无需导入", dir)
		return
	}

	result, err := ingestService.IngestPaths(context.Background(), paths)
	if err != nil {
		log.Warnf("seedIngest: 导入目录 '%s' 失败: %v", dir, err)
		return
	}
	log.Infof("seedIngest: 导入完成, loaded: %d, chunks: %d, skipped: %d, failed: %d",
		result.Loaded, result.Chunks, result.Skipped, result.Failed)
}
