// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"edi-assistant-go/internal/audit"
	"edi-assistant-go/internal/config"
	"edi-assistant-go/internal/generator"
	"edi-assistant-go/internal/handler"
	"edi-assistant-go/internal/middleware"
	"edi-assistant-go/internal/repository"
	"edi-assistant-go/internal/retriever"
	"edi-assistant-go/internal/service"
	"edi-assistant-go/pkg/database"
	"edi-assistant-go/pkg/embedding"
	"edi-assistant-go/pkg/kafka"
	"edi-assistant-go/pkg/llm"
	"edi-assistant-go/pkg/log"
	"edi-assistant-go/pkg/storage"

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

	// 3. 初始化可选的基础设施：Redis、MySQL、Kafka，未配置则跳过
	if cfg.Database.Redis.Addr != "" {
		if err := database.InitRedis(cfg.Database.Redis); err != nil {
			log.Fatal("Redis 初始化失败", err)
		}
	}
	if cfg.Database.MySQL.DSN != "" {
		if err := database.InitMySQL(cfg.Database.MySQL.DSN); err != nil {
			log.Fatal("MySQL 初始化失败", err)
		}
	}
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	if cfg.Kafka.Brokers != "" {
		kafka.InitProducer(cfg.Kafka)
		if database.DB != nil {
			// 启动后台 Kafka 消费者，将审计事件写入 MySQL
			go kafka.StartConsumer(consumerCtx, cfg.Kafka, repository.NewAskLogRepository(database.DB))
		}
	}

	// 4. 本地缺少索引产物时从 MinIO 拉取
	if err := fetchArtifactsIfMissing(cfg); err != nil {
		log.Fatal("拉取索引产物失败", err)
	}

	// 5. 加载索引，配置或索引错误直接退出
	embeddingClient := embedding.NewClient(cfg.Embedding)
	ret := retriever.New(
		retriever.FileLoader(cfg.Index.IndexPath, cfg.Index.DocsPath),
		embeddingClient,
		retriever.Options{MaxQueryChars: cfg.Retrieval.MaxQueryChars},
	)
	if err := ret.Warmup(); err != nil {
		log.Fatal("加载索引失败", err)
	}

	// 6. 初始化 Service (依赖注入)
	temperature := cfg.LLM.Generation.Temperature
	gen := generator.New(llm.NewClient(cfg.LLM), generator.Options{
		SystemPrompt: cfg.LLM.Prompt.Rules,
		NoResultText: cfg.LLM.Prompt.NoResultText,
		Temperature:  &temperature,
		MaxTokens:    cfg.LLM.Generation.MaxTokens,
	})
	var sessionService service.SessionService
	if database.RDB != nil {
		sessionService = service.NewSessionService(repository.NewSessionRepository(database.RDB))
	}
	askService := service.NewAskService(ret, gen, sessionService, service.AskOptions{
		TopK:     cfg.Retrieval.TopK,
		MinScore: cfg.Retrieval.MinScore,
	})

	// 7. 审计与限流
	auditSalt, generated, err := audit.ResolveSalt(cfg.Audit.Salt)
	if err != nil {
		log.Fatal("初始化审计盐失败", err)
	}
	if generated {
		log.Warnf("[Audit] 未配置 audit.salt, 已生成进程内随机盐, 重启后客户端哈希无法跨进程关联")
	}
	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		recorder = audit.NewRecorder(auditSink(cfg), cfg.Audit.Buffer)
	}
	window := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
	var limiter middleware.Limiter
	if database.RDB != nil {
		limiter = middleware.NewRedisLimiter(database.RDB, cfg.RateLimit.Requests, window)
	} else {
		limiter = middleware.NewMemoryLimiter(cfg.RateLimit.Requests, window)
	}

	// 8. 设置 Gin 模式并注册路由
	gin.SetMode(cfg.Server.Mode)
	opts := handler.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Limiter:        limiter,
		AuditSalt:      auditSalt,
	}
	if recorder != nil {
		opts.Recorder = recorder
	}
	if sessionService != nil {
		opts.Sessions = handler.NewSessionHandler(sessionService)
	}
	r := handler.NewRouter(handler.NewAskHandler(askService), opts)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	// 先排空审计队列，再关闭生产者与消费者
	if recorder != nil {
		if err := recorder.Close(ctx); err != nil {
			log.Warnf("审计事件未全部写出: %v", err)
		}
	}
	if err := kafka.CloseProducer(); err != nil {
		log.Warnf("关闭 Kafka 生产者失败: %v", err)
	}
	stopConsumer()
	log.Info("服务已优雅关闭")
}

// auditSink 按可用的基础设施选择审计事件的落地方式：Kafka 优先，其次 MySQL，最后只写日志。
func auditSink(cfg config.Config) audit.Sink {
	switch {
	case cfg.Kafka.Brokers != "":
		return audit.SinkFunc(kafka.ProduceAskEvent)
	case database.DB != nil:
		return audit.NewRepositorySink(repository.NewAskLogRepository(database.DB))
	default:
		return audit.LogSink{}
	}
}

// fetchArtifactsIfMissing 在本地缺少任一产物且配置了 MinIO 时下载成对产物。
func fetchArtifactsIfMissing(cfg config.Config) error {
	if !storage.Enabled(cfg.MinIO) {
		return nil
	}
	if fileExists(cfg.Index.IndexPath) && fileExists(cfg.Index.DocsPath) {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := storage.InitMinIO(ctx, cfg.MinIO); err != nil {
		return err
	}
	log.Info("本地缺少索引产物, 从 MinIO 下载")
	return storage.FetchArtifacts(ctx, cfg.MinIO, cfg.Index.IndexPath, cfg.Index.DocsPath)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
