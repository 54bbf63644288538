// Package main 是应用程序的入口点。
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"sqlchat-go/internal/config"
	"sqlchat-go/internal/executor"
	"sqlchat-go/internal/handler"
	"sqlchat-go/internal/metrics"
	"sqlchat-go/internal/middleware"
	"sqlchat-go/internal/model"
	"sqlchat-go/internal/nl2sql"
	"sqlchat-go/internal/pipeline"
	"sqlchat-go/internal/repository"
	"sqlchat-go/internal/service"
	"sqlchat-go/internal/synthesis"
	"sqlchat-go/pkg/database"
	"sqlchat-go/pkg/kafka"
	"sqlchat-go/pkg/llm"
	"sqlchat-go/pkg/log"
	"sqlchat-go/pkg/token"
)

func main() {
	configPath := flag.String("config", "./configs/config.yaml", "配置文件路径")
	flag.Parse()

	// 1. 初始化配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	db, err := database.InitMySQL(cfg.Database.MySQL)
	if err != nil {
		log.Fatalf("MySQL 初始化失败: %v", err)
	}
	if cfg.Database.MySQL.AutoMigrate {
		if err := database.AutoMigrate(db, &model.User{}, &model.Conversation{}, &model.ChatHistory{}, &model.QueryAudit{}); err != nil {
			log.Fatalf("数据表迁移失败: %v", err)
		}
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取底层连接池失败: %v", err)
	}
	rdb, err := database.InitRedis(cfg.Database.Redis)
	if err != nil {
		// 标题缓存只是加速，Redis 不可用时退回到直接查库
		log.Warnf("Redis 初始化失败，禁用会话标题缓存: %v", err)
		rdb = nil
	}

	// 4. 初始化 Repository
	userRepo := repository.NewUserRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	titleCache := repository.NewTitleCache(rdb, time.Duration(cfg.Database.Redis.TitleTTLHours)*time.Hour)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpireHours)*time.Hour)
	userService := service.NewUserService(userRepo, jwtManager)
	conversationService := service.NewConversationService(conversationRepo, titleCache)
	adminService := service.NewAdminService(userRepo, auditRepo)
	auditRecorder := service.NewAuditRecorder(auditRepo)

	// 6. 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	// 7. 审计：配置了 Kafka 时异步写入，否则直接落库
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()
	consumerDone := make(chan struct{})
	var audits pipeline.AuditPublisher = auditRecorder
	var producer *kafka.Producer
	if len(cfg.Kafka.BrokerList()) > 0 {
		producer = kafka.NewProducer(cfg.Kafka)
		audits = producer
		go func() {
			defer close(consumerDone)
			kafka.StartConsumer(consumerCtx, cfg.Kafka, auditRecorder)
		}()
	} else {
		close(consumerDone)
		log.Info("未配置 Kafka，审计记录直接写入数据库")
	}

	// 8. 初始化查询流水线
	llmClient := llm.NewClient(cfg.LLM)
	processor := pipeline.NewProcessor(
		nl2sql.NewTranslator(llmClient, nl2sql.DefaultVocabulary(), cfg.LLM.Timeout()),
		executor.NewExecutor(sqlDB, cfg.Database.StatementTimeout()),
		synthesis.NewSynthesizer(llmClient, cfg.LLM.Timeout()),
		conversationService,
		audits,
		collector,
		cfg.Pipeline,
	)

	loginLimiter := middleware.NewRateLimiter("login", cfg.RateLimit.LoginPerMinute, 5*time.Minute)
	defer loginLimiter.Stop()
	queryLimiter := middleware.NewRateLimiter("query", cfg.RateLimit.QueryPerMinute, 5*time.Minute)
	defer queryLimiter.Stop()

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(collector, "/login"), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(registry)))

	// 10. 注册路由
	userHandler := handler.NewUserHandler(userService)
	queryHandler := handler.NewQueryHandler(processor)
	conversationHandler := handler.NewConversationHandler(conversationService)
	adminHandler := handler.NewAdminHandler(adminService, userService)

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/login", loginLimiter.Middleware(middleware.ByClientIP), userHandler.Login)

		authed := apiV1.Group("")
		authed.Use(middleware.AuthMiddleware(jwtManager))
		{
			authed.GET("/me", userHandler.GetProfile)
			authed.POST("/query", queryLimiter.Middleware(middleware.ByUser), queryHandler.Query)
			authed.GET("/conversations", conversationHandler.GetConversations)
			authed.GET("/conversation/:id", conversationHandler.GetConversationHistory)
		}

		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin := apiV1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtManager), middleware.AdminAuthMiddleware())
		{
			admin.POST("/users", adminHandler.ProvisionUser)
			admin.GET("/users", adminHandler.ListUsers)
			admin.GET("/audits", adminHandler.ListAudits)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP 服务监听失败: %s", err)
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

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("HTTP 服务器关闭失败: %v", err)
	}
	processor.Wait()

	// 先关闭生产者刷出缓冲的审计，再停止消费者
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("关闭 Kafka 生产者失败: %v", err)
		}
	}
	stopConsumer()
	select {
	case <-consumerDone:
	case <-ctx.Done():
		log.Warnf("等待 Kafka 消费者退出超时")
	}

	if rdb != nil {
		_ = rdb.Close()
	}
	if err := sqlDB.Close(); err != nil {
		log.Errorf("关闭数据库连接失败: %v", err)
	}
	log.Info("服务已优雅关闭")
}
