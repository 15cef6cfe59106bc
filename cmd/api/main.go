package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"voicemail/backend/internal/config"
	"voicemail/backend/internal/logger"
	"voicemail/backend/internal/monitoring"
	"voicemail/backend/internal/notify"
	resendmail "voicemail/backend/internal/notify/resend"
	smtpmail "voicemail/backend/internal/notify/smtp"
	"voicemail/backend/internal/service"
	"voicemail/backend/internal/storage"
	"voicemail/backend/internal/storage/blob"
	"voicemail/backend/internal/storage/filesystem"
	"voicemail/backend/internal/storage/memory"
	httptransport "voicemail/backend/internal/transport/http"
)

// main 是留言服务的程序入口
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()
	log.Info("starting voicemail API server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化监控指标
	metrics := monitoring.NewMetrics(prometheus.NewRegistry())

	// 初始化对象存储后端
	var store storage.ObjectStore
	var fsStore *filesystem.Store
	switch cfg.Blob.Backend {
	case "filesystem":
		fsStore, err = filesystem.NewStore(cfg.Blob.Path, cfg.Blob.BaseURL)
		if err != nil {
			log.Fatal("failed to initialize filesystem storage", zap.Error(err))
		}
		store = fsStore
		log.Info("using filesystem object store", zap.String("path", cfg.Blob.Path))
	case "memory":
		store = memory.NewStore()
		log.Warn("using memory object store, uploads will not survive restarts")
	default:
		store = blob.NewClient(cfg.Blob.Endpoint, cfg.Blob.Token)
		log.Info("using blob object store",
			zap.String("endpoint", cfg.Blob.Endpoint),
			zap.Bool("token_present", cfg.Blob.Configured()),
		)
	}

	// 初始化通知发送通道
	var mailer notify.Mailer
	switch cfg.Email.Provider {
	case "smtp":
		mailer = smtpmail.NewMailer(cfg.Email.SMTPAddr, cfg.Email.SMTPUsername, cfg.Email.SMTPPassword)
		log.Info("using SMTP relay for notifications", zap.String("addr", cfg.Email.SMTPAddr))
	default:
		mailer = resendmail.NewMailer(cfg.Email.APIKey)
		log.Info("using Resend for notifications",
			zap.Bool("api_key_present", cfg.Email.Configured()),
		)
	}

	// 初始化服务层
	voicemailService := service.NewVoicemailService(store, mailer, cfg, log, metrics)

	// 初始化健康检查
	health := monitoring.NewHealthChecker(store, log)

	// 创建 HTTP 路由
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:          cfg,
		Service:         voicemailService,
		Metrics:         metrics,
		Health:          health,
		Logger:          log,
		FilesystemStore: fsStore,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 启动 HTTP 服务器
	go func() {
		log.Info("API server listening", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, gracefully shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown error", zap.Error(err))
	} else {
		log.Info("server stopped cleanly")
	}
}
