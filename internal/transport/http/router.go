package httptransport

import (
	"net/http"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voicemail/backend/internal/config"
	"voicemail/backend/internal/middleware"
	"voicemail/backend/internal/monitoring"
	"voicemail/backend/internal/service"
	"voicemail/backend/internal/storage/filesystem"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config  *config.Config
	Service *service.VoicemailService
	Metrics *monitoring.Metrics
	Health  *monitoring.HealthChecker
	Logger  *zap.Logger

	// FilesystemStore filesystem 后端时非空，用于挂载静态文件服务
	FilesystemStore *filesystem.Store
}

// NewRouter 创建并返回 Gin 路由实例
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	mm := middleware.NewMonitoringMiddleware(deps.Metrics, deps.Logger)

	// 使用自定义中间件替代默认中间件
	router.Use(mm.PanicRecovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(mm.HTTPMetrics())
	router.Use(middleware.BodySizeLimit(deps.Config.Upload.MaxBodyBytes()))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewVoicemailHandler(deps.Service, deps.Config, deps.Logger)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/live", gin.WrapF(deps.Health.LiveEndpoint))
	router.GET("/ready", gin.WrapF(deps.Health.ReadyEndpoint))

	// Prometheus 指标
	router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	// filesystem 后端：挂载本地对象的公开访问路径
	if deps.FilesystemStore != nil {
		router.Static(deps.Config.Blob.BaseURL, deps.FilesystemStore.BasePath())
	}

	// 提交端点用 Any 注册，方法检查在处理器内完成，
	// 非 POST 请求也能收到结构化的 JSON 拒绝而不是裸 404
	v1 := router.Group("/v1")
	{
		v1.Any("/voicemails", handler.Submit)
	}

	// 兼容历史部署的路径
	router.Any("/api/voicemail", handler.Submit)

	return router
}
