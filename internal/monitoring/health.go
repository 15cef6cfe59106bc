package monitoring

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"voicemail/backend/internal/storage"
)

// HealthChecker 基于 heptiolabs/healthcheck 的健康检查器
type HealthChecker struct {
	health healthcheck.Handler
	store  storage.ObjectStore
	logger *zap.Logger
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(store storage.ObjectStore, logger *zap.Logger) *HealthChecker {
	hc := &HealthChecker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}
	hc.addChecks()
	return hc
}

// addChecks 注册健康检查项
func (hc *HealthChecker) addChecks() {
	// 对象存储凭证/目录检查
	hc.health.AddReadinessCheck("object-store", func() error {
		return hc.store.Health()
	})

	// goroutine 数量检查
	hc.health.AddLivenessCheck("goroutines", healthcheck.GoroutineCountCheck(500))
}

// LiveEndpoint 存活检查端点
func (hc *HealthChecker) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.LiveEndpoint(w, r)
}

// ReadyEndpoint 就绪检查端点
func (hc *HealthChecker) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	hc.health.ReadyEndpoint(w, r)
}
