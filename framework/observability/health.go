package observability

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthCheck интерфейс для health checks
type HealthCheck interface {
	Name() string
	Check(ctx context.Context) error
}

// HealthCheckFunc адаптер функции к HealthCheck
type HealthCheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

// NewHealthCheck создает именованную проверку из функции
func NewHealthCheck(name string, fn func(ctx context.Context) error) *HealthCheckFunc {
	return &HealthCheckFunc{name: name, fn: fn}
}

// Name возвращает имя проверки
func (h *HealthCheckFunc) Name() string {
	return h.name
}

// Check выполняет проверку
func (h *HealthCheckFunc) Check(ctx context.Context) error {
	return h.fn(ctx)
}

// HealthCheckResult результат health check
type HealthCheckResult struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks"`
	Timestamp time.Time              `json:"timestamp"`
}

// CheckResult результат отдельной проверки
type CheckResult struct {
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
	Duration string `json:"duration"`
}

// HealthRegistry набор проверок зависимостей сервиса
type HealthRegistry struct {
	timeout time.Duration
	checks  []HealthCheck
	mu      sync.RWMutex
}

// NewHealthRegistry создает реестр проверок с таймаутом на каждую проверку
func NewHealthRegistry(timeout time.Duration) *HealthRegistry {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthRegistry{timeout: timeout}
}

// Register регистрирует проверку
func (r *HealthRegistry) Register(check HealthCheck) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checks = append(r.checks, check)
}

// Run выполняет все проверки
func (r *HealthRegistry) Run(ctx context.Context) HealthCheckResult {
	r.mu.RLock()
	checks := append([]HealthCheck(nil), r.checks...)
	r.mu.RUnlock()

	result := HealthCheckResult{
		Status:    "healthy",
		Checks:    make(map[string]CheckResult, len(checks)),
		Timestamp: time.Now().UTC(),
	}

	for _, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, r.timeout)
		start := time.Now()
		err := check.Check(checkCtx)
		cancel()

		cr := CheckResult{Status: "healthy", Duration: time.Since(start).String()}
		if err != nil {
			cr.Status = "unhealthy"
			cr.Message = err.Error()
			result.Status = "unhealthy"
		}
		result.Checks[check.Name()] = cr
	}

	return result
}

// Handler возвращает Gin handler для /healthz
func (r *HealthRegistry) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result := r.Run(c.Request.Context())
		if result.Status != "healthy" {
			c.JSON(http.StatusServiceUnavailable, result)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
