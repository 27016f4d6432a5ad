package handler

import (
	"github.com/coupleup/internal/ratelimit"
	"github.com/coupleup/internal/service"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
// 所有服务与限流器在启动时构造一次并注入，不存在包级全局状态。
type API struct {
	db         *gorm.DB
	auth       *service.AuthService
	tokens     *service.TokenService
	couples    *service.CoupleService
	missions   *service.MissionService
	challenges *service.ChallengeService
	scenarios  *service.ScenarioService
	story      *service.StoryService
	limiter    *ratelimit.Limiter
	maxBody    int64
}

// Options 控制 API 的可调参数。
type Options struct {
	MaxBodyBytes int64
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, tokens *service.TokenService, verifier service.IdentityVerifier, limiter *ratelimit.Limiter, opts Options) *API {
	couples := service.NewCoupleService(gdb)

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	return &API{
		db:         gdb,
		auth:       service.NewAuthService(gdb, couples, tokens, verifier),
		tokens:     tokens,
		couples:    couples,
		missions:   service.NewMissionService(gdb),
		challenges: service.NewChallengeService(gdb),
		scenarios:  service.NewScenarioService(gdb),
		story:      service.NewStoryService(gdb),
		limiter:    limiter,
		maxBody:    maxBody,
	}
}

// DB exposes the underlying gorm instance for health checks.
func (a *API) DB() *gorm.DB {
	return a.db
}
