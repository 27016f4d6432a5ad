package main

import (
	"log"

	"github.com/coupleup/internal/config"
	"github.com/coupleup/internal/db"
	"github.com/coupleup/internal/handler"
	"github.com/coupleup/internal/logger"
	"github.com/coupleup/internal/ratelimit"
	"github.com/coupleup/internal/router"
	"github.com/coupleup/internal/service"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.Load()

	if err := logger.Configure(cfg.LogLevel); err != nil {
		log.Printf("invalid log level, using info: %v", err)
	}

	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	gdb, err := db.Init(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 启动时幂等补齐预置目录内容
	if cfg.SeedOnStart {
		if err := service.NewSeedService(gdb).Run(service.DefaultSeedCatalog(), false); err != nil {
			log.Fatalf("failed to seed catalog: %v", err)
		}
	}

	tokens := service.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	verifier := service.NewGoogleVerifier(cfg.GoogleClientID)
	limiter := ratelimit.NewRedis(cfg.RedisAddr)

	api := handler.NewAPI(gdb, tokens, verifier, limiter, handler.Options{MaxBodyBytes: cfg.MaxBodyBytes})

	// 设置并运行 Gin 服务器
	r := router.SetupRouter(api)
	logger.Info("starting server", "addr", cfg.ListenAddr)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
