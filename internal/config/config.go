package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr      string
	Port            string
	DatabaseDriver  string
	DatabaseDSN     string
	GinMode         string
	LogLevel        string
	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	GoogleClientID  string
	RedisAddr       string
	MaxBodyBytes    int64
	SeedOnStart     bool
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databaseDriver := strings.TrimSpace(os.Getenv("DATABASE_DRIVER"))
	if databaseDriver == "" {
		databaseDriver = "sqlite"
	}

	databaseDSN := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if databaseDSN == "" && databaseDriver == "sqlite" {
		databaseDSN = "coupleup.db"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	logLevel := strings.TrimSpace(os.Getenv("LOG_LEVEL"))
	if logLevel == "" {
		logLevel = "info"
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = "coupleup-dev-secret"
	}

	accessTTL := durationEnv("ACCESS_TOKEN_TTL_MINUTES", time.Minute, 15*time.Minute)
	refreshTTL := durationEnv("REFRESH_TOKEN_TTL_HOURS", time.Hour, 720*time.Hour)

	maxBodyBytes := int64(1 << 20)
	if raw := strings.TrimSpace(os.Getenv("MAX_BODY_BYTES")); raw != "" {
		if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
			maxBodyBytes = parsed
		}
	}

	seedOnStart := true
	if raw := strings.TrimSpace(os.Getenv("SEED_ON_START")); raw != "" {
		if parsed, err := strconv.ParseBool(raw); err == nil {
			seedOnStart = parsed
		}
	}

	return AppConfig{
		ListenAddr:      listenAddr,
		Port:            port,
		DatabaseDriver:  databaseDriver,
		DatabaseDSN:     databaseDSN,
		GinMode:         ginMode,
		LogLevel:        logLevel,
		JWTSecret:       jwtSecret,
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: refreshTTL,
		GoogleClientID:  strings.TrimSpace(os.Getenv("GOOGLE_CLIENT_ID")),
		RedisAddr:       strings.TrimSpace(os.Getenv("REDIS_ADDR")),
		MaxBodyBytes:    maxBodyBytes,
		SeedOnStart:     seedOnStart,
	}
}

func durationEnv(key string, unit, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return time.Duration(parsed) * unit
}
