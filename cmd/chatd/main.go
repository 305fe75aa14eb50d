// chatd is the reference chat backend: an unauthenticated JSON document
// store speaking the hierarchical "*.json" REST dialect the chat clients
// poll, plus a JWT-protected admin surface for moderation.
package main

import (
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"tokenchat/internal/audit"
	"tokenchat/internal/auth"
	"tokenchat/internal/config"
	"tokenchat/internal/kvadmin"
	"tokenchat/internal/kvstore"
	"tokenchat/internal/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	// Document store: Redis in production, in-memory in dev mode.
	var docStore kvstore.Store
	if cfg.DevMode {
		logger.Info("using in-memory document store (dev mode)")
		docStore = kvstore.NewMemoryStore()
	} else {
		redisStore, err := kvstore.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.ChannelTTL)
		if err != nil {
			log.Fatalf("could not connect to Redis: %v", err)
		}
		docStore = redisStore
		logger.Info("connected to Redis", "addr", cfg.RedisAddr)
	}
	defer docStore.Close()

	// Optional durable audit trail behind the slog one.
	var auditStore *audit.Store
	if cfg.DatabaseURL != "" {
		auditStore, err = audit.Open(cfg.DatabaseURL, logger)
		if err != nil {
			log.Fatalf("could not open audit store: %v", err)
		}
		defer auditStore.Close()
		logger.Info("audit persistence enabled")
	}

	secOpts := []security.Option{}
	if auditStore != nil {
		secOpts = append(secOpts, security.WithRecorder(auditStore))
	}
	sec := security.NewContext(logger, secOpts...)
	defer sec.Close()

	if cfg.GoEnv != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(kvstore.BodySizeLimit(cfg.MaxBodySize))

	limiter := kvstore.NewIPRateLimiter(50, 100)
	r.Use(limiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	kvstore.NewHandler(docStore, sec, logger).RegisterRoutes(r)

	if cfg.AdminEnabled() {
		authSvc := auth.NewService(cfg.JWTSecret, cfg.AdminPasswordHash, cfg.JWTExpiry)
		kvadmin.NewHandler(authSvc, sec, docStore, auditStore, cfg.MessageTTL, logger).RegisterRoutes(r)
		logger.Info("admin surface enabled")
	} else {
		logger.Info("admin surface disabled (set JWT_SECRET and ADMIN_PASSWORD_HASH to enable)")
	}

	addr := fmt.Sprintf(":%d", cfg.HTTPPort)
	logger.Info("chatd listening", "addr", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
