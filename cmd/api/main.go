package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mernapp-auth/internal/config"
	"mernapp-auth/internal/db"
	apihttp "mernapp-auth/internal/http"
	"mernapp-auth/internal/identity"
	"mernapp-auth/internal/repository"
	"mernapp-auth/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	var (
		verifier identity.Verifier
		issuer   identity.Issuer
	)
	if cfg.IdentityBaseURL != "" && cfg.IdentityJWKSURL != "" {
		jwksVerifier, err := identity.NewJWKSVerifier(ctx, cfg.IdentityJWKSURL, cfg.IdentityIssuer, cfg.IdentityAudience)
		if err != nil {
			logger.Fatal("jwks verifier init", zap.Error(err))
		}
		verifier = jwksVerifier
		issuer = identity.NewHTTPIssuer(cfg.IdentityBaseURL, cfg.IdentityAPIKey, logger)
	} else {
		logger.Warn("remote identity provider not configured, using local provider")
		local := identity.NewLocalProvider(cfg.LocalAuthSecret)
		verifier = local
		issuer = local
		if cfg.LocalAuthSecret == "" {
			logger.Warn("local auth secret not configured")
		}
	}

	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed", zap.Error(err))
		} else {
			ttl := time.Duration(cfg.ClaimCacheTTLSecs) * time.Second
			verifier = identity.NewCachedVerifier(verifier, redisClient, ttl)
		}
		cancel()
	}

	userRepo := repository.NewPgUserRepository(pool)
	authSvc := service.NewAuthService(logger, userRepo, verifier, issuer)
	authHandler := apihttp.NewAuthHandler(logger, authSvc)
	router := apihttp.NewRouter(logger, authHandler, verifier, cfg.CORSAllowOrigin)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting server", zap.String("port", cfg.HTTPPort))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
