package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fabriclibrary/backend/handlers"
	"github.com/fabriclibrary/backend/internal/config"
	"github.com/fabriclibrary/backend/internal/database"
	"github.com/fabriclibrary/backend/internal/oidc"
	"github.com/fabriclibrary/backend/internal/users"
	"github.com/fabriclibrary/backend/pkg/logger"
	"github.com/fabriclibrary/backend/pkg/metrics"
)

var startTime = time.Now()

func main() {
	// initialize logging (can be controlled with LOG_LEVEL env: debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: google_client_id_set=%v mongo=%v jwt_secret_set=%v",
		cfg.Google.ClientID != "", cfg.MongoDB.URI != "", cfg.JWT.Secret != "")

	r := gin.New()

	// Lightweight CORS middleware for dev/test: set common headers and respond to OPTIONS.
	// (Keep this intentionally simple — production should use a stricter policy.)
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}
		c.Next()
	})

	// Global middlewares: logging + recovery
	r.Use(gin.Logger(), gin.Recovery())

	ctx := context.Background()

	// MongoDB is the only durable store; without it nothing can be served.
	client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
	if err != nil {
		logger.Fatalf("could not connect to MongoDB: %v", err)
	}
	defer func() { _ = client.Disconnect(ctx) }()

	usersCol := client.Database(cfg.MongoDB.Database).Collection("users")
	repo := users.NewMongoUserRepository(usersCol)
	// unique index on sub; first-sign-in races depend on it
	if err := repo.EnsureIndexes(ctx); err != nil {
		logger.Fatalf("could not ensure user indexes: %v", err)
	}
	userSvc := users.NewService(repo)

	verifier, err := oidc.NewGoogleVerifier(ctx, cfg.Google.Issuer, cfg.Google.ClientID)
	if err != nil {
		logger.Fatalf("failed to initialize Google ID token verifier: %v", err)
	}

	// Basic health endpoint
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	// readiness endpoint — return 200 only when critical dependencies are available
	r.GET("/ready", func(c *gin.Context) {
		deps := map[string]bool{"oidc": true}
		pingCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		deps["storage"] = client.Ping(pingCtx, nil) == nil

		if !deps["storage"] {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": deps, "uptime": time.Since(startTime).String()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	h := handlers.NewAuthHandler(cfg, userSvc, verifier)
	h.Register(r.Group("/"))

	// Minimal Swagger UI + JSON for API documentation
	handlers.RegisterSwagger(r)

	// Expose Prometheus metrics
	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Infof("Starting identity service on %s", addr)
	if err := r.Run(addr); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
