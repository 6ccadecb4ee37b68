// In file: cmd/planes-chat/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/cache"
	"github.com/514-labs/planes/internal/config"
	"github.com/514-labs/planes/internal/llm"
	"github.com/514-labs/planes/internal/tools"
)

// main is the composition root: it loads configuration, initializes all
// services, injects dependencies, and starts the server.
func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	buildInfo := GetBuildInfo()
	log.Printf("🚀 Starting planes-chat | Version: %s | Commit: %s", buildInfo.Version, buildInfo.GitCommit)

	// 1. LOAD CONFIGURATION
	opts, err := parseFlags(os.Args[1:], os.Stderr)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}
	cfg, err := config.Load(opts)
	if err != nil {
		log.Fatalf("❌ FATAL: Configuration Error: %v", err)
	}
	log.Println("✅ Configuration loaded.")

	// 2. INITIALIZE SERVICES
	ctx := context.Background()
	provider, err := llm.NewProvider(ctx, cfg.Provider)
	if err != nil {
		log.Fatalf("❌ FATAL: %v", err)
	}
	modelConfigured := llm.IsConfigured(provider)
	if !modelConfigured {
		log.Printf("⚠️ No API key for provider %q; chat requests will fail until one is set.", cfg.Provider.Provider)
	}

	gateway := tools.NewGateway(cfg.ToolEndpoint,
		tools.WithHeaders(cfg.ToolHeaders),
		tools.WithRowLimit(cfg.RowLimit),
		tools.WithClientInfo("planes-chat", buildInfo.Version),
	)
	defer gateway.Close()

	var (
		responseCache ResponseCache
		profiles      ProfileReader
	)
	if rdb := connectRedis(ctx, cfg.RedisAddr); rdb != nil {
		defer rdb.Close()
		profiler := llm.NewProfiler(rdb, cfg.ModelCosts)
		provider = llm.NewProfiledProvider(provider, profiler, cfg.Provider.Model)
		profiles = profiler
		if cfg.CacheEnabled {
			responseCache = cache.NewResponseCache(rdb, cfg.CacheTTL)
		}
	}

	orchestrator := agent.NewOrchestrator(provider, gateway, cfg.AgentConfig())
	chatHandler := NewChatHandler(orchestrator, responseCache, profiles, cfg, modelConfigured)
	consumptionHandler := NewConsumptionHandler(gateway, cfg.QueryTool)
	log.Printf("✅ All services initialized (provider=%s model=%s tools=%s endpoint=%s).",
		cfg.Provider.Provider, cfg.Provider.Model, cfg.ToolMode, cfg.ToolEndpoint)

	// 3. SETUP AND RUN THE WEB SERVER
	gin.SetMode(os.Getenv("GIN_MODE"))
	engine := setupRouter(chatHandler, consumptionHandler)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	runServerWithGracefulShutdown(srv)
}

// connectRedis returns nil when Redis is not configured or not reachable;
// caching and profiling are then disabled rather than fatal.
func connectRedis(ctx context.Context, addr string) *redis.Client {
	if addr == "" {
		log.Println("ℹ️ REDIS_ADDR not set; response cache and model stats disabled.")
		return nil
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(pingCtx).Result(); err != nil {
		log.Printf("⚠️ Could not connect to Redis at %s: %v; response cache and model stats disabled.", addr, err)
		_ = rdb.Close()
		return nil
	}
	log.Printf("✅ Connected to Redis at %s.", addr)
	return rdb
}

// runServerWithGracefulShutdown handles the server lifecycle.
func runServerWithGracefulShutdown(srv *http.Server) {
	go func() {
		log.Printf("👂 planes-chat is listening on http://localhost%s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("❌ Listen error: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("❌ Server shutdown failed: %v", err)
		return
	}

	log.Println("👋 Server exited gracefully.")
}
