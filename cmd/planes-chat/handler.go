// In file: cmd/planes-chat/handler.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/514-labs/planes/internal/agent"
	"github.com/514-labs/planes/internal/api"
	"github.com/514-labs/planes/internal/config"
	"github.com/514-labs/planes/internal/llm"
	cacheversion "github.com/514-labs/planes/internal/version"
)

const invalidBodyError = "Invalid request body"

// ChatRunner runs one agent conversation.
type ChatRunner interface {
	Run(ctx context.Context, history []llm.Message, opts ...agent.RunOption) (*agent.Result, error)
}

// ResponseCache stores serialized chat responses.
type ResponseCache interface {
	Check(ctx context.Context, key string) (string, bool)
	Store(ctx context.Context, key, value string)
}

// ProfileReader exposes recorded model statistics.
type ProfileReader interface {
	GetProfile(ctx context.Context, modelID string) (*llm.ModelProfile, error)
}

// ChatHandler serves the chat, health and stats endpoints.
// cache and profiles are optional; both are nil when Redis is not configured.
type ChatHandler struct {
	runner          ChatRunner
	cache           ResponseCache
	profiles        ProfileReader
	config          *config.AppConfig
	modelConfigured bool
	newRunID        func() string
}

func NewChatHandler(runner ChatRunner, cache ResponseCache, profiles ProfileReader, cfg *config.AppConfig, modelConfigured bool) *ChatHandler {
	return &ChatHandler{
		runner:          runner,
		cache:           cache,
		profiles:        profiles,
		config:          cfg,
		modelConfigured: modelConfigured,
		newRunID:        uuid.NewString,
	}
}

// HandleChat serves POST /chat. A body carrying "messages" selects the streaming variant.
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req api.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:   invalidBodyError,
			Details: "message must be a non-empty string: " + err.Error(),
		})
		return
	}
	if req.Streaming() {
		h.handleChatStream(c, req)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		c.JSON(http.StatusBadRequest, api.ErrorResponse{
			Error:   invalidBodyError,
			Details: "message must be a non-empty string",
		})
		return
	}

	startTime := time.Now()
	runID := h.newRunID()
	c.Header("X-Run-Id", runID)
	ctx := c.Request.Context()
	log.Printf("--- New Chat (Run: %s, Message: '%.40s...') ---", runID, req.Message)

	cacheKey := cacheversion.GenerateVersionedCacheKey("chatcache", h.cacheScope(), req.Message)
	if h.cache != nil {
		if cachedVal, found := h.cache.Check(ctx, cacheKey); found {
			var cachedResp api.ChatResponse
			if json.Unmarshal([]byte(cachedVal), &cachedResp) == nil {
				log.Printf("✅ [%s] Cache HIT", runID)
				cachedResp.RunID = runID
				cachedResp.LatencyMS = time.Since(startTime).Milliseconds()
				cachedResp.CacheStatus = "HIT"
				c.JSON(http.StatusOK, cachedResp)
				return
			}
		}
	}

	res, err := h.runner.Run(ctx, []llm.Message{llm.NewUserMessage(req.Message)}, agent.WithRunID(runID))
	if err != nil {
		log.Printf("❌ [%s] Chat failed: %v", runID, err)
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{
			Error:   "Failed to process chat request",
			Details: err.Error(),
		})
		return
	}

	resp := api.NewChatResponse(res, runID)
	resp.LatencyMS = time.Since(startTime).Milliseconds()
	resp.CacheStatus = "MISS"

	// Partial answers are not worth replaying.
	if h.cache != nil && !res.Truncated {
		if respBytes, err := json.Marshal(resp); err == nil {
			h.cache.Store(ctx, cacheKey, string(respBytes))
		}
	}
	c.JSON(http.StatusOK, resp)
}

// HandleHealth serves GET /health.
func (h *ChatHandler) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, api.HealthResponse{
		Status:             "ok",
		ToolEndpoint:       h.config.ToolEndpoint,
		ModelKeyConfigured: h.modelConfigured,
		ModelProvider:      h.config.Provider.Provider,
		ToolMode:           string(h.config.ToolMode),
		Version:            GetBuildInfo().Version,
	})
}

// HandleStats serves GET /stats with the configured model's profile.
func (h *ChatHandler) HandleStats(c *gin.Context) {
	if h.profiles == nil {
		c.JSON(http.StatusServiceUnavailable, api.ErrorResponse{
			Error:   "Stats unavailable",
			Details: "Redis is not configured",
		})
		return
	}
	profile, err := h.profiles.GetProfile(c.Request.Context(), h.config.Provider.Model)
	if err != nil {
		c.JSON(http.StatusInternalServerError, api.ErrorResponse{Error: "Failed to read model profile", Details: err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// cacheScope separates cached answers produced by different models or endpoints.
func (h *ChatHandler) cacheScope() string {
	return strings.Join([]string{h.config.Provider.Provider, h.config.Provider.Model, h.config.ToolEndpoint, string(h.config.ToolMode)}, "|")
}

// setupRouter wires every route onto a fresh engine.
func setupRouter(chat *ChatHandler, consumption *ConsumptionHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery())

	engine.POST("/chat", chat.HandleChat)
	engine.GET("/health", chat.HandleHealth)
	engine.GET("/stats", chat.HandleStats)

	consumptionGroup := engine.Group("/consumption")
	{
		consumptionGroup.GET("/aircraftSpeedAltitudeByType", consumption.HandleSpeedAltitudeByType)
		consumptionGroup.GET("/zorder", consumption.HandleZOrder)
	}
	return engine
}
