// Copyright 2024 Saudi Government Services Navigator Project
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package main provides the web chat interface for the Saudi Government
// Services Navigator. It serves a bilingual chat page and a JSON API that
// routes each query through the full resolution pipeline.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/catalog"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/config"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/engine"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/health"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/history"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/language"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/navigator"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/resolver"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/respond"
	"github.com/vabdull/Saudi-Government-Services-Navigator/internal/session"
)

const (
	// DefaultPort is the default port for the web UI service
	DefaultPort = "8080"
	// RequestTimeout bounds a single chat request end to end
	RequestTimeout = 90 * time.Second
)

// ChatRequest represents an incoming chat request
type ChatRequest struct {
	Message        string `json:"message" binding:"required"`
	ConversationID string `json:"conversation_id"`
}

// ChatResponse carries the composed answer back to the browser.
type ChatResponse struct {
	Payload        respond.Payload `json:"payload"`
	ConversationID string          `json:"conversation_id"`
	Error          string          `json:"error,omitempty"`
}

// ConversationSummary is the sidebar view of a conversation.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int       `json:"message_count"`
}

// WebUIServer represents the web UI server
type WebUIServer struct {
	config         *config.Config
	logger         *zap.Logger
	navigator      *navigator.Navigator
	sessionManager *session.Manager
	healthManager  *health.Manager
	historyStore   *history.Store
}

func main() {
	cfg, err := config.Load("./configs/config.yaml")
	if err != nil {
		zap.NewExample().Fatal("Failed to load configuration", zap.Error(err))
	}

	logger, err := buildLogger(cfg.Logging)
	if err != nil {
		zap.NewExample().Fatal("Failed to build logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("Failed to load service catalog",
			zap.String("path", cfg.Catalog.Path),
			zap.Error(err))
	}
	logger.Info("Loaded service catalog",
		zap.String("path", cfg.Catalog.Path),
		zap.Int("services", cat.Len()))

	engineClient, err := engine.NewClient(engine.Config{
		Model:   cfg.Engine.Model,
		BaseURL: cfg.Engine.BaseURL,
		APIKey:  cfg.Engine.APIKey,
		Timeout: time.Duration(cfg.Engine.TimeoutSeconds) * time.Second,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize engine client", zap.Error(err))
	}

	detector := language.NewDetector(cfg.Language.ArabicThreshold)
	nav := navigator.New(cat, detector, resolver.New(engineClient, logger), logger)

	sessionManager, err := session.NewManager(session.Config{
		DefaultTTL:      time.Duration(cfg.Session.DefaultTTLMinutes) * time.Minute,
		MaxSessions:     cfg.Session.MaxSessions,
		CleanupInterval: time.Duration(cfg.Session.CleanupIntervalMinutes) * time.Minute,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize session manager", zap.Error(err))
	}
	defer func() { _ = sessionManager.Close() }()

	historyStore, err := history.NewStore(cfg.History.DBPath)
	if err != nil {
		logger.Fatal("Failed to open history store",
			zap.String("path", cfg.History.DBPath),
			zap.Error(err))
	}
	defer func() { _ = historyStore.Close() }()

	healthManager := health.NewManager("webui", "1.0.0", logger)
	healthManager.AddCheckerFunc("catalog", func(_ context.Context) health.CheckResult {
		if cat.Len() == 0 {
			return health.CheckResult{Status: health.StatusUnhealthy, Error: "catalog is empty"}
		}
		return health.CheckResult{
			Status:   health.StatusHealthy,
			Metadata: map[string]interface{}{"services": cat.Len()},
		}
	})
	healthManager.AddCheckerFunc("history", func(ctx context.Context) health.CheckResult {
		if err := historyStore.Ping(ctx); err != nil {
			return health.CheckResult{Status: health.StatusDegraded, Error: err.Error()}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	})

	server := &WebUIServer{
		config:         cfg,
		logger:         logger,
		navigator:      nav,
		sessionManager: sessionManager,
		healthManager:  healthManager,
		historyStore:   historyStore,
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	router.Static("/static", "./static")
	router.LoadHTMLGlob("templates/*")

	router.GET("/", server.handleHomePage)
	router.GET("/health", server.handleHealth)
	router.POST("/chat", server.handleChat)
	router.GET("/services", server.handleListServices)
	router.GET("/conversations", server.handleGetConversations)
	router.POST("/conversations", server.handleCreateConversation)
	router.GET("/conversations/:id", server.handleGetConversation)
	router.DELETE("/conversations/:id", server.handleDeleteConversation)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Server.Port
	}
	if port == "" {
		port = DefaultPort
	}

	logger.Info("Starting Web UI server",
		zap.String("port", port),
		zap.String("service", "webui"),
	)

	if err := router.Run(":" + port); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

// handleHomePage serves the main chat interface
func (s *WebUIServer) handleHomePage(c *gin.Context) {
	c.HTML(http.StatusOK, "chat.html", gin.H{
		"title": "Saudi Government Services Navigator",
	})
}

// handleHealth returns the health status
func (s *WebUIServer) handleHealth(c *gin.Context) {
	s.healthManager.HTTPHandler().ServeHTTP(c.Writer, c.Request)
}

// handleChat processes a chat message through the resolution pipeline.
func (s *WebUIServer) handleChat(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), RequestTimeout)
	defer cancel()

	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ChatResponse{
			Error: "Invalid request format",
		})
		return
	}

	query := session.SanitizeUserInput(req.Message)
	if query == "" {
		c.JSON(http.StatusBadRequest, ChatResponse{
			Error: "Message must not be empty",
		})
		return
	}

	sess, err := s.getOrCreateSession(ctx, req.ConversationID)
	if err != nil {
		s.logger.Error("Failed to get or create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ChatResponse{
			Error: "Failed to create conversation session",
		})
		return
	}

	answer := s.navigator.ProcessQuery(ctx, query)

	if err := s.sessionManager.AddUserMessage(ctx, sess.ID, query, answer.Language); err != nil {
		s.logger.Error("Failed to add user message", zap.Error(err))
	}
	if err := s.sessionManager.AddAssistantMessage(ctx, sess.ID, answer.Payload); err != nil {
		s.logger.Error("Failed to add assistant message", zap.Error(err))
	}

	entry := history.Entry{
		Query:       answer.Query,
		Language:    string(answer.Language),
		Outcome:     string(answer.Payload.Kind),
		MatchedKeys: answer.Result.Keys,
		LatencyMS:   answer.Elapsed.Milliseconds(),
	}
	if err := s.historyStore.Record(entry); err != nil {
		s.logger.Warn("Failed to record query history", zap.Error(err))
	}

	c.JSON(http.StatusOK, ChatResponse{
		Payload:        answer.Payload,
		ConversationID: sess.ID,
	})
}

// handleListServices returns the full catalog, one entry per service.
func (s *WebUIServer) handleListServices(c *gin.Context) {
	cat := s.navigator.Catalog()

	type serviceEntry struct {
		Key      string `json:"key"`
		TitleAR  string `json:"title_ar"`
		TitleEN  string `json:"title_en"`
		Platform string `json:"platform"`
		Category string `json:"category"`
	}

	entries := make([]serviceEntry, 0, cat.Len())
	for _, key := range cat.Keys() {
		rec, _ := cat.Get(key)
		entries = append(entries, serviceEntry{
			Key:      rec.Key,
			TitleAR:  rec.TitleAR,
			TitleEN:  rec.TitleEN,
			Platform: rec.Platform,
			Category: rec.Category,
		})
	}

	c.JSON(http.StatusOK, entries)
}

// handleGetConversations returns all conversations for the current user
func (s *WebUIServer) handleGetConversations(c *gin.Context) {
	ctx := c.Request.Context()
	userID := s.getUserID(c)

	sessions, err := s.sessionManager.ListUserSessions(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to list conversations", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load conversations"})
		return
	}

	summaries := make([]ConversationSummary, len(sessions))
	for i, sess := range sessions {
		summaries[i] = ConversationSummary{
			ID:           sess.ID,
			Title:        sess.Title,
			CreatedAt:    sess.CreatedAt,
			UpdatedAt:    sess.UpdatedAt,
			MessageCount: len(sess.Messages),
		}
	}

	c.JSON(http.StatusOK, summaries)
}

// handleCreateConversation creates a new conversation
func (s *WebUIServer) handleCreateConversation(c *gin.Context) {
	ctx := c.Request.Context()
	userID := s.getUserID(c)

	sess, err := s.sessionManager.CreateSession(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create conversation"})
		return
	}

	c.JSON(http.StatusCreated, ConversationSummary{
		ID:        sess.ID,
		Title:     sess.Title,
		CreatedAt: sess.CreatedAt,
		UpdatedAt: sess.UpdatedAt,
	})
}

// handleGetConversation returns a specific conversation with full message history
func (s *WebUIServer) handleGetConversation(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	sess, err := s.sessionManager.GetSession(ctx, id)
	if err != nil {
		s.logger.Error("Failed to get session", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	c.JSON(http.StatusOK, sess)
}

// handleDeleteConversation deletes a conversation
func (s *WebUIServer) handleDeleteConversation(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if err := s.sessionManager.DeleteSession(ctx, id); err != nil {
		s.logger.Error("Failed to delete conversation", zap.String("id", id), zap.Error(err))
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Conversation deleted"})
}

// getOrCreateSession gets an existing session or creates a new one
func (s *WebUIServer) getOrCreateSession(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		if sess, err := s.sessionManager.GetSession(ctx, id); err == nil {
			return sess, nil
		}
	}
	return s.sessionManager.CreateSession(ctx, s.getUserID(nil))
}

// getUserID returns a user ID for session management (simplified for demo)
func (s *WebUIServer) getUserID(c *gin.Context) string {
	// In a real application, this would extract user ID from authentication
	// For demo purposes, use a default user
	return "demo-user"
}

// buildLogger constructs a zap logger from the logging configuration.
func buildLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if cfg.Format == "text" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
