package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"turnengine/internal/auth"
	"turnengine/internal/config"
	llmModels "turnengine/internal/domain/models/llm"
	docsystemAuth "turnengine/internal/service/auth"
	docsysRepo "turnengine/internal/repository/postgres/docsystem"
	llmRepo "turnengine/internal/repository/postgres/llm"
	"turnengine/internal/handler"
	"turnengine/internal/middleware"
	"turnengine/internal/repository/postgres"
	"turnengine/internal/service"
	"turnengine/internal/service/docsystem"
	"turnengine/internal/service/docsystem/converter"
	"turnengine/internal/service/llm"
	"turnengine/internal/service/llm/streaming"
)

// ensureTestProject creates a test project if it doesn't exist (Phase 1 auth stub)
func ensureTestProject(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, projectID, userID, name string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`, tables.Projects)

	// Use a connection from the pool with QueryExecModeExec (no prepared statement) to avoid prepared statement conflicts
	// This happens when the seed script runs just before the server starts
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	_, err = conn.Exec(ctx, query, pgx.QueryExecModeExec, projectID, userID, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to ensure test project: %w", err)
	}
	return nil
}

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger) // Set as default logger

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Ensure test project exists (Phase 1 auth stub)
	if err := ensureTestProject(ctx, pool, tables, cfg.TestProjectID, cfg.TestUserID, "Test Project"); err != nil {
		log.Fatalf("Failed to ensure test project: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	projectRepo := docsysRepo.NewProjectRepository(repoConfig)
	docRepo := docsysRepo.NewDocumentRepository(repoConfig)
	folderRepo := docsysRepo.NewFolderRepository(repoConfig)
	chatRepo := llmRepo.NewChatRepository(repoConfig)
	turnRepo := llmRepo.NewTurnRepository(repoConfig)
	prefsRepo := postgres.NewUserPreferencesRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool)

	// Document/folder/import services
	contentAnalyzer := docsystem.NewContentAnalyzer()
	pathResolver := docsystem.NewPathResolver(folderRepo, txManager)
	validator := docsystem.NewResourceValidator(projectRepo, folderRepo)
	authorizer := docsystemAuth.NewOwnerBasedAuthorizer(projectRepo, folderRepo, docRepo, chatRepo, turnRepo)

	docService := docsystem.NewDocumentService(docRepo, folderRepo, txManager, contentAnalyzer, pathResolver, validator, logger)
	folderService := docsystem.NewFolderService(folderRepo, docRepo, docService, pathResolver, txManager, validator, authorizer, logger)
	treeService := docsystem.NewTreeService(folderRepo, docRepo, logger)

	converterRegistry := converter.NewConverterRegistry()
	processorRegistry := docsystem.NewFileProcessorRegistry()
	processorRegistry.Register(docsystem.NewIndividualFileProcessor(docRepo, docService, converterRegistry, logger))
	processorRegistry.Register(docsystem.NewZipFileProcessor(docRepo, docService, converterRegistry, logger))
	importService := docsystem.NewImportService(docRepo, processorRegistry, logger)

	// User preferences service
	prefsService := service.NewUserPreferencesService(prefsRepo, logger)

	// LLM provider/service stack
	providerRegistry, err := llm.SetupProviders(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up LLM providers: %v", err)
	}

	llmServices, streamRegistry, err := llm.SetupServices(
		chatRepo,
		turnRepo,
		projectRepo,
		docRepo,
		folderRepo,
		providerRegistry,
		cfg,
		txManager,
		logger,
	)
	if err != nil {
		log.Fatalf("Failed to set up LLM services: %v", err)
	}

	logger.Info("services initialized")

	// Handlers
	docHandler := handler.NewDocumentHandler(docService, logger)
	folderHandler := handler.NewFolderHandler(folderService, logger)
	treeHandler := handler.NewTreeHandler(treeService, logger)
	importHandler := handler.NewImportHandler(importService, authorizer, logger)
	chatHandler := handler.NewChatHandler(llmServices.Chat, llmServices.Conversation, llmServices.Streaming, streamRegistry, logger)
	catchupFunc := streaming.BuildCatchupFunc(turnRepo, llmModels.NewBlockSerializer(), logger)
	sseHandler := handler.NewSSEHandler(streamRegistry, catchupFunc, logger)
	prefsHandler := handler.NewUserPreferencesHandler(prefsService, logger)

	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("GET /health", docHandler.HealthCheck)

	// Tree
	mux.HandleFunc("GET /api/tree", treeHandler.GetTree)

	// Folders
	mux.HandleFunc("POST /api/folders", folderHandler.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}", folderHandler.GetFolder)
	mux.HandleFunc("PUT /api/folders/{id}", folderHandler.UpdateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", folderHandler.DeleteFolder)
	mux.HandleFunc("GET /api/folders", folderHandler.ListChildren)
	mux.HandleFunc("GET /api/folders/{id}/children", folderHandler.ListChildren)

	// Documents
	mux.HandleFunc("POST /api/documents", docHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", docHandler.GetDocument)
	mux.HandleFunc("PUT /api/documents/{id}", docHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", docHandler.DeleteDocument)
	mux.HandleFunc("GET /api/documents/search", docHandler.SearchDocuments)

	// Import
	mux.HandleFunc("POST /api/import", importHandler.Merge)
	mux.HandleFunc("POST /api/import/replace", importHandler.Replace)

	// User preferences
	mux.HandleFunc("GET /api/users/me/preferences", prefsHandler.GetPreferences)
	mux.HandleFunc("PATCH /api/users/me/preferences", prefsHandler.UpdatePreferences)

	// Chats and turns
	mux.HandleFunc("POST /api/chats", chatHandler.CreateChat)
	mux.HandleFunc("GET /api/chats", chatHandler.ListChats)
	mux.HandleFunc("GET /api/chats/{id}", chatHandler.GetChat)
	mux.HandleFunc("PATCH /api/chats/{id}", chatHandler.UpdateChat)
	mux.HandleFunc("DELETE /api/chats/{id}", chatHandler.DeleteChat)
	mux.HandleFunc("POST /api/chats/{id}/turns", chatHandler.CreateTurn)
	mux.HandleFunc("GET /api/chats/{id}/turns", chatHandler.GetPaginatedTurns)
	mux.HandleFunc("GET /api/turns/{id}/path", chatHandler.GetTurnPath)
	mux.HandleFunc("GET /api/turns/{id}/siblings", chatHandler.GetTurnSiblings)
	mux.HandleFunc("GET /api/turns/{id}/blocks", chatHandler.GetTurnBlocks)
	mux.HandleFunc("POST /api/turns/{id}/interrupt", chatHandler.InterruptTurn)
	mux.HandleFunc("GET /api/turns/{id}/stream", sseHandler.StreamTurn)

	// Debug-only endpoints for manually shaping assistant turns without a provider round-trip
	if cfg.Environment == "dev" && cfg.Debug {
		debugHandler := handler.NewChatDebugHandler(llmServices.Conversation, llmServices.Streaming, cfg)
		mux.HandleFunc("POST /debug/api/chats/{id}/turns", debugHandler.CreateAssistantTurn)
		mux.HandleFunc("GET /debug/api/chats/{id}/tree", debugHandler.GetChatTree)
		logger.Warn("debug endpoints registered", "environment", cfg.Environment)
	}

	// Auth middleware: real Supabase JWT verification once SUPABASE_URL is configured,
	// otherwise a fixed test user (local dev without Supabase wired up)
	var authMiddleware func(http.Handler) http.Handler
	if cfg.SupabaseURL != "" {
		verifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to initialize JWT verifier: %v", err)
		}
		authMiddleware = middleware.AuthMiddleware(verifier)
		logger.Info("using Supabase JWT authentication")
	} else {
		authMiddleware = middleware.TestAuthMiddleware(cfg.TestUserID)
		logger.Warn("SUPABASE_URL not set, using test auth middleware", "test_user_id", cfg.TestUserID)
	}

	var root http.Handler = mux
	root = authMiddleware(root)
	root = middleware.ProjectMiddleware(cfg.TestProjectID)(root)
	root = middleware.Recovery(logger)(root)
	root = cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	}).Handler(root)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: root,
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
