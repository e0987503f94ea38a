package llm

import (
	"context"
	"fmt"
	"log/slog"

	mstream "github.com/haowjy/meridian-stream-go"

	"turnengine/internal/capabilities"
	"turnengine/internal/config"
	"turnengine/internal/domain/repositories"
	docsysRepo "turnengine/internal/domain/repositories/docsystem"
	llmRepo "turnengine/internal/domain/repositories/llm"
	llmSvc "turnengine/internal/domain/services/llm"
	"turnengine/internal/service/llm/chat"
	"turnengine/internal/service/llm/conversation"
	"turnengine/internal/service/llm/formatting"
	"turnengine/internal/service/llm/streaming"
)

// providerNames lists every provider the factory/adapter pair knows how to build.
// Providers without the required API key configured are skipped at startup.
var providerNames = []string{"anthropic", "lorem"}

// SetupProviders initializes the provider factory, adapter factory, and registry
// that route a model identifier to the LLMProvider that serves it.
func SetupProviders(cfg *config.Config, logger *slog.Logger) (*ProviderRegistry, error) {
	providerFactory := NewProviderFactory(cfg)
	adapterFactory := NewDefaultAdapterFactory()
	registry := NewProviderRegistry()

	for _, name := range providerNames {
		libraryProvider, err := providerFactory.GetProvider(name)
		if err != nil {
			logger.Warn("provider unavailable, skipping", "name", name, "error", err)
			continue
		}

		adapter, err := adapterFactory.CreateAdapter(name, libraryProvider)
		if err != nil {
			return nil, fmt.Errorf("failed to create adapter for %s: %w", name, err)
		}

		registry.RegisterProvider(adapter)
		logger.Info("provider available", "name", name)
	}

	if err := registry.Validate(); err != nil {
		return nil, fmt.Errorf("provider registry validation failed: %w", err)
	}

	logger.Info("provider registry initialized", "providers", registry.ListProviders())

	return registry, nil
}

// Services holds all LLM-related services
type Services struct {
	Chat         llmSvc.ChatService
	Conversation llmSvc.ConversationService
	Streaming    llmSvc.StreamingService
}

// SetupServices initializes all LLM services with proper dependency injection.
// Returns the assembled Services plus the mstream.Registry the SSE handler subscribes
// against, so callers can wire both into the HTTP layer.
func SetupServices(
	chatRepo llmRepo.ChatRepository,
	turnRepo llmRepo.TurnRepository,
	projectRepo docsysRepo.ProjectRepository,
	documentRepo docsysRepo.DocumentRepository,
	folderRepo docsysRepo.FolderRepository,
	providerRegistry *ProviderRegistry,
	cfg *config.Config,
	txManager repositories.TransactionManager,
	logger *slog.Logger,
) (*Services, *mstream.Registry, error) {
	validator := NewChatValidator(chatRepo)

	streamRegistry := mstream.NewRegistry()
	go streamRegistry.StartCleanup(context.Background())

	capabilityRegistry, err := capabilities.NewRegistry()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load capability registry: %w", err)
	}

	chatService := chat.NewService(chatRepo, projectRepo, logger)

	conversationService := conversation.NewService(
		chatRepo,
		turnRepo, // TurnReader
		turnRepo, // TurnNavigator
	)

	systemPromptResolver := streaming.NewSystemPromptResolver(
		projectRepo,
		chatRepo,
		documentRepo,
		logger,
	)

	formatterRegistry := formatting.NewFormatterRegistry()
	formatterRegistry.Register("doc_search", &formatting.DocSearchFormatter{})
	formatterRegistry.Register("doc_view", &formatting.DocViewFormatter{})
	formatterRegistry.Register("doc_tree", formatting.NewDocTreeFormatter())

	messageBuilder := conversation.NewMessageBuilderService(
		formatterRegistry,
		capabilityRegistry,
		logger,
	)

	toolLimitResolver := llmSvc.NewConfigToolLimitResolver(cfg.MaxToolRounds)

	streamingService := streaming.NewService(
		turnRepo, // TurnWriter
		turnRepo, // TurnReader
		turnRepo, // TurnNavigator
		chatRepo,
		projectRepo,
		documentRepo,
		folderRepo,
		validator,
		providerRegistry,
		streamRegistry,
		cfg,
		txManager,
		systemPromptResolver,
		messageBuilder,
		toolLimitResolver,
		capabilityRegistry,
		logger,
	)

	return &Services{
		Chat:         chatService,
		Conversation: conversationService,
		Streaming:    streamingService,
	}, streamRegistry, nil
}
