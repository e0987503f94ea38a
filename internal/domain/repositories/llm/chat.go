package llm

import (
	"context"

	"turnengine/internal/domain/models/llm"
)

// ChatRepository defines the interface for chat data access
type ChatRepository interface {
	// CreateChat creates a new chat session
	CreateChat(ctx context.Context, chat *llm.Chat) error

	// GetChat retrieves a chat by ID
	// Returns domain.ErrNotFound if not found
	GetChat(ctx context.Context, chatID, userID string) (*llm.Chat, error)

	// GetChatByIDOnly retrieves a chat by ID without user scoping, for authorization checks
	GetChatByIDOnly(ctx context.Context, chatID string) (*llm.Chat, error)

	// ListChatsByProject retrieves all chats for a project
	// Returns empty slice if no chats found
	ListChatsByProject(ctx context.Context, projectID, userID string) ([]llm.Chat, error)

	// UpdateChat updates a chat's mutable fields (title, last_viewed_turn_id, updated_at)
	// Returns domain.ErrNotFound if not found
	UpdateChat(ctx context.Context, chat *llm.Chat) error

	// UpdateLastViewedTurn updates only the last_viewed_turn_id field, validating that
	// the turn belongs to the chat
	UpdateLastViewedTurn(ctx context.Context, chatID, userID, turnID string) error

	// DeleteChat soft-deletes a chat and returns the deleted chat object
	// Returns domain.ErrNotFound if not found or already deleted
	DeleteChat(ctx context.Context, chatID, userID string) (*llm.Chat, error)

	// GetChatTree retrieves the lightweight tree structure for cache validation
	GetChatTree(ctx context.Context, chatID, userID string) (*llm.ChatTree, error)
}
