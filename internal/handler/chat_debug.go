package handler

// chat_debug.go - Debug-only endpoints for testing assistant turn creation
// These handlers are always compiled but only registered when ENVIRONMENT=dev

import (
	"net/http"

	"turnengine/internal/config"
	llmSvc "turnengine/internal/domain/services/llm"
	"turnengine/internal/httputil"
)

// ChatDebugHandler provides debug-only endpoints for testing assistant turn creation
// WARNING: These endpoints are ONLY available when ENVIRONMENT=dev
// They bypass normal validation to allow manual testing of assistant responses
type ChatDebugHandler struct {
	conversationService llmSvc.ConversationService
	streamingService    llmSvc.StreamingService
	config              *config.Config
}

// NewChatDebugHandler creates a new debug chat handler
func NewChatDebugHandler(
	conversationService llmSvc.ConversationService,
	streamingService llmSvc.StreamingService,
	cfg *config.Config,
) *ChatDebugHandler {
	return &ChatDebugHandler{
		conversationService: conversationService,
		streamingService:    streamingService,
		config:              cfg,
	}
}

// CreateAssistantTurn creates an assistant turn (DEBUG ONLY)
// POST /debug/api/chats/{id}/turns
//
// WARNING: This endpoint bypasses validation and should NEVER be used in production.
// It exists solely for manual testing of assistant turn shapes without driving a
// real provider round-trip.
//
// Request body:
//
//	{
//	  "prev_turn_id": "uuid",  // optional
//	  "role": "assistant",      // must be "assistant"
//	  "turn_blocks": [...]
//	}
func (h *ChatDebugHandler) CreateAssistantTurn(w http.ResponseWriter, r *http.Request) {
	chatID := r.PathValue("id")
	if chatID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	userID, err := getUserID(r)
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req struct {
		PrevTurnID *string                 `json:"prev_turn_id"`
		Role       string                  `json:"role"`
		TurnBlocks []llmSvc.TurnBlockInput `json:"turn_blocks"`
	}
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Role != "assistant" {
		httputil.RespondError(w, http.StatusBadRequest, "Debug endpoint only accepts role='assistant'")
		return
	}

	model := h.config.DefaultModel
	if model == "" {
		model = "claude-haiku-4-5-20251001"
	}
	turn, err := h.streamingService.CreateAssistantTurnDebug(r.Context(), chatID, userID, req.PrevTurnID, req.TurnBlocks, model)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, turn)
}

// GetChatTree retrieves the complete conversation tree structure (DEBUG ONLY)
// GET /debug/api/chats/{id}/tree
//
// WARNING: This endpoint is DEBUG ONLY and should NEVER be used in production.
// Production code should use the pagination endpoint (/api/chats/{id}/turns) which
// returns turns with nested blocks and sibling_ids for efficient branch discovery.
//
// This endpoint exists solely for debugging and visualizing the full conversation tree
// structure during development: it returns ALL turns in depth-first order with only
// IDs and parent relationships (no content).
func (h *ChatDebugHandler) GetChatTree(w http.ResponseWriter, r *http.Request) {
	userID, err := getUserID(r)
	if err != nil {
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
		return
	}

	chatID := r.PathValue("id")
	if chatID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	tree, err := h.conversationService.GetChatTree(r.Context(), chatID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tree)
}
