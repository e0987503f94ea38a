package llm

import "time"

// TurnTreeNode is a minimal turn reference used to reconstruct the conversation
// tree shape without loading block content.
type TurnTreeNode struct {
	ID         string  `json:"id"`
	PrevTurnID *string `json:"prev_turn_id,omitempty"`
}

// ChatTree is a lightweight snapshot of a chat's turn structure, used by
// clients to validate a cached tree against the server without re-fetching
// every turn's content.
type ChatTree struct {
	Turns     []TurnTreeNode `json:"turns"`
	UpdatedAt time.Time      `json:"updated_at"`
}
