package model

import (
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// Conversation is the durable anchor of a history stream
type Conversation struct {
	ID        types.ConversationID `json:"id"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// HistoryEntry is one appended task within a conversation. Seq is strictly
// increasing and gapless from 1 within its conversation.
type HistoryEntry struct {
	ConversationID types.ConversationID `json:"conversation_id"`
	TaskID         types.TaskID         `json:"task_id"`
	Seq            int64                `json:"sequence_number"`
	CreatedAt      time.Time            `json:"created_at"`
}
