package memory

import (
	"context"
	"sync"
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

type historyRepository struct {
	// mu serializes increment-and-append; this keeps sequence numbers
	// gapless under concurrent appends to the same conversation.
	mu            sync.Mutex
	conversations map[types.ConversationID]*model.Conversation
	entries       map[types.ConversationID][]*model.HistoryEntry
}

func newHistoryRepository() *historyRepository {
	return &historyRepository{
		conversations: make(map[types.ConversationID]*model.Conversation),
		entries:       make(map[types.ConversationID][]*model.HistoryEntry),
	}
}

func (r *historyRepository) Append(ctx context.Context, conversationID types.ConversationID, taskID types.TaskID) (*model.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	conv, exists := r.conversations[conversationID]
	if !exists {
		conv = &model.Conversation{ID: conversationID, CreatedAt: now}
		r.conversations[conversationID] = conv
	}
	conv.UpdatedAt = now

	entry := &model.HistoryEntry{
		ConversationID: conversationID,
		TaskID:         taskID,
		Seq:            int64(len(r.entries[conversationID])) + 1,
		CreatedAt:      now,
	}
	r.entries[conversationID] = append(r.entries[conversationID], entry)

	copied := *entry
	return &copied, nil
}

func (r *historyRepository) List(ctx context.Context, conversationID types.ConversationID) ([]*model.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.entries[conversationID]
	result := make([]*model.HistoryEntry, len(stored))
	for i, entry := range stored {
		copied := *entry
		result[i] = &copied
	}
	return result, nil
}
