package types

// TaskID is the globally unique identifier of a submitted task
type TaskID string

// AgentID identifies a registered capability agent
type AgentID string

// TenantID is the isolation boundary for stored embeddings and snapshots
type TenantID string

// ConversationID identifies a conversation history stream
type ConversationID string

// SnapshotID identifies a stored context snapshot
type SnapshotID string

// EmbeddingID identifies a stored embedding record
type EmbeddingID string

// ProviderName is the unique key of a backend provider descriptor
type ProviderName string

func (x TaskID) String() string         { return string(x) }
func (x AgentID) String() string        { return string(x) }
func (x TenantID) String() string       { return string(x) }
func (x ConversationID) String() string { return string(x) }
func (x ProviderName) String() string   { return string(x) }
