package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// TaskInput is the tagged union carried by a task. Kind selects which
// payload fields must be present.
type TaskInput struct {
	Kind        types.InputKind `json:"type"`
	Content     string          `json:"content"`
	Attachments []Attachment    `json:"attachments,omitempty"`
}

// Attachment is an auxiliary payload of a multi-modal input
type Attachment struct {
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// TaskContext carries optional conversation linkage and snapshot references.
// Values holds hydrated snapshot contents merged by the dispatcher.
type TaskContext struct {
	ConversationID types.ConversationID `json:"conversation_id,omitempty"`
	Snapshots      []types.SnapshotID   `json:"memory_snapshots,omitempty"`
	Values         map[string]any       `json:"values,omitempty"`
}

// TaskPolicy constrains provider choice, budget and deadline for one task
type TaskPolicy struct {
	Ranking    []types.ProviderName `json:"llm_ranking"`
	MaxTokens  int                  `json:"max_tokens,omitempty"`
	TimeoutMS  int64                `json:"timeout_ms,omitempty"`
	CostBudget float64              `json:"cost_budget,omitempty"`
}

// Task is a unit of work submitted to the dispatcher
type Task struct {
	ID       types.TaskID   `json:"task_id"`
	AgentID  types.AgentID  `json:"agent_id"`
	TenantID types.TenantID `json:"tenant_id,omitempty"`
	Priority int            `json:"priority,omitempty"`
	Mode     types.TaskMode `json:"mode,omitempty"`
	Input    TaskInput      `json:"input"`
	Context  TaskContext    `json:"context,omitempty"`
	Policy   TaskPolicy     `json:"policy"`
}

// Validate checks the structural invariants a task must satisfy before it
// may reach the selector or an agent.
func (t *Task) Validate() error {
	if t.ID == "" {
		return goerr.New("task_id is required")
	}
	if t.AgentID == "" {
		return goerr.New("agent_id is required")
	}
	if t.Input.Content == "" {
		return goerr.New("input content is required", goerr.V("task_id", t.ID))
	}
	if len(t.Policy.Ranking) == 0 {
		return goerr.New("policy llm_ranking must not be empty", goerr.V("task_id", t.ID))
	}
	if t.Mode != "" && !t.Mode.IsValid() {
		return goerr.New("invalid task mode", goerr.V("task_id", t.ID), goerr.V("mode", t.Mode))
	}
	if t.Input.Kind != "" && !t.Input.Kind.IsValid() {
		return goerr.New("invalid input type", goerr.V("task_id", t.ID), goerr.V("type", t.Input.Kind))
	}
	return nil
}
