package model

import (
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// TaskResult is the payload of a successful task execution
type TaskResult struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// ResponseMetadata is the execution accounting attached to every response
type ResponseMetadata struct {
	Provider  types.ProviderName `json:"llm_used,omitempty"`
	Tokens    int                `json:"tokens_used"`
	Cost      float64            `json:"cost"`
	ElapsedMS int64              `json:"execution_ms"`
}

// Response is the outcome of a task. For terminal statuses exactly one of
// Result and Error is populated.
type Response struct {
	TaskID    types.TaskID     `json:"task_id"`
	Status    types.TaskStatus `json:"status"`
	Result    *TaskResult      `json:"result,omitempty"`
	Error     string           `json:"error,omitempty"`
	Metadata  ResponseMetadata `json:"metadata"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

// Failed builds a terminal failed response with zeroed metadata
func Failed(taskID types.TaskID, err error) *Response {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Response{
		TaskID:    taskID,
		Status:    types.TaskStatusFailed,
		Error:     msg,
		CreatedAt: time.Now().UTC(),
	}
}

// Clone returns a deep copy of the response
func (r *Response) Clone() *Response {
	if r == nil {
		return nil
	}
	copied := *r
	if r.Result != nil {
		result := *r.Result
		copied.Result = &result
	}
	return &copied
}
