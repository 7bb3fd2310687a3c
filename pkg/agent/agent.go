// Package agent provides the capability-agent contract's reference
// implementation. Agents are pure request-to-response transforms with
// metadata accounting; storage and provider selection live elsewhere.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/relayforge/taskmesh/pkg/domain/interfaces"
	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// ErrInvalidInput marks malformed task input. It is a validation failure,
// never a provider failure.
var ErrInvalidInput = goerr.New("invalid task input")

// Intelligence is the reference agent: it dispatches on input kind, routes
// text by content classification and accounts tokens, cost and wall time
// against the provider descriptor it was given.
type Intelligence struct {
	id           types.AgentID
	name         string
	capabilities []string
	classifier   Classifier
}

var _ interfaces.Agent = &Intelligence{}

// IntelligenceOption configures the reference agent
type IntelligenceOption func(*Intelligence)

// WithClassifier replaces the content classifier
func WithClassifier(c Classifier) IntelligenceOption {
	return func(a *Intelligence) {
		a.classifier = c
	}
}

// WithName overrides the display name
func WithName(name string) IntelligenceOption {
	return func(a *Intelligence) {
		a.name = name
	}
}

// NewIntelligence creates the reference agent under the given id
func NewIntelligence(id types.AgentID, opts ...IntelligenceOption) *Intelligence {
	a := &Intelligence{
		id:   id,
		name: "intelligence",
		capabilities: []string{
			"summarize", "analyze", "generate", "text", "multi-modal",
		},
		classifier: DefaultClassifier,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Intelligence) ID() types.AgentID {
	return a.id
}

func (a *Intelligence) Name() string {
	return a.name
}

func (a *Intelligence) Capabilities() []string {
	return append([]string{}, a.capabilities...)
}

// ProcessTask executes the task against the provider descriptor. The
// provider is opaque: it contributes its name and unit cost to the metadata
// block, nothing else.
func (a *Intelligence) ProcessTask(ctx context.Context, task *model.Task, provider *model.Provider) (*model.Response, error) {
	startedAt := time.Now()

	if task == nil {
		return nil, goerr.Wrap(ErrInvalidInput, "task is nil")
	}
	if provider == nil {
		return nil, goerr.New("provider descriptor is required", goerr.V("task_id", task.ID))
	}
	if task.Input.Content == "" {
		return nil, goerr.Wrap(ErrInvalidInput, "input content is required", goerr.V("task_id", task.ID))
	}

	var result *model.TaskResult
	switch task.Input.Kind {
	case types.InputKindMultiModal:
		r, err := a.processMultiModal(task)
		if err != nil {
			return nil, err
		}
		result = r

	case types.InputKindText, "":
		result = a.processText(task)

	default:
		return nil, goerr.Wrap(ErrInvalidInput, "unsupported input type",
			goerr.V("task_id", task.ID), goerr.V("type", task.Input.Kind))
	}

	if err := ctx.Err(); err != nil {
		return nil, goerr.Wrap(err, "task context ended during processing", goerr.V("task_id", task.ID))
	}

	tokens := estimateTokens(task.Input)
	return &model.Response{
		TaskID: task.ID,
		Status: types.TaskStatusCompleted,
		Result: result,
		Metadata: model.ResponseMetadata{
			Provider:  provider.Name,
			Tokens:    tokens,
			Cost:      float64(tokens) * provider.CostPerToken,
			ElapsedMS: time.Since(startedAt).Milliseconds(),
		},
		CreatedAt: time.Now().UTC(),
	}, nil
}

// processText sub-routes by content classification. The classifier is
// total, so every input lands in exactly one branch.
func (a *Intelligence) processText(task *model.Task) *model.TaskResult {
	intent := a.classifier(task.Input.Content)

	var content string
	switch intent {
	case IntentSummarize:
		content = fmt.Sprintf("Summary of input (%d chars): %s", len(task.Input.Content), truncate(task.Input.Content, 200))
	case IntentAnalyze:
		content = fmt.Sprintf("Analysis of input (%d chars): %s", len(task.Input.Content), truncate(task.Input.Content, 200))
	case IntentGenerate:
		content = fmt.Sprintf("Generated output for: %s", truncate(task.Input.Content, 200))
	default:
		content = fmt.Sprintf("Processed: %s", truncate(task.Input.Content, 200))
	}

	return &model.TaskResult{
		Type:    intent.resultType(),
		Content: content,
	}
}

// processMultiModal requires both the textual payload and at least one
// auxiliary attachment.
func (a *Intelligence) processMultiModal(task *model.Task) (*model.TaskResult, error) {
	if len(task.Input.Attachments) == 0 {
		return nil, goerr.Wrap(ErrInvalidInput, "multi-modal input requires attachments",
			goerr.V("task_id", task.ID))
	}

	return &model.TaskResult{
		Type: "multi-modal",
		Content: fmt.Sprintf("Processed multi-modal input: %s (%d attachments)",
			truncate(task.Input.Content, 200), len(task.Input.Attachments)),
	}, nil
}

// HealthCheck self-tests by running a trivial task through ProcessTask
func (a *Intelligence) HealthCheck(ctx context.Context) error {
	task := &model.Task{
		ID:      types.TaskID("healthcheck"),
		AgentID: a.id,
		Input: model.TaskInput{
			Kind:    types.InputKindText,
			Content: "ping",
		},
		Policy: model.TaskPolicy{
			Ranking: []types.ProviderName{"healthcheck"},
		},
	}
	provider := &model.Provider{
		Name:      "healthcheck",
		Endpoint:  "internal://healthcheck",
		Available: true,
	}

	resp, err := a.ProcessTask(ctx, task, provider)
	if err != nil {
		return goerr.Wrap(err, "agent self-test failed", goerr.V("agent_id", a.id))
	}
	if resp.Status != types.TaskStatusCompleted {
		return goerr.New("agent self-test did not complete",
			goerr.V("agent_id", a.id), goerr.V("status", resp.Status))
	}
	return nil
}

// estimateTokens derives a deterministic token estimate from the serialized
// input size, roughly four bytes per token.
func estimateTokens(input model.TaskInput) int {
	serialized, err := json.Marshal(input)
	if err != nil {
		return (len(input.Content) + 3) / 4
	}
	return (len(serialized) + 3) / 4
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
