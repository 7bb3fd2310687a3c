package interfaces

import (
	"context"

	"github.com/relayforge/taskmesh/pkg/domain/model"
	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// Agent is the unit of work execution. Implementations are pure
// request-to-response transforms plus metadata accounting; they perform no
// storage or network side effects of their own.
type Agent interface {
	ID() types.AgentID
	Name() string
	Capabilities() []string

	// ProcessTask turns a task into a response using the chosen provider
	// descriptor for metadata accounting. Malformed input fails fast with a
	// validation error, never a provider error.
	ProcessTask(ctx context.Context, task *model.Task, provider *model.Provider) (*model.Response, error)

	// HealthCheck self-tests by running a trivial task through ProcessTask.
	HealthCheck(ctx context.Context) error
}

// ProviderSelector chooses a provider for a task policy
type ProviderSelector interface {
	Choose(policy model.TaskPolicy) (*model.Provider, error)
	HealthCheck(ctx context.Context) error
}
