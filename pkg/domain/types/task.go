package types

// TaskMode represents how a task's outcome is delivered to the caller
type TaskMode string

const (
	TaskModeSync   TaskMode = "sync"
	TaskModeAsync  TaskMode = "async"
	TaskModeStream TaskMode = "stream"
)

// AllTaskModes returns all valid task modes
func AllTaskModes() []TaskMode {
	return []TaskMode{TaskModeSync, TaskModeAsync, TaskModeStream}
}

// IsValid checks if the task mode is valid. An empty mode is treated as sync
// by the dispatcher, so only non-empty values are rejected here.
func (m TaskMode) IsValid() bool {
	switch m {
	case TaskModeSync, TaskModeAsync, TaskModeStream:
		return true
	default:
		return false
	}
}

// String returns the string representation of the task mode
func (m TaskMode) String() string {
	return string(m)
}

// TaskStatus represents the lifecycle state of a task response
type TaskStatus string

const (
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusPartial   TaskStatus = "partial"
	TaskStatusStreaming TaskStatus = "streaming"
)

// IsTerminal reports whether the status is a final state
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// String returns the string representation of the task status
func (s TaskStatus) String() string {
	return string(s)
}

// InputKind is the tagged-union discriminator of a task input
type InputKind string

const (
	InputKindText       InputKind = "text"
	InputKindMultiModal InputKind = "multi-modal"
)

// IsValid checks if the input kind is valid
func (k InputKind) IsValid() bool {
	switch k {
	case InputKindText, InputKindMultiModal:
		return true
	default:
		return false
	}
}

// String returns the string representation of the input kind
func (k InputKind) String() string {
	return string(k)
}
