package agent

import "strings"

// Intent is the content-classification branch used to sub-route text tasks
type Intent string

const (
	IntentSummarize Intent = "summarize"
	IntentAnalyze   Intent = "analyze"
	IntentGenerate  Intent = "generate"
	IntentGeneric   Intent = "generic"
)

// resultType maps an intent to the type tag carried on the task result
func (x Intent) resultType() string {
	switch x {
	case IntentSummarize:
		return "summary"
	case IntentAnalyze:
		return "analysis"
	case IntentGenerate:
		return "generation"
	default:
		return "text"
	}
}

// Classifier decides the sub-routing branch for text input. Implementations
// must be total: every input maps to exactly one intent, with IntentGeneric
// as the default branch.
type Classifier func(content string) Intent

// DefaultClassifier routes on leading keywords in the content. Anything
// unrecognized is generic.
func DefaultClassifier(content string) Intent {
	lowered := strings.ToLower(strings.TrimSpace(content))

	switch {
	case strings.HasPrefix(lowered, "summarize") || strings.HasPrefix(lowered, "summary"):
		return IntentSummarize
	case strings.HasPrefix(lowered, "analyze") || strings.HasPrefix(lowered, "analysis"):
		return IntentAnalyze
	case strings.HasPrefix(lowered, "generate") || strings.HasPrefix(lowered, "write") || strings.HasPrefix(lowered, "create"):
		return IntentGenerate
	default:
		return IntentGeneric
	}
}
