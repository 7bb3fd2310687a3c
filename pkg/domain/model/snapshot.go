package model

import (
	"time"

	"github.com/relayforge/taskmesh/pkg/domain/types"
)

// Snapshot is a previously stored context fragment that can be merged into
// a new task's context during hydration.
type Snapshot struct {
	ID        types.SnapshotID `json:"id"`
	TenantID  types.TenantID   `json:"tenant_id,omitempty"`
	Values    map[string]any   `json:"values"`
	CreatedAt time.Time        `json:"created_at,omitempty"`
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	copied := *s
	if s.Values != nil {
		copied.Values = make(map[string]any, len(s.Values))
		for k, v := range s.Values {
			copied.Values[k] = v
		}
	}
	return &copied
}
