package ports

import (
	"context"
	"time"
)

// AuditEntry records a privileged action (role change, ban, admin delete).
type AuditEntry struct {
	TenantID     string         `json:"tenant_id" bson:"tenant_id"`
	ActorID      string         `json:"actor_id,omitempty" bson:"actor_id,omitempty"`
	Action       string         `json:"action" bson:"action"`
	ResourceType string         `json:"resource_type" bson:"resource_type"`
	ResourceID   string         `json:"resource_id" bson:"resource_id"`
	Details      map[string]any `json:"details,omitempty" bson:"details,omitempty"`
	Timestamp    time.Time      `json:"timestamp" bson:"timestamp"`
}

// AuditSink appends audit entries fire-and-forget: a failed append must
// never fail the primary operation.
type AuditSink interface {
	Record(ctx context.Context, entry AuditEntry)
}
