package domain

import (
	"regexp"
	"time"
)

// Data is the open map carried by every item. Keys are the
// caller-supplied payload fields; id, timestamps and the reserved
// sort_order key are item metadata and never live here. Values are what
// encoding/json produces for an object: string, float64, bool, nil,
// map[string]any or []any.
type Data map[string]any

// Merge returns a copy of d with the keys of partial shallow-merged on top
// (one level: new keys overwrite, others stay untouched).
func (d Data) Merge(partial Data) Data {
	merged := make(Data, len(d)+len(partial))
	for k, v := range d {
		merged[k] = v
	}
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// Item is one record within a collection.
type Item struct {
	ID           string    `json:"id" bson:"_id,omitempty"`
	TenantID     string    `json:"tenant_id" bson:"tenant_id"`
	CollectionID string    `json:"collection_id" bson:"collection_id"`
	// OwnerID is the identity that created the item; empty for guest or
	// system-created items.
	OwnerID    string    `json:"owner_id,omitempty" bson:"owner_id,omitempty"`
	Data       Data      `json:"data" bson:"data"`
	SortOrder  *float64  `json:"sort_order,omitempty" bson:"sort_order,omitempty"`
	IsArchived bool      `json:"is_archived" bson:"is_archived"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" bson:"updated_at"`
}

// filterKeyPattern guards dynamic filter keys before they reach the storage
// layer. Anything else is rejected up front, never passed through.
var filterKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SafeFilterKey reports whether key may be used as a dynamic filter field.
func SafeFilterKey(key string) bool {
	return filterKeyPattern.MatchString(key)
}
