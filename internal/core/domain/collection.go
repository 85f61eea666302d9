package domain

import (
	"regexp"
	"time"
)

// FieldType enumerates the declarative types a schema field may carry.
type FieldType string

const (
	FieldText    FieldType = "text"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldDate    FieldType = "date"
	FieldJSON    FieldType = "json"
	FieldEmail   FieldType = "email"
	FieldURL     FieldType = "url"
	FieldEnum    FieldType = "enum"
)

var fieldTypes = map[FieldType]struct{}{
	FieldText: {}, FieldNumber: {}, FieldBoolean: {}, FieldDate: {},
	FieldJSON: {}, FieldEmail: {}, FieldURL: {}, FieldEnum: {},
}

// Valid reports whether t is a known field type.
func (t FieldType) Valid() bool {
	_, ok := fieldTypes[t]
	return ok
}

// Relation declares that a field's value must reference an existing item id
// in another collection of the same tenant. Existence is checked at write
// time only; deleting the referent later leaves dangling references.
type Relation struct {
	Collection string `json:"collection" bson:"collection"`
	Field      string `json:"field,omitempty" bson:"field,omitempty"` // always "id" today
}

// FieldDef is one entry of a collection's caller-supplied flat schema.
type FieldDef struct {
	Name       string    `json:"name" bson:"name"`
	Type       FieldType `json:"type" bson:"type"`
	Required   bool      `json:"required,omitempty" bson:"required,omitempty"`
	Default    any       `json:"default,omitempty" bson:"default,omitempty"`
	Min        *float64  `json:"min,omitempty" bson:"min,omitempty"`
	Max        *float64  `json:"max,omitempty" bson:"max,omitempty"`
	MinLength  *int      `json:"minLength,omitempty" bson:"min_length,omitempty"`
	MaxLength  *int      `json:"maxLength,omitempty" bson:"max_length,omitempty"`
	EnumValues []string  `json:"enum_values,omitempty" bson:"enum_values,omitempty"`
	Relation   *Relation `json:"relation,omitempty" bson:"relation,omitempty"`
}

// CollectionSettings are the per-collection access policy flags.
// All default to false: open read and write.
type CollectionSettings struct {
	OwnerReadOnly  bool `json:"ownerReadOnly" bson:"owner_read_only"`
	OwnerWriteOnly bool `json:"ownerWriteOnly" bson:"owner_write_only"`
	PublicRead     bool `json:"publicRead" bson:"public_read"`
	AdminWriteOnly bool `json:"adminWriteOnly" bson:"admin_write_only"`
}

// AutoCreatedDescription marks collections provisioned lazily on first use.
const AutoCreatedDescription = "auto-created"

// Collection is a named, schema-describable grouping of items within a
// tenant. An empty schema means any JSON object payload is accepted.
type Collection struct {
	ID          string             `json:"id" bson:"_id,omitempty"`
	TenantID    string             `json:"tenant_id" bson:"tenant_id"`
	Name        string             `json:"name" bson:"name"`
	Description string             `json:"description,omitempty" bson:"description,omitempty"`
	Schema      []FieldDef         `json:"schema" bson:"schema"`
	Settings    CollectionSettings `json:"settings" bson:"settings"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// collectionNamePattern: lowercase letters, digits and underscore, must not
// start with a digit.
var collectionNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidCollectionName reports whether name may be used as a collection name.
func ValidCollectionName(name string) bool {
	return collectionNamePattern.MatchString(name)
}
