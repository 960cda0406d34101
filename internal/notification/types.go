package notification

import (
	"errors"
	"time"
)

// Type classifies a notification. The set is closed; anything else is
// rejected before persistence.
type Type string

const (
	TypeApproval Type = "approval"
	TypeComment  Type = "comment"
	TypeMention  Type = "mention"
)

// Valid reports whether t is a member of the closed enumeration.
func (t Type) Valid() bool {
	switch t {
	case TypeApproval, TypeComment, TypeMention:
		return true
	}
	return false
}

// RelatedKind identifies which content entity a related item points at.
type RelatedKind string

const (
	KindTool    RelatedKind = "Tool"
	KindProject RelatedKind = "Project"
	KindNews    RelatedKind = "News"
)

// Valid reports whether k is a member of the closed enumeration.
func (k RelatedKind) Valid() bool {
	switch k {
	case KindTool, KindProject, KindNews:
		return true
	}
	return false
}

// RelatedItem is a tagged reference to the content entity a notification
// concerns. Kind and ID are always both set.
type RelatedItem struct {
	Kind RelatedKind `json:"kind"`
	ID   string      `json:"id"`
}

// Notification is the durable record. Read only transitions false to true
// and CreatedAt is never mutated after insert.
type Notification struct {
	ID          string       `json:"id"`
	Recipient   string       `json:"recipient"`
	Type        Type         `json:"type"`
	Content     string       `json:"content"`
	Read        bool         `json:"read"`
	RelatedItem *RelatedItem `json:"relatedItem,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

// EventTypeNotification is the frame type pushed over the live channel.
const EventTypeNotification = "notification"

// Event is the wire shape of a live push frame.
type Event struct {
	Type string       `json:"type"`
	Data Notification `json:"data"`
}

var (
	// ErrEmptyRecipient is returned when a create request has no recipient.
	ErrEmptyRecipient = errors.New("recipient is required")
	// ErrEmptyContent is returned when a create request has no content.
	ErrEmptyContent = errors.New("content is required")
	// ErrInvalidType is returned when the type is outside the closed enumeration.
	ErrInvalidType = errors.New("invalid notification type")
	// ErrInvalidRelatedItem is returned when kind and id are not jointly present
	// or the kind is unknown.
	ErrInvalidRelatedItem = errors.New("invalid related item reference")
	// ErrNotFound is returned when no record exists for the given id.
	ErrNotFound = errors.New("notification not found")
	// ErrNotOwner is returned when the caller is not the record's recipient.
	ErrNotOwner = errors.New("notification belongs to another recipient")
)

// CreateInput carries the fields of a createNotification call.
type CreateInput struct {
	Recipient   string       `json:"recipient"`
	Type        Type         `json:"type"`
	Content     string       `json:"content"`
	RelatedItem *RelatedItem `json:"relatedItem,omitempty"`
}

// Validate checks the input against the data model invariants.
// It runs before any persistence attempt or registry lookup.
func (in CreateInput) Validate() error {
	if in.Recipient == "" {
		return ErrEmptyRecipient
	}
	if in.Content == "" {
		return ErrEmptyContent
	}
	if !in.Type.Valid() {
		return ErrInvalidType
	}
	if in.RelatedItem != nil {
		if in.RelatedItem.ID == "" || !in.RelatedItem.Kind.Valid() {
			return ErrInvalidRelatedItem
		}
	}
	return nil
}
