package enums

import "fmt"

// EntityKind identifies which aggregate a cache entry or queue item targets.
type EntityKind string

const (
	EntityKindQuote  EntityKind = "quote"
	EntityKindClient EntityKind = "client"
)

var validEntityKinds = []EntityKind{
	EntityKindQuote,
	EntityKindClient,
}

// IsValid reports whether the value matches the canonical entity kind set.
func (k EntityKind) IsValid() bool {
	for _, candidate := range validEntityKinds {
		if candidate == k {
			return true
		}
	}
	return false
}

// ParseEntityKind converts raw input into EntityKind.
func ParseEntityKind(value string) (EntityKind, error) {
	for _, candidate := range validEntityKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid entity kind %q", value)
}

// QueueAction is the mutation a queue item replays against the remote API.
type QueueAction string

const (
	QueueActionCreate QueueAction = "create"
	QueueActionUpdate QueueAction = "update"
	QueueActionDelete QueueAction = "delete"
)

var validQueueActions = []QueueAction{
	QueueActionCreate,
	QueueActionUpdate,
	QueueActionDelete,
}

// IsValid reports whether the value matches the canonical queue action set.
func (a QueueAction) IsValid() bool {
	for _, candidate := range validQueueActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseQueueAction converts raw input into QueueAction.
func ParseQueueAction(value string) (QueueAction, error) {
	for _, candidate := range validQueueActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid queue action %q", value)
}
