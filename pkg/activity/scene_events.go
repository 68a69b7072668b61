package activity

import (
	"slices"
	"strings"
	"time"
)

const (
	VerbObjectCreated   = "scene.object.created"
	VerbObjectCommitted = "scene.object.committed"
	VerbObjectRemoved   = "scene.object.removed"
	VerbSceneCommitted  = "scene.committed"

	ObjectTypeSceneObject = "scene.object"
	ObjectTypeScene       = "scene"
)

// SceneEventInput describes the common fields for scene lifecycle events.
type SceneEventInput struct {
	ActorID         string
	UserID          string
	TenantID        string
	ObjectID        string
	ObjectName      string
	Class           string
	Interface       string
	Channel         string
	Changed         []string
	Bindings        []string
	UpdateRequested bool
	Duration        time.Duration
	Metadata        map[string]any
	OccurredAt      time.Time
}

// BuildObjectCreatedEvent constructs an event for a newly registered object.
func BuildObjectCreatedEvent(input SceneEventInput) Event {
	return buildSceneEvent(VerbObjectCreated, ObjectTypeSceneObject, input)
}

// BuildObjectCommittedEvent constructs an event for the outermost commit of
// an object's update transaction.
func BuildObjectCommittedEvent(input SceneEventInput) Event {
	return buildSceneEvent(VerbObjectCommitted, ObjectTypeSceneObject, input)
}

// BuildObjectRemovedEvent constructs an event for an object dropped from its
// registry.
func BuildObjectRemovedEvent(input SceneEventInput) Event {
	return buildSceneEvent(VerbObjectRemoved, ObjectTypeSceneObject, input)
}

// BuildSceneCommittedEvent constructs an event for a scene-wide commit.
func BuildSceneCommittedEvent(input SceneEventInput) Event {
	return buildSceneEvent(VerbSceneCommitted, ObjectTypeScene, input)
}

func buildSceneEvent(verb, objectType string, input SceneEventInput) Event {
	metadata := cloneMetadata(input.Metadata)
	if input.Interface != "" {
		metadata = ensureMetadata(metadata)
		metadata["interface"] = input.Interface
	}
	if len(input.Bindings) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["bindings"] = slices.Clone(input.Bindings)
	}
	if input.UpdateRequested {
		metadata = ensureMetadata(metadata)
		metadata["update_requested"] = true
	}
	if input.Duration > 0 {
		metadata = ensureMetadata(metadata)
		metadata["duration_ms"] = float64(input.Duration) / float64(time.Millisecond)
	}

	objectID := strings.TrimSpace(input.ObjectID)
	if objectID == "" {
		objectID = strings.TrimSpace(input.ObjectName)
	}
	if objectID == "" {
		objectID = objectType
	}

	var changes []string
	if len(input.Changed) > 0 {
		changes = slices.Clone(input.Changed)
	}

	return Event{
		Verb:       verb,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: objectType,
		ObjectID:   objectID,
		ObjectName: strings.TrimSpace(input.ObjectName),
		Class:      strings.TrimSpace(input.Class),
		Channel:    strings.TrimSpace(input.Channel),
		Changes:    changes,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
