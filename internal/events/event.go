package events

// DomainEvent is the closed set of events flowing through the dispatcher.
// Concrete values are the family wrappers below, all embedding Event.
type DomainEvent interface {
	EventType() Type
	EventSource() Source
	RawPayload() map[string]interface{}
	WasSuccessful() bool
}

// Event is the shared base for all event families
type Event struct {
	Type       Type
	Source     Source
	Payload    map[string]interface{}
	Successful bool
}

func (e Event) EventType() Type                    { return e.Type }
func (e Event) EventSource() Source                { return e.Source }
func (e Event) RawPayload() map[string]interface{} { return e.Payload }
func (e Event) WasSuccessful() bool                { return e.Successful }

// IsFromWebhook reports whether the payload came off the wire rather than
// from an API response
func (e Event) IsFromWebhook() bool { return e.Source == SourceWebhook }

// HistoryItems returns the provider's change history entries, if present
func (e Event) HistoryItems() []map[string]interface{} {
	raw, ok := e.Payload["history_items"].([]interface{})
	if !ok {
		return nil
	}
	items := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if item, ok := entry.(map[string]interface{}); ok {
			items = append(items, item)
		}
	}
	return items
}

func (e Event) stringField(key string) string {
	if v, ok := e.Payload[key].(string); ok {
		return v
	}
	return ""
}

func (e Event) nestedStringField(parent, key string) string {
	obj, ok := e.Payload[parent].(map[string]interface{})
	if !ok {
		return ""
	}
	if v, ok := obj[key].(string); ok {
		return v
	}
	return ""
}

// TaskIdentifier is implemented by events that can name the task they
// concern
type TaskIdentifier interface {
	TaskID() string
}

// TaskEvent covers the task* family
type TaskEvent struct {
	Event
}

// TaskID returns the task identifier. Webhook payloads carry it as
// task_id, API payloads as the object's own id.
func (e TaskEvent) TaskID() string {
	if e.IsFromWebhook() {
		return e.stringField("task_id")
	}
	return e.stringField("id")
}

// ListID returns the parent list identifier when the payload names one
func (e TaskEvent) ListID() string {
	if e.IsFromWebhook() {
		return e.stringField("list_id")
	}
	return e.nestedStringField("list", "id")
}

// CustomFields returns the task's custom field entries, if present
func (e TaskEvent) CustomFields() []map[string]interface{} {
	raw, ok := e.Payload["custom_fields"].([]interface{})
	if !ok {
		return nil
	}
	fields := make([]map[string]interface{}, 0, len(raw))
	for _, entry := range raw {
		if field, ok := entry.(map[string]interface{}); ok {
			fields = append(fields, field)
		}
	}
	return fields
}

// ListEvent covers the list* family
type ListEvent struct {
	Event
}

func (e ListEvent) ListID() string {
	if e.IsFromWebhook() {
		return e.stringField("list_id")
	}
	return e.stringField("id")
}

// FolderEvent covers the folder* family
type FolderEvent struct {
	Event
}

func (e FolderEvent) FolderID() string {
	if e.IsFromWebhook() {
		return e.stringField("folder_id")
	}
	return e.stringField("id")
}

// SpaceEvent covers the space* family
type SpaceEvent struct {
	Event
}

func (e SpaceEvent) SpaceID() string {
	if e.IsFromWebhook() {
		return e.stringField("space_id")
	}
	return e.stringField("id")
}

// GoalEvent covers the goal* and keyResult* families
type GoalEvent struct {
	Event
}

func (e GoalEvent) GoalID() string {
	if e.IsFromWebhook() {
		return e.stringField("goal_id")
	}
	return e.stringField("id")
}

// New builds the family wrapper for the given type
func New(t Type, payload map[string]interface{}, source Source, successful bool) DomainEvent {
	base := Event{
		Type:       t,
		Source:     source,
		Payload:    payload,
		Successful: successful,
	}

	switch {
	case t.IsTaskEvent():
		return TaskEvent{base}
	case t.IsListEvent():
		return ListEvent{base}
	case t.IsFolderEvent():
		return FolderEvent{base}
	case t.IsSpaceEvent():
		return SpaceEvent{base}
	case t.IsGoalEvent():
		return GoalEvent{base}
	default:
		return base
	}
}
