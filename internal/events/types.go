// Package events defines the ClickUp domain events and their dispatcher
package events

// Type enumerates every webhook event the provider can deliver
type Type string

const (
	TypeAll Type = "*"

	TypeTaskCreated             Type = "taskCreated"
	TypeTaskUpdated             Type = "taskUpdated"
	TypeTaskDeleted             Type = "taskDeleted"
	TypeTaskPriorityUpdated     Type = "taskPriorityUpdated"
	TypeTaskStatusUpdated       Type = "taskStatusUpdated"
	TypeTaskAssigneeUpdated     Type = "taskAssigneeUpdated"
	TypeTaskDueDateUpdated      Type = "taskDueDateUpdated"
	TypeTaskTagUpdated          Type = "taskTagUpdated"
	TypeTaskMoved               Type = "taskMoved"
	TypeTaskCommentPosted       Type = "taskCommentPosted"
	TypeTaskCommentUpdated      Type = "taskCommentUpdated"
	TypeTaskTimeEstimateUpdated Type = "taskTimeEstimateUpdated"
	TypeTaskTimeTrackedUpdated  Type = "taskTimeTrackedUpdated"

	TypeListCreated Type = "listCreated"
	TypeListUpdated Type = "listUpdated"
	TypeListDeleted Type = "listDeleted"

	TypeFolderCreated Type = "folderCreated"
	TypeFolderUpdated Type = "folderUpdated"
	TypeFolderDeleted Type = "folderDeleted"

	TypeSpaceCreated Type = "spaceCreated"
	TypeSpaceUpdated Type = "spaceUpdated"
	TypeSpaceDeleted Type = "spaceDeleted"

	TypeGoalCreated      Type = "goalCreated"
	TypeGoalUpdated      Type = "goalUpdated"
	TypeGoalDeleted      Type = "goalDeleted"
	TypeKeyResultCreated Type = "keyResultCreated"
	TypeKeyResultUpdated Type = "keyResultUpdated"
	TypeKeyResultDeleted Type = "keyResultDeleted"
)

// ParseType maps a provider event name onto the closed enumeration.
// Names outside the enumeration return ok=false and are dropped by the
// dispatcher rather than treated as errors.
func ParseType(name string) (Type, bool) {
	switch Type(name) {
	case TypeAll,
		TypeTaskCreated, TypeTaskUpdated, TypeTaskDeleted,
		TypeTaskPriorityUpdated, TypeTaskStatusUpdated, TypeTaskAssigneeUpdated,
		TypeTaskDueDateUpdated, TypeTaskTagUpdated, TypeTaskMoved,
		TypeTaskCommentPosted, TypeTaskCommentUpdated,
		TypeTaskTimeEstimateUpdated, TypeTaskTimeTrackedUpdated,
		TypeListCreated, TypeListUpdated, TypeListDeleted,
		TypeFolderCreated, TypeFolderUpdated, TypeFolderDeleted,
		TypeSpaceCreated, TypeSpaceUpdated, TypeSpaceDeleted,
		TypeGoalCreated, TypeGoalUpdated, TypeGoalDeleted,
		TypeKeyResultCreated, TypeKeyResultUpdated, TypeKeyResultDeleted:
		return Type(name), true
	}
	return "", false
}

// All returns every concrete event type, excluding the wildcard
func All() []Type {
	return []Type{
		TypeTaskCreated, TypeTaskUpdated, TypeTaskDeleted,
		TypeTaskPriorityUpdated, TypeTaskStatusUpdated, TypeTaskAssigneeUpdated,
		TypeTaskDueDateUpdated, TypeTaskTagUpdated, TypeTaskMoved,
		TypeTaskCommentPosted, TypeTaskCommentUpdated,
		TypeTaskTimeEstimateUpdated, TypeTaskTimeTrackedUpdated,
		TypeListCreated, TypeListUpdated, TypeListDeleted,
		TypeFolderCreated, TypeFolderUpdated, TypeFolderDeleted,
		TypeSpaceCreated, TypeSpaceUpdated, TypeSpaceDeleted,
		TypeGoalCreated, TypeGoalUpdated, TypeGoalDeleted,
		TypeKeyResultCreated, TypeKeyResultUpdated, TypeKeyResultDeleted,
	}
}

func (t Type) IsTaskEvent() bool {
	switch t {
	case TypeTaskCreated, TypeTaskUpdated, TypeTaskDeleted,
		TypeTaskPriorityUpdated, TypeTaskStatusUpdated, TypeTaskAssigneeUpdated,
		TypeTaskDueDateUpdated, TypeTaskTagUpdated, TypeTaskMoved,
		TypeTaskCommentPosted, TypeTaskCommentUpdated,
		TypeTaskTimeEstimateUpdated, TypeTaskTimeTrackedUpdated:
		return true
	}
	return false
}

func (t Type) IsListEvent() bool {
	return t == TypeListCreated || t == TypeListUpdated || t == TypeListDeleted
}

func (t Type) IsFolderEvent() bool {
	return t == TypeFolderCreated || t == TypeFolderUpdated || t == TypeFolderDeleted
}

func (t Type) IsSpaceEvent() bool {
	return t == TypeSpaceCreated || t == TypeSpaceUpdated || t == TypeSpaceDeleted
}

func (t Type) IsGoalEvent() bool {
	switch t {
	case TypeGoalCreated, TypeGoalUpdated, TypeGoalDeleted,
		TypeKeyResultCreated, TypeKeyResultUpdated, TypeKeyResultDeleted:
		return true
	}
	return false
}

// Source identifies where an event's payload came from. Payload shapes
// differ between the two: webhook payloads carry flat identifiers such as
// task_id, API payloads carry the resource object itself.
type Source string

const (
	SourceAPI     Source = "api"
	SourceWebhook Source = "webhook"
)
