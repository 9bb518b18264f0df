// Package messaging carries task-generation traffic over RabbitMQ: incoming
// generation requests and outgoing "tasks generated" notifications.
package messaging

import "time"

const (
	// RoutingKeyTasksGenerated is used for TasksGeneratedEvent on the tasks exchange.
	RoutingKeyTasksGenerated = "tasks.generated"

	appID = "innerbloom-taskgen"
)

// TasksGeneratedEvent is published after a batch has been stored.
type TasksGeneratedEvent struct {
	EventID      string    `json:"event_id"`
	BatchID      string    `json:"batch_id"`
	UserID       string    `json:"user_id"`
	TasksGroupID string    `json:"tasks_group_id,omitempty"`
	Mode         string    `json:"mode"`
	Source       string    `json:"source"`
	Model        string    `json:"model,omitempty"`
	TaskCount    int       `json:"task_count"`
	TaskIDs      []string  `json:"task_ids"`
	CreatedAt    time.Time `json:"created_at"`
}

// GenerationRequest asks the worker to generate tasks for one user.
type GenerationRequest struct {
	RequestID      string `json:"request_id"`
	UserID         string `json:"user_id"`
	Mode           string `json:"mode,omitempty"`
	Source         string `json:"source,omitempty"`
	PromptOverride string `json:"prompt_override,omitempty"`
	DryRun         bool   `json:"dry_run,omitempty"`
	Seed           int64  `json:"seed,omitempty"`
	Persist        bool   `json:"persist,omitempty"`
}
