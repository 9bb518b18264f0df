package model

// TaskPayload is the generated document: one batch of tasks for a user.
type TaskPayload struct {
	UserID       string `json:"user_id"`
	TasksGroupID string `json:"tasks_group_id"`
	Tasks        []Task `json:"tasks"`
}

// Task is a single generated task.
type Task struct {
	Task           string  `json:"task"`
	PillarCode     string  `json:"pillar_code"`
	TraitCode      string  `json:"trait_code"`
	StatCode       string  `json:"stat_code"`
	DifficultyCode string  `json:"difficulty_code"`
	FrictionScore  float64 `json:"friction_score"`
	FrictionTier   string  `json:"friction_tier"`
}

// Clone returns a deep copy of p.
func (p *TaskPayload) Clone() *TaskPayload {
	if p == nil {
		return nil
	}
	out := *p
	out.Tasks = append([]Task(nil), p.Tasks...)
	return &out
}
