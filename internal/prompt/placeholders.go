package prompt

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"innerbloom-server/internal/catalog"
	"innerbloom-server/internal/model"
)

// Placeholder keys understood by the templates.
const (
	KeyUserID       = "USER_ID"
	KeyTasksGroupID = "TASKS_GROUP_ID"
	KeyUserName     = "USER_NAME"
	KeyGameMode     = "GAME_MODE"
	KeyGameModeName = "GAME_MODE_NAME"
	KeyPillars      = "PILLARS"
	KeyTraits       = "TRAITS"
	KeyStats        = "STATS"
	KeyDifficulties = "DIFFICULTIES"
	KeyOnboarding   = "ONBOARDING"
	KeyTaskCount    = "TASK_COUNT"
)

// NotApplicable is the tasks group id of users without a group. Validation
// skips the group id check when it is expected.
const NotApplicable = "N/A"

// DefaultTaskCount is the number of tasks requested when the caller does not say.
const DefaultTaskCount = 15

// Placeholders maps template keys to their values.
type Placeholders map[string]string

// UserID returns the expected user id.
func (p Placeholders) UserID() string { return p[KeyUserID] }

// TasksGroupID returns the expected tasks group id, possibly NotApplicable.
func (p Placeholders) TasksGroupID() string { return p[KeyTasksGroupID] }

// BuildPlaceholders builds the substitution table for one user, snapshot and
// catalog.
func BuildPlaceholders(user *model.User, snap *model.Snapshot, cat *catalog.Catalog, mode model.Mode, taskCount int) Placeholders {
	if taskCount <= 0 {
		taskCount = DefaultTaskCount
	}

	userID := string(user.UserID)
	groupID := strings.TrimSpace(user.TasksGroupID)
	if groupID == "" {
		groupID = NotApplicable
	}
	name := strings.TrimSpace(user.FirstName)
	if name == "" {
		name = userID
	}

	modeCode := strings.ToUpper(string(mode))
	modeName := modeCode
	for _, gm := range snap.GameModes {
		if strings.EqualFold(gm.Code, modeCode) && gm.Name != "" {
			modeName = gm.Name
			break
		}
	}

	return Placeholders{
		KeyUserID:       userID,
		KeyTasksGroupID: groupID,
		KeyUserName:     name,
		KeyGameMode:     modeCode,
		KeyGameModeName: modeName,
		KeyPillars:      cat.PillarsText,
		KeyTraits:       cat.TraitsText,
		KeyStats:        cat.StatsText,
		KeyDifficulties: cat.DifficultiesText,
		KeyOnboarding:   onboardingText(snap, userID),
		KeyTaskCount:    strconv.Itoa(taskCount),
	}
}

func onboardingText(snap *model.Snapshot, userID string) string {
	sess, ok := snap.LatestOnboarding(userID)
	if !ok || len(sess.Answers) == 0 {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, sess.Answers); err != nil {
		return string(sess.Answers)
	}
	return buf.String()
}
