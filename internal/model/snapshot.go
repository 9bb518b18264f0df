package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ID is a row identifier. Snapshot exports carry both numeric and string ids,
// so both are accepted and kept as their textual form.
type ID string

// UnmarshalJSON accepts strings, numbers and null.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or a number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// User is a row of the users table.
type User struct {
	UserID       ID     `json:"user_id"`
	FirstName    string `json:"first_name,omitempty"`
	Email        string `json:"email,omitempty"`
	GameModeID   ID     `json:"game_mode_id,omitempty"`
	TasksGroupID string `json:"tasks_group_id,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// GameMode is a row of cat_game_mode.
type GameMode struct {
	GameModeID   ID     `json:"game_mode_id"`
	Code         string `json:"code"`
	Name         string `json:"name,omitempty"`
	WeeklyTarget int    `json:"weekly_target,omitempty"`
}

// Pillar is a row of cat_pillar.
type Pillar struct {
	PillarID ID     `json:"pillar_id"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
}

// Trait is a row of cat_trait.
type Trait struct {
	TraitID  ID     `json:"trait_id"`
	PillarID ID     `json:"pillar_id,omitempty"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
}

// Stat is a row of cat_stat.
type Stat struct {
	StatID  ID     `json:"stat_id"`
	TraitID ID     `json:"trait_id,omitempty"`
	Code    string `json:"code"`
	Name    string `json:"name,omitempty"`
}

// Difficulty is a row of cat_difficulty.
type Difficulty struct {
	DifficultyID ID     `json:"difficulty_id"`
	Code         string `json:"code"`
	Name         string `json:"name,omitempty"`
	XPBase       int    `json:"xp_base,omitempty"`
}

// OnboardingSession is a row of onboarding_session.
type OnboardingSession struct {
	OnboardingSessionID ID              `json:"onboarding_session_id"`
	UserID              ID              `json:"user_id"`
	GameMode            string          `json:"game_mode,omitempty"`
	Answers             json.RawMessage `json:"answers,omitempty"`
	CreatedAt           string          `json:"created_at,omitempty"`
}

// Snapshot is the bundle of reference tables one generation call works on.
// It is never mutated after it is loaded.
type Snapshot struct {
	Users              []User              `json:"users"`
	GameModes          []GameMode          `json:"cat_game_mode"`
	Pillars            []Pillar            `json:"cat_pillar"`
	Traits             []Trait             `json:"cat_trait"`
	Stats              []Stat              `json:"cat_stat,omitempty"`
	Difficulties       []Difficulty        `json:"cat_difficulty"`
	OnboardingSessions []OnboardingSession `json:"onboarding_session"`
}

// SnapshotFile is the on-disk shape of live and sample snapshot exports.
type SnapshotFile struct {
	Samples Snapshot `json:"samples"`
}

// FixtureBundle is a recorded snapshot together with a known-good payload.
type FixtureBundle struct {
	Snapshot SnapshotFile `json:"snapshot"`
	Payload  *TaskPayload `json:"payload"`
}

// FindUser returns the user row with the given id.
func (s *Snapshot) FindUser(userID string) (*User, bool) {
	for i := range s.Users {
		if string(s.Users[i].UserID) == userID {
			return &s.Users[i], true
		}
	}
	return nil, false
}

// GameModeByID returns the game mode row with the given id.
func (s *Snapshot) GameModeByID(id ID) (*GameMode, bool) {
	if id == "" {
		return nil, false
	}
	for i := range s.GameModes {
		if s.GameModes[i].GameModeID == id {
			return &s.GameModes[i], true
		}
	}
	return nil, false
}

// LatestOnboarding returns the most recent onboarding session of a user.
// Sessions are compared by created_at (RFC3339 sorts lexically), the last row wins ties.
func (s *Snapshot) LatestOnboarding(userID string) (*OnboardingSession, bool) {
	var latest *OnboardingSession
	for i := range s.OnboardingSessions {
		sess := &s.OnboardingSessions[i]
		if string(sess.UserID) != userID {
			continue
		}
		if latest == nil || strings.Compare(sess.CreatedAt, latest.CreatedAt) >= 0 {
			latest = sess
		}
	}
	return latest, latest != nil
}
