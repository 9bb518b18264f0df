package prompt

import (
	"testing"

	"innerbloom-server/internal/catalog"
	"innerbloom-server/internal/model"

	"github.com/stretchr/testify/assert"
)

func placeholderSnapshot() *model.Snapshot {
	return &model.Snapshot{
		Users: []model.User{
			{UserID: "7", FirstName: "Lucía", TasksGroupID: "g-7"},
			{UserID: "8"},
		},
		GameModes: []model.GameMode{{GameModeID: "3", Code: "FLOW", Name: "Flow state"}},
		Pillars:   []model.Pillar{{PillarID: "1", Code: "BODY", Name: "Body"}},
		Traits:    []model.Trait{{TraitID: "1", PillarID: "1", Code: "ENERGY", Name: "Energy"}},
		Difficulties: []model.Difficulty{
			{DifficultyID: "1", Code: "EASY", Name: "Easy"},
		},
		OnboardingSessions: []model.OnboardingSession{
			{UserID: "7", CreatedAt: "2024-01-01T00:00:00Z", Answers: []byte(`{"old": true}`)},
			{UserID: "7", CreatedAt: "2024-03-01T00:00:00Z", Answers: []byte("{ \"sleep\": 7,\n \"goal\": \"calm\" }")},
		},
	}
}

func TestBuildPlaceholders(t *testing.T) {
	snap := placeholderSnapshot()
	cat := catalog.Build(snap)

	ph := BuildPlaceholders(&snap.Users[0], snap, cat, model.ModeFlow, 10)

	assert.Equal(t, "7", ph.UserID())
	assert.Equal(t, "g-7", ph.TasksGroupID())
	assert.Equal(t, "Lucía", ph[KeyUserName])
	assert.Equal(t, "FLOW", ph[KeyGameMode])
	assert.Equal(t, "Flow state", ph[KeyGameModeName])
	assert.Equal(t, cat.PillarsText, ph[KeyPillars])
	assert.Equal(t, cat.TraitsText, ph[KeyTraits])
	assert.Equal(t, cat.StatsText, ph[KeyStats])
	assert.Equal(t, cat.DifficultiesText, ph[KeyDifficulties])
	assert.Equal(t, `{"sleep":7,"goal":"calm"}`, ph[KeyOnboarding])
	assert.Equal(t, "10", ph[KeyTaskCount])
}

func TestBuildPlaceholders_Defaults(t *testing.T) {
	snap := placeholderSnapshot()
	cat := catalog.Build(snap)

	ph := BuildPlaceholders(&snap.Users[1], snap, cat, model.ModeLow, 0)

	assert.Equal(t, NotApplicable, ph.TasksGroupID())
	assert.Equal(t, "8", ph[KeyUserName])
	assert.Equal(t, "LOW", ph[KeyGameModeName])
	assert.Equal(t, "{}", ph[KeyOnboarding])
	assert.Equal(t, "15", ph[KeyTaskCount])
}
