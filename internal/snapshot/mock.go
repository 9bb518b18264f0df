package snapshot

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"

	"innerbloom-server/internal/model"

	"github.com/google/uuid"
)

// MockUserID is used when a mock snapshot is requested without a user id.
const MockUserID = "mock-user"

// tasksGroupNamespace scopes the deterministic tasks_group_id of mock users.
var tasksGroupNamespace = uuid.MustParse("6f1c2a52-8c1e-4d8e-9a57-3b1a0f3d2c11")

var mockFirstNames = []string{"Ana", "Bruno", "Carla", "Diego", "Elena", "Facundo", "Gala", "Hugo"}

// Mock builds the synthetic snapshot for userID. The same user id always
// yields the same rows; nothing is cached between calls.
func Mock(userID string) *model.Snapshot {
	if userID == "" {
		userID = MockUserID
	}
	rng := rand.New(rand.NewSource(seedFor(userID)))

	gameModes := []model.GameMode{
		{GameModeID: "1", Code: "LOW", Name: "Low", WeeklyTarget: 1},
		{GameModeID: "2", Code: "CHILL", Name: "Chill", WeeklyTarget: 2},
		{GameModeID: "3", Code: "FLOW", Name: "Flow", WeeklyTarget: 3},
		{GameModeID: "4", Code: "EVOLVE", Name: "Evolve", WeeklyTarget: 4},
	}
	mode := gameModes[rng.Intn(len(gameModes))]

	user := model.User{
		UserID:       model.ID(userID),
		FirstName:    mockFirstNames[rng.Intn(len(mockFirstNames))],
		Email:        fmt.Sprintf("%s@mock.innerbloom.local", userID),
		GameModeID:   mode.GameModeID,
		TasksGroupID: uuid.NewSHA1(tasksGroupNamespace, []byte(userID)).String(),
		Timezone:     "UTC",
	}

	answers, _ := json.Marshal(map[string]any{
		"energy_level":  1 + rng.Intn(5),
		"focus_pillar":  []string{"BODY", "MIND", "SOUL"}[rng.Intn(3)],
		"minutes_a_day": 10 * (1 + rng.Intn(6)),
	})

	return &model.Snapshot{
		Users:     []model.User{user},
		GameModes: gameModes,
		Pillars: []model.Pillar{
			{PillarID: "1", Code: "BODY", Name: "Body"},
			{PillarID: "2", Code: "MIND", Name: "Mind"},
			{PillarID: "3", Code: "SOUL", Name: "Soul"},
		},
		Traits: []model.Trait{
			{TraitID: "1", PillarID: "1", Code: "ENERGY", Name: "Energy"},
			{TraitID: "2", PillarID: "1", Code: "NUTRITION", Name: "Nutrition"},
			{TraitID: "3", PillarID: "1", Code: "SLEEP", Name: "Sleep"},
			{TraitID: "4", PillarID: "2", Code: "FOCUS", Name: "Focus"},
			{TraitID: "5", PillarID: "2", Code: "LEARNING", Name: "Learning"},
			{TraitID: "6", PillarID: "2", Code: "CREATIVITY", Name: "Creativity"},
			{TraitID: "7", PillarID: "3", Code: "CONNECTION", Name: "Connection"},
			{TraitID: "8", PillarID: "3", Code: "GRATITUDE", Name: "Gratitude"},
			{TraitID: "9", PillarID: "3", Code: "PURPOSE", Name: "Purpose"},
		},
		Difficulties: []model.Difficulty{
			{DifficultyID: "1", Code: "EASY", Name: "Easy", XPBase: 5},
			{DifficultyID: "2", Code: "MEDIUM", Name: "Medium", XPBase: 10},
			{DifficultyID: "3", Code: "HARD", Name: "Hard", XPBase: 20},
		},
		OnboardingSessions: []model.OnboardingSession{{
			OnboardingSessionID: model.ID("onb-" + userID),
			UserID:              model.ID(userID),
			GameMode:            mode.Code,
			Answers:             answers,
			CreatedAt:           "2024-01-01T00:00:00Z",
		}},
	}
}

func seedFor(userID string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	return int64(h.Sum64())
}
