package runner

import (
	"fmt"
	"math"

	"innerbloom-server/internal/catalog"
	"innerbloom-server/internal/model"
	"innerbloom-server/internal/prompt"
)

// SynthesizeDryRun builds a payload without calling the model. It walks the
// trait × difficulty grid starting at an offset derived from seed, so the same
// catalog and seed always give the same tasks. An empty grid gives no tasks.
func SynthesizeDryRun(cat *catalog.Catalog, ph prompt.Placeholders, seed int64, count int) *model.TaskPayload {
	if count <= 0 {
		count = prompt.DefaultTaskCount
	}
	p := &model.TaskPayload{
		UserID:       ph.UserID(),
		TasksGroupID: ph.TasksGroupID(),
		Tasks:        []model.Task{},
	}
	if cat == nil || len(cat.Traits) == 0 || len(cat.Difficulties) == 0 {
		return p
	}

	nTraits, nDiffs := len(cat.Traits), len(cat.Difficulties)
	grid := nTraits * nDiffs
	offset := int(uint64(seed) % uint64(grid))

	for i := 0; i < count; i++ {
		k := (offset + i) % grid
		trait := cat.Traits[k%nTraits]
		di := (k / nTraits) % nDiffs
		diff := cat.Difficulties[di]

		statCode := trait.Code
		if st, ok := cat.StatFor(trait.Code); ok {
			statCode = st.Code
		}
		score := frictionScore(di, nDiffs)

		p.Tasks = append(p.Tasks, model.Task{
			Task:           fmt.Sprintf("Dry run #%d: %s practice (%s)", i+1, trait.Name, diff.Name),
			PillarCode:     trait.PillarCode,
			TraitCode:      trait.Code,
			StatCode:       statCode,
			DifficultyCode: diff.Code,
			FrictionScore:  score,
			FrictionTier:   frictionTier(score),
		})
	}
	return p
}

// frictionScore spreads difficulties evenly over (0, 1).
func frictionScore(index, total int) float64 {
	s := float64(index+1) / float64(total+1)
	return math.Round(s*100) / 100
}

func frictionTier(score float64) string {
	switch {
	case score < 0.34:
		return "low"
	case score < 0.67:
		return "medium"
	default:
		return "high"
	}
}

// ReplayFixture copies a recorded payload and puts the expected user and
// group ids in place of the recorded ones.
func ReplayFixture(recorded *model.TaskPayload, ph prompt.Placeholders) *model.TaskPayload {
	p := recorded.Clone()
	if p == nil {
		p = &model.TaskPayload{}
	}
	p.UserID = ph.UserID()
	p.TasksGroupID = ph.TasksGroupID()
	return p
}
