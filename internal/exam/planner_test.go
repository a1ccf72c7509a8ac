package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanSmallRequestSingleBatch(t *testing.T) {
	p := NewPlanner()

	batches := p.Plan(10,
		map[QuestionType]int{TypeMultipleChoice: 6, TypeTrueFalse: 4},
		map[Difficulty]int{DifficultyEasy: 5, DifficultyHard: 5},
		"source", "notes.txt")

	assert.Len(t, batches, 1)
	assert.Equal(t, 10, batches[0].QuestionsRequested)
	assert.Equal(t, 1, batches[0].TotalBatches)
	assert.Equal(t, 6, batches[0].TypeQuota[TypeMultipleChoice])
	assert.Equal(t, 4, batches[0].TypeQuota[TypeTrueFalse])
}

func TestPlanLargeRequestSplits(t *testing.T) {
	p := NewPlanner()

	batches := p.Plan(40,
		map[QuestionType]int{TypeMultipleChoice: 40},
		map[Difficulty]int{DifficultyModerate: 40},
		"source", "notes.txt")

	assert.Len(t, batches, 5)
	for i, b := range batches {
		assert.Equal(t, 8, b.QuestionsRequested, "batch %d", i)
		assert.Equal(t, i, b.BatchIndex)
		assert.Equal(t, 5, b.TotalBatches)
	}
}

func TestPlanQuotaConservation(t *testing.T) {
	p := NewPlanner()

	cases := []struct {
		name  string
		total int
		types map[QuestionType]int
		diffs map[Difficulty]int
	}{
		{
			name:  "even split",
			total: 40,
			types: map[QuestionType]int{TypeMultipleChoice: 20, TypeTrueFalse: 20},
			diffs: map[Difficulty]int{DifficultyEasy: 20, DifficultyHard: 20},
		},
		{
			name:  "uneven remainder",
			total: 23,
			types: map[QuestionType]int{TypeMultipleChoice: 10, TypeShortAnswer: 7, TypeEssay: 6},
			diffs: map[Difficulty]int{DifficultyVeryEasy: 3, DifficultyModerate: 15, DifficultyVeryHard: 5},
		},
		{
			name:  "single dominant bucket",
			total: 17,
			types: map[QuestionType]int{TypeMultipleChoice: 16, TypeEssay: 1},
			diffs: map[Difficulty]int{DifficultyModerate: 17},
		},
		{
			// Half-shares round up in every bucket, so the raw scaled sum
			// overshoots the batch size and the surplus must be walked back.
			name:  "many buckets round up",
			total: 16,
			types: map[QuestionType]int{
				TypeMultipleChoice: 3, TypeTrueFalse: 3, TypeFillInBlank: 3,
				TypeShortAnswer: 3, TypeEssay: 2, TypeMatching: 1, TypeIdentification: 1,
			},
			diffs: map[Difficulty]int{
				DifficultyVeryEasy: 3, DifficultyEasy: 3, DifficultyModerate: 3,
				DifficultyHard: 3, DifficultyVeryHard: 4,
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			batches := p.Plan(tc.total, tc.types, tc.diffs, "src", "f.txt")

			requested := 0
			for _, b := range batches {
				requested += b.QuestionsRequested

				typeSum := 0
				for k, v := range b.TypeQuota {
					assert.GreaterOrEqual(t, v, 0, "type %s must not go negative", k)
					typeSum += v
				}
				assert.Equal(t, b.QuestionsRequested, typeSum, "type quota must sum to batch size")

				diffSum := 0
				for k, v := range b.DifficultyQuota {
					assert.GreaterOrEqual(t, v, 0, "difficulty %s must not go negative", k)
					diffSum += v
				}
				assert.Equal(t, b.QuestionsRequested, diffSum, "difficulty quota must sum to batch size")
			}
			assert.Equal(t, tc.total, requested)
		})
	}
}

func TestPlanDegenerateQuotaFallsBackToDefaults(t *testing.T) {
	p := NewPlanner()

	// A tiny last batch of a very skewed distribution can scale every bucket
	// to zero; it must fall back to a single default bucket, not go out empty.
	batches := p.Plan(5, nil, nil, "src", "f.txt")

	assert.Len(t, batches, 1)
	assert.Equal(t, 5, batches[0].TypeQuota[TypeMultipleChoice])
	assert.Equal(t, 5, batches[0].DifficultyQuota[DifficultyModerate])
}

func TestPlanLastBatchTakesRemainder(t *testing.T) {
	p := NewPlanner()

	batches := p.Plan(19,
		map[QuestionType]int{TypeMultipleChoice: 19},
		map[Difficulty]int{DifficultyModerate: 19},
		"src", "f.txt")

	assert.Len(t, batches, 3)
	assert.Equal(t, 8, batches[0].QuestionsRequested)
	assert.Equal(t, 8, batches[1].QuestionsRequested)
	assert.Equal(t, 3, batches[2].QuestionsRequested)
}
