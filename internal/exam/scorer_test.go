package exam

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func cleanQuestions() []Question {
	return []Question{
		{
			ID:         "q1",
			Type:       TypeShortAnswer,
			Difficulty: DifficultyEasy,
			Prompt:     "Explain how chloroplasts capture light energy for photosynthesis.",
			Answer:     "They absorb photons with chlorophyll.",
		},
		{
			ID:         "q2",
			Type:       TypeShortAnswer,
			Difficulty: DifficultyHard,
			Prompt:     "Analyze the differences between mitosis and meiosis in plant cells.",
			Answer:     "Meiosis halves the chromosome count.",
		},
		{
			ID:         "q3",
			Type:       TypeShortAnswer,
			Difficulty: DifficultyEasy,
			Prompt:     "Describe the role of ribosomes during protein synthesis in cells.",
			Answer:     "Ribosomes translate mRNA into protein.",
		},
	}
}

func sourceFor(questions []Question) string {
	var parts []string
	for _, q := range questions {
		parts = append(parts, q.Prompt, q.Answer)
	}
	return strings.Join(parts, " ")
}

func TestScoreCleanExamIsValid(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	questions := cleanQuestions()
	e := &Exam{Questions: questions, TotalQuestions: len(questions)}

	report := s.Score(e, sourceFor(questions))

	assert.Equal(t, 1.0, report.Uniqueness)
	assert.Equal(t, 1.0, report.Accuracy)
	assert.Equal(t, 1.0, report.DifficultyScore)
	assert.True(t, report.IsValid)
	assert.False(t, report.Regenerate)
	assert.Empty(t, report.Recommendations)
	for _, qr := range report.Questions {
		assert.Equal(t, 1.0, qr.Score)
		assert.Empty(t, qr.Issues)
	}
}

func TestScoreDuplicateStrictlyLowersUniqueness(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	questions := cleanQuestions()
	e := &Exam{Questions: questions, TotalQuestions: len(questions)}
	clean := s.Score(e, sourceFor(questions))

	dup := questions[0]
	dup.ID = "q4"
	withDup := append(append([]Question{}, questions...), dup)
	eDup := &Exam{Questions: withDup, TotalQuestions: len(withDup)}
	scored := s.Score(eDup, sourceFor(questions))

	assert.Less(t, scored.Uniqueness, clean.Uniqueness)

	last := scored.Questions[len(scored.Questions)-1]
	assert.Equal(t, "q1", last.DuplicateOfID)
	assert.LessOrEqual(t, last.Score, 0.5)
}

func TestScoreFlagsQuestionsOutsideSource(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	questions := cleanQuestions()
	questions = append(questions, Question{
		ID:         "offtopic",
		Type:       TypeShortAnswer,
		Difficulty: DifficultyHard,
		Prompt:     "Analyze gluon confinement within quantum chromodynamics frameworks today.",
		Answer:     "Color charge cannot be isolated.",
	})
	e := &Exam{Questions: questions, TotalQuestions: len(questions)}

	report := s.Score(e, sourceFor(questions[:3]))

	assert.Less(t, report.Accuracy, 1.0)
	off := report.Questions[3]
	assert.Contains(t, off.Issues, "references concepts not found in source")
	assert.Less(t, off.Score, 1.0)
}

func TestScoreFlagsDifficultyMismatchWithoutCorrecting(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	q := Question{
		ID:         "q1",
		Type:       TypeShortAnswer,
		Difficulty: DifficultyVeryHard,
		Prompt:     "List the organelles found in plant cells.",
		Answer:     "Nucleus, chloroplast, mitochondrion.",
	}
	e := &Exam{Questions: []Question{q}, TotalQuestions: 1}

	report := s.Score(e, sourceFor(e.Questions))

	qr := report.Questions[0]
	assert.True(t, qr.DifficultyMismatch)
	assert.NotEqual(t, DifficultyVeryHard, qr.ExpectedDifficulty)
	// Flag only: the declared difficulty on the exam stays as requested.
	assert.Equal(t, DifficultyVeryHard, e.Questions[0].Difficulty)
	assert.Less(t, report.DifficultyScore, 1.0)
}

func TestScoreGenericIssuesAccumulate(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	q := Question{
		ID:         "bad",
		Type:       TypeMultipleChoice,
		Difficulty: DifficultyModerate,
		Prompt:     "Too short",
		Options:    []string{"A", "A", "B"},
	}
	e := &Exam{Questions: []Question{q}, TotalQuestions: 1}

	report := s.Score(e, "unrelated source text about something else entirely")

	qr := report.Questions[0]
	assert.Contains(t, qr.Issues, "prompt is too short")
	assert.Contains(t, qr.Issues, "multiple choice question needs exactly 4 options")
	assert.Contains(t, qr.Issues, "duplicate answer options")
	assert.Contains(t, qr.Issues, "missing answer")
	assert.Less(t, qr.Score, 1.0)
}

func TestScoreAcceptsMultibyteTerminalPunctuation(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	questions := []Question{
		{
			ID:         "ellipsis",
			Type:       TypeShortAnswer,
			Difficulty: DifficultyEasy,
			Prompt:     "Describe the role of ribosomes during protein synthesis…",
			Answer:     "Ribosomes translate mRNA into protein.",
		},
		{
			ID:         "fullwidth",
			Type:       TypeShortAnswer,
			Difficulty: DifficultyEasy,
			Prompt:     "Explain how chloroplasts capture light energy for photosynthesis？",
			Answer:     "They absorb photons with chlorophyll.",
		},
	}
	e := &Exam{Questions: questions, TotalQuestions: len(questions)}

	report := s.Score(e, sourceFor(questions))

	for _, qr := range report.Questions {
		assert.NotContains(t, qr.Issues, "prompt lacks terminal punctuation or a blank marker")
	}
}

func TestScoreRecommendsRegeneration(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())
	q := cleanQuestions()[0]
	questions := make([]Question, 0, 4)
	for i := 0; i < 4; i++ {
		dup := q
		dup.ID = string(rune('a' + i))
		questions = append(questions, dup)
	}
	e := &Exam{Questions: questions, TotalQuestions: len(questions)}

	report := s.Score(e, "entirely different material on roman history and aqueducts")

	assert.False(t, report.IsValid)
	assert.True(t, report.Regenerate)
	assert.NotEmpty(t, report.Recommendations)
}

func TestScoreEmptyExam(t *testing.T) {
	s := NewScorer(DefaultScorerConfig())

	report := s.Score(&Exam{}, "source")

	assert.True(t, report.Regenerate)
	assert.NotEmpty(t, report.Recommendations)
}

func TestScorerSkipsDisabledChecks(t *testing.T) {
	cfg := DefaultScorerConfig()
	cfg.SkipDuplicateCheck = true
	s := NewScorer(cfg)

	q := cleanQuestions()[0]
	dup := q
	dup.ID = "dup"
	e := &Exam{Questions: []Question{q, dup}, TotalQuestions: 2}

	report := s.Score(e, sourceFor(e.Questions))

	assert.Equal(t, 1.0, report.Uniqueness)
	assert.Empty(t, report.Questions[1].DuplicateOfID)
}

func TestExpectedDifficultyBuckets(t *testing.T) {
	cases := []struct {
		prompt string
		qtype  QuestionType
		want   Difficulty
	}{
		{"List the organelles found in plant cells.", TypeShortAnswer, DifficultyVeryEasy},
		{"Describe the role of ribosomes during protein synthesis in cells.", TypeShortAnswer, DifficultyEasy},
		{"Calculate the surface-to-volume ratio of a spherical cell today.", TypeShortAnswer, DifficultyModerate},
		{"Evaluate and justify the endosymbiotic theory using modern molecular evidence.", TypeEssay, DifficultyVeryHard},
	}

	for _, tc := range cases {
		got, conf := expectedDifficulty(Question{Type: tc.qtype, Prompt: tc.prompt})
		assert.Equal(t, tc.want, got, "prompt: %s", tc.prompt)
		assert.GreaterOrEqual(t, conf, 0.0)
		assert.LessOrEqual(t, conf, 1.0)
	}
}
