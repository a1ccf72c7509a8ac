package exam

import "strings"

// Keyword weights follow the usual recall -> evaluation ladder: verbs asking
// for recall sit low, verbs asking for analysis or judgment sit high.
var difficultyKeywords = map[string]float64{
	// recall
	"define": 1, "list": 1, "name": 1, "state": 1, "identify": 1,
	"recall": 1, "label": 1, "select": 1,
	// comprehension
	"explain": 2, "describe": 2, "summarize": 2, "classify": 2,
	"discuss": 2, "interpret": 2, "paraphrase": 2,
	// application
	"apply": 3, "solve": 3, "calculate": 3, "compute": 3,
	"demonstrate": 3, "implement": 3,
	// analysis
	"analyze": 4, "compare": 4, "contrast": 4, "differentiate": 4,
	"distinguish": 4, "examine": 4, "categorize": 4, "infer": 4,
	// evaluation / synthesis
	"evaluate": 5, "justify": 5, "critique": 5, "assess": 5,
	"argue": 5, "defend": 5, "design": 5, "propose": 5,
	"formulate": 5, "synthesize": 5,
}

// difficultyBuckets maps a composite score to a level. Ranges are half-open
// [lo, hi); the outer buckets absorb the clamped ends.
var difficultyBuckets = []struct {
	lo, hi float64
	level  Difficulty
}{
	{1.0, 1.8, DifficultyVeryEasy},
	{1.8, 2.6, DifficultyEasy},
	{2.6, 3.4, DifficultyModerate},
	{3.4, 4.2, DifficultyHard},
	{4.2, 5.0, DifficultyVeryHard},
}

// expectedDifficulty re-derives a difficulty level from linguistic cues: a
// weighted keyword scan plus structural signals (question type and prompt
// length). The confidence reflects how decisively the composite score landed
// inside its bucket, halved when no keyword matched at all.
func expectedDifficulty(q Question) (Difficulty, float64) {
	var (
		total   float64
		matches int
	)
	for _, word := range strings.Fields(strings.ToLower(q.Prompt)) {
		word = strings.Trim(word, ".,;:!?()\"'")
		if w, ok := difficultyKeywords[word]; ok {
			total += w
			matches++
		}
	}

	score := 2.5
	if matches > 0 {
		score = total / float64(matches)
	}

	switch q.Type {
	case TypeTrueFalse, TypeMatching, TypeIdentification:
		score -= 0.5
	case TypeEssay:
		score += 1.0
	}

	words := len(strings.Fields(q.Prompt))
	if words > 30 {
		score += 0.5
	} else if words > 0 && words < 8 {
		score -= 0.5
	}

	if score < 1.0 {
		score = 1.0
	}
	if score > 5.0 {
		score = 5.0
	}

	for _, b := range difficultyBuckets {
		if score >= b.hi && b.level != DifficultyVeryHard {
			continue
		}
		mid := (b.lo + b.hi) / 2
		half := (b.hi - b.lo) / 2
		conf := 1.0 - abs(score-mid)/half
		if conf < 0 {
			conf = 0
		}
		if matches == 0 {
			conf *= 0.5
		}
		return b.level, conf
	}
	return DifficultyModerate, 0
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
