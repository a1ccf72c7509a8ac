package exam

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"
)

// ScorerConfig holds quality thresholds and aggregation weights. The defaults
// mirror long-standing production values but carry no proven derivation, so
// every one of them is tunable.
type ScorerConfig struct {
	DuplicateThreshold float64 // Jaccard similarity above which a question is a duplicate
	SourceOverlapFloor float64 // minimum prompt/source word overlap
	StrictSource       bool    // additionally require the answer prefix verbatim in the source
	MinOverallScore    float64 // IsValid cutoff

	WeightUniqueness float64
	WeightAccuracy   float64
	WeightDifficulty float64
	WeightCoverage   float64

	SubScoreThreshold float64 // recommendation trigger for uniqueness/accuracy/difficulty
	CoverageThreshold float64 // recommendation trigger for coverage

	SkipDuplicateCheck  bool
	SkipSourceCheck     bool
	SkipDifficultyCheck bool
	SkipGenericChecks   bool
}

// DefaultScorerConfig returns production defaults.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		DuplicateThreshold: 0.85,
		SourceOverlapFloor: 0.3,
		MinOverallScore:    0.7,
		WeightUniqueness:   0.3,
		WeightAccuracy:     0.4,
		WeightDifficulty:   0.2,
		WeightCoverage:     0.1,
		SubScoreThreshold:  0.8,
		CoverageThreshold:  0.7,
	}
}

// QuestionReport carries per-question findings. Score starts at 1.0 and is
// penalized per issue class, floored at 0.
type QuestionReport struct {
	QuestionID           string   `json:"question_id"`
	Score                float64  `json:"score"`
	Issues               []string `json:"issues,omitempty"`
	DuplicateOfID        string   `json:"duplicate_of_id,omitempty"`
	ExpectedDifficulty   Difficulty `json:"expected_difficulty,omitempty"`
	DifficultyMismatch   bool     `json:"difficulty_mismatch,omitempty"`
	DifficultyConfidence float64  `json:"difficulty_confidence,omitempty"`
}

// Report is the full scoring output: whole-exam metrics plus per-question
// findings.
type Report struct {
	QualityMetrics
	Questions []QuestionReport `json:"questions"`
}

// Scorer computes exam quality metrics and accept/regenerate recommendations.
type Scorer struct {
	cfg ScorerConfig
}

// NewScorer builds a scorer, filling zero weights/thresholds from defaults.
func NewScorer(cfg ScorerConfig) *Scorer {
	def := DefaultScorerConfig()
	if cfg.DuplicateThreshold <= 0 {
		cfg.DuplicateThreshold = def.DuplicateThreshold
	}
	if cfg.SourceOverlapFloor <= 0 {
		cfg.SourceOverlapFloor = def.SourceOverlapFloor
	}
	if cfg.MinOverallScore <= 0 {
		cfg.MinOverallScore = def.MinOverallScore
	}
	if cfg.WeightUniqueness+cfg.WeightAccuracy+cfg.WeightDifficulty+cfg.WeightCoverage == 0 {
		cfg.WeightUniqueness = def.WeightUniqueness
		cfg.WeightAccuracy = def.WeightAccuracy
		cfg.WeightDifficulty = def.WeightDifficulty
		cfg.WeightCoverage = def.WeightCoverage
	}
	if cfg.SubScoreThreshold <= 0 {
		cfg.SubScoreThreshold = def.SubScoreThreshold
	}
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = def.CoverageThreshold
	}
	return &Scorer{cfg: cfg}
}

// Score evaluates a whole exam against its source text. Metrics are computed
// once and never mutated afterwards.
func (s *Scorer) Score(e *Exam, sourceText string) *Report {
	n := len(e.Questions)
	report := &Report{Questions: make([]QuestionReport, 0, n)}
	if n == 0 {
		report.Recommendations = []string{"Exam contains no questions; regenerate."}
		report.Regenerate = true
		return report
	}

	sourceWords := contentWords(sourceText)
	sourceLower := strings.ToLower(sourceText)

	var (
		promptSets    = make([]map[string]struct{}, n)
		dupCount      int
		sourceIssues  int
		diffMismatch  int
	)

	for i, q := range e.Questions {
		promptSets[i] = contentWords(q.Prompt)
		qr := QuestionReport{QuestionID: q.ID, Score: 1.0}

		if !s.cfg.SkipDuplicateCheck {
			for j := 0; j < i; j++ {
				if jaccard(promptSets[i], promptSets[j]) >= s.cfg.DuplicateThreshold {
					qr.DuplicateOfID = e.Questions[j].ID
					qr.Score -= 0.5
					dupCount++
					break
				}
			}
		}

		if !s.cfg.SkipSourceCheck {
			if s.sourceIssue(q, promptSets[i], sourceWords, sourceLower) {
				qr.Issues = append(qr.Issues, "references concepts not found in source")
				qr.Score -= 0.3
				sourceIssues++
			}
		}

		if !s.cfg.SkipDifficultyCheck {
			expected, conf := expectedDifficulty(q)
			qr.ExpectedDifficulty = expected
			qr.DifficultyConfidence = conf
			if q.Difficulty != "" && expected != q.Difficulty {
				// Flag only: whether the generator or the heuristic is wrong
				// cannot be decided here, so nothing is auto-corrected.
				qr.DifficultyMismatch = true
				qr.Score -= 0.2
				diffMismatch++
			}
		}

		if !s.cfg.SkipGenericChecks {
			issues := genericIssues(q)
			qr.Issues = append(qr.Issues, issues...)
			qr.Score -= 0.1 * float64(len(issues))
		}

		if qr.Score < 0 {
			qr.Score = 0
		}
		report.Questions = append(report.Questions, qr)
	}

	total := float64(n)
	report.Uniqueness = 1 - float64(dupCount)/total
	report.Accuracy = 1 - float64(sourceIssues)/total
	report.DifficultyScore = 1 - float64(diffMismatch)/total
	report.Coverage = coverageScore(e.Questions)

	report.OverallScore = clamp01(
		s.cfg.WeightUniqueness*report.Uniqueness +
			s.cfg.WeightAccuracy*report.Accuracy +
			s.cfg.WeightDifficulty*report.DifficultyScore +
			s.cfg.WeightCoverage*report.Coverage)
	report.IsValid = report.OverallScore >= s.cfg.MinOverallScore
	report.Regenerate = !report.IsValid
	report.Recommendations = s.recommendations(&report.QualityMetrics)

	return report
}

func (s *Scorer) sourceIssue(q Question, promptWords, sourceWords map[string]struct{}, sourceLower string) bool {
	if len(sourceWords) == 0 {
		return false
	}
	if jaccardContainment(promptWords, sourceWords) < s.cfg.SourceOverlapFloor {
		return true
	}
	if s.cfg.StrictSource && q.Answer != "" {
		prefix := strings.ToLower(q.Answer)
		if len(prefix) > 20 {
			prefix = prefix[:20]
		}
		if !strings.Contains(sourceLower, strings.TrimSpace(prefix)) {
			return true
		}
	}
	return false
}

func (s *Scorer) recommendations(m *QualityMetrics) []string {
	var recs []string
	if m.Uniqueness < s.cfg.SubScoreThreshold {
		recs = append(recs, "Duplicate questions detected; remove or regenerate repeated items.")
	}
	if m.Accuracy < s.cfg.SubScoreThreshold {
		recs = append(recs, "Some questions reference concepts not found in the source material.")
	}
	if m.DifficultyScore < s.cfg.SubScoreThreshold {
		recs = append(recs, "Declared difficulty does not match question complexity for several items.")
	}
	if m.Coverage < s.cfg.CoverageThreshold {
		recs = append(recs, "Questions cluster around too few topics; broaden coverage of the source.")
	}
	if m.Regenerate {
		recs = append(recs, fmt.Sprintf("Overall quality %.2f is below the %.2f minimum; regeneration recommended.", m.OverallScore, s.cfg.MinOverallScore))
	}
	return recs
}

// genericIssues runs the cheap structural checks, one issue string each.
func genericIssues(q Question) []string {
	var issues []string

	promptLen := len(q.Prompt)
	if promptLen < 10 {
		issues = append(issues, "prompt is too short")
	} else if promptLen > 300 {
		issues = append(issues, "prompt is too long")
	}

	if !strings.ContainsRune(terminalPunctuation, lastRune(q.Prompt)) && !strings.Contains(q.Prompt, "___") {
		issues = append(issues, "prompt lacks terminal punctuation or a blank marker")
	}

	if q.Type == TypeMultipleChoice {
		if len(q.Options) != 4 {
			issues = append(issues, "multiple choice question needs exactly 4 options")
		}
		seen := make(map[string]struct{}, len(q.Options))
		for _, opt := range q.Options {
			key := strings.ToLower(strings.TrimSpace(opt))
			if _, dup := seen[key]; dup {
				issues = append(issues, "duplicate answer options")
				break
			}
			seen[key] = struct{}{}
		}
		if minLen, maxLen := optionLengthRange(q.Options); minLen > 0 && maxLen > 4*minLen {
			issues = append(issues, "answer option lengths are inconsistent")
		}
	}

	if q.Answer == "" && len(q.AnswerParts) == 0 {
		issues = append(issues, "missing answer")
	}

	return issues
}

// Accepted prompt terminators, including CJK and ellipsis forms.
const terminalPunctuation = "?.:…？。"

func lastRune(s string) rune {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func optionLengthRange(options []string) (minLen, maxLen int) {
	for _, opt := range options {
		n := len(opt)
		if minLen == 0 || n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
	}
	return minLen, maxLen
}

// coverageScore compares distinct topic signals (the first meaningful word
// of each prompt) against an expected count of ceil(n/3).
func coverageScore(questions []Question) float64 {
	topics := make(map[string]struct{})
	for _, q := range questions {
		if t := firstTopicWord(q.Prompt); t != "" {
			topics[t] = struct{}{}
		}
	}
	expected := int(math.Ceil(float64(len(questions)) / 3))
	if expected == 0 {
		return 1
	}
	score := float64(len(topics)) / float64(expected)
	return clamp01(score)
}

func firstTopicWord(prompt string) string {
	for _, w := range strings.Fields(strings.ToLower(prompt)) {
		w = strings.Trim(w, ".,;:!?()\"'")
		if len(w) > 3 && !stopWords[w] {
			return w
		}
	}
	return ""
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
