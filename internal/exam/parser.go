package exam

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Parser converts one free-form generation response into structured
// questions plus attached answers. It is deliberately tolerant: the
// collaborator drifts between formats, so region detection tries a family of
// strategies with decreasing strictness before giving up with a ParseError.
type Parser struct{}

// NewParser returns a stateless parser.
func NewParser() *Parser { return &Parser{} }

var (
	topicRe = regexp.MustCompile(`(?i)^\s*topic\s*[:\-]\s*(.+)$`)

	// Strict region headers: a line that is nothing but the label, possibly
	// decorated with = or # runs.
	exactContentRe = regexp.MustCompile(`(?i)^\s*[=#]*\s*(exam questions|exam|questions)\s*[=#]*\s*$`)
	exactKeyRe     = regexp.MustCompile(`(?i)^\s*[=#]*\s*(answer key|answers)\s*[=#]*\s*$`)

	// Looser "label:" variants.
	looseContentRe = regexp.MustCompile(`(?i)^\s*(exam questions|exam|questions)\s*:`)
	looseKeyRe     = regexp.MustCompile(`(?i)^\s*(answer key|answers)\s*:`)

	questionMarkRe = regexp.MustCompile(`^\s*(\d+)\.\s*(.*)$`)
	optionRe       = regexp.MustCompile(`^\s*([A-Da-d])[.)\]]\s*(\S.*)$`)
	answerLineRe   = regexp.MustCompile(`^\s*(\d+)[.:)]\s*(.+)$`)
)

// typeVocab maps case-insensitive header substrings to question types.
// Longer labels first so "fill in the blanks" wins over prefix collisions.
var typeVocab = []struct {
	label string
	t     QuestionType
}{
	{"multiple choice", TypeMultipleChoice},
	{"true/false", TypeTrueFalse},
	{"true or false", TypeTrueFalse},
	{"fill in the blank", TypeFillInBlank},
	{"short answer", TypeShortAnswer},
	{"identification", TypeIdentification},
	{"matching", TypeMatching},
	{"essay", TypeEssay},
}

// Topic extracts a labeled topic line, or "" when none is present.
func (p *Parser) Topic(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if m := topicRe.FindStringSubmatch(line); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// Parse structures raw generation output into ordered questions with
// answers attached from the answer-key region. Questions whose key entry is
// missing keep an empty answer; that is recoverable, a failed parse is not.
func (p *Parser) Parse(raw string) ([]Question, error) {
	lines := strings.Split(raw, "\n")

	content, keyLines, err := locateRegions(lines)
	if err != nil {
		return nil, err
	}

	questions := parseSections(content)
	if len(questions) == 0 {
		return nil, &ParseError{Reason: "no questions found in content region"}
	}

	attachAnswers(questions, parseAnswerKey(keyLines))
	return questions, nil
}

// PlaceholderQuestions is the count-based fallback used when Parse fails:
// one needs-review placeholder per leading "<n>." marker, capped at limit.
// Degrading to placeholders keeps a batch's generation work instead of
// discarding it on a formatting mismatch. Prompts carry the marker number so
// placeholder fingerprints stay distinct and dedup cannot collapse them.
func (p *Parser) PlaceholderQuestions(raw string, limit int) []Question {
	count := 0
	for _, line := range strings.Split(raw, "\n") {
		if questionMarkRe.MatchString(line) {
			count++
		}
	}
	if count > limit {
		count = limit
	}

	out := make([]Question, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, Question{
			ID:          uuid.NewString(),
			Type:        TypeShortAnswer,
			Prompt:      fmt.Sprintf("Generated question %d could not be parsed; manual review required.", i+1),
			NeedsReview: true,
		})
	}
	return out
}

// locateRegions finds the exam-content and answer-key line ranges using three
// strategies of decreasing strictness: exact delimiter lines, "label:" lines,
// and finally treating everything from the first recognized type header as
// content.
func locateRegions(lines []string) (content, key []string, err error) {
	keyIdx := findLine(lines, exactKeyRe)
	if keyIdx < 0 {
		keyIdx = findLine(lines, looseKeyRe)
	}

	contentStart := -1
	if idx := findLine(lines, exactContentRe); idx >= 0 {
		contentStart = idx + 1
	} else if idx := findLine(lines, looseContentRe); idx >= 0 {
		contentStart = idx + 1
	} else if idx := firstTypeHeader(lines); idx >= 0 {
		// Last resort: the header line itself opens the content region.
		contentStart = idx
	}

	if contentStart < 0 {
		return nil, nil, &ParseError{Reason: "no exam content region recognized"}
	}

	contentEnd := len(lines)
	if keyIdx >= contentStart {
		contentEnd = keyIdx
	} else {
		keyIdx = -1
	}

	content = lines[contentStart:contentEnd]
	if keyIdx >= 0 && keyIdx+1 < len(lines) {
		key = lines[keyIdx+1:]
	}
	return content, key, nil
}

func findLine(lines []string, re *regexp.Regexp) int {
	for i, line := range lines {
		if re.MatchString(line) {
			return i
		}
	}
	return -1
}

func firstTypeHeader(lines []string) int {
	for i, line := range lines {
		if _, ok := headerType(line); ok {
			return i
		}
	}
	return -1
}

// headerType recognizes a section header line naming a question type.
// Numbered lines are question bodies, never headers, and genuine headers are
// short.
func headerType(line string) (QuestionType, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || len(trimmed) > 64 || questionMarkRe.MatchString(trimmed) {
		return "", false
	}
	lower := strings.ToLower(trimmed)
	for _, v := range typeVocab {
		if strings.Contains(lower, v.label) {
			return v.t, true
		}
	}
	return "", false
}

// parseSections scans content lines, accumulating numbered blocks under the
// most recently seen type header.
func parseSections(lines []string) []Question {
	var (
		questions []Question
		current   QuestionType
		block     []string
	)

	flush := func() {
		if current == "" || len(block) == 0 {
			block = nil
			return
		}
		if q, ok := buildQuestion(block, current); ok {
			questions = append(questions, q)
		}
		block = nil
	}

	for _, line := range lines {
		if t, ok := headerType(line); ok {
			flush()
			current = t
			continue
		}
		if current == "" {
			continue
		}
		if questionMarkRe.MatchString(line) {
			flush()
			block = append(block, line)
			continue
		}
		if len(block) > 0 {
			block = append(block, line)
		}
	}
	flush()

	return questions
}

// buildQuestion turns one numbered block into a Question. The first
// non-empty line is the prompt; lettered lines become options (kept only for
// multiple choice, in letter order); anything else is folded into the prompt.
func buildQuestion(block []string, t QuestionType) (Question, bool) {
	var (
		promptParts []string
		letters     = map[string]string{}
		order       []string
	)

	first := true
	for _, line := range block {
		text := line
		if first {
			if m := questionMarkRe.FindStringSubmatch(line); m != nil {
				text = m[2]
			}
			first = false
			if s := strings.TrimSpace(text); s != "" {
				promptParts = append(promptParts, s)
			}
			continue
		}

		if m := optionRe.FindStringSubmatch(line); m != nil {
			letter := strings.ToUpper(m[1])
			if _, dup := letters[letter]; !dup {
				letters[letter] = strings.TrimSpace(m[2])
				order = append(order, letter)
			}
			continue
		}
		if s := strings.TrimSpace(text); s != "" {
			promptParts = append(promptParts, s)
		}
	}

	prompt := strings.Join(promptParts, " ")
	if prompt == "" {
		return Question{}, false
	}

	q := Question{
		ID:     uuid.NewString(),
		Type:   t,
		Prompt: prompt,
	}
	if t == TypeMultipleChoice && len(order) > 0 {
		sortLetters(order)
		for _, letter := range order {
			q.Options = append(q.Options, letters[letter])
		}
	}
	return q, true
}

func sortLetters(order []string) {
	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j] < order[j-1]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
}

// parseAnswerKey builds a question-number -> answer-text map.
func parseAnswerKey(lines []string) map[int]string {
	key := make(map[int]string)
	for _, line := range lines {
		m := answerLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, seen := key[n]; !seen {
			key[n] = strings.TrimSpace(m[2])
		}
	}
	return key
}

// attachAnswers matches each question's sequence position to its key entry.
// Missing entries leave the answer empty for the scorer to flag.
func attachAnswers(questions []Question, key map[int]string) {
	for i := range questions {
		text, ok := key[i+1]
		if !ok {
			continue
		}
		if questions[i].Type == TypeMatching {
			parts := splitAnswerParts(text)
			if len(parts) > 1 {
				questions[i].AnswerParts = parts
				continue
			}
		}
		questions[i].Answer = text
	}
}

// splitAnswerParts splits a multi-part answer on ";" or "|" separators.
func splitAnswerParts(text string) []string {
	sep := ";"
	if !strings.Contains(text, ";") && strings.Contains(text, "|") {
		sep = "|"
	}
	var parts []string
	for _, p := range strings.Split(text, sep) {
		if s := strings.TrimSpace(p); s != "" {
			parts = append(parts, s)
		}
	}
	return parts
}
