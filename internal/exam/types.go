package exam

import (
	"context"
	"time"
)

// QuestionType enumerates the supported exam item kinds.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "multipleChoice"
	TypeTrueFalse      QuestionType = "trueFalse"
	TypeFillInBlank    QuestionType = "fillInBlank"
	TypeShortAnswer    QuestionType = "shortAnswer"
	TypeEssay          QuestionType = "essay"
	TypeMatching       QuestionType = "matching"
	TypeIdentification QuestionType = "identification"
)

// QuestionTypes lists all types in canonical order for deterministic iteration.
var QuestionTypes = []QuestionType{
	TypeMultipleChoice,
	TypeTrueFalse,
	TypeFillInBlank,
	TypeShortAnswer,
	TypeEssay,
	TypeMatching,
	TypeIdentification,
}

// Difficulty enumerates requested difficulty levels.
type Difficulty string

const (
	DifficultyVeryEasy Difficulty = "veryEasy"
	DifficultyEasy     Difficulty = "easy"
	DifficultyModerate Difficulty = "moderate"
	DifficultyHard     Difficulty = "hard"
	DifficultyVeryHard Difficulty = "veryHard"
)

// Difficulties lists all levels from easiest to hardest.
var Difficulties = []Difficulty{
	DifficultyVeryEasy,
	DifficultyEasy,
	DifficultyModerate,
	DifficultyHard,
	DifficultyVeryHard,
}

// Question is a single exam item. Options are populated only for
// multipleChoice (exactly four). AnswerParts holds the ordered parts of a
// matching / multi-part answer; Answer holds everything else. An empty answer
// means the answer key could not be matched to this question.
type Question struct {
	ID          string       `json:"id"`
	Type        QuestionType `json:"type"`
	Difficulty  Difficulty   `json:"difficulty"`
	Prompt      string       `json:"prompt"`
	Options     []string     `json:"options,omitempty"`
	Answer      string       `json:"answer,omitempty"`
	AnswerParts []string     `json:"answer_parts,omitempty"`
	NeedsReview bool         `json:"needs_review,omitempty"`
}

// Batch is one independently generated unit of work. The quota maps must each
// sum to QuestionsRequested.
type Batch struct {
	SourceText         string
	FileName           string
	BatchIndex         int
	TotalBatches       int
	QuestionsRequested int
	TypeQuota          map[QuestionType]int
	DifficultyQuota    map[Difficulty]int
}

// ExamMetadata describes how an exam was produced.
type ExamMetadata struct {
	SourceFiles      []string  `json:"source_files"`
	GenerationTimeMs int64     `json:"generation_time_ms"`
	CreatedAt        time.Time `json:"created_at"`
}

// Exam is the final artifact handed to downstream consumers. Question order
// preserves file order, then batch order, then parse order.
type Exam struct {
	ID             string          `json:"id"`
	Topic          string          `json:"topic"`
	Questions      []Question      `json:"questions"`
	TotalQuestions int             `json:"total_questions"`
	Metadata       ExamMetadata    `json:"metadata"`
	Quality        *QualityMetrics `json:"quality,omitempty"`
}

// QualityMetrics summarizes exam quality. All scores are in [0,1].
type QualityMetrics struct {
	OverallScore    float64  `json:"overall_score"`
	Uniqueness      float64  `json:"uniqueness"`
	Accuracy        float64  `json:"accuracy"`
	DifficultyScore float64  `json:"difficulty_accuracy"`
	Coverage        float64  `json:"coverage"`
	IsValid         bool     `json:"is_valid"`
	Recommendations []string `json:"recommendations,omitempty"`
	Regenerate      bool     `json:"regenerate,omitempty"`
}

// GenerationConfig is one generation request.
type GenerationConfig struct {
	Files            []string             `json:"files"`
	Topic            string               `json:"topic"`
	TotalQuestions   int                  `json:"total_questions"`
	TypeTotals       map[QuestionType]int `json:"type_totals"`
	DifficultyTotals map[Difficulty]int   `json:"difficulty_totals"`
}

// BatchInfo identifies the batch a progress event refers to.
type BatchInfo struct {
	Index int `json:"index"`
	Total int `json:"total"`
}

// Progress is emitted at file start, before each batch, and once at run
// completion. Purely observational.
type Progress struct {
	CurrentFile          string     `json:"current_file"`
	CurrentFileIndex     int        `json:"current_file_index"`
	TotalFiles           int        `json:"total_files"`
	QuestionsGenerated   int        `json:"questions_generated"`
	TotalQuestionsNeeded int        `json:"total_questions_needed"`
	Batch                *BatchInfo `json:"batch,omitempty"`
}

// ProgressFunc receives progress events. May be nil.
type ProgressFunc func(Progress)

// BatchRequest is the scaled config handed to the generation collaborator.
type BatchRequest struct {
	SourceText      string
	TotalQuestions  int
	TypeQuota       map[QuestionType]int
	DifficultyQuota map[Difficulty]int
}

// BatchResult is what the generation collaborator returns. Questions, when
// present, are preferred over re-parsing RawText. Quality is optional
// collaborator-side self-assessment.
type BatchResult struct {
	RawText   string
	Questions []Question
	Quality   *QualityMetrics
}

// Generator is the external text-generation collaborator.
type Generator interface {
	GenerateBatch(ctx context.Context, req BatchRequest) (*BatchResult, error)
}

// SourceText is extracted document text plus its word count.
type SourceText struct {
	Text      string
	WordCount int
}

// TextExtractor turns an uploaded file into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, fileName string) (*SourceText, error)
}
