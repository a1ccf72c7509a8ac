package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/studyforge/examgen/internal/exam"
)

// ErrExamNotFound is returned when no exam exists for the requested id.
var ErrExamNotFound = errors.New("exam not found")

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ExamRepository persists generated exams. Questions and the quality report
// are stored as JSONB documents: the service reads exams back whole and
// never queries inside them.
type ExamRepository struct {
	db querier
}

// NewExamRepository constructs a new exam repository. db is satisfied by
// *pgxpool.Pool.
func NewExamRepository(db querier) *ExamRepository {
	return &ExamRepository{db: db}
}

const insertExamSQL = `
INSERT INTO exams (id, topic, total_questions, source_files, generation_time_ms, questions, quality)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO NOTHING`

// SaveExam inserts a finished exam. Saving the same exam twice is a no-op.
func (r *ExamRepository) SaveExam(ctx context.Context, e *exam.Exam) error {
	questions, err := json.Marshal(e.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	var quality []byte
	if e.Quality != nil {
		if quality, err = json.Marshal(e.Quality); err != nil {
			return fmt.Errorf("marshal quality: %w", err)
		}
	}

	_, err = r.db.Exec(ctx, insertExamSQL,
		e.ID, e.Topic, e.TotalQuestions, e.Metadata.SourceFiles, e.Metadata.GenerationTimeMs, questions, quality)
	if err != nil {
		return fmt.Errorf("insert exam: %w", err)
	}
	return nil
}

const getExamSQL = `
SELECT id, topic, total_questions, source_files, generation_time_ms, questions, quality, created_at
FROM exams WHERE id = $1`

// GetExam loads an exam by id, including questions and the quality report.
func (r *ExamRepository) GetExam(ctx context.Context, id string) (*exam.Exam, error) {
	var (
		e         exam.Exam
		questions []byte
		quality   []byte
	)
	row := r.db.QueryRow(ctx, getExamSQL, id)
	err := row.Scan(&e.ID, &e.Topic, &e.TotalQuestions, &e.Metadata.SourceFiles,
		&e.Metadata.GenerationTimeMs, &questions, &quality, &e.Metadata.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select exam: %w", err)
	}

	if err := json.Unmarshal(questions, &e.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	if len(quality) > 0 {
		e.Quality = &exam.QualityMetrics{}
		if err := json.Unmarshal(quality, e.Quality); err != nil {
			return nil, fmt.Errorf("unmarshal quality: %w", err)
		}
	}
	return &e, nil
}
