package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/studyforge/examgen/internal/exam"
)

type fakeDB struct {
	execSQL   string
	execArgs  []any
	execErr   error
	querySQL  string
	queryArgs []any
	row       *fakeRow
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execSQL = sql
	f.execArgs = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.execErr
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.querySQL = sql
	f.queryArgs = args
	return f.row
}

type fakeRow struct {
	vals []any
	err  error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *string:
			*p = r.vals[i].(string)
		case *int:
			*p = r.vals[i].(int)
		case *int64:
			*p = r.vals[i].(int64)
		case *[]string:
			*p = r.vals[i].([]string)
		case *[]byte:
			*p = r.vals[i].([]byte)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		}
	}
	return nil
}

func sampleExam() *exam.Exam {
	return &exam.Exam{
		ID:             "11111111-2222-3333-4444-555555555555",
		Topic:          "Photosynthesis",
		TotalQuestions: 2,
		Questions: []exam.Question{
			{ID: "q1", Type: exam.TypeShortAnswer, Difficulty: exam.DifficultyEasy, Prompt: "Define chlorophyll.", Answer: "The green pigment."},
			{ID: "q2", Type: exam.TypeTrueFalse, Difficulty: exam.DifficultyModerate, Prompt: "Plants respire.", Answer: "True"},
		},
		Metadata: exam.ExamMetadata{SourceFiles: []string{"bio.txt"}, GenerationTimeMs: 1200},
		Quality:  &exam.QualityMetrics{OverallScore: 0.91, IsValid: true},
	}
}

func TestExamRepository_SaveExam(t *testing.T) {
	db := &fakeDB{}
	repo := NewExamRepository(db)
	e := sampleExam()

	err := repo.SaveExam(context.Background(), e)

	assert.NoError(t, err)
	assert.True(t, strings.Contains(db.execSQL, "INSERT INTO exams"))
	assert.Len(t, db.execArgs, 7)
	assert.Equal(t, e.ID, db.execArgs[0])
	assert.Equal(t, e.Topic, db.execArgs[1])
	assert.Equal(t, 2, db.execArgs[2])

	var questions []exam.Question
	assert.NoError(t, json.Unmarshal(db.execArgs[5].([]byte), &questions))
	assert.Equal(t, e.Questions, questions)
}

func TestExamRepository_SaveExamWithoutQuality(t *testing.T) {
	db := &fakeDB{}
	repo := NewExamRepository(db)
	e := sampleExam()
	e.Quality = nil

	assert.NoError(t, repo.SaveExam(context.Background(), e))
	assert.Nil(t, db.execArgs[6])
}

func TestExamRepository_GetExam(t *testing.T) {
	want := sampleExam()
	questions, _ := json.Marshal(want.Questions)
	quality, _ := json.Marshal(want.Quality)
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	db := &fakeDB{row: &fakeRow{vals: []any{
		want.ID, want.Topic, want.TotalQuestions, want.Metadata.SourceFiles,
		want.Metadata.GenerationTimeMs, questions, quality, created,
	}}}
	repo := NewExamRepository(db)

	got, err := repo.GetExam(context.Background(), want.ID)

	assert.NoError(t, err)
	assert.Equal(t, []any{want.ID}, db.queryArgs)
	assert.Equal(t, want.Questions, got.Questions)
	assert.Equal(t, want.Topic, got.Topic)
	assert.NotNil(t, got.Quality)
	assert.True(t, got.Quality.IsValid)
	assert.Equal(t, created, got.Metadata.CreatedAt)
}

func TestExamRepository_GetExamNotFound(t *testing.T) {
	db := &fakeDB{row: &fakeRow{err: pgx.ErrNoRows}}
	repo := NewExamRepository(db)

	_, err := repo.GetExam(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrExamNotFound)
}
