package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/studyforge/examgen/internal/exam"
	"github.com/studyforge/examgen/pkg/http/ws"
)

type stubGenerator struct{}

func (stubGenerator) GenerateBatch(_ context.Context, req exam.BatchRequest) (*exam.BatchResult, error) {
	var b strings.Builder
	b.WriteString("Topic: Testing\n=== EXAM ===\nShort Answer\n")
	for i := 0; i < req.TotalQuestions; i++ {
		fmt.Fprintf(&b, "%d. Describe aspect %d of the subject under test.\n", i+1, i+1)
	}
	return &exam.BatchResult{RawText: b.String()}, nil
}

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, string) (*exam.SourceText, error) {
	return &exam.SourceText{Text: "subject under test", WordCount: 3}, nil
}

func newTestHandlers() *ExamHandlers {
	logger := zerolog.New(io.Discard)
	svc := exam.NewService(stubGenerator{}, stubExtractor{}, nil, nil, nil, nil, logger, exam.ServiceOptions{
		Stagger:        time.Millisecond,
		RetryBaseDelay: time.Millisecond,
	})
	hub := ws.NewHub(logger)
	return NewExamHandlers(NewRunManager(svc, hub, logger), nil, hub, logger)
}

func TestStartGenerationValidation(t *testing.T) {
	h := newTestHandlers()

	cases := []struct {
		name string
		body string
		want int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"no files", `{"total_questions":5}`, http.StatusBadRequest},
		{"zero questions", `{"files":["a.txt"]}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/exams/generate", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			h.StartGeneration(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestStartGenerationRejectsGet(t *testing.T) {
	h := newTestHandlers()
	rec := httptest.NewRecorder()
	h.StartGeneration(rec, httptest.NewRequest(http.MethodGet, "/v1/exams/generate", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStartGenerationReturnsRunID(t *testing.T) {
	h := newTestHandlers()

	body := `{"files":["notes.txt"],"total_questions":2}`
	req := httptest.NewRequest(http.MethodPost, "/v1/exams/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.StartGeneration(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	var resp generateResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)

	// The run executes in the background and must eventually report
	// completion with an exam id.
	deadline := time.Now().Add(5 * time.Second)
	for {
		run, ok := h.runs.Get(resp.RunID)
		assert.True(t, ok)
		if run.Status != RunStatusRunning {
			assert.Equal(t, RunStatusComplete, run.Status)
			assert.NotEmpty(t, run.ExamID)
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("run never finished")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestGetRunUnknownID(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil)
	req.SetPathValue("id", "nope")
	rec := httptest.NewRecorder()
	h.GetRun(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetExamWithoutPersistence(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/v1/exams/x", nil)
	req.SetPathValue("id", "x")
	rec := httptest.NewRecorder()
	h.GetExam(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
