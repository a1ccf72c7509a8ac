package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/studyforge/examgen/internal/db/repository"
	"github.com/studyforge/examgen/internal/exam"
	httperrors "github.com/studyforge/examgen/pkg/http/errors"
	"github.com/studyforge/examgen/pkg/http/ws"
)

// ExamReader loads persisted exams for the read API. Nil when the service
// runs without a database.
type ExamReader interface {
	GetExam(ctx context.Context, id string) (*exam.Exam, error)
}

// ExamHandlers exposes the generation API over HTTP.
type ExamHandlers struct {
	runs   *RunManager
	reader ExamReader
	hub    *ws.Hub
	logger zerolog.Logger
}

// NewExamHandlers builds the HTTP handler set.
func NewExamHandlers(runs *RunManager, reader ExamReader, hub *ws.Hub, logger zerolog.Logger) *ExamHandlers {
	return &ExamHandlers{
		runs:   runs,
		reader: reader,
		hub:    hub,
		logger: logger.With().Str("component", "exam_http").Logger(),
	}
}

type generateRequest struct {
	Files            []string                  `json:"files"`
	Topic            string                    `json:"topic,omitempty"`
	TotalQuestions   int                       `json:"total_questions"`
	TypeTotals       map[exam.QuestionType]int `json:"type_totals,omitempty"`
	DifficultyTotals map[exam.Difficulty]int   `json:"difficulty_totals,omitempty"`
}

type generateResponse struct {
	RunID string `json:"run_id"`
}

// StartGeneration accepts a generation request and returns a run id the
// client can poll or watch over WebSocket.
func (h *ExamHandlers) StartGeneration(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
		return
	}

	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidPayload, "malformed JSON body")
		return
	}
	if len(req.Files) == 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "at least one source file is required", "files")
		return
	}
	if req.TotalQuestions <= 0 {
		httperrors.RespondValidationError(w, httperrors.ErrCodeValidationFailed, "total_questions must be positive", "total_questions")
		return
	}

	runID := h.runs.Start(exam.GenerationConfig{
		Files:            req.Files,
		Topic:            req.Topic,
		TotalQuestions:   req.TotalQuestions,
		TypeTotals:       req.TypeTotals,
		DifficultyTotals: req.DifficultyTotals,
	})

	h.logger.Info().Str("run_id", runID).Int("total_questions", req.TotalQuestions).Msg("run started")
	respondJSON(w, http.StatusAccepted, generateResponse{RunID: runID})
}

// GetRun reports the current state of a generation run.
func (h *ExamHandlers) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.runs.Get(r.PathValue("id"))
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeRunNotFound, "unknown run id")
		return
	}
	respondJSON(w, http.StatusOK, run)
}

// GetExam serves a persisted exam by id.
func (h *ExamHandlers) GetExam(w http.ResponseWriter, r *http.Request) {
	if h.reader == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeServiceUnavailable, "exam persistence is not configured")
		return
	}

	e, err := h.reader.GetExam(r.Context(), r.PathValue("id"))
	if errors.Is(err, repository.ErrExamNotFound) {
		httperrors.RespondNotFound(w, httperrors.ErrCodeExamNotFound, "no exam with that id")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Msg("exam lookup failed")
		httperrors.RespondInternalError(w, "exam lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, e)
}

// WatchRun upgrades to WebSocket and streams run events until the run ends.
func (h *ExamHandlers) WatchRun(w http.ResponseWriter, r *http.Request) {
	runID := r.PathValue("id")
	run, ok := h.runs.Get(runID)
	if !ok {
		httperrors.RespondNotFound(w, httperrors.ErrCodeRunNotFound, "unknown run id")
		return
	}

	sock, err := WSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Str("run_id", runID).Msg("websocket upgrade failed")
		return
	}

	conn := ws.NewConnection(sock, h.logger)
	h.hub.Watch(runID, conn)
	go conn.WritePump()

	// A run may have finished between Get and Watch; replay the terminal
	// state so the watcher is not left hanging.
	if run.Status != RunStatusRunning {
		h.replayTerminal(runID, run, conn)
	}

	conn.ReadPump()
	h.hub.Unwatch(runID, conn)
}

func (h *ExamHandlers) replayTerminal(runID string, run Run, conn *ws.Connection) {
	var (
		msgType string
		payload any
	)
	if run.Status == RunStatusFailed {
		msgType = ws.TypeRunFailed
		payload = ws.RunFailedPayload{RunID: runID, Code: run.ErrorCode, Reason: run.Error}
	} else {
		msgType = ws.TypeRunComplete
		payload = ws.RunCompletePayload{RunID: runID, ExamID: run.ExamID}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return
	}
	conn.Send(ws.Message{Type: msgType, Payload: raw})
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
