package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/studyforge/examgen/internal/exam"
	httperrors "github.com/studyforge/examgen/pkg/http/errors"
	"github.com/studyforge/examgen/pkg/http/ws"
)

// Run statuses.
const (
	RunStatusRunning  = "running"
	RunStatusComplete = "complete"
	RunStatusFailed   = "failed"
)

// Run is the API-visible state of one generation run.
type Run struct {
	ID        string        `json:"run_id"`
	Status    string        `json:"status"`
	ExamID    string        `json:"exam_id,omitempty"`
	Error     string        `json:"error,omitempty"`
	ErrorCode string        `json:"error_code,omitempty"`
	Progress  exam.Progress `json:"progress"`
	StartedAt time.Time     `json:"started_at"`
}

// RunManager launches generation runs in the background and fans their
// progress out over the WebSocket hub. Finished runs stay queryable until
// the retention window expires.
type RunManager struct {
	svc    *exam.Service
	hub    *ws.Hub
	logger zerolog.Logger

	mu   sync.RWMutex
	runs map[string]*Run

	retention time.Duration
}

// NewRunManager wires a run manager around the generation service.
func NewRunManager(svc *exam.Service, hub *ws.Hub, logger zerolog.Logger) *RunManager {
	return &RunManager{
		svc:       svc,
		hub:       hub,
		logger:    logger.With().Str("component", "run_manager").Logger(),
		runs:      make(map[string]*Run),
		retention: time.Hour,
	}
}

// Start launches a run and returns its id immediately. The run itself is
// detached from the request context: closing the HTTP request must not
// cancel generation.
func (m *RunManager) Start(cfg exam.GenerationConfig) string {
	run := &Run{
		ID:        uuid.NewString(),
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	m.mu.Lock()
	m.runs[run.ID] = run
	m.mu.Unlock()

	go m.execute(run.ID, cfg)
	return run.ID
}

// Get returns a snapshot of a run, or false when unknown or expired.
func (m *RunManager) Get(runID string) (Run, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return Run{}, false
	}
	return *run, true
}

func (m *RunManager) execute(runID string, cfg exam.GenerationConfig) {
	ctx := context.Background()

	result, err := m.svc.Generate(ctx, cfg, func(p exam.Progress) {
		m.mu.Lock()
		if run, ok := m.runs[runID]; ok {
			run.Progress = p
		}
		m.mu.Unlock()
		m.broadcastProgress(runID, p)
	})

	m.mu.Lock()
	run, ok := m.runs[runID]
	if ok {
		if err != nil {
			run.Status = RunStatusFailed
			run.Error = err.Error()
			run.ErrorCode = errorCode(err)
		} else {
			run.Status = RunStatusComplete
			run.ExamID = result.ID
		}
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Warn().Err(err).Str("run_id", runID).Msg("run failed")
		m.broadcast(runID, ws.TypeRunFailed, ws.RunFailedPayload{
			RunID:  runID,
			Code:   errorCode(err),
			Reason: err.Error(),
		})
	} else {
		payload := ws.RunCompletePayload{
			RunID:          runID,
			ExamID:         result.ID,
			TotalQuestions: result.TotalQuestions,
		}
		if result.Quality != nil {
			payload.QualityScore = result.Quality.OverallScore
			payload.QualityValid = result.Quality.IsValid
		}
		m.broadcast(runID, ws.TypeRunComplete, payload)
	}
	m.hub.CloseRun(runID)

	time.AfterFunc(m.retention, func() {
		m.mu.Lock()
		delete(m.runs, runID)
		m.mu.Unlock()
	})
}

func (m *RunManager) broadcastProgress(runID string, p exam.Progress) {
	payload := ws.ProgressUpdatePayload{
		RunID:                runID,
		CurrentFile:          p.CurrentFile,
		CurrentFileIndex:     p.CurrentFileIndex,
		TotalFiles:           p.TotalFiles,
		QuestionsGenerated:   p.QuestionsGenerated,
		TotalQuestionsNeeded: p.TotalQuestionsNeeded,
	}
	if p.Batch != nil {
		payload.BatchIndex = p.Batch.Index
		payload.BatchTotal = p.Batch.Total
	}
	m.broadcast(runID, ws.TypeProgressUpdate, payload)
}

func (m *RunManager) broadcast(runID, msgType string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error().Err(err).Str("run_id", runID).Msg("marshal broadcast payload")
		return
	}
	m.hub.Broadcast(runID, ws.Message{Type: msgType, Payload: raw})
}

func errorCode(err error) string {
	var ee *exam.ExtractionError
	switch {
	case exam.IsQuotaError(err):
		return httperrors.ErrCodeQuotaExhausted
	case errors.As(err, &ee):
		return httperrors.ErrCodeExtractionFailed
	default:
		return httperrors.ErrCodeGenerationFailed
	}
}
