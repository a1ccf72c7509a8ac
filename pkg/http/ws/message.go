package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypePing = "ping"

	// Server -> Client
	TypePong           = "pong"
	TypeProgressUpdate = "progress_update"
	TypeRunComplete    = "run_complete"
	TypeRunFailed      = "run_failed"
	TypeError          = "error"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// ProgressUpdatePayload mirrors the orchestrator's progress events.
type ProgressUpdatePayload struct {
	RunID                string `json:"run_id"`
	CurrentFile          string `json:"current_file,omitempty"`
	CurrentFileIndex     int    `json:"current_file_index"`
	TotalFiles           int    `json:"total_files"`
	QuestionsGenerated   int    `json:"questions_generated"`
	TotalQuestionsNeeded int    `json:"total_questions_needed"`
	BatchIndex           int    `json:"batch_index,omitempty"`
	BatchTotal           int    `json:"batch_total,omitempty"`
}

// RunCompletePayload announces a finished run and where to fetch the exam.
type RunCompletePayload struct {
	RunID          string  `json:"run_id"`
	ExamID         string  `json:"exam_id"`
	TotalQuestions int     `json:"total_questions"`
	QualityScore   float64 `json:"quality_score,omitempty"`
	QualityValid   bool    `json:"quality_valid"`
}

// RunFailedPayload announces a run that produced no exam.
type RunFailedPayload struct {
	RunID  string `json:"run_id"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
