package exam

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// ExamCache stores completed exams keyed by their generation config so a
// repeated identical request does not re-spend generation budget.
type ExamCache interface {
	Get(ctx context.Context, cfg GenerationConfig) (*Exam, error)
	Set(ctx context.Context, cfg GenerationConfig, e *Exam) error
}

// ExamStore persists finished exams and their quality reports.
type ExamStore interface {
	SaveExam(ctx context.Context, e *Exam) error
}

// ServiceOptions tunes orchestration timing. Zero values fall back to
// production defaults.
type ServiceOptions struct {
	Stagger         time.Duration // delay between sequential batches
	RetryBaseDelay  time.Duration // first backoff step for transient failures
	MaxAttempts     int           // total attempts per batch
	RateWaitCeiling time.Duration // longest the limiter is waited on before giving up
}

func (o *ServiceOptions) fillDefaults() {
	if o.Stagger <= 0 {
		o.Stagger = 200 * time.Millisecond
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RateWaitCeiling <= 0 {
		o.RateWaitCeiling = 2 * time.Minute
	}
}

// Service drives the end-to-end generation flow: per source file it plans
// batches, invokes the generation collaborator, structures responses,
// deduplicates across everything accepted so far and assembles the final
// exam.
//
// Batches run strictly sequentially. The draft's fingerprint set is shared
// mutable state across batches, and concurrent batches would race on it,
// silently admitting duplicates. Correctness, not performance, dictates the
// sequential loop.
type Service struct {
	generator Generator
	extractor TextExtractor
	parser    *Parser
	planner   *Planner
	scorer    *Scorer
	limiter   *RateLimiter
	cache     ExamCache
	store     ExamStore
	logger    zerolog.Logger
	opts      ServiceOptions
}

// NewService wires the orchestrator. scorer, cache and store may be nil.
func NewService(generator Generator, extractor TextExtractor, limiter *RateLimiter, scorer *Scorer, cache ExamCache, store ExamStore, logger zerolog.Logger, opts ServiceOptions) *Service {
	opts.fillDefaults()
	if limiter == nil {
		limiter = NewRateLimiter(DefaultRateLimitConfig())
	}
	return &Service{
		generator: generator,
		extractor: extractor,
		parser:    NewParser(),
		planner:   NewPlanner(),
		scorer:    scorer,
		limiter:   limiter,
		cache:     cache,
		store:     store,
		logger:    logger.With().Str("component", "exam_service").Logger(),
		opts:      opts,
	}
}

// Generate runs one generation request. It returns either a (possibly
// partial, possibly placeholder-containing) exam with a quality report, or a
// single terminal error for the structural failure cases; batch-level
// failures are contained and logged.
func (s *Service) Generate(ctx context.Context, cfg GenerationConfig, onProgress ProgressFunc) (*Exam, error) {
	if len(cfg.Files) == 0 {
		return nil, &ConfigurationError{Reason: "no source files provided"}
	}
	if cfg.TotalQuestions <= 0 {
		return nil, &ConfigurationError{Reason: "zero questions requested"}
	}

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cfg); err == nil && cached != nil {
			s.logger.Info().Str("exam_id", cached.ID).Msg("serving cached exam")
			return cached, nil
		}
	}

	start := time.Now()
	draft := newDraft()
	topic := cfg.Topic

	var sourceTexts []string
	fileShare := (cfg.TotalQuestions + len(cfg.Files) - 1) / len(cfg.Files)

	for i, file := range cfg.Files {
		owed := cfg.TotalQuestions - draft.Count()
		if owed <= 0 {
			break
		}
		// Cap at the file's proportional share so one file cannot crowd out
		// the rest; the last file picks up any remaining slack.
		if i < len(cfg.Files)-1 && owed > fileShare {
			owed = fileShare
		}

		src, err := s.extractor.Extract(ctx, file)
		if err != nil {
			// Unreadable input is structural, not transient: abort the run.
			var ee *ExtractionError
			if !errors.As(err, &ee) {
				err = &ExtractionError{FileName: file, Err: err}
			}
			return nil, err
		}
		sourceTexts = append(sourceTexts, src.Text)

		emit(onProgress, Progress{
			CurrentFile:          file,
			CurrentFileIndex:     i,
			TotalFiles:           len(cfg.Files),
			QuestionsGenerated:   draft.Count(),
			TotalQuestionsNeeded: cfg.TotalQuestions,
		})

		fileTypes := scaleTypeQuota(cfg.TypeTotals, owed, cfg.TotalQuestions)
		fileDiffs := scaleDifficultyQuota(cfg.DifficultyTotals, owed, cfg.TotalQuestions)
		batches := s.planner.Plan(owed, fileTypes, fileDiffs, src.Text, file)

		for bi, batch := range batches {
			if draft.Count() >= cfg.TotalQuestions {
				break
			}
			emit(onProgress, Progress{
				CurrentFile:          file,
				CurrentFileIndex:     i,
				TotalFiles:           len(cfg.Files),
				QuestionsGenerated:   draft.Count(),
				TotalQuestionsNeeded: cfg.TotalQuestions,
				Batch:                &BatchInfo{Index: bi + 1, Total: len(batches)},
			})
			if bi > 0 {
				// Stagger sequential batches to smooth the call rate.
				s.sleep(ctx, s.opts.Stagger)
			}

			result, err := s.runBatch(ctx, batch)
			if err != nil {
				outcome := "failed"
				if IsQuotaError(err) {
					outcome = "quota"
				}
				metricBatches.WithLabelValues(outcome).Inc()
				// A partial exam beats total failure: log and move on.
				s.logger.Warn().Err(err).
					Str("file", file).
					Int("batch_index", bi).
					Msg("batch abandoned")
				continue
			}
			metricBatches.WithLabelValues("ok").Inc()

			if topic == "" {
				topic = s.parser.Topic(result.RawText)
			}

			for _, q := range s.structureBatch(result, batch) {
				if draft.Count() >= cfg.TotalQuestions {
					break
				}
				if draft.Add(q) {
					metricQuestionsAccepted.Inc()
				} else {
					metricDuplicatesDropped.Inc()
				}
			}

			if result.Quality != nil {
				draft.RecordQuality(fmt.Sprintf("%s#%d", file, bi), *result.Quality)
			}
		}
	}

	if draft.Count() == 0 {
		return nil, &GenerationError{Err: errors.New("no questions could be generated from any batch")}
	}

	if topic == "" {
		topic = "Generated Exam"
	}
	exam := &Exam{
		ID:             uuid.NewString(),
		Topic:          topic,
		Questions:      draft.Accepted(),
		TotalQuestions: draft.Count(),
		Metadata: ExamMetadata{
			SourceFiles:      cfg.Files,
			GenerationTimeMs: time.Since(start).Milliseconds(),
			CreatedAt:        start.UTC(),
		},
	}

	if s.scorer != nil {
		report := s.scorer.Score(exam, strings.Join(sourceTexts, "\n"))
		exam.Quality = &report.QualityMetrics
	} else if agg := draft.AggregateQuality(); agg != nil {
		exam.Quality = agg
	}

	emit(onProgress, Progress{
		CurrentFileIndex:     len(cfg.Files),
		TotalFiles:           len(cfg.Files),
		QuestionsGenerated:   draft.Count(),
		TotalQuestionsNeeded: cfg.TotalQuestions,
	})

	if s.cache != nil {
		if err := s.cache.Set(ctx, cfg, exam); err != nil {
			s.logger.Warn().Err(err).Msg("exam cache write failed")
		}
	}
	if s.store != nil {
		if err := s.store.SaveExam(ctx, exam); err != nil {
			s.logger.Warn().Err(err).Str("exam_id", exam.ID).Msg("exam persistence failed")
		}
	}

	s.logger.Info().
		Str("exam_id", exam.ID).
		Int("questions", exam.TotalQuestions).
		Int64("elapsed_ms", exam.Metadata.GenerationTimeMs).
		Msg("generation run complete")
	return exam, nil
}

// runBatch invokes the collaborator with retry and backoff. Transient
// failures are retried with doubling delays; quota failures abort the batch
// immediately since retrying a quota error cannot succeed and wastes budget.
func (s *Service) runBatch(ctx context.Context, b Batch) (*BatchResult, error) {
	req := BatchRequest{
		SourceText:      b.SourceText,
		TotalQuestions:  b.QuestionsRequested,
		TypeQuota:       b.TypeQuota,
		DifficultyQuota: b.DifficultyQuota,
	}

	var result *BatchResult
	backoff := retry.WithMaxRetries(uint64(s.opts.MaxAttempts-1), retry.NewExponential(s.opts.RetryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := s.waitForBudget(ctx); err != nil {
			return err
		}
		res, err := s.generator.GenerateBatch(ctx, req)
		// The call went out either way; a rejected CanProceed is the only
		// path that must not consume budget.
		s.limiter.RecordCall()
		if err != nil {
			if IsQuotaError(err) {
				return err
			}
			return retry.RetryableError(err)
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// waitForBudget blocks until the local limiter admits a call, or fails with
// a quota error when the wait would exceed the configured ceiling.
func (s *Service) waitForBudget(ctx context.Context) error {
	d := s.limiter.CanProceed()
	if d.Allowed {
		return nil
	}
	metricRateLimited.Inc()
	if d.RetryAfter > s.opts.RateWaitCeiling {
		return &GenerationError{Quota: true, Err: fmt.Errorf("local call budget exhausted for %s", d.RetryAfter)}
	}
	s.sleep(ctx, d.RetryAfter)
	if d := s.limiter.CanProceed(); !d.Allowed {
		return &GenerationError{Quota: true, Err: errors.New("call budget still exhausted after waiting")}
	}
	return nil
}

// structureBatch prefers collaborator-structured questions, then the text
// parser, then count-based placeholders. Declared difficulties are assigned
// from the batch quota; the parser never verifies them (that is the
// scorer's job).
func (s *Service) structureBatch(res *BatchResult, b Batch) []Question {
	questions := res.Questions
	if len(questions) == 0 {
		parsed, err := s.parser.Parse(res.RawText)
		if err != nil {
			metricPlaceholderFallbacks.Inc()
			s.logger.Warn().Err(err).
				Str("file", b.FileName).
				Int("batch_index", b.BatchIndex).
				Msg("structural parse failed; using placeholder fallback")
			parsed = s.parser.PlaceholderQuestions(res.RawText, b.QuestionsRequested)
		}
		questions = parsed
	}
	assignDifficulties(questions, b.DifficultyQuota)
	return questions
}

// assignDifficulties distributes the batch's difficulty quota over questions
// in canonical level order, leaving already-labeled questions alone.
func assignDifficulties(questions []Question, quota map[Difficulty]int) {
	idx := 0
	for _, level := range Difficulties {
		for n := quota[level]; n > 0 && idx < len(questions); n-- {
			if questions[idx].Difficulty == "" {
				questions[idx].Difficulty = level
			}
			idx++
		}
	}
	for ; idx < len(questions); idx++ {
		if questions[idx].Difficulty == "" {
			questions[idx].Difficulty = DifficultyModerate
		}
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

func emit(fn ProgressFunc, p Progress) {
	if fn != nil {
		fn(p)
	}
}
