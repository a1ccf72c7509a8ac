package exam

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "examgen_batches_total",
		Help: "Generation batches processed, by outcome (ok, failed, quota).",
	}, []string{"outcome"})

	metricQuestionsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examgen_questions_accepted_total",
		Help: "Questions accepted into exams after deduplication.",
	})

	metricDuplicatesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examgen_duplicates_dropped_total",
		Help: "Questions dropped because their fingerprint was already seen.",
	})

	metricPlaceholderFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examgen_placeholder_fallbacks_total",
		Help: "Batches whose output required the count-based placeholder fallback.",
	})

	metricRateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "examgen_ratelimit_rejections_total",
		Help: "Generation calls delayed or rejected by the local rate limiter.",
	})
)
