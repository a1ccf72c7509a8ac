package exam

import (
	"github.com/google/uuid"
)

// Draft accumulates accepted questions during one generation run. It is
// owned exclusively by the orchestrator and mutated only from its strictly
// sequential batch loop, so it carries no lock. The fingerprint set is
// append-only for the duration of a run; a new run gets a new draft.
type Draft struct {
	accepted     []Question
	seen         map[string]struct{}
	usedIDs      map[string]struct{}
	batchQuality map[string]QualityMetrics
}

func newDraft() *Draft {
	return &Draft{
		seen:         make(map[string]struct{}),
		usedIDs:      make(map[string]struct{}),
		batchQuality: make(map[string]QualityMetrics),
	}
}

// Add accepts a question unless its fingerprint was already seen. Dropping a
// repeat is silent: the collaborator rephrases itself constantly and
// duplicates are expected, not errors. Needs-review placeholders skip the
// fingerprint check entirely — their prompts are boilerplate, not content,
// and every marker counted from a failed batch must survive. Questions
// arriving with a missing or already-used id are re-keyed before merge.
func (d *Draft) Add(q Question) bool {
	if !q.NeedsReview {
		fp := fingerprint(q)
		if _, dup := d.seen[fp]; dup {
			return false
		}
		d.seen[fp] = struct{}{}
	}
	if _, taken := d.usedIDs[q.ID]; q.ID == "" || taken {
		q.ID = uuid.NewString()
	}
	d.usedIDs[q.ID] = struct{}{}
	d.accepted = append(d.accepted, q)
	return true
}

// Count returns the number of accepted questions so far.
func (d *Draft) Count() int { return len(d.accepted) }

// Accepted returns accepted questions in discovery order: file order, then
// batch order, then parse order.
func (d *Draft) Accepted() []Question { return d.accepted }

// RecordQuality stores collaborator-supplied metrics for one batch.
func (d *Draft) RecordQuality(batchID string, m QualityMetrics) {
	d.batchQuality[batchID] = m
}

// AggregateQuality averages per-batch sub-scores into one exam-level metric.
// Returns nil when no batch reported quality.
func (d *Draft) AggregateQuality() *QualityMetrics {
	if len(d.batchQuality) == 0 {
		return nil
	}
	var agg QualityMetrics
	for _, m := range d.batchQuality {
		agg.OverallScore += m.OverallScore
		agg.Uniqueness += m.Uniqueness
		agg.Accuracy += m.Accuracy
		agg.DifficultyScore += m.DifficultyScore
		agg.Coverage += m.Coverage
		agg.Recommendations = append(agg.Recommendations, m.Recommendations...)
		agg.Regenerate = agg.Regenerate || m.Regenerate
	}
	n := float64(len(d.batchQuality))
	agg.OverallScore /= n
	agg.Uniqueness /= n
	agg.Accuracy /= n
	agg.DifficultyScore /= n
	agg.Coverage /= n
	return &agg
}
