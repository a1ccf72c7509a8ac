package exam

import (
	"sort"
)

const (
	// Requests at or below this size are generated in a single batch:
	// splitting small requests produces tiny, low-quality batches.
	defaultSplitThreshold = 10
	// Preferred batch size for split requests.
	defaultOptimalBatchSize = 8
)

// Planner decides how a question request is split into independent batches
// and derives each batch's proportional type and difficulty quotas.
type Planner struct {
	SplitThreshold   int
	OptimalBatchSize int
}

// NewPlanner returns a planner with production defaults.
func NewPlanner() *Planner {
	return &Planner{
		SplitThreshold:   defaultSplitThreshold,
		OptimalBatchSize: defaultOptimalBatchSize,
	}
}

// Plan splits totalQuestions into batches. Each batch's quota maps sum
// exactly to its QuestionsRequested.
func (p *Planner) Plan(totalQuestions int, typeTotals map[QuestionType]int, diffTotals map[Difficulty]int, sourceText, fileName string) []Batch {
	if totalQuestions <= 0 {
		return nil
	}

	if totalQuestions <= p.SplitThreshold {
		return []Batch{{
			SourceText:         sourceText,
			FileName:           fileName,
			BatchIndex:         0,
			TotalBatches:       1,
			QuestionsRequested: totalQuestions,
			TypeQuota:          scaleTypeQuota(typeTotals, totalQuestions, totalQuestions),
			DifficultyQuota:    scaleDifficultyQuota(diffTotals, totalQuestions, totalQuestions),
		}}
	}

	batchSize := p.OptimalBatchSize
	if batchSize > totalQuestions {
		batchSize = totalQuestions
	}
	numBatches := (totalQuestions + batchSize - 1) / batchSize

	batches := make([]Batch, 0, numBatches)
	remaining := totalQuestions
	for i := 0; i < numBatches; i++ {
		requested := batchSize
		if requested > remaining {
			requested = remaining
		}
		remaining -= requested

		batches = append(batches, Batch{
			SourceText:         sourceText,
			FileName:           fileName,
			BatchIndex:         i,
			TotalBatches:       numBatches,
			QuestionsRequested: requested,
			TypeQuota:          scaleTypeQuota(typeTotals, requested, totalQuestions),
			DifficultyQuota:    scaleDifficultyQuota(diffTotals, requested, totalQuestions),
		})
	}
	return batches
}

// scaleTypeQuota scales parent type totals to a batch's share; the rounding
// residue is reconciled so the quota always sums to requested. If
// proportional scaling zeroes every bucket, the whole batch defaults to
// multipleChoice rather than going out empty.
func scaleTypeQuota(totals map[QuestionType]int, requested, parentTotal int) map[QuestionType]int {
	scaled := scaleQuota(quotaFromTypes(totals), requested, parentTotal)
	if allZero(scaled) {
		scaled = map[string]int{string(TypeMultipleChoice): requested}
	}
	out := make(map[QuestionType]int, len(scaled))
	for k, v := range scaled {
		out[QuestionType(k)] = v
	}
	return out
}

// scaleDifficultyQuota mirrors scaleTypeQuota with a moderate fallback.
func scaleDifficultyQuota(totals map[Difficulty]int, requested, parentTotal int) map[Difficulty]int {
	in := make(map[string]int, len(totals))
	for k, v := range totals {
		in[string(k)] = v
	}
	scaled := scaleQuota(in, requested, parentTotal)
	if allZero(scaled) {
		scaled = map[string]int{string(DifficultyModerate): requested}
	}
	out := make(map[Difficulty]int, len(scaled))
	for k, v := range scaled {
		out[Difficulty(k)] = v
	}
	return out
}

func quotaFromTypes(totals map[QuestionType]int) map[string]int {
	in := make(map[string]int, len(totals))
	for k, v := range totals {
		in[string(k)] = v
	}
	return in
}

// scaleQuota distributes requested across buckets proportionally to their
// weight in parentTotal, rounding to nearest. A rounding shortfall lands on
// the heaviest bucket; an overshoot is walked off the largest non-zero
// buckets one question at a time, so the result always sums to requested and
// no bucket goes negative.
func scaleQuota(totals map[string]int, requested, parentTotal int) map[string]int {
	out := make(map[string]int, len(totals))
	if len(totals) == 0 || parentTotal <= 0 {
		return out
	}

	share := float64(requested) / float64(parentTotal)
	sum := 0
	for k, v := range totals {
		n := int(float64(v)*share + 0.5)
		out[k] = n
		sum += n
	}

	diff := requested - sum
	if diff == 0 {
		return out
	}
	order := bucketOrder(out, totals)
	if len(order) == 0 {
		return out
	}
	if diff > 0 {
		out[order[0]] += diff
		return out
	}
	for i := 0; diff < 0; i = (i + 1) % len(order) {
		if k := order[i]; out[k] > 0 {
			out[k]--
			diff++
		}
	}
	return out
}

// bucketOrder returns keys largest-first (scaled count, then original weight,
// then key) so residue reconciliation is deterministic.
func bucketOrder(scaled, totals map[string]int) []string {
	keys := make([]string, 0, len(scaled))
	for k := range scaled {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if scaled[a] != scaled[b] {
			return scaled[a] > scaled[b]
		}
		if totals[a] != totals[b] {
			return totals[a] > totals[b]
		}
		return a < b
	})
	return keys
}

func allZero(m map[string]int) bool {
	for _, v := range m {
		if v != 0 {
			return false
		}
	}
	return true
}
