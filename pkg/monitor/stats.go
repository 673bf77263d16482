package monitor

import "sync/atomic"

// DecisionStats counts decision outcomes by origin. All counters are
// lock-free; many query sessions update one shared instance.
type DecisionStats struct {
	CacheHits        uint64
	CacheExplores    uint64
	RuleDecisions    uint64
	TrivialDecisions uint64
	FeedbackRecorded uint64
	FeedbackDropped  uint64
}

func NewDecisionStats() *DecisionStats {
	return &DecisionStats{}
}

func (s *DecisionStats) RecordCacheHit()     { atomic.AddUint64(&s.CacheHits, 1) }
func (s *DecisionStats) RecordCacheExplore() { atomic.AddUint64(&s.CacheExplores, 1) }
func (s *DecisionStats) RecordRuleDecision() { atomic.AddUint64(&s.RuleDecisions, 1) }
func (s *DecisionStats) RecordTrivial()      { atomic.AddUint64(&s.TrivialDecisions, 1) }
func (s *DecisionStats) RecordFeedback()     { atomic.AddUint64(&s.FeedbackRecorded, 1) }
func (s *DecisionStats) RecordDropped()      { atomic.AddUint64(&s.FeedbackDropped, 1) }

// Decisions returns the total number of decisions made so far.
func (s *DecisionStats) Decisions() uint64 {
	return atomic.LoadUint64(&s.CacheHits) +
		atomic.LoadUint64(&s.CacheExplores) +
		atomic.LoadUint64(&s.RuleDecisions) +
		atomic.LoadUint64(&s.TrivialDecisions)
}

// CacheHitRatio reports the fraction of decisions answered from cache,
// exploration included.
func (s *DecisionStats) CacheHitRatio() float64 {
	total := s.Decisions()
	if total == 0 {
		return 0.0
	}
	hits := atomic.LoadUint64(&s.CacheHits) + atomic.LoadUint64(&s.CacheExplores)
	return float64(hits) / float64(total)
}

// Snapshot returns a point-in-time copy of all counters.
func (s *DecisionStats) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"cache_hits":        atomic.LoadUint64(&s.CacheHits),
		"cache_explores":    atomic.LoadUint64(&s.CacheExplores),
		"rule_decisions":    atomic.LoadUint64(&s.RuleDecisions),
		"trivial_decisions": atomic.LoadUint64(&s.TrivialDecisions),
		"feedback_recorded": atomic.LoadUint64(&s.FeedbackRecorded),
		"feedback_dropped":  atomic.LoadUint64(&s.FeedbackDropped),
	}
}
