// Package rules scores a feature vector against fitted per-workload rule
// tables to decide which optimization passes to enable.
package rules

import (
	"optsel/pkg/features"
	"optsel/pkg/strategy"
	"optsel/pkg/workload"
)

// ScoreRules evaluates a rule list against a feature vector and returns the
// weight fraction of passing rules in [0, 1]. Rules with weight <= 0 count
// toward neither side; with no eligible rules the score is 0.
func ScoreRules(rs []MetricRule, f *features.QueryFeatures) float64 {
	var passed, total float64
	for _, r := range rs {
		if r.Weight <= 0 {
			continue
		}
		total += r.Weight
		v := f.Value(r.Metric)
		ok := false
		switch {
		case r.Direction > 0:
			ok = v >= r.Threshold
		case r.Direction < 0:
			ok = v <= r.Threshold
		}
		if ok {
			passed += r.Weight
		}
	}
	if total <= 0 {
		return 0
	}
	return passed / total
}

// Score evaluates the fitted table for one pass under one workload.
func Score(p strategy.Pass, k workload.Kind, f *features.QueryFeatures) float64 {
	return ScoreRules(Rules(p, k), f)
}

// Enabled reports whether the pass's score clears its activation threshold.
func Enabled(p strategy.Pass, k workload.Kind, f *features.QueryFeatures) bool {
	return Score(p, k, f) >= Threshold(p, k)
}

// Decide scores the three passes independently and assembles the resulting
// combination.
func Decide(k workload.Kind, f *features.QueryFeatures) strategy.Combination {
	return strategy.FromFlags(
		Enabled(strategy.PassCE, k, f),
		Enabled(strategy.PassCM, k, f),
		Enabled(strategy.PassJN, k, f),
	)
}
