package rules

import (
	"testing"

	"optsel/pkg/features"
	"optsel/pkg/strategy"
	"optsel/pkg/workload"
)

func TestScoreRulesBothDirections(t *testing.T) {
	rs := []MetricRule{
		{features.MetAndCount, 5, 1, 1},  // passes: value >= 5
		{features.MetOrCount, 2, -1, 1},  // passes: value <= 2
	}
	f := &features.QueryFeatures{AndCount: 10, OrCount: 1}
	if got := ScoreRules(rs, f); got != 1.0 {
		t.Errorf("both rules pass: score = %v, want 1.0", got)
	}

	f = &features.QueryFeatures{AndCount: 10, OrCount: 3}
	if got := ScoreRules(rs, f); got != 0.5 {
		t.Errorf("one of two passes: score = %v, want 0.5", got)
	}

	f = &features.QueryFeatures{AndCount: 0, OrCount: 3}
	if got := ScoreRules(rs, f); got != 0 {
		t.Errorf("no rule passes: score = %v, want 0", got)
	}
}

func TestScoreRulesIgnoresNonPositiveWeights(t *testing.T) {
	rs := []MetricRule{
		{features.MetAndCount, 0, 1, 0},   // excluded
		{features.MetOrCount, 0, 1, -2},   // excluded
		{features.MetJoinCount, 1, 1, 2},
	}
	f := &features.QueryFeatures{JoinCount: 5}
	if got := ScoreRules(rs, f); got != 1.0 {
		t.Errorf("score = %v, want 1.0 (zero-weight rules excluded from denominator)", got)
	}
	if got := ScoreRules(rs[:2], f); got != 0 {
		t.Errorf("score = %v, want 0 with no eligible rules", got)
	}
	if got := ScoreRules(nil, f); got != 0 {
		t.Errorf("score = %v, want 0 for empty table", got)
	}
}

func TestScoreBoundsAllTables(t *testing.T) {
	vectors := []*features.QueryFeatures{
		{},
		{JoinCount: 20, AndCount: 40, WhereTermsEst: 41, TableCountEst: 21,
			TableMentionedCount: 21, TableRowsSum: 1e9, TableRowsMax: 1e8,
			TableRowsMean: 5e7, TableRowsMin: 1, TableIndexSum: 60,
			TableIndexMean: 3, HasIn: true, HasGroupBy: true, HasOrderBy: true},
		{OrCount: 7, ORRatio: 1, SubqueryCount: 3, HasCase: true, HasUnion: true},
	}
	for _, p := range strategy.Passes {
		for _, k := range []workload.Kind{workload.JOB, workload.CEB, workload.Stack, workload.TPCDS} {
			if len(Rules(p, k)) == 0 {
				t.Fatalf("missing rule table for (%v, %v)", p, k)
			}
			for _, f := range vectors {
				s := Score(p, k, f)
				if s < 0 || s > 1 {
					t.Errorf("Score(%v, %v) = %v out of [0,1]", p, k, s)
				}
			}
		}
	}
}

func TestThresholdTable(t *testing.T) {
	if got := Threshold(strategy.PassCE, workload.TPCDS); got != 0 {
		t.Errorf("CE/tpcds threshold = %v, want 0 (always on)", got)
	}
	if got := Threshold(strategy.PassCM, workload.Stack); got != 0 {
		t.Errorf("CM/stack threshold = %v, want 0", got)
	}
	if got := Threshold(strategy.PassJN, workload.JOB); got != 0.65 {
		t.Errorf("JN/job threshold = %v, want 0.65", got)
	}
}

func TestDecideIndependentPasses(t *testing.T) {
	// zero-threshold passes are always on for their workload, regardless of
	// the vector
	f := &features.QueryFeatures{}
	c := Decide(workload.TPCDS, f)
	if !c.HasCE() || !c.HasJN() {
		t.Errorf("tpcds zero thresholds should enable CE and JN: got %v", c)
	}
	c = Decide(workload.Stack, f)
	if !c.HasCM() {
		t.Errorf("stack zero threshold should enable CM: got %v", c)
	}
}
