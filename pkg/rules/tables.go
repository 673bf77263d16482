package rules

import (
	"optsel/pkg/features"
	"optsel/pkg/strategy"
	"optsel/pkg/workload"
)

// MetricRule is one weighted threshold test. Direction +1 passes when the
// feature value is >= Threshold, -1 when it is <= Threshold. Rules with a
// non-positive weight are ignored entirely.
type MetricRule struct {
	Metric    features.Metric
	Threshold float64
	Direction int
	Weight    float64
}

// The tables below are versioned configuration data, fitted offline per
// (pass, workload) pair. Do not hand-tune individual entries.

var ceJOB = []MetricRule{
	{features.MetAndCount, 17.2500, 1, 1.0},
	{features.MetHasIn, 0.5987, 1, 1.0},
	{features.MetTableCountEst, 8.5000, 1, 1.0},
	{features.MetTableIndexSum, 17.5000, 1, 1.0},
	{features.MetTableMentionedCount, 7.5000, 1, 1.0},
	{features.MetTableRowsMax, 25540032.0000, 1, 1.0},
	{features.MetTableRowsMean, 5164715.2474, 1, 1.0},
	{features.MetTableRowsMin, 8.0000, -1, 1.0},
	{features.MetTableRowsSum, 36570981.0000, 1, 1.0},
	{features.MetWhereTermsEst, 19.0000, 1, 1.0},
}

var ceCEB = []MetricRule{
	{features.MetAndCount, 19.5000, 1, 1.2},
	{features.MetHasBetween, 0.0109, -1, 0.8},
	{features.MetHasCase, 0.0054, -1, 0.8},
	{features.MetHasGroupBy, 0.3500, 1, 0.9},
	{features.MetHasOrderBy, 0.1800, 1, 0.9},
	{features.MetHasUnion, 0.0250, 1, 0.7},
	{features.MetTableMentionedCount, 9.0000, 1, 1.2},
	{features.MetTableRowsMax, 35000000.0000, 1, 1.0},
	{features.MetTableRowsMean, 6400000.0000, -1, 0.9},
	{features.MetTableRowsMin, 6.0000, 1, 0.8},
	{features.MetTableRowsSum, 57000000.0000, 1, 1.1},
	{features.MetWhereTermsEst, 20.5000, 1, 1.2},
}

var ceStack = []MetricRule{
	{features.MetAndCount, 14.5000, -1, 1.0},
	{features.MetHasCase, 0.0146, -1, 1.0},
	{features.MetHasDistinct, 0.6055, -1, 1.0},
	{features.MetHasExists, 0.1018, 1, 1.0},
	{features.MetHasGroupBy, 0.2127, -1, 1.0},
	{features.MetJoinCount, 0.0000, 1, 1.0},
	{features.MetSubqueryCount, 0.0000, 1, 1.0},
	{features.MetTableCountEst, 7.0000, 1, 1.0},
	{features.MetTableIndexSum, 14.5000, -1, 1.0},
	{features.MetTableMentionedCount, 7.0000, 1, 1.0},
	{features.MetTableRowsMax, 51236903.0000, 1, 1.0},
	{features.MetTableRowsMean, 17786389.2500, 1, 1.0},
	{features.MetTableRowsMin, 173.0000, 1, 1.0},
	{features.MetTableRowsSum, 110242888.0000, -1, 1.0},
	{features.MetWhereTermsEst, 15.5000, -1, 1.0},
}

var ceTPCDS = []MetricRule{
	{features.MetAggFuncCount, 3.0000, 1, 1.0},
	{features.MetAndCount, 6.0000, 1, 1.0},
	{features.MetHasCase, 0.3277, 1, 1.0},
	{features.MetHasDistinct, 0.0795, -1, 1.0},
	{features.MetHasExists, 0.0459, -1, 1.0},
	{features.MetHasIn, 0.4017, 1, 1.0},
	{features.MetHasLike, 0.0071, -1, 1.0},
	{features.MetHasUnion, 0.1784, -1, 1.0},
	{features.MetOrCount, 0.0000, 1, 1.0},
	{features.MetSubqueryCount, 1.5000, -1, 1.0},
	{features.MetTableIndexMean, 7.8333, -1, 1.0},
	{features.MetTableIndexSum, 24.5000, -1, 1.0},
	{features.MetTableRowsMax, 28800991.0000, 1, 1.0},
	{features.MetTableRowsMean, 8473920.9167, -1, 1.0},
	{features.MetTableRowsMin, 87524.5000, -1, 1.0},
	{features.MetTableRowsSum, 28888515.5000, -1, 1.0},
	{features.MetWhereTermsEst, 7.5000, -1, 1.0},
	{features.MetWindowFuncCount, 0.0000, 1, 1.0},
}

var cmJOB = []MetricRule{
	{features.MetTableMentionedCount, 8.0000, 1, 1.0},
	{features.MetTableRowsMax, 25540032.0000, 1, 1.0},
	{features.MetTableRowsMean, 4750094.3000, 1, 1.0},
	{features.MetTableRowsMin, 6.2500, -1, 1.0},
	{features.MetTableRowsSum, 36051444.7500, 1, 1.0},
}

var cmCEB = []MetricRule{
	{features.MetAndCount, 19.5000, -1, 1.1},
	{features.MetHasBetween, 0.0120, 1, 1.0},
	{features.MetHasCase, 0.0050, -1, 0.8},
	{features.MetHasLike, 0.0120, 1, 1.0},
	{features.MetOrCount, 0.3000, 1, 1.1},
	{features.MetTableCountEst, 10.0000, -1, 1.2},
	{features.MetTableRowsMax, 35000000.0000, 1, 1.0},
	{features.MetTableRowsMean, 6500000.0000, 1, 1.1},
	{features.MetTableRowsSum, 57000000.0000, -1, 1.0},
	{features.MetWhereTermsEst, 21.0000, -1, 1.2},
}

var cmStack = []MetricRule{
	{features.MetHasGroupBy, 0.1875, 1, 1.0},
	{features.MetHasLimit, 0.1313, 1, 1.0},
	{features.MetHasOrderBy, 0.1250, 1, 1.0},
	{features.MetJoinCount, 0.0000, 1, 1.0},
	{features.MetTableCountEst, 7.0000, 1, 1.0},
	{features.MetTableIndexSum, 14.0000, 1, 1.0},
	{features.MetTableMentionedCount, 6.5000, 1, 1.0},
	{features.MetTableRowsMax, 51236903.0000, 1, 1.0},
	{features.MetTableRowsMean, 17786389.2500, 1, 1.0},
	{features.MetTableRowsMin, 173.0000, 1, 1.0},
	{features.MetTableRowsSum, 105854723.5000, -1, 1.0},
}

var cmTPCDS = []MetricRule{
	{features.MetAggFuncCount, 3.0000, 1, 1.0},
	{features.MetAndCount, 6.0000, 1, 1.0},
	{features.MetHasCase, 0.2962, -1, 1.0},
	{features.MetHasDistinct, 0.0972, 1, 1.0},
	{features.MetHasHaving, 0.0657, -1, 1.0},
	{features.MetHasLike, 0.0086, -1, 1.0},
	{features.MetHasUnion, 0.2099, 1, 1.0},
	{features.MetJoinCount, 0.0000, 1, 1.0},
	{features.MetOrCount, 0.0000, 1, 1.0},
	{features.MetSubqueryCount, 1.2500, 1, 1.0},
	{features.MetTableCountEst, 4.0000, 1, 1.0},
	{features.MetTableIndexSum, 25.5000, 1, 1.0},
	{features.MetTableRowsMax, 28800991.0000, 1, 1.0},
	{features.MetTableRowsMean, 9237321.0833, 1, 1.0},
	{features.MetTableRowsMin, 87524.5000, -1, 1.0},
	{features.MetTableRowsSum, 28937441.0000, 1, 1.0},
	{features.MetWhereTermsEst, 7.5000, 1, 1.0},
}

var jnJOB = []MetricRule{
	{features.MetAndCount, 16.0000, -1, 1.0},
	{features.MetHasBetween, 0.1860, -1, 1.0},
	{features.MetHasIn, 0.5566, -1, 1.0},
	{features.MetHasLike, 0.6828, -1, 1.0},
	{features.MetOrCount, 0.0000, 1, 1.0},
	{features.MetTableCountEst, 8.5000, -1, 1.0},
	{features.MetTableIndexSum, 17.0000, 1, 1.0},
	{features.MetTableMentionedCount, 8.0000, 1, 1.0},
	{features.MetTableRowsMax, 25540032.0000, 1, 1.0},
	{features.MetTableRowsMean, 4868530.2857, 1, 1.0},
	{features.MetTableRowsMin, 9.5000, 1, 1.0},
	{features.MetTableRowsSum, 36922332.0000, 1, 1.0},
	{features.MetWhereTermsEst, 17.5000, -1, 1.0},
}

var jnCEB = []MetricRule{
	{features.MetAndCount, 19.5000, -1, 1.2},
	{features.MetHasBetween, 0.0150, 1, 1.0},
	{features.MetHasCase, 0.0040, -1, 0.8},
	{features.MetHasGroupBy, 0.3000, -1, 1.1},
	{features.MetHasLike, 0.0080, -1, 0.9},
	{features.MetHasOrderBy, 0.1500, -1, 1.1},
	{features.MetTableCountEst, 10.0000, -1, 1.3},
	{features.MetTableIndexSum, 17.5000, -1, 1.0},
	{features.MetTableMentionedCount, 8.8000, -1, 1.2},
	{features.MetTableRowsMax, 33000000.0000, 1, 1.0},
	{features.MetTableRowsMean, 6200000.0000, -1, 1.0},
	{features.MetTableRowsMin, 7.0000, 1, 0.9},
	{features.MetTableRowsSum, 55000000.0000, -1, 1.1},
	{features.MetWhereTermsEst, 21.0000, -1, 1.2},
}

var jnStack = []MetricRule{
	{features.MetAndCount, 14.7500, -1, 1.0},
	{features.MetHasCase, 0.0162, 1, 1.0},
	{features.MetHasExists, 0.1614, 1, 1.0},
	{features.MetHasGroupBy, 0.2115, 1, 1.0},
	{features.MetHasIn, 0.5347, -1, 1.0},
	{features.MetJoinCount, 0.0000, 1, 1.0},
	{features.MetSubqueryCount, 0.0000, 1, 1.0},
	{features.MetTableCountEst, 6.5000, -1, 1.0},
	{features.MetTableIndexSum, 12.0000, -1, 1.0},
	{features.MetTableMentionedCount, 5.5000, -1, 1.0},
	{features.MetTableRowsMax, 47648632.0000, 1, 1.0},
	{features.MetTableRowsMean, 17686295.7530, 1, 1.0},
	{features.MetTableRowsMin, 173.0000, 1, 1.0},
	{features.MetTableRowsSum, 105854723.5000, 1, 1.0},
	{features.MetWhereTermsEst, 15.7500, -1, 1.0},
}

var jnTPCDS = []MetricRule{
	{features.MetAggFuncCount, 3.0000, 1, 1.0},
	{features.MetAndCount, 6.2500, 1, 1.0},
	{features.MetHasHaving, 0.0645, -1, 1.0},
	{features.MetHasLike, 0.0075, -1, 1.0},
	{features.MetHasOrderBy, 0.9165, 1, 1.0},
	{features.MetJoinCount, 0.0000, 1, 1.0},
	{features.MetOrCount, 0.0000, 1, 1.0},
	{features.MetSubqueryCount, 1.2500, -1, 1.0},
	{features.MetTableIndexSum, 24.7500, -1, 1.0},
	{features.MetTableRowsMax, 28800991.0000, 1, 1.0},
	{features.MetTableRowsMean, 8856478.4583, -1, 1.0},
	{features.MetTableRowsMin, 87524.5000, -1, 1.0},
	{features.MetTableRowsSum, 28914041.0000, -1, 1.0},
	{features.MetWhereTermsEst, 7.5000, 1, 1.0},
	{features.MetWindowFuncCount, 0.0000, 1, 1.0},
}

var ruleTables = map[strategy.Pass]map[workload.Kind][]MetricRule{
	strategy.PassCE: {
		workload.JOB: ceJOB, workload.CEB: ceCEB,
		workload.Stack: ceStack, workload.TPCDS: ceTPCDS,
	},
	strategy.PassCM: {
		workload.JOB: cmJOB, workload.CEB: cmCEB,
		workload.Stack: cmStack, workload.TPCDS: cmTPCDS,
	},
	strategy.PassJN: {
		workload.JOB: jnJOB, workload.CEB: jnCEB,
		workload.Stack: jnStack, workload.TPCDS: jnTPCDS,
	},
}

// Activation thresholds per (pass, workload): a score at or above the
// threshold enables the pass. 0 always enables, 1 effectively requires a
// unanimous rule vote.
var activation = map[strategy.Pass]map[workload.Kind]float64{
	strategy.PassCE: {workload.JOB: 0.55, workload.CEB: 0.80, workload.Stack: 1.00, workload.TPCDS: 0.00},
	strategy.PassCM: {workload.JOB: 0.55, workload.CEB: 0.65, workload.Stack: 0.00, workload.TPCDS: 1.00},
	strategy.PassJN: {workload.JOB: 0.65, workload.CEB: 0.75, workload.Stack: 1.00, workload.TPCDS: 0.00},
}

// Rules returns the fitted rule table for one (pass, workload) pair.
func Rules(p strategy.Pass, k workload.Kind) []MetricRule {
	return ruleTables[p][k]
}

// Threshold returns the activation threshold for one (pass, workload) pair.
func Threshold(p strategy.Pass, k workload.Kind) float64 {
	m, ok := activation[p]
	if !ok {
		return 1
	}
	return m[k]
}
