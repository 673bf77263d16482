// Package features turns query text (and, when available, a structured
// query representation) into the numeric vector the rule scorer consumes.
package features

// QueryFeatures is the per-query metric vector. It is created fresh for each
// query, read-only afterward, and discarded once the decision is made.
type QueryFeatures struct {
	JoinCount     int
	SubqueryCount int

	HasGroupBy  bool
	HasOrderBy  bool
	HasHaving   bool
	HasDistinct bool
	HasLimit    bool
	HasUnion    bool
	HasExists   bool
	HasIn       bool
	HasLike     bool
	HasBetween  bool
	HasCase     bool

	AggFuncCount    int
	WindowFuncCount int

	TableCountEst int
	WhereTermsEst int
	AndCount      int
	OrCount       int
	ORRatio       float64

	TableMentionedCount int
	TableRowsSum        float64
	TableRowsMean       float64
	TableRowsMax        float64
	TableRowsMin        float64
	TableIndexSum       float64
	TableIndexMean      float64
	PctTablesWithIndex  float64

	// Filled only by the structured path.
	NumRelations       int
	EstimatedTotalRows float64
	MaxRelRows         float64
	SmallRelCount      int
	LargeRelCount      int
	IndexedRelCount    int
	IndexTotalCount    int
	AvgIndexPerRel     float64
	NumQuals           int
}

// Metric names one entry of the feature vector for rule tables.
type Metric int

const (
	MetJoinCount Metric = iota
	MetSubqueryCount
	MetHasGroupBy
	MetHasOrderBy
	MetHasHaving
	MetHasDistinct
	MetHasLimit
	MetHasUnion
	MetHasExists
	MetHasIn
	MetHasLike
	MetHasBetween
	MetHasCase
	MetAggFuncCount
	MetWindowFuncCount
	MetTableCountEst
	MetWhereTermsEst
	MetOrCount
	MetAndCount
	MetORRatio
	MetTableMentionedCount
	MetTableRowsSum
	MetTableRowsMean
	MetTableRowsMax
	MetTableRowsMin
	MetTableIndexSum
	MetTableIndexMean
	MetPctTablesWithIndex
)

func b2f(v bool) float64 {
	if v {
		return 1
	}
	return 0
}

// Value resolves a metric against the vector.
func (f *QueryFeatures) Value(m Metric) float64 {
	switch m {
	case MetJoinCount:
		return float64(f.JoinCount)
	case MetSubqueryCount:
		return float64(f.SubqueryCount)
	case MetHasGroupBy:
		return b2f(f.HasGroupBy)
	case MetHasOrderBy:
		return b2f(f.HasOrderBy)
	case MetHasHaving:
		return b2f(f.HasHaving)
	case MetHasDistinct:
		return b2f(f.HasDistinct)
	case MetHasLimit:
		return b2f(f.HasLimit)
	case MetHasUnion:
		return b2f(f.HasUnion)
	case MetHasExists:
		return b2f(f.HasExists)
	case MetHasIn:
		return b2f(f.HasIn)
	case MetHasLike:
		return b2f(f.HasLike)
	case MetHasBetween:
		return b2f(f.HasBetween)
	case MetHasCase:
		return b2f(f.HasCase)
	case MetAggFuncCount:
		return float64(f.AggFuncCount)
	case MetWindowFuncCount:
		return float64(f.WindowFuncCount)
	case MetTableCountEst:
		return float64(f.TableCountEst)
	case MetWhereTermsEst:
		return float64(f.WhereTermsEst)
	case MetOrCount:
		return float64(f.OrCount)
	case MetAndCount:
		return float64(f.AndCount)
	case MetORRatio:
		return f.ORRatio
	case MetTableMentionedCount:
		return float64(f.TableMentionedCount)
	case MetTableRowsSum:
		return f.TableRowsSum
	case MetTableRowsMean:
		return f.TableRowsMean
	case MetTableRowsMax:
		return f.TableRowsMax
	case MetTableRowsMin:
		return f.TableRowsMin
	case MetTableIndexSum:
		return f.TableIndexSum
	case MetTableIndexMean:
		return f.TableIndexMean
	case MetPctTablesWithIndex:
		return f.PctTablesWithIndex
	}
	return 0
}

// Trivial reports whether the query touches nothing the selector knows
// about: no recognized table, no estimated table, no join. Such queries
// short-circuit to the all-disabled combination.
func (f *QueryFeatures) Trivial() bool {
	return f.TableMentionedCount == 0 && f.TableCountEst == 0 && f.JoinCount == 0
}
