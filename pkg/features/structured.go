package features

import "optsel/pkg/workload"

// StructuredQuery is the optional parsed representation a host engine can
// supply alongside raw text. Only base-relation names and the qualifier
// tree are consumed, read-only.
type StructuredQuery interface {
	// Relations returns the base relations joined by the query.
	Relations() []string
	// Qual returns the root of the qualifier expression tree, or nil.
	Qual() *QualNode
}

// QualKind classifies a qualifier tree node.
type QualKind int

const (
	QualAnd QualKind = iota
	QualOr
	// QualLeaf covers comparisons, function calls, null tests and other
	// predicate leaves.
	QualLeaf
)

// QualNode is one node of a qualifier expression tree.
type QualNode struct {
	Kind QualKind
	Args []*QualNode
}

// FromStructured refines a text-extracted vector with exact counts from the
// parsed representation: relation statistics looked up by name (unknown
// names are skipped) and qualifier counts from the tree instead of the text
// estimate.
func (e *Extractor) FromStructured(q StructuredQuery, f *QueryFeatures) {
	if q == nil {
		return
	}
	for _, name := range q.Relations() {
		f.NumRelations++
		rows, indexes, ok := e.lookup(name)
		if !ok {
			continue
		}
		if rows > 0 {
			f.EstimatedTotalRows += rows
			if rows > f.MaxRelRows {
				f.MaxRelRows = rows
			}
			if rows <= workload.SmallRows {
				f.SmallRelCount++
			}
			if rows >= workload.MediumRows {
				f.LargeRelCount++
			}
		}
		f.IndexTotalCount += indexes
		if indexes > 0 {
			f.IndexedRelCount++
		}
	}
	if f.NumRelations > 0 && f.IndexTotalCount > 0 {
		f.AvgIndexPerRel = float64(f.IndexTotalCount) / float64(f.NumRelations)
	}

	if root := q.Qual(); root != nil {
		quals, ands, ors := 0, 0, 0
		countQuals(root, &quals, &ands, &ors)
		f.NumQuals = quals
		f.AndCount = ands
		f.OrCount = ors
		f.WhereTermsEst = ands + ors + 1
		if ands+ors > 0 {
			f.ORRatio = float64(ors) / float64(ands+ors)
		} else {
			f.ORRatio = 0
		}
	}
}

func (e *Extractor) lookup(name string) (float64, int, bool) {
	if e.profile == nil {
		return 0, 0, false
	}
	return e.profile.Lookup(name)
}

func countQuals(n *QualNode, quals, ands, ors *int) {
	if n == nil {
		return
	}
	switch n.Kind {
	case QualAnd:
		*ands++
	case QualOr:
		*ors++
	case QualLeaf:
		*quals++
		return
	}
	for _, arg := range n.Args {
		countQuals(arg, quals, ands, ors)
	}
}
