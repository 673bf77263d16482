package cache

import (
	"sort"

	"github.com/google/btree"

	"optsel/pkg/strategy"
)

// slotKey identifies one cached outcome inside the global similarity
// index. Ordering is by similarity hash first so that hash-distance
// neighbors are tree neighbors.
type slotKey struct {
	sh uint32
	fp uint32
	cb strategy.Combination
}

func slotKeyLess(a, b slotKey) bool {
	if a.sh != b.sh {
		return a.sh < b.sh
	}
	if a.fp != b.fp {
		return a.fp < b.fp
	}
	return a.cb < b.cb
}

// simIndex answers k-nearest-neighbor queries over every slot in the
// cache, keyed by similarity hash. A B-tree keeps neighbors adjacent so
// a query walks a few keys in each direction instead of scanning all
// buckets.
type simIndex struct {
	tree *btree.BTreeG[slotKey]
}

func newSimIndex() *simIndex {
	return &simIndex{tree: btree.NewG(8, slotKeyLess)}
}

func (ix *simIndex) insert(fp, sh uint32, cb strategy.Combination) {
	ix.tree.ReplaceOrInsert(slotKey{sh: sh, fp: fp, cb: cb})
}

// nearest returns up to k slots closest to sh by absolute hash
// distance, as vote-ready slots.
func (ix *simIndex) nearest(sh uint32, k int) []Slot {
	if k <= 0 || ix.tree.Len() == 0 {
		return nil
	}
	pivot := slotKey{sh: sh}

	var cands []slotKey
	n := 0
	ix.tree.AscendGreaterOrEqual(pivot, func(it slotKey) bool {
		cands = append(cands, it)
		n++
		return n < k
	})
	n = 0
	ix.tree.DescendLessOrEqual(pivot, func(it slotKey) bool {
		// The pivot's own key range overlaps the ascend pass.
		if it.sh == sh {
			for _, c := range cands {
				if c == it {
					return true
				}
			}
		}
		cands = append(cands, it)
		n++
		return n < k
	})

	sort.SliceStable(cands, func(i, j int) bool {
		return hashDistance(sh, cands[i].sh) < hashDistance(sh, cands[j].sh)
	})
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]Slot, len(cands))
	for i, c := range cands {
		out[i] = Slot{SimHash: c.sh, Combo: c.cb}
	}
	return out
}
