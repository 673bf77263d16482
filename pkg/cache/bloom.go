package cache

import (
	"hash/fnv"
	"math"
)

// fingerprintFilter is a bloom filter over query fingerprints. It lets
// a read-only lookup reject unknown queries without touching the bucket
// map. False positive rate is fixed at 1%.
type fingerprintFilter struct {
	bitset []bool
	k      uint
	m      uint
	count  uint
}

func newFingerprintFilter(n uint) *fingerprintFilter {
	// m = -(n * ln(p)) / (ln(2)^2)
	// k = (m / n) * ln(2)
	const p = 0.01
	m := uint(math.Ceil(-float64(n) * math.Log(p) / (math.Ln2 * math.Ln2)))
	k := uint(math.Ceil((float64(m) / float64(n)) * math.Ln2))
	return &fingerprintFilter{
		bitset: make([]bool, m),
		k:      k,
		m:      m,
	}
}

func (f *fingerprintFilter) Add(fp uint32) {
	h1 := filterHash1(fp)
	h2 := filterHash2(fp)
	for i := uint(0); i < f.k; i++ {
		pos := (h1 + uint32(i)*h2) % uint32(f.m)
		f.bitset[pos] = true
	}
	f.count++
}

func (f *fingerprintFilter) MayContain(fp uint32) bool {
	h1 := filterHash1(fp)
	h2 := filterHash2(fp)
	for i := uint(0); i < f.k; i++ {
		pos := (h1 + uint32(i)*h2) % uint32(f.m)
		if !f.bitset[pos] {
			return false
		}
	}
	return true
}

func filterHash1(fp uint32) uint32 {
	h := fnv.New32a()
	h.Write([]byte{byte(fp), byte(fp >> 8), byte(fp >> 16), byte(fp >> 24)})
	return h.Sum32()
}

func filterHash2(fp uint32) uint32 {
	return fp ^ (fp >> 16) | 1
}
