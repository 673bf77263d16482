package cache

import (
	"log"
	"math/rand"
	"sort"
	"sync"
	"time"

	"optsel/pkg/strategy"
)

const (
	// MaxBuckets bounds the number of distinct query fingerprints held
	// in memory at once.
	MaxBuckets = 256
	// SlotCapacity bounds how many alternative pass combinations a
	// single bucket can remember.
	SlotCapacity = 8
)

// Slot is one observed outcome for a fingerprint: which combination was
// applied and the latency it produced.
type Slot struct {
	Version uint8
	Latency float64
	SimHash uint32
	Combo   strategy.Combination
}

type bucket struct {
	hash  uint32
	slots []Slot
}

func (b *bucket) hasCombo(cb strategy.Combination) bool {
	for _, s := range b.slots {
		if s.Combo == cb {
			return true
		}
	}
	return false
}

func (b *bucket) full() bool {
	return len(b.slots) >= SlotCapacity
}

// insert appends a slot and restores the bucket order: lowest latency
// first, then lowest version. Slot 0 is always the best known outcome.
func (b *bucket) insert(s Slot) {
	if b.full() {
		return
	}
	b.slots = append(b.slots, s)
	sort.SliceStable(b.slots, func(i, j int) bool {
		if b.slots[i].Latency != b.slots[j].Latency {
			return b.slots[i].Latency < b.slots[j].Latency
		}
		return b.slots[i].Version < b.slots[j].Version
	})
}

// Options configures a decision cache.
type Options struct {
	// Path is the CSV file holding the persisted cache.
	Path string
	// SourcePath and QueryDir drive bootstrap seeding when Path does
	// not exist yet: SourcePath is a benchmark result CSV whose rows
	// name a query file (relative to QueryDir) and a winning label.
	SourcePath string
	QueryDir   string
	// Populating enables exploration and persistence of new outcomes.
	Populating bool
	// Rand supplies the exploration randomness. Nil means time-seeded.
	Rand *rand.Rand
}

// Cache maps query fingerprints to remembered pass combinations. Misses
// during population are answered by nearest-neighbor votes over the
// similarity hashes of everything seen so far.
type Cache struct {
	mu   sync.RWMutex
	opts Options
	rng  *rand.Rand

	buckets map[uint32]*bucket
	order   []uint32

	index   *simIndex
	filter  *fingerprintFilter
	journal *feedbackJournal
	store   *sqliteStore

	loaded   bool
	degraded bool
	dirty    bool
}

func New(opts Options) *Cache {
	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Cache{
		opts:    opts,
		rng:     rng,
		buckets: make(map[uint32]*bucket),
		index:   newSimIndex(),
		filter:  newFingerprintFilter(MaxBuckets * SlotCapacity),
	}
}

func (c *Cache) getOrCreate(hash uint32) *bucket {
	if b, ok := c.buckets[hash]; ok {
		return b
	}
	if len(c.order) >= MaxBuckets {
		return nil
	}
	b := &bucket{hash: hash}
	c.buckets[hash] = b
	c.order = append(c.order, hash)
	return b
}

// addSlot inserts a slot into the bucket and keeps the similarity index
// and fingerprint filter in step. Callers hold the write lock.
func (c *Cache) addSlot(b *bucket, s Slot) {
	b.insert(s)
	c.index.insert(b.hash, s.SimHash, s.Combo)
	c.filter.Add(b.hash)
}

func (c *Cache) randomCombo() strategy.Combination {
	return strategy.Combination(c.rng.Intn(strategy.NumCombinations))
}

// randomComboNotIn picks uniformly among combinations the bucket has
// not tried yet, falling back to fully random when all eight are taken.
func (c *Cache) randomComboNotIn(b *bucket) strategy.Combination {
	var used [strategy.NumCombinations]bool
	if b != nil {
		for _, s := range b.slots {
			used[s.Combo&7] = true
		}
	}
	avail := make([]strategy.Combination, 0, strategy.NumCombinations)
	for i := 0; i < strategy.NumCombinations; i++ {
		if !used[i] {
			avail = append(avail, strategy.Combination(i))
		}
	}
	if len(avail) == 0 {
		return c.randomCombo()
	}
	return avail[c.rng.Intn(len(avail))]
}

// vote tallies combination votes and returns the most common one, ties
// broken uniformly at random. When avoidDuplicates is set, combinations
// the bucket already holds are ineligible; if that leaves no candidate
// the result is a random untried combination.
func (c *Cache) vote(votes []Slot, b *bucket, avoidDuplicates bool) strategy.Combination {
	var counts [strategy.NumCombinations]int
	for _, s := range votes {
		counts[s.Combo&7]++
	}
	max := -1
	var candidates []strategy.Combination
	for i := 0; i < strategy.NumCombinations; i++ {
		cb := strategy.Combination(i)
		if avoidDuplicates && b != nil && b.hasCombo(cb) {
			continue
		}
		if counts[i] > max {
			max = counts[i]
			candidates = candidates[:0]
			candidates = append(candidates, cb)
		} else if counts[i] == max {
			candidates = append(candidates, cb)
		}
	}
	if len(candidates) == 0 {
		return c.randomComboNotIn(b)
	}
	return candidates[c.rng.Intn(len(candidates))]
}

func hashDistance(a, b uint32) uint32 {
	if a >= b {
		return a - b
	}
	return b - a
}

// nearestInBucket returns up to k slots of the bucket closest to sh by
// similarity-hash distance, never including slot 0 (the best outcome
// votes separately).
func nearestInBucket(b *bucket, sh uint32, k int) []Slot {
	if b == nil || k <= 0 {
		return nil
	}
	if k > 3 {
		k = 3
	}
	type cand struct {
		dist uint32
		slot Slot
	}
	var cands []cand
	for i, s := range b.slots {
		if i == 0 {
			continue
		}
		cands = append(cands, cand{hashDistance(sh, s.SimHash), s})
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	if len(cands) > k {
		cands = cands[:k]
	}
	out := make([]Slot, len(cands))
	for i, cd := range cands {
		out[i] = cd.slot
	}
	return out
}

// proposeInitial answers a miss on a brand-new fingerprint: the three
// globally nearest slots by similarity hash vote on a combination. An
// empty cache yields a uniformly random one.
func (c *Cache) proposeInitial(sh uint32) strategy.Combination {
	neighbors := c.index.nearest(sh, 3)
	return c.vote(neighbors, nil, false)
}

// proposeBiased answers a repeat miss on a partially filled bucket. The
// current best slot always votes; once the bucket holds more than four
// outcomes the neighbor vote narrows from three to one. Combinations
// already tried are excluded, which steers exploration toward untried
// ones until the bucket fills.
func (c *Cache) proposeBiased(b *bucket, sh uint32) strategy.Combination {
	k := 3
	if len(b.slots) > 4 {
		k = 1
	}
	votes := make([]Slot, 0, 4)
	if len(b.slots) > 0 {
		votes = append(votes, b.slots[0])
	}
	votes = append(votes, nearestInBucket(b, sh, k)...)
	return c.vote(votes, b, true)
}

// Lookup resolves a query fingerprint to a pass combination. The second
// result reports whether the caller should feed the observed latency
// back via Record, the third whether the cache produced an answer at
// all. A (0, 0) hash pair never matches.
func (c *Cache) Lookup(fp, sh uint32) (strategy.Combination, bool, bool) {
	if fp == 0 && sh == 0 {
		return strategy.None, false, false
	}
	c.ensureLoaded()

	if !c.opts.Populating {
		c.mu.RLock()
		defer c.mu.RUnlock()
		if c.degraded {
			return strategy.None, false, false
		}
		if !c.filter.MayContain(fp) {
			return strategy.None, false, false
		}
		b := c.buckets[fp]
		if b == nil || len(b.slots) == 0 {
			return strategy.None, false, false
		}
		return b.slots[0].Combo, false, true
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded {
		return strategy.None, false, false
	}
	b := c.buckets[fp]
	if b == nil || len(b.slots) == 0 {
		if b == nil {
			if b = c.getOrCreate(fp); b == nil {
				return strategy.None, false, false
			}
		}
		return c.proposeInitial(sh), true, true
	}
	if b.full() {
		return b.slots[0].Combo, false, true
	}
	return c.proposeBiased(b, sh), true, true
}

// recordLocked inserts one outcome, keeping index and filter in step.
// Duplicate combinations and full buckets are ignored. Callers hold the
// write lock.
func (c *Cache) recordLocked(fp, sh uint32, cb strategy.Combination, latencyMS float64) (Slot, bool) {
	b := c.getOrCreate(fp)
	if b == nil {
		return Slot{}, false
	}
	if b.full() || b.hasCombo(cb&7) {
		return Slot{}, false
	}
	s := Slot{
		Version: uint8(len(b.slots)),
		Latency: latencyMS,
		SimHash: sh,
		Combo:   cb & 7,
	}
	c.addSlot(b, s)
	return s, true
}

// Record stores an observed latency for a combination proposed by
// Lookup. Duplicate combinations and full buckets are ignored.
func (c *Cache) Record(fp, sh uint32, cb strategy.Combination, latencyMS float64) {
	c.ensureLoaded()
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.degraded {
		return
	}
	s, ok := c.recordLocked(fp, sh, cb, latencyMS)
	if !ok {
		return
	}
	c.dirty = true
	if c.journal != nil {
		if err := c.journal.append(fp, sh, uint8(s.Combo), latencyMS); err != nil {
			log.Printf("[Cache] journal append failed: %v", err)
		}
	}
	if c.store != nil {
		if err := c.store.upsert(fp, s); err != nil {
			log.Printf("[Cache] store upsert failed: %v", err)
		}
	}
}

// Len returns the number of buckets currently held.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.order)
}

// Snapshot returns a copy of every bucket keyed by fingerprint, in no
// particular slot order beyond the bucket invariant.
func (c *Cache) Snapshot() map[uint32][]Slot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[uint32][]Slot, len(c.buckets))
	for h, b := range c.buckets {
		slots := make([]Slot, len(b.slots))
		copy(slots, b.slots)
		out[h] = slots
	}
	return out
}

// Clear drops all in-memory state. The next Lookup reloads from disk.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buckets = make(map[uint32]*bucket)
	c.order = nil
	c.index = newSimIndex()
	c.filter = newFingerprintFilter(MaxBuckets * SlotCapacity)
	c.loaded = false
	c.degraded = false
	c.dirty = false
}

// Close flushes the cache to disk when populating and releases the
// journal and any attached store.
func (c *Cache) Close() error {
	var err error
	if c.opts.Populating {
		err = c.Flush()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.journal != nil {
		if jerr := c.journal.close(); err == nil {
			err = jerr
		}
		c.journal = nil
	}
	if c.store != nil {
		if serr := c.store.close(); err == nil {
			err = serr
		}
		c.store = nil
	}
	return err
}
