package cache

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"optsel/pkg/sqltext"
	"optsel/pkg/strategy"
)

func newMemCache(seed int64) *Cache {
	return New(Options{Populating: true, Rand: rand.New(rand.NewSource(seed))})
}

func TestLookupRejectsEmptyHashes(t *testing.T) {
	c := newMemCache(1)
	if _, _, ok := c.Lookup(0, 0); ok {
		t.Errorf("expected miss for zero hash pair")
	}
}

func TestColdStartProposalsCoverAllCombinations(t *testing.T) {
	fp, sh := sqltext.Hashes("SELECT * FROM title WHERE id = 1")
	counts := make(map[strategy.Combination]int)
	const trials = 400
	for seed := int64(0); seed < trials; seed++ {
		c := newMemCache(seed)
		cb, record, ok := c.Lookup(fp, sh)
		if !ok {
			t.Fatalf("seed %d: expected cache answer while populating", seed)
		}
		if !record {
			t.Fatalf("seed %d: first proposal should ask for feedback", seed)
		}
		counts[cb]++
	}
	for i := 0; i < strategy.NumCombinations; i++ {
		cb := strategy.Combination(i)
		if counts[cb] < trials/20 {
			t.Errorf("combination %s proposed only %d/%d times, want a roughly uniform spread",
				cb, counts[cb], trials)
		}
	}
}

func TestExplorationTriesEveryCombinationOnce(t *testing.T) {
	c := newMemCache(7)
	fp, sh := sqltext.Hashes("SELECT count(*) FROM movie_info")

	seen := make(map[strategy.Combination]bool)
	for i := 0; i < strategy.NumCombinations; i++ {
		cb, record, ok := c.Lookup(fp, sh)
		if !ok || !record {
			t.Fatalf("round %d: want exploring answer, got ok=%v record=%v", i, ok, record)
		}
		if seen[cb] {
			t.Fatalf("round %d: combination %s proposed twice before bucket filled", i, cb)
		}
		seen[cb] = true
		c.Record(fp, sh, cb, float64(100-i))
	}

	// Bucket is full now: lookups exploit the best latency and stop
	// asking for feedback.
	cb, record, ok := c.Lookup(fp, sh)
	if !ok || record {
		t.Fatalf("full bucket: want exploiting answer, got ok=%v record=%v", ok, record)
	}
	slots := c.Snapshot()[fp]
	if len(slots) != strategy.NumCombinations {
		t.Fatalf("bucket has %d slots, want %d", len(slots), strategy.NumCombinations)
	}
	if cb != slots[0].Combo || slots[0].Latency != 93 {
		t.Errorf("full bucket returned %s, want the latency-93 combination %s", cb, slots[0].Combo)
	}
}

func TestRecordIgnoresDuplicatesAndFullBuckets(t *testing.T) {
	c := newMemCache(3)
	fp, sh := uint32(42), uint32(99)

	c.Record(fp, sh, strategy.Combination(5), 10)
	c.Record(fp, sh, strategy.Combination(5), 1)
	if got := len(c.Snapshot()[fp]); got != 1 {
		t.Fatalf("duplicate combination recorded, bucket has %d slots", got)
	}

	for i := 0; i < strategy.NumCombinations; i++ {
		c.Record(fp, sh, strategy.Combination(i), float64(20+i))
	}
	c.Record(fp, sh, strategy.Combination(0), 0.5)
	slots := c.Snapshot()[fp]
	if len(slots) != SlotCapacity {
		t.Fatalf("bucket has %d slots, want capacity %d", len(slots), SlotCapacity)
	}
	if slots[0].Latency != 10 {
		t.Errorf("full bucket accepted another slot, best latency %v", slots[0].Latency)
	}
}

func TestZeroLatencySeedSortsFirst(t *testing.T) {
	c := newMemCache(4)
	c.Record(7, 7, strategy.Combination(1), 35.5)
	c.Record(7, 7, strategy.Combination(2), 0)
	c.Record(7, 7, strategy.Combination(3), 12.25)

	slots := c.Snapshot()[7]
	if slots[0].Combo != strategy.Combination(2) {
		t.Errorf("slot 0 is %s with latency %v, want the zero-latency seed",
			slots[0].Combo, slots[0].Latency)
	}
}

func TestBucketCapBounded(t *testing.T) {
	c := newMemCache(5)
	for fp := uint32(1); fp <= MaxBuckets+50; fp++ {
		c.Record(fp, fp, strategy.CE, 1)
	}
	if got := c.Len(); got != MaxBuckets {
		t.Errorf("cache holds %d buckets, want cap %d", got, MaxBuckets)
	}
}

func TestCSVRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	if err := os.WriteFile(path, []byte(csvHeader+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	src := New(Options{Path: path, Populating: true, Rand: rand.New(rand.NewSource(11))})
	src.Record(100, 200, strategy.CE, 5.125)
	src.Record(100, 201, strategy.Combination(6), 2.5)
	src.Record(300, 400, strategy.None, 9)
	if err := src.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	dst := New(Options{Path: path})
	if _, _, ok := dst.Lookup(100, 0); !ok {
		t.Fatalf("reloaded cache missed a flushed fingerprint")
	}
	if diff := cmp.Diff(src.Snapshot(), dst.Snapshot()); diff != "" {
		t.Errorf("round trip mismatch (-flushed +reloaded):\n%s", diff)
	}
}

func TestNonPopulatingLookupNeverExplores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	csv := csvHeader + "\n" +
		"100,0,4.000,200,3\n" +
		"100,1,9.000,201,5\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(Options{Path: path})
	cb, record, ok := c.Lookup(100, 777)
	if !ok {
		t.Fatalf("expected hit for known fingerprint")
	}
	if record {
		t.Errorf("read-only cache asked for feedback")
	}
	if cb != strategy.Combination(3) {
		t.Errorf("got %s, want best slot combination CE+CM", cb)
	}
	if _, _, ok := c.Lookup(12345, 1); ok {
		t.Errorf("expected miss for unknown fingerprint")
	}
}

func TestLegacyTwoColumnCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	csv := "hash,best\n555,CE+JN\n556,BASELINE\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(Options{Path: path})
	if cb, _, ok := c.Lookup(555, 1); !ok || cb != strategy.Combination(5) {
		t.Errorf("legacy row: got (%v, %v), want CE+JN hit", cb, ok)
	}
	if cb, _, ok := c.Lookup(556, 1); !ok || cb != strategy.None {
		t.Errorf("legacy baseline row: got (%v, %v), want NONE hit", cb, ok)
	}
}

func TestMalformedRowsSkipped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	csv := csvHeader + "\n" +
		"notanumber,0,1.0,2,3\n" +
		"\n" +
		"42,xx,1.0,2,3\n" +
		"42,0,1.000,2,ALL\n"
	if err := os.WriteFile(path, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(Options{Path: path})
	cb, _, ok := c.Lookup(42, 0)
	if !ok || cb != strategy.Combination(7) {
		t.Errorf("got (%v, %v), want the one well-formed ALL row", cb, ok)
	}
	if c.Len() != 1 {
		t.Errorf("cache holds %d buckets, want 1", c.Len())
	}
}

func TestBootstrapFromBenchmarkResults(t *testing.T) {
	dir := t.TempDir()
	queryDir := filepath.Join(dir, "queries")
	if err := os.Mkdir(queryDir, 0755); err != nil {
		t.Fatal(err)
	}
	query := "SELECT t.title FROM title t WHERE t.production_year > 2000"
	if err := os.WriteFile(filepath.Join(queryDir, "1a.sql"), []byte(query), 0644); err != nil {
		t.Fatal(err)
	}
	source := filepath.Join(dir, "results.csv")
	rows := "id,sql_file,best\n1,1a.sql_round1,CE+CM\n2,missing.sql,JN\n"
	if err := os.WriteFile(source, []byte(rows), 0644); err != nil {
		t.Fatal(err)
	}

	cachePath := filepath.Join(dir, "cache.csv")
	c := New(Options{Path: cachePath, SourcePath: source, QueryDir: queryDir})

	fp, _ := sqltext.Hashes(query)
	cb, _, ok := c.Lookup(fp, 0)
	if !ok || cb != strategy.Combination(3) {
		t.Fatalf("bootstrap lookup: got (%v, %v), want CE+CM hit", cb, ok)
	}
	if c.Len() != 1 {
		t.Errorf("cache holds %d buckets, want 1 (missing query file skipped)", c.Len())
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Errorf("bootstrap did not write the cache file: %v", err)
	}
}

func TestDegradedWithoutCacheOrSource(t *testing.T) {
	dir := t.TempDir()
	c := New(Options{
		Path:       filepath.Join(dir, "missing.csv"),
		SourcePath: filepath.Join(dir, "missing-source.csv"),
		Populating: true,
		Rand:       rand.New(rand.NewSource(9)),
	})
	if _, _, ok := c.Lookup(1, 2); ok {
		t.Errorf("degraded cache answered a lookup")
	}
	c.Record(1, 2, strategy.CE, 1) // must not panic or persist
	if c.Len() != 0 {
		t.Errorf("degraded cache recorded feedback")
	}
}

func TestRelativePathFallsBackToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	csv := csvHeader + "\n9,0,1.000,9,1\n"
	if err := os.WriteFile(filepath.Join(home, "optsel-cache.csv"), []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}

	c := New(Options{Path: "optsel-cache.csv"})
	if cb, _, ok := c.Lookup(9, 0); !ok || cb != strategy.CE {
		t.Errorf("got (%v, %v), want CE hit via $HOME fallback", cb, ok)
	}
}

func TestJournalReplayAfterCrash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	if err := os.WriteFile(path, []byte(csvHeader+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	first := New(Options{Path: path, Populating: true, Rand: rand.New(rand.NewSource(21))})
	first.Record(100, 200, strategy.JN, 3.5)
	first.Record(100, 201, strategy.CE, 8)
	// No Flush: simulate a crash before the CSV was rewritten.

	second := New(Options{Path: path, Populating: true, Rand: rand.New(rand.NewSource(22))})
	if err := second.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	slots := second.Snapshot()[100]
	if len(slots) != 2 {
		t.Fatalf("replayed bucket has %d slots, want 2", len(slots))
	}
	if slots[0].Combo != strategy.JN || slots[0].Latency != 3.5 {
		t.Errorf("best slot after replay is %s latency %v, want JN latency 3.5",
			slots[0].Combo, slots[0].Latency)
	}

	// The flush moved everything into the CSV and truncated the
	// journal, so a clean reload sees the same state.
	third := New(Options{Path: path})
	if _, _, ok := third.Lookup(100, 0); !ok {
		t.Fatalf("reloaded cache missed the flushed fingerprint")
	}
	if diff := cmp.Diff(second.Snapshot(), third.Snapshot()); diff != "" {
		t.Errorf("state after flush mismatch (-replayed +reloaded):\n%s", diff)
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")

	c := New(Options{Populating: true, Rand: rand.New(rand.NewSource(31))})
	if err := c.AttachSQLite(path); err != nil {
		t.Fatalf("attach: %v", err)
	}
	c.Record(700, 800, strategy.Combination(6), 4.5)
	c.Record(700, 801, strategy.CE, 1.25)
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened := New(Options{})
	if err := reopened.AttachSQLite(path); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	defer reopened.Close()
	cb, _, ok := reopened.Lookup(700, 0)
	if !ok || cb != strategy.CE {
		t.Errorf("got (%v, %v), want best combination CE from sqlite store", cb, ok)
	}
}
