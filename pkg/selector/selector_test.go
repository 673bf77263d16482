package selector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"optsel/pkg/config"
	"optsel/pkg/strategy"
)

type recordingSink struct {
	calls []strategy.Combination
	err   error
}

func (s *recordingSink) Apply(cb strategy.Combination) error {
	s.calls = append(s.calls, cb)
	return s.err
}

func testConfig(workload string) *config.Config {
	return &config.Config{
		Selector: config.SelectorConfig{
			Enabled:  true,
			Workload: workload,
		},
		Cache: config.CacheConfig{Enabled: false},
	}
}

func TestDisabledLeavesTogglesUntouched(t *testing.T) {
	cfg := testConfig("tpcds")
	cfg.Selector.Enabled = false
	sink := &recordingSink{}
	c, err := New(cfg, sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := c.Decide("SELECT * FROM store_sales", nil)
	if d.Combination != strategy.None || d.Origin != OriginDisabled {
		t.Errorf("got (%s, %s), want (NONE, disabled)", d.Combination, d.Origin)
	}
	if len(sink.calls) != 0 {
		t.Errorf("disabled selector applied %d toggles", len(sink.calls))
	}
}

func TestTrivialQueriesApplyAllOff(t *testing.T) {
	sink := &recordingSink{}
	c, err := New(testConfig("job"), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for _, q := range []string{"", "   ", "SELECT 1", "SELECT version()"} {
		d := c.Decide(q, nil)
		if d.Combination != strategy.None || d.Origin != OriginTrivial {
			t.Errorf("%q: got (%s, %s), want (NONE, trivial)", q, d.Combination, d.Origin)
		}
	}
	if len(sink.calls) != 4 {
		t.Fatalf("trivial decisions applied %d times, want 4", len(sink.calls))
	}
	for _, cb := range sink.calls {
		if cb != strategy.None {
			t.Errorf("trivial decision applied %s, want NONE", cb)
		}
	}
}

func TestRuleDecisionReachesSink(t *testing.T) {
	sink := &recordingSink{}
	c, err := New(testConfig("tpcds"), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := c.Decide("SELECT * FROM store_sales, date_dim WHERE ss_sold_date_sk = d_date_sk", nil)
	if d.Origin != OriginRules {
		t.Fatalf("origin %s, want rules", d.Origin)
	}
	// On TPC-DS the CE and JN activation thresholds are zero, so any
	// non-trivial query enables both.
	if !d.Combination.HasCE() || !d.Combination.HasJN() {
		t.Errorf("combination %s, want CE and JN enabled", d.Combination)
	}
	if len(sink.calls) != 1 || sink.calls[0] != d.Combination {
		t.Errorf("sink saw %v, want [%s]", sink.calls, d.Combination)
	}
	if c.Stats().RuleDecisions != 1 {
		t.Errorf("rule decision counter = %d, want 1", c.Stats().RuleDecisions)
	}
}

func TestSinkErrorFailsOpen(t *testing.T) {
	sink := &recordingSink{err: errors.New("extension not loaded")}
	c, err := New(testConfig("stack"), sink)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := c.Decide("SELECT * FROM posts p, users u WHERE p.owner_user_id = u.id", nil)
	if d.Origin != OriginRules {
		t.Errorf("sink failure changed the decision origin to %s", d.Origin)
	}
}

func TestCacheExploreThenExploit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	if err := os.WriteFile(path, []byte("hash,version,time,sh,cb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	query := "SELECT * FROM store_sales WHERE ss_item_sk = 5"

	cfg := testConfig("tpcds")
	cfg.Cache = config.CacheConfig{
		Enabled:    true,
		Populating: true,
		Path:       path,
		Storage:    "csv",
	}
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	d := c.Decide(query, nil)
	if d.Origin != OriginCacheExplore {
		t.Fatalf("origin %s, want cache-explore", d.Origin)
	}
	if d.Feedback == nil {
		t.Fatal("exploring decision carries no feedback handle")
	}
	d.Feedback.CompleteLatency(12.5)
	if c.Stats().FeedbackRecorded != 1 {
		t.Errorf("feedback counter = %d, want 1", c.Stats().FeedbackRecorded)
	}
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// A read-only selector over the flushed cache exploits the
	// recorded combination without asking for feedback.
	cfg2 := testConfig("tpcds")
	cfg2.Cache = config.CacheConfig{Enabled: true, Path: path, Storage: "csv"}
	c2, err := New(cfg2, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c2.Close()
	d2 := c2.Decide(query, nil)
	if d2.Origin != OriginCache {
		t.Fatalf("origin %s, want cache", d2.Origin)
	}
	if d2.Combination != d.Combination {
		t.Errorf("exploited %s, want the recorded %s", d2.Combination, d.Combination)
	}
	if d2.Feedback != nil {
		t.Error("cache hit should not carry a feedback handle")
	}
}

func TestFeedbackIsSingleUse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	if err := os.WriteFile(path, []byte("hash,version,time,sh,cb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig("job")
	cfg.Cache = config.CacheConfig{Enabled: true, Populating: true, Path: path, Storage: "csv"}
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	d := c.Decide("SELECT * FROM title WHERE production_year > 2000", nil)
	if d.Feedback == nil {
		t.Fatal("want a feedback handle")
	}
	d.Feedback.CompleteLatency(3)
	d.Feedback.CompleteLatency(4)
	d.Feedback.Complete()
	if got := c.Stats().FeedbackRecorded; got != 1 {
		t.Errorf("feedback recorded %d times, want 1", got)
	}

	// A discarded handle never records, even if completed later.
	d2 := c.Decide("SELECT * FROM movie_info WHERE info_type_id = 3", nil)
	if d2.Feedback == nil {
		t.Fatal("want a feedback handle")
	}
	d2.Feedback.Discard()
	d2.Feedback.CompleteLatency(9)
	if got := c.Stats().FeedbackRecorded; got != 1 {
		t.Errorf("discarded feedback still recorded, counter = %d", got)
	}
	if c.Stats().FeedbackDropped == 0 {
		t.Error("discard did not count as dropped")
	}

	// Complete without Start drops the measurement.
	d3 := c.Decide("SELECT * FROM cast_info WHERE role_id = 1", nil)
	if d3.Feedback == nil {
		t.Fatal("want a feedback handle")
	}
	d3.Feedback.Complete()
	if got := c.Stats().FeedbackRecorded; got != 1 {
		t.Errorf("unstarted Complete recorded, counter = %d", got)
	}
}

func TestStartCompleteRecordsElapsed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.csv")
	if err := os.WriteFile(path, []byte("hash,version,time,sh,cb\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := testConfig("ceb")
	cfg.Cache = config.CacheConfig{Enabled: true, Populating: true, Path: path, Storage: "csv"}
	c, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	d := c.Decide("SELECT * FROM title t, cast_info ci WHERE t.id = ci.movie_id", nil)
	if d.Feedback == nil {
		t.Fatal("want a feedback handle")
	}
	d.Feedback.Start()
	d.Feedback.Complete()
	if got := c.Stats().FeedbackRecorded; got != 1 {
		t.Errorf("feedback recorded %d times, want 1", got)
	}
}
