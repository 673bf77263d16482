package sqltext

import "testing"

func TestFingerprintIgnoresWhitespaceAndCase(t *testing.T) {
	base := Fingerprint("SELECT * FROM title WHERE id = 5")
	variants := []string{
		"select * from title where id = 5",
		"SELECT   *\n\tFROM title\nWHERE id = 5",
		"  SELECT * FROM title WHERE id = 5  ",
		"Select*From title Where id=5",
	}
	for _, q := range variants {
		if got := Fingerprint(q); got != base {
			t.Errorf("Fingerprint(%q) = %d, want %d", q, got, base)
		}
	}
}

func TestFingerprintDistinguishesQueries(t *testing.T) {
	a := Fingerprint("select * from title")
	b := Fingerprint("select * from name")
	if a == b {
		t.Fatal("distinct queries should not share a fingerprint")
	}
}

func TestSimilarityHashIgnoresLiterals(t *testing.T) {
	a := SimilarityHash("SELECT * FROM title WHERE name = 'alpha' -- first")
	b := SimilarityHash("SELECT * FROM title WHERE name = 'omega' /* second */")
	if a != b {
		t.Errorf("literal-only variants should share a similarity hash: %d vs %d", a, b)
	}
	c := SimilarityHash("SELECT * FROM name WHERE name = 'alpha'")
	if a == c {
		t.Error("structurally different queries should differ")
	}
}

func TestHashesEmpty(t *testing.T) {
	fp, sh := Hashes("")
	if fp != 0 || sh != 0 {
		t.Errorf("empty input: got (%d, %d), want (0, 0)", fp, sh)
	}
}

func TestStripExplainPrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT 1", "SELECT 1"},
		{"EXPLAIN SELECT 1", "SELECT 1"},
		{"explain analyze select 1", "select 1"},
		{"EXPLAIN (ANALYZE, BUFFERS) SELECT 1", "SELECT 1"},
		{"EXPLAIN VERBOSE COSTS SELECT 1", "SELECT 1"},
		{"  EXPLAIN  WITH x AS (SELECT 1) SELECT * FROM x", "WITH x AS (SELECT 1) SELECT * FROM x"},
		{"EXPLAIN UPDATE t SET a = 1", "UPDATE t SET a = 1"},
		{"EXPLAIN ANALYZE", "EXPLAIN ANALYZE"},
	}
	for _, tt := range tests {
		if got := StripExplainPrefix(tt.in); got != tt.want {
			t.Errorf("StripExplainPrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SELECT  *  FROM t", "select * from t"},
		{"select 'literal body' from t", "select from t"},
		{"select x -- trailing comment\nfrom t", "select x from t"},
		{"select /* block */ x from t", "select x from t"},
		{"select 'it''s quoted' from t", "select from t"},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestKeywordBoundaries(t *testing.T) {
	s := Sanitize("select joined_at from pre_join join t2 on a = b")
	if got := CountKeyword(s, "join"); got != 1 {
		t.Errorf("CountKeyword(join) = %d, want 1 (identifiers must not match)", got)
	}
	if !ContainsKeyword(s, "select") {
		t.Error("expected select keyword")
	}
	if ContainsKeyword(s, "pre") {
		t.Error("pre_join must not match keyword pre")
	}
}

func TestKeywordPairAndOperators(t *testing.T) {
	s := Sanitize("SELECT a, count(*) FROM t GROUP BY a HAVING count(*) > 1 ORDER BY a")
	if !HasKeywordPair(s, "group", "by") || !HasKeywordPair(s, "order", "by") {
		t.Error("expected group by / order by")
	}
	if HasKeywordPair(s, "group", "order") {
		t.Error("unexpected pair match")
	}
	if got := CountFuncCalls(s, "count"); got != 2 {
		t.Errorf("CountFuncCalls(count) = %d, want 2", got)
	}

	s = Sanitize("select * from t where a in (1, 2) and b = 3")
	if !ContainsInOperator(s) {
		t.Error("expected IN operator")
	}
	s = Sanitize("select inventory from t")
	if ContainsInOperator(s) {
		t.Error("identifier starting with in must not match")
	}
}

func TestCountSubqueries(t *testing.T) {
	s := Sanitize("select * from t where a in (select x from u) and exists ( select 1 from v )")
	if got := CountSubqueries(s); got != 2 {
		t.Errorf("CountSubqueries = %d, want 2", got)
	}
	if got := CountSubqueries(Sanitize("select * from t")); got != 0 {
		t.Errorf("CountSubqueries = %d, want 0", got)
	}
}
