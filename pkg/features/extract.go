package features

import (
	"strings"

	"optsel/pkg/sqltext"
	"optsel/pkg/workload"
)

var fromStopTokens = []string{
	"where", "group", "order", "having", "limit", "union", "intersect", "except",
}

var whereStopTokens = []string{
	"group", "order", "having", "limit", "union", "intersect", "except",
}

var aggFuncNames = []string{"sum", "avg", "min", "max", "count"}

// Extractor derives QueryFeatures from query text against one workload
// profile. It never fails: empty or unparseable input yields a zero vector.
type Extractor struct {
	profile *workload.Profile
}

func NewExtractor(p *workload.Profile) *Extractor {
	return &Extractor{profile: p}
}

// FromText runs the text-analysis path.
func (e *Extractor) FromText(query string) QueryFeatures {
	var f QueryFeatures
	if query == "" {
		return f
	}
	clean := sqltext.Sanitize(query)

	f.JoinCount = sqltext.CountKeyword(clean, "join")
	f.SubqueryCount = sqltext.CountSubqueries(clean)
	f.HasGroupBy = sqltext.HasKeywordPair(clean, "group", "by")
	f.HasOrderBy = sqltext.HasKeywordPair(clean, "order", "by")
	f.HasHaving = sqltext.ContainsKeyword(clean, "having")
	f.HasDistinct = sqltext.ContainsKeyword(clean, "distinct")
	f.HasLimit = sqltext.ContainsKeyword(clean, "limit")
	f.HasUnion = sqltext.ContainsKeyword(clean, "union")
	f.HasExists = sqltext.ContainsKeyword(clean, "exists")
	f.HasIn = sqltext.ContainsInOperator(clean)
	f.HasLike = sqltext.ContainsKeyword(clean, "like")
	f.HasBetween = sqltext.ContainsKeyword(clean, "between")
	f.HasCase = sqltext.ContainsKeyword(clean, "case")

	for _, name := range aggFuncNames {
		f.AggFuncCount += sqltext.CountFuncCalls(clean, name)
	}
	f.WindowFuncCount = sqltext.CountFuncCalls(clean, "over")

	e.scanFromClause(clean, &f)
	e.scanWhereClause(clean, &f)
	e.collectTableStats(clean, &f)
	return f
}

// scanFromClause estimates the joined-table count from the top-level FROM
// list: commas at parenthesis depth 0 plus join keywords plus one.
func (e *Extractor) scanFromClause(clean string, f *QueryFeatures) {
	from := sqltext.IndexKeyword(clean, "from")
	if from < 0 {
		return
	}
	from += len("from")
	stop := sqltext.IndexAnyKeyword(clean, from, fromStopTokens)
	if stop < 0 {
		stop = len(clean)
	}

	depth := 0
	commas := 0
	hasToken := false
	for i := from; i < stop; i++ {
		switch c := clean[i]; {
		case c == '(':
			depth++
		case c == ')' && depth > 0:
			depth--
		case depth > 0:
		case c == ',':
			commas++
			hasToken = true
		case c != ' ':
			hasToken = true
		}
	}
	if hasToken {
		f.TableCountEst = commas + f.JoinCount + 1
	}
}

// scanWhereClause counts boolean connectives within the top-level WHERE span
// only, deriving the term estimate and OR ratio.
func (e *Extractor) scanWhereClause(clean string, f *QueryFeatures) {
	where := sqltext.IndexKeyword(clean, "where")
	if where < 0 {
		return
	}
	where += len("where")
	stop := sqltext.IndexAnyKeyword(clean, where, whereStopTokens)
	if stop < 0 {
		stop = len(clean)
	}
	span := clean[where:stop]
	f.AndCount = sqltext.CountKeyword(span, "and")
	f.OrCount = sqltext.CountKeyword(span, "or")
	f.WhereTermsEst = f.AndCount + f.OrCount + 1
	if f.AndCount+f.OrCount > 0 {
		f.ORRatio = float64(f.OrCount) / float64(f.AndCount+f.OrCount)
	}
}

// collectTableStats unions two table-recognition walks (top-level FROM list
// and a global from/join scan) and accumulates catalog statistics for each
// recognized table.
func (e *Extractor) collectTableStats(clean string, f *QueryFeatures) {
	if e.profile == nil || e.profile.TableCount == 0 {
		return
	}
	seen := make(map[string]bool)
	e.collectTopLevel(clean, seen)
	e.collectGlobal(clean, seen)

	withIndex := 0
	for _, t := range e.profile.Tables() {
		if !seen[t.Name] {
			continue
		}
		f.TableMentionedCount++
		f.TableRowsSum += t.Rows
		f.TableIndexSum += float64(t.Indexes)
		if t.Rows > f.TableRowsMax {
			f.TableRowsMax = t.Rows
		}
		if f.TableRowsMin == 0 || t.Rows < f.TableRowsMin {
			f.TableRowsMin = t.Rows
		}
		if t.Indexes > 0 {
			withIndex++
		}
	}
	if f.TableMentionedCount > 0 {
		n := float64(f.TableMentionedCount)
		f.TableRowsMean = f.TableRowsSum / n
		f.TableIndexMean = f.TableIndexSum / n
		f.PctTablesWithIndex = float64(withIndex) / n
	}
}

var (
	topLevelStop = map[string]bool{
		"where": true, "group": true, "order": true, "having": true,
		"limit": true, "union": true, "intersect": true, "except": true,
	}
	topLevelJoin = map[string]bool{
		"join": true, "inner": true, "left": true, "right": true,
		"full": true, "cross": true,
	}
	topLevelSkip = map[string]bool{
		"select": true, "on": true, "as": true,
	}
)

// collectTopLevel walks the depth-0 token stream of the FROM clause,
// marking catalog tables where a table name is expected (after FROM, JOIN
// or a comma).
func (e *Extractor) collectTopLevel(clean string, seen map[string]bool) {
	depth := 0
	inFrom := false
	expectTable := false
	var token strings.Builder

	flush := func() string {
		s := token.String()
		token.Reset()
		return s
	}

	handle := func(tok string) bool {
		if tok == "" {
			return false
		}
		if topLevelStop[tok] && inFrom {
			return true
		}
		if tok == "from" {
			inFrom = true
			expectTable = true
			return false
		}
		if !inFrom {
			return false
		}
		if topLevelJoin[tok] {
			if tok == "join" {
				expectTable = true
			}
			return false
		}
		if expectTable && !topLevelSkip[tok] {
			e.markIfKnown(tok, seen)
			expectTable = false
		}
		return false
	}

	for i := 0; i <= len(clean); i++ {
		var c byte
		if i < len(clean) {
			c = clean[i]
		}
		if c == '(' {
			depth++
			flush()
			continue
		}
		if c == ')' {
			if depth > 0 {
				depth--
			}
			flush()
			continue
		}
		if depth > 0 {
			continue
		}
		if c != 0 && (isTokenChar(c) || c == '.' || c == '"') {
			token.WriteByte(c)
			continue
		}
		if handle(flush()) {
			return
		}
		if c == ',' {
			expectTable = inFrom
		}
	}
}

// collectGlobal marks the table name following every from/join keyword
// anywhere in the text, catching tables in subqueries the top-level walk
// skips.
func (e *Extractor) collectGlobal(clean string, seen map[string]bool) {
	for i := 0; i < len(clean); i++ {
		var kw string
		if sqltext.MatchKeywordAt(clean, i, "from") {
			kw = "from"
		} else if sqltext.MatchKeywordAt(clean, i, "join") {
			kw = "join"
		} else {
			continue
		}
		j := i + len(kw)
		for j < len(clean) && clean[j] == ' ' {
			j++
		}
		if j < len(clean) && clean[j] == '(' {
			continue
		}
		start := j
		for j < len(clean) && (isTokenChar(clean[j]) || clean[j] == '.' || clean[j] == '"') {
			j++
		}
		if j > start {
			e.markIfKnown(clean[start:j], seen)
		}
		i = j
	}
}

func (e *Extractor) markIfKnown(token string, seen map[string]bool) {
	name := normalizeTableToken(token)
	if name == "" {
		return
	}
	if _, _, ok := e.profile.Lookup(name); ok {
		seen[name] = true
	}
}

// normalizeTableToken strips quoting and a schema qualifier, keeping only
// the bare relation name.
func normalizeTableToken(tok string) string {
	tok = strings.ReplaceAll(tok, `"`, "")
	if dot := strings.LastIndexByte(tok, '.'); dot >= 0 && dot+1 < len(tok) {
		tok = tok[dot+1:]
	}
	return tok
}

func isTokenChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}
