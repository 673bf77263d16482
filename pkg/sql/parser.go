package sql

import (
	"errors"
	"strings"

	"optsel/pkg/features"
	"optsel/pkg/sqltext"
)

// Statement is the structural skeleton of a SELECT: which base
// relations it reads and the boolean shape of its WHERE clause. It
// plugs into the feature extractor's structured path, standing in for
// a host engine's parse tree when none is available.
type Statement struct {
	relations []string
	qual      *features.QualNode
}

func (s *Statement) Relations() []string      { return s.relations }
func (s *Statement) Qual() *features.QualNode { return s.qual }

var fromStop = map[string]bool{
	"where": true, "group": true, "order": true, "having": true,
	"limit": true, "offset": true, "union": true, "intersect": true,
	"except": true, "window": true, "for": true, "fetch": true,
}

var whereStop = map[string]bool{
	"group": true, "order": true, "limit": true, "offset": true,
	"having": true, "union": true, "intersect": true, "except": true,
	"window": true, "for": true, "fetch": true,
}

var joinPrefix = map[string]bool{
	"inner": true, "left": true, "right": true, "full": true,
	"outer": true, "cross": true, "natural": true, "lateral": true,
}

// Parse extracts relations and qualifier shape from a SELECT statement.
// Only the skeleton is parsed; expressions, projections and values are
// not interpreted.
func Parse(query string) (*Statement, error) {
	clean := sqltext.Sanitize(query)
	if clean == "" {
		return nil, errors.New("empty query")
	}
	toks := tokenize(clean)
	sel := indexToken(toks, 0, "select")
	if sel < 0 {
		return nil, errors.New("not a select statement")
	}

	stmt := &Statement{}
	from := topLevelIndex(toks, sel+1, "from")
	if from < 0 {
		return stmt, nil // SELECT without FROM: no relations, no quals
	}
	rest := stmt.parseFrom(toks, from+1)

	if rest < len(toks) && toks[rest] == "where" {
		end := rest + 1
		depth := 0
		for end < len(toks) {
			switch toks[end] {
			case "(":
				depth++
			case ")":
				depth--
			}
			if depth == 0 && whereStop[toks[end]] {
				break
			}
			end++
		}
		stmt.qual = parseOr(toks[rest+1 : end])
	}
	return stmt, nil
}

// parseFrom consumes the FROM item list starting at i and returns the
// index of the token that ended it. Subqueries and join conditions are
// skipped; only base relation names are collected.
func (s *Statement) parseFrom(toks []string, i int) int {
	expectName := true
	depth := 0
	for i < len(toks) {
		tok := toks[i]
		if depth == 0 && fromStop[tok] {
			return i
		}
		switch {
		case tok == "(":
			depth++
			expectName = false
		case tok == ")":
			if depth > 0 {
				depth--
			}
		case depth > 0:
			// inside a subquery or expression
		case tok == ",":
			expectName = true
		case tok == "join":
			expectName = true
		case joinPrefix[tok] || tok == "on" || tok == "using" || tok == "as" || tok == "=":
			// join decoration or condition tokens
			if tok == "on" || tok == "using" {
				expectName = false
			}
		case expectName && isIdent(tok):
			s.relations = append(s.relations, baseName(tok))
			expectName = false
		}
		i++
	}
	return i
}

// parseOr builds the qualifier tree for a token range: OR nodes over
// AND nodes over predicate leaves, with parenthesized groups recursed.
func parseOr(toks []string) *features.QualNode {
	parts := splitTopLevel(toks, "or")
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return parseAnd(parts[0])
	}
	n := &features.QualNode{Kind: features.QualOr}
	for _, p := range parts {
		if arg := parseAnd(p); arg != nil {
			n.Args = append(n.Args, arg)
		}
	}
	if len(n.Args) == 0 {
		return nil
	}
	return n
}

func parseAnd(toks []string) *features.QualNode {
	parts := splitTopLevel(toks, "and")
	if len(parts) == 0 {
		return nil
	}
	if len(parts) == 1 {
		return parseUnit(parts[0])
	}
	n := &features.QualNode{Kind: features.QualAnd}
	for _, p := range parts {
		if arg := parseUnit(p); arg != nil {
			n.Args = append(n.Args, arg)
		}
	}
	if len(n.Args) == 0 {
		return nil
	}
	return n
}

func parseUnit(toks []string) *features.QualNode {
	if len(toks) == 0 {
		return nil
	}
	if toks[0] == "not" {
		return parseUnit(toks[1:])
	}
	if wrapped(toks) {
		return parseOr(toks[1 : len(toks)-1])
	}
	return &features.QualNode{Kind: features.QualLeaf}
}

// splitTopLevel splits on a keyword at paren depth zero. The AND of a
// BETWEEN .. AND .. range is part of the predicate, not a conjunction,
// and never splits.
func splitTopLevel(toks []string, kw string) [][]string {
	var parts [][]string
	depth := 0
	betweenPending := false
	start := 0
	for i, tok := range toks {
		switch tok {
		case "(":
			depth++
		case ")":
			depth--
		}
		if depth != 0 {
			continue
		}
		switch tok {
		case "between":
			betweenPending = true
		case kw:
			if kw == "and" && betweenPending {
				betweenPending = false
				continue
			}
			if i > start {
				parts = append(parts, toks[start:i])
			}
			start = i + 1
		}
	}
	if start < len(toks) {
		parts = append(parts, toks[start:])
	}
	return parts
}

// wrapped reports whether the whole range is one parenthesized group.
func wrapped(toks []string) bool {
	if len(toks) < 2 || toks[0] != "(" || toks[len(toks)-1] != ")" {
		return false
	}
	depth := 0
	for i, tok := range toks {
		switch tok {
		case "(":
			depth++
		case ")":
			depth--
		}
		if depth == 0 && i < len(toks)-1 {
			return false
		}
	}
	return depth == 0
}

// tokenize splits sanitized SQL into word and punctuation tokens.
func tokenize(clean string) []string {
	var toks []string
	i := 0
	for i < len(clean) {
		c := clean[i]
		switch {
		case c == ' ':
			i++
		case isTokenChar(c):
			j := i
			for j < len(clean) && isTokenChar(clean[j]) {
				j++
			}
			toks = append(toks, clean[i:j])
			i = j
		default:
			toks = append(toks, string(c))
			i++
		}
	}
	return toks
}

func isTokenChar(c byte) bool {
	return c == '_' || c == '.' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= '0' && c <= '9')
}

func isIdent(tok string) bool {
	c := tok[0]
	return c == '_' || (c >= 'a' && c <= 'z')
}

// baseName strips a schema qualifier: "public.title" reads "title".
func baseName(tok string) string {
	if i := strings.LastIndexByte(tok, '.'); i >= 0 {
		return tok[i+1:]
	}
	return tok
}

func indexToken(toks []string, from int, kw string) int {
	for i := from; i < len(toks); i++ {
		if toks[i] == kw {
			return i
		}
	}
	return -1
}

// topLevelIndex finds kw at paren depth zero.
func topLevelIndex(toks []string, from int, kw string) int {
	depth := 0
	for i := from; i < len(toks); i++ {
		switch toks[i] {
		case "(":
			depth++
		case ")":
			depth--
		}
		if depth == 0 && toks[i] == kw {
			return i
		}
	}
	return -1
}
