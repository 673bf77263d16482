// Package sqltext canonicalizes raw query text for hashing and for the
// keyword scans feature extraction relies on. It is deliberately not a SQL
// parser: every routine works on bytes with depth and word-boundary
// tracking, so arbitrary (even malformed) input is safe.
package sqltext

import (
	"hash/fnv"
	"strings"
)

var explainOptions = []string{
	"analyze", "verbose", "costs", "buffers", "timing", "summary", "settings", "wal",
}

var statementStarts = []string{"select", "with", "insert", "update", "delete"}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\v' || c == '\f'
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// StripExplainPrefix removes a leading EXPLAIN and its option list, either
// the parenthesized form or bare option words, returning the statement that
// follows. Input without an EXPLAIN prefix is returned unchanged.
func StripExplainPrefix(sql string) string {
	i := 0
	for i < len(sql) && isSpace(sql[i]) {
		i++
	}
	if !hasPrefixFold(sql[i:], "explain") {
		return sql
	}
	i += len("explain")
	for i < len(sql) && isSpace(sql[i]) {
		i++
	}
	if i < len(sql) && sql[i] == '(' {
		depth := 1
		i++
		for i < len(sql) && depth > 0 {
			switch sql[i] {
			case '(':
				depth++
			case ')':
				depth--
			}
			i++
		}
		for i < len(sql) && isSpace(sql[i]) {
			i++
		}
	} else {
		for i < len(sql) {
			matched := false
			for _, opt := range explainOptions {
				if hasPrefixFold(sql[i:], opt) {
					matched = true
					break
				}
			}
			if !matched {
				break
			}
			for i < len(sql) && !isSpace(sql[i]) {
				i++
			}
			for i < len(sql) && isSpace(sql[i]) {
				i++
			}
		}
	}
	for ; i < len(sql); i++ {
		for _, kw := range statementStarts {
			if hasPrefixFold(sql[i:], kw) {
				return sql[i:]
			}
		}
	}
	return sql
}

// Normalize produces the exact-fingerprint form: EXPLAIN prefix stripped,
// all whitespace removed, case folded.
func Normalize(sql string) string {
	s := StripExplainPrefix(sql)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if isSpace(s[i]) {
			continue
		}
		b.WriteByte(lower(s[i]))
	}
	return b.String()
}

// Sanitize produces the similarity form: case folded, runs of whitespace
// collapsed to single spaces, comment bodies and string-literal contents
// dropped. Two queries that differ only in literal constants sanitize to
// the same string.
func Sanitize(sql string) string {
	var b strings.Builder
	b.Grow(len(sql))
	inLine, inBlock, inString := false, false, false
	lastSpace := true

	sep := func() {
		if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	for i := 0; i < len(sql); i++ {
		c := sql[i]
		if inLine {
			if c == '\n' {
				inLine = false
			}
			continue
		}
		if inBlock {
			if c == '*' && i+1 < len(sql) && sql[i+1] == '/' {
				inBlock = false
				i++
			}
			continue
		}
		if inString {
			if c == '\'' && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			if c == '\'' {
				inString = false
			}
			continue
		}
		if c == '-' && i+1 < len(sql) && sql[i+1] == '-' {
			sep()
			inLine = true
			i++
			continue
		}
		if c == '/' && i+1 < len(sql) && sql[i+1] == '*' {
			sep()
			inBlock = true
			i++
			continue
		}
		if c == '\'' {
			inString = true
			sep()
			continue
		}
		if isSpace(c) {
			sep()
			continue
		}
		b.WriteByte(lower(c))
		lastSpace = false
	}
	return b.String()
}

// Hashes computes the exact fingerprint and the similarity hash for a query.
// Empty input yields (0, 0).
func Hashes(sql string) (fingerprint, simHash uint32) {
	if sql == "" {
		return 0, 0
	}
	return hash32(Normalize(sql)), hash32(Sanitize(sql))
}

// Fingerprint is the bucket key: a hash of the fully normalized text.
func Fingerprint(sql string) uint32 {
	fp, _ := Hashes(sql)
	return fp
}

// SimilarityHash keys near-duplicate lookup: literal values do not affect it.
func SimilarityHash(sql string) uint32 {
	_, sh := Hashes(sql)
	return sh
}

func hash32(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}
