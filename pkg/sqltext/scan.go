package sqltext

// The scanners below expect sanitized text (lowercase, single spaces).
// A keyword match counts only when both neighbors are outside the
// identifier alphabet, so "join" never matches inside "joined_at".

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

// MatchKeywordAt reports whether kw starts at offset i as a whole word.
func MatchKeywordAt(s string, i int, kw string) bool {
	if i < 0 || i+len(kw) > len(s) {
		return false
	}
	if s[i:i+len(kw)] != kw {
		return false
	}
	if i > 0 && isWordChar(s[i-1]) {
		return false
	}
	if i+len(kw) < len(s) && isWordChar(s[i+len(kw)]) {
		return false
	}
	return true
}

// ContainsKeyword reports whether kw appears anywhere as a whole word.
func ContainsKeyword(s, kw string) bool {
	if kw == "" {
		return false
	}
	for i := 0; i+len(kw) <= len(s); i++ {
		if MatchKeywordAt(s, i, kw) {
			return true
		}
	}
	return false
}

// CountKeyword counts non-overlapping whole-word occurrences of kw.
func CountKeyword(s, kw string) int {
	if kw == "" {
		return 0
	}
	count := 0
	for i := 0; i+len(kw) <= len(s); i++ {
		if MatchKeywordAt(s, i, kw) {
			count++
			i += len(kw) - 1
		}
	}
	return count
}

// HasKeywordPair reports whether first, whitespace, then second appears as
// two whole words (e.g. "group by").
func HasKeywordPair(s, first, second string) bool {
	for i := 0; i+len(first) <= len(s); i++ {
		if !MatchKeywordAt(s, i, first) {
			continue
		}
		j := i + len(first)
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j+len(second) <= len(s) && s[j:j+len(second)] == second {
			if j+len(second) == len(s) || !isWordChar(s[j+len(second)]) {
				return true
			}
		}
	}
	return false
}

// ContainsInOperator detects the IN operator: the word "in" followed by an
// opening parenthesis. A bare "in" (say, a column named in quotes) does not
// count.
func ContainsInOperator(s string) bool {
	for i := 0; i+2 <= len(s); i++ {
		if s[i:i+2] != "in" {
			continue
		}
		if i > 0 && isWordChar(s[i-1]) {
			continue
		}
		j := i + 2
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) && s[j] == '(' {
			return true
		}
	}
	return false
}

// CountSubqueries counts "(select" occurrences, the textual footprint of a
// subquery.
func CountSubqueries(s string) int {
	count := 0
	for i := 0; i < len(s); i++ {
		if s[i] != '(' {
			continue
		}
		j := i + 1
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j+len("select") <= len(s) && s[j:j+len("select")] == "select" {
			if j+len("select") == len(s) || !isWordChar(s[j+len("select")]) {
				count++
			}
		}
	}
	return count
}

// CountFuncCalls counts whole-word occurrences of name followed by "(".
func CountFuncCalls(s, name string) int {
	if name == "" {
		return 0
	}
	count := 0
	for i := 0; i+len(name) <= len(s); i++ {
		if s[i:i+len(name)] != name {
			continue
		}
		if i > 0 && isWordChar(s[i-1]) {
			continue
		}
		j := i + len(name)
		if j < len(s) && isWordChar(s[j]) {
			continue
		}
		for j < len(s) && isSpace(s[j]) {
			j++
		}
		if j < len(s) && s[j] == '(' {
			count++
		}
	}
	return count
}

// IndexKeyword returns the offset of the first whole-word occurrence of kw,
// or -1.
func IndexKeyword(s, kw string) int {
	for i := 0; i+len(kw) <= len(s); i++ {
		if MatchKeywordAt(s, i, kw) {
			return i
		}
	}
	return -1
}

// IndexAnyKeyword returns the offset of the earliest whole-word occurrence
// of any of kws at or after from, or -1.
func IndexAnyKeyword(s string, from int, kws []string) int {
	for i := from; i < len(s); i++ {
		for _, kw := range kws {
			if MatchKeywordAt(s, i, kw) {
				return i
			}
		}
	}
	return -1
}
