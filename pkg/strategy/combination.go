package strategy

import "strings"

// Pass identifies one of the three pluggable optimization passes.
type Pass int

const (
	PassCE Pass = iota // cardinality estimation
	PassCM             // cost model
	PassJN             // join enumeration
)

func (p Pass) String() string {
	switch p {
	case PassCE:
		return "CE"
	case PassCM:
		return "CM"
	case PassJN:
		return "JN"
	}
	return "?"
}

// Passes lists the three passes in scoring order.
var Passes = []Pass{PassCE, PassCM, PassJN}

// Combination is a 3-bit enable mask across the passes:
// bit 0 = CE, bit 1 = CM, bit 2 = JN. Eight values total.
type Combination uint8

const (
	None Combination = 0
	CE   Combination = 1
	CM   Combination = 2
	JN   Combination = 4
	All  Combination = 7

	// NumCombinations is the size of the decision space.
	NumCombinations = 8
)

func FromFlags(ce, cm, jn bool) Combination {
	var c Combination
	if ce {
		c |= CE
	}
	if cm {
		c |= CM
	}
	if jn {
		c |= JN
	}
	return c
}

func (c Combination) HasCE() bool { return c&CE != 0 }
func (c Combination) HasCM() bool { return c&CM != 0 }
func (c Combination) HasJN() bool { return c&JN != 0 }

// Enabled reports whether the given pass is on in this combination.
func (c Combination) Enabled(p Pass) bool {
	switch p {
	case PassCE:
		return c.HasCE()
	case PassCM:
		return c.HasCM()
	case PassJN:
		return c.HasJN()
	}
	return false
}

func (c Combination) String() string {
	switch c & 7 {
	case 0:
		return "NONE"
	case 1:
		return "CE"
	case 2:
		return "CM"
	case 3:
		return "CE+CM"
	case 4:
		return "JN"
	case 5:
		return "CE+JN"
	case 6:
		return "CM+JN"
	default:
		return "ALL"
	}
}

// Parse maps a combination label to its value. Unknown labels, BASELINE
// and the empty string all map to None, so seeded data never fails.
func Parse(label string) Combination {
	switch strings.ToUpper(strings.TrimSpace(label)) {
	case "CE":
		return CE
	case "CM":
		return CM
	case "JN":
		return JN
	case "CE+CM":
		return CE | CM
	case "CE+JN":
		return CE | JN
	case "CM+JN":
		return CM | JN
	case "ALL", "CE+CM+JN":
		return All
	default:
		return None
	}
}
