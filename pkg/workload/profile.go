package workload

import (
	"log"
	"strings"
)

// Kind selects one of the four supported workload catalogs.
type Kind int

const (
	JOB Kind = iota
	CEB
	Stack
	TPCDS
)

func (k Kind) String() string {
	switch k {
	case JOB:
		return "job"
	case CEB:
		return "ceb"
	case Stack:
		return "stack"
	case TPCDS:
		return "tpcds"
	}
	return "job"
}

// ParseKind maps a workload name to its Kind. Unknown names fall back to JOB.
func ParseKind(name string) Kind {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "job":
		return JOB
	case "ceb":
		return CEB
	case "stack":
		return Stack
	case "tpcds", "tpc-ds", "tpc_ds":
		return TPCDS
	}
	return JOB
}

// Row-size thresholds shared by feature extraction and profile stats.
const (
	SmallRows  = 120000.0
	MediumRows = 1500000.0
	LargeRows  = 5000000.0
	HugeRows   = 20000000.0

	indexPerTableDense = 2.0
)

// Profile is a static description of one workload: its table catalog plus
// derived dataset-shape flags. Built once per workload selection and
// read-only afterward.
type Profile struct {
	Kind       Kind
	IMDB       bool // JOB and CEB share the IMDB catalog
	TableCount int
	FKCount    int
	TotalRows  float64
	MaxRows    float64
	MaxRatio   float64

	LargeTableCount int
	HugeTableCount  int
	IndexCount      int
	FKPerTable      float64
	IndexPerTable   float64

	JoinDense  bool
	Skewed     bool
	LargeDB    bool
	IndexDense bool

	tables []TableStat
	byName map[string]int
}

// NewProfile builds the profile for the given workload.
func NewProfile(k Kind) *Profile {
	p := &Profile{Kind: k}
	switch k {
	case JOB, CEB:
		p.tables = imdbTables
		p.IMDB = true
		p.FKCount = imdbFKCount
	case Stack:
		p.tables = stackTables
	case TPCDS:
		p.tables = tpcdsTables
	}
	p.TableCount = len(p.tables)
	p.byName = make(map[string]int, len(p.tables))
	for i, t := range p.tables {
		p.byName[t.Name] = i
		if t.Rows <= 0 {
			continue
		}
		p.TotalRows += t.Rows
		if t.Rows > p.MaxRows {
			p.MaxRows = t.Rows
		}
		if t.Rows >= MediumRows {
			p.LargeTableCount++
		}
		if t.Rows >= HugeRows {
			p.HugeTableCount++
		}
		p.IndexCount += t.Indexes
	}
	if p.TotalRows > 0 {
		p.MaxRatio = p.MaxRows / p.TotalRows
	}
	if p.TableCount > 0 {
		p.FKPerTable = float64(p.FKCount) / float64(p.TableCount)
		p.IndexPerTable = float64(p.IndexCount) / float64(p.TableCount)
	}
	p.JoinDense = p.FKPerTable >= 0.9
	p.Skewed = p.MaxRatio >= 0.60
	p.LargeDB = p.TotalRows >= 100000000
	p.IndexDense = p.IndexPerTable >= indexPerTableDense

	log.Printf("[Workload] profile %s: tables=%d fks=%d idx=%d total_rows=%.0f max_ratio=%.2f join_dense=%v skewed=%v large_db=%v index_dense=%v",
		k, p.TableCount, p.FKCount, p.IndexCount, p.TotalRows, p.MaxRatio,
		p.JoinDense, p.Skewed, p.LargeDB, p.IndexDense)
	return p
}

// Tables returns the catalog in declaration order.
func (p *Profile) Tables() []TableStat { return p.tables }

// Lookup resolves a table name to its static row/index estimates.
func (p *Profile) Lookup(name string) (rows float64, indexes int, ok bool) {
	i, ok := p.byName[name]
	if !ok {
		return 0, 0, false
	}
	return p.tables[i].Rows, p.tables[i].Indexes, true
}
