package workload

import "testing"

func TestParseKind(t *testing.T) {
	tests := []struct {
		name string
		want Kind
	}{
		{"job", JOB},
		{"JOB", JOB},
		{"ceb", CEB},
		{"stack", Stack},
		{"tpcds", TPCDS},
		{"tpc-ds", TPCDS},
		{"tpc_ds", TPCDS},
		{"", JOB},
		{"unknown", JOB},
	}
	for _, tt := range tests {
		if got := ParseKind(tt.name); got != tt.want {
			t.Errorf("ParseKind(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProfileJOB(t *testing.T) {
	p := NewProfile(JOB)
	if !p.IMDB {
		t.Fatal("JOB should use the IMDB catalog")
	}
	if p.TableCount != 21 {
		t.Errorf("table count: got %d, want 21", p.TableCount)
	}
	rows, idx, ok := p.Lookup("cast_info")
	if !ok || rows != 36244344 || idx != 5 {
		t.Errorf("Lookup(cast_info) = (%v, %v, %v)", rows, idx, ok)
	}
	if _, _, ok := p.Lookup("no_such_table"); ok {
		t.Error("Lookup of unknown table should fail")
	}
	if p.MaxRows != 36244344 {
		t.Errorf("max rows: got %v", p.MaxRows)
	}
	if !p.JoinDense {
		t.Error("IMDB is join dense (19 FKs over 21 tables)")
	}
}

func TestProfileCEBSharesIMDB(t *testing.T) {
	job, ceb := NewProfile(JOB), NewProfile(CEB)
	if job.TableCount != ceb.TableCount || job.TotalRows != ceb.TotalRows {
		t.Errorf("JOB and CEB should share the IMDB catalog")
	}
}

func TestProfileStack(t *testing.T) {
	p := NewProfile(Stack)
	if p.IMDB {
		t.Error("stack is not an IMDB workload")
	}
	if p.TableCount != 10 {
		t.Errorf("table count: got %d, want 10", p.TableCount)
	}
	if !p.LargeDB {
		t.Errorf("stack total rows %v should flag large_db", p.TotalRows)
	}
	if p.FKCount != 0 || p.JoinDense {
		t.Error("stack has no FK metadata")
	}
}

func TestProfileTPCDS(t *testing.T) {
	p := NewProfile(TPCDS)
	if p.TableCount != 24 {
		t.Errorf("table count: got %d, want 24", p.TableCount)
	}
	if p.MaxRows != 133110000 {
		t.Errorf("max rows: got %v", p.MaxRows)
	}
	// inventory alone is >60% of nothing? sanity: max ratio is in (0,1)
	if p.MaxRatio <= 0 || p.MaxRatio >= 1 {
		t.Errorf("max ratio out of range: %v", p.MaxRatio)
	}
	if !p.IndexDense {
		t.Error("tpcds averages well over 2 indexes per table")
	}
}
