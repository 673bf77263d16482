package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"optsel/pkg/config"
	"optsel/pkg/features"
	"optsel/pkg/selector"
	"optsel/pkg/sql"
	"optsel/pkg/strategy"
)

func main() {
	configPath := flag.String("config", "", "Path to optsel.yaml")
	queryDir := flag.String("dir", "queries", "Directory of .sql files to replay")
	workload := flag.String("workload", "", "Override the configured workload (job/ceb/stack/tpcds)")
	rounds := flag.Int("rounds", 1, "Number of replay rounds")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}
	if *workload != "" {
		cfg.Selector.Workload = *workload
	}
	cfg.Selector.LogDecisions = false

	ctrl, err := selector.New(cfg, nil)
	if err != nil {
		log.Fatalf("Build selector failed: %v", err)
	}
	defer ctrl.Close()

	files, err := filepath.Glob(filepath.Join(*queryDir, "*.sql"))
	if err != nil || len(files) == 0 {
		log.Fatalf("No .sql files under %s", *queryDir)
	}
	sort.Strings(files)

	fmt.Printf("optsel Decision Benchmark (workload=%s, queries=%d, rounds=%d)\n",
		cfg.Selector.Workload, len(files), *rounds)
	fmt.Println("---------------------------------------------------")

	comboCounts := make(map[strategy.Combination]int)
	total := 0
	start := time.Now()
	for r := 0; r < *rounds; r++ {
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				log.Fatalf("Read %s failed: %v", path, err)
			}
			var structured features.StructuredQuery
			if stmt, perr := sql.Parse(string(data)); perr == nil {
				structured = stmt
			}
			d := ctrl.Decide(string(data), structured)
			// No execution happens here, so exploring decisions have
			// no latency to report.
			d.Feedback.Discard()
			comboCounts[d.Combination]++
			total++
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("Decisions: %d in %v | %.0f decisions/sec\n\n", total, elapsed,
		float64(total)/elapsed.Seconds())

	fmt.Println("Combination mix:")
	for i := 0; i < strategy.NumCombinations; i++ {
		cb := strategy.Combination(i)
		if comboCounts[cb] == 0 {
			continue
		}
		fmt.Printf("  %-6s %5d (%5.1f%%)\n", cb, comboCounts[cb],
			100*float64(comboCounts[cb])/float64(total))
	}

	fmt.Println("\nOrigins:")
	for k, v := range ctrl.Stats().Snapshot() {
		fmt.Printf("  %-18s %d\n", k, v)
	}
}
