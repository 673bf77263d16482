package main

import (
	"fmt"
	"log"

	"optsel/pkg/config"
	"optsel/pkg/selector"
	"optsel/pkg/strategy"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("Load config failed: %v", err)
	}
	cfg.Selector.Workload = "job"
	cfg.Cache.Enabled = false

	sink := selector.SinkFunc(func(cb strategy.Combination) error {
		fmt.Printf("  toggles -> ce=%v cm=%v jn=%v\n", cb.HasCE(), cb.HasCM(), cb.HasJN())
		return nil
	})
	ctrl, err := selector.New(cfg, sink)
	if err != nil {
		log.Fatalf("Build selector failed: %v", err)
	}
	defer ctrl.Close()

	queries := []string{
		"SELECT 1",
		"SELECT t.title FROM title t WHERE t.production_year > 2000",
		"SELECT min(t.title) FROM title t, cast_info ci, movie_info mi " +
			"WHERE t.id = ci.movie_id AND t.id = mi.movie_id AND mi.info_type_id = 3",
	}
	for _, q := range queries {
		fmt.Printf("Query: %s\n", q)
		d := ctrl.Decide(q, nil)
		fmt.Printf("  decision: %s (origin=%s)\n\n", d.Combination, d.Origin)
	}
}
