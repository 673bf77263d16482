package selector

import (
	"log"
	"strings"

	"optsel/pkg/cache"
	"optsel/pkg/config"
	"optsel/pkg/features"
	"optsel/pkg/monitor"
	"optsel/pkg/rules"
	"optsel/pkg/sqltext"
	"optsel/pkg/strategy"
	"optsel/pkg/workload"
)

// ToggleSink receives the chosen pass combination before a query is
// planned. Implementations flip the optimizer's session toggles; an
// error means the toggles could not be set and the query proceeds on
// whatever settings were already active.
type ToggleSink interface {
	Apply(cb strategy.Combination) error
}

// SinkFunc adapts a function to the ToggleSink interface.
type SinkFunc func(cb strategy.Combination) error

func (f SinkFunc) Apply(cb strategy.Combination) error { return f(cb) }

// Origin says where a decision came from.
type Origin string

const (
	OriginDisabled     Origin = "disabled"
	OriginCache        Origin = "cache"
	OriginCacheExplore Origin = "cache-explore"
	OriginRules        Origin = "rules"
	OriginTrivial      Origin = "trivial"
)

// Decision is the outcome of one query: the combination applied, where
// it came from, and an optional feedback handle when the cache wants
// the observed latency back.
type Decision struct {
	Combination strategy.Combination
	Origin      Origin
	Feedback    *Feedback
}

// Controller chooses a pass combination per query and pushes it to the
// toggle sink. Safe for concurrent use.
type Controller struct {
	cfg       *config.Config
	profile   *workload.Profile
	extractor *features.Extractor
	cache     *cache.Cache
	sink      ToggleSink
	stats     *monitor.DecisionStats
}

// New builds a controller from configuration. A nil sink means
// decisions are computed but not applied anywhere, which is what the
// dry-run tools use.
func New(cfg *config.Config, sink ToggleSink) (*Controller, error) {
	profile := workload.NewProfile(workload.ParseKind(cfg.Selector.Workload))
	c := &Controller{
		cfg:       cfg,
		profile:   profile,
		extractor: features.NewExtractor(profile),
		sink:      sink,
		stats:     monitor.NewDecisionStats(),
	}
	if cfg.Cache.Enabled {
		if cfg.Cache.Storage == "sqlite" {
			// The sqlite store replaces the CSV file entirely.
			c.cache = cache.New(cache.Options{Populating: cfg.Cache.Populating})
			if err := c.cache.AttachSQLite(cfg.Cache.Path); err != nil {
				return nil, err
			}
		} else {
			c.cache = cache.New(cache.Options{
				Path:       cfg.Cache.Path,
				SourcePath: cfg.Cache.SourcePath,
				QueryDir:   cfg.Cache.QueryDir,
				Populating: cfg.Cache.Populating,
			})
		}
	}
	return c, nil
}

// Stats exposes the decision counters.
func (c *Controller) Stats() *monitor.DecisionStats { return c.stats }

// Profile exposes the active workload profile.
func (c *Controller) Profile() *workload.Profile { return c.profile }

// Decide picks the pass combination for one query and applies it to
// the toggle sink. structured may be nil; when present it refines the
// text-derived features with exact relation and predicate counts.
//
// A disabled selector returns None without touching the toggles. Every
// other path applies its decision, including the all-off one for
// trivial queries.
func (c *Controller) Decide(queryText string, structured features.StructuredQuery) Decision {
	if !c.cfg.Selector.Enabled {
		return Decision{Combination: strategy.None, Origin: OriginDisabled}
	}

	if c.cache != nil {
		fp, sh := sqltext.Hashes(queryText)
		if cb, record, ok := c.cache.Lookup(fp, sh); ok {
			d := Decision{Combination: cb, Origin: OriginCache}
			if record {
				d.Origin = OriginCacheExplore
				d.Feedback = &Feedback{
					cache: c.cache,
					stats: c.stats,
					fp:    fp,
					sh:    sh,
					cb:    cb,
				}
				c.stats.RecordCacheExplore()
			} else {
				c.stats.RecordCacheHit()
			}
			c.apply(d)
			return d
		}
	}

	if strings.TrimSpace(queryText) == "" {
		d := Decision{Combination: strategy.None, Origin: OriginTrivial}
		c.stats.RecordTrivial()
		c.apply(d)
		return d
	}

	f := c.extractor.FromText(queryText)
	if structured != nil {
		c.extractor.FromStructured(structured, &f)
	}
	if f.Trivial() {
		d := Decision{Combination: strategy.None, Origin: OriginTrivial}
		c.stats.RecordTrivial()
		c.apply(d)
		return d
	}

	d := Decision{
		Combination: rules.Decide(c.profile.Kind, &f),
		Origin:      OriginRules,
	}
	c.stats.RecordRuleDecision()
	c.apply(d)
	return d
}

// apply pushes the decision to the sink. Sink failures are logged and
// swallowed: a selector that cannot set toggles must never break the
// query it was trying to speed up.
func (c *Controller) apply(d Decision) {
	if c.sink != nil {
		if err := c.sink.Apply(d.Combination); err != nil {
			log.Printf("[Selector] failed to apply toggles, proceeding with current settings: %v", err)
		}
	}
	if c.cfg.Selector.LogDecisions {
		cb := d.Combination
		log.Printf("[Selector] %s: %s (jn=%v, ce=%v, cm=%v)",
			d.Origin, cb, cb.HasJN(), cb.HasCE(), cb.HasCM())
	}
}

// Close flushes the decision cache.
func (c *Controller) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
