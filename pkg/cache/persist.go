package cache

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"optsel/pkg/sqltext"
	"optsel/pkg/strategy"
)

const csvHeader = "hash,version,time,sh,cb"

// openWithFallback opens path for reading, retrying under $HOME when a
// relative path does not resolve from the working directory.
func openWithFallback(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err == nil {
		return f, nil
	}
	if !filepath.IsAbs(path) {
		if home := os.Getenv("HOME"); home != "" {
			if f, herr := os.Open(filepath.Join(home, path)); herr == nil {
				return f, nil
			}
		}
	}
	return nil, err
}

func createWithFallback(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err == nil {
		return f, nil
	}
	if !filepath.IsAbs(path) {
		if home := os.Getenv("HOME"); home != "" {
			if f, herr := os.Create(filepath.Join(home, path)); herr == nil {
				return f, nil
			}
		}
	}
	return nil, err
}

// ensureLoaded performs the lazy first load. After a failed load and
// bootstrap the cache stays degraded and answers every lookup with a
// miss rather than retrying the filesystem per query.
func (c *Cache) ensureLoaded() {
	c.mu.RLock()
	done := c.loaded || c.degraded
	c.mu.RUnlock()
	if done {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded || c.degraded {
		return
	}
	c.loadLocked()
}

func (c *Cache) loadLocked() {
	if c.opts.Path == "" {
		c.loaded = true
		return
	}
	if f, err := openWithFallback(c.opts.Path); err == nil {
		c.readCSV(f)
		f.Close()
		c.loaded = true
	} else {
		c.bootstrapLocked()
	}
	if !c.loaded {
		c.degraded = true
		log.Printf("[Cache] no cache at %s and bootstrap failed, cache disabled", c.opts.Path)
		return
	}
	if !c.opts.Populating {
		return
	}
	j, err := openJournal(c.opts.Path + ".journal")
	if err != nil {
		log.Printf("[Cache] journal open failed: %v", err)
		return
	}
	c.journal = j
	replayed := 0
	err = j.replay(func(e journalEntry) {
		if _, ok := c.recordLocked(e.fp, e.sh, strategy.Combination(e.combo), e.latency); ok {
			replayed++
		}
	})
	if err != nil {
		log.Printf("[Cache] journal replay stopped: %v", err)
	}
	if replayed > 0 {
		log.Printf("[Cache] replayed %d feedback entries from journal", replayed)
		c.dirty = true
	}
}

// readCSV fills the cache from a persisted file. Rows are
// "hash,version,time,sh,cb"; the legacy two-column "hash,label" form is
// still accepted. Malformed rows are skipped.
func (c *Cache) readCSV(f *os.File) {
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		if len(c.order) >= MaxBuckets {
			break
		}
		cols := strings.Split(sc.Text(), ",")
		if len(cols) < 2 {
			continue
		}
		h64, err := strconv.ParseUint(strings.TrimSpace(cols[0]), 10, 32)
		if err != nil {
			continue
		}
		h := uint32(h64)

		var (
			v  uint8
			t  float64
			sh uint32
			cb strategy.Combination
		)
		if len(cols) < 5 {
			cb = strategy.Parse(strings.TrimSpace(cols[1]))
			sh = h
		} else {
			v64, verr := strconv.ParseUint(strings.TrimSpace(cols[1]), 10, 8)
			t64, terr := strconv.ParseFloat(strings.TrimSpace(cols[2]), 64)
			sh64, sherr := strconv.ParseUint(strings.TrimSpace(cols[3]), 10, 32)
			if verr != nil || terr != nil || sherr != nil {
				continue
			}
			v, t, sh = uint8(v64), t64, uint32(sh64)
			cbs := strings.TrimSpace(cols[4])
			if cbs == "" {
				continue
			}
			if cbs[0] >= '0' && cbs[0] <= '9' {
				cb64, cberr := strconv.ParseUint(cbs, 10, 8)
				if cberr != nil {
					continue
				}
				cb = strategy.Combination(cb64)
			} else {
				cb = strategy.Parse(cbs)
			}
		}

		b := c.getOrCreate(h)
		if b == nil {
			continue
		}
		if b.full() || b.hasCombo(cb&7) {
			continue
		}
		c.addSlot(b, Slot{Version: v, Latency: t, SimHash: sh, Combo: cb & 7})
	}
}

// bootstrapLocked seeds the cache from a benchmark result CSV whose
// rows name a query file and the best-performing label, then writes the
// seeded cache to Path. Seeded slots carry zero latency so a real
// measurement can later displace them only by tying.
func (c *Cache) bootstrapLocked() {
	if c.opts.SourcePath == "" {
		return
	}
	src, err := openWithFallback(c.opts.SourcePath)
	if err != nil {
		return
	}
	defer src.Close()
	dst, err := createWithFallback(c.opts.Path)
	if err != nil {
		return
	}
	defer dst.Close()

	w := bufio.NewWriter(dst)
	fmt.Fprintln(w, csvHeader)

	sc := bufio.NewScanner(src)
	line := 0
	for sc.Scan() {
		line++
		if line == 1 {
			continue
		}
		if len(c.order) >= MaxBuckets {
			break
		}
		cols := strings.Split(sc.Text(), ",")
		if len(cols) < 3 {
			continue
		}
		sqlFile := strings.TrimSpace(cols[1])
		label := strings.TrimSpace(cols[2])
		if sqlFile == "" || label == "" {
			continue
		}
		sqlFile = strings.TrimSuffix(sqlFile, "_round1")

		h, sh, ok := c.hashQueryFile(sqlFile)
		if !ok {
			continue
		}
		cb := strategy.Parse(label)
		b := c.getOrCreate(h)
		if b == nil {
			continue
		}
		if b.full() || b.hasCombo(cb) {
			continue
		}
		slot := Slot{Version: uint8(len(b.slots)), Latency: 0, SimHash: sh, Combo: cb}
		c.addSlot(b, slot)
		fmt.Fprintf(w, "%d,%d,%.3f,%d,%d\n", h, slot.Version, slot.Latency, sh, uint8(cb))
	}
	if err := w.Flush(); err != nil {
		return
	}
	log.Printf("[Cache] bootstrapped %d buckets from %s", len(c.order), c.opts.SourcePath)
	c.loaded = true
}

func (c *Cache) hashQueryFile(name string) (uint32, uint32, bool) {
	f, err := openWithFallback(filepath.Join(c.opts.QueryDir, name))
	if err != nil {
		return 0, 0, false
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil || len(data) == 0 {
		return 0, 0, false
	}
	fp, sh := sqltext.Hashes(string(data))
	return fp, sh, true
}

// Flush writes the cache back to its CSV file and truncates the
// feedback journal. A cache that never loaded, is degraded, or is empty
// is left untouched.
func (c *Cache) Flush() error {
	c.ensureLoaded()
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded || c.degraded || len(c.order) == 0 || c.opts.Path == "" {
		return nil
	}
	if err := c.saveLocked(); err != nil {
		return err
	}
	c.dirty = false
	if c.journal != nil {
		return c.journal.truncate()
	}
	return nil
}

func (c *Cache) saveLocked() error {
	f, err := createWithFallback(c.opts.Path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	fmt.Fprintln(w, csvHeader)
	for _, h := range c.order {
		b := c.buckets[h]
		if b == nil {
			continue
		}
		for _, s := range b.slots {
			fmt.Fprintf(w, "%d,%d,%.3f,%d,%d\n", h, s.Version, s.Latency, s.SimHash, uint8(s.Combo))
		}
	}
	return w.Flush()
}
