package cache

import (
	"database/sql"
	"fmt"
	"log"

	_ "modernc.org/sqlite"

	"optsel/pkg/strategy"
)

// sqliteStore persists cache slots in a SQLite database, for
// deployments where a single CSV file is too fragile (concurrent
// writers, partial writes on crash).
type sqliteStore struct {
	db *sql.DB
}

func openSQLiteStore(path string) (*sqliteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	query := `
	CREATE TABLE IF NOT EXISTS decision_cache (
		hash INTEGER NOT NULL,
		version INTEGER NOT NULL,
		latency REAL NOT NULL,
		sh INTEGER NOT NULL,
		cb INTEGER NOT NULL,
		PRIMARY KEY (hash, cb)
	);`
	if _, err := db.Exec(query); err != nil {
		db.Close()
		return nil, fmt.Errorf("init decision_cache: %w", err)
	}
	if _, err := db.Exec(`
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = NORMAL;
	`); err != nil {
		log.Printf("[Cache] failed to set PRAGMA: %v", err)
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) upsert(fp uint32, slot Slot) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO decision_cache (hash, version, latency, sh, cb) VALUES (?, ?, ?, ?, ?)",
		int64(fp), int64(slot.Version), slot.Latency, int64(slot.SimHash), int64(slot.Combo))
	return err
}

func (s *sqliteStore) loadAll(fn func(fp uint32, slot Slot)) error {
	rows, err := s.db.Query("SELECT hash, version, latency, sh, cb FROM decision_cache ORDER BY hash, latency, version")
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			fp, sh  int64
			version int64
			latency float64
			cb      int64
		)
		if err := rows.Scan(&fp, &version, &latency, &sh, &cb); err != nil {
			return err
		}
		fn(uint32(fp), Slot{
			Version: uint8(version),
			Latency: latency,
			SimHash: uint32(sh),
			Combo:   strategy.Combination(cb) & 7,
		})
	}
	return rows.Err()
}

func (s *sqliteStore) close() error {
	return s.db.Close()
}

// AttachSQLite backs the cache with a SQLite database at path. Existing
// rows load immediately and every later Record is written through. Must
// be called before the first Lookup.
func (c *Cache) AttachSQLite(path string) error {
	store, err := openSQLiteStore(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	loaded := 0
	err = store.loadAll(func(fp uint32, slot Slot) {
		b := c.getOrCreate(fp)
		if b == nil || b.full() || b.hasCombo(slot.Combo) {
			return
		}
		c.addSlot(b, slot)
		loaded++
	})
	if err != nil {
		store.close()
		return err
	}
	c.store = store
	c.loaded = true
	if loaded > 0 {
		log.Printf("[Cache] loaded %d slots from sqlite store %s", loaded, path)
	}
	return nil
}
