package main

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	_ "modernc.org/sqlite" // Pure Go driver
)

// ===========================================================================
// WHAT'S GOING ON HERE: Compile cache index
// ===========================================================================
//
// Compiling a graph for Neuron takes minutes. Two exports with the same
// family, task, axes, dynamic batch flag and (overridden) model config
// produce the same graph, so the second one can be skipped.
//
// The index maps that identity, hashed into a CacheKey, to the manifest of
// the export that produced it. Two backends exist:
//
//   sqlite   a single file, easy to inspect with the sqlite3 shell
//   badger   a directory, for hosts that already keep badger state
//
// ===========================================================================

// CacheEntry is one indexed export.
type CacheEntry struct {
	Key          string    `json:"key"`
	Job          string    `json:"job"`
	Family       string    `json:"family"`
	Task         string    `json:"task"`
	ManifestPath string    `json:"manifest_path"`
	CreatedAt    time.Time `json:"created_at"`
}

// CacheStore indexes completed exports by cache key.
type CacheStore interface {
	Lookup(ctx context.Context, key string) (*CacheEntry, bool, error)
	Put(ctx context.Context, e CacheEntry) error
	List(ctx context.Context) ([]CacheEntry, error)
	Close() error
}

// CacheKey hashes everything that determines a compiled graph.
func CacheKey(c *NeuronConfig) (string, error) {
	ident := struct {
		Family  string         `json:"family"`
		Task    string         `json:"task"`
		Dynamic bool           `json:"dynamic"`
		Axes    map[string]int `json:"axes"`
		Config  ModelConfig    `json:"config"`
	}{
		Family:  c.Family().Name,
		Task:    c.Task(),
		Dynamic: c.DynamicBatchSize(),
		Axes:    c.ResolvedAxes(),
		Config:  c.ModelConfig().WithOverrides(c.ValuesOverride()),
	}
	// encoding/json sorts map keys, so equal identities hash equally.
	data, err := json.Marshal(ident)
	if err != nil {
		return "", fmt.Errorf("cache key: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// OpenCache opens the index at path. Backend "sqlite" or "badger"; an empty
// backend picks badger for paths ending in ".badger" and sqlite otherwise.
func OpenCache(backend, path string) (CacheStore, error) {
	if backend == "" {
		backend = "sqlite"
		if strings.HasSuffix(path, ".badger") {
			backend = "badger"
		}
	}
	switch backend {
	case "sqlite":
		return OpenSQLiteCache(path)
	case "badger":
		return OpenBadgerCache(path)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}

// ===========================================================================
// SQLITE
// ===========================================================================

const cacheSchema = `
CREATE TABLE IF NOT EXISTS export_cache (
	key           TEXT PRIMARY KEY,
	job           TEXT NOT NULL,
	family        TEXT NOT NULL,
	task          TEXT NOT NULL,
	manifest_path TEXT NOT NULL,
	created_at    INTEGER NOT NULL
)`

// SQLiteCache is a CacheStore in a single sqlite file.
type SQLiteCache struct {
	db *sql.DB
}

// OpenSQLiteCache opens or creates the index with WAL and busy_timeout set
// for every pooled connection.
func OpenSQLiteCache(path string) (*SQLiteCache, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: resolve %s: %w", path, err)
	}
	// Path escaping keeps '?' and '#' in file names out of the query.
	dsn := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(abs),
		RawQuery: fmt.Sprintf("_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
			(5 * time.Second).Milliseconds()),
	}

	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("sqlite: open failed: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping failed: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: create schema: %w", err)
	}
	return &SQLiteCache{db: db}, nil
}

func (s *SQLiteCache) Lookup(ctx context.Context, key string) (*CacheEntry, bool, error) {
	var (
		e       CacheEntry
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT key, job, family, task, manifest_path, created_at FROM export_cache WHERE key = ?`, key).
		Scan(&e.Key, &e.Job, &e.Family, &e.Task, &e.ManifestPath, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlite: lookup %s: %w", key, err)
	}
	e.CreatedAt = time.Unix(0, created).UTC()
	return &e, true, nil
}

func (s *SQLiteCache) Put(ctx context.Context, e CacheEntry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO export_cache (key, job, family, task, manifest_path, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
	job = excluded.job,
	family = excluded.family,
	task = excluded.task,
	manifest_path = excluded.manifest_path,
	created_at = excluded.created_at`,
		e.Key, e.Job, e.Family, e.Task, e.ManifestPath, e.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("sqlite: put %s: %w", e.Key, err)
	}
	return nil
}

func (s *SQLiteCache) List(ctx context.Context) ([]CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, job, family, task, manifest_path, created_at FROM export_cache ORDER BY created_at, key`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list: %w", err)
	}
	defer rows.Close()

	var out []CacheEntry
	for rows.Next() {
		var (
			e       CacheEntry
			created int64
		)
		if err := rows.Scan(&e.Key, &e.Job, &e.Family, &e.Task, &e.ManifestPath, &created); err != nil {
			return nil, fmt.Errorf("sqlite: scan: %w", err)
		}
		e.CreatedAt = time.Unix(0, created).UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLiteCache) Close() error { return s.db.Close() }

// ===========================================================================
// BADGER
// ===========================================================================

const badgerCachePrefix = "cache:"

// BadgerCache is a CacheStore in a badger directory. Entries are JSON under
// "cache:<key>".
type BadgerCache struct {
	db *badger.DB
}

// OpenBadgerCache opens or creates the index directory.
func OpenBadgerCache(path string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %s: %w", path, err)
	}
	return &BadgerCache{db: db}, nil
}

func (b *BadgerCache) Lookup(ctx context.Context, key string) (*CacheEntry, bool, error) {
	var e CacheEntry
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(badgerCachePrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("badger: lookup %s: %w", key, err)
	}
	return &e, true, nil
}

func (b *BadgerCache) Put(ctx context.Context, e CacheEntry) error {
	buf, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(badgerCachePrefix+e.Key), buf)
	})
}

func (b *BadgerCache) List(ctx context.Context) ([]CacheEntry, error) {
	var out []CacheEntry
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		prefix := []byte(badgerCachePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var e CacheEntry
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &e)
			}); err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: list: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Key < out[j].Key
	})
	return out, nil
}

func (b *BadgerCache) Close() error { return b.db.Close() }
