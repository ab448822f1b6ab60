// Package lazyq is a lazy tabular query engine. A Frame wraps an immutable
// query plan over a backing table; chaining operations builds new plans
// without touching old ones and without any I/O. Nothing executes until the
// caller materializes or previews, at which point the plan is translated to
// a single SQL statement and run against the backing store exactly once.
package lazyq

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/kartikbazzad/lazyq/internal/config"
	"github.com/kartikbazzad/lazyq/internal/exec"
	"github.com/kartikbazzad/lazyq/internal/logger"
	"github.com/kartikbazzad/lazyq/internal/metrics"
	"github.com/kartikbazzad/lazyq/internal/plan"
	"github.com/kartikbazzad/lazyq/internal/schema"
	"github.com/kartikbazzad/lazyq/internal/sqlgen"
	"github.com/kartikbazzad/lazyq/internal/store"
)

// DB owns the connection to one backing store plus the translator and
// executor shared by every Frame built from it.
type DB struct {
	store      *store.SQLite
	translator *sqlgen.Translator
	executor   *exec.Executor
	logger     *logger.Logger
	metrics    *metrics.Exporter

	mu      sync.RWMutex
	schemas map[string]*schema.Schema // one schema per table, discovered once
	closed  bool
}

// Option adjusts engine configuration at Open time.
type Option func(*settings)

type settings struct {
	cfg      *config.Config
	logOut   io.Writer
	logDebug bool
}

// WithQueryTimeout sets the per-query deadline applied when the caller's
// context has none. Zero disables it.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *settings) { s.cfg.Exec.QueryTimeout = d }
}

// WithMaxRetries bounds retries of transient connection failures.
func WithMaxRetries(n int) Option {
	return func(s *settings) { s.cfg.Exec.MaxRetries = n }
}

// WithMaxConcurrentQueries bounds in-flight materializations. Zero removes
// the bound.
func WithMaxConcurrentQueries(n int) Option {
	return func(s *settings) { s.cfg.Exec.MaxConcurrentQueries = n }
}

// WithTranslationCacheSize sets the translated-SQL LRU size. Zero disables
// the cache.
func WithTranslationCacheSize(n int) Option {
	return func(s *settings) { s.cfg.Translate.CacheSize = n }
}

// WithLogOutput directs engine logs to w.
func WithLogOutput(w io.Writer) Option {
	return func(s *settings) { s.logOut = w }
}

// WithDebugLogging lowers the log level to debug (translated SQL, timings).
func WithDebugLogging() Option {
	return func(s *settings) { s.logDebug = true }
}

// Open connects to the SQLite database named by dsn. An empty dsn opens a
// private in-memory database.
func Open(dsn string, opts ...Option) (*DB, error) {
	s := &settings{cfg: config.DefaultConfig()}
	for _, opt := range opts {
		opt(s)
	}
	if dsn != "" {
		s.cfg.Store.DSN = dsn
	}

	log := logger.Default()
	if s.logOut != nil {
		log.SetOutput(s.logOut)
	}
	if s.logDebug {
		log.SetLevel(logger.LevelDebug)
	}

	st, err := store.OpenSQLite(s.cfg.Store, log)
	if err != nil {
		return nil, err
	}

	translator := sqlgen.New(s.cfg.Translate.CacheSize)
	exporter := metrics.NewExporter()
	executor, err := exec.New(st, translator, s.cfg.Exec, log, exporter)
	if err != nil {
		st.Close()
		return nil, err
	}

	return &DB{
		store:      st,
		translator: translator,
		executor:   executor,
		logger:     log,
		metrics:    exporter,
		schemas:    make(map[string]*schema.Schema),
	}, nil
}

// Table returns a Frame over the named backing table, discovering its schema
// on first use. The schema is cached for the life of the DB; if the table
// changes in the store afterwards, the mismatch surfaces at execution time.
func (db *DB) Table(ctx context.Context, name string) (*Frame, error) {
	db.mu.RLock()
	sch, ok := db.schemas[name]
	db.mu.RUnlock()

	if !ok {
		var err error
		sch, err = db.store.DescribeTable(ctx, name)
		if err != nil {
			return nil, err
		}
		db.mu.Lock()
		db.schemas[name] = sch
		db.mu.Unlock()
	}

	return &Frame{
		db:    db,
		table: name,
		plan:  plan.NewScan(name, sch),
	}, nil
}

// Metrics renders engine metrics in Prometheus text format.
func (db *DB) Metrics() string {
	if hits, misses := db.translator.CacheStats(); hits+misses > 0 {
		db.metrics.SetCacheStats(hits, misses)
	}
	return db.metrics.Export()
}

// Close releases the executor and the store connection pool.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	db.executor.Close()
	return db.store.Close()
}

// Seeding helpers for tests, examples and the shell's demo mode. The query
// engine itself never writes.

// CreateTable creates a backing table matching the given columns.
func (db *DB) CreateTable(ctx context.Context, table string, cols ...Column) error {
	sch, err := schema.New(cols...)
	if err != nil {
		return err
	}
	return db.store.CreateTable(ctx, table, sch)
}

// InsertRows inserts rows positionally into a backing table.
func (db *DB) InsertRows(ctx context.Context, table string, rows [][]interface{}) error {
	return db.store.InsertRows(ctx, table, rows)
}

// DropTable removes a backing table and forgets its cached schema.
func (db *DB) DropTable(ctx context.Context, table string) error {
	db.mu.Lock()
	delete(db.schemas, table)
	db.mu.Unlock()
	return db.store.DropTable(ctx, table)
}

// Tables lists the store's user tables.
func (db *DB) Tables(ctx context.Context) ([]string, error) {
	return db.store.Tables(ctx)
}

func (db *DB) checkShared(other *DB) error {
	if db != other {
		return fmt.Errorf("joined frames must share one backing store")
	}
	return nil
}
