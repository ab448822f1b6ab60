// Package exec materializes plans against a backing store. Materialization
// is the only place the engine performs I/O; everything upstream of it is
// pure in-memory plan manipulation.
package exec

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/kartikbazzad/lazyq/internal/config"
	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/logger"
	"github.com/kartikbazzad/lazyq/internal/metrics"
	"github.com/kartikbazzad/lazyq/internal/plan"
	"github.com/kartikbazzad/lazyq/internal/sqlgen"
	"github.com/kartikbazzad/lazyq/internal/store"
)

// Executor translates plans and runs them against the store. Queries are
// read-only, so a transient connection failure may be retried without
// double-applying anything; the retry bound and backoff come from config.
type Executor struct {
	store      store.Store
	translator *sqlgen.Translator
	cfg        config.ExecConfig
	logger     *logger.Logger
	metrics    *metrics.Exporter
	classifier *lqerrors.Classifier
	retry      *lqerrors.RetryController
	queries    *ants.Pool // bounds in-flight queries (nil = unlimited)
}

// New creates an executor over the given store and translator.
func New(st store.Store, tr *sqlgen.Translator, cfg config.ExecConfig, log *logger.Logger, m *metrics.Exporter) (*Executor, error) {
	e := &Executor{
		store:      st,
		translator: tr,
		cfg:        cfg,
		logger:     log,
		metrics:    m,
		classifier: lqerrors.NewClassifier(),
		retry:      lqerrors.NewRetryController(cfg.RetryInitialDelay, cfg.RetryMaxDelay, cfg.MaxRetries),
	}
	if cfg.MaxConcurrentQueries > 0 {
		pool, err := ants.NewPool(cfg.MaxConcurrentQueries,
			ants.WithNonblocking(true),
			ants.WithPanicHandler(func(v interface{}) {
				log.Error("query worker panic: %v", v)
			}))
		if err != nil {
			return nil, fmt.Errorf("query pool: %w", err)
		}
		e.queries = pool
	}
	return e, nil
}

// Execute translates and runs the plan exactly once per attempt, returning
// the store's rows in store order. op names the caller-visible operation
// ("materialize", "preview") for logs and metrics.
func (e *Executor) Execute(ctx context.Context, op string, p *plan.Node) (*store.Result, error) {
	queryID := uuid.NewString()[:8]
	start := time.Now()

	query, err := e.translator.Translate(p)
	if err != nil {
		e.record(op, "translation_error", start, err)
		return nil, err
	}

	if e.cfg.QueryTimeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, e.cfg.QueryTimeout)
			defer cancel()
		}
	}

	e.logger.Debug("query %s %s: %s", queryID, op, query)

	var result *store.Result
	var runErr error
	if e.queries != nil {
		done := make(chan struct{})
		submitErr := e.queries.Submit(func() {
			defer close(done)
			result, runErr = e.run(ctx, query)
		})
		if submitErr != nil {
			err := fmt.Errorf("%w: %v", lqerrors.ErrTooManyQueries, submitErr)
			e.record(op, "rejected", start, err)
			return nil, err
		}
		<-done
	} else {
		result, runErr = e.run(ctx, query)
	}

	if runErr != nil {
		e.record(op, "error", start, runErr)
		e.logger.Warn("query %s %s failed: %v", queryID, op, runErr)
		return nil, runErr
	}

	e.record(op, "ok", start, nil)
	e.logger.Debug("query %s %s: %d rows in %s", queryID, op, len(result.Rows), time.Since(start))
	return result, nil
}

// run performs the attempt loop. Only transient/network failures are
// retried; a deadline expiry is reported as Timeout and never retried (the
// store has already discarded the connection that carried the query).
func (e *Executor) run(ctx context.Context, query string) (*store.Result, error) {
	var result *store.Result
	attempts := 0
	err := e.retry.Retry(func() error {
		if attempts > 0 {
			e.metrics.RecordRetry()
		}
		attempts++
		r, qerr := e.store.Query(ctx, query)
		if qerr != nil {
			return qerr
		}
		result = r
		return nil
	}, e.classifier)

	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, lqerrors.ErrTimeout) {
			err = fmt.Errorf("%w: %v", lqerrors.ErrTimeout, err)
		}
		if errors.Is(err, lqerrors.ErrConnectionFailure) {
			err = fmt.Errorf("after %d attempt(s): %w", attempts, err)
		}
		e.metrics.RecordError(e.classifier.Classify(err))
		return nil, err
	}
	return result, nil
}

func (e *Executor) record(op, status string, start time.Time, err error) {
	e.metrics.RecordQuery(op, status, time.Since(start))
	if err != nil && status == "translation_error" {
		e.metrics.RecordError(e.classifier.Classify(err))
	}
	if hits, misses := e.translator.CacheStats(); hits+misses > 0 {
		e.metrics.SetCacheStats(hits, misses)
	}
}

// Close releases the query worker pool. The store is owned by the caller.
func (e *Executor) Close() {
	if e.queries != nil {
		_ = e.queries.ReleaseTimeout(3 * time.Second)
		e.queries = nil
	}
}
