package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/kartikbazzad/lazyq/internal/config"
	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/logger"
	"github.com/kartikbazzad/lazyq/internal/schema"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()
	cfg := config.StoreConfig{
		DSN:          filepath.Join(t.TempDir(), "store.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	}
	s, err := OpenSQLite(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("OpenSQLite failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedAuction(t *testing.T, s *SQLite) {
	t.Helper()
	ctx := context.Background()
	sch := schema.MustNew(
		schema.Column{Name: "id", Type: schema.Numeric},
		schema.Column{Name: "bidderID", Type: schema.Numeric},
		schema.Column{Name: "bid", Type: schema.Numeric},
		schema.Column{Name: "item", Type: schema.Text},
	)
	if err := s.CreateTable(ctx, "auction", sch); err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	err := s.InsertRows(ctx, "auction", [][]interface{}{
		{1, 1, 10, "vase"},
		{2, 4, 20, "vase"},
		{3, 2, 35, "clock"},
	})
	if err != nil {
		t.Fatalf("InsertRows failed: %v", err)
	}
}

func TestQuery(t *testing.T) {
	s := newTestStore(t)
	seedAuction(t, s)
	ctx := context.Background()

	res, err := s.Query(ctx, `SELECT "id", "bid" FROM "auction" WHERE "bidderID" IN (1, 4) ORDER BY "id" ASC`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "id" || res.Columns[1] != "bid" {
		t.Fatalf("unexpected columns: %v", res.Columns)
	}
	if len(res.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.Rows))
	}
	if res.Rows[0][0] != int64(1) || res.Rows[1][0] != int64(2) {
		t.Fatalf("unexpected ids: %v, %v", res.Rows[0][0], res.Rows[1][0])
	}
}

func TestQueryEmptyResult(t *testing.T) {
	s := newTestStore(t)
	seedAuction(t, s)

	res, err := s.Query(context.Background(), `SELECT * FROM "auction" WHERE "bid" > 1000`)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(res.Rows) != 0 {
		t.Fatalf("got %d rows, want 0", len(res.Rows))
	}
	if len(res.Columns) != 4 {
		t.Fatalf("empty result lost its columns: %v", res.Columns)
	}
}

func TestQueryErrorMapping(t *testing.T) {
	s := newTestStore(t)
	seedAuction(t, s)
	ctx := context.Background()

	t.Run("MissingTable", func(t *testing.T) {
		_, err := s.Query(ctx, `SELECT * FROM "nope"`)
		if !errors.Is(err, lqerrors.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
		var te *lqerrors.TableError
		if !errors.As(err, &te) || te.Table != "nope" {
			t.Fatalf("error does not name the table: %v", err)
		}
	})

	t.Run("MissingColumn", func(t *testing.T) {
		// Schema drift between plan construction and execution lands here.
		_, err := s.Query(ctx, `SELECT "gone" FROM "auction"`)
		if !errors.Is(err, lqerrors.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
	})

	t.Run("ClosedStore", func(t *testing.T) {
		closed := newTestStore(t)
		closed.Close()
		if _, err := closed.Query(ctx, `SELECT 1`); !errors.Is(err, lqerrors.ErrStoreClosed) {
			t.Fatalf("expected ErrStoreClosed, got %v", err)
		}
	})

	t.Run("CanceledContext", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := s.Query(cctx, `SELECT * FROM "auction"`); err == nil {
			t.Fatal("expected error for canceled context")
		}
		// The pool must still serve subsequent queries.
		if _, err := s.Query(ctx, `SELECT * FROM "auction"`); err != nil {
			t.Fatalf("store unusable after canceled query: %v", err)
		}
	})
}

func TestDescribeTable(t *testing.T) {
	s := newTestStore(t)
	seedAuction(t, s)
	ctx := context.Background()

	t.Run("TypesAndOrder", func(t *testing.T) {
		sch, err := s.DescribeTable(ctx, "auction")
		if err != nil {
			t.Fatalf("DescribeTable failed: %v", err)
		}
		names := sch.Names()
		want := []string{"id", "bidderID", "bid", "item"}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("column %d: got %q, want %q", i, names[i], want[i])
			}
		}
		if typ, _ := sch.Type("bid"); typ != schema.Numeric {
			t.Fatalf("bid should be numeric, got %v", typ)
		}
		if typ, _ := sch.Type("item"); typ != schema.Text {
			t.Fatalf("item should be text, got %v", typ)
		}
	})

	t.Run("MissingTable", func(t *testing.T) {
		_, err := s.DescribeTable(ctx, "nope")
		if !errors.Is(err, lqerrors.ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
	})
}

func TestMapDeclType(t *testing.T) {
	cases := map[string]schema.ColumnType{
		"INTEGER":      schema.Numeric,
		"REAL":         schema.Numeric,
		"DOUBLE":       schema.Numeric,
		"NUMERIC":      schema.Numeric,
		"DECIMAL(9,2)": schema.Numeric,
		"BOOLEAN":      schema.Boolean,
		"TEXT":         schema.Text,
		"VARCHAR(32)":  schema.Text,
		"":             schema.Text,
	}
	for decl, want := range cases {
		if got := mapDeclType(decl); got != want {
			t.Fatalf("mapDeclType(%q) = %v, want %v", decl, got, want)
		}
	}
}

func TestSeedHelpers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedAuction(t, s)

	tables, err := s.Tables(ctx)
	if err != nil {
		t.Fatalf("Tables failed: %v", err)
	}
	if len(tables) != 1 || tables[0] != "auction" {
		t.Fatalf("got tables %v, want [auction]", tables)
	}

	if err := s.DropTable(ctx, "auction"); err != nil {
		t.Fatalf("DropTable failed: %v", err)
	}
	if _, err := s.DescribeTable(ctx, "auction"); !errors.Is(err, lqerrors.ErrTableNotFound) {
		t.Fatalf("expected ErrTableNotFound after drop, got %v", err)
	}
	// Dropping again is fine.
	if err := s.DropTable(ctx, "auction"); err != nil {
		t.Fatalf("second DropTable failed: %v", err)
	}
}
