package plan

import (
	"errors"
	"testing"

	lqerrors "github.com/kartikbazzad/lazyq/internal/errors"
	"github.com/kartikbazzad/lazyq/internal/schema"
)

func auctionScan(t *testing.T) *Node {
	t.Helper()
	sch := schema.MustNew(
		schema.Column{Name: "id", Type: schema.Numeric},
		schema.Column{Name: "bidderID", Type: schema.Numeric},
		schema.Column{Name: "bid", Type: schema.Numeric},
		schema.Column{Name: "item", Type: schema.Text},
	)
	return NewScan("auction", sch)
}

func TestAppendReturnsNewNode(t *testing.T) {
	scan := auctionScan(t)
	filtered, err := scan.Filter(Gt(Col("bid"), Lit(10)))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}
	if filtered == scan {
		t.Fatal("Filter returned the receiver")
	}
	if filtered.Parent() != scan {
		t.Fatal("child does not reference parent")
	}
	if scan.Kind() != KindScan || filtered.Kind() != KindFilter {
		t.Fatalf("unexpected kinds: %v, %v", scan.Kind(), filtered.Kind())
	}
}

func TestColumnValidationAtAppendTime(t *testing.T) {
	scan := auctionScan(t)

	t.Run("FilterUnknownColumn", func(t *testing.T) {
		_, err := scan.Filter(Eq(Col("nope"), Lit(1)))
		if !errors.Is(err, lqerrors.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
	})

	t.Run("FilterAfterProjectDrop", func(t *testing.T) {
		// Every operation referencing a column removed by an earlier
		// projection must fail when appended.
		projected, err := scan.Project("bid", "id")
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		_, err = projected.Filter(Eq(Col("bidderID"), Lit(1)))
		if !errors.Is(err, lqerrors.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
		var ce *lqerrors.ColumnError
		if !errors.As(err, &ce) || ce.Column != "bidderID" {
			t.Fatalf("error does not name the column: %v", err)
		}
	})

	t.Run("SortAfterProjectDrop", func(t *testing.T) {
		projected, err := scan.Project("bid")
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		if _, err := projected.Sort(Asc("id")); !errors.Is(err, lqerrors.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
	})

	t.Run("AggregateAfterGroupConsumed", func(t *testing.T) {
		agged, err := scan.GroupAggregate([]string{"bidderID"}, Min("bid", "smallest"))
		if err != nil {
			t.Fatalf("GroupAggregate failed: %v", err)
		}
		// "item" was consumed by the aggregation; it is gone downstream.
		_, err = agged.Filter(Eq(Col("item"), Lit("vase")))
		if !errors.Is(err, lqerrors.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
	})
}

func TestProjectOutputSchema(t *testing.T) {
	scan := auctionScan(t)
	projected, err := scan.Project("bid", "bidderID", "id")
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	names := projected.OutputSchema().Names()
	want := []string{"bid", "bidderID", "id"}
	if len(names) != len(want) {
		t.Fatalf("got %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("column %d: got %q, want %q", i, names[i], want[i])
		}
	}
}

func TestGroupAggregate(t *testing.T) {
	scan := auctionScan(t)

	t.Run("OutputSchema", func(t *testing.T) {
		agged, err := scan.GroupAggregate([]string{"bidderID"},
			Min("bid", "smallestBid"), Max("bid", "largestBid"))
		if err != nil {
			t.Fatalf("GroupAggregate failed: %v", err)
		}
		names := agged.OutputSchema().Names()
		want := []string{"bidderID", "smallestBid", "largestBid"}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("column %d: got %q, want %q", i, names[i], want[i])
			}
		}
		if !agged.AfterAggregate() {
			t.Fatal("expected AfterAggregate after GroupAggregate")
		}
	})

	t.Run("SumOverTextRejected", func(t *testing.T) {
		_, err := scan.GroupAggregate([]string{"bidderID"}, Sum("item", "s"))
		if !errors.Is(err, lqerrors.ErrInvalidAggregate) {
			t.Fatalf("expected ErrInvalidAggregate, got %v", err)
		}
	})

	t.Run("MinOverTextAllowed", func(t *testing.T) {
		agged, err := scan.GroupAggregate([]string{"bidderID"}, Min("item", "first"))
		if err != nil {
			t.Fatalf("GroupAggregate failed: %v", err)
		}
		typ, _ := agged.OutputSchema().Type("first")
		if typ != schema.Text {
			t.Fatalf("min over text should stay text, got %v", typ)
		}
	})

	t.Run("CountWithoutColumn", func(t *testing.T) {
		agged, err := scan.GroupAggregate([]string{"bidderID"}, Count("", "n"))
		if err != nil {
			t.Fatalf("GroupAggregate failed: %v", err)
		}
		typ, _ := agged.OutputSchema().Type("n")
		if typ != schema.Numeric {
			t.Fatalf("count should be numeric, got %v", typ)
		}
	})

	t.Run("DuplicateOutputName", func(t *testing.T) {
		_, err := scan.GroupAggregate([]string{"bidderID"},
			Min("bid", "x"), Max("bid", "x"))
		if !errors.Is(err, lqerrors.ErrDuplicateColumn) {
			t.Fatalf("expected ErrDuplicateColumn, got %v", err)
		}
	})

	t.Run("MissingOutputName", func(t *testing.T) {
		_, err := scan.GroupAggregate([]string{"bidderID"}, AggregateSpec{Func: AggMin, Column: "bid"})
		if !errors.Is(err, lqerrors.ErrInvalidAggregate) {
			t.Fatalf("expected ErrInvalidAggregate, got %v", err)
		}
	})
}

func TestJoin(t *testing.T) {
	users := NewScan("users", schema.MustNew(
		schema.Column{Name: "uid", Type: schema.Numeric},
		schema.Column{Name: "name", Type: schema.Text},
	))
	orders := NewScan("orders", schema.MustNew(
		schema.Column{Name: "uid", Type: schema.Numeric},
		schema.Column{Name: "amount", Type: schema.Numeric},
	))

	t.Run("OutputSchema", func(t *testing.T) {
		joined, err := users.Join(orders, []string{"uid"}, JoinInner)
		if err != nil {
			t.Fatalf("Join failed: %v", err)
		}
		names := joined.OutputSchema().Names()
		want := []string{"uid", "name", "amount"}
		for i := range want {
			if names[i] != want[i] {
				t.Fatalf("column %d: got %q, want %q", i, names[i], want[i])
			}
		}
	})

	t.Run("MissingKeyOnRight", func(t *testing.T) {
		_, err := users.Join(orders, []string{"name"}, JoinInner)
		if !errors.Is(err, lqerrors.ErrColumnNotFound) {
			t.Fatalf("expected ErrColumnNotFound, got %v", err)
		}
	})

	t.Run("CollidingNonKeyColumns", func(t *testing.T) {
		dupes := NewScan("dupes", schema.MustNew(
			schema.Column{Name: "uid", Type: schema.Numeric},
			schema.Column{Name: "name", Type: schema.Text},
		))
		_, err := users.Join(dupes, []string{"uid"}, JoinInner)
		if !errors.Is(err, lqerrors.ErrDuplicateColumn) {
			t.Fatalf("expected ErrDuplicateColumn, got %v", err)
		}
	})
}

func TestBranchingSharesAncestor(t *testing.T) {
	scan := auctionScan(t)
	base, err := scan.Filter(Gt(Col("bid"), Lit(5)))
	if err != nil {
		t.Fatalf("Filter failed: %v", err)
	}

	left, err := base.Project("bid", "id")
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	right, err := base.Sort(Desc("bid"))
	if err != nil {
		t.Fatalf("Sort failed: %v", err)
	}

	if left.Parent() != base || right.Parent() != base {
		t.Fatal("branches do not share the ancestor node")
	}

	rightFP := right.Fingerprint()
	// Extending the left branch must not disturb the right branch.
	if _, err := left.Sort(Asc("id")); err != nil {
		t.Fatalf("Sort failed: %v", err)
	}
	if right.Fingerprint() != rightFP {
		t.Fatal("extending one branch changed the other")
	}
	if base.Kind() != KindFilter {
		t.Fatal("ancestor node mutated")
	}
}

func TestEmptyOperations(t *testing.T) {
	scan := auctionScan(t)

	if _, err := scan.Project(); !errors.Is(err, lqerrors.ErrEmptyOperation) {
		t.Fatalf("Project(): expected ErrEmptyOperation, got %v", err)
	}
	if _, err := scan.Sort(); !errors.Is(err, lqerrors.ErrEmptyOperation) {
		t.Fatalf("Sort(): expected ErrEmptyOperation, got %v", err)
	}
	if _, err := scan.Filter(nil); !errors.Is(err, lqerrors.ErrEmptyOperation) {
		t.Fatalf("Filter(nil): expected ErrEmptyOperation, got %v", err)
	}
	if _, err := scan.GroupAggregate([]string{"bidderID"}); !errors.Is(err, lqerrors.ErrEmptyOperation) {
		t.Fatalf("GroupAggregate(): expected ErrEmptyOperation, got %v", err)
	}
	if _, err := scan.Limit(-1); err == nil {
		t.Fatal("Limit(-1): expected error")
	}
}

func TestChainOrder(t *testing.T) {
	scan := auctionScan(t)
	p, _ := scan.Filter(Gt(Col("bid"), Lit(1)))
	p, _ = p.Project("bid")
	chain := p.Chain()
	kinds := []Kind{KindScan, KindFilter, KindProject}
	if len(chain) != len(kinds) {
		t.Fatalf("chain length %d, want %d", len(chain), len(kinds))
	}
	for i, k := range kinds {
		if chain[i].Kind() != k {
			t.Fatalf("chain[%d] = %v, want %v", i, chain[i].Kind(), k)
		}
	}
}

func TestFingerprintStability(t *testing.T) {
	build := func() *Node {
		scan := auctionScan(t)
		p, _ := scan.Filter(InList(Col("bidderID"), 1, 4))
		p, _ = p.Project("bid", "bidderID", "id")
		p, _ = p.Sort(Asc("bidderID"), Asc("id"))
		return p
	}
	a, b := build(), build()
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("equal plans produced different fingerprints:\n%s\n%s",
			a.Fingerprint(), b.Fingerprint())
	}
}
