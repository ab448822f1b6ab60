package shell

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kartikbazzad/lazyq"
	"github.com/kartikbazzad/lazyq/cmd/lazyqsh/commands"
	"github.com/kartikbazzad/lazyq/cmd/lazyqsh/parser"
)

func newTestShell(t *testing.T) *Shell {
	t.Helper()
	db, err := lazyq.Open(filepath.Join(t.TempDir(), "shell.db"), lazyq.WithLogOutput(io.Discard))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	ctx := context.Background()
	err = db.CreateTable(ctx, "auction",
		lazyq.Column{Name: "id", Type: lazyq.Numeric},
		lazyq.Column{Name: "bidderID", Type: lazyq.Numeric},
		lazyq.Column{Name: "bid", Type: lazyq.Numeric},
	)
	if err != nil {
		t.Fatalf("CreateTable failed: %v", err)
	}
	err = db.InsertRows(ctx, "auction", [][]interface{}{
		{1, 1, 10}, {2, 4, 20}, {3, 2, 35},
	})
	if err != nil {
		t.Fatalf("InsertRows failed: %v", err)
	}

	sh := NewShell(db)
	t.Cleanup(func() { sh.Close() })
	return sh
}

func exec(t *testing.T, sh *Shell, line string) commands.Result {
	t.Helper()
	cmd, err := parser.Parse(line)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", line, err)
	}
	return sh.Execute(context.Background(), cmd)
}

func output(res commands.Result) string {
	var buf bytes.Buffer
	res.Print(&buf)
	return buf.String()
}

func TestShellQueryFlow(t *testing.T) {
	sh := newTestShell(t)

	for _, line := range []string{
		".use auction",
		".filter bidderID in 1,4",
		".project bid,bidderID,id",
		".sort bidderID,id",
	} {
		res := exec(t, sh, line)
		if _, ok := res.(commands.ErrorResult); ok {
			t.Fatalf("%q failed: %s", line, output(res))
		}
	}

	sqlOut := output(exec(t, sh, ".sql"))
	want := `SELECT "bid", "bidderID", "id" FROM "auction" WHERE "bidderID" IN (1, 4) ORDER BY "bidderID" ASC, "id" ASC`
	if strings.TrimSpace(sqlOut) != want {
		t.Fatalf(".sql got:\n%s\nwant:\n%s", sqlOut, want)
	}

	runOut := output(exec(t, sh, ".run"))
	if !strings.Contains(runOut, "(2 row(s))") {
		t.Fatalf(".run output:\n%s", runOut)
	}
}

func TestShellAggregation(t *testing.T) {
	sh := newTestShell(t)
	exec(t, sh, ".use auction")

	res := exec(t, sh, ".agg bidderID min(bid):smallest count(*):n")
	if _, ok := res.(commands.ErrorResult); ok {
		t.Fatalf(".agg failed: %s", output(res))
	}
	out := output(exec(t, sh, ".run"))
	if !strings.Contains(out, "smallest") || !strings.Contains(out, "(3 row(s))") {
		t.Fatalf(".run output:\n%s", out)
	}
}

func TestShellPreview(t *testing.T) {
	sh := newTestShell(t)
	exec(t, sh, ".use auction")
	exec(t, sh, ".sort id")

	out := output(exec(t, sh, ".preview 2"))
	if !strings.Contains(out, "(2 row(s))") {
		t.Fatalf(".preview output:\n%s", out)
	}

	// Preview must not bake the limit into the query.
	out = output(exec(t, sh, ".run"))
	if !strings.Contains(out, "(3 row(s))") {
		t.Fatalf(".run after preview:\n%s", out)
	}
}

func TestShellErrors(t *testing.T) {
	sh := newTestShell(t)

	if _, ok := exec(t, sh, ".run").(commands.ErrorResult); !ok {
		t.Fatal(".run without .use should fail")
	}
	if _, ok := exec(t, sh, ".use missing").(commands.ErrorResult); !ok {
		t.Fatal(".use on a missing table should fail")
	}

	exec(t, sh, ".use auction")
	if _, ok := exec(t, sh, ".filter nope = 1").(commands.ErrorResult); !ok {
		t.Fatal("filter on unknown column should fail")
	}
	if _, ok := exec(t, sh, ".bogus").(commands.ErrorResult); !ok {
		t.Fatal("unknown command should fail")
	}
}

func TestShellReset(t *testing.T) {
	sh := newTestShell(t)
	exec(t, sh, ".use auction")
	exec(t, sh, ".filter bid > 15")

	exec(t, sh, ".reset")
	out := output(exec(t, sh, ".run"))
	if !strings.Contains(out, "(3 row(s))") {
		t.Fatalf("reset did not drop the chain:\n%s", out)
	}
}
