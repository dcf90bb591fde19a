package console

import (
	"context"
	"strings"
	"testing"

	"github.com/c-bata/go-prompt"

	"github.com/ayumu837/guildlog/internal/query"
)

func testConsole(t *testing.T) (*Console, *strings.Builder) {
	t.Helper()

	svc, err := query.New(query.DefaultOptions())
	if err != nil {
		t.Fatalf("query.New: %v", err)
	}
	t.Cleanup(func() { svc.Close() })

	c := New(svc)
	var buf strings.Builder
	c.out = &buf
	return c, &buf
}

func TestExecute(t *testing.T) {
	c, buf := testConsole(t)

	c.execute(context.Background(), "SELECT 1 AS a, 'x' AS b")

	out := buf.String()
	for _, want := range []string{"a", "b", "1", "x", "1 row(s)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestExecuteError(t *testing.T) {
	c, buf := testConsole(t)

	c.execute(context.Background(), "SELEKT nonsense")

	if !strings.Contains(buf.String(), "error:") {
		t.Errorf("expected error output, got:\n%s", buf.String())
	}
}

func TestExecuteBlankAndExit(t *testing.T) {
	c, buf := testConsole(t)

	c.execute(context.Background(), "   ")
	c.execute(context.Background(), "exit")

	if buf.Len() != 0 {
		t.Errorf("expected no output, got:\n%s", buf.String())
	}
}

func TestPrintRowsEmpty(t *testing.T) {
	c, buf := testConsole(t)

	c.printRows(nil)

	if !strings.Contains(buf.String(), "(no rows)") {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestCompleter(t *testing.T) {
	doc := prompt.NewDocument()
	if got := completer(*doc); got != nil {
		t.Errorf("empty input should not suggest, got %v", got)
	}
}
