// Package console is the interactive SQL shell of the operator tool. It
// runs statements through the query service and prints the rows as an
// aligned table.
package console

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/c-bata/go-prompt"

	"github.com/ayumu837/guildlog/internal/logging"
	"github.com/ayumu837/guildlog/internal/query"
)

// completions offered on top of whatever the user already typed. The
// messages and voice views are created by the query service.
var suggestions = []prompt.Suggest{
	{Text: "SELECT", Description: "query rows"},
	{Text: "FROM", Description: ""},
	{Text: "WHERE", Description: ""},
	{Text: "GROUP BY", Description: ""},
	{Text: "ORDER BY", Description: ""},
	{Text: "LIMIT", Description: ""},
	{Text: "COUNT(*)", Description: ""},
	{Text: "messages", Description: "message log view"},
	{Text: "voice", Description: "voice log view"},
	{Text: "exit", Description: "leave the console"},
}

// Console is an interactive SQL session.
type Console struct {
	svc *query.Service
	out io.Writer
	log *slog.Logger
}

// New creates a console over the query service.
func New(svc *query.Service) *Console {
	return &Console{
		svc: svc,
		out: os.Stdout,
		log: logging.Component("console"),
	}
}

// Run reads statements until exit or EOF.
func (c *Console) Run(ctx context.Context) {
	fmt.Fprintln(c.out, "guildlog console - tables: messages, voice - type exit to leave")

	p := prompt.New(
		func(in string) { c.execute(ctx, in) },
		completer,
		prompt.OptionPrefix("guildlog> "),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			s := strings.TrimSpace(strings.ToLower(in))
			return breakline && (s == "exit" || s == "quit")
		}),
	)
	p.Run()
}

func (c *Console) execute(ctx context.Context, in string) {
	stmt := strings.TrimSpace(in)
	switch strings.ToLower(stmt) {
	case "", "exit", "quit":
		return
	}

	rows, err := c.svc.ExecuteSQL(ctx, stmt)
	if err != nil {
		fmt.Fprintf(c.out, "error: %v\n", err)
		return
	}

	c.printRows(rows)
}

// printRows renders generic row maps as an aligned table with a stable
// column order.
func (c *Console) printRows(rows []map[string]interface{}) {
	if len(rows) == 0 {
		fmt.Fprintln(c.out, "(no rows)")
		return
	}

	columns := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))

	cells := make([]string, len(columns))
	for _, row := range rows {
		for i, col := range columns {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()

	fmt.Fprintf(c.out, "%d row(s)\n", len(rows))
}

func completer(d prompt.Document) []prompt.Suggest {
	word := d.GetWordBeforeCursor()
	if word == "" {
		return nil
	}
	return prompt.FilterHasPrefix(suggestions, word, true)
}
