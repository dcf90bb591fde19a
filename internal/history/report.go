package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/DataDog/sketches-go/ddsketch"

	"github.com/ayumu837/guildlog/internal/errors"
)

// WriteCSV renders the report as a downloadable table: a header row
// `user,<channel names...>`, then one row per member in result order.
func (r *Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(r.Channels)+1)
	header = append(header, "user")
	for _, ch := range r.Channels {
		header = append(header, ch.Name)
	}
	if err := cw.Write(header); err != nil {
		return errors.Wrap(err, "write csv header")
	}

	row := make([]string, len(header))
	for _, rr := range r.Rows {
		row[0] = rr.Member.DisplayName
		for i, n := range rr.Counts {
			row[i+1] = strconv.Itoa(n)
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write csv row")
		}
	}

	cw.Flush()
	return cw.Error()
}

// Filename returns the report's download name, e.g.
// message_history_count_20240101_20240610.csv.
func (r *Result) Filename() string {
	name := fmt.Sprintf("message_history_count_%s_%s.csv",
		r.After.Format("2006-01-02"), r.Before.Format("2006-01-02"))
	name = strings.ReplaceAll(name, "-", "")
	return strings.ReplaceAll(name, "/", "")
}

// Summary returns a short textual description of the report: the period,
// totals, and the spread of the first channel's per-user counts.
func (r *Result) Summary() string {
	total := 0
	for _, row := range r.Rows {
		for _, n := range row.Counts {
			total += n
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "period: %s ~ %s",
		r.After.Format("2006-01-02"), r.Before.Format("2006-01-02"))
	fmt.Fprintf(&b, ", users: %d, messages: %d", len(r.Rows), total)

	if quantiles, ok := r.firstChannelQuantiles(); ok {
		fmt.Fprintf(&b, ", %s per user p50/p90/p99: %.0f/%.0f/%.0f",
			r.Channels[0].Name, quantiles[0], quantiles[1], quantiles[2])
	}

	return b.String()
}

// firstChannelQuantiles sketches the distribution of the first channel's
// per-user counts.
func (r *Result) firstChannelQuantiles() ([3]float64, bool) {
	if len(r.Rows) == 0 {
		return [3]float64{}, false
	}

	sketch, err := ddsketch.NewDefaultDDSketch(0.01)
	if err != nil {
		return [3]float64{}, false
	}

	for _, row := range r.Rows {
		if err := sketch.Add(float64(row.Counts[0])); err != nil {
			return [3]float64{}, false
		}
	}

	p50, err1 := sketch.GetValueAtQuantile(0.50)
	p90, err2 := sketch.GetValueAtQuantile(0.90)
	p99, err3 := sketch.GetValueAtQuantile(0.99)
	if err1 != nil || err2 != nil || err3 != nil {
		return [3]float64{}, false
	}

	return [3]float64{p50, p90, p99}, true
}
