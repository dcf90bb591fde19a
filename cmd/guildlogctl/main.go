// guildlogctl is the operator tool for the event log store. It queries
// the partition files with SQL, exports them to Parquet, reports per-user
// counts, and runs an immediate retention sweep.
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/term"

	"github.com/ayumu837/guildlog/internal/archive"
	"github.com/ayumu837/guildlog/internal/config"
	"github.com/ayumu837/guildlog/internal/console"
	"github.com/ayumu837/guildlog/internal/history"
	"github.com/ayumu837/guildlog/internal/logging"
	"github.com/ayumu837/guildlog/internal/logstore"
	"github.com/ayumu837/guildlog/internal/query"
	"github.com/ayumu837/guildlog/internal/record"
	"github.com/ayumu837/guildlog/internal/retention"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `usage: guildlogctl [flags] <command>

commands:
  console              interactive SQL shell (default on a terminal)
  sql <statement>      run one SQL statement and print the rows
  counts               per-user message counts as CSV (-guild, -channel)
  actions              voice action counts as CSV (-guild, -channel)
  history              full-history count report from a snapshot
                       (-guild, -snapshot, -channels, -after, -before)
  export               export a log to Parquet (-log, -out)
  sweep                delete expired partitions now

flags:
`

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	messageDir := flag.String("message-dir", "", "message log directory (overrides config)")
	voiceDir := flag.String("voice-dir", "", "voice log directory (overrides config)")
	guildID := flag.Int64("guild", 0, "guild id for counts/actions")
	channelID := flag.Int64("channel", 0, "channel id for counts/actions (0 = all)")
	logName := flag.String("log", "messages", "log to export: messages or voice")
	outPath := flag.String("out", "", "output file for export/history")
	snapshot := flag.String("snapshot", "", "history snapshot directory")
	channels := flag.String("channels", "", "channels for history, id:name comma-separated")
	after := flag.String("after", "", "history start date, YYYY/MM/DD or YYYY-MM-DD")
	before := flag.String("before", "", "history end date, YYYY/MM/DD or YYYY-MM-DD")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(0)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg = config.DefaultConfig()
		} else {
			log.Fatalf("Load config: %v", err)
		}
	}
	if *messageDir != "" {
		cfg.MessageLog.Dir = *messageDir
	}
	if *voiceDir != "" {
		cfg.VoiceLog.Dir = *voiceDir
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)

	cmd := flag.Arg(0)
	if cmd == "" {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			cmd = "console"
		} else {
			flag.Usage()
			os.Exit(2)
		}
	}

	ctx := context.Background()

	switch cmd {
	case "console":
		svc := openQuery(cfg)
		defer svc.Close()
		console.New(svc).Run(ctx)

	case "sql":
		if flag.NArg() < 2 {
			log.Fatal("sql: statement required")
		}
		svc := openQuery(cfg)
		defer svc.Close()
		runSQL(ctx, svc, flag.Arg(1))

	case "counts":
		if *guildID == 0 {
			log.Fatal("counts: -guild required")
		}
		svc := openQuery(cfg)
		defer svc.Close()
		runCounts(ctx, svc, *guildID, *channelID)

	case "actions":
		if *guildID == 0 {
			log.Fatal("actions: -guild required")
		}
		svc := openQuery(cfg)
		defer svc.Close()
		runActions(ctx, svc, *guildID, *channelID)

	case "history":
		if *guildID == 0 {
			log.Fatal("history: -guild required")
		}
		if *snapshot == "" {
			log.Fatal("history: -snapshot required")
		}
		runHistory(ctx, cfg, *guildID, *snapshot, *channels, *after, *before, *outPath)

	case "export":
		runExport(cfg, *logName, *outPath)

	case "sweep":
		runSweep(cfg)

	default:
		flag.Usage()
		os.Exit(2)
	}
}

func openQuery(cfg *config.Config) *query.Service {
	svc, err := query.New(query.Options{
		MessageRoot: cfg.MessageLog.Dir,
		VoiceRoot:   cfg.VoiceLog.Dir,
		MemoryLimit: cfg.Query.MemoryLimit,
		MaxRows:     cfg.Query.MaxRows,
		Timeout:     cfg.Query.Timeout(),
	})
	if err != nil {
		log.Fatalf("Open query service: %v", err)
	}
	return svc
}

func runSQL(ctx context.Context, svc *query.Service, stmt string) {
	rows, err := svc.ExecuteSQL(ctx, stmt)
	if err != nil {
		log.Fatalf("Query: %v", err)
	}
	for _, row := range rows {
		fmt.Println(row)
	}
	fmt.Fprintf(os.Stderr, "%d row(s)\n", len(rows))
}

func runCounts(ctx context.Context, svc *query.Service, guildID, channelID int64) {
	counts, err := svc.UserCounts(ctx, query.Scope{GuildID: guildID, ChannelID: channelID})
	if err != nil {
		log.Fatalf("Counts: %v", err)
	}

	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"user_id", "messages"})
	for _, c := range counts {
		w.Write([]string{
			strconv.FormatInt(c.UserID, 10),
			strconv.FormatInt(c.Messages, 10),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("Write CSV: %v", err)
	}
}

func runActions(ctx context.Context, svc *query.Service, guildID, channelID int64) {
	counts, err := svc.ActionCounts(ctx, query.Scope{GuildID: guildID, ChannelID: channelID})
	if err != nil {
		log.Fatalf("Actions: %v", err)
	}

	w := csv.NewWriter(os.Stdout)
	w.Write([]string{"action", "count"})
	for _, c := range counts {
		w.Write([]string{c.Action, strconv.FormatInt(c.Count, 10)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		log.Fatalf("Write CSV: %v", err)
	}
}

func runHistory(ctx context.Context, cfg *config.Config, guildID int64, snapshot, channels, after, before, outPath string) {
	schedule, err := cfg.Sweep.Schedule()
	if err != nil {
		log.Fatalf("Sweep schedule: %v", err)
	}

	selected, err := parseChannels(channels)
	if err != nil {
		log.Fatalf("Channels: %v", err)
	}

	counter := history.NewCounter(history.NewFileSource(snapshot), schedule.Loc)
	result, err := counter.Count(ctx, history.CountRequest{
		GuildID:  guildID,
		Channels: selected,
		After:    after,
		Before:   before,
	})
	if err != nil {
		log.Fatalf("Count: %v", err)
	}

	if outPath == "" {
		outPath = result.Filename()
	}
	f, err := os.Create(outPath)
	if err != nil {
		log.Fatalf("Create %s: %v", outPath, err)
	}
	if err := result.WriteCSV(f); err != nil {
		f.Close()
		log.Fatalf("Write CSV: %v", err)
	}
	if err := f.Close(); err != nil {
		log.Fatalf("Close %s: %v", outPath, err)
	}

	fmt.Printf("%s\n%s\n", result.Summary(), outPath)
}

// parseChannels parses "20:general,21" into channel selectors; a missing
// name falls back to the id.
func parseChannels(s string) ([]history.Channel, error) {
	if s == "" {
		return nil, errors.New("at least one channel required (-channels id:name,...)")
	}

	var selected []history.Channel
	for _, part := range strings.Split(s, ",") {
		idStr, name, _ := strings.Cut(strings.TrimSpace(part), ":")
		id, err := strconv.ParseInt(idStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad channel %q: %w", part, err)
		}
		if name == "" {
			name = idStr
		}
		selected = append(selected, history.Channel{ID: id, Name: name})
	}
	return selected, nil
}

func runExport(cfg *config.Config, logName, outPath string) {
	opts := archive.Options{
		Compression:      archive.ParseCompressionType(cfg.Archive.Compression),
		CompressionLevel: cfg.Archive.Level,
	}

	var (
		rows int64
		err  error
	)
	switch logName {
	case "messages":
		if outPath == "" {
			outPath = defaultExportPath("messages")
		}
		rows, err = archive.ExportMessages(cfg.MessageLog.Dir, outPath, opts)
	case "voice":
		if outPath == "" {
			outPath = defaultExportPath("voice")
		}
		rows, err = archive.ExportVoice(cfg.VoiceLog.Dir, outPath, opts)
	default:
		log.Fatalf("export: unknown log %q (want messages or voice)", logName)
	}
	if err != nil {
		log.Fatalf("Export: %v", err)
	}
	fmt.Printf("exported %d rows to %s\n", rows, outPath)
}

func defaultExportPath(logName string) string {
	return fmt.Sprintf("%s_%s.parquet", logName, time.Now().Format("20060102"))
}

func runSweep(cfg *config.Config) {
	schedule, err := cfg.Sweep.Schedule()
	if err != nil {
		log.Fatalf("Sweep schedule: %v", err)
	}

	messages := logstore.New[record.Message]("messages",
		cfg.MessageLog.Dir, logstore.LifetimeFromDays(cfg.MessageLog.LifetimeDays))
	voice := logstore.New[record.VoiceState]("voice",
		cfg.VoiceLog.Dir, logstore.LifetimeFromDays(cfg.VoiceLog.LifetimeDays))

	today := time.Now().In(schedule.Loc)
	for _, store := range []retention.Sweeper{messages, voice} {
		result := store.SweepExpired(today)
		fmt.Printf("%s: deleted %d, skipped %d, errors %d\n",
			store.Name(), len(result.Deleted), result.Skipped, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Fprintf(os.Stderr, "  %v\n", e)
		}
	}
}
