// guildlogd is the event log daemon. It reads guild events from the feed,
// appends them to the partitioned message and voice logs, and runs the
// daily retention sweep.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ayumu837/guildlog/internal/config"
	"github.com/ayumu837/guildlog/internal/gateway"
	"github.com/ayumu837/guildlog/internal/logging"
	"github.com/ayumu837/guildlog/internal/logstore"
	"github.com/ayumu837/guildlog/internal/record"
	"github.com/ayumu837/guildlog/internal/retention"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfgPath := flag.String("config", "config.yaml", "config file path")
	feedAddr := flag.String("feed", "", "feed address (overrides config)")
	level := flag.String("level", "", "log level (overrides config)")
	messageDir := flag.String("message-dir", "", "message log directory (overrides config)")
	voiceDir := flag.String("voice-dir", "", "voice log directory (overrides config)")
	flag.Parse()

	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	log.Printf("guildlogd %s starting...", Version)

	// Load config
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("No config file found, using defaults")
			cfg = config.DefaultConfig()
		} else {
			log.Fatalf("Load config: %v", err)
		}
	}

	// CLI overrides
	if *feedAddr != "" {
		cfg.Feed.Addr = *feedAddr
	}
	if *level != "" {
		cfg.Logging.Level = *level
	}
	if *messageDir != "" {
		cfg.MessageLog.Dir = *messageDir
	}
	if *voiceDir != "" {
		cfg.VoiceLog.Dir = *voiceDir
	}

	logging.Init(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.JSON)

	// Parsed once at startup; a bad time-of-day or timezone is fatal here.
	schedule, err := cfg.Sweep.Schedule()
	if err != nil {
		log.Fatalf("Sweep schedule: %v", err)
	}

	// =========================================================================
	// Event Logs
	// =========================================================================

	messages := logstore.New[record.Message]("messages",
		cfg.MessageLog.Dir, logstore.LifetimeFromDays(cfg.MessageLog.LifetimeDays))
	voice := logstore.New[record.VoiceState]("voice",
		cfg.VoiceLog.Dir, logstore.LifetimeFromDays(cfg.VoiceLog.LifetimeDays))

	log.Printf("Message log: %s (lifetime %.1f days)", cfg.MessageLog.Dir, cfg.MessageLog.LifetimeDays)
	log.Printf("Voice log: %s (lifetime %.1f days)", cfg.VoiceLog.Dir, cfg.VoiceLog.LifetimeDays)

	// =========================================================================
	// Retention Sweep
	// =========================================================================

	sched := retention.NewScheduler(schedule, messages, voice)
	if err := sched.Start(); err != nil {
		log.Fatalf("Start retention: %v", err)
	}

	log.Printf("Retention sweep daily at %02d:%02d %s",
		schedule.Hour, schedule.Minute, schedule.Loc)

	// =========================================================================
	// Event Feed
	// =========================================================================

	ingestor := gateway.NewIngestor(messages, voice, schedule.Loc)
	feed := gateway.NewFeed(ingestor)

	ctx, cancel := context.WithCancel(context.Background())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Shutting down...")
		cancel()
		if cfg.Feed.Addr == "-" {
			// Unblock the feed's pending stdin read.
			os.Stdin.Close()
		}
	}()

	switch {
	case cfg.Feed.Addr == "-":
		log.Printf("Reading feed from stdin")
		err = feed.Run(ctx, os.Stdin)

	case strings.HasPrefix(cfg.Feed.Addr, "unix://"):
		path := strings.TrimPrefix(cfg.Feed.Addr, "unix://")
		os.Remove(path)

		ln, lerr := net.Listen("unix", path)
		if lerr != nil {
			log.Fatalf("Listen %s: %v", cfg.Feed.Addr, lerr)
		}
		defer os.Remove(path)

		log.Printf("Listening on %s", cfg.Feed.Addr)
		err = feed.Serve(ctx, ln)

	default:
		log.Fatalf("Bad feed address %q (want - or unix://<path>)", cfg.Feed.Addr)
	}

	if err != nil && ctx.Err() == nil {
		log.Printf("Feed error: %v", err)
	}

	// Stop the sweep last so a firing in progress finishes.
	sched.Stop()

	stats := ingestor.Stats()
	log.Printf("Done (messages=%d voice=%d bots_skipped=%d errors=%d)",
		stats.MessagesLogged, stats.VoiceLogged, stats.BotsSkipped, stats.Errors)
}
