package gateway

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"

	"github.com/ayumu837/guildlog/config"
	"github.com/ayumu837/guildlog/internal/errors"
	"github.com/ayumu837/guildlog/internal/logging"
)

// Event type tags carried on feed envelopes.
const (
	EventTypeMessage    = "message"
	EventTypeVoiceState = "voice_state"
)

// Envelope frames one event on the feed: a type tag plus exactly one
// payload matching that tag.
type Envelope struct {
	Type    string           `json:"type"`
	Message *MessageEvent    `json:"message,omitempty"`
	Voice   *VoiceStateEvent `json:"voice_state,omitempty"`
}

// Feed reads line-delimited JSON envelopes from the platform bridge and
// dispatches them to a Handler. A malformed line is logged and skipped;
// it never stops the feed.
type Feed struct {
	h   Handler
	log *slog.Logger
}

// NewFeed creates a feed dispatching to h.
func NewFeed(h Handler) *Feed {
	return &Feed{h: h, log: logging.Component("feed")}
}

// errLineTooLong marks a feed line over the size limit. The line is
// consumed and dropped; the feed carries on at the next one.
var errLineTooLong = errors.New("feed line exceeds size limit")

// Run consumes envelopes from r until EOF, a read error, or ctx
// cancellation. Cancellation is checked between lines; a blocked read is
// unblocked by closing the underlying reader.
func (f *Feed) Run(ctx context.Context, r io.Reader) error {
	br := bufio.NewReaderSize(r, 64*1024)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		line, err := readLine(br)
		if err == errLineTooLong {
			f.log.Warn("event skipped", "error", err, "limit", config.MaxFeedLineBytes)
			continue
		}

		if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
			if derr := f.dispatch(trimmed); derr != nil {
				f.log.Warn("event skipped", "error", derr)
			}
		}

		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine reads one newline-terminated line. An oversized line is
// consumed to its end and replaced by errLineTooLong, so a misbehaving
// producer cannot stop the feed.
func readLine(br *bufio.Reader) ([]byte, error) {
	var line []byte
	for {
		chunk, err := br.ReadSlice('\n')
		if len(line)+len(chunk) > config.MaxFeedLineBytes {
			for err == bufio.ErrBufferFull {
				_, err = br.ReadSlice('\n')
			}
			return nil, errLineTooLong
		}
		line = append(line, chunk...)
		if err != bufio.ErrBufferFull {
			return line, err
		}
	}
}

// Serve accepts connections on ln and runs a feed per connection. It
// returns when ctx is cancelled or the listener fails.
func (f *Feed) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return errors.Wrap(err, "accept feed connection")
		}

		go func() {
			defer conn.Close()
			if err := f.Run(ctx, conn); err != nil && ctx.Err() == nil {
				f.log.Warn("feed connection closed", "error", err)
			}
		}()
	}
}

func (f *Feed) dispatch(line []byte) error {
	var env Envelope
	if err := json.Unmarshal(line, &env); err != nil {
		return errors.Wrapf(errors.ErrBadEvent, "%v", err)
	}

	switch env.Type {
	case EventTypeMessage:
		if env.Message == nil {
			return errors.NewMissingField("message")
		}
		f.h.HandleMessage(*env.Message)
		return nil
	case EventTypeVoiceState:
		if env.Voice == nil {
			return errors.NewMissingField("voice_state")
		}
		f.h.HandleVoiceState(*env.Voice)
		return nil
	default:
		return errors.Wrapf(errors.ErrUnknownEventType, "type %q", env.Type)
	}
}
