package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/botbridge/botbridge-cli/internal/api"
	"github.com/botbridge/botbridge-cli/internal/config"
	"github.com/botbridge/botbridge-cli/internal/inbox"
	"github.com/botbridge/botbridge-cli/internal/iocontext"
	"github.com/botbridge/botbridge-cli/internal/livewire"
	"github.com/botbridge/botbridge-cli/internal/outfmt"
)

func newInboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "inbox",
		Aliases: []string{"in"},
		Short:   "Live chat inbox",
	}

	cmd.AddCommand(newInboxFollowCmd())
	return cmd
}

// followRecord is one line of jsonl output from `bb inbox follow`.
type followRecord struct {
	Event    string          `json:"event"`
	Time     time.Time       `json:"time"`
	Message  *inbox.Entry    `json:"message,omitempty"`
	Thread   *api.ChatHead   `json:"thread,omitempty"`
	Snapshot *inbox.Snapshot `json:"snapshot,omitempty"`
	Agents   []api.Agent     `json:"agents,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func newInboxFollowCmd() *cobra.Command {
	var (
		channelFlag string
		search      string
		openArg     string
		liveURL     string
		pingTimeout time.Duration
		snapshots   bool
	)

	cmd := &cobra.Command{
		Use:     "follow",
		Aliases: []string{"f"},
		Short:   "Stream the live inbox (press Ctrl+C to stop)",
		Long: strings.TrimSpace(`
Follow the company inbox over the live channel. Chat heads are loaded once,
then every new-message and new-thread event is merged through the same
reconciliation the interactive inbox uses: heads reorder to most recent
first, unread marks accumulate for threads that are not open, and the open
thread's buffer grows in place. Events stream as JSONL when --output jsonl
is set.

The connection reconnects forever with exponential backoff; on every
reconnect the company room and any open thread room are joined again and
the chat head list is re-fetched to cover the gap.`),
		RunE: RunE(func(cmd *cobra.Command, _ []string) error {
			channel, err := api.ParseChannel(channelFlag)
			if err != nil {
				return err
			}

			cfg, err := config.ResolveClientConfig()
			if err != nil {
				return err
			}
			client, err := getClient()
			if err != nil {
				return err
			}
			ctx := cmdContext(cmd)

			engine := inbox.NewEngine(client)
			if search != "" {
				engine.SetQueryNow(search)
			}

			// Bootstrap: heads and the agent roster in parallel.
			var agents []api.Agent
			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return engine.Load(gctx, channel)
			})
			g.Go(func() error {
				var err error
				agents, err = client.ListAgents(gctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("inbox bootstrap failed: %w", err)
			}

			openThread := ""
			if openArg != "" {
				openThread, err = resolveThreadID(ctx, client, openArg)
				if err != nil {
					return err
				}
			}

			wsURL := liveURL
			if wsURL == "" {
				wsURL, err = buildLiveURL(cfg.BaseURL)
				if err != nil {
					return err
				}
			}

			emit := newFollowEmitter(cmd)
			snap := engine.Snapshot()
			emit.record(followRecord{Event: "ready", Time: time.Now(), Snapshot: &snap, Agents: agents})
			if !isJSON(cmd) {
				printIfNotQuiet(cmd, "Following inbox for company %s (%d threads, %d agents)...\n",
					cfg.CompanyID, len(snap.Heads), len(agents))
			}

			// Reconnection loop with exponential backoff.
			backoff := 2 * time.Second
			const maxBackoff = 30 * time.Second
			const resetThreshold = 60 * time.Second

			var registry *inbox.Registry
			for {
				connectStart := time.Now()
				err := followOnce(ctx, followSession{
					cmd:         cmd,
					cfg:         cfg,
					engine:      engine,
					emit:        emit,
					wsURL:       wsURL,
					token:       cfg.Token,
					openThread:  openThread,
					pingTimeout: pingTimeout,
					snapshots:   snapshots,
					registryRef: &registry,
				})
				if ctx.Err() != nil {
					return nil
				}
				if time.Since(connectStart) > resetThreshold {
					backoff = 2 * time.Second
				}
				if !isJSON(cmd) {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "disconnected: %v, reconnecting in %s...\n", err, backoff)
				} else {
					emit.record(followRecord{Event: "disconnected", Time: time.Now(), Error: err.Error()})
				}
				select {
				case <-time.After(backoff):
				case <-ctx.Done():
					return nil
				}
				backoff = min(backoff*2, maxBackoff)
			}
		}),
	}

	cmd.Flags().StringVarP(&channelFlag, "channel", "c", "all", "Channel filter: all|whatsapp|web")
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter visible threads by customer name or phone")
	cmd.Flags().StringVar(&openArg, "open", "", "Open a thread (id or customer name) and stream its messages")
	cmd.Flags().StringVar(&liveURL, "live-url", "", "Override the live channel URL (default derived from the base URL)")
	cmd.Flags().DurationVar(&pingTimeout, "ping-timeout", livewire.DefaultPingTimeout, "Reconnect when no frame arrives for this long")
	cmd.Flags().BoolVar(&snapshots, "snapshots", false, "Include a full inbox snapshot in every event record")
	flagAlias(cmd.Flags(), "channel", "ch")
	flagAlias(cmd.Flags(), "ping-timeout", "pt")

	return cmd
}

type followSession struct {
	cmd         *cobra.Command
	cfg         config.ClientConfig
	engine      *inbox.Engine
	emit        *followEmitter
	wsURL       string
	token       string
	openThread  string
	pingTimeout time.Duration
	snapshots   bool

	// registryRef survives reconnects so thread rooms are re-joined.
	registryRef **inbox.Registry
}

// followOnce runs a single live-channel connection to completion. The
// returned error is the disconnect reason; the caller decides whether to
// reconnect.
func followOnce(ctx context.Context, s followSession) error {
	conn, err := livewire.Connect(ctx, s.wsURL, s.token)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() { _ = conn.Close() }()

	registry := *s.registryRef
	if registry == nil {
		registry = inbox.NewRegistry(conn)
		*s.registryRef = registry
	} else {
		// Fresh transport: re-join the company room and every thread room.
		if err := registry.Resubscribe(ctx, conn); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
		// Catch up on anything missed while disconnected.
		if err := s.engine.Reconcile(ctx); err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
	}

	onError := func(err error) {
		s.emit.record(followRecord{Event: "channel-error", Time: time.Now(), Error: err.Error()})
	}
	if err := registry.SubscribeCompany(ctx, s.cfg.CompanyID, onError); err != nil {
		return fmt.Errorf("subscribe company: %w", err)
	}

	if s.openThread != "" && s.engine.Selected() != s.openThread {
		if _, err := registry.JoinThread(ctx, s.openThread, s.emitMessage); err != nil {
			return fmt.Errorf("join thread: %w", err)
		}
		if err := s.engine.Open(ctx, s.openThread); err != nil {
			return err
		}
	}

	events := conn.ListenWithTimeout(ctx, s.pingTimeout)
	for ev := range events {
		if ev.Err != nil {
			registry.ReportError(ev.Err)
			return ev.Err
		}
		if err := handleFollowEvent(ctx, s, registry, ev); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func handleFollowEvent(ctx context.Context, s followSession, registry *inbox.Registry, ev livewire.Event) error {
	switch ev.Name {
	case livewire.EventNewMessage:
		var msg api.Message
		if err := json.Unmarshal(ev.Data, &msg); err != nil {
			return nil // malformed event payloads are dropped, not fatal
		}
		if err := s.engine.HandleMessage(ctx, msg); err != nil {
			return err
		}
		// A joined thread room delivers through its registered callback;
		// everything else takes the company-wide path.
		if !registry.Dispatch(msg) {
			s.emitMessage(msg)
		}

	case livewire.EventNewThread:
		var nt api.NewThread
		if err := json.Unmarshal(ev.Data, &nt); err != nil {
			return nil
		}
		if err := s.engine.HandleNewThread(ctx, nt); err != nil {
			return err
		}
		rec := followRecord{Event: "new-thread", Time: time.Now(), Thread: &nt.ChatHead}
		if s.snapshots {
			snap := s.engine.Snapshot()
			rec.Snapshot = &snap
		}
		s.emit.record(rec)
		if !isJSON(s.cmd) {
			printIfNotQuiet(s.cmd, "new thread %s (%s) from %s\n",
				nt.ID, nt.Channel, nt.DisplayName())
		}
	}
	return nil
}

// emitMessage renders one live message: a jsonl record in json modes, a
// transcript line otherwise. It is the callback registered for the open
// thread's room and the fallback for messages without one.
func (s followSession) emitMessage(msg api.Message) {
	entry := inbox.NewEntry(msg)
	rec := followRecord{Event: "message", Time: time.Now(), Message: &entry}
	if s.snapshots {
		snap := s.engine.Snapshot()
		rec.Snapshot = &snap
	}
	s.emit.record(rec)
	if !isJSON(s.cmd) {
		name := msg.ThreadID
		if head, ok := s.engine.Head(msg.ThreadID); ok {
			name = head.DisplayName()
		}
		printIfNotQuiet(s.cmd, "[%s] %s %s: %s\n",
			entry.DisplayTime, name, roleLabel(msg.Role), truncate(msg.Content, 80))
	}
}

// followEmitter writes jsonl records when the output mode asks for them.
type followEmitter struct {
	cmd *cobra.Command
}

func newFollowEmitter(cmd *cobra.Command) *followEmitter {
	return &followEmitter{cmd: cmd}
}

func (e *followEmitter) record(rec followRecord) {
	if !isJSON(e.cmd) {
		return
	}
	ioStreams := iocontext.GetIO(e.cmd.Context())
	compact := outfmt.IsJSONL(e.cmd.Context()) || outfmt.IsCompact(e.cmd.Context())
	_ = outfmt.WriteJSON(ioStreams.Out, rec, compact)
}

// buildLiveURL derives the websocket endpoint from the REST base URL:
// https://api.example.com -> wss://api.example.com/live
func buildLiveURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/live"
	return u.String(), nil
}
