package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhouzirui/tgl-chat/backend/internal/model/chat"
	"github.com/zhouzirui/tgl-chat/backend/internal/service/chatclient"
	"github.com/zhouzirui/tgl-chat/backend/internal/service/lead"
)

var errQuit = errors.New("quit")

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Open an interactive chat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		detector, err := lead.LoadDetector(cfg.Lead.KeywordsFile)
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), os.Stdin, cmd.OutOrStdout(), detector)
	},
}

func runChat(ctx context.Context, in io.Reader, out io.Writer, detector *lead.Detector) error {
	changes := make(chan chatclient.Status, 1)
	m := chatclient.NewManager(wsURL, chatclient.NewSession(),
		chatclient.WithLogger(logger.Named("chat")),
		chatclient.WithReconnectDelay(cfg.Chat.ReconnectDelay),
		chatclient.WithHandshakeTimeout(cfg.Chat.HandshakeTimeout),
		chatclient.WithOnChange(func(st chatclient.Status) {
			select {
			case changes <- st:
			default:
			}
		}),
	)

	fmt.Fprintf(out, "Welcome to Team Global Logistics. Session %s\n", m.Session().ID)
	fmt.Fprintln(out, "Commands: /clear, /status, /lead <name>, <email>, <phone>, /quit")

	lines := make(chan string)
	go readLines(in, lines)

	g, gctx := errgroup.WithContext(ctx)
	if err := m.Start(gctx); err != nil {
		return err
	}
	defer m.Close()

	g.Go(func() error {
		r := &renderer{out: out}
		for {
			select {
			case <-gctx.Done():
				return nil
			case st := <-changes:
				r.render(st, m.Messages())
			}
		}
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return errQuit
				}
				if err := handleLine(gctx, out, m, detector, line); err != nil {
					return err
				}
			}
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func readLines(in io.Reader, lines chan<- string) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

func handleLine(ctx context.Context, out io.Writer, m *chatclient.Manager, detector *lead.Detector, line string) error {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "/quit":
		return errQuit
	case trimmed == "/clear":
		m.ClearHistory()
		fmt.Fprintln(out, "-- history cleared --")
		return nil
	case trimmed == "/status":
		st := m.Status()
		fmt.Fprintf(out, "-- %s connected=%t attempts=%d error=%q --\n", st.State, st.Connected, st.Attempts, st.Error)
		return nil
	case strings.HasPrefix(trimmed, "/lead"):
		submitInlineLead(ctx, out, m, strings.TrimSpace(strings.TrimPrefix(trimmed, "/lead")))
		return nil
	}

	if err := m.Send(line); err != nil {
		switch {
		case errors.Is(err, chatclient.ErrEmptyMessage):
		case errors.Is(err, chatclient.ErrNotConnected):
			fmt.Fprintf(out, "!! %s\n", chatclient.ErrTextNotConnected)
		default:
			fmt.Fprintf(out, "!! %s\n", chatclient.ErrTextSendFailed)
		}
		return nil
	}

	if detector.ShouldOffer(m.Messages()) {
		fmt.Fprintln(out, "-- Need a custom quote? Type /lead <name>, <email>, <phone> --")
	}
	return nil
}

func submitInlineLead(ctx context.Context, out io.Writer, m *chatclient.Manager, args string) {
	parts := strings.Split(args, ",")
	if len(parts) != 3 {
		fmt.Fprintln(out, "usage: /lead <name>, <email>, <phone>")
		return
	}

	draft := lead.NewDraft(lastUserMessage(m.Messages()))
	draft.Name = parts[0]
	draft.Email = parts[1]
	draft.Phone = parts[2]

	if err := lead.NewClient(apiBase, nil, logger.Named("lead")).Submit(ctx, draft); err != nil {
		if errors.Is(err, lead.ErrInvalidLead) {
			fmt.Fprintf(out, "!! %v\n", err)
			return
		}
		fmt.Fprintf(out, "!! %s\n", lead.UserErrorText)
		return
	}
	fmt.Fprintln(out, "-- Thank you! We've received your information and will contact you shortly. --")
}

func lastUserMessage(messages []chat.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == chat.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// renderer prints transcript additions and connection banner changes.
type renderer struct {
	out       io.Writer
	printed   int
	connected bool
	lastError string
}

func (r *renderer) render(st chatclient.Status, messages []chat.Message) {
	if st.Connected != r.connected {
		r.connected = st.Connected
		if st.Connected {
			fmt.Fprintln(r.out, "● Online")
		} else {
			fmt.Fprintln(r.out, "○ Offline")
		}
	}
	if st.Error != r.lastError {
		r.lastError = st.Error
		if st.Error != "" {
			fmt.Fprintf(r.out, "!! %s\n", st.Error)
		}
	}

	if len(messages) < r.printed {
		r.printed = 0
	}
	for _, msg := range messages[r.printed:] {
		if msg.Role != chat.RoleUser {
			fmt.Fprintf(r.out, "%s> %s\n", msg.Role, msg.Content)
		}
	}
	r.printed = len(messages)
}
