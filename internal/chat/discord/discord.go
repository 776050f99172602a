// Package discord connects the agent to Discord. The adapter answers direct
// messages and mentions through the shared dialogue collaborator; it carries
// no voice traffic.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"github.com/markizano/asthralios/internal/chat"
)

// maxMessageLen is Discord's message length cap.
const maxMessageLen = 2000

// errorReply is sent when the dialogue collaborator fails.
const errorReply = "Sorry, I couldn't get a response right now."

// Compile-time check that *Adapter satisfies chat.Adapter.
var _ chat.Adapter = (*Adapter)(nil)

// Adapter is the Discord chat surface.
type Adapter struct {
	session *discordgo.Session
	dialog  chat.Dialoguer
	log     *slog.Logger

	mu        sync.Mutex
	runCtx    context.Context
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Option is a functional option for Adapter.
type Option func(*Adapter)

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// New creates a Discord adapter. The session is created but not opened;
// Run connects.
func New(token string, dialog chat.Dialoguer, opts ...Option) (*Adapter, error) {
	if token == "" {
		return nil, fmt.Errorf("discord chat: token must not be empty")
	}
	if dialog == nil {
		return nil, fmt.Errorf("discord chat: dialoguer must not be nil")
	}

	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord chat: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	a := &Adapter{
		session: session,
		dialog:  dialog,
		log:     slog.Default(),
		done:    make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	session.AddHandler(a.onMessage)
	return a, nil
}

// Name implements chat.Adapter.
func (a *Adapter) Name() string { return "discord" }

// Run implements chat.Adapter. It opens the gateway connection and blocks
// until ctx is cancelled or Close is called.
func (a *Adapter) Run(ctx context.Context) error {
	a.mu.Lock()
	a.runCtx = ctx
	a.mu.Unlock()

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("discord chat: open session: %w", err)
	}
	a.log.Info("discord adapter connected", "user", a.session.State.User.Username)

	select {
	case <-ctx.Done():
	case <-a.done:
	}
	return a.Close()
}

// Close implements chat.Adapter.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		if err := a.session.Close(); err != nil {
			a.closeErr = fmt.Errorf("discord chat: close session: %w", err)
		}
		a.log.Info("discord adapter closed")
	})
	return a.closeErr
}

func (a *Adapter) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	selfID := ""
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	if !shouldRespond(m, selfID) {
		return
	}

	a.mu.Lock()
	ctx := a.runCtx
	a.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	text := cleanContent(m.Content, selfID)
	if text == "" {
		return
	}
	a.log.Debug("discord message received",
		"author", m.Author.Username,
		"channel", m.ChannelID,
		"dm", m.GuildID == "",
	)

	reply, err := a.dialog.Converse(ctx, text)
	if err != nil {
		a.log.Error("dialogue failed", "error", err)
		if _, serr := s.ChannelMessageSend(m.ChannelID, errorReply); serr != nil {
			a.log.Error("failed to send error reply", "error", serr)
		}
		return
	}
	for _, part := range chat.SplitMessage(reply, maxMessageLen) {
		if _, err := s.ChannelMessageSend(m.ChannelID, part); err != nil {
			a.log.Error("failed to send reply", "error", err)
			return
		}
	}
}

// shouldRespond reports whether the adapter answers m: direct messages and
// messages mentioning the bot, never its own or other bots' messages.
func shouldRespond(m *discordgo.MessageCreate, selfID string) bool {
	if m.Author == nil || m.Author.ID == selfID || m.Author.Bot {
		return false
	}
	if m.GuildID == "" {
		return true
	}
	for _, u := range m.Mentions {
		if u != nil && u.ID == selfID {
			return true
		}
	}
	return false
}

// cleanContent strips the bot's own mention tokens from the message text.
func cleanContent(content, selfID string) string {
	if selfID != "" {
		content = strings.ReplaceAll(content, "<@"+selfID+">", "")
		content = strings.ReplaceAll(content, "<@!"+selfID+">", "")
	}
	return strings.TrimSpace(content)
}
