// Package slack connects the agent to Slack over Socket Mode. The adapter
// opens a websocket via apps.connections.open, answers direct messages and
// app mentions through the shared dialogue collaborator, and replies with
// chat.postMessage.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/markizano/asthralios/internal/chat"
)

const (
	defaultAPIBase = "https://slack.com/api"

	// maxMessageLen is the message size Slack recommends staying under.
	maxMessageLen = 4000

	reconnectDelay = time.Second
)

// errorReply is sent when the dialogue collaborator fails.
const errorReply = "Sorry, I couldn't get a response right now."

// mentionRE matches Slack user mention tokens like <@U0123ABC>.
var mentionRE = regexp.MustCompile(`<@[A-Z0-9]+>`)

// Compile-time check that *Adapter satisfies chat.Adapter.
var _ chat.Adapter = (*Adapter)(nil)

// Adapter is the Slack Socket Mode chat surface.
type Adapter struct {
	appToken   string
	botToken   string
	dialog     chat.Dialoguer
	apiBase    string
	httpClient *http.Client
	log        *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// Option is a functional option for Adapter.
type Option func(*Adapter)

// WithAPIBase overrides the Slack Web API base URL.
func WithAPIBase(base string) Option {
	return func(a *Adapter) { a.apiBase = strings.TrimRight(base, "/") }
}

// WithHTTPClient replaces the HTTP client used for Web API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(a *Adapter) { a.httpClient = c }
}

// WithLogger replaces the default slog logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *Adapter) { a.log = log }
}

// New creates a Slack adapter. appToken is the app-level token used for
// Socket Mode, botToken the bot token used for the Web API.
func New(appToken, botToken string, dialog chat.Dialoguer, opts ...Option) (*Adapter, error) {
	if appToken == "" || botToken == "" {
		return nil, fmt.Errorf("slack chat: both app and bot tokens are required")
	}
	if dialog == nil {
		return nil, fmt.Errorf("slack chat: dialoguer must not be nil")
	}
	a := &Adapter{
		appToken:   appToken,
		botToken:   botToken,
		dialog:     dialog,
		apiBase:    defaultAPIBase,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        slog.Default(),
		done:       make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// Name implements chat.Adapter.
func (a *Adapter) Name() string { return "slack" }

// Run implements chat.Adapter. It keeps a Socket Mode connection open,
// reconnecting when Slack asks for a refresh, until ctx is cancelled or
// Close is called.
func (a *Adapter) Run(ctx context.Context) error {
	for {
		err := a.runOnce(ctx)

		select {
		case <-ctx.Done():
			return a.Close()
		case <-a.done:
			return a.Close()
		default:
		}

		if err != nil {
			a.log.Warn("slack socket closed, reconnecting", "error", err)
		}
		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return a.Close()
		case <-a.done:
			return a.Close()
		}
	}
}

// Close implements chat.Adapter.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		close(a.done)
		a.log.Info("slack adapter closed")
	})
	return nil
}

// envelope is a Socket Mode frame. Slack expects every envelope that carries
// an envelope_id to be acknowledged.
type envelope struct {
	EnvelopeID string `json:"envelope_id"`
	Type       string `json:"type"`
	Payload    struct {
		Event event `json:"event"`
	} `json:"payload"`
}

type event struct {
	Type        string `json:"type"`
	Subtype     string `json:"subtype"`
	Text        string `json:"text"`
	Channel     string `json:"channel"`
	ChannelType string `json:"channel_type"`
	User        string `json:"user"`
	BotID       string `json:"bot_id"`
}

func (a *Adapter) runOnce(ctx context.Context) error {
	wsURL, err := a.openConnection(ctx)
	if err != nil {
		return err
	}

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPClient: a.httpClient,
	})
	if err != nil {
		return fmt.Errorf("slack chat: dial socket: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	a.log.Info("slack adapter connected")

	// Unblock the pending read when Close or ctx fires.
	readCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-a.done:
			cancel()
		case <-readCtx.Done():
		}
	}()

	for {
		_, data, err := conn.Read(readCtx)
		if err != nil {
			return fmt.Errorf("slack chat: read: %w", err)
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			a.log.Warn("undecodable socket frame", "error", err)
			continue
		}

		if env.EnvelopeID != "" {
			ack, _ := json.Marshal(map[string]string{"envelope_id": env.EnvelopeID})
			if err := conn.Write(readCtx, websocket.MessageText, ack); err != nil {
				return fmt.Errorf("slack chat: ack: %w", err)
			}
		}

		switch env.Type {
		case "disconnect":
			// Slack rotates connections; reconnect with a fresh URL.
			return nil
		case "events_api":
			a.handleEvent(readCtx, env.Payload.Event)
		}
	}
}

// openConnection calls apps.connections.open and returns the websocket URL.
func (a *Adapter) openConnection(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/apps.connections.open", nil)
	if err != nil {
		return "", fmt.Errorf("slack chat: build open request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.appToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack chat: connections.open: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		URL   string `json:"url"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("slack chat: decode connections.open: %w", err)
	}
	if !result.OK {
		return "", fmt.Errorf("slack chat: connections.open refused: %s", result.Error)
	}
	return result.URL, nil
}

func (a *Adapter) handleEvent(ctx context.Context, ev event) {
	if !shouldRespond(ev) {
		return
	}
	text := strings.TrimSpace(mentionRE.ReplaceAllString(ev.Text, ""))
	if text == "" {
		return
	}
	a.log.Debug("slack message received", "user", ev.User, "channel", ev.Channel, "type", ev.Type)

	reply, err := a.dialog.Converse(ctx, text)
	if err != nil {
		a.log.Error("dialogue failed", "error", err)
		reply = errorReply
	}
	for _, part := range chat.SplitMessage(reply, maxMessageLen) {
		if err := a.postMessage(ctx, ev.Channel, part); err != nil {
			a.log.Error("failed to send reply", "error", err)
			return
		}
	}
}

// shouldRespond reports whether the adapter answers ev: direct messages and
// app mentions with text, never bot messages.
func shouldRespond(ev event) bool {
	if ev.BotID != "" || ev.Subtype == "bot_message" || ev.Text == "" {
		return false
	}
	switch ev.Type {
	case "app_mention":
		return true
	case "message":
		return ev.ChannelType == "im"
	}
	return false
}

// postMessage sends text to channel via chat.postMessage.
func (a *Adapter) postMessage(ctx context.Context, channel, text string) error {
	body, err := json.Marshal(map[string]string{"channel": channel, "text": text})
	if err != nil {
		return fmt.Errorf("slack chat: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiBase+"/chat.postMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack chat: build post request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.botToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack chat: chat.postMessage: %w", err)
	}
	defer resp.Body.Close()

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("slack chat: decode chat.postMessage: %w", err)
	}
	if !result.OK {
		return fmt.Errorf("slack chat: chat.postMessage refused: %s", result.Error)
	}
	return nil
}
