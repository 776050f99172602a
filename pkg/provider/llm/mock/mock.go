// Package mock provides a test double for the llm package interfaces.
package mock

import (
	"context"
	"sync"

	"github.com/markizano/asthralios/pkg/provider/llm"
)

// Provider is a mock implementation of llm.Provider. Script it with a
// sequence of replies; once exhausted every further call returns Reply (or an
// empty string).
type Provider struct {
	mu sync.Mutex

	// Replies are returned one per Complete call, in order.
	Replies []string

	// Reply is returned once Replies is exhausted.
	Reply string

	// CompleteErr, if non-nil, is returned by every Complete call.
	CompleteErr error

	// CompleteCalls records the message list of every Complete call.
	CompleteCalls [][]llm.Message
}

// Compile-time check that *Provider satisfies llm.Provider.
var _ llm.Provider = (*Provider)(nil)

// Complete records the call and returns the next scripted reply.
func (p *Provider) Complete(_ context.Context, messages []llm.Message) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := len(p.CompleteCalls)
	p.CompleteCalls = append(p.CompleteCalls, append([]llm.Message(nil), messages...))
	if p.CompleteErr != nil {
		return "", p.CompleteErr
	}
	if i < len(p.Replies) {
		return p.Replies[i], nil
	}
	return p.Reply, nil
}

// Calls returns a snapshot of every recorded Complete call.
func (p *Provider) Calls() [][]llm.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]llm.Message(nil), p.CompleteCalls...)
}
