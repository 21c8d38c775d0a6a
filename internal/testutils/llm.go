package testutils

import (
	"context"
	"sync"

	"github.com/lectiolab/lectio/internal/ports"
)

// ScriptedClient is a ports.CompletionClient that replays a fixed script of
// completions, one per call, and records every request it receives.
type ScriptedClient struct {
	mu sync.Mutex

	// Script holds the completions to return, in order. When the script
	// runs out the last completion is repeated.
	Script []ports.Completion

	// Err, when set, is returned by every call instead of the script.
	Err error

	calls    int
	requests []ports.CompletionRequest
}

var _ ports.CompletionClient = (*ScriptedClient)(nil)

func (c *ScriptedClient) Complete(_ context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, req)
	c.calls++

	if c.Err != nil {
		return ports.Completion{}, c.Err
	}
	if len(c.Script) == 0 {
		return ports.Completion{}, nil
	}
	idx := c.calls - 1
	if idx >= len(c.Script) {
		idx = len(c.Script) - 1
	}
	return c.Script[idx], nil
}

func (c *ScriptedClient) Model() string { return "scripted-model" }

// Calls returns how many completions were requested.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Requests returns a snapshot of the received requests.
func (c *ScriptedClient) Requests() []ports.CompletionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ports.CompletionRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// StubBuilder is a ports.ClientBuilder that hands out a fixed client and
// records what it was asked to build or probe.
type StubBuilder struct {
	mu sync.Mutex

	// Client is returned by every Build call.
	Client ports.CompletionClient

	// BuildErr, when set, makes Build fail.
	BuildErr error

	// ProbeErr is returned by Probe.
	ProbeErr error

	builds []string
	probes []string
}

var _ ports.ClientBuilder = (*StubBuilder)(nil)

func (b *StubBuilder) Build(provider, _ string) (ports.CompletionClient, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.builds = append(b.builds, provider)
	if b.BuildErr != nil {
		return nil, b.BuildErr
	}
	return b.Client, nil
}

func (b *StubBuilder) Probe(_ context.Context, provider, _ string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probes = append(b.probes, provider)
	return b.ProbeErr
}

// Builds returns the providers Build was called with.
func (b *StubBuilder) Builds() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.builds))
	copy(out, b.builds)
	return out
}

// Probes returns the providers Probe was called with.
func (b *StubBuilder) Probes() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.probes))
	copy(out, b.probes)
	return out
}
