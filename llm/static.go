package llm

import (
	"context"
	"sync"
)

// StaticClient returns canned responses. Useful for tests and for demo runs
// without API access: responses are served in order, and the last one repeats
// once the list is exhausted.
type StaticClient struct {
	mu        sync.Mutex
	responses []string
	next      int

	// Prompts records every prompt passed to Generate
	Prompts []string
}

var _ Client = (*StaticClient)(nil)

// NewStaticClient creates a StaticClient with the given responses
func NewStaticClient(responses ...string) *StaticClient {
	if len(responses) == 0 {
		responses = []string{""}
	}
	return &StaticClient{responses: responses}
}

// Generate returns the next canned response
func (c *StaticClient) Generate(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.Prompts = append(c.Prompts, prompt)

	resp := c.responses[c.next]
	if c.next < len(c.responses)-1 {
		c.next++
	}
	return resp, nil
}
