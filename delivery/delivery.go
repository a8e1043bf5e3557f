package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spektr-org/spektr-retail/artifact"
)

// ============================================================================
// DELIVERY — push a rendered report to an external channel
// ============================================================================
// A channel key ("test_channel_1") resolves to a deliverer plus a
// deliverer-specific target (Slack channel ID, AMQP routing key).
// Failures surface as *engine.UpstreamServiceError; nothing is retried.
// ============================================================================

// ErrUnknownChannel is returned for a channel key that is not configured.
var ErrUnknownChannel = errors.New("unknown delivery channel")

// Deliverer sends one artifact to one target.
type Deliverer interface {
	Deliver(ctx context.Context, a artifact.Artifact, target string) error
}

// Channel is a configured destination.
type Channel struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	target string
	via    Deliverer
}

// Registry maps channel keys to destinations.
type Registry struct {
	channels map[string]Channel
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{channels: make(map[string]Channel)}
}

// Register adds or replaces a channel.
func (r *Registry) Register(key, name, target string, via Deliverer) {
	r.channels[key] = Channel{Key: key, Name: name, target: target, via: via}
}

// Channels lists configured channels sorted by key.
func (r *Registry) Channels() []Channel {
	out := make([]Channel, 0, len(r.channels))
	for _, c := range r.channels {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Send delivers a to the channel registered under key.
func (r *Registry) Send(ctx context.Context, key string, a artifact.Artifact) (Channel, error) {
	c, ok := r.channels[key]
	if !ok {
		return Channel{}, fmt.Errorf("%w: %q", ErrUnknownChannel, key)
	}
	if err := c.via.Deliver(ctx, a, c.target); err != nil {
		return c, err
	}
	return c, nil
}
