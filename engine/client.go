// Package engine talks to the container runtime: daemon-level checks and
// adaptations, and the image/container operations done through the API
// rather than the compose tool.
package engine

import (
	"context"
	"fmt"

	"github.com/docker/docker/client"
)

// Client wraps the Docker SDK client.
type Client struct {
	inner *client.Client
}

func NewClient() (*Client, error) {
	inner, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{inner: inner}, nil
}

// Ping validates connectivity to the daemon.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.inner.Ping(ctx); err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
