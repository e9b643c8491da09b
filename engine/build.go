package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"
)

// BuildImage builds dir/dockerfile into a tagged image, forwarding the
// daemon's progress lines to onOutput. The data and backup subtrees never
// belong in a build context.
func (c *Client) BuildImage(ctx context.Context, dir, dockerfile, tag string, onOutput func(string)) error {
	buildCtx, err := archive.TarWithOptions(dir, &archive.TarOptions{
		ExcludePatterns: []string{"data", "backup-*", ".env"},
	})
	if err != nil {
		return fmt.Errorf("create build context: %w", err)
	}
	defer buildCtx.Close()

	resp, err := c.inner.ImageBuild(ctx, buildCtx, types.ImageBuildOptions{
		Tags:       []string{tag},
		Dockerfile: dockerfile,
		Remove:     true,
	})
	if err != nil {
		return fmt.Errorf("image build: %w", err)
	}
	defer resp.Body.Close()

	decoder := json.NewDecoder(resp.Body)
	for {
		var msg buildMessage
		if err := decoder.Decode(&msg); err != nil {
			if err == io.EOF {
				break
			}
			return fmt.Errorf("decode build output: %w", err)
		}
		if errText := msg.errorText(); errText != "" {
			return fmt.Errorf("image build: %s", errText)
		}
		if line := msg.line(); line != "" && onOutput != nil {
			onOutput(line)
		}
	}
	return nil
}

type buildMessage struct {
	Stream      string `json:"stream"`
	Status      string `json:"status"`
	ID          string `json:"id"`
	Error       string `json:"error"`
	ErrorDetail struct {
		Message string `json:"message"`
	} `json:"errorDetail"`
}

func (m buildMessage) errorText() string {
	if text := strings.TrimSpace(m.Error); text != "" {
		return text
	}
	return strings.TrimSpace(m.ErrorDetail.Message)
}

func (m buildMessage) line() string {
	if m.Stream != "" {
		return strings.TrimRight(m.Stream, "\n")
	}
	if m.Status == "" {
		return ""
	}
	if m.ID != "" {
		return m.ID + " " + m.Status
	}
	return m.Status
}
