package engine

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"

	"mtpanel/mtpctl/domain"
)

const sandboxImage = "hello-world:latest"

// Verify runs a throwaway container as a synthetic workload. Installing
// packages proves nothing on constrained hosts; only a container that
// actually starts and exits cleanly does.
func (c *Client) Verify(ctx context.Context) error {
	reader, err := c.inner.ImagePull(ctx, sandboxImage, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", sandboxImage, err)
	}
	io.Copy(io.Discard, reader)
	reader.Close()

	created, err := c.inner.ContainerCreate(ctx, &container.Config{Image: sandboxImage}, nil, nil, nil, "")
	if err != nil {
		return fmt.Errorf("create sandbox container: %w", err)
	}
	defer c.inner.ContainerRemove(context.WithoutCancel(ctx), created.ID, container.RemoveOptions{Force: true})

	if err := c.inner.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("start sandbox container: %w", err)
	}

	statusCh, errCh := c.inner.ContainerWait(ctx, created.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		return fmt.Errorf("wait for sandbox container: %w", err)
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("sandbox container exited with status %d", status.StatusCode)
		}
	case <-time.After(60 * time.Second):
		return fmt.Errorf("sandbox container did not finish in time")
	}
	return nil
}

// Remediation maps a failed verification to guidance for the operator's
// virtualization technology.
func Remediation(virt domain.Virtualization) string {
	switch virt {
	case domain.VirtLXC:
		return "LXC detected: enable nesting (security.nesting=true) on a privileged container, then reboot and retry."
	case domain.VirtOpenVZ:
		return "OpenVZ offers limited Docker support. Prefer KVM or another full virtualization technology."
	}
	return "Docker could not run a test container. Reboot the server and retry."
}
