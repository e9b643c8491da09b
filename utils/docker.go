package utils

import (
	"strings"

	"mtpanel/mtpctl/domain"
)

// ContainerState reports the docker state of a named container ("running",
// "exited", ...), or "absent" when the daemon does not know the name.
func ContainerState(r domain.Runner, name string) string {
	cmd := domain.NewCommand([]string{"docker", "inspect", "--format", "{{.State.Status}}", name})
	state, err := r.Output(cmd)
	if err != nil {
		return "absent"
	}
	return strings.TrimSpace(state)
}
