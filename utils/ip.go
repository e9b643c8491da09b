package utils

import (
	"io"
	"net/http"
	"strings"
	"time"

	"mtpanel/mtpctl/domain"
)

const ipService = "https://ifconfig.me"

// ServerIP detects the public address of this host, falling back to curl
// and finally to a placeholder the summary can still print.
func ServerIP() string {
	client := &http.Client{Timeout: 5 * time.Second}
	if resp, err := client.Get(ipService); err == nil {
		data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64))
		resp.Body.Close()
		if readErr == nil && resp.StatusCode == http.StatusOK {
			if ip := strings.TrimSpace(string(data)); ip != "" {
				return ip
			}
		}
	}

	curl := domain.NewCommand([]string{"curl", "-s", "--max-time", "5", ipService})
	if out, err := curl.GetResult(); err == nil && out != "" {
		return out
	}

	return "your-server-ip"
}
