package actions

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mtpanel/mtpctl/compose"
	"mtpanel/mtpctl/domain"
)

type logsRunner struct {
	output string
	calls  int
}

func (r *logsRunner) Run(c domain.Command) error        { return nil }
func (r *logsRunner) RunQuietly(c domain.Command) error { return nil }
func (r *logsRunner) Output(c domain.Command) (string, error) {
	r.calls++
	return r.output, nil
}

func TestWaitReadyFindsMarker(t *testing.T) {
	runner := &logsRunner{output: "====\nINITIAL ADMIN CREDENTIALS\nlogin: admin\n====\n"}
	ctx := domain.ExecutionContext{RootDir: t.TempDir()}
	tool := compose.Tool{Command: []string{"docker", "compose"}}

	ready := WaitReady(ctx, tool, runner, 3*time.Second, 10*time.Millisecond)

	assert.True(t, ready)
	assert.Equal(t, 1, runner.calls)
}

func TestWaitReadyTimesOutQuietly(t *testing.T) {
	runner := &logsRunner{output: "panel booting\n"}
	ctx := domain.ExecutionContext{RootDir: t.TempDir()}
	tool := compose.Tool{Command: []string{"docker", "compose"}}

	ready := WaitReady(ctx, tool, runner, 30*time.Millisecond, 10*time.Millisecond)

	assert.False(t, ready)
	assert.GreaterOrEqual(t, runner.calls, 2)
}

func TestExtractBannerReturnsDelimitedBlock(t *testing.T) {
	logs := strings.Join([]string{
		"app  | booting",
		"app  | ==================================",
		"app  | INITIAL ADMIN CREDENTIALS",
		"app  | login: admin",
		"app  | password: hunter2",
		"app  | ==================================",
		"app  | serving on :8080",
	}, "\n")

	banner := extractBanner(logs)

	assert.Contains(t, banner, "INITIAL ADMIN CREDENTIALS")
	assert.Contains(t, banner, "password: hunter2")
	assert.NotContains(t, banner, "booting")
	assert.NotContains(t, banner, "serving")
}

func TestExtractBannerWithoutDelimiters(t *testing.T) {
	banner := extractBanner("one\nINITIAL ADMIN CREDENTIALS here\ntwo")

	assert.Equal(t, "INITIAL ADMIN CREDENTIALS here", banner)
}

func TestExtractBannerNoMarker(t *testing.T) {
	assert.Empty(t, extractBanner("nothing to see"))
}
