package engine_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/engine"
)

type recordingRunner struct {
	fail map[string]error
	ran  []string
}

func (r *recordingRunner) record(c domain.Command) error {
	command := c.String()
	r.ran = append(r.ran, command)
	for prefix, err := range r.fail {
		if strings.HasPrefix(command, prefix) {
			return err
		}
	}
	return nil
}

func (r *recordingRunner) Run(c domain.Command) error        { return r.record(c) }
func (r *recordingRunner) RunQuietly(c domain.Command) error { return r.record(c) }
func (r *recordingRunner) Output(c domain.Command) (string, error) {
	return "", r.record(c)
}

func (r *recordingRunner) ranMatching(substring string) bool {
	for _, command := range r.ran {
		if strings.Contains(command, substring) {
			return true
		}
	}
	return false
}

func testAdapter(runner *recordingRunner, dir string) *engine.Adapter {
	return &engine.Adapter{
		ConfigPath: filepath.Join(dir, "etc", "docker", "daemon.json"),
		Runner:     runner,
		Settle:     0,
		Now:        func() time.Time { return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC) },
	}
}

func TestApplyNoOpOutsideConstrainedVirt(t *testing.T) {
	for _, virt := range []domain.Virtualization{domain.VirtNone, domain.VirtOther} {
		t.Run(string(virt), func(t *testing.T) {
			dir := t.TempDir()
			runner := &recordingRunner{}
			adapter := testAdapter(runner, dir)

			err := adapter.Apply(domain.Environment{Virt: virt})

			require.NoError(t, err)
			assert.Empty(t, runner.ran, "no service may be touched")
			_, statErr := os.Stat(filepath.Join(dir, "etc"))
			assert.True(t, os.IsNotExist(statErr), "no file may be written")
		})
	}
}

func TestApplyWritesDaemonConfig(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{fail: map[string]error{
		"systemctl is-active": os.ErrNotExist, // apparmor not active
	}}
	adapter := testAdapter(runner, dir)

	err := adapter.Apply(domain.Environment{Virt: domain.VirtLXC})

	require.NoError(t, err)
	content, readErr := os.ReadFile(adapter.ConfigPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(content), `"seccomp-profile": "unconfined"`)
	assert.Contains(t, string(content), `"selinux-enabled": false`)
	assert.True(t, runner.ranMatching("systemctl restart docker"))
	assert.False(t, runner.ranMatching("systemctl stop apparmor"))
}

func TestApplyBacksUpExistingConfig(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{fail: map[string]error{"systemctl is-active": os.ErrNotExist}}
	adapter := testAdapter(runner, dir)

	require.NoError(t, os.MkdirAll(filepath.Dir(adapter.ConfigPath), 0o755))
	require.NoError(t, os.WriteFile(adapter.ConfigPath, []byte(`{"log-driver": "journald"}`), 0o644))

	require.NoError(t, adapter.Apply(domain.Environment{Virt: domain.VirtOpenVZ}))

	backup, err := os.ReadFile(adapter.ConfigPath + ".bak.20240301_123000")
	require.NoError(t, err)
	assert.Equal(t, `{"log-driver": "journald"}`, string(backup))

	current, err := os.ReadFile(adapter.ConfigPath)
	require.NoError(t, err)
	assert.NotContains(t, string(current), "journald")
}

func TestApplyStopsActiveAppArmor(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	adapter := testAdapter(runner, dir)

	require.NoError(t, adapter.Apply(domain.Environment{Virt: domain.VirtLXC}))

	assert.True(t, runner.ranMatching("systemctl stop apparmor"))
	assert.True(t, runner.ranMatching("systemctl disable apparmor"))
}

func TestRemediationPerVirtualization(t *testing.T) {
	assert.Contains(t, engine.Remediation(domain.VirtLXC), "nesting")
	assert.Contains(t, engine.Remediation(domain.VirtOpenVZ), "KVM")
	assert.Contains(t, engine.Remediation(domain.VirtNone), "Reboot")
	assert.Contains(t, engine.Remediation(domain.VirtOther), "Reboot")
}
