package pkgmgr_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpanel/mtpctl/domain"
	"mtpanel/mtpctl/pkgmgr"
)

type recordingRunner struct {
	fail  map[string]error // command prefix -> forced failure
	onRun func(command string)
	ran   []string
}

func (r *recordingRunner) record(c domain.Command) error {
	command := c.String()
	r.ran = append(r.ran, command)
	if r.onRun != nil {
		r.onRun(command)
	}
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

func installerWith(runner *recordingRunner, binaries ...string) *pkgmgr.Installer {
	inst := pkgmgr.NewInstaller(runner)
	inst.Look = func(file string) (string, error) {
		for _, bin := range binaries {
			if bin == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("not found")
	}
	return inst
}

func TestEnsureDockerAlreadyInstalled(t *testing.T) {
	runner := &recordingRunner{}
	inst := installerWith(runner, "docker")

	err := inst.EnsureDocker(domain.Environment{OSFamily: domain.FamilyDebian})

	require.NoError(t, err)
	assert.Empty(t, runner.ran, "an equipped host must not trigger any installation command")
}

func TestEnsureDockerDebianProcedure(t *testing.T) {
	runner := &recordingRunner{}
	inst := installerWith(runner, "apt-get")

	err := inst.EnsureDocker(domain.Environment{OSFamily: domain.FamilyDebian, OSID: "ubuntu"})

	require.NoError(t, err)
	assert.True(t, runner.ranMatching("download.docker.com/linux/ubuntu"))
	assert.True(t, runner.ranMatching("apt-get install -y docker-ce"))
	assert.True(t, runner.ranMatching("systemctl enable --now docker"))
}

func TestEnsureDockerUnknownFamilyUsesVendorScript(t *testing.T) {
	runner := &recordingRunner{}
	inst := installerWith(runner)

	err := inst.EnsureDocker(domain.Environment{OSFamily: domain.FamilyUnknown})

	require.NoError(t, err)
	assert.True(t, runner.ranMatching("get.docker.com"))
}

func TestEnsureDockerInstallFailure(t *testing.T) {
	runner := &recordingRunner{fail: map[string]error{"yum install -y docker-ce": errors.New("mirrors unreachable")}}
	inst := installerWith(runner, "yum")

	err := inst.EnsureDocker(domain.Environment{OSFamily: domain.FamilyRedHat})

	assert.Error(t, err)
}

func TestEnsurePrereqsFamilyMatch(t *testing.T) {
	runner := &recordingRunner{}
	inst := installerWith(runner, "dnf")

	err := inst.EnsurePrereqs(domain.Environment{OSFamily: domain.FamilyFedora})

	require.NoError(t, err)
	assert.True(t, runner.ranMatching("dnf install -y curl ca-certificates tar"))
}

func TestEnsurePrereqsUnknownFamilyTriesEveryManager(t *testing.T) {
	runner := &recordingRunner{}
	inst := installerWith(runner, "yum")

	err := inst.EnsurePrereqs(domain.Environment{OSFamily: domain.FamilyUnknown})

	require.NoError(t, err)
	assert.True(t, runner.ranMatching("yum install -y curl ca-certificates tar"))
	assert.False(t, runner.ranMatching("apt-get"), "unavailable managers must be skipped")
}

func TestEnsurePrereqsNothingAvailable(t *testing.T) {
	inst := installerWith(&recordingRunner{})

	err := inst.EnsurePrereqs(domain.Environment{OSFamily: domain.FamilyUnknown})

	assert.Error(t, err)
}

func TestEnsureComposeAlreadyPresent(t *testing.T) {
	runner := &recordingRunner{}
	inst := installerWith(runner, "docker")

	tool, err := inst.EnsureCompose(domain.Environment{OSFamily: domain.FamilyDebian})

	require.NoError(t, err)
	assert.Equal(t, []string{"docker", "compose"}, tool.Command)
	assert.False(t, runner.ranMatching("install"))
}

func TestEnsureComposeBinaryDownloadFallback(t *testing.T) {
	downloaded := false
	runner := &recordingRunner{onRun: func(command string) {
		if strings.Contains(command, "/usr/local/bin/docker-compose") {
			downloaded = true
		}
	}}
	inst := pkgmgr.NewInstaller(runner)
	inst.Look = func(file string) (string, error) {
		if file == "docker-compose" && downloaded {
			return "/usr/local/bin/docker-compose", nil
		}
		return "", errors.New("not found")
	}

	tool, err := inst.EnsureCompose(domain.Environment{OSFamily: domain.FamilyUnknown})

	require.NoError(t, err)
	assert.Equal(t, []string{"docker-compose"}, tool.Command)
	assert.True(t, runner.ranMatching("github.com/docker/compose/releases"))
}
