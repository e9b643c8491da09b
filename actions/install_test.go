package actions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtpanel/mtpctl/domain"
)

func TestDeployArtifactsKeepsExistingState(t *testing.T) {
	ctx := domain.ExecutionContext{RootDir: t.TempDir()}
	writeFile(t, ctx.Path("data", "panel.db"), "existing")
	writeFile(t, ctx.EnvFile(), "DOMAIN=old\n")

	source := t.TempDir()
	writeFile(t, filepath.Join(source, "docker-compose.yml"), "services: {}\n")
	writeFile(t, filepath.Join(source, "data", "seed.db"), "seed")
	writeFile(t, filepath.Join(source, ".env"), "DOMAIN=shipped\n")

	require.NoError(t, deployArtifacts(ctx, source))

	_, err := os.Stat(ctx.Path("docker-compose.yml"))
	require.NoError(t, err)

	env, err := os.ReadFile(ctx.EnvFile())
	require.NoError(t, err)
	assert.Equal(t, "DOMAIN=old\n", string(env), "a present configuration must not be replaced by the shipped one")

	_, err = os.Stat(ctx.Path("data", "seed.db"))
	assert.True(t, os.IsNotExist(err), "a present data directory must not be touched")
}

func TestDeployArtifactsFreshInstall(t *testing.T) {
	ctx := domain.ExecutionContext{RootDir: t.TempDir()}

	source := t.TempDir()
	writeFile(t, filepath.Join(source, "docker-compose.yml"), "services: {}\n")
	writeFile(t, filepath.Join(source, "data", "seed.db"), "seed")

	require.NoError(t, deployArtifacts(ctx, source))

	content, err := os.ReadFile(ctx.Path("data", "seed.db"))
	require.NoError(t, err)
	assert.Equal(t, "seed", string(content))
}

func TestValidateArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.yml"),
		"services:\n  app:\n    image: panel\n  nginx:\n    image: nginx:alpine\n")

	assert.NoError(t, validateArtifacts(dir))
}

func TestValidateArtifactsMissingService(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "docker-compose.yml"), "services:\n  app:\n    image: panel\n")

	err := validateArtifacts(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "nginx")
}

func TestValidateArtifactsNoComposeFile(t *testing.T) {
	assert.Error(t, validateArtifacts(t.TempDir()))
}
