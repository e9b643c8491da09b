package domain

import "path/filepath"

// ExecutionContext carries the settings shared by every action of a run.
type ExecutionContext struct {
	RootDir string // installation directory
	Channel string // release channel for artifact acquisition
	Yes     bool   // accept every prompt default (unattended mode)
	Env     Environment
}

// Path resolves a path relative to the installation directory.
func (ctx ExecutionContext) Path(elem ...string) string {
	return filepath.Join(append([]string{ctx.RootDir}, elem...)...)
}

// DataDir is the user-owned subtree that survives updates untouched.
func (ctx ExecutionContext) DataDir() string {
	return ctx.Path("data")
}

// EnvFile is the persisted deployment configuration.
func (ctx ExecutionContext) EnvFile() string {
	return ctx.Path(".env")
}
