package domain

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

type Command struct {
	Name string
	Args []string
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " "))
}

// Execute runs the command attached to the operator's terminal.
func (c Command) Execute() error {
	cmd := exec.Command(c.Name, c.Args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	fmt.Printf("Executing: %s\n", c)
	slog.Debug("exec", "command", c.String())

	err := cmd.Run()
	if err != nil {
		slog.Debug("exec failed", "command", c.Name, "error", err)
	}
	return err
}

// ExecuteQuietly runs the command without touching the terminal. Output is
// discarded; only the exit status matters.
func (c Command) ExecuteQuietly() error {
	cmd := exec.Command(c.Name, c.Args...)
	slog.Debug("exec (quiet)", "command", c.String())
	return cmd.Run()
}

// GetResult runs the command and returns its trimmed stdout.
func (c Command) GetResult() (string, error) {
	cmd := exec.Command(c.Name, c.Args...)
	slog.Debug("exec (capture)", "command", c.String())
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(output)), nil
}

func NewCommand(list []string) Command {
	var name string
	var args []string

	if len(list) > 1 {
		name = list[0]
		args = list[1:]
	} else {
		name = list[0]
		args = []string{}
	}

	return Command{Name: name, Args: args}
}

// Runner abstracts command execution so orchestration logic can be tested
// with recording fakes instead of a live host.
type Runner interface {
	Run(c Command) error
	RunQuietly(c Command) error
	Output(c Command) (string, error)
}

// ExecRunner is the Runner used outside of tests.
type ExecRunner struct{}

func (ExecRunner) Run(c Command) error              { return c.Execute() }
func (ExecRunner) RunQuietly(c Command) error       { return c.ExecuteQuietly() }
func (ExecRunner) Output(c Command) (string, error) { return c.GetResult() }
