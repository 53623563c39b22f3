package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/pflag"
)

// ErrUsage is returned for unknown commands and malformed arguments.
var ErrUsage = errors.New("usage error")

// Manager handles command registration, parsing, and execution
type Manager struct {
	mu   sync.RWMutex
	name string
	cmds map[string]Command
}

func NewManager(name string) *Manager {
	return &Manager{
		name: name,
		cmds: make(map[string]Command),
	}
}

// Register registers a command
func (m *Manager) Register(cmd Command) error {
	if cmd == nil {
		return fmt.Errorf("command cannot be nil")
	}

	name := cmd.Name()
	if name == "" {
		return fmt.Errorf("command name cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.cmds[name]; exists {
		return fmt.Errorf("command already registered: %s", name)
	}

	m.cmds[name] = cmd
	return nil
}

// Get returns a command by name
func (m *Manager) Get(name string) (Command, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	cmd, exists := m.cmds[name]
	if !exists {
		return nil, fmt.Errorf("%w: command not found: %s", ErrUsage, name)
	}

	return cmd, nil
}

// List returns all registered commands sorted by name
func (m *Manager) List() []Command {
	m.mu.RLock()
	defer m.mu.RUnlock()

	commands := make([]Command, 0, len(m.cmds))
	for _, cmd := range m.cmds {
		commands = append(commands, cmd)
	}
	slices.SortFunc(commands, func(a, b Command) int {
		return strings.Compare(a.Name(), b.Name())
	})

	return commands
}

// PrintUsage writes the command overview to w.
func (m *Manager) PrintUsage(w io.Writer) {
	fmt.Fprintf(w, "Usage: %s <command> [arguments]\n\nCommands:\n", m.name)
	for _, cmd := range m.List() {
		fmt.Fprintf(w, "  %-8s %s\n", cmd.Name(), cmd.Description())
	}
}

// Execute parses and executes a command. args[0] is the command name.
func (m *Manager) Execute(ctx context.Context, stdout io.Writer, args ...string) (int, error) {
	if len(args) == 0 {
		m.PrintUsage(stdout)
		return 2, fmt.Errorf("%w: no command specified", ErrUsage)
	}

	cmd, err := m.Get(args[0])
	if err != nil {
		m.PrintUsage(stdout)
		return 2, err
	}

	flags := pflag.NewFlagSet(cmd.Name(), pflag.ContinueOnError)
	flags.SetOutput(stdout)
	flags.Usage = func() {
		fmt.Fprintf(stdout, "Usage: %s %s\n\n%s\n\nFlags:\n%s", m.name, cmd.Usage(), cmd.Description(), flags.FlagUsages())
	}
	cmd.Flags(flags)

	if err := flags.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0, nil
		}
		return 2, fmt.Errorf("%w: %v", ErrUsage, err)
	}

	return cmd.Execute(ctx, &CommandArgs{
		Args:   flags.Args(),
		Flags:  flags,
		Raw:    args[1:],
		Stdout: stdout,
	})
}
