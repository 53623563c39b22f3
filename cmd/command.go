package cmd

import (
	"context"
	"io"

	"github.com/spf13/pflag"
)

// Command is one metacat subcommand.
type Command interface {
	// Name returns the command identifier
	Name() string

	// Description returns human-readable help text
	Description() string

	// Usage returns a usage string for help (e.g. "search <catalog> [--var name]")
	Usage() string

	// Flags registers the flags of this command on fs.
	Flags(fs *pflag.FlagSet)

	// Execute runs the command with parsed arguments.
	// Returns exit code (0 = success) and error message
	Execute(ctx context.Context, args *CommandArgs) (int, error)
}

// CommandArgs contains parsed command arguments
type CommandArgs struct {
	// Positional arguments (command-specific)
	Args []string

	// Parsed flags
	Flags *pflag.FlagSet

	// Raw unparsed arguments
	Raw []string

	// Stdout receives command output
	Stdout io.Writer
}

// Arg returns the positional argument at i, or an empty string.
func (a *CommandArgs) Arg(i int) string {
	if i < 0 || i >= len(a.Args) {
		return ""
	}
	return a.Args[i]
}
