package cli

import (
	"io"
	"os"

	"golang.org/x/term"

	"github.com/semmy-space/credstore/internal/config"
)

// Globals holds global flags available to all commands
type Globals struct {
	Output  string `help:"Output format" default:"auto" enum:"json,plain,rich,auto" short:"o" env:"CREDSTORE_OUTPUT"`
	Verbose bool   `help:"Debug logging on stderr" short:"v" env:"CREDSTORE_VERBOSE"`
	NoInput bool   `help:"Disable interactive prompts (fail instead)" env:"CREDSTORE_NO_INPUT"`
}

// Streams carries the process standard streams so commands can be run against buffers
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// ResolvedOutput returns the effective output mode
// Flag or env > config default_output > TTY detection (rich on a terminal, plain otherwise)
func (g *Globals) ResolvedOutput(cfg *config.Config, stdout io.Writer) string {
	if g.Output != "" && g.Output != "auto" {
		return g.Output
	}
	if cfg != nil && cfg.DefaultOutput != "" && cfg.DefaultOutput != "auto" {
		return cfg.DefaultOutput
	}
	if isTerminal(stdout) {
		return "rich"
	}
	return "plain"
}

// isTerminal reports whether v is a file attached to a terminal
func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
