package cli

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/vburojevic/calltrace/internal/config"
	"github.com/vburojevic/calltrace/internal/logging"
	"github.com/vburojevic/calltrace/internal/output"
)

// CLI is the root command structure for calltrace
type CLI struct {
	// Global flags
	Format  string     `short:"f" default:"${config_format}" enum:"ndjson,text,auto" help:"Output format (auto: text on a terminal, ndjson otherwise)"`
	Quiet   bool       `short:"q" help:"Suppress progress output (only emit records and the summary)"`
	Verbose bool       `short:"v" help:"Show debug logs on stderr"`
	Version VersionCmd `cmd:"" help:"Show version information"`

	// Commands
	Search SearchCmd `cmd:"" help:"Correlate logs across services starting from one or more identifiers"`
	Plan   PlanCmd   `cmd:"" help:"Show the search targets identifiers expand to, without searching"`
	Token  TokenCmd  `cmd:"" help:"Obtain a search token and report its age and lifetime"`
	Config ConfigCmd `cmd:"" help:"Show or manage configuration"`
}

// Globals holds shared state for all commands
type Globals struct {
	Format  string // resolved: ndjson or text
	Quiet   bool
	Verbose bool
	Stdout  io.Writer
	Stderr  io.Writer
	Config  *config.Config
	Logger  *zap.Logger
}

// NewGlobals creates a new Globals instance from CLI flags
func NewGlobals(cli *CLI) *Globals {
	return NewGlobalsWithConfig(cli, config.Default())
}

// NewGlobalsWithConfig creates a new Globals instance with config fallbacks
func NewGlobalsWithConfig(cli *CLI, cfg *config.Config) *Globals {
	if cfg == nil {
		cfg = config.Default()
	}
	g := &Globals{
		Quiet:   cli.Quiet,
		Verbose: cli.Verbose,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Config:  cfg,
	}

	// Apply config values if CLI flags weren't explicitly set
	if !cli.Quiet && cfg.Quiet {
		g.Quiet = true
	}
	if !cli.Verbose && cfg.Verbose {
		g.Verbose = true
	}

	g.Format = resolveFormat(cli.Format, g.Stdout)
	g.Logger = logging.New(g.Stderr, g.Verbose, g.Quiet)
	return g
}

// resolveFormat turns "auto" into text on a terminal and ndjson elsewhere
func resolveFormat(format string, w io.Writer) string {
	switch format {
	case output.FormatNDJSON, output.FormatText:
		return format
	case "auto":
		if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
			return output.FormatText
		}
	}
	return output.FormatNDJSON
}

// Writer returns the event writer for the resolved format
func (g *Globals) Writer() output.Writer {
	if g.Format == output.FormatText {
		return output.NewTextWriter(g.Stdout)
	}
	return output.NewNDJSONWriter(g.Stdout)
}

// Debug logs a debug message if verbose mode is enabled
func (g *Globals) Debug(format string, args ...interface{}) {
	if g.Logger != nil {
		g.Logger.Sugar().Debugf(format, args...)
	}
}

func (g *Globals) logger() *zap.Logger {
	if g.Logger == nil {
		return zap.NewNop()
	}
	return g.Logger
}

// VersionCmd shows version information
type VersionCmd struct{}

// Run executes the version command
func (v *VersionCmd) Run(globals *Globals) error {
	return globals.Writer().WriteMetadata(Version, Commit)
}

// Version information (set at build time)
var (
	Version = "dev"
	Commit  = "none"
)
