package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/alecthomas/kong"

	"github.com/vburojevic/calltrace/internal/cli"
	"github.com/vburojevic/calltrace/internal/config"
)

const quickStart = `calltrace - follow one call through the calling platform's logs

START HERE:
  calltrace search tracking_id=<id>

Identifiers can be labelled (session_id=..., sip_call_id=..., sse_call_id=...)
or left bare to have their type guessed.

Other useful commands:
  calltrace search -Q "session id abc123 in int eu"   Free-text request
  calltrace plan session_id=<id>                        Show what would be searched
  calltrace token                                       Check credentials
  calltrace config generate                             Sample configuration
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	// Load configuration from files/environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config values become flag defaults; explicit flags still win
	vars := kong.Vars{
		"config_format":      cfg.Format,
		"config_max_depth":   strconv.Itoa(cfg.Search.MaxDepth),
		"config_max_hits":    strconv.Itoa(cfg.Search.MaxTotalHits),
		"config_concurrency": strconv.Itoa(cfg.Search.Concurrency),
	}

	ctx := kong.Parse(&c,
		kong.Name("calltrace"),
		kong.Description("calltrace: correlate calling-platform logs across services by following identifiers breadth-first"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	err = ctx.Run(globals)
	_ = globals.Logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}
