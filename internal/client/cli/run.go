package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/HuangJiaLian/Up2Git/internal/buildinfo"
	"github.com/HuangJiaLian/Up2Git/internal/client/config"
	"github.com/HuangJiaLian/Up2Git/internal/client/sink"
	"github.com/HuangJiaLian/Up2Git/internal/client/trigger"
	"github.com/HuangJiaLian/Up2Git/internal/flagx"
	"github.com/HuangJiaLian/Up2Git/internal/logging"
)

const usage = `Usage: up2git [mode] [settings]

Modes:
  -trigger          ask the running host to upload the clipboard
  -upload <path>    upload one file and print its URL
  -version          print build information
  -help             show this help
  (none)            run the host

Settings:
  -c, -config <path>     config file (JSON, or YAML by extension)
  -repo <owner/name>     target repository
  -folder <name>         destination folder (default "uploads")
  -branch <name>         branch (default "main")
  -api-url <url>         contents API base URL
  -trigger-file <path>   trigger marker (default "/tmp/.upload_trigger")
  -history <path>        history document
  -timeout <seconds>     request timeout (default 30)
  -log-level <level>     debug, info, warn or error
  -log-format <format>   text or json
  -metrics-addr <addr>   serve Prometheus metrics on addr

The access token is read from GITHUB_TOKEN, a .env file or the config file.
`

var modeFlags = []string{"-trigger", "-upload", "-version", "-help", "-h"}

type modes struct {
	trigger bool
	upload  string
	version bool
	help    bool
}

func parseModes(args []string) (modes, error) {
	var m modes
	fs := flag.NewFlagSet("up2git", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&m.trigger, "trigger", false, "create the trigger marker")
	fs.StringVar(&m.upload, "upload", "", "upload one file")
	fs.BoolVar(&m.version, "version", false, "print build information")
	fs.BoolVar(&m.help, "help", false, "show help")
	fs.BoolVar(&m.help, "h", false, "show help")

	if err := fs.Parse(flagx.FilterArgs(args, modeFlags)); err != nil {
		return m, err
	}
	return m, nil
}

// Main runs up2git with the command-line arguments args (without the
// program name) and returns the process exit code.
func Main(ctx context.Context, args []string, o Options) int {
	if o.Out == nil {
		o.Out = os.Stdout
	}
	if o.Err == nil {
		o.Err = os.Stderr
	}
	stdout, stderr := o.Out, o.Err

	m, err := parseModes(args)
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		fmt.Fprint(stderr, usage)
		return 1
	}

	switch {
	case m.help:
		fmt.Fprint(stdout, usage)
		return 0
	case m.version:
		buildinfo.PrintBuildData(stdout)
		return 0
	}

	cfg, err := config.LoadConfig(args)
	if err != nil {
		fmt.Fprintln(stderr, "Error loading configuration:", err)
		return 1
	}

	if m.trigger {
		if err := trigger.Write(cfg.TriggerPath); err != nil {
			fmt.Fprintln(stderr, "Failed to create trigger:", err)
			return 1
		}
		fmt.Fprintln(stdout, "Upload triggered")
		return 0
	}

	if o.Logger == nil {
		o.Logger = logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	}
	logger := o.Logger

	if m.upload != "" {
		if o.Sink == nil {
			o.Sink = sink.NewConsole(stdout)
		}
		app := NewApp(ctx, *cfg, o)
		if err := app.UploadOnce(ctx, m.upload); err != nil {
			logger.Debug(ctx, "one-shot upload failed", "error", err)
			return 1
		}
		return 0
	}

	app := NewApp(ctx, *cfg, o)
	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "host stopped", "error", err)
		return 1
	}
	return 0
}
