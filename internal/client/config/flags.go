package config

import (
	"flag"
	"io"
	"time"

	"github.com/HuangJiaLian/Up2Git/internal/flagx"
)

var settingFlags = []string{
	"-repo", "-folder", "-branch", "-api-url", "-trigger-file",
	"-history", "-timeout", "-log-level", "-log-format", "-metrics-addr",
}

func configFileFlag(args []string) string {
	return flagx.ConfigFileFlag(args)
}

// parseFlags overlays cfg with the setting flags found in args. Mode flags
// (-trigger, -upload, -help) are left to the caller; the access token is
// deliberately not accepted on the command line.
//
//	-repo string          target repository (owner/name)
//	-folder string        destination folder in the repository
//	-branch string        branch to commit to
//	-api-url string       contents API base URL
//	-trigger-file string  trigger marker path
//	-history string       history document path
//	-timeout int          request timeout (seconds)
//	-log-level string     debug, info, warn or error
//	-log-format string    text or json
//	-metrics-addr string  host:port for the Prometheus endpoint
func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("settings", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.TargetRepository, "repo", cfg.TargetRepository, "target repository (owner/name)")
	fs.StringVar(&cfg.DestinationFolder, "folder", cfg.DestinationFolder, "destination folder")
	fs.StringVar(&cfg.BranchName, "branch", cfg.BranchName, "branch name")
	fs.StringVar(&cfg.APIBaseURL, "api-url", cfg.APIBaseURL, "contents API base URL")
	fs.StringVar(&cfg.TriggerPath, "trigger-file", cfg.TriggerPath, "trigger marker path")
	fs.StringVar(&cfg.HistoryPath, "history", cfg.HistoryPath, "history document path")
	timeout := fs.Int("timeout", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "log format")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "metrics listen address")

	if err := fs.Parse(flagx.FilterArgs(args, settingFlags)); err != nil {
		return err
	}

	if *timeout > 0 {
		cfg.RequestTimeout = time.Duration(*timeout) * time.Second
	}
	return nil
}
