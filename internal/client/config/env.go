package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names. The GITHUB_* / UPLOAD_FOLDER / BASE_BRANCH
// names are the ones the shortcut scripts already export.
const (
	EnvToken        = "GITHUB_TOKEN"
	EnvRepository   = "GITHUB_REPO"
	EnvFolder       = "UPLOAD_FOLDER"
	EnvBranch       = "BASE_BRANCH"
	EnvAPIBaseURL   = "UP2GIT_API_URL"
	EnvRawBaseURL   = "UP2GIT_RAW_URL"
	EnvTriggerPath  = "UP2GIT_TRIGGER_PATH"
	EnvHistoryPath  = "UP2GIT_HISTORY_PATH"
	EnvLogLevel     = "UP2GIT_LOG_LEVEL"
	EnvMetricsAddr  = "UP2GIT_METRICS_ADDR"
	EnvTimeout      = "UP2GIT_TIMEOUT"
	EnvPollInterval = "UP2GIT_POLL_INTERVAL"
)

// parseEnv overlays cfg with values from dotenvPath (if it exists) and the
// process environment. A variable set in the process wins over the same key
// in the .env file, matching dotenv's no-override behaviour.
func parseEnv(cfg *Config, dotenvPath string) error {
	fileVals := map[string]string{}
	if dotenvPath != "" {
		vals, err := godotenv.Read(dotenvPath)
		switch {
		case err == nil:
			fileVals = vals
		case errors.Is(err, fs.ErrNotExist):
		default:
			return fmt.Errorf("read %s: %w", dotenvPath, err)
		}
	}

	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := fileVals[key]
		return v, ok
	}

	setString := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	setString(&cfg.AccessToken, EnvToken)
	setString(&cfg.TargetRepository, EnvRepository)
	setString(&cfg.DestinationFolder, EnvFolder)
	setString(&cfg.BranchName, EnvBranch)
	setString(&cfg.APIBaseURL, EnvAPIBaseURL)
	setString(&cfg.RawBaseURL, EnvRawBaseURL)
	setString(&cfg.TriggerPath, EnvTriggerPath)
	setString(&cfg.HistoryPath, EnvHistoryPath)
	setString(&cfg.LogLevel, EnvLogLevel)
	setString(&cfg.MetricsAddr, EnvMetricsAddr)

	for key, dst := range map[string]*time.Duration{
		EnvTimeout:      &cfg.RequestTimeout,
		EnvPollInterval: &cfg.PollInterval,
	} {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = d
	}

	return nil
}
