package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/HuangJiaLian/Up2Git/internal/filex"
)

const (
	DefaultFolder         = "uploads"
	DefaultBranch         = "main"
	DefaultAPIBaseURL     = "https://api.github.com"
	DefaultRawBaseURL     = "https://raw.githubusercontent.com"
	DefaultRequestTimeout = 30 * time.Second
	DefaultTriggerPath    = "/tmp/.upload_trigger"
	DefaultPollInterval   = time.Second
)

// Config holds runtime settings for the uploader.
//
// AccessToken and TargetRepository are required for uploads; without them the
// pipeline stays in the "not configured" state (see Complete).
type Config struct {
	AccessToken       string
	TargetRepository  string
	DestinationFolder string
	BranchName        string

	APIBaseURL     string
	RawBaseURL     string
	RequestTimeout time.Duration

	TriggerPath  string
	PollInterval time.Duration

	HistoryPath string
	ConfigPath  string

	LogLevel    string
	LogFormat   string
	MetricsAddr string
}

// Remote is the immutable snapshot of the settings the remote store client
// needs. It is copied at construction time so an in-flight upload never
// observes a half-applied settings update.
type Remote struct {
	Token      string
	Repository string
	Folder     string
	Branch     string
	APIBaseURL string
	RawBaseURL string
	Timeout    time.Duration
}

// LoadDefaults populates c with defaults. Per-user paths fall back to the
// working directory when the user config dir cannot be resolved.
func (c *Config) LoadDefaults() {
	c.DestinationFolder = DefaultFolder
	c.BranchName = DefaultBranch
	c.APIBaseURL = DefaultAPIBaseURL
	c.RawBaseURL = DefaultRawBaseURL
	c.RequestTimeout = DefaultRequestTimeout
	c.TriggerPath = DefaultTriggerPath
	c.PollInterval = DefaultPollInterval
	c.LogLevel = "info"
	c.LogFormat = "text"

	c.HistoryPath = userPath("history.json")
	c.ConfigPath = userPath("config.json")
}

// LoadConfig builds a Config from defaults, the .env file and process
// environment, the per-user config file and finally the command-line flags
// in args (usually os.Args[1:]). Later sources take precedence.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}

	explicit := false
	if p := configFileFlag(args); p != "" {
		cfg.ConfigPath = p
		explicit = true
	}
	if err := parseFile(cfg, cfg.ConfigPath, explicit); err != nil {
		return nil, err
	}

	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Complete reports whether uploads can be attempted.
func (c Config) Complete() bool {
	return strings.TrimSpace(c.AccessToken) != "" && strings.TrimSpace(c.TargetRepository) != ""
}

// Remote returns the snapshot used to build a remote store client.
func (c Config) Remote() Remote {
	return Remote{
		Token:      c.AccessToken,
		Repository: c.TargetRepository,
		Folder:     c.folder(),
		Branch:     c.branch(),
		APIBaseURL: strings.TrimRight(c.APIBaseURL, "/"),
		RawBaseURL: strings.TrimRight(c.RawBaseURL, "/"),
		Timeout:    c.RequestTimeout,
	}
}

func (c Config) folder() string {
	if f := strings.Trim(c.DestinationFolder, "/ "); f != "" {
		return f
	}
	return DefaultFolder
}

func (c Config) branch() string {
	if b := strings.TrimSpace(c.BranchName); b != "" {
		return b
	}
	return DefaultBranch
}

// With returns a copy of c with one user-editable setting replaced. Keys are
// the persisted names (accessToken, targetRepository, destinationFolder,
// branchName) or their short aliases (token, repo, folder, branch).
func (c Config) With(key, value string) (Config, error) {
	value = strings.TrimSpace(value)

	switch strings.ToLower(key) {
	case "token", "accesstoken":
		c.AccessToken = value
	case "repo", "targetrepository":
		if value != "" && !validRepository(value) {
			return c, fmt.Errorf("repository must be in owner/name form, got %q", value)
		}
		c.TargetRepository = value
	case "folder", "destinationfolder":
		c.DestinationFolder = value
	case "branch", "branchname":
		c.BranchName = value
	default:
		return c, fmt.Errorf("unknown setting %q", key)
	}

	return c, nil
}

// Redacted returns a copy safe for printing.
func (c Config) Redacted() Config {
	if c.AccessToken != "" {
		c.AccessToken = "********"
	}
	return c
}

func validRepository(s string) bool {
	owner, name, ok := strings.Cut(s, "/")
	return ok && owner != "" && name != "" && !strings.Contains(name, "/")
}

func userPath(name string) string {
	p, err := filex.UserAppPath(name)
	if err != nil {
		return name
	}
	return p
}
