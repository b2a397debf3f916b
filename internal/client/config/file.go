package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/HuangJiaLian/Up2Git/internal/filex"
)

// Duration accepts either a Go duration string ("30s") or integer
// nanoseconds in JSON and YAML documents.
type Duration time.Duration

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var v any
	if err := node.Decode(&v); err != nil {
		return err
	}
	return d.set(v)
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) set(v any) error {
	switch x := v.(type) {
	case string:
		parsed, err := time.ParseDuration(x)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case float64:
		*d = Duration(int64(x))
	case int:
		*d = Duration(int64(x))
	default:
		return fmt.Errorf("invalid duration %v", v)
	}
	return nil
}

// fileConfig is the persisted settings document. Empty fields leave the
// corresponding Config value untouched.
type fileConfig struct {
	AccessToken       string   `json:"accessToken,omitempty" yaml:"accessToken,omitempty"`
	TargetRepository  string   `json:"targetRepository,omitempty" yaml:"targetRepository,omitempty"`
	DestinationFolder string   `json:"destinationFolder,omitempty" yaml:"destinationFolder,omitempty"`
	BranchName        string   `json:"branchName,omitempty" yaml:"branchName,omitempty"`
	APIBaseURL        string   `json:"apiBaseUrl,omitempty" yaml:"apiBaseUrl,omitempty"`
	RawBaseURL        string   `json:"rawBaseUrl,omitempty" yaml:"rawBaseUrl,omitempty"`
	RequestTimeout    Duration `json:"requestTimeout,omitempty" yaml:"requestTimeout,omitempty"`
	TriggerPath       string   `json:"triggerPath,omitempty" yaml:"triggerPath,omitempty"`
	PollInterval      Duration `json:"pollInterval,omitempty" yaml:"pollInterval,omitempty"`
	HistoryPath       string   `json:"historyPath,omitempty" yaml:"historyPath,omitempty"`
	LogLevel          string   `json:"logLevel,omitempty" yaml:"logLevel,omitempty"`
	LogFormat         string   `json:"logFormat,omitempty" yaml:"logFormat,omitempty"`
	MetricsAddr       string   `json:"metricsAddr,omitempty" yaml:"metricsAddr,omitempty"`
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// parseFile overlays cfg with the settings document at path. A missing file
// is an error only when the path was given explicitly.
func parseFile(cfg *Config, path string, explicit bool) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	var fc fileConfig
	if isYAML(path) {
		err = yaml.Unmarshal(data, &fc)
	} else {
		err = json.Unmarshal(data, &fc)
	}
	if err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc fileConfig) apply(cfg *Config) {
	setString := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	setString(&cfg.AccessToken, fc.AccessToken)
	setString(&cfg.TargetRepository, fc.TargetRepository)
	setString(&cfg.DestinationFolder, fc.DestinationFolder)
	setString(&cfg.BranchName, fc.BranchName)
	setString(&cfg.APIBaseURL, fc.APIBaseURL)
	setString(&cfg.RawBaseURL, fc.RawBaseURL)
	setString(&cfg.TriggerPath, fc.TriggerPath)
	setString(&cfg.HistoryPath, fc.HistoryPath)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.LogFormat, fc.LogFormat)
	setString(&cfg.MetricsAddr, fc.MetricsAddr)

	if fc.RequestTimeout > 0 {
		cfg.RequestTimeout = time.Duration(fc.RequestTimeout)
	}
	if fc.PollInterval > 0 {
		cfg.PollInterval = time.Duration(fc.PollInterval)
	}
}

// Save persists the user-editable settings of c to path (JSON, or YAML for
// .yaml/.yml), replacing the document atomically. Settings already present in
// the file but not editable at runtime are preserved.
func (c Config) Save(path string) error {
	if path == "" {
		return errors.New("no config path")
	}

	var fc fileConfig
	if data, err := os.ReadFile(path); err == nil {
		if isYAML(path) {
			_ = yaml.Unmarshal(data, &fc)
		} else {
			_ = json.Unmarshal(data, &fc)
		}
	}

	fc.AccessToken = c.AccessToken
	fc.TargetRepository = c.TargetRepository
	fc.DestinationFolder = c.DestinationFolder
	fc.BranchName = c.BranchName

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(fc)
	} else {
		data, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return filex.WriteFileAtomic(path, data, 0o600)
}
