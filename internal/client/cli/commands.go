package cli

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/HuangJiaLian/Up2Git/internal/client/config"
)

// Upload uploads the clipboard contents and waits for the outcome.
func (a *App) Upload(ctx context.Context) error {
	ch, err := a.pipeline.UploadFromCapture(ctx)
	if err != nil {
		return err
	}
	return (<-ch).Err
}

// UploadFile uploads path and waits for the outcome.
func (a *App) UploadFile(ctx context.Context, path string) error {
	ch, err := a.pipeline.UploadFile(ctx, path)
	if err != nil {
		return err
	}
	return (<-ch).Err
}

// History prints the recent uploads, most recent first.
func (a *App) History(_ context.Context) error {
	entries := a.pipeline.History()
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No upload history")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	for i, e := range entries {
		kind := "file"
		if e.IsImage {
			kind = "image"
		}
		when := e.Timestamp
		if t := e.Time(); !t.IsZero() {
			when = t.Local().Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\t%s\n", i+1, when, kind, e.Filename, e.URL)
	}
	return tw.Flush()
}

// ClearHistory empties the history.
func (a *App) ClearHistory(ctx context.Context) error {
	if err := a.pipeline.ClearHistory(ctx); err != nil {
		fmt.Fprintln(a.out, "History cleared, but not saved:", err)
		return err
	}
	fmt.Fprintln(a.out, "History cleared")
	return nil
}

// ShowConfig prints the current settings with the token masked.
func (a *App) ShowConfig(_ context.Context) error {
	cfg := a.pipeline.Configuration().Redacted()

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "token\t%s\n", orUnset(cfg.AccessToken))
	fmt.Fprintf(tw, "repo\t%s\n", orUnset(cfg.TargetRepository))
	fmt.Fprintf(tw, "folder\t%s\n", cfg.DestinationFolder)
	fmt.Fprintf(tw, "branch\t%s\n", cfg.BranchName)
	fmt.Fprintf(tw, "config file\t%s\n", cfg.ConfigPath)
	fmt.Fprintf(tw, "history file\t%s\n", cfg.HistoryPath)
	fmt.Fprintf(tw, "trigger file\t%s\n", cfg.TriggerPath)
	return tw.Flush()
}

// Set changes one setting, persists it to the config file and applies it
// to subsequent uploads. Without a value the user is prompted; the token is
// read without echo.
func (a *App) Set(ctx context.Context, key, value string) error {
	current := a.pipeline.Configuration()

	if value == "" {
		var err error
		if isTokenKey(key) {
			value, err = GetSecret("Access token", a.out)
		} else {
			value, err = GetSimpleText(a.reader, settingLabel(key), settingValue(current, key), a.out)
		}
		if err != nil {
			fmt.Fprintln(a.out, "Value not read:", err)
			return err
		}
	}

	cfg, err := current.With(key, value)
	if err != nil {
		fmt.Fprintln(a.out, "Error:", err)
		return err
	}
	if err := cfg.Save(cfg.ConfigPath); err != nil {
		fmt.Fprintln(a.out, "Settings not saved:", err)
		return err
	}

	a.pipeline.UpdateConfiguration(ctx, cfg)
	fmt.Fprintln(a.out, "Settings saved")
	return nil
}

func settingLabel(key string) string {
	switch strings.ToLower(key) {
	case "repo", "targetrepository":
		return "Target repository (owner/name)"
	case "folder", "destinationfolder":
		return "Destination folder"
	case "branch", "branchname":
		return "Branch"
	}
	return key
}

func settingValue(cfg config.Config, key string) string {
	switch strings.ToLower(key) {
	case "repo", "targetrepository":
		return cfg.TargetRepository
	case "folder", "destinationfolder":
		return cfg.DestinationFolder
	case "branch", "branchname":
		return cfg.BranchName
	}
	return ""
}

func isTokenKey(key string) bool {
	k := strings.ToLower(key)
	return k == "token" || k == "accesstoken"
}

func orUnset(s string) string {
	if s == "" {
		return "(not set)"
	}
	return s
}
