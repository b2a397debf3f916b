// Package config loads runtime configuration for the uploader.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A .env file in the working directory and the process environment
//     (GITHUB_TOKEN, GITHUB_REPO, UPLOAD_FOLDER, BASE_BRANCH, UP2GIT_*).
//     Process variables win over the .env file.
//  3. The per-user settings document, by default
//     <user config dir>/up2git/config.json, or the path given with -c/-config.
//     YAML is used when the extension is .yaml or .yml.
//  4. Command-line setting flags (see parseFlags).
//
// # Settings document
//
//	{
//	  "accessToken": "ghp_...",
//	  "targetRepository": "owner/name",
//	  "destinationFolder": "uploads",
//	  "branchName": "main",
//	  "requestTimeout": "30s"
//	}
//
// Settings updates are applied with (Config).With, which returns a new value,
// and persisted with (Config).Save. A Config without token or repository is
// valid but not Complete; uploads then fail fast with common.ErrNotConfigured.
package config
