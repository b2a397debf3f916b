// Package cli is the up2git host: it selects a mode from the command line,
// builds the upload pipeline and keeps it running.
//
// Modes:
//
//	up2git -trigger        create the trigger marker and exit
//	up2git -upload <path>  upload one file, print its URL and exit
//	up2git -version        print build information
//	up2git -help           print usage
//	up2git                 run the host
//
// The host polls the trigger marker, optionally serves Prometheus metrics
// and, when stdin is a terminal, runs a REPL:
//
//   - upload            upload the clipboard contents
//   - file <path>       upload a file
//   - history           list recent uploads
//   - clear             clear the history
//   - config            show the current settings
//   - set <key> [value] change and persist a setting (token is prompted for)
//   - help              show available commands
//   - exit | quit       stop the host
//
// SIGINT and SIGTERM stop the host; uploads already running are awaited.
package cli
