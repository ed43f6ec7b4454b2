// Command tlsfetch performs one HTTPS GET over a verified TLS session and
// prints the raw response.
//
// The response is accumulated into a fixed-capacity buffer. If the server
// sends more than fits, the output is truncated and a notice is printed to
// stderr.
//
// Usage:
//
//	tlsfetch [flags]
//
// Flags:
//
//	-config string        Configuration file (.yaml or .toml)
//	-host string          Server host name (default "httpbin.org")
//	-port int             Server port (default 443)
//	-ca string            PEM or DER CA bundle used to verify the server
//	-min-version string   Minimum TLS version: 1.2, 1.3 (default "1.2")
//	-auth string          Peer verification: required, optional, none (default "required")
//	-capacity int         Response buffer size in bytes (default 4096)
//	-chunk int            Largest single read in bytes (default 1500)
//	-path string          Request path (default "/get")
//	-timeout duration     Overall deadline (default 60s)
//	-retries int          Consecutive retries without progress, 0 is unbounded
//	-backoff              Sleep with exponential backoff between retries
//	-poll duration        Transport poll interval, 0 blocks
//	-protocol-log string  Write protocol events to a CBOR log file
//	-metrics-file string  Write Prometheus metrics to a textfile
//	-log-level string     Log level: debug, info, warn, error (default "info")
//
// Examples:
//
//	# Fetch httpbin.org/get
//	tlsfetch -ca /etc/ssl/certs/ca-certificates.crt
//
//	# Require TLS 1.3 and record a protocol log
//	tlsfetch -ca ca.pem -min-version 1.3 -protocol-log fetch.tlog
//
//	# Use a config file, overriding the path
//	tlsfetch -config fetch.yaml -path /headers
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/retrocoder/tlsfetch/pkg/fetch"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	logger := setupLogging(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := fetch.Run(ctx, cfg, logger)
	if result != nil && result.Response != nil {
		os.Stdout.Write(result.Response.Body)
		if result.Truncated() {
			fmt.Fprintf(os.Stderr, "\nResponse truncated at %d bytes\n", result.Response.Total)
		}
	}
	if err != nil {
		logger.Error("fetch failed", "error", err)
		os.Exit(1)
	}
}

// parseConfig loads the optional config file, then applies the flags that
// were set explicitly on top of it.
func parseConfig(args []string) (fetch.Config, error) {
	fs := flag.NewFlagSet("tlsfetch", flag.ContinueOnError)

	var flags fetch.Config
	configFile := fs.String("config", "", "Configuration file (.yaml or .toml)")
	def := fetch.DefaultConfig()
	fs.StringVar(&flags.Host, "host", def.Host, "Server host name")
	fs.IntVar(&flags.Port, "port", def.Port, "Server port")
	fs.StringVar(&flags.CAFile, "ca", "", "PEM or DER CA bundle used to verify the server")
	fs.StringVar(&flags.MinVersion, "min-version", def.MinVersion, "Minimum TLS version: 1.2, 1.3")
	fs.StringVar(&flags.AuthMode, "auth", def.AuthMode, "Peer verification: required, optional, none")
	fs.IntVar(&flags.ResponseCapacity, "capacity", def.ResponseCapacity, "Response buffer size in bytes")
	fs.IntVar(&flags.ReadChunkSize, "chunk", def.ReadChunkSize, "Largest single read in bytes")
	fs.StringVar(&flags.Path, "path", def.Path, "Request path")
	fs.DurationVar(&flags.Timeout, "timeout", def.Timeout, "Overall deadline")
	fs.IntVar(&flags.MaxRetries, "retries", 0, "Consecutive retries without progress, 0 is unbounded")
	fs.BoolVar(&flags.Backoff, "backoff", false, "Sleep with exponential backoff between retries")
	fs.DurationVar(&flags.PollInterval, "poll", 0, "Transport poll interval, 0 blocks")
	fs.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write protocol events to a CBOR log file")
	fs.StringVar(&flags.MetricsFile, "metrics-file", "", "Write Prometheus metrics to a textfile")
	fs.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return fetch.Config{}, err
	}
	if fs.NArg() > 0 {
		return fetch.Config{}, fmt.Errorf("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	cfg := def
	if *configFile != "" {
		if err := cfg.LoadFile(*configFile); err != nil {
			return fetch.Config{}, err
		}
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = flags.Host
		case "port":
			cfg.Port = flags.Port
		case "ca":
			cfg.CAFile = flags.CAFile
		case "min-version":
			cfg.MinVersion = flags.MinVersion
		case "auth":
			cfg.AuthMode = flags.AuthMode
		case "capacity":
			cfg.ResponseCapacity = flags.ResponseCapacity
		case "chunk":
			cfg.ReadChunkSize = flags.ReadChunkSize
		case "path":
			cfg.Path = flags.Path
		case "timeout":
			cfg.Timeout = flags.Timeout
		case "retries":
			cfg.MaxRetries = flags.MaxRetries
		case "backoff":
			cfg.Backoff = flags.Backoff
		case "poll":
			cfg.PollInterval = flags.PollInterval
		case "protocol-log":
			cfg.ProtocolLog = flags.ProtocolLog
		case "metrics-file":
			cfg.MetricsFile = flags.MetricsFile
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		}
	})

	return cfg, cfg.Validate()
}

func setupLogging(level string) *slog.Logger {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
