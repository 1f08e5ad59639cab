package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/cacheproxy/pkg/cli"
	"mercator-hq/cacheproxy/pkg/config"
)

type rootFlags struct {
	configFile    string
	logLevel      string
	queueSize     int
	metricsListen string
	journalPath   string
}

// positional holds the three required arguments.
type positional struct {
	port      int
	workers   int
	cacheSize int
}

func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "cacheproxy <port> <thread_count> <cache_size>",
		Short: "Caching forward HTTP proxy",
		Long: `cacheproxy accepts HTTP/1.x requests on <port>, serves them with
<thread_count> worker goroutines, and keeps up to <cache_size> upstream
responses in an LRU cache keyed by request URL.

Settings not given on the command line come from the optional config file
and CACHEPROXY_* environment variables.`,
		Version:       Version,
		Args:          validatePositional,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePositional(args)
			if err != nil {
				return err
			}
			cfg, err := buildConfig(flags, pos)
			if err != nil {
				return err
			}

			ctx, stop := cli.SetupSignalHandler(cmd.Context(), nil)
			defer stop()
			return runProxy(ctx, cfg, flags.configFile, cmd.OutOrStdout())
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configFile, "config", "c", "", "config file path (optional)")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	cmd.Flags().IntVar(&flags.queueSize, "queue-size", 0, "override the pending connection queue size")
	cmd.Flags().StringVar(&flags.metricsListen, "metrics-listen", "", "serve metrics and probes on this address")
	cmd.Flags().StringVar(&flags.journalPath, "journal", "", "record connection outcomes to this SQLite file")

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cli.NewUsageError("%v", err)
	})

	cmd.AddCommand(newVersionCmd(), newJournalCmd(&flags.configFile))
	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	return execute(context.Background(), os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return cli.ExitOK
	}

	fmt.Fprintln(stderr, "Error:", err)
	code := cli.ExitCode(err)
	if code == cli.ExitUsage {
		fmt.Fprint(stderr, cmd.UsageString())
	}
	return code
}

func validatePositional(_ *cobra.Command, args []string) error {
	_, err := parsePositional(args)
	return err
}

var positionalNames = [3]string{"port", "thread_count", "cache_size"}

func parsePositional(args []string) (positional, error) {
	if len(args) != len(positionalNames) {
		return positional{}, cli.NewUsageError("expected 3 arguments (port, thread_count, cache_size), got %d", len(args))
	}

	var vals [3]int
	for i, arg := range args {
		n, err := strconv.Atoi(arg)
		if err != nil || n <= 0 {
			return positional{}, cli.NewUsageError("%s must be a positive integer, got %q", positionalNames[i], arg)
		}
		vals[i] = n
	}
	if vals[0] > 65535 {
		return positional{}, cli.NewUsageError("port must be at most 65535, got %d", vals[0])
	}

	return positional{port: vals[0], workers: vals[1], cacheSize: vals[2]}, nil
}

// buildConfig layers the positional arguments and flags over the file and
// environment configuration, then validates the result.
func buildConfig(flags rootFlags, pos positional) (*config.Config, error) {
	cfg, err := config.Read(flags.configFile)
	if err != nil {
		return nil, cli.NewConfigError("file", err.Error())
	}

	cfg.Proxy.Port = pos.port
	cfg.Pool.Workers = pos.workers
	cfg.Cache.Capacity = pos.cacheSize

	if flags.logLevel != "" {
		cfg.Telemetry.Logging.Level = flags.logLevel
	}
	if flags.queueSize != 0 {
		cfg.Pool.QueueSize = flags.queueSize
	}
	if flags.metricsListen != "" {
		cfg.Telemetry.Metrics.Enabled = true
		cfg.Telemetry.Metrics.ListenAddress = flags.metricsListen
	}
	if flags.journalPath != "" {
		cfg.Journal.Enabled = true
		cfg.Journal.Path = flags.journalPath
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
