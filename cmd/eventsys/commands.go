package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/eventsys/internal/config"
	"github.com/dshills/eventsys/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "eventsys",
		Short: "Generate event implementations, factories and listeners",
		Long: `eventsys synthesizes event implementations and factories from a
manifest of interface declarations, and writes the generated artifacts
for inspection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newGenCmd(), newVersionCmd())
	return root
}

type genOptions struct {
	manifest string
	config   string
	out      string
	logLevel string
	watch    bool
}

func newGenCmd() *cobra.Command {
	var opts genOptions
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate every factory and event class declared in a manifest",
		Example: `  eventsys gen -m events.yaml
  eventsys gen -m events.toml -c eventsys.toml -o build/generated --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGen(cmd, opts)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "manifest file (.yaml, .yml or .toml)")
	f.StringVarP(&opts.config, "config", "c", "", "configuration file")
	f.StringVarP(&opts.out, "out", "o", "", "artifact output directory (default from config)")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVarP(&opts.watch, "watch", "w", false, "regenerate when the manifest or its scripts change")
	_ = cmd.MarkFlagRequired("manifest")
	return cmd
}

func runGen(cmd *cobra.Command, opts genOptions) error {
	cfg, err := config.LoadAll(opts.config)
	if err != nil {
		return err
	}
	if opts.out != "" {
		cfg.Debug.Dir = opts.out
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	cfg.Debug.Enabled = true

	log := logging.NewLogger(logging.LoggerConfig{
		Level:   logging.ParseLogLevel(cfg.LogLevel),
		Output:  os.Stderr,
		Console: true,
	}).WithComponent("gen")

	r := &runner{cfg: cfg, log: log, manifest: opts.manifest, out: cmd.OutOrStdout()}
	if !opts.watch {
		return r.generate(cmd.Context())
	}
	err = r.watch(cmd.Context())
	if errors.Is(err, cmd.Context().Err()) {
		return nil
	}
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "eventsys %s\n", version)
			fmt.Fprintf(out, "Commit: %s\n", commit)
			fmt.Fprintf(out, "Built: %s\n", date)
		},
	}
}
