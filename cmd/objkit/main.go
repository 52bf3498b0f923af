// Command objkit generates Go wrapper bindings from clang AST dumps of
// Objective-C headers.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"objkit/internal"
	"objkit/internal/astdump"
	"objkit/internal/config"
	"objkit/internal/diag"
	"objkit/internal/generation"
	"objkit/internal/index"
	"objkit/internal/synthesis"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var (
		configPath string
		verbose    bool
		flagCfg    config.Config
	)

	cmd := &cobra.Command{
		Use:           "objkit [flags] dump.json...",
		Short:         "Generate Go bindings from clang -ast-dump=json output",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Default()
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			applyFlags(cmd, &cfg, flagCfg)
			cfg.Dumps = append(cfg.Dumps, args...)
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, verbose)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringSliceVar(&flagCfg.Classes, "class", nil, "restrict generation to these classes (and their superclass chains)")
	cmd.Flags().StringVarP(&flagCfg.Package, "package", "p", "", "package name of the generated files")
	cmd.Flags().StringVarP(&flagCfg.Output, "output", "o", "", "output directory")
	cmd.Flags().StringVar(&flagCfg.MinOS, "min-os", "", "drop declarations introduced after this version")
	cmd.Flags().BoolVar(&flagCfg.ForceClean, "force-clean", false, "clear a non-empty output directory without asking")
	return cmd
}

// applyFlags layers explicitly set flags over the file configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config, flags config.Config) {
	if cmd.Flags().Changed("class") {
		cfg.Classes = flags.Classes
	}
	if cmd.Flags().Changed("package") {
		cfg.Package = flags.Package
	}
	if cmd.Flags().Changed("output") {
		cfg.Output = flags.Output
	}
	if cmd.Flags().Changed("min-os") {
		cfg.MinOS = flags.MinOS
	}
	if cmd.Flags().Changed("force-clean") {
		cfg.ForceClean = flags.ForceClean
	}
}

func run(ctx context.Context, cfg config.Config, verbose bool) error {
	log, err := newLogger(verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := internal.EnsureEmptyDir(cfg.Output, cfg.ForceClean); err != nil {
		return fmt.Errorf("preparing output directory: %w", err)
	}

	// diagnostics collected up to any failure still reach the log
	sink := diag.NewSink()
	defer reportDiagnostics(log, sink)

	providers := make([]index.Provider, 0, len(cfg.Dumps))
	for _, dump := range cfg.Dumps {
		r, err := astdump.Open(dump)
		if err != nil {
			return err
		}
		providers = append(providers, r)
	}

	idx, err := index.Build(index.Options{MinOS: cfg.MinOS, Classes: cfg.Classes}, sink, log, providers...)
	if err != nil {
		return err
	}

	plan, err := synthesis.New(idx, sink, log).Synthesize(ctx)
	if err != nil {
		return err
	}

	emitter := generation.New(cfg.Package, cfg.Output, log)
	if err := emitter.Emit(plan); err != nil {
		return err
	}

	log.Info("generation complete",
		zap.Int("classes", len(plan.Bound())),
		zap.Int("enums", len(plan.Enums)),
		zap.Int("skipped", len(sink.Skips())),
		zap.Int("warnings", len(sink.Warnings())),
		zap.String("output", cfg.Output))
	return nil
}

// reportDiagnostics mirrors every collected entry into the log. It runs
// whether or not the pipeline succeeded.
func reportDiagnostics(log *zap.Logger, sink *diag.Sink) {
	for _, entry := range sink.Report() {
		switch entry.Kind {
		case diag.Skipped:
			log.Warn("skipped", zap.String("id", entry.ID), zap.String("reason", entry.Reason))
		default:
			log.Warn("warning", zap.String("id", entry.ID), zap.String("reason", entry.Reason), zap.String("rule", entry.Rule))
		}
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	return zcfg.Build()
}
