// Command tpzcyx generates, validates and inspects TPZCYX microscopy datasets.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"tpzcyx/pkg/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by every command once flags are parsed
type app struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "tpzcyx",
		Short: "Generate, validate and inspect TPZCYX microscopy datasets",
		Long: `tpzcyx works with six-dimensional (time, position, z, channel, y, x)
float32 datasets stored as a YAML descriptor (.meta) and a raw
little-endian payload (.data).`,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "tpzcyx.yaml", "Configuration file (defaults are used when it does not exist)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.newGenerateCmd(),
		a.newMockCmd(),
		a.newSmallCmd(),
		a.newMinimalCmd(),
		a.newRealisticCmd(),
		a.newNoiseCmd(),
		a.newCustomCmd(),
		a.newValidateCmd(),
		a.newInspectCmd(),
		a.newExportCmd(),
		a.newWatchCmd(),
		a.newConfigCmd(),
	)
	return root
}

// setup loads the configuration and builds the logger
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.logger, err = newLogger(a.verbose || cfg.Output.Verbose)
	if err != nil {
		return err
	}
	a.logger.Debug("configuration loaded", zap.String("path", a.configPath))
	return nil
}

func (a *app) teardown(*cobra.Command, []string) error {
	if a.logger != nil {
		// Sync fails on terminals and pipes; nothing useful can be done about it
		_ = a.logger.Sync()
	}
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	return cfg.Build()
}
