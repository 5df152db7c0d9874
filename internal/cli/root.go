// Package cli implements attendctl, the operator command line for the kiosk
// attendance service.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/kiosk-attendance-api/pkg/config"
	"github.com/noah-isme/kiosk-attendance-api/pkg/logger"
)

// RootOptions holds state shared by subcommands.
type RootOptions struct {
	Verbose bool

	loadConfig func() (*config.Config, error)
}

// NewRootCommand creates the attendctl root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{loadConfig: config.Load}

	cmd := &cobra.Command{
		Use:           "attendctl",
		Short:         "Operate the kiosk attendance service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewResyncCommand(opts))
	cmd.AddCommand(NewHashSecretCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func (o *RootOptions) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if o.Verbose {
		cfg.Log.Level = "debug"
	}
	cfg.Log.Format = "console"
	logr, err := logger.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logr, nil
}
