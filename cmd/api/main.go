// cmd/api/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"storefront/internal/infra/config"
	"storefront/internal/infra/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is what every subcommand gets after PersistentPreRunE.
type app struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	var (
		path string
		a    app
	)

	cmd := &cobra.Command{
		Use:           "api",
		Short:         "Storefront catalog API",
		SilenceErrors: true,
		SilenceUsage:  true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Mode: cfg.LogMode, File: cfg.LogFile})
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			if cfg.HasSecretRefs() {
				if err := resolveSecrets(cmd.Context(), cfg); err != nil {
					return err
				}
			}
			a.cfg, a.log = cfg, log
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
		// `api` on its own serves
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), &a)
		},
	}
	cmd.PersistentFlags().StringVar(&path, "config", "", "config file (yaml/json/toml); env vars override it")

	cmd.AddCommand(newServeCommand(&a), newMigrateCommand(&a))
	return cmd
}

func resolveSecrets(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	sm, err := config.NewSecretManager(ctx)
	if err != nil {
		return err
	}
	defer sm.Close()
	return cfg.ResolveSecrets(ctx, sm)
}
